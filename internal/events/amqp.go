// Package events forwards reaction toggles to a RabbitMQ queue.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultQueue is the queue reaction events are published to when none is configured.
const DefaultQueue = "portfolio.reactions"

const (
	defaultBufferSize     = 256
	defaultRedialInterval = 5 * time.Second
)

var (
	// ErrBufferFull indicates events arrive faster than the broker accepts them.
	ErrBufferFull = errors.New("events: publish buffer full")
	// ErrClosed indicates the publisher has been shut down.
	ErrClosed = errors.New("events: publisher closed")
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// connector opens a channel with the queue declared. The closer owns the connection and may be nil.
type connector func() (Channel, io.Closer, error)

// AMQPPublisher queues reaction events and publishes them as persistent JSON
// messages from a single goroutine, redialing after the broker drops.
type AMQPPublisher struct {
	queue          string
	logger         *zap.Logger
	connect        connector
	redialInterval time.Duration
	events         chan reactions.Event
	done           chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup

	// Owned by the run goroutine.
	channel  Channel
	conn     io.Closer
	lastDial time.Time
	closeErr error
}

// DialAMQP connects to the broker and declares the durable queue.
func DialAMQP(url, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	connect := func() (Channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("events: dial amqp: %w", err)
		}
		channel, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("events: open channel: %w", err)
		}
		if err := declare(channel, queue); err != nil {
			_ = channel.Close()
			_ = conn.Close()
			return nil, nil, err
		}
		return channel, conn, nil
	}
	channel, conn, err := connect()
	if err != nil {
		return nil, err
	}
	return newPublisher(channel, conn, connect, queue, logger, defaultBufferSize, defaultRedialInterval), nil
}

// NewAMQPPublisher declares the queue on an already open channel. The publisher does not redial.
func NewAMQPPublisher(channel Channel, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	if channel == nil {
		return nil, fmt.Errorf("events: channel is required")
	}
	if queue == "" {
		queue = DefaultQueue
	}
	if err := declare(channel, queue); err != nil {
		return nil, err
	}
	return newPublisher(channel, nil, nil, queue, logger, defaultBufferSize, defaultRedialInterval), nil
}

func declare(channel Channel, queue string) error {
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("events: declare queue %s: %w", queue, err)
	}
	return nil
}

func newPublisher(channel Channel, conn io.Closer, connect connector, queue string, logger *zap.Logger, bufferSize int, redialInterval time.Duration) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := &AMQPPublisher{
		queue:          queue,
		logger:         logger,
		connect:        connect,
		redialInterval: redialInterval,
		events:         make(chan reactions.Event, bufferSize),
		done:           make(chan struct{}),
		channel:        channel,
		conn:           conn,
	}
	publisher.wg.Add(1)
	go publisher.run()
	return publisher
}

// PublishReaction implements reactions.EventPublisher. It never blocks the toggle.
func (p *AMQPPublisher) PublishReaction(_ context.Context, event reactions.Event) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.events <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close publishes what is still buffered, then releases the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	return p.closeErr
}

func (p *AMQPPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.events:
			p.deliver(event)
		case <-p.done:
			for {
				select {
				case event := <-p.events:
					p.deliver(event)
				default:
					p.closeErr = p.release()
					return
				}
			}
		}
	}
}

func (p *AMQPPublisher) deliver(event reactions.Event) {
	if p.channel == nil && !p.redial() {
		p.logger.Warn("reaction event dropped, broker unavailable",
			zap.String("subject_kind", event.Kind.String()),
			zap.String("subject_id", event.SubjectID))
		return
	}
	err := p.publish(event)
	if err == nil {
		return
	}
	p.logger.Warn("reaction event publish failed", zap.String("queue", p.queue), zap.Error(err))
	if p.connect == nil {
		return
	}
	if releaseErr := p.release(); releaseErr != nil {
		p.logger.Debug("amqp release after failure", zap.Error(releaseErr))
	}
	if !p.redial() {
		return
	}
	if err := p.publish(event); err != nil {
		p.logger.Warn("reaction event publish failed after redial", zap.String("queue", p.queue), zap.Error(err))
		_ = p.release()
	}
}

func (p *AMQPPublisher) publish(event reactions.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encode reaction: %w", err)
	}
	err = p.channel.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         "reaction." + string(event.Outcome),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events: publish reaction: %w", err)
	}
	p.logger.Debug("reaction event published",
		zap.String("queue", p.queue),
		zap.String("subject_kind", event.Kind.String()),
		zap.String("subject_id", event.SubjectID))
	return nil
}

// redial reconnects at most once per redial interval.
func (p *AMQPPublisher) redial() bool {
	if p.connect == nil {
		return false
	}
	now := time.Now()
	if !p.lastDial.IsZero() && now.Sub(p.lastDial) < p.redialInterval {
		return false
	}
	p.lastDial = now
	channel, conn, err := p.connect()
	if err != nil {
		p.logger.Warn("amqp redial failed", zap.Error(err))
		return false
	}
	p.channel, p.conn = channel, conn
	p.logger.Info("amqp connection restored", zap.String("queue", p.queue))
	return true
}

func (p *AMQPPublisher) release() error {
	var err error
	if p.channel != nil {
		err = p.channel.Close()
	}
	if p.conn != nil {
		if closeErr := p.conn.Close(); err == nil {
			err = closeErr
		}
	}
	p.channel, p.conn = nil, nil
	return err
}
