package server

import (
	"context"
	"sync"

	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/subject"
)

const (
	RealtimeEventReactionChanged = "reaction-changed"
	realtimeEventHeartbeat       = "heartbeat"
	realtimeBufferSize           = 16
)

// RealtimeDispatcher fans reaction events out to stream subscribers of one subject.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan reactions.Event
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  realtimeBufferSize,
	}
}

func subscriptionKey(kind subject.Kind, subjectID string) string {
	return string(kind) + ":" + subjectID
}

// Subscribe registers a stream for the subject until ctx is done or cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, kind subject.Kind, subjectID string) (<-chan reactions.Event, func()) {
	if !kind.Valid() || subjectID == "" {
		ch := make(chan reactions.Event)
		close(ch)
		return ch, func() {}
	}
	key := subscriptionKey(kind, subjectID)
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan reactions.Event, d.bufferSize),
	}
	d.registerSubscriber(key, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregisterSubscriber(key, subscriber.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// PublishReaction delivers the event to current subscribers; slow readers miss events.
func (d *RealtimeDispatcher) PublishReaction(_ context.Context, event reactions.Event) error {
	if event.SubjectID == "" {
		return nil
	}
	d.mu.RLock()
	subscribers := d.subscribers[subscriptionKey(event.Kind, event.SubjectID)]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return nil
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
	return nil
}

func (d *RealtimeDispatcher) subscriberCount(kind subject.Kind, subjectID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[subscriptionKey(kind, subjectID)])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(key string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[key]; !ok {
		d.subscribers[key] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[key][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(key string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[key]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, key)
		}
	}
	d.mu.Unlock()
}
