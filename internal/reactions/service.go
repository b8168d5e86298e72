package reactions

import (
	"context"
	"errors"
	"time"

	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingStore    = errors.New("reaction store is required")
	errMissingSubjects = errors.New("subject finder is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "reactions.service.new"
	opToggle     = "reactions.toggle"
	opCount      = "reactions.count"
)

// EventPublisher receives toggle events after the store has been updated.
type EventPublisher interface {
	PublishReaction(ctx context.Context, event Event) error
}

// TxStore is a Store that can run a toggle inside one transaction.
type TxStore interface {
	Store
	Transaction(ctx context.Context, fn func(tx *gorm.DB, store Store) error) error
}

// SubjectLocker re-checks a subject inside a transaction and holds a share lock
// on its row until the transaction ends, so a concurrent delete waits for the toggle.
type SubjectLocker interface {
	LockShared(ctx context.Context, tx *gorm.DB, subjectID string) (bool, error)
}

type ServiceConfig struct {
	Kind      subject.Kind
	Store     Store
	Subjects  subject.Finder
	Publisher EventPublisher
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service flips anonymous likes on one subject kind.
type Service struct {
	kind      subject.Kind
	store     Store
	subjects  subject.Finder
	publisher EventPublisher
	clock     func() time.Time
	logger    *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, serviceerr.New(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.Subjects == nil {
		return nil, serviceerr.New(opServiceNew, "missing_subjects", errMissingSubjects)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		kind:      cfg.Kind,
		store:     cfg.Store,
		subjects:  cfg.Subjects,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Toggle creates the caller's reaction when absent and removes it when present.
// A concurrent insert that wins the unique index is resolved by re-reading once
// and treating the row as found.
func (s *Service) Toggle(ctx context.Context, subjectID, identity string) (Outcome, error) {
	if s.store == nil {
		return "", serviceerr.New(opToggle, "missing_store", errMissingStore)
	}
	if s.subjects == nil {
		return "", serviceerr.New(opToggle, "missing_subjects", errMissingSubjects)
	}

	exists, err := s.subjects.Exists(ctx, subjectID)
	if err != nil {
		s.logError(opToggle, "subject_lookup_failed", err, zap.String("subject_id", subjectID))
		return "", serviceerr.New(opToggle, "subject_lookup_failed", err)
	}
	if !exists {
		return "", serviceerr.New(opToggle, "subject_not_found", ErrSubjectNotFound)
	}

	outcome, err := s.guardedFlip(ctx, subjectID, identity)
	if err != nil {
		return "", err
	}
	s.publish(ctx, subjectID, outcome)
	return outcome, nil
}

// guardedFlip pins the subject row for the duration of the flip when both the
// store and the finder support it. Otherwise the flip runs directly on the store.
func (s *Service) guardedFlip(ctx context.Context, subjectID, identity string) (Outcome, error) {
	txStore, transactional := s.store.(TxStore)
	locker, lockable := s.subjects.(SubjectLocker)
	if !transactional || !lockable {
		return s.flip(ctx, s.store, subjectID, identity)
	}

	var outcome Outcome
	txErr := txStore.Transaction(ctx, func(tx *gorm.DB, store Store) error {
		exists, err := locker.LockShared(ctx, tx, subjectID)
		if err != nil {
			s.logError(opToggle, "subject_lock_failed", err, zap.String("subject_id", subjectID))
			return serviceerr.New(opToggle, "subject_lock_failed", err)
		}
		if !exists {
			return serviceerr.New(opToggle, "subject_not_found", ErrSubjectNotFound)
		}
		outcome, err = s.flip(ctx, store, subjectID, identity)
		return err
	})
	if txErr != nil {
		var serviceErr *serviceerr.Error
		if errors.As(txErr, &serviceErr) {
			return "", txErr
		}
		s.logError(opToggle, "transaction_failed", txErr, zap.String("subject_id", subjectID))
		return "", serviceerr.New(opToggle, "transaction_failed", txErr)
	}
	return outcome, nil
}

func (s *Service) flip(ctx context.Context, store Store, subjectID, identity string) (Outcome, error) {
	_, found, err := store.Find(ctx, subjectID, identity)
	if err != nil {
		s.logError(opToggle, "find_failed", err, zap.String("subject_id", subjectID))
		return "", serviceerr.New(opToggle, "find_failed", err)
	}
	if found {
		return s.remove(ctx, store, subjectID, identity)
	}

	_, err = store.Insert(ctx, subjectID, identity)
	if err == nil {
		return OutcomeLiked, nil
	}
	if !errors.Is(err, ErrUniquenessViolation) {
		s.logError(opToggle, "insert_failed", err, zap.String("subject_id", subjectID))
		return "", serviceerr.New(opToggle, "insert_failed", err)
	}

	s.logger.Debug("reaction insert lost race, re-reading",
		zap.String("subject_kind", s.kind.String()),
		zap.String("subject_id", subjectID))
	_, found, err = store.Find(ctx, subjectID, identity)
	if err != nil {
		s.logError(opToggle, "reread_failed", err, zap.String("subject_id", subjectID))
		return "", serviceerr.New(opToggle, "reread_failed", err)
	}
	if !found {
		return OutcomeRemoved, nil
	}
	return s.remove(ctx, store, subjectID, identity)
}

func (s *Service) remove(ctx context.Context, store Store, subjectID, identity string) (Outcome, error) {
	if _, err := store.Delete(ctx, subjectID, identity); err != nil {
		s.logError(opToggle, "delete_failed", err, zap.String("subject_id", subjectID))
		return "", serviceerr.New(opToggle, "delete_failed", err)
	}
	return OutcomeRemoved, nil
}

// Count returns the number of reactions currently stored for the subject.
func (s *Service) Count(ctx context.Context, subjectID string) (int64, error) {
	if s.store == nil {
		return 0, serviceerr.New(opCount, "missing_store", errMissingStore)
	}
	count, err := s.store.Count(ctx, subjectID)
	if err != nil {
		s.logError(opCount, "query_failed", err, zap.String("subject_id", subjectID))
		return 0, serviceerr.New(opCount, "query_failed", err)
	}
	return count, nil
}

func (s *Service) publish(ctx context.Context, subjectID string, outcome Outcome) {
	if s.publisher == nil {
		return
	}
	count, err := s.store.Count(ctx, subjectID)
	if err != nil {
		s.logger.Warn("reaction count for event failed", zap.String("subject_id", subjectID), zap.Error(err))
		return
	}
	event := Event{
		Kind:       s.kind,
		SubjectID:  subjectID,
		Outcome:    outcome,
		Count:      count,
		OccurredAt: s.clock().UTC(),
	}
	if err := s.publisher.PublishReaction(ctx, event); err != nil {
		s.logger.Warn("reaction event publish failed", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.String("subject_kind", s.kind.String()),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("reactions service error", attrs...)
}
