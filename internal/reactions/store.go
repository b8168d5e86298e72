package reactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jasurdev/portfolio-api/internal/subject"
	"gorm.io/gorm"
)

// Store persists reactions for a single subject kind. Uniqueness of
// (subject, identity) must be enforced by the storage engine.
type Store interface {
	Find(ctx context.Context, subjectID, identity string) (Reaction, bool, error)
	Insert(ctx context.Context, subjectID, identity string) (Reaction, error)
	Delete(ctx context.Context, subjectID, identity string) (bool, error)
	Count(ctx context.Context, subjectID string) (int64, error)
}

// GormStore implements Store on top of the reactions table.
type GormStore struct {
	db    *gorm.DB
	kind  subject.Kind
	clock func() time.Time
}

// NewGormStore binds a store to one subject kind.
func NewGormStore(db *gorm.DB, kind subject.Kind, clock func() time.Time) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("reactions: database connection required")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("reactions: unknown subject kind %q", kind)
	}
	if clock == nil {
		clock = time.Now
	}
	return &GormStore{db: db, kind: kind, clock: clock}, nil
}

// WithTx returns a copy of the store bound to the supplied transaction.
func (s *GormStore) WithTx(tx *gorm.DB) *GormStore {
	return &GormStore{db: tx, kind: s.kind, clock: s.clock}
}

// Transaction runs fn with a store bound to one database transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx *gorm.DB, store Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, s.WithTx(tx))
	})
}

// Kind returns the subject kind the store is bound to.
func (s *GormStore) Kind() subject.Kind {
	return s.kind
}

func (s *GormStore) Find(ctx context.Context, subjectID, identity string) (Reaction, bool, error) {
	var reaction Reaction
	err := s.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ? AND ip_address = ?", s.kind, subjectID, identity).
		Take(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Reaction{}, false, nil
	}
	if err != nil {
		return Reaction{}, false, err
	}
	return reaction, true, nil
}

func (s *GormStore) Insert(ctx context.Context, subjectID, identity string) (Reaction, error) {
	reaction := Reaction{
		SubjectKind: s.kind,
		SubjectID:   subjectID,
		Identity:    identity,
		CreatedAt:   s.clock().UTC(),
	}
	// The savepoint keeps an enclosing transaction usable after a duplicate key.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&reaction).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Reaction{}, fmt.Errorf("%w: %v", ErrUniquenessViolation, err)
		}
		return Reaction{}, err
	}
	return reaction, nil
}

func (s *GormStore) Delete(ctx context.Context, subjectID, identity string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ? AND ip_address = ?", s.kind, subjectID, identity).
		Delete(&Reaction{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) Count(ctx context.Context, subjectID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Reaction{}).
		Where("subject_kind = ? AND subject_id = ?", s.kind, subjectID).
		Count(&count).Error
	return count, err
}

type subjectCount struct {
	SubjectID string
	Total     int64
}

// CountBySubjects returns like counts keyed by subject id. Subjects without likes are absent.
func (s *GormStore) CountBySubjects(ctx context.Context, subjectIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(subjectIDs))
	if len(subjectIDs) == 0 {
		return counts, nil
	}
	var rows []subjectCount
	err := s.db.WithContext(ctx).
		Model(&Reaction{}).
		Select("subject_id, COUNT(*) AS total").
		Where("subject_kind = ? AND subject_id IN ?", s.kind, subjectIDs).
		Group("subject_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SubjectID] = row.Total
	}
	return counts, nil
}

// DeleteBySubject removes every reaction attached to the subject.
func (s *GormStore) DeleteBySubject(ctx context.Context, subjectID string) error {
	return s.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ?", s.kind, subjectID).
		Delete(&Reaction{}).Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "duplicate entry")
}
