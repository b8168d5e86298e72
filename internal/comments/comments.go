package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxContentLength = 5000

var (
	// ErrSubjectNotFound indicates the commented post or project does not exist.
	ErrSubjectNotFound = errors.New("comments: subject not found")
	// ErrInvalidContent indicates an empty or oversized comment body.
	ErrInvalidContent = errors.New("comments: invalid content")
	noOpLogger        = zap.NewNop()
)

const (
	opAdd  = "comments.add"
	opList = "comments.list"
)

// Comment is an anonymous text comment attached to a subject.
type Comment struct {
	ID          uint64       `gorm:"column:id;primaryKey;autoIncrement"`
	SubjectKind subject.Kind `gorm:"column:subject_kind;size:16;not null;index:idx_comments_subject,priority:1"`
	SubjectID   string       `gorm:"column:subject_id;size:190;not null;index:idx_comments_subject,priority:2"`
	Content     string       `gorm:"column:content;type:text;not null"`
	CreatedAt   time.Time    `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}

type Config struct {
	Database *gorm.DB
	Kind     subject.Kind
	Subjects subject.Finder
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores comments for one subject kind.
type Service struct {
	db       *gorm.DB
	kind     subject.Kind
	subjects subject.Finder
	clock    func() time.Time
	logger   *zap.Logger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("comments: database connection required")
	}
	if !cfg.Kind.Valid() {
		return nil, fmt.Errorf("comments: unknown subject kind %q", cfg.Kind)
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
		db:       cfg.Database,
		kind:     cfg.Kind,
		subjects: cfg.Subjects,
		clock:    clock,
		logger:   logger,
	}, nil
}

// WithTx returns a copy bound to the supplied transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	copied := *s
	copied.db = tx
	return &copied
}

// Add stores a new comment after confirming the subject exists.
func (s *Service) Add(ctx context.Context, subjectID, content string) (Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || len(trimmed) > maxContentLength {
		return Comment{}, serviceerr.New(opAdd, "invalid_content", ErrInvalidContent)
	}
	if s.subjects != nil {
		exists, err := s.subjects.Exists(ctx, subjectID)
		if err != nil {
			s.logError(opAdd, "subject_lookup_failed", err, zap.String("subject_id", subjectID))
			return Comment{}, serviceerr.New(opAdd, "subject_lookup_failed", err)
		}
		if !exists {
			return Comment{}, serviceerr.New(opAdd, "subject_not_found", ErrSubjectNotFound)
		}
	}

	comment := Comment{
		SubjectKind: s.kind,
		SubjectID:   subjectID,
		Content:     trimmed,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		s.logError(opAdd, "insert_failed", err, zap.String("subject_id", subjectID))
		return Comment{}, serviceerr.New(opAdd, "insert_failed", err)
	}
	return comment, nil
}

// ListBySubjects returns comments grouped by subject id, oldest first.
func (s *Service) ListBySubjects(ctx context.Context, subjectIDs []string) (map[string][]Comment, error) {
	grouped := make(map[string][]Comment, len(subjectIDs))
	if len(subjectIDs) == 0 {
		return grouped, nil
	}
	var rows []Comment
	err := s.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id IN ?", s.kind, subjectIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		s.logError(opList, "query_failed", err)
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	for _, row := range rows {
		grouped[row.SubjectID] = append(grouped[row.SubjectID], row)
	}
	return grouped, nil
}

// DeleteBySubject removes every comment attached to the subject.
func (s *Service) DeleteBySubject(ctx context.Context, subjectID string) error {
	return s.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ?", s.kind, subjectID).
		Delete(&Comment{}).Error
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
	s.logger.Error("comments service error", attrs...)
}
