package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLength = 50

var (
	// ErrDuplicateTag indicates a tag with the same name already exists.
	ErrDuplicateTag = errors.New("tags: duplicate name")
	// ErrInvalidName indicates an empty or oversized tag name.
	ErrInvalidName = errors.New("tags: invalid name")
	// ErrUnknownTag indicates one of the requested tag ids does not exist.
	ErrUnknownTag = errors.New("tags: unknown tag")
	noOpLogger    = zap.NewNop()
)

const (
	opList   = "tags.list"
	opCreate = "tags.create"
	opFind   = "tags.find"
)

// Tag labels posts and projects.
type Tag struct {
	ID   uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;size:50;not null;uniqueIndex:idx_tags_name" json:"name"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("tags: database connection required")
	}
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: db, logger: logger}, nil
}

// List returns every tag ordered by name.
func (s *Service) List(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	return tags, nil
}

func (s *Service) Create(ctx context.Context, name string) (Tag, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > maxNameLength {
		return Tag{}, serviceerr.New(opCreate, "invalid_name", ErrInvalidName)
	}
	tag := Tag{Name: trimmed}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return Tag{}, serviceerr.New(opCreate, "duplicate", ErrDuplicateTag)
		}
		s.logError(opCreate, "insert_failed", err, zap.String("name", trimmed))
		return Tag{}, serviceerr.New(opCreate, "insert_failed", err)
	}
	return tag, nil
}

// FindByIDs loads the tags with the given ids. Every id must exist.
func (s *Service) FindByIDs(ctx context.Context, ids []uint64) ([]Tag, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return []Tag{}, nil
	}
	var tags []Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", unique).Order("name ASC").Find(&tags).Error; err != nil {
		s.logError(opFind, "query_failed", err)
		return nil, serviceerr.New(opFind, "query_failed", err)
	}
	if len(tags) != len(unique) {
		return nil, serviceerr.New(opFind, "unknown_tag", ErrUnknownTag)
	}
	return tags, nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	unique := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("tags service error", attrs...)
}
