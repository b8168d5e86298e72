package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/ids"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "posts.service.new"
	opList       = "posts.list"
	opGet        = "posts.get"
	opCreate     = "posts.create"
	opUpdate     = "posts.update"
	opDelete     = "posts.delete"
	opComment    = "posts.comment"
)

type ServiceConfig struct {
	Database   *gorm.DB
	Tags       *tags.Service
	Reactions  *reactions.GormStore
	Comments   *comments.Service
	IDProvider ids.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service manages blog posts and attaches their likes and comments.
type Service struct {
	db         *gorm.DB
	tags       *tags.Service
	reactions  *reactions.GormStore
	comments   *comments.Service
	idProvider ids.Provider
	clock      func() time.Time
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, serviceerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
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
		db:         cfg.Database,
		tags:       cfg.Tags,
		reactions:  cfg.Reactions,
		comments:   cfg.Comments,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Exists reports whether a post with the id is stored.
func (s *Service) Exists(ctx context.Context, postID string) (bool, error) {
	if !ids.Valid(postID) {
		return false, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LockShared re-checks the post inside tx and share-locks its row until tx ends.
func (s *Service) LockShared(ctx context.Context, tx *gorm.DB, postID string) (bool, error) {
	if !ids.Valid(postID) {
		return false, nil
	}
	var found []string
	err := tx.WithContext(ctx).
		Model(&Post{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ?", postID).
		Pluck("id", &found).Error
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// List returns every post, newest first.
func (s *Service) List(ctx context.Context) ([]Detail, error) {
	return s.list(ctx, 0)
}

// Latest returns at most limit posts, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]Detail, error) {
	if limit <= 0 {
		return []Detail{}, nil
	}
	return s.list(ctx, limit)
}

func (s *Service) list(ctx context.Context, limit int) ([]Detail, error) {
	query := s.db.WithContext(ctx).
		Preload("Tags", orderTags).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []Post
	if err := query.Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	details, err := s.enrich(ctx, rows)
	if err != nil {
		s.logError(opList, "enrich_failed", err)
		return nil, serviceerr.New(opList, "enrich_failed", err)
	}
	return details, nil
}

func (s *Service) Get(ctx context.Context, postID string) (Detail, error) {
	post, err := s.load(ctx, s.db, postID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Detail{}, serviceerr.New(opGet, "not_found", err)
		}
		s.logError(opGet, "query_failed", err, zap.String("post_id", postID))
		return Detail{}, serviceerr.New(opGet, "query_failed", err)
	}
	details, err := s.enrich(ctx, []Post{post})
	if err != nil {
		s.logError(opGet, "enrich_failed", err, zap.String("post_id", postID))
		return Detail{}, serviceerr.New(opGet, "enrich_failed", err)
	}
	return details[0], nil
}

func (s *Service) Create(ctx context.Context, input Input) (Detail, error) {
	patch := input.Full()
	if err := validate(patch); err != nil {
		return Detail{}, serviceerr.New(opCreate, "invalid_input", err)
	}
	postTags, err := s.resolveTags(ctx, *patch.TagIDs)
	if err != nil {
		return Detail{}, serviceerr.New(opCreate, "invalid_tags", err)
	}
	postID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Detail{}, serviceerr.New(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	post := Post{
		ID:        postID,
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		Image:     strings.TrimSpace(input.Image),
		Tags:      postTags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Omit("Tags.*").Create(&post).Error; err != nil {
		s.logError(opCreate, "insert_failed", err)
		return Detail{}, serviceerr.New(opCreate, "insert_failed", err)
	}
	return Detail{Post: post, Comments: []comments.Comment{}}, nil
}

// Update applies the non-nil fields of patch to the post.
func (s *Service) Update(ctx context.Context, postID string, patch Patch) (Detail, error) {
	if err := validate(patch); err != nil {
		return Detail{}, serviceerr.New(opUpdate, "invalid_input", err)
	}
	var replacementTags []tags.Tag
	if patch.TagIDs != nil {
		resolved, err := s.resolveTags(ctx, *patch.TagIDs)
		if err != nil {
			return Detail{}, serviceerr.New(opUpdate, "invalid_tags", err)
		}
		replacementTags = resolved
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.load(ctx, tx, postID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": s.clock().UTC()}
		if patch.Title != nil {
			updates["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Content != nil {
			updates["content"] = *patch.Content
		}
		if patch.Image != nil {
			updates["image"] = strings.TrimSpace(*patch.Image)
		}
		if err := tx.Model(&Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		if patch.TagIDs != nil {
			if err := tx.Model(&post).Association("Tags").Replace(replacementTags); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) {
			return Detail{}, serviceerr.New(opUpdate, "not_found", txErr)
		}
		s.logError(opUpdate, "transaction_failed", txErr, zap.String("post_id", postID))
		return Detail{}, serviceerr.New(opUpdate, "transaction_failed", txErr)
	}
	return s.Get(ctx, postID)
}

// Delete removes the post along with its likes, comments and tag links.
func (s *Service) Delete(ctx context.Context, postID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.load(ctx, tx, postID)
		if err != nil {
			return err
		}
		// Waits for in-flight likes holding a share lock, so their rows are removed below.
		var locked []string
		if err := tx.Model(&Post{}).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", post.ID).Pluck("id", &locked).Error; err != nil {
			return err
		}
		if s.reactions != nil {
			if err := s.reactions.WithTx(tx).DeleteBySubject(ctx, post.ID); err != nil {
				return err
			}
		}
		if s.comments != nil {
			if err := s.comments.WithTx(tx).DeleteBySubject(ctx, post.ID); err != nil {
				return err
			}
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&Post{}, "id = ?", post.ID).Error
	})
	if txErr != nil {
		if errors.Is(txErr, ErrNotFound) {
			return serviceerr.New(opDelete, "not_found", txErr)
		}
		s.logError(opDelete, "transaction_failed", txErr, zap.String("post_id", postID))
		return serviceerr.New(opDelete, "transaction_failed", txErr)
	}
	return nil
}

// AddComment stores an anonymous comment on the post.
func (s *Service) AddComment(ctx context.Context, postID, content string) (comments.Comment, error) {
	if s.comments == nil {
		return comments.Comment{}, serviceerr.New(opComment, "comments_disabled", fmt.Errorf("posts: comment store is not configured"))
	}
	exists, err := s.Exists(ctx, postID)
	if err != nil {
		s.logError(opComment, "lookup_failed", err, zap.String("post_id", postID))
		return comments.Comment{}, serviceerr.New(opComment, "lookup_failed", err)
	}
	if !exists {
		return comments.Comment{}, serviceerr.New(opComment, "not_found", ErrNotFound)
	}
	return s.comments.Add(ctx, postID, content)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, postID string) (Post, error) {
	if !ids.Valid(postID) {
		return Post{}, ErrNotFound
	}
	var post Post
	err := db.WithContext(ctx).Preload("Tags", orderTags).Where("id = ?", postID).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}
	return post, nil
}

func (s *Service) resolveTags(ctx context.Context, tagIDs []uint64) ([]tags.Tag, error) {
	if len(tagIDs) == 0 {
		return []tags.Tag{}, nil
	}
	if s.tags == nil {
		return nil, tags.ErrUnknownTag
	}
	return s.tags.FindByIDs(ctx, tagIDs)
}

func (s *Service) enrich(ctx context.Context, rows []Post) ([]Detail, error) {
	details := make([]Detail, len(rows))
	postIDs := make([]string, len(rows))
	for index, row := range rows {
		postIDs[index] = row.ID
	}

	likes := map[string]int64{}
	if s.reactions != nil {
		counts, err := s.reactions.CountBySubjects(ctx, postIDs)
		if err != nil {
			return nil, err
		}
		likes = counts
	}
	grouped := map[string][]comments.Comment{}
	if s.comments != nil {
		listed, err := s.comments.ListBySubjects(ctx, postIDs)
		if err != nil {
			return nil, err
		}
		grouped = listed
	}

	for index, row := range rows {
		postComments := grouped[row.ID]
		if postComments == nil {
			postComments = []comments.Comment{}
		}
		if row.Tags == nil {
			row.Tags = []tags.Tag{}
		}
		details[index] = Detail{Post: row, LikesCount: likes[row.ID], Comments: postComments}
	}
	return details, nil
}

func validate(patch Patch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		if len(title) > maxTitleLength {
			return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLength)
		}
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if patch.Image != nil && len(strings.TrimSpace(*patch.Image)) > maxImageLength {
		return fmt.Errorf("%w: image exceeds %d characters", ErrInvalidInput, maxImageLength)
	}
	return nil
}

func orderTags(db *gorm.DB) *gorm.DB {
	return db.Order("name ASC")
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
	s.logger.Error("posts service error", attrs...)
}
