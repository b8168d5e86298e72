package projects

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
	errCommentsDisabled  = errors.New("comment store is not configured")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "projects.service.new"
	opList       = "projects.list"
	opGet        = "projects.get"
	opCreate     = "projects.create"
	opUpdate     = "projects.update"
	opDelete     = "projects.delete"
	opComment    = "projects.comment"
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

// Service manages portfolio projects.
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

func (s *Service) Exists(ctx context.Context, projectID string) (bool, error) {
	if !ids.Valid(projectID) {
		return false, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LockShared re-checks the project inside tx and share-locks its row until tx ends.
func (s *Service) LockShared(ctx context.Context, tx *gorm.DB, projectID string) (bool, error) {
	if !ids.Valid(projectID) {
		return false, nil
	}
	var found []string
	err := tx.WithContext(ctx).
		Model(&Project{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ?", projectID).
		Pluck("id", &found).Error
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (s *Service) List(ctx context.Context) ([]Detail, error) {
	return s.list(ctx, 0)
}

// Latest returns at most limit projects, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]Detail, error) {
	if limit <= 0 {
		return []Detail{}, nil
	}
	return s.list(ctx, limit)
}

func (s *Service) list(ctx context.Context, limit int) ([]Detail, error) {
	query := s.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []Project
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

func (s *Service) Get(ctx context.Context, projectID string) (Detail, error) {
	project, err := s.load(ctx, s.db, projectID)
	if errors.Is(err, ErrNotFound) {
		return Detail{}, serviceerr.New(opGet, "not_found", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("project_id", projectID))
		return Detail{}, serviceerr.New(opGet, "query_failed", err)
	}
	details, err := s.enrich(ctx, []Project{project})
	if err != nil {
		s.logError(opGet, "enrich_failed", err, zap.String("project_id", projectID))
		return Detail{}, serviceerr.New(opGet, "enrich_failed", err)
	}
	return details[0], nil
}

// Create stores a new project owned by the given account.
func (s *Service) Create(ctx context.Context, owner string, input Input) (Detail, error) {
	patch := input.Full()
	if err := validate(patch); err != nil {
		return Detail{}, serviceerr.New(opCreate, "invalid_input", err)
	}
	trimmedOwner := strings.TrimSpace(owner)
	if len(trimmedOwner) > maxOwnerLength {
		return Detail{}, serviceerr.New(opCreate, "invalid_input", fmt.Errorf("%w: owner exceeds %d characters", ErrInvalidInput, maxOwnerLength))
	}
	projectTags, err := s.resolveTags(ctx, *patch.TagIDs)
	if err != nil {
		return Detail{}, serviceerr.New(opCreate, "invalid_tags", err)
	}
	projectID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Detail{}, serviceerr.New(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	project := Project{
		ID:           projectID,
		Title:        strings.TrimSpace(input.Title),
		Description:  input.Description,
		Image:        strings.TrimSpace(input.Image),
		GithubLink:   optionalLink(patch.GithubLink),
		LiveDemoLink: optionalLink(patch.LiveDemoLink),
		Owner:        trimmedOwner,
		Tags:         projectTags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Omit("Tags.*").Create(&project).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("owner", trimmedOwner))
		return Detail{}, serviceerr.New(opCreate, "insert_failed", err)
	}
	return Detail{Project: project, Comments: []comments.Comment{}}, nil
}

func (s *Service) Update(ctx context.Context, projectID string, patch Patch) (Detail, error) {
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
		project, err := s.load(ctx, tx, projectID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": s.clock().UTC()}
		if patch.Title != nil {
			updates["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Image != nil {
			updates["image"] = strings.TrimSpace(*patch.Image)
		}
		if patch.GithubLink != nil {
			updates["github_link"] = optionalLink(patch.GithubLink)
		}
		if patch.LiveDemoLink != nil {
			updates["live_demo_link"] = optionalLink(patch.LiveDemoLink)
		}
		if err := tx.Model(&Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
			return err
		}
		if patch.TagIDs != nil {
			return tx.Model(&project).Association("Tags").Replace(replacementTags)
		}
		return nil
	})
	if errors.Is(txErr, ErrNotFound) {
		return Detail{}, serviceerr.New(opUpdate, "not_found", txErr)
	}
	if txErr != nil {
		s.logError(opUpdate, "transaction_failed", txErr, zap.String("project_id", projectID))
		return Detail{}, serviceerr.New(opUpdate, "transaction_failed", txErr)
	}
	return s.Get(ctx, projectID)
}

// Delete removes the project along with its likes, comments and tag links.
func (s *Service) Delete(ctx context.Context, projectID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.load(ctx, tx, projectID)
		if err != nil {
			return err
		}
		// Waits for in-flight likes holding a share lock, so their rows are removed below.
		var locked []string
		if err := tx.Model(&Project{}).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", project.ID).Pluck("id", &locked).Error; err != nil {
			return err
		}
		if s.reactions != nil {
			if err := s.reactions.WithTx(tx).DeleteBySubject(ctx, project.ID); err != nil {
				return err
			}
		}
		if s.comments != nil {
			if err := s.comments.WithTx(tx).DeleteBySubject(ctx, project.ID); err != nil {
				return err
			}
		}
		if err := tx.Model(&project).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&Project{}, "id = ?", project.ID).Error
	})
	if errors.Is(txErr, ErrNotFound) {
		return serviceerr.New(opDelete, "not_found", txErr)
	}
	if txErr != nil {
		s.logError(opDelete, "transaction_failed", txErr, zap.String("project_id", projectID))
		return serviceerr.New(opDelete, "transaction_failed", txErr)
	}
	return nil
}

// AddComment stores an anonymous comment on the project.
func (s *Service) AddComment(ctx context.Context, projectID, content string) (comments.Comment, error) {
	if s.comments == nil {
		return comments.Comment{}, serviceerr.New(opComment, "comments_disabled", errCommentsDisabled)
	}
	exists, err := s.Exists(ctx, projectID)
	if err != nil {
		s.logError(opComment, "lookup_failed", err, zap.String("project_id", projectID))
		return comments.Comment{}, serviceerr.New(opComment, "lookup_failed", err)
	}
	if !exists {
		return comments.Comment{}, serviceerr.New(opComment, "not_found", ErrNotFound)
	}
	return s.comments.Add(ctx, projectID, content)
}

func (s *Service) load(ctx context.Context, db *gorm.DB, projectID string) (Project, error) {
	if !ids.Valid(projectID) {
		return Project{}, ErrNotFound
	}
	var project Project
	err := db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("id = ?", projectID).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Project{}, ErrNotFound
	}
	return project, err
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

func (s *Service) enrich(ctx context.Context, rows []Project) ([]Detail, error) {
	projectIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		projectIDs = append(projectIDs, row.ID)
	}

	likes := map[string]int64{}
	if s.reactions != nil {
		counts, err := s.reactions.CountBySubjects(ctx, projectIDs)
		if err != nil {
			return nil, err
		}
		likes = counts
	}
	grouped := map[string][]comments.Comment{}
	if s.comments != nil {
		listed, err := s.comments.ListBySubjects(ctx, projectIDs)
		if err != nil {
			return nil, err
		}
		grouped = listed
	}

	details := make([]Detail, 0, len(rows))
	for _, row := range rows {
		projectComments := grouped[row.ID]
		if projectComments == nil {
			projectComments = []comments.Comment{}
		}
		if row.Tags == nil {
			row.Tags = []tags.Tag{}
		}
		details = append(details, Detail{Project: row, LikesCount: likes[row.ID], Comments: projectComments})
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
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	for name, value := range map[string]*string{
		"image":          patch.Image,
		"github_link":    patch.GithubLink,
		"live_demo_link": patch.LiveDemoLink,
	} {
		if value != nil && len(*value) > maxLinkLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, name, maxLinkLength)
		}
	}
	return nil
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
	s.logger.Error("projects service error", attrs...)
}
