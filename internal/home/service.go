// Package home assembles the landing page: hero content plus the newest posts and projects.
package home

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jasurdev/portfolio-api/internal/cache"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/serviceerr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// LatestLimit is the number of posts and projects shown on the landing page.
const LatestLimit = 3

const (
	snapshotCacheKey = "portfolio:home:snapshot"
	maxHeroText      = 500
	maxHeroImage     = 500
)

var (
	// ErrInvalidInput indicates the hero content failed validation.
	ErrInvalidInput    = errors.New("home: invalid input")
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "home.service.new"
	opSnapshot   = "home.snapshot"
	opUpsert     = "home.upsert"
)

// Content is the landing page hero block.
type Content struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	HeroImage string    `gorm:"column:hero_image;size:500;not null;default:''"`
	HeroText  *string   `gorm:"column:hero_text;size:500"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Content) TableName() string {
	return "home_contents"
}

// Snapshot is everything the landing page renders.
type Snapshot struct {
	Home         *Content
	LastPosts    []posts.Detail
	LastProjects []projects.Detail
}

type Input struct {
	HeroImage *string
	HeroText  *string
}

type PostSource interface {
	Latest(ctx context.Context, limit int) ([]posts.Detail, error)
}

type ProjectSource interface {
	Latest(ctx context.Context, limit int) ([]projects.Detail, error)
}

type ServiceConfig struct {
	Database *gorm.DB
	Posts    PostSource
	Projects ProjectSource
	Cache    cache.Store
	CacheTTL time.Duration
	Clock    func() time.Time
	Logger   *zap.Logger
}

type Service struct {
	db       *gorm.DB
	posts    PostSource
	projects ProjectSource
	cache    cache.Store
	cacheTTL time.Duration
	clock    func() time.Time
	logger   *zap.Logger

	// generation counts invalidations; a snapshot loaded across one is not cached.
	generation atomic.Uint64
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	store := cfg.Cache
	if store == nil {
		store = cache.Nop{}
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
		posts:    cfg.Posts,
		projects: cfg.Projects,
		cache:    store,
		cacheTTL: cfg.CacheTTL,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Snapshot returns the landing page data, served from cache when possible.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if cached, ok := s.cachedSnapshot(ctx); ok {
		return cached, nil
	}

	generation := s.generation.Load()
	snapshot := Snapshot{LastPosts: []posts.Detail{}, LastProjects: []projects.Detail{}}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		content, err := s.content(groupCtx)
		if err != nil {
			return fmt.Errorf("load hero content: %w", err)
		}
		snapshot.Home = content
		return nil
	})
	if s.posts != nil {
		group.Go(func() error {
			latest, err := s.posts.Latest(groupCtx, LatestLimit)
			if err != nil {
				return fmt.Errorf("load latest posts: %w", err)
			}
			snapshot.LastPosts = latest
			return nil
		})
	}
	if s.projects != nil {
		group.Go(func() error {
			latest, err := s.projects.Latest(groupCtx, LatestLimit)
			if err != nil {
				return fmt.Errorf("load latest projects: %w", err)
			}
			snapshot.LastProjects = latest
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.logError(opSnapshot, "load_failed", err)
		return Snapshot{}, serviceerr.New(opSnapshot, "load_failed", err)
	}

	s.storeSnapshot(ctx, snapshot, generation)
	return snapshot, nil
}

// Upsert updates the first hero block, creating it when none exists.
func (s *Service) Upsert(ctx context.Context, input Input) (Content, error) {
	if input.HeroText != nil && len(*input.HeroText) > maxHeroText {
		return Content{}, serviceerr.New(opUpsert, "invalid_input", fmt.Errorf("%w: hero_text exceeds %d characters", ErrInvalidInput, maxHeroText))
	}
	if input.HeroImage != nil && len(strings.TrimSpace(*input.HeroImage)) > maxHeroImage {
		return Content{}, serviceerr.New(opUpsert, "invalid_input", fmt.Errorf("%w: hero_image exceeds %d characters", ErrInvalidInput, maxHeroImage))
	}

	var saved Content
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Order("id ASC").Take(&saved).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if input.HeroImage != nil {
			saved.HeroImage = strings.TrimSpace(*input.HeroImage)
		}
		if input.HeroText != nil {
			text := *input.HeroText
			saved.HeroText = &text
			if strings.TrimSpace(text) == "" {
				saved.HeroText = nil
			}
		}
		saved.UpdatedAt = s.clock().UTC()
		return tx.Save(&saved).Error
	})
	if txErr != nil {
		s.logError(opUpsert, "save_failed", txErr)
		return Content{}, serviceerr.New(opUpsert, "save_failed", txErr)
	}
	s.Invalidate(ctx)
	return saved, nil
}

// Invalidate drops the cached snapshot. Failures are logged only.
func (s *Service) Invalidate(ctx context.Context) {
	s.generation.Add(1)
	if err := s.cache.Delete(ctx, snapshotCacheKey); err != nil {
		s.logger.Warn("home cache invalidation failed", zap.Error(err))
	}
}

// PublishReaction invalidates the snapshot so like counts stay current.
func (s *Service) PublishReaction(ctx context.Context, _ reactions.Event) error {
	s.Invalidate(ctx)
	return nil
}

func (s *Service) content(ctx context.Context) (*Content, error) {
	var content Content
	err := s.db.WithContext(ctx).Order("id ASC").Take(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (s *Service) cachedSnapshot(ctx context.Context) (Snapshot, bool) {
	if s.cacheTTL <= 0 {
		return Snapshot{}, false
	}
	payload, found, err := s.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		s.logger.Warn("home cache read failed", zap.Error(err))
		return Snapshot{}, false
	}
	if !found {
		return Snapshot{}, false
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		s.logger.Warn("home cache payload discarded", zap.Error(err))
		return Snapshot{}, false
	}
	return snapshot, true
}

// storeSnapshot caches a snapshot loaded at the given generation. An invalidation
// that raced the write deletes the entry again.
func (s *Service) storeSnapshot(ctx context.Context, snapshot Snapshot, generation uint64) {
	if s.cacheTTL <= 0 || s.generation.Load() != generation {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("home cache encode failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, snapshotCacheKey, payload, s.cacheTTL); err != nil {
		s.logger.Warn("home cache write failed", zap.Error(err))
		return
	}
	if s.generation.Load() != generation {
		if err := s.cache.Delete(ctx, snapshotCacheKey); err != nil {
			s.logger.Warn("home cache invalidation failed", zap.Error(err))
		}
	}
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
	s.logger.Error("home service error", attrs...)
}
