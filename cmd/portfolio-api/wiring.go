package main

import (
	"time"

	"github.com/jasurdev/portfolio-api/internal/accounts"
	"github.com/jasurdev/portfolio-api/internal/cache"
	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/ids"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serviceOptions struct {
	Logger     *zap.Logger
	Cache      cache.Store
	CacheTTL   time.Duration
	Publishers reactions.Publishers
}

type services struct {
	tags             *tags.Service
	posts            *posts.Service
	projects         *projects.Service
	postReactions    *reactions.Service
	projectReactions *reactions.Service
	profile          *profile.Service
	home             *home.Service
	accounts         *accounts.Service
}

// buildServices wires every domain service onto one database handle.
// The home service is appended to the publishers so reactions invalidate its cache.
func buildServices(db *gorm.DB, options serviceOptions) (*services, error) {
	logger := options.Logger
	clock := time.Now

	tagService, err := tags.NewService(db, logger.Named("tags"))
	if err != nil {
		return nil, err
	}
	postStore, err := reactions.NewGormStore(db, subject.KindPost, clock)
	if err != nil {
		return nil, err
	}
	projectStore, err := reactions.NewGormStore(db, subject.KindProject, clock)
	if err != nil {
		return nil, err
	}
	postComments, err := comments.NewService(comments.Config{Database: db, Kind: subject.KindPost, Clock: clock, Logger: logger.Named("comments")})
	if err != nil {
		return nil, err
	}
	projectComments, err := comments.NewService(comments.Config{Database: db, Kind: subject.KindProject, Clock: clock, Logger: logger.Named("comments")})
	if err != nil {
		return nil, err
	}

	postService, err := posts.NewService(posts.ServiceConfig{
		Database:   db,
		Tags:       tagService,
		Reactions:  postStore,
		Comments:   postComments,
		IDProvider: ids.NewUUIDProvider(),
		Clock:      clock,
		Logger:     logger.Named("posts"),
	})
	if err != nil {
		return nil, err
	}
	projectService, err := projects.NewService(projects.ServiceConfig{
		Database:   db,
		Tags:       tagService,
		Reactions:  projectStore,
		Comments:   projectComments,
		IDProvider: ids.NewUUIDProvider(),
		Clock:      clock,
		Logger:     logger.Named("projects"),
	})
	if err != nil {
		return nil, err
	}
	profileService, err := profile.NewService(profile.ServiceConfig{Database: db, Clock: clock, Logger: logger.Named("profile")})
	if err != nil {
		return nil, err
	}
	homeService, err := home.NewService(home.ServiceConfig{
		Database: db,
		Posts:    postService,
		Projects: projectService,
		Cache:    options.Cache,
		CacheTTL: options.CacheTTL,
		Clock:    clock,
		Logger:   logger.Named("home"),
	})
	if err != nil {
		return nil, err
	}

	publishers := append(reactions.Publishers{homeService}, options.Publishers...)
	postReactions, err := reactions.NewService(reactions.ServiceConfig{
		Kind:      subject.KindPost,
		Store:     postStore,
		Subjects:  postService,
		Publisher: publishers,
		Clock:     clock,
		Logger:    logger.Named("reactions"),
	})
	if err != nil {
		return nil, err
	}
	projectReactions, err := reactions.NewService(reactions.ServiceConfig{
		Kind:      subject.KindProject,
		Store:     projectStore,
		Subjects:  projectService,
		Publisher: publishers,
		Clock:     clock,
		Logger:    logger.Named("reactions"),
	})
	if err != nil {
		return nil, err
	}

	accountService, err := accounts.NewService(accounts.ServiceConfig{Database: db, Clock: clock, Logger: logger.Named("accounts")})
	if err != nil {
		return nil, err
	}

	return &services{
		tags:             tagService,
		posts:            postService,
		projects:         projectService,
		postReactions:    postReactions,
		projectReactions: projectReactions,
		profile:          profileService,
		home:             homeService,
		accounts:         accountService,
	}, nil
}
