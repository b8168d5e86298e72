package projects

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/ids"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	db        *gorm.DB
	service   *Service
	tags      *tags.Service
	reactions *reactions.GormStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "projects.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&tags.Tag{}, &Project{}, &reactions.Reaction{}, &comments.Comment{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	tick := int64(1700000000)
	clock := func() time.Time {
		tick++
		return time.Unix(tick, 0)
	}
	tagService, _ := tags.NewService(db, nil)
	reactionStore, err := reactions.NewGormStore(db, subject.KindProject, clock)
	if err != nil {
		t.Fatalf("failed to build reaction store: %v", err)
	}
	commentService, err := comments.NewService(comments.Config{Database: db, Kind: subject.KindProject, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build comment service: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Tags:       tagService,
		Reactions:  reactionStore,
		Comments:   commentService,
		IDProvider: ids.NewUUIDProvider(),
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("failed to build project service: %v", err)
	}
	return fixture{db: db, service: service, tags: tagService, reactions: reactionStore}
}

func stringPointer(value string) *string {
	return &value
}

func TestCreateRecordsOwnerAndLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "admin", Input{
		Title:       "Portfolio API",
		Description: "Backend for the site",
		GithubLink:  stringPointer("https://github.com/example/portfolio"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Owner != "admin" {
		t.Fatalf("expected owner admin, got %q", created.Owner)
	}
	loaded, err := f.service.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.GithubLink == nil || *loaded.GithubLink != "https://github.com/example/portfolio" {
		t.Fatalf("unexpected github link: %v", loaded.GithubLink)
	}
	if loaded.LiveDemoLink != nil {
		t.Fatalf("expected empty live demo link to be stored as null")
	}
}

func TestPatchClearsLinkAndKeepsOtherFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "admin", Input{
		Title:        "Demo",
		Description:  "Live demo project",
		LiveDemoLink: stringPointer("https://demo.example.com"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := f.service.Update(ctx, created.ID, Patch{LiveDemoLink: stringPointer("")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.LiveDemoLink != nil {
		t.Fatalf("expected live demo link cleared, got %q", *updated.LiveDemoLink)
	}
	if updated.Title != "Demo" || updated.Description != "Live demo project" {
		t.Fatalf("unexpected fields after patch: %#v", updated.Project)
	}
}

func TestDeleteRemovesEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "admin", Input{Title: "Gone", Description: "soon"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.reactions.Insert(ctx, created.ID, "192.168.1.5"); err != nil {
		t.Fatalf("insert reaction failed: %v", err)
	}
	if _, err := f.service.AddComment(ctx, created.ID, "cool"); err != nil {
		t.Fatalf("comment failed: %v", err)
	}

	before, err := f.service.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if before.LikesCount != 1 || len(before.Comments) != 1 {
		t.Fatalf("expected engagement before delete, got %#v", before)
	}

	if err := f.service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	count, err := f.reactions.Count(ctx, created.ID)
	if err != nil || count != 0 {
		t.Fatalf("expected reactions removed, count=%d err=%v", count, err)
	}
	if err := f.service.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestLatestOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var createdIDs []string
	for _, title := range []string{"a", "b", "c", "d"} {
		created, err := f.service.Create(ctx, "admin", Input{Title: title, Description: title})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		createdIDs = append(createdIDs, created.ID)
	}

	latest, err := f.service.Latest(ctx, 3)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if len(latest) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(latest))
	}
	if latest[0].ID != createdIDs[3] || latest[2].ID != createdIDs[1] {
		t.Fatalf("unexpected order")
	}
}

type deletingFinder struct {
	*Service
}

func (f deletingFinder) Exists(ctx context.Context, projectID string) (bool, error) {
	if err := f.Service.Delete(ctx, projectID); err != nil {
		return false, err
	}
	return true, nil
}

func TestToggleOnProjectDeletedMidToggleWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "admin", Input{Title: "Racing", Description: "delete"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	likes, err := reactions.NewService(reactions.ServiceConfig{
		Kind:     subject.KindProject,
		Store:    f.reactions,
		Subjects: deletingFinder{Service: f.service},
	})
	if err != nil {
		t.Fatalf("failed to build reaction service: %v", err)
	}

	if _, err := likes.Toggle(ctx, created.ID, "192.168.1.5"); !errors.Is(err, reactions.ErrSubjectNotFound) {
		t.Fatalf("expected subject not found, got %v", err)
	}
	count, err := f.reactions.Count(ctx, created.ID)
	if err != nil || count != 0 {
		t.Fatalf("expected no orphan reaction, count=%d err=%v", count, err)
	}
}
