package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jasurdev/portfolio-api/internal/database"
	"github.com/jasurdev/portfolio-api/internal/home"
	"go.uber.org/zap"
)

func TestSeedPopulatesEverySection(t *testing.T) {
	logger := zap.NewNop()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "seed.db"), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(db, logger); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	counts := seedCounts{Tags: 3, Posts: 4, Projects: 2, Skills: 2}
	if err := seed(context.Background(), db, logger, counts); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	domain, err := buildServices(db, serviceOptions{Logger: logger})
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	ctx := context.Background()

	postList, err := domain.posts.List(ctx)
	if err != nil || len(postList) != counts.Posts {
		t.Fatalf("expected %d posts, got %d (%v)", counts.Posts, len(postList), err)
	}
	projectList, err := domain.projects.List(ctx)
	if err != nil || len(projectList) != counts.Projects {
		t.Fatalf("expected %d projects, got %d (%v)", counts.Projects, len(projectList), err)
	}
	experiences, err := domain.profile.Experiences(ctx)
	if err != nil || len(experiences) != 2 {
		t.Fatalf("expected two experiences, got %d (%v)", len(experiences), err)
	}
	if experiences[0].EndYear != nil {
		t.Fatalf("expected the current position first, got %#v", experiences[0])
	}

	snapshot, err := domain.home.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snapshot.Home == nil || snapshot.Home.HeroText == nil {
		t.Fatalf("expected hero content, got %#v", snapshot.Home)
	}
	if len(snapshot.LastPosts) != home.LatestLimit {
		t.Fatalf("expected %d latest posts, got %d", home.LatestLimit, len(snapshot.LastPosts))
	}
}

func TestPickTagsReturnsDistinctSubset(t *testing.T) {
	if picked := pickTags(nil); picked != nil {
		t.Fatalf("expected nil for no tags, got %v", picked)
	}
	picked := pickTags([]uint64{7, 8, 9})
	if len(picked) != 2 || picked[0] == picked[1] {
		t.Fatalf("expected two distinct tags, got %v", picked)
	}
}
