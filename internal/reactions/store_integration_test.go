package reactions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/jasurdev/portfolio-api/internal/subject"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "reactions.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
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
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&Reaction{}); err != nil {
		t.Fatalf("failed to migrate reactions: %v", err)
	}
	return db
}

func newStoreBackedService(t *testing.T, db *gorm.DB, kind subject.Kind, subjectIDs ...string) (*Service, *GormStore) {
	t.Helper()
	store, err := NewGormStore(db, kind, func() time.Time { return time.Unix(1700000000, 0) })
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	known := make(map[string]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		known[id] = true
	}
	service, err := NewService(ServiceConfig{
		Kind:     kind,
		Store:    store,
		Subjects: stubSubjects{known: known},
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, store
}

func mustToggle(t *testing.T, service *Service, subjectID, identity string) Outcome {
	t.Helper()
	outcome, err := service.Toggle(context.Background(), subjectID, identity)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	return outcome
}

func mustCount(t *testing.T, store *GormStore, subjectID string) int64 {
	t.Helper()
	count, err := store.Count(context.Background(), subjectID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestToggleScenarioLikeThenRemove(t *testing.T) {
	db := openTestDatabase(t)
	service, store := newStoreBackedService(t, db, subject.KindPost, "post-42")

	if outcome := mustToggle(t, service, "post-42", "10.0.0.1"); outcome != OutcomeLiked {
		t.Fatalf("expected first toggle to like, got %s", outcome)
	}
	if count := mustCount(t, store, "post-42"); count != 1 {
		t.Fatalf("expected 1 like, got %d", count)
	}

	if outcome := mustToggle(t, service, "post-42", "10.0.0.1"); outcome != OutcomeRemoved {
		t.Fatalf("expected second toggle to remove, got %s", outcome)
	}
	if count := mustCount(t, store, "post-42"); count != 0 {
		t.Fatalf("expected 0 likes, got %d", count)
	}
}

func TestToggleCountMatchesParityOfToggles(t *testing.T) {
	db := openTestDatabase(t)
	service, store := newStoreBackedService(t, db, subject.KindPost, "post-1")

	for toggles := 1; toggles <= 7; toggles++ {
		mustToggle(t, service, "post-1", "10.0.0.1")
		want := int64(toggles % 2)
		if count := mustCount(t, store, "post-1"); count != want {
			t.Fatalf("after %d toggles expected %d likes, got %d", toggles, want, count)
		}
	}
}

func TestToggleIdentitiesAreIsolated(t *testing.T) {
	db := openTestDatabase(t)
	service, store := newStoreBackedService(t, db, subject.KindPost, "post-42")
	ctx := context.Background()

	mustToggle(t, service, "post-42", "10.0.0.1")
	mustToggle(t, service, "post-42", "10.0.0.2")
	if count := mustCount(t, store, "post-42"); count != 2 {
		t.Fatalf("expected two distinct likes, got %d", count)
	}

	mustToggle(t, service, "post-42", "10.0.0.1")
	_, found, err := store.Find(ctx, "post-42", "10.0.0.2")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !found {
		t.Fatalf("unliking from one identity must not affect another")
	}
}

func TestToggleKindsDoNotShareRows(t *testing.T) {
	db := openTestDatabase(t)
	postService, postStore := newStoreBackedService(t, db, subject.KindPost, "shared-id")
	_, projectStore := newStoreBackedService(t, db, subject.KindProject, "shared-id")

	mustToggle(t, postService, "shared-id", "10.0.0.1")
	if count := mustCount(t, postStore, "shared-id"); count != 1 {
		t.Fatalf("expected post like, got %d", count)
	}
	if count := mustCount(t, projectStore, "shared-id"); count != 0 {
		t.Fatalf("expected project likes to stay empty, got %d", count)
	}
}

func TestToggleUnknownSubjectCreatesNoRow(t *testing.T) {
	db := openTestDatabase(t)
	service, store := newStoreBackedService(t, db, subject.KindPost, "post-42")

	_, err := service.Toggle(context.Background(), "does-not-exist", "10.0.0.1")
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var total int64
	if err := db.Model(&Reaction{}).Count(&total).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no rows, got %d", total)
	}
	if count := mustCount(t, store, "post-42"); count != 0 {
		t.Fatalf("expected real subject to be untouched, got %d", count)
	}
}

func TestStoreInsertRejectsDuplicate(t *testing.T) {
	db := openTestDatabase(t)
	_, store := newStoreBackedService(t, db, subject.KindPost, "post-42")
	ctx := context.Background()

	if _, err := store.Insert(ctx, "post-42", "10.0.0.1"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := store.Insert(ctx, "post-42", "10.0.0.1")
	if !errors.Is(err, ErrUniquenessViolation) {
		t.Fatalf("expected uniqueness violation, got %v", err)
	}
	removed, err := store.Delete(ctx, "post-42", "10.0.0.1")
	if err != nil || !removed {
		t.Fatalf("expected delete to remove the row, removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "post-42", "10.0.0.1")
	if err != nil || removed {
		t.Fatalf("expected second delete to report nothing removed, removed=%v err=%v", removed, err)
	}
}

func TestConcurrentTogglesNeverDuplicateRows(t *testing.T) {
	db := openTestDatabase(t)
	service, store := newStoreBackedService(t, db, subject.KindPost, "post-42")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Toggle(context.Background(), "post-42", "10.0.0.1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent toggle failed: %v", err)
	}

	if count := mustCount(t, store, "post-42"); count > 1 {
		t.Fatalf("expected at most one row for the identity, got %d", count)
	}
}

func TestConcurrentTogglesFromDistinctIdentitiesAllLand(t *testing.T) {
	db := openTestDatabase(t)
	service, store := newStoreBackedService(t, db, subject.KindProject, "project-1")

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if _, err := service.Toggle(context.Background(), "project-1", fmt.Sprintf("10.0.1.%d", index)); err != nil {
				t.Errorf("toggle %d failed: %v", index, err)
			}
		}(i)
	}
	wg.Wait()

	if count := mustCount(t, store, "project-1"); count != workers {
		t.Fatalf("expected %d likes, got %d", workers, count)
	}
}

func TestCountBySubjectsAndDeleteBySubject(t *testing.T) {
	db := openTestDatabase(t)
	_, store := newStoreBackedService(t, db, subject.KindPost)
	ctx := context.Background()

	for _, identity := range []string{"a", "b", "c"} {
		if _, err := store.Insert(ctx, "post-1", identity); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	if _, err := store.Insert(ctx, "post-2", "a"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	counts, err := store.CountBySubjects(ctx, []string{"post-1", "post-2", "post-3"})
	if err != nil {
		t.Fatalf("count by subjects failed: %v", err)
	}
	if counts["post-1"] != 3 || counts["post-2"] != 1 || counts["post-3"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	if err := store.DeleteBySubject(ctx, "post-1"); err != nil {
		t.Fatalf("delete by subject failed: %v", err)
	}
	if count := mustCount(t, store, "post-1"); count != 0 {
		t.Fatalf("expected cascade delete, got %d", count)
	}
	if count := mustCount(t, store, "post-2"); count != 1 {
		t.Fatalf("expected other subject untouched, got %d", count)
	}
}
