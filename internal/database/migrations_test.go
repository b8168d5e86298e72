package database

import (
	"path/filepath"
	"testing"

	"github.com/jasurdev/portfolio-api/internal/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMigrateSeedsAboutMeOnce(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	database, err := Open(DriverSQLite, databasePath, logger)
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := Migrate(database, logger); err != nil {
			testContext.Fatalf("migrate attempt %d failed: %v", attempt, err)
		}
	}

	var aboutRows int64
	if err := database.Model(&profile.AboutMe{}).Count(&aboutRows).Error; err != nil {
		testContext.Fatalf("failed to count about me rows: %v", err)
	}
	if aboutRows != 1 {
		testContext.Fatalf("expected seeded singleton, got %d rows", aboutRows)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationSeedAboutMe).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
	if logs.FilterMessage("database migration applied").Len() != 1 {
		testContext.Fatalf("expected migration to be applied exactly once")
	}
}

func TestOpenRejectsUnknownDriver(testContext *testing.T) {
	if _, err := Open("oracle", "dsn", nil); err == nil {
		testContext.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(DriverSQLite, " ", nil); err == nil {
		testContext.Fatalf("expected missing dsn error")
	}
}

func TestGormLoggerReportsFailedQueries(testContext *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	database, err := Open(DriverSQLite, filepath.Join(testContext.TempDir(), "log.db"), zap.New(core))
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	_ = database.Exec("SELECT * FROM missing_table").Error

	if logs.FilterMessage("sql query failed").Len() != 1 {
		testContext.Fatalf("expected failed query to be logged at error level")
	}
}
