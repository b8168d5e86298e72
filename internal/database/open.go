package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jasurdev/portfolio-api/internal/accounts"
	"github.com/jasurdev/portfolio-api/internal/comments"
	"github.com/jasurdev/portfolio-api/internal/home"
	"github.com/jasurdev/portfolio-api/internal/posts"
	"github.com/jasurdev/portfolio-api/internal/profile"
	"github.com/jasurdev/portfolio-api/internal/projects"
	"github.com/jasurdev/portfolio-api/internal/reactions"
	"github.com/jasurdev/portfolio-api/internal/tags"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Open connects to the configured database without touching the schema.
func Open(driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(logger),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if db.Dialector.Name() == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("database connected", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

// Migrate creates or updates every table and applies recorded data migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}

// Models lists every persisted type.
func Models() []interface{} {
	return []interface{}{
		&accounts.Account{},
		&tags.Tag{},
		&posts.Post{},
		&projects.Project{},
		&reactions.Reaction{},
		&comments.Comment{},
		&profile.AboutMe{},
		&profile.Skill{},
		&profile.Experience{},
		&profile.Certificate{},
		&home.Content{},
		&migrationRecord{},
	}
}
