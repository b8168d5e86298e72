package main

import (
	"github.com/jasurdev/portfolio-api/internal/config"
	"github.com/jasurdev/portfolio-api/internal/database"
	"github.com/jasurdev/portfolio-api/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and apply data migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(db *gorm.DB, logger *zap.Logger) error {
				if err := database.Migrate(db, logger); err != nil {
					return err
				}
				logger.Info("database migrated")
				return nil
			})
		},
	}
}

// withDatabase opens the configured database for commands that do not need the full server config.
func withDatabase(run func(db *gorm.DB, logger *zap.Logger) error) error {
	driver, dsn, err := config.LoadDatabase(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(viper.GetString("log.level"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(driver, dsn, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return run(db, logger)
}
