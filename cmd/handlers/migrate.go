package handlers

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"newslens/internal/config"
	"newslens/internal/logger"
	"newslens/internal/persistence"
)

// NewMigrateCmd creates the schema migration command. Unlike the other
// commands it talks to postgres directly so a broken pipeline config
// cannot block a schema rollout.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger.Init(logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console})

			if cfg.Storage.PostgresDSN == "" {
				return errors.New("storage.postgres_dsn is not configured")
			}
			db, err := persistence.Open(cfg.Storage.PostgresDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
