package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mustx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded default configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlain("Every value can be overridden with MUSTX_* environment variables or a .env file.\n")
	return nil
}

// SetupDatabase initializes the snapshot database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenMigratedDatabase(ctx, r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	version, err := shared.MigrationVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
	return nil
}
