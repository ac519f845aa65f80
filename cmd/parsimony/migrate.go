package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/calliehart/parsimony/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("seed", false, "install default patterns after migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetBool("seed")

	dbPath, err := databasePath()
	if err != nil {
		return err
	}

	slog.Info("Running database migrations", "database", dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("Database migrations completed", "version", storage.ExpectedSchemaVersion)

	if seed {
		count, err := store.SeedDefaultTemplates(ctx)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		slog.Info("Seeded default patterns", "installed", count)
	}

	return nil
}
