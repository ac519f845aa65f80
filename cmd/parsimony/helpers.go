package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/calliehart/parsimony/internal/pattern"
	"github.com/calliehart/parsimony/internal/storage"
)

// databasePath resolves the configured database location, defaulting to
// ~/.local/share/parsimony/parsimony.db.
func databasePath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return expandPath(dbPath), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "parsimony", "parsimony.db"), nil
}

// expandPath expands a leading ~ and $VAR environment references in a
// configured path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	return os.ExpandEnv(path)
}

// openStorage opens and migrates the template database.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// openPatternStore opens storage and loads the compiled pattern index.
func openPatternStore(ctx context.Context) (*pattern.Store, *storage.SQLiteStorage, error) {
	backing, err := openStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	store := pattern.NewStore(backing)
	if err := store.Refresh(ctx); err != nil {
		_ = backing.Close()
		return nil, nil, err
	}

	return store, backing, nil
}
