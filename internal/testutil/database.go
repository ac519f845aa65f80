// Package testutil provides shared helpers for tests that need a real
// template store.
package testutil

import (
	"context"
	"testing"

	"github.com/calliehart/parsimony/internal/model"
	"github.com/calliehart/parsimony/internal/storage"
)

// TestDB wraps an in-memory template store for tests.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database and registers cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCreateTemplate inserts a template or fails the test.
func (db *TestDB) MustCreateTemplate(tmpl *model.Template) int64 {
	db.t.Helper()

	if err := db.Storage.CreateTemplate(context.Background(), tmpl); err != nil {
		db.t.Fatalf("failed to create template: %v", err)
	}
	return tmpl.ID
}

// MustGetTemplate fetches a template by id or fails the test.
func (db *TestDB) MustGetTemplate(id int64) *model.Template {
	db.t.Helper()

	tmpl, err := db.Storage.GetTemplate(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to get template %d: %v", id, err)
	}
	return tmpl
}
