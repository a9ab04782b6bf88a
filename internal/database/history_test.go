package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/pseudokit/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error when database does not exist")
		}
	})

	t.Run("reopening keeps existing data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := db.PutArtifact(context.Background(), "ns", "a", []byte("x")); err != nil {
			t.Fatalf("failed to put artifact: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()
		got, err := db.GetArtifact(context.Background(), "ns", "a")
		if err != nil {
			t.Fatalf("failed to get artifact: %v", err)
		}
		if string(got) != "x" {
			t.Errorf("expected 'x', got %q", got)
		}
	})
}

func TestRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	first := model.NewRun("customers", model.ModePseudonymize)
	first.Strategy = "counter"
	first.StartedAt = time.Now().Add(-time.Hour)
	first.AddColumn(model.ColumnSummary{Name: "name", Tag: "Index_name", Records: 3})
	first.Finish(nil)

	second := model.NewRun("notes", model.ModeText)
	second.Finish(errors.New("empty dataset"))

	for _, r := range []*model.Run{first, second} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	t.Run("get returns the stored run", func(t *testing.T) {
		got, err := db.GetRun(ctx, first.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Job != "customers" || got.TotalRecords() != 3 {
			t.Errorf("unexpected run: %+v", got)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		if _, err := db.GetRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list is newest first", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != second.ID {
			t.Errorf("expected newest run first, got %s", runs[0].Job)
		}
		if runs[0].Succeeded || !runs[1].Succeeded {
			t.Error("expected success flags to be stored")
		}
		if runs[1].StartedAt.IsZero() {
			t.Error("expected timestamp to be parsed")
		}
	})

	t.Run("list filters by job and limit", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, "customers", 1)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].Records != 3 {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})
}

func TestArtifacts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	if err := db.PutArtifact(ctx, "out", "secure_key_name.txt", []byte("old")); err != nil {
		t.Fatalf("failed to put artifact: %v", err)
	}
	if err := db.PutArtifact(ctx, "out", "secure_key_name.txt", []byte("new")); err != nil {
		t.Fatalf("failed to overwrite artifact: %v", err)
	}
	if err := db.PutArtifact(ctx, "other", "mapping_output_name.csv", []byte("m")); err != nil {
		t.Fatalf("failed to put artifact: %v", err)
	}

	got, err := db.GetArtifact(ctx, "out", "secure_key_name.txt")
	if err != nil {
		t.Fatalf("failed to get artifact: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected overwritten value, got %q", got)
	}

	if _, err := db.GetArtifact(ctx, "out", "mapping_output_name.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected namespaces to be isolated, got %v", err)
	}

	names, err := db.ListArtifacts(ctx, "out")
	if err != nil {
		t.Fatalf("failed to list artifacts: %v", err)
	}
	if len(names) != 1 || names[0] != "secure_key_name.txt" {
		t.Errorf("unexpected artifact names: %v", names)
	}
}
