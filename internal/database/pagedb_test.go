package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/ragcrawler/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *PageDB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "ragcrawler.db"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// archiveRun stores pages as a finished run.
func archiveRun(t *testing.T, db *PageDB, startURL string, pages ...*model.Page) *Run {
	t.Helper()

	ctx := context.Background()
	run, err := db.BeginRun(ctx, startURL, "", "site")
	if err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}
	for _, p := range pages {
		if err := db.InsertPage(ctx, run.ID, p); err != nil {
			t.Fatalf("failed to insert page: %v", err)
		}
	}
	if err := db.FinishRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "newdir", "subdir", "archive.db")
		db, err := Open(dbPath, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %q, got %q", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(filepath.Join(t.TempDir(), "missing.db"), opts); err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "archive.db")
		db, err := Open(dbPath, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		run := archiveRun(t, db, "https://example.com/", &model.Page{Path: "https://example.com/", Text: "home"})
		_ = db.Close()

		reopened, err := Open(dbPath, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		got, err := reopened.GetRun(context.Background(), run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.PageCount != 1 {
			t.Errorf("expected 1 page, got %d", got.PageCount)
		}
	})
}

// TestRunLifecycle tests beginning, filling and finishing a run.
func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run, err := db.BeginRun(ctx, "https://github.com/o/r/tree/main/docs", "github-repo", "github-tree")
	if err != nil {
		t.Fatalf("failed to begin run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run ID")
	}

	started, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if started.Finished() {
		t.Error("expected run to be unfinished")
	}
	if started.Preset != "github-repo" || started.Source != "github-tree" {
		t.Errorf("unexpected run %+v", started)
	}
	if time.Since(started.StartedAt) > time.Minute {
		t.Errorf("unexpected start time %v", started.StartedAt)
	}

	pages := []*model.Page{
		{Path: "https://raw.githubusercontent.com/o/r/main/docs/a.md", Text: "# A"},
		{Path: "https://raw.githubusercontent.com/o/r/main/docs/b.md", Text: "# B"},
	}
	for _, p := range pages {
		if err := db.InsertPage(ctx, run.ID, p); err != nil {
			t.Fatalf("failed to insert page: %v", err)
		}
	}
	// Same path again replaces the stored text.
	if err := db.InsertPage(ctx, run.ID, &model.Page{Path: pages[0].Path, Text: "# A v2"}); err != nil {
		t.Fatalf("failed to upsert page: %v", err)
	}

	if err := db.FinishRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	finished, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if !finished.Finished() {
		t.Error("expected run to be finished")
	}
	if finished.PageCount != 2 {
		t.Errorf("expected 2 pages, got %d", finished.PageCount)
	}

	records, err := db.ListPages(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to list pages: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "# A v2" {
		t.Errorf("expected upserted text, got %q", records[0].Text)
	}
	if records[0].ContentHash != (&model.Page{Text: "# A v2"}).ContentHash() {
		t.Error("expected content hash to follow the text")
	}
	if records[1].ByteSize != len("# B") {
		t.Errorf("unexpected byte size %d", records[1].ByteSize)
	}
	if records[1].Page().Path != pages[1].Path {
		t.Errorf("unexpected page %+v", records[1].Page())
	}
}

// TestRunNotFound tests lookups of unknown runs.
func TestRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound from GetRun, got %v", err)
	}
	if err := db.FinishRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound from FinishRun, got %v", err)
	}
}

// TestListRuns tests run listing, filtering and limits.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first := archiveRun(t, db, "https://example.com/docs/")
	second := archiveRun(t, db, "https://other.example/")
	third := archiveRun(t, db, "https://example.com/docs/")

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		ids := make([]string, 0, len(runs))
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
		if !slices.Equal(ids, []string{third.ID, second.ID, first.ID}) {
			t.Errorf("unexpected order %v", ids)
		}
	})

	t.Run("filtered by start URL", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "https://example.com/docs/", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})

	t.Run("limited", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "", 1)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].ID != third.ID {
			t.Errorf("expected only the newest run, got %+v", runs)
		}
	})
}

// TestDiffRuns tests comparing two runs by content hash.
func TestDiffRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	oldRun := archiveRun(t, db, "https://example.com/",
		&model.Page{Path: "https://example.com/a", Text: "same"},
		&model.Page{Path: "https://example.com/b", Text: "before"},
		&model.Page{Path: "https://example.com/gone", Text: "old"},
	)
	newRun := archiveRun(t, db, "https://example.com/",
		&model.Page{Path: "https://example.com/a", Text: "same"},
		&model.Page{Path: "https://example.com/b", Text: "after"},
		&model.Page{Path: "https://example.com/new", Text: "fresh"},
	)

	t.Run("reports added, removed and changed pages", func(t *testing.T) {
		t.Parallel()

		diff, err := db.DiffRuns(ctx, oldRun.ID, newRun.ID)
		if err != nil {
			t.Fatalf("failed to diff runs: %v", err)
		}
		if !slices.Equal(diff.Added, []string{"https://example.com/new"}) {
			t.Errorf("unexpected added %v", diff.Added)
		}
		if !slices.Equal(diff.Removed, []string{"https://example.com/gone"}) {
			t.Errorf("unexpected removed %v", diff.Removed)
		}
		if !slices.Equal(diff.Changed, []string{"https://example.com/b"}) {
			t.Errorf("unexpected changed %v", diff.Changed)
		}
		if diff.Unchanged != 1 {
			t.Errorf("expected 1 unchanged page, got %d", diff.Unchanged)
		}
		if diff.Empty() {
			t.Error("expected non-empty diff")
		}
	})

	t.Run("identical runs produce an empty diff", func(t *testing.T) {
		t.Parallel()

		diff, err := db.DiffRuns(ctx, newRun.ID, newRun.ID)
		if err != nil {
			t.Fatalf("failed to diff runs: %v", err)
		}
		if !diff.Empty() || diff.Unchanged != 3 {
			t.Errorf("expected empty diff, got %+v", diff)
		}
	})

	t.Run("unknown run is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := db.DiffRuns(ctx, oldRun.ID, "missing"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

// TestParseTimestamp tests timestamp parsing with multiple formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{input: "2025-01-15 10:30:00.123456", zero: false},
		{input: "2025-01-15 10:30:00", zero: false},
		{input: "2025-01-15T10:30:00Z", zero: false},
		{input: "", zero: true},
		{input: "not a time", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v, want zero=%v", tt.input, got, tt.zero)
			}
		})
	}
}
