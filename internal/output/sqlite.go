package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/ragcrawler/internal/database"
	"github.com/nao1215/ragcrawler/internal/model"
)

// RunInfo describes the crawl being recorded.
type RunInfo struct {
	StartURL string
	Preset   string
	Source   string
}

// SQLiteWriter records pages as one run in the SQLite archive.
type SQLiteWriter struct {
	ctx context.Context
	db  *database.PageDB
	run *database.Run
}

// OpenSQLiteWriter opens the archive at dbPath and begins a run.
// The writer owns the database and closes it on Close.
func OpenSQLiteWriter(ctx context.Context, dbPath string, info RunInfo) (*SQLiteWriter, error) {
	db, err := database.Open(dbPath, database.DefaultOptions())
	if err != nil {
		return nil, err
	}

	run, err := db.BeginRun(ctx, info.StartURL, info.Preset, info.Source)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteWriter{ctx: ctx, db: db, run: run}, nil
}

// RunID returns the ID of the run being recorded.
func (w *SQLiteWriter) RunID() string {
	return w.run.ID
}

// WritePage stores the page in the current run.
func (w *SQLiteWriter) WritePage(page *model.Page) error {
	return w.db.InsertPage(w.ctx, w.run.ID, page)
}

// Close marks the run finished and closes the database.
// The run is finished with a fresh context so an interrupted crawl still
// records the pages it produced.
func (w *SQLiteWriter) Close() error {
	finishErr := w.db.FinishRun(context.WithoutCancel(w.ctx), w.run.ID)
	closeErr := w.db.Close()
	if err := errors.Join(finishErr, closeErr); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}
