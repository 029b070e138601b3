package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ragcrawler/internal/model"
)

// ErrRunNotFound is returned when a run ID does not exist in the archive.
var ErrRunNotFound = errors.New("crawl run not found")

// timeLayout is how timestamps are stored. Fixed-width UTC strings sort
// chronologically.
const timeLayout = "2006-01-02 15:04:05.000000"

// PageDB provides SQLite-based storage for crawl runs and their pages.
type PageDB struct {
	db *sql.DB

	dbPath string
}

// Options configures PageDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file and its directory if they
	// don't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a PageDB at dbPath.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbPath string, opts Options) (*PageDB, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pdb := &PageDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := pdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return pdb, nil
}

// Path returns the database file location.
func (pdb *PageDB) Path() string {
	return pdb.dbPath
}

// Close closes the database connection.
func (pdb *PageDB) Close() error {
	return pdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (pdb *PageDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		preset TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		page_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON crawl_runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON crawl_runs(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		text TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		byte_size INTEGER NOT NULL,
		fetched_at TEXT NOT NULL,
		UNIQUE(run_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_hash ON pages(content_hash);
	`

	_, err := pdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one archived crawl.
type Run struct {
	// ID is a UUID assigned when the run begins.
	ID string

	// StartURL is the URL the crawl started from.
	StartURL string

	// Preset is the name of the matched preset, or empty.
	Preset string

	// Source is the seeding strategy, "site" or "github-tree".
	Source string

	StartedAt  time.Time
	FinishedAt time.Time

	// PageCount is the number of pages stored for the run.
	PageCount int
}

// Finished reports whether FinishRun was called for the run.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// BeginRun records the start of a crawl and returns the new run.
func (pdb *PageDB) BeginRun(ctx context.Context, startURL, preset, source string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartURL:  startURL,
		Preset:    preset,
		Source:    source,
		StartedAt: time.Now().UTC(),
	}

	query := `
	INSERT INTO crawl_runs (id, start_url, preset, source, started_at)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := pdb.db.ExecContext(ctx, query,
		run.ID,
		run.StartURL,
		run.Preset,
		run.Source,
		run.StartedAt.Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}
	return run, nil
}

// InsertPage stores a page for a run. A page already stored for the same
// run and path is replaced.
func (pdb *PageDB) InsertPage(ctx context.Context, runID string, page *model.Page) error {
	query := `
	INSERT INTO pages (run_id, path, text, content_hash, byte_size, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, path) DO UPDATE SET
		text = excluded.text,
		content_hash = excluded.content_hash,
		byte_size = excluded.byte_size,
		fetched_at = excluded.fetched_at
	`

	_, err := pdb.db.ExecContext(ctx, query,
		runID,
		page.Path,
		page.Text,
		page.ContentHash(),
		page.Size(),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page %s: %w", page.Path, err)
	}
	return nil
}

// FinishRun marks a run as finished and records its page count.
func (pdb *PageDB) FinishRun(ctx context.Context, runID string) error {
	query := `
	UPDATE crawl_runs
	SET finished_at = ?,
		page_count = (SELECT COUNT(*) FROM pages WHERE run_id = crawl_runs.id)
	WHERE id = ?
	`

	result, err := pdb.db.ExecContext(ctx, query, time.Now().UTC().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns a run by ID, or ErrRunNotFound.
func (pdb *PageDB) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
	SELECT id, start_url, preset, source, started_at, finished_at, page_count
	FROM crawl_runs
	WHERE id = ?
	`

	run, err := scanRun(pdb.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns archived runs, newest first. A non-empty startURL limits
// the result to runs of that URL; limit <= 0 returns every run.
func (pdb *PageDB) ListRuns(ctx context.Context, startURL string, limit int) ([]*Run, error) {
	query := `
	SELECT id, start_url, preset, source, started_at, finished_at, page_count
	FROM crawl_runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if startURL != "" {
		query += " AND start_url = ?"
		args = append(args, startURL)
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := pdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PageRecord is a stored page.
type PageRecord struct {
	Path        string
	Text        string
	ContentHash string
	ByteSize    int
	FetchedAt   time.Time
}

// Page converts the record back to a model.Page.
func (r *PageRecord) Page() *model.Page {
	return &model.Page{Path: r.Path, Text: r.Text}
}

// ListPages returns the pages of a run in the order they were stored.
func (pdb *PageDB) ListPages(ctx context.Context, runID string) ([]*PageRecord, error) {
	query := `
	SELECT path, text, content_hash, byte_size, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := pdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	records := make([]*PageRecord, 0)
	for rows.Next() {
		var rec PageRecord
		var fetchedAt string
		if err := rows.Scan(&rec.Path, &rec.Text, &rec.ContentHash, &rec.ByteSize, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		rec.FetchedAt = parseTimestamp(fetchedAt)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RunDiff lists page paths that differ between two runs.
type RunDiff struct {
	// Added are paths present only in the newer run.
	Added []string

	// Removed are paths present only in the older run.
	Removed []string

	// Changed are paths present in both runs with different content.
	Changed []string

	// Unchanged counts paths with identical content.
	Unchanged int
}

// Empty reports whether the runs stored identical pages.
func (d *RunDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffRuns compares the pages of oldID and newID by content hash.
// Path lists are sorted.
func (pdb *PageDB) DiffRuns(ctx context.Context, oldID, newID string) (*RunDiff, error) {
	for _, id := range []string{oldID, newID} {
		if _, err := pdb.GetRun(ctx, id); err != nil {
			return nil, err
		}
	}

	oldHashes, err := pdb.pageHashes(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newHashes, err := pdb.pageHashes(ctx, newID)
	if err != nil {
		return nil, err
	}

	diff := &RunDiff{
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
	}
	for path, newHash := range newHashes {
		oldHash, ok := oldHashes[path]
		switch {
		case !ok:
			diff.Added = append(diff.Added, path)
		case oldHash != newHash:
			diff.Changed = append(diff.Changed, path)
		default:
			diff.Unchanged++
		}
	}
	for path := range oldHashes {
		if _, ok := newHashes[path]; !ok {
			diff.Removed = append(diff.Removed, path)
		}
	}

	slices.Sort(diff.Added)
	slices.Sort(diff.Removed)
	slices.Sort(diff.Changed)
	return diff, nil
}

func (pdb *PageDB) pageHashes(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := pdb.db.QueryContext(ctx, `SELECT path, content_hash FROM pages WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan page hash: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt, finishedAt string
	if err := row.Scan(
		&run.ID,
		&run.StartURL,
		&run.Preset,
		&run.Source,
		&startedAt,
		&finishedAt,
		&run.PageCount,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	return &run, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999", // timeLayout and SQLite with fractions
	"2006-01-02 15:04:05",           // SQLite default datetime format
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// Empty or unparsable strings yield the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
