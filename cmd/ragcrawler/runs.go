package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/ragcrawler/internal/config"
	"github.com/nao1215/ragcrawler/internal/database"
	"github.com/nao1215/ragcrawler/internal/output"
)

// defaultRunLimit is how many runs are listed unless --limit is given.
const defaultRunLimit = 20

// runIDWidth is how much of a run ID the listing shows.
const runIDWidth = 8

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id] [other-run-id]",
		Short: "Inspect crawls archived with --save or --db",
		Long: `Runs inspects the SQLite archive written by 'ragcrawler crawl --save'.

Without arguments, the most recent runs are listed. With a run ID, the pages of
that run are listed, or re-exported with --export. With --diff and two run IDs,
the pages added, removed, and changed between the runs are shown.

Run IDs may be abbreviated to any unique prefix shown in the listing.

Examples:
  # List recent runs
  ragcrawler runs

  # List runs of one start URL
  ragcrawler runs --url https://example.com/docs/

  # Show the pages of a run
  ragcrawler runs 3f2a9c1e

  # Write the pages of a run to a directory
  ragcrawler runs 3f2a9c1e --export ./docs-md

  # Compare two runs
  ragcrawler runs --diff 3f2a9c1e 8b7d0a42`,
		Args: cobra.MaximumNArgs(2),
		RunE: runRunsCmd,
	}

	cmd.Flags().String("db", "",
		"Archive path (default: the database in the XDG data directory)")
	cmd.Flags().String("url", "",
		"Only list runs of this start URL")
	cmd.Flags().IntP("limit", "n", defaultRunLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().Bool("diff", false,
		"Compare the pages of two runs")
	cmd.Flags().String("export", "",
		"Write the pages of a run to this path (.json file or directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runsOptions holds the parsed flags of the runs command.
type runsOptions struct {
	dbPath     string
	startURL   string
	limit      int
	diff       bool
	exportPath string
	jsonOutput bool
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseRunsFlags(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	switch {
	case opts.diff && len(args) != 2:
		return errors.New("--diff requires two run IDs")
	case !opts.diff && len(args) == 2:
		return errors.New("two run IDs are only accepted with --diff")
	case opts.exportPath != "" && len(args) != 1:
		return errors.New("--export requires a run ID")
	}

	if _, err := os.Stat(opts.dbPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no crawl archive at %s (use 'ragcrawler crawl --save' to create one)", opts.dbPath)
		}
		return fmt.Errorf("failed to check archive: %w", err)
	}

	db, err := database.Open(opts.dbPath, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.diff:
		return diffRuns(ctx, out, db, args[0], args[1], opts.jsonOutput)
	case opts.exportPath != "":
		return exportRun(ctx, out, db, args[0], opts.exportPath)
	case len(args) == 1:
		return showRun(ctx, out, db, args[0], opts.jsonOutput)
	default:
		return listRuns(ctx, out, db, opts.startURL, opts.limit, opts.jsonOutput)
	}
}

// parseRunsFlags reads the runs command flags.
func parseRunsFlags(cmd *cobra.Command) (*runsOptions, error) {
	opts := &runsOptions{}
	var err error

	opts.dbPath, err = cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	if opts.dbPath == "" {
		cfg := config.Config{SaveToDB: true}
		opts.dbPath = cfg.DatabasePath()
	}

	opts.startURL, err = cmd.Flags().GetString("url")
	if err != nil {
		return nil, err
	}

	opts.limit, err = cmd.Flags().GetInt("limit")
	if err != nil {
		return nil, err
	}

	opts.diff, err = cmd.Flags().GetBool("diff")
	if err != nil {
		return nil, err
	}

	opts.exportPath, err = cmd.Flags().GetString("export")
	if err != nil {
		return nil, err
	}

	opts.jsonOutput, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// runJSON is the JSON form of an archived run.
type runJSON struct {
	ID         string     `json:"id"`
	StartURL   string     `json:"startUrl"`
	Preset     string     `json:"preset,omitempty"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	PageCount  int        `json:"pageCount"`
}

func newRunJSON(r *database.Run) runJSON {
	j := runJSON{
		ID:        r.ID,
		StartURL:  r.StartURL,
		Preset:    r.Preset,
		Source:    r.Source,
		StartedAt: r.StartedAt,
		PageCount: r.PageCount,
	}
	if r.Finished() {
		finished := r.FinishedAt
		j.FinishedAt = &finished
	}
	return j
}

// pageJSON is the JSON form of an archived page without its text.
type pageJSON struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"contentHash"`
	ByteSize    int       `json:"byteSize"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// runDetailJSON is the JSON output of a single run.
type runDetailJSON struct {
	Run   runJSON    `json:"run"`
	Pages []pageJSON `json:"pages"`
}

// diffJSON is the JSON output of a run comparison.
type diffJSON struct {
	Old       string   `json:"old"`
	New       string   `json:"new"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Changed   []string `json:"changed"`
	Unchanged int      `json:"unchanged"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// listRuns prints the archived runs, newest first.
func listRuns(ctx context.Context, w io.Writer, db *database.PageDB, startURL string, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, startURL, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		items := make([]runJSON, 0, len(runs))
		for _, r := range runs {
			items = append(items, newRunJSON(r))
		}
		return writeJSON(w, items)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No crawl runs found in the archive.")
		fmt.Fprintln(w, "\nUse 'ragcrawler crawl --save <start-url>' to archive a crawl.")
		return nil
	}

	fmt.Fprintf(w, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-8s  %-16s  %6s  %-11s  %s\n", "ID", "Started", "Pages", "Source", "Start URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))
	for _, r := range runs {
		pages := fmt.Sprintf("%d", r.PageCount)
		if !r.Finished() {
			pages = "?"
		}
		fmt.Fprintf(w, "  %-8s  %-16s  %6s  %-11s  %s\n",
			shortID(r.ID),
			humanize.Time(r.StartedAt),
			pages,
			r.Source,
			r.StartURL,
		)
	}
	fmt.Fprintln(w, "\nUse 'ragcrawler runs <id>' to see the pages of a run.")
	return nil
}

// showRun prints a run and its pages.
func showRun(ctx context.Context, w io.Writer, db *database.PageDB, idPrefix string, jsonOutput bool) error {
	run, err := findRun(ctx, db, idPrefix)
	if err != nil {
		return err
	}
	records, err := db.ListPages(ctx, run.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		detail := runDetailJSON{Run: newRunJSON(run), Pages: make([]pageJSON, 0, len(records))}
		for _, rec := range records {
			detail.Pages = append(detail.Pages, pageJSON{
				Path:        rec.Path,
				ContentHash: rec.ContentHash,
				ByteSize:    rec.ByteSize,
				FetchedAt:   rec.FetchedAt,
			})
		}
		return writeJSON(w, detail)
	}

	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  Start URL: %s\n", run.StartURL)
	fmt.Fprintf(w, "  Source:    %s\n", run.Source)
	if run.Preset != "" {
		fmt.Fprintf(w, "  Preset:    %s\n", run.Preset)
	}
	fmt.Fprintf(w, "  Started:   %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Finished() {
		fmt.Fprintf(w, "  Duration:  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	} else {
		fmt.Fprintln(w, "  Status:    interrupted")
	}

	total := 0
	for _, rec := range records {
		total += rec.ByteSize
	}
	fmt.Fprintf(w, "\nPages (%d, %s):\n\n", len(records), humanize.Bytes(uint64(total))) //nolint:gosec // sizes are never negative
	for _, rec := range records {
		fmt.Fprintf(w, "  %8s  %s\n", humanize.Bytes(uint64(rec.ByteSize)), rec.Path) //nolint:gosec // sizes are never negative
	}
	return nil
}

// exportRun writes the pages of a run to path the same way crawl does.
func exportRun(ctx context.Context, w io.Writer, db *database.PageDB, idPrefix, path string) error {
	run, err := findRun(ctx, db, idPrefix)
	if err != nil {
		return err
	}
	records, err := db.ListPages(ctx, run.ID)
	if err != nil {
		return err
	}

	// Archived text does not record its format; Markdown is the crawl default.
	writer, err := output.NewTargetWriter(w, path, true)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.WritePage(rec.Page()); err != nil {
			_ = writer.Close()
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Exported %d pages of run %s to %s\n", len(records), shortID(run.ID), path)
	return nil
}

// diffRuns prints the differences between two runs.
func diffRuns(ctx context.Context, w io.Writer, db *database.PageDB, oldPrefix, newPrefix string, jsonOutput bool) error {
	oldRun, err := findRun(ctx, db, oldPrefix)
	if err != nil {
		return err
	}
	newRun, err := findRun(ctx, db, newPrefix)
	if err != nil {
		return err
	}

	diff, err := db.DiffRuns(ctx, oldRun.ID, newRun.ID)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(w, diffJSON{
			Old:       oldRun.ID,
			New:       newRun.ID,
			Added:     diff.Added,
			Removed:   diff.Removed,
			Changed:   diff.Changed,
			Unchanged: diff.Unchanged,
		})
	}

	fmt.Fprintf(w, "Comparing run %s with run %s\n\n", shortID(oldRun.ID), shortID(newRun.ID))
	if diff.Empty() {
		fmt.Fprintf(w, "No differences (%d pages unchanged).\n", diff.Unchanged)
		return nil
	}

	printPaths(w, "Added", "+", diff.Added)
	printPaths(w, "Removed", "-", diff.Removed)
	printPaths(w, "Changed", "~", diff.Changed)
	fmt.Fprintf(w, "%d pages unchanged.\n", diff.Unchanged)
	return nil
}

func printPaths(w io.Writer, title, marker string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(paths))
	for _, p := range paths {
		fmt.Fprintf(w, "  %s %s\n", marker, p)
	}
	fmt.Fprintln(w)
}

// findRun resolves a full run ID or a unique prefix of one.
func findRun(ctx context.Context, db *database.PageDB, idPrefix string) (*database.Run, error) {
	run, err := db.GetRun(ctx, idPrefix)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, database.ErrRunNotFound) {
		return nil, err
	}

	runs, err := db.ListRuns(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	var match *database.Run
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, idPrefix) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run ID %q is ambiguous", idPrefix)
		}
		match = r
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", database.ErrRunNotFound, idPrefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > runIDWidth {
		return id[:runIDWidth]
	}
	return id
}
