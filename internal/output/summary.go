package output

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/ragcrawler/internal/model"
)

// hashPrefixLen is how much of the content hash the summary shows.
const hashPrefixLen = 12

// maxChartSlices bounds the sections shown in the pie chart.
const maxChartSlices = 8

// summaryEntry is what the summary keeps per page; the text is dropped.
type summaryEntry struct {
	path string
	size int
	hash string
}

// SummaryWriter renders a Markdown overview of the crawl on Close.
type SummaryWriter struct {
	output io.Writer
	closer io.Closer
	info   RunInfo
	now    func() time.Time

	entries []summaryEntry
	total   int
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, info RunInfo) *SummaryWriter {
	return &SummaryWriter{
		output: output,
		info:   info,
		now:    time.Now,
	}
}

// NewSummaryFileWriter creates a SummaryWriter for the file at path.
func NewSummaryFileWriter(path string, info RunInfo) (*SummaryWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create summary directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create summary file: %w", err)
	}
	w := NewSummaryWriter(f, info)
	w.closer = f
	return w, nil
}

// WritePage records the page for the summary.
func (w *SummaryWriter) WritePage(page *model.Page) error {
	hash := page.ContentHash()
	if len(hash) > hashPrefixLen {
		hash = hash[:hashPrefixLen]
	}
	w.entries = append(w.entries, summaryEntry{
		path: page.Path,
		size: page.Size(),
		hash: hash,
	})
	w.total += page.Size()
	return nil
}

// Close renders the summary.
func (w *SummaryWriter) Close() error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md)
	w.writePages(md)
	w.writeFooter(md)

	err := md.Build()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (w *SummaryWriter) writeHeader(md *markdown.Markdown) {
	md.H1("Crawl Summary")
	md.PlainText("")

	preset := w.info.Preset
	if preset == "" {
		preset = "-"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + w.info.StartURL + "`"},
			{"Source", w.info.Source},
			{"Preset", preset},
			{"Pages", strconv.Itoa(len(w.entries))},
			{"Total Size", humanize.Bytes(uint64(w.total))}, //nolint:gosec // sizes are never negative
			{"Generated", w.now().Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

func (w *SummaryWriter) writePages(md *markdown.Markdown) {
	md.H2("Pages")
	md.PlainText("")

	if len(w.entries) == 0 {
		md.Warningf("No pages were produced. Check the start URL, the --extract selector and the exclusion rules.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(w.entries))
	for i, e := range w.entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.path,
			humanize.Bytes(uint64(e.size)), //nolint:gosec // sizes are never negative
			"`" + e.hash + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Path", "Size", "Hash"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(w.entries) > 1 {
		w.writeSectionChart(md)
	}
}

// writeSectionChart writes a mermaid pie chart of pages per top-level
// section of the site.
func (w *SummaryWriter) writeSectionChart(md *markdown.Markdown) {
	counts := make(map[string]uint64)
	order := make([]string, 0)
	for _, e := range w.entries {
		s := section(e.path)
		if _, ok := counts[s]; !ok {
			order = append(order, s)
		}
		counts[s]++
	}
	if len(order) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by Section"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, s := range order {
		if i >= maxChartSlices {
			other += counts[s]
			continue
		}
		chart.LabelAndIntValue(s, counts[s])
	}
	if other > 0 {
		chart.LabelAndIntValue("other", other)
	}

	md.H2("Sections")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *SummaryWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [ragcrawler](https://github.com/nao1215/ragcrawler)*")
}

// section returns the first path segment of a page URL, or "/" for pages
// at the root.
func section(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if first == "" {
		return "/"
	}
	return first
}
