// Package results persists and renders the outputs of a benchmark
// walk: the tab-separated results table, the plain-text run log and
// per-revision sample files in Go benchmark format.
package results

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/benchtools/benchwalk/internal/fileutil"
	"github.com/benchtools/benchwalk/internal/stats"
)

// TableHeader is the fixed first row of the results table.
var TableHeader = []string{"Revision", "Date", "Median", "Min", "Max"}

// TableFilename is the results table file inside a results dir.
const TableFilename = "results.tsv"

const (
	logFilename    = "run.log"
	samplesDirname = "samples"
)

// SamplePath is the samples file a revision's timings live in under a
// results dir.
func SamplePath(dir, revision string) string {
	return filepath.Join(dir, samplesDirname, revision+".txt")
}

// Row is one recorded revision of the results table.
type Row struct {
	Revision string
	Date     string
	Median   time.Duration
	Min      time.Duration
	Max      time.Duration
}

// Columns renders the row the way it is stored, timings as
// two-decimal seconds.
func (r Row) Columns() []string {
	return []string{
		r.Revision,
		r.Date,
		stats.Seconds(r.Median),
		stats.Seconds(r.Min),
		stats.Seconds(r.Max),
	}
}

// Dir is an open results directory. The table and log files are kept
// open for appending while the walk runs.
type Dir struct {
	path  string
	table *os.File
	log   *os.File
}

// Create prepares a results directory, starting a fresh table and log
// file. Sample files of earlier walks are left alone and get
// overwritten revision by revision.
func Create(path string) (*Dir, error) {
	if err := fileutil.MkdirAll(filepath.Join(path, samplesDirname)); err != nil {
		return nil, err
	}
	table, err := os.Create(filepath.Join(path, TableFilename))
	if err != nil {
		return nil, err
	}
	if _, err := table.WriteString(strings.Join(TableHeader, "\t") + "\n"); err != nil {
		table.Close()
		return nil, err
	}
	logFile, err := os.Create(filepath.Join(path, logFilename))
	if err != nil {
		table.Close()
		return nil, err
	}
	return &Dir{path: path, table: table, log: logFile}, nil
}

// Log is the writer of the plain-text run log.
func (d *Dir) Log() io.Writer { return d.log }

func (d *Dir) Path() string { return d.path }

func (d *Dir) TablePath() string { return filepath.Join(d.path, TableFilename) }

func (d *Dir) SamplesDir() string { return filepath.Join(d.path, samplesDirname) }

// AppendRow adds one revision's aggregate to the results table and
// flushes it, so rows recorded before an interrupt survive.
func (d *Dir) AppendRow(row Row) error {
	if _, err := d.table.WriteString(strings.Join(row.Columns(), "\t") + "\n"); err != nil {
		return err
	}
	return d.table.Sync()
}

// WriteSamples stores each timed run of a revision as a Go benchmark
// line, so revisions can be compared with the stat subcommand.
func (d *Dir) WriteSamples(revision string, samples []time.Duration) error {
	var sb strings.Builder
	for _, s := range samples {
		fmt.Fprintf(&sb, "BenchmarkCommand 1 %d ns/op\n", s.Nanoseconds())
	}
	return fileutil.WriteFile(SamplePath(d.path, revision), []byte(sb.String()))
}

func (d *Dir) Close() error {
	logErr := d.log.Close()
	if err := d.table.Close(); err != nil {
		return err
	}
	return logErr
}

// ReadTable loads a results table file, header row included.
func ReadTable(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty results table", path)
	}
	if strings.Join(rows[0], "\t") != strings.Join(TableHeader, "\t") {
		return nil, fmt.Errorf("%s: malformed results table header", path)
	}
	return rows, nil
}

// RenderTable prints rows column-aligned.
func RenderTable(w io.Writer, rows [][]string) error {
	return pterm.DefaultTable.
		WithWriter(w).
		WithHasHeader().
		WithData(pterm.TableData(rows)).
		Render()
}
