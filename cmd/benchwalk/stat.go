package main

import (
	"bytes"
	"errors"
	"flag"
	"log"
	"os"
	"strings"

	"golang.org/x/perf/benchstat"

	"github.com/benchtools/benchwalk/internal/fileutil"
	"github.com/benchtools/benchwalk/internal/results"
)

var deltaTests = map[string]benchstat.DeltaTest{
	"none":   benchstat.NoDeltaTest,
	"u":      benchstat.UTest,
	"u-test": benchstat.UTest,
	"utest":  benchstat.UTest,
	"t":      benchstat.TTest,
	"t-test": benchstat.TTest,
	"ttest":  benchstat.TTest,
}

var sortOrders = map[string]benchstat.Order{
	"none":  nil,
	"name":  benchstat.ByName,
	"delta": benchstat.ByDelta,
}

func colorizeText(str string, colorCode string) string {
	return colorCode + str + "\033[0m"
}

func redColorize(str string) string {
	return colorizeText(str, "\033[31m")
}

func greenColorize(str string) string {
	return colorizeText(str, "\033[32m")
}

func yellowColorize(str string) string {
	return colorizeText(str, "\033[33m")
}

// colorizeDeltas marks slowdowns red and speedups green.
func colorizeDeltas(tables []*benchstat.Table) {
	for _, table := range tables {
		for _, row := range table.Rows {
			if strings.HasPrefix(row.Delta, "+") {
				row.Delta = redColorize(row.Delta)
			} else if strings.HasPrefix(row.Delta, "-") {
				row.Delta = greenColorize(row.Delta)
			} else {
				row.Delta = yellowColorize(row.Delta)
			}
		}
	}
}

// checkSampleCounts warns when a revision carries too few samples for
// the significance test to say anything.
func checkSampleCounts(tables []*benchstat.Table) {
	for _, table := range tables {
		for _, row := range table.Rows {
			if len(row.Metrics) == 0 {
				continue
			}
			if len(row.Metrics[0].RValues) < 5 {
				log.Printf("WARNING: %s needs more samples, re-run with -runs=5 or higher?", row.Benchmark)
			}
		}
	}
}

// samplePath resolves one positional argument. A bare name refers to a
// samples file recorded under the results dir, so revisions can be
// compared directly: benchwalk stat fe1a20c 09b4a63. Paths and names
// of existing files are used as given.
func samplePath(resultsDir, arg string) string {
	if strings.ContainsRune(arg, os.PathSeparator) || fileutil.FileExists(arg) {
		return arg
	}
	return results.SamplePath(resultsDir, strings.TrimSuffix(arg, ".txt"))
}

func cmdStat(args []string) error {
	fs := flag.NewFlagSet("benchwalk stat", flag.ExitOnError)
	flagResultsDir := fs.String("results-dir", envString("BENCHWALK_RESULTS_DIR", "tmp/benchwalk"),
		`results directory to resolve bare revision names in`)
	flagDeltaTest := fs.String("delta-test", "utest", "significance `test` to apply to delta: utest, ttest, or none")
	flagAlpha := fs.Float64("alpha", 0.05, "consider change significant if p < `α`")
	flagGeomean := fs.Bool("geomean", false, "print the geometric mean of each file")
	flagSort := fs.String("sort", "none", "sort by `order`: [-]delta, [-]name, none")
	colorize := fs.String("colorize", "auto", "colorize output: auto, true, false")
	fs.Parse(args)

	enableColorize := strings.ToLower(*colorize) == "true"
	if *colorize == "auto" {
		enableColorize = fileutil.IsUnixCharDevice(os.Stdout)
	}

	deltaTest := deltaTests[strings.ToLower(*flagDeltaTest)]
	if deltaTest == nil {
		return errors.New("invalid delta-test argument")
	}
	sortName := *flagSort
	reverse := false
	if strings.HasPrefix(sortName, "-") {
		reverse = true
		sortName = sortName[1:]
	}
	order, ok := sortOrders[sortName]
	if !ok {
		return errors.New("invalid sort argument")
	}

	if len(fs.Args()) == 0 {
		log.Printf("Expected at least 1 positional argument, a revision or a samples file")
		return nil
	}

	c := &benchstat.Collection{
		Alpha:      *flagAlpha,
		AddGeoMean: *flagGeomean,
		DeltaTest:  deltaTest,
	}
	if order != nil {
		if reverse {
			order = benchstat.Reverse(order)
		}
		c.Order = order
	}
	for _, arg := range fs.Args() {
		f, err := os.Open(samplePath(*flagResultsDir, arg))
		if err != nil {
			return err
		}
		// The argument, not the resolved path, names the column.
		if err := c.AddFile(arg, f); err != nil {
			return err
		}
		f.Close()
	}

	tables := c.Tables()
	if enableColorize {
		colorizeDeltas(tables)
	}
	checkSampleCounts(tables)
	var buf bytes.Buffer
	benchstat.FormatText(&buf, tables)
	os.Stdout.Write(buf.Bytes())

	return nil
}
