package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/benchtools/benchwalk/internal/results"
)

func cmdReport(args []string) error {
	fs := flag.NewFlagSet("benchwalk report", flag.ExitOnError)
	resultsDir := fs.String("results-dir", envString("BENCHWALK_RESULTS_DIR", "tmp/benchwalk"),
		`directory with a recorded results table`)
	fs.Parse(args)

	table := filepath.Join(*resultsDir, results.TableFilename)
	if len(fs.Args()) != 0 {
		table = fs.Args()[0]
	}

	rows, err := results.ReadTable(table)
	if err != nil {
		return err
	}
	if len(rows) <= 1 {
		return errors.New("no commits were recorded")
	}
	return results.RenderTable(os.Stdout, rows)
}
