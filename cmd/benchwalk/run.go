package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/benchtools/benchwalk/internal/fileutil"
	"github.com/benchtools/benchwalk/internal/runner"
)

func cmdRun(args []string) error {
	conf := &runner.RunConfig{}

	workdir, err := os.Getwd()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("benchwalk run", flag.ExitOnError)
	debug := fs.Bool("debug", false,
		`print debug info`)
	fs.IntVar(&conf.Commits, "commits", 10,
		`benchmark the n most recent eligible commits`)
	fs.IntVar(&conf.Commits, "c", 10,
		`shorthand for -commits`)
	fs.IntVar(&conf.Runs, "runs", 1,
		`time the command n times on every commit`)
	fs.IntVar(&conf.Runs, "r", 1,
		`shorthand for -runs`)
	fs.IntVar(&conf.Skip, "skip", 0,
		`skip n commits between selected ones`)
	fs.IntVar(&conf.Skip, "s", 0,
		`shorthand for -skip`)
	fs.StringVar(&conf.StartHash, "start-hash", "",
		`revision to start the walk from; if empty, HEAD is used`)
	fs.StringVar(&conf.ResultsDir, "results-dir", envString("BENCHWALK_RESULTS_DIR", "tmp/benchwalk"),
		`directory for the results table, run log and samples`)
	fs.StringVar(&conf.ProjectRoot, "project-root", workdir,
		`project root directory`)
	fs.StringVar(&conf.RbenvBinary, "rbenv-binary", envString("BENCHWALK_RBENV_BINARY", "rbenv"),
		`rbenv command used to install ruby versions`)
	fs.StringVar(&conf.BundleBinary, "bundle-binary", envString("BENCHWALK_BUNDLE_BINARY", "bundle"),
		`bundler command used to install dependencies`)
	fs.StringVar(&conf.GemBinary, "gem-binary", envString("BENCHWALK_GEM_BINARY", "gem"),
		`gem command used to install bundler`)
	fs.BoolVar(&conf.TeamcityOutput, "teamcity", envBool("BENCHWALK_TEAMCITY", false),
		`report walk progress in TeamCity format`)
	fs.Parse(args)

	if len(fs.Args()) == 0 {
		return errors.New("expected at least 1 positional argument, the command to benchmark")
	}
	if conf.Commits <= 0 {
		return fmt.Errorf("-commits must be positive, got %d", conf.Commits)
	}
	if conf.Runs <= 0 {
		return fmt.Errorf("-runs must be positive, got %d", conf.Runs)
	}
	if conf.Skip < 0 {
		return fmt.Errorf("-skip must not be negative, got %d", conf.Skip)
	}

	conf.ProjectRoot, err = filepath.Abs(conf.ProjectRoot)
	if err != nil {
		return fmt.Errorf("resolve project root path: %v", err)
	}
	conf.ResultsDir = fileutil.AbsPath(conf.ProjectRoot, conf.ResultsDir)

	conf.Command = fs.Args()
	conf.Output = os.Stdout
	conf.Progress = func(msg string) {
		printProgress("%s", msg)
	}
	if *debug {
		conf.DebugPrint = func(msg string) {
			log.Print(msg)
		}
	}

	defer func() {
		flushProgress()
	}()

	_, err = runner.Run(conf)
	return err
}
