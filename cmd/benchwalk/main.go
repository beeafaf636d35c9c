package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cespare/subcmd"
)

// Build* variables are initialized during the build via -ldflags.
var (
	BuildVersion string
	BuildTime    string
	BuildOSUname string
	BuildCommit  string
)

func main() {
	log.SetFlags(0)

	cmds := []subcmd.Command{
		{
			Name:        "run",
			Description: "benchmark a command over a series of commits",
			Do:          runMain,
		},

		{
			Name:        "report",
			Description: "render a recorded results table",
			Do:          reportMain,
		},

		{
			Name:        "stat",
			Description: "compute and compare statistics about recorded samples",
			Do:          statMain,
		},

		{
			Name:        "env",
			Description: "print benchwalk-related env variables",
			Do:          envMain,
		},

		{
			Name:        "version",
			Description: "print benchwalk version info",
			Do:          versionMain,
		},
	}

	subcmd.Run(cmds)
}

func versionMain(args []string) {
	if BuildCommit == "" {
		fmt.Printf("benchwalk built without version info\n")
	} else {
		fmt.Printf("benchwalk version %s\nbuilt on: %s\nos: %s\ncommit: %s\n",
			BuildVersion, BuildTime, BuildOSUname, BuildCommit)
	}
}

func envMain(args []string) {
	walkVars := []string{
		"BENCHWALK_RESULTS_DIR",
		"BENCHWALK_TEAMCITY",

		"BENCHWALK_RBENV_BINARY",
		"BENCHWALK_BUNDLE_BINARY",
		"BENCHWALK_GEM_BINARY",
	}

	for _, name := range walkVars {
		v := os.Getenv(name)
		fmt.Printf("%s=%q\n", name, v)
	}
}

func runMain(args []string) {
	if err := cmdRun(args); err != nil {
		log.Fatalf("benchwalk run: error: %v", err)
	}
}

func reportMain(args []string) {
	if err := cmdReport(args); err != nil {
		log.Fatalf("benchwalk report: error: %v", err)
	}
}

func statMain(args []string) {
	if err := cmdStat(args); err != nil {
		log.Fatalf("benchwalk stat: error: %v", err)
	}
}
