package runner

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/benchtools/benchwalk/internal/fileutil"
	"github.com/benchtools/benchwalk/internal/gitrepo"
	"github.com/benchtools/benchwalk/internal/memprobe"
	"github.com/benchtools/benchwalk/internal/results"
	"github.com/benchtools/benchwalk/internal/rubyenv"
	"github.com/benchtools/benchwalk/internal/stats"
	"github.com/benchtools/benchwalk/internal/teamcity"
	"github.com/benchtools/benchwalk/internal/timedcmd"
)

const (
	// Samples are rounded so that a median of two central values
	// stays representable without fractional nanoseconds.
	sampleRounding = 10 * time.Millisecond

	lowMemoryThresholdMB = 1000
	lowMemoryPause       = 10 * time.Second
)

type RunConfig struct {
	ProjectRoot string
	Command     []string

	Commits int
	Runs    int
	Skip    int

	StartHash  string
	ResultsDir string

	RbenvBinary  string
	GemBinary    string
	BundleBinary string

	TeamcityOutput bool

	Output     io.Writer
	DebugPrint func(string)
	Progress   func(string)

	// AvailableMemMB overrides the memory probe, for tests.
	AvailableMemMB func() (uint64, error)
}

// CommitResult describes the outcome for one selected commit.
type CommitResult struct {
	Hash  plumbing.Hash
	Short string
	Date  string

	Times []time.Duration
	Stats stats.Aggregate

	// Recorded is true if a results row was written for this commit.
	Recorded bool

	// Failure is set if a recoverable error cut this commit short.
	Failure error
}

type RunResult struct {
	Selected  int
	Attempted int
	Commits   []*CommitResult

	Interrupted bool
}

// FailedCommits returns the short hashes of commits that hit a
// recoverable failure, in walk order.
func (result *RunResult) FailedCommits() []string {
	var failed []string
	for _, cr := range result.Commits {
		if cr.Failure != nil {
			failed = append(failed, cr.Short)
		}
	}
	return failed
}

// Run walks the selected commits of the project repository and
// benchmarks the configured command on each of them.
//
// The returned RunResult is valid even when err is non-nil.
func Run(conf *RunConfig) (*RunResult, error) {
	r := newRunner(conf)
	return r.result, r.run()
}

type runner struct {
	conf *RunConfig

	repo    *gitrepo.Repo
	session *timedcmd.Session
	tc      *rubyenv.Toolchain
	logger  *teamcity.Logger

	// out duplicates the live stream into the run log once the
	// results dir is open.
	out io.Writer
	dir *results.Dir

	sigChan chan os.Signal

	origRef  string
	selected []plumbing.Hash

	result *RunResult
}

func newRunner(conf *RunConfig) *runner {
	var teamcityOutput io.Writer = io.Discard
	if conf.TeamcityOutput {
		teamcityOutput = conf.Output
	}
	return &runner{
		conf:    conf,
		repo:    &gitrepo.Repo{Dir: conf.ProjectRoot},
		session: &timedcmd.Session{},
		logger:  teamcity.NewLogger(teamcityOutput),
		out:     conf.Output,
		result:  &RunResult{},
	}
}

func (r *runner) run() error {
	defer r.finalize()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"check environment", r.stepCheckEnvironment},
		{"check working tree", r.stepCheckWorkingTree},
		{"save current ref", r.stepSaveCurrentRef},
		{"select commits", r.stepSelectCommits},
		{"prepare results dir", r.stepPrepareResultsDir},
		{"install signal handler", r.stepInstallSignalHandler},
		{"benchmark commits", r.stepBenchmarkCommits},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if r.result.Interrupted {
		return timedcmd.ErrInterrupted
	}
	return nil
}

func (r *runner) stepCheckEnvironment() error {
	for _, issue := range checkIssues() {
		log.Printf("WARNING: %s", issue)
	}
	return nil
}

func (r *runner) stepCheckWorkingTree() error {
	clean, err := r.repo.IsClean()
	if err != nil {
		return err
	}
	if !clean {
		return errors.New("working tree has uncommitted changes, commit or stash them first")
	}
	return nil
}

func (r *runner) stepSaveCurrentRef() error {
	ref, err := r.repo.CurrentRef()
	if err != nil {
		return err
	}
	r.origRef = ref
	r.debugf("current ref: %s", ref)
	return nil
}

func (r *runner) stepSelectCommits() error {
	start := r.conf.StartHash
	if start == "" {
		start = "HEAD"
	}
	startHash, err := r.repo.Resolve(start)
	if err != nil {
		return fmt.Errorf("resolve start revision %q: %w", start, err)
	}

	ancestors, err := r.repo.FirstParentLog(startHash, r.conf.Commits*(r.conf.Skip+1))
	if err != nil {
		return err
	}
	r.selected = gitrepo.SelectStride(ancestors, r.conf.Commits, r.conf.Skip)
	if len(r.selected) == 0 {
		return errors.New("no commits selected")
	}
	r.result.Selected = len(r.selected)
	r.debugf("selected %d of %d enumerated commits", len(r.selected), len(ancestors))
	return nil
}

func (r *runner) stepPrepareResultsDir() error {
	dir, err := results.Create(r.conf.ResultsDir)
	if err != nil {
		return err
	}
	r.dir = dir
	r.out = io.MultiWriter(r.conf.Output, dir.Log())

	r.tc = &rubyenv.Toolchain{
		ProjectRoot:  r.conf.ProjectRoot,
		RbenvBinary:  r.conf.RbenvBinary,
		GemBinary:    r.conf.GemBinary,
		BundleBinary: r.conf.BundleBinary,
		Session:      r.session,
		Output:       r.out,
	}
	return nil
}

func (r *runner) stepInstallSignalHandler() error {
	r.sigChan = make(chan os.Signal, 1)
	signal.Notify(r.sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-r.sigChan
		if !ok {
			return
		}
		log.Printf("%v received, stopping after the current command", sig)
		r.session.Interrupt(sig)
		signal.Stop(r.sigChan)
	}()
	return nil
}

func (r *runner) stepBenchmarkCommits() error {
	suite := filepath.Base(r.conf.Command[0])
	walkStart := time.Now()
	r.logger.TestSuiteStarted(suite)
	defer func() {
		r.logger.TestSuiteFinished(suite, time.Since(walkStart))
	}()

	for i, hash := range r.selected {
		if r.session.Interrupted() {
			r.result.Interrupted = true
			return nil
		}
		r.result.Attempted = i + 1

		cr, err := r.benchmarkCommit(i, hash)
		if cr != nil {
			r.result.Commits = append(r.result.Commits, cr)
		}
		if errors.Is(err, timedcmd.ErrInterrupted) {
			r.result.Interrupted = true
			return nil
		}
		if err != nil {
			return err
		}

		if i+1 < len(r.selected) {
			r.pauseIfLowMemory()
		}
	}
	return nil
}

// benchmarkCommit checks out one commit, prepares its toolchain and
// runs the timed command the configured number of times.
//
// Recoverable failures are stored in the commit result; a non-nil
// error aborts the whole walk.
func (r *runner) benchmarkCommit(i int, hash plumbing.Hash) (*CommitResult, error) {
	short, err := r.repo.ShortHash(hash)
	if err != nil {
		return nil, err
	}
	date, err := r.repo.CommitDate(hash)
	if err != nil {
		return nil, err
	}
	cr := &CommitResult{Hash: hash, Short: short, Date: date}

	r.progressf("[%d/%d] %s", i+1, len(r.selected), short)
	fmt.Fprintf(r.out, "commit %s (%s)\n", short, date)
	r.logger.TestStarted(short)
	defer r.logger.TestFinished(short)

	if err := r.repo.Checkout(hash.String()); err != nil {
		return cr, fmt.Errorf("checkout: %w", err)
	}
	env, err := r.syncToolchain()
	if err != nil {
		if errors.Is(err, timedcmd.ErrInterrupted) {
			return cr, err
		}
		return cr, fmt.Errorf("toolchain sync: %w", err)
	}

	if fileutil.FileExists(filepath.Join(r.conf.ProjectRoot, "Gemfile")) {
		if err := r.tc.InstallDeps(env); err != nil {
			if errors.Is(err, timedcmd.ErrInterrupted) {
				return cr, err
			}
			cr.Failure = fmt.Errorf("dependency install: %w", err)
			fmt.Fprintf(r.out, "  %v, skipping commit\n", cr.Failure)
			r.logger.TestFailed(short, cr.Failure.Error())
			return cr, nil
		}
	}

	for run := 1; run <= r.conf.Runs; run++ {
		result, err := r.timedRun(i, run, env)
		if err != nil {
			if errors.Is(err, timedcmd.ErrInterrupted) {
				return cr, err
			}
			cr.Failure = fmt.Errorf("run %d: %w", run, err)
			fmt.Fprintf(r.out, "  %v\n", cr.Failure)
			r.logger.TestFailed(short, cr.Failure.Error())
			break
		}
		sample := result.Time.Round(sampleRounding)
		cr.Times = append(cr.Times, sample)
		fmt.Fprintf(r.out, "  run %d/%d: %ss\n", run, r.conf.Runs, stats.Seconds(sample))
	}

	if len(cr.Times) == 0 {
		return cr, nil
	}

	cr.Stats = stats.FromDurations(cr.Times)
	row := results.Row{
		Revision: cr.Short,
		Date:     cr.Date,
		Median:   cr.Stats.Median,
		Min:      cr.Stats.Min,
		Max:      cr.Stats.Max,
	}
	if err := r.dir.AppendRow(row); err != nil {
		return cr, err
	}
	if err := r.dir.WriteSamples(cr.Short, cr.Times); err != nil {
		return cr, err
	}
	cr.Recorded = true
	fmt.Fprintf(r.out, "  %s\n", strings.Join(row.Columns(), "\t"))
	return cr, nil
}

// syncToolchain makes the ruby and bundler versions declared by the
// checked-out commit available and returns the env vars the commit's
// commands should run with.
func (r *runner) syncToolchain() ([]string, error) {
	required, err := rubyenv.RequiredRuby(r.conf.ProjectRoot)
	if err != nil {
		return nil, err
	}
	var env []string
	if required == "" {
		r.debugf("no ruby version declared, using the ambient one")
	} else {
		env = []string{"RBENV_VERSION=" + required}
		installed, err := r.tc.InstalledRubies()
		if err != nil {
			return nil, err
		}
		if !rubyenv.HasVersion(installed, required) {
			fmt.Fprintf(r.out, "  installing ruby %s\n", required)
			if err := r.tc.InstallRuby(required); err != nil {
				return nil, err
			}
			if err := r.tc.Rehash(); err != nil {
				return nil, err
			}
		}
	}

	// A bundler pin in the lock file is honored even when no ruby
	// version is declared.
	lock, err := rubyenv.ReadLockFile(r.conf.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if lock.BundlerVersion != "" {
		if err := r.tc.InstallBundler(lock.BundlerVersion, env); err != nil {
			return nil, err
		}
		if err := r.tc.Rehash(); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// timedRun executes the benchmarked command once, reporting elapsed
// time over the progress line while it runs.
func (r *runner) timedRun(i, run int, env []string) (*timedcmd.RunResult, error) {
	type runResult struct {
		result *timedcmd.RunResult
		err    error
	}
	ch := make(chan runResult, 1)
	go func() {
		result, err := r.session.Run(timedcmd.RunConfig{
			Argv:    r.conf.Command,
			Workdir: r.conf.ProjectRoot,
			Env:     env,
		})
		ch <- runResult{result, err}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case res := <-ch:
			return res.result, res.err
		case <-ticker.C:
			r.progressf("[%d/%d] run %d/%d: %v elapsed",
				i+1, len(r.selected), run, r.conf.Runs, time.Since(start).Round(time.Second))
		}
	}
}

func (r *runner) pauseIfLowMemory() {
	probe := r.conf.AvailableMemMB
	if probe == nil {
		probe = memprobe.AvailableMB
	}
	availMB, err := probe()
	if err != nil {
		log.Printf("WARNING: memory probe failed: %v", err)
		return
	}
	r.debugf("%d MB memory available", availMB)
	if availMB < lowMemoryThresholdMB {
		log.Printf("WARNING: only %d MB memory available, pausing for %v", availMB, lowMemoryPause)
		time.Sleep(lowMemoryPause)
	}
}

// finalize restores the original ref and prints the closing summary.
// It runs exactly once, on every exit path.
func (r *runner) finalize() {
	if r.sigChan != nil {
		signal.Stop(r.sigChan)
		close(r.sigChan)
	}

	if r.origRef != "" {
		if err := r.repo.Checkout(r.origRef); err != nil {
			log.Printf("WARNING: restore %s: %v", r.origRef, err)
		}
	}

	if r.dir == nil {
		return
	}

	if r.result.Interrupted || r.result.Attempted < len(r.selected) {
		fmt.Fprintf(r.out, "\ninterrupted after %d of %d commits, partial results:\n",
			r.result.Attempted, len(r.selected))
	} else {
		fmt.Fprintf(r.out, "\nbenchmarked %d commits:\n", len(r.selected))
	}

	rows, err := results.ReadTable(r.dir.TablePath())
	if err != nil || len(rows) <= 1 {
		fmt.Fprintf(r.out, "no commits were recorded\n")
	} else if err := results.RenderTable(r.out, rows); err != nil {
		log.Printf("WARNING: render results table: %v", err)
	}

	if failed := r.result.FailedCommits(); len(failed) > 0 {
		fmt.Fprintf(r.out, "failed commits: %s\n", strings.Join(failed, ", "))
	}
	fmt.Fprintf(r.out, "results saved to %s\n", r.dir.Path())

	if err := r.dir.Close(); err != nil {
		log.Printf("WARNING: close results dir: %v", err)
	}
}

func (r *runner) debugf(format string, args ...interface{}) {
	if r.conf.DebugPrint != nil {
		r.conf.DebugPrint(fmt.Sprintf(format, args...))
	}
}

func (r *runner) progressf(format string, args ...interface{}) {
	if r.conf.Progress != nil {
		r.conf.Progress(fmt.Sprintf(format, args...))
	}
}
