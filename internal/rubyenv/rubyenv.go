// Package rubyenv drives rbenv, gem and bundler for the tree being
// benchmarked, keeping the active toolchain in sync with whatever the
// checked-out revision declares.
package rubyenv

import (
	"errors"
	"io"
	"strings"

	"github.com/benchtools/benchwalk/internal/timedcmd"
)

type Toolchain struct {
	ProjectRoot string

	RbenvBinary  string
	GemBinary    string
	BundleBinary string

	// Session runs every external command, so that an interrupt
	// reaches long installs (a ruby build can take minutes).
	Session *timedcmd.Session

	// Output receives install diagnostics.
	Output io.Writer
}

// InstalledRubies lists the versions rbenv has installed.
func (tc *Toolchain) InstalledRubies() ([]string, error) {
	result, err := tc.Session.Run(timedcmd.RunConfig{
		Argv:    []string{tc.RbenvBinary, "versions", "--bare"},
		Workdir: tc.ProjectRoot,
	})
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, line := range strings.Split(string(result.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			versions = append(versions, line)
		}
	}
	return versions, nil
}

// InstallRuby builds the requested ruby version. Build output is
// streamed to Output since the compile can run for a long time.
func (tc *Toolchain) InstallRuby(version string) error {
	_, err := tc.Session.Run(timedcmd.RunConfig{
		Argv:    []string{tc.RbenvBinary, "install", "-s", version},
		Workdir: tc.ProjectRoot,
		Stdout:  tc.Output,
		Stderr:  tc.Output,
	})
	return err
}

// Rehash refreshes the rbenv command shims after an install.
func (tc *Toolchain) Rehash() error {
	_, err := tc.Session.Run(timedcmd.RunConfig{
		Argv:    []string{tc.RbenvBinary, "rehash"},
		Workdir: tc.ProjectRoot,
	})
	return err
}

// InstallBundler installs the exact bundler version the lock file was
// produced with.
func (tc *Toolchain) InstallBundler(version string, env []string) error {
	_, err := tc.Session.Run(timedcmd.RunConfig{
		Argv:    []string{tc.GemBinary, "install", "bundler", "-v", version},
		Workdir: tc.ProjectRoot,
		Env:     env,
	})
	return err
}

// InstallDeps runs a quiet bundle install. On failure it reruns
// verbosely so the diagnostics land in the output stream, and still
// reports the original error.
func (tc *Toolchain) InstallDeps(env []string) error {
	_, err := tc.Session.Run(timedcmd.RunConfig{
		Argv:    []string{tc.BundleBinary, "install", "--quiet"},
		Workdir: tc.ProjectRoot,
		Env:     env,
	})
	if err == nil || errors.Is(err, timedcmd.ErrInterrupted) {
		return err
	}

	tc.Session.Run(timedcmd.RunConfig{
		Argv:    []string{tc.BundleBinary, "install"},
		Workdir: tc.ProjectRoot,
		Env:     env,
		Stdout:  tc.Output,
		Stderr:  tc.Output,
	})
	return err
}
