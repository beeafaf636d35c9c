// Package gitrepo is a thin adapter over the git command line
// client, covering just the operations the benchmark walk needs.
package gitrepo

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

type Repo struct {
	Dir string
}

// run executes git with args inside the repository and returns the
// trimmed combined output. Failures carry that output.
func (r *Repo) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return trimmed, fmt.Errorf("git %s: %v: %s", strings.Join(args, " "), err, trimmed)
	}
	return trimmed, nil
}

// IsClean reports whether the working tree has no uncommitted changes
// to tracked files.
func (r *Repo) IsClean() (bool, error) {
	cmd := exec.Command("git", "diff-index", "--quiet", "HEAD", "--")
	cmd.Dir = r.Dir
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("git diff-index: %v", err)
}

// CurrentRef returns the checked-out branch name, or the HEAD commit
// hash when not on a branch, for restoring the checkout later.
func (r *Repo) CurrentRef() (string, error) {
	if ref, err := r.run("symbolic-ref", "-q", "--short", "HEAD"); err == nil {
		return ref, nil
	}
	return r.run("rev-parse", "--verify", "HEAD")
}

// Resolve validates rev and resolves it to a commit hash.
func (r *Repo) Resolve(rev string) (plumbing.Hash, error) {
	out, err := r.run("rev-parse", "--verify", rev+"^{commit}")
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return plumbing.NewHash(out), nil
}

// FirstParentLog lists up to n ancestors of start, most recent first,
// walking only first parents so merged-in side branches are not
// visited. start itself is the first entry.
func (r *Repo) FirstParentLog(start plumbing.Hash, n int) ([]plumbing.Hash, error) {
	out, err := r.run("log", "--first-parent", "--pretty=format:%H", "-n", strconv.Itoa(n), start.String())
	if err != nil {
		return nil, err
	}
	var hashes []plumbing.Hash
	for _, field := range strings.Fields(out) {
		hashes = append(hashes, plumbing.NewHash(field))
	}
	return hashes, nil
}

// Checkout moves the working tree to the given revision.
func (r *Repo) Checkout(rev string) error {
	_, err := r.run("checkout", "-q", rev, "--")
	return err
}

// CommitDate returns the committer date of h in short form
// (YYYY-MM-DD).
func (r *Repo) CommitDate(h plumbing.Hash) (string, error) {
	return r.run("show", "-s", "--format=%cs", h.String())
}

// ShortHash returns the abbreviated unambiguous form of h.
func (r *Repo) ShortHash(h plumbing.Hash) (string, error) {
	return r.run("rev-parse", "--short", h.String())
}

// SelectStride picks every (skip+1)-th entry, up to count entries.
// The first entry is always eligible, so selection order matches the
// input order.
func SelectStride(hashes []plumbing.Hash, count, skip int) []plumbing.Hash {
	var selected []plumbing.Hash
	for i := 0; i < len(hashes) && len(selected) < count; i += skip + 1 {
		selected = append(selected, hashes[i])
	}
	return selected
}
