package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-cmp/cmp"
)

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
	return string(out)
}

func initRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	mustGit(t, dir, "init", "-q", "-b", "main")
	mustGit(t, dir, "config", "user.email", "bench@example.com")
	mustGit(t, dir, "config", "user.name", "bench")
	mustGit(t, dir, "config", "commit.gpgsign", "false")
	return &Repo{Dir: dir}
}

func commit(t *testing.T, r *Repo, message string) plumbing.Hash {
	t.Helper()
	return commitFile(t, r, "file.txt", message)
}

func commitFile(t *testing.T, r *Repo, name, message string) plumbing.Hash {
	t.Helper()
	path := filepath.Join(r.Dir, name)
	if err := os.WriteFile(path, []byte(message+"\n"), 0666); err != nil {
		t.Fatal(err)
	}
	mustGit(t, r.Dir, "add", name)
	mustGit(t, r.Dir, "commit", "-q", "-m", message)
	h, err := r.Resolve("HEAD")
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestResolve(t *testing.T) {
	r := initRepo(t)
	c1 := commit(t, r, "one")

	head, err := r.Resolve("HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if head != c1 {
		t.Errorf("HEAD resolved to %s, want %s", head, c1)
	}

	short := c1.String()[:8]
	byShort, err := r.Resolve(short)
	if err != nil {
		t.Fatal(err)
	}
	if byShort != c1 {
		t.Errorf("short hash resolved to %s, want %s", byShort, c1)
	}

	if _, err := r.Resolve("no-such-revision"); err == nil {
		t.Error("want error for unresolvable revision, have nil")
	}
}

func TestFirstParentLog(t *testing.T) {
	r := initRepo(t)
	c1 := commit(t, r, "one")
	c2 := commit(t, r, "two")
	c3 := commit(t, r, "three")

	hashes, err := r.FirstParentLog(c3, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []plumbing.Hash{c3, c2, c1}
	if diff := cmp.Diff(want, hashes); diff != "" {
		t.Errorf("log mismatches (-want +have):\n%s", diff)
	}

	capped, err := r.FirstParentLog(c3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want[:2], capped); diff != "" {
		t.Errorf("capped log mismatches (-want +have):\n%s", diff)
	}
}

func TestFirstParentLogSkipsMergedBranch(t *testing.T) {
	r := initRepo(t)
	c1 := commit(t, r, "one")
	mustGit(t, r.Dir, "checkout", "-q", "-b", "side")
	commitFile(t, r, "side.txt", "side work")
	mustGit(t, r.Dir, "checkout", "-q", "main")
	c2 := commit(t, r, "two")
	mustGit(t, r.Dir, "merge", "-q", "--no-ff", "-m", "merge side", "side")
	mergeCommit, err := r.Resolve("HEAD")
	if err != nil {
		t.Fatal(err)
	}

	hashes, err := r.FirstParentLog(mergeCommit, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []plumbing.Hash{mergeCommit, c2, c1}
	if diff := cmp.Diff(want, hashes); diff != "" {
		t.Errorf("first-parent log should not visit the side branch (-want +have):\n%s", diff)
	}
}

func TestCurrentRefAndCheckout(t *testing.T) {
	r := initRepo(t)
	c1 := commit(t, r, "one")
	c2 := commit(t, r, "two")

	ref, err := r.CurrentRef()
	if err != nil {
		t.Fatal(err)
	}
	if ref != "main" {
		t.Errorf("current ref: have %q, want %q", ref, "main")
	}

	if err := r.Checkout(c1.String()); err != nil {
		t.Fatal(err)
	}
	detached, err := r.CurrentRef()
	if err != nil {
		t.Fatal(err)
	}
	if detached != c1.String() {
		t.Errorf("detached ref: have %q, want %q", detached, c1.String())
	}

	if err := r.Checkout("main"); err != nil {
		t.Fatal(err)
	}
	head, err := r.Resolve("HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if head != c2 {
		t.Errorf("after restore HEAD is %s, want %s", head, c2)
	}
}

func TestIsClean(t *testing.T) {
	r := initRepo(t)
	commit(t, r, "one")

	clean, err := r.IsClean()
	if err != nil {
		t.Fatal(err)
	}
	if !clean {
		t.Error("fresh checkout should be clean")
	}

	if err := os.WriteFile(filepath.Join(r.Dir, "file.txt"), []byte("dirty\n"), 0666); err != nil {
		t.Fatal(err)
	}
	clean, err = r.IsClean()
	if err != nil {
		t.Fatal(err)
	}
	if clean {
		t.Error("modified tracked file should make the tree dirty")
	}
}

func TestCommitDateAndShortHash(t *testing.T) {
	r := initRepo(t)
	c1 := commit(t, r, "one")

	date, err := r.CommitDate(c1)
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`).MatchString(date) {
		t.Errorf("commit date %q is not in YYYY-MM-DD form", date)
	}

	short, err := r.ShortHash(c1)
	if err != nil {
		t.Fatal(err)
	}
	if len(short) < 4 || len(short) >= len(c1.String()) {
		t.Errorf("short hash %q has unexpected length", short)
	}
	if c1.String()[:len(short)] != short {
		t.Errorf("short hash %q is not a prefix of %s", short, c1)
	}
}

func TestSelectStride(t *testing.T) {
	h := func(b byte) plumbing.Hash {
		var hash plumbing.Hash
		hash[0] = b
		return hash
	}
	all := []plumbing.Hash{h(0), h(1), h(2), h(3), h(4), h(5), h(6)}

	tests := []struct {
		name  string
		input []plumbing.Hash
		count int
		skip  int
		want  []plumbing.Hash
	}{
		{"skip zero takes first count", all, 3, 0, []plumbing.Hash{h(0), h(1), h(2)}},
		{"skip one takes every other", all, 3, 1, []plumbing.Hash{h(0), h(2), h(4)}},
		{"skip two", all, 3, 2, []plumbing.Hash{h(0), h(3), h(6)}},
		{"ancestry exhausted", all, 10, 2, []plumbing.Hash{h(0), h(3), h(6)}},
		{"count zero", all, 0, 1, nil},
		{"empty input", nil, 3, 0, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have := SelectStride(test.input, test.count, test.skip)
			if diff := cmp.Diff(test.want, have); diff != "" {
				t.Errorf("selection mismatches (-want +have):\n%s", diff)
			}
		})
	}
}
