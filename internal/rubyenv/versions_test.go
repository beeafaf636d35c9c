package rubyenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleLock = `GEM
  remote: https://rubygems.org/
  specs:
    minitest (5.18.0)
    rake (13.0.6)

PLATFORMS
  arm64-darwin-22
  x86_64-linux

DEPENDENCIES
  minitest
  rake

RUBY VERSION
   ruby 3.2.2p53

BUNDLED WITH
   2.4.10
`

func TestParseLockFile(t *testing.T) {
	tests := []struct {
		name string
		data string
		want LockInfo
	}{
		{
			name: "full lock file",
			data: sampleLock,
			want: LockInfo{RubyVersion: "3.2.2", BundlerVersion: "2.4.10"},
		},
		{
			name: "no ruby section",
			data: "GEM\n  specs:\n\nBUNDLED WITH\n   2.1.4\n",
			want: LockInfo{BundlerVersion: "2.1.4"},
		},
		{
			name: "no bundled with section",
			data: "RUBY VERSION\n   ruby 2.7.8p225\n",
			want: LockInfo{RubyVersion: "2.7.8"},
		},
		{
			name: "empty section runs into next header",
			data: "RUBY VERSION\n\nBUNDLED WITH\n   2.4.10\n",
			want: LockInfo{BundlerVersion: "2.4.10"},
		},
		{
			name: "empty input",
			data: "",
			want: LockInfo{},
		},
		{
			name: "windows line endings",
			data: "RUBY VERSION\r\n   ruby 3.1.4p223\r\n\r\nBUNDLED WITH\r\n   2.3.26\r\n",
			want: LockInfo{RubyVersion: "3.1.4", BundlerVersion: "2.3.26"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			have := ParseLockFile([]byte(test.data))
			if diff := cmp.Diff(test.want, have); diff != "" {
				t.Errorf("lock info mismatches (-want +have):\n%s", diff)
			}
		})
	}
}

func TestRequiredRuby(t *testing.T) {
	writeFile := func(t *testing.T, dir, name, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0666); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("version pin wins over lock file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".ruby-version", "3.3.0\n")
		writeFile(t, dir, "Gemfile.lock", sampleLock)
		have, err := RequiredRuby(dir)
		if err != nil {
			t.Fatal(err)
		}
		if have != "3.3.0" {
			t.Errorf("have %q, want %q", have, "3.3.0")
		}
	})

	t.Run("lock file fallback", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "Gemfile.lock", sampleLock)
		have, err := RequiredRuby(dir)
		if err != nil {
			t.Fatal(err)
		}
		if have != "3.2.2" {
			t.Errorf("have %q, want %q", have, "3.2.2")
		}
	})

	t.Run("nothing declared", func(t *testing.T) {
		dir := t.TempDir()
		have, err := RequiredRuby(dir)
		if err != nil {
			t.Fatal(err)
		}
		if have != "" {
			t.Errorf("have %q, want empty", have)
		}
	})

	t.Run("blank pin falls back to lock file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ".ruby-version", "\n")
		writeFile(t, dir, "Gemfile.lock", sampleLock)
		have, err := RequiredRuby(dir)
		if err != nil {
			t.Fatal(err)
		}
		if have != "3.2.2" {
			t.Errorf("have %q, want %q", have, "3.2.2")
		}
	})
}

func TestSameVersion(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"3.2.2", "3.2.2", true},
		{"3.2", "3.2.0", true},
		{"3.2.2", "3.2.3", false},
		{"1.9.3p551", "1.9.3p551", true},
		{"1.9.3p551", "1.9.3", false},
		{"jruby-9.4.0.0", "jruby-9.4.0.0", true},
		{"jruby-9.4.0.0", "3.2.2", false},
	}

	for _, test := range tests {
		if have := SameVersion(test.a, test.b); have != test.want {
			t.Errorf("SameVersion(%q, %q): have %v, want %v", test.a, test.b, have, test.want)
		}
	}
}

func TestHasVersion(t *testing.T) {
	installed := []string{"2.7.8", "3.1.4", "3.2", "3.2.2", "jruby-9.4.0.0"}

	if !HasVersion(installed, "3.2.2") {
		t.Error("want 3.2.2 to be reported as installed")
	}
	if !HasVersion(installed, "3.2.0") {
		t.Error("want 3.2.0 to match installed 3.2")
	}
	if HasVersion(installed, "3.3.0") {
		t.Error("want 3.3.0 to be reported as missing")
	}
	if HasVersion(nil, "3.2.2") {
		t.Error("want empty install list to match nothing")
	}
}
