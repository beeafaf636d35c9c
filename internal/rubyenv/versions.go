package rubyenv

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// LockInfo carries the requirements parsed out of a Gemfile.lock.
type LockInfo struct {
	// RubyVersion comes from the RUBY VERSION section, e.g. "3.2.2".
	RubyVersion string
	// BundlerVersion comes from the BUNDLED WITH section, e.g. "2.4.10".
	BundlerVersion string
}

// RequiredRuby reports the ruby version the tree declares: the
// .ruby-version pin wins, the RUBY VERSION section of Gemfile.lock is
// the fallback. Empty when the tree declares neither.
func RequiredRuby(projectRoot string) (string, error) {
	data, err := os.ReadFile(filepath.Join(projectRoot, ".ruby-version"))
	switch {
	case err == nil:
		if v := parseVersionPin(data); v != "" {
			return v, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	lock, err := ReadLockFile(projectRoot)
	if err != nil {
		return "", err
	}
	return lock.RubyVersion, nil
}

// ReadLockFile parses the tree's Gemfile.lock. A missing lock file is
// not an error, it yields a zero LockInfo.
func ReadLockFile(projectRoot string) (LockInfo, error) {
	data, err := os.ReadFile(filepath.Join(projectRoot, "Gemfile.lock"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LockInfo{}, nil
		}
		return LockInfo{}, err
	}
	return ParseLockFile(data), nil
}

// Versions in the RUBY VERSION section look like "ruby 3.2.2p53"; the
// patch level suffix is not part of the rbenv version name.
var lockRubyRE = regexp.MustCompile(`ruby (\d+\.\d+\.\d+)`)

// ParseLockFile extracts the RUBY VERSION and BUNDLED WITH sections.
// Absent sections leave the corresponding field empty.
func ParseLockFile(data []byte) LockInfo {
	var info LockInfo
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		switch strings.TrimRight(line, " \t\r") {
		case "RUBY VERSION":
			if v := sectionValue(lines, i+1); v != "" {
				if m := lockRubyRE.FindStringSubmatch(v); m != nil {
					info.RubyVersion = m[1]
				}
			}
		case "BUNDLED WITH":
			info.BundlerVersion = sectionValue(lines, i+1)
		}
	}
	return info
}

// sectionValue returns the first indented line after a section
// header. An unindented line means the next section started.
func sectionValue(lines []string, from int) string {
	for _, line := range lines[from:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			return ""
		}
		return trimmed
	}
	return ""
}

// parseVersionPin reads a .ruby-version style file: the first
// non-blank line names the version.
func parseVersionPin(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// SameVersion compares two version strings, treating semver-shaped
// versions of different precision ("3.2" vs "3.2.0") as equal.
// Anything semver can't parse falls back to exact comparison.
func SameVersion(a, b string) bool {
	va := ensureVPrefix(a)
	vb := ensureVPrefix(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(semver.Canonical(va), semver.Canonical(vb)) == 0
	}
	return a == b
}

// HasVersion reports whether the installed version list satisfies
// required.
func HasVersion(installed []string, required string) bool {
	for _, v := range installed {
		if SameVersion(v, required) {
			return true
		}
	}
	return false
}

func ensureVPrefix(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		return "v" + version
	}
	return version
}
