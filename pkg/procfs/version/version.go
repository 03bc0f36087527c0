// Package version parses /proc/version and exposes the kernel's
// (major, minor, bugfix) triple for comparison. It is a one-shot
// consumer of the reader contract: the kernel version never changes
// over the life of a process, so it is read once, lazily, and cached.
package version

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrNotLinux is returned when the contents of /proc/version do not
// even start with the literal "Linux" prefix every known kernel emits.
var ErrNotLinux = errors.New("version: does not start with \"Linux\"")

// ErrMalformed is returned when the input starts with "Linux" but does
// not otherwise match the expected "Linux version MAJOR.MINOR..." shape.
var ErrMalformed = errors.New("version: does not match the expected Linux version string")

var pattern = regexp.MustCompile(
	`^Linux version (?P<major>[1-9][0-9]*)\.(?P<minor>[0-9]+)` +
		`(?:\.(?P<bugfix>[0-9]+))?(?:-(?P<flavour>\S+))? (?P<build>.+)$`)

// LinuxVersion is the parsed form of a "Linux version ..." string.
type LinuxVersion struct {
	Major, Minor, Bugfix int
	// Flavour is the distro-specific suffix after a '-' in the version
	// number, if any (e.g. "generic" in "5.15.0-generic"). Empty when absent.
	Flavour   string
	BuildInfo string
}

// Parse parses an already-trimmed /proc/version line.
func Parse(trimmed string) (LinuxVersion, error) {
	if !strings.HasPrefix(trimmed, "Linux") {
		return LinuxVersion{}, ErrNotLinux
	}

	m := pattern.FindStringSubmatch(trimmed)
	if m == nil {
		return LinuxVersion{}, ErrMalformed
	}

	names := pattern.SubexpNames()
	group := func(name string) string {
		for i, n := range names {
			if n == name {
				return m[i]
			}
		}
		return ""
	}

	major, err := strconv.Atoi(group("major"))
	if err != nil {
		return LinuxVersion{}, fmt.Errorf("%w: bad major %q", ErrMalformed, group("major"))
	}
	minor, err := strconv.Atoi(group("minor"))
	if err != nil {
		return LinuxVersion{}, fmt.Errorf("%w: bad minor %q", ErrMalformed, group("minor"))
	}
	bugfix := 0
	if b := group("bugfix"); b != "" {
		bugfix, err = strconv.Atoi(b)
		if err != nil {
			return LinuxVersion{}, fmt.Errorf("%w: bad bugfix %q", ErrMalformed, b)
		}
	}

	return LinuxVersion{
		Major:     major,
		Minor:     minor,
		Bugfix:    bugfix,
		Flavour:   group("flavour"),
		BuildInfo: group("build"),
	}, nil
}

// GreaterEq reports whether v is lexicographically >= (major, minor, bugfix).
func (v LinuxVersion) GreaterEq(major, minor, bugfix int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Bugfix >= bugfix
}

// Smaller is the strict complement of GreaterEq.
func (v LinuxVersion) Smaller(major, minor, bugfix int) bool {
	return !v.GreaterEq(major, minor, bugfix)
}

var (
	once    sync.Once
	current LinuxVersion
	currErr error
)

// Current returns the running kernel's version, reading /proc/version
// exactly once per process and caching the result (and any error) for
// every subsequent call.
func Current() (LinuxVersion, error) {
	once.Do(func() {
		data, err := os.ReadFile("/proc/version")
		if err != nil {
			currErr = fmt.Errorf("version: reading /proc/version: %w", err)
			return
		}
		current, currErr = Parse(strings.TrimSpace(string(data)))
	})
	return current, currErr
}
