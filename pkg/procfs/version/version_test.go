package version

import (
	"errors"
	"testing"
)

func TestParseExample(t *testing.T) {
	const line = "Linux version 4.2.7 (gralouf@yolo) #1 Sat May 14 01:51:54 UTC 2048"
	v, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if v.Major != 4 || v.Minor != 2 || v.Bugfix != 7 {
		t.Fatalf("Parse() = %+v, want major=4 minor=2 bugfix=7", v)
	}
	if v.Flavour != "" {
		t.Fatalf("Parse() flavour = %q, want empty", v.Flavour)
	}
	if v.BuildInfo == "" {
		t.Fatal("Parse() build info should not be empty")
	}
}

func TestParseMissingBugfixDefaultsToZero(t *testing.T) {
	v, err := Parse("Linux version 3.16 (builder@host) #1 Fri Jan 1 00:00:00 UTC 2016")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Bugfix != 0 {
		t.Fatalf("Bugfix = %d, want 0", v.Bugfix)
	}
}

func TestParseWithFlavour(t *testing.T) {
	v, err := Parse("Linux version 5.15.0-generic (buildd@host) #1 SMP Thu Jan 1 00:00:00 UTC 2022")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Flavour != "generic" {
		t.Fatalf("Flavour = %q, want \"generic\"", v.Flavour)
	}
}

func TestParseNotLinux(t *testing.T) {
	_, err := Parse("Darwin Kernel Version 21.0.0")
	if !errors.Is(err, ErrNotLinux) {
		t.Fatalf("err = %v, want ErrNotLinux", err)
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("Linux something else entirely")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestGreaterEqAndSmaller(t *testing.T) {
	v := LinuxVersion{Major: 4, Minor: 2, Bugfix: 7}

	cases := []struct {
		maj, min, bug int
		wantGE        bool
	}{
		{4, 2, 7, true},
		{4, 2, 6, true},
		{4, 2, 8, false},
		{4, 1, 99, true},
		{4, 3, 0, false},
		{3, 99, 99, true},
		{5, 0, 0, false},
	}
	for _, c := range cases {
		ge := v.GreaterEq(c.maj, c.min, c.bug)
		if ge != c.wantGE {
			t.Errorf("GreaterEq(%d,%d,%d) = %v, want %v", c.maj, c.min, c.bug, ge, c.wantGE)
		}
		if v.Smaller(c.maj, c.min, c.bug) == ge {
			t.Errorf("Smaller(%d,%d,%d) should be the exact complement of GreaterEq", c.maj, c.min, c.bug)
		}
	}
}
