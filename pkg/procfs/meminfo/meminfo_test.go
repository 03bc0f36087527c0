//go:build linux

package meminfo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSchemaPassExample(t *testing.T) {
	const content = "MyVolume:   1234 kB\nMyCounter:   42\n"

	s := NewStore(Parser{}.Parse([]byte(content)))

	if len(s.fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(s.fields))
	}
	if s.fields[0].Label != "MyVolume" || s.fields[0].Kind != DataVolume {
		t.Fatalf("field 0 = %+v, want MyVolume/DataVolume", s.fields[0])
	}
	if s.fields[1].Label != "MyCounter" || s.fields[1].Kind != Counter {
		t.Fatalf("field 1 = %+v, want MyCounter/Counter", s.fields[1])
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.Push(Parser{}.Parse([]byte(content)))
	if s.Len() != 2 {
		t.Fatalf("Len() after push = %d, want 2", s.Len())
	}
	if got := uint64(s.fields[0].DataVolumes[0].KB()); got != 1234 {
		t.Fatalf("DataVolume = %d KiB, want 1234", got)
	}
	if s.fields[1].Counters[0] != 42 {
		t.Fatalf("Counter = %d, want 42", s.fields[1].Counters[0])
	}
}

func TestUnsupportedLabel(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte("NoColon 5\n")))
	if s.fields[0].Kind != Unsupported {
		t.Fatalf("Kind = %v, want Unsupported", s.fields[0].Kind)
	}
	if s.fields[0].Occurrences != 1 {
		t.Fatalf("Occurrences = %d, want 1", s.fields[0].Occurrences)
	}
	s.Push(Parser{}.Parse([]byte("NoColon 5\n")))
	if s.fields[0].Occurrences != 2 {
		t.Fatalf("Occurrences after push = %d, want 2", s.fields[0].Occurrences)
	}
}

func TestUnsupportedUnit(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte("Weird: 5 fathoms\n")))
	if s.fields[0].Kind != Unsupported {
		t.Fatalf("Kind = %v, want Unsupported for a non-kB unit", s.fields[0].Kind)
	}
}

func TestPushFewerRecordsPanics(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte("A: 1 kB\nB: 2\n")))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic: push had fewer records than schema")
		}
	}()
	s.Push(Parser{}.Parse([]byte("A: 1 kB\n")))
}

func TestPushLabelLengthMismatchPanics(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte("Same: 1\n")))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic: label length changed")
		}
	}()
	s.Push(Parser{}.Parse([]byte("Different: 1\n")))
}

func TestSamplerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meminfo")
	const content = "MyVolume:   1234 kB\nMyCounter:   42\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sm, err := New(path)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer sm.Close()

	if err := sm.Sample(); err != nil {
		t.Fatalf("Sample() error: %v", err)
	}
	if sm.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", sm.Len())
	}
}
