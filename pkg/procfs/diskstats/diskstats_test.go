//go:build linux

package diskstats

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = "   8       0 sda 100 10 2000 500 50 5 1000 200 0 150 700\n" +
	"   8       1 sda1 90 9 1800 450 40 4 900 180 0 130 600\n"

func TestSchemaAndPush(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte(sample)))
	if len(s.devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(s.devices))
	}
	if s.devices[0].Device != (DeviceID{Major: 8, Minor: 0, Name: "sda"}) {
		t.Fatalf("device 0 = %+v", s.devices[0].Device)
	}
	if s.devices[0].TotalReadTime[0] != 500*time.Millisecond {
		t.Fatalf("TotalReadTime = %v, want 500ms", s.devices[0].TotalReadTime[0])
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.Push(Parser{}.Parse([]byte(sample)))
	if s.Len() != 2 {
		t.Fatalf("Len() after push = %d, want 2", s.Len())
	}
	if len(s.devices[0].CompletedReads) != 2 || s.devices[0].CompletedReads[1] != 100 {
		t.Fatalf("CompletedReads = %v", s.devices[0].CompletedReads)
	}
}

func TestHotPlugDetectedAsFatal(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte(sample)))

	renamed := "   8       0 sdb 100 10 2000 500 50 5 1000 200 0 150 700\n" +
		"   8       1 sda1 90 9 1800 450 40 4 900 180 0 130 600\n"

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on device identity change")
		}
	}()
	s.Push(Parser{}.Parse([]byte(renamed)))
}

func TestDeviceRemovedIsFatal(t *testing.T) {
	s := NewStore(Parser{}.Parse([]byte(sample)))

	oneDevice := "   8       0 sda 100 10 2000 500 50 5 1000 200 0 150 700\n"

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when a device disappears")
		}
	}()
	s.Push(Parser{}.Parse([]byte(oneDevice)))
}

func TestSamplerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diskstats")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
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
