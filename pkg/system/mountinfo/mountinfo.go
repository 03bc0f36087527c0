//go:build linux

// Package mountinfo parses /proc/self/mountinfo, the procfs view of the
// current mount namespace. It exists so every cgroup-version detector
// in this module shares one tokenizer-based scan instead of each
// hand-rolling its own bufio.Scanner over the same file.
package mountinfo

import (
	"fmt"

	"github.com/ja7ad/pseudofs/pkg/procfs/reader"
	"github.com/ja7ad/pseudofs/pkg/procfs/tokenizer"
)

// Path is the pseudo-file this package reads.
const Path = "/proc/self/mountinfo"

// Entry is one line of /proc/self/mountinfo, reduced to the two fields
// every caller in this module needs.
//
// Per proc(5), a mountinfo line is a variable-length list of fields, a
// literal "-" separator, then fstype, mount source and super options.
// MountPoint is field 5 (index 4) of the part before the separator;
// FSType is the first field after it.
type Entry struct {
	MountPoint string
	FSType     string
}

// Each reads path and calls fn once per well-formed mount entry, in
// file order. It stops and returns fn's error at the first non-nil
// result.
func Each(path string, fn func(Entry) error) error {
	rd, err := reader.Open(path)
	if err != nil {
		return fmt.Errorf("open mountinfo: %w", err)
	}
	defer rd.Close()

	return rd.Sample(func(buf []byte) error {
		tok := tokenizer.New(buf)
		for tok.NextLine() {
			var fields [][]byte
			sepIdx := -1
			for {
				col, ok := tok.Next()
				if !ok {
					break
				}
				if sepIdx < 0 && len(col) == 1 && col[0] == '-' {
					sepIdx = len(fields)
				}
				fields = append(fields, col)
			}
			if sepIdx < 5 || sepIdx+1 >= len(fields) {
				continue
			}
			entry := Entry{
				MountPoint: string(fields[4]),
				FSType:     string(fields[sepIdx+1]),
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}
