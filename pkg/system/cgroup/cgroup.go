//go:build linux

package cgroup

import (
	"fmt"
	"strings"

	"github.com/ja7ad/pseudofs/pkg/system/mountinfo"
)

type Version int

const (
	Unsupported Version = iota // non-Linux or no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Detect returns the detected cgroup version and a human-readable detail string.
//
// It scans /proc/self/mountinfo via mountinfo.Each looking for cgroup
// filesystems.
func Detect() (Version, string, error) {
	var (
		hasV1 bool
		hasV2 bool
		v1Pts []string
		v2Pts []string
	)
	err := mountinfo.Each(mountinfo.Path, func(e mountinfo.Entry) error {
		switch e.FSType {
		case "cgroup2":
			hasV2 = true
			v2Pts = append(v2Pts, e.MountPoint)
		case "cgroup":
			hasV1 = true
			v1Pts = append(v1Pts, e.MountPoint)
		}
		return nil
	})
	if err != nil {
		return Unsupported, "", err
	}

	switch {
	case hasV1 && hasV2:
		return Hybrid, fmt.Sprintf("cgroup2 on %v; cgroup v1 on %v",
			strings.Join(v2Pts, ","), strings.Join(v1Pts, ",")), nil
	case hasV2:
		return V2, fmt.Sprintf("cgroup2 on %v", strings.Join(v2Pts, ",")), nil
	case hasV1:
		return V1, fmt.Sprintf("cgroup v1 on %v", strings.Join(v1Pts, ",")), nil
	default:
		return Unsupported, "no cgroup mounts found", nil
	}
}

// MustDetect is a convenience that panics on error.
func MustDetect() Version {
	v, _, err := Detect()
	if err != nil {
		panic(err)
	}
	return v
}
