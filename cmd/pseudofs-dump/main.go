//go:build linux

// Command pseudofs-dump samples one procfs parser against the live
// kernel and prints how many columns each of its fields accumulated.
// It is a manual pipeline check, not a tool for consuming the
// accumulated samples themselves.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/pseudofs/pkg/procfs/diskstats"
	"github.com/ja7ad/pseudofs/pkg/procfs/meminfo"
	"github.com/ja7ad/pseudofs/pkg/procfs/stat"
	"github.com/ja7ad/pseudofs/pkg/procfs/uptime"
)

type opts struct {
	file     string
	samples  int
	interval time.Duration
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "pseudofs-dump",
		Short: "Sample one procfs parser and print its accumulated field lengths",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	root.Flags().StringVar(&o.file, "file", "stat", "which pseudo-file to sample: stat|meminfo|diskstats|uptime")
	root.Flags().IntVarP(&o.samples, "samples", "s", 5, "number of samples to collect")
	root.Flags().DurationVarP(&o.interval, "interval", "i", time.Second, "sampling interval")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(o opts) error {
	if o.samples < 1 {
		return fmt.Errorf("samples must be >= 1")
	}

	switch o.file {
	case "stat":
		return dumpStat(o)
	case "meminfo":
		return dumpMeminfo(o)
	case "diskstats":
		return dumpDiskstats(o)
	case "uptime":
		return dumpUptime(o)
	default:
		return fmt.Errorf("unknown --file %q: want stat|meminfo|diskstats|uptime", o.file)
	}
}

func dumpStat(o opts) error {
	s, err := stat.New(stat.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := takeSamples(o, s.Sample); err != nil {
		return err
	}

	st := s.Store()
	fmt.Printf("samples: %d\n", st.Len())
	fmt.Printf("cpu threads: %d\n", len(st.PerThread))
	fmt.Printf("context switches: %d\n", len(st.ContextSwitches))
	if st.Interrupts != nil {
		fmt.Printf("interrupt sources: %d\n", len(st.Interrupts.Sources))
	}
	return nil
}

func dumpMeminfo(o opts) error {
	s, err := meminfo.New(meminfo.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := takeSamples(o, s.Sample); err != nil {
		return err
	}

	st := s.Store()
	fmt.Printf("samples: %d\n", st.Len())
	fmt.Printf("fields: %d\n", len(st.Fields()))
	return nil
}

func dumpDiskstats(o opts) error {
	s, err := diskstats.New(diskstats.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := takeSamples(o, s.Sample); err != nil {
		return err
	}

	st := s.Store()
	fmt.Printf("samples: %d\n", st.Len())
	fmt.Printf("devices: %d\n", len(st.Devices()))
	return nil
}

func dumpUptime(o opts) error {
	s, err := uptime.New(uptime.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := takeSamples(o, s.Sample); err != nil {
		return err
	}

	st := s.Store()
	fmt.Printf("samples: %d\n", st.Len())
	return nil
}

func takeSamples(o opts, sample func() error) error {
	for i := 1; i < o.samples; i++ {
		time.Sleep(o.interval)
		if err := sample(); err != nil {
			return fmt.Errorf("sample %d: %w", i+1, err)
		}
	}
	return nil
}
