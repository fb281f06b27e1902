package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scancount/host/log"
	"scancount/host/scanner"
	"scancount/host/store"
)

func newScanCommand(opts *options) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a timed acquisition and archive the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			log.Info("acquiring for %s", duration)
			scan, err := c.Acquire(opts.cfg.Device.Channels, opts.cfg.Device.Columns, duration)
			if err != nil {
				return err
			}
			if scan.Clipped != 0 {
				log.Warning("acquisition saturated (clipped mask %#x); counts are clamped", scan.Clipped)
			}

			s, err := store.Open(opts.cfg.Host.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Put(scan); err != nil {
				return fmt.Errorf("failed to archive scan: %w", err)
			}

			cmd.Printf("archived scan %s (%d channels x %d columns)\n",
				scan.Taken.Format(time.RFC3339), len(scan.Channels), scan.Columns)
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "Acquisition length")
	return cmd
}

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(opts.cfg.Host.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()

			times, err := s.List()
			if err != nil {
				return err
			}
			for _, taken := range times {
				cmd.Printf("%s\n", taken.Format(time.RFC3339Nano))
			}
			return nil
		},
	}
}

func newExportCommand(opts *options) *cobra.Command {
	var at, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an archived scan as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(opts.cfg.Host.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()

			var scan *scanner.Scan
			if at == "" {
				scan, err = s.Latest()
			} else {
				var taken time.Time
				taken, err = time.Parse(time.RFC3339Nano, at)
				if err != nil {
					return fmt.Errorf("invalid --at timestamp: %w", err)
				}
				scan, err = s.Get(taken)
			}
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return writeCSV(out, scan)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Scan timestamp (RFC3339Nano; default: latest)")
	cmd.Flags().StringVar(&output, "output", "", "Output file (default: stdout)")
	return cmd
}

// writeCSV emits one row per column: column index followed by each
// channel's count.
func writeCSV(out io.Writer, scan *scanner.Scan) error {
	w := csv.NewWriter(out)

	header := []string{"column"}
	for ch := range scan.Channels {
		header = append(header, fmt.Sprintf("channel%d", ch))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(scan.Channels)+1)
	for col := 0; col < scan.Columns; col++ {
		row[0] = strconv.Itoa(col)
		for ch := range scan.Channels {
			row[ch+1] = strconv.FormatUint(uint64(scan.Channels[ch][col]), 10)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
