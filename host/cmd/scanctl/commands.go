package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPositionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "position",
		Short: "Report the head's current column",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			pos, err := c.Position()
			if err != nil {
				return err
			}
			cmd.Printf("%d\n", pos)
			return nil
		},
	}
}

func newHomeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Reset the head position to column zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()
			return c.ResetPosition()
		},
	}
}

func newArmCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "arm",
		Short: "Enable count accumulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()
			return c.Arm()
		},
	}
}

func newDisarmCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disarm",
		Short: "Disable count accumulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()
			return c.Disarm()
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report capture state, position and saturation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			st, err := c.Status()
			if err != nil {
				return err
			}

			state := "disarmed"
			if st.Armed {
				state = "armed"
			}
			cmd.Printf("state:    %s\n", state)
			cmd.Printf("position: %d\n", st.Position)
			if st.Clipped == 0 {
				cmd.Printf("clipped:  none\n")
			} else {
				var chs []string
				for ch := 0; ch < opts.cfg.Device.Channels; ch++ {
					if st.Clipped&(1<<ch) != 0 {
						chs = append(chs, fmt.Sprintf("channel %d", ch))
					}
				}
				cmd.Printf("clipped:  %s\n", strings.Join(chs, ", "))
			}
			return nil
		},
	}
}

func newReadCommand(opts *options) *cobra.Command {
	var channel, start, end int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read accumulated counts for a column range",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			if end < 0 {
				end = opts.cfg.Device.Columns - 1
			}
			vals, err := c.ReadRange(channel, start, end)
			if err != nil {
				return err
			}
			for i, v := range vals {
				if i > 0 {
					cmd.Printf(" ")
				}
				cmd.Printf("%d", v)
			}
			cmd.Printf("\n")
			return nil
		},
	}
	cmd.Flags().IntVar(&channel, "channel", 0, "Detector channel")
	cmd.Flags().IntVar(&start, "start", 0, "First column")
	cmd.Flags().IntVar(&end, "end", -1, "Last column (default: full range)")
	return cmd
}

func newClearCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset all count buffers to zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := connect(opts)
			if err != nil {
				return err
			}
			defer closer.Close()
			return c.ResetCounts()
		},
	}
}
