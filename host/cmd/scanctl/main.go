// scanctl controls a scan-head counter from the host: state queries,
// arming, count readout and a local archive of completed acquisitions.
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scancount/config"
	"scancount/host/log"
	"scancount/host/scanner"
	"scancount/host/serial"
)

// options carries the persistent flag values shared by all subcommands.
type options struct {
	configPath string
	port       string
	dbPath     string
	logLevel   string

	cfg *config.Config
}

func main() {
	cmd := NewRootCommand(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "scanctl",
		Short:         "Control a scan-head event counter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.ErrOrStderr(), opts.logLevel); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.port != "" {
				cfg.Serial.Port = opts.port
			}
			if opts.dbPath != "" {
				cfg.Host.DBPath = opts.dbPath
			}
			opts.cfg = cfg
			return nil
		},
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "scancount.yaml", "Configuration file")
	cmd.PersistentFlags().StringVar(&opts.port, "port", "", "Serial device, or tcp:host:port for a simulator")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Scan archive database path")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level. "+log.HelpLevels)

	cmd.AddCommand(newPositionCommand(opts))
	cmd.AddCommand(newHomeCommand(opts))
	cmd.AddCommand(newArmCommand(opts))
	cmd.AddCommand(newDisarmCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newReadCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newScanCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newExportCommand(opts))

	return cmd
}

// connect opens the transport to the device: a serial port, or a TCP
// connection when the port is given as tcp:host:port (scansim).
func connect(opts *options) (*scanner.Client, io.Closer, error) {
	device := opts.cfg.Serial.Port

	if addr, found := strings.CutPrefix(device, "tcp:"); found {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to simulator %s: %w", addr, err)
		}
		log.Debug("connected to simulator at %s", addr)
		return scanner.NewClient(conn), conn, nil
	}

	port, err := serial.Open(&serial.Config{
		Device: device,
		Baud:   opts.cfg.Serial.Baud,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Debug("opened serial port %s", device)
	return scanner.NewClient(port), port, nil
}
