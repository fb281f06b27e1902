// scansim runs the counter firmware core against a simulated scan head,
// serving the command protocol on stdio or a TCP listener so the host
// tools can be exercised without hardware.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"scancount/config"
	"scancount/host/log"
	"scancount/sim"
)

var (
	configPath   = flag.String("config", "scancount.yaml", "Configuration file")
	listen       = flag.String("listen", "", "TCP listen address (default: serve stdio)")
	sweep        = flag.Bool("sweep", false, "Drive the head back and forth with simulated pulses")
	stepInterval = flag.Duration("step-interval", time.Millisecond, "Simulated time between steps")
	rates        = flag.String("rates", "5,2", "Comma-separated pulses per step interval, one per channel")
	logLevel     = flag.String("log-level", "info", "Log level. "+log.HelpLevels)
)

func main() {
	flag.Parse()

	if err := log.Init(os.Stderr, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	dev, err := sim.NewDevice(cfg.Device.Columns, cfg.Device.Channels, cfg.Strategy())
	if err != nil {
		return err
	}
	log.Info("simulated device: %d columns, %d channels, %s capture",
		cfg.Device.Columns, cfg.Device.Channels, cfg.Device.Capture)

	if *sweep {
		pulseRates, err := parseRates(*rates)
		if err != nil {
			return err
		}
		stop := make(chan struct{})
		defer close(stop)
		go dev.Sweep(stop, *stepInterval, pulseRates)
		log.Info("sweep running: step every %s, rates %v", *stepInterval, pulseRates)
	}

	if *listen == "" {
		log.Info("serving on stdio")
		return dev.Serve(stdio{})
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info("listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		log.Info("host connected from %s", conn.RemoteAddr())
		if err := dev.Serve(conn); err != nil {
			log.Warning("connection error: %v", err)
		}
		conn.Close()
		log.Info("host disconnected")
	}
}

func parseRates(s string) ([]int, error) {
	var rates []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid pulse rate %q", field)
		}
		rates = append(rates, n)
	}
	return rates, nil
}

// stdio adapts the process's standard streams to io.ReadWriter
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
