//go:build rp2040

package main

import "scancount/core"

// CaptureMode determines how this build captures detector pulses
type CaptureMode struct {
	Strategy core.Strategy
	Channels int
}

// GetCaptureMode returns the capture configuration for this build.
// Boards ship in both variants; pick the one matching the board being
// flashed.
func GetCaptureMode() CaptureMode {
	// Default: two-channel edge counting, matching the dosimeter head.
	// For boards whose detectors feed hardware counters, switch to:
	//   CaptureMode{Strategy: core.StrategySnapshot, Channels: 3}
	return CaptureMode{
		Strategy: core.StrategyEdge,
		Channels: 2,
	}
}
