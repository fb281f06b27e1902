//go:build rp2040

package main

import (
	"machine"

	"scancount/core"
)

// Input pin assignment. The step and direction lines come from the
// externally driven head; the pulse lines carry detector edges in the
// edge-counted build (the snapshot build counts through PIO inputs
// instead, see counter_pio.go).
const (
	counterStepPin machine.Pin = 4
	counterDirPin  machine.Pin = 3

	counterPulse0Pin machine.Pin = 13
	counterPulse1Pin machine.Pin = 14
	counterPulse2Pin machine.Pin = 15
)

var pulsePins = [core.MaxChannels]machine.Pin{
	counterPulse0Pin,
	counterPulse1Pin,
	counterPulse2Pin,
}

// configureInputs sets up the signal pins for the selected capture mode
func configureInputs(mode CaptureMode) {
	inputCfg := machine.PinConfig{Mode: machine.PinInputPulldown}

	counterStepPin.Configure(inputCfg)
	counterDirPin.Configure(inputCfg)

	if mode.Strategy == core.StrategyEdge {
		for ch := 0; ch < mode.Channels; ch++ {
			pulsePins[ch].Configure(inputCfg)
		}
	}
}

// attachInterrupts wires the pin edges into the engine. The handlers
// must be top-level functions: TinyGo stores one handler per pin and
// the engine pointer is reached through the package global.
func attachInterrupts(mode CaptureMode) {
	counterStepPin.SetInterrupt(machine.PinRising, onStep)

	if mode.Strategy == core.StrategyEdge {
		if mode.Channels > 0 {
			counterPulse0Pin.SetInterrupt(machine.PinRising, onPulse0)
		}
		if mode.Channels > 1 {
			counterPulse1Pin.SetInterrupt(machine.PinRising, onPulse1)
		}
		if mode.Channels > 2 {
			counterPulse2Pin.SetInterrupt(machine.PinRising, onPulse2)
		}
	}
}

func onStep(machine.Pin)   { eng.StepEvent() }
func onPulse0(machine.Pin) { eng.PulseEvent(0) }
func onPulse1(machine.Pin) { eng.PulseEvent(1) }
func onPulse2(machine.Pin) { eng.PulseEvent(2) }
