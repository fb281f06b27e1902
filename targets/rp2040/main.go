//go:build rp2040

package main

import (
	"machine"
	"time"

	"scancount/core"
	"scancount/gcode"
)

// pinDirection adapts the direction input pin to core.DirectionInput
type pinDirection struct {
	pin machine.Pin
}

func (d pinDirection) Forward() bool { return d.pin.Get() }

var (
	eng    *core.Engine
	interp *gcode.Interpreter
)

func main() {
	InitUSB()

	mode := GetCaptureMode()
	configureInputs(mode)

	cfg := core.EngineConfig{
		Columns:  core.DefaultColumns,
		Channels: mode.Channels,
		Strategy: mode.Strategy,
		Dir:      pinDirection{counterDirPin},
	}

	if mode.Strategy == core.StrategySnapshot {
		// Free-running pulse counters in PIO; one synchronized restart
		// covers all channels
		bank := NewPIOCounterBank(0, mode.Channels)
		if err := bank.Init(); err != nil {
			// Without counters the snapshot build cannot run; report
			// forever so the fault is visible over USB
			for {
				machine.Serial.Write([]byte("error: counter bank init failed\r\n"))
				time.Sleep(time.Second)
			}
		}
		cfg.Bank = bank
	}

	var err error
	eng, err = core.NewEngine(cfg)
	if err != nil {
		panic(err)
	}

	interp = gcode.NewInterpreter(eng, machine.Serial)

	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s + "\r\n"))
	})

	attachInterrupts(mode)

	// The main loop only parses commands; counting and position tracking
	// run entirely in the pin interrupts.
	for {
		interp.Service(machine.Serial)

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}
