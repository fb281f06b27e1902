package sim

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"time"

	"scancount/core"
	"scancount/gcode"
)

// Device is a complete simulated counter: engine, interpreter and fake
// hardware behind one mutex. On real hardware the interrupt priority
// model keeps event handlers and foreground command processing from
// interleaving; here the mutex plays that role, so injected events and
// command execution stay serialized.
type Device struct {
	mu   sync.Mutex
	eng  *core.Engine
	head *Head
	bank *Bank
}

// NewDevice builds a simulated device with the given geometry.
func NewDevice(columns, channels int, strategy core.Strategy) (*Device, error) {
	head := &Head{}
	bank := &Bank{}

	eng, err := core.NewEngine(core.EngineConfig{
		Columns:  columns,
		Channels: channels,
		Strategy: strategy,
		Dir:      head,
		Bank:     bank,
	})
	if err != nil {
		return nil, err
	}
	head.bind(eng)

	return &Device{eng: eng, head: head, bank: bank}, nil
}

// Engine exposes the underlying engine for direct inspection in tests.
func (d *Device) Engine() *core.Engine { return d.eng }

// Position returns the head position, serialized against command
// processing.
func (d *Device) Position() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.eng.Position())
}

// Step injects one step event with the given direction level.
func (d *Device) Step(forward bool) {
	d.mu.Lock()
	d.head.step(forward)
	d.mu.Unlock()
}

// Pulse injects n detector pulses on one channel. Under the edge
// strategy each pulse is an edge event; under the snapshot strategy the
// pulses land in the free-running counter and reach the buffers on the
// next step.
func (d *Device) Pulse(channel int, n int) {
	d.mu.Lock()
	if d.eng.Strategy() == core.StrategyEdge {
		for i := 0; i < n; i++ {
			d.eng.PulseEvent(channel)
		}
	} else {
		d.bank.Add(channel, uint16(n))
	}
	d.mu.Unlock()
}

// Serve processes the command stream from rw until EOF, writing
// responses back to it. Blocking; run concurrent event injection from
// other goroutines.
func (d *Device) Serve(rw io.ReadWriter) error {
	in := gcode.NewInterpreter(d.eng, rw)
	r := bufio.NewReader(rw)
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		d.mu.Lock()
		in.Feed(c)
		d.mu.Unlock()
	}
}

// Sweep drives the head back and forth across the full column range
// until stop closes, pausing stepInterval between steps and injecting
// rate[ch] pulses per channel per interval. Used by scansim to give the
// host something to acquire.
func (d *Device) Sweep(stop <-chan struct{}, stepInterval time.Duration, rates []int) {
	forward := true
	ticker := time.NewTicker(stepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		for ch := 0; ch < d.eng.Channels(); ch++ {
			rate := 1
			if ch < len(rates) {
				rate = rates[ch]
			}
			d.Pulse(ch, rate)
		}
		d.Step(forward)

		// Turn around at the ends of the track
		pos := d.Position()
		if pos == d.eng.Columns()-1 {
			forward = false
		} else if pos == 0 {
			forward = true
		}
	}
}
