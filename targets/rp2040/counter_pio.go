//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program for free-running edge counting.
//
// The X register is preloaded with zero and decremented once per rising
// edge on the input pin, so the edge count is the two's complement of X.
// The program itself never pushes anything; the foreground snapshots the
// count by injecting "mov isr, x" and "push" through EXEC.
//
// Program flow:
//  1. Wait for the pin to go low
//  2. Wait for the pin to go high (rising edge)
//  3. Decrement X and loop
//
// buildCounterProgram creates the edge counter PIO program using AssemblerV0
func buildCounterProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Wait(0, rp2pio.WaitSrcPin, 0).Encode(), // 0: wait 0 pin 0
		asm.Wait(1, rp2pio.WaitSrcPin, 0).Encode(), // 1: wait 1 pin 0
		asm.Jmp(0, rp2pio.JmpXNZeroDec).Encode(),   // 2: jmp x--, 0
		// .wrap
	}
}

const counterPIOOrigin = 0 // Load at offset 0 for correct jump addresses

// PIOCounterBank implements core.CounterBank with one PIO state machine
// per channel, each counting rising edges on its pulse pin.
type PIOCounterBank struct {
	pio      *rp2pio.PIO
	sms      [len(pulsePins)]rp2pio.StateMachine
	channels int
	offset   uint8

	// EXEC instructions assembled once in Init
	movIsrX  uint16
	pushBlk  uint16
	movXNull uint16
}

// NewPIOCounterBank creates a counter bank on the given PIO block.
// pioNum: 0 for PIO0, 1 for PIO1
// channels: number of pulse inputs to count (1..3)
func NewPIOCounterBank(pioNum uint8, channels int) *PIOCounterBank {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	b := &PIOCounterBank{
		pio:      pioHW,
		channels: channels,
	}
	for ch := 0; ch < channels; ch++ {
		b.sms[ch] = pioHW.StateMachine(uint8(ch))
	}
	return b
}

// Init loads the counter program and starts one state machine per channel.
func (b *PIOCounterBank) Init() error {
	if b.channels < 1 || b.channels > len(pulsePins) {
		return errors.New("pio counter: bad channel count")
	}

	program := buildCounterProgram()
	offset, err := b.pio.AddProgram(program, counterPIOOrigin)
	if err != nil {
		return err
	}
	b.offset = offset

	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	b.movIsrX = asm.Mov(rp2pio.MovDestISR, rp2pio.MovSrcX).Encode()
	b.pushBlk = asm.Push(false, true).Encode()
	b.movXNull = asm.Mov(rp2pio.MovDestX, rp2pio.MovSrcNull).Encode()

	for ch := 0; ch < b.channels; ch++ {
		sm := b.sms[ch]
		pin := pulsePins[ch]

		sm.TryClaim()

		pin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

		cfg := rp2pio.DefaultStateMachineConfig()

		// The wait instructions index pins relative to the IN base
		cfg.SetInPins(pin)

		// Snapshots move X into the ISR whole, no shifting
		cfg.SetInShift(false, false, 32)

		// Configure wrap points (program is 3 instructions: 0-2)
		cfg.SetWrap(offset+uint8(len(program))-1, offset)

		// Full speed clock; the wait pair debounces nothing, edges
		// shorter than two PIO cycles are not expected from the detector
		cfg.SetClkDivIntFrac(1, 0)

		sm.Init(offset, cfg)

		// Preload X = 0 so the first edge makes it 0xFFFFFFFF
		sm.Exec(b.movXNull)

		sm.SetEnabled(true)
	}

	return nil
}

// Snapshot reads the edge count of one channel without stopping it.
// The count is the negated X register, truncated to the 16-bit range
// the accumulator works in.
func (b *PIOCounterBank) Snapshot(channel int) uint16 {
	sm := b.sms[channel]

	sm.Exec(b.movIsrX)
	sm.Exec(b.pushBlk)

	for sm.IsRxFIFOEmpty() {
		// Busy wait - should be very brief
	}
	count := -sm.RxGet()

	if count > 0xFFFF {
		return 0xFFFF
	}
	return uint16(count)
}

// SyncReset restarts all channels from zero. Callers hold interrupts
// disabled, so the per-channel loop is close enough to simultaneous for
// pulse rates the detector can produce.
func (b *PIOCounterBank) SyncReset() {
	for ch := 0; ch < b.channels; ch++ {
		b.sms[ch].SetEnabled(false)
	}
	for ch := 0; ch < b.channels; ch++ {
		sm := b.sms[ch]
		sm.ClearFIFOs()
		sm.Restart()
		sm.Exec(b.movXNull)
	}
	for ch := 0; ch < b.channels; ch++ {
		b.sms[ch].SetEnabled(true)
	}
}
