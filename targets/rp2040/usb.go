//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
// TinyGo automatically sets up USB CDC-ACM on RP2040
func InitUSB() {
	// Configure machine.Serial (which is USB CDC on RP2040)
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}

	// Note: On RP2040, machine.Serial is actually USB CDC, not UART.
	// It satisfies gcode.Transport directly (Buffered/ReadByte/Write),
	// so the interpreter polls it without an adapter.
}
