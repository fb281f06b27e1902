package sim

import "scancount/core"

// Bank simulates the free-running channel counters behind the
// timer-snapshot strategy. Counters accumulate injected pulses
// continuously (wrapping like the hardware would) regardless of the
// engine's capture state.
type Bank struct {
	vals [core.MaxChannels]uint16
}

// Add injects n pulses into one channel's counter.
func (b *Bank) Add(channel int, n uint16) {
	b.vals[channel] += n
}

// Snapshot implements core.CounterBank.
func (b *Bank) Snapshot(channel int) uint16 {
	return b.vals[channel]
}

// SyncReset implements core.CounterBank: all channels clear together.
func (b *Bank) SyncReset() {
	for i := range b.vals {
		b.vals[i] = 0
	}
}
