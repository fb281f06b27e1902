package core

// DirectionInput is the abstract interface to the head's direction signal.
// Platform-specific code supplies an implementation reading the real pin;
// the simulator supplies one backed by a variable.
type DirectionInput interface {
	// Forward reports whether the direction level selects forward motion.
	// Called from the step interrupt handler; must not block or allocate.
	Forward() bool
}

// CounterBank is the abstract interface to the free-running hardware
// counters behind the timer-snapshot capture strategy. Implementations
// wrap timer capture channels (or PIO state machines on RP2040).
type CounterBank interface {
	// Snapshot reads the current value of one channel's counter.
	// Called from the step interrupt handler; must not block or allocate.
	Snapshot(channel int) uint16

	// SyncReset zeroes every channel counter through a single
	// synchronized trigger. A per-channel reset is not acceptable:
	// counters cleared at different instants would attribute pulses
	// to the wrong column.
	SyncReset()
}
