// Position-indexed count accumulation engine
// Column capacity, channel count and capture strategy are set at
// construction time, so one engine serves every board variant.
package core

import "errors"

const (
	// DefaultColumns is the buffer size matching the standard scan head
	// (maximum head offset in steps).
	DefaultColumns = 8000

	// MaxChannels is the largest supported detector channel count.
	MaxChannels = 3

	// MaxCount is the saturation ceiling of one column counter.
	MaxCount = 0xFFFF
)

// Strategy selects how detector pulses are captured into the buffers.
type Strategy uint8

const (
	// StrategyEdge counts discrete pulse edges: each channel has its own
	// edge interrupt which increments the column the head currently sits on.
	StrategyEdge Strategy = iota

	// StrategySnapshot reads free-running hardware counters on every step
	// event and folds the elapsed count into the column the head is leaving.
	StrategySnapshot
)

// Engine state errors. The command interpreter maps these to protocol
// error lines; hosts match on the text, so keep it stable.
var (
	ErrAlreadyActive = errors.New("counter is already active")
	ErrNotActive     = errors.New("counter is not active")
	ErrActive        = errors.New("counter is active")
	ErrBadChannel    = errors.New("invalid channel")
	ErrBadRange      = errors.New("invalid column range")
)

// EngineConfig describes one deployment of the counting engine.
type EngineConfig struct {
	Columns  int      // column capacity, DefaultColumns if zero
	Channels int      // detector channel count, 1..MaxChannels
	Strategy Strategy // capture strategy for this deployment
	Dir      DirectionInput
	Bank     CounterBank // required for StrategySnapshot, ignored otherwise
}

// Engine owns the position tracker, the per-channel count buffers and the
// armed/disarmed capture state. It is written by interrupt context
// (StepEvent, PulseEvent) and read/mutated by foreground context (all other
// methods); the foreground methods bracket their access with the step
// interrupt disabled where the two contexts can race.
type Engine struct {
	columns  int32
	channels int
	strategy Strategy
	dir      DirectionInput
	bank     CounterBank

	// Shared with interrupt context.
	position int32
	armed    bool
	clipped  uint8 // bit per channel, latched on first saturated column
	counts   [MaxChannels][]uint16
}

// NewEngine validates the configuration and allocates the count buffers.
// All allocation happens here, once, at startup; the event path is
// allocation-free.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Columns == 0 {
		cfg.Columns = DefaultColumns
	}
	if cfg.Columns < 1 {
		return nil, errors.New("column capacity must be positive")
	}
	if cfg.Channels < 1 || cfg.Channels > MaxChannels {
		return nil, errors.New("channel count must be 1.." + itoa(MaxChannels))
	}
	if cfg.Dir == nil {
		return nil, errors.New("direction input not configured")
	}
	if cfg.Strategy == StrategySnapshot && cfg.Bank == nil {
		return nil, errors.New("snapshot capture requires a counter bank")
	}

	e := &Engine{
		columns:  int32(cfg.Columns),
		channels: cfg.Channels,
		strategy: cfg.Strategy,
		dir:      cfg.Dir,
		bank:     cfg.Bank,
	}
	for ch := 0; ch < cfg.Channels; ch++ {
		e.counts[ch] = make([]uint16, cfg.Columns)
	}
	return e, nil
}

// Columns returns the configured column capacity.
func (e *Engine) Columns() int { return int(e.columns) }

// Channels returns the configured detector channel count.
func (e *Engine) Channels() int { return e.channels }

// Strategy returns the configured capture strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// StepEvent services one step edge. Interrupt context only.
//
// Under the snapshot strategy the channel counters are folded into the
// column the head is leaving, before the position advances, then all
// counters are cleared together so the next interval restarts from zero.
// Steps always move the position, armed or not.
func (e *Engine) StepEvent() {
	if e.armed && e.strategy == StrategySnapshot {
		pos := e.position
		for ch := 0; ch < e.channels; ch++ {
			e.accumulate(ch, pos, e.bank.Snapshot(ch))
		}
		e.bank.SyncReset()
	}

	if e.dir.Forward() {
		e.position++
	} else {
		e.position--
	}

	// A single step never exceeds the capacity, so one wrap correction
	// is enough.
	if e.position < 0 {
		e.position += e.columns
	}
	if e.position >= e.columns {
		e.position -= e.columns
	}
}

// PulseEvent services one detector pulse edge under the edge-counted
// strategy. Interrupt context only. A no-op while disarmed or for an
// unconfigured channel.
func (e *Engine) PulseEvent(channel int) {
	if !e.armed || e.strategy != StrategyEdge {
		return
	}
	if channel < 0 || channel >= e.channels {
		return
	}
	e.accumulate(channel, e.position, 1)
}

// accumulate adds n to one column, clamping at MaxCount. Saturation is
// silent on the wire but latched in the clipped mask so the host can
// discover that data was lost (see Status).
func (e *Engine) accumulate(ch int, pos int32, n uint16) {
	sum := uint32(e.counts[ch][pos]) + uint32(n)
	if sum > MaxCount {
		sum = MaxCount
		e.clipped |= 1 << uint(ch)
	}
	e.counts[ch][pos] = uint16(sum)
}

// Position returns the current head column. Foreground context.
func (e *Engine) Position() int32 {
	state := disableInterrupts()
	pos := e.position
	restoreInterrupts(state)
	return pos
}

// ResetPosition moves the origin back to column zero. Foreground context.
// Rejected while armed: moving the write index under a live accumulator
// would mis-attribute every later sample.
func (e *Engine) ResetPosition() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if e.armed {
		return ErrActive
	}
	e.position = 0
	return nil
}

// Arm enables capture. Foreground context. The counter bank is cleared
// before the armed flag is raised so the first snapshot reflects zero
// elapsed pulses; the interrupt guard makes the two a single transition.
func (e *Engine) Arm() error {
	state := disableInterrupts()
	if e.armed {
		restoreInterrupts(state)
		return ErrAlreadyActive
	}
	if e.strategy == StrategySnapshot {
		e.bank.SyncReset()
	}
	e.armed = true
	pos := e.position
	restoreInterrupts(state)

	DebugPrintln("capture armed at column " + itoa(int(pos)))
	return nil
}

// Disarm disables capture. Foreground context.
func (e *Engine) Disarm() error {
	state := disableInterrupts()
	if !e.armed {
		restoreInterrupts(state)
		return ErrNotActive
	}
	e.armed = false
	pos := e.position
	restoreInterrupts(state)

	DebugPrintln("capture disarmed at column " + itoa(int(pos)))
	return nil
}

// Armed reports the capture state. Foreground context.
func (e *Engine) Armed() bool {
	return e.armed
}

// CheckRead validates a read-range request against the geometry and the
// capture state without touching the buffers.
func (e *Engine) CheckRead(channel, start, end int) error {
	if channel < 0 || channel >= e.channels {
		return ErrBadChannel
	}
	if start < 0 || start >= int(e.columns) || end < 0 || end >= int(e.columns) || start > end {
		return ErrBadRange
	}
	if e.armed {
		return ErrActive
	}
	return nil
}

// ReadRange copies one channel's counts for columns start..end inclusive.
// Foreground context, disarmed only. While disarmed nothing writes the
// buffers (step events still move the position but touch no counts), so
// the copy needs no interrupt guard.
func (e *Engine) ReadRange(channel, start, end int) ([]uint16, error) {
	if err := e.CheckRead(channel, start, end); err != nil {
		return nil, err
	}
	out := make([]uint16, end-start+1)
	copy(out, e.counts[channel][start:end+1])
	return out, nil
}

// At returns one column's count. Foreground context, disarmed only; the
// interpreter streams large read-range payloads value by value through
// this instead of allocating a copy.
func (e *Engine) At(channel, column int) uint16 {
	return e.counts[channel][column]
}

// ResetCounts zeroes every channel's buffer and clears the clipped mask
// in one logical operation. Foreground context, disarmed only.
func (e *Engine) ResetCounts() error {
	if e.armed {
		return ErrActive
	}
	for ch := 0; ch < e.channels; ch++ {
		clear(e.counts[ch])
	}
	e.clipped = 0
	return nil
}

// Status is a consistent sample of the engine's observable state.
type Status struct {
	Armed    bool
	Position int32
	Clipped  uint8 // bit i set: channel i saturated since last counts reset
}

// Status captures armed state, position and the clipped mask under one
// interrupt guard. Foreground context, valid in any capture state.
func (e *Engine) Status() Status {
	state := disableInterrupts()
	s := Status{Armed: e.armed, Position: e.position, Clipped: e.clipped}
	restoreInterrupts(state)
	return s
}
