package monitor

import (
	"github.com/shopspring/decimal"
)

// State enumerates the lifecycle of the threshold watcher.
type State int

const (
	// StateUnconfigured means no limits have been received yet; evaluation is skipped.
	StateUnconfigured State = iota
	// StateArmed means limits are set and the last observed price was within them.
	StateArmed
	// StateAlerting means an out-of-range alert has been emitted and not yet cleared.
	StateAlerting
)

// String implements fmt.Stringer for log fields.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateArmed:
		return "armed"
	case StateAlerting:
		return "alerting"
	default:
		return "unknown"
	}
}

// Bounds is an inclusive price range.
type Bounds struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
}

// Contains reports whether price lies within the inclusive range.
func (b Bounds) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(b.Lower) && price.LessThanOrEqual(b.Upper)
}

// Outcome describes the effect of a single price evaluation.
type Outcome int

const (
	// OutcomeNone means no transition occurred.
	OutcomeNone Outcome = iota
	// OutcomeAlert means the price left the configured range; exactly one
	// alert must be dispatched for this breach episode.
	OutcomeAlert
	// OutcomeRecovered means the price returned within range after a breach.
	OutcomeRecovered
)

// Monitor holds the configured bounds and the alert hysteresis state. It is
// the only mutable domain state in the process and must only be driven from
// the control loop's single goroutine.
type Monitor struct {
	state  State
	bounds Bounds
}

// New returns an unconfigured monitor.
func New() *Monitor {
	return &Monitor{state: StateUnconfigured}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return m.state
}

// Bounds returns the configured limits; ok is false while unconfigured.
func (m *Monitor) Bounds() (Bounds, bool) {
	if m.state == StateUnconfigured {
		return Bounds{}, false
	}
	return m.bounds, true
}

// Configure replaces the limits and re-arms the monitor. Any pending breach
// episode is cleared, so the next out-of-range observation alerts again.
func (m *Monitor) Configure(b Bounds) {
	m.bounds = b
	m.state = StateArmed
}

// Evaluate feeds one observed price through the state machine. While
// unconfigured it is a no-op. An Armed monitor transitions to Alerting on the
// first out-of-range price; further out-of-range prices produce no outcome
// until the price returns within bounds.
func (m *Monitor) Evaluate(price decimal.Decimal) Outcome {
	switch m.state {
	case StateUnconfigured:
		return OutcomeNone
	case StateArmed:
		if !m.bounds.Contains(price) {
			m.state = StateAlerting
			return OutcomeAlert
		}
		return OutcomeNone
	case StateAlerting:
		if m.bounds.Contains(price) {
			m.state = StateArmed
			return OutcomeRecovered
		}
		return OutcomeNone
	default:
		return OutcomeNone
	}
}
