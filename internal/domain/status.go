package domain

import "time"

// RequestID is the opaque, globally unique, printable handle minted at
// admission (spec.md §3). Backed by a UUID string.
type RequestID string

// State is one member of the Status state machine (spec.md §3, §4 diagram).
type State string

const (
	StateQueued       State = "queued"
	StatePlanning     State = "planning"
	StateExecuting    State = "executing"
	StateHandoffMacro State = "handoff_macro"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
	StateAborted      State = "aborted"
)

// IsTerminal reports whether state is one of succeeded|failed|aborted,
// mirroring core's TaskStatus.IsTerminal.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateAborted
}

// validTransitions encodes the state machine diagram in spec.md §4.
// A transition not present in this table is rejected by Status.Merge,
// enforcing "Status snapshots... respect the §4 state machine (no
// backward edges, no skips except the documented terminal absorptions)"
// (spec.md §8, invariant 3).
var validTransitions = map[State]map[State]bool{
	StateQueued:       {StatePlanning: true, StateExecuting: true, StateFailed: true, StateAborted: true},
	StatePlanning:     {StateExecuting: true, StateFailed: true, StateAborted: true},
	StateExecuting:    {StateExecuting: true, StateHandoffMacro: true, StateSucceeded: true, StateFailed: true, StateAborted: true},
	StateHandoffMacro: {StateSucceeded: true, StateFailed: true},
}

// canTransition reports whether moving from `from` to `to` is legal. A
// same-state transition (field-only patch, e.g. updated phase/confidence
// while remaining `executing`) is always legal.
func canTransition(from, to State) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	return validTransitions[from][to]
}

// Status is the mutable lifecycle record RequestStore owns, keyed by
// RequestID (spec.md §3). Field names mirror the wire schema in §6.
type Status struct {
	State      State
	Phase      *string
	Confidence *float64
	Message    string
	DurationMs *int64
}

// Patch is a field-wise update applied to a Status under the store's lock.
// A zero-value field means "leave unchanged" except State, which is
// always applied (patches always declare a target state).
type Patch struct {
	State      State
	Phase      *string
	Confidence *float64
	Message    string
	DurationMs *int64
}

// Merge applies patch on top of the current status, returning the new
// value and whether the merge was legal. It never mutates in place — the
// caller (RequestStore) decides whether to persist the result. Once
// Status.State is terminal no merge is accepted, enforcing the monotonic
// invariant from spec.md §3.
func (s Status) Merge(p Patch) (Status, bool) {
	if s.State.IsTerminal() {
		return s, false
	}
	if !canTransition(s.State, p.State) {
		return s, false
	}
	next := s
	next.State = p.State
	if p.Phase != nil {
		next.Phase = p.Phase
	}
	if p.Confidence != nil {
		next.Confidence = p.Confidence
	}
	if p.Message != "" {
		next.Message = p.Message
	}
	if p.DurationMs != nil {
		next.DurationMs = p.DurationMs
	}
	return next, true
}

// StrPtr and F64Ptr are small helpers for building Patch literals without
// scattering `new(string)`/local-variable-address idioms at every call
// site — the same convenience core.Task's optional *time.Time fields need.
func StrPtr(s string) *string     { return &s }
func F64Ptr(f float64) *float64   { return &f }
func I64Ptr(i int64) *int64       { return &i }

// NewQueuedStatus builds the initial Status a RequestStore.Create receives
// (spec.md §4.F: "initial.state = queued by convention").
func NewQueuedStatus(message string) Status {
	return Status{State: StateQueued, Message: message}
}

// Elapsed computes a duration_ms value for a terminal Status transition.
func Elapsed(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
