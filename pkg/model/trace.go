package model

import "github.com/ajhcs/beacon/pkg/typecheck"

// Outcome is the three-way result of a guest call at a terminal step
// (§4.4 "Response = { value | trap | out-of-fuel }").
type Outcome string

const (
	OutcomeValue    Outcome = "value"
	OutcomeTrap     Outcome = "trap"
	OutcomeOutOfFuel Outcome = "out_of_fuel"
)

// Completed reports whether the outcome reached an observed response.
// Temporal rules fire only on completed steps (§9 open question (c)): a
// fuel-exhausted call never appends from the model's point of view.
func (o Outcome) Completed() bool {
	return o == OutcomeValue || o == OutcomeTrap
}

// BoundEntity pairs an action's parameter name with the entity instance
// bound to it, in the action binding's declared argument order. Temporal
// scope resolution (§9 open question (b)) walks this slice to find the
// "first entity-typed argument".
type BoundEntity struct {
	Param    string
	Instance InstanceID
}

// TraceEntry is one appended step of a campaign's running trace (§3
// "Trace"). It carries its own before/after model state rather than an
// indirection through a separate snapshot store, so temporal checking can
// evaluate a rule's condition or consequence against any step without a
// lookup — traversal takes its own paired adapter snapshot separately when
// it needs a restorable point, which is a different concern.
type TraceEntry struct {
	Action   string
	Actor    InstanceID
	Entities []BoundEntity
	Vector   map[string]typecheck.Value
	Outcome  Outcome
	Before   State
	After    State
	Epoch    int64
	Step     uint64
}

// Trace is the ordered, append-only sequence of trace entries a single
// traversal has produced so far.
type Trace struct {
	Entries []TraceEntry
}

// Append adds entry to the end of the trace.
func (t *Trace) Append(entry TraceEntry) {
	t.Entries = append(t.Entries, entry)
}

// Len returns the number of entries currently in the trace.
func (t *Trace) Len() int { return len(t.Entries) }
