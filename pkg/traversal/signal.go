package traversal

import "github.com/ajhcs/beacon/pkg/compiler"

// SignalKind tags the seven signal shapes a traversal worker can emit.
type SignalKind string

const (
	SignalCoverageDelta     SignalKind = "coverage_delta"
	SignalPropertyViolation SignalKind = "property_violation"
	SignalDiscrepancy       SignalKind = "discrepancy"
	SignalCrash             SignalKind = "crash"
	SignalTimeout           SignalKind = "timeout"
	SignalGuardFailure      SignalKind = "guard_failure"
	SignalCoveragePlateau   SignalKind = "coverage_plateau"
)

// Signal is one event a traversal worker raises during a pass. Only the
// fields relevant to Kind are populated; the rest are left zero. Seq is
// assigned once the signal is enqueued toward the coordinator, not at
// emission time — a worker accumulates signals locally during a pass and
// has no global ordering to offer until they're merged (see pool.go).
type Signal struct {
	Seq       uint64
	ThreadID  uint32
	LocalStep uint64
	Kind      SignalKind

	NodeID   compiler.NodeID
	Action   string
	BranchID string

	Property string
	Details  string

	ModelValue    string
	ObservedValue string

	Message      string
	FuelConsumed *uint64

	CurrentCoverage float64
	DeltaRate       float64
}

// RawFinding is the traversal-internal record of a significant signal,
// before the findings component wraps it with a replay capsule. It names
// the trace step(s) involved so later capsule construction can slice the
// campaign trace. ModelStateHash stands in for the original's "model
// generation" counter — this port has no separate generation concept, and
// the abstract state hash already identifies the state at finding time.
type RawFinding struct {
	Signal         Signal
	TraceIndices   []int
	ModelStateHash uint64
}
