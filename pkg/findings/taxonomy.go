package findings

import "github.com/ajhcs/beacon/pkg/traversal"

// Kind tags the six finding shapes a campaign can report.
type Kind string

const (
	KindInvariantViolation Kind = "invariant_violation"
	KindTemporalViolation  Kind = "temporal_violation"
	KindDiscrepancy        Kind = "discrepancy"
	KindGuestCrash         Kind = "guest_crash"
	KindDeadlineExceeded   Kind = "deadline_exceeded"
	KindSolverRefutedGuard Kind = "solver_refuted_guard"
)

// FromSignal maps the subset of traversal signal kinds that are
// significant enough to become a finding rather than mere telemetry.
// coverage_delta, guard_failure, and coverage_plateau steer exploration
// (see pkg/coordinator) but never name a finding on their own.
func FromSignal(kind traversal.SignalKind) (Kind, bool) {
	switch kind {
	case traversal.SignalPropertyViolation:
		return KindInvariantViolation, true
	case traversal.SignalDiscrepancy:
		return KindDiscrepancy, true
	case traversal.SignalCrash:
		return KindGuestCrash, true
	case traversal.SignalTimeout:
		return KindDeadlineExceeded, true
	default:
		return "", false
	}
}
