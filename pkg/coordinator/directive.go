package coordinator

import "github.com/ajhcs/beacon/pkg/traversal"

// DirectiveKind tags the vocabulary of exploration-policy changes a
// directive can carry. A directive never touches the spec or the
// constraints being checked, only how the engine explores the space.
type DirectiveKind string

const (
	DirectiveAdjustWeight  DirectiveKind = "adjust_weight"
	DirectiveForce         DirectiveKind = "force"
	DirectiveSkip          DirectiveKind = "skip"
	DirectiveLoopLimit     DirectiveKind = "loop_limit"
	DirectivePermanentZero DirectiveKind = "permanent_zero"
)

// ProofKind distinguishes how a PermanentZero directive was justified.
type ProofKind string

const (
	ProofStaticUnreachable ProofKind = "static_unreachable"
	ProofSolverUnsat       ProofKind = "solver_unsat"
)

// UnreachabilityProof accompanies a PermanentZero directive so the audit
// log can explain why a branch was permanently suppressed rather than
// merely decayed.
type UnreachabilityProof struct {
	Kind        ProofKind
	Description string
}

// Directive is one atomic exploration-policy change emitted by the
// coordinator. Only the fields relevant to Kind are populated.
type Directive struct {
	Kind DirectiveKind

	BranchID       string
	ModelStateHash uint64
	Multiplier     float64

	Action string
	Budget uint32

	Remaining uint32

	LoopNodeID uint32
	NewMin     uint32
	NewMax     uint32

	Proof UnreachabilityProof
}

// DirectiveEntry pairs a directive with the signal that triggered it and
// the epoch it was applied in, for audit and replay.
type DirectiveEntry struct {
	Directive   Directive
	TriggeredBy traversal.SignalKind
	Epoch       uint64
	Seq         uint64
}

// DirectiveLog accumulates every directive applied during a campaign in
// application order.
type DirectiveLog struct {
	entries []DirectiveEntry
	nextSeq uint64
}

// NewDirectiveLog returns an empty directive log.
func NewDirectiveLog() *DirectiveLog {
	return &DirectiveLog{}
}

// Record appends a directive to the log, assigning it the next sequence
// number.
func (l *DirectiveLog) Record(d Directive, triggeredBy traversal.SignalKind, epoch uint64) {
	l.entries = append(l.entries, DirectiveEntry{
		Directive:   d,
		TriggeredBy: triggeredBy,
		Epoch:       epoch,
		Seq:         l.nextSeq,
	})
	l.nextSeq++
}

// Entries returns every recorded directive, oldest first.
func (l *DirectiveLog) Entries() []DirectiveEntry {
	return l.entries
}

// Len returns the number of directives recorded so far.
func (l *DirectiveLog) Len() int {
	return len(l.entries)
}
