package findings

import (
	"github.com/ajhcs/beacon/pkg/coordinator"
	"github.com/ajhcs/beacon/pkg/model"
)

// Capsule is the smallest artifact that reproduces a finding on a single
// thread: the compiled spec's content hash (so a stale capsule from a
// changed spec is detectable at replay time), the seed chain that
// produced the owning pass, the prefix of trace entries up to and
// including the violating step, the directive log entries applied before
// that step, and the abstract state hash the prefix started from.
type Capsule struct {
	SpecContentHash string
	SeedChain       []int64
	Prefix          []model.TraceEntry
	DirectivesUpTo  []coordinator.DirectiveEntry
	StartStateHash  uint64
}

// NewCapsule slices trace up to and including violatingStep (inclusive)
// and keeps only the directive log entries recorded at or before the
// epoch the violating step occurred in — directives applied later had no
// influence on producing this finding and would only make the capsule
// harder to reason about on replay.
func NewCapsule(specContentHash string, seedChain []int64, trace *model.Trace, violatingStep int, directives []coordinator.DirectiveEntry) Capsule {
	prefix := make([]model.TraceEntry, violatingStep+1)
	copy(prefix, trace.Entries[:violatingStep+1])

	var startHash uint64
	if len(prefix) > 0 {
		startHash = prefix[0].Before.Hash()
	}

	violatingEpoch := int64(0)
	if len(prefix) > 0 {
		violatingEpoch = prefix[len(prefix)-1].Epoch
	}
	var priorDirectives []coordinator.DirectiveEntry
	for _, d := range directives {
		if int64(d.Epoch) <= violatingEpoch {
			priorDirectives = append(priorDirectives, d)
		}
	}

	return Capsule{
		SpecContentHash: specContentHash,
		SeedChain:       seedChain,
		Prefix:          prefix,
		DirectivesUpTo:  priorDirectives,
		StartStateHash:  startHash,
	}
}
