package traversal

import (
	"math/rand"

	"github.com/ajhcs/beacon/pkg/compiler"
)

// BranchDecision is a strategy's choice at an alt node.
type BranchDecision struct {
	BranchIndex int
	BranchID    string
	WeightUsed  float64
}

// RepeatDecision is a strategy's choice at a repeat node.
type RepeatDecision struct {
	Iterations uint32
}

// Strategy is the "brain" consulted at every branch and loop point. The
// engine itself is dumb pipes: it never second-guesses a strategy's
// decision or auto-resolves a guard failure.
type Strategy interface {
	// SelectBranch picks among eligible (guard-satisfied, nonzero-weight)
	// branches. Callers never pass an empty slice — an empty eligible set
	// is a guard-failure signal handled by the engine, not the strategy.
	SelectBranch(eligible []compiler.BranchEdge, modelStateHash uint64, weights *WeightTable) BranchDecision

	ChooseIterations(min, max uint32) RepeatDecision

	// Name identifies the strategy for tracing.
	Name() string
}

// PseudoRandomStrategy is the base strategy: weighted random branch
// selection and uniform random iteration counts, seeded for
// reproducibility. No seedable-PRNG crate equivalent to the original's
// ChaCha8 generator exists in the example corpus, so this is built on the
// standard library's math/rand, exactly as pkg/solver's StageRNG is.
type PseudoRandomStrategy struct {
	rng *rand.Rand
}

// NewPseudoRandomStrategy wraps an existing random source, so callers that
// need reproducible per-stage streams (see pkg/solver.StageRNG) can supply
// one instead of this strategy seeding its own.
func NewPseudoRandomStrategy(rng *rand.Rand) *PseudoRandomStrategy {
	return &PseudoRandomStrategy{rng: rng}
}

func (s *PseudoRandomStrategy) SelectBranch(eligible []compiler.BranchEdge, modelStateHash uint64, weights *WeightTable) BranchDecision {
	ws := make([]float64, len(eligible))
	var total float64
	for i, b := range eligible {
		w := weights.Get(b.ID, modelStateHash)
		if w < 0 {
			w = 0
		}
		ws[i] = w
		total += w
	}
	if total <= 0 {
		return BranchDecision{BranchIndex: 0, BranchID: eligible[0].ID, WeightUsed: 0}
	}

	roll := s.rng.Float64() * total
	for i, b := range eligible {
		roll -= ws[i]
		if roll <= 0 {
			return BranchDecision{BranchIndex: i, BranchID: b.ID, WeightUsed: ws[i]}
		}
	}
	last := len(eligible) - 1
	return BranchDecision{BranchIndex: last, BranchID: eligible[last].ID, WeightUsed: ws[last]}
}

func (s *PseudoRandomStrategy) ChooseIterations(min, max uint32) RepeatDecision {
	if min == max {
		return RepeatDecision{Iterations: min}
	}
	return RepeatDecision{Iterations: min + uint32(s.rng.Intn(int(max-min+1)))}
}

func (s *PseudoRandomStrategy) Name() string { return "pseudo_random" }

// TargetedStrategy biases selection toward a declared coverage goal: when
// the targeted branch is among the eligible set it is always taken;
// otherwise it falls back to the wrapped base strategy unchanged. This is
// the "bias toward a coverage goal" strategy spec.md's strategy stack
// names, layered on top of PseudoRandomStrategy the same way the
// coordinator's force/targeted directives layer on top of exploration.
type TargetedStrategy struct {
	base          Strategy
	targetBranch  string
}

// NewTargetedStrategy wraps base, biasing branch selection toward
// targetBranch whenever it appears among the eligible set.
func NewTargetedStrategy(base Strategy, targetBranch string) *TargetedStrategy {
	return &TargetedStrategy{base: base, targetBranch: targetBranch}
}

func (s *TargetedStrategy) SelectBranch(eligible []compiler.BranchEdge, modelStateHash uint64, weights *WeightTable) BranchDecision {
	for i, b := range eligible {
		if b.ID == s.targetBranch {
			return BranchDecision{BranchIndex: i, BranchID: b.ID, WeightUsed: weights.Get(b.ID, modelStateHash)}
		}
	}
	return s.base.SelectBranch(eligible, modelStateHash, weights)
}

func (s *TargetedStrategy) ChooseIterations(min, max uint32) RepeatDecision {
	return s.base.ChooseIterations(min, max)
}

func (s *TargetedStrategy) Name() string { return "targeted" }

// InvestigationStrategy focuses exploration on a reproducing finding's
// locality: a recorded sequence of branch choices is replayed in order,
// falling through to the base strategy once the recorded locality is
// exhausted (the engine has walked past the finding's neighborhood).
type InvestigationStrategy struct {
	base    Strategy
	locality []string
	pos     int
}

// NewInvestigationStrategy wraps base, preferring the branch ids in
// locality (in order) for as many branch decisions as locality has
// entries.
func NewInvestigationStrategy(base Strategy, locality []string) *InvestigationStrategy {
	return &InvestigationStrategy{base: base, locality: locality}
}

func (s *InvestigationStrategy) SelectBranch(eligible []compiler.BranchEdge, modelStateHash uint64, weights *WeightTable) BranchDecision {
	if s.pos < len(s.locality) {
		want := s.locality[s.pos]
		s.pos++
		for i, b := range eligible {
			if b.ID == want {
				return BranchDecision{BranchIndex: i, BranchID: b.ID, WeightUsed: weights.Get(b.ID, modelStateHash)}
			}
		}
	}
	return s.base.SelectBranch(eligible, modelStateHash, weights)
}

func (s *InvestigationStrategy) ChooseIterations(min, max uint32) RepeatDecision {
	return s.base.ChooseIterations(min, max)
}

func (s *InvestigationStrategy) Name() string { return "investigation" }

// ForceStrategy replays a fixed subsequence compiled from a coordinator
// force directive (spec.md §4.7 "force(sequence) — pushes a Force
// strategy that replays the given terminal sequence"). Once the forced
// sequence is exhausted it falls back to base for the remainder of its
// time on the stack.
type ForceStrategy struct {
	base     Strategy
	sequence []string
	pos      int
}

// NewForceStrategy wraps base, replaying sequence (one branch id per
// decision) before falling through.
func NewForceStrategy(base Strategy, sequence []string) *ForceStrategy {
	return &ForceStrategy{base: base, sequence: sequence}
}

func (s *ForceStrategy) SelectBranch(eligible []compiler.BranchEdge, modelStateHash uint64, weights *WeightTable) BranchDecision {
	if s.pos < len(s.sequence) {
		want := s.sequence[s.pos]
		s.pos++
		for i, b := range eligible {
			if b.ID == want {
				return BranchDecision{BranchIndex: i, BranchID: b.ID, WeightUsed: weights.Get(b.ID, modelStateHash)}
			}
		}
	}
	return s.base.SelectBranch(eligible, modelStateHash, weights)
}

func (s *ForceStrategy) ChooseIterations(min, max uint32) RepeatDecision {
	return s.base.ChooseIterations(min, max)
}

func (s *ForceStrategy) Name() string { return "force" }

// Exhausted reports whether the forced sequence has been fully replayed,
// so a caller can pop this strategy off the stack once it is spent.
func (s *ForceStrategy) Exhausted() bool { return s.pos >= len(s.sequence) }

// StrategyStack supports push/pop for nested strategy changes, bounded by
// a depth limit: pushing past the limit evicts the oldest non-base
// strategy rather than growing unboundedly.
type StrategyStack struct {
	stack      []Strategy
	depthLimit int
}

// NewStrategyStack seeds the stack with base, which is never popped.
func NewStrategyStack(base Strategy, depthLimit int) *StrategyStack {
	return &StrategyStack{stack: []Strategy{base}, depthLimit: depthLimit}
}

// Current returns the top-of-stack strategy.
func (s *StrategyStack) Current() Strategy {
	return s.stack[len(s.stack)-1]
}

// Push adds a new strategy on top. If the stack is already at its depth
// limit, the oldest non-base entry is evicted first.
func (s *StrategyStack) Push(strategy Strategy) {
	if len(s.stack) >= s.depthLimit && len(s.stack) > 1 {
		s.stack = append(s.stack[:1], s.stack[2:]...)
	}
	s.stack = append(s.stack, strategy)
}

// Pop removes the current strategy and returns to the previous one. The
// base strategy is never popped; Pop is a no-op when only it remains.
func (s *StrategyStack) Pop() Strategy {
	if len(s.stack) <= 1 {
		return nil
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top
}

// Depth returns the current stack depth.
func (s *StrategyStack) Depth() int { return len(s.stack) }
