package coordinator

import (
	"sort"

	"github.com/ajhcs/beacon/pkg/traversal"
)

// Coordinator folds signals into directives on an epoch boundary.
//
// Adaptation changes exploration policy, never the checked spec, and is
// deterministic given the same signal set regardless of which order
// concurrent workers happened to report them in — Coordinator re-sorts
// every pending batch by Seq, the sequence number assigned at enqueue,
// before folding it.
type Coordinator struct {
	config Config

	epoch             uint64
	pending           []traversal.Signal
	log               *DirectiveLog
	timeouts          *TimeoutTracker
	signalsFolded     uint64
	uncoveredBranches []string
}

// New returns a coordinator with no folded epochs yet.
func New(config Config) *Coordinator {
	return &Coordinator{
		config:   config,
		log:      NewDirectiveLog(),
		timeouts: NewTimeoutTracker(),
	}
}

// FeedSignal queues one signal. Once EpochSize signals have accumulated it
// folds the epoch and returns the resulting directives; otherwise it
// returns nil.
func (c *Coordinator) FeedSignal(sig traversal.Signal, weights *traversal.WeightTable, altBlockBranches [][]string) []Directive {
	c.pending = append(c.pending, sig)
	if uint32(len(c.pending)) >= c.config.EpochSize {
		return c.processEpoch(weights, altBlockBranches)
	}
	return nil
}

// Flush folds whatever signals are pending regardless of EpochSize, for use
// at campaign end so no trailing signal is lost.
func (c *Coordinator) Flush(weights *traversal.WeightTable, altBlockBranches [][]string) []Directive {
	if len(c.pending) == 0 {
		return nil
	}
	return c.processEpoch(weights, altBlockBranches)
}

func (c *Coordinator) processEpoch(weights *traversal.WeightTable, altBlockBranches [][]string) []Directive {
	signals := c.pending
	c.pending = nil

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Seq < signals[j].Seq
	})
	c.signalsFolded += uint64(len(signals))

	var directives []Directive
	for _, sig := range signals {
		for _, d := range c.mapSignalToDirectives(sig) {
			c.log.Record(d, sig.Kind, c.epoch)
			directives = append(directives, d)
		}
	}

	applyEpochDecay(weights, c.config.Decay)
	for _, block := range altBlockBranches {
		weights.Normalize(block, 0, 100.0)
	}
	enforceCoverageFloor(weights, c.uncoveredBranches, c.config.CoverageFloorThreshold)

	for _, d := range directives {
		c.applyDirective(d, weights)
	}

	c.epoch++
	return directives
}

func (c *Coordinator) mapSignalToDirectives(sig traversal.Signal) []Directive {
	switch sig.Kind {
	case traversal.SignalCoverageDelta:
		return []Directive{{
			Kind:       DirectiveAdjustWeight,
			BranchID:   sig.Action,
			Multiplier: c.config.CoverageBoost,
		}}

	case traversal.SignalPropertyViolation:
		return []Directive{{Kind: DirectiveForce, Action: sig.Property, Budget: c.config.ForceBudget}}

	case traversal.SignalDiscrepancy:
		return []Directive{{Kind: DirectiveForce, Action: sig.Action, Budget: c.config.ForceBudget}}

	case traversal.SignalCrash:
		return []Directive{
			{Kind: DirectiveForce, Action: sig.Action, Budget: c.config.ForceBudget * 2},
			{Kind: DirectiveAdjustWeight, BranchID: sig.Action, Multiplier: c.config.FindingBoost},
		}

	case traversal.SignalTimeout:
		d := c.timeouts.HandleTimeout(sig.Action, sig.FuelConsumed)
		if d == nil {
			return nil
		}
		return []Directive{*d}

	case traversal.SignalGuardFailure:
		branchID := sig.BranchID
		if branchID == "" {
			branchID = sig.Action
		}
		return []Directive{{
			Kind:       DirectiveAdjustWeight,
			BranchID:   branchID,
			Multiplier: c.config.GuardFailureDecay,
		}}

	case traversal.SignalCoveragePlateau:
		directives := make([]Directive, 0, len(c.uncoveredBranches))
		for _, branch := range c.uncoveredBranches {
			directives = append(directives, Directive{Kind: DirectiveForce, Action: branch, Budget: c.config.ForceBudget})
		}
		return directives
	}
	return nil
}

func (c *Coordinator) applyDirective(d Directive, weights *traversal.WeightTable) {
	switch d.Kind {
	case DirectiveAdjustWeight:
		weights.Adjust(d.BranchID, d.ModelStateHash, d.Multiplier, c.config.MaxWeight)
	case DirectivePermanentZero:
		weights.Set(d.BranchID, 0, 0.0)
	case DirectiveSkip:
		weights.Skip(d.BranchID, d.ModelStateHash)
	case DirectiveForce, DirectiveLoopLimit:
		// Handled by the strategy stack, not the weight table: the CLI run
		// command's applyExplorationDirectives pushes a matching strategy
		// when it sees these in the log.
	}
}

// SetUncoveredTargetBranches records which branches are known to reach
// still-uncovered targets, for coverage-floor enforcement and plateau
// response.
func (c *Coordinator) SetUncoveredTargetBranches(branches []string) {
	c.uncoveredBranches = branches
}

// Log returns the accumulated directive log for audit or replay.
func (c *Coordinator) Log() *DirectiveLog {
	return c.log
}

// Epoch returns the number of epochs folded so far.
func (c *Coordinator) Epoch() uint64 {
	return c.epoch
}

// SignalsFolded returns the total number of signals folded across every
// epoch.
func (c *Coordinator) SignalsFolded() uint64 {
	return c.signalsFolded
}
