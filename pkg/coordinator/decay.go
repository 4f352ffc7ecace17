package coordinator

import "github.com/ajhcs/beacon/pkg/traversal"

// DecayConfig controls per-epoch weight decay so exploration doesn't fixate
// on paths that happened to score well early on.
type DecayConfig struct {
	// GlobalDecay is applied to every state-conditioned weight each epoch.
	GlobalDecay float64
	// MinWeight is the floor decay clamps to. A branch set to exactly zero
	// by a PermanentZero directive is exempt — that's a proof, not a fade.
	MinWeight float64
}

// DefaultDecayConfig matches the values the campaign runner has shipped
// with historically: mild decay, a floor high enough that a branch can
// still be sampled occasionally.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{GlobalDecay: 0.95, MinWeight: 0.1}
}

func applyEpochDecay(weights *traversal.WeightTable, cfg DecayConfig) {
	weights.DecayAll(cfg.GlobalDecay)
	weights.ClampMin(cfg.MinWeight)
}

// enforceCoverageFloor boosts branches known to reach still-uncovered
// targets back up to threshold's share of a normalized 100-point budget,
// so a plateau doesn't starve the very branches that would break it.
func enforceCoverageFloor(weights *traversal.WeightTable, uncoveredBranches []string, threshold float64) {
	if len(uncoveredBranches) == 0 || threshold <= 0 {
		return
	}

	const totalBudget = 100.0
	floor := threshold * totalBudget

	var uncoveredTotal float64
	for _, b := range uncoveredBranches {
		uncoveredTotal += weights.Get(b, 0)
	}

	switch {
	case uncoveredTotal == 0:
		perBranch := floor / float64(len(uncoveredBranches))
		for _, b := range uncoveredBranches {
			weights.Set(b, 0, perBranch)
		}
	case uncoveredTotal < floor:
		boost := floor / uncoveredTotal
		for _, b := range uncoveredBranches {
			weights.Adjust(b, 0, boost, totalBudget)
		}
	}
}
