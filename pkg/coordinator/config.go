package coordinator

// Config bundles the tunables the coordinator uses to turn a folded batch
// of signals into directives.
type Config struct {
	// EpochSize is the number of signals collected before an epoch folds.
	EpochSize uint32
	// CoverageBoost multiplies the weight of a branch that yielded new
	// coverage.
	CoverageBoost float64
	// GuardFailureDecay multiplies the weight of a branch whose guard just
	// failed in this model state — a state-conditioned "don't bother here
	// again", not a global suppression.
	GuardFailureDecay float64
	// FindingBoost multiplies the weight of a branch that yielded a crash
	// or discrepancy, on top of the Force directive already investigating it.
	FindingBoost float64
	// ForceBudget is the default number of forced visits handed out per
	// investigation directive.
	ForceBudget uint32
	// CoverageFloorThreshold is the minimum fraction of the normalized
	// weight budget uncovered-target branches must retain.
	CoverageFloorThreshold float64
	// MaxWeight bounds any single AdjustWeight application.
	MaxWeight float64
	Decay     DecayConfig
}

// DefaultConfig mirrors the tuning the campaign runner has shipped with.
func DefaultConfig() Config {
	return Config{
		EpochSize:              100,
		CoverageBoost:          1.5,
		GuardFailureDecay:      0.5,
		FindingBoost:           2.0,
		ForceBudget:            10,
		CoverageFloorThreshold: 0.05,
		MaxWeight:              1000,
		Decay:                  DefaultDecayConfig(),
	}
}
