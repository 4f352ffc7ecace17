package traversal

// WeightKey identifies one cell of the state-conditioned weight table: a
// branch (alt-block edge id) paired with the abstract model state hash it
// was observed in. Weights are state-conditioned, not global — "branch B
// is unproductive when the model is in state S", never "branch B is
// unproductive everywhere".
type WeightKey struct {
	BranchID       string
	ModelStateHash uint64
}

// WeightTable maps (BranchID, ModelStateHash) -> weight. Defaults come from
// the protocol's declared per-branch weight and apply whenever no
// state-specific cell has been written yet.
type WeightTable struct {
	weights  map[WeightKey]float64
	defaults map[string]float64
}

// NewWeightTable returns an empty weight table.
func NewWeightTable() *WeightTable {
	return &WeightTable{
		weights:  make(map[WeightKey]float64),
		defaults: make(map[string]float64),
	}
}

// SetDefault records the protocol-declared default weight for a branch.
func (t *WeightTable) SetDefault(branchID string, weight float64) {
	t.defaults[branchID] = weight
}

// Get returns the weight for branchID in the given model state, falling
// back to the branch's default, and finally to 1.0 if neither was ever set.
func (t *WeightTable) Get(branchID string, modelStateHash uint64) float64 {
	key := WeightKey{BranchID: branchID, ModelStateHash: modelStateHash}
	if w, ok := t.weights[key]; ok {
		return w
	}
	if w, ok := t.defaults[branchID]; ok {
		return w
	}
	return 1.0
}

// Set writes a state-conditioned weight directly.
func (t *WeightTable) Set(branchID string, modelStateHash uint64, weight float64) {
	t.weights[WeightKey{BranchID: branchID, ModelStateHash: modelStateHash}] = weight
}

// Adjust multiplies the current weight of a cell by multiplier, clamped to
// [0, maxWeight] per the coordinator's adjust_weight directive.
func (t *WeightTable) Adjust(branchID string, modelStateHash uint64, multiplier, maxWeight float64) {
	current := t.Get(branchID, modelStateHash)
	next := current * multiplier
	if next < 0 {
		next = 0
	}
	if next > maxWeight {
		next = maxWeight
	}
	t.Set(branchID, modelStateHash, next)
}

// Skip zeroes a cell for the remainder of the campaign, per the
// coordinator's skip directive.
func (t *WeightTable) Skip(branchID string, modelStateHash uint64) {
	t.Set(branchID, modelStateHash, 0)
}

// Normalize rescales the weights of branchIDs sharing one alt block so they
// sum to targetSum in the given model state. A non-positive total is left
// untouched (there is nothing meaningful to rescale).
func (t *WeightTable) Normalize(branchIDs []string, modelStateHash uint64, targetSum float64) {
	var total float64
	for _, id := range branchIDs {
		total += t.Get(id, modelStateHash)
	}
	if total <= 0 {
		return
	}
	for _, id := range branchIDs {
		current := t.Get(id, modelStateHash)
		t.Set(id, modelStateHash, (current/total)*targetSum)
	}
}

// DecayAll applies per-epoch decay to every state-conditioned cell, so
// stale boosts from past epochs fade rather than accumulating forever.
func (t *WeightTable) DecayAll(factor float64) {
	for k, w := range t.weights {
		t.weights[k] = w * factor
	}
}

// ClampMin raises every state-conditioned cell below min up to min, except
// cells already at exactly zero — those are provably-unreachable branches
// (see PermanentZero) and stay suppressed regardless of decay floors.
func (t *WeightTable) ClampMin(min float64) {
	for k, w := range t.weights {
		if w == 0 {
			continue
		}
		if w < min {
			t.weights[k] = min
		}
	}
}

// Snapshot returns every state-conditioned cell currently written, for
// persisting a campaign's decayed weight table as the next campaign's
// seed against the same content hash. Branches still sitting on their
// protocol-declared default (never written via Set/Adjust/Skip) are not
// included — there is nothing state-specific to remember about them yet.
func (t *WeightTable) Snapshot() []WeightKey {
	keys := make([]WeightKey, 0, len(t.weights))
	for k := range t.weights {
		keys = append(keys, k)
	}
	return keys
}

// LoadCell seeds one state-conditioned cell directly, bypassing the
// default table — used to restore a persisted weight table snapshot at
// the start of a new campaign against the same content hash.
func (t *WeightTable) LoadCell(branchID string, modelStateHash uint64, weight float64) {
	t.weights[WeightKey{BranchID: branchID, ModelStateHash: modelStateHash}] = weight
}
