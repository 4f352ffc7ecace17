package solver

import (
	"encoding/json"

	"github.com/ajhcs/beacon/pkg/typecheck"
)

// wireValue is TestVector's on-disk shape: typecheck.Value has no exported
// JSON tags of its own, so the cache needs its own encoding to round-trip
// through the pool.
type wireValue struct {
	Kind string `json:"kind"`
	B    bool   `json:"b,omitempty"`
	I    int64  `json:"i,omitempty"`
	S    string `json:"s,omitempty"`
}

func toWire(v typecheck.Value) wireValue {
	return wireValue{Kind: string(v.Kind), B: v.B, I: v.I, S: v.S}
}

func fromWire(w wireValue) typecheck.Value {
	return typecheck.Value{Kind: typecheck.ValueKind(w.Kind), B: w.B, I: w.I, S: w.S}
}

// MarshalJSON encodes a TestVector for the vector pool cache.
func (tv TestVector) MarshalJSON() ([]byte, error) {
	wire := make(map[string]wireValue, len(tv.Assignments))
	for k, v := range tv.Assignments {
		wire[k] = toWire(v)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a TestVector previously written by MarshalJSON.
func (tv *TestVector) UnmarshalJSON(data []byte) error {
	var wire map[string]wireValue
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	tv.Assignments = make(map[string]typecheck.Value, len(wire))
	for k, w := range wire {
		tv.Assignments[k] = fromWire(w)
	}
	return nil
}
