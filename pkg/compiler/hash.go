package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/ajhcs/beacon/pkg/ir"
)

// SpecHash deterministically fingerprints a decoded spec document as a
// 32-byte digest, hex-encoded. It is used to key a campaign's persisted
// findings and traversal state to the exact spec version that produced
// them, so content_hash carries enough collision resistance to stand as
// the join key across every persisted table that references it.
//
// Go map iteration order is randomized, so the spec's JSON re-encoding
// alone isn't stable across processes; each section is re-marshaled from
// a key-sorted slice before hashing to make the result reproducible.
func SpecHash(spec *ir.Spec) (string, error) {
	canonical, err := canonicalize(spec)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(spec *ir.Spec) ([]byte, error) {
	ordered := struct {
		Entities    []kv `json:"entities"`
		Refinements []kv `json:"refinements"`
		Functions   []kv `json:"functions"`
		Protocols   []kv `json:"protocols"`
		Effects     []kv `json:"effects"`
		Properties  []kv `json:"properties"`
		Generators  []kv `json:"generators"`
		Exploration ir.ExplorationConfig `json:"exploration"`
		Inputs      ir.InputSpace        `json:"inputs"`
		Bindings    ir.Bindings          `json:"bindings"`
	}{
		Entities:    sortedKV(spec.Entities),
		Refinements: sortedKV(spec.Refinements),
		Functions:   sortedKV(spec.Functions),
		Protocols:   sortedKV(spec.Protocols),
		Effects:     sortedKV(spec.Effects),
		Properties:  sortedKV(spec.Properties),
		Generators:  sortedKV(spec.Generators),
		Exploration: spec.Exploration,
		Inputs:      spec.Inputs,
		Bindings:    spec.Bindings,
	}
	return json.Marshal(ordered)
}

// kv is a sorted (key, value) pair used to make map-valued spec sections
// hash deterministically.
type kv struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func sortedKV[V any](m map[string]V) []kv {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kv, 0, len(m))
	for _, k := range keys {
		out = append(out, kv{Key: k, Value: m[k]})
	}
	return out
}
