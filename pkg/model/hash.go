package model

import (
	"encoding/json"
	"sort"

	"github.com/segmentio/fasthash/fnv1a"
)

// Hash computes the deterministic abstract-state-identity hash of s (§3
// "Abstract state identity"), used to key the traversal engine's
// state-conditioned weight table. It canonicalizes under a sorted
// ordering of entity types, instance ids, and field names before hashing,
// mirroring how the spec compiler canonicalizes the compiled document
// before computing its content hash.
func (s State) Hash() uint64 {
	canonical, err := json.Marshal(s.canonicalize())
	if err != nil {
		// Canonicalization marshals only the value kinds typecheck.Value
		// can hold; this cannot fail for a well-formed state.
		panic(err)
	}
	return fnv1a.HashBytes64(canonical)
}

type canonicalEntity struct {
	Type      string               `json:"type"`
	Instances []canonicalInstance `json:"instances"`
}

type canonicalInstance struct {
	ID     string          `json:"id"`
	Fields []canonicalField `json:"fields"`
}

type canonicalField struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s State) canonicalize() []canonicalEntity {
	entityTypes := s.EntityTypes()
	sort.Strings(entityTypes)

	out := make([]canonicalEntity, 0, len(entityTypes))
	for _, et := range entityTypes {
		instances := s.Instances(et)
		sort.Strings(instances)

		ce := canonicalEntity{Type: et, Instances: make([]canonicalInstance, 0, len(instances))}
		for _, inst := range instances {
			fields := s.Fields(inst)
			sort.Strings(fields)

			ci := canonicalInstance{ID: inst, Fields: make([]canonicalField, 0, len(fields))}
			for _, f := range fields {
				v, _ := s.Field(inst, f)
				ci.Fields = append(ci.Fields, canonicalField{
					Name:  f,
					Kind:  string(v.Kind),
					Value: v.String(),
				})
			}
			ce.Instances = append(ce.Instances, ci)
		}
		out = append(out, ce)
	}
	return out
}
