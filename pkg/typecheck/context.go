// Package typecheck type-checks and evaluates the expression language
// defined in pkg/ir against a specification's entity-type table, and
// provides the runtime value environment the model kernel evaluates
// predicates, guards, and effect values against.
package typecheck

import (
	"github.com/ajhcs/beacon/pkg/ir"
)

// FieldInfo describes one entity field's declared type.
type FieldInfo struct {
	Kind ir.FieldKind
}

// FunctionInfo describes one declared derived/observer function's
// signature.
type FunctionInfo struct {
	Classification ir.FnClassification
	Params         []string
	Returns        string
}

// Context is the type context a specification's predicates, guards, and
// derived/effect expressions are checked against: the entity field table,
// the refinement-to-base-entity map, and the function signature table.
type Context struct {
	Entities    map[string]map[string]FieldInfo
	Refinements map[string]string // refinement name -> base entity
	Functions   map[string]FunctionInfo
}

// FromSpec builds a Context from a decoded specification.
func FromSpec(spec *ir.Spec) *Context {
	entities := make(map[string]map[string]FieldInfo, len(spec.Entities))
	for name, entity := range spec.Entities {
		fields := make(map[string]FieldInfo, len(entity.Fields))
		for fname, fdef := range entity.Fields {
			fields[fname] = FieldInfo{Kind: fdef.Type}
		}
		entities[name] = fields
	}

	refinements := make(map[string]string, len(spec.Refinements))
	for name, r := range spec.Refinements {
		refinements[name] = r.Base
	}

	functions := make(map[string]FunctionInfo, len(spec.Functions))
	for name, f := range spec.Functions {
		params := make([]string, 0, len(f.Params))
		for _, p := range f.Params {
			params = append(params, p.Type)
		}
		functions[name] = FunctionInfo{
			Classification: f.Classification,
			Params:         params,
			Returns:        f.Returns,
		}
	}

	return &Context{Entities: entities, Refinements: refinements, Functions: functions}
}

// FieldType looks up the declared type of entity.field, reporting whether
// it exists.
func (c *Context) FieldType(entity, field string) (ir.FieldKind, bool) {
	fields, ok := c.Entities[entity]
	if !ok {
		return "", false
	}
	kind, ok := fields[field]
	return kind.Kind, ok
}
