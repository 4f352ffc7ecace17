package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// specSchema is the CUE structural schema for the ten-section wire format.
// It checks shape (required top-level sections, required sub-fields) but
// deliberately does not attempt to validate the recursive expression
// grammar — that is pkg/typecheck's job, once the document has decoded
// into pkg/ir types.
const specSchema = `
entities: [string]: {
	fields: [string]: {
		type: "string" | "bool" | "int" | "enum" | "ref"
	}
}
refinements: [string]: {
	base:      string
	predicate: _
}
functions: [string]: {
	classification: "derived" | "observer"
	returns:        string
}
protocols: [string]: {
	root: _
}
effects: [string]: {
	sets: [...{target: [string, string]}] | *[]
}
properties: [string]: {
	type: "invariant" | "temporal"
}
generators: [string]: {
	sequence: [...{action: string}]
}
exploration: {
	weights: {
		scope:   string
		initial: string
		decay:   string
	}
	strategy: {
		initial:  string
		fallback: string
	}
	epoch_size:               int & >0
	coverage_floor_threshold: float & >=0 & <=1
	concurrency: {
		mode:    string
		threads: int & >0
	}
}
inputs: {
	domains: [string]: {
		type: "enum" | "bool" | "int"
	}
	coverage: {
		seed:         int
		reproducible: bool
	}
}
bindings: {
	runtime: string
	entry:   string
	actions: [string]: {
		function:   string
		mutates:    bool
		idempotent: bool
	}
}
`

// SchemaValidator validates a decoded spec document's raw JSON against the
// structural schema before any type/arity checking runs.
type SchemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewSchemaValidator compiles the embedded CUE schema once, for reuse
// across every spec document validated during a process lifetime.
func NewSchemaValidator() (*SchemaValidator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(specSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling spec schema: %w", err)
	}
	return &SchemaValidator{ctx: ctx, schema: schema}, nil
}

// Validate unifies rawJSON against the schema and returns every structural
// violation found, rather than stopping at the first.
func (v *SchemaValidator) Validate(rawJSON []byte) []*ValidationError {
	doc := v.ctx.CompileBytes(rawJSON)
	if err := doc.Err(); err != nil {
		return []*ValidationError{newValidationError("document", "", "invalid JSON: "+err.Error())}
	}

	unified := v.schema.Unify(doc)
	err := unified.Validate(cue.Concrete(false), cue.All())
	if err == nil {
		return nil
	}

	var out []*ValidationError
	for _, e := range cueerrors.Errors(err) {
		path := ""
		if p := e.Path(); len(p) > 0 {
			for i, seg := range p {
				if i > 0 {
					path += "."
				}
				path += seg
			}
		}
		out = append(out, newValidationError("schema", path, e.Error()))
	}
	return out
}
