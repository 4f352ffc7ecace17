package compiler

import (
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/ajhcs/beacon/pkg/ir"
)

// Compiled is the fully compiled specification: the decoded IR, one NDA
// graph per protocol, and the deterministic hash identifying this exact
// spec version.
type Compiled struct {
	Spec   *ir.Spec
	Graphs map[string]*NdaGraph
	Hash   string
}

// Compile runs the full C2 pipeline against a raw spec document: CUE
// schema validation, JSON decode into pkg/ir types, structural and
// type/arity validation (multierr-aggregated, §7), and protocol-to-NDA
// graph lowering.
func Compile(rawJSON []byte, schema *SchemaValidator) (*Compiled, error) {
	if issues := schema.Validate(rawJSON); len(issues) > 0 {
		return nil, joinValidationErrors(issues)
	}

	var spec ir.Spec
	if err := json.Unmarshal(rawJSON, &spec); err != nil {
		return nil, fmt.Errorf("decoding spec: %w", err)
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}

	graphs := make(map[string]*NdaGraph, len(spec.Protocols))
	for name, protocol := range spec.Protocols {
		p := protocol
		graph, err := CompileProtocol(&p, spec.Protocols)
		if err != nil {
			return nil, fmt.Errorf("compiling protocol %q: %w", name, err)
		}
		graphs[name] = graph
	}

	hash, err := SpecHash(&spec)
	if err != nil {
		return nil, fmt.Errorf("hashing spec: %w", err)
	}

	return &Compiled{Spec: &spec, Graphs: graphs, Hash: hash}, nil
}

func joinValidationErrors(issues []*ValidationError) error {
	var errs error
	for _, issue := range issues {
		errs = multierr.Append(errs, issue)
	}
	return errs
}
