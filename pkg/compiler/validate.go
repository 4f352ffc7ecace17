package compiler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

var structValidate = validator.New()

// Validate runs every structural and semantic check against a decoded
// spec, aggregating every error it finds via multierr instead of
// stopping at the first (§7).
func Validate(spec *ir.Spec) error {
	var errs error

	errs = multierr.Append(errs, validateEntityRefs(spec))
	actions := collectActionsUsed(spec)
	errs = multierr.Append(errs, validateActionsHaveEffectsAndBindings(spec, actions))
	errs = multierr.Append(errs, validateProtocolRefs(spec))
	errs = multierr.Append(errs, validateProtocolStructure(spec))
	errs = multierr.Append(errs, validateExpressions(spec))
	errs = multierr.Append(errs, validateExplorationConfig(spec))

	return errs
}

// validateExplorationConfig struct-validates the exploration section:
// required sub-blocks present, epoch size nonzero, coverage floor in
// [0,1]. This is separate from validateExpressions because it's checking
// the shape of a config block, not a predicate tree.
func validateExplorationConfig(spec *ir.Spec) error {
	if err := structValidate.Struct(spec.Exploration); err != nil {
		return newValidationError("exploration", "", err.Error())
	}
	return nil
}

// validateEntityRefs checks that every refinement's base type references a
// declared entity.
func validateEntityRefs(spec *ir.Spec) error {
	var errs error
	for name, refinement := range spec.Refinements {
		if _, ok := spec.Entities[refinement.Base]; !ok {
			errs = multierr.Append(errs, newValidationError("refinements", name,
				fmt.Sprintf("references entity %q which doesn't exist", refinement.Base)))
		}
	}
	return errs
}

// collectActionsUsed walks every protocol's tree and returns the set of
// action names reachable from a call node.
func collectActionsUsed(spec *ir.Spec) map[string]bool {
	actions := map[string]bool{}
	for _, p := range spec.Protocols {
		collectActions(&p.Root, actions)
	}
	return actions
}

func collectActions(node *ir.ProtocolNode, actions map[string]bool) {
	switch node.Type {
	case ir.NodeCall:
		actions[node.Action] = true
	case ir.NodeSeq:
		for i := range node.Children {
			collectActions(&node.Children[i], actions)
		}
	case ir.NodeAlt:
		for i := range node.Branches {
			collectActions(&node.Branches[i].Body, actions)
		}
	case ir.NodeRepeat:
		collectActions(node.Body, actions)
	case ir.NodeRef:
		// resolved separately; refs don't directly name actions
	}
}

func validateActionsHaveEffectsAndBindings(spec *ir.Spec, actions map[string]bool) error {
	var errs error
	for action := range actions {
		if _, ok := spec.Effects[action]; !ok {
			errs = multierr.Append(errs, newValidationError("protocols", action,
				"used in protocol but no effect defined"))
		}
		if _, ok := spec.Bindings.Actions[action]; !ok {
			errs = multierr.Append(errs, newValidationError("bindings", action,
				"used in protocol but no binding defined"))
		}
	}
	return errs
}

func validateProtocolRefs(spec *ir.Spec) error {
	var errs error
	for name, p := range spec.Protocols {
		errs = multierr.Append(errs, collectRefErrors(&p.Root, name, spec.Protocols))
	}
	return errs
}

func collectRefErrors(node *ir.ProtocolNode, from string, protocols map[string]ir.Protocol) error {
	var errs error
	switch node.Type {
	case ir.NodeRef:
		if _, ok := protocols[node.ProtocolRef]; !ok {
			errs = multierr.Append(errs, newValidationError("protocols", from,
				fmt.Sprintf("references protocol %q which doesn't exist", node.ProtocolRef)))
		}
	case ir.NodeSeq:
		for i := range node.Children {
			errs = multierr.Append(errs, collectRefErrors(&node.Children[i], from, protocols))
		}
	case ir.NodeAlt:
		for i := range node.Branches {
			errs = multierr.Append(errs, collectRefErrors(&node.Branches[i].Body, from, protocols))
		}
	case ir.NodeRepeat:
		errs = multierr.Append(errs, collectRefErrors(node.Body, from, protocols))
	}
	return errs
}

func validateProtocolStructure(spec *ir.Spec) error {
	var errs error
	for name, p := range spec.Protocols {
		errs = multierr.Append(errs, checkStructure(&p.Root, name))
	}
	return errs
}

func checkStructure(node *ir.ProtocolNode, protoName string) error {
	var errs error
	switch node.Type {
	case ir.NodeAlt:
		if len(node.Branches) > 0 {
			allZero := true
			for _, b := range node.Branches {
				if b.Weight != 0 {
					allZero = false
					break
				}
			}
			if allZero {
				errs = multierr.Append(errs, newValidationError("protocols", protoName, "all zero weights in alt block"))
			}
		}
		for i := range node.Branches {
			errs = multierr.Append(errs, checkStructure(&node.Branches[i].Body, protoName))
		}
	case ir.NodeRepeat:
		if node.Min > node.Max {
			errs = multierr.Append(errs, newValidationError("protocols", protoName,
				fmt.Sprintf("invalid repeat bounds: min (%d) > max (%d)", node.Min, node.Max)))
		}
		errs = multierr.Append(errs, checkStructure(node.Body, protoName))
	case ir.NodeSeq:
		for i := range node.Children {
			errs = multierr.Append(errs, checkStructure(&node.Children[i], protoName))
		}
	}
	return errs
}

// validateExpressions type/arity-checks every predicate, guard, and
// refinement expression in the spec against its entity-type context (C1).
func validateExpressions(spec *ir.Spec) error {
	ctx := typecheck.FromSpec(spec)
	var errs error

	for name, r := range spec.Refinements {
		if err := ctx.Check(&r.Predicate); err != nil {
			errs = multierr.Append(errs, newValidationError("refinements", name, err.Error()))
		}
	}
	for name, f := range spec.Functions {
		if f.Body != nil {
			if err := ctx.Check(f.Body); err != nil {
				errs = multierr.Append(errs, newValidationError("functions", name, err.Error()))
			}
		}
	}
	for name, p := range spec.Properties {
		if p.Predicate != nil {
			if err := ctx.Check(p.Predicate); err != nil {
				errs = multierr.Append(errs, newValidationError("properties", name, err.Error()))
			}
		}
	}
	for name, proto := range spec.Protocols {
		errs = multierr.Append(errs, checkGuards(&proto.Root, ctx, name))
	}
	for i := range spec.Inputs.Constraints {
		c := &spec.Inputs.Constraints[i]
		if err := ctx.Check(&c.Rule); err != nil {
			errs = multierr.Append(errs, newValidationError("inputs.constraints", c.Name, err.Error()))
		}
	}
	return errs
}

func checkGuards(node *ir.ProtocolNode, ctx *typecheck.Context, protoName string) error {
	var errs error
	switch node.Type {
	case ir.NodeAlt:
		for i := range node.Branches {
			b := &node.Branches[i]
			if b.Guard != nil {
				if err := ctx.Check(b.Guard); err != nil {
					errs = multierr.Append(errs, newValidationError("protocols", protoName+"."+b.ID, err.Error()))
				}
			}
			errs = multierr.Append(errs, checkGuards(&b.Body, ctx, protoName))
		}
	case ir.NodeSeq:
		for i := range node.Children {
			errs = multierr.Append(errs, checkGuards(&node.Children[i], ctx, protoName))
		}
	case ir.NodeRepeat:
		errs = multierr.Append(errs, checkGuards(node.Body, ctx, protoName))
	}
	return errs
}
