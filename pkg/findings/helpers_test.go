package findings

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/ir"
)

func boolFieldDef() ir.FieldDef {
	return ir.FieldDef{FieldType: ir.FieldType{Type: ir.FieldBool}}
}

func boolLiteral(v bool) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: v}}
}

func setActiveEffect(t *testing.T) map[string]ir.Effect {
	t.Helper()
	value, err := boolLiteral(true).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal literal: %v", err)
	}
	return map[string]ir.Effect{
		"activate": {Sets: []ir.EffectSet{{Target: []string{"actor", "active"}, Value: value}}},
	}
}

func sessionsStayActiveInvariant() map[string]ir.Property {
	predicate := &ir.Expr{
		Kind:      ir.ExprQuantifier,
		QuantKind: ir.QuantForall,
		QuantVar:  "session",
		Domain:    "Session",
		Body: &ir.Expr{
			Kind:        ir.ExprFieldRef,
			FieldEntity: "session",
			FieldName:   "active",
		},
	}
	return map[string]ir.Property{
		"stays_active": {Type: ir.PropertyInvariant, Predicate: predicate},
	}
}

func activateSpec(t *testing.T) *ir.Spec {
	t.Helper()
	return &ir.Spec{
		Entities:   map[string]ir.Entity{"Session": {Fields: map[string]ir.FieldDef{"active": boolFieldDef()}}},
		Functions:  map[string]ir.FunctionDef{},
		Effects:    setActiveEffect(t),
		Properties: sessionsStayActiveInvariant(),
		Bindings: ir.Bindings{
			Actions: map[string]ir.ActionBinding{
				"activate": {Function: "activate", Args: []string{}},
				"noop":     {Function: "noop", Args: []string{}},
			},
		},
	}
}
