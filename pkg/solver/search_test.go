package solver

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

func boolLit(name string) ir.Expr {
	return ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralString, Str: name}}
}

func strLit(s string) ir.Expr {
	return ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralString, Str: s}}
}

func boolValLit(b bool) ir.Expr {
	return ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: b}}
}

func eqExpr(varName string, val ir.Expr) ir.Expr {
	return ir.Expr{Kind: ir.ExprOp, Op: ir.OpEq, OpArgs: []ir.Expr{boolLit(varName), val}}
}

func TestFindOneSimpleBool(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{"flag": {Type: ir.DomainBool}}}
	vectors, err := SolveInputSpace(space, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
}

func TestFindAllBool(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{"flag": {Type: ir.DomainBool}}}
	vectors, err := SolveInputSpace(space, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors (true/false), got %d", len(vectors))
	}
}

func TestFindAllEnum(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{
		"role": {Type: ir.DomainEnum, Values: []string{"admin", "member", "guest"}},
	}}
	vectors, err := SolveInputSpace(space, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}

func TestFindAllWithConstraint(t *testing.T) {
	space := ir.InputSpace{
		Domains: map[string]ir.Domain{
			"role": {Type: ir.DomainEnum, Values: []string{"admin", "guest"}},
			"auth": {Type: ir.DomainBool},
		},
		Constraints: []ir.InputConstraint{{
			Name: "guest_not_auth",
			Rule: ir.Expr{Kind: ir.ExprOp, Op: ir.OpImplies, OpArgs: []ir.Expr{
				eqExpr("role", strLit("guest")),
				eqExpr("auth", boolValLit(false)),
			}},
		}},
	}
	vectors, err := SolveInputSpace(space, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// admin+true, admin+false, guest+false (guest+true excluded)
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for _, v := range vectors {
		if v.Assignments["role"].S == "guest" && v.Assignments["auth"].B {
			t.Errorf("guest+true should have been excluded by the constraint")
		}
	}
}

func TestFindManyWithLimit(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{
		"role": {Type: ir.DomainEnum, Values: []string{"admin", "member", "guest"}},
		"flag": {Type: ir.DomainBool},
	}}
	vectors, err := SolveInputSpace(space, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
}

func TestUnsatConstraintsReturnEmpty(t *testing.T) {
	space := ir.InputSpace{
		Domains: map[string]ir.Domain{
			"role": {Type: ir.DomainEnum, Values: []string{"admin", "guest"}},
		},
		Constraints: []ir.InputConstraint{
			{Name: "must_admin", Rule: eqExpr("role", strLit("admin"))},
			{Name: "must_guest", Rule: eqExpr("role", strLit("guest"))},
		},
	}
	vectors, err := SolveInputSpace(space, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected no vectors, got %d", len(vectors))
	}
}

func TestFindOneWithExtraClauses(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{
		"role": {Type: ir.DomainEnum, Values: []string{"admin", "member", "guest"}},
	}}
	enc, err := EncodeInputSpace(space)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	constraintClauses, err := EncodeConstraints(space.Constraints, enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adminLit, ok := LitForValue(enc.Domains["role"], typecheck.StringValue("admin"))
	if !ok {
		t.Fatal("expected a literal for admin")
	}
	extra := CNF{Clause{adminLit}}

	result, err := FindOne(enc, constraintClauses, extra)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Sat {
		t.Fatal("expected sat")
	}
	if result.Vector.Assignments["role"].S != "admin" {
		t.Errorf("expected role=admin, got %+v", result.Vector.Assignments["role"])
	}
}
