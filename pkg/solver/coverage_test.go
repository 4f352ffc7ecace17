package solver

import (
	"encoding/json"
	"testing"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

func rawInt(i int64) json.RawMessage {
	b, _ := json.Marshal(i)
	return b
}

func TestAllPairsTargetsCount(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{
		"role":  {Type: ir.DomainEnum, Values: []string{"admin", "member", "guest"}},
		"vis":   {Type: ir.DomainEnum, Values: []string{"private", "public"}},
		"owner": {Type: ir.DomainBool},
	}}
	targets := AllPairsTargets(space, []string{"role", "vis", "owner"})
	// role x vis = 9, role x owner = 6, vis x owner = 6 => 21
	if len(targets) != 21 {
		t.Fatalf("expected 21 targets, got %d", len(targets))
	}
}

func TestBoundaryTargetsDedup(t *testing.T) {
	space := ir.InputSpace{Domains: map[string]ir.Domain{
		"count": {Type: ir.DomainInt, Min: 1, Max: 8},
	}}
	targets := BoundaryTargets(space, "count", []json.RawMessage{rawInt(1), rawInt(2), rawInt(8)})
	// explicit 1,2,8 + auto min=1(dup) max=8(dup) min+1=2(dup) max-1=7(new) => 1,2,8,7
	if len(targets) != 4 {
		t.Fatalf("expected 4 targets, got %d", len(targets))
	}
}

func TestCheckCoverage(t *testing.T) {
	v1 := TestVector{Assignments: map[string]typecheck.Value{
		"role": typecheck.StringValue("admin"),
		"vis":  typecheck.StringValue("private"),
	}}
	v2 := TestVector{Assignments: map[string]typecheck.Value{
		"role": typecheck.StringValue("guest"),
		"vis":  typecheck.StringValue("public"),
	}}

	targets := []CoveragePoint{
		{Kind: CoveragePair, Var1: "role", Val1: typecheck.StringValue("admin"), Var2: "vis", Val2: typecheck.StringValue("private")},
		{Kind: CoveragePair, Var1: "role", Val1: typecheck.StringValue("admin"), Var2: "vis", Val2: typecheck.StringValue("public")},
		{Kind: CoveragePair, Var1: "role", Val1: typecheck.StringValue("guest"), Var2: "vis", Val2: typecheck.StringValue("public")},
	}

	covered := CheckCoverage([]TestVector{v1, v2}, targets)
	if len(covered) != 2 {
		t.Fatalf("expected 2 covered points, got %d", len(covered))
	}
}

func TestCoverageDrivenGenerationAllPairs(t *testing.T) {
	space := ir.InputSpace{
		Domains: map[string]ir.Domain{
			"role":  {Type: ir.DomainEnum, Values: []string{"admin", "member", "guest"}},
			"vis":   {Type: ir.DomainEnum, Values: []string{"private", "shared", "public"}},
			"owner": {Type: ir.DomainBool},
		},
		Coverage: ir.CoverageConfig{Targets: []ir.CoverageTarget{
			{Type: ir.CoverageAllPairs, Over: []string{"role", "vis", "owner"}},
		}},
	}
	result, err := CoverageDrivenGeneration(space)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTargets != 21 {
		t.Fatalf("expected 21 total targets, got %d", result.TotalTargets)
	}
	if len(result.Covered) != 21 {
		t.Errorf("expected all 21 pairs covered, got %d", len(result.Covered))
	}
	if len(result.Uncoverable) != 0 {
		t.Errorf("expected no uncoverable targets, got %d", len(result.Uncoverable))
	}
}

func TestCoverageWithConstraintMakesPairUncoverable(t *testing.T) {
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
		Coverage: ir.CoverageConfig{Targets: []ir.CoverageTarget{
			{Type: ir.CoverageAllPairs, Over: []string{"role", "auth"}},
		}},
	}

	result, err := CoverageDrivenGeneration(space)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTargets != 4 {
		t.Fatalf("expected 4 total targets, got %d", result.TotalTargets)
	}
	if len(result.Uncoverable) != 1 {
		t.Fatalf("expected 1 uncoverable target, got %d", len(result.Uncoverable))
	}
	if len(result.Covered) != 3 {
		t.Errorf("expected 3 covered targets, got %d", len(result.Covered))
	}
}
