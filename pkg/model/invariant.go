package model

import (
	"github.com/ajhcs/beacon/pkg/beaconerr"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// CheckInvariants evaluates every invariant-kind property in spec against
// the kernel's current state and returns one finding per false predicate.
// It is called after every applied effect (§4.3 "Invariants are checked
// after each effect and any violation is reported immediately").
func (k *Kernel) CheckInvariants(spec *ir.Spec) []*beaconerr.Error {
	var findings []*beaconerr.Error

	for name, prop := range spec.Properties {
		if prop.Type != ir.PropertyInvariant {
			continue
		}
		if prop.Predicate == nil {
			continue
		}

		v, err := k.Eval(prop.Predicate, nil)
		if err != nil {
			findings = append(findings, beaconerr.New(beaconerr.ClassGuardFailure,
				"invariant predicate failed to evaluate", err).
				WithDetail("property", name))
			continue
		}
		if v.Kind != typecheck.ValueBool || !v.B {
			findings = append(findings, beaconerr.NewInvariantViolation(
				"invariant does not hold", nil).
				WithDetail("property", name))
		}
	}

	return findings
}
