package model

import (
	"encoding/json"
	"strings"

	"github.com/ajhcs/beacon/pkg/beaconerr"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// CheckTemporal evaluates every temporal-kind property in spec against the
// full trace accumulated so far and returns one finding per violation.
// Derived/observer function calls inside a temporal predicate are
// evaluated against the historical state of the entry being considered,
// not the traversal's current state — observers are routed through the
// same caller a live Kernel would use.
func CheckTemporal(spec *ir.Spec, observers ObserverCaller, trace *Trace) []*beaconerr.Error {
	var findings []*beaconerr.Error

	for name, prop := range spec.Properties {
		if prop.Type != ir.PropertyTemporal {
			continue
		}
		var rule ir.TemporalRule
		if err := json.Unmarshal(prop.Rule, &rule); err != nil {
			continue
		}

		switch rule.Kind {
		case "before":
			findings = append(findings, checkBefore(spec, observers, name, &rule, prop.Predicate, trace)...)
		case "after":
			findings = append(findings, checkAfter(spec, observers, name, &rule, prop.Predicate, trace)...)
		case "never":
			findings = append(findings, checkNever(spec, name, &rule, trace)...)
		}
	}

	return findings
}

func checkBefore(spec *ir.Spec, observers ObserverCaller, name string, rule *ir.TemporalRule, condition *ir.Expr, trace *Trace) []*beaconerr.Error {
	if condition == nil {
		return nil
	}
	var findings []*beaconerr.Error
	for _, e := range trace.Entries {
		if !e.Outcome.Completed() || !actionMatches(spec, e.Action, rule.Action) {
			continue
		}
		ok, err := evalPredicate(spec, observers, condition, &e, e.Before)
		if err != nil {
			findings = append(findings, beaconerr.New(beaconerr.ClassGuardFailure,
				"temporal condition failed to evaluate", err).WithDetail("property", name))
			continue
		}
		if !ok {
			findings = append(findings, beaconerr.NewTemporalViolation(
				"before condition did not hold", nil).
				WithDetail("property", name).
				WithDetail("action", e.Action).
				WithDetail("step", e.Step))
		}
	}
	return findings
}

func checkAfter(spec *ir.Spec, observers ObserverCaller, name string, rule *ir.TemporalRule, consequence *ir.Expr, trace *Trace) []*beaconerr.Error {
	if consequence == nil {
		return nil
	}
	var findings []*beaconerr.Error
	triggered := false
	for _, e := range trace.Entries {
		if !e.Outcome.Completed() {
			continue
		}
		if !triggered && actionMatches(spec, e.Action, rule.Action) {
			triggered = true
		}
		if !triggered {
			continue
		}
		ok, err := evalPredicate(spec, observers, consequence, &e, e.After)
		if err != nil {
			findings = append(findings, beaconerr.New(beaconerr.ClassGuardFailure,
				"temporal consequence failed to evaluate", err).WithDetail("property", name))
			continue
		}
		if !ok {
			return append(findings, beaconerr.NewTemporalViolation(
				"after consequence did not hold", nil).
				WithDetail("property", name).
				WithDetail("action", e.Action).
				WithDetail("step", e.Step))
		}
	}
	return findings
}

// checkNever implements both the plain "never(action, scope)" form (Of
// empty: action must not occur at all) and the compound
// "after(anchor, never(action, scope))" form §8 scenario 3 compiles down
// to (Of set: action must not occur, scoped by Scope, once Of has
// occurred in that same scope).
func checkNever(spec *ir.Spec, name string, rule *ir.TemporalRule, trace *Trace) []*beaconerr.Error {
	var findings []*beaconerr.Error
	armed := map[string]bool{}

	for _, e := range trace.Entries {
		if !e.Outcome.Completed() {
			continue
		}

		if rule.Of == "" {
			if actionMatches(spec, e.Action, rule.Action) {
				findings = append(findings, beaconerr.NewTemporalViolation(
					"forbidden action occurred", nil).
					WithDetail("property", name).
					WithDetail("action", e.Action).
					WithDetail("step", e.Step))
			}
			continue
		}

		key, hasScope := scopeKey(rule.Scope, &e)
		if !hasScope {
			continue
		}
		if actionMatches(spec, e.Action, rule.Of) {
			armed[key] = true
			continue
		}
		if actionMatches(spec, e.Action, rule.Action) && armed[key] {
			findings = append(findings, beaconerr.NewTemporalViolation(
				"forbidden action occurred after anchor within scope", nil).
				WithDetail("property", name).
				WithDetail("action", e.Action).
				WithDetail("anchor", rule.Of).
				WithDetail("step", e.Step))
		}
	}

	return findings
}

// actionMatches reports whether actionName matches ruleAction, which is
// either a literal action name or a "tag:<name>" reference resolved
// against the action's binding. "tag:mutating" is the only tag the
// binding descriptor currently carries (ActionBinding.Mutates).
func actionMatches(spec *ir.Spec, actionName, ruleAction string) bool {
	tag, ok := strings.CutPrefix(ruleAction, "tag:")
	if !ok {
		return actionName == ruleAction
	}
	switch tag {
	case "mutating":
		b, ok := spec.Bindings.Actions[actionName]
		return ok && b.Mutates
	default:
		return false
	}
}

// scopeKey resolves a temporal rule's scope to the instance id it should
// partition on, implementing §9 open question (b): "same: entity"
// resolves to the first entity-typed binding argument, an explicit
// {param: "<name>"} resolves to that named argument.
func scopeKey(scope ir.Scope, e *TraceEntry) (string, bool) {
	if scope.Param != "" {
		for _, be := range e.Entities {
			if be.Param == scope.Param {
				return string(be.Instance), true
			}
		}
		return "", false
	}
	if scope.Same != "" {
		if len(e.Entities) == 0 {
			return "", false
		}
		return string(e.Entities[0].Instance), true
	}
	return "", true
}

func evalPredicate(spec *ir.Spec, observers ObserverCaller, expr *ir.Expr, e *TraceEntry, state State) (bool, error) {
	frame := map[string]string{"actor": string(e.Actor)}
	for _, be := range e.Entities {
		frame[be.Param] = string(be.Instance)
	}

	r := &specResolver{spec: spec, observers: observers, state: &state}
	v, err := typecheck.Eval(expr, r.env(frame))
	if err != nil {
		return false, err
	}
	if v.Kind != typecheck.ValueBool {
		return false, errTypeMismatch("bool", v)
	}
	return v.B, nil
}
