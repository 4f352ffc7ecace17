package findings

import (
	"context"
	"fmt"

	"github.com/ajhcs/beacon/pkg/adapter"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
	"github.com/ajhcs/beacon/pkg/traversal"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// Result reports whether replaying a capsule reproduced its finding.
type Result struct {
	Reproduced bool
	Detail     string
}

// Reproduce deterministically re-runs a capsule's prefix on the given
// kernel, single-threaded, and checks whether the original finding's kind
// recurs. currentSpecHash lets the caller catch a stale capsule — one
// captured against a spec that has since changed — before wasting a
// replay on it (§4.8 "fails the capsule if it does not reproduce, used to
// detect stale findings after a code change").
//
// A solver_refuted_guard finding has no trace to replay: it's a static
// proof of unreachability, not an observed step, so Reproduce reports it
// reproduced without touching the kernel.
func Reproduce(ctx context.Context, spec *ir.Spec, currentSpecHash string, f Finding, kernel *model.Kernel, executor traversal.ActionExecutor) (Result, error) {
	if f.Kind == KindSolverRefutedGuard {
		return Result{Reproduced: true, Detail: "static proof, not replayed"}, nil
	}

	if f.Capsule.SpecContentHash != currentSpecHash {
		return Result{Detail: "capsule's spec content hash no longer matches: spec has changed"}, nil
	}

	var lastOutcome model.Outcome
	var lastFrame map[string]string

	for _, entry := range f.Capsule.Prefix {
		binding, ok := spec.Bindings.Actions[entry.Action]
		if !ok {
			return Result{}, fmt.Errorf("findings: replay action %q has no binding", entry.Action)
		}

		frame := frameFromEntry(entry)
		args, err := adapter.ResolveArgs(binding, frame, entry.Vector)
		if err != nil {
			return Result{}, fmt.Errorf("findings: resolving replay args for %q: %w", entry.Action, err)
		}

		outcome, err := executor.Execute(ctx, entry.Action, binding, args)
		if err != nil {
			return Result{}, fmt.Errorf("findings: replaying %q: %w", entry.Action, err)
		}

		if outcome.Outcome == model.OutcomeValue {
			if effect, ok := spec.Effects[entry.Action]; ok {
				if err := kernel.ApplyEffect(&effect, entry.Actor); err != nil {
					return Result{}, fmt.Errorf("findings: replaying effect for %q: %w", entry.Action, err)
				}
			}
		}

		lastOutcome = outcome.Outcome
		lastFrame = frame
	}

	switch f.Kind {
	case KindGuestCrash:
		if lastOutcome == model.OutcomeTrap {
			return Result{Reproduced: true}, nil
		}
		return Result{Detail: "replay did not trap on the final step"}, nil

	case KindDeadlineExceeded:
		if lastOutcome == model.OutcomeOutOfFuel {
			return Result{Reproduced: true}, nil
		}
		return Result{Detail: "replay did not exhaust fuel on the final step"}, nil

	case KindInvariantViolation:
		for _, violation := range kernel.CheckInvariants(spec) {
			if property, _ := violation.Details["property"].(string); property == f.Property {
				return Result{Reproduced: true}, nil
			}
		}
		return Result{Detail: "replay no longer violates " + f.Property}, nil

	case KindTemporalViolation:
		trace := &model.Trace{Entries: f.Capsule.Prefix}
		var observers model.ObserverCaller
		if oe, ok := executor.(traversal.ObserverExecutor); ok {
			observers = observerCallerAdapter{oe}
		}
		for _, violation := range model.CheckTemporal(spec, observers, trace) {
			if property, _ := violation.Details["property"].(string); property == f.Property {
				return Result{Reproduced: true}, nil
			}
		}
		return Result{Detail: "replay no longer violates " + f.Property}, nil

	case KindDiscrepancy:
		oe, ok := executor.(traversal.ObserverExecutor)
		if !ok {
			return Result{Detail: "replay executor cannot answer observer queries"}, nil
		}
		if replayDiscrepancy(spec, kernel, oe, lastFrame) {
			return Result{Reproduced: true}, nil
		}
		return Result{Detail: "replay found no discrepancy"}, nil
	}

	return Result{}, fmt.Errorf("findings: unknown finding kind %q", f.Kind)
}

// observerCallerAdapter lets an executor's ObserverExecutor capability
// satisfy model.ObserverCaller, whose method is named for the model's own
// perspective (CallObserver) rather than the traversal engine's
// (ExecuteObserver) — same capability, two call sites with different
// naming conventions.
type observerCallerAdapter struct {
	oe traversal.ObserverExecutor
}

func (a observerCallerAdapter) CallObserver(binding string, argInstances []string) (typecheck.Value, error) {
	return a.oe.ExecuteObserver(binding, argInstances)
}

func frameFromEntry(entry model.TraceEntry) map[string]string {
	frame := map[string]string{"actor": string(entry.Actor)}
	for _, bound := range entry.Entities {
		frame[bound.Param] = string(bound.Instance)
	}
	return frame
}

// replayDiscrepancy mirrors pkg/traversal's per-step discrepancy check: a
// function classified observer with both a prediction body and a guest
// binding disagrees between its derived value and the guest's own answer.
func replayDiscrepancy(spec *ir.Spec, kernel *model.Kernel, oe traversal.ObserverExecutor, frame map[string]string) bool {
	for _, fn := range spec.Functions {
		if fn.Classification != ir.FnObserver || fn.Body == nil || fn.Binding == nil {
			continue
		}

		argInstances := make([]string, 0, len(fn.Params))
		for _, p := range fn.Params {
			if id, ok := frame[p.Name]; ok {
				argInstances = append(argInstances, id)
				continue
			}
			if id, ok := frame["actor"]; ok {
				argInstances = append(argInstances, id)
			}
		}

		predicted, err := kernel.Eval(fn.Body, frame)
		if err != nil {
			continue
		}
		observed, err := oe.ExecuteObserver(*fn.Binding, argInstances)
		if err != nil {
			continue
		}
		if !predicted.Equal(observed) {
			return true
		}
	}
	return false
}
