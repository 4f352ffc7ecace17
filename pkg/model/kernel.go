package model

import (
	"github.com/google/uuid"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// ObserverCaller evaluates an observer function by querying the guest
// under test. The model kernel never talks to the guest directly; it is
// injected so the kernel stays testable without an adapter.
type ObserverCaller interface {
	CallObserver(binding string, argInstances []string) (typecheck.Value, error)
}

// Kernel is the model kernel (C3): a copy-on-write abstract state plus the
// compiled spec needed to evaluate derived functions, refinements, and
// properties against it. A Kernel is owned by exactly one traversal worker
// and is never shared; nothing here is safe for concurrent use.
type Kernel struct {
	spec      *ir.Spec
	state     State
	resolver  *specResolver
	snapshots map[string]State
}

// NewKernel creates a kernel over the empty initial state of a campaign
// compiled from spec, with observer calls routed through observers.
func NewKernel(spec *ir.Spec, observers ObserverCaller) *Kernel {
	k := &Kernel{
		spec:      spec,
		state:     New(),
		snapshots: make(map[string]State),
	}
	k.resolver = &specResolver{spec: spec, observers: observers, state: &k.state}
	return k
}

// State returns the kernel's current abstract state.
func (k *Kernel) State() State { return k.state }

// Create allocates a fresh instance of entityType in the current state.
// Each bool field the spec declares for entityType starts at its declared
// default, or false when none is given; fields of other types start unset.
func (k *Kernel) Create(entityType string) InstanceID {
	var id InstanceID
	k.state, id = k.state.Create(entityType)
	if k.spec != nil {
		for name, def := range k.spec.Entities[entityType].Fields {
			if def.Type == ir.FieldBool {
				k.state, _ = k.state.Set(id, name, typecheck.BoolValue(def.Default != nil && *def.Default))
			}
		}
	}
	return id
}

// Set assigns value to one field of instance in the current state.
func (k *Kernel) Set(id InstanceID, field string, value typecheck.Value) error {
	next, err := k.state.Set(id, field, value)
	if err != nil {
		return err
	}
	k.state = next
	return nil
}

// Fork returns an independent kernel over the same current state. Because
// State is a persistent value, forking is a struct copy; the two kernels
// diverge independently from this point on (§4.3 "fork() -> handle").
func (k *Kernel) Fork() *Kernel {
	snaps := make(map[string]State, len(k.snapshots))
	for id, s := range k.snapshots {
		snaps[id] = s
	}
	forked := &Kernel{
		spec:      k.spec,
		state:     k.state,
		snapshots: snaps,
	}
	forked.resolver = &specResolver{
		spec:      k.spec,
		observers: k.resolver.observers,
		state:     &forked.state,
	}
	return forked
}

// Snapshot binds the current state to a fresh identifier and returns it.
func (k *Kernel) Snapshot() string {
	id := uuid.NewString()
	k.snapshots[id] = k.state
	return id
}

// Rollback restores the state bound to a previously taken snapshot id.
func (k *Kernel) Rollback(id string) error {
	s, ok := k.snapshots[id]
	if !ok {
		return errUnknownSnapshot(id)
	}
	k.state = s
	return nil
}

// Env builds a typecheck.Env over the kernel's current state with the
// given frame bindings.
func (k *Kernel) Env(frame map[string]string) *typecheck.Env {
	return k.resolver.env(frame)
}

// Eval evaluates a compiled expression against the kernel's current state
// under the given frame bindings.
func (k *Kernel) Eval(expr *ir.Expr, frame map[string]string) (typecheck.Value, error) {
	return typecheck.Eval(expr, k.Env(frame))
}
