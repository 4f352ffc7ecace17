package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// Adapter is a guest module instantiated and bound against one compiled
// spec's bindings. It is owned by exactly one traversal worker; nothing
// here is safe for concurrent use, matching the model kernel it is paired
// with (§5: "model state is never shared across workers").
type Adapter struct {
	runtime    wazero.Runtime
	module     api.Module
	bindings   ir.Bindings
	actions    map[string]api.Function
	fuelBudget time.Duration

	// observerReturns maps a bound observer's guest export name to the
	// logical return type declared on the ir.FunctionDef, so the guest's
	// raw integer result can be decoded into the right typecheck.Value
	// kind.
	observerReturns map[string]string

	snapshots map[string]guestSnapshot
}

type guestSnapshot struct {
	memory []byte
}

// Load compiles and instantiates wasmBytes under cfg, then resolves every
// action bound in spec.Bindings against the guest's exports. A missing or
// arity-mismatched export is fatal (§4.4: "missing or mismatched exports are
// fatal"). The guest is instantiated with no imports at all — not even
// WASI — since §6 forbids it any surface beyond the ones it exports.
func Load(ctx context.Context, wasmBytes []byte, spec *ir.Spec, cfg Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errInstantiate(err)
	}

	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MemoryLimitPages).
		WithCloseOnContextDone(true)
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, errCompile(err)
	}

	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		runtime.Close(ctx)
		return nil, errInstantiate(err)
	}

	a := &Adapter{
		runtime:         runtime,
		module:          module,
		bindings:        spec.Bindings,
		actions:         make(map[string]api.Function, len(spec.Bindings.Actions)),
		fuelBudget:      cfg.FuelBudget,
		observerReturns: make(map[string]string),
		snapshots:       make(map[string]guestSnapshot),
	}

	for action, binding := range spec.Bindings.Actions {
		fn := module.ExportedFunction(binding.Function)
		if fn == nil {
			_ = a.Close(ctx)
			return nil, errMissingExport(action, binding.Function)
		}
		if got := len(fn.Definition().ParamTypes()); got != len(binding.Args) {
			_ = a.Close(ctx)
			return nil, errWrongArity(binding.Function, got, len(binding.Args))
		}
		if n := len(fn.Definition().ResultTypes()); n > 1 {
			_ = a.Close(ctx)
			return nil, errUnsupportedResultShape(binding.Function, n)
		}
		a.actions[action] = fn
	}

	for _, fn := range spec.Functions {
		if fn.Classification != ir.FnObserver || fn.Binding == nil {
			continue
		}
		if module.ExportedFunction(*fn.Binding) == nil {
			_ = a.Close(ctx)
			return nil, errMissingExport(*fn.Binding, *fn.Binding)
		}
		a.observerReturns[*fn.Binding] = fn.Returns
	}

	return a, nil
}

// Close releases the guest module and its runtime.
func (a *Adapter) Close(ctx context.Context) error {
	var err error
	if a.module != nil {
		err = a.module.Close(ctx)
	}
	if a.runtime != nil {
		if rerr := a.runtime.Close(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// Call invokes the guest export bound to action with args, in the order
// binding.Args declares them. A guest trap or fuel exhaustion is reported in
// the returned Response rather than as a Go error — both are campaign
// findings (guest_crash / guest_timeout), not adapter defects.
func (a *Adapter) Call(ctx context.Context, action string, args []int64) (*Response, error) {
	fn, ok := a.actions[action]
	if !ok {
		return nil, errUnknownAction(action)
	}
	binding := a.bindings.Actions[action]
	if len(args) != len(binding.Args) {
		return nil, errArgCount(binding.Function, len(binding.Args), len(args))
	}

	callCtx, cancel := context.WithTimeout(ctx, a.fuelBudget)
	defer cancel()

	packed := make([]uint64, len(args))
	for i, v := range args {
		packed[i] = uint64(v)
	}

	results, err := fn.Call(callCtx, packed...)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &Response{Outcome: model.OutcomeOutOfFuel}, nil
		}
		return &Response{Outcome: model.OutcomeTrap, Trap: err.Error()}, nil
	}

	if len(results) == 0 {
		return &Response{Outcome: model.OutcomeValue}, nil
	}
	value := int64(results[0])
	return &Response{Outcome: model.OutcomeValue, Value: &value}, nil
}

// CallObserver implements model.ObserverCaller, routing an observer function
// call through the live guest. argInstances are model instance ids; each is
// lowered to the ordinal the guest knows it by.
func (a *Adapter) CallObserver(binding string, argInstances []string) (typecheck.Value, error) {
	fn := a.module.ExportedFunction(binding)
	if fn == nil {
		return typecheck.Value{}, errUnknownObserver(binding)
	}

	args := make([]uint64, len(argInstances))
	for i, id := range argInstances {
		ord, err := instanceOrdinal(id)
		if err != nil {
			return typecheck.Value{}, err
		}
		args[i] = uint64(ord)
	}

	callCtx, cancel := context.WithTimeout(context.Background(), a.fuelBudget)
	defer cancel()

	results, err := fn.Call(callCtx, args...)
	if err != nil {
		return typecheck.Value{}, fmt.Errorf("observer %q: %w", binding, err)
	}
	if len(results) != 1 {
		return typecheck.Value{}, errUnsupportedResultShape(binding, len(results))
	}

	if a.observerReturns[binding] == "bool" {
		return typecheck.BoolValue(results[0] != 0), nil
	}
	return typecheck.IntValue(int64(results[0])), nil
}
