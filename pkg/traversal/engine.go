package traversal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ajhcs/beacon/pkg/adapter"
	"github.com/ajhcs/beacon/pkg/compiler"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// ActionOutcome is the executor-agnostic result of one action call.
type ActionOutcome struct {
	Outcome model.Outcome
	Value   *int64
	Trap    string
}

// ActionExecutor performs the guest side of an action call. Swapping it is
// how a pass can run against a live guest module or skip the guest
// entirely to exercise the graph and model kernel on their own.
type ActionExecutor interface {
	Execute(ctx context.Context, action string, binding ir.ActionBinding, args []int64) (ActionOutcome, error)
}

// ObserverExecutor is implemented by an executor that can also answer
// observer queries directly against the guest, which is what makes
// discrepancy checking possible. An executor that can't (ModelOnlyExecutor)
// simply never produces discrepancy signals.
type ObserverExecutor interface {
	ExecuteObserver(binding string, argInstances []string) (typecheck.Value, error)
}

// ModelOnlyExecutor always reports a bare success with no guest
// interaction, for walking the graph and model kernel without a compiled
// guest module.
type ModelOnlyExecutor struct{}

func (ModelOnlyExecutor) Execute(context.Context, string, ir.ActionBinding, []int64) (ActionOutcome, error) {
	return ActionOutcome{Outcome: model.OutcomeValue}, nil
}

// AdapterExecutor runs actions, and answers observer queries, against a
// live guest adapter.
type AdapterExecutor struct {
	Adapter *adapter.Adapter
}

func (e *AdapterExecutor) Execute(ctx context.Context, action string, binding ir.ActionBinding, args []int64) (ActionOutcome, error) {
	resp, err := e.Adapter.Call(ctx, action, args)
	if err != nil {
		return ActionOutcome{}, err
	}
	return ActionOutcome{Outcome: resp.Outcome, Value: resp.Value, Trap: resp.Trap}, nil
}

func (e *AdapterExecutor) ExecuteObserver(binding string, argInstances []string) (typecheck.Value, error) {
	return e.Adapter.CallObserver(binding, argInstances)
}

// CoverageReport tallies how many times each action and each branch fired
// during a pass, the raw material the coordinator's coverage-plateau
// detection and the tool surface's status report both read.
type CoverageReport struct {
	ActionCounts map[string]uint64
	BranchCounts map[string]uint64
}

func newCoverageReport() *CoverageReport {
	return &CoverageReport{
		ActionCounts: make(map[string]uint64),
		BranchCounts: make(map[string]uint64),
	}
}

// UniqueActions reports how many distinct actions fired at least once.
func (c *CoverageReport) UniqueActions() int { return len(c.ActionCounts) }

// TotalActions reports the total number of action calls, across repeats.
func (c *CoverageReport) TotalActions() uint64 {
	var total uint64
	for _, n := range c.ActionCounts {
		total += n
	}
	return total
}

// TraversalResult is everything one RunPass call produced.
type TraversalResult struct {
	Findings        []RawFinding
	Signals         []Signal
	ActionsExecuted uint64
	GuardsFailed    uint64
	NodesVisited    map[compiler.NodeID]bool
	Coverage        *CoverageReport
	Trace           *model.Trace
}

// TraversalEngine walks one NdaGraph with an explicit object stack,
// consulting a strategy stack at every branch and loop point, and
// executing terminal (action) nodes against a model kernel and an
// ActionExecutor. One engine runs exactly one pass and is not reused
// across passes — a fresh engine is constructed per pass so its
// per-pass bookkeeping (visited set, loop counters, trace) starts empty.
type TraversalEngine struct {
	graph  *compiler.NdaGraph
	spec   *ir.Spec
	kernel *model.Kernel

	executor      ActionExecutor
	actorID       model.InstanceID
	strategyStack *StrategyStack
	vectorSource  VectorSource
	weights       *WeightTable

	trace         *model.Trace
	signals       []Signal
	findings      []RawFinding
	coverage      *CoverageReport
	visited       map[compiler.NodeID]bool
	loopRemaining map[compiler.NodeID]uint32

	threadID    uint32
	stepCounter uint64
	epoch       int64

	actionsExecuted uint64
	guardsFailed    uint64
}

// NewTraversalEngine constructs an engine ready to run one pass over
// graph, starting from the kernel's current state.
func NewTraversalEngine(
	graph *compiler.NdaGraph,
	spec *ir.Spec,
	kernel *model.Kernel,
	executor ActionExecutor,
	actorID model.InstanceID,
	strategies *StrategyStack,
	vectors VectorSource,
	weights *WeightTable,
	threadID uint32,
	epoch int64,
) *TraversalEngine {
	return &TraversalEngine{
		graph:         graph,
		spec:          spec,
		kernel:        kernel,
		executor:      executor,
		actorID:       actorID,
		strategyStack: strategies,
		vectorSource:  vectors,
		weights:       weights,
		trace:         &model.Trace{},
		visited:       make(map[compiler.NodeID]bool),
		loopRemaining: make(map[compiler.NodeID]uint32),
		coverage:      newCoverageReport(),
		threadID:      threadID,
		epoch:         epoch,
	}
}

// RunPass walks the graph from its entry node, taking at most maxSteps
// object-stack pops, and returns everything it observed along the way.
// Reaching maxSteps is not itself an error; a pass that runs out of
// budget just stops where it is, same as one that runs off the end of the
// graph via its exit node.
func (e *TraversalEngine) RunPass(ctx context.Context, maxSteps int) (*TraversalResult, error) {
	stack := []compiler.NodeID{e.graph.Entry}

	for steps := 0; len(stack) > 0 && steps < maxSteps; steps++ {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := e.graph.Nodes[n]

		switch node.Kind {
		case compiler.NodeKindStart, compiler.NodeKindEnd, compiler.NodeKindLoopExit:
			stack = e.pushSuccessors(stack, n)

		case compiler.NodeKindTerminal:
			cont, err := e.runTerminal(ctx, n, node)
			if err != nil {
				return e.result(), err
			}
			if cont {
				stack = e.pushSuccessors(stack, n)
			}

		case compiler.NodeKindBranch:
			if target, ok := e.selectBranch(n, node); ok {
				stack = append(stack, target)
			}

		case compiler.NodeKindLoopEntry:
			stack = append(stack, e.stepLoop(n, node))
		}
	}

	return e.result(), nil
}

func (e *TraversalEngine) pushSuccessors(stack []compiler.NodeID, n compiler.NodeID) []compiler.NodeID {
	edges := e.graph.Edges[n]
	for i := len(edges) - 1; i >= 0; i-- {
		stack = append(stack, edges[i])
	}
	return stack
}

// selectBranch filters a branch's alternatives down to the eligible set
// (guard satisfied and weight above zero in the current abstract state),
// hands that set to the current strategy for a weighted pick, and reports
// coverage on the first visit to the chosen target. An empty eligible set
// (every alternative guarded off or zero-weighted) is a stuck state: it raises a
// guard-failure signal and the pass simply doesn't advance past this
// branch on this stack frame.
func (e *TraversalEngine) selectBranch(id compiler.NodeID, node *compiler.GraphNode) (compiler.NodeID, bool) {
	frame := BuildFrame(e.kernel.State(), e.actorID)
	modelHash := e.kernel.State().Hash()

	eligible := make([]compiler.BranchEdge, 0, len(node.Alternatives))
	for _, alt := range node.Alternatives {
		if alt.Guard != nil {
			v, err := e.kernel.Eval(alt.Guard, frame)
			if err != nil || v.Kind != typecheck.ValueBool || !v.B {
				continue
			}
		}
		if e.weights.Get(alt.ID, modelHash) <= 0 {
			continue
		}
		eligible = append(eligible, alt)
	}
	if len(eligible) == 0 {
		e.emitSignal(Signal{Kind: SignalGuardFailure, NodeID: id})
		e.guardsFailed++
		return 0, false
	}

	decision := e.strategyStack.Current().SelectBranch(eligible, modelHash, e.weights)
	target := eligible[decision.BranchIndex].Target

	e.coverage.BranchCounts[decision.BranchID]++
	if !e.visited[target] {
		e.emitSignal(Signal{Kind: SignalCoverageDelta, NodeID: target, BranchID: decision.BranchID})
	}
	e.visited[target] = true

	return target, true
}

// stepLoop decides (once, on first arrival) how many times a repeat
// construct should run, then hands back either its body's entry node or
// its loop-exit node depending on how many iterations remain. Later
// arrivals at the same LoopEntry within the same pass — reached back
// through the body's own trailing edge — consume the decision made on
// first arrival rather than re-rolling it.
func (e *TraversalEngine) stepLoop(id compiler.NodeID, node *compiler.GraphNode) compiler.NodeID {
	remaining, active := e.loopRemaining[id]
	if !active {
		decision := e.strategyStack.Current().ChooseIterations(node.Min, node.Max)
		remaining = decision.Iterations
	}

	if remaining == 0 {
		delete(e.loopRemaining, id)
		for _, target := range e.graph.Edges[id] {
			if e.graph.Nodes[target].Kind == compiler.NodeKindLoopExit {
				return target
			}
		}
		return node.BodyStart
	}

	e.loopRemaining[id] = remaining - 1
	return node.BodyStart
}

// runTerminal executes one action call: guard check, vector fetch, guest
// call, effect application, invariant check, discrepancy check, coverage
// tracking, and trace append, in that order. It reports whether the pass
// should continue past this node (false only when something structurally
// wrong happened, e.g. an unbound action).
func (e *TraversalEngine) runTerminal(ctx context.Context, id compiler.NodeID, node *compiler.GraphNode) (bool, error) {
	action := node.Action
	binding, ok := e.spec.Bindings.Actions[action]
	if !ok {
		return false, fmt.Errorf("traversal: action %q has no binding", action)
	}

	frame := BuildFrame(e.kernel.State(), e.actorID)

	if node.Guard != nil {
		v, err := e.kernel.Eval(node.Guard, frame)
		if err != nil || v.Kind != typecheck.ValueBool || !v.B {
			e.emitSignal(Signal{Kind: SignalGuardFailure, NodeID: id, Action: action})
			e.guardsFailed++
			return true, nil
		}
	}

	vector := e.vectorSource.NextVector(action)
	args, err := adapter.ResolveArgs(binding, frame, vector)
	if err != nil {
		return false, fmt.Errorf("traversal: resolving args for %q: %w", action, err)
	}

	before := e.kernel.State()
	outcome, err := e.executor.Execute(ctx, action, binding, args)
	if err != nil {
		return false, fmt.Errorf("traversal: executing %q: %w", action, err)
	}

	switch outcome.Outcome {
	case model.OutcomeOutOfFuel:
		sig := Signal{Kind: SignalTimeout, Action: action}
		e.emitSignal(sig)
		e.addFinding(RawFinding{Signal: sig, ModelStateHash: before.Hash()})

	case model.OutcomeTrap:
		sig := Signal{Kind: SignalCrash, Action: action, Message: outcome.Trap}
		e.emitSignal(sig)
		e.addFinding(RawFinding{Signal: sig, ModelStateHash: before.Hash()})

	case model.OutcomeValue:
		e.checkDiscrepancy(action, frame)

		if effect, ok := e.spec.Effects[action]; ok {
			if err := e.kernel.ApplyEffect(&effect, e.actorID); err != nil {
				return false, fmt.Errorf("traversal: applying effect for %q: %w", action, err)
			}
			for _, violation := range e.kernel.CheckInvariants(e.spec) {
				property, _ := violation.Details["property"].(string)
				sig := Signal{Kind: SignalPropertyViolation, Action: action, Property: property, Details: violation.Message}
				e.emitSignal(sig)
				e.addFinding(RawFinding{Signal: sig, ModelStateHash: e.kernel.State().Hash()})
			}
		}
	}

	e.trackCoverage(id, action)

	e.trace.Append(model.TraceEntry{
		Action:   action,
		Actor:    e.actorID,
		Entities: boundEntities(binding, frame),
		Vector:   vector,
		Outcome:  outcome.Outcome,
		Before:   before,
		After:    e.kernel.State(),
		Epoch:    e.epoch,
		Step:     e.stepCounter,
	})
	e.stepCounter++
	e.actionsExecuted++

	return true, nil
}

// checkDiscrepancy compares the model's derived prediction against the
// guest's own observation for every observer function that declares both
// a body (a prediction expression) and a binding (a guest export) — a
// function classified observer but populated with only one of the two
// behaves exactly as resolver.go's dispatch always has, so this never
// changes behavior for specs that don't opt into dual population.
func (e *TraversalEngine) checkDiscrepancy(action string, frame map[string]string) {
	oe, ok := e.executor.(ObserverExecutor)
	if !ok {
		return
	}

	for _, fn := range e.spec.Functions {
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

		predicted, err := e.kernel.Eval(fn.Body, frame)
		if err != nil {
			continue
		}
		observed, err := oe.ExecuteObserver(*fn.Binding, argInstances)
		if err != nil {
			continue
		}
		if !predicted.Equal(observed) {
			sig := Signal{
				Kind:          SignalDiscrepancy,
				Action:        action,
				ModelValue:    predicted.String(),
				ObservedValue: observed.String(),
			}
			e.emitSignal(sig)
			e.addFinding(RawFinding{Signal: sig, ModelStateHash: e.kernel.State().Hash()})
		}
	}
}

func (e *TraversalEngine) trackCoverage(id compiler.NodeID, action string) {
	e.coverage.ActionCounts[action]++
	if !e.visited[id] {
		e.emitSignal(Signal{Kind: SignalCoverageDelta, NodeID: id, Action: action})
	}
	e.visited[id] = true
}

func (e *TraversalEngine) emitSignal(sig Signal) {
	sig.ThreadID = e.threadID
	sig.LocalStep = e.stepCounter
	e.signals = append(e.signals, sig)
}

func (e *TraversalEngine) addFinding(f RawFinding) {
	f.TraceIndices = []int{e.trace.Len()}
	e.findings = append(e.findings, f)
}

func (e *TraversalEngine) result() *TraversalResult {
	return &TraversalResult{
		Findings:        e.findings,
		Signals:         e.signals,
		ActionsExecuted: e.actionsExecuted,
		GuardsFailed:    e.guardsFailed,
		NodesVisited:    e.visited,
		Coverage:        e.coverage,
		Trace:           e.trace,
	}
}

// boundEntities picks the entity-typed args out of a binding's argument
// list — those resolved through frame rather than the scalar vector — in
// binding.Args' declared order.
func boundEntities(binding ir.ActionBinding, frame map[string]string) []model.BoundEntity {
	var out []model.BoundEntity
	for _, name := range binding.Args {
		if id, ok := frame[name]; ok {
			out = append(out, model.BoundEntity{Param: name, Instance: model.InstanceID(id)})
		}
	}
	return out
}

// BuildFrame generalizes the original's document-lifecycle-specific
// binding of "doc"/"self" to the last-created Document: it binds
// lowercase(entityType) to the most recently created instance of every
// entity type present in the state, plus "actor" to the acting instance.
// A domain-agnostic harness has no fixed entity vocabulary to hardcode.
func BuildFrame(state model.State, actor model.InstanceID) map[string]string {
	frame := map[string]string{"actor": string(actor)}
	for _, entityType := range state.EntityTypes() {
		if last, ok := lastInstance(state, entityType); ok {
			frame[strings.ToLower(entityType)] = string(last)
		}
	}
	return frame
}

func lastInstance(state model.State, entityType string) (model.InstanceID, bool) {
	var best model.InstanceID
	var bestSeq uint64
	found := false
	for _, s := range state.Instances(entityType) {
		id := model.InstanceID(s)
		seq, ok := instanceSeq(id)
		if !ok {
			continue
		}
		if !found || seq > bestSeq {
			best, bestSeq, found = id, seq, true
		}
	}
	return best, found
}

func instanceSeq(id model.InstanceID) (uint64, bool) {
	s := string(id)
	i := strings.IndexByte(s, '#')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
