package traversal

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ajhcs/beacon/pkg/compiler"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
)

// CampaignConfig bounds one campaign: how many passes to run, how many
// workers may run them concurrently, how deep a strategy stack may grow,
// and how many object-stack steps a single pass may take before it's cut
// off.
type CampaignConfig struct {
	Passes           int
	Workers          int
	Seed             int64
	StrategyDepth    int
	MaxStepsPerPass  int
}

// DefaultCampaignConfig mirrors the defaults a campaign runs with absent
// any override: ten passes, a seed fixed for reproducibility, a shallow
// strategy stack, and a generous per-pass step ceiling.
func DefaultCampaignConfig() CampaignConfig {
	return CampaignConfig{
		Passes:          10,
		Workers:         4,
		Seed:            42,
		StrategyDepth:   4,
		MaxStepsPerPass: 10_000,
	}
}

// CampaignResult aggregates every worker's output across every pass of one
// campaign.
type CampaignResult struct {
	Findings           []CampaignFinding
	Signals            []Signal
	TotalActions       uint64
	PassesCompleted    int
	UniqueNodesVisited int
	TotalGuardFailures uint64
	Coverage           *CoverageReport
}

// CampaignFinding pairs a RawFinding with the full trace of the pass that
// produced it. A pass's trace only survives for as long as the pass's own
// TraversalResult is in scope; capsule construction needs the complete
// trace to slice a replay prefix, so mergeInto carries it forward here
// rather than discarding it once the finding is folded into the campaign
// total.
type CampaignFinding struct {
	RawFinding
	Trace *model.Trace
}

// Executable is the pair of executor and entry actor a campaign runs
// each pass against. newExecutor is called once per worker so a worker
// that holds onto guest-side state (a live adapter, say) gets its own
// independent instance rather than sharing one across goroutines.
type Executable struct {
	NewExecutor func() ActionExecutor
	ActorType   string
}

// RunCampaign runs cfg.Passes sequential passes against a freshly forked
// kernel each time, merging every pass's result into one CampaignResult.
// This is the direct, single-threaded shape; RunCampaignPool below
// generalizes it to a bounded worker pool.
func RunCampaign(ctx context.Context, graph *compiler.NdaGraph, spec *ir.Spec, baseKernel *model.Kernel, exec Executable, cfg CampaignConfig) (*CampaignResult, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	weights := seedWeightTable(graph)

	result := &CampaignResult{Coverage: newCoverageReport()}
	visited := make(map[compiler.NodeID]bool)
	var seq uint64

	for pass := 0; pass < cfg.Passes; pass++ {
		kernel := baseKernel.Fork()
		actor := kernel.Create(exec.ActorType)
		strategies := NewStrategyStack(NewPseudoRandomStrategy(rng), cfg.StrategyDepth)
		engine := NewTraversalEngine(graph, spec, kernel, exec.NewExecutor(), actor, strategies, NewMockVectorSource(), weights, 0, int64(pass))

		passResult, err := engine.RunPass(ctx, cfg.MaxStepsPerPass)
		if err != nil {
			return result, err
		}

		mergeInto(result, passResult, visited, &seq)
		result.PassesCompleted++
	}

	result.UniqueNodesVisited = len(visited)
	return result, nil
}

// RunCampaignPool runs cfg.Passes passes across a bounded pool of
// cfg.Workers goroutines, each over its own forked kernel and its own
// executor instance, via golang.org/x/sync/errgroup's SetLimit. A single
// worker's local signal sequence has no global ordering to offer on its
// own; sequence numbers are assigned once at merge time by the shared
// counter below, under the merge mutex, giving every signal a single
// total order regardless of which worker produced it or in what order
// workers finish.
func RunCampaignPool(ctx context.Context, graph *compiler.NdaGraph, spec *ir.Spec, baseKernel *model.Kernel, exec Executable, cfg CampaignConfig) (*CampaignResult, error) {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.Workers)

	result := &CampaignResult{Coverage: newCoverageReport()}
	visited := make(map[compiler.NodeID]bool)
	var seq uint64
	var mu sync.Mutex

	for pass := 0; pass < cfg.Passes; pass++ {
		pass := pass
		rng := rand.New(rand.NewSource(cfg.Seed + int64(pass)))
		weights := seedWeightTable(graph)

		group.Go(func() error {
			kernel := baseKernel.Fork()
			actor := kernel.Create(exec.ActorType)
			strategies := NewStrategyStack(NewPseudoRandomStrategy(rng), cfg.StrategyDepth)
			engine := NewTraversalEngine(graph, spec, kernel, exec.NewExecutor(), actor, strategies, NewMockVectorSource(), weights, uint32(pass), int64(pass))

			passResult, err := engine.RunPass(ctx, cfg.MaxStepsPerPass)
			if err != nil {
				return err
			}

			mu.Lock()
			mergeInto(result, passResult, visited, &seq)
			result.PassesCompleted++
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return result, err
	}
	result.UniqueNodesVisited = len(visited)
	return result, nil
}

// mergeInto folds one pass's result into the running campaign total.
// Callers hold whatever lock guards result/visited/seq before calling it
// (RunCampaignPool's mu; RunCampaign needs none, being single-threaded).
func mergeInto(result *CampaignResult, pass *TraversalResult, visited map[compiler.NodeID]bool, seq *uint64) {
	for _, sig := range pass.Signals {
		sig.Seq = atomic.AddUint64(seq, 1)
		result.Signals = append(result.Signals, sig)
	}
	for _, f := range pass.Findings {
		f.Signal.Seq = atomic.AddUint64(seq, 1)
		result.Findings = append(result.Findings, CampaignFinding{RawFinding: f, Trace: pass.Trace})
	}

	for action, n := range pass.Coverage.ActionCounts {
		result.Coverage.ActionCounts[action] += n
	}
	for branch, n := range pass.Coverage.BranchCounts {
		result.Coverage.BranchCounts[branch] += n
	}

	for id := range pass.NodesVisited {
		visited[id] = true
	}

	result.TotalActions += pass.ActionsExecuted
	result.TotalGuardFailures += pass.GuardsFailed
}

// seedWeightTable builds a weight table defaulted from every branch's
// protocol-declared weight, so a campaign's first pass already reflects
// the spec's authored preferences before any adaptation directive has
// touched it.
func seedWeightTable(graph *compiler.NdaGraph) *WeightTable {
	table := NewWeightTable()
	for _, node := range graph.Nodes {
		if node.Kind != compiler.NodeKindBranch {
			continue
		}
		for _, alt := range node.Alternatives {
			table.SetDefault(alt.ID, float64(alt.Weight))
		}
	}
	return table
}
