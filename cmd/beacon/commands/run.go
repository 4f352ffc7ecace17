package commands

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ajhcs/beacon/pkg/adapter"
	"github.com/ajhcs/beacon/pkg/beaconerr"
	"github.com/ajhcs/beacon/pkg/compiler"
	"github.com/ajhcs/beacon/pkg/coordinator"
	"github.com/ajhcs/beacon/pkg/findings"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
	"github.com/ajhcs/beacon/pkg/store"
	"github.com/ajhcs/beacon/pkg/telemetry"
	"github.com/ajhcs/beacon/pkg/traversal"
)

func newRunCommand() *cobra.Command {
	var (
		guestPath string
		passes    int
		maxSteps  int
		seed      int64
		fresh     bool
	)

	cmd := &cobra.Command{
		Use:   "run <spec.json>",
		Short: "Compile a specification and run a verification campaign against it",
		Long: `run compiles the given specification, then walks its entry protocol's
graph for a bounded number of passes, applying every action's effect to an
abstract model kernel and, if --guest is given, to a live guest module. The
coordinator folds signals into exploration directives on epoch boundaries,
and every invariant violation, temporal rule break, and model/guest
discrepancy is recorded as a finding with a replay capsule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCampaign(cmd.Context(), args[0], guestPath, passes, maxSteps, seed, fresh)
		},
	}

	cmd.Flags().StringVar(&guestPath, "guest", "", "path to a compiled wasm guest module (omit to run model-only)")
	cmd.Flags().IntVar(&passes, "passes", 20, "number of traversal passes to run")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 10_000, "maximum object-stack steps per pass")
	cmd.Flags().Int64Var(&seed, "seed", 42, "base seed for the pseudo-random exploration strategy")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "discard any persisted memory for this spec's content hash before running")

	return cmd
}

// forcedInvestigation tracks one Force directive's remaining budget while
// its TargetedStrategy sits on top of the strategy stack. Only the top
// entry ever decrements — a directive buried under a later one isn't
// steering anything right now, so spending its budget would be
// meaningless.
type forcedInvestigation struct {
	action    string
	remaining uint32
}

func runCampaign(ctx context.Context, specPath, guestPath string, passes, maxSteps int, seed int64, fresh bool) error {
	logger, err := newComponentLogger("run")
	if err != nil {
		return err
	}
	metrics, err := telemetry.NewMetrics(telemetry.DefaultConfig().Metrics)
	if err != nil {
		return fmt.Errorf("constructing metrics: %w", err)
	}
	tracer, err := telemetry.NewTracer(telemetry.DefaultConfig().Tracing, "beacon", "dev", "development")
	if err != nil {
		return fmt.Errorf("constructing tracer: %w", err)
	}

	compiled, err := loadAndCompile(specPath)
	if err != nil {
		return beaconerr.NewCompilationError("specification rejected", err).WithCode(beaconerr.CodeCompileRejected)
	}
	logger = logger.WithSpecHash(compiled.Hash)

	graph, ok := compiled.Graphs[compiled.Spec.Bindings.Entry]
	if !ok {
		return beaconerr.New(beaconerr.ClassCompilation,
			fmt.Sprintf("entry protocol %q has no compiled graph", compiled.Spec.Bindings.Entry), nil).
			WithCode(beaconerr.CodeCompileRejected)
	}

	actorType := firstEntityType(compiled.Spec.Entities)
	if actorType == "" {
		return beaconerr.New(beaconerr.ClassCompilation, "specification declares no entities to bind an actor from", nil)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if fresh {
		if err := st.DeleteCampaign(ctx, compiled.Hash); err != nil {
			return fmt.Errorf("clearing prior memory for %s: %w", compiled.Hash, err)
		}
	}

	weights := traversal.NewWeightTable()
	seedBranchDefaults(weights, graph)
	if err := restorePersistedWeights(ctx, st, weights, compiled.Hash); err != nil {
		return fmt.Errorf("restoring persisted weight table: %w", err)
	}

	newExecutor, observers, closeExecutor, err := buildExecutor(ctx, guestPath, compiled.Spec)
	if err != nil {
		return beaconerr.New(beaconerr.ClassInterfaceMismatch, "guest module could not be loaded", err)
	}
	if closeExecutor != nil {
		defer closeExecutor()
	}

	baseKernel := model.NewKernel(compiled.Spec, observers)

	campaignID := uuid.NewString()
	startedAt := time.Now()
	if err := st.CreateCampaign(ctx, store.Campaign{
		ID:              campaignID,
		ContentHash:     compiled.Hash,
		State:           store.CampaignRunning,
		IterationsTotal: int64(passes),
		StartedAt:       startedAt,
	}); err != nil {
		return fmt.Errorf("recording campaign start: %w", err)
	}
	metrics.RecordCampaignStarted(compiled.Hash)

	ledger := findings.NewLedger()
	coord := coordinator.New(coordinator.DefaultConfig())
	coord.SetUncoveredTargetBranches(uncoveredBranches(graph, nil))

	rng := rand.New(rand.NewSource(seed))
	stack := traversal.NewStrategyStack(traversal.NewPseudoRandomStrategy(rng), 4)
	var forceQueue []*forcedInvestigation
	altBlocks := collectAltBlocks(graph)
	var signalSeq uint64

	campaignLogger := logger.WithCampaignID(campaignID)
	campaignCtx, span := tracer.StartSpan(ctx, "campaign.run",
		telemetry.AttrCampaignID.String(campaignID),
		telemetry.AttrSpecHash.String(compiled.Hash),
	)
	defer span.End()

	var runErr error
	for pass := 0; pass < passes; pass++ {
		passCtx, passSpan := tracer.StartEpochSpan(campaignCtx, campaignID, int64(coord.Epoch()))

		kernel := baseKernel.Fork()
		actor := kernel.Create(actorType)
		engine := traversal.NewTraversalEngine(
			graph, compiled.Spec, kernel, newExecutor(), actor,
			stack, traversal.NewMockVectorSource(), weights,
			uint32(pass), int64(pass),
		)

		passResult, perr := engine.RunPass(passCtx, maxSteps)
		if perr != nil {
			telemetry.RecordError(passSpan, perr)
			passSpan.End()
			runErr = fmt.Errorf("pass %d: %w", pass, perr)
			break
		}

		var directives []coordinator.Directive
		for _, sig := range passResult.Signals {
			signalSeq++
			sig.Seq = signalSeq
			if folded := coord.FeedSignal(sig, weights, altBlocks); folded != nil {
				directives = append(directives, folded...)
			}
		}
		if len(directives) > 0 {
			applyExplorationDirectives(passCtx, directives, graph, stack, &forceQueue, st, compiled.Hash, campaignLogger)
			metrics.SetWeightTableCellCount(campaignID, float64(len(weights.Snapshot())))
			for _, d := range directives {
				metrics.RecordDirective(campaignID, string(d.Kind))
			}
		}

		recordPassFindings(campaignCtx, passResult, compiled.Hash, seed, pass, coord, ledger, st, metrics, campaignID, campaignLogger)

		decayForceQueue(&forceQueue, stack)

		coverage := 0.0
		if total := len(compiled.Spec.Bindings.Actions); total > 0 {
			coverage = 100 * float64(passResult.Coverage.UniqueActions()) / float64(total)
		}
		metrics.RecordIteration(campaignID)
		metrics.SetCoverage(campaignID, "actions", coverage)
		if err := st.UpdateCampaignProgress(campaignCtx, campaignID, int64(pass+1), coverage, int64(ledger.Len())); err != nil {
			campaignLogger.WithError(err).Warn("failed to persist campaign progress")
		}

		telemetry.RecordSuccess(passSpan)
		passSpan.End()
	}

	if directives := coord.Flush(weights, altBlocks); directives != nil {
		applyExplorationDirectives(campaignCtx, directives, graph, stack, &forceQueue, st, compiled.Hash, campaignLogger)
	}

	if err := persistWeightSnapshot(campaignCtx, st, weights, compiled.Hash); err != nil {
		campaignLogger.WithError(err).Warn("failed to persist weight table snapshot")
	}

	finalState := store.CampaignCompleted
	var errMsg *string
	if runErr != nil {
		finalState = store.CampaignFailed
		msg := runErr.Error()
		errMsg = &msg
	}
	if err := st.FinishCampaign(campaignCtx, campaignID, finalState, errMsg); err != nil {
		campaignLogger.WithError(err).Warn("failed to record campaign completion")
	}
	metrics.RecordCampaignCompleted(string(finalState), time.Since(startedAt))

	if runErr != nil {
		telemetry.RecordError(span, runErr)
		return runErr
	}
	telemetry.RecordSuccess(span)

	return printResult(map[string]interface{}{
		"campaign_id":  campaignID,
		"content_hash": compiled.Hash,
		"findings":     ledger.Len(),
		"passes":       passes,
	}, "campaign %s completed: %d passes, %d findings\n", campaignID, passes, ledger.Len())
}

// firstEntityType picks the alphabetically-first declared entity type to
// bind the campaign's actor from. Nothing in a specification designates
// one entity type as "the" actor; this is a deterministic stand-in for
// that missing designator.
func firstEntityType(entities map[string]ir.Entity) string {
	if len(entities) == 0 {
		return ""
	}
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

// seedBranchDefaults primes a fresh weight table with every branch's
// protocol-declared default, mirroring RunCampaign's own seedWeightTable
// so a campaign's first pass reflects the spec's authored preferences
// before any directive has touched it.
func seedBranchDefaults(weights *traversal.WeightTable, graph *compiler.NdaGraph) {
	for _, node := range graph.Nodes {
		if node.Kind != compiler.NodeKindBranch {
			continue
		}
		for _, alt := range node.Alternatives {
			weights.SetDefault(alt.ID, float64(alt.Weight))
		}
	}
}

// restorePersistedWeights seeds every state-conditioned cell a prior
// campaign against the same content hash left behind, so this run
// resumes rather than re-discovering what the last one already learned.
func restorePersistedWeights(ctx context.Context, st *store.SQLiteStore, weights *traversal.WeightTable, contentHash string) error {
	cells, err := st.ListWeightCells(ctx, contentHash)
	if err != nil {
		return err
	}
	for _, cell := range cells {
		weights.LoadCell(cell.BranchID, cell.ModelStateHash, cell.Weight)
	}
	return nil
}

// persistWeightSnapshot writes back every state-conditioned cell the
// weight table carries now, so the next campaign against the same
// content hash can restore it via restorePersistedWeights.
func persistWeightSnapshot(ctx context.Context, st *store.SQLiteStore, weights *traversal.WeightTable, contentHash string) error {
	for _, key := range weights.Snapshot() {
		cell := store.WeightCellRecord{
			ContentHash:    contentHash,
			BranchID:       key.BranchID,
			ModelStateHash: key.ModelStateHash,
			Weight:         weights.Get(key.BranchID, key.ModelStateHash),
		}
		if err := st.UpsertWeightCell(ctx, cell); err != nil {
			return err
		}
	}
	return nil
}

// collectAltBlocks groups every branch node's alternatives into one block
// of branch ids, the shape coordinator.FeedSignal/Flush need to normalize
// weights within a block rather than across the whole graph.
func collectAltBlocks(graph *compiler.NdaGraph) [][]string {
	var blocks [][]string
	for _, node := range graph.Nodes {
		if node.Kind != compiler.NodeKindBranch {
			continue
		}
		ids := make([]string, 0, len(node.Alternatives))
		for _, alt := range node.Alternatives {
			ids = append(ids, alt.ID)
		}
		blocks = append(blocks, ids)
	}
	return blocks
}

// uncoveredBranches reports every branch id not present in visited, for
// seeding the coordinator's coverage-floor enforcement. Called once
// before the first pass, when nothing has been visited yet, this simply
// returns every declared branch.
func uncoveredBranches(graph *compiler.NdaGraph, visited map[string]bool) []string {
	var ids []string
	for _, node := range graph.Nodes {
		if node.Kind != compiler.NodeKindBranch {
			continue
		}
		for _, alt := range node.Alternatives {
			if visited == nil || !visited[alt.ID] {
				ids = append(ids, alt.ID)
			}
		}
	}
	return ids
}

// buildExecutor returns a per-pass executor factory, an observer caller
// for the model kernel, and a cleanup function. With no guest path it
// runs model-only; one Adapter is loaded and reused across every pass
// otherwise, since RunPass itself is never called concurrently here.
func buildExecutor(ctx context.Context, guestPath string, spec *ir.Spec) (func() traversal.ActionExecutor, model.ObserverCaller, func(), error) {
	if guestPath == "" {
		return func() traversal.ActionExecutor { return traversal.ModelOnlyExecutor{} }, nil, nil, nil
	}

	wasmBytes, err := os.ReadFile(guestPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading guest module %s: %w", guestPath, err)
	}
	ad, err := adapter.Load(ctx, wasmBytes, spec, adapter.DefaultConfig())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading guest module %s: %w", guestPath, err)
	}

	executor := &traversal.AdapterExecutor{Adapter: ad}
	newExecutor := func() traversal.ActionExecutor { return executor }
	closeFn := func() { _ = ad.Close(ctx) }
	return newExecutor, ad, closeFn, nil
}

// applyExplorationDirectives handles the two directive kinds the
// coordinator itself declines to act on: Force pushes a targeted
// strategy biased toward the reported action, and LoopLimit mutates the
// named loop node's iteration bounds directly. PermanentZero's weight
// effect is already applied by the coordinator; this only persists its
// proof for audit and for the next campaign's --fresh decision.
//
// A Force directive's Action names the action or property that
// triggered it, not necessarily a branch id. Branch ids in this harness
// are conventionally named after the action they lead to, so
// TargetedStrategy is given that name directly; a spec that breaks this
// convention simply gets a strategy that never matches and falls through
// to the base strategy unchanged.
func applyExplorationDirectives(
	ctx context.Context,
	directives []coordinator.Directive,
	graph *compiler.NdaGraph,
	stack *traversal.StrategyStack,
	forceQueue *[]*forcedInvestigation,
	st *store.SQLiteStore,
	contentHash string,
	logger *telemetry.Logger,
) {
	for _, d := range directives {
		switch d.Kind {
		case coordinator.DirectiveForce:
			stack.Push(traversal.NewTargetedStrategy(stack.Current(), d.Action))
			*forceQueue = append(*forceQueue, &forcedInvestigation{action: d.Action, remaining: d.Budget})
			logger.WithField("action", d.Action).WithField("budget", d.Budget).Info("forcing exploration toward action")

		case coordinator.DirectiveLoopLimit:
			node, ok := graph.Nodes[compiler.NodeID(d.LoopNodeID)]
			if !ok {
				logger.WithField("loop_node_id", d.LoopNodeID).Warn("loop_limit directive names an unknown node")
				continue
			}
			node.Min = d.NewMin
			node.Max = d.NewMax

		case coordinator.DirectivePermanentZero:
			proof := store.ProofRecord{
				ContentHash:    contentHash,
				BranchID:       d.BranchID,
				ModelStateHash: d.ModelStateHash,
				Kind:           string(d.Proof.Kind),
				Description:    d.Proof.Description,
				CreatedAt:      time.Now(),
			}
			if err := st.RecordProof(ctx, proof); err != nil {
				logger.WithError(err).WithField("branch_id", d.BranchID).Warn("failed to persist unreachability proof")
			}
		}
	}
}

// decayForceQueue spends one pass's worth of budget from the
// most-recently-pushed forced investigation — the only one actually
// steering decisions right now — popping its strategy once its budget is
// exhausted.
func decayForceQueue(forceQueue *[]*forcedInvestigation, stack *traversal.StrategyStack) {
	q := *forceQueue
	if len(q) == 0 {
		return
	}
	top := q[len(q)-1]
	if top.remaining > 0 {
		top.remaining--
	}
	if top.remaining == 0 {
		stack.Pop()
		*forceQueue = q[:len(q)-1]
	}
}

// recordPassFindings turns every significant signal in a pass into a
// finding with a replay capsule, persisting each as it's recorded so a
// crash partway through the campaign doesn't lose findings already
// reported.
func recordPassFindings(
	ctx context.Context,
	passResult *traversal.TraversalResult,
	contentHash string,
	seed int64,
	pass int,
	coord *coordinator.Coordinator,
	ledger *findings.Ledger,
	st *store.SQLiteStore,
	metrics *telemetry.Metrics,
	campaignID string,
	logger *telemetry.Logger,
) {
	for _, rf := range passResult.Findings {
		kind, ok := findings.FromSignal(rf.Signal.Kind)
		if !ok {
			continue
		}

		detail := rf.Signal.Details
		if detail == "" {
			detail = rf.Signal.Message
		}
		property := rf.Signal.Property
		if property == "" {
			property = rf.Signal.Action
		}

		violatingStep := 0
		if n := len(rf.TraceIndices); n > 0 {
			violatingStep = rf.TraceIndices[n-1]
		}
		if violatingStep >= passResult.Trace.Len() {
			violatingStep = passResult.Trace.Len() - 1
		}
		if violatingStep < 0 {
			continue
		}

		capsule := findings.NewCapsule(contentHash, []int64{seed, int64(pass)}, passResult.Trace, violatingStep, coord.Log().Entries())
		finding := ledger.Record(findings.NewFinding(kind, property, detail, capsule))

		capsuleJSON, err := marshalCapsule(capsule)
		if err != nil {
			logger.WithError(err).Warn("failed to marshal replay capsule")
			continue
		}
		record := store.CapsuleRecord{
			ID:          finding.ID,
			ContentHash: contentHash,
			Kind:        string(finding.Kind),
			Property:    finding.Property,
			Detail:      finding.Detail,
			Seq:         finding.Seq,
			CapsuleJSON: capsuleJSON,
			CreatedAt:   time.Now(),
		}
		if err := st.SaveCapsule(ctx, record); err != nil {
			logger.WithError(err).WithField("finding_id", finding.ID).Warn("failed to persist replay capsule")
		}
		if err := st.BumpHotRegion(ctx, contentHash, capsule.StartStateHash, string(finding.Kind)); err != nil {
			logger.WithError(err).Warn("failed to bump hot region")
		}

		metrics.RecordFinding(campaignID, string(finding.Kind), findingSeverity(finding.Kind))
		logger.WithField("kind", finding.Kind).WithField("property", finding.Property).Warn("finding recorded")
	}
}

// findingSeverity classifies a finding kind for the metrics label set. A
// crash or unmet invariant is always severe; a discrepancy or deadline
// miss is notable but survivable.
func findingSeverity(kind findings.Kind) string {
	switch kind {
	case findings.KindGuestCrash, findings.KindInvariantViolation:
		return "critical"
	default:
		return "warning"
	}
}
