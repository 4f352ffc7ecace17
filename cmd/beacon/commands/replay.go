package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajhcs/beacon/pkg/beaconerr"
	"github.com/ajhcs/beacon/pkg/findings"
	"github.com/ajhcs/beacon/pkg/model"
)

func newReplayCommand() *cobra.Command {
	var guestPath string

	cmd := &cobra.Command{
		Use:   "replay <capsule-id> <spec.json>",
		Short: "Deterministically re-run a finding's replay capsule against the current spec",
		Long: `replay loads a persisted capsule and re-executes its recorded prefix
against a fresh model kernel (and, if --guest is given, a fresh guest
module), reporting whether the finding it captured still reproduces. A
capsule whose spec content hash no longer matches the freshly compiled
spec is reported stale without being replayed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			capsuleID, specPath := args[0], args[1]

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			record, err := st.GetCapsule(ctx, capsuleID)
			if err != nil {
				return beaconerr.New(beaconerr.ClassNotFound, fmt.Sprintf("capsule %s not found", capsuleID), err).
					WithCode(beaconerr.CodeNotFound)
			}

			var capsule findings.Capsule
			if err := json.Unmarshal(record.CapsuleJSON, &capsule); err != nil {
				return fmt.Errorf("decoding capsule %s: %w", capsuleID, err)
			}
			finding := findings.Finding{
				ID:       record.ID,
				Seq:      record.Seq,
				Kind:     findings.Kind(record.Kind),
				Property: record.Property,
				Detail:   record.Detail,
				Capsule:  capsule,
			}

			compiled, err := loadAndCompile(specPath)
			if err != nil {
				return beaconerr.NewCompilationError("specification rejected", err).WithCode(beaconerr.CodeCompileRejected)
			}

			newExecutor, observers, closeExecutor, err := buildExecutor(ctx, guestPath, compiled.Spec)
			if err != nil {
				return beaconerr.New(beaconerr.ClassInterfaceMismatch, "guest module could not be loaded", err)
			}
			if closeExecutor != nil {
				defer closeExecutor()
			}

			kernel := model.NewKernel(compiled.Spec, observers)
			result, err := findings.Reproduce(ctx, compiled.Spec, compiled.Hash, finding, kernel, newExecutor())
			if err != nil {
				return fmt.Errorf("replaying capsule %s: %w", capsuleID, err)
			}

			return printResult(map[string]interface{}{
				"capsule_id": capsuleID,
				"reproduced": result.Reproduced,
				"detail":     result.Detail,
			}, "capsule %s: reproduced=%v %s\n", capsuleID, result.Reproduced, result.Detail)
		},
	}

	cmd.Flags().StringVar(&guestPath, "guest", "", "path to a compiled wasm guest module (omit to replay model-only)")
	return cmd
}
