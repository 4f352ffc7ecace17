package commands

import (
	"github.com/spf13/cobra"

	"github.com/ajhcs/beacon/pkg/beaconerr"
)

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <spec.json>",
		Short: "Validate and lower a specification, reporting its content hash",
		Long: `compile runs a specification document through schema validation, structural
and type checking, and protocol-to-graph lowering, without starting a
campaign. It is the fast path for iterating on a spec before committing to
a run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newComponentLogger("compile")
			if err != nil {
				return err
			}

			compiled, err := loadAndCompile(args[0])
			if err != nil {
				cerr := beaconerr.NewCompilationError("specification rejected", err)
				logger.WithError(cerr).Error("compile failed")
				return cerr
			}

			logger.WithSpecHash(compiled.Hash).Info("specification compiled")

			protocols := make([]string, 0, len(compiled.Graphs))
			for name := range compiled.Graphs {
				protocols = append(protocols, name)
			}

			return printResult(map[string]interface{}{
				"content_hash": compiled.Hash,
				"protocols":    protocols,
				"entry":        compiled.Spec.Bindings.Entry,
			}, "compiled ok: content_hash=%s protocols=%d entry=%s\n",
				compiled.Hash, len(protocols), compiled.Spec.Bindings.Entry)
		},
	}
	return cmd
}
