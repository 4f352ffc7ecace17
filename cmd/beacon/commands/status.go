package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajhcs/beacon/pkg/beaconerr"
)

func newStatusCommand() *cobra.Command {
	var contentHash string

	cmd := &cobra.Command{
		Use:   "status [campaign-id]",
		Short: "Report a campaign's progress, or list recent campaigns for a content hash",
		Long: `status with a campaign id reports that campaign's current state,
iteration progress, coverage, and finding count. Without one, --content-hash
lists the most recent campaigns recorded against that compiled spec.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 1 {
				c, err := st.GetCampaign(cmd.Context(), args[0])
				if err != nil {
					return beaconerr.New(beaconerr.ClassNotFound, fmt.Sprintf("campaign %s not found", args[0]), err).
						WithCode(beaconerr.CodeNotFound)
				}
				return printResult(c, "campaign %s: %s (%d/%d iterations, %.1f%% coverage, %d findings)\n",
					c.ID, c.State, c.IterationsDone, c.IterationsTotal, c.CoveragePercent, c.FindingsCount)
			}

			if contentHash == "" {
				return beaconerr.New(beaconerr.ClassInternal, "status requires either a campaign id or --content-hash", nil).
					WithCode(beaconerr.CodeValidation)
			}
			campaigns, err := st.ListCampaigns(cmd.Context(), contentHash, 20)
			if err != nil {
				return fmt.Errorf("listing campaigns: %w", err)
			}
			return printResult(campaigns, "%d campaign(s) recorded for %s\n", len(campaigns), contentHash)
		},
	}

	cmd.Flags().StringVar(&contentHash, "content-hash", "", "content hash to list campaigns for (when no campaign id is given)")
	return cmd
}
