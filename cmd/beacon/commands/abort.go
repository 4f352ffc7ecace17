package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajhcs/beacon/pkg/beaconerr"
	"github.com/ajhcs/beacon/pkg/store"
)

func newAbortCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort <campaign-id>",
		Short: "Mark a running campaign as aborted",
		Long: `abort flips a campaign's recorded state to aborted. It does not stop a
process that is still running this campaign in the foreground — for that,
interrupt the running "beacon run" directly. abort exists for marking a
campaign that was killed out from under its own bookkeeping (process
killed, machine rebooted) as no longer running, so status reports it
correctly and the next --fresh run doesn't inherit a half-finished state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			campaignID := args[0]
			c, err := st.GetCampaign(ctx, campaignID)
			if err != nil {
				return beaconerr.New(beaconerr.ClassNotFound, fmt.Sprintf("campaign %s not found", campaignID), err).
					WithCode(beaconerr.CodeNotFound)
			}
			if c.State != store.CampaignRunning && c.State != store.CampaignPending {
				return beaconerr.New(beaconerr.ClassInternal,
					fmt.Sprintf("campaign %s is already %s", campaignID, c.State), nil).
					WithCode(beaconerr.CodeCampaignNotRunning)
			}

			msg := "aborted by operator"
			if err := st.FinishCampaign(ctx, campaignID, store.CampaignAborted, &msg); err != nil {
				return fmt.Errorf("recording abort: %w", err)
			}

			return printResult(map[string]interface{}{
				"campaign_id": campaignID,
				"state":       store.CampaignAborted,
			}, "campaign %s marked aborted\n", campaignID)
		},
	}
	return cmd
}
