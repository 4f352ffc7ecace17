package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newFindingsCommand() *cobra.Command {
	var (
		contentHash string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List replay capsules recorded for a compiled spec",
		Long: `findings lists up to --limit findings recorded against a content
hash, in ascending finding sequence order, each with the capsule id a
later replay call needs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if contentHash == "" {
				return fmt.Errorf("findings requires --content-hash")
			}
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			capsules, err := st.ListCapsules(cmd.Context(), contentHash, limit)
			if err != nil {
				return fmt.Errorf("listing capsules: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(capsules)
			}
			for _, c := range capsules {
				fmt.Printf("%s  seq=%-6d kind=%-20s property=%-24s %s\n", c.ID, c.Seq, c.Kind, c.Property, c.Detail)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contentHash, "content-hash", "", "content hash to list findings for")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of findings to list")
	return cmd
}
