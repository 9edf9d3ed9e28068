package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newAgentsCmd creates the agents command: list the registered agents.
func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := buildStore(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROLE\tLABEL\tMODEL\tTOK/S\tVRAM")
			for _, d := range store.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.1fGB\n",
					d.ID, d.Role, d.Label, d.Model, d.Profile.TokensPerSec, d.Profile.VRAMGb)
			}
			return w.Flush()
		},
	}
}
