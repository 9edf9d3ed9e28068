package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// newProvidersCmd creates the providers command: probe every backend type
// and report reachability.
func newProvidersCmd() *cobra.Command {
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Probe model backends and report health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelsDir, _ := cmd.Flags().GetString("models-dir")
			listModels, _ := cmd.Flags().GetBool("models")

			logger := buildLogger(cmd)
			reg := buildRegistry(logger, modelsDir)

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			health := reg.HealthCheckAll(ctx)
			names := make([]string, 0, len(health))
			for name := range health {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tSTATUS")
			for _, name := range names {
				status := "unreachable"
				if health[name] {
					status = "healthy"
				}
				fmt.Fprintf(w, "%s\t%s\n", name, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if listModels {
				for name, models := range reg.ListModelsAll(ctx) {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", name)
					for _, m := range models {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m)
					}
				}
			}
			return nil
		},
	}

	providersCmd.Flags().String("models-dir", "", "Local weights directory for the in-process provider")
	providersCmd.Flags().Bool("models", false, "Also list models available per backend")

	return providersCmd
}
