package cmd

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var withWorkers bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API",
		Long: `Serves the content API, health probes and Prometheus metrics. With
--workers the enrichment consumers run in the same process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return appInstance.RunServe(cmd.Context(), withWorkers) //nolint:wrapcheck
		},
	}
	cmd.Flags().BoolVar(&withWorkers, "workers", false, "also consume the enrichment queues")
	return cmd
}
