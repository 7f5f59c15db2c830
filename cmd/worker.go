package cmd

import (
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consumes the enrichment queues",
		Long: `Runs the screenshot and tag workers against the configured broker
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return appInstance.RunWorker(cmd.Context()) //nolint:wrapcheck
		},
	}
}
