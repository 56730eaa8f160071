package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the aggregation pipeline once.",
		Long: `run discovers candidates on every configured listing site, drops
already-processed and duplicate events, classifies the rest, and posts
the relevant ones to the channel.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			runner, err := a.Runner(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.Logger().Info("run complete",
				zap.String("run_id", summary.RunID),
				zap.Int("published", summary.Published),
				zap.Int("ignored", summary.Ignored),
				zap.Int("failed", summary.Failed),
			)
			return nil
		},
	}
}
