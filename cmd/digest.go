package cmd

import (
	"github.com/spf13/cobra"
)

func newDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Compile and send the weekly event digest.",
		Long: `digest collects the published events dated within the current calendar
week (Monday through Sunday) and sends one summary message. A week with
no dated events sends nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			compiler, err := a.Digest(cmd.Context())
			if err != nil {
				return err
			}
			sent, err := compiler.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !sent {
				a.Logger().Info("digest skipped, no events this week")
			}
			return nil
		},
	}
}
