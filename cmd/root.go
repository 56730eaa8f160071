// Package cmd wires the eventwire CLI.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bizkazan/eventwire/internal/app"
	"github.com/bizkazan/eventwire/internal/config"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// newApp is a variable so tests can inject a fake container.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

func appFrom(cmd *cobra.Command) *app.App {
	a, _ := cmd.Context().Value(appKey).(*app.App)
	return a
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventwire",
		Short: "Aggregates business events for the Kazan community channel.",
		Long: `eventwire watches event-listing sites, filters announcements through a
language model, and publishes the relevant ones to a Telegram channel,
posting each event exactly once.`,
		SilenceUsage: true,

		// Build the service container after flags are parsed and before
		// any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a := appFrom(cmd); a != nil {
				a.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, environment is enough)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDigestCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the CLI entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
