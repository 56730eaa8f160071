package cmd

import (
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and digest on a schedule with an ops endpoint.",
		Long: `serve starts the operational HTTP server (health, readiness, metrics,
event listing) and triggers pipeline runs and the weekly digest on the
configured cron schedules until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			logger := a.Logger()
			cfg := a.Config()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := cron.New()
			_, err := c.AddFunc(cfg.Schedule.Pipeline, func() {
				runner, err := a.Runner(ctx)
				if err != nil {
					logger.Error("build pipeline runner", zap.Error(err))
					return
				}
				if _, err := runner.Run(ctx); err != nil {
					logger.Error("scheduled pipeline run failed", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}
			_, err = c.AddFunc(cfg.Schedule.Digest, func() {
				compiler, err := a.Digest(ctx)
				if err != nil {
					logger.Error("build digest compiler", zap.Error(err))
					return
				}
				if _, err := compiler.Run(ctx); err != nil {
					logger.Error("scheduled digest failed", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}

			c.Start()
			defer c.Stop()
			logger.Info("scheduler started",
				zap.String("pipeline_schedule", cfg.Schedule.Pipeline),
				zap.String("digest_schedule", cfg.Schedule.Digest),
			)

			return a.Server().ListenAndServe(ctx, cfg.Server.Port)
		},
	}
}
