package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/traffic-sign-mcp/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server reading JSON-RPC requests on stdin and writing
responses on stdout. Configure it as a stdio server in your MCP client.

The detector is built on the first detection request. If the model cannot be
loaded, reports carry the error until sign_detector_reset succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := a.newService(nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
	}()

	a.logger.Info("starting MCP server over stdio",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("model", a.cfg.Detector.ModelPath),
		zap.Bool("override", a.cfg.ManualOverride.Enabled))

	return server.New(svc, Version, a.logger).Run(ctx)
}
