package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/traffic-sign-mcp/internal/config"
	"github.com/ironsheep/traffic-sign-mcp/internal/detector"
	"github.com/ironsheep/traffic-sign-mcp/internal/logging"
	"github.com/ironsheep/traffic-sign-mcp/internal/pipeline"
)

// app holds the state shared by every command.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sign-mcp",
		Short: "Traffic sign detection and explanation for drivers",
		Long: `sign-mcp finds traffic signs in photos, explains what each one requires of
the driver, and lets an operator override detection with a chosen sign.

Run "sign-mcp serve" from an MCP client, or use the other commands directly.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", os.Getenv(config.EnvConfig),
		"YAML configuration file (env "+config.EnvConfig+")")
	pf.StringVar(&a.logLevel, "log-level", "",
		"debug, info, warn or error (env "+logging.EnvLevel+")")

	root.AddCommand(
		newServeCmd(a),
		newDetectCmd(a),
		newExplainCmd(a),
		newLabelsCmd(a),
		newRulesCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger. Logs go to the
// command's error stream so stdout stays free for results and MCP traffic.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newService builds the pipeline. A nil provider selects the process-wide
// ONNX detector.
func (a *app) newService(provider *detector.Provider) (*pipeline.Service, error) {
	if provider == nil {
		detector.SetDefaultFactory(detector.ONNXFactory(pipeline.ONNXConfig(a.cfg)), a.logger)
		provider = detector.Default()
	}
	return pipeline.New(pipeline.Options{
		Config:   a.cfg,
		Provider: provider,
		Logger:   a.logger,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sign-mcp %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
