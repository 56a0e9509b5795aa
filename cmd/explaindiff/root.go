package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awmpietro/golang-trace-explainability-case/internal/app"
	"github.com/awmpietro/golang-trace-explainability-case/internal/artifact"
	"github.com/awmpietro/golang-trace-explainability-case/internal/config"
	"github.com/awmpietro/golang-trace-explainability-case/internal/logging"
	"github.com/awmpietro/golang-trace-explainability-case/internal/report"
	"github.com/awmpietro/golang-trace-explainability-case/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	profile   string
	store     string
	db        string
	logLevel  string
	logFormat string
}

// env is filled in by the root command before any subcommand runs.
var env struct {
	rt       config.Runtime
	profile  config.Profile
	logger   *zap.Logger
	shutdown telemetry.Shutdown
}

var rootCmd = &cobra.Command{
	Use:   "explaindiff",
	Short: "Check whether pipeline traces explain differences between run outputs",
	Long: `explaindiff compares the artifacts of two pipeline runs, diffs their
outputs and traces, and judges whether the trace accounts for the output
change. Across many runs it builds a coverage matrix of which decision
variables are observable in results, traces, or neither.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupEnv,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.profile, "profile", "", "Audit profile YAML (default: $AUDIT_PROFILE)")
	f.StringVar(&rootFlags.store, "store", "", "Run store: dir or sqlite (default: $AUDIT_STORE or dir)")
	f.StringVar(&rootFlags.db, "db", "", "SQLite store path (default: $AUDIT_DB or audit.db)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level (default: $AUDIT_LOG_LEVEL or info)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: json or console (default: $AUDIT_LOG_FORMAT or json)")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.Version = version
}

func setupEnv(cmd *cobra.Command, _ []string) error {
	rt := config.Load()
	if rootFlags.profile != "" {
		rt.Profile = rootFlags.profile
	}
	profile, err := config.LoadProfile(rt.Profile)
	if err != nil {
		return err
	}
	rt = profile.Apply(rt)

	if rootFlags.store != "" {
		rt.Store = rootFlags.store
	}
	if rootFlags.db != "" {
		rt.DB = rootFlags.db
	}
	if rootFlags.logLevel != "" {
		rt.LogLevel = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		rt.LogFormat = rootFlags.logFormat
	}

	logger, err := logging.New(rt.LogLevel, rt.LogFormat)
	if err != nil {
		return err
	}
	shutdown, err := telemetry.Init(cmd.Context(), rt.OTLPEndpoint, "explaindiff")
	if err != nil {
		return err
	}

	env.rt, env.profile, env.logger, env.shutdown = rt, profile, logger, shutdown
	return nil
}

// closeEnv flushes metrics and logs. It runs whether or not the command
// failed.
func closeEnv() {
	if env.shutdown != nil {
		_ = env.shutdown(context.Background())
	}
	if env.logger != nil {
		_ = env.logger.Sync()
	}
}

func newService() (*app.Service, func(), error) {
	return app.Setup(env.rt, env.profile, env.logger)
}

// artifactFailure maps a rejected run to exit code 2.
func artifactFailure(err error) error {
	var ae *artifact.ArtifactError
	if errors.As(err, &ae) {
		return &exitError{code: report.ExitArtifactFailed, err: fmt.Errorf("artifact rejected: %w", err)}
	}
	return err
}

func outputMode(markdown bool) report.Mode {
	if markdown {
		return report.Markdown
	}
	return report.ASCII
}
