// Command aegis is the CLI entry point: thin plumbing over the
// orchestration core. Transport layers (HTTP, WebSocket) are external
// collaborators and live elsewhere; this binary wires config, logging,
// and the core components together for one-shot invocations.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aegis/internal/audit"
	"aegis/internal/config"
	"aegis/internal/memory"
	"aegis/internal/pipeline"
	"aegis/internal/provider"
	"aegis/internal/session"
)

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:           "aegis",
		Short:         "Guarded LLM orchestration: memory, routing, safe execution, war room review",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default .aegis/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(newChatCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newReviewCmd())
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger: production config normally,
// development config with debug level when --debug is set.
func newLogger() (*zap.Logger, error) {
	if flagDebug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return cfg.Build()
}

// loadConfig resolves the config path and loads it.
func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return config.Default(), err
		}
		path = config.DefaultPath(cwd)
	}
	return config.Load(path)
}

// newProvider builds the completion client from config, wrapped with
// call tracing.
func newProvider(cfg config.Config, logger *zap.Logger) provider.Client {
	client := provider.NewHTTPClientWithConfig(provider.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.ProviderTimeout(),
		Retry: provider.RetryPolicy{
			MaxAttempts: cfg.Provider.MaxRetries,
			BaseDelay:   time.Second,
			Retryable:   provider.IsRetryable,
		},
	})
	return provider.NewTracingClient(client, logger)
}

// newSessionStore opens the workspace session store. Sessions persist as
// JSON files so conversations survive across one-shot invocations.
func newSessionStore(cfg config.Config, llm provider.Client, logger *zap.Logger) (*session.FileStore, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(filepath.Join(cwd, ".aegis", "sessions"), func() *memory.Manager {
		return memory.NewManager(llm, logger, memory.Config{
			WindowSize:   cfg.Memory.WindowSize,
			MaxSummaries: cfg.Memory.MaxSummaries,
		})
	})
}

// newPipeline builds the execution pipeline and its audit sink.
func newPipeline(cfg config.Config, logger *zap.Logger) (*pipeline.Pipeline, func(), error) {
	sink, err := audit.NewFileSink(cfg.Execution.AuditLogPath, logger)
	if err != nil {
		return nil, nil, err
	}
	p := pipeline.NewPipelineWithConfig(pipeline.Config{
		DefaultTimeout: time.Duration(cfg.Execution.DefaultTimeoutMs) * time.Millisecond,
		GracePeriod:    time.Duration(cfg.Execution.GracePeriodSec) * time.Second,
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	}, sink, logger)
	return p, func() { _ = sink.Close() }, nil
}
