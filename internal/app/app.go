package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/runner"
	"github.com/vk/nfconftest/internal/sandbox"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:   outW,
		logger: logger,
		config: config,
	}
}

// Run executes the batch and reports the summary. The caller turns
// Summary.Failed into the process exit code.
func (a *App) Run(ctx context.Context) (*runner.Summary, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if _, err := os.Stat(a.config.PipelinePath); err != nil {
		return nil, fmt.Errorf("pipeline path: %w", err)
	}

	engine := a.buildEngine()
	batch := &runner.Batch{
		Engine:  engine,
		Workers: a.config.Workers,
		Timeout: a.config.Timeout,
	}

	a.logger.Info("Starting test batch.",
		"pipeline", a.config.PipelinePath,
		"workers", a.config.Workers,
		"local", a.config.Local,
	)
	summary, err := batch.Run(ctx, a.config.PipelinePath)
	if err != nil {
		return nil, err
	}

	a.report(summary)
	a.logger.Debug("App.Run method finished.")
	return summary, nil
}

// buildEngine picks the sandbox implementation from the configuration.
func (a *App) buildEngine() sandbox.Engine {
	if a.config.Local {
		a.logger.Debug("Using in-process engine.")
		return sandbox.NewLocalEngine()
	}
	a.logger.Debug("Using Docker engine.",
		"repo", a.config.ImageRepo, "dev", a.config.Dev)
	return sandbox.NewDockerEngine(a.config.ImageRepo, a.config.Dev, a.config.BuildContext)
}

// report writes the human-facing summary, including where each failing
// test's candidate expectation landed.
func (a *App) report(summary *runner.Summary) {
	for _, verdict := range summary.Verdicts {
		if verdict.Status != runner.StatusFail {
			continue
		}
		fmt.Fprintf(a.outW, "FAIL %s: %s\n", verdict.Path, verdict.Reason)
		for _, change := range verdict.Changes {
			before, after := "<absent>", "<absent>"
			if change.Before != nil {
				before = *change.Before
			}
			if change.After != nil {
				after = *change.After
			}
			fmt.Fprintf(a.outW, "  %s: expected %s, got %s\n", change.Path, before, after)
		}
		if verdict.CandidatePath != "" {
			fmt.Fprintf(a.outW, "  candidate written to %s\n", verdict.CandidatePath)
		}
	}
	fmt.Fprintf(a.outW, "%d passed, %d failed, %d skipped\n",
		summary.Passed, summary.Failed, summary.Skipped)
}
