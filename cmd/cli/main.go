package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/nfconftest/internal/app"
	"github.com/vk/nfconftest/internal/cli"
)

// main is the entrypoint for the batch driver. The exit code is the number
// of failed tests, so CI can distinguish "one regression" from "broken
// invocation" (which exits through the error paths instead).
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	failed, err := run(os.Stdout, os.Args[1:])
	if err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(failed)
}

// run encapsulates the main application logic for easier testing and error
// handling. It returns the number of failed tests.
func run(outW io.Writer, args []string) (int, error) {
	config, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return 0, err
	}
	if shouldExit {
		return 0, nil
	}

	summary, err := app.NewApp(outW, config).Run(context.Background())
	if err != nil {
		return 0, err
	}
	return summary.Failed, nil
}
