package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/eval"
)

// main is the per-test entry point that runs inside the sandbox. It takes
// the pipeline directory and one test case file, writes the contract stream
// to stdout, and exits 0 on match, 82 on mismatch, 1 on a hard error. Logs
// go to stderr so they never pollute the contract stream.
func main() {
	flagSet := flag.NewFlagSet("nfconftest-entry", flag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nfconftest-entry [options] PIPELINE_DIR TEST_FILE")
		flagSet.PrintDefaults()
	}
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if flagSet.NArg() != 2 {
		flagSet.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(*logLevelFlag)); err != nil {
		fmt.Fprintln(os.Stderr, "invalid log-level:", *logLevelFlag)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	os.Exit(eval.RunEntry(ctx, os.Stdout, flagSet.Arg(0), flagSet.Arg(1)))
}
