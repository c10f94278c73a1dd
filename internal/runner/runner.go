package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/eval"
	"github.com/vk/nfconftest/internal/sandbox"
	"github.com/vk/nfconftest/internal/snapshot"
	"github.com/vk/nfconftest/internal/testcase"
)

// RunCase executes one test case against the engine and classifies the
// outcome. Mismatches write a candidate expectation file next to the test;
// passes remove any stale candidate.
func RunCase(ctx context.Context, engine sandbox.Engine, pipelineDir, testPath string, timeout time.Duration) Verdict {
	logger := ctxlog.FromContext(ctx).With("test", testPath)

	tc, err := testcase.Load(testPath)
	if err != nil {
		return fail(testPath, "test case could not be loaded", err)
	}

	if !eval.Supported(tc.NextflowVersion) {
		logger.Debug("Skipping unsupported engine version.", "version", tc.NextflowVersion)
		return skip(testPath, fmt.Sprintf("engine version %s is not supported", tc.NextflowVersion))
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := engine.Run(runCtx, tc.NextflowVersion, pipelineDir, testPath)
	// A deadline kill can surface as an error or as a nonsense exit code,
	// depending on the engine; the context is the authority either way.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fail(testPath, fmt.Sprintf("timed out after %s", timeout), runCtx.Err())
	}
	if err != nil {
		return fail(testPath, "engine run failed", err)
	}

	switch result.ExitCode {
	case eval.ExitMatch:
		if err := tc.RemoveCandidate(); err != nil {
			logger.Warn("Could not remove stale candidate.", "error", err)
		}
		return pass(testPath)

	case eval.ExitMismatch:
		return classifyMismatch(ctx, tc, result)

	default:
		return fail(testPath,
			fmt.Sprintf("entry exited with code %d", result.ExitCode),
			fmt.Errorf("entry output:\n%s", result.Output))
	}
}

// classifyMismatch turns a mismatch exit into a failure verdict carrying the
// structural diff and a candidate artifact built from the actual snapshot.
func classifyMismatch(ctx context.Context, tc *testcase.TestCase, result *sandbox.Result) Verdict {
	logger := ctxlog.FromContext(ctx).With("test", tc.Path)

	actual, _, err := eval.ParseEntryOutput(result.Output)
	if err != nil {
		return fail(tc.Path, "mismatch reported but entry output was unreadable", err)
	}

	expected, err := snapshot.FromExpected(tc.ExpectedResult)
	if err != nil {
		return fail(tc.Path, "expected result is malformed", err)
	}
	expected = expected.WithoutPrefixes(tc.IgnoredFields)

	verdict := fail(tc.Path, "", nil)
	verdict.Changes = snapshot.Diff(expected, actual)
	verdict.Reason = fmt.Sprintf("snapshot mismatch (%d changed paths)", len(verdict.Changes))

	candidatePath, err := tc.WriteCandidate(actual.Nested())
	if err != nil {
		logger.Error("Could not write candidate expectation.", "error", err)
		verdict.Err = err
		return verdict
	}
	verdict.CandidatePath = candidatePath
	return verdict
}
