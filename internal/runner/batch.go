package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/eval"
	"github.com/vk/nfconftest/internal/sandbox"
	"github.com/vk/nfconftest/internal/testcase"
)

// Batch runs every test case under a pipeline through one engine.
type Batch struct {
	Engine  sandbox.Engine
	Workers int
	// Timeout bounds one test case run; zero means unbounded.
	Timeout time.Duration
}

// Summary aggregates a batch run. Failed doubles as the process exit code.
type Summary struct {
	Passed   int
	Failed   int
	Skipped  int
	Verdicts []Verdict
}

// Run discovers and executes all test cases under pipelineDir. Discovery
// finding nothing is an error: a pipeline with zero tests exercised is a
// configuration mistake, not a clean pass. Engine provisioning failures are
// fatal to the whole batch.
func (b *Batch) Run(ctx context.Context, pipelineDir string) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)

	tests, err := testcase.Discover(pipelineDir)
	if err != nil {
		return nil, fmt.Errorf("discovering test cases: %w", err)
	}
	if len(tests) == 0 {
		return nil, fmt.Errorf("no test case files found under %s", pipelineDir)
	}
	logger.Info("Discovered test cases.", "count", len(tests))

	if err := b.provision(ctx, tests); err != nil {
		return nil, err
	}

	verdicts := make([]Verdict, len(tests))
	jobs := make(chan int)

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tests) {
		workers = len(tests)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for workerID := 0; workerID < workers; workerID++ {
		go b.worker(ctx, jobs, tests, verdicts, pipelineDir, workerID, &wg)
	}
	for i := range tests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := &Summary{Verdicts: verdicts}
	for _, verdict := range verdicts {
		switch verdict.Status {
		case StatusPass:
			summary.Passed++
			logger.Info("Test passed.", "test", verdict.Path)
		case StatusSkip:
			summary.Skipped++
			logger.Warn("Test skipped.", "test", verdict.Path, "reason", verdict.Reason)
		default:
			summary.Failed++
			logger.Error("Test failed.",
				"test", verdict.Path,
				"reason", verdict.Reason,
				"candidate", verdict.CandidatePath,
				"error", verdict.Err,
			)
		}
	}
	logger.Info("Batch finished.",
		"passed", summary.Passed, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

// provision prepares the engine once per distinct supported version before
// any test runs. Unloadable test cases are left for RunCase to report.
func (b *Batch) provision(ctx context.Context, tests []string) error {
	logger := ctxlog.FromContext(ctx)

	versions := make(map[string]bool)
	for _, path := range tests {
		tc, err := testcase.Load(path)
		if err != nil {
			continue
		}
		if eval.Supported(tc.NextflowVersion) {
			versions[tc.NextflowVersion] = true
		}
	}

	ordered := make([]string, 0, len(versions))
	for version := range versions {
		ordered = append(ordered, version)
	}
	sort.Strings(ordered)

	for _, version := range ordered {
		logger.Debug("Provisioning engine.", "version", version)
		if err := b.Engine.Provision(ctx, version); err != nil {
			return err
		}
	}
	return nil
}

// worker is the processing loop for a single concurrent worker.
func (b *Batch) worker(ctx context.Context, jobs chan int, tests []string, verdicts []Verdict, pipelineDir string, workerID int, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for i := range jobs {
		workerLogger := logger.With("workerID", workerID, "test", tests[i])
		if ctx.Err() != nil {
			verdicts[i] = fail(tests[i], "batch cancelled", ctx.Err())
			continue
		}
		workerLogger.Debug("Worker picked up test case.")
		verdicts[i] = b.runGuarded(ctx, pipelineDir, tests[i])
	}

	logger.Debug("Worker finished.", "workerID", workerID)
}

// runGuarded isolates one test case run so a panic fails that test instead
// of taking down the batch.
func (b *Batch) runGuarded(ctx context.Context, pipelineDir, testPath string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = fail(testPath, fmt.Sprintf("panic during test run: %v", r), nil)
		}
	}()
	return RunCase(ctx, b.Engine, pipelineDir, testPath, b.Timeout)
}
