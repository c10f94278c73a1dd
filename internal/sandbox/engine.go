package sandbox

import (
	"context"
	"fmt"
)

// Result is the raw outcome of one sandboxed test run.
type Result struct {
	// Output is the combined stdout of the entry process, containing the
	// contract stream after the sentinel line.
	Output string
	// ExitCode is the entry process exit code: 0 match, 82 mismatch,
	// anything else a hard error.
	ExitCode int
}

// Engine runs test cases in isolation.
type Engine interface {
	// Provision prepares the engine for the given version. It is called once
	// per distinct version before any test runs; a failure aborts the whole
	// batch.
	Provision(ctx context.Context, version string) error

	// Run executes one test case against the pipeline directory and returns
	// the contract output. An error return means the run could not be
	// attempted at all; entry-level failures come back as a Result with a
	// non-zero exit code.
	Run(ctx context.Context, version, pipelineDir, testPath string) (*Result, error)
}

// ProvisioningError marks an engine setup failure. The batch driver treats
// it as fatal rather than as one test's failure.
type ProvisioningError struct {
	Version string
	Err     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning engine version %s: %v", e.Version, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
