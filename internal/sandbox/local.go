package sandbox

import (
	"context"
	"strings"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/eval"
)

// LocalEngine evaluates test cases in-process. It trades the container
// isolation of the Docker engine for speed, which is what development loops
// want; the evaluation semantics are identical because both paths run the
// same entry code.
type LocalEngine struct{}

// NewLocalEngine returns an in-process engine.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{}
}

// Provision is a no-op: the in-process engine evaluates every supported
// version with the code it was built from.
func (e *LocalEngine) Provision(ctx context.Context, version string) error {
	ctxlog.FromContext(ctx).Debug("Local engine needs no provisioning.", "version", version)
	return nil
}

// Run evaluates one test case in-process and captures the contract stream.
func (e *LocalEngine) Run(ctx context.Context, version, pipelineDir, testPath string) (*Result, error) {
	var output strings.Builder
	code := eval.RunEntry(ctx, &output, pipelineDir, testPath)
	return &Result{Output: output.String(), ExitCode: code}, ctx.Err()
}
