package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/nfconftest/internal/app"
	"github.com/vk/nfconftest/internal/runner"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput   string
	PipelineDir string
	Summary     *runner.Summary
	Err         error
}

// RunBatch provides a standardized harness for running batch integration
// tests: it lays out a pipeline directory from the file map and runs the
// full application against it with the in-process engine.
func RunBatch(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()
	return RunBatchWithContext(context.Background(), t, files)
}

// RunBatchWithContext is RunBatch with a caller-provided context.
func RunBatchWithContext(ctx context.Context, t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	pipelineDir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(pipelineDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	config, err := app.NewConfig(app.Config{
		PipelinePath: pipelineDir,
		Local:        true,
		Workers:      4,
		Timeout:      time.Minute,
		LogFormat:    "text",
		LogLevel:     "debug",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	summary, runErr := app.NewApp(logBuffer, config).Run(ctx)

	if os.Getenv("NFCONFTEST_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput:   logBuffer.String(),
		PipelineDir: pipelineDir,
		Summary:     summary,
		Err:         runErr,
	}
}
