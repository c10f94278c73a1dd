package eval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/snapshot"
	"github.com/vk/nfconftest/internal/testcase"
)

// The invocation contract between the batch driver and the per-test entry
// point, whether it runs in-process or inside a container. Everything before
// the last Sentinel line is engine noise and is discarded by the parser.
const (
	Sentinel   = "=========SENTINEL_OUTPUT=========="
	VersionKey = "NXF_VERSION"

	ExitMatch    = 0
	ExitMismatch = 82
	ExitError    = 1
)

// RunEntry evaluates one test case and writes the contract stream to w: the
// sentinel line, one NXF_VERSION line, then the normalized key=value stream.
// The return value is the process exit code.
func RunEntry(ctx context.Context, w io.Writer, pipelineDir, testPath string) int {
	logger := ctxlog.FromContext(ctx)

	tc, err := testcase.Load(testPath)
	if err != nil {
		logger.Error("Failed to load test case.", "path", testPath, "error", err)
		return ExitError
	}

	actual, err := Evaluate(ctx, pipelineDir, tc)
	if err != nil {
		logger.Error("Evaluation failed.", "path", testPath, "error", err)
		return ExitError
	}

	expected, err := snapshot.FromExpected(tc.ExpectedResult)
	if err != nil {
		logger.Error("Expected result is malformed.", "path", testPath, "error", err)
		return ExitError
	}
	expected = expected.WithoutPrefixes(tc.IgnoredFields)

	if err := writeContract(w, tc.NextflowVersion, actual); err != nil {
		logger.Error("Failed to write result stream.", "error", err)
		return ExitError
	}

	changes := snapshot.Diff(expected, actual)
	if len(changes) == 0 {
		return ExitMatch
	}
	logger.Debug("Snapshot mismatch.", "changes", len(changes))
	return ExitMismatch
}

func writeContract(w io.Writer, version string, snap snapshot.Snapshot) error {
	if _, err := fmt.Fprintln(w, Sentinel); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s=%s\n", VersionKey, version); err != nil {
		return err
	}
	return snap.WriteTo(w)
}

// ParseEntryOutput extracts the snapshot and engine version from raw entry
// output. Only the portion after the last sentinel line counts; anything the
// engine printed before it is ignored.
func ParseEntryOutput(output string) (snapshot.Snapshot, string, error) {
	lines := strings.Split(output, "\n")
	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, "\r") == Sentinel {
			start = i + 1
		}
	}
	if start < 0 {
		return snapshot.Snapshot{}, "", fmt.Errorf("no sentinel line in entry output")
	}

	snap, err := snapshot.Parse(strings.NewReader(strings.Join(lines[start:], "\n")))
	if err != nil {
		return snapshot.Snapshot{}, "", err
	}

	version := ""
	for _, entry := range snap.Entries() {
		if entry.Path == VersionKey {
			version = entry.Value
			break
		}
	}
	if version == "" {
		return snapshot.Snapshot{}, "", fmt.Errorf("entry output is missing the %s line", VersionKey)
	}
	return snap.WithoutPrefixes([]string{VersionKey}), version, nil
}
