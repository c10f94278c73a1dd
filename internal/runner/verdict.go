package runner

import "github.com/vk/nfconftest/internal/snapshot"

// Status classifies the outcome of one test case.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Verdict is the outcome of one test case run.
type Verdict struct {
	// Path identifies the test case file.
	Path   string
	Status Status

	// Reason is a human-readable explanation for skips and failures.
	Reason string

	// Changes holds the snapshot differences behind a mismatch failure.
	Changes []snapshot.Change

	// CandidatePath is where the corrected expectation was written after a
	// mismatch, empty otherwise.
	CandidatePath string

	// Err carries the underlying error for hard failures.
	Err error
}

func pass(path string) Verdict {
	return Verdict{Path: path, Status: StatusPass}
}

func skip(path, reason string) Verdict {
	return Verdict{Path: path, Status: StatusSkip, Reason: reason}
}

func fail(path, reason string, err error) Verdict {
	return Verdict{Path: path, Status: StatusFail, Reason: reason, Err: err}
}
