// Package runner drives a batch of configuration tests: it discovers test
// case files under a pipeline, provisions the sandbox engine once per
// declared version, fans the tests out over a worker pool, and folds the
// results into a summary whose failure count becomes the process exit code.
package runner
