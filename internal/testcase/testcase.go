// Package testcase loads and persists configuration test case files. A test
// case declares the configuration inputs, simulated capacity, mocks, and
// volatile-field lists for one regression test, plus the expected snapshot.
// Test cases are immutable once loaded and identified by their file path.
package testcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/vk/nfconftest/internal/fsutil"
)

// FilePattern matches test case files during discovery; candidate artifacts
// carry the CandidateSuffix and are excluded.
const (
	FilePattern     = "configtest*"
	CandidateSuffix = "-out"
)

// TestCase is one loaded configuration test.
type TestCase struct {
	// Path is where the test case was loaded from; it identifies the test
	// in reports and anchors the candidate artifact. Not serialized.
	Path string `json:"-"`

	NextflowVersion string                     `json:"nextflow_version"`
	Config          []string                   `json:"config"`
	ParamsFile      string                     `json:"params_file,omitempty"`
	CPUs            int                        `json:"cpus"`
	MemoryGB        float64                    `json:"memory_gb"`
	EmptyFiles      []string                   `json:"empty_files,omitempty"`
	MappedFiles     map[string]string          `json:"mapped_files,omitempty"`
	NFParams        map[string]string          `json:"nf_params,omitempty"`
	EnvVars         map[string]string          `json:"envvars,omitempty"`
	Mocks           map[string]json.RawMessage `json:"mocks,omitempty"`
	DatedFields     []string                   `json:"dated_fields,omitempty"`
	VersionFields   []string                   `json:"version_fields,omitempty"`
	IgnoredFields   []string                   `json:"ignored_fields,omitempty"`
	ExpectedResult  map[string]any             `json:"expected_result"`
}

// Load reads a test case from a JSON or YAML file. JSON numbers are decoded
// with their literal text preserved so expected values render canonically.
func Load(path string) (*TestCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading test case: %w", err)
	}

	if isYAML(path) {
		converted, err := yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("converting YAML test case %s: %w", path, err)
		}
		raw = converted
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	testCase := &TestCase{}
	if err := decoder.Decode(testCase); err != nil {
		return nil, fmt.Errorf("parsing test case %s: %w", path, err)
	}
	testCase.Path = path

	if err := testCase.validate(); err != nil {
		return nil, fmt.Errorf("test case %s: %w", path, err)
	}
	return testCase, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// validate rejects structurally unusable test cases up front.
func (t *TestCase) validate() error {
	if t.NextflowVersion == "" {
		return fmt.Errorf("nextflow_version is required")
	}
	if len(t.Config) == 0 {
		return fmt.Errorf("at least one config file is required")
	}
	return nil
}

// CandidatePath is where the corrected snapshot artifact is written when
// this test fails.
func (t *TestCase) CandidatePath() string {
	ext := filepath.Ext(t.Path)
	stem := strings.TrimSuffix(t.Path, ext)
	return stem + CandidateSuffix + ".json"
}

// WriteCandidate persists a copy of the test case with expected_result
// replaced by the actual result, atomically (temp file plus rename) so a
// cancelled batch never leaves a truncated artifact. The original test case
// file is never touched.
func (t *TestCase) WriteCandidate(actual map[string]any) (string, error) {
	candidate := *t
	candidate.ExpectedResult = actual

	encoded, err := json.MarshalIndent(&candidate, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding candidate: %w", err)
	}
	encoded = append(encoded, '\n')

	target := t.CandidatePath()
	temp, err := os.CreateTemp(filepath.Dir(target), ".candidate-*")
	if err != nil {
		return "", fmt.Errorf("creating candidate temp file: %w", err)
	}
	tempName := temp.Name()

	if _, err := temp.Write(encoded); err != nil {
		temp.Close()
		os.Remove(tempName)
		return "", fmt.Errorf("writing candidate: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("closing candidate: %w", err)
	}
	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("publishing candidate: %w", err)
	}
	return target, nil
}

// RemoveCandidate deletes a stale candidate artifact, if one exists. A
// passing test must not leave an out-of-date candidate behind.
func (t *TestCase) RemoveCandidate() error {
	err := os.Remove(t.CandidatePath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Discover finds all test case files under root, excluding candidate
// artifacts, in stable order.
func Discover(root string) ([]string, error) {
	var found []string
	for _, pattern := range []string{FilePattern + ".json", FilePattern + ".yaml", FilePattern + ".yml"} {
		matches, err := fsutil.FindFilesByPattern(root, pattern)
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}

	tests := make([]string, 0, len(found))
	for _, path := range found {
		base := filepath.Base(path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.HasSuffix(stem, CandidateSuffix) {
			continue
		}
		tests = append(tests, path)
	}
	sort.Strings(tests)
	return tests, nil
}
