package integrationtests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/nfconftest/internal/runner"
	"github.com/vk/nfconftest/internal/testutil"
)

func TestBatch_DirectEvaluationMatchesExpectation(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": `
params {
  mem_total = 31
}
process {
  verified = check_path("/data/input")
  memory   = params.mem_total * 0.9
}
`,
		"configtest-memory.json": `{
			"nextflow_version": "23.10.0",
			"config": ["nextflow.config"],
			"cpus": 16,
			"memory_gb": 31,
			"mocks": {"check_path": ""},
			"expected_result": {
				"params": {"mem_total": 31},
				"process": {"verified": "", "memory": 27.9}
			}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Passed)
	require.Equal(t, 0, result.Summary.Failed)
}

func TestBatch_ContextDependentValueSamplesThreeAttempts(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": `
process {
  maxcpus = task.attempt * 2
}
`,
		"configtest-retry.json": `{
			"nextflow_version": "24.04.0",
			"config": ["nextflow.config"],
			"cpus": 4,
			"memory_gb": 8,
			"expected_result": {
				"process": {
					"maxcpus": {
						"representation": "closure()",
						"attempt": {"1": 2, "2": 4, "3": 6}
					}
				}
			}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Passed)
}

func TestBatch_DatedFieldNormalizesOnlyWhenListed(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": `
params {
  output_dir = "/out/run-20240101T120000Z"
  log_dir    = "/log/run-20240101T120000Z"
}
`,
		"configtest-dated.json": `{
			"nextflow_version": "23.10.0",
			"config": ["nextflow.config"],
			"cpus": 1,
			"memory_gb": 1,
			"dated_fields": ["params.output_dir"],
			"expected_result": {
				"params": {
					"output_dir": "/out/run-19970704T165655Z",
					"log_dir": "/log/run-19970704T165655Z"
				}
			}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Failed,
		"the unlisted field keeps its literal timestamp, so the sentinel expectation mismatches")

	verdict := result.Summary.Verdicts[0]
	require.Equal(t, runner.StatusFail, verdict.Status)
	require.Len(t, verdict.Changes, 1)
	require.Equal(t, "params.log_dir", verdict.Changes[0].Path)
	require.Equal(t, "/log/run-20240101T120000Z", *verdict.Changes[0].After)
}

func TestBatch_MismatchWritesCandidateNextToTest(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": "params {\n  threads = 8\n}\n",
		"configtest-threads.json": `{
			"nextflow_version": "23.10.0",
			"config": ["nextflow.config"],
			"cpus": 1,
			"memory_gb": 1,
			"expected_result": {"params": {"threads": 4}}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Failed)

	candidate := filepath.Join(result.PipelineDir, "configtest-threads-out.json")
	require.Equal(t, candidate, result.Summary.Verdicts[0].CandidatePath)
	contents, err := os.ReadFile(candidate)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"threads": "8"`)
}

func TestBatch_EmptyPipelineIsAnError(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": "params {\n  x = 1\n}\n",
	})

	require.Error(t, result.Err)
	require.ErrorContains(t, result.Err, "no test case files")
	require.Nil(t, result.Summary)
}

func TestBatch_LaterConfigFileOverridesEarlier(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"base.config":     "params {\n  genome = \"GRCh37\"\n  depth = 10\n}\n",
		"override.config": "params {\n  genome = \"GRCh38\"\n}\n",
		"configtest-override.json": `{
			"nextflow_version": "23.10.0",
			"config": ["base.config", "override.config"],
			"cpus": 1,
			"memory_gb": 1,
			"expected_result": {"params": {"genome": "GRCh38", "depth": 10}}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Passed)
}

func TestBatch_StageScopedValuesSeeTheirStage(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": `
stage "align" {
  tag = task.process
}
`,
		"configtest-stage.json": `{
			"nextflow_version": "23.10.0",
			"config": ["nextflow.config"],
			"cpus": 1,
			"memory_gb": 1,
			"expected_result": {
				"align": {
					"tag": {
						"representation": "task.process",
						"attempt": {"1": "align", "2": "align", "3": "align"}
					}
				}
			}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Passed)
}

func TestBatch_UnsupportedVersionSkips(t *testing.T) {
	result := testutil.RunBatch(t, map[string]string{
		"nextflow.config": "params {\n  x = 1\n}\n",
		"configtest-old.json": `{
			"nextflow_version": "22.04.0",
			"config": ["nextflow.config"],
			"cpus": 1,
			"memory_gb": 1,
			"expected_result": {}
		}`,
	})

	require.NoError(t, result.Err)
	require.Equal(t, 1, result.Summary.Skipped)
	require.Equal(t, 0, result.Summary.Failed)
}
