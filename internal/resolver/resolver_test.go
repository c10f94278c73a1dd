package resolver

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nfconftest/internal/conftree"
	"github.com/vk/nfconftest/internal/mock"
	"github.com/vk/nfconftest/internal/ops"
	"github.com/vk/nfconftest/internal/simctx"
)

// resolveSource parses a configuration source and resolves it with the given
// collaborators, defaulting any that the test does not care about.
func resolveSource(t *testing.T, src string, registry *mock.Registry, hooks *ops.Hooks, vars map[string]cty.Value) (*Node, error) {
	t.Helper()
	if registry == nil {
		registry = mock.New()
	}

	tree := conftree.NewTree()
	require.NoError(t, conftree.MergeSource(tree, "test.config", []byte(src)))

	table := ops.NewTable(registry, "", nil, hooks)
	sim := simctx.New(16, 31)
	return New(table, sim, vars).Resolve(context.Background(), tree)
}

func TestResolve_DirectEvaluation(t *testing.T) {
	vars := map[string]cty.Value{
		"params": cty.ObjectVal(map[string]cty.Value{
			"memory_gb": cty.NumberIntVal(31),
		}),
	}

	node, err := resolveSource(t, `
		process {
			memory = params.memory_gb * 0.9
		}
	`, nil, nil, vars)
	require.NoError(t, err)

	process, ok := node.Child("process")
	require.True(t, ok)
	value, ok := process.Value("memory")
	require.True(t, ok)
	require.Nil(t, value.Closure, "no context was needed, so no sampling cycle must run")

	rendered := value.Scalar.AsBigFloat().Text('f', -1)
	require.Equal(t, "27.9", rendered)
}

func TestResolve_ContextDependentSampling(t *testing.T) {
	node, err := resolveSource(t, `
		process {
			memory = task.attempt * 2
		}
	`, nil, nil, nil)
	require.NoError(t, err)

	process, _ := node.Child("process")
	value, ok := process.Value("memory")
	require.True(t, ok)
	require.NotNil(t, value.Closure)

	require.Equal(t, FallbackRepresentation, value.Closure.Representation,
		"built-in operators over task values are not interceptable, so the representation falls back")

	require.Len(t, value.Closure.Samples, SampleAttempts)
	for attempt, expected := range map[int]int64{1: 2, 2: 4, 3: 6} {
		sample := value.Closure.Samples[attempt]
		got, _ := sample.AsBigFloat().Int64()
		require.Equal(t, expected, got, "attempt %d", attempt)
	}
}

func TestResolve_RepresentationOfOpaqueInvocation(t *testing.T) {
	node, err := resolveSource(t, `
		process {
			work_id = task_hash(task.attempt)
		}
	`, nil, nil, nil)
	require.NoError(t, err)

	process, _ := node.Child("process")
	value, _ := process.Value("work_id")
	require.NotNil(t, value.Closure)
	require.Equal(t, "task_hash(task.attempt)", value.Closure.Representation)

	for attempt := 1; attempt <= SampleAttempts; attempt++ {
		sample := value.Closure.Samples[attempt]
		require.Equal(t, cty.String, sample.Type())
		require.Len(t, sample.AsString(), 8)
	}
}

func TestResolve_StageNameVisibleToExpressions(t *testing.T) {
	node, err := resolveSource(t, `
		process {
			stage "align_reads" {
				tag = task.process
			}
			tag = task.process
		}
	`, nil, nil, nil)
	require.NoError(t, err)

	process, _ := node.Child("process")
	align, ok := process.Child("align_reads")
	require.True(t, ok)

	inside, _ := align.Value("tag")
	require.NotNil(t, inside.Closure)
	for attempt := 1; attempt <= SampleAttempts; attempt++ {
		require.Equal(t, cty.StringVal("align_reads"), inside.Closure.Samples[attempt])
	}
	require.Equal(t, "task.process", inside.Closure.Representation,
		"a bare task attribute stays readable in the representation")

	outside, _ := process.Value("tag")
	require.NotNil(t, outside.Closure)
	require.True(t, outside.Closure.Samples[1].IsNull(), "no stage is active outside stage subtrees")
}

func TestResolve_SingleSamplingCyclePerExpression(t *testing.T) {
	statCalls := 0
	hooks := ops.DefaultHooks()
	hooks.Stat = func(string) (fs.FileInfo, error) {
		statCalls++
		return nil, nil
	}

	_, err := resolveSource(t, `
		ready = file_exists("/x") && task.attempt >= 1
	`, nil, hooks, nil)
	require.NoError(t, err)

	// One representation pass plus exactly three sampling attempts; a second
	// retry cycle would double this.
	require.Equal(t, 1+SampleAttempts, statCalls)
}

func TestResolve_MockedOperationInsideExpression(t *testing.T) {
	registry := mock.New()
	require.NoError(t, registry.RegisterStatic("check_path", cty.StringVal("")))

	statCalls := 0
	hooks := ops.DefaultHooks()
	hooks.Stat = func(string) (fs.FileInfo, error) {
		statCalls++
		return nil, nil
	}

	node, err := resolveSource(t, `
		params {
			validated = check_path("/hot/path")
		}
	`, registry, hooks, nil)
	require.NoError(t, err)

	params, _ := node.Child("params")
	value, _ := params.Value("validated")
	require.Equal(t, cty.StringVal(""), value.Scalar)
	require.Zero(t, statCalls)
}

func TestResolve_UnmappedDynamicMockIsDistinguishable(t *testing.T) {
	registry := mock.New()
	require.NoError(t, registry.RegisterDynamic("read_file", map[string]cty.Value{
		`["known.txt"]`: cty.StringVal("ok"),
	}))

	_, err := resolveSource(t, `
		contents = read_file("unknown.txt")
	`, registry, nil, nil)
	require.Error(t, err)

	var closureErr *ClosureEvaluationError
	require.ErrorAs(t, err, &closureErr)
	require.Equal(t, "contents", closureErr.Path)

	var unmapped *mock.UnmappedDynamicMockError
	require.ErrorAs(t, err, &unmapped)
	require.Equal(t, "read_file", unmapped.Name)
}

func TestResolve_UndefinedVariableIsTaggedWithPath(t *testing.T) {
	_, err := resolveSource(t, `
		process {
			memory = undeclared.value
		}
	`, nil, nil, nil)
	require.Error(t, err)

	var closureErr *ClosureEvaluationError
	require.ErrorAs(t, err, &closureErr)
	require.Equal(t, "process.memory", closureErr.Path)
}

func TestResolve_IdempotentForIdenticalContext(t *testing.T) {
	src := `
		process {
			memory = task.attempt * 3
			cpus   = task.cpus
		}
	`
	first, err := resolveSource(t, src, nil, nil, nil)
	require.NoError(t, err)
	second, err := resolveSource(t, src, nil, nil, nil)
	require.NoError(t, err)

	firstValue, _ := firstChild(t, first)
	secondValue, _ := firstChild(t, second)
	require.Equal(t, firstValue.Closure.Samples, secondValue.Closure.Samples)
	require.Equal(t, firstValue.Closure.Representation, secondValue.Closure.Representation)
}

func firstChild(t *testing.T, node *Node) (*Value, string) {
	t.Helper()
	process, ok := node.Child("process")
	require.True(t, ok)
	value, ok := process.Value("memory")
	require.True(t, ok)
	return value, "process.memory"
}
