package ops

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nfconftest/internal/mock"
)

// callOp invokes a named operation through the built function table.
func callOp(t *testing.T, table *Table, mode Mode, name string, args ...cty.Value) (cty.Value, error) {
	t.Helper()
	fn, ok := table.Functions(mode)[name]
	require.True(t, ok, "operation %q must be part of the surface", name)
	return fn.Call(args)
}

func TestTable_MockPrecedence(t *testing.T) {
	registry := mock.New()
	require.NoError(t, registry.RegisterStatic("check_path", cty.StringVal("")))

	realExecuted := false
	hooks := DefaultHooks()
	hooks.Stat = func(string) (fs.FileInfo, error) {
		realExecuted = true
		return nil, errors.New("real operation would have failed anyway")
	}

	table := NewTable(registry, "/pipeline", nil, hooks)
	value, err := callOp(t, table, ModeReal, "check_path", cty.StringVal("/does/not/exist"))
	require.NoError(t, err)
	require.Equal(t, cty.StringVal(""), value)
	require.False(t, realExecuted, "a mocked operation must never execute the real handler")
}

func TestTable_UnmockedOperationRunsReal(t *testing.T) {
	statCalled := false
	hooks := DefaultHooks()
	hooks.Stat = func(name string) (fs.FileInfo, error) {
		statCalled = true
		require.Equal(t, "/pipeline/ref/genome.fa", name)
		return nil, nil
	}

	table := NewTable(mock.New(), "/pipeline", nil, hooks)
	value, err := callOp(t, table, ModeReal, "file_exists", cty.StringVal("ref/genome.fa"))
	require.NoError(t, err)
	require.Equal(t, cty.BoolVal(true), value)
	require.True(t, statCalled)
}

func TestTable_UnmappedDynamicMockSurfacesTypedFailure(t *testing.T) {
	registry := mock.New()
	require.NoError(t, registry.RegisterDynamic("read_file", map[string]cty.Value{
		`["a"]`: cty.StringVal("contents"),
	}))

	table := NewTable(registry, "", nil, DefaultHooks())
	_, err := callOp(t, table, ModeReal, "read_file", cty.StringVal("b"))
	require.Error(t, err)

	var unmapped *mock.UnmappedDynamicMockError
	require.ErrorAs(t, table.TakeFailure(), &unmapped)
	require.Nil(t, table.TakeFailure(), "failure must be cleared once taken")
}

func TestTable_EnvOverlayWinsOverHost(t *testing.T) {
	hooks := DefaultHooks()
	hooks.LookupEnv = func(key string) (string, bool) {
		if key == "HOST_ONLY" {
			return "from-host", true
		}
		return "", false
	}

	table := NewTable(mock.New(), "", map[string]string{"BL_DATA_DIR": "/data"}, hooks)

	value, err := callOp(t, table, ModeReal, "env", cty.StringVal("BL_DATA_DIR"))
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("/data"), value)

	value, err = callOp(t, table, ModeReal, "env", cty.StringVal("HOST_ONLY"))
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("from-host"), value)

	value, err = callOp(t, table, ModeReal, "env", cty.StringVal("UNSET"))
	require.NoError(t, err)
	require.Equal(t, cty.StringVal(""), value)
}

func TestTable_OpaqueOperationsRenderInRepresentMode(t *testing.T) {
	table := NewTable(mock.New(), "", nil, DefaultHooks())

	value, err := callOp(t, table, ModeRepresent, "uuid")
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("uuid()"), value)

	value, err = callOp(t, table, ModeRepresent, "task_hash", cty.StringVal("task.attempt"))
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("task_hash(task.attempt)"), value)
}

func TestTable_OpaqueMockStillWinsInRepresentMode(t *testing.T) {
	registry := mock.New()
	require.NoError(t, registry.RegisterStatic("uuid", cty.StringVal("fixed-uuid")))

	table := NewTable(registry, "", nil, DefaultHooks())
	value, err := callOp(t, table, ModeRepresent, "uuid")
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("fixed-uuid"), value)
}

func TestTable_NonOpaqueOperationsExecuteInRepresentMode(t *testing.T) {
	hooks := DefaultHooks()
	hooks.LookupEnv = func(string) (string, bool) { return "real-value", true }

	table := NewTable(mock.New(), "", nil, hooks)
	value, err := callOp(t, table, ModeRepresent, "env", cty.StringVal("ANYTHING"))
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("real-value"), value)
}

func TestTable_CapacityOperationsUseHooks(t *testing.T) {
	hooks := DefaultHooks()
	hooks.CPUCounts = func() (int, error) { return 16, nil }
	hooks.MemoryGB = func() (float64, error) { return 31, nil }

	table := NewTable(mock.New(), "", nil, hooks)

	value, err := callOp(t, table, ModeReal, "avail_cpus")
	require.NoError(t, err)
	require.Equal(t, cty.NumberIntVal(16), value)

	value, err = callOp(t, table, ModeReal, "avail_memory")
	require.NoError(t, err)
	require.Equal(t, cty.NumberFloatVal(31), value)
}

func TestTable_NowUsesInjectedClock(t *testing.T) {
	hooks := DefaultHooks()
	hooks.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	table := NewTable(mock.New(), "", nil, hooks)
	value, err := callOp(t, table, ModeReal, "now")
	require.NoError(t, err)
	require.Equal(t, cty.StringVal("20240101T120000Z"), value)
}

func TestNames_SurfaceIsEnumerable(t *testing.T) {
	names := Names()
	require.Contains(t, names, "check_path")
	require.Contains(t, names, "env")
	require.Contains(t, names, "uuid")
	require.Len(t, names, 9)
}
