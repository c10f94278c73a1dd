package ops

import (
	"fmt"
	"hash/fnv"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/vk/nfconftest/internal/mock"
	"github.com/vk/nfconftest/internal/render"
)

// Mode selects how the operation surface behaves during evaluation.
type Mode int

const (
	// ModeReal dispatches unmocked operations to their real handlers.
	ModeReal Mode = iota
	// ModeRepresent makes opaque operations return a literal rendering of
	// their own invocation instead of executing. Non-opaque operations still
	// run (or hit their mocks) as usual.
	ModeRepresent
)

// Table is the interception layer over the operation surface for one test
// case. It binds the mock registry, the pipeline directory, and the test's
// environment overlay to the enumerable set of named operations.
type Table struct {
	mocks       *mock.Registry
	pipelineDir string
	env         map[string]string
	hooks       *Hooks

	// failure holds the first interception error. HCL diagnostics flatten
	// function errors into text, so the typed error is kept here for the
	// resolver to recover after a failed evaluation.
	failure error
}

// NewTable builds the interception layer for one evaluation. The env mapping
// is the test case's declared environment and takes precedence over the real
// process environment.
func NewTable(mocks *mock.Registry, pipelineDir string, env map[string]string, hooks *Hooks) *Table {
	if hooks == nil {
		hooks = DefaultHooks()
	}
	return &Table{
		mocks:       mocks,
		pipelineDir: pipelineDir,
		env:         env,
		hooks:       hooks,
	}
}

// TakeFailure returns the first recorded interception failure and clears it.
func (t *Table) TakeFailure() error {
	failure := t.failure
	t.failure = nil
	return failure
}

// operation describes one entry of the enumerable operation surface.
type operation struct {
	name     string
	opaque   bool
	params   []function.Parameter
	varParam *function.Parameter
	impl     func(t *Table, args []cty.Value) (cty.Value, error)
}

// stringParam is the common single-string signature.
func stringParam(name string) []function.Parameter {
	return []function.Parameter{{Name: name, Type: cty.String}}
}

// operations enumerates the full operation surface. The interception layer
// consults the mock registry before any of these handlers run.
func operations() []operation {
	return []operation{
		{
			name:   "check_path",
			params: stringParam("path"),
			impl: func(t *Table, args []cty.Value) (cty.Value, error) {
				path := t.resolvePath(args[0].AsString())
				if _, err := t.hooks.Stat(path); err != nil {
					return cty.NilVal, fmt.Errorf("check_path: %q is not accessible: %w", path, err)
				}
				return cty.StringVal(""), nil
			},
		},
		{
			name:   "file_exists",
			params: stringParam("path"),
			impl: func(t *Table, args []cty.Value) (cty.Value, error) {
				_, err := t.hooks.Stat(t.resolvePath(args[0].AsString()))
				return cty.BoolVal(err == nil), nil
			},
		},
		{
			name:   "read_file",
			params: stringParam("path"),
			impl: func(t *Table, args []cty.Value) (cty.Value, error) {
				contents, err := t.hooks.ReadFile(t.resolvePath(args[0].AsString()))
				if err != nil {
					return cty.NilVal, fmt.Errorf("read_file: %w", err)
				}
				return cty.StringVal(string(contents)), nil
			},
		},
		{
			name:   "env",
			params: stringParam("name"),
			impl: func(t *Table, args []cty.Value) (cty.Value, error) {
				name := args[0].AsString()
				if value, ok := t.env[name]; ok {
					return cty.StringVal(value), nil
				}
				if value, ok := t.hooks.LookupEnv(name); ok {
					return cty.StringVal(value), nil
				}
				return cty.StringVal(""), nil
			},
		},
		{
			name: "avail_cpus",
			impl: func(t *Table, _ []cty.Value) (cty.Value, error) {
				count, err := t.hooks.CPUCounts()
				if err != nil {
					return cty.NilVal, fmt.Errorf("avail_cpus: %w", err)
				}
				return cty.NumberIntVal(int64(count)), nil
			},
		},
		{
			name: "avail_memory",
			impl: func(t *Table, _ []cty.Value) (cty.Value, error) {
				memoryGB, err := t.hooks.MemoryGB()
				if err != nil {
					return cty.NilVal, fmt.Errorf("avail_memory: %w", err)
				}
				return cty.NumberFloatVal(memoryGB), nil
			},
		},
		{
			name:   "uuid",
			opaque: true,
			impl: func(t *Table, _ []cty.Value) (cty.Value, error) {
				value, err := t.hooks.RandomHex(16)
				if err != nil {
					return cty.NilVal, fmt.Errorf("uuid: %w", err)
				}
				return cty.StringVal(value), nil
			},
		},
		{
			name:   "now",
			opaque: true,
			impl: func(t *Table, _ []cty.Value) (cty.Value, error) {
				return cty.StringVal(t.hooks.Now().UTC().Format("20060102T150405Z")), nil
			},
		},
		{
			name:     "task_hash",
			opaque:   true,
			varParam: &function.Parameter{Name: "parts", Type: cty.String},
			impl: func(t *Table, args []cty.Value) (cty.Value, error) {
				hasher := fnv.New32a()
				for _, arg := range args {
					hasher.Write([]byte(render.Text(arg)))
					hasher.Write([]byte{0})
				}
				return cty.StringVal(fmt.Sprintf("%08x", hasher.Sum32())), nil
			},
		},
	}
}

// Names returns the names of every operation in the surface, sorted by
// declaration order. Used for diagnostics and registry validation.
func Names() []string {
	declared := operations()
	names := make([]string, len(declared))
	for i, op := range declared {
		names[i] = op.name
	}
	return names
}

// Functions builds the cty function table for the given mode. Each function
// gives the mock registry first refusal before executing anything real.
func (t *Table) Functions(mode Mode) map[string]function.Function {
	table := make(map[string]function.Function)
	for _, op := range operations() {
		table[op.name] = t.build(op, mode)
	}
	return table
}

// build wraps one operation with the interception logic.
func (t *Table) build(op operation, mode Mode) function.Function {
	return function.New(&function.Spec{
		Params:   op.params,
		VarParam: op.varParam,
		Type: func([]cty.Value) (cty.Type, error) {
			return cty.DynamicPseudoType, nil
		},
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			value, found, err := t.mocks.Lookup(op.name, args)
			if err != nil {
				t.recordFailure(err)
				return cty.NilVal, err
			}
			if found {
				return value, nil
			}
			if mode == ModeRepresent && op.opaque {
				return cty.StringVal(render.Call(op.name, args)), nil
			}
			return op.impl(t, args)
		},
	})
}

// recordFailure keeps the first typed interception error for the resolver.
func (t *Table) recordFailure(err error) {
	if t.failure == nil {
		t.failure = err
	}
}

// resolvePath anchors relative paths at the pipeline directory.
func (t *Table) resolvePath(path string) string {
	if filepath.IsAbs(path) || t.pipelineDir == "" {
		return path
	}
	return filepath.Join(t.pipelineDir, path)
}
