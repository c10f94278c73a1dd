package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/nfconftest/internal/conftree"
	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/mock"
	"github.com/vk/nfconftest/internal/normalize"
	"github.com/vk/nfconftest/internal/ops"
	"github.com/vk/nfconftest/internal/resolver"
	"github.com/vk/nfconftest/internal/simctx"
	"github.com/vk/nfconftest/internal/snapshot"
	"github.com/vk/nfconftest/internal/testcase"
)

// Supported major versions of the configuration language. Tests declaring a
// version outside this window are skipped, not failed.
const (
	minSupportedMajor = 23
	maxSupportedMajor = 25
)

// Supported reports whether this engine can evaluate the given language
// version.
func Supported(version string) bool {
	majorText, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(majorText)
	if err != nil {
		return false
	}
	return major >= minSupportedMajor && major <= maxSupportedMajor
}

// Evaluate resolves and normalizes the configuration declared by one test
// case. All state (mock registry, simulated context, tree) is constructed
// fresh here; nothing is shared between invocations.
func Evaluate(ctx context.Context, pipelineDir string, tc *testcase.TestCase) (snapshot.Snapshot, error) {
	logger := ctxlog.FromContext(ctx)

	registry, err := mock.FromRaw(tc.Mocks)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	sim := simctx.New(tc.CPUs, tc.MemoryGB)
	table := ops.NewTable(registry, pipelineDir, tc.EnvVars, evaluationHooks(tc, sim))

	configPaths := make([]string, len(tc.Config))
	for i, path := range tc.Config {
		configPaths[i] = anchorPath(pipelineDir, path)
	}
	tree, err := conftree.Load(ctx, configPaths)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	params, err := buildParams(ctx, pipelineDir, tc, tree, table, sim)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	logger.Debug("Parameter scope assembled.")

	vars := map[string]cty.Value{"params": params}
	node, err := resolver.New(table, sim, vars).Resolve(ctx, tree)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	snap := snapshot.FromResolved(node).WithoutPrefixes(tc.IgnoredFields)
	return normalize.Apply(ctx, snap, tc.DatedFields, tc.VersionFields), nil
}

// buildParams assembles the params object visible to every expression.
// Precedence, lowest to highest: the params subtree of the configuration,
// the params file, then command-line parameters.
func buildParams(ctx context.Context, pipelineDir string, tc *testcase.TestCase, tree *conftree.Tree, table *ops.Table, sim *simctx.Context) (cty.Value, error) {
	merged := make(map[string]cty.Value)

	if paramsTree, ok := tree.Sub("params"); ok {
		node, err := resolver.New(table, sim, nil).Resolve(ctx, paramsTree)
		if err != nil {
			return cty.NilVal, fmt.Errorf("resolving params subtree: %w", err)
		}
		value, err := nodeToValue(node)
		if err != nil {
			return cty.NilVal, fmt.Errorf("params subtree: %w", err)
		}
		for name, attr := range value.AsValueMap() {
			merged[name] = attr
		}
	}

	if tc.ParamsFile != "" {
		fromFile, err := loadParamsFile(anchorPath(pipelineDir, tc.ParamsFile))
		if err != nil {
			return cty.NilVal, err
		}
		for name, value := range fromFile {
			merged[name] = value
		}
	}

	for name, raw := range tc.NFParams {
		merged[name] = scalarFromText(raw)
	}

	if len(merged) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(merged), nil
}

// nodeToValue converts a resolved subtree into a cty object. Parameters must
// resolve without task context: a parameter whose value changes per retry
// attempt has no single value to expose to the rest of the tree.
func nodeToValue(node *resolver.Node) (cty.Value, error) {
	attrs := make(map[string]cty.Value)
	for _, name := range node.Names() {
		if value, ok := node.Value(name); ok {
			if value.Closure != nil {
				return cty.NilVal, fmt.Errorf("parameter %q depends on the task context", name)
			}
			attrs[name] = value.Scalar
			continue
		}
		child, _ := node.Child(name)
		converted, err := nodeToValue(child)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[name] = converted
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(attrs), nil
}

// loadParamsFile reads a JSON or YAML parameter file into top-level values.
func loadParamsFile(path string) (map[string]cty.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		raw, err = yaml.YAMLToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("converting params file %s: %w", path, err)
		}
	}

	impliedType, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return nil, fmt.Errorf("params file %s: %w", path, err)
	}
	value, err := ctyjson.Unmarshal(raw, impliedType)
	if err != nil {
		return nil, fmt.Errorf("params file %s: %w", path, err)
	}
	if !value.Type().IsObjectType() {
		return nil, fmt.Errorf("params file %s: top level must be a mapping", path)
	}
	return value.AsValueMap(), nil
}

// scalarFromText types a command-line parameter: valid JSON scalars keep
// their type, anything else stays a string.
func scalarFromText(text string) cty.Value {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return cty.StringVal(text)
	}
	switch typed := decoded.(type) {
	case bool:
		return cty.BoolVal(typed)
	case float64:
		value, err := cty.ParseNumberVal(strings.TrimSpace(text))
		if err != nil {
			return cty.StringVal(text)
		}
		return value
	case string:
		return cty.StringVal(typed)
	default:
		return cty.StringVal(text)
	}
}

// anchorPath resolves a test-case-relative path against the pipeline
// directory.
func anchorPath(pipelineDir, path string) string {
	if filepath.IsAbs(path) || pipelineDir == "" {
		return path
	}
	return filepath.Join(pipelineDir, path)
}
