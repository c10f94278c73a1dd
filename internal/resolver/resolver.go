package resolver

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nfconftest/internal/conftree"
	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/ops"
	"github.com/vk/nfconftest/internal/render"
	"github.com/vk/nfconftest/internal/simctx"
)

const (
	// SampleAttempts is how many simulated retry attempts each
	// context-dependent expression is sampled across.
	SampleAttempts = 3

	// FallbackRepresentation is recorded when the representation pass itself
	// fails, typically because a built-in operator consumed a task value
	// before any operation could intercept it.
	FallbackRepresentation = "closure()"

	// taskVariable is the root name expressions use to query the simulated
	// runtime context.
	taskVariable = "task"
)

// ClosureEvaluationError reports a deferred expression that could not be
// resolved even with simulated context. It unwraps to the underlying cause,
// so a mock-coverage failure stays detectable through errors.As.
type ClosureEvaluationError struct {
	Path string
	Err  error
}

func (e *ClosureEvaluationError) Error() string {
	return fmt.Sprintf("resolving expression at %q: %v", e.Path, e.Err)
}

func (e *ClosureEvaluationError) Unwrap() error { return e.Err }

// Closure is the resolved record of a context-dependent expression: its
// machine-independent representation plus one sampled value per attempt.
type Closure struct {
	Representation string
	Samples        map[int]cty.Value
}

// Value is the resolved form of one leaf: either a plain scalar or a
// closure record.
type Value struct {
	Scalar  cty.Value
	Closure *Closure
}

// Node mirrors the configuration tree with every leaf resolved. Child order
// matches the source tree.
type Node struct {
	names    []string
	values   map[string]*Value
	children map[string]*Node
}

func newNode() *Node {
	return &Node{
		values:   make(map[string]*Value),
		children: make(map[string]*Node),
	}
}

// Names returns the child names in tree order.
func (n *Node) Names() []string { return n.names }

// Value returns the resolved leaf under name, if any.
func (n *Node) Value(name string) (*Value, bool) {
	value, ok := n.values[name]
	return value, ok
}

// Child returns the resolved subtree under name, if any.
func (n *Node) Child(name string) (*Node, bool) {
	child, ok := n.children[name]
	return child, ok
}

// Resolver evaluates one configuration tree against one interception table
// and one simulated context. It is single-use and never shared across tests.
type Resolver struct {
	table *ops.Table
	sim   *simctx.Context
	vars  map[string]cty.Value
}

// New creates a Resolver. The vars mapping holds the tree-independent
// variables (the resolved params object) available to every expression.
func New(table *ops.Table, sim *simctx.Context, vars map[string]cty.Value) *Resolver {
	return &Resolver{table: table, sim: sim, vars: vars}
}

// Resolve walks the tree depth-first, parent before children, and returns
// the fully resolved mirror tree.
func (r *Resolver) Resolve(ctx context.Context, tree *conftree.Tree) (*Node, error) {
	return r.resolveTree(ctx, "", tree)
}

func (r *Resolver) resolveTree(ctx context.Context, path string, tree *conftree.Tree) (*Node, error) {
	if tree.Stage != "" {
		r.sim.PushStage(tree.Stage)
		defer r.sim.PopStage()
	}

	node := newNode()
	for _, name := range tree.Names() {
		childPath := joinPath(path, name)

		if leaf, ok := tree.Leaf(name); ok {
			value, err := r.resolveLeaf(ctx, childPath, leaf)
			if err != nil {
				return nil, err
			}
			node.names = append(node.names, name)
			node.values[name] = value
			continue
		}

		sub, _ := tree.Sub(name)
		child, err := r.resolveTree(ctx, childPath, sub)
		if err != nil {
			return nil, err
		}
		node.names = append(node.names, name)
		node.children[name] = child
	}
	return node, nil
}

// resolveLeaf resolves one deferred expression. The dry-run decision is a
// static inspection of the expression's variable traversals; an expression
// never gets more than one representation-and-sampling cycle.
func (r *Resolver) resolveLeaf(ctx context.Context, path string, leaf *conftree.Leaf) (*Value, error) {
	logger := ctxlog.FromContext(ctx)

	if !needsContext(leaf.Expr) {
		value, diags := leaf.Expr.Value(r.evalContext(ops.ModeReal, cty.NilVal))
		if diags.HasErrors() {
			return nil, r.evaluationError(path, diags)
		}
		return &Value{Scalar: value}, nil
	}

	logger.Debug("Expression requires runtime context, entering sampling cycle.", "path", path)
	r.sim.Prime()
	defer r.sim.Unprime()

	representation := r.represent(ctx, path, leaf)

	samples := make(map[int]cty.Value, SampleAttempts)
	for attempt := 1; attempt <= SampleAttempts; attempt++ {
		r.sim.SetAttempt(attempt)
		value, diags := leaf.Expr.Value(r.evalContext(ops.ModeReal, r.sim.TaskValue()))
		if diags.HasErrors() {
			return nil, r.evaluationError(path, diags)
		}
		samples[attempt] = value
	}
	r.sim.SetAttempt(1)

	return &Value{Closure: &Closure{Representation: representation, Samples: samples}}, nil
}

// represent runs the representation pass: opaque operations render as their
// own invocation text and task attributes are symbolic tokens. Any failure,
// or an unknown or non-renderable result, falls back to the closure()
// literal.
func (r *Resolver) represent(ctx context.Context, path string, leaf *conftree.Leaf) string {
	logger := ctxlog.FromContext(ctx)

	value, diags := leaf.Expr.Value(r.evalContext(ops.ModeRepresent, simctx.SymbolicTaskValue()))

	// A representation failure is expected for expressions that run task
	// values through built-in operators; the interception layer cannot see
	// those. Clear any recorded failure so it does not leak into sampling.
	_ = r.table.TakeFailure()

	if diags.HasErrors() {
		logger.Debug("Representation pass failed, using fallback literal.", "path", path, "error", diags.Error())
		return FallbackRepresentation
	}
	if !value.IsWhollyKnown() || value.IsNull() {
		return FallbackRepresentation
	}
	return render.Text(value)
}

// evaluationError converts failed diagnostics into the resolver's error,
// preferring the typed interception failure when one was recorded.
func (r *Resolver) evaluationError(path string, diags hcl.Diagnostics) error {
	if failure := r.table.TakeFailure(); failure != nil {
		return &ClosureEvaluationError{Path: path, Err: failure}
	}
	return &ClosureEvaluationError{Path: path, Err: diags}
}

// evalContext assembles the variable scope and intercepted function table
// for one evaluation. The task variable is present only when provided.
func (r *Resolver) evalContext(mode ops.Mode, task cty.Value) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(r.vars)+1)
	for name, value := range r.vars {
		vars[name] = value
	}
	if !task.IsNull() {
		vars[taskVariable] = task
	}
	return &hcl.EvalContext{
		Variables: vars,
		Functions: r.table.Functions(mode),
	}
}

// needsContext reports whether the expression reads the task context. This
// is the dry-run pass: a static inspection instead of an evaluation that
// throws, so genuine errors are never conflated with the context signal.
func needsContext(expr hcl.Expression) bool {
	for _, traversal := range expr.Variables() {
		if traversal.RootName() == taskVariable {
			return true
		}
	}
	return false
}

// joinPath appends a segment to a dotted path.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
