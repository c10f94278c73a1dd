// Package conftree models the configuration tree under test: an ordered,
// strictly hierarchical mapping from path segments to nested subtrees or to
// leaf expressions. Leaves keep their hcl.Expression unevaluated, so every
// leaf is a re-invokable deferred expression bound to its dotted path. A
// `stage` block with one label marks its subtree as belonging to that named
// pipeline stage.
package conftree
