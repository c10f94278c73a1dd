package conftree

import (
	"github.com/hashicorp/hcl/v2"
)

// Leaf is a deferred expression at a tree path. The expression is evaluated
// only by the resolver, possibly several times with different contexts.
type Leaf struct {
	Expr  hcl.Expression
	Range hcl.Range
}

// Tree is one level of the configuration hierarchy. Children keep their
// first-seen order; setting an existing name again replaces the value in
// place, which is how later configuration files override earlier ones.
type Tree struct {
	// Stage is the pipeline-stage name when this subtree was declared by a
	// stage block, empty otherwise.
	Stage string

	names  []string
	leaves map[string]*Leaf
	subs   map[string]*Tree
}

// NewTree creates an empty tree level.
func NewTree() *Tree {
	return &Tree{
		leaves: make(map[string]*Leaf),
		subs:   make(map[string]*Tree),
	}
}

// Names returns the child names in first-seen order.
func (t *Tree) Names() []string {
	return t.names
}

// Leaf returns the deferred expression stored under name, if any.
func (t *Tree) Leaf(name string) (*Leaf, bool) {
	leaf, ok := t.leaves[name]
	return leaf, ok
}

// Sub returns the subtree stored under name, if any.
func (t *Tree) Sub(name string) (*Tree, bool) {
	sub, ok := t.subs[name]
	return sub, ok
}

// SetLeaf stores a deferred expression under name, replacing any previous
// leaf or subtree at that path.
func (t *Tree) SetLeaf(name string, leaf *Leaf) {
	if _, isSub := t.subs[name]; isSub {
		delete(t.subs, name)
	}
	if _, seen := t.leaves[name]; !seen {
		if !t.known(name) {
			t.names = append(t.names, name)
		}
	}
	t.leaves[name] = leaf
}

// EnsureSub returns the subtree under name, creating it if needed. A leaf
// previously stored at the same path is replaced.
func (t *Tree) EnsureSub(name string) *Tree {
	if sub, ok := t.subs[name]; ok {
		return sub
	}
	if _, isLeaf := t.leaves[name]; isLeaf {
		delete(t.leaves, name)
	} else if !t.known(name) {
		t.names = append(t.names, name)
	}
	sub := NewTree()
	t.subs[name] = sub
	return sub
}

// known reports whether name is already tracked in the order slice.
func (t *Tree) known(name string) bool {
	for _, existing := range t.names {
		if existing == name {
			return true
		}
	}
	return false
}

// Empty reports whether this level has no children.
func (t *Tree) Empty() bool {
	return len(t.names) == 0
}
