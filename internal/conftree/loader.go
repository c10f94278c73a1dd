package conftree

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/nfconftest/internal/ctxlog"
)

// StageBlockType is the block type whose single label names a pipeline
// stage. Expressions beneath it can discover the stage through the task
// context without the caller threading it explicitly.
const StageBlockType = "stage"

// Load parses the given configuration files in order and merges them into a
// single tree. Later files override earlier ones path-by-path.
func Load(ctx context.Context, paths []string) (*Tree, error) {
	logger := ctxlog.FromContext(ctx)
	root := NewTree()

	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := MergeSource(root, path, src); err != nil {
			return nil, err
		}
		logger.Debug("Merged configuration file into tree.", "file", path)
	}

	return root, nil
}

// MergeSource parses one configuration source and merges it into the tree.
func MergeSource(root *Tree, filename string, src []byte) error {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return fmt.Errorf("parsing %s: %w", filename, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("parsing %s: unexpected body implementation", filename)
	}
	return mergeBody(root, body)
}

// bodyItem is one attribute or block, tagged with its source offset so the
// tree preserves declaration order.
type bodyItem struct {
	offset int
	attr   *hclsyntax.Attribute
	block  *hclsyntax.Block
}

// mergeBody merges one body's attributes and blocks into the tree in source
// order.
func mergeBody(tree *Tree, body *hclsyntax.Body) error {
	items := make([]bodyItem, 0, len(body.Attributes)+len(body.Blocks))
	for _, attr := range body.Attributes {
		items = append(items, bodyItem{offset: attr.SrcRange.Start.Byte, attr: attr})
	}
	for _, block := range body.Blocks {
		items = append(items, bodyItem{offset: block.TypeRange.Start.Byte, block: block})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].offset < items[j].offset })

	for _, item := range items {
		if item.attr != nil {
			tree.SetLeaf(item.attr.Name, &Leaf{
				Expr:  item.attr.Expr,
				Range: item.attr.SrcRange,
			})
			continue
		}
		sub, err := subtreeFor(tree, item.block)
		if err != nil {
			return err
		}
		if err := mergeBody(sub, item.block.Body); err != nil {
			return err
		}
	}
	return nil
}

// subtreeFor locates (or creates) the subtree a block merges into. A stage
// block nests under its label and is marked with the stage name; any other
// labeled block nests one level per label.
func subtreeFor(tree *Tree, block *hclsyntax.Block) (*Tree, error) {
	if block.Type == StageBlockType {
		if len(block.Labels) != 1 {
			return nil, fmt.Errorf("%s: stage block requires exactly one label", block.TypeRange.String())
		}
		sub := tree.EnsureSub(block.Labels[0])
		sub.Stage = block.Labels[0]
		return sub, nil
	}

	sub := tree.EnsureSub(block.Type)
	for _, label := range block.Labels {
		sub = sub.EnsureSub(label)
	}
	return sub, nil
}
