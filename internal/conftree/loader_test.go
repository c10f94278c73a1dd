package conftree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSource_AttributesAndBlocksInOrder(t *testing.T) {
	root := NewTree()
	err := MergeSource(root, "base.config", []byte(`
		run_name = "default"

		params {
			min_cpus = 2
		}

		process {
			executor = "slurm"
		}
	`))
	require.NoError(t, err)

	require.Equal(t, []string{"run_name", "params", "process"}, root.Names())

	_, isLeaf := root.Leaf("run_name")
	require.True(t, isLeaf)

	params, isSub := root.Sub("params")
	require.True(t, isSub)
	_, isLeaf = params.Leaf("min_cpus")
	require.True(t, isLeaf)
}

func TestMergeSource_LaterFileOverridesPathByPath(t *testing.T) {
	root := NewTree()
	require.NoError(t, MergeSource(root, "base.config", []byte(`
		params {
			min_cpus  = 2
			reference = "GRCh37"
		}
	`)))
	require.NoError(t, MergeSource(root, "override.config", []byte(`
		params {
			reference = "GRCh38"
		}
	`)))

	params, ok := root.Sub("params")
	require.True(t, ok)
	require.Equal(t, []string{"min_cpus", "reference"}, params.Names(),
		"overriding must not disturb first-seen order")
}

func TestMergeSource_StageBlocksAreMarked(t *testing.T) {
	root := NewTree()
	require.NoError(t, MergeSource(root, "base.config", []byte(`
		process {
			stage "align_reads" {
				cpus = 4
			}
		}
	`)))

	process, ok := root.Sub("process")
	require.True(t, ok)
	require.Empty(t, process.Stage)

	align, ok := process.Sub("align_reads")
	require.True(t, ok)
	require.Equal(t, "align_reads", align.Stage)
}

func TestMergeSource_StageBlockRequiresOneLabel(t *testing.T) {
	root := NewTree()
	err := MergeSource(root, "base.config", []byte(`
		stage {
			cpus = 4
		}
	`))
	require.Error(t, err)
}

func TestMergeSource_LabeledBlocksNestPerLabel(t *testing.T) {
	root := NewTree()
	require.NoError(t, MergeSource(root, "base.config", []byte(`
		docker "registry" {
			enabled = true
		}
	`)))

	docker, ok := root.Sub("docker")
	require.True(t, ok)
	_, ok = docker.Sub("registry")
	require.True(t, ok)
}

func TestLoad_ReadsFilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.config")
	require.NoError(t, os.WriteFile(path, []byte("params {\n  x = 1\n}\n"), 0o644))

	root, err := Load(context.Background(), []string{path})
	require.NoError(t, err)
	_, ok := root.Sub("params")
	require.True(t, ok)

	_, err = Load(context.Background(), []string{filepath.Join(dir, "missing.config")})
	require.Error(t, err)
}

func TestTree_LeafReplacesSubtree(t *testing.T) {
	root := NewTree()
	require.NoError(t, MergeSource(root, "a.config", []byte("params {\n  x = 1\n}\n")))
	require.NoError(t, MergeSource(root, "b.config", []byte("params = \"disabled\"\n")))

	_, isSub := root.Sub("params")
	require.False(t, isSub)
	_, isLeaf := root.Leaf("params")
	require.True(t, isLeaf)
	require.Equal(t, []string{"params"}, root.Names())
}
