package eval

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/vk/nfconftest/internal/ops"
	"github.com/vk/nfconftest/internal/simctx"
	"github.com/vk/nfconftest/internal/testcase"
)

// evaluationHooks binds the operation surface to the test's simulated world.
// Capacity reads always report the simulated context, never the live host:
// an unmocked avail_cpus/avail_memory answering with real hardware is the
// machine dependence this engine exists to erase. The test case's declared
// file scaffolding is overlaid on top: empty_files entries exist and are
// empty, mapped_files entries redirect to their host-side source.
func evaluationHooks(tc *testcase.TestCase, sim *simctx.Context) *ops.Hooks {
	hooks := ops.DefaultHooks()

	hooks.CPUCounts = func() (int, error) {
		return sim.CPUs(), nil
	}
	hooks.MemoryGB = func() (float64, error) {
		return sim.MemoryGB(), nil
	}

	if len(tc.EmptyFiles) == 0 && len(tc.MappedFiles) == 0 {
		return hooks
	}

	empty := make(map[string]bool, len(tc.EmptyFiles))
	for _, path := range tc.EmptyFiles {
		empty[filepath.Clean(path)] = true
	}
	// mapped_files is declared host-to-target; lookups go the other way.
	sources := make(map[string]string, len(tc.MappedFiles))
	for host, target := range tc.MappedFiles {
		sources[filepath.Clean(target)] = host
	}

	baseStat := hooks.Stat
	baseRead := hooks.ReadFile

	hooks.Stat = func(name string) (fs.FileInfo, error) {
		cleaned := filepath.Clean(name)
		if empty[cleaned] {
			return scaffoldFileInfo{name: filepath.Base(cleaned)}, nil
		}
		if host, ok := sources[cleaned]; ok {
			return baseStat(host)
		}
		return baseStat(name)
	}
	hooks.ReadFile = func(name string) ([]byte, error) {
		cleaned := filepath.Clean(name)
		if empty[cleaned] {
			return nil, nil
		}
		if host, ok := sources[cleaned]; ok {
			return baseRead(host)
		}
		return baseRead(name)
	}
	return hooks
}

// scaffoldFileInfo stands in for a declared-but-not-materialized empty file.
type scaffoldFileInfo struct {
	name string
}

func (f scaffoldFileInfo) Name() string       { return f.name }
func (f scaffoldFileInfo) Size() int64        { return 0 }
func (f scaffoldFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f scaffoldFileInfo) ModTime() time.Time { return time.Time{} }
func (f scaffoldFileInfo) IsDir() bool        { return false }
func (f scaffoldFileInfo) Sys() any           { return nil }
