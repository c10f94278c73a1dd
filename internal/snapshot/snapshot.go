package snapshot

import (
	"sort"
	"strings"
)

// Entry is one flattened configuration value.
type Entry struct {
	Path  string
	Value string
}

// Snapshot is an ordered set of entries, sorted by path. It is created
// fresh per evaluation and never mutated afterwards.
type Snapshot struct {
	entries []Entry
}

// New builds a Snapshot from entries, sorting them into canonical path
// order.
func New(entries []Entry) Snapshot {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})
	return Snapshot{entries: sorted}
}

// Entries returns the entries in canonical order. Callers must not modify
// the returned slice.
func (s Snapshot) Entries() []Entry {
	return s.entries
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// WithoutPrefixes returns a copy with every entry under one of the given
// dotted-path prefixes removed. Used to drop shared-submodule namespaces a
// test case declares as ignored.
func (s Snapshot) WithoutPrefixes(prefixes []string) Snapshot {
	if len(prefixes) == 0 {
		return s
	}
	kept := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if !matchesAnyPrefix(entry.Path, prefixes) {
			kept = append(kept, entry)
		}
	}
	return Snapshot{entries: kept}
}

func matchesAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+".") {
			return true
		}
	}
	return false
}

// Nested rebuilds the nested mapping form of the snapshot, used when a
// candidate expectation is written back to a test case file. Values stay as
// their rendered strings so the artifact round-trips byte-for-byte.
func (s Snapshot) Nested() map[string]any {
	root := make(map[string]any)
	for _, entry := range s.entries {
		segments := strings.Split(entry.Path, ".")
		current := root
		for _, segment := range segments[:len(segments)-1] {
			next, ok := current[segment].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[segment] = next
			}
			current = next
		}
		current[segments[len(segments)-1]] = entry.Value
	}
	return root
}

// Change is one structural difference between two snapshots. A nil Before
// marks an added path, a nil After a removed one.
type Change struct {
	Path   string
	Before *string
	After  *string
}

// Diff compares two snapshots path-by-path and returns the changes in
// canonical path order. An empty result means the snapshots are identical.
func Diff(expected, actual Snapshot) []Change {
	expectedByPath := make(map[string]string, len(expected.entries))
	for _, entry := range expected.entries {
		expectedByPath[entry.Path] = entry.Value
	}
	actualByPath := make(map[string]string, len(actual.entries))
	for _, entry := range actual.entries {
		actualByPath[entry.Path] = entry.Value
	}

	paths := make([]string, 0, len(expectedByPath)+len(actualByPath))
	for path := range expectedByPath {
		paths = append(paths, path)
	}
	for path := range actualByPath {
		if _, seen := expectedByPath[path]; !seen {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var changes []Change
	for _, path := range paths {
		before, inExpected := expectedByPath[path]
		after, inActual := actualByPath[path]
		switch {
		case inExpected && inActual:
			if before != after {
				changes = append(changes, Change{Path: path, Before: ptr(before), After: ptr(after)})
			}
		case inExpected:
			changes = append(changes, Change{Path: path, Before: ptr(before)})
		default:
			changes = append(changes, Change{Path: path, After: ptr(after)})
		}
	}
	return changes
}

func ptr(s string) *string { return &s }
