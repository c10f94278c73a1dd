// Package snapshot defines the unit of comparison and persistence: a flat,
// canonically ordered sequence of (dotted path, rendered value) pairs. Both
// the freshly resolved configuration and the recorded expectation flatten
// into this form, which serializes as a key=value line stream and diffs
// structurally by path.
package snapshot
