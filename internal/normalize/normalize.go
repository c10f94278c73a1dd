// Package normalize erases the known sources of nondeterminism from a
// flattened snapshot before comparison: absolute timestamps in declared
// dated fields, the pipeline's own version string in declared version
// fields, and object identity hashes anywhere. The rewrites are plain
// string substitutions over the serialized form, because formatting is part
// of what must match the expectation byte-for-byte.
package normalize

import (
	"context"
	"regexp"
	"strings"

	"github.com/vk/nfconftest/internal/ctxlog"
	"github.com/vk/nfconftest/internal/snapshot"
)

const (
	// SentinelTimestamp replaces timestamps in dated fields. The fixed value
	// is Pathfinder's landing, an obviously artificial date.
	SentinelTimestamp = "19970704T165655Z"

	// SentinelVersion replaces the pipeline's declared version string.
	SentinelVersion = "VER.SI.ON"

	// SentinelHash replaces the hex portion of object identity hashes.
	SentinelHash = "dec0ded"

	// versionPath is where the pipeline declares its own version; it is
	// always masked in addition to the test's declared version fields.
	versionPath = "manifest.version"
)

var (
	datePattern    = regexp.MustCompile(`\d{8}T\d{6}Z`)
	pointerPattern = regexp.MustCompile(`(\[?[A-Za-z_][A-Za-z0-9_.$]*;?@)([0-9a-fA-F]+)\b`)
)

// Apply rewrites the snapshot's volatile substrings to fixed sentinels. The
// rules run in a fixed order: dated fields, then version fields, then
// identity hashes. Identity hashes also raise a warning, since they usually
// indicate an unintended shared binding in the configuration under test.
func Apply(ctx context.Context, snap snapshot.Snapshot, datedFields, versionFields []string) snapshot.Snapshot {
	logger := ctxlog.FromContext(ctx)

	dated := toSet(datedFields)
	versioned := toSet(versionFields)
	versioned[versionPath] = struct{}{}

	version := declaredVersion(snap)

	entries := make([]snapshot.Entry, 0, snap.Len())
	for _, entry := range snap.Entries() {
		value := entry.Value

		if _, ok := dated[entry.Path]; ok {
			value = datePattern.ReplaceAllString(value, SentinelTimestamp)
		}

		if _, ok := versioned[entry.Path]; ok && version != "" {
			value = strings.ReplaceAll(value, version, SentinelVersion)
		}

		if pointerPattern.MatchString(value) {
			logger.Warn("Masked an object identity hash; this usually means the configuration leaks a shared binding.",
				"path", entry.Path, "value", value)
			value = pointerPattern.ReplaceAllString(value, "${1}"+SentinelHash)
		}

		entries = append(entries, snapshot.Entry{Path: entry.Path, Value: value})
	}

	return snapshot.New(entries)
}

// declaredVersion extracts the pipeline's own version string, if present.
func declaredVersion(snap snapshot.Snapshot) string {
	for _, entry := range snap.Entries() {
		if entry.Path == versionPath {
			return entry.Value
		}
	}
	return ""
}

func toSet(fields []string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}
