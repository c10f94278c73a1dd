package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteTo serializes the snapshot as a key=value line stream. Separator
// characters inside keys are backslash-escaped so the stream parses back
// unambiguously.
func (s Snapshot) WriteTo(w io.Writer) error {
	for _, entry := range s.entries {
		if _, err := fmt.Fprintf(w, "%s=%s\n", escapeKey(entry.Path), entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads a key=value line stream back into a Snapshot. Blank lines are
// skipped; any other line without an unescaped separator is an error.
func Parse(r io.Reader) (Snapshot, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, err := splitLine(line)
		if err != nil {
			return Snapshot{}, err
		}
		entries = append(entries, Entry{Path: unescapeKey(key), Value: value})
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, err
	}
	return New(entries), nil
}

// splitLine splits on the first separator that is not escaped.
func splitLine(line string) (string, string, error) {
	escaped := false
	for i := 0; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\':
			escaped = true
		case line[i] == '=':
			return line[:i], line[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("the offending line is `%s`", line)
}

// escapeKey protects separator characters inside path segments.
func escapeKey(key string) string {
	var builder strings.Builder
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '=', ' ', ':':
			builder.WriteByte('\\')
		}
		builder.WriteByte(key[i])
	}
	return builder.String()
}

// unescapeKey reverses escapeKey.
func unescapeKey(key string) string {
	var builder strings.Builder
	escaped := false
	for i := 0; i < len(key); i++ {
		if !escaped && key[i] == '\\' {
			escaped = true
			continue
		}
		escaped = false
		builder.WriteByte(key[i])
	}
	return builder.String()
}
