package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/nfconftest/internal/render"
	"github.com/vk/nfconftest/internal/resolver"
)

// FromResolved flattens a resolved configuration tree. A closure record
// flattens into a representation entry plus one entry per sampled attempt,
// all beneath the closure's own path.
func FromResolved(root *resolver.Node) Snapshot {
	var entries []Entry
	flattenNode(root, "", &entries)
	return New(entries)
}

func flattenNode(node *resolver.Node, base string, entries *[]Entry) {
	for _, name := range node.Names() {
		path := joinPath(base, name)
		if value, ok := node.Value(name); ok {
			flattenValue(value, path, entries)
			continue
		}
		if child, ok := node.Child(name); ok {
			flattenNode(child, path, entries)
		}
	}
}

func flattenValue(value *resolver.Value, path string, entries *[]Entry) {
	if value.Closure == nil {
		*entries = append(*entries, Entry{Path: path, Value: render.Text(value.Scalar)})
		return
	}

	*entries = append(*entries, Entry{
		Path:  path + ".representation",
		Value: value.Closure.Representation,
	})

	attempts := make([]int, 0, len(value.Closure.Samples))
	for attempt := range value.Closure.Samples {
		attempts = append(attempts, attempt)
	}
	sort.Ints(attempts)
	for _, attempt := range attempts {
		*entries = append(*entries, Entry{
			Path:  fmt.Sprintf("%s.attempt.%d", path, attempt),
			Value: render.Text(value.Closure.Samples[attempt]),
		})
	}
}

// FromExpected flattens the expected_result mapping of a test case file.
// JSON numbers must have been decoded with json.Number so their literal
// text survives; they render through the same canonical number formatting
// as resolved values.
func FromExpected(expected map[string]any) (Snapshot, error) {
	var entries []Entry
	if err := flattenGo(expected, "", &entries); err != nil {
		return Snapshot{}, err
	}
	return New(entries), nil
}

func flattenGo(value any, base string, entries *[]Entry) error {
	mapping, ok := value.(map[string]any)
	if !ok {
		text, err := renderGo(value)
		if err != nil {
			return fmt.Errorf("at %q: %w", base, err)
		}
		*entries = append(*entries, Entry{Path: base, Value: text})
		return nil
	}

	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := flattenGo(mapping[key], joinPath(base, key), entries); err != nil {
			return err
		}
	}
	return nil
}

// renderGo renders a decoded JSON value with the same canonical text rules
// as render.Text, so expected and actual snapshots compare like-for-like.
func renderGo(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return "null", nil
	case string:
		return typed, nil
	case bool:
		if typed {
			return "true", nil
		}
		return "false", nil
	case json.Number:
		parsed, err := cty.ParseNumberVal(typed.String())
		if err != nil {
			return "", fmt.Errorf("parsing number %q: %w", typed.String(), err)
		}
		return render.Number(parsed.AsBigFloat()), nil
	case float64:
		// YAML-sourced test cases decode numbers as float64.
		return render.Number(cty.NumberFloatVal(typed).AsBigFloat()), nil
	case int:
		return render.Number(cty.NumberIntVal(int64(typed)).AsBigFloat()), nil
	case int64:
		return render.Number(cty.NumberIntVal(typed).AsBigFloat()), nil
	case uint64:
		return render.Number(cty.NumberUIntVal(typed).AsBigFloat()), nil
	case []any:
		parts := make([]string, len(typed))
		for i, element := range typed {
			text, err := renderGo(element)
			if err != nil {
				return "", err
			}
			parts[i] = text
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			text, err := renderGo(typed[key])
			if err != nil {
				return "", err
			}
			parts = append(parts, key+"="+text)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("unsupported expected value of type %T", value)
	}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
