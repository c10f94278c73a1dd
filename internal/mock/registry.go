package mock

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// DynamicPrefix marks a mock name in a test case file as argument-keyed.
// The remainder of the name after the separator is the operation name.
const DynamicPrefix = "DYNAMIC|"

// UnmappedDynamicMockError reports a dynamic mock that was invoked with an
// argument list it does not cover. This is an authoring defect in the test
// case: falling back to the real operation would reintroduce the
// nondeterminism the mock exists to remove.
type UnmappedDynamicMockError struct {
	Name   string
	ArgKey string
}

func (e *UnmappedDynamicMockError) Error() string {
	return fmt.Sprintf("dynamic mock %q has no case for arguments %s", e.Name, e.ArgKey)
}

// entry is a single registered substitution, static or dynamic.
type entry struct {
	static  bool
	value   cty.Value
	dynamic map[string]cty.Value
}

// Registry holds all substitutions for one test case. It is constructed
// fresh per test and never shared across concurrent runs.
type Registry struct {
	entries map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// RegisterStatic registers a fixed value for an operation name. The value is
// returned for every invocation regardless of arguments.
func (r *Registry) RegisterStatic(name string, value cty.Value) error {
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("mock %q registered twice", name)
	}
	r.entries[name] = &entry{static: true, value: value}
	return nil
}

// RegisterDynamic registers an argument-keyed mapping for an operation name.
// Keys must be JSON arrays of the positional arguments; they are
// canonicalized before storage so lookups are insensitive to formatting.
func (r *Registry) RegisterDynamic(name string, cases map[string]cty.Value) error {
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("mock %q registered twice", name)
	}
	canonical := make(map[string]cty.Value, len(cases))
	for rawKey, value := range cases {
		key, err := CanonicalKey(rawKey)
		if err != nil {
			return fmt.Errorf("dynamic mock %q: bad argument key %q: %w", name, rawKey, err)
		}
		canonical[key] = value
	}
	r.entries[name] = &entry{dynamic: canonical}
	return nil
}

// Lookup resolves an operation invocation against the registry. The boolean
// reports whether the name is registered at all; when it is false the caller
// must execute the real operation. A registered dynamic name with no case
// for the given arguments returns an UnmappedDynamicMockError.
func (r *Registry) Lookup(name string, args []cty.Value) (cty.Value, bool, error) {
	e, ok := r.entries[name]
	if !ok {
		return cty.NilVal, false, nil
	}
	if e.static {
		return e.value, true, nil
	}
	key, err := ArgKey(args)
	if err != nil {
		return cty.NilVal, true, fmt.Errorf("dynamic mock %q: %w", name, err)
	}
	value, covered := e.dynamic[key]
	if !covered {
		return cty.NilVal, true, &UnmappedDynamicMockError{Name: name, ArgKey: key}
	}
	return value, true, nil
}

// Names returns the registered operation names, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// ArgKey serializes a positional argument list to its canonical form: a JSON
// array, even for a single argument. Object attributes serialize in lexical
// order, so equal argument lists always produce equal keys.
func ArgKey(args []cty.Value) (string, error) {
	tuple := cty.EmptyTupleVal
	if len(args) > 0 {
		tuple = cty.TupleVal(args)
	}
	raw, err := ctyjson.Marshal(tuple, tuple.Type())
	if err != nil {
		return "", fmt.Errorf("serializing argument list: %w", err)
	}
	return string(raw), nil
}

// CanonicalKey re-serializes a user-supplied JSON argument key into the same
// canonical form produced by ArgKey.
func CanonicalKey(rawKey string) (string, error) {
	trimmed := strings.TrimSpace(rawKey)
	if !strings.HasPrefix(trimmed, "[") {
		return "", fmt.Errorf("argument key must be a JSON array")
	}
	impliedType, err := ctyjson.ImpliedType([]byte(trimmed))
	if err != nil {
		return "", err
	}
	value, err := ctyjson.Unmarshal([]byte(trimmed), impliedType)
	if err != nil {
		return "", err
	}
	canonical, err := ctyjson.Marshal(value, impliedType)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}
