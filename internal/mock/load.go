package mock

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// FromRaw builds a Registry from the raw `mocks` mapping of a test case
// file. Plain names register static values; names carrying the DYNAMIC|
// prefix register argument-keyed mappings whose values are keyed by the JSON
// serialization of the argument list.
func FromRaw(mocks map[string]json.RawMessage) (*Registry, error) {
	registry := New()

	for name, raw := range mocks {
		if strings.HasPrefix(name, DynamicPrefix) {
			opName := strings.TrimPrefix(name, DynamicPrefix)
			if opName == "" {
				return nil, fmt.Errorf("dynamic mock entry has an empty operation name")
			}

			var rawCases map[string]json.RawMessage
			if err := json.Unmarshal(raw, &rawCases); err != nil {
				return nil, fmt.Errorf("dynamic mock %q: expected an object of argument-list cases: %w", opName, err)
			}

			cases := make(map[string]cty.Value, len(rawCases))
			for key, caseRaw := range rawCases {
				value, err := valueFromJSON(caseRaw)
				if err != nil {
					return nil, fmt.Errorf("dynamic mock %q, case %q: %w", opName, key, err)
				}
				cases[key] = value
			}
			if err := registry.RegisterDynamic(opName, cases); err != nil {
				return nil, err
			}
			continue
		}

		value, err := valueFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("mock %q: %w", name, err)
		}
		if err := registry.RegisterStatic(name, value); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// valueFromJSON converts an arbitrary JSON document into a cty.Value using
// its implied type.
func valueFromJSON(raw json.RawMessage) (cty.Value, error) {
	impliedType, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, impliedType)
}
