package mock

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestRegistry_StaticIgnoresArguments(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterStatic("check_path", cty.StringVal("")))

	value, found, err := registry.Lookup("check_path", []cty.Value{cty.StringVal("/anything")})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cty.StringVal(""), value)

	value, found, err = registry.Lookup("check_path", nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cty.StringVal(""), value)
}

func TestRegistry_UnregisteredNameIsNotFound(t *testing.T) {
	registry := New()

	_, found, err := registry.Lookup("read_file", []cty.Value{cty.StringVal("a")})
	require.NoError(t, err)
	require.False(t, found)
}

func TestRegistry_DynamicCoveredArguments(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterDynamic("read_file", map[string]cty.Value{
		`["a"]`: cty.StringVal("contents of a"),
	}))

	value, found, err := registry.Lookup("read_file", []cty.Value{cty.StringVal("a")})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cty.StringVal("contents of a"), value)
}

func TestRegistry_UnmappedDynamicMockIsHardFailure(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterDynamic("f", map[string]cty.Value{
		`["a"]`: cty.StringVal("mapped"),
	}))

	_, found, err := registry.Lookup("f", []cty.Value{cty.StringVal("b")})
	require.True(t, found, "a registered dynamic name must never fall through to real evaluation")
	require.Error(t, err)

	var unmapped *UnmappedDynamicMockError
	require.ErrorAs(t, err, &unmapped)
	require.Equal(t, "f", unmapped.Name)
	require.Equal(t, `["b"]`, unmapped.ArgKey)
}

func TestRegistry_DuplicateNameAcrossCategories(t *testing.T) {
	registry := New()
	require.NoError(t, registry.RegisterStatic("env", cty.StringVal("x")))
	require.Error(t, registry.RegisterDynamic("env", nil))
}

func TestArgKey_AlwaysASequence(t *testing.T) {
	key, err := ArgKey([]cty.Value{cty.StringVal("only")})
	require.NoError(t, err)
	require.Equal(t, `["only"]`, key)

	key, err = ArgKey(nil)
	require.NoError(t, err)
	require.Equal(t, `[]`, key)

	key, err = ArgKey([]cty.Value{cty.StringVal("a"), cty.NumberIntVal(2)})
	require.NoError(t, err)
	require.Equal(t, `["a",2]`, key)
}

func TestCanonicalKey_NormalizesFormatting(t *testing.T) {
	key, err := CanonicalKey(`[ "a" , 2 ]`)
	require.NoError(t, err)
	require.Equal(t, `["a",2]`, key)

	_, err = CanonicalKey(`{"not": "an array"}`)
	require.Error(t, err)
}

func TestFromRaw_StaticAndDynamic(t *testing.T) {
	mocks := map[string]json.RawMessage{
		"check_path":         json.RawMessage(`""`),
		"DYNAMIC|parse_json": json.RawMessage(`{"[\"a.json\"]": {"key": "value"}}`),
	}

	registry, err := FromRaw(mocks)
	require.NoError(t, err)

	value, found, err := registry.Lookup("check_path", []cty.Value{cty.StringVal("/p")})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cty.StringVal(""), value)

	value, found, err = registry.Lookup("parse_json", []cty.Value{cty.StringVal("a.json")})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, cty.StringVal("value"), value.GetAttr("key"))
}

func TestFromRaw_RejectsMalformedDynamicEntries(t *testing.T) {
	_, err := FromRaw(map[string]json.RawMessage{
		"DYNAMIC|": json.RawMessage(`{}`),
	})
	require.Error(t, err)

	_, err = FromRaw(map[string]json.RawMessage{
		"DYNAMIC|f": json.RawMessage(`{"not json array": 1}`),
	})
	require.Error(t, err)
}
