// Package render turns cty values into the canonical textual form used in
// snapshots and in representation strings. The rendering is intentionally
// stable: numbers print with no trailing zeros, collections sort their keys,
// and strings print bare, because the serialized form is compared
// byte-for-byte against recorded expectations.
package render

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Text renders a single cty value as canonical snapshot text.
func Text(value cty.Value) string {
	if value == cty.NilVal || value.IsNull() {
		return "null"
	}
	if !value.IsKnown() {
		return "<unknown>"
	}

	valueType := value.Type()
	switch {
	case valueType == cty.String:
		return value.AsString()
	case valueType == cty.Bool:
		if value.True() {
			return "true"
		}
		return "false"
	case valueType == cty.Number:
		return Number(value.AsBigFloat())
	case valueType.IsListType() || valueType.IsTupleType() || valueType.IsSetType():
		var parts []string
		for iterator := value.ElementIterator(); iterator.Next(); {
			_, element := iterator.Element()
			parts = append(parts, Text(element))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case valueType.IsMapType() || valueType.IsObjectType():
		pairs := make(map[string]string)
		var keys []string
		for iterator := value.ElementIterator(); iterator.Next(); {
			key, element := iterator.Element()
			keyText := Text(key)
			pairs[keyText] = Text(element)
			keys = append(keys, keyText)
		}
		sort.Strings(keys)
		var parts []string
		for _, key := range keys {
			parts = append(parts, key+"="+pairs[key])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return value.GoString()
	}
}

// Number renders an arbitrary-precision number canonically. Integers print
// exactly at any magnitude. Fractional values print through the shortest
// float64 round-trip: cty arithmetic happens at very high precision, and
// printing that precision verbatim would leak hundreds of digits of
// representation noise into snapshots (31 * 0.9 must read "27.9").
func Number(bigFloat *big.Float) string {
	if bigFloat.IsInt() {
		intValue, _ := bigFloat.Int(nil)
		return intValue.String()
	}
	floatValue, _ := bigFloat.Float64()
	return strconv.FormatFloat(floatValue, 'f', -1, 64)
}

// Call renders an operation invocation as readable text, the form opaque
// operations take during the representation pass.
func Call(name string, args []cty.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = Text(arg)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
