// Package ops declares the enumerable operation surface available to
// configuration expressions and builds the interception layer over it. Every
// named operation is exposed as a cty function; each invocation gives the
// mock registry first refusal, and only an unregistered name dispatches to
// the real handler. Operations marked opaque render themselves as literal
// invocation text during the representation pass instead of executing.
package ops
