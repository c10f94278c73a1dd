// Package eval wires the engine together for one test case: it builds the
// mock registry, the simulated context, and the interception table, loads
// and resolves the configuration tree, and normalizes the result into a
// comparable snapshot. It also implements the sandbox invocation contract
// used by the entry binary and the in-process engine.
package eval
