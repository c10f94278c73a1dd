// Package resolver walks the configuration tree depth-first and resolves
// every deferred expression to a final value. Expressions that never touch
// the task context evaluate directly. Context-dependent expressions get an
// explicit two-phase treatment instead of exception-driven retries: a
// representation pass that captures the computation as readable text, then
// three sequential sampling passes across simulated retry attempts. Stage
// subtrees push their name into the simulated context for the duration of
// the walk beneath them.
package resolver
