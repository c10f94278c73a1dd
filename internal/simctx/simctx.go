// Package simctx simulates the runtime context a pipeline would observe:
// the current stage, the retry attempt counter, and the reported CPU and
// memory capacity. The resolver owns one Context per test case and drives it
// through stage scopes and sampling attempts; nothing here is shared across
// concurrent test runs.
package simctx

import (
	"fmt"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/zclconf/go-cty/cty"
)

const bytesPerGB = 1024 * 1024 * 1024

// Context carries the simulated runtime state injected into deferred
// expressions. The attempt counter starts at 1 and is advanced by the
// resolver during sampling; the stage stack tracks the named pipeline stage
// the tree walk is currently inside.
type Context struct {
	cpus     int
	memoryGB float64
	attempt  int
	primed   bool
	stages   []string
}

// New constructs a Context reporting the given capacity. Non-positive values
// fall back to the host's real capacity so a test case may omit them.
func New(cpus int, memoryGB float64) *Context {
	if cpus <= 0 {
		cpus = hostCPUs()
	}
	if memoryGB <= 0 {
		memoryGB = hostMemoryGB()
	}
	return &Context{cpus: cpus, memoryGB: memoryGB, attempt: 1}
}

// hostCPUs probes the host's logical CPU count.
func hostCPUs() int {
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		return 1
	}
	return count
}

// hostMemoryGB probes the host's total memory.
func hostMemoryGB() float64 {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 1
	}
	return float64(stat.Total) / bytesPerGB
}

// CPUs returns the reported CPU count.
func (c *Context) CPUs() int { return c.cpus }

// MemoryGB returns the reported memory capacity in gigabytes.
func (c *Context) MemoryGB() float64 { return c.memoryGB }

// Prime makes the task context available to expressions. The resolver calls
// this exactly once per context-dependent expression, before the
// representation and sampling passes.
func (c *Context) Prime() { c.primed = true }

// Unprime ends the context-available window.
func (c *Context) Unprime() { c.primed = false }

// Primed reports whether the task context is currently available.
func (c *Context) Primed() bool { return c.primed }

// SetAttempt sets the retry attempt counter used for the next invocation.
func (c *Context) SetAttempt(n int) {
	if n < 1 {
		panic(fmt.Sprintf("attempt counter must be >= 1, got %d", n))
	}
	c.attempt = n
}

// Attempt returns the current retry attempt counter.
func (c *Context) Attempt() int { return c.attempt }

// PushStage records entry into a named pipeline stage subtree.
func (c *Context) PushStage(name string) {
	c.stages = append(c.stages, name)
}

// PopStage records exit from the innermost stage subtree.
func (c *Context) PopStage() {
	if len(c.stages) == 0 {
		panic("stage stack underflow")
	}
	c.stages = c.stages[:len(c.stages)-1]
}

// Stage returns the innermost stage name, if the walk is inside one.
func (c *Context) Stage() (string, bool) {
	if len(c.stages) == 0 {
		return "", false
	}
	return c.stages[len(c.stages)-1], true
}

// TaskValue renders the simulated task context as the object exposed to
// expressions under the `task` variable. Querying it outside a primed
// window is a programmer error: only the sampling passes may observe
// concrete task values.
func (c *Context) TaskValue() cty.Value {
	if !c.primed {
		panic("task context queried while unprimed")
	}
	process := cty.NullVal(cty.String)
	if stage, ok := c.Stage(); ok {
		process = cty.StringVal(stage)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"attempt": cty.NumberIntVal(int64(c.attempt)),
		"cpus":    cty.NumberIntVal(int64(c.cpus)),
		"memory":  cty.NumberFloatVal(c.memoryGB),
		"process": process,
	})
}

// SymbolicTaskValue renders the task context for the representation pass:
// every attribute is a symbolic token naming itself rather than a concrete
// value, so arithmetic over task attributes fails cleanly (falling back to
// the closure() literal) while direct references stay readable.
func SymbolicTaskValue() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"attempt": cty.StringVal("task.attempt"),
		"cpus":    cty.StringVal("task.cpus"),
		"memory":  cty.StringVal("task.memory"),
		"process": cty.StringVal("task.process"),
	})
}
