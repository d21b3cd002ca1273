// Package litmus translates between herdtools-style litmus test text and an
// in-memory trace graph of per-thread memory operations and relation edges.
//
// The package accepts two textual dialects on import (a pipe-delimited
// per-thread instruction table and C-like per-thread function bodies) and
// produces two dialects on export (Linux-kernel macro style and C11
// explicit-atomics style). The trace graph is the shared contract between
// both directions.
package litmus

import (
	"errors"
	"fmt"
)

var (
	ErrMissingHeader    = errors.New("missing '<ARCH> <NAME>' header line")
	ErrUnbalancedInit   = errors.New("unbalanced braces in initial-state block")
	ErrNoThreads        = errors.New("no recognizable thread syntax")
	ErrUnclosedThread   = errors.New("missing closing brace in thread body")
	ErrNestedUnbracedIf = errors.New("un-braced 'if' nested inside un-braced 'if'; add braces")
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
