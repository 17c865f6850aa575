package taut

import "github.com/taut-go/taut/internal/serial"

// pendingCapture is one value captured by Arg since the last Check/Fail
// drained the buffer.
type pendingCapture struct {
	value any
}

// Arg marks a subexpression for value capture — the `$[expr]` macro. It
// returns v unchanged so the enclosing boolean expression's semantics are
// untouched; taut.Arg(t, a) == taut.Arg(t, b) evaluates exactly as a == b
// would, with both operands additionally recorded.
//
// Go evaluates function-call arguments strictly left to right (Go spec,
// "Order of evaluation"), and — unlike the C++ macro this mirrors — the
// whole boolean expression is evaluated *before* Check is called, since it
// is itself just Check's argument. So Arg cannot rely on a live "current
// assertion" object the way the macro-expanded original does; instead it
// appends to T's capture buffer, and Check pairs that buffer positionally
// against the markers exprscan finds, correlating by each marker's
// CounterID — which exprscan assigns in evaluation order, not plain
// source order, precisely so it still lines up with this buffer when one
// Arg call nests inside another (e.g. Arg(t, f(Arg(t, x))): the inner
// call always runs first). See SPEC_FULL.md §0 and DESIGN.md for the full
// adaptation note, including its one known gap: a marker skipped by
// short-circuit evaluation (e.g. the right side of `&&`) cannot be
// distinguished from "not yet reached" as precisely as the macro original
// can, since there is no pre-allocated slot for it to stay "not_started" in.
func Arg[T any](t *T, v T) T {
	t.pendingArgs = append(t.pendingArgs, pendingCapture{value: v})
	return v
}

func (t *T) drainArgs() []pendingCapture {
	args := t.pendingArgs
	t.pendingArgs = nil
	return args
}

// valueToString renders a captured value the way a done argument prints:
// via serial.ToString, which in turn honors a Stringer/fmt.Stringer
// implementation before falling back to reflection.
func valueToString(v any) string { return serial.ToString(v) }
