// Package taut is a unit-testing framework whose distinguishing feature is
// expression decomposition with per-subexpression value capture: when an
// assertion fails, it reports not only the source expression but the
// runtime value of every subexpression the author marked with Arg, as
// colored, hierarchically bracketed annotations under the expression.
//
// A test is a function registered with Test:
//
//	func init() {
//		taut.Test("math/add", func(t *taut.T) {
//			a, b := 2, 2
//			t.Check(taut.Arg(t, a)+taut.Arg(t, b) == taut.Arg(t, 4))
//		})
//	}
//
// Run drives the registered tests; cmd/taut wraps it with a cobra CLI.
package taut
