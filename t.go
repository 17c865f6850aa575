package taut

import (
	"github.com/taut-go/taut/internal/ctxstack"
	"github.com/taut-go/taut/internal/genstack"
	"github.com/taut-go/taut/internal/override"
)

// T is the per-running-test handle passed explicitly to every taut macro
// function, playing the role *testing.T plays in the standard library —
// and, per SPEC_FULL.md §0, also playing the role of the "current object"
// the original keeps in a thread-local: each T owns its own context stack,
// assertion stack and generator stack, so using one from a goroutine other
// than the one the runner invoked it from is simply a different T (or a
// misuse the runner's invariant checks catch, per spec.md §5).
type T struct {
	test *Test
	run  *runState

	ctxStack    ctxstack.Stack
	assertStack ctxstack.Stack
	lazyTexts   map[*ContextFrame]func() string

	logEntries   []logEntry
	logIDCounter int

	pendingArgs []pendingCapture

	gens *genstack.Stack

	testFailed bool // any assertion (hard or soft) has failed this repetition
}

// runState carries the options and event sink shared by every T produced
// during one Run invocation.
type runState struct {
	sink        sinkList
	catch       bool
	breakOnFail bool
	overrides   *override.Store
	explainers  []func(any) (typeName, message string, cause error, ok bool)
}

// newT builds a fresh handle for one repetition of test. gens is shared
// across every repetition of the same test (generator objects carry state
// across repetitions; only the context/log/assertion state is per-T).
func newT(test *Test, run *runState, gens *genstack.Stack) *T {
	return &T{
		test:      test,
		run:       run,
		lazyTexts: map[*ContextFrame]func() string{},
		gens:      gens,
	}
}

// InterruptTestError is the sentinel panic value a hard assertion failure
// throws to unwind exactly one test body (spec.md §3/§6, INTERRUPT_TEST).
type InterruptTestError struct{}

func (InterruptTestError) Error() string { return "taut: test interrupted" }

// InterruptTest is the sentinel value; callers match it with errors.As or a
// type assertion on the recovered panic value.
var InterruptTest = InterruptTestError{}

// Interrupt throws InterruptTest unconditionally — the INTERRUPT_TEST macro.
func (t *T) Interrupt() {
	panic(InterruptTest)
}

// Failed reports whether any assertion has failed so far in this repetition.
func (t *T) Failed() bool { return t.testFailed }
