package taut

import (
	"fmt"
	"regexp"

	"github.com/taut-go/taut/internal/genstack"
)

// FilterKind discriminates one entry of the ordered filter list built from
// --include/--force-include/--exclude (spec.md §6).
type FilterKind int

const (
	Include FilterKind = iota
	ForceInclude
	Exclude
)

// Filter is one compiled --include/--force-include/--exclude pattern.
type Filter struct {
	Kind FilterKind
	Re   *regexp.Regexp
}

// RunOptions configures one Run invocation. cmd/taut builds this from the
// parsed command line; callers embedding taut directly (e.g. its own test
// suite) can build one by hand.
type RunOptions struct {
	Filters    []Filter
	Generate   []string // raw --generate TEST_REGEX//program arguments
	NoCatch    bool     // --no-catch: let panics inside a test body propagate uncaught
	Sinks      []Sink
	Explainers []func(any) (typeName, message string, cause error, ok bool)
}

// Exit codes, spec.md §6.
const (
	ExitSuccess      = 0
	ExitTestsFailed  = 1
	ExitBadArguments = 2
	ExitFilterNoop   = 3
)

// Run executes every registered, filter-enabled test and returns the
// process exit code spec.md §6 defines. It is the taut_main entrypoint;
// cmd/taut is a thin flag-parsing wrapper around it.
func Run(opts RunOptions) int {
	overrides, err := parseGenerateFlags(opts.Generate)
	if err != nil {
		fmt.Println(err)
		return ExitBadArguments
	}

	run := &runState{
		catch:      !opts.NoCatch,
		overrides:  overrides,
		explainers: opts.Explainers,
	}
	for _, s := range opts.Sinks {
		run.sink.subscribe(s)
	}

	tests := globalRegistry.orderedTests()
	enabled, noopFilter := resolveFilters(tests, opts.Filters)

	run.sink.publish(&Event{Kind: PreRunTests})

	anyFailed := false
	for _, test := range tests {
		if !enabled[test] {
			continue
		}
		if runOneTest(test, run) {
			anyFailed = true
		}
	}

	run.sink.publish(&Event{Kind: PostRunTests})

	switch {
	case anyFailed:
		return ExitTestsFailed
	case noopFilter:
		return ExitFilterNoop
	default:
		return ExitSuccess
	}
}

// resolveFilters computes, per test, whether it's enabled to run, per
// spec.md §4.G's toggle semantics, and reports whether any include/exclude
// pattern matched zero tests (spec.md §6, exit code 3).
func resolveFilters(tests []*Test, filters []Filter) (map[*Test]bool, bool) {
	defaultEnabled := true
	if len(filters) > 0 && filters[0].Kind == Include {
		defaultEnabled = false
	}

	matchCount := make([]int, len(filters))
	enabled := make(map[*Test]bool, len(tests))
	for _, test := range tests {
		state := defaultEnabled
		forced := false
		for i, f := range filters {
			if !f.Re.MatchString(test.Name) {
				continue
			}
			matchCount[i]++
			switch f.Kind {
			case Include, Exclude:
				state = !state
			case ForceInclude:
				state = true
				forced = true
			}
		}
		if test.Disabled && !forced {
			state = false
		}
		enabled[test] = state
	}

	noop := false
	for i, f := range filters {
		if f.Kind == ForceInclude {
			continue // only include/exclude participate in the zero-effect check
		}
		if matchCount[i] == 0 {
			noop = true
		}
	}
	return enabled, noop
}

// runOneTest drives the per-test lifecycle (spec.md §4.G) across every
// repetition the test's generators produce, and reports whether the test
// failed overall.
func runOneTest(test *Test, run *runState) bool {
	gens := genstack.New()
	first := true
	failed := false

	for {
		t := newT(test, run, gens)

		run.sink.publish(&Event{Kind: PreRunSingleTest, Test: test, FirstRepetition: first})

		runTestBody(t, test, run)

		if !t.ctxStack.Invariant() || !t.assertStack.Invariant() {
			panic(fmt.Sprintf("taut: internal invariant violated after running %q", test.Name))
		}

		isLast := t.gens.Prune()

		if t.testFailed {
			failed = true
		}

		run.sink.publish(&Event{Kind: PostRunSingleTest, Test: test, IsLastRepetition: isLast, TestFailed: t.testFailed})

		if isLast {
			break
		}
		first = false
	}
	return failed
}

// runTestBody runs one repetition under a possibly-suppressible recover,
// matching spec.md 4.G step 2-3: InterruptTest unwinds just this
// repetition; anything else becomes an UncaughtException and fails the
// test, unless --no-catch asked for it to propagate (useful under a
// debugger, spec.md §6 --debug).
func runTestBody(t *T, test *Test, run *runState) {
	if !run.catch {
		test.runFn(t)
		return
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(InterruptTestError); ok {
			return
		}
		t.testFailed = true
		chain := buildChain(r, run.explainers)
		run.sink.publish(&Event{Kind: UncaughtException, Exception: &ExceptionReport{Loc: test.Loc, Chain: chain}})
	}()
	test.runFn(t)
}
