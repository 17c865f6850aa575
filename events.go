package taut

// EventKind enumerates the event stream published by the core (spec.md §7).
// External report modules (progress/results/help printers, ANSI colorizer,
// debugger trampoline) are the only consumers; cmd/taut's default printer is
// one such consumer, not part of the core itself.
type EventKind int

const (
	PreRunTests EventKind = iota
	PostRunTests
	PreRunSingleTest
	PostRunSingleTest
	PreFailTest
	AssertionFailed
	UncaughtException
	MissingException
	PreGenerate
	PostGenerate
	PrePruneGenerator
	OnRegisterGeneratorOverride
	OnOverrideGenerator
	OnExplainException
	OnPreTryCatch
	OnFilterTest
)

func (k EventKind) String() string {
	names := [...]string{
		"PreRunTests", "PostRunTests", "PreRunSingleTest", "PostRunSingleTest",
		"PreFailTest", "AssertionFailed", "UncaughtException", "MissingException",
		"PreGenerate", "PostGenerate", "PrePruneGenerator",
		"OnRegisterGeneratorOverride", "OnOverrideGenerator", "OnExplainException",
		"OnPreTryCatch", "OnFilterTest",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "EventKind(?)"
	}
	return names[k]
}

// Event is a single entry in the core's event stream. Only Kind and the
// field(s) documented for that Kind are populated; modules that want to
// influence behavior (override controller, exception explainer, the
// catch/no-catch policy) write into the *Out fields.
type Event struct {
	Kind EventKind

	Test *Test // PreRunSingleTest, PostRunSingleTest, PreFailTest, OnFilterTest

	FirstRepetition bool // PreRunSingleTest
	IsLastRepetition bool // PostRunSingleTest
	TestFailed       bool // PostRunSingleTest

	Assertion *AssertionReport // AssertionFailed
	Exception *ExceptionReport // UncaughtException, MissingException

	GeneratorName string // PreGenerate, PostGenerate, PrePruneGenerator, OnOverrideGenerator
	GeneratorLoc  Location

	OverrideProgram string // OnRegisterGeneratorOverride

	// ExplainOut lets an exception-explainer module (OnExplainException)
	// report the {type name, message, cause} it extracted for a non-builtin
	// panic value; nil cause terminates the chain walk.
	ExplainType    string
	ExplainMessage string
	ExplainCause   error
	ExplainHandled bool

	// CatchOut lets a module override whether the runner recovers panics
	// inside the test body (OnPreTryCatch); defaults to true.
	ShouldCatch bool

	// BreakOut lets a module request a debugger-breakpoint trampoline call.
	ShouldBreak bool

	// FilterOut lets OnFilterTest veto a test that otherwise passed the
	// include/exclude patterns.
	FilterEnabled bool
}

// AssertionReport is the rendered-failure payload for AssertionFailed.
type AssertionReport struct {
	Loc      Location
	Macro    string // "CHECK", "FAIL", ...
	Canvas   string // rendered text, see internal/canvas
	Message  string // evaluated lazy message, if any
	Soft     bool
	Context  []string // rendered context-frame lines, bottom-up
}

// ExceptionReport is the payload for UncaughtException / MissingException.
type ExceptionReport struct {
	Loc     Location
	Chain   []PanicElem
	Message string
}

// Sink receives events. Subscribe registers one for the duration of a Run.
type Sink interface {
	Handle(*Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(*Event)

func (f SinkFunc) Handle(e *Event) { f(e) }

type sinkList struct {
	sinks []Sink
}

func (l *sinkList) publish(e *Event) {
	for _, s := range l.sinks {
		s.Handle(e)
	}
}

func (l *sinkList) subscribe(s Sink) { l.sinks = append(l.sinks, s) }
