package taut

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/internal/genstack"
)

func newRecordingRun() (*runState, *[]*Event) {
	var events []*Event
	run := &runState{}
	run.sink.subscribe(SinkFunc(func(e *Event) { events = append(events, e) }))
	return run, &events
}

func TestCheckPassingReturnsTrueAndPublishesNothing(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "CheckPass"}, run, genstack.New())

	ok := tt.Check(Arg(tt, 1) < Arg(tt, 2))

	require.True(t, ok)
	require.False(t, tt.Failed())
	require.Empty(t, *events)
}

func TestCheckFailingSoftReportsAndContinues(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "CheckFailSoft"}, run, genstack.New())

	ok := tt.Check(Arg(tt, 5) < Arg(tt, 2), Soft())

	require.False(t, ok)
	require.True(t, tt.Failed())

	var failures []*Event
	for _, e := range *events {
		if e.Kind == AssertionFailed {
			failures = append(failures, e)
		}
	}
	require.Len(t, failures, 1)
	require.Contains(t, failures[0].Assertion.Canvas, "5")
	require.Contains(t, failures[0].Assertion.Canvas, "2")
	require.True(t, failures[0].Assertion.Soft)
}

func TestCheckFailingHardPanicsWithInterruptTest(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "CheckFailHard"}, run, genstack.New())

	require.PanicsWithValue(t, InterruptTest, func() {
		tt.Check(Arg(tt, 1) > Arg(tt, 2))
	})
	require.True(t, tt.Failed())
}

func TestCheckPublishesPreFailTestOnlyOnce(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "CheckTwice"}, run, genstack.New())

	tt.Check(false, Soft())
	tt.Check(false, Soft())

	preFails := 0
	for _, e := range *events {
		if e.Kind == PreFailTest {
			preFails++
		}
	}
	require.Equal(t, 1, preFails)
}

func TestFailWithMessage(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "FailMsg"}, run, genstack.New())

	require.PanicsWithValue(t, InterruptTest, func() {
		tt.Fail(Msg("custom %d", 3))
	})

	var found *AssertionReport
	for _, e := range *events {
		if e.Kind == AssertionFailed {
			found = e.Assertion
		}
	}
	require.NotNil(t, found)
	require.Equal(t, "custom 3", found.Message)
	require.Equal(t, "FAIL", found.Macro)
}

func TestContextFramesAppearInFailureReport(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "FailWithContext"}, run, genstack.New())
	g := tt.Context("inside loop %d", 7)
	defer g.Close()

	tt.Fail(Soft())

	var found *AssertionReport
	for _, e := range *events {
		if e.Kind == AssertionFailed {
			found = e.Assertion
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Context, 1)
	require.True(t, strings.Contains(found.Context[0], "inside loop 7"))
}

func TestCheckNestedMarkersCaptureCorrectValues(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "CheckNested"}, run, genstack.New())

	square := func(n int) int { return n * n }
	ok := tt.Check(Arg(tt, square(Arg(tt, 3))) == 10, Soft())

	require.False(t, ok)
	require.True(t, tt.Failed())

	var failures []*Event
	for _, e := range *events {
		if e.Kind == AssertionFailed {
			failures = append(failures, e)
		}
	}
	require.Len(t, failures, 1)
	// Both the inner marker's raw value (3) and the outer marker's
	// computed value (square(3) == 9) must render without panicking —
	// a wrong CounterID/pendingArgs correlation used to index past the
	// captured slice or pair a marker with the wrong stored value.
	require.Contains(t, failures[0].Assertion.Canvas, "9")
}

func TestAtOverridesReportedLocation(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "AtOverride"}, run, genstack.New())
	custom := Location{File: "elsewhere.go", Line: 99}

	tt.Fail(Soft(), At(custom))

	var found *AssertionReport
	for _, e := range *events {
		if e.Kind == AssertionFailed {
			found = e.Assertion
		}
	}
	require.NotNil(t, found)
	require.Equal(t, custom, found.Loc)
}
