package taut

import (
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/internal/genstack"
)

type myError struct{ msg string }

func (e *myError) Error() string { return e.msg }

func TestMustThrowCapturesWrappedErrorChain(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "ThrowChain"}, run, genstack.New())

	inner := &myError{msg: "root cause"}
	cp := MustThrow(tt, func() {
		panic(fmt.Errorf("outer failure: %w", inner))
	})

	require.NotNil(t, cp)
	require.Len(t, cp.Chain, 2)
	require.Equal(t, "outer failure: root cause", cp.Chain[0].Message)
	require.Equal(t, "root cause", cp.Chain[1].Message)
}

func TestMustThrowMissingExceptionReportsSoft(t *testing.T) {
	run, events := newRecordingRun()
	tt := newT(&Test{Name: "NoThrow"}, run, genstack.New())

	cp := MustThrow(tt, func() {}, Soft())
	require.Nil(t, cp)
	require.True(t, tt.Failed())

	var found bool
	for _, e := range *events {
		if e.Kind == MissingException {
			found = true
		}
	}
	require.True(t, found)
}

func TestMustThrowMissingExceptionHardPanics(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "NoThrowHard"}, run, genstack.New())

	require.PanicsWithValue(t, InterruptTest, func() {
		MustThrow(tt, func() {})
	})
}

func TestCursorTopLevelAndMostNested(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "Cursors"}, run, genstack.New())

	cp := MustThrow(tt, func() {
		panic(fmt.Errorf("a: %w", fmt.Errorf("b: %w", errors.New("c"))))
	})

	require.True(t, cp.match(TopLevel(), func(e PanicElem) bool { return e.Message == "a: b: c" }))
	require.True(t, cp.match(MostNested(), func(e PanicElem) bool { return e.Message == "c" }))
	require.True(t, cp.match(All(), func(e PanicElem) bool { return e.Message != "" }))
	require.True(t, cp.match(Any(), func(e PanicElem) bool { return e.Message == "b: c" }))
	require.True(t, cp.match(AtIndex(1), func(e PanicElem) bool { return e.Message == "b: c" }))
	require.False(t, cp.match(AtIndex(99), func(e PanicElem) bool { return true }))
}

func TestExactTypeAndIsType(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "Types"}, run, genstack.New())

	cp := MustThrow(tt, func() {
		panic(&myError{msg: "boom"})
	})

	require.True(t, ExactType[*myError](cp, TopLevel()))
	require.False(t, ExactType[*fmt.Stringer](cp, TopLevel()))
	require.True(t, IsType[error](cp, TopLevel()))
}

func TestMatchMessageUsesRegexp(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "MsgMatch"}, run, genstack.New())

	cp := MustThrow(tt, func() {
		panic(errors.New("connection refused on port 8080"))
	})

	require.True(t, cp.MatchMessage(TopLevel(), regexp.MustCompile(`port \d+`)))
	require.False(t, cp.MatchMessage(TopLevel(), regexp.MustCompile(`timeout`)))
}

func TestExplainerHandlesNonErrorPanicValue(t *testing.T) {
	run := &runState{
		explainers: []func(any) (string, string, error, bool){
			func(v any) (string, string, error, bool) {
				if s, ok := v.(string); ok {
					return "string-panic", s, nil, true
				}
				return "", "", nil, false
			},
		},
	}
	tt := newT(&Test{Name: "Explainer"}, run, genstack.New())

	cp := MustThrow(tt, func() { panic("plain string panic") })
	require.Len(t, cp.Chain, 1)
	require.Equal(t, "string-panic", cp.Chain[0].TypeName)
	require.Equal(t, "plain string panic", cp.Chain[0].Message)
}

func TestUnexplainedNonErrorPanicTerminatesAsLeaf(t *testing.T) {
	run, _ := newRecordingRun()
	tt := newT(&Test{Name: "Unexplained"}, run, genstack.New())

	cp := MustThrow(tt, func() { panic(42) })
	require.Len(t, cp.Chain, 1)
	require.Equal(t, "42", cp.Chain[0].Message)
}
