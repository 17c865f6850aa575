package taut

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/internal/genstack"
	"github.com/taut-go/taut/internal/override"
)

// runRepetitions drives a minimal lifecycle loop (mirroring runOneTest) so
// generator tests can exercise cross-repetition state without going through
// the full Run entrypoint.
func runRepetitions(test *Test, run *runState, body func(*T)) (reps int) {
	gens := genstack.New()
	for {
		tt := newT(test, run, gens)
		body(tt)
		reps++
		if tt.gens.Prune() {
			break
		}
	}
	return reps
}

func TestGenerateSingleAxisVisitsEveryValue(t *testing.T) {
	test := &Test{Name: "GenSingleAxis"}
	run := &runState{}
	var seen []string
	runRepetitions(test, run, func(tt *T) {
		v := Generate(tt, "letter", "a", "b", "c")
		seen = append(seen, v)
	})
	require.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestGenerateTwoAxesEnumeratesCartesianProduct(t *testing.T) {
	test := &Test{Name: "GenTwoAxes"}
	run := &runState{}
	type pair struct {
		letter string
		num    int
	}
	var seen []pair
	runRepetitions(test, run, func(tt *T) {
		l := Generate(tt, "letter", "a", "b")
		n := Generate(tt, "num", 1, 2)
		seen = append(seen, pair{l, n})
	})
	require.Equal(t, []pair{
		{"a", 1}, {"a", 2}, {"b", 1}, {"b", 2},
	}, seen)
}

func TestGenerateFuncStopsWhenRepeatFalse(t *testing.T) {
	test := &Test{Name: "GenFunc"}
	run := &runState{}
	var seen []int
	n := 0
	runRepetitions(test, run, func(tt *T) {
		v := GenerateFunc(tt, "counter", func(repeat *bool) int {
			n++
			if n >= 3 {
				*repeat = false
			}
			return n
		})
		seen = append(seen, v)
	})
	require.Equal(t, []int{1, 2, 3}, seen)
}

func TestSelectRunsExactlyOneVariantPerRepetition(t *testing.T) {
	test := &Test{Name: "SelectTest"}
	run := &runState{}
	var ran []string
	runRepetitions(test, run, func(tt *T) {
		Select(tt, "branch", func(s *Selector) {
			s.Variant("left", func() { ran = append(ran, "left") })
			s.Variant("right", func() { ran = append(ran, "right") })
		})
	})
	require.Equal(t, []string{"left", "right"}, ran)
}

// TestNestedOverrideProgramScopesToProducingRule exercises spec.md §8
// scenario 5: `blah//x{#1..,#5(y=20)},y=10`. The top-level `y=10` rule
// forces every sub-generator "y" to 10, except while "x"'s `#5` rule is
// the one currently producing, where the nested `y=20` program takes
// over for "y" instead — and only for that window.
func TestNestedOverrideProgramScopesToProducingRule(t *testing.T) {
	parsed, err := override.ParseFlag(`Blah//x{#1..,#5(y=20)},y=10`)
	require.NoError(t, err)
	store := override.NewStore([]*override.Parsed{parsed})

	test := &Test{Name: "Blah"}
	run := &runState{overrides: store}

	type pair struct {
		x string
		y int
	}
	var seen []pair
	runRepetitions(test, run, func(tt *T) {
		x := Generate(tt, "x", "v0", "v1", "v2", "v3", "v4", "v5")
		y := Generate(tt, "y", 1, 2)
		seen = append(seen, pair{x, y})
	})

	// Every x value gets one raw first "y" value (unforced, the natural
	// 1) followed by one forced "y" value. For x == "v5" (reached via
	// x's controller's 5th Advise call, matching "#5") the forced value
	// must come from the nested program (20); every other x value falls
	// back to the top-level override (10).
	var forcedForV5, forcedOthers []int
	for i := 1; i < len(seen); i++ {
		if seen[i].x != seen[i-1].x {
			continue
		}
		if seen[i].x == "v5" {
			forcedForV5 = append(forcedForV5, seen[i].y)
		} else {
			forcedOthers = append(forcedOthers, seen[i].y)
		}
	}
	require.Equal(t, []int{20}, forcedForV5)
	for _, y := range forcedOthers {
		require.Equal(t, 10, y)
	}
	require.NotEmpty(t, forcedOthers)
}

func TestSelectWithNoVariantsPanics(t *testing.T) {
	test := &Test{Name: "SelectEmpty"}
	run := &runState{}
	require.Panics(t, func() {
		runRepetitions(test, run, func(tt *T) {
			Select(tt, "branch", func(s *Selector) {})
		})
	})
}
