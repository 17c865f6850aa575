package taut

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, validateName("Foo"))
	require.NoError(t, validateName("Foo/Bar"))
	require.NoError(t, validateName("Foo_1/Bar2"))

	require.Error(t, validateName(""))
	require.Error(t, validateName("Foo//Bar"))
	require.Error(t, validateName("Foo Bar"))
	require.Error(t, validateName("/Foo"))
}

func TestIsGroupPrefixOf(t *testing.T) {
	require.True(t, isGroupPrefixOf("Group", "Group/Case"))
	require.True(t, isGroupPrefixOf("Group", "Group/Sub/Case"))
	require.False(t, isGroupPrefixOf("Group", "Group"))
	require.False(t, isGroupPrefixOf("Group", "GroupX/Case"))
	require.False(t, isGroupPrefixOf("Group/Case", "Group"))
}

func newLocalRegistry(names ...string) *registry {
	r := &registry{byName: map[string]*Test{}}
	for i, n := range names {
		test := &Test{Name: n, seq: i}
		r.byName[n] = test
		r.order = append(r.order, test)
	}
	return r
}

func names(tests []*Test) []string {
	out := make([]string, len(tests))
	for i, t := range tests {
		out[i] = t.Name
	}
	return out
}

func TestOrderedTestsGroupsStayTogetherInFirstSeenOrder(t *testing.T) {
	r := newLocalRegistry("B/One", "A/One", "B/Two", "A/Two")
	got := names(r.orderedTests())
	// B's group is first-seen first, so both B cases sort before both A cases.
	require.Equal(t, []string{"B/One", "B/Two", "A/One", "A/Two"}, got)
}

func TestOrderedTestsStableWithinSameFirstSeenPrefix(t *testing.T) {
	r := newLocalRegistry("G/A", "G/B", "G/C")
	got := names(r.orderedTests())
	require.Equal(t, []string{"G/A", "G/B", "G/C"}, got)
}

func TestRegisterDuplicateAtSameLocationCoalesces(t *testing.T) {
	defer func() {
		delete(globalRegistry.byName, "ExampleCoalesceDup")
		for i, test := range globalRegistry.order {
			if test.Name == "ExampleCoalesceDup" {
				globalRegistry.order = append(globalRegistry.order[:i], globalRegistry.order[i+1:]...)
				break
			}
		}
	}()

	register := func() { Test("ExampleCoalesceDup", func(t *T) {}) }
	require.NotPanics(t, register)
	require.NotPanics(t, register) // same call site both times, must coalesce
	require.Len(t, collectMatches("ExampleCoalesceDup"), 1)
}

func TestRegisterGroupConflictPanics(t *testing.T) {
	defer func() {
		for _, n := range []string{"ConflictGroup", "ConflictGroup/Child"} {
			delete(globalRegistry.byName, n)
		}
		filterOutNames(map[string]bool{"ConflictGroup": true, "ConflictGroup/Child": true})
	}()

	Test("ConflictGroup/Child", func(t *T) {})
	require.Panics(t, func() { Test("ConflictGroup", func(t *T) {}) })
}

func collectMatches(name string) []*Test {
	var out []*Test
	for _, t := range globalRegistry.order {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

func filterOutNames(drop map[string]bool) {
	kept := globalRegistry.order[:0]
	for _, t := range globalRegistry.order {
		if !drop[t.Name] {
			kept = append(kept, t)
		}
	}
	globalRegistry.order = kept
}
