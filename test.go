package taut

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Test is a registered test: a `/`-delimited name, its registration
// location, flags, and the function that runs it (spec.md §3, "Test").
type Test struct {
	Name     string
	Loc      Location
	Disabled bool
	runFn    func(*T)

	seq int // insertion order, used by the execution-order comparator
}

var nameSegment = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("test name must not be empty")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" {
			return fmt.Errorf("test name %q has an empty segment", name)
		}
		if !nameSegment.MatchString(seg) {
			return fmt.Errorf("test name %q has an invalid segment %q (want [A-Za-z0-9_]+)", name, seg)
		}
	}
	return nil
}

// TestOpt configures a registration; see Disabled.
type TestOpt func(*Test)

// Disabled marks a test as disabled-in-source: runtime filters can still
// turn it on with ForceInclude, but a plain Include cannot.
func Disabled() TestOpt { return func(t *Test) { t.Disabled = true } }

// registry is the process-global, insertion-ordered test table
// (spec.md §3/§4.G). It is mutated only during package init (Test calls)
// and is read-only once Run begins, so it needs no synchronization
// (spec.md §5, "Shared resources").
type registry struct {
	byName map[string]*Test
	order  []*Test
}

var globalRegistry = &registry{byName: map[string]*Test{}}

// Test registers a test under name, calling fn to run it. A duplicate
// registration at a different source location is an error (reported by
// panicking at init time, since there is no later opportunity); at the
// same location it is silently coalesced, mirroring header-inclusion
// re-registration in the original C++ library.
func Test(name string, fn func(*T), opts ...TestOpt) {
	loc := callerLocation(1)
	if err := validateName(name); err != nil {
		panic(fmt.Sprintf("taut: %v", err))
	}
	t := &Test{Name: name, Loc: loc, runFn: fn, seq: len(globalRegistry.order)}
	for _, o := range opts {
		o(t)
	}
	if existing, ok := globalRegistry.byName[name]; ok {
		if existing.Loc == loc {
			return // header-inclusion style re-registration, coalesced
		}
		panic(fmt.Sprintf("taut: duplicate test name %q registered at %s (first registered at %s)",
			name, loc, existing.Loc))
	}
	for _, other := range globalRegistry.order {
		if isGroupPrefixOf(name, other.Name) || isGroupPrefixOf(other.Name, name) {
			panic(fmt.Sprintf("taut: test name %q cannot be both a test and a group prefix of %q", name, other.Name))
		}
	}
	globalRegistry.byName[name] = t
	globalRegistry.order = append(globalRegistry.order, t)
}

// isGroupPrefixOf reports whether prefix is a strict "/"-segment prefix of
// name — i.e. prefix names a group that name lives under.
func isGroupPrefixOf(prefix, name string) bool {
	if prefix == name {
		return false
	}
	return strings.HasPrefix(name, prefix+"/")
}

// orderedTests returns every registered test sorted by spec.md 4.G's
// comparator: walk both names segment by segment; at the first differing
// segment, order by the first-seen registration position of that prefix.
// This makes tests within a group run together, in first-appearance order.
func (r *registry) orderedTests() []*Test {
	tests := make([]*Test, len(r.order))
	copy(tests, r.order)

	firstSeenSeq := map[string]int{}
	for _, t := range r.order {
		segs := strings.Split(t.Name, "/")
		for i := range segs {
			prefix := strings.Join(segs[:i+1], "/")
			if _, ok := firstSeenSeq[prefix]; !ok {
				firstSeenSeq[prefix] = t.seq
			}
		}
	}

	sort.SliceStable(tests, func(i, j int) bool {
		a := strings.Split(tests[i].Name, "/")
		b := strings.Split(tests[j].Name, "/")
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] == b[k] {
				continue
			}
			pa := firstSeenSeq[strings.Join(a[:k+1], "/")]
			pb := firstSeenSeq[strings.Join(b[:k+1], "/")]
			return pa < pb
		}
		return len(a) < len(b)
	})
	return tests
}
