// Package genstack implements the generator engine's runtime core: the
// per-test stack of generator objects, first-visit-vs-revisit semantics,
// determinism checking on replay, and Cartesian-product pruning between
// passes. It knows nothing about the override grammar (internal/override)
// or about taut.T; it only depends on the small ValueSource/Controller
// interfaces described in spec.md §9 ("Cyclic dependency between generator
// and overrider"), which is exactly what lets a command-line override
// attach to a generator of an arbitrary user type without genstack ever
// naming that type.
package genstack

import "fmt"

// Loc is a lightweight source location, independent of the root package's
// Location so this package has no import back to it.
type Loc struct {
	File string
	Line int
}

// ValueSource is the interface a generator's value-producing backend
// implements; Stack and Controller only ever see this, never the backing
// type.
type ValueSource interface {
	HasValue() bool
	IsLastValue() bool
	GenerateNext()
	ValueToString() string
	ValueEqualsFromString(s string) bool
	TrySetFromString(s string) error
}

// Decision is what a Controller tells the Stack to do on one visit to a
// controlled generator.
type Decision int

const (
	Passthrough Decision = iota // let the natural value through unmodified
	Inject                      // use Value from the Controller's response
	Skip                        // discard this natural value, try the next one
	Halt                        // generator is exhausted from the controller's POV
)

// Controller is the override program's interface into a generator,
// described in spec.md §4.F ("Overrides from the command line").
type Controller interface {
	// Advise is called once per visit to the controlled generator (after
	// it already has a natural candidate value, if any). natural is the
	// source holding that candidate, consulted for `-=`/`=` suppression.
	Advise(gen *Generator, natural ValueSource) (Decision, string)
}

// Generator is one entry on the stack (spec.md §3, "Generator").
type Generator struct {
	Name string
	Loc  Loc

	Src ValueSource

	NumGenerated int
	NumCustom    int

	NewValueWhenRevisiting bool
	InterruptIfEmpty       bool
	GenerateNothing        bool

	Controller Controller

	empty bool // true once this generator has produced nothing at all
}

// Stack is the per-test generator stack.
type Stack struct {
	list           []*Generator
	generatorIndex int

	// slotOf is the permanent loc -> list index mapping, established the
	// first time a call site is ever reached and never cleared; a call
	// site's slot doesn't move between passes. visitedPass is the
	// transient "reached already this pass" flag that Reset clears, used
	// to tell a genuine same-pass revisit (spec.md §4.F) apart from the
	// first time this pass reaches an already-known slot in its normal
	// sequence position.
	slotOf      map[Loc]int
	visitedPass map[Loc]bool
}

// New returns an empty stack. One stack serves every repetition of a test;
// Prune rewinds it between repetitions.
func New() *Stack { return &Stack{slotOf: map[Loc]int{}, visitedPass: map[Loc]bool{}} }

// Reset rewinds the stack to the start of a fresh repetition without
// discarding the generator objects themselves (they carry state across
// repetitions; only the visit cursor resets).
func (s *Stack) Reset() {
	s.generatorIndex = 0
	s.visitedPass = map[Loc]bool{}
}

// Len reports how many generators are currently on the stack.
func (s *Stack) Len() int { return len(s.list) }

// VisitedThisPass returns every generator reached so far during the
// current pass, in visit order. Override resolution uses this to find an
// enclosing generator whose controller activated a nested override
// program (spec.md §4.F) that might apply to the generator about to be
// visited next.
func (s *Stack) VisitedThisPass() []*Generator {
	return s.list[:s.generatorIndex]
}

// Done reports whether every generator has been (re-)visited this pass.
func (s *Stack) Done() bool { return s.generatorIndex == len(s.list) }

// Empty reports whether the stack has no generators left at all —
// equivalent to the test having no more repetitions to run.
func (s *Stack) Empty() bool { return len(s.list) == 0 }

// Visit is called at a GENERATE call site. makeSource is invoked only on
// first visit. It returns the generator (freshly constructed or replayed)
// and an error for a determinism violation (spec.md §4.F, "Determinism
// checks") or a value-less generator without InterruptIfEmpty set
// (spec.md §4.F, "Interrupt-empty").
func (s *Stack) Visit(loc Loc, name string, newValueWhenRevisiting, interruptIfEmpty bool, makeSource func() ValueSource) (*Generator, error) {
	if s.visitedPass[loc] {
		// spec.md §4.F, "Between passes": "On subsequent visits during the
		// same pass, by default the stored value is returned (no
		// re-generation)." This call site already holds its slot and was
		// already produced earlier in this same pass (e.g. a loop that
		// reaches the same GENERATE call more than once) — serve the
		// cached generator without consuming another stack slot.
		gen := s.list[s.slotOf[loc]]
		if newValueWhenRevisiting {
			s.advance(gen, true)
		}
		return checkHasValue(gen)
	}

	if s.generatorIndex < len(s.list) && s.list[s.generatorIndex].Loc != loc {
		return nil, fmt.Errorf("taut: generator determinism violation: expected %s (%s:%d), reached %q (%s:%d) instead",
			s.list[s.generatorIndex].Name, s.list[s.generatorIndex].Loc.File, s.list[s.generatorIndex].Loc.Line, name, loc.File, loc.Line)
	}

	var gen *Generator
	if s.generatorIndex == len(s.list) {
		gen = &Generator{Name: name, Loc: loc, NewValueWhenRevisiting: newValueWhenRevisiting, InterruptIfEmpty: interruptIfEmpty, Src: makeSource()}
		s.list = append(s.list, gen)
		s.slotOf[loc] = s.generatorIndex
		s.advance(gen, true)
	} else {
		gen = s.list[s.generatorIndex]
		if newValueWhenRevisiting {
			s.advance(gen, true)
		}
	}
	s.visitedPass[loc] = true
	s.generatorIndex++

	return checkHasValue(gen)
}

func checkHasValue(gen *Generator) (*Generator, error) {
	if !gen.Src.HasValue() {
		if gen.InterruptIfEmpty {
			return gen, errInterruptEmpty{gen}
		}
		return nil, fmt.Errorf("taut: generator %q (%s:%d) produced no values", gen.Name, gen.Loc.File, gen.Loc.Line)
	}
	return gen, nil
}

// errInterruptEmpty signals "convert to InterruptTest", distinguished from
// a hard error so callers can tell the two spec.md "Interrupt-empty"
// outcomes apart.
type errInterruptEmpty struct{ Gen *Generator }

func (e errInterruptEmpty) Error() string {
	return fmt.Sprintf("taut: generator %q is empty (interrupt_test_if_empty set)", e.Gen.Name)
}

// IsInterruptEmpty reports whether err is the "convert to InterruptTest"
// sentinel from Visit.
func IsInterruptEmpty(err error) (*Generator, bool) {
	if e, ok := err.(errInterruptEmpty); ok {
		return e.Gen, true
	}
	return nil, false
}

// advance pulls the next value into gen, consulting its Controller if any.
func (s *Stack) advance(gen *Generator, allowGenerateNothing bool) {
	if gen.GenerateNothing && allowGenerateNothing {
		gen.empty = true
		return
	}
	if gen.Controller == nil {
		gen.Src.GenerateNext()
		gen.NumGenerated++
		return
	}
	for {
		gen.Src.GenerateNext()
		decision, injected := gen.Controller.Advise(gen, gen.Src)
		switch decision {
		case Passthrough:
			gen.NumGenerated++
			return
		case Inject:
			if err := gen.Src.TrySetFromString(injected); err == nil {
				gen.NumCustom++
				return
			}
			// Malformed override value: fall through as if skipped, so a
			// bad `--generate` flag doesn't wedge the whole run.
		case Skip:
			if !gen.Src.HasValue() {
				gen.empty = true
				return
			}
			continue
		case Halt:
			gen.empty = true
			return
		}
		if !gen.Src.HasValue() {
			gen.empty = true
			return
		}
	}
}

// Prune drops exhausted/last-value generators from the tail of the stack
// and advances the new tail, per spec.md §4.F ("Between passes"). It
// returns true when the stack is now empty (the test has no more
// repetitions).
func (s *Stack) Prune() bool {
	for len(s.list) > 0 {
		last := s.list[len(s.list)-1]
		if !last.Src.HasValue() || last.Src.IsLastValue() || last.empty {
			s.list = s.list[:len(s.list)-1]
			continue
		}
		s.advance(last, false)
		break
	}
	s.Reset()
	return len(s.list) == 0
}
