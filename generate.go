package taut

import (
	"fmt"
	"reflect"

	"github.com/taut-go/taut/internal/genstack"
	"github.com/taut-go/taut/internal/serial"
)

// GenFlag configures a generator call site (spec.md §3, Generator "Flags").
type GenFlag func(*genOpts)

type genOpts struct {
	newValueWhenRevisiting bool
	interruptIfEmpty       bool
	generateNothing        bool
}

// NewValueWhenRevisiting requests a fresh value every time this call site
// is revisited, instead of replaying the stored one.
func NewValueWhenRevisiting() GenFlag { return func(o *genOpts) { o.newValueWhenRevisiting = true } }

// InterruptIfEmpty converts "this generator produced nothing" into an
// InterruptTest throw instead of a hard error.
func InterruptIfEmpty() GenFlag { return func(o *genOpts) { o.interruptIfEmpty = true } }

// GenerateNothing forces the generator to behave as if it were empty,
// regardless of its backing values — used by override rules that disable a
// generator outright.
func GenerateNothing() GenFlag { return func(o *genOpts) { o.generateNothing = true } }

// listSource implements genstack.ValueSource over a fixed value list —
// the backend for Generate and GenerateParam.
type listSource[T any] struct {
	values []T
	idx    int // index of the current value; -1 before the first
	cur    T
}

func (s *listSource[T]) HasValue() bool     { return s.idx >= 0 && s.idx <= len(s.values) }
func (s *listSource[T]) IsLastValue() bool  { return s.idx >= len(s.values)-1 }
func (s *listSource[T]) GenerateNext() {
	s.idx++
	if s.idx >= 0 && s.idx < len(s.values) {
		s.cur = s.values[s.idx]
	}
}
func (s *listSource[T]) ValueToString() string { return serial.ToString(s.cur) }
func (s *listSource[T]) ValueEqualsFromString(str string) bool {
	var v T
	rest := str
	if err := serial.FromString(&v, &rest); err != nil {
		return false
	}
	return reflect.DeepEqual(v, s.cur)
}
func (s *listSource[T]) TrySetFromString(str string) error {
	var v T
	rest := str
	if err := serial.FromString(&v, &rest); err != nil {
		return err
	}
	s.cur = v
	return nil
}

// funcSource implements genstack.ValueSource over a user callback of the
// `(repeat *bool) T` shape — the backend for GenerateFunc.
type funcSource[T any] struct {
	next     func(repeat *bool) T
	cur      T
	done     bool
	started  bool
}

// HasValue is true from the first produced value onward, including the
// final one: "done" means no *further* values are coming, not that the
// current one (returned alongside repeat=false) is unreadable.
func (s *funcSource[T]) HasValue() bool    { return s.started }
func (s *funcSource[T]) IsLastValue() bool { return s.done }
func (s *funcSource[T]) GenerateNext() {
	if s.done {
		return
	}
	repeat := true
	s.cur = s.next(&repeat)
	s.started = true
	if !repeat {
		s.done = true
	}
}
func (s *funcSource[T]) ValueToString() string { return serial.ToString(s.cur) }
func (s *funcSource[T]) ValueEqualsFromString(str string) bool {
	var v T
	rest := str
	if err := serial.FromString(&v, &rest); err != nil {
		return false
	}
	return reflect.DeepEqual(v, s.cur)
}
func (s *funcSource[T]) TrySetFromString(str string) error {
	var v T
	rest := str
	if err := serial.FromString(&v, &rest); err != nil {
		return err
	}
	s.cur = v
	return nil
}

func buildOpts(flags []GenFlag) genOpts {
	var o genOpts
	for _, f := range flags {
		f(&o)
	}
	return o
}

func (t *T) visitGenerator(name string, opts genOpts, makeSrc func() genstack.ValueSource) genstack.ValueSource {
	loc := callerLocation(2)
	gloc := genstack.Loc{File: loc.File, Line: loc.Line}
	gen, err := t.gens.Visit(gloc, name, opts.newValueWhenRevisiting, opts.interruptIfEmpty, makeSrc)
	if g, isEmpty := genstack.IsInterruptEmpty(err); isEmpty {
		_ = g
		panic(InterruptTest)
	} else if err != nil {
		panic(fmt.Errorf("%w", err))
	}
	if opts.generateNothing {
		gen.GenerateNothing = true
	}
	if ctrl := t.findOverride(t.test.Name, name, gloc); ctrl != nil && gen.Controller == nil {
		gen.Controller = ctrl
	}
	return gen.Src
}

// Generate produces one value per visit from a fixed list of values,
// enumerating the Cartesian product across the generators used in one test
// (spec.md §6, GENERATE). The name must be unique among generators reached
// on any single pass.
func Generate[T any](t *T, name string, values ...T) T {
	opts := buildOpts(nil)
	src := t.visitGenerator(name, opts, func() genstack.ValueSource {
		return &listSource[T]{values: values, idx: -1}
	})
	return src.(*listSource[T]).cur
}

// GenerateOpt is Generate with explicit flags.
func GenerateOpt[T any](t *T, name string, values []T, flags ...GenFlag) T {
	opts := buildOpts(flags)
	src := t.visitGenerator(name, opts, func() genstack.ValueSource {
		return &listSource[T]{values: values, idx: -1}
	})
	return src.(*listSource[T]).cur
}

// GenerateFunc produces values from a callback — the GENERATE_FUNC macro.
// next sets *repeat to false to signal its final value.
func GenerateFunc[T any](t *T, name string, next func(repeat *bool) T, flags ...GenFlag) T {
	opts := buildOpts(flags)
	src := t.visitGenerator(name, opts, func() genstack.ValueSource {
		return &funcSource[T]{next: next}
	})
	return src.(*funcSource[T]).cur
}

// GenerateParam is GENERATE_PARAM: in a language without template
// instantiation over the generated value there is no separate code path
// from Generate, so it simply calls Generate with paramSpec as the name;
// nothing marks the generator as parametric for report modules (spec.md,
// "Go realization of the macro surface" table in SPEC_FULL.md §0).
func GenerateParam[T any](t *T, paramSpec string, values ...T) T {
	return Generate(t, paramSpec, values...)
}

// Selector is the builder passed to Select's callback; each Variant call
// registers one mutually exclusive branch.
type Selector struct {
	t          *T
	discovery  bool
	names      []string
	selected   string
	didRun     bool
}

// Variant registers one branch of a SELECT/VARIANT block. During the
// discovery pass the body does not run (so conditionally-reached VARIANTs
// can be recorded without side effects); during the selection pass exactly
// one Variant's body runs.
func (s *Selector) Variant(name string, body func()) {
	if s.discovery {
		s.names = append(s.names, name)
		return
	}
	if s.didRun || name != s.selected {
		return
	}
	s.didRun = true
	body()
}

// Select implements the two-pass SELECT/VARIANT subcase machinery
// (spec.md §4.F, "Variants / subcases"): pass 1 runs cb with no Variant
// executing, just recording which names were reached; pass 2 treats the
// recorded name set as a generator and dispatches into the chosen one.
func Select(t *T, name string, cb func(*Selector)) {
	discover := &Selector{t: t, discovery: true}
	cb(discover)
	if len(discover.names) == 0 {
		panic(fmt.Errorf("taut: SELECT %q declared no VARIANTs", name))
	}
	chosen := Generate(t, name, discover.names...)
	run := &Selector{t: t, discovery: false, selected: chosen}
	cb(run)
}
