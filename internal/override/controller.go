package override

import "github.com/taut-go/taut/internal/genstack"

// Store holds every `--generate` program registered for a run and resolves,
// per (testName, generatorName), the Controller that should attach to a
// freshly-constructed Generator (spec.md §4.F, "Overrides from the command
// line").
type Store struct {
	parsed []*Parsed
}

// NewStore builds a Store from the parsed `--generate` flags, in the order
// they were given on the command line.
func NewStore(parsed []*Parsed) *Store { return &Store{parsed: parsed} }

// ControllerFor returns a Controller for generatorName in testName, or nil
// if no registered program's rules apply to it. When more than one
// `--generate` flag matches the same test, the last one registered wins for
// any generator name it mentions (later flags override earlier ones).
func (st *Store) ControllerFor(testName, generatorName string) genstack.Controller {
	var found *GenRule
	for _, p := range st.parsed {
		if !p.TestRegex.MatchString(testName) {
			continue
		}
		for i := range p.Program.Generators {
			if gr := &p.Program.Generators[i]; gr.Name == generatorName {
				found = gr
			}
		}
	}
	if found == nil {
		return nil
	}
	return &controller{rule: found}
}

// ControllerForNested resolves a Controller for generatorName directly
// from an already-activated nested Program (spec.md §4.F, "Rules may
// carry nested override programs in (...), which apply only while that
// rule is producing"). Unlike ControllerFor it does not re-check a
// test-name regex: reaching an active nested program at all already means
// its enclosing rule matched this test and is currently producing, so the
// nested program's own generator rules are scoped to exactly this
// occurrence, nothing more.
func ControllerForNested(prog *Program, generatorName string) genstack.Controller {
	if prog == nil {
		return nil
	}
	for i := range prog.Generators {
		if gr := &prog.Generators[i]; gr.Name == generatorName {
			return &controller{rule: gr}
		}
	}
	return nil
}

// NestedController is implemented by every Controller this package
// produces; it exposes the nested override program activated by
// whichever rule most recently matched, letting a caller scope that
// program to sub-generators reached while the rule is producing.
type NestedController interface {
	genstack.Controller
	Active() *Program
}

// controller implements genstack.Controller over one GenRule. Its index is
// the "instruction pointer" spec.md §4.F says a controller must keep across
// calls: the 1-based count of natural values seen so far at this call
// site, which the index-range rules (`#`, `-#`) select against.
//
// Nested programs (spec.md: "Rules may carry nested override programs in
// (...), which apply only while that rule is producing") are exposed via
// Active so the runner can scope a child Store to sub-generators reached
// while this rule's selector is the one currently satisfied.
type controller struct {
	rule         *GenRule
	index        int
	activeNested *Program
}

func (c *controller) Advise(gen *genstack.Generator, natural genstack.ValueSource) (genstack.Decision, string) {
	c.index++
	idx := c.index

	enabled := c.rule.EnableByDefault
	var inject string
	haveInject := false
	c.activeNested = nil

	for _, r := range c.rule.Rules {
		switch r.Kind {
		case Inject:
			if natural.ValueEqualsFromString(r.Value) {
				enabled = true
			}
			inject, haveInject = r.Value, true
			enabled = true
			if r.Nested != nil {
				c.activeNested = r.Nested
			}
		case RemoveValue:
			if natural.ValueEqualsFromString(r.Value) {
				enabled = false
			}
		case SelectIndex:
			if r.Range.Contains(idx) {
				enabled = true
				if r.Nested != nil {
					c.activeNested = r.Nested
				}
			}
		case DeselectIndex:
			if r.Range.Contains(idx) {
				enabled = false
			}
		}
	}

	if !enabled {
		return genstack.Skip, ""
	}
	if haveInject && !natural.ValueEqualsFromString(inject) {
		return genstack.Inject, inject
	}
	return genstack.Passthrough, ""
}

// Active returns the nested program attached to whichever rule most
// recently matched, or nil. It implements NestedController, which callers
// use to scope a nested program to sub-generators reached while this
// controller's rule is producing.
func (c *controller) Active() *Program { return c.activeNested }
