package taut

import (
	"github.com/taut-go/taut/internal/genstack"
	"github.com/taut-go/taut/internal/override"
)

// findOverride resolves the Controller (if any) for a generator call site,
// consulting the run's override Store (populated from `--generate` flags).
// A nested override program activated by an enclosing generator's rule
// (spec.md §4.F, "Rules may carry nested override programs in (...),
// which apply only while that rule is producing") takes priority over the
// top-level store for whichever generator names it mentions.
func (t *T) findOverride(testName, genName string, loc genstack.Loc) genstack.Controller {
	if ctrl := t.findNestedOverride(genName); ctrl != nil {
		return ctrl
	}
	if t.run.overrides == nil {
		return nil
	}
	return t.run.overrides.ControllerFor(testName, genName)
}

// findNestedOverride looks, innermost first, through the generators
// already reached this pass for one whose controller currently has an
// active nested program — i.e. one whose selecting rule is producing
// right now — and resolves genName against it if that program names it.
// Reaching an active nested program at all already implies its enclosing
// rule matched testName, so no regex re-check is needed here.
func (t *T) findNestedOverride(genName string) genstack.Controller {
	visited := t.gens.VisitedThisPass()
	for i := len(visited) - 1; i >= 0; i-- {
		nc, ok := visited[i].Controller.(override.NestedController)
		if !ok {
			continue
		}
		if ctrl := override.ControllerForNested(nc.Active(), genName); ctrl != nil {
			return ctrl
		}
	}
	return nil
}

// parseGenerateFlags parses every `--generate` argument into an
// override.Store, returning the first parse error encountered (spec.md §7:
// parsing errors are reported with a caret-annotated diagnostic and exit
// code 2 — the caret annotation itself is cmd/taut's job, since it owns the
// terminal).
func parseGenerateFlags(args []string) (*override.Store, error) {
	parsed := make([]*override.Parsed, 0, len(args))
	for _, a := range args {
		p, err := override.ParseFlag(a)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	return override.NewStore(parsed), nil
}
