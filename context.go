package taut

import (
	"fmt"

	"github.com/taut-go/taut/internal/ctxstack"
)

// FrameKind is the discriminant of a context-stack frame (spec.md §3,
// "Context frame").
type FrameKind int

const (
	FrameAssertion FrameKind = iota
	FrameExceptionExpectation
	FrameCaughtExceptionCursor
	FrameUserTrace
	FrameLogSourceLoc
)

// ContextFrame is one entry on T's context stack.
type ContextFrame struct {
	Kind FrameKind
	Loc  Location
	Text string

	id    int
	guard *ctxstack.Guard
}

// FrameGuard pops its frame when Close is called; callers `defer`
// immediately after the push that produced it.
type FrameGuard struct {
	guard *ctxstack.Guard
}

// Close pops this guard's frame, panicking (spec.md §7 kind 3, a hard
// "user misuse" error) if it isn't currently the top of the stack.
func (g *FrameGuard) Close() {
	if g == nil || g.guard == nil {
		return
	}
	g.guard.Close()
}

// pushFrame pushes frame onto t's context stack, deduplicating by pointer
// identity of frame itself — callers that want dedup semantics (e.g. the
// exception-expectation engine pushing the same cursor frame from nested
// structural checks) must pass the same *ContextFrame pointer each time.
func (t *T) pushFrame(f *ContextFrame) *FrameGuard {
	g := t.ctxStack.Push(f)
	f.guard = g
	return &FrameGuard{guard: g}
}

// Context pushes a scoped, eagerly-formatted trace entry visible in any
// failure printed while it's on the stack — the CONTEXT macro.
func (t *T) Context(format string, args ...any) *FrameGuard {
	loc := callerLocation(1)
	f := &ContextFrame{Kind: FrameUserTrace, Loc: loc, Text: fmt.Sprintf(format, args...), id: t.nextLogID()}
	return t.pushFrame(f)
}

// ContextLazy pushes a scoped trace entry whose text is produced by thunk,
// re-invoked every time it's printed (never cached) — the CONTEXT_LAZY
// macro. thunk must be safely re-invocable (Fn, not FnOnce).
func (t *T) ContextLazy(thunk func() string) *FrameGuard {
	loc := callerLocation(1)
	f := &ContextFrame{Kind: FrameUserTrace, Loc: loc, id: t.nextLogID()}
	f.Text = "" // rendered on demand via lazyText, set below
	t.lazyTexts[f] = thunk
	return t.pushFrame(f)
}

func (f *ContextFrame) render(t *T) string {
	if thunk, ok := t.lazyTexts[f]; ok {
		return safeLazyCall(thunk)
	}
	return f.Text
}

// safeLazyCall implements spec.md §9's documented, deliberate behavior: if a
// lazy message/log callable itself panics, the framework substitutes a
// fixed placeholder rather than surfacing the nested panic.
func safeLazyCall(thunk func() string) (s string) {
	defer func() {
		if recover() != nil {
			s = "[uncaught exception while evaluating the message]"
		}
	}()
	return thunk()
}

// logEntry is one entry in T's append-only log (spec.md §3/§4.E).
type logEntry struct {
	id      int
	loc     Location
	eager   string
	lazy    func() string
	isLazy  bool
}

// Log appends an eagerly-formatted log entry — the LOG macro.
func (t *T) Log(format string, args ...any) {
	loc := callerLocation(1)
	t.logEntries = append(t.logEntries, logEntry{
		id: t.nextLogID(), loc: loc, eager: fmt.Sprintf(format, args...),
	})
}

func (e logEntry) render() string {
	if e.isLazy {
		return safeLazyCall(e.lazy)
	}
	return e.eager
}

// nextLogID draws from the single counter shared by log entries and scoped
// context pushes, so that on print they merge into one chronological
// stream (spec.md §4.E, "Log").
func (t *T) nextLogID() int {
	t.logIDCounter++
	return t.logIDCounter
}

// renderedStream is one line of the chronologically-merged log/context
// stream, used by the default report printer.
type renderedStream struct {
	id   int
	text string
	loc  Location
}

// chronologicalStream merges t's log entries with whatever context frames
// are currently on the stack, in ascending id order.
func (t *T) chronologicalStream() []renderedStream {
	var out []renderedStream
	for _, e := range t.logEntries {
		out = append(out, renderedStream{id: e.id, text: e.render(), loc: e.loc})
	}
	for _, fr := range t.ctxStack.Frames() {
		f := fr.(*ContextFrame)
		if f.Kind != FrameUserTrace {
			continue
		}
		out = append(out, renderedStream{id: f.id, text: f.render(t), loc: f.Loc})
	}
	sortByID(out)
	return out
}

func sortByID(s []renderedStream) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].id > s[j].id; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
