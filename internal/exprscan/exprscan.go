// Package exprscan implements the expression analyzer: a once-per-call-site
// parse of the literal source text of an assertion, locating every marker
// sub-expression and computing the layout metadata the canvas needs to draw
// drop lines and overline brackets.
//
// Go has no preprocessor, so there is no stringified macro argument to work
// with. Instead this package re-reads the source file named by
// runtime.Caller and parses the call expression at that location with
// go/parser — the Go-native analogue of stringification. CounterID is
// assigned in evaluation order, not plain lexical (preorder) order: a
// marker call nested inside another marker's argument expression always
// runs first, since Go must finish evaluating a call's argument —
// including any marker call within it — before the call itself can
// happen (see the Go spec, "Order of evaluation"). Assigning a nested
// marker's CounterID only after walking into it (post-order within each
// marker) makes CounterID match the push order of T's runtime capture
// buffer exactly, with no macro-woven counter needed.
package exprscan

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"sync"
)

// ArgInfo mirrors taut's ArgInfo: everything the renderer needs to know
// about one marker before any value has been captured.
type ArgInfo struct {
	CounterID   int // assigned in evaluation order, 0-based (see package doc)
	Depth       int // marker-nesting depth, not syntactic paren depth
	ExprOffset  int // byte offset of the inner expression, relative to Raw
	ExprSize    int
	IdentOffset int // byte offset of the marker token itself, relative to Raw
	IdentSize   int
	NeedBracket bool
}

// StaticInfo is computed once per call site and cached forever.
type StaticInfo struct {
	Raw          string // the literal source text of the checked expression
	Args         []ArgInfo
	CounterIndex map[int]int // counter id -> index into Args
	DrawOrder    []int       // indices into Args, deepest-first, then ascending ExprOffset, then ascending counter id
}

var cache sync.Map // key: "file:line:col" -> cacheEntry (the info or the error)

type cacheEntry struct {
	info *StaticInfo
	err  error
}

// MarkerNames is the set of identifiers (bare, or as the Sel of a qualified
// selector) recognized as value-capture markers, matching spec.md 4.B's
// {"TA_ARG", "$", plus user-configured synonyms}. Callers extend this slice
// at init time to register synonyms.
var MarkerNames = []string{"Arg"}

// Analyze parses the call expression at file:line:col (as reported by
// runtime.Caller for the assertion macro's call site) and extracts the
// marker layout for its first argument (Check's boolean expression).
func Analyze(file string, line, col int) (*StaticInfo, error) {
	key := fmt.Sprintf("%s:%d:%d", file, line, col)
	if v, ok := cache.Load(key); ok {
		e := v.(cacheEntry)
		return e.info, e.err
	}
	info, err := analyze(file, line, col)
	cache.Store(key, cacheEntry{info, err})
	return info, err
}

func analyze(file string, line, col int) (*StaticInfo, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("exprscan: reading %s: %w", file, err)
	}
	fset := token.NewFileSet()
	// ParseFile in a mode tolerant of a single function body is unnecessary:
	// taut test files are ordinary, complete Go source.
	astFile, err := parser.ParseFile(fset, file, src, parser.ParseComments|parser.AllErrors)
	if err != nil {
		// Assertions are frequently authored mid-edit; fall back to a
		// best-effort partial parse result if the parser produced one.
		if astFile == nil {
			return nil, fmt.Errorf("exprscan: parsing %s: %w", file, err)
		}
	}
	call := findCallAt(fset, astFile, line, col)
	if call == nil {
		return nil, fmt.Errorf("exprscan: no call expression found at %s:%d:%d", file, line, col)
	}
	if len(call.Args) == 0 {
		return nil, fmt.Errorf("exprscan: call at %s:%d:%d has no arguments", file, line, col)
	}
	target := call.Args[0]
	start := fset.Position(target.Pos()).Offset
	end := fset.Position(target.End()).Offset
	raw := string(src[start:end])

	var infos []ArgInfo
	counter := 0
	var walk func(n ast.Node, depth int)
	walk = func(n ast.Node, depth int) {
		if n == nil {
			return
		}
		if ident, inner, ok := matchMarkerCall(n); ok {
			// Recurse into the inner expression first: any marker calls it
			// contains are evaluated — and so must receive lower
			// CounterIDs — before this marker call itself can run, since
			// Go must finish evaluating this call's argument before
			// invoking it. Returning false keeps ast.Inspect's own
			// traversal from also descending into each child, which would
			// otherwise revisit (and double-count) anything walk already
			// explored itself.
			ast.Inspect(inner, func(c ast.Node) bool {
				if c == inner || c == nil {
					return true
				}
				walk(c, depth+1)
				return false
			})

			identPos := fset.Position(ident.Pos()).Offset - start
			identEnd := fset.Position(ident.End()).Offset - start
			exprPos := fset.Position(inner.Pos()).Offset - start
			exprEnd := fset.Position(inner.End()).Offset - start
			infos = append(infos, ArgInfo{
				CounterID:   counter,
				Depth:       depth,
				ExprOffset:  exprPos,
				ExprSize:    exprEnd - exprPos,
				IdentOffset: identPos,
				IdentSize:   identEnd - identPos,
				NeedBracket: needsBracket(inner),
			})
			counter++
			return
		}
		ast.Inspect(n, func(c ast.Node) bool {
			if c == n || c == nil {
				return true
			}
			walk(c, depth)
			return false
		})
	}
	walk(target, 0)

	counterIndex := make(map[int]int, len(infos))
	for i, a := range infos {
		counterIndex[a.CounterID] = i
	}
	drawOrder := make([]int, len(infos))
	for i := range drawOrder {
		drawOrder[i] = i
	}
	sort.Slice(drawOrder, func(i, j int) bool {
		a, b := infos[drawOrder[i]], infos[drawOrder[j]]
		if a.Depth != b.Depth {
			return a.Depth > b.Depth // deepest first
		}
		if a.ExprOffset != b.ExprOffset {
			return a.ExprOffset < b.ExprOffset
		}
		return a.CounterID < b.CounterID
	})

	return &StaticInfo{Raw: raw, Args: infos, CounterIndex: counterIndex, DrawOrder: drawOrder}, nil
}

// findCallAt returns the CallExpr starting on the given line (1-based)
// whose starting column is nearest to col, on either side; on a tie the
// outermost call, reached first, is kept. With the column of 1 that
// callers pass, this is the leftmost call on the line, e.g. `t.Check(`.
func findCallAt(fset *token.FileSet, f *ast.File, line, col int) *ast.CallExpr {
	var best *ast.CallExpr
	var bestDelta = 1 << 30
	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		pos := fset.Position(call.Pos())
		if pos.Line != line {
			return true
		}
		delta := pos.Column - col
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			bestDelta = delta
			best = call
		}
		return true
	})
	return best
}

// matchMarkerCall reports whether n is a call to a registered marker name
// (`Arg(...)`/`pkg.Arg(...)`, including explicit generic instantiation),
// returning the identifier to dim and the inner expression to print.
func matchMarkerCall(n ast.Node) (ident ast.Node, inner ast.Expr, ok bool) {
	call, isCall := n.(*ast.CallExpr)
	if !isCall || len(call.Args) == 0 {
		return nil, nil, false
	}
	fn := call.Fun
	// Unwrap explicit generic instantiation: Arg[int](...)
	switch idx := fn.(type) {
	case *ast.IndexExpr:
		fn = idx.X
	case *ast.IndexListExpr:
		fn = idx.X
	}
	name := ""
	var identNode ast.Node
	switch f := fn.(type) {
	case *ast.Ident:
		name = f.Name
		identNode = f
	case *ast.SelectorExpr:
		name = f.Sel.Name
		identNode = f.Sel
	default:
		return nil, nil, false
	}
	for _, m := range MarkerNames {
		if name == m {
			// The marker's "inner expression" is its last argument (the
			// captured value); earlier arguments are the *T_ handle.
			return identNode, call.Args[len(call.Args)-1], true
		}
	}
	return nil, nil, false
}

// needsBracket is true unless the inner expression is a bare identifier.
func needsBracket(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Ident:
		return false
	case *ast.ParenExpr:
		return needsBracket(v.X)
	default:
		return true
	}
}
