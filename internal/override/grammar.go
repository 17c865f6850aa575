// Package override parses and executes the `--generate` override-program
// grammar (spec.md §6): a test-name regex plus, per matched test, a set of
// per-generator rule lists that inject, remove, or index-select values.
package override

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RuleKind discriminates one rule inside a generator's `{...}` block.
type RuleKind int

const (
	Inject RuleKind = iota
	RemoveValue
	SelectIndex
	DeselectIndex
)

// IndexRange is a 1-based, inclusive index range: `N`, `N..`, `..N`, `N..M`.
type IndexRange struct {
	Lo, Hi       int
	HasLo, HasHi bool
}

// Contains reports whether the 1-based index idx falls in the range.
func (r IndexRange) Contains(idx int) bool {
	if r.HasLo && idx < r.Lo {
		return false
	}
	if r.HasHi && idx > r.Hi {
		return false
	}
	return true
}

// Rule is one `rule` production.
type Rule struct {
	Kind   RuleKind
	Value  string
	Range  IndexRange
	Nested *Program // non-nil only for '=' and '#' rules with a `(...)` suffix
}

// GenRule is one generator's override: its name, whether natural values
// pass through by default, and its rule list.
type GenRule struct {
	Name            string
	EnableByDefault bool
	Rules           []Rule
}

// Program is a full `program` production: a comma-separated list of
// per-generator rule sets.
type Program struct {
	Generators []GenRule
}

// Parsed is one `--generate TEST_REGEX//program` argument.
type Parsed struct {
	TestRegex *regexp.Regexp
	Program   *Program
}

// ParseFlag parses a full `--generate` argument value.
func ParseFlag(arg string) (*Parsed, error) {
	idx := strings.Index(arg, "//")
	if idx < 0 {
		return nil, &ParseError{0, "expected 'TEST_REGEX//program'"}
	}
	reSrc, progSrc := arg[:idx], arg[idx+2:]
	re, err := regexp.Compile(reSrc)
	if err != nil {
		return nil, &ParseError{0, fmt.Sprintf("invalid test regex %q: %v", reSrc, err)}
	}
	p := &parser{s: progSrc}
	prog, err := p.program()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.s != "" {
		return nil, &ParseError{idx + 2 + p.pos, fmt.Sprintf("unexpected trailing input %q", p.s)}
	}
	return &Parsed{TestRegex: re, Program: prog}, nil
}

// ParseError is a caret-annotatable diagnostic (spec.md §7): Offset is a
// byte offset into the original program text.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string { return fmt.Sprintf("at offset %d: %s", e.Offset, e.Msg) }

type parser struct {
	s   string
	pos int
}

func (p *parser) skipSpace() {
	for len(p.s) > 0 && (p.s[0] == ' ' || p.s[0] == '\t') {
		p.advance(1)
	}
}

func (p *parser) advance(n int) {
	p.s = p.s[n:]
	p.pos += n
}

func (p *parser) errf(format string, args ...any) error {
	return &ParseError{p.pos, fmt.Sprintf(format, args...)}
}

// program := generator (',' generator)*  | <empty>
func (p *parser) program() (*Program, error) {
	prog := &Program{}
	p.skipSpace()
	if p.s == "" || strings.HasPrefix(p.s, ")") {
		return prog, nil
	}
	for {
		gr, err := p.generator()
		if err != nil {
			return nil, err
		}
		prog.Generators = append(prog.Generators, *gr)
		p.skipSpace()
		if strings.HasPrefix(p.s, ",") {
			p.advance(1)
			p.skipSpace()
			continue
		}
		break
	}
	return prog, nil
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// generator := NAME ( '{' rule ((',' | '&') rule)* '}' | rule )
func (p *parser) generator() (*GenRule, error) {
	p.skipSpace()
	start := 0
	for start < len(p.s) && isNameChar(p.s[start]) {
		start++
	}
	if start == 0 {
		return nil, p.errf("expected a generator name")
	}
	name := p.s[:start]
	p.advance(start)

	gr := &GenRule{Name: name, EnableByDefault: true}
	if strings.HasPrefix(p.s, "{") {
		p.advance(1)
		first := true
		for {
			p.skipSpace()
			if strings.HasPrefix(p.s, "}") {
				p.advance(1)
				break
			}
			if !first {
				if strings.HasPrefix(p.s, ",") || strings.HasPrefix(p.s, "&") {
					p.advance(1)
				} else {
					return nil, p.errf("expected ',' or '&' or '}'")
				}
			}
			r, err := p.rule()
			if err != nil {
				return nil, err
			}
			gr.Rules = append(gr.Rules, *r)
			first = false
		}
	} else {
		r, err := p.rule()
		if err != nil {
			return nil, err
		}
		gr.Rules = append(gr.Rules, *r)
	}
	applyDefaultFlip(gr)
	return gr, nil
}

// applyDefaultFlip implements spec.md §4.F: enable_by_default is true unless
// the first non-removal rule is a selector (= or #).
func applyDefaultFlip(gr *GenRule) {
	for _, r := range gr.Rules {
		if r.Kind == RemoveValue || r.Kind == DeselectIndex {
			continue
		}
		if r.Kind == Inject || r.Kind == SelectIndex {
			gr.EnableByDefault = false
		}
		return
	}
}

// rule := '=' VALUE nested? | '-=' VALUE | '#' RANGE nested? | '-#' RANGE
func (p *parser) rule() (*Rule, error) {
	switch {
	case strings.HasPrefix(p.s, "-="):
		p.advance(2)
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: RemoveValue, Value: val}, nil
	case strings.HasPrefix(p.s, "-#"):
		p.advance(2)
		rng, err := p.indexRange()
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: DeselectIndex, Range: rng}, nil
	case strings.HasPrefix(p.s, "="):
		p.advance(1)
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		nested, err := p.maybeNested()
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: Inject, Value: val, Nested: nested}, nil
	case strings.HasPrefix(p.s, "#"):
		p.advance(1)
		rng, err := p.indexRange()
		if err != nil {
			return nil, err
		}
		nested, err := p.maybeNested()
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: SelectIndex, Range: rng, Nested: nested}, nil
	default:
		return nil, p.errf("expected a rule ('=', '-=', '#' or '-#')")
	}
}

func (p *parser) maybeNested() (*Program, error) {
	if !strings.HasPrefix(p.s, "(") {
		return nil, nil
	}
	p.advance(1)
	prog, err := p.program()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(p.s, ")") {
		return nil, p.errf("expected ')'")
	}
	p.advance(1)
	return prog, nil
}

// value reads a VALUE token up to the next structural delimiter.
func (p *parser) value() (string, error) {
	end := 0
	depth := 0
	for end < len(p.s) {
		c := p.s[end]
		if depth == 0 && (c == ',' || c == '&' || c == '}' || c == ')') {
			break
		}
		if c == '(' {
			depth++
		}
		if c == ')' {
			if depth == 0 {
				break
			}
			depth--
		}
		end++
	}
	if end == 0 {
		return "", p.errf("expected a value")
	}
	v := p.s[:end]
	p.advance(end)
	return v, nil
}

func (p *parser) indexRange() (IndexRange, error) {
	var r IndexRange
	n1, ok1 := p.number()
	if ok1 {
		r.Lo, r.HasLo = n1, true
	}
	if strings.HasPrefix(p.s, "..") {
		p.advance(2)
		n2, ok2 := p.number()
		if ok2 {
			r.Hi, r.HasHi = n2, true
		}
		if !ok1 && !ok2 {
			return r, p.errf("expected a number on at least one side of '..'")
		}
		return r, nil
	}
	if !ok1 {
		return r, p.errf("expected an index or index range")
	}
	r.Hi, r.HasHi = n1, true // bare `N` selects only N
	return r, nil
}

func (p *parser) number() (int, bool) {
	end := 0
	for end < len(p.s) && p.s[end] >= '0' && p.s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(p.s[:end])
	if err != nil {
		return 0, false
	}
	p.advance(end)
	return n, true
}
