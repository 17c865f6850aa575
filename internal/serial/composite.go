package serial

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Tuple is a heterogeneous fixed-length value printed as `(a, b, c)`,
// including the empty tuple `()`. It is taut's stand-in for structural
// `get<I>` tuples: Go has no variadic-arity tuple type, so callers build one
// explicitly with NewTuple.
type Tuple []any

// NewTuple builds a Tuple from its elements.
func NewTuple(elems ...any) Tuple { return Tuple(elems) }

func (t Tuple) toString() string {
	parts := make([]string, len(t))
	for i, e := range t {
		parts[i] = ToString(e)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TautParse parses `(a, b, c)` (or `()`) back into *t. Go erases Tuple's
// element types (it's just []any), so parsing reuses the concrete type of
// each element already present in *t as a template — the same "parse into
// an existing, already-typed slot" approach structural get<I> tuples use in
// the original, just done through reflection instead of template
// instantiation. Calling TautParse on a Tuple with the wrong element count
// for the input is an error.
func (t *Tuple) TautParse(s *string) error {
	rest := *s
	trimLeadingSpace(&rest)
	if !strings.HasPrefix(rest, "(") {
		return &ParseError{0, "expected '('"}
	}
	rest = rest[1:]
	result := make(Tuple, len(*t))
	for i := range *t {
		rest = strings.TrimLeft(rest, " \t")
		if i > 0 {
			if !strings.HasPrefix(rest, ",") {
				return &ParseError{0, "expected ','"}
			}
			rest = strings.TrimLeft(rest[1:], " \t")
		}
		rv := reflect.New(reflect.TypeOf((*t)[i]))
		if err := fromStringReflect(rv.Elem(), &rest); err != nil {
			return err
		}
		result[i] = rv.Elem().Interface()
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ")") {
		return &ParseError{0, "expected ')'"}
	}
	*t = result
	*s = rest[1:]
	return nil
}

// optional is the internal marker interface implemented by Option[T],
// letting ToString dispatch without needing Option's type parameter.
type optional interface {
	toString() string
	hasValue() bool
}

// Option represents taut's `none` / `optional(x)` value.
type Option[T any] struct {
	Valid bool
	Value T
}

// Some builds a populated Option.
func Some[T any](v T) Option[T] { return Option[T]{Valid: true, Value: v} }

// None builds an empty Option.
func None[T any]() Option[T] { return Option[T]{} }

func (o Option[T]) toString() string {
	if !o.Valid {
		return "none"
	}
	return "optional(" + ToString(o.Value) + ")"
}

func (o Option[T]) hasValue() bool { return o.Valid }

// TautParse parses `none` or `optional(x)` back into *o.
func (o *Option[T]) TautParse(s *string) error {
	rest := *s
	trimLeadingSpace(&rest)
	if strings.HasPrefix(rest, "none") {
		*o = Option[T]{}
		*s = rest[len("none"):]
		return nil
	}
	if strings.HasPrefix(rest, "optional(") {
		rest = rest[len("optional("):]
		var v T
		if err := FromString(&v, &rest); err != nil {
			return err
		}
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, ")") {
			return &ParseError{0, "expected ')' closing optional(...)"}
		}
		*o = Option[T]{Valid: true, Value: v}
		*s = rest[1:]
		return nil
	}
	return &ParseError{0, "expected 'none' or 'optional(...)'"}
}

// Variant is taut's tagged-union print/parse model: a value plus the name of
// its active alternative and, when more than one alternative shares that
// type name, a 1-based index among the same-typed alternatives.
type Variant struct {
	TypeName   string
	IndexAmong int // 0 when unambiguous; 1-based otherwise
	Value      any
	Valueless  bool

	// Alternatives supplies, by type name, a zero value of each possible
	// alternative type so TautParse can reconstruct a typed Value — the
	// variant analogue of Tuple's "parse into an already-typed slot"
	// approach, since a bare `any` carries no type to parse into. Callers
	// that only ever print a Variant (never parse one back) can leave
	// this nil.
	Alternatives map[string]any
}

func (v Variant) toString() string {
	if v.Valueless {
		return "valueless_by_exception"
	}
	tag := v.TypeName
	if v.IndexAmong > 0 {
		tag = fmt.Sprintf("%s#%d", v.TypeName, v.IndexAmong)
	}
	return fmt.Sprintf("(%s)%s", tag, ToString(v.Value))
}

// TautParse parses `(TypeName)value` or `(TypeName#k)value` back into *v,
// rejecting the reserved `valueless_by_exception` token per spec.md 4.A
// ("Options / variants").
func (v *Variant) TautParse(s *string) error {
	rest := *s
	trimLeadingSpace(&rest)
	if strings.HasPrefix(rest, "valueless_by_exception") {
		return &ParseError{0, "valueless_by_exception cannot be parsed back into a value"}
	}
	if !strings.HasPrefix(rest, "(") {
		return &ParseError{0, "expected '(TypeName)' variant tag"}
	}
	rest = rest[1:]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return &ParseError{0, "unterminated variant tag"}
	}
	tag := rest[:end]
	rest = rest[end+1:]

	typeName := tag
	indexAmong := 0
	if i := strings.IndexByte(tag, '#'); i >= 0 {
		typeName = tag[:i]
		n, err := strconv.Atoi(tag[i+1:])
		if err != nil {
			return &ParseError{0, fmt.Sprintf("invalid variant index in %q", tag)}
		}
		indexAmong = n
	}

	example, ok := v.Alternatives[typeName]
	if !ok {
		return &ParseError{0, fmt.Sprintf("unknown variant alternative %q", typeName)}
	}
	rv := reflect.New(reflect.TypeOf(example))
	if err := fromStringReflect(rv.Elem(), &rest); err != nil {
		return err
	}

	v.TypeName = typeName
	v.IndexAmong = indexAmong
	v.Value = rv.Elem().Interface()
	v.Valueless = false
	*s = rest
	return nil
}
