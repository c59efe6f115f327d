package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the tag in the literal tagged union.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a closed sum over the literal kinds of the language: text,
// integer, float, boolean and the absent value (None). The zero Value
// is None.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

func None() Value              { return Value{Kind: KindNone} }
func String(s string) Value    { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func FloatVal(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value        { return Value{Kind: KindBool, Bool: b} }

// IsNone reports whether the value is the absent variant. Consumers must
// check this explicitly rather than defaulting through a zero field.
func (v Value) IsNone() bool { return v.Kind == KindNone }

// Format renders the value the way source literals are written.
func (v Value) Format() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindNone:
		return "None"
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// Quote is Format with string values single-quoted, for tree dumps.
func (v Value) Quote() string {
	if v.Kind == KindString {
		return "'" + v.Str + "'"
	}
	return v.Format()
}
