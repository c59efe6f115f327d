package lexer

import (
	"fmt"

	"github.com/pulse-lang/pulse/pkg/core/value"
)

// Kind represents the type of token identified by the tokenizer.
type Kind uint8

const (
	KindEOF Kind = iota

	// Literals
	KindIdentifier
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindNone

	// Operators
	KindPlus        // +
	KindMinus       // -
	KindStar        // *
	KindSlash       // /
	KindSlashSlash  // //
	KindPercent     // %
	KindStarStar    // **

	// Comparison
	KindEqual        // ==
	KindNotEqual     // !=
	KindLess         // <
	KindLessEqual    // <=
	KindGreater      // >
	KindGreaterEqual // >=

	// Logical keywords
	KindAnd
	KindOr
	KindNot

	// Assignment
	KindAssign // =

	// Delimiters
	KindLParen   // (
	KindRParen   // )
	KindLBracket // [
	KindRBracket // ]
	KindLBrace   // {
	KindRBrace   // }
	KindComma    // ,
	KindColon    // :
	KindDot      // .

	// Keywords
	KindIf
	KindElif
	KindElse
	KindWhile
	KindFor
	KindIn
	KindDef
	KindClass
	KindReturn
	KindImport
	KindAs
	KindMatch
	KindAsync
	KindAwait

	// Layout
	KindIndent
	KindDedent
	KindNewline

	KindComment
)

var kindNames = map[Kind]string{
	KindEOF:          "EOF",
	KindIdentifier:   "IDENTIFIER",
	KindString:       "STRING",
	KindInteger:      "INTEGER",
	KindFloat:        "FLOAT",
	KindBoolean:      "BOOLEAN",
	KindNone:         "NONE",
	KindPlus:         "PLUS",
	KindMinus:        "MINUS",
	KindStar:         "MULTIPLY",
	KindSlash:        "DIVIDE",
	KindSlashSlash:   "FLOOR_DIVIDE",
	KindPercent:      "MODULO",
	KindStarStar:     "POWER",
	KindEqual:        "EQUAL",
	KindNotEqual:     "NOT_EQUAL",
	KindLess:         "LESS",
	KindLessEqual:    "LESS_EQUAL",
	KindGreater:      "GREATER",
	KindGreaterEqual: "GREATER_EQUAL",
	KindAnd:          "AND",
	KindOr:           "OR",
	KindNot:          "NOT",
	KindAssign:       "ASSIGN",
	KindLParen:       "LPAREN",
	KindRParen:       "RPAREN",
	KindLBracket:     "LBRACKET",
	KindRBracket:     "RBRACKET",
	KindLBrace:       "LBRACE",
	KindRBrace:       "RBRACE",
	KindComma:        "COMMA",
	KindColon:        "COLON",
	KindDot:          "DOT",
	KindIf:           "IF",
	KindElif:         "ELIF",
	KindElse:         "ELSE",
	KindWhile:        "WHILE",
	KindFor:          "FOR",
	KindIn:           "IN",
	KindDef:          "DEF",
	KindClass:        "CLASS",
	KindReturn:       "RETURN",
	KindImport:       "IMPORT",
	KindAs:           "AS",
	KindMatch:        "MATCH",
	KindAsync:        "ASYNC",
	KindAwait:        "AWAIT",
	KindIndent:       "INDENT",
	KindDedent:       "DEDENT",
	KindNewline:      "NEWLINE",
	KindComment:      "COMMENT",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Position is a 1-based line and 0-based column in the source text.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token is one lexical unit. Immutable once produced.
type Token struct {
	Kind    Kind
	Lexeme  string
	Literal value.Value
	Line    int
	Column  int
}

func (t Token) Pos() Position { return Position{Line: t.Line, Column: t.Column} }

// Synthetic reports whether the token has no source text of its own
// (layout tokens and EOF).
func (t Token) Synthetic() bool {
	switch t.Kind {
	case KindIndent, KindDedent, KindNewline, KindEOF:
		return true
	}
	return false
}

// keywords maps reserved identifiers to their token kinds. Built once at
// package init and never mutated; tokenizer instances share it read-only.
var keywords = map[string]Kind{
	"if":     KindIf,
	"elif":   KindElif,
	"else":   KindElse,
	"while":  KindWhile,
	"for":    KindFor,
	"in":     KindIn,
	"def":    KindDef,
	"class":  KindClass,
	"return": KindReturn,
	"import": KindImport,
	"as":     KindAs,
	"match":  KindMatch,
	"async":  KindAsync,
	"await":  KindAwait,
	"and":    KindAnd,
	"or":     KindOr,
	"not":    KindNot,
}
