package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pulse-lang/pulse/pkg/core/value"
)

// IndentUnit is the number of spaces per indentation level.
const IndentUnit = 4

// Error is a fatal lexical error with its source position. The tokenizer
// does not recover; the caller must abort the compilation unit.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lexical error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Tokenizer performs indentation-aware lexical analysis on Pulse source.
// Instances share no mutable state; the keyword table is read-only.
type Tokenizer struct {
	source  string
	start   int
	current int
	line    int
	column  int

	startLine   int
	startColumn int

	// indents holds the active indentation levels in units, strictly
	// increasing, base level 0 at the bottom. Level 0 is never popped.
	indents []int

	// pending buffers dedents that are due but not yet delivered, so a
	// multi-level dedent reaches the consumer as distinct tokens.
	pending []Token

	eof bool
}

// New creates a tokenizer for the given source text.
func New(source string) *Tokenizer {
	return &Tokenizer{
		source:  source,
		line:    1,
		indents: []int{0},
	}
}

// Tokenize consumes the whole source and returns the token stream,
// terminated by a single EOF token. The stream is identical to what
// repeated Next calls would produce.
func Tokenize(source string) ([]Token, error) {
	t := New(source)
	var tokens []Token
	for {
		tok, err := t.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == KindEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token from the source.
func (t *Tokenizer) Next() (Token, error) {
	if len(t.pending) > 0 {
		tok := t.pending[0]
		t.pending = t.pending[1:]
		return tok, nil
	}

	t.skipHorizontal()

	if t.isAtEnd() {
		return t.finish(), nil
	}

	t.start = t.current
	t.startLine = t.line
	t.startColumn = t.column

	c := t.advance()

	if c == '\n' {
		return t.handleIndentation()
	}

	if c == '#' {
		for !t.isAtEnd() && t.peek() != '\n' {
			t.advance()
		}
		return t.makeToken(KindComment), nil
	}

	if c == '"' || c == '\'' {
		return t.scanString(c)
	}

	if isDigit(c) {
		return t.scanNumber()
	}

	if isAlpha(c) {
		return t.scanIdentifier(), nil
	}

	switch c {
	case '(':
		return t.makeToken(KindLParen), nil
	case ')':
		return t.makeToken(KindRParen), nil
	case '[':
		return t.makeToken(KindLBracket), nil
	case ']':
		return t.makeToken(KindRBracket), nil
	case '{':
		return t.makeToken(KindLBrace), nil
	case '}':
		return t.makeToken(KindRBrace), nil
	case ',':
		return t.makeToken(KindComma), nil
	case ':':
		return t.makeToken(KindColon), nil
	case '.':
		return t.makeToken(KindDot), nil
	case '+':
		return t.makeToken(KindPlus), nil
	case '-':
		return t.makeToken(KindMinus), nil
	case '%':
		return t.makeToken(KindPercent), nil
	case '*':
		if t.match('*') {
			return t.makeToken(KindStarStar), nil
		}
		return t.makeToken(KindStar), nil
	case '/':
		if t.match('/') {
			return t.makeToken(KindSlashSlash), nil
		}
		return t.makeToken(KindSlash), nil
	case '=':
		if t.match('=') {
			return t.makeToken(KindEqual), nil
		}
		return t.makeToken(KindAssign), nil
	case '!':
		if t.match('=') {
			return t.makeToken(KindNotEqual), nil
		}
	case '<':
		if t.match('=') {
			return t.makeToken(KindLessEqual), nil
		}
		return t.makeToken(KindLess), nil
	case '>':
		if t.match('=') {
			return t.makeToken(KindGreaterEqual), nil
		}
		return t.makeToken(KindGreater), nil
	}

	return Token{}, t.errorf("unexpected character %q", c)
}

// finish closes any open indentation levels, then emits the single EOF.
func (t *Tokenizer) finish() Token {
	if !t.eof {
		for len(t.indents) > 1 {
			t.indents = t.indents[:len(t.indents)-1]
			t.pending = append(t.pending, Token{Kind: KindDedent, Line: t.line, Column: t.column})
		}
		t.eof = true
		if len(t.pending) > 0 {
			tok := t.pending[0]
			t.pending = t.pending[1:]
			return tok
		}
	}
	return Token{Kind: KindEOF, Line: t.line, Column: t.column}
}

// handleIndentation runs after a newline: it measures the next line's
// leading spaces and emits INDENT, one or more DEDENTs, or a NEWLINE.
// Blank and comment-only lines never touch the indentation stack.
func (t *Tokenizer) handleIndentation() (Token, error) {
	spaces := 0
	i := t.current
	for i < len(t.source) && t.source[i] == ' ' {
		spaces++
		i++
	}

	if i < len(t.source) && t.source[i] == '\t' {
		return Token{}, &Error{Line: t.line, Column: spaces, Msg: "tab indentation is not allowed"}
	}

	// A line with no code keeps the current block open.
	if i >= len(t.source) || t.source[i] == '\n' || t.source[i] == '\r' || t.source[i] == '#' {
		return t.layoutToken(KindNewline), nil
	}

	if spaces%IndentUnit != 0 {
		return Token{}, &Error{Line: t.line, Column: spaces, Msg: fmt.Sprintf("invalid indentation: %d spaces is not a multiple of %d", spaces, IndentUnit)}
	}
	level := spaces / IndentUnit

	top := t.indents[len(t.indents)-1]
	switch {
	case level > top:
		t.indents = append(t.indents, level)
		return t.layoutToken(KindIndent), nil
	case level < top:
		first := t.layoutToken(KindDedent)
		t.indents = t.indents[:len(t.indents)-1]
		for t.indents[len(t.indents)-1] > level {
			t.indents = t.indents[:len(t.indents)-1]
			t.pending = append(t.pending, t.layoutToken(KindDedent))
		}
		if t.indents[len(t.indents)-1] != level {
			return Token{}, &Error{Line: t.line, Column: spaces, Msg: "invalid indentation: dedent does not match any outer level"}
		}
		return first, nil
	default:
		return t.layoutToken(KindNewline), nil
	}
}

func (t *Tokenizer) layoutToken(kind Kind) Token {
	return Token{Kind: kind, Line: t.line, Column: t.column}
}

func (t *Tokenizer) scanString(quote byte) (Token, error) {
	for !t.isAtEnd() && t.peek() != quote {
		if t.peek() == '\\' {
			t.advance()
			if t.isAtEnd() {
				break
			}
		}
		t.advance()
	}

	if t.isAtEnd() {
		return Token{}, &Error{Line: t.startLine, Column: t.startColumn, Msg: "unterminated string"}
	}
	t.advance() // closing quote

	raw := t.source[t.start+1 : t.current-1]
	return t.literalToken(KindString, value.String(unescape(raw))), nil
}

func (t *Tokenizer) scanNumber() (Token, error) {
	for !t.isAtEnd() && isDigit(t.peek()) {
		t.advance()
	}

	if !t.isAtEnd() && t.peek() == '.' && isDigit(t.peekNext()) {
		t.advance() // '.'
		for !t.isAtEnd() && isDigit(t.peek()) {
			t.advance()
		}
		f, err := strconv.ParseFloat(t.source[t.start:t.current], 64)
		if err != nil {
			return Token{}, t.errorf("invalid float literal %q", t.source[t.start:t.current])
		}
		return t.literalToken(KindFloat, value.FloatVal(f)), nil
	}

	n, err := strconv.ParseInt(t.source[t.start:t.current], 10, 64)
	if err != nil {
		return Token{}, t.errorf("invalid integer literal %q", t.source[t.start:t.current])
	}
	return t.literalToken(KindInteger, value.Int(n)), nil
}

func (t *Tokenizer) scanIdentifier() Token {
	for !t.isAtEnd() && (isAlpha(t.peek()) || isDigit(t.peek())) {
		t.advance()
	}

	text := t.source[t.start:t.current]

	if kind, ok := keywords[text]; ok {
		return t.makeToken(kind)
	}

	switch text {
	case "True":
		return t.literalToken(KindBoolean, value.Bool(true))
	case "False":
		return t.literalToken(KindBoolean, value.Bool(false))
	case "None":
		return t.literalToken(KindNone, value.None())
	}

	return t.makeToken(KindIdentifier)
}

func (t *Tokenizer) makeToken(kind Kind) Token {
	return Token{
		Kind:   kind,
		Lexeme: t.source[t.start:t.current],
		Line:   t.startLine,
		Column: t.startColumn,
	}
}

func (t *Tokenizer) literalToken(kind Kind, v value.Value) Token {
	tok := t.makeToken(kind)
	tok.Literal = v
	return tok
}

func (t *Tokenizer) errorf(format string, args ...any) error {
	return &Error{Line: t.startLine, Column: t.startColumn, Msg: fmt.Sprintf(format, args...)}
}

func (t *Tokenizer) skipHorizontal() {
	for !t.isAtEnd() {
		switch t.peek() {
		case ' ', '\t', '\r':
			t.advance()
		default:
			return
		}
	}
}

func (t *Tokenizer) isAtEnd() bool { return t.current >= len(t.source) }

func (t *Tokenizer) advance() byte {
	c := t.source[t.current]
	t.current++
	if c == '\n' {
		t.line++
		t.column = 0
	} else {
		t.column++
	}
	return c
}

func (t *Tokenizer) peek() byte {
	if t.isAtEnd() {
		return 0
	}
	return t.source[t.current]
}

func (t *Tokenizer) peekNext() byte {
	if t.current+1 >= len(t.source) {
		return 0
	}
	return t.source[t.current+1]
}

func (t *Tokenizer) match(expected byte) bool {
	if t.isAtEnd() || t.source[t.current] != expected {
		return false
	}
	t.current++
	t.column++
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

var unescaper = strings.NewReplacer(
	`\"`, `"`,
	`\'`, `'`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\\`, `\`,
)

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return unescaper.Replace(s)
}
