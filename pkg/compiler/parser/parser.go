// Package parser turns a token stream into a syntax tree. The grammar is
// recursive descent with one rule per precedence level; blocks are
// recovered purely from INDENT/DEDENT tokens.
package parser

import (
	"fmt"

	"github.com/pulse-lang/pulse/pkg/compiler/ast"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
)

// Diagnostic is one positioned syntax error.
type Diagnostic struct {
	Line   int
	Column int
	Msg    string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", d.Line, d.Column, d.Msg)
}

// ErrorList aggregates the diagnostics of one parse. A parse that reports
// any diagnostic yields no program.
type ErrorList []Diagnostic

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no syntax errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
	}
}

// Parser holds the current-token cursor over a fully tokenized unit.
type Parser struct {
	tokens  []lexer.Token
	current int
	diags   ErrorList
}

// New creates a parser for the token stream. COMMENT tokens are filtered
// here so the grammar never sees them.
func New(tokens []lexer.Token) *Parser {
	filtered := make([]lexer.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind != lexer.KindComment {
			filtered = append(filtered, tok)
		}
	}
	return &Parser{tokens: filtered}
}

// Parse is a convenience wrapper over New and Parser.Parse.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	return New(tokens).Parse()
}

// Parse consumes the stream and returns the program root. On syntax
// errors the parser synchronizes to the next statement boundary and keeps
// going, so the returned ErrorList may carry several diagnostics; the
// program is nil whenever the list is non-empty.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}

	for !p.isAtEnd() {
		if p.skipLayout() {
			continue
		}

		if p.checkDeclStart() {
			decl, err := p.declaration()
			if err != nil {
				p.report(err)
				p.synchronize()
				continue
			}
			prog.Declarations = append(prog.Declarations, decl)
			continue
		}

		stmt, err := p.statement()
		if err != nil {
			p.report(err)
			p.synchronize()
			continue
		}
		prog.Statements = append(prog.Statements, stmt)
	}

	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// skipLayout consumes a single layout token at the top level of a program
// or block. INDENT/DEDENT noise between declarations is transparent here.
func (p *Parser) skipLayout() bool {
	switch p.peek().Kind {
	case lexer.KindNewline, lexer.KindIndent, lexer.KindDedent:
		p.advance()
		return true
	}
	return false
}

func (p *Parser) checkDeclStart() bool {
	switch p.peek().Kind {
	case lexer.KindImport, lexer.KindDef, lexer.KindClass:
		return true
	case lexer.KindAsync:
		return p.peekNext().Kind == lexer.KindDef
	}
	return false
}

func (p *Parser) declaration() (ast.Decl, error) {
	switch {
	case p.match(lexer.KindImport):
		return p.importDecl()
	case p.match(lexer.KindAsync):
		if _, err := p.consume(lexer.KindDef, "expect 'def' after 'async'"); err != nil {
			return nil, err
		}
		return p.funcDecl(true)
	case p.match(lexer.KindDef):
		return p.funcDecl(false)
	case p.match(lexer.KindClass):
		return p.classDecl()
	}
	return nil, p.errorAt(p.peek(), "expect declaration")
}

func (p *Parser) importDecl() (ast.Decl, error) {
	pos := p.previous().Pos()
	name, err := p.consume(lexer.KindIdentifier, "expect module name after 'import'")
	if err != nil {
		return nil, err
	}

	alias := ""
	if p.match(lexer.KindAs) {
		aliasTok, err := p.consume(lexer.KindIdentifier, "expect alias name after 'as'")
		if err != nil {
			return nil, err
		}
		alias = aliasTok.Lexeme
	}

	p.endSimpleStmt()
	return &ast.ImportDecl{Position: pos, Module: name.Lexeme, Alias: alias}, nil
}

func (p *Parser) funcDecl(async bool) (ast.Decl, error) {
	pos := p.previous().Pos()
	name, err := p.consume(lexer.KindIdentifier, "expect function name")
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.KindLParen, "expect '(' after function name"); err != nil {
		return nil, err
	}

	var params []string
	if !p.check(lexer.KindRParen) {
		for {
			param, err := p.consume(lexer.KindIdentifier, "expect parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param.Lexeme)
			if !p.match(lexer.KindComma) {
				break
			}
		}
	}

	if _, err := p.consume(lexer.KindRParen, "expect ')' after parameters"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindColon, "expect ':' after function parameters"); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.FuncDecl{Position: pos, Name: name.Lexeme, Params: params, Body: body, Async: async}, nil
}

func (p *Parser) classDecl() (ast.Decl, error) {
	pos := p.previous().Pos()
	name, err := p.consume(lexer.KindIdentifier, "expect class name")
	if err != nil {
		return nil, err
	}

	base := ""
	if p.match(lexer.KindLParen) {
		baseTok, err := p.consume(lexer.KindIdentifier, "expect base class name")
		if err != nil {
			return nil, err
		}
		base = baseTok.Lexeme
		if _, err := p.consume(lexer.KindRParen, "expect ')' after base class"); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(lexer.KindColon, "expect ':' after class declaration"); err != nil {
		return nil, err
	}

	if err := p.enterBlock(); err != nil {
		return nil, err
	}

	var members []ast.Decl
	for !p.isAtEnd() && !p.check(lexer.KindDedent) {
		if p.match(lexer.KindNewline) {
			continue
		}
		member, err := p.declaration()
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	p.match(lexer.KindDedent)

	return &ast.ClassDecl{Position: pos, Name: name.Lexeme, Base: base, Members: members}, nil
}

func (p *Parser) statement() (ast.Stmt, error) {
	switch {
	case p.match(lexer.KindIf):
		return p.ifStatement()
	case p.match(lexer.KindWhile):
		return p.whileStatement()
	case p.match(lexer.KindFor):
		return p.forStatement()
	case p.match(lexer.KindMatch):
		return p.matchStatement()
	case p.match(lexer.KindReturn):
		return p.returnStatement()
	}

	// One-token lookahead: `identifier =` starts an assignment, anything
	// else is a bare expression statement.
	if p.check(lexer.KindIdentifier) && p.peekNext().Kind == lexer.KindAssign {
		return p.assignmentStatement()
	}

	return p.expressionStatement()
}

func (p *Parser) ifStatement() (ast.Stmt, error) {
	pos := p.previous().Pos()

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindColon, "expect ':' after if condition"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	branches := []ast.IfBranch{{Condition: cond, Body: body}}

	for p.match(lexer.KindElif) {
		elifCond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.KindColon, "expect ':' after elif condition"); err != nil {
			return nil, err
		}
		elifBody, err := p.block()
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.IfBranch{Condition: elifCond, Body: elifBody})
	}

	var elseBody []ast.Stmt
	if p.match(lexer.KindElse) {
		if _, err := p.consume(lexer.KindColon, "expect ':' after else"); err != nil {
			return nil, err
		}
		elseBody, err = p.block()
		if err != nil {
			return nil, err
		}
	}

	return &ast.If{Position: pos, Branches: branches, Else: elseBody}, nil
}

func (p *Parser) whileStatement() (ast.Stmt, error) {
	pos := p.previous().Pos()

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindColon, "expect ':' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.While{Position: pos, Condition: cond, Body: body}, nil
}

func (p *Parser) forStatement() (ast.Stmt, error) {
	pos := p.previous().Pos()

	name, err := p.consume(lexer.KindIdentifier, "expect variable name after 'for'")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindIn, "expect 'in' after variable name"); err != nil {
		return nil, err
	}
	iterable, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindColon, "expect ':' after iterable"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.For{Position: pos, Var: name.Lexeme, Iterable: iterable, Body: body}, nil
}

func (p *Parser) matchStatement() (ast.Stmt, error) {
	pos := p.previous().Pos()

	subject, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.KindColon, "expect ':' after match subject"); err != nil {
		return nil, err
	}

	if err := p.enterBlock(); err != nil {
		return nil, err
	}

	var cases []ast.MatchCase
	for !p.isAtEnd() && !p.check(lexer.KindDedent) {
		if p.match(lexer.KindNewline) {
			continue
		}
		pattern, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(lexer.KindColon, "expect ':' after pattern"); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		cases = append(cases, ast.MatchCase{Pattern: pattern, Body: body})
	}
	p.match(lexer.KindDedent)

	if len(cases) == 0 {
		return nil, Diagnostic{Line: pos.Line, Column: pos.Column, Msg: "match statement has no cases"}
	}

	return &ast.Match{Position: pos, Subject: subject, Cases: cases}, nil
}

func (p *Parser) returnStatement() (ast.Stmt, error) {
	pos := p.previous().Pos()

	var val ast.Expr
	if !p.check(lexer.KindNewline) && !p.check(lexer.KindDedent) && !p.isAtEnd() {
		var err error
		val, err = p.expression()
		if err != nil {
			return nil, err
		}
	}

	p.endSimpleStmt()
	return &ast.Return{Position: pos, Value: val}, nil
}

func (p *Parser) assignmentStatement() (ast.Stmt, error) {
	name := p.advance()
	p.advance() // '='

	val, err := p.expression()
	if err != nil {
		return nil, err
	}

	p.endSimpleStmt()
	return &ast.Assignment{Position: name.Pos(), Name: name.Lexeme, Value: val}, nil
}

func (p *Parser) expressionStatement() (ast.Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	p.endSimpleStmt()
	return &ast.ExprStmt{Expr: expr}, nil
}

// endSimpleStmt consumes the trailing NEWLINE of a simple statement, if
// present. DEDENT and EOF also terminate statements and stay in place for
// the enclosing block.
func (p *Parser) endSimpleStmt() {
	p.match(lexer.KindNewline)
}

// enterBlock expects the layout prologue of a suite: a NEWLINE run
// followed by INDENT.
func (p *Parser) enterBlock() error {
	for p.match(lexer.KindNewline) {
	}
	if _, err := p.consume(lexer.KindIndent, "expect indented block"); err != nil {
		return err
	}
	return nil
}

// block parses the statements between an INDENT and its matching DEDENT.
func (p *Parser) block() ([]ast.Stmt, error) {
	if err := p.enterBlock(); err != nil {
		return nil, err
	}

	var stmts []ast.Stmt
	for !p.isAtEnd() && !p.check(lexer.KindDedent) {
		if p.match(lexer.KindNewline) {
			continue
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	p.match(lexer.KindDedent)

	return stmts, nil
}

// Expression grammar, lowest to highest precedence. Each rule handles one
// level and calls the next-higher rule for its operands.

func (p *Parser) expression() (ast.Expr, error) {
	return p.logicalOr()
}

func (p *Parser) logicalOr() (ast.Expr, error) {
	expr, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}

	for p.match(lexer.KindOr) {
		pos := p.previous().Pos()
		right, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: ast.OpOr, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) logicalAnd() (ast.Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}

	for p.match(lexer.KindAnd) {
		pos := p.previous().Pos()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: ast.OpAnd, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (ast.Expr, error) {
	expr, err := p.comparison()
	if err != nil {
		return nil, err
	}

	for p.check(lexer.KindEqual) || p.check(lexer.KindNotEqual) {
		op := ast.OpEq
		if p.advance().Kind == lexer.KindNotEqual {
			op = ast.OpNe
		}
		pos := p.previous().Pos()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) comparison() (ast.Expr, error) {
	expr, err := p.additive()
	if err != nil {
		return nil, err
	}

	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case lexer.KindLess:
			op = ast.OpLt
		case lexer.KindLessEqual:
			op = ast.OpLe
		case lexer.KindGreater:
			op = ast.OpGt
		case lexer.KindGreaterEqual:
			op = ast.OpGe
		default:
			return expr, nil
		}
		pos := p.advance().Pos()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: op, Left: expr, Right: right}
	}
}

func (p *Parser) additive() (ast.Expr, error) {
	expr, err := p.multiplicative()
	if err != nil {
		return nil, err
	}

	for p.check(lexer.KindPlus) || p.check(lexer.KindMinus) {
		op := ast.OpAdd
		if p.advance().Kind == lexer.KindMinus {
			op = ast.OpSub
		}
		pos := p.previous().Pos()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) multiplicative() (ast.Expr, error) {
	expr, err := p.power()
	if err != nil {
		return nil, err
	}

	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case lexer.KindStar:
			op = ast.OpMul
		case lexer.KindSlash:
			op = ast.OpDiv
		case lexer.KindSlashSlash:
			op = ast.OpFloorDiv
		case lexer.KindPercent:
			op = ast.OpMod
		default:
			return expr, nil
		}
		pos := p.advance().Pos()
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: op, Left: expr, Right: right}
	}
}

// power is right-associative: 2 ** 3 ** 2 is 2 ** (3 ** 2).
func (p *Parser) power() (ast.Expr, error) {
	expr, err := p.unary()
	if err != nil {
		return nil, err
	}

	if p.match(lexer.KindStarStar) {
		pos := p.previous().Pos()
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Position: pos, Op: ast.OpPow, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) unary() (ast.Expr, error) {
	if p.check(lexer.KindMinus) || p.check(lexer.KindNot) {
		tok := p.advance()
		op := ast.OpNeg
		if tok.Kind == lexer.KindNot {
			op = ast.OpNot
		}
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Position: tok.Pos(), Op: op, Operand: operand}, nil
	}
	return p.postfix()
}

// postfix parses the call/attribute/subscript chain.
func (p *Parser) postfix() (ast.Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(lexer.KindLParen):
			expr, err = p.finishCall(expr)
			if err != nil {
				return nil, err
			}
		case p.match(lexer.KindDot):
			name, err := p.consume(lexer.KindIdentifier, "expect property name after '.'")
			if err != nil {
				return nil, err
			}
			expr = &ast.Attribute{Position: name.Pos(), Object: expr, Name: name.Lexeme}
		case p.match(lexer.KindLBracket):
			pos := p.previous().Pos()
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.KindRBracket, "expect ']' after index"); err != nil {
				return nil, err
			}
			expr = &ast.Subscript{Position: pos, Object: expr, Index: index}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) (ast.Expr, error) {
	pos := p.previous().Pos()

	var args []ast.Expr
	if !p.check(lexer.KindRParen) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.KindComma) {
				break
			}
		}
	}

	if _, err := p.consume(lexer.KindRParen, "expect ')' after arguments"); err != nil {
		return nil, err
	}
	return &ast.Call{Position: pos, Callee: callee, Args: args}, nil
}

func (p *Parser) primary() (ast.Expr, error) {
	tok := p.peek()

	switch tok.Kind {
	case lexer.KindInteger, lexer.KindFloat, lexer.KindString, lexer.KindBoolean, lexer.KindNone:
		p.advance()
		return &ast.Literal{Position: tok.Pos(), Value: tok.Literal}, nil

	case lexer.KindIdentifier:
		p.advance()
		return &ast.Identifier{Position: tok.Pos(), Name: tok.Lexeme}, nil

	case lexer.KindLParen:
		p.advance()
		return p.groupOrTuple(tok.Pos())

	case lexer.KindLBracket:
		p.advance()
		return p.listExpression(tok.Pos())

	case lexer.KindLBrace:
		p.advance()
		return p.dictExpression(tok.Pos())
	}

	return nil, p.errorAt(tok, "expect expression")
}

// groupOrTuple disambiguates a parenthesized expression from a tuple by
// the presence of a comma.
func (p *Parser) groupOrTuple(pos lexer.Position) (ast.Expr, error) {
	if p.match(lexer.KindRParen) {
		return &ast.Tuple{Position: pos}, nil
	}

	first, err := p.expression()
	if err != nil {
		return nil, err
	}

	if !p.match(lexer.KindComma) {
		if _, err := p.consume(lexer.KindRParen, "expect ')' after expression"); err != nil {
			return nil, err
		}
		return first, nil
	}

	elements := []ast.Expr{first}
	if !p.check(lexer.KindRParen) {
		for {
			el, err := p.expression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
			if !p.match(lexer.KindComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.KindRParen, "expect ')' after tuple elements"); err != nil {
		return nil, err
	}
	return &ast.Tuple{Position: pos, Elements: elements}, nil
}

func (p *Parser) listExpression(pos lexer.Position) (ast.Expr, error) {
	var elements []ast.Expr
	if !p.check(lexer.KindRBracket) {
		for {
			el, err := p.expression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
			if !p.match(lexer.KindComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.KindRBracket, "expect ']' after list elements"); err != nil {
		return nil, err
	}
	return &ast.List{Position: pos, Elements: elements}, nil
}

func (p *Parser) dictExpression(pos lexer.Position) (ast.Expr, error) {
	var pairs []ast.DictPair
	if !p.check(lexer.KindRBrace) {
		for {
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.KindColon, "expect ':' after key"); err != nil {
				return nil, err
			}
			val, err := p.expression()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ast.DictPair{Key: key, Value: val})
			if !p.match(lexer.KindComma) {
				break
			}
		}
	}
	if _, err := p.consume(lexer.KindRBrace, "expect '}' after dictionary pairs"); err != nil {
		return nil, err
	}
	return &ast.Dict{Position: pos, Pairs: pairs}, nil
}

// Cursor primitives.

func (p *Parser) isAtEnd() bool { return p.peek().Kind == lexer.KindEOF }

func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) peekNext() lexer.Token {
	if p.current+1 >= len(p.tokens) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.tokens[p.current+1]
}

func (p *Parser) previous() lexer.Token { return p.tokens[p.current-1] }

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) check(kind lexer.Kind) bool { return p.peek().Kind == kind }

func (p *Parser) match(kind lexer.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(kind lexer.Kind, msg string) (lexer.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAt(p.peek(), msg)
}

func (p *Parser) errorAt(tok lexer.Token, msg string) error {
	return Diagnostic{Line: tok.Line, Column: tok.Column, Msg: msg}
}

func (p *Parser) report(err error) {
	if d, ok := err.(Diagnostic); ok {
		p.diags = append(p.diags, d)
		return
	}
	tok := p.peek()
	p.diags = append(p.diags, Diagnostic{Line: tok.Line, Column: tok.Column, Msg: err.Error()})
}

// synchronize discards tokens until the next statement boundary so one
// bad statement does not cascade into spurious diagnostics.
func (p *Parser) synchronize() {
	p.advance()

	for !p.isAtEnd() {
		if p.previous().Kind == lexer.KindNewline {
			return
		}
		switch p.peek().Kind {
		case lexer.KindClass, lexer.KindDef, lexer.KindImport,
			lexer.KindIf, lexer.KindWhile, lexer.KindFor,
			lexer.KindMatch, lexer.KindReturn:
			return
		}
		p.advance()
	}
}
