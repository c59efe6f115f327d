// Package ast defines the syntax tree produced by the parser. The node set
// is closed: every consumer either implements Visitor or type-switches over
// all variants. Nodes own their children exclusively; there are no parent
// pointers and traversal is always top-down.
package ast

import (
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/core/value"
)

// Node represents any node in the syntax tree.
type Node interface {
	Pos() lexer.Position
	Accept(v Visitor)
}

// Expr is a node that yields a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a standalone unit of execution.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is a top-level or class-level declaration.
type Decl interface {
	Node
	declNode()
}

// BinaryOp identifies a binary operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpFloorDiv: "//",
	OpMod: "%", OpPow: "**", OpEq: "==", OpNe: "!=", OpLt: "<",
	OpLe: "<=", OpGt: ">", OpGe: ">=", OpAnd: "and", OpOr: "or",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// UnaryOp identifies a unary prefix operator.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	if op == OpNeg {
		return "-"
	}
	return "not"
}

// Program is the root node.
type Program struct {
	Declarations []Decl
	Statements   []Stmt
}

func (p *Program) Pos() lexer.Position { return lexer.Position{Line: 1} }
func (p *Program) Accept(v Visitor)    { v.VisitProgram(p) }

// Literal is a constant of one of the literal kinds, including None.
type Literal struct {
	Position lexer.Position
	Value    value.Value
}

func (n *Literal) Pos() lexer.Position { return n.Position }
func (n *Literal) Accept(v Visitor)    { v.VisitLiteral(n) }
func (n *Literal) exprNode()           {}

// Identifier is a bare name reference.
type Identifier struct {
	Position lexer.Position
	Name     string
}

func (n *Identifier) Pos() lexer.Position { return n.Position }
func (n *Identifier) Accept(v Visitor)    { v.VisitIdentifier(n) }
func (n *Identifier) exprNode()           {}

// Binary is a binary operator application.
type Binary struct {
	Position lexer.Position
	Op       BinaryOp
	Left     Expr
	Right    Expr
}

func (n *Binary) Pos() lexer.Position { return n.Position }
func (n *Binary) Accept(v Visitor)    { v.VisitBinary(n) }
func (n *Binary) exprNode()           {}

// Unary is a unary prefix operator application.
type Unary struct {
	Position lexer.Position
	Op       UnaryOp
	Operand  Expr
}

func (n *Unary) Pos() lexer.Position { return n.Position }
func (n *Unary) Accept(v Visitor)    { v.VisitUnary(n) }
func (n *Unary) exprNode()           {}

// Call applies a callee to arguments.
type Call struct {
	Position lexer.Position
	Callee   Expr
	Args     []Expr
}

func (n *Call) Pos() lexer.Position { return n.Position }
func (n *Call) Accept(v Visitor)    { v.VisitCall(n) }
func (n *Call) exprNode()           {}

// Attribute is `object.name`.
type Attribute struct {
	Position lexer.Position
	Object   Expr
	Name     string
}

func (n *Attribute) Pos() lexer.Position { return n.Position }
func (n *Attribute) Accept(v Visitor)    { v.VisitAttribute(n) }
func (n *Attribute) exprNode()           {}

// Subscript is `object[index]`.
type Subscript struct {
	Position lexer.Position
	Object   Expr
	Index    Expr
}

func (n *Subscript) Pos() lexer.Position { return n.Position }
func (n *Subscript) Accept(v Visitor)    { v.VisitSubscript(n) }
func (n *Subscript) exprNode()           {}

// List is `[e1, e2, ...]`.
type List struct {
	Position lexer.Position
	Elements []Expr
}

func (n *List) Pos() lexer.Position { return n.Position }
func (n *List) Accept(v Visitor)    { v.VisitList(n) }
func (n *List) exprNode()           {}

// DictPair is one ordered key/value entry of a Dict.
type DictPair struct {
	Key   Expr
	Value Expr
}

// Dict is `{k1: v1, k2: v2, ...}` with pairs in source order.
type Dict struct {
	Position lexer.Position
	Pairs    []DictPair
}

func (n *Dict) Pos() lexer.Position { return n.Position }
func (n *Dict) Accept(v Visitor)    { v.VisitDict(n) }
func (n *Dict) exprNode()           {}

// Tuple is `(e1, e2, ...)`.
type Tuple struct {
	Position lexer.Position
	Elements []Expr
}

func (n *Tuple) Pos() lexer.Position { return n.Position }
func (n *Tuple) Accept(v Visitor)    { v.VisitTuple(n) }
func (n *Tuple) exprNode()           {}

// Assignment is `name = value`.
type Assignment struct {
	Position lexer.Position
	Name     string
	Value    Expr
}

func (n *Assignment) Pos() lexer.Position { return n.Position }
func (n *Assignment) Accept(v Visitor)    { v.VisitAssignment(n) }
func (n *Assignment) stmtNode()           {}

// ExprStmt is a bare expression evaluated for effect.
type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) Pos() lexer.Position { return n.Expr.Pos() }
func (n *ExprStmt) Accept(v Visitor)    { v.VisitExprStmt(n) }
func (n *ExprStmt) stmtNode()           {}

// Return exits the enclosing function; Value may be nil.
type Return struct {
	Position lexer.Position
	Value    Expr
}

func (n *Return) Pos() lexer.Position { return n.Position }
func (n *Return) Accept(v Visitor)    { v.VisitReturn(n) }
func (n *Return) stmtNode()           {}

// IfBranch is one `if`/`elif` arm.
type IfBranch struct {
	Condition Expr
	Body      []Stmt
}

// If holds the ordered if/elif branches and the optional else body.
type If struct {
	Position lexer.Position
	Branches []IfBranch
	Else     []Stmt
}

func (n *If) Pos() lexer.Position { return n.Position }
func (n *If) Accept(v Visitor)    { v.VisitIf(n) }
func (n *If) stmtNode()           {}

// While is a pre-tested loop.
type While struct {
	Position  lexer.Position
	Condition Expr
	Body      []Stmt
}

func (n *While) Pos() lexer.Position { return n.Position }
func (n *While) Accept(v Visitor)    { v.VisitWhile(n) }
func (n *While) stmtNode()           {}

// For is `for name in iterable:`.
type For struct {
	Position lexer.Position
	Var      string
	Iterable Expr
	Body     []Stmt
}

func (n *For) Pos() lexer.Position { return n.Position }
func (n *For) Accept(v Visitor)    { v.VisitFor(n) }
func (n *For) stmtNode()           {}

// MatchCase is one pattern arm of a Match.
type MatchCase struct {
	Pattern Expr
	Body    []Stmt
}

// Match compares a subject against ordered pattern cases.
type Match struct {
	Position lexer.Position
	Subject  Expr
	Cases    []MatchCase
}

func (n *Match) Pos() lexer.Position { return n.Position }
func (n *Match) Accept(v Visitor)    { v.VisitMatch(n) }
func (n *Match) stmtNode()           {}

// FuncDecl is `def name(params):` (or `async def`).
type FuncDecl struct {
	Position lexer.Position
	Name     string
	Params   []string
	Body     []Stmt
	Async    bool
}

func (n *FuncDecl) Pos() lexer.Position { return n.Position }
func (n *FuncDecl) Accept(v Visitor)    { v.VisitFuncDecl(n) }
func (n *FuncDecl) declNode()           {}

// ClassDecl is `class name[(base)]:` with nested member declarations.
type ClassDecl struct {
	Position lexer.Position
	Name     string
	Base     string
	Members  []Decl
}

func (n *ClassDecl) Pos() lexer.Position { return n.Position }
func (n *ClassDecl) Accept(v Visitor)    { v.VisitClassDecl(n) }
func (n *ClassDecl) declNode()           {}

// ImportDecl is `import module [as alias]`.
type ImportDecl struct {
	Position lexer.Position
	Module   string
	Alias    string
}

func (n *ImportDecl) Pos() lexer.Position { return n.Position }
func (n *ImportDecl) Accept(v Visitor)    { v.VisitImportDecl(n) }
func (n *ImportDecl) declNode()           {}

// Visitor handles every node variant; external stages traverse the tree
// either through this interface or an exhaustive type switch.
type Visitor interface {
	VisitProgram(*Program)

	VisitLiteral(*Literal)
	VisitIdentifier(*Identifier)
	VisitBinary(*Binary)
	VisitUnary(*Unary)
	VisitCall(*Call)
	VisitAttribute(*Attribute)
	VisitSubscript(*Subscript)
	VisitList(*List)
	VisitDict(*Dict)
	VisitTuple(*Tuple)

	VisitAssignment(*Assignment)
	VisitExprStmt(*ExprStmt)
	VisitReturn(*Return)
	VisitIf(*If)
	VisitWhile(*While)
	VisitFor(*For)
	VisitMatch(*Match)

	VisitFuncDecl(*FuncDecl)
	VisitClassDecl(*ClassDecl)
	VisitImportDecl(*ImportDecl)
}
