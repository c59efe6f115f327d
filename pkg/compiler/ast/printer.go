package ast

import (
	"fmt"
	"io"
	"strings"
)

// Print writes an indented tree dump of the node, one labeled line per
// node, nested bodies indented two spaces per depth. The format is for
// diagnostics and is not stable across versions.
func Print(w io.Writer, node Node) {
	p := &printer{w: w}
	node.Accept(p)
}

// Dump returns the Print output as a string.
func Dump(node Node) string {
	var b strings.Builder
	Print(&b, node)
	return b.String()
}

type printer struct {
	w     io.Writer
	depth int
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

func (p *printer) nested(fn func()) {
	p.depth++
	fn()
	p.depth--
}

func (p *printer) stmts(body []Stmt) {
	for _, s := range body {
		s.Accept(p)
	}
}

func (p *printer) VisitProgram(n *Program) {
	p.line("Program:")
	p.nested(func() {
		for _, d := range n.Declarations {
			d.Accept(p)
		}
		p.stmts(n.Statements)
	})
}

func (p *printer) VisitLiteral(n *Literal) {
	p.line("Literal: %s", n.Value.Quote())
}

func (p *printer) VisitIdentifier(n *Identifier) {
	p.line("Identifier: %s", n.Name)
}

func (p *printer) VisitBinary(n *Binary) {
	p.line("Binary: %s", n.Op)
	p.nested(func() {
		n.Left.Accept(p)
		n.Right.Accept(p)
	})
}

func (p *printer) VisitUnary(n *Unary) {
	p.line("Unary: %s", n.Op)
	p.nested(func() { n.Operand.Accept(p) })
}

func (p *printer) VisitCall(n *Call) {
	p.line("Call:")
	p.nested(func() {
		n.Callee.Accept(p)
		for _, a := range n.Args {
			a.Accept(p)
		}
	})
}

func (p *printer) VisitAttribute(n *Attribute) {
	p.line("Attribute: %s", n.Name)
	p.nested(func() { n.Object.Accept(p) })
}

func (p *printer) VisitSubscript(n *Subscript) {
	p.line("Subscript:")
	p.nested(func() {
		n.Object.Accept(p)
		n.Index.Accept(p)
	})
}

func (p *printer) VisitList(n *List) {
	p.line("List:")
	p.nested(func() {
		for _, e := range n.Elements {
			e.Accept(p)
		}
	})
}

func (p *printer) VisitDict(n *Dict) {
	p.line("Dict:")
	p.nested(func() {
		for _, pair := range n.Pairs {
			p.line("Pair:")
			p.nested(func() {
				pair.Key.Accept(p)
				pair.Value.Accept(p)
			})
		}
	})
}

func (p *printer) VisitTuple(n *Tuple) {
	p.line("Tuple:")
	p.nested(func() {
		for _, e := range n.Elements {
			e.Accept(p)
		}
	})
}

func (p *printer) VisitAssignment(n *Assignment) {
	p.line("Assignment: %s", n.Name)
	p.nested(func() { n.Value.Accept(p) })
}

func (p *printer) VisitExprStmt(n *ExprStmt) {
	p.line("Expression:")
	p.nested(func() { n.Expr.Accept(p) })
}

func (p *printer) VisitReturn(n *Return) {
	p.line("Return:")
	if n.Value != nil {
		p.nested(func() { n.Value.Accept(p) })
	}
}

func (p *printer) VisitIf(n *If) {
	p.line("If:")
	p.nested(func() {
		for _, br := range n.Branches {
			p.line("Condition:")
			p.nested(func() { br.Condition.Accept(p) })
			p.line("Body:")
			p.nested(func() { p.stmts(br.Body) })
		}
		if len(n.Else) > 0 {
			p.line("Else:")
			p.nested(func() { p.stmts(n.Else) })
		}
	})
}

func (p *printer) VisitWhile(n *While) {
	p.line("While:")
	p.nested(func() {
		p.line("Condition:")
		p.nested(func() { n.Condition.Accept(p) })
		p.line("Body:")
		p.nested(func() { p.stmts(n.Body) })
	})
}

func (p *printer) VisitFor(n *For) {
	p.line("For: %s", n.Var)
	p.nested(func() {
		p.line("Iterable:")
		p.nested(func() { n.Iterable.Accept(p) })
		p.line("Body:")
		p.nested(func() { p.stmts(n.Body) })
	})
}

func (p *printer) VisitMatch(n *Match) {
	p.line("Match:")
	p.nested(func() {
		p.line("Subject:")
		p.nested(func() { n.Subject.Accept(p) })
		for _, c := range n.Cases {
			p.line("Case:")
			p.nested(func() {
				c.Pattern.Accept(p)
				p.line("Body:")
				p.nested(func() { p.stmts(c.Body) })
			})
		}
	})
}

func (p *printer) VisitFuncDecl(n *FuncDecl) {
	if n.Async {
		p.line("AsyncFunction: %s", n.Name)
	} else {
		p.line("Function: %s", n.Name)
	}
	p.nested(func() {
		for _, param := range n.Params {
			p.line("Param: %s", param)
		}
		p.stmts(n.Body)
	})
}

func (p *printer) VisitClassDecl(n *ClassDecl) {
	if n.Base != "" {
		p.line("Class: %s(%s)", n.Name, n.Base)
	} else {
		p.line("Class: %s", n.Name)
	}
	p.nested(func() {
		for _, m := range n.Members {
			m.Accept(p)
		}
	})
}

func (p *printer) VisitImportDecl(n *ImportDecl) {
	if n.Alias != "" {
		p.line("Import: %s as %s", n.Module, n.Alias)
	} else {
		p.line("Import: %s", n.Module)
	}
}
