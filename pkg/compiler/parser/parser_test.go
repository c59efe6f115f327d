package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulse-lang/pulse/pkg/compiler/ast"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/compiler/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	return prog
}

func TestMultiplicationBindsTighterThanAddition(t *testing.T) {
	prog := parse(t, "2 + 3 * 4\n")
	require.Len(t, prog.Statements, 1)

	stmt, ok := prog.Statements[0].(*ast.ExprStmt)
	require.True(t, ok)

	add, ok := stmt.Expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, add.Op)

	left, ok := add.Left.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, int64(2), left.Value.Int)

	mul, ok := add.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpMul, mul.Op)
}

func TestPowerIsRightAssociative(t *testing.T) {
	prog := parse(t, "x = 2 ** 3 ** 2\n")

	assign, ok := prog.Statements[0].(*ast.Assignment)
	require.True(t, ok)

	outer, ok := assign.Value.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpPow, outer.Op)

	_, ok = outer.Left.(*ast.Literal)
	require.True(t, ok)

	inner, ok := outer.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpPow, inner.Op)
}

func TestComparisonChainsLeft(t *testing.T) {
	prog := parse(t, "a < b <= c\n")

	stmt := prog.Statements[0].(*ast.ExprStmt)
	outer, ok := stmt.Expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpLe, outer.Op)

	inner, ok := outer.Left.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpLt, inner.Op)
}

func TestLogicalPrecedence(t *testing.T) {
	prog := parse(t, "a or b and c\n")

	stmt := prog.Statements[0].(*ast.ExprStmt)
	or, ok := stmt.Expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpOr, or.Op)

	and, ok := or.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAnd, and.Op)
}

func TestUnaryNesting(t *testing.T) {
	prog := parse(t, "not -x\n")

	stmt := prog.Statements[0].(*ast.ExprStmt)
	outer, ok := stmt.Expr.(*ast.Unary)
	require.True(t, ok)
	require.Equal(t, ast.OpNot, outer.Op)

	inner, ok := outer.Operand.(*ast.Unary)
	require.True(t, ok)
	require.Equal(t, ast.OpNeg, inner.Op)
}

func TestIfElifElseIsOneNode(t *testing.T) {
	src := "if a:\n" +
		"    x = 1\n" +
		"elif b:\n" +
		"    x = 2\n" +
		"else:\n" +
		"    x = 3\n"

	prog := parse(t, src)
	require.Len(t, prog.Statements, 1)

	ifStmt, ok := prog.Statements[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifStmt.Branches, 2)
	require.Len(t, ifStmt.Branches[0].Body, 1)
	require.Len(t, ifStmt.Branches[1].Body, 1)
	require.Len(t, ifStmt.Else, 1)
}

func TestWhileStatement(t *testing.T) {
	src := "while x < 10:\n" +
		"    x = x + 1\n"

	prog := parse(t, src)
	whileStmt, ok := prog.Statements[0].(*ast.While)
	require.True(t, ok)

	cond, ok := whileStmt.Condition.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpLt, cond.Op)
	require.Len(t, whileStmt.Body, 1)
}

func TestForStatement(t *testing.T) {
	src := "for item in items:\n" +
		"    out(item)\n"

	prog := parse(t, src)
	forStmt, ok := prog.Statements[0].(*ast.For)
	require.True(t, ok)
	require.Equal(t, "item", forStmt.Var)

	iter, ok := forStmt.Iterable.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "items", iter.Name)
	require.Len(t, forStmt.Body, 1)
}

func TestMatchStatement(t *testing.T) {
	src := "match code:\n" +
		"    1:\n" +
		"        out(1)\n" +
		"    _:\n" +
		"        out(0)\n"

	prog := parse(t, src)
	matchStmt, ok := prog.Statements[0].(*ast.Match)
	require.True(t, ok)
	require.Len(t, matchStmt.Cases, 2)

	wildcard, ok := matchStmt.Cases[1].Pattern.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "_", wildcard.Name)
}

func TestFuncDecl(t *testing.T) {
	src := "def add(a, b):\n" +
		"    return a + b\n"

	prog := parse(t, src)
	require.Len(t, prog.Declarations, 1)
	require.Empty(t, prog.Statements)

	fn, ok := prog.Declarations[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Equal(t, []string{"a", "b"}, fn.Params)
	require.False(t, fn.Async)
	require.Len(t, fn.Body, 1)

	ret, ok := fn.Body[0].(*ast.Return)
	require.True(t, ok)
	require.NotNil(t, ret.Value)
}

func TestAsyncFuncDecl(t *testing.T) {
	src := "async def fetch(url):\n" +
		"    return url\n"

	prog := parse(t, src)
	fn, ok := prog.Declarations[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.True(t, fn.Async)
}

func TestClassDecl(t *testing.T) {
	src := "class Dog(Animal):\n" +
		"    def bark(self):\n" +
		"        return 1\n"

	prog := parse(t, src)
	cls, ok := prog.Declarations[0].(*ast.ClassDecl)
	require.True(t, ok)
	require.Equal(t, "Dog", cls.Name)
	require.Equal(t, "Animal", cls.Base)
	require.Len(t, cls.Members, 1)
}

func TestImportDecl(t *testing.T) {
	prog := parse(t, "import math as m\nimport sys\n")

	require.Len(t, prog.Declarations, 2)

	first := prog.Declarations[0].(*ast.ImportDecl)
	require.Equal(t, "math", first.Module)
	require.Equal(t, "m", first.Alias)

	second := prog.Declarations[1].(*ast.ImportDecl)
	require.Equal(t, "sys", second.Module)
	require.Equal(t, "", second.Alias)
}

func TestPostfixChain(t *testing.T) {
	prog := parse(t, "obj.items(1)[0]\n")

	stmt := prog.Statements[0].(*ast.ExprStmt)
	sub, ok := stmt.Expr.(*ast.Subscript)
	require.True(t, ok)

	call, ok := sub.Object.(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)

	attr, ok := call.Callee.(*ast.Attribute)
	require.True(t, ok)
	require.Equal(t, "items", attr.Name)
}

func TestGroupVersusTuple(t *testing.T) {
	prog := parse(t, "a = (1)\nb = (1, 2)\nc = ()\n")

	first := prog.Statements[0].(*ast.Assignment)
	_, ok := first.Value.(*ast.Literal)
	require.True(t, ok)

	second := prog.Statements[1].(*ast.Assignment)
	tuple, ok := second.Value.(*ast.Tuple)
	require.True(t, ok)
	require.Len(t, tuple.Elements, 2)

	third := prog.Statements[2].(*ast.Assignment)
	empty, ok := third.Value.(*ast.Tuple)
	require.True(t, ok)
	require.Empty(t, empty.Elements)
}

func TestListAndDictLiterals(t *testing.T) {
	prog := parse(t, "xs = [1, 2, 3]\nd = {\"a\": 1, \"b\": 2}\n")

	list, ok := prog.Statements[0].(*ast.Assignment).Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, list.Elements, 3)

	dict, ok := prog.Statements[1].(*ast.Assignment).Value.(*ast.Dict)
	require.True(t, ok)
	require.Len(t, dict.Pairs, 2)
}

func TestBareReturn(t *testing.T) {
	src := "def f():\n" +
		"    return\n"

	prog := parse(t, src)
	fn := prog.Declarations[0].(*ast.FuncDecl)
	ret := fn.Body[0].(*ast.Return)
	require.Nil(t, ret.Value)
}

func TestMultipleDiagnostics(t *testing.T) {
	src := "x = )\n" +
		"y = )\n" +
		"z = 3\n"

	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)

	prog, err := parser.Parse(tokens)
	require.Nil(t, prog)
	require.Error(t, err)

	list, ok := err.(parser.ErrorList)
	require.True(t, ok)
	require.Len(t, list, 2)
	require.Equal(t, 1, list[0].Line)
	require.Equal(t, 2, list[1].Line)
	require.Contains(t, err.Error(), "and 1 more errors")
}

func TestMatchWithoutCases(t *testing.T) {
	src := "match x:\n" +
		"    y = 1\n"

	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)

	_, err = parser.Parse(tokens)
	require.Error(t, err)
}

func TestCommentsAreTransparent(t *testing.T) {
	src := "# leading comment\n" +
		"x = 1  # trailing\n"

	prog := parse(t, src)
	require.Len(t, prog.Statements, 1)
	_, ok := prog.Statements[0].(*ast.Assignment)
	require.True(t, ok)
}
