package ast_test

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

func TestDumpAssignment(t *testing.T) {
	prog := parse(t, "x = 1 + 2\n")

	want := "Program:\n" +
		"  Assignment: x\n" +
		"    Binary: +\n" +
		"      Literal: 1\n" +
		"      Literal: 2\n"
	require.Equal(t, want, ast.Dump(prog))
}

func TestDumpStringLiteralIsQuoted(t *testing.T) {
	prog := parse(t, "s = \"hi\"\n")

	want := "Program:\n" +
		"  Assignment: s\n" +
		"    Literal: 'hi'\n"
	require.Equal(t, want, ast.Dump(prog))
}

func TestDumpIfWithElse(t *testing.T) {
	src := "if a:\n" +
		"    x = 1\n" +
		"else:\n" +
		"    x = 2\n"

	prog := parse(t, src)

	want := "Program:\n" +
		"  If:\n" +
		"    Condition:\n" +
		"      Identifier: a\n" +
		"    Body:\n" +
		"      Assignment: x\n" +
		"        Literal: 1\n" +
		"    Else:\n" +
		"      Assignment: x\n" +
		"        Literal: 2\n"
	require.Equal(t, want, ast.Dump(prog))
}

func TestDumpFunction(t *testing.T) {
	src := "def square(n):\n" +
		"    return n * n\n"

	prog := parse(t, src)

	want := "Program:\n" +
		"  Function: square\n" +
		"    Param: n\n" +
		"    Return:\n" +
		"      Binary: *\n" +
		"        Identifier: n\n" +
		"        Identifier: n\n"
	require.Equal(t, want, ast.Dump(prog))
}

func TestDumpCall(t *testing.T) {
	prog := parse(t, "out(1, 2)\n")

	want := "Program:\n" +
		"  Expression:\n" +
		"    Call:\n" +
		"      Identifier: out\n" +
		"      Literal: 1\n" +
		"      Literal: 2\n"
	require.Equal(t, want, ast.Dump(prog))
}

func TestBinaryOpStrings(t *testing.T) {
	ops := map[ast.BinaryOp]string{
		ast.OpAdd:      "+",
		ast.OpSub:      "-",
		ast.OpMul:      "*",
		ast.OpDiv:      "/",
		ast.OpFloorDiv: "//",
		ast.OpMod:      "%",
		ast.OpPow:      "**",
		ast.OpEq:       "==",
		ast.OpNe:       "!=",
		ast.OpLt:       "<",
		ast.OpLe:       "<=",
		ast.OpGt:       ">",
		ast.OpGe:       ">=",
		ast.OpAnd:      "and",
		ast.OpOr:       "or",
	}
	for op, want := range ops {
		require.Equal(t, want, op.String())
	}
}
