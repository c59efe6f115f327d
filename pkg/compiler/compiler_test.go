package compiler_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pulse-lang/pulse/pkg/compiler"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/compiler/parser"
)

const sample = `def square(n):
    return n * n

x = square(6)
out(x)
`

func TestCompileEndToEnd(t *testing.T) {
	res, err := compiler.Compile(sample)
	require.NoError(t, err)

	require.NotEmpty(t, res.Tokens)
	require.NotNil(t, res.Program)
	require.NotNil(t, res.Module)

	out := res.Module.String()
	require.Contains(t, out, "define i64 @square")
	require.Contains(t, out, "define i32 @main")
}

func TestCompileLexErrorStopsPipeline(t *testing.T) {
	res, err := compiler.Compile("x = \"unterminated\n")
	require.Error(t, err)

	var lexErr *lexer.Error
	require.True(t, errors.As(err, &lexErr))
	require.Nil(t, res.Program)
	require.Nil(t, res.Module)
}

func TestCompileParseErrorsCollected(t *testing.T) {
	res, err := compiler.Compile("x = )\ny = )\n")
	require.Error(t, err)

	var list parser.ErrorList
	require.True(t, errors.As(err, &list))
	require.Len(t, list, 2)

	// Tokens survive even when parsing fails.
	require.NotEmpty(t, res.Tokens)
	require.Nil(t, res.Module)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.pls")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	res, err := compiler.CompileFile(path)
	require.NoError(t, err)
	require.NotNil(t, res.Module)
}

func TestCompileFileMissing(t *testing.T) {
	_, err := compiler.CompileFile(filepath.Join(t.TempDir(), "absent.pls"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "absent.pls")
}

func TestDumpTokensFormat(t *testing.T) {
	res, err := compiler.Compile("x = 1\n")
	require.NoError(t, err)

	var b strings.Builder
	compiler.DumpTokens(&b, res.Tokens)

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, "Type: IDENTIFIER, Lexeme: 'x', Line: 1, Column: 0", lines[0])
	require.Equal(t, "Type: ASSIGN, Lexeme: '=', Line: 1, Column: 2", lines[1])
	require.Equal(t, "Type: INTEGER, Lexeme: '1', Line: 1, Column: 4", lines[2])
	require.True(t, strings.HasPrefix(lines[3], "Type: NEWLINE"))
	require.True(t, strings.HasPrefix(lines[4], "Type: EOF"))
}
