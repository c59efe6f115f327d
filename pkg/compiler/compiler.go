// Package compiler runs the full pipeline: source text through the
// tokenizer and parser into a syntax tree, then through code generation
// into an LLVM IR module.
package compiler

import (
	"fmt"
	"io"
	"os"

	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	"github.com/pulse-lang/pulse/pkg/compiler/ast"
	"github.com/pulse-lang/pulse/pkg/compiler/codegen"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/compiler/parser"
)

// Result carries the artifacts of every completed stage so callers can
// inspect tokens or the tree without re-running the front end.
type Result struct {
	Tokens  []lexer.Token
	Program *ast.Program
	Module  *ir.Module
	Classes []codegen.ClassInfo
	Imports []codegen.ImportInfo
}

// Compile runs source through all stages. The error is the tokenizer
// error, the parser's diagnostic list, or a code-generation error from
// whichever stage failed first; later stages do not run on bad input.
func Compile(source string) (*Result, error) {
	res := &Result{}

	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return res, err
	}
	res.Tokens = tokens

	prog, err := parser.Parse(tokens)
	if err != nil {
		return res, err
	}
	res.Program = prog

	cg := codegen.New()
	mod, err := cg.Compile(prog)
	if err != nil {
		return res, err
	}
	res.Module = mod
	res.Classes = cg.Classes
	res.Imports = cg.Imports
	return res, nil
}

// CompileFile reads a source file and compiles it.
func CompileFile(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	res, err := Compile(string(src))
	if err != nil {
		return res, errors.Wrapf(err, "compile %s", path)
	}
	return res, nil
}

// DumpTokens writes one line per token in the diagnostic dump format.
func DumpTokens(w io.Writer, tokens []lexer.Token) {
	for _, tok := range tokens {
		fmt.Fprintf(w, "Type: %s, Lexeme: '%s', Line: %d, Column: %d\n",
			tok.Kind, tok.Lexeme, tok.Line, tok.Column)
	}
}
