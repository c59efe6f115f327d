package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pulse-lang/pulse/pkg/compiler"
	"github.com/pulse-lang/pulse/pkg/compiler/ast"
	"github.com/pulse-lang/pulse/pkg/compiler/codegen"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/compiler/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pulsec [tokens|ast|emit] <source.pls> [flags]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "tokens":
		runTokens()
	case "ast":
		runAST()
	case "emit":
		runEmit()
	default:
		fmt.Println("Unknown command:", os.Args[1])
		os.Exit(1)
	}
}

// modeFlags parses the source path and the flags shared by every mode.
func modeFlags(fs *flag.FlagSet) (path string, log *zap.SugaredLogger) {
	verbose := fs.Bool("v", false, "Log per-stage timing")

	if len(os.Args) < 3 {
		fmt.Printf("Usage: pulsec %s <source.pls> [flags]\n", os.Args[1])
		os.Exit(1)
	}
	path = os.Args[2]
	fs.Parse(os.Args[3:])

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fail(err)
		}
		log = l.Sugar()
	}
	return path, log
}

func readSource(path string) string {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	return string(src)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Compilation Error: %v\n", err)
	os.Exit(1)
}

func tokenize(path string, log *zap.SugaredLogger) []lexer.Token {
	start := time.Now()
	tokens, err := lexer.Tokenize(readSource(path))
	if err != nil {
		fail(err)
	}
	if log != nil {
		log.Infow("tokenized", "file", path, "tokens", len(tokens), "elapsed", time.Since(start))
	}
	return tokens
}

func parse(tokens []lexer.Token, log *zap.SugaredLogger) *ast.Program {
	start := time.Now()
	prog, err := parser.Parse(tokens)
	if err != nil {
		fail(err)
	}
	if log != nil {
		log.Infow("parsed", "declarations", len(prog.Declarations), "statements", len(prog.Statements), "elapsed", time.Since(start))
	}
	return prog
}

func runTokens() {
	fs := flag.NewFlagSet("tokens", flag.ExitOnError)
	path, log := modeFlags(fs)

	compiler.DumpTokens(os.Stdout, tokenize(path, log))
}

func runAST() {
	fs := flag.NewFlagSet("ast", flag.ExitOnError)
	path, log := modeFlags(fs)

	ast.Print(os.Stdout, parse(tokenize(path, log), log))
}

func runEmit() {
	fs := flag.NewFlagSet("emit", flag.ExitOnError)
	out := fs.String("o", "", "Write IR to this file instead of stdout")
	path, log := modeFlags(fs)

	prog := parse(tokenize(path, log), log)

	start := time.Now()
	mod, err := codegen.Compile(prog)
	if err != nil {
		fail(err)
	}
	if log != nil {
		log.Infow("generated", "functions", len(mod.Funcs), "elapsed", time.Since(start))
	}

	if *out == "" {
		fmt.Print(mod.String())
		return
	}
	if err := os.WriteFile(*out, []byte(mod.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *out, err)
		os.Exit(1)
	}
}
