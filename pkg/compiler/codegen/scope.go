package codegen

import (
	"github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"
)

// arrayInfo describes a local bound to a fixed-length aggregate, which is
// what list and tuple literals lower to.
type arrayInfo struct {
	typ    *types.ArrayType
	elem   types.Type
	length int64
}

// symbol is one named storage location in the active function: a stack
// slot plus the type stored in it.
type symbol struct {
	ptr irvalue.Value
	typ types.Type
	arr *arrayInfo
}

// scope maps variable names to stack slots. Scopes are per function and
// flat: this language has no nested lexical closures.
type scope struct {
	vars map[string]*symbol
}

func newScope() *scope {
	return &scope{vars: make(map[string]*symbol)}
}

func (s *scope) lookup(name string) (*symbol, bool) {
	sym, ok := s.vars[name]
	return sym, ok
}

func (s *scope) define(name string, sym *symbol) {
	s.vars[name] = sym
}
