package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	irvalue "github.com/llir/llvm/ir/value"
)

// Verify structurally checks a lowered module: every block of every
// defined function carries exactly one terminator, returned values match
// the function's return type, every call's argument count matches its
// callee, and every operand is defined before its use in a block that
// dominates the use. A failure here is a code-generation bug surfaced as
// an error rather than malformed IR handed to the backend.
func Verify(m *ir.Module) error {
	for _, fn := range m.Funcs {
		if len(fn.Blocks) == 0 {
			continue // external declaration
		}
		if err := verifyFunc(fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunc(fn *ir.Func) error {
	for _, blk := range fn.Blocks {
		if blk.Term == nil {
			return fmt.Errorf("verify: block %q in function %q has no terminator", blk.Name(), fn.Name())
		}
		if ret, ok := blk.Term.(*ir.TermRet); ok {
			if ret.X == nil || !ret.X.Type().Equal(fn.Sig.RetType) {
				return fmt.Errorf("verify: return in function %q does not match return type %v", fn.Name(), fn.Sig.RetType)
			}
		}
	}

	v := &funcVerifier{
		fn:       fn,
		params:   make(map[irvalue.Value]bool, len(fn.Params)),
		defBlock: make(map[irvalue.Value]*ir.Block),
		defIndex: make(map[irvalue.Value]int),
		dom:      dominators(fn),
	}
	for _, param := range fn.Params {
		v.params[param] = true
	}
	for _, blk := range fn.Blocks {
		for i, inst := range blk.Insts {
			if val, ok := inst.(irvalue.Value); ok {
				v.defBlock[val] = blk
				v.defIndex[val] = i
			}
		}
	}

	for _, blk := range fn.Blocks {
		for i, inst := range blk.Insts {
			if err := v.checkInst(blk, i, inst); err != nil {
				return err
			}
		}
		if err := v.checkTerm(blk); err != nil {
			return err
		}
	}
	return nil
}

type funcVerifier struct {
	fn       *ir.Func
	params   map[irvalue.Value]bool
	defBlock map[irvalue.Value]*ir.Block
	defIndex map[irvalue.Value]int
	dom      map[*ir.Block]map[*ir.Block]bool
}

func (v *funcVerifier) checkInst(blk *ir.Block, idx int, inst ir.Instruction) error {
	switch in := inst.(type) {
	case *ir.InstCall:
		callee, ok := in.Callee.(*ir.Func)
		if !ok {
			return fmt.Errorf("verify: indirect call in function %q", v.fn.Name())
		}
		want := len(callee.Sig.Params)
		got := len(in.Args)
		if callee.Sig.Variadic {
			if got < want {
				return fmt.Errorf("verify: call to %q in %q has %d args, needs at least %d", callee.Name(), v.fn.Name(), got, want)
			}
		} else if got != want {
			return fmt.Errorf("verify: call to %q in %q has %d args, callee takes %d", callee.Name(), v.fn.Name(), got, want)
		}
	case *ir.InstPhi:
		// An incoming value is used at the end of its predecessor, not at
		// the phi itself.
		for _, inc := range in.Incs {
			pred, ok := inc.Pred.(*ir.Block)
			if !ok {
				return fmt.Errorf("verify: phi in function %q has a non-block predecessor", v.fn.Name())
			}
			if err := v.checkOperand(pred, len(pred.Insts), inc.X); err != nil {
				return err
			}
		}
		return nil
	}

	for _, op := range operands(inst) {
		if err := v.checkOperand(blk, idx, op); err != nil {
			return err
		}
	}
	return nil
}

func (v *funcVerifier) checkTerm(blk *ir.Block) error {
	idx := len(blk.Insts)
	switch term := blk.Term.(type) {
	case *ir.TermCondBr:
		return v.checkOperand(blk, idx, term.Cond)
	case *ir.TermRet:
		if term.X != nil {
			return v.checkOperand(blk, idx, term.X)
		}
	}
	return nil
}

// checkOperand accepts constants, globals, the function's own parameters,
// and instruction results whose definition dominates the use site.
func (v *funcVerifier) checkOperand(blk *ir.Block, idx int, op irvalue.Value) error {
	switch op.(type) {
	case ir.Instruction:
		def, ok := v.defBlock[op]
		if !ok {
			return fmt.Errorf("verify: operand used in function %q but defined in another function", v.fn.Name())
		}
		if def == blk {
			if v.defIndex[op] >= idx {
				return fmt.Errorf("verify: operand in block %q of %q used before its definition", blk.Name(), v.fn.Name())
			}
			return nil
		}
		if !v.dom[blk][def] {
			return fmt.Errorf("verify: operand defined in block %q of %q does not dominate its use in block %q", def.Name(), v.fn.Name(), blk.Name())
		}
	case *ir.Param:
		if !v.params[op] {
			return fmt.Errorf("verify: foreign parameter used in function %q", v.fn.Name())
		}
	}
	return nil
}

// operands lists the value operands of the instruction forms the compiler
// emits. Phi and callee operands are handled separately.
func operands(inst ir.Instruction) []irvalue.Value {
	switch in := inst.(type) {
	case *ir.InstAdd:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstSub:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstMul:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstSDiv:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstSRem:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFAdd:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFSub:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFMul:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFDiv:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFRem:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstXor:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstICmp:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFCmp:
		return []irvalue.Value{in.X, in.Y}
	case *ir.InstFNeg:
		return []irvalue.Value{in.X}
	case *ir.InstLoad:
		return []irvalue.Value{in.Src}
	case *ir.InstStore:
		return []irvalue.Value{in.Src, in.Dst}
	case *ir.InstGetElementPtr:
		ops := []irvalue.Value{in.Src}
		return append(ops, in.Indices...)
	case *ir.InstCall:
		return in.Args
	case *ir.InstZExt:
		return []irvalue.Value{in.From}
	case *ir.InstTrunc:
		return []irvalue.Value{in.From}
	case *ir.InstSIToFP:
		return []irvalue.Value{in.From}
	case *ir.InstFPToSI:
		return []irvalue.Value{in.From}
	}
	return nil
}

// dominators computes, per block, the set of blocks that dominate it,
// with the usual iterative dataflow over predecessors. A non-entry block
// with no predecessors is unreachable; it keeps the full set and is
// effectively exempt, which covers the placeholder blocks emitted after
// a return.
func dominators(fn *ir.Func) map[*ir.Block]map[*ir.Block]bool {
	preds := make(map[*ir.Block][]*ir.Block)
	for _, blk := range fn.Blocks {
		for _, succ := range successors(blk) {
			preds[succ] = append(preds[succ], blk)
		}
	}

	entry := fn.Blocks[0]
	dom := make(map[*ir.Block]map[*ir.Block]bool, len(fn.Blocks))
	dom[entry] = map[*ir.Block]bool{entry: true}
	for _, blk := range fn.Blocks[1:] {
		all := make(map[*ir.Block]bool, len(fn.Blocks))
		for _, b := range fn.Blocks {
			all[b] = true
		}
		dom[blk] = all
	}

	for changed := true; changed; {
		changed = false
		for _, blk := range fn.Blocks[1:] {
			if len(preds[blk]) == 0 {
				continue
			}
			next := make(map[*ir.Block]bool)
			for b := range dom[preds[blk][0]] {
				next[b] = true
			}
			for _, pred := range preds[blk][1:] {
				for b := range next {
					if !dom[pred][b] {
						delete(next, b)
					}
				}
			}
			next[blk] = true
			if !sameBlockSet(dom[blk], next) {
				dom[blk] = next
				changed = true
			}
		}
	}
	return dom
}

func successors(blk *ir.Block) []*ir.Block {
	switch term := blk.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{term.Target.(*ir.Block)}
	case *ir.TermCondBr:
		return []*ir.Block{term.TargetTrue.(*ir.Block), term.TargetFalse.(*ir.Block)}
	}
	return nil
}

func sameBlockSet(a, b map[*ir.Block]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for blk := range a {
		if !b[blk] {
			return false
		}
	}
	return true
}
