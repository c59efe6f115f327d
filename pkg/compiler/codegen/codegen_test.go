package codegen_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"github.com/pulse-lang/pulse/pkg/compiler/codegen"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/compiler/parser"
)

func lower(t *testing.T, src string) string {
	t.Helper()
	mod := lowerModule(t, src)
	return mod.String()
}

func lowerModule(t *testing.T, src string) *ir.Module {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	mod, err := codegen.Compile(prog)
	require.NoError(t, err)
	return mod
}

func lowerErr(t *testing.T, src string) error {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	_, err = codegen.Compile(prog)
	require.Error(t, err)
	return err
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	src := "def f(n):\n" +
		"    return n + 1\n" +
		"result = f(4)\n"

	out := lower(t, src)
	require.Contains(t, out, "define i64 @f(i64 %n)")
	require.Contains(t, out, "call i64 @f(i64 4)")
	require.Contains(t, out, "define i32 @main()")
}

func TestEntryReturnsInt32Zero(t *testing.T) {
	out := lower(t, "x = 1\n")
	require.Contains(t, out, "define i32 @main()")
	require.Contains(t, out, "ret i32 0")
}

func TestRecursionResolves(t *testing.T) {
	src := "def fact(n):\n" +
		"    if n <= 1:\n" +
		"        return 1\n" +
		"    return n * fact(n - 1)\n"

	out := lower(t, src)
	require.Contains(t, out, "call i64 @fact")
}

func TestForwardCallResolves(t *testing.T) {
	src := "def a(x):\n" +
		"    return b(x)\n" +
		"def b(x):\n" +
		"    return x\n"

	out := lower(t, src)
	require.Contains(t, out, "call i64 @b")
}

func TestWhileLowering(t *testing.T) {
	src := "x = 0\n" +
		"while x < 10:\n" +
		"    x = x + 1\n"

	out := lower(t, src)
	require.Contains(t, out, "while.cond")
	require.Contains(t, out, "while.body")
	require.Contains(t, out, "while.end")
	require.Contains(t, out, "icmp slt")
}

func TestWhileFalseStillBuildsExit(t *testing.T) {
	src := "while False:\n" +
		"    x = 1\n" +
		"y = 2\n"

	mod := lowerModule(t, src)
	require.NoError(t, codegen.Verify(mod))
}

func TestShortCircuitAnd(t *testing.T) {
	src := "a = True and False\n"

	out := lower(t, src)
	require.Contains(t, out, "logic.rhs")
	require.Contains(t, out, "logic.end")
	require.Contains(t, out, "phi")
}

func TestIfElifElseLowering(t *testing.T) {
	src := "x = 1\n" +
		"if x < 0:\n" +
		"    y = 1\n" +
		"elif x == 0:\n" +
		"    y = 2\n" +
		"else:\n" +
		"    y = 3\n"

	out := lower(t, src)
	require.Contains(t, out, "if.then")
	require.Contains(t, out, "if.elif")
	require.Contains(t, out, "if.else")
	require.Contains(t, out, "if.end")
}

func TestForLoopOverList(t *testing.T) {
	src := "xs = [1, 2, 3]\n" +
		"total = 0\n" +
		"for x in xs:\n" +
		"    total = total + x\n"

	out := lower(t, src)
	require.Contains(t, out, "for.cond")
	require.Contains(t, out, "for.body")
	require.Contains(t, out, "for.end")
	require.Contains(t, out, "getelementptr")
}

func TestSubscriptLoad(t *testing.T) {
	src := "xs = [10, 20]\n" +
		"y = xs[1]\n"

	out := lower(t, src)
	require.Contains(t, out, "getelementptr")
	require.Contains(t, out, "[2 x i64]")
}

func TestMatchLowering(t *testing.T) {
	src := "code = 2\n" +
		"match code:\n" +
		"    1:\n" +
		"        out(10)\n" +
		"    _:\n" +
		"        out(0)\n"

	out := lower(t, src)
	require.Contains(t, out, "match.case")
	require.Contains(t, out, "match.end")
	require.Contains(t, out, "icmp eq")
}

func TestFloorDivideAndPower(t *testing.T) {
	src := "a = 7 // 2\n" +
		"b = 2 ** 10\n" +
		"c = 7.0 // 2.0\n"

	out := lower(t, src)
	require.Contains(t, out, "sdiv")
	require.Contains(t, out, "llvm.pow.f64")
	require.Contains(t, out, "llvm.floor.f64")
}

func TestMixedArithmeticPromotes(t *testing.T) {
	out := lower(t, "x = 1 + 2.5\n")
	require.Contains(t, out, "sitofp")
	require.Contains(t, out, "fadd")
}

func TestOutBuiltin(t *testing.T) {
	src := "out(42)\n" +
		"out(3.14)\n" +
		"out(\"hello\")\n"

	out := lower(t, src)
	require.Contains(t, out, "declare i32 @printf")
	require.Contains(t, out, "hello")
	require.Contains(t, out, "%lld")
	require.Contains(t, out, "%g")
}

func TestStringInterning(t *testing.T) {
	src := "out(\"same\")\n" +
		"out(\"same\")\n"

	mod := lowerModule(t, src)
	// One format global, one content global.
	require.Len(t, mod.Globals, 2)
}

func TestReassignmentSameTypeAllowed(t *testing.T) {
	mod := lowerModule(t, "x = 1\nx = 2\n")
	require.NoError(t, codegen.Verify(mod))
}

func TestReassignmentTypeChangeRejected(t *testing.T) {
	err := lowerErr(t, "x = 1\nx = 1.5\n")
	require.Contains(t, err.Error(), "reassignment")
}

func TestUnknownFunctionRejected(t *testing.T) {
	err := lowerErr(t, "y = g(1)\n")
	require.Contains(t, err.Error(), "unknown function")
}

func TestArityMismatchRejected(t *testing.T) {
	src := "def f(a, b):\n" +
		"    return a\n" +
		"x = f(1)\n"

	err := lowerErr(t, src)
	require.Contains(t, err.Error(), "expects 2 argument(s), got 1")
}

func TestDuplicateFunctionRejected(t *testing.T) {
	src := "def f():\n" +
		"    return 1\n" +
		"def f():\n" +
		"    return 2\n"

	err := lowerErr(t, src)
	require.Contains(t, err.Error(), "already declared")
}

func TestMainNameReserved(t *testing.T) {
	src := "def main():\n" +
		"    return 1\n"

	err := lowerErr(t, src)
	require.Contains(t, err.Error(), "reserved")
}

func TestUndefinedIdentifierDefaultsToZero(t *testing.T) {
	mod := lowerModule(t, "x = missing + 1\n")
	require.NoError(t, codegen.Verify(mod))
}

func TestClassAndImportRecorded(t *testing.T) {
	src := "import math as m\n" +
		"class Dog(Animal):\n" +
		"    def bark(self):\n" +
		"        return 1\n"

	tokens, err := lexer.Tokenize(src)
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)

	cg := codegen.New()
	_, err = cg.Compile(prog)
	require.NoError(t, err)

	require.Len(t, cg.Imports, 1)
	require.Equal(t, "math", cg.Imports[0].Module)
	require.Equal(t, "m", cg.Imports[0].Alias)

	require.Len(t, cg.Classes, 1)
	require.Equal(t, "Dog", cg.Classes[0].Name)
	require.Equal(t, "Animal", cg.Classes[0].Base)
	require.Equal(t, []string{"bark"}, cg.Classes[0].Methods)
}

func TestGeneratedModulesVerify(t *testing.T) {
	srcs := []string{
		"x = 1\n",
		"def f(n):\n    return n\nf(1)\n",
		"if True:\n    x = 1\nelse:\n    x = 2\n",
		"while False:\n    x = 1\n",
		"xs = [1, 2]\nfor x in xs:\n    out(x)\n",
		"def g(n):\n    return n\nx = g(2) and g(3)\n",
	}
	for _, src := range srcs {
		mod := lowerModule(t, src)
		require.NoError(t, codegen.Verify(mod), src)
	}
}

func TestBranchAssignedVariableAllocatedInEntry(t *testing.T) {
	src := "x = 1\n" +
		"if x < 0:\n" +
		"    y = 1\n" +
		"else:\n" +
		"    y = 3\n" +
		"out(y)\n"

	mod := lowerModule(t, src)
	require.NoError(t, codegen.Verify(mod))

	var mainFn *ir.Func
	for _, fn := range mod.Funcs {
		if fn.Name() == "main" {
			mainFn = fn
		}
	}
	require.NotNil(t, mainFn)

	// Slots must live in the entry block so stores from sibling branches
	// and loads in the continuation stay dominated.
	entryAllocas := 0
	for _, inst := range mainFn.Blocks[0].Insts {
		if _, ok := inst.(*ir.InstAlloca); ok {
			entryAllocas++
		}
	}
	require.Equal(t, 2, entryAllocas)

	for _, blk := range mainFn.Blocks[1:] {
		for _, inst := range blk.Insts {
			_, isAlloca := inst.(*ir.InstAlloca)
			require.False(t, isAlloca, "alloca in block %s", blk.Name())
		}
	}
}

func TestLoopLocalSlotsAllocatedInEntry(t *testing.T) {
	srcs := []string{
		"x = 0\nwhile x < 3:\n    y = x\n    x = x + 1\nout(y)\n",
		"xs = [1, 2]\nfor x in xs:\n    last = x\nout(last)\n",
		"code = 1\nmatch code:\n    1:\n        r = 10\n    _:\n        r = 0\nout(r)\n",
	}
	for _, src := range srcs {
		mod := lowerModule(t, src)
		require.NoError(t, codegen.Verify(mod), src)
		for _, fn := range mod.Funcs {
			if len(fn.Blocks) == 0 {
				// External declarations have no body.
				continue
			}
			for _, blk := range fn.Blocks[1:] {
				for _, inst := range blk.Insts {
					_, isAlloca := inst.(*ir.InstAlloca)
					require.False(t, isAlloca, src)
				}
			}
		}
	}
}

func TestVerifyRejectsCrossBranchSlotUse(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunc("f", types.I64)
	entry := fn.NewBlock("entry")
	then := fn.NewBlock("then")
	els := fn.NewBlock("else")
	end := fn.NewBlock("end")

	entry.NewCondBr(constant.True, then, els)

	slot := then.NewAlloca(types.I64)
	then.NewStore(constant.NewInt(types.I64, 1), slot)
	then.NewBr(end)

	// Sibling branch stores through a slot its block never dominates.
	els.NewStore(constant.NewInt(types.I64, 3), slot)
	els.NewBr(end)

	end.NewRet(end.NewLoad(types.I64, slot))

	err := codegen.Verify(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dominate")
}

func TestVerifyRejectsUseBeforeDefinition(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunc("f", types.I64)
	blk := fn.NewBlock("entry")

	slot := ir.NewAlloca(types.I64)
	load := blk.NewLoad(types.I64, slot)
	blk.Insts = append(blk.Insts, slot)
	blk.NewRet(load)

	err := codegen.Verify(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "before its definition")
}

func TestVerifyMissingTerminator(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunc("f", types.I64)
	fn.NewBlock("entry")

	err := codegen.Verify(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no terminator")
}

func TestVerifyReturnTypeMismatch(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunc("f", types.I32)
	blk := fn.NewBlock("entry")
	blk.NewRet(constant.NewInt(types.I64, 0))

	err := codegen.Verify(m)
	require.Error(t, err)
	require.Contains(t, err.Error(), "return type")
}
