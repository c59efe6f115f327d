// Package codegen lowers a syntax tree to an LLVM IR module: typed
// constants and arithmetic, stack slots for source-level mutability, and
// explicit control flow for branches, loops and short-circuit logic.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"

	"github.com/pulse-lang/pulse/pkg/compiler/ast"
	"github.com/pulse-lang/pulse/pkg/compiler/lexer"
	"github.com/pulse-lang/pulse/pkg/core/value"
)

// Error is a positioned code-generation error. The first one aborts the
// compilation; no partial module is usable.
type Error struct {
	Pos lexer.Position
	Msg string
}

func (e *Error) Error() string {
	if e.Pos.Line == 0 {
		return "code generation error: " + e.Msg
	}
	return fmt.Sprintf("code generation error at %s: %s", e.Pos, e.Msg)
}

// ClassInfo records a class declaration. Classes are not lowered to IR;
// name, base and member names are kept for callers.
type ClassInfo struct {
	Name    string
	Base    string
	Methods []string
}

// ImportInfo records an import declaration; linking is out of scope.
type ImportInfo struct {
	Module string
	Alias  string
}

type funcInfo struct {
	fn    *ir.Func
	arity int
	async bool
}

// builtins maps the callable standard-library surface to its arity.
var builtins = map[string]int{
	"out":   1,
	"print": 1,
}

// Compiler lowers one Program to one IR module. It owns the symbol table
// and active insertion point for the function currently being lowered and
// must not be shared across goroutines.
type Compiler struct {
	module *ir.Module
	printf *ir.Func
	pow    *ir.Func
	floor  *ir.Func

	fn    *ir.Func
	block *ir.Block
	scope *scope

	funcs   map[string]*funcInfo
	strings map[string]constant.Constant
	blockID int

	Classes []ClassInfo
	Imports []ImportInfo
}

// New creates a compiler with an empty module and the external
// declarations the standard-library surface needs.
func New() *Compiler {
	m := ir.NewModule()

	printf := m.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printf.Sig.Variadic = true

	return &Compiler{
		module:  m,
		printf:  printf,
		funcs:   make(map[string]*funcInfo),
		strings: make(map[string]constant.Constant),
	}
}

// Compile lowers the program and returns the verified module.
func Compile(prog *ast.Program) (*ir.Module, error) {
	return New().Compile(prog)
}

// Compile lowers declarations first, then the top-level statements into
// the implicit entry function, finalizes open blocks and verifies the
// module structurally.
func (c *Compiler) Compile(prog *ast.Program) (*ir.Module, error) {
	mainFn := c.module.NewFunc("main", types.I32)
	mainEntry := mainFn.NewBlock("entry")

	// Pre-declare every function so recursion and forward calls resolve
	// while bodies are lowered.
	for _, decl := range prog.Declarations {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if err := c.declareFunc(fd); err != nil {
			return nil, err
		}
	}

	for _, decl := range prog.Declarations {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if err := c.lowerFuncBody(d); err != nil {
				return nil, err
			}
		case *ast.ClassDecl:
			c.recordClass(d)
		case *ast.ImportDecl:
			c.Imports = append(c.Imports, ImportInfo{Module: d.Module, Alias: d.Alias})
		}
	}

	c.fn = mainFn
	c.block = mainEntry
	c.scope = newScope()
	for _, stmt := range prog.Statements {
		if err := c.stmt(stmt); err != nil {
			return nil, err
		}
	}
	c.finalize(mainFn, constant.NewInt(types.I32, 0))

	if err := Verify(c.module); err != nil {
		return nil, &Error{Msg: err.Error()}
	}
	return c.module, nil
}

func (c *Compiler) declareFunc(d *ast.FuncDecl) error {
	if d.Name == "main" {
		return &Error{Pos: d.Position, Msg: "function name 'main' is reserved for the entry point"}
	}
	if _, ok := builtins[d.Name]; ok {
		return &Error{Pos: d.Position, Msg: fmt.Sprintf("function %q shadows a builtin", d.Name)}
	}
	if _, ok := c.funcs[d.Name]; ok {
		return &Error{Pos: d.Position, Msg: fmt.Sprintf("function %q is already declared", d.Name)}
	}

	// Parameters default to the scalar type until richer inference exists.
	params := make([]*ir.Param, len(d.Params))
	for i, name := range d.Params {
		params[i] = ir.NewParam(name, types.I64)
	}
	fn := c.module.NewFunc(d.Name, types.I64, params...)
	c.funcs[d.Name] = &funcInfo{fn: fn, arity: len(d.Params), async: d.Async}
	return nil
}

// lowerFuncBody fills in a pre-declared function: one stack slot per
// parameter so parameters stay mutable like any local, a fresh symbol
// table, and an implicit default return on every open block.
func (c *Compiler) lowerFuncBody(d *ast.FuncDecl) error {
	info := c.funcs[d.Name]
	c.fn = info.fn
	c.block = info.fn.NewBlock("entry")
	c.scope = newScope()

	for _, param := range info.fn.Params {
		slot := c.entryAlloca(types.I64)
		slot.SetName(param.Name() + ".addr")
		c.block.NewStore(param, slot)
		c.scope.define(param.Name(), &symbol{ptr: slot, typ: types.I64})
	}

	for _, stmt := range d.Body {
		if err := c.stmt(stmt); err != nil {
			return err
		}
	}
	c.finalize(info.fn, constant.NewInt(types.I64, 0))
	return nil
}

func (c *Compiler) recordClass(d *ast.ClassDecl) {
	info := ClassInfo{Name: d.Name, Base: d.Base}
	for _, m := range d.Members {
		if fd, ok := m.(*ast.FuncDecl); ok {
			info.Methods = append(info.Methods, fd.Name)
		}
	}
	c.Classes = append(c.Classes, info)
}

// finalize terminates every open block with a default return.
func (c *Compiler) finalize(fn *ir.Func, def constant.Constant) {
	for _, blk := range fn.Blocks {
		if blk.Term == nil {
			blk.NewRet(def)
		}
	}
}

func (c *Compiler) newBlock(label string) *ir.Block {
	c.blockID++
	return c.fn.NewBlock(fmt.Sprintf("%s.%d", label, c.blockID))
}

// entryAlloca allocates a stack slot in the function's entry block, so
// the slot dominates every use even when the first assignment happens
// inside a branch. The initializing store stays at the assignment site.
func (c *Compiler) entryAlloca(t types.Type) *ir.InstAlloca {
	inst := ir.NewAlloca(t)
	entry := c.fn.Blocks[0]
	entry.Insts = append(entry.Insts, inst)
	return inst
}

// Statements.

func (c *Compiler) stmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Assignment:
		return c.assign(n)
	case *ast.ExprStmt:
		_, err := c.expr(n.Expr)
		return err
	case *ast.Return:
		return c.ret(n)
	case *ast.If:
		return c.ifStmt(n)
	case *ast.While:
		return c.whileStmt(n)
	case *ast.For:
		return c.forStmt(n)
	case *ast.Match:
		return c.matchStmt(n)
	default:
		return &Error{Pos: s.Pos(), Msg: fmt.Sprintf("unsupported statement %T", s)}
	}
}

// assign allocates a slot on the first occurrence of a name and stores
// into the existing slot afterwards; the stored type must not change.
func (c *Compiler) assign(n *ast.Assignment) error {
	switch v := n.Value.(type) {
	case *ast.List:
		return c.assignArray(n, v.Elements)
	case *ast.Tuple:
		return c.assignArray(n, v.Elements)
	}

	val, err := c.expr(n.Value)
	if err != nil {
		return err
	}

	if sym, ok := c.scope.lookup(n.Name); ok {
		if sym.arr != nil {
			return &Error{Pos: n.Position, Msg: fmt.Sprintf("cannot assign a scalar to list variable %q", n.Name)}
		}
		if !sym.typ.Equal(val.Type()) {
			return &Error{Pos: n.Position, Msg: fmt.Sprintf("type of %q changes from %v to %v on reassignment", n.Name, sym.typ, val.Type())}
		}
		c.block.NewStore(val, sym.ptr)
		return nil
	}

	slot := c.entryAlloca(val.Type())
	slot.SetName(n.Name)
	c.block.NewStore(val, slot)
	c.scope.define(n.Name, &symbol{ptr: slot, typ: val.Type()})
	return nil
}

// assignArray lowers a list/tuple literal into a stack array and binds
// the name to it, remembering element type and length.
func (c *Compiler) assignArray(n *ast.Assignment, elements []ast.Expr) error {
	arr, err := c.materializeArray(n.Position, elements)
	if err != nil {
		return err
	}

	if sym, ok := c.scope.lookup(n.Name); ok {
		if sym.arr == nil {
			return &Error{Pos: n.Position, Msg: fmt.Sprintf("cannot assign a list to scalar variable %q", n.Name)}
		}
		if !sym.arr.typ.Equal(arr.typ.ElemType) || sym.arr.length != arr.length {
			return &Error{Pos: n.Position, Msg: fmt.Sprintf("shape of list %q changes on reassignment", n.Name)}
		}
		// Same shape: copy element-wise into the existing slot.
		for i := int64(0); i < arr.length; i++ {
			idx := constant.NewInt(types.I64, i)
			src := c.block.NewGetElementPtr(arr.typ.ElemType, arr.ptr, constant.NewInt(types.I64, 0), idx)
			dst := c.block.NewGetElementPtr(sym.arr.typ, sym.ptr, constant.NewInt(types.I64, 0), idx)
			c.block.NewStore(c.block.NewLoad(arr.elem, src), dst)
		}
		return nil
	}

	c.scope.define(n.Name, &symbol{ptr: arr.ptr, typ: arr.elem, arr: &arrayInfo{typ: arr.typ.ElemType.(*types.ArrayType), elem: arr.elem, length: arr.length}})
	return nil
}

// materializedArray is a freshly allocated stack array.
type materializedArray struct {
	ptr    irvalue.Value
	typ    *types.PointerType
	elem   types.Type
	length int64
}

func (c *Compiler) materializeArray(pos lexer.Position, elements []ast.Expr) (*materializedArray, error) {
	if len(elements) == 0 {
		return nil, &Error{Pos: pos, Msg: "empty list literals have no element type"}
	}

	vals := make([]irvalue.Value, len(elements))
	for i, el := range elements {
		v, err := c.expr(el)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	elem := vals[0].Type()
	for i, v := range vals[1:] {
		if !v.Type().Equal(elem) {
			return nil, &Error{Pos: elements[i+1].Pos(), Msg: "list elements must share one type"}
		}
	}

	arrType := types.NewArray(uint64(len(vals)), elem)
	slot := c.entryAlloca(arrType)
	for i, v := range vals {
		dst := c.block.NewGetElementPtr(arrType, slot, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, int64(i)))
		c.block.NewStore(v, dst)
	}

	return &materializedArray{
		ptr:    slot,
		typ:    types.NewPointer(arrType),
		elem:   elem,
		length: int64(len(vals)),
	}, nil
}

func (c *Compiler) ret(n *ast.Return) error {
	if c.block.Term != nil {
		return &Error{Pos: n.Position, Msg: "internal: block already has a terminator"}
	}

	isEntry := c.fn.Name() == "main"

	if n.Value == nil {
		if isEntry {
			c.block.NewRet(constant.NewInt(types.I32, 0))
		} else {
			// Functions default to the scalar type, so a bare return
			// yields the default value rather than void.
			c.block.NewRet(constant.NewInt(types.I64, 0))
		}
	} else {
		val, err := c.expr(n.Value)
		if err != nil {
			return err
		}
		want := types.Type(types.I64)
		if isEntry {
			want = types.I32
		}
		coerced, err := c.coerce(n.Position, val, want)
		if err != nil {
			return err
		}
		c.block.NewRet(coerced)
	}

	// Statements after a return land in a dead block; finalize gives it
	// a terminator so the module stays structurally valid.
	c.block = c.newBlock("dead")
	return nil
}

// coerce converts a value to the wanted integer type; booleans widen,
// integers pass or truncate, anything else is a type error.
func (c *Compiler) coerce(pos lexer.Position, v irvalue.Value, want types.Type) (irvalue.Value, error) {
	if v.Type().Equal(want) {
		return v, nil
	}
	from, okFrom := v.Type().(*types.IntType)
	to, okTo := want.(*types.IntType)
	if okFrom && okTo {
		if from.BitSize < to.BitSize {
			return c.block.NewZExt(v, to), nil
		}
		return c.block.NewTrunc(v, to), nil
	}
	if v.Type().Equal(types.Double) && okTo {
		return c.block.NewFPToSI(v, to), nil
	}
	return nil, &Error{Pos: pos, Msg: fmt.Sprintf("cannot convert %v to %v", v.Type(), want)}
}

// ifStmt lowers each branch to a conditional branch between a then block
// and the next condition (or else); all paths converge on one shared
// continuation block.
func (c *Compiler) ifStmt(n *ast.If) error {
	end := c.newBlock("if.end")

	for i, br := range n.Branches {
		cond, err := c.truth(br.Condition)
		if err != nil {
			return err
		}

		then := c.newBlock("if.then")
		var next *ir.Block
		last := i == len(n.Branches)-1
		if last && len(n.Else) == 0 {
			next = end
		} else if last {
			next = c.newBlock("if.else")
		} else {
			next = c.newBlock("if.elif")
		}
		c.block.NewCondBr(cond, then, next)

		c.block = then
		if err := c.body(br.Body); err != nil {
			return err
		}
		if c.block.Term == nil {
			c.block.NewBr(end)
		}
		c.block = next
	}

	if len(n.Else) > 0 {
		if err := c.body(n.Else); err != nil {
			return err
		}
		if c.block.Term == nil {
			c.block.NewBr(end)
		}
		c.block = end
	}
	return nil
}

// whileStmt lowers to a header that re-evaluates the condition every
// iteration, a body branching back to the header, and an exit block. A
// condition that is false on entry branches straight to the exit.
func (c *Compiler) whileStmt(n *ast.While) error {
	header := c.newBlock("while.cond")
	body := c.newBlock("while.body")
	exit := c.newBlock("while.end")

	c.block.NewBr(header)

	c.block = header
	cond, err := c.truth(n.Condition)
	if err != nil {
		return err
	}
	c.block.NewCondBr(cond, body, exit)

	c.block = body
	if err := c.body(n.Body); err != nil {
		return err
	}
	if c.block.Term == nil {
		c.block.NewBr(header)
	}

	c.block = exit
	return nil
}

// forStmt lowers `for x in xs` to an index-counter loop over a stack
// array: init 0, loop while counter < length, bind the element, body,
// increment.
func (c *Compiler) forStmt(n *ast.For) error {
	base, arrType, elem, length, err := c.iterable(n)
	if err != nil {
		return err
	}

	counter := c.entryAlloca(types.I64)
	counter.SetName(n.Var + ".idx")
	c.block.NewStore(constant.NewInt(types.I64, 0), counter)

	// The loop variable is an ordinary local; reuse the slot when the
	// name already exists with a compatible type.
	var slot irvalue.Value
	if sym, ok := c.scope.lookup(n.Var); ok {
		if sym.arr != nil || !sym.typ.Equal(elem) {
			return &Error{Pos: n.Position, Msg: fmt.Sprintf("loop variable %q conflicts with an existing binding", n.Var)}
		}
		slot = sym.ptr
	} else {
		alloca := c.entryAlloca(elem)
		alloca.SetName(n.Var)
		slot = alloca
		c.scope.define(n.Var, &symbol{ptr: slot, typ: elem})
	}

	header := c.newBlock("for.cond")
	body := c.newBlock("for.body")
	exit := c.newBlock("for.end")

	c.block.NewBr(header)

	c.block = header
	idx := c.block.NewLoad(types.I64, counter)
	cond := c.block.NewICmp(enum.IPredSLT, idx, constant.NewInt(types.I64, length))
	c.block.NewCondBr(cond, body, exit)

	c.block = body
	cur := c.block.NewLoad(types.I64, counter)
	src := c.block.NewGetElementPtr(arrType, base, constant.NewInt(types.I64, 0), cur)
	c.block.NewStore(c.block.NewLoad(elem, src), slot)

	if err := c.body(n.Body); err != nil {
		return err
	}
	if c.block.Term == nil {
		next := c.block.NewAdd(c.block.NewLoad(types.I64, counter), constant.NewInt(types.I64, 1))
		c.block.NewStore(next, counter)
		c.block.NewBr(header)
	}

	c.block = exit
	return nil
}

// iterable resolves the for-loop source: a local bound to an array, or a
// list/tuple literal materialized in place. Anything else has no length
// or indexed access to loop over.
func (c *Compiler) iterable(n *ast.For) (irvalue.Value, *types.ArrayType, types.Type, int64, error) {
	switch it := n.Iterable.(type) {
	case *ast.Identifier:
		sym, ok := c.scope.lookup(it.Name)
		if !ok {
			return nil, nil, nil, 0, &Error{Pos: it.Position, Msg: fmt.Sprintf("undefined iterable %q", it.Name)}
		}
		if sym.arr == nil {
			return nil, nil, nil, 0, &Error{Pos: it.Position, Msg: fmt.Sprintf("%q is not a list or tuple", it.Name)}
		}
		return sym.ptr, sym.arr.typ, sym.arr.elem, sym.arr.length, nil
	case *ast.List:
		arr, err := c.materializeArray(it.Position, it.Elements)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		return arr.ptr, arr.typ.ElemType.(*types.ArrayType), arr.elem, arr.length, nil
	case *ast.Tuple:
		arr, err := c.materializeArray(it.Position, it.Elements)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		return arr.ptr, arr.typ.ElemType.(*types.ArrayType), arr.elem, arr.length, nil
	}
	return nil, nil, nil, 0, &Error{Pos: n.Iterable.Pos(), Msg: "for loop requires a list or tuple"}
}

// matchStmt lowers to an equality chain: each case compares the subject
// against its pattern, a bare `_` pattern is the unconditional default.
func (c *Compiler) matchStmt(n *ast.Match) error {
	subject, err := c.expr(n.Subject)
	if err != nil {
		return err
	}

	end := c.newBlock("match.end")

	for i, cs := range n.Cases {
		if id, ok := cs.Pattern.(*ast.Identifier); ok && id.Name == "_" {
			if err := c.body(cs.Body); err != nil {
				return err
			}
			if c.block.Term == nil {
				c.block.NewBr(end)
			}
			// Cases after the wildcard are unreachable.
			c.block = end
			return nil
		}

		pattern, err := c.expr(cs.Pattern)
		if err != nil {
			return err
		}
		cond, err := c.equal(cs.Pattern.Pos(), subject, pattern)
		if err != nil {
			return err
		}

		caseB := c.newBlock("match.case")
		var next *ir.Block
		if i == len(n.Cases)-1 {
			next = end
		} else {
			next = c.newBlock("match.next")
		}
		c.block.NewCondBr(cond, caseB, next)

		c.block = caseB
		if err := c.body(cs.Body); err != nil {
			return err
		}
		if c.block.Term == nil {
			c.block.NewBr(end)
		}
		c.block = next
	}

	c.block = end
	return nil
}

func (c *Compiler) body(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// Expressions.

func (c *Compiler) expr(e ast.Expr) (irvalue.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return c.literal(n)
	case *ast.Identifier:
		return c.identifier(n)
	case *ast.Binary:
		return c.binary(n)
	case *ast.Unary:
		return c.unary(n)
	case *ast.Call:
		return c.call(n)
	case *ast.Subscript:
		return c.subscript(n)
	case *ast.List, *ast.Tuple:
		return nil, &Error{Pos: e.Pos(), Msg: "list and tuple literals are only supported in assignments and for loops"}
	case *ast.Dict:
		return nil, &Error{Pos: e.Pos(), Msg: "dictionaries are not supported in compiled code"}
	case *ast.Attribute:
		return nil, &Error{Pos: e.Pos(), Msg: "attribute access is not supported in compiled code"}
	default:
		return nil, &Error{Pos: e.Pos(), Msg: fmt.Sprintf("unsupported expression %T", e)}
	}
}

func (c *Compiler) literal(n *ast.Literal) (irvalue.Value, error) {
	switch n.Value.Kind {
	case value.KindInt:
		return constant.NewInt(types.I64, n.Value.Int), nil
	case value.KindFloat:
		return constant.NewFloat(types.Double, n.Value.Float), nil
	case value.KindBool:
		return constant.NewBool(n.Value.Bool), nil
	case value.KindString:
		return c.internString(n.Value.Str), nil
	case value.KindNone:
		// None lowers to the sentinel zero of the scalar type.
		return constant.NewInt(types.I64, 0), nil
	default:
		return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("unknown literal kind %v", n.Value.Kind)}
	}
}

// identifier loads the local's slot; a name never assigned in the active
// scope resolves to the typed default instead of failing.
func (c *Compiler) identifier(n *ast.Identifier) (irvalue.Value, error) {
	sym, ok := c.scope.lookup(n.Name)
	if !ok {
		return constant.NewInt(types.I64, 0), nil
	}
	if sym.arr != nil {
		return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("list %q cannot be used as a scalar value", n.Name)}
	}
	return c.block.NewLoad(sym.typ, sym.ptr), nil
}

func (c *Compiler) binary(n *ast.Binary) (irvalue.Value, error) {
	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		return c.shortCircuit(n)
	}

	left, err := c.expr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.expr(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return c.compare(n.Position, n.Op, left, right)
	case ast.OpPow:
		return c.power(n.Position, left, right)
	default:
		return c.arith(n.Position, n.Op, left, right)
	}
}

// arith applies integer instructions unless either operand is a float,
// in which case both are promoted to double.
func (c *Compiler) arith(pos lexer.Position, op ast.BinaryOp, left, right irvalue.Value) (irvalue.Value, error) {
	if isFloat(left) || isFloat(right) {
		l, r, err := c.promotePair(pos, left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case ast.OpAdd:
			return c.block.NewFAdd(l, r), nil
		case ast.OpSub:
			return c.block.NewFSub(l, r), nil
		case ast.OpMul:
			return c.block.NewFMul(l, r), nil
		case ast.OpDiv:
			return c.block.NewFDiv(l, r), nil
		case ast.OpFloorDiv:
			return c.block.NewCall(c.floorFn(), c.block.NewFDiv(l, r)), nil
		case ast.OpMod:
			return c.block.NewFRem(l, r), nil
		}
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("operator %v is not defined for floats", op)}
	}

	l, err := c.intOperand(pos, left)
	if err != nil {
		return nil, err
	}
	r, err := c.intOperand(pos, right)
	if err != nil {
		return nil, err
	}
	switch op {
	case ast.OpAdd:
		return c.block.NewAdd(l, r), nil
	case ast.OpSub:
		return c.block.NewSub(l, r), nil
	case ast.OpMul:
		return c.block.NewMul(l, r), nil
	case ast.OpDiv, ast.OpFloorDiv:
		return c.block.NewSDiv(l, r), nil
	case ast.OpMod:
		return c.block.NewSRem(l, r), nil
	}
	return nil, &Error{Pos: pos, Msg: fmt.Sprintf("unsupported arithmetic operator %v", op)}
}

var intPreds = map[ast.BinaryOp]enum.IPred{
	ast.OpEq: enum.IPredEQ,
	ast.OpNe: enum.IPredNE,
	ast.OpLt: enum.IPredSLT,
	ast.OpLe: enum.IPredSLE,
	ast.OpGt: enum.IPredSGT,
	ast.OpGe: enum.IPredSGE,
}

var floatPreds = map[ast.BinaryOp]enum.FPred{
	ast.OpEq: enum.FPredOEQ,
	ast.OpNe: enum.FPredONE,
	ast.OpLt: enum.FPredOLT,
	ast.OpLe: enum.FPredOLE,
	ast.OpGt: enum.FPredOGT,
	ast.OpGe: enum.FPredOGE,
}

// compare yields an i1 from a typed comparison.
func (c *Compiler) compare(pos lexer.Position, op ast.BinaryOp, left, right irvalue.Value) (irvalue.Value, error) {
	if isString(left) || isString(right) {
		return nil, &Error{Pos: pos, Msg: "strings cannot be compared in compiled code"}
	}
	if isFloat(left) || isFloat(right) {
		l, r, err := c.promotePair(pos, left, right)
		if err != nil {
			return nil, err
		}
		return c.block.NewFCmp(floatPreds[op], l, r), nil
	}
	l, err := c.intOperand(pos, left)
	if err != nil {
		return nil, err
	}
	r, err := c.intOperand(pos, right)
	if err != nil {
		return nil, err
	}
	return c.block.NewICmp(intPreds[op], l, r), nil
}

func (c *Compiler) equal(pos lexer.Position, left, right irvalue.Value) (irvalue.Value, error) {
	return c.compare(pos, ast.OpEq, left, right)
}

// power always routes through llvm.pow.f64; integer operands convert in
// and truncate back out.
func (c *Compiler) power(pos lexer.Position, left, right irvalue.Value) (irvalue.Value, error) {
	bothInt := !isFloat(left) && !isFloat(right)
	l, r, err := c.promotePair(pos, left, right)
	if err != nil {
		return nil, err
	}
	res := c.block.NewCall(c.powFn(), l, r)
	if bothInt {
		return c.block.NewFPToSI(res, types.I64), nil
	}
	return res, nil
}

// shortCircuit lowers `and`/`or` as control flow so the right operand is
// only evaluated when the left does not already decide the result.
func (c *Compiler) shortCircuit(n *ast.Binary) (irvalue.Value, error) {
	left, err := c.expr(n.Left)
	if err != nil {
		return nil, err
	}
	lt, err := c.truthValue(n.Left.Pos(), left)
	if err != nil {
		return nil, err
	}

	entry := c.block
	rhs := c.newBlock("logic.rhs")
	end := c.newBlock("logic.end")

	var short constant.Constant
	if n.Op == ast.OpAnd {
		entry.NewCondBr(lt, rhs, end)
		short = constant.False
	} else {
		entry.NewCondBr(lt, end, rhs)
		short = constant.True
	}

	c.block = rhs
	right, err := c.expr(n.Right)
	if err != nil {
		return nil, err
	}
	rt, err := c.truthValue(n.Right.Pos(), right)
	if err != nil {
		return nil, err
	}
	rhsEnd := c.block
	rhsEnd.NewBr(end)

	c.block = end
	phi := end.NewPhi(ir.NewIncoming(short, entry), ir.NewIncoming(rt, rhsEnd))
	return phi, nil
}

func (c *Compiler) unary(n *ast.Unary) (irvalue.Value, error) {
	operand, err := c.expr(n.Operand)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpNot:
		t, err := c.truthValue(n.Position, operand)
		if err != nil {
			return nil, err
		}
		return c.block.NewXor(t, constant.True), nil
	case ast.OpNeg:
		if isFloat(operand) {
			return c.block.NewFNeg(operand), nil
		}
		v, err := c.intOperand(n.Position, operand)
		if err != nil {
			return nil, err
		}
		return c.block.NewSub(constant.NewInt(types.I64, 0), v), nil
	}
	return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("unsupported unary operator %v", n.Op)}
}

// call resolves the callee by name against builtins and declared
// functions; unknown names and arity mismatches are errors, not ignored.
func (c *Compiler) call(n *ast.Call) (irvalue.Value, error) {
	callee, ok := n.Callee.(*ast.Identifier)
	if !ok {
		return nil, &Error{Pos: n.Position, Msg: "callee must be a function name"}
	}

	if arity, ok := builtins[callee.Name]; ok {
		if len(n.Args) != arity {
			return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("%s expects %d argument(s), got %d", callee.Name, arity, len(n.Args))}
		}
		arg, err := c.expr(n.Args[0])
		if err != nil {
			return nil, err
		}
		return c.emitOut(n.Position, arg)
	}

	info, ok := c.funcs[callee.Name]
	if !ok {
		return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("unknown function %q", callee.Name)}
	}
	if len(n.Args) != info.arity {
		return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("function %q expects %d argument(s), got %d", callee.Name, info.arity, len(n.Args))}
	}

	args := make([]irvalue.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := c.expr(a)
		if err != nil {
			return nil, err
		}
		if isString(v) || isFloat(v) {
			return nil, &Error{Pos: a.Pos(), Msg: fmt.Sprintf("argument %d of %q must be an integer", i+1, callee.Name)}
		}
		coerced, err := c.coerce(a.Pos(), v, types.I64)
		if err != nil {
			return nil, err
		}
		args[i] = coerced
	}
	return c.block.NewCall(info.fn, args...), nil
}

// emitOut prints one value through the variadic printf external with a
// per-type format string.
func (c *Compiler) emitOut(pos lexer.Position, arg irvalue.Value) (irvalue.Value, error) {
	switch {
	case isString(arg):
		return c.block.NewCall(c.printf, c.internString("%s\n"), arg), nil
	case isFloat(arg):
		return c.block.NewCall(c.printf, c.internString("%g\n"), arg), nil
	case isBool(arg):
		// i1 is not a legal vararg; widen first.
		return c.block.NewCall(c.printf, c.internString("%d\n"), c.block.NewZExt(arg, types.I32)), nil
	default:
		return c.block.NewCall(c.printf, c.internString("%lld\n"), arg), nil
	}
}

func (c *Compiler) subscript(n *ast.Subscript) (irvalue.Value, error) {
	id, ok := n.Object.(*ast.Identifier)
	if !ok {
		return nil, &Error{Pos: n.Position, Msg: "subscript requires a named list or tuple"}
	}
	sym, ok := c.scope.lookup(id.Name)
	if !ok || sym.arr == nil {
		return nil, &Error{Pos: n.Position, Msg: fmt.Sprintf("%q is not a list or tuple", id.Name)}
	}

	idx, err := c.expr(n.Index)
	if err != nil {
		return nil, err
	}
	idx, err = c.intOperand(n.Index.Pos(), idx)
	if err != nil {
		return nil, err
	}

	ptr := c.block.NewGetElementPtr(sym.arr.typ, sym.ptr, constant.NewInt(types.I64, 0), idx)
	return c.block.NewLoad(sym.arr.elem, ptr), nil
}

// Helpers.

// truth lowers an expression and converts it to an i1.
func (c *Compiler) truth(e ast.Expr) (irvalue.Value, error) {
	v, err := c.expr(e)
	if err != nil {
		return nil, err
	}
	return c.truthValue(e.Pos(), v)
}

// truthValue converts a scalar to its truthiness: booleans pass, numbers
// compare against zero, strings against the null pointer.
func (c *Compiler) truthValue(pos lexer.Position, v irvalue.Value) (irvalue.Value, error) {
	switch t := v.Type().(type) {
	case *types.IntType:
		if t.BitSize == 1 {
			return v, nil
		}
		return c.block.NewICmp(enum.IPredNE, v, constant.NewInt(t, 0)), nil
	case *types.FloatType:
		return c.block.NewFCmp(enum.FPredONE, v, constant.NewFloat(types.Double, 0)), nil
	case *types.PointerType:
		return c.block.NewICmp(enum.IPredNE, v, constant.NewNull(t)), nil
	}
	return nil, &Error{Pos: pos, Msg: fmt.Sprintf("value of type %v has no truth value", v.Type())}
}

// intOperand widens i1 to i64 and passes i64 through.
func (c *Compiler) intOperand(pos lexer.Position, v irvalue.Value) (irvalue.Value, error) {
	t, ok := v.Type().(*types.IntType)
	if !ok {
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("expected an integer, got %v", v.Type())}
	}
	if t.BitSize == 1 {
		return c.block.NewZExt(v, types.I64), nil
	}
	return v, nil
}

// promotePair converts both operands to double.
func (c *Compiler) promotePair(pos lexer.Position, left, right irvalue.Value) (irvalue.Value, irvalue.Value, error) {
	l, err := c.toFloat(pos, left)
	if err != nil {
		return nil, nil, err
	}
	r, err := c.toFloat(pos, right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (c *Compiler) toFloat(pos lexer.Position, v irvalue.Value) (irvalue.Value, error) {
	if isFloat(v) {
		return v, nil
	}
	iv, err := c.intOperand(pos, v)
	if err != nil {
		return nil, err
	}
	return c.block.NewSIToFP(iv, types.Double), nil
}

func (c *Compiler) powFn() *ir.Func {
	if c.pow == nil {
		c.pow = c.module.NewFunc("llvm.pow.f64", types.Double,
			ir.NewParam("", types.Double), ir.NewParam("", types.Double))
	}
	return c.pow
}

func (c *Compiler) floorFn() *ir.Func {
	if c.floor == nil {
		c.floor = c.module.NewFunc("llvm.floor.f64", types.Double,
			ir.NewParam("", types.Double))
	}
	return c.floor
}

// internString returns an i8* to a module-level NUL-terminated constant,
// one global per distinct content.
func (c *Compiler) internString(s string) constant.Constant {
	if ptr, ok := c.strings[s]; ok {
		return ptr
	}
	data := constant.NewCharArrayFromString(s + "\x00")
	g := c.module.NewGlobalDef(fmt.Sprintf(".str.%d", len(c.strings)), data)
	g.Immutable = true
	g.Linkage = enum.LinkagePrivate
	zero := constant.NewInt(types.I32, 0)
	ptr := constant.NewGetElementPtr(data.Typ, g, zero, zero)
	c.strings[s] = ptr
	return ptr
}

func isFloat(v irvalue.Value) bool {
	_, ok := v.Type().(*types.FloatType)
	return ok
}

func isString(v irvalue.Value) bool {
	_, ok := v.Type().(*types.PointerType)
	return ok
}

func isBool(v irvalue.Value) bool {
	t, ok := v.Type().(*types.IntType)
	return ok && t.BitSize == 1
}
