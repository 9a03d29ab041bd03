package emitter

import (
	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/analyzer"
	"github.com/pannous/wasp/internal/compilectx"
	"github.com/pannous/wasp/internal/wasm"
	"github.com/pannous/wasp/internal/wasm/binary"
)

// EmitNode emits n in node mode, leaving a `ref $Node` (anyref at the
// signature boundary) on the stack, per spec.md §4.5.1.
func (fc *FuncCompiler) EmitNode(n *ast.Node) {
	n = n.DropMeta()
	if n == nil {
		fc.e.call(fc.b, "new_empty")
		return
	}
	switch n.Kind {
	case ast.Empty:
		fc.e.call(fc.b, "new_empty")
	case ast.Int, ast.Int32:
		fc.b.I64Const(n.Int)
		fc.e.call(fc.b, "new_int")
	case ast.Float, ast.Float32:
		fc.b.F64Const(n.Float)
		fc.e.call(fc.b, "new_float")
	case ast.Codepoint:
		fc.b.I32Const(int32(n.Codepoint))
		fc.e.call(fc.b, "new_codepoint")
	case ast.Text:
		fc.emitStringLiteral(n.Text, "new_text")
	case ast.Symbol:
		fc.emitStringLiteral(n.Text, "new_symbol")
	case ast.List:
		fc.emitListNode(n)
	case ast.Block:
		fc.emitBlockNode(n)
	case ast.TypeDef:
		fc.emitStringLiteral(n.TypeName, "new_symbol")
		fc.e.call(fc.b, "new_empty")
		fc.e.call(fc.b, "new_type")
	case ast.KeyKind:
		fc.emitKeyNode(n)
	case ast.ErrorKind:
		// Error(inner) is non-fatal: the inner payload becomes the data
		// of a Node whose kind is Error.
		fc.b.I64Const(kindTag(ast.ErrorKind))
		fc.EmitNode(n.ErrorInner)
		fc.b.RefNull(int64(fc.e.Types.NodeType()))
		fc.b.StructNew(fc.e.Types.NodeType())
	default:
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
}

func (fc *FuncCompiler) emitStringLiteral(s, ctor string) {
	entry := fc.e.Strings.Allocate(s)
	fc.b.I32Const(int32(entry.Offset))
	fc.b.I32Const(int32(entry.Length))
	fc.e.call(fc.b, ctor)
}

// emitBlockNode emits a curly-brace block by peeling one level: a
// single-item Block evaluates to its one item; a multi-item Block is
// the statement-sequence form (spec.md §4.5.3's if/while body
// peeling, generalized to any Block value position).
func (fc *FuncCompiler) emitBlockNode(n *ast.Node) {
	// Function definitions are hoisted and compiled separately by
	// CompileUserFunctions's two-pass pipeline; encountering one inline
	// in a statement sequence must be a no-op rather than re-emitted.
	items := nonDefinitionItems(n.Items)
	if len(items) == 0 {
		fc.e.call(fc.b, "new_empty")
		return
	}
	for i := 0; i < len(items)-1; i++ {
		fc.EmitNode(&items[i])
		fc.b.Drop()
	}
	fc.EmitNode(&items[len(items)-1])
}

// EmitRaw emits n as a raw WebAssembly primitive (i64 or f64),
// applying spec.md §4.5.1's promotion rules, and returns which kind
// ended up on the stack so the caller can coerce further.
func (fc *FuncCompiler) EmitRaw(n *ast.Node) ast.Kind {
	n = n.DropMeta()
	if n == nil {
		fc.b.I64Const(0)
		return ast.Int
	}
	switch n.Kind {
	case ast.Int, ast.Int32:
		fc.b.I64Const(n.Int)
		return ast.Int
	case ast.Float, ast.Float32:
		fc.b.F64Const(n.Float)
		return ast.Float
	case ast.Symbol:
		return fc.emitSymbolRaw(n.Text)
	case ast.Empty:
		fc.b.I64Const(0)
		return ast.Int
	case ast.KeyKind:
		return fc.emitKeyRaw(n)
	case ast.List:
		return fc.emitListRaw(n)
	default:
		// Reference-producing shapes (Text, Symbol-as-literal handled
		// above, Block, TypeDef) are not arithmetic operands; box then
		// unbox through get_int_value as a defined fallback.
		fc.EmitNode(n)
		fc.e.call(fc.b, "get_int_value")
		return ast.Int
	}
}

func (fc *FuncCompiler) emitSymbolRaw(name string) ast.Kind {
	if l, ok := fc.scope.Lookup(name); ok {
		fc.b.LocalGet(l.Position)
		if l.Kind.IsFloat() {
			return ast.Float
		}
		return ast.Int
	}
	if g, ok := fc.e.Ctx.LookupGlobal(name); ok {
		fc.b.GlobalGet(g.Index)
		if g.Kind.IsFloat() {
			return ast.Float
		}
		return ast.Int
	}
	panic(&UndefinedSymbolError{Name: name})
}

// emitCoerced emits n's raw value coerced to target (Int or Float).
func (fc *FuncCompiler) emitCoerced(n *ast.Node, target ast.Kind) {
	actual := fc.EmitRaw(n)
	if actual == target {
		return
	}
	if target == ast.Float {
		fc.b.Op0(binary.OpcodeF64ConvertI64S)
	} else {
		fc.b.Op0(binary.OpcodeI64TruncF64S)
	}
}

func (fc *FuncCompiler) emitKeyRaw(n *ast.Node) ast.Kind {
	switch {
	case n.Op.IsArithmetic():
		return fc.emitArithRaw(n)
	case n.Op.IsComparison():
		fc.emitComparisonRaw(n)
		return ast.Int
	case n.Op.IsLogical():
		fc.emitLogicalRaw(n)
		return ast.Int
	case n.Op == ast.OpAssign || n.Op == ast.OpDefine:
		return fc.emitScalarAssign(n)
	case n.Op.IsCompoundAssign():
		return fc.emitCompoundAssign(n)
	case n.Op == ast.OpInc || n.Op == ast.OpDec:
		return fc.emitIncDec(n)
	case n.Op == ast.OpNeg:
		if analyzer.InferType(n.Left, fc.scope) == ast.Float {
			fc.emitCoerced(n.Left, ast.Float)
			fc.b.Op0(binary.OpcodeF64Neg)
			return ast.Float
		}
		fc.b.I64Const(0)
		fc.emitCoerced(n.Left, ast.Int)
		fc.b.Op0(binary.OpcodeI64Sub)
		return ast.Int
	case n.Op == ast.OpSqrt:
		fc.emitCoerced(n.Left, ast.Float)
		fc.b.Op0(binary.OpcodeF64Sqrt)
		return ast.Float
	case n.Op == ast.OpNorm:
		if analyzer.InferType(n.Left, fc.scope) == ast.Float {
			fc.emitCoerced(n.Left, ast.Float)
			fc.b.Op0(binary.OpcodeF64Abs)
			return ast.Float
		}
		// Scalar integer norm: ‖x‖ = x < 0 ? -x : x.
		fc.emitCoerced(n.Left, ast.Int)
		fc.b.I64Const(0)
		fc.b.Op0(binary.OpcodeI64LtS)
		fc.b.BlockResult(binary.OpcodeIf, wasm.ValueTypeI64)
		fc.b.I64Const(0)
		fc.emitCoerced(n.Left, ast.Int)
		fc.b.Op0(binary.OpcodeI64Sub)
		fc.b.Else()
		fc.emitCoerced(n.Left, ast.Int)
		fc.b.End()
		return ast.Int
	case n.Op == ast.OpSquare:
		k := fc.EmitRaw(n.Left)
		fc.emitRepeatMul(n.Left, k, 1)
		return k
	case n.Op == ast.OpCube:
		k := fc.EmitRaw(n.Left)
		fc.emitRepeatMul(n.Left, k, 2)
		return k
	case n.Op == ast.OpIf:
		return fc.emitIfRaw(n)
	case n.Op == ast.OpWhile:
		return fc.emitWhileRaw(n)
	case n.Op == ast.OpTernaryElse:
		return fc.emitTernaryRaw(n)
	default:
		fc.EmitNode(n)
		fc.e.call(fc.b, "get_int_value")
		return ast.Int
	}
}

// emitRepeatMul emits (extra) additional multiplications of n's
// already-on-stack value by freshly re-evaluated copies of n, used for
// the suffix square/cube operators (spec.md §4.5.3: "emit operand
// twice/thrice and multiply").
func (fc *FuncCompiler) emitRepeatMul(operand *ast.Node, kind ast.Kind, extra int) {
	for i := 0; i < extra; i++ {
		fc.emitCoerced(operand, kind)
		if kind == ast.Float {
			fc.b.Op0(binary.OpcodeF64Mul)
		} else {
			fc.b.Op0(binary.OpcodeI64Mul)
		}
	}
}

func (fc *FuncCompiler) emitArithRaw(n *ast.Node) ast.Kind {
	switch n.Op {
	case ast.OpMod:
		// Open question resolved: Mod always operates on the truncated
		// integral value, even in an otherwise-float expression.
		fc.emitCoerced(n.Left, ast.Int)
		fc.emitCoerced(n.Right, ast.Int)
		fc.b.Op0(binary.OpcodeI64RemS)
		return ast.Int
	case ast.OpPow:
		// Open question resolved: Pow always routes through i64_pow.
		fc.emitCoerced(n.Left, ast.Int)
		fc.emitCoerced(n.Right, ast.Int)
		fc.e.call(fc.b, "i64_pow")
		return ast.Int
	}

	promote := n.Op == ast.OpDiv ||
		analyzer.InferType(n.Left, fc.scope) == ast.Float ||
		analyzer.InferType(n.Right, fc.scope) == ast.Float

	target := ast.Int
	if promote {
		target = ast.Float
	}
	fc.emitCoerced(n.Left, target)
	fc.emitCoerced(n.Right, target)

	if target == ast.Float {
		switch n.Op {
		case ast.OpAdd:
			fc.b.Op0(binary.OpcodeF64Add)
		case ast.OpSub:
			fc.b.Op0(binary.OpcodeF64Sub)
		case ast.OpMul:
			fc.b.Op0(binary.OpcodeF64Mul)
		case ast.OpDiv:
			fc.b.Op0(binary.OpcodeF64Div)
		}
		return ast.Float
	}
	switch n.Op {
	case ast.OpAdd:
		fc.b.Op0(binary.OpcodeI64Add)
	case ast.OpSub:
		fc.b.Op0(binary.OpcodeI64Sub)
	case ast.OpMul:
		fc.b.Op0(binary.OpcodeI64Mul)
	}
	return ast.Int
}

func (fc *FuncCompiler) emitComparisonRaw(n *ast.Node) {
	target := ast.Int
	if analyzer.InferType(n.Left, fc.scope) == ast.Float || analyzer.InferType(n.Right, fc.scope) == ast.Float {
		target = ast.Float
	}
	fc.emitCoerced(n.Left, target)
	fc.emitCoerced(n.Right, target)

	var op binary.Opcode
	if target == ast.Float {
		switch n.Op {
		case ast.OpEq:
			op = binary.OpcodeF64Eq
		case ast.OpNeq:
			op = binary.OpcodeF64Ne
		case ast.OpLt:
			op = binary.OpcodeF64Lt
		case ast.OpLte:
			op = binary.OpcodeF64Le
		case ast.OpGt:
			op = binary.OpcodeF64Gt
		case ast.OpGte:
			op = binary.OpcodeF64Ge
		}
	} else {
		switch n.Op {
		case ast.OpEq:
			op = binary.OpcodeI64Eq
		case ast.OpNeq:
			op = binary.OpcodeI64Ne
		case ast.OpLt:
			op = binary.OpcodeI64LtS
		case ast.OpLte:
			op = binary.OpcodeI64LeS
		case ast.OpGt:
			op = binary.OpcodeI64GtS
		case ast.OpGte:
			op = binary.OpcodeI64GeS
		}
	}
	fc.b.Op0(op)
	fc.b.Op0(binary.OpcodeI64ExtendI32S)
}

// emitLogicalRaw implements and/or/not over numeric operands via
// short-circuiting (spec.md §4.5.3's numeric branch of and/or).
func (fc *FuncCompiler) emitLogicalRaw(n *ast.Node) {
	switch n.Op {
	case ast.OpNot:
		fc.EmitRaw(n.Left)
		fc.b.Op0(binary.OpcodeI64Eqz)
		fc.b.Op0(binary.OpcodeI64ExtendI32S)
	case ast.OpAnd:
		fc.EmitRaw(n.Left)
		fc.b.Op0(binary.OpcodeI64Eqz)
		fc.b.Op0(binary.OpcodeI32Eqz)
		fc.b.BlockResult(binary.OpcodeIf, wasm.ValueTypeI64)
		fc.emitCoerced(n.Right, ast.Int)
		fc.b.Else()
		fc.b.I64Const(0)
		fc.b.End()
	case ast.OpOr:
		fc.EmitRaw(n.Left)
		fc.b.Op0(binary.OpcodeI64Eqz)
		fc.b.Op0(binary.OpcodeI32Eqz)
		fc.b.BlockResult(binary.OpcodeIf, wasm.ValueTypeI64)
		fc.b.I64Const(1)
		fc.b.Else()
		fc.emitCoerced(n.Right, ast.Int)
		fc.b.End()
	}
}

// emitScalarAssign implements `name := v` / `name = v` for a scalar
// (numeric) right-hand side: emit the value, local.tee so the
// assignment itself evaluates to the stored value.
func (fc *FuncCompiler) emitScalarAssign(n *ast.Node) ast.Kind {
	left := n.Left.DropMeta()
	if left == nil || left.Kind != ast.Symbol {
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
	name := left.Text

	if l, ok := fc.scope.Lookup(name); ok {
		k := fc.emitCoercedToLocalKind(n.Right, l.Kind)
		fc.b.LocalTee(l.Position)
		return k
	}
	if n.Op == ast.OpAssign && fc.allowGlobals {
		kind := analyzer.InferType(n.Right, fc.scope)
		if kind == ast.Empty {
			kind = ast.Int
		}
		k := fc.emitCoercedToKind(n.Right, kind)
		valType := wasm.ValueTypeI64
		if kind == ast.Float {
			valType = wasm.ValueTypeF64
		}
		idx := fc.e.Module.AddGlobal(wasm.Global{Type: wasm.GlobalType{ValType: valType, Mutable: true}})
		fc.e.Ctx.DeclareGlobal(name, compilectx.Global{Index: idx, Kind: kind})
		fc.b.GlobalSet(idx)
		fc.b.GlobalGet(idx)
		return k
	}
	// Not pre-declared and globals aren't allowed here: declare a new
	// local on the fly, appending past every local collect_variables
	// already reserved.
	kind := analyzer.InferType(n.Right, fc.scope)
	if kind == ast.Empty {
		kind = ast.Int
	}
	pos := uint32(len(fc.scope.Names()))
	l := fc.scope.Declare(name, pos, kind)
	k := fc.emitCoercedToLocalKind(n.Right, l.Kind)
	fc.b.LocalTee(l.Position)
	return k
}

func (fc *FuncCompiler) emitCoercedToLocalKind(n *ast.Node, k ast.Kind) ast.Kind {
	target := ast.Int
	if k.IsFloat() {
		target = ast.Float
	}
	fc.emitCoerced(n, target)
	return target
}

func (fc *FuncCompiler) emitCoercedToKind(n *ast.Node, k ast.Kind) ast.Kind {
	return fc.emitCoercedToLocalKind(n, k)
}

// emitCompoundAssign implements `name += v` and friends: read the
// local, emit rhs, apply the operator, store, tee.
func (fc *FuncCompiler) emitCompoundAssign(n *ast.Node) ast.Kind {
	left := n.Left.DropMeta()
	if left == nil || left.Kind != ast.Symbol {
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
	l, ok := fc.scope.Lookup(left.Text)
	if !ok {
		panic(&UndefinedSymbolError{Name: left.Text})
	}
	isFloat := l.Kind.IsFloat()

	fc.b.LocalGet(l.Position)
	if isFloat {
		fc.emitCoerced(n.Right, ast.Float)
	} else {
		fc.emitCoerced(n.Right, ast.Int)
	}

	switch n.Op {
	case ast.OpAddAssign:
		if isFloat {
			fc.b.Op0(binary.OpcodeF64Add)
		} else {
			fc.b.Op0(binary.OpcodeI64Add)
		}
	case ast.OpSubAssign:
		if isFloat {
			fc.b.Op0(binary.OpcodeF64Sub)
		} else {
			fc.b.Op0(binary.OpcodeI64Sub)
		}
	case ast.OpMulAssign:
		if isFloat {
			fc.b.Op0(binary.OpcodeF64Mul)
		} else {
			fc.b.Op0(binary.OpcodeI64Mul)
		}
	case ast.OpDivAssign:
		if isFloat {
			fc.b.Op0(binary.OpcodeF64Div)
		} else {
			fc.b.Op0(binary.OpcodeI64DivS)
		}
	case ast.OpModAssign:
		fc.b.Op0(binary.OpcodeI64RemS)
	}
	fc.b.LocalTee(l.Position)
	if isFloat {
		return ast.Float
	}
	return ast.Int
}

// emitIncDec implements `i++`/`i--`: read the local, add/subtract the
// literal 1 in the local's own numeric domain, store, tee — the same
// read-modify-write shape as emitCompoundAssign but with an implicit
// rhs of 1 rather than an explicit operand node.
func (fc *FuncCompiler) emitIncDec(n *ast.Node) ast.Kind {
	left := n.Left.DropMeta()
	if left == nil || left.Kind != ast.Symbol {
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
	l, ok := fc.scope.Lookup(left.Text)
	if !ok {
		panic(&UndefinedSymbolError{Name: left.Text})
	}
	isFloat := l.Kind.IsFloat()

	fc.b.LocalGet(l.Position)
	if isFloat {
		fc.b.F64Const(1)
	} else {
		fc.b.I64Const(1)
	}
	switch {
	case n.Op == ast.OpInc && isFloat:
		fc.b.Op0(binary.OpcodeF64Add)
	case n.Op == ast.OpInc:
		fc.b.Op0(binary.OpcodeI64Add)
	case isFloat:
		fc.b.Op0(binary.OpcodeF64Sub)
	default:
		fc.b.Op0(binary.OpcodeI64Sub)
	}
	fc.b.LocalTee(l.Position)
	if isFloat {
		return ast.Float
	}
	return ast.Int
}

// emitIfRaw implements `if cond then body [else body]` in numeric
// mode: both branches emit raw i64.
func (fc *FuncCompiler) emitIfRaw(n *ast.Node) ast.Kind {
	thenElse := n.Right // Key(then, Op=Then/Else structure) — see unpackIf
	cond, thenBody, elseBody := unpackIf(n, thenElse)

	fc.emitCoerced(cond, ast.Int)
	fc.b.Op0(binary.OpcodeI32WrapI64)
	fc.b.BlockResult(binary.OpcodeIf, wasm.ValueTypeI64)
	peelAndEmitRaw(fc, thenBody)
	fc.b.Else()
	if elseBody != nil {
		peelAndEmitRaw(fc, elseBody)
	} else {
		fc.b.I64Const(0)
	}
	fc.b.End()
	return ast.Int
}

func peelAndEmitRaw(fc *FuncCompiler, n *ast.Node) {
	b := n.DropMeta()
	if b != nil && b.Kind == ast.Block {
		fc.emitBlockRaw(b)
		return
	}
	fc.emitCoerced(n, ast.Int)
}

func (fc *FuncCompiler) emitBlockRaw(n *ast.Node) {
	if len(n.Items) == 0 {
		fc.b.I64Const(0)
		return
	}
	for i := 0; i < len(n.Items)-1; i++ {
		fc.EmitRaw(&n.Items[i])
		fc.b.Drop()
	}
	fc.emitCoerced(&n.Items[len(n.Items)-1], ast.Int)
}

// unpackIf recovers (cond, then, else) from the If key's right-hand
// Then/Else structure. The parser nests as Key(cond, If, Key(then,
// Then, Key(elseBody, Else, nil))) in this core's grammar; absent an
// else arm, the Then node's right side is nil.
func unpackIf(n *ast.Node, _ *ast.Node) (cond, thenBody, elseBody *ast.Node) {
	cond = n.Left
	thenKey := n.Right.DropMeta()
	if thenKey == nil {
		return cond, nil, nil
	}
	thenBody = thenKey.Left
	if thenKey.Right != nil {
		elseKey := thenKey.Right.DropMeta()
		if elseKey != nil {
			elseBody = elseKey.Left
		}
	}
	return cond, thenBody, elseBody
}

// emitWhileRaw implements `while cond do body` in numeric mode,
// exactly as spec.md §4.5.3 describes: a scratch local holds the last
// body value.
func (fc *FuncCompiler) emitWhileRaw(n *ast.Node) ast.Kind {
	doKey := n.Right.DropMeta()
	var body *ast.Node
	if doKey != nil {
		body = doKey.Left
	}
	scratch := fc.scope.Declare(whileScratchName(), uint32(len(fc.scope.Names())), ast.Int).Position

	fc.b.I64Const(0)
	fc.b.LocalSet(scratch)

	fc.b.BlockVoid(binary.OpcodeBlock)
	fc.b.BlockVoid(binary.OpcodeLoop)
	fc.emitCoerced(n.Left, ast.Int)
	fc.b.Op0(binary.OpcodeI32WrapI64)
	fc.b.Op0(binary.OpcodeI32Eqz)
	fc.b.BrIf(1)
	if body != nil {
		peelAndEmitRaw(fc, body)
	} else {
		fc.b.I64Const(0)
	}
	fc.b.LocalSet(scratch)
	fc.b.Br(0)
	fc.b.End()
	fc.b.End()

	fc.b.LocalGet(scratch)
	return ast.Int
}

var whileScratchCounter int

func whileScratchName() string {
	whileScratchCounter++
	return "$while_scratch_" + itoa(whileScratchCounter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// emitTernaryRaw implements `cond ? then : else` in numeric mode.
func (fc *FuncCompiler) emitTernaryRaw(n *ast.Node) ast.Kind {
	condKey := n.Left.DropMeta()
	cond := condKey.Left
	thenExpr := condKey.Right
	elseExpr := n.Right

	fc.emitCoerced(cond, ast.Int)
	fc.b.Op0(binary.OpcodeI32WrapI64)
	fc.b.BlockResult(binary.OpcodeIf, wasm.ValueTypeI64)
	fc.emitCoerced(thenExpr, ast.Int)
	fc.b.Else()
	fc.emitCoerced(elseExpr, ast.Int)
	fc.b.End()
	return ast.Int
}
