package emitter

import (
	"strconv"

	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/analyzer"
	"github.com/pannous/wasp/internal/compilectx"
	"github.com/pannous/wasp/internal/funcreg"
	"github.com/pannous/wasp/internal/wasm"
	"github.com/pannous/wasp/internal/wasm/binary"
)

// emitKeyNode is EmitNode's dispatch for KeyKind nodes (spec.md
// §4.5.3): control flow, assignment, member access, indexing, casts,
// and ranges all produce a boxed `ref $Node` here, unlike emitKeyRaw's
// numeric-primitive twin.
func (fc *FuncCompiler) emitKeyNode(n *ast.Node) {
	switch {
	case n.Op.IsArithmetic(), n.Op.IsComparison(), n.Op.IsLogical():
		fc.emitBoxedRaw(n)
	case n.Op == ast.OpAssign || n.Op == ast.OpDefine:
		fc.emitAssignNode(n)
	case n.Op.IsCompoundAssign():
		k := fc.emitCompoundAssign(n)
		fc.boxRawOnStack(k)
	case n.Op == ast.OpInc || n.Op == ast.OpDec:
		k := fc.emitIncDec(n)
		fc.boxRawOnStack(k)
	case n.Op == ast.OpIndexSet:
		fc.emitIndexSetNode(n)
	case n.Op == ast.OpIndex:
		fc.emitIndexGetNode(n)
	case n.Op == ast.OpIf:
		fc.emitIfNode(n)
	case n.Op == ast.OpWhile:
		fc.emitWhileNode(n)
	case n.Op == ast.OpTernaryElse:
		fc.emitTernaryNode(n)
	case n.Op == ast.OpDot:
		fc.emitDotNode(n)
	case n.Op == ast.OpAs:
		fc.emitAsNode(n)
	case n.Op == ast.OpRangeExclusive, n.Op == ast.OpRangeInclusive:
		fc.emitRangeNode(n)
	case n.Op.IsPrefix(), n.Op.IsSuffix():
		fc.emitBoxedRaw(n)
	default:
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
}

// emitBoxedRaw evaluates n in raw mode and boxes the result, the
// standard path for any Key whose value is fundamentally numeric.
func (fc *FuncCompiler) emitBoxedRaw(n *ast.Node) {
	k := fc.EmitRaw(n)
	fc.boxRawOnStack(k)
}

// boxRawOnStack wraps the i64 or f64 already on the stack into a
// Node, per kind.
func (fc *FuncCompiler) boxRawOnStack(k ast.Kind) {
	if k == ast.Float {
		fc.e.call(fc.b, "new_float")
	} else {
		fc.e.call(fc.b, "new_int")
	}
}

func (fc *FuncCompiler) emitAssignNode(n *ast.Node) {
	left := n.Left.DropMeta()
	if left == nil || left.Kind != ast.Symbol {
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
	name := left.Text
	rhsKind := analyzer.InferType(n.Right, fc.scope)

	if rhsKind.IsRef() {
		fc.emitAssignRefNode(n, name, rhsKind)
		return
	}
	k := fc.emitScalarAssign(n)
	fc.boxRawOnStack(k)
}

// emitAssignRefNode handles assignment of a reference-kind value
// (Text, Symbol, List, ...) which has no raw representation: the
// local (or global) itself must hold `ref null $Node`.
func (fc *FuncCompiler) emitAssignRefNode(n *ast.Node, name string, kind ast.Kind) {
	if l, ok := fc.scope.Lookup(name); ok {
		fc.EmitNode(n.Right)
		fc.b.LocalTee(l.Position)
		fc.recordStringAssign(name, n.Right)
		return
	}
	if n.Op == ast.OpAssign && fc.allowGlobals {
		idx := fc.e.Module.AddGlobal(wasm.Global{
			Type: wasm.GlobalType{ValType: wasm.ValueTypeAnyref, Mutable: true, RefHeap: &wasm.RefType{Heap: wasm.HeapTypeAny, Nullable: true}},
		})
		fc.e.Ctx.DeclareGlobal(name, compilectx.Global{Index: idx, Kind: kind})
		fc.EmitNode(n.Right)
		fc.b.GlobalSet(idx)
		fc.b.GlobalGet(idx)
		return
	}
	pos := uint32(len(fc.scope.Names()))
	l := fc.scope.Declare(name, pos, kind)
	fc.EmitNode(n.Right)
	fc.b.LocalTee(l.Position)
	fc.recordStringAssign(name, n.Right)
}

// recordStringAssign notes name's (ptr,len) in scope when rhs is a
// Text literal, so a later `puts(name)` can resolve it at compile
// time without re-deriving the value (spec.md §3.4).
func (fc *FuncCompiler) recordStringAssign(name string, rhs *ast.Node) {
	p := rhs.DropMeta()
	if p == nil || p.Kind != ast.Text {
		return
	}
	entry := fc.e.Strings.Allocate(p.Text)
	fc.scope.SetStringData(name, entry.Offset, entry.Length)
}

func (fc *FuncCompiler) emitIndexSetNode(n *ast.Node) {
	// Key(Key(collection, Index, index), IndexSet, value)
	target := n.Left.DropMeta()
	fc.EmitNode(target.Left)
	fc.emitCoerced(target.Right, ast.Int)
	fc.emitCoerced(n.Right, ast.Int)
	fc.e.call(fc.b, "node_set_at")
	fc.boxRawOnStack(ast.Int)
}

func (fc *FuncCompiler) emitIndexGetNode(n *ast.Node) {
	fc.EmitNode(n.Left)
	fc.emitCoerced(n.Right, ast.Int)
	fc.e.call(fc.b, "node_index_at")
}

func (fc *FuncCompiler) emitIfNode(n *ast.Node) {
	cond, thenBody, elseBody := unpackIf(n, n.Right)
	fc.emitCoerced(cond, ast.Int)
	fc.b.Op0(binary.OpcodeI32WrapI64)
	fc.b.BlockResultRef(binary.OpcodeIf, fc.e.Types.NodeType(), true)
	peelAndEmitNode(fc, thenBody)
	fc.b.Else()
	if elseBody != nil {
		peelAndEmitNode(fc, elseBody)
	} else {
		fc.e.call(fc.b, "new_empty")
	}
	fc.b.End()
}

func peelAndEmitNode(fc *FuncCompiler, n *ast.Node) {
	b := n.DropMeta()
	if b != nil && b.Kind == ast.Block {
		fc.emitBlockNode(b)
		return
	}
	fc.EmitNode(n)
}

func (fc *FuncCompiler) emitWhileNode(n *ast.Node) {
	doKey := n.Right.DropMeta()
	var body *ast.Node
	if doKey != nil {
		body = doKey.Left
	}
	scratch := fc.scope.Declare(whileScratchName(), uint32(len(fc.scope.Names())), ast.Empty).Position

	fc.e.call(fc.b, "new_empty")
	fc.b.LocalSet(scratch)

	fc.b.BlockVoid(binary.OpcodeBlock)
	fc.b.BlockVoid(binary.OpcodeLoop)
	fc.emitCoerced(n.Left, ast.Int)
	fc.b.Op0(binary.OpcodeI32WrapI64)
	fc.b.Op0(binary.OpcodeI32Eqz)
	fc.b.BrIf(1)
	if body != nil {
		peelAndEmitNode(fc, body)
	} else {
		fc.e.call(fc.b, "new_empty")
	}
	fc.b.LocalSet(scratch)
	fc.b.Br(0)
	fc.b.End()
	fc.b.End()

	fc.b.LocalGet(scratch)
}

func (fc *FuncCompiler) emitTernaryNode(n *ast.Node) {
	condKey := n.Left.DropMeta()
	cond := condKey.Left
	thenExpr := condKey.Right
	elseExpr := n.Right

	fc.emitCoerced(cond, ast.Int)
	fc.b.Op0(binary.OpcodeI32WrapI64)
	fc.b.BlockResultRef(binary.OpcodeIf, fc.e.Types.NodeType(), true)
	fc.EmitNode(thenExpr)
	fc.b.Else()
	fc.EmitNode(elseExpr)
	fc.b.End()
}

// emitDotNode implements `.count`, `.size`, `.number` and user record
// field access (spec.md §4.5.3's member-access intrinsics).
func (fc *FuncCompiler) emitDotNode(n *ast.Node) {
	member := n.Right.DropMeta()
	name := ""
	if member != nil && (member.Kind == ast.Symbol || member.Kind == ast.Text) {
		name = member.Text
	}
	switch name {
	case "count", "size":
		fc.EmitNode(n.Left)
		fc.e.call(fc.b, "node_count")
		fc.boxRawOnStack(ast.Int)
	case "number":
		fc.EmitNode(n.Left)
		fc.e.call(fc.b, "get_int_value")
		fc.boxRawOnStack(ast.Int)
	default:
		// User-record field access is out of this core's hot path;
		// fall back to treating the member name as a literal index.
		fc.EmitNode(n.Left)
		fc.emitStringLiteral(name, "new_symbol")
		fc.e.call(fc.b, "node_index_at")
	}
}

func (fc *FuncCompiler) emitAsNode(n *ast.Node) {
	target := n.Right.DropMeta()
	targetKind := castTargetKind(target)

	// Compile-time folding for literal operands, per spec.md §4.5.3's
	// "as" contract.
	left := n.Left.DropMeta()
	if left != nil && left.Kind.IsNumeric() {
		if targetKind == ast.Float {
			v := left.Float
			if left.Kind.IsInt() {
				v = float64(left.Int)
			}
			fc.b.F64Const(v)
			fc.boxRawOnStack(ast.Float)
			return
		}
		v := left.Int
		if left.Kind.IsFloat() {
			v = int64(left.Float)
		}
		fc.b.I64Const(v)
		fc.boxRawOnStack(ast.Int)
		return
	}
	fc.emitBoxedRaw(n.Left)
}

func castTargetKind(target *ast.Node) ast.Kind {
	if target == nil {
		return ast.Int
	}
	if target.Kind == ast.Symbol {
		switch target.Text {
		case "float", "double", "Float":
			return ast.Float
		}
	}
	return ast.Int
}

// emitRangeNode folds a literal `a..b`/`a…b` range into a cons-cell
// chain built from new_list + new_int, since this core has no lazy
// range/iterator value (spec.md §4.5.3 marks ranges over dynamic
// bounds as a later extension).
func (fc *FuncCompiler) emitRangeNode(n *ast.Node) {
	lo := n.Left.DropMeta()
	hi := n.Right.DropMeta()
	if lo == nil || hi == nil || !lo.Kind.IsInt() || !hi.Kind.IsInt() {
		panic(&UnsupportedNodeError{Kind: n.Kind, Op: n.Op})
	}
	end := hi.Int
	if n.Op == ast.OpRangeExclusive {
		end--
	}

	tailLocal := fc.scope.Declare(whileScratchName(), uint32(len(fc.scope.Names())), ast.Empty).Position
	valLocal := fc.scope.Declare(whileScratchName(), uint32(len(fc.scope.Names())), ast.Empty).Position

	// Terminate the cons chain with an actual null reference, not a
	// boxed Empty node (spec.md §4.5.4: "a single-element list thus
	// has value = null"), so node_count's ref.is_null stop condition
	// counts exactly the elements, not the terminator cell too.
	fc.b.RefNull(int64(wasm.HeapTypeAny))
	fc.b.LocalSet(tailLocal)
	for v := end; v >= lo.Int; v-- {
		fc.b.I64Const(v)
		fc.e.call(fc.b, "new_int")
		fc.b.LocalSet(valLocal)
		fc.b.LocalGet(valLocal)
		fc.b.LocalGet(tailLocal)
		fc.b.I64Const(int64(ast.BracketSquare))
		fc.e.call(fc.b, "new_list")
		fc.b.LocalSet(tailLocal)
	}
	fc.b.LocalGet(tailLocal)
}

// emitListRaw coerces a List's node-mode result down to a raw number
// via get_int_value, the defined fallback for a List appearing in
// arithmetic position (e.g. a user function call used as an operand).
func (fc *FuncCompiler) emitListRaw(n *ast.Node) ast.Kind {
	fc.emitListNode(n)
	fc.e.call(fc.b, "get_int_value")
	return ast.Int
}

// emitListNode is EmitNode's dispatch for List nodes (spec.md §4.5.4):
// statement sequences, recognized intrinsic call shapes, user-function
// calls, FFI calls, and the generic cons-cell literal fallback.
func (fc *FuncCompiler) emitListNode(n *ast.Node) {
	items := nonDefinitionItems(n.Items)
	// A definition dropped from the original items means this List was
	// a statement sequence (defs followed by a body), never a literal
	// — even once filtering leaves a single statement behind, that
	// statement must still be evaluated and returned, not wrapped as a
	// one-element cons cell.
	hadDefinitions := len(items) != len(n.Items)
	if len(items) == 0 {
		fc.e.call(fc.b, "new_empty")
		return
	}

	if call, ok := fc.recognizeCall(items); ok {
		fc.emitCall(call)
		return
	}

	// Statement-sequence form: drop every value but the last.
	if looksLikeStatementSequence(items) || hadDefinitions {
		for i := 0; i < len(items)-1; i++ {
			fc.EmitNode(&items[i])
			fc.b.Drop()
		}
		fc.EmitNode(&items[len(items)-1])
		return
	}

	fc.emitListLiteral(items, n.Bracket)
}

// nonDefinitionItems filters out function-definition forms from a
// Block/List's items before statement-sequence or literal dispatch,
// since those were already pulled out by ExtractUserFunctions and
// must not also appear as runtime values (spec.md §4.5.4).
func nonDefinitionItems(items []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(items))
	for _, it := range items {
		p := it.DropMeta()
		if p != nil && p.Kind == ast.KeyKind && (p.Op == ast.OpDefine || p.Op == ast.OpAssign) {
			left := p.Left.DropMeta()
			if left != nil && left.Kind == ast.List {
				continue // function-with-params definition
			}
		}
		out = append(out, it)
	}
	return out
}

// looksLikeStatementSequence reports whether items is a sequence of
// statements rather than a list literal, per spec.md §4.5.4: a List
// whose items contain any assignment, definition, global declaration,
// index assignment, or function-definition form is a statement
// sequence, regardless of how many items it has. A plain data literal
// (`{1 4 3}`) contains none of these and must build a cons-cell chain
// instead, even when it has more than one item.
func looksLikeStatementSequence(items []ast.Node) bool {
	for _, it := range items {
		p := it.DropMeta()
		if p == nil || p.Kind != ast.KeyKind {
			continue
		}
		switch p.Op {
		case ast.OpAssign, ast.OpDefine, ast.OpIndexSet:
			return true
		}
	}
	return false
}

// callShape is a recognized List-as-call pattern: head symbol plus
// argument nodes.
type callShape struct {
	Head string
	Args []ast.Node
}

// recognizeCall reports whether items is a call shape: a leading
// Symbol naming a recognized intrinsic, a declared user function, or a
// registered FFI import. A leading symbol that names none of these is
// left to the generic cons-cell literal fallback (it's plain data, a
// reference to a variable holding the list's first element).
func (fc *FuncCompiler) recognizeCall(items []ast.Node) (callShape, bool) {
	head := items[0].DropMeta()
	if head == nil || head.Kind != ast.Symbol {
		return callShape{}, false
	}
	switch head.Text {
	case "fetch", "puts", "puti", "putl", "putf", "count", "size",
		"ceil", "floor", "round", "int", "float", "number",
		"str", "string", "char", "bool":
		return callShape{Head: head.Text, Args: items[1:]}, true
	}
	if _, ok := fc.e.Ctx.UserFunctions[head.Text]; ok {
		return callShape{Head: head.Text, Args: items[1:]}, true
	}
	if _, ok := fc.e.Ctx.FFI.Lookup(head.Text); ok {
		return callShape{Head: head.Text, Args: items[1:]}, true
	}
	return callShape{}, false
}

func (fc *FuncCompiler) emitCall(call callShape) {
	switch call.Head {
	case "puts":
		fc.emitPuts(call.Args)
		return
	case "puti", "putl":
		fc.emitPutNumeric(call.Args, ast.Int)
		return
	case "putf":
		fc.emitPutNumeric(call.Args, ast.Float)
		return
	case "count", "size":
		fc.EmitNode(&call.Args[0])
		fc.e.call(fc.b, "node_count")
		fc.boxRawOnStack(ast.Int)
		return
	case "ceil", "floor", "round":
		fc.emitMathFn(call.Head, call.Args)
		return
	case "int", "number":
		fc.emitCoerced(&call.Args[0], ast.Int)
		fc.boxRawOnStack(ast.Int)
		return
	case "float":
		fc.emitCoerced(&call.Args[0], ast.Float)
		fc.boxRawOnStack(ast.Float)
		return
	case "bool":
		fc.emitCoerced(&call.Args[0], ast.Int)
		fc.b.I64Const(0)
		fc.b.Op0(binary.OpcodeI64Ne)
		fc.b.Op0(binary.OpcodeI64ExtendI32S)
		fc.boxRawOnStack(ast.Int)
		return
	case "str", "string", "char":
		// A string/char cast of an already-ref-kind value is the
		// value itself; this core stores text as an interned Node
		// regardless of source kind.
		fc.EmitNode(&call.Args[0])
		return
	case "fetch":
		fc.emitFetch(call.Args)
		return
	}

	if def, ok := fc.e.Ctx.UserFunctions[call.Head]; ok {
		fc.emitUserCall(def.FuncIndex, def.ReturnKind, call.Args)
		return
	}
	if sig, ok := fc.e.Ctx.FFI.Lookup(call.Head); ok {
		fc.emitFFICall(call.Head, sig, call.Args)
		return
	}
	panic(&UndefinedSymbolError{Name: call.Head})
}

// emitPuts writes args[0]'s bytes to stdout via WASI fd_write when the
// WASI import block is active (spec.md §4.3, §4.5.4) and the string is
// resolvable at compile time (a Text literal, or a Symbol most
// recently assigned one — resolveStringData). Its result is fd_write's
// own i32 errno, boxed as Int, matching the original's convention.
// Without a resolvable string (no WASI imports, or a computed value),
// puts falls back to evaluating the argument for side effects only —
// there being no fd_write import to call in that case.
func (fc *FuncCompiler) emitPuts(args []ast.Node) {
	if len(args) == 0 {
		fc.e.call(fc.b, "new_empty")
		return
	}
	if fc.e.Imports.HasFdWrite {
		if ptr, length, ok := fc.resolveStringData(&args[0]); ok {
			fc.emitFdWrite(ptr, length)
			fc.b.Op0(binary.OpcodeI64ExtendI32S)
			fc.boxRawOnStack(ast.Int)
			return
		}
	}
	fc.EmitNode(&args[0])
	fc.b.Drop()
	fc.e.call(fc.b, "new_empty")
}

// emitPutNumeric implements puti/putl (kind=Int) and putf (kind=Float).
// Mirroring the original's own documented limitation, only a
// compile-time numeric constant gets formatted and written through
// fd_write — a runtime value would need itoa/dtoa, which the original
// never implemented either, so this core drops straight to boxing the
// coerced value like it always did. puti/putl return the printed value
// itself when fd_write fires; putf returns fd_write's errno instead,
// the original's own asymmetric convention between the two.
func (fc *FuncCompiler) emitPutNumeric(args []ast.Node, kind ast.Kind) {
	if len(args) == 0 {
		fc.b.I64Const(0)
		fc.boxRawOnStack(ast.Int)
		return
	}
	if fc.e.Imports.HasFdWrite {
		if text, ok := constantNumericText(&args[0], kind); ok {
			entry := fc.e.Strings.Allocate(text)
			fc.emitFdWrite(entry.Offset, entry.Length)
			if kind == ast.Float {
				fc.b.Op0(binary.OpcodeI64ExtendI32S)
				fc.boxRawOnStack(ast.Int)
				return
			}
			fc.b.Drop()
			fc.emitCoerced(&args[0], kind)
			fc.boxRawOnStack(kind)
			return
		}
	}
	fc.emitCoerced(&args[0], kind)
	fc.boxRawOnStack(kind)
}

// resolveStringData reports the (ptr,length) of args[0] when it is
// knowable at compile time: a Text literal (already interned by
// stringtable's CollectFromNode pre-pass) or a Symbol most recently
// assigned one (recordStringAssign). Anything else — a computed
// expression, an unassigned variable — is not resolvable.
func (fc *FuncCompiler) resolveStringData(arg *ast.Node) (ptr, length uint32, ok bool) {
	p := arg.DropMeta()
	if p == nil {
		return 0, 0, false
	}
	switch p.Kind {
	case ast.Text:
		e := fc.e.Strings.Allocate(p.Text)
		return e.Offset, e.Length, true
	case ast.Symbol:
		if l, found := fc.scope.Lookup(p.Text); found && l.HasStringData {
			return l.DataPointer, l.DataLength, true
		}
	}
	return 0, 0, false
}

// constantNumericText formats arg to decimal text when it is a
// compile-time literal of kind, for emitPutNumeric's fd_write path.
func constantNumericText(arg *ast.Node, kind ast.Kind) (string, bool) {
	p := arg.DropMeta()
	if p == nil {
		return "", false
	}
	switch kind {
	case ast.Int:
		if p.Kind == ast.Int {
			return strconv.FormatInt(p.Int, 10), true
		}
	case ast.Float:
		if p.Kind == ast.Float {
			return strconv.FormatFloat(p.Float, 'g', -1, 64), true
		}
	}
	return "", false
}

// emitFdWrite builds a single-iovec {ptr,len} at linear-memory offset
// 0 (spec.md §4.3), writes fd_write's nwritten count at offset 8, and
// calls wasi_snapshot_preview1.fd_write(fd=1, iovs=0, iovs_len=1,
// nwritten=8), leaving its i32 errno result on the stack. compiler.go
// reserves this 16-byte low-memory scratch region ahead of the string
// table whenever WASI imports are active, so it never aliases
// interned string data.
func (fc *FuncCompiler) emitFdWrite(ptr, length uint32) {
	fc.b.I32Const(0)
	fc.b.I32Const(int32(ptr))
	fc.b.I32Store()
	fc.b.I32Const(4)
	fc.b.I32Const(int32(length))
	fc.b.I32Store()
	fc.b.I32Const(1)
	fc.b.I32Const(0)
	fc.b.I32Const(1)
	fc.b.I32Const(8)
	fc.b.Call(fc.e.Imports.WASIFdWrite)
}

func (fc *FuncCompiler) emitMathFn(name string, args []ast.Node) {
	fc.emitCoerced(&args[0], ast.Float)
	switch name {
	case "ceil":
		fc.b.Op0(binary.OpcodeF64Ceil)
	case "floor":
		fc.b.Op0(binary.OpcodeF64Floor)
	case "round":
		fc.b.Op0(binary.OpcodeF64Nearest)
	}
	fc.boxRawOnStack(ast.Float)
}

func (fc *FuncCompiler) emitFetch(args []ast.Node) {
	if !fc.e.Imports.HasFetch {
		panic(&UnsupportedNodeError{Kind: ast.List, Op: ast.OpUnknown})
	}
	for i := range args {
		fc.emitCoerced(&args[i], ast.Int)
		fc.b.Op0(binary.OpcodeI32WrapI64)
	}
	fc.b.Call(fc.e.Imports.HostFetch)
	fc.b.Op0(binary.OpcodeI64ExtendI32S)
	fc.boxRawOnStack(ast.Int)
}

func (fc *FuncCompiler) emitUserCall(funcIdx uint32, returnKind ast.Kind, args []ast.Node) {
	for i := range args {
		fc.emitCoerced(&args[i], ast.Int)
	}
	fc.b.Call(funcIdx)
	if returnKind.IsRef() {
		return
	}
	fc.boxRawOnStack(returnKind)
}

// emitFFICall calls an imported foreign function by its registered
// index, coercing each argument to the parameter type the import
// manager synthesized for it (spec.md §4.3's FFI signature table).
func (fc *FuncCompiler) emitFFICall(name string, sig funcreg.FFISignature, args []ast.Node) {
	idx, ok := fc.e.Ctx.Functions.Lookup(name)
	if !ok {
		panic(&UndefinedSymbolError{Name: name})
	}
	for i := range args {
		var paramType wasm.ValueType = wasm.ValueTypeI32
		if i < len(sig.Params) {
			paramType = sig.Params[i]
		}
		if paramType == wasm.ValueTypeF64 {
			fc.emitCoerced(&args[i], ast.Float)
			continue
		}
		fc.emitCoerced(&args[i], ast.Int)
		if paramType == wasm.ValueTypeI32 {
			fc.b.Op0(binary.OpcodeI32WrapI64)
		}
	}
	fc.b.Call(idx.CallIndex)

	resultType := wasm.ValueTypeI32
	if len(sig.Results) > 0 {
		resultType = sig.Results[0]
	}
	switch resultType {
	case wasm.ValueTypeI32:
		fc.b.Op0(binary.OpcodeI64ExtendI32S)
		fc.boxRawOnStack(ast.Int)
	case wasm.ValueTypeF64:
		fc.boxRawOnStack(ast.Float)
	default:
		fc.boxRawOnStack(ast.Int)
	}
}

// emitListLiteral builds a cons-cell chain for a generic list literal
// (spec.md §4.5.4's new_list fallback), right to left so the head
// ends up on top of the stack.
func (fc *FuncCompiler) emitListLiteral(items []ast.Node, bracket ast.Bracket) {
	tailLocal := fc.scope.Declare(whileScratchName(), uint32(len(fc.scope.Names())), ast.Empty).Position
	valLocal := fc.scope.Declare(whileScratchName(), uint32(len(fc.scope.Names())), ast.Empty).Position

	// See emitRangeNode: the chain's terminator must be an actual null
	// ref so node_count doesn't count it as an extra element.
	fc.b.RefNull(int64(wasm.HeapTypeAny))
	fc.b.LocalSet(tailLocal)

	for i := len(items) - 1; i >= 0; i-- {
		fc.EmitNode(&items[i])
		fc.b.LocalSet(valLocal)
		fc.b.LocalGet(valLocal)
		fc.b.LocalGet(tailLocal)
		fc.b.I64Const(int64(bracket))
		fc.e.call(fc.b, "new_list")
		fc.b.LocalSet(tailLocal)
	}
	fc.b.LocalGet(tailLocal)
}
