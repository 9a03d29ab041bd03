package emitter

import (
	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/wasm"
	"github.com/pannous/wasp/internal/wasm/binary"
)

// helperSignature returns the WebAssembly function signature for a
// runtime helper, per spec.md §4.6's contract table.
func (e *Emitter) helperSignature(name string) wasm.FuncType {
	i64, f64, i32 := wasm.ValueTypeI64, wasm.ValueTypeF64, wasm.ValueTypeI32
	// ref $Node is passed/returned as anyref at the signature level;
	// callers ref.cast on the way in where the static type must narrow.
	node := wasm.ValueTypeAnyref

	switch name {
	case "new_empty":
		return wasm.FuncType{Results: []wasm.ValueType{node}}
	case "new_int":
		return wasm.FuncType{Params: []wasm.ValueType{i64}, Results: []wasm.ValueType{node}}
	case "new_float":
		return wasm.FuncType{Params: []wasm.ValueType{f64}, Results: []wasm.ValueType{node}}
	case "new_text", "new_symbol":
		return wasm.FuncType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{node}}
	case "new_codepoint":
		return wasm.FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{node}}
	case "new_key":
		return wasm.FuncType{Params: []wasm.ValueType{node, node, i64}, Results: []wasm.ValueType{node}}
	case "new_type":
		return wasm.FuncType{Params: []wasm.ValueType{node, node}, Results: []wasm.ValueType{node}}
	case "new_list":
		return wasm.FuncType{Params: []wasm.ValueType{node, node, i64}, Results: []wasm.ValueType{node}}
	case "list_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64}, Results: []wasm.ValueType{i64}}
	case "list_node_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64}, Results: []wasm.ValueType{node}}
	case "list_set_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64, i64}, Results: []wasm.ValueType{i64}}
	case "node_count":
		return wasm.FuncType{Params: []wasm.ValueType{node}, Results: []wasm.ValueType{i64}}
	case "string_char_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64}, Results: []wasm.ValueType{node}}
	case "string_set_char_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64, i64}, Results: []wasm.ValueType{i64}}
	case "node_index_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64}, Results: []wasm.ValueType{node}}
	case "node_set_at":
		return wasm.FuncType{Params: []wasm.ValueType{node, i64, i64}, Results: []wasm.ValueType{i64}}
	case "get_kind":
		return wasm.FuncType{Params: []wasm.ValueType{node}, Results: []wasm.ValueType{i64}}
	case "get_int_value":
		return wasm.FuncType{Params: []wasm.ValueType{node}, Results: []wasm.ValueType{i64}}
	case "i64_pow":
		return wasm.FuncType{Params: []wasm.ValueType{i64, i64}, Results: []wasm.ValueType{i64}}
	}
	panic("emitter: unknown helper " + name)
}

// buildHelperBody hand-emits the fixed instruction sequence for one
// runtime helper, per spec.md §4.6.
func (e *Emitter) buildHelperBody(name string) wasm.Code {
	b := binary.NewFuncBody()
	nodeT := e.Types.NodeType()
	i64BoxT := e.Types.I64BoxType()
	f64BoxT := e.Types.F64BoxType()
	strT := e.Types.StringType()

	switch name {
	case "new_empty":
		b.I64Const(kindTag(ast.Empty))
		b.RefNull(int64(wasm.HeapTypeAny))
		b.RefNull(int64(wasm.HeapTypeAny))
		b.StructNew(nodeT)

	case "new_int":
		b.I64Const(kindTag(ast.Int))
		b.LocalGet(0)
		b.StructNew(i64BoxT)
		b.RefNull(int64(wasm.HeapTypeAny))
		b.StructNew(nodeT)

	case "new_float":
		b.I64Const(kindTag(ast.Float))
		b.LocalGet(0)
		b.StructNew(f64BoxT)
		b.RefNull(int64(wasm.HeapTypeAny))
		b.StructNew(nodeT)

	case "new_text":
		b.I64Const(kindTag(ast.Text))
		b.LocalGet(0)
		b.LocalGet(1)
		b.StructNew(strT)
		b.RefNull(int64(wasm.HeapTypeAny))
		b.StructNew(nodeT)

	case "new_symbol":
		b.I64Const(kindTag(ast.Symbol))
		b.LocalGet(0)
		b.LocalGet(1)
		b.StructNew(strT)
		b.RefNull(int64(wasm.HeapTypeAny))
		b.StructNew(nodeT)

	case "new_codepoint":
		b.I64Const(kindTag(ast.Codepoint))
		b.LocalGet(0)
		b.I31New()
		b.RefNull(int64(wasm.HeapTypeAny))
		b.StructNew(nodeT)

	case "new_key":
		// params: left(0) ref, right(1) ref, op(2) i64
		b.LocalGet(2)
		b.I64Const(8)
		b.Op0(binary.OpcodeI64Shl)
		b.I64Const(kindTag(ast.KeyKind))
		b.Op0(binary.OpcodeI64Or)
		b.LocalGet(0)
		b.LocalGet(1)
		b.StructNew(nodeT)

	case "new_type":
		b.I64Const(kindTag(ast.TypeDef))
		b.LocalGet(0)
		b.LocalGet(1)
		b.StructNew(nodeT)

	case "new_list":
		// params: first(0) ref, rest(1) ref, bracketInfo(2) i64
		b.LocalGet(2)
		b.I64Const(8)
		b.Op0(binary.OpcodeI64Shl)
		b.I64Const(kindTag(ast.List))
		b.Op0(binary.OpcodeI64Or)
		b.LocalGet(0)
		b.LocalGet(1)
		b.StructNew(nodeT)

	case "get_kind":
		b.LocalGet(0)
		b.RefCast(nodeT, true)
		b.StructGet(nodeT, 0)

	case "get_int_value":
		b.LocalGet(0)
		b.RefCast(nodeT, true)
		b.StructGet(nodeT, 1) // data
		b.RefCast(i64BoxT, true)
		b.StructGet(i64BoxT, 0)

	case "node_count":
		e.buildNodeCount(b, nodeT)

	case "list_at":
		// params: node(0), index(1); locals: cursor(2) ref, remaining(3) i64.
		// The cons cell's data field holds the element's own boxed
		// $Node (not the raw i64box directly), so the element value is
		// read out via get_int_value on that inner node.
		b.DeclareLocalsRef(1, wasm.RefType{Heap: wasm.HeapType(nodeT), Nullable: true})
		b.DeclareLocals(1, wasm.ValueTypeI64)
		e.walkToIndex(b, nodeT, 0, 1, 2, 3)
		b.LocalGet(2)
		b.StructGet(nodeT, 1)
		e.call(b, "get_int_value")

	case "list_node_at":
		b.DeclareLocalsRef(1, wasm.RefType{Heap: wasm.HeapType(nodeT), Nullable: true})
		b.DeclareLocals(1, wasm.ValueTypeI64)
		e.walkToIndex(b, nodeT, 0, 1, 2, 3)
		b.LocalGet(2)
		b.StructGet(nodeT, 1)
		b.RefCast(nodeT, true)

	case "list_set_at":
		// params: node(0), index(1), value(2); locals: cursor(3) ref,
		// remaining(4) i64. i64box's own field isn't mutable, so
		// replacing an element means re-boxing value into a fresh
		// node and overwriting the cons cell's (mutable) data field.
		b.DeclareLocalsRef(1, wasm.RefType{Heap: wasm.HeapType(nodeT), Nullable: true})
		b.DeclareLocals(1, wasm.ValueTypeI64)
		e.walkToIndex(b, nodeT, 0, 1, 3, 4)
		b.LocalGet(3)
		b.LocalGet(2)
		e.call(b, "new_int")
		b.StructSet(nodeT, 1)
		b.LocalGet(2)

	case "string_char_at":
		// params: node(0), index(1)
		b.LocalGet(0)
		b.RefCast(nodeT, true)
		b.StructGet(nodeT, 1) // data: $String
		b.RefCast(strT, true)
		b.StructGet(strT, 0) // ptr
		b.LocalGet(1)
		b.I64Const(1)
		b.Op0(binary.OpcodeI64Sub)
		b.Op0(binary.OpcodeI32WrapI64)
		b.Op0(binary.OpcodeI32Add)
		b.Op0(binary.OpcodeI32Load8U)
		b.Raw(0x00, 0x00) // align=0, offset=0
		e.call(b, "new_codepoint")

	case "string_set_char_at":
		// params: node(0), index(1), value(2)
		b.LocalGet(0)
		b.RefCast(nodeT, true)
		b.StructGet(nodeT, 1)
		b.RefCast(strT, true)
		b.StructGet(strT, 0)
		b.LocalGet(1)
		b.I64Const(1)
		b.Op0(binary.OpcodeI64Sub)
		b.Op0(binary.OpcodeI32WrapI64)
		b.Op0(binary.OpcodeI32Add)
		b.LocalGet(2)
		b.Op0(binary.OpcodeI32WrapI64)
		b.Op0(binary.OpcodeI32Store8)
		b.Raw(0x00, 0x00)
		b.LocalGet(2)

	case "node_index_at":
		e.buildNodeIndexDispatch(b, nodeT, false)

	case "node_set_at":
		e.buildNodeIndexDispatch(b, nodeT, true)

	case "i64_pow":
		e.buildI64Pow(b)

	default:
		panic("emitter: unknown helper " + name)
	}

	return b.Finish()
}

// buildNodeCount emits `node_count(n) -> i64`: walk the `value` chain
// (local 1 = cursor) counting cells (local 2 = count).
func (e *Emitter) buildNodeCount(b *binary.FuncBody, nodeT uint32) {
	b.DeclareLocalsRef(1, wasm.RefType{Heap: wasm.HeapType(nodeT), Nullable: true})
	b.DeclareLocals(1, wasm.ValueTypeI64)

	b.LocalGet(0)
	b.RefCast(nodeT, true)
	b.LocalSet(1)
	b.I64Const(0)
	b.LocalSet(2)

	b.BlockVoid(binary.OpcodeBlock)
	b.BlockVoid(binary.OpcodeLoop)
	b.LocalGet(1)
	b.RefIsNull()
	b.BrIf(1)
	b.LocalGet(2)
	b.I64Const(1)
	b.Op0(binary.OpcodeI64Add)
	b.LocalSet(2)
	b.LocalGet(1)
	b.StructGet(nodeT, 2) // value
	b.RefCast(nodeT, true)
	b.LocalSet(1)
	b.Br(0)
	b.End() // loop
	b.End() // block

	b.LocalGet(2)
}

// walkToIndex is the shared body shape used by list_at/list_node_at/
// list_set_at: walk `value` (index-1) times from the node argument,
// leaving the cell holding the target element's cursor local set.
func (e *Emitter) walkToIndex(b *binary.FuncBody, nodeT uint32, nodeLocal, indexLocal, cursorLocal, remainingLocal uint32) {
	b.LocalGet(nodeLocal)
	b.RefCast(nodeT, true)
	b.LocalSet(cursorLocal)
	b.LocalGet(indexLocal)
	b.I64Const(1)
	b.Op0(binary.OpcodeI64Sub)
	b.LocalSet(remainingLocal)

	b.BlockVoid(binary.OpcodeBlock)
	b.BlockVoid(binary.OpcodeLoop)
	b.LocalGet(remainingLocal)
	b.Op0(binary.OpcodeI64Eqz)
	b.BrIf(1)
	b.LocalGet(cursorLocal)
	b.StructGet(nodeT, 2) // value
	b.RefCast(nodeT, true)
	b.LocalSet(cursorLocal)
	b.LocalGet(remainingLocal)
	b.I64Const(1)
	b.Op0(binary.OpcodeI64Sub)
	b.LocalSet(remainingLocal)
	b.Br(0)
	b.End()
	b.End()
}

// buildNodeIndexDispatch emits node_index_at / node_set_at: dispatch
// on the node's runtime kind (masked to its low byte) to the
// string-indexing or list-indexing form.
func (e *Emitter) buildNodeIndexDispatch(b *binary.FuncBody, nodeT uint32, isSet bool) {
	kindLocal := uint32(2)
	if isSet {
		kindLocal = 3
	}
	b.DeclareLocals(1, wasm.ValueTypeI64)

	b.LocalGet(0)
	b.RefCast(nodeT, true)
	b.StructGet(nodeT, 0)
	b.I64Const(0xff)
	b.Op0(binary.OpcodeI64And)
	b.LocalSet(kindLocal)

	b.LocalGet(kindLocal)
	b.I64Const(kindTag(ast.Text))
	b.Op0(binary.OpcodeI64Eq)
	b.LocalGet(kindLocal)
	b.I64Const(kindTag(ast.Symbol))
	b.Op0(binary.OpcodeI64Eq)
	b.Op0(binary.OpcodeI32Or)

	if isSet {
		b.BlockResult(binary.OpcodeIf, wasm.ValueTypeI64)
		b.LocalGet(0)
		b.LocalGet(1)
		b.LocalGet(2)
		e.call(b, "string_set_char_at")
		b.Else()
		b.LocalGet(0)
		b.LocalGet(1)
		b.LocalGet(2)
		e.call(b, "list_set_at")
		b.End()
		return
	}

	b.BlockResultRef(binary.OpcodeIf, nodeT, true)
	b.LocalGet(0)
	b.LocalGet(1)
	e.call(b, "string_char_at")
	b.Else()
	b.LocalGet(0)
	b.LocalGet(1)
	e.call(b, "list_node_at")
	b.End()
}

// buildI64Pow emits `i64_pow(base, exp) -> i64`: result=1; while
// exp!=0: result*=base; exp-=1 (spec.md §4.6).
func (e *Emitter) buildI64Pow(b *binary.FuncBody) {
	// locals: result(2) i64
	b.DeclareLocals(1, wasm.ValueTypeI64)
	b.I64Const(1)
	b.LocalSet(2)

	b.BlockVoid(binary.OpcodeBlock)
	b.BlockVoid(binary.OpcodeLoop)
	b.LocalGet(1)
	b.Op0(binary.OpcodeI64Eqz)
	b.BrIf(1)
	b.LocalGet(2)
	b.LocalGet(0)
	b.Op0(binary.OpcodeI64Mul)
	b.LocalSet(2)
	b.LocalGet(1)
	b.I64Const(1)
	b.Op0(binary.OpcodeI64Sub)
	b.LocalSet(1)
	b.Br(0)
	b.End()
	b.End()

	b.LocalGet(2)
}
