package binary

import (
	"math"

	"github.com/pannous/wasp/internal/leb128"
	"github.com/pannous/wasp/internal/wasm"
)

// FuncBody accumulates the instruction bytes of a single function as
// the emitter walks an AST node, plus the local declarations that
// precede it in the binary format. It is the "instruction stream"
// spec.md §4.5 describes the emitter as producing.
type FuncBody struct {
	locals []wasm.LocalGroup
	buf    []byte
}

// NewFuncBody starts a function body with no locals yet declared.
func NewFuncBody() *FuncBody { return &FuncBody{} }

// DeclareLocals appends a run of n locals of type t. Each call adds
// its own local group; consecutive groups of the same type are not
// merged, and local indices follow the order of the calls.
func (f *FuncBody) DeclareLocals(n uint32, t wasm.ValueType) {
	if n == 0 {
		return
	}
	f.locals = append(f.locals, wasm.LocalGroup{Count: n, Type: t})
}

// DeclareLocalsRef declares a run of n locals holding a concrete GC
// reference type, e.g. `ref null $Node` for scratch variables that
// walk cons-cell chains.
func (f *FuncBody) DeclareLocalsRef(n uint32, ref wasm.RefType) {
	if n == 0 {
		return
	}
	f.locals = append(f.locals, wasm.LocalGroup{Count: n, RefHeap: &ref})
}

// Len returns the number of instruction bytes emitted so far.
func (f *FuncBody) Len() int { return len(f.buf) }

func (f *FuncBody) op(o Opcode) { f.buf = append(f.buf, o) }

func (f *FuncBody) u32(v uint32) { f.buf = append(f.buf, leb128.EncodeUint32(v)...) }
func (f *FuncBody) i32(v int32)  { f.buf = append(f.buf, leb128.EncodeInt32(v)...) }
func (f *FuncBody) i64(v int64)  { f.buf = append(f.buf, leb128.EncodeInt64(v)...) }

// Raw appends already-encoded bytes verbatim, an escape hatch for
// instruction shapes (br_table's vector of targets) that don't fit
// the single-immediate helpers below.
func (f *FuncBody) Raw(b ...byte) { f.buf = append(f.buf, b...) }

func (f *FuncBody) I32Const(v int32) { f.op(OpcodeI32Const); f.i32(v) }
func (f *FuncBody) I64Const(v int64) { f.op(OpcodeI64Const); f.i64(v) }

// I32Store emits `i32.store` with a fixed align=2 (4-byte, its natural
// alignment)/offset=0 memarg; callers push the full address on the
// stack rather than relying on the memarg offset immediate.
func (f *FuncBody) I32Store() { f.op(OpcodeI32Store); f.Raw(0x02, 0x00) }
func (f *FuncBody) F64Const(v float64) {
	f.op(OpcodeF64Const)
	bits := math.Float64bits(v)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(bits >> (8 * i))
	}
	f.buf = append(f.buf, b[:]...)
}

func (f *FuncBody) LocalGet(idx uint32)  { f.op(OpcodeLocalGet); f.u32(idx) }
func (f *FuncBody) LocalSet(idx uint32)  { f.op(OpcodeLocalSet); f.u32(idx) }
func (f *FuncBody) LocalTee(idx uint32)  { f.op(OpcodeLocalTee); f.u32(idx) }
func (f *FuncBody) GlobalGet(idx uint32) { f.op(OpcodeGlobalGet); f.u32(idx) }
func (f *FuncBody) GlobalSet(idx uint32) { f.op(OpcodeGlobalSet); f.u32(idx) }

func (f *FuncBody) Call(funcIdx uint32) { f.op(OpcodeCall); f.u32(funcIdx) }

func (f *FuncBody) Drop()   { f.op(OpcodeDrop) }
func (f *FuncBody) Select() { f.op(OpcodeSelect) }
func (f *FuncBody) Return() { f.op(OpcodeReturn) }
func (f *FuncBody) Unreachable() { f.op(OpcodeUnreachable) }

func (f *FuncBody) Op0(o Opcode) { f.op(o) }

// BlockVoid / BlockResult start a `block`/`loop`/`if` with no result
// or with one value-type result, writing the blocktype immediate.
// Reference results go through BlockResultRef.
func (f *FuncBody) BlockVoid(o Opcode) { f.op(o); f.buf = append(f.buf, 0x40) }
func (f *FuncBody) BlockResult(o Opcode, t wasm.ValueType) {
	f.op(o)
	f.buf = append(f.buf, t)
}

// BlockResultRef starts a block/if whose result is a nullable
// reference to the GC type at typeIdx (spec.md §4.5.3's ternary and
// if/else both need `(result ref null $Node)`).
func (f *FuncBody) BlockResultRef(o Opcode, typeIdx uint32, nullable bool) {
	f.op(o)
	if nullable {
		f.buf = append(f.buf, RefNullablePrefix)
	} else {
		f.buf = append(f.buf, RefNonNullPrefix)
	}
	f.buf = append(f.buf, leb128.EncodeInt64(int64(typeIdx))...)
}

func (f *FuncBody) Else() { f.op(OpcodeElse) }
func (f *FuncBody) End()  { f.op(OpcodeEnd) }

func (f *FuncBody) Br(depth uint32)   { f.op(OpcodeBr); f.u32(depth) }
func (f *FuncBody) BrIf(depth uint32) { f.op(OpcodeBrIf); f.u32(depth) }

// RefNull pushes a null reference to the given heap type.
func (f *FuncBody) RefNull(heap int64) {
	f.op(0xd0)
	f.buf = append(f.buf, leb128.EncodeInt64(heap)...)
}

func (f *FuncBody) RefIsNull() { f.op(0xd1) }

// StructNew emits `struct.new $typeIdx`, consuming one operand per
// field in declaration order and pushing a new non-null reference.
func (f *FuncBody) StructNew(typeIdx uint32) {
	f.op(OpcodeGCPrefix)
	f.u32(GCStructNew)
	f.u32(typeIdx)
}

// StructGet emits `struct.get $typeIdx $fieldIdx`.
func (f *FuncBody) StructGet(typeIdx, fieldIdx uint32) {
	f.op(OpcodeGCPrefix)
	f.u32(GCStructGet)
	f.u32(typeIdx)
	f.u32(fieldIdx)
}

// StructSet emits `struct.set $typeIdx $fieldIdx`.
func (f *FuncBody) StructSet(typeIdx, fieldIdx uint32) {
	f.op(OpcodeGCPrefix)
	f.u32(GCStructSet)
	f.u32(typeIdx)
	f.u32(fieldIdx)
}

// RefCast emits `ref.cast (ref null $typeIdx)`.
func (f *FuncBody) RefCast(typeIdx uint32, nullable bool) {
	f.op(OpcodeGCPrefix)
	f.u32(GCRefCast)
	if nullable {
		f.buf = append(f.buf, RefNullablePrefix)
	} else {
		f.buf = append(f.buf, RefNonNullPrefix)
	}
	f.buf = append(f.buf, leb128.EncodeInt64(int64(typeIdx))...)
}

// I31New / I31GetS pack/unpack a raw i32 into/out of an i31ref, used
// for Codepoint nodes (spec.md §4.6's new_codepoint contract).
func (f *FuncBody) I31New()  { f.op(OpcodeGCPrefix); f.u32(GCI31New) }
func (f *FuncBody) I31GetS() { f.op(OpcodeGCPrefix); f.u32(GCI31GetS) }

// Finish returns the encoded Code entry: locals plus the instruction
// stream terminated with an implicit `end` (spec.md §4.5.6).
func (f *FuncBody) Finish() wasm.Code {
	body := make([]byte, len(f.buf)+1)
	copy(body, f.buf)
	body[len(f.buf)] = OpcodeEnd
	return wasm.Code{LocalGroups: f.locals, Body: body}
}
