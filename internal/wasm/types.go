// Package wasm defines the binary-format-facing module model this
// compiler emits: value types, reference types, the GC struct/array
// type forms, function signatures, and the Module aggregate that
// internal/wasm/binary serializes into bytes.
//
// Grounded on the teacher's api/wasm.go (ValueType/ExternType naming
// and byte values) and internal/wasm's Module shape, extended with the
// GC proposal's struct type encoding that spec.md §4.2 requires and
// that the teacher's 1.0-era model predates.
package wasm

import "fmt"

// ValueType is a WebAssembly value type, encoded as its binary opcode.
type ValueType = byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
	// ValueTypeAnyref is the GC proposal's top reference type, used for
	// the Node.data field (anyref, nullable).
	ValueTypeAnyref ValueType = 0x6e
	// ValueTypeI31ref is the unboxed small-integer reference used for
	// Codepoint payloads, per spec.md §4.6's new_codepoint contract.
	ValueTypeI31ref ValueType = 0x6c
)

// ValueTypeName returns the WebAssembly text format name for t.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	case ValueTypeAnyref:
		return "anyref"
	case ValueTypeI31ref:
		return "i31ref"
	}
	return fmt.Sprintf("%#x", t)
}

// HeapType identifies a GC proposal concrete or abstract heap type. A
// non-negative value is an index into the module's type section; the
// negative abstract constants mirror the binary format's negative
// encodings for any/func/extern/i31/none.
type HeapType int64

const (
	HeapTypeAny  HeapType = -1
	HeapTypeFunc HeapType = -2
	HeapTypeNone HeapType = -3
)

// RefType is a GC proposal reference type: a heap type plus nullability.
type RefType struct {
	Heap     HeapType
	Nullable bool
}

// StorageType is either a ValueType or a packed field type (i8/i16),
// the two extra field-storage forms the GC proposal's struct fields
// allow beyond ordinary value types. This core only uses the value-type
// case (spec.md §4.2's field mapping table never packs sub-byte
// fields) but the type exists so FieldType is self-describing.
type StorageType struct {
	Value  ValueType
	Packed bool
	// Packed16 selects i16 over i8 when Packed is true.
	Packed16 bool
}

// FieldType is one field of a GC struct type.
type FieldType struct {
	Name    string // debug name, emitted into the name section only
	Type    StorageType
	Mutable bool
}

// StructType is a GC proposal struct type: an ordered list of fields.
type StructType struct {
	Fields []FieldType
}

// FuncType is a WebAssembly function signature.
type FuncType struct {
	Params  []ValueType
	Results []ValueType
}

// EqualsSignature reports whether f has the same params/results as o,
// used to deduplicate function types the type manager and import
// manager synthesize.
func (f FuncType) EqualsSignature(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// TypeKind distinguishes the two WASM GC type-section entry shapes
// this compiler ever emits.
type TypeKind int

const (
	TypeKindFunc TypeKind = iota
	TypeKindStruct
)

// TypeSectionEntry is one entry in the module's type section: either a
// function type or a GC struct type.
type TypeSectionEntry struct {
	Kind   TypeKind
	Func   FuncType
	Struct StructType
	// Name is a debug name for the name section (type index -> name).
	Name string
}

// Module is the in-memory, pre-serialization model of the WebAssembly
// binary this compiler produces. internal/wasm/binary.Assemble walks
// this structure in section order and writes the final byte vector.
type Module struct {
	Types   []TypeSectionEntry
	Imports []Import

	// Functions holds one FuncType index per module-defined (non-import)
	// function, aligned with Code by position.
	Functions []uint32
	Code      []Code

	Memory *Memory
	// Globals are module-defined (non-imported) globals.
	Globals []Global

	Exports []Export

	// Data holds the module's data segments; this compiler ever emits
	// at most one, the string pool (spec.md §3.6).
	Data []DataSegment

	// Names carries optional debug names for the name section
	// (spec.md §4.5.7): module name and per-index function/global
	// names. NameSection.Fields is not encoded.
	Names *NameSection
}

// Import describes one entry in the import section. Exactly one of
// the payload fields is populated, selected by Type.
type Import struct {
	Module string
	Name   string
	Type   ExternType

	FuncTypeIndex uint32
	Global        *GlobalType
	Memory        *Memory
}

// ExternType classifies an import or export.
type ExternType byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
	ExternTypeTable  ExternType = 0x01
)

// GlobalType is the declared type of a global: its value type and
// whether it is mutable.
type GlobalType struct {
	ValType ValueType
	Mutable bool
	// RefHeap is set when ValType names a reference type, so the
	// encoder can emit the correct reftype byte sequence.
	RefHeap *RefType
}

// Global is a module-defined global. The encoder writes its constant
// initializer as a single instruction plus immediate, built from
// InitI64/InitF64 (or ref.null), which is all spec.md's globals ever need (a literal zero, or a
// global.get of an imported global is never required here).
type Global struct {
	Type GlobalType
	// InitI64/InitF64 hold the literal initializer; which is read
	// depends on Type.ValType. Reference-typed globals always
	// initialize to null (ref.null).
	InitI64 int64
	InitF64 float64
}

// Memory describes a memory section/import entry: minimum and
// optional maximum page count.
type Memory struct {
	Min uint32
	Max uint32
	// HasMax controls whether Max is encoded; spec.md §6.2 fixes this
	// core's own memory to "min 1 page, no max".
	HasMax bool
}

// Code is one function body: its locals (grouped by value type, as
// the binary format requires) and its instruction bytes.
type Code struct {
	LocalGroups []LocalGroup
	Body        []byte
}

// LocalGroup is a run of consecutive locals sharing one value type.
// RefHeap is set instead of relying on Type alone when the group's
// locals hold a concrete GC reference type (e.g. `ref null $Node`),
// which needs more than Type's single opcode byte to encode.
type LocalGroup struct {
	Count   uint32
	Type    ValueType
	RefHeap *RefType
}

// Export is one entry in the export section.
type Export struct {
	Name  string
	Type  ExternType
	Index uint32
}

// DataSegment is an active data segment targeting linear memory at a
// constant offset, which is the only kind spec.md's string pool needs.
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// NameSection carries the optional debug name subsections this
// compiler emits (spec.md §4.5.7): module, functions and globals.
// Fields is carried but not encoded, and no type-name subsection is
// written.
type NameSection struct {
	Module    string
	Functions map[uint32]string
	Globals   map[uint32]string
	// Fields maps a struct type index to its ordered field names.
	Fields map[uint32][]string
}
