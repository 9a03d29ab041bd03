// Package typemanager implements spec.md §4.2: ownership of the WASM
// type section, emission of the core GC types ($String, $Node,
// $i64box, $f64box) and all user record types, and the vending of type
// indices and reference types to the rest of the compiler.
//
// Grounded on wazero's internal/wasm module-construction helpers
// (indices allocated strictly in emission order, never renumbered) and
// on spec.md §4.2's own fixed type graph.
package typemanager

import (
	"github.com/pannous/wasp/internal/typeregistry"
	"github.com/pannous/wasp/internal/wasm"
)

// Manager owns the type section of an in-progress Module.
type Manager struct {
	module *wasm.Module

	stringType uint32
	nodeType   uint32
	i64BoxType uint32
	f64BoxType uint32
	haveCore   bool
}

// New returns a Manager writing into m.
func New(m *wasm.Module) *Manager {
	return &Manager{module: m}
}

// EmitGCTypes emits the four fixed core types in the order spec.md
// §4.2 mandates, idempotently: a second call returns the indices
// already allocated without emitting duplicates.
func (mgr *Manager) EmitGCTypes() {
	if mgr.haveCore {
		return
	}
	mgr.stringType = mgr.module.AddStructType("String", wasm.StructType{Fields: []wasm.FieldType{
		{Name: "ptr", Type: wasm.StorageType{Value: wasm.ValueTypeI32}},
		{Name: "len", Type: wasm.StorageType{Value: wasm.ValueTypeI32}},
	}})

	mgr.nodeType = mgr.module.AddStructType("Node", wasm.StructType{Fields: []wasm.FieldType{
		{Name: "kind", Type: wasm.StorageType{Value: wasm.ValueTypeI64}},
		{Name: "data", Type: wasm.StorageType{Value: wasm.ValueTypeAnyref}, Mutable: true},
		{Name: "value", Type: wasm.StorageType{Value: wasm.ValueTypeAnyref}, Mutable: true},
	}})

	mgr.i64BoxType = mgr.module.AddStructType("i64box", wasm.StructType{Fields: []wasm.FieldType{
		{Name: "value", Type: wasm.StorageType{Value: wasm.ValueTypeI64}},
	}})

	mgr.f64BoxType = mgr.module.AddStructType("f64box", wasm.StructType{Fields: []wasm.FieldType{
		{Name: "value", Type: wasm.StorageType{Value: wasm.ValueTypeF64}},
	}})

	mgr.haveCore = true
}

// StringType, NodeType, I64BoxType, F64BoxType return the indices
// EmitGCTypes allocated.
func (mgr *Manager) StringType() uint32 { return mgr.stringType }
func (mgr *Manager) NodeType() uint32   { return mgr.nodeType }
func (mgr *Manager) I64BoxType() uint32 { return mgr.i64BoxType }
func (mgr *Manager) F64BoxType() uint32 { return mgr.f64BoxType }

// NodeRef produces the GC reference type for $Node, nullable per the
// call site (spec.md §4.2's node_ref(nullable)).
func (mgr *Manager) NodeRef(nullable bool) wasm.RefType {
	return wasm.NodeRefType(mgr.nodeType, nullable)
}

// fieldValueType maps one TypeDef field's declared type name to its
// WASM field storage form, per spec.md §4.2's field mapping table.
func (mgr *Manager) fieldValueType(typeName string, reg *typeregistry.Registry) (wasm.StorageType, bool) {
	switch typeName {
	case "Int", "long":
		return wasm.StorageType{Value: wasm.ValueTypeI64}, false
	case "Float", "double":
		return wasm.StorageType{Value: wasm.ValueTypeF64}, false
	case "int", "i32":
		return wasm.StorageType{Value: wasm.ValueTypeI32}, false
	case "float", "f32":
		return wasm.StorageType{Value: wasm.ValueTypeF32}, false
	case "Text", "String":
		return wasm.StorageType{Value: wasm.ValueTypeAnyref}, true
	case "Node":
		return wasm.StorageType{Value: wasm.ValueTypeAnyref}, true
	}
	if _, ok := reg.Lookup(typeName); ok {
		return wasm.StorageType{Value: wasm.ValueTypeAnyref}, true
	}
	return wasm.StorageType{Value: wasm.ValueTypeAnyref}, true
}

// EmitUserTypes emits one GC struct per registered TypeDef, in
// registry order, and records each name's resolved WASM type index
// back into reg.
func (mgr *Manager) EmitUserTypes(reg *typeregistry.Registry) {
	for _, td := range reg.InOrder() {
		fields := make([]wasm.FieldType, 0, len(td.Fields))
		for _, f := range td.Fields {
			st, mutable := mgr.fieldValueType(f.TypeName, reg)
			fields = append(fields, wasm.FieldType{Name: f.Name, Type: st, Mutable: mutable})
		}
		idx := mgr.module.AddStructType(td.Name, wasm.StructType{Fields: fields})
		reg.SetWasmTypeIndex(td.Name, idx)
	}
}
