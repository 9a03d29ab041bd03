package wasm

// AddFuncType appends ft to the type section if an equal signature
// isn't already present, and returns its index either way. Function
// types are deduplicated because many user functions and helpers
// share the (i64,i64)->i64 or (ref Node)->ref Node shapes.
func (m *Module) AddFuncType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.Kind == TypeKindFunc && t.Func.EqualsSignature(ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, TypeSectionEntry{Kind: TypeKindFunc, Func: ft})
	return idx
}

// AddStructType appends a new GC struct type unconditionally — unlike
// function types, struct types are never deduplicated because two
// user records with identical field shapes are still distinct named
// types (spec.md §3.3's per-declaration tag allocation).
func (m *Module) AddStructType(name string, st StructType) uint32 {
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, TypeSectionEntry{Kind: TypeKindStruct, Struct: st, Name: name})
	return idx
}

// ImportCount returns the number of function imports, which is the
// offset every module-defined function index is shifted by (spec.md
// §3.5's "imports first" function index space).
func (m *Module) ImportCount() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Type == ExternTypeFunc {
			n++
		}
	}
	return n
}

// AddImportFunc registers a function import and returns its assigned
// function index.
func (m *Module) AddImportFunc(module, name string, typeIdx uint32) uint32 {
	idx := m.ImportCount()
	m.Imports = append(m.Imports, Import{Module: module, Name: name, Type: ExternTypeFunc, FuncTypeIndex: typeIdx})
	return idx
}

// AddFunction appends a module-defined (non-import) function body and
// returns its function index, which follows all imported functions.
func (m *Module) AddFunction(typeIdx uint32, code Code) uint32 {
	idx := m.ImportCount() + uint32(len(m.Functions))
	m.Functions = append(m.Functions, typeIdx)
	m.Code = append(m.Code, code)
	return idx
}

// AddGlobal appends a module-defined global and returns its global
// index. Imported globals are never used by this compiler (spec.md
// never imports a global), so the global index space is simply
// len(Globals) at the time of the call.
func (m *Module) AddGlobal(g Global) uint32 {
	idx := uint32(len(m.Globals))
	m.Globals = append(m.Globals, g)
	return idx
}

// AddExport appends an export entry.
func (m *Module) AddExport(e Export) {
	m.Exports = append(m.Exports, e)
}

// AddData appends a data segment at the offset seg carries. The
// emitter writes the whole string pool as one segment starting at the
// string table's base offset.
func (m *Module) AddData(seg DataSegment) {
	m.Data = append(m.Data, seg)
}

// NodeRefType returns the GC reference type for the $Node struct at
// nodeTypeIdx, nullable or not per the call site (spec.md §4.2's
// node_ref(nullable)).
func NodeRefType(nodeTypeIdx uint32, nullable bool) RefType {
	return RefType{Heap: HeapType(nodeTypeIdx), Nullable: nullable}
}
