// Package typeregistry implements spec.md §3.3: the registry of
// user-declared record types (TypeDef), their tag allocation, and the
// eventual mapping from type name to WebAssembly GC type index once
// the type section has been emitted.
//
// Grounded on the teacher's internal/wasm type-index bookkeeping
// (wazero allocates function/type indices in a single forward pass
// before any code is emitted; we mirror that "register everything,
// then resolve" two-phase shape for user types).
package typeregistry

// firstUserTag is the first tag value allocated to a user-defined
// type; spec.md §3.3 reserves 0-255 for built-in Kinds.
const firstUserTag = 0x10000

// Field is one member of a TypeDef.
type Field struct {
	Name     string
	TypeName string
}

// TypeDef is a user record declaration.
type TypeDef struct {
	Name   string
	Tag    int64
	Fields []Field

	// WasmTypeIndex is populated by the type manager once the type
	// section has been emitted (spec.md §3.3: "maps names to WASM type
	// indices after the type section is finalized").
	WasmTypeIndex uint32
	hasWasmIndex  bool
}

// Registry collects TypeDefs across the whole program in a single
// pre-pass (spec.md §4.1's collect_all_types), so forward references
// between user types are always resolvable.
type Registry struct {
	order   []string
	byName  map[string]*TypeDef
	nextTag int64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byName: map[string]*TypeDef{}, nextTag: firstUserTag}
}

// Register adds a new TypeDef for name with the given fields,
// allocating the next tag in insertion order. Registering the same
// name twice is a no-op returning the existing definition, since a
// forward-referenced type may be declared once and referenced many
// times before its declaration is reached in tree order.
func (r *Registry) Register(name string, fields []Field) *TypeDef {
	if existing, ok := r.byName[name]; ok {
		return existing
	}
	td := &TypeDef{Name: name, Tag: r.nextTag, Fields: fields}
	r.nextTag++
	r.byName[name] = td
	r.order = append(r.order, name)
	return td
}

// Lookup returns the TypeDef for name, or nil and false if name was
// never registered (a forward reference to a type that turned out not
// to exist — the type manager then stores that field as a nullable
// anyref).
func (r *Registry) Lookup(name string) (*TypeDef, bool) {
	td, ok := r.byName[name]
	return td, ok
}

// InOrder returns every registered TypeDef in registration order,
// which is also the order the type manager emits them in (spec.md
// §3.3: "allocates tags in insertion order").
func (r *Registry) InOrder() []*TypeDef {
	out := make([]*TypeDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// SetWasmTypeIndex records the GC type-section index for name once
// the type manager has emitted it.
func (r *Registry) SetWasmTypeIndex(name string, idx uint32) {
	if td, ok := r.byName[name]; ok {
		td.WasmTypeIndex = idx
		td.hasWasmIndex = true
	}
}

// WasmTypeIndex returns the GC type-section index for name, if it has
// been resolved.
func (r *Registry) WasmTypeIndex(name string) (uint32, bool) {
	td, ok := r.byName[name]
	if !ok || !td.hasWasmIndex {
		return 0, false
	}
	return td.WasmTypeIndex, true
}

// Len returns the number of registered user types.
func (r *Registry) Len() int { return len(r.order) }
