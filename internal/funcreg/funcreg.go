// Package funcreg implements spec.md §3.5: the ordered function
// registry (imports first, then code, mirroring WASM's own function
// index space), user-function definitions with a two-pass
// forward-reference-safe index assignment, and the FFI import
// signature table.
package funcreg

import (
	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/wasm"
)

// FuncOrigin classifies where a registered function came from.
type FuncOrigin int

const (
	OriginHost FuncOrigin = iota
	OriginImport
	OriginBuiltin
	OriginUser
)

// FuncEntry is one row of the FunctionRegistry.
type FuncEntry struct {
	Name      string
	CallIndex uint32
	Origin    FuncOrigin
}

// Registry is the ordered function table described in spec.md §3.5.
// Entries are appended in call-index order; imports are always
// registered before any code function (internal/importmanager enforces
// this by running first).
type Registry struct {
	byName map[string]*FuncEntry
	order  []*FuncEntry
	nextImportIdx uint32
	nextCodeIdx   uint32
	haveAnyImport bool
}

// New returns an empty Registry.
func New() *Registry { return &Registry{byName: map[string]*FuncEntry{}} }

// RegisterImport adds a host or FFI import and returns its function
// index.
func (r *Registry) RegisterImport(name string, origin FuncOrigin) uint32 {
	idx := r.nextImportIdx
	r.nextImportIdx++
	r.haveAnyImport = true
	e := &FuncEntry{Name: name, CallIndex: idx, Origin: origin}
	r.byName[name] = e
	r.order = append(r.order, e)
	return idx
}

// importCount reports how many imports were registered, used to
// offset code-function indices into WASM's unified function index
// space.
func (r *Registry) importCount() uint32 { return r.nextImportIdx }

// RegisterCode adds a builtin helper or user function and returns its
// function index (import count + running code-function count).
func (r *Registry) RegisterCode(name string, origin FuncOrigin) uint32 {
	idx := r.importCount() + r.nextCodeIdx
	r.nextCodeIdx++
	e := &FuncEntry{Name: name, CallIndex: idx, Origin: origin}
	r.byName[name] = e
	r.order = append(r.order, e)
	return idx
}

// Lookup finds a registered function by name.
func (r *Registry) Lookup(name string) (*FuncEntry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// ImportCount returns the number of import-origin functions.
func (r *Registry) ImportCount() uint32 { return r.nextImportIdx }

// CodeCount returns the number of code (builtin + user) functions.
func (r *Registry) CodeCount() uint32 { return r.nextCodeIdx }

// Param is one parameter of a user function definition, with an
// optional default-value expression.
type Param struct {
	Name    string
	Default *ast.Node
}

// UserFunctionDef is spec.md §3.5's UserFunctionDef: a user function's
// signature is registered (func index assigned) before any bodies are
// compiled, so forward references between user functions resolve.
type UserFunctionDef struct {
	Name       string
	Params     []Param
	Body       *ast.Node
	ReturnKind ast.Kind

	FuncIndex    uint32
	hasFuncIndex bool
}

// SetFuncIndex records the function index assigned during the
// registration pass (spec.md §4.5.5 pass 1).
func (f *UserFunctionDef) SetFuncIndex(idx uint32) {
	f.FuncIndex = idx
	f.hasFuncIndex = true
}

// HasFuncIndex reports whether SetFuncIndex has run yet.
func (f *UserFunctionDef) HasFuncIndex() bool { return f.hasFuncIndex }

// FFISignature is the synthesized WebAssembly signature for one
// foreign import (spec.md §3.5, §4.1's extract_ffi_imports).
type FFISignature struct {
	Library string
	Params  []wasm.ValueType
	Results []wasm.ValueType
}

// FFITable is the name -> signature map spec.md §3.5 describes,
// emitted in deterministic (sorted-by-name) order by the import
// manager.
type FFITable struct {
	byName map[string]FFISignature
	names  []string
}

// NewFFITable returns an empty FFITable.
func NewFFITable() *FFITable { return &FFITable{byName: map[string]FFISignature{}} }

// Add registers a foreign function signature, skipping names already
// present (a program may `use` the same library function more than
// once).
func (t *FFITable) Add(name string, sig FFISignature) {
	if _, ok := t.byName[name]; ok {
		return
	}
	t.byName[name] = sig
	t.names = append(t.names, name)
}

// Update overwrites the signature registered for name, used when a
// later pass discovers a wider call site than the import declaration
// alone implied (spec.md §4.3's untyped FFI surface syntax).
func (t *FFITable) Update(name string, sig FFISignature) {
	if _, ok := t.byName[name]; !ok {
		return
	}
	t.byName[name] = sig
}

// Lookup returns the signature registered for name.
func (t *FFITable) Lookup(name string) (FFISignature, bool) {
	sig, ok := t.byName[name]
	return sig, ok
}

// SortedNames returns every registered FFI name in sorted order,
// per spec.md §4.3's "emission order is deterministic (sort by name
// before allocating import indices)".
func (t *FFITable) SortedNames() []string {
	out := append([]string(nil), t.names...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Len reports how many FFI functions are registered.
func (t *FFITable) Len() int { return len(t.names) }
