// Package compilectx implements spec.md §3.7: the single module-scope
// state bag threaded through analysis and emission. One Context is
// created per compilation and consumed when emission finishes.
package compilectx

import (
	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/funcreg"
	"github.com/pannous/wasp/internal/typeregistry"
)

// requiredHelpers is the catalog of runtime helper names spec.md
// §4.1's analyze_required_functions draws from, ordered so that every
// helper's own body (emitter/helpers.go) only ever calls a helper that
// precedes it here — the emitter assigns function indices in this
// same order, in one pass, so a callee must already have its index
// before a caller's body can reference it.
var requiredHelpers = []string{
	"new_empty", "new_int", "new_float", "new_text", "new_symbol",
	"new_codepoint", "new_key", "new_list", "new_type",
	"get_kind", "get_int_value", "node_count",
	"list_node_at", "list_at", "list_set_at",
	"string_char_at", "string_set_char_at",
	"node_index_at", "node_set_at", "i64_pow",
}

// Global records a module-level variable's WASM global index and
// value Kind.
type Global struct {
	Index uint32
	Kind  ast.Kind
}

// Context is the module-scope state threaded from the analyzer through
// the emitter to the assembler.
type Context struct {
	Functions *funcreg.Registry
	Types     *typeregistry.Registry
	FFI       *funcreg.FFITable

	UserFunctions map[string]*funcreg.UserFunctionDef
	userFuncOrder []string

	Globals     map[string]Global
	globalOrder []string

	// required is the subset of the helper catalog that
	// analyze_required_functions marked (tree-shaking keeps only these
	// unless EmitAllFunctions is set); used is the set of helpers whose
	// bodies were actually emitted.
	required map[string]bool
	used     map[string]bool

	// UserTypeIndices maps a registered TypeDef name to its WASM GC
	// type index, mirrored here for quick emitter lookup alongside
	// Types.WasmTypeIndex.
	UserTypeIndices map[string]uint32

	// KindGlobalIndices maps a Kind to the WASM global index exporting
	// its discriminant constant (spec.md §6.2's "Kind constant
	// globals").
	KindGlobalIndices map[ast.Kind]uint32
}

// New returns a fresh Context ready for the analyzer's pre-pass.
func New() *Context {
	c := &Context{
		Functions:         funcreg.New(),
		Types:             typeregistry.New(),
		FFI:               funcreg.NewFFITable(),
		UserFunctions:     map[string]*funcreg.UserFunctionDef{},
		Globals:           map[string]Global{},
		required:          map[string]bool{},
		used:              map[string]bool{},
		UserTypeIndices:   map[string]uint32{},
		KindGlobalIndices: map[ast.Kind]uint32{},
	}
	return c
}

// DeclareUserFunction registers def in source order. Re-declaring the
// same name replaces the prior definition (last declaration wins, as
// with Globals).
func (c *Context) DeclareUserFunction(def *funcreg.UserFunctionDef) {
	if _, exists := c.UserFunctions[def.Name]; !exists {
		c.userFuncOrder = append(c.userFuncOrder, def.Name)
	}
	c.UserFunctions[def.Name] = def
}

// UserFunctionsInOrder returns every declared user function in source
// declaration order, for pass-1 signature registration (spec.md
// §4.5.5).
func (c *Context) UserFunctionsInOrder() []*funcreg.UserFunctionDef {
	out := make([]*funcreg.UserFunctionDef, 0, len(c.userFuncOrder))
	for _, name := range c.userFuncOrder {
		out = append(out, c.UserFunctions[name])
	}
	return out
}

// DeclareGlobal registers a module-level variable's global index and
// kind.
func (c *Context) DeclareGlobal(name string, g Global) {
	if _, exists := c.Globals[name]; !exists {
		c.globalOrder = append(c.globalOrder, name)
	}
	c.Globals[name] = g
}

// LookupGlobal returns the Global registered for name.
func (c *Context) LookupGlobal(name string) (Global, bool) {
	g, ok := c.Globals[name]
	return g, ok
}

// GlobalsInOrder returns every declared global name in declaration
// order.
func (c *Context) GlobalsInOrder() []string {
	return append([]string(nil), c.globalOrder...)
}

// RequireHelper marks name as needed by the program being compiled
// (spec.md §4.1's analyze_required_functions walks the tree once and
// calls this for every helper a lowering reaches).
func (c *Context) RequireHelper(name string) {
	c.required[name] = true
}

// IsRequired reports whether name was marked required during analysis.
func (c *Context) IsRequired(name string) bool {
	return c.required[name]
}

// MarkUsed records that the emitter emitted name's helper body,
// distinct from merely being required. The emitter calls it from
// EmitHelpers and from its on-demand helper fallback, so the used set
// also holds helpers that analysis missed.
func (c *Context) MarkUsed(name string) {
	c.used[name] = true
}

// IsUsed reports whether name was actually emitted.
func (c *Context) IsUsed(name string) bool {
	return c.used[name]
}

// AllHelperNames returns the full catalog analyze_required_functions
// may mark as required, independent of any one program.
func AllHelperNames() []string {
	return append([]string(nil), requiredHelpers...)
}
