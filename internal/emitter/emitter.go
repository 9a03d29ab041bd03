// Package emitter implements spec.md §4.5: the core code generator
// that walks an AST and produces WebAssembly instruction streams, plus
// §4.6's runtime helper library and §4.5.7's final module assembly.
//
// Grounded on wazero's internal/engine/compiler (a single-pass,
// stack-tracking bytecode emitter) for the overall shape of "walk a
// tree once, push/pop an operand model, call out to a dedicated
// instruction encoder" — generalized here from wazero's own
// WASM-to-native compiler into a Wasp-AST-to-WASM-GC compiler.
package emitter

import (
	"fmt"

	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/compilectx"
	"github.com/pannous/wasp/internal/funcreg"
	"github.com/pannous/wasp/internal/importmanager"
	"github.com/pannous/wasp/internal/stringtable"
	"github.com/pannous/wasp/internal/typemanager"
	"github.com/pannous/wasp/internal/wasm"
	"github.com/pannous/wasp/internal/wasm/binary"
)

// Config mirrors the subset of the public EmitterConfig the emitter
// itself needs to see (spec.md §6.4): whether to tree-shake the
// helper library, and whether kind-constant globals are exported.
type Config struct {
	EmitAllFunctions bool
	EmitKindGlobals  bool
}

// UnsupportedNodeError reports an emitter dispatch fallthrough, one of
// spec.md §7's fatal error kinds.
type UnsupportedNodeError struct {
	Kind ast.Kind
	Op   ast.Op
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("emitter: unsupported node (kind=%s, op=%d)", e.Kind, e.Op)
}

// UndefinedSymbolError reports a reference to a name absent from both
// Scope and the module's globals.
type UndefinedSymbolError struct{ Name string }

func (e *UndefinedSymbolError) Error() string {
	return fmt.Sprintf("emitter: undefined symbol %q", e.Name)
}

// Emitter owns the shared, module-wide emission state: the in-progress
// Module, the analysis Context, the type manager, and the string pool.
// FuncCompiler (funcs.go) holds the per-function state layered on top
// of this.
type Emitter struct {
	Module  *wasm.Module
	Ctx     *compilectx.Context
	Types   *typemanager.Manager
	Strings *stringtable.Table
	Imports importmanager.FuncIndices
	Config  Config

	helperIdx map[string]uint32
}

// New returns an Emitter ready to emit helpers and function bodies
// into m. The type manager's core GC types must already be emitted.
func New(m *wasm.Module, ctx *compilectx.Context, types *typemanager.Manager, strings *stringtable.Table, imports importmanager.FuncIndices, cfg Config) *Emitter {
	return &Emitter{
		Module:    m,
		Ctx:       ctx,
		Types:     types,
		Strings:   strings,
		Imports:   imports,
		Config:    cfg,
		helperIdx: map[string]uint32{},
	}
}

// kindTag returns the runtime discriminant for a plain (non-List,
// non-Key) Kind: simply its ordinal value, per spec.md §3.1's "low
// byte of kind is the variant discriminant".
func kindTag(k ast.Kind) int64 { return int64(k) }

// listKindTag packs a List's bracket flavor into the kind field's
// upper bits, per spec.md §4.5.4's new_list contract.
func listKindTag(bracket ast.Bracket) int64 {
	return (int64(bracket) << 8) | kindTag(ast.List)
}

// keyKindTag packs a Key's operator into the kind field's upper bits,
// per spec.md §4.6's new_key contract.
func keyKindTag(op ast.Op) int64 {
	return (int64(op) << 8) | kindTag(ast.KeyKind)
}

// EmitHelpers instantiates every runtime helper the analyzer flagged
// as required (or the entire catalog, when tree-shaking is disabled),
// registering each with the function registry and the module's
// function/code sections.
func (e *Emitter) EmitHelpers() {
	for _, name := range compilectx.AllHelperNames() {
		if !e.Config.EmitAllFunctions && !e.Ctx.IsRequired(name) {
			continue
		}
		sig := e.helperSignature(name)
		typeIdx := e.Module.AddFuncType(sig)
		body := e.buildHelperBody(name)
		idx := e.Module.AddFunction(typeIdx, body)
		e.Ctx.Functions.RegisterCode(name, funcreg.OriginBuiltin)
		e.helperIdx[name] = idx
		e.Ctx.MarkUsed(name)

		switch name {
		case "get_kind", "get_int_value", "new_empty", "new_int", "new_float",
			"new_text", "new_symbol", "new_codepoint", "new_list", "new_key", "new_type":
			e.Module.AddExport(wasm.Export{Name: name, Type: wasm.ExternTypeFunc, Index: idx})
		}
	}
}

// helperIndex returns the function index a previously-emitted helper
// was assigned. The required-function analysis pass is meant to flag
// every helper an emission path can reach before EmitHelpers runs, but
// per spec.md §9's recommended safety net, an under-approximation
// there must not crash a correct program: a miss here emits the
// helper on demand instead, the same fallback EmitAllFunctions takes
// deliberately for every helper.
func (e *Emitter) helperIndex(name string) uint32 {
	if idx, ok := e.helperIdx[name]; ok {
		return idx
	}
	sig := e.helperSignature(name)
	typeIdx := e.Module.AddFuncType(sig)
	body := e.buildHelperBody(name)
	idx := e.Module.AddFunction(typeIdx, body)
	e.Ctx.Functions.RegisterCode(name, funcreg.OriginBuiltin)
	e.helperIdx[name] = idx
	e.Ctx.MarkUsed(name)
	return idx
}

func (e *Emitter) call(b *binary.FuncBody, name string) {
	b.Call(e.helperIndex(name))
}

// EmittedHelperNames returns every helper name EmitHelpers actually
// instantiated, in emission order, for the Compile-level listener
// hook to report.
func (e *Emitter) EmittedHelperNames() []string {
	out := make([]string, 0, len(e.helperIdx))
	for _, name := range compilectx.AllHelperNames() {
		if _, ok := e.helperIdx[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// HelperIndexFor returns the function index assigned to an emitted
// helper, reporting false on a miss instead of building the helper
// (unlike helperIndex, which builds a missing helper on demand).
func (e *Emitter) HelperIndexFor(name string) (uint32, bool) {
	idx, ok := e.helperIdx[name]
	return idx, ok
}

// nodeRefType is shorthand for a nullable `ref null $Node`, the type
// every node-mode value and every node-holding local uses.
func (e *Emitter) nodeRefType() wasm.RefType { return e.Types.NodeRef(true) }

// EmitKindGlobals exports one immutable i64 global per Kind constant,
// per spec.md §6.2, when the config enables it.
func (e *Emitter) EmitKindGlobals() {
	if !e.Config.EmitKindGlobals {
		return
	}
	kinds := []ast.Kind{
		ast.Empty, ast.Int, ast.Float, ast.Text, ast.Codepoint, ast.Symbol,
		ast.KeyKind, ast.Block, ast.List, ast.Data, ast.Meta, ast.ErrorKind,
		ast.TypeDef, ast.Pointer, ast.Int32, ast.Float32,
	}
	for _, k := range kinds {
		idx := e.Module.AddGlobal(wasm.Global{
			Type:    wasm.GlobalType{ValType: wasm.ValueTypeI64, Mutable: false},
			InitI64: kindTag(k),
		})
		e.Ctx.KindGlobalIndices[k] = idx
		e.Module.AddExport(wasm.Export{Name: "kind_" + kindExportName(k), Type: wasm.ExternTypeGlobal, Index: idx})
	}
}

func kindExportName(k ast.Kind) string {
	switch k {
	case ast.ErrorKind:
		return "error"
	case ast.KeyKind:
		return "key"
	default:
		return lower(k.String())
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// Assemble finishes the module: declares the memory, writes the data
// section from the string table, attaches the name section, and hands
// everything to internal/wasm/binary.Assemble for final validation and
// serialization (spec.md §4.5.7, §6.2).
func (e *Emitter) Assemble(moduleName string) ([]byte, error) {
	e.Module.Memory = &wasm.Memory{Min: 1, HasMax: false}

	// The string pool is laid out contiguously from its base offset, so
	// it is written as a single active data segment.
	if order := e.Strings.InOrder(); len(order) > 0 {
		first, _ := e.Strings.Lookup(order[0])
		var pool []byte
		for _, s := range order {
			pool = append(pool, s...)
		}
		e.Module.AddData(wasm.DataSegment{Offset: first.Offset, Bytes: pool})
	}

	e.Module.Names = &wasm.NameSection{
		Module:    moduleName,
		Functions: map[uint32]string{},
		Globals:   map[uint32]string{},
	}
	for _, exp := range e.Module.Exports {
		switch exp.Type {
		case wasm.ExternTypeFunc:
			e.Module.Names.Functions[exp.Index] = exp.Name
		case wasm.ExternTypeGlobal:
			e.Module.Names.Globals[exp.Index] = exp.Name
		}
	}

	return binary.Assemble(e.Module)
}
