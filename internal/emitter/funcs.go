package emitter

import (
	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/analyzer"
	"github.com/pannous/wasp/internal/funcreg"
	"github.com/pannous/wasp/internal/scope"
	"github.com/pannous/wasp/internal/wasm"
	"github.com/pannous/wasp/internal/wasm/binary"
)

// FuncCompiler holds the per-function emission state layered on top
// of the module-wide Emitter: the instruction stream being built, the
// function's Scope, and whether bare assignment to an undeclared name
// creates a module global (true only for the implicit main body, per
// spec.md §4.5.3's "global: Key(name, =, v)" case).
type FuncCompiler struct {
	e            *Emitter
	b            *binary.FuncBody
	scope        *scope.Scope
	allowGlobals bool
}

// NewFuncCompiler starts a fresh function body over sc.
func NewFuncCompiler(e *Emitter, sc *scope.Scope, allowGlobals bool) *FuncCompiler {
	return &FuncCompiler{e: e, b: binary.NewFuncBody(), scope: sc, allowGlobals: allowGlobals}
}

// CompileUserFunctions runs spec.md §4.5.5's two-pass user function
// compilation: pass 1 registers every signature (so forward references
// resolve), pass 2 compiles each body and exports it by name.
func CompileUserFunctions(e *Emitter) {
	defs := e.Ctx.UserFunctionsInOrder()

	// Pass 1: function indices follow directly from the import count
	// plus every code function already emitted (the runtime helper
	// library, emitted earlier) plus this function's position, so they
	// can be computed without touching the module yet — forward calls
	// between user functions resolve before any body is compiled.
	base := e.Module.ImportCount() + uint32(len(e.Module.Functions))
	for i, def := range defs {
		e.Ctx.Functions.RegisterCode(def.Name, funcreg.OriginUser)
		def.SetFuncIndex(base + uint32(i))
	}

	// Pass 2: compile each body in the same order, so the sequential
	// AddFunction calls assign exactly the indices reserved above.
	for _, def := range defs {
		sc := scope.New()
		for i, p := range def.Params {
			sc.Declare(p.Name, uint32(i), ast.Int)
		}
		fc := NewFuncCompiler(e, sc, false)

		var result ast.Kind
		if def.ReturnKind.IsRef() {
			fc.EmitNode(def.Body)
		} else {
			result = fc.EmitRaw(def.Body)
			if result == ast.Float {
				fc.b.Op0(binary.OpcodeI64TruncF64S)
			}
		}
		declareScopeLocals(fc, uint32(len(def.Params)))

		var resultTypes []wasm.ValueType
		if def.ReturnKind.IsRef() {
			resultTypes = []wasm.ValueType{wasm.ValueTypeAnyref}
		} else {
			resultTypes = []wasm.ValueType{wasm.ValueTypeI64}
		}
		paramTypes := make([]wasm.ValueType, len(def.Params))
		for i := range paramTypes {
			paramTypes[i] = wasm.ValueTypeI64
		}
		typeIdx := e.Module.AddFuncType(wasm.FuncType{Params: paramTypes, Results: resultTypes})
		idx := e.Module.AddFunction(typeIdx, fc.b.Finish())
		def.SetFuncIndex(idx)
		e.Module.AddExport(wasm.Export{Name: def.Name, Type: wasm.ExternTypeFunc, Index: idx})
	}
}

// declareScopeLocals reserves one WASM local group per variable in sc
// beyond its first paramCount slots (which are the function's real
// parameters and need no declaration): both the ones CollectVariables
// reserved up front and the ones the body's emission added. Must run
// after the body is fully emitted — scope entries for
// globals-that-turned-out-local, while-loop scratch values, and
// list-literal cons construction are added lazily during
// EmitNode/EmitRaw.
func declareScopeLocals(fc *FuncCompiler, paramCount uint32) {
	for _, name := range fc.scope.Names() {
		l, _ := fc.scope.Lookup(name)
		if l.Position < paramCount {
			continue
		}
		switch {
		case l.Kind.IsFloat():
			fc.b.DeclareLocals(1, wasm.ValueTypeF64)
		case l.Kind.IsRef():
			fc.b.DeclareLocalsRef(1, fc.e.nodeRefType())
		default:
			fc.b.DeclareLocals(1, wasm.ValueTypeI64)
		}
	}
}

// CompileMain emits spec.md §4.5.6's main function: no parameters,
// result type ref $Node (default mode) or i64 (WASI mode), locals
// reserved from CollectVariables, body emitted, exported by name.
func CompileMain(e *Emitter, root *ast.Node, wasiMode bool) {
	sc := scope.New()
	analyzer.CollectVariables(root, sc)
	fc := NewFuncCompiler(e, sc, true)

	var results []wasm.ValueType
	if wasiMode {
		k := fc.EmitRaw(root)
		if k == ast.Float {
			fc.b.Op0(binary.OpcodeI64TruncF64S)
		}
		results = []wasm.ValueType{wasm.ValueTypeI64}
	} else {
		fc.EmitNode(root)
		results = []wasm.ValueType{wasm.ValueTypeAnyref}
	}
	declareScopeLocals(fc, 0)

	typeIdx := e.Module.AddFuncType(wasm.FuncType{Results: results})
	idx := e.Module.AddFunction(typeIdx, fc.b.Finish())
	e.Module.AddExport(wasm.Export{Name: "main", Type: wasm.ExternTypeFunc, Index: idx})
}
