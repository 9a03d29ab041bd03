// Package compiler implements spec.md's top-level entry point: turning
// a Wasp AST into a validated WebAssembly GC binary. Compile wires the
// analyzer, type manager, import manager, and emitter pipeline stages
// in the order spec.md §4 fixes, and is the only exported surface a
// caller needs.
//
// Grounded on the teacher's config.go/builder.go layering: a small
// root package holding the public entry points and their immutable
// configuration, with every pipeline stage itself living under
// internal/ (internal/wasm, internal/wasm/binary, internal/engine/...
// in the teacher; internal/analyzer, internal/emitter, ... here).
package compiler

import (
	"fmt"

	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/analyzer"
	"github.com/pannous/wasp/internal/emitter"
	"github.com/pannous/wasp/internal/importmanager"
	"github.com/pannous/wasp/internal/stringtable"
	"github.com/pannous/wasp/internal/typemanager"
	"github.com/pannous/wasp/internal/wasm"
)

// Phase names a stage of the compilation pipeline, used by both
// CompileError and EmitListener to locate where something happened.
type Phase string

const (
	PhaseAnalyze  Phase = "analyze"
	PhaseType     Phase = "type"
	PhaseImport   Phase = "import"
	PhaseEmit     Phase = "emit"
	PhaseAssemble Phase = "assemble"
)

// CompileError is spec.md §7's fatal-error envelope: every panic
// raised by an internal pass is recovered at the Compile boundary and
// reported with the phase it happened in, so internal passes stay
// panic-based (simple, no error-plumbing through every recursive
// EmitNode/EmitRaw call) while the public API stays conventional Go
// error-returning.
//
// Grounded on wazero's own internal engine panic/recover boundary
// (internal/engine/compiler panics on invariant violations; the outer
// Store/Runtime recovers and returns a regular error).
type CompileError struct {
	Phase Phase
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiler: %s phase: %v", e.Phase, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// EmitListener is the ambient diagnostic hook spec.md's expanded
// logging section describes: a caller can observe compilation
// progress without this package depending on any logging framework.
// Every method is optional to implement meaningfully — NopListener
// supplies no-op defaults.
//
// Grounded on the teacher's internal/logging.FunctionListener-shaped
// hook, generalized from "log a host function call" to "log a
// compiler phase boundary".
type EmitListener interface {
	OnAnalyzeStart()
	OnHelperEmitted(name string, index uint32)
	OnUserFunctionEmitted(name string, index uint32)
	OnAssembled(byteLen int)
}

// NopListener implements EmitListener with no-op methods, the default
// used when a caller doesn't supply one.
type NopListener struct{}

func (NopListener) OnAnalyzeStart()                            {}
func (NopListener) OnHelperEmitted(name string, index uint32)   {}
func (NopListener) OnUserFunctionEmitted(name string, index uint32) {}
func (NopListener) OnAssembled(byteLen int)                     {}

// Compile runs every pass of spec.md §4 over root and returns the
// assembled WebAssembly GC binary: module identity, every fixed core
// GC type plus any user record types, the optional host/WASI/FFI
// import blocks, the tree-shaken runtime helper library, every user
// function, the implicit main body, and the final validated byte
// stream.
//
// cfg selects which of §6.4's optional features this compilation
// includes; listener receives phase-boundary notifications if
// non-nil.
func Compile(root *ast.Node, cfg EmitterConfig, listener EmitListener) (bytes []byte, err error) {
	if listener == nil {
		listener = NopListener{}
	}

	current := PhaseAnalyze
	defer func() {
		if r := recover(); r != nil {
			phase, cause := classifyPanic(r)
			if _, tagged := r.(*phaseError); !tagged {
				phase = current
			}
			err = &CompileError{Phase: phase, Err: cause}
			bytes = nil
		}
	}()

	listener.OnAnalyzeStart()
	ctx := analyzer.Analyze(root)

	current = PhaseType
	m := &wasm.Module{}
	types := typemanager.New(m)
	types.EmitGCTypes()
	types.EmitUserTypes(ctx.Types)

	// puts/puti/putf build a WASI iovec {ptr:i32, len:i32} at offset 0
	// and write fd_write's nwritten result at offset 8 (spec.md §4.3,
	// §4.5.4); reserve that 16-byte scratch region before string data
	// begins so the two never alias the same linear-memory bytes.
	current = PhaseImport
	stringBase := uint32(0)
	if cfg.wasiImports {
		stringBase = 16
	}
	strings := stringtable.New(stringBase)
	stringtable.CollectFromNode(root, strings)

	imports := importmanager.Collect(m, ctx, importmanager.Options{
		EmitHostImports: cfg.hostImports,
		EmitWASIImports: cfg.wasiImports,
		EmitFFIImports:  cfg.ffiImports,
	})

	current = PhaseEmit
	e := emitter.New(m, ctx, types, strings, imports, emitter.Config{
		EmitAllFunctions: cfg.emitAllFunctions,
		EmitKindGlobals:  cfg.kindGlobals,
	})

	e.EmitKindGlobals()
	e.EmitHelpers()
	for _, name := range allHelperIndicesInOrder(e) {
		listener.OnHelperEmitted(name.name, name.index)
	}

	emitter.CompileUserFunctions(e)
	for _, def := range ctx.UserFunctionsInOrder() {
		listener.OnUserFunctionEmitted(def.Name, def.FuncIndex)
	}

	emitter.CompileMain(e, root, cfg.wasiImports)

	out, asmErr := e.Assemble(cfg.moduleName)
	if asmErr != nil {
		panic(&phaseError{phase: PhaseAssemble, err: asmErr})
	}
	listener.OnAssembled(len(out))
	return out, nil
}

// phaseError tags a panic value with the phase it originated in, so
// classifyPanic can report precisely instead of defaulting every
// panic to PhaseEmit.
type phaseError struct {
	phase Phase
	err   error
}

func (p *phaseError) Error() string { return p.err.Error() }

func classifyPanic(r interface{}) (Phase, error) {
	switch v := r.(type) {
	case *phaseError:
		return v.phase, v.err
	case error:
		return PhaseEmit, v
	case string:
		return PhaseEmit, fmt.Errorf("%s", v)
	default:
		return PhaseEmit, fmt.Errorf("%v", v)
	}
}

type helperEvent struct {
	name  string
	index uint32
}

// allHelperIndicesInOrder is a thin adapter so Compile can report each
// emitted helper's assigned index to the listener without exposing
// emitter's internal helperIdx map.
func allHelperIndicesInOrder(e *emitter.Emitter) []helperEvent {
	var out []helperEvent
	for _, name := range e.EmittedHelperNames() {
		idx, _ := e.HelperIndexFor(name)
		out = append(out, helperEvent{name: name, index: idx})
	}
	return out
}
