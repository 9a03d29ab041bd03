// Package importmanager implements spec.md §4.3: collection of the
// three optional import blocks (host, WASI, FFI), each establishing
// its functions' call indices with the function registry before any
// code function is registered.
//
// Grounded on the teacher's import-resolution ordering in
// internal/wasm (imports are always assigned indices before any
// module-defined function) and on wazero's own fd_write-shaped WASI
// import signature.
package importmanager

import (
	"github.com/pannous/wasp/internal/compilectx"
	"github.com/pannous/wasp/internal/funcreg"
	"github.com/pannous/wasp/internal/wasm"
)

const (
	hostModule = "host"
	wasiModule = "wasi_snapshot_preview1"
)

// Options selects which optional import blocks to materialize,
// mirroring spec.md §6.4's EmitterConfig flags.
type Options struct {
	EmitHostImports bool
	EmitWASIImports bool
	EmitFFIImports  bool
}

// FuncIndices records the function indices assigned to the
// recognized host imports, so the emitter can call them by name
// without a second registry lookup.
type FuncIndices struct {
	HostFetch  uint32
	HasFetch   bool
	HostRun    uint32
	HasRun     bool
	WASIFdWrite uint32
	HasFdWrite bool
}

// Collect registers every enabled import block against m and ctx's
// function registry, in the fixed order spec.md §4.3 specifies: host,
// then WASI, then FFI. Each import's function index is established
// before any code function is registered, since the caller runs this
// before compiling any function body.
func Collect(m *wasm.Module, ctx *compilectx.Context, opts Options) FuncIndices {
	var out FuncIndices

	if opts.EmitHostImports {
		fetchType := m.AddFuncType(wasm.FuncType{
			Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
			Results: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
		})
		fetchIdx := m.AddImportFunc(hostModule, "fetch", fetchType)
		ctx.Functions.RegisterImport("host.fetch", funcreg.OriginHost)
		out.HostFetch, out.HasFetch = fetchIdx, true

		runType := m.AddFuncType(wasm.FuncType{
			Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
			Results: []wasm.ValueType{wasm.ValueTypeI64},
		})
		runIdx := m.AddImportFunc(hostModule, "run", runType)
		ctx.Functions.RegisterImport("host.run", funcreg.OriginHost)
		out.HostRun, out.HasRun = runIdx, true
	}

	if opts.EmitWASIImports {
		fdWriteType := m.AddFuncType(wasm.FuncType{
			Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32},
			Results: []wasm.ValueType{wasm.ValueTypeI32},
		})
		idx := m.AddImportFunc(wasiModule, "fd_write", fdWriteType)
		ctx.Functions.RegisterImport("wasi.fd_write", funcreg.OriginImport)
		out.WASIFdWrite, out.HasFdWrite = idx, true
	}

	if opts.EmitFFIImports {
		for _, name := range ctx.FFI.SortedNames() {
			sig, _ := ctx.FFI.Lookup(name)
			typeIdx := m.AddFuncType(wasm.FuncType{Params: sig.Params, Results: sig.Results})
			m.AddImportFunc(sig.Library, name, typeIdx)
			ctx.Functions.RegisterImport(name, funcreg.OriginImport)
		}
	}

	return out
}
