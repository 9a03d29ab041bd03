// Package binary serializes an internal/wasm.Module into the
// WebAssembly binary format (spec.md §4.5.7, §6.2): the magic header,
// sections in their required order, and an optional name custom
// section for debugging. It also performs the structural validation
// spec.md §7 requires before bytes are returned from a compilation.
package binary

import (
	"errors"
	"fmt"

	"github.com/pannous/wasp/internal/wasm"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d}
var version = []byte{0x01, 0x00, 0x00, 0x00}

// Assemble concatenates the module's sections into a final byte
// vector, in the order the binary format requires: types, imports,
// functions, memory, globals, exports, code, data, and finally the
// name custom section (spec.md §4.5.7).
func Assemble(m *wasm.Module) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1024)
	out = append(out, magic...)
	out = append(out, version...)

	out = append(out, encodeTypeSection(m)...)
	out = append(out, encodeImportSection(m)...)
	out = append(out, encodeFunctionSection(m)...)
	out = append(out, encodeMemorySection(m)...)
	out = append(out, encodeGlobalSection(m)...)
	out = append(out, encodeExportSection(m)...)
	out = append(out, encodeCodeSection(m)...)
	out = append(out, encodeDataSection(m)...)
	out = append(out, encodeNameSection(m)...)

	return out, nil
}

// Validate performs the structural checks this core is responsible
// for before handing bytes to an external engine (spec.md §7's
// "Validation failure" row: a failure here indicates an internal
// emitter bug, not a user error). It does not re-implement full WASM
// type-checking (operand stack typing is the emitter's own
// responsibility per instruction, and the external engine is the
// final authority per spec.md §1's scope boundary); it checks the
// structural invariants the assembler itself must uphold.
func Validate(m *wasm.Module) error {
	typeCount := uint32(len(m.Types))
	importFuncCount := m.ImportCount()
	funcCount := importFuncCount + uint32(len(m.Functions))

	for i, imp := range m.Imports {
		if imp.Type == wasm.ExternTypeFunc && imp.FuncTypeIndex >= typeCount {
			return fmt.Errorf("%w: import %d (%s.%s) references type index %d, have %d types",
				errValidation, i, imp.Module, imp.Name, imp.FuncTypeIndex, typeCount)
		}
	}
	for i, idx := range m.Functions {
		if idx >= typeCount {
			return fmt.Errorf("%w: function %d references type index %d, have %d types",
				errValidation, i, idx, typeCount)
		}
	}
	if len(m.Functions) != len(m.Code) {
		return fmt.Errorf("%w: %d function declarations but %d code bodies", errValidation, len(m.Functions), len(m.Code))
	}
	for i, exp := range m.Exports {
		switch exp.Type {
		case wasm.ExternTypeFunc:
			if exp.Index >= funcCount {
				return fmt.Errorf("%w: export %d (%q) references function index %d, have %d functions",
					errValidation, i, exp.Name, exp.Index, funcCount)
			}
		case wasm.ExternTypeGlobal:
			if exp.Index >= uint32(len(m.Globals)) {
				return fmt.Errorf("%w: export %d (%q) references global index %d, have %d globals",
					errValidation, i, exp.Name, exp.Index, len(m.Globals))
			}
		}
	}
	seenExportNames := map[string]bool{}
	for _, exp := range m.Exports {
		if seenExportNames[exp.Name] {
			return fmt.Errorf("%w: duplicate export name %q", errValidation, exp.Name)
		}
		seenExportNames[exp.Name] = true
	}
	return nil
}

var errValidation = errors.New("wasm binary validation failed")
