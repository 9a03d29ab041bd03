package binary

import (
	"github.com/pannous/wasp/internal/leb128"
	"github.com/pannous/wasp/internal/wasm"
)

// Section ids, per the WebAssembly binary format.
const (
	sectionCustom   = 0
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11
)

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func encodeName(s string) []byte {
	b := leb128.EncodeUint32(uint32(len(s)))
	return append(b, s...)
}

func encodeValType(t wasm.ValueType) []byte { return []byte{t} }

func encodeRefType(ref wasm.RefType) []byte {
	var out []byte
	if ref.Nullable {
		out = append(out, RefNullablePrefix)
	} else {
		out = append(out, RefNonNullPrefix)
	}
	return append(out, leb128.EncodeInt64(int64(ref.Heap))...)
}

func encodeStorageType(s wasm.StorageType) []byte {
	if !s.Packed {
		return []byte{s.Value}
	}
	if s.Packed16 {
		return []byte{0x77} // i16
	}
	return []byte{0x78} // i8
}

func encodeFuncType(ft wasm.FuncType) []byte {
	var out []byte
	out = append(out, 0x60) // func type form
	out = append(out, leb128.EncodeUint32(uint32(len(ft.Params)))...)
	out = append(out, ft.Params...)
	out = append(out, leb128.EncodeUint32(uint32(len(ft.Results)))...)
	out = append(out, ft.Results...)
	return out
}

func encodeStructType(st wasm.StructType) []byte {
	var out []byte
	out = append(out, 0x5f) // struct type form
	out = append(out, leb128.EncodeUint32(uint32(len(st.Fields)))...)
	for _, field := range st.Fields {
		out = append(out, encodeStorageType(field.Type)...)
		if field.Mutable {
			out = append(out, 0x01)
		} else {
			out = append(out, 0x00)
		}
	}
	return out
}

func encodeTypeSection(m *wasm.Module) []byte {
	if len(m.Types) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Types)))
	for _, t := range m.Types {
		switch t.Kind {
		case wasm.TypeKindFunc:
			payload = append(payload, encodeFuncType(t.Func)...)
		case wasm.TypeKindStruct:
			payload = append(payload, encodeStructType(t.Struct)...)
		}
	}
	return appendSection(nil, sectionType, payload)
}

func encodeImportSection(m *wasm.Module) []byte {
	if len(m.Imports) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		payload = append(payload, encodeName(imp.Module)...)
		payload = append(payload, encodeName(imp.Name)...)
		switch imp.Type {
		case wasm.ExternTypeFunc:
			payload = append(payload, byte(wasm.ExternTypeFunc))
			payload = append(payload, leb128.EncodeUint32(imp.FuncTypeIndex)...)
		case wasm.ExternTypeGlobal:
			payload = append(payload, byte(wasm.ExternTypeGlobal))
			payload = append(payload, encodeGlobalType(*imp.Global)...)
		case wasm.ExternTypeMemory:
			payload = append(payload, byte(wasm.ExternTypeMemory))
			payload = append(payload, encodeMemoryLimits(*imp.Memory)...)
		}
	}
	return appendSection(nil, sectionImport, payload)
}

func encodeGlobalType(gt wasm.GlobalType) []byte {
	var out []byte
	if gt.RefHeap != nil {
		out = append(out, encodeRefType(*gt.RefHeap)...)
	} else {
		out = append(out, gt.ValType)
	}
	if gt.Mutable {
		out = append(out, 0x01)
	} else {
		out = append(out, 0x00)
	}
	return out
}

func encodeMemoryLimits(mem wasm.Memory) []byte {
	var out []byte
	if mem.HasMax {
		out = append(out, 0x01)
		out = append(out, leb128.EncodeUint32(mem.Min)...)
		out = append(out, leb128.EncodeUint32(mem.Max)...)
	} else {
		out = append(out, 0x00)
		out = append(out, leb128.EncodeUint32(mem.Min)...)
	}
	return out
}

func encodeFunctionSection(m *wasm.Module) []byte {
	if len(m.Functions) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Functions)))
	for _, idx := range m.Functions {
		payload = append(payload, leb128.EncodeUint32(idx)...)
	}
	return appendSection(nil, sectionFunction, payload)
}

func encodeMemorySection(m *wasm.Module) []byte {
	if m.Memory == nil {
		return nil
	}
	payload := leb128.EncodeUint32(1)
	payload = append(payload, encodeMemoryLimits(*m.Memory)...)
	return appendSection(nil, sectionMemory, payload)
}

func encodeConstExprI64(v int64) []byte {
	return append([]byte{OpcodeI64Const}, append(leb128.EncodeInt64(v), OpcodeEnd)...)
}

func encodeConstExprF64(v float64) []byte {
	f := NewFuncBody()
	f.F64Const(v)
	body := f.buf
	return append(body, OpcodeEnd)
}

func encodeConstExprRefNull(heap wasm.HeapType) []byte {
	f := NewFuncBody()
	f.RefNull(int64(heap))
	return append(f.buf, OpcodeEnd)
}

func encodeGlobalSection(m *wasm.Module) []byte {
	if len(m.Globals) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Globals)))
	for _, g := range m.Globals {
		payload = append(payload, encodeGlobalType(g.Type)...)
		switch {
		case g.Type.RefHeap != nil:
			payload = append(payload, encodeConstExprRefNull(g.Type.RefHeap.Heap)...)
		case g.Type.ValType == wasm.ValueTypeF64:
			payload = append(payload, encodeConstExprF64(g.InitF64)...)
		default:
			payload = append(payload, encodeConstExprI64(g.InitI64)...)
		}
	}
	return appendSection(nil, sectionGlobal, payload)
}

func encodeExportSection(m *wasm.Module) []byte {
	if len(m.Exports) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Exports)))
	for _, e := range m.Exports {
		payload = append(payload, encodeName(e.Name)...)
		payload = append(payload, byte(e.Type))
		payload = append(payload, leb128.EncodeUint32(e.Index)...)
	}
	return appendSection(nil, sectionExport, payload)
}

func encodeCodeSection(m *wasm.Module) []byte {
	if len(m.Code) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Code)))
	for _, c := range m.Code {
		body := encodeLocals(c.LocalGroups)
		body = append(body, c.Body...)
		payload = append(payload, leb128.EncodeUint32(uint32(len(body)))...)
		payload = append(payload, body...)
	}
	return appendSection(nil, sectionCode, payload)
}

func encodeLocals(groups []wasm.LocalGroup) []byte {
	out := leb128.EncodeUint32(uint32(len(groups)))
	for _, g := range groups {
		out = append(out, leb128.EncodeUint32(g.Count)...)
		if g.RefHeap != nil {
			out = append(out, encodeRefType(*g.RefHeap)...)
		} else {
			out = append(out, g.Type)
		}
	}
	return out
}

func encodeDataSection(m *wasm.Module) []byte {
	if len(m.Data) == 0 {
		return nil
	}
	payload := leb128.EncodeUint32(uint32(len(m.Data)))
	for _, d := range m.Data {
		payload = append(payload, 0x00) // active, memory index 0
		payload = append(payload, encodeConstExprI64(int64(d.Offset))...)
		payload = append(payload, leb128.EncodeUint32(uint32(len(d.Bytes)))...)
		payload = append(payload, d.Bytes...)
	}
	return appendSection(nil, sectionData, payload)
}

func encodeNameSection(m *wasm.Module) []byte {
	if m.Names == nil {
		return nil
	}
	var payload []byte
	payload = append(payload, encodeName("name")...)

	if m.Names.Module != "" {
		sub := encodeName(m.Names.Module)
		payload = append(payload, 0x00)
		payload = append(payload, leb128.EncodeUint32(uint32(len(sub)))...)
		payload = append(payload, sub...)
	}
	if len(m.Names.Functions) > 0 {
		sub := encodeNameMap(m.Names.Functions)
		payload = append(payload, 0x01)
		payload = append(payload, leb128.EncodeUint32(uint32(len(sub)))...)
		payload = append(payload, sub...)
	}
	if len(m.Names.Globals) > 0 {
		sub := encodeNameMap(m.Names.Globals)
		payload = append(payload, 0x07)
		payload = append(payload, leb128.EncodeUint32(uint32(len(sub)))...)
		payload = append(payload, sub...)
	}
	return appendSection(nil, sectionCustom, payload)
}

func encodeNameMap(names map[uint32]string) []byte {
	idxs := make([]uint32, 0, len(names))
	for idx := range names {
		idxs = append(idxs, idx)
	}
	// insertion order is not meaningful to the spec, but deterministic
	// output (spec.md §8 property 2) requires a stable sort.
	for i := 1; i < len(idxs); i++ {
		for j := i; j > 0 && idxs[j-1] > idxs[j]; j-- {
			idxs[j-1], idxs[j] = idxs[j], idxs[j-1]
		}
	}
	out := leb128.EncodeUint32(uint32(len(idxs)))
	for _, idx := range idxs {
		out = append(out, leb128.EncodeUint32(idx)...)
		out = append(out, encodeName(names[idx])...)
	}
	return out
}
