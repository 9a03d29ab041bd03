package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pannous/wasp/internal/wasm"
)

func TestAssemble_HeaderAndEmptyModule(t *testing.T) {
	m := &wasm.Module{}
	out, err := Assemble(m)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, out)
}

func TestAssemble_Deterministic(t *testing.T) {
	m := &wasm.Module{}
	ft := m.AddFuncType(wasm.FuncType{Params: []wasm.ValueType{wasm.ValueTypeI64}, Results: []wasm.ValueType{wasm.ValueTypeI64}})
	body := NewFuncBody()
	body.LocalGet(0)
	body.I64Const(1)
	body.Op0(OpcodeI64Add)
	idx := m.AddFunction(ft, body.Finish())
	m.AddExport(wasm.Export{Name: "inc", Type: wasm.ExternTypeFunc, Index: idx})

	out1, err := Assemble(m)
	require.NoError(t, err)
	out2, err := Assemble(m)
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestAssemble_TypeDeduplication(t *testing.T) {
	m := &wasm.Module{}
	sig := wasm.FuncType{Params: []wasm.ValueType{wasm.ValueTypeI64}, Results: []wasm.ValueType{wasm.ValueTypeI64}}
	a := m.AddFuncType(sig)
	b := m.AddFuncType(sig)
	require.Equal(t, a, b)
	require.Len(t, m.Types, 1)
}

func TestValidate_RejectsOutOfRangeExport(t *testing.T) {
	m := &wasm.Module{}
	m.AddExport(wasm.Export{Name: "missing", Type: wasm.ExternTypeFunc, Index: 0})
	_, err := Assemble(m)
	require.Error(t, err)
}

func TestValidate_RejectsDuplicateExportNames(t *testing.T) {
	m := &wasm.Module{}
	ft := m.AddFuncType(wasm.FuncType{Results: []wasm.ValueType{wasm.ValueTypeI64}})
	body := NewFuncBody()
	body.I64Const(1)
	idxA := m.AddFunction(ft, body.Finish())
	idxB := m.AddFunction(ft, body.Finish())
	m.AddExport(wasm.Export{Name: "dup", Type: wasm.ExternTypeFunc, Index: idxA})
	m.AddExport(wasm.Export{Name: "dup", Type: wasm.ExternTypeFunc, Index: idxB})
	_, err := Assemble(m)
	require.Error(t, err)
}

func TestEncodeFuncType(t *testing.T) {
	ft := wasm.FuncType{Params: []wasm.ValueType{wasm.ValueTypeI64, wasm.ValueTypeI64}, Results: []wasm.ValueType{wasm.ValueTypeI64}}
	require.Equal(t, []byte{0x60, 0x02, wasm.ValueTypeI64, wasm.ValueTypeI64, 0x01, wasm.ValueTypeI64}, encodeFuncType(ft))
}

func TestEncodeStructType(t *testing.T) {
	st := wasm.StructType{Fields: []wasm.FieldType{
		{Type: wasm.StorageType{Value: wasm.ValueTypeI64}, Mutable: false},
		{Type: wasm.StorageType{Value: wasm.ValueTypeAnyref}, Mutable: true},
	}}
	got := encodeStructType(st)
	require.Equal(t, byte(0x5f), got[0])
	require.Equal(t, byte(2), got[1])
}
