package compiler_test

import (
	"context"
	"testing"

	"github.com/bytecodealliance/wasmtime-go/v14"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	compiler "github.com/pannous/wasp"
	"github.com/pannous/wasp/ast"
)

// runMain compiles root and runs its exported "main" under wazero,
// returning the raw i64 that get_int_value unboxes from the Node
// result, mirroring spec.md §8's "run under a
// GC-capable engine, reconstruct" end-to-end pattern.
func runMain(t *testing.T, root *ast.Node) int64 {
	t.Helper()
	bin, err := compiler.Compile(root, compiler.NewEmitterConfig(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, bin)
	require.NoError(t, err)
	defer mod.Close(ctx)

	result, err := mod.ExportedFunction("main").Call(ctx)
	require.NoError(t, err)

	value, err := mod.ExportedFunction("get_int_value").Call(ctx, result[0])
	require.NoError(t, err)
	return int64(value[0])
}

// runMainBothEngines runs the same emitted bytes under wazero and
// wasmtime-go independently and asserts they agree, the teacher's own
// vs/ cross-engine comparison pattern (spec.md §8 property 3 — the
// bytes validate under a standard WASM 2.0 + GC engine, checked twice).
func runMainBothEngines(t *testing.T, root *ast.Node) int64 {
	t.Helper()
	wazeroResult := runMain(t, root)

	bin, err := compiler.Compile(root, compiler.NewEmitterConfig(), nil)
	require.NoError(t, err)

	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)
	module, err := wasmtime.NewModule(engine, bin)
	require.NoError(t, err)
	instance, err := wasmtime.NewInstance(store, module, nil)
	require.NoError(t, err)

	main := instance.GetExport(store, "main").Func()
	result, err := main.Call(store)
	require.NoError(t, err)

	getIntValue := instance.GetExport(store, "get_int_value").Func()
	value, err := getIntValue.Call(store, result)
	require.NoError(t, err)

	wasmtimeResult := value.(int64)
	require.Equal(t, wazeroResult, wasmtimeResult, "wazero and wasmtime must agree on the readback value")
	return wazeroResult
}

func sym(name string) *ast.Node   { return &ast.Node{Kind: ast.Symbol, Text: name} }
func intLit(v int64) *ast.Node    { return &ast.Node{Kind: ast.Int, Int: v} }
func floatLit(v float64) *ast.Node { return &ast.Node{Kind: ast.Float, Float: v} }
func key(l *ast.Node, op ast.Op, r *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.KeyKind, Op: op, Left: l, Right: r}
}

// TestLiteralRoundTrip covers spec.md §8 scenario `42` -> Int(42), and
// property 1 (round-trip of literals), cross-checked under two
// independent engines.
func TestLiteralRoundTrip(t *testing.T) {
	root := intLit(42)
	require.Equal(t, int64(42), runMainBothEngines(t, root))
}

// TestDivisionPromotesToFloat covers spec.md §8 scenario
// `42.0/2.0` -> Float(21.0) and property 8 (division always promotes).
func TestDivisionPromotesToFloat(t *testing.T) {
	root := key(floatLit(42), ast.OpDiv, floatLit(2))

	bin, err := compiler.Compile(root, compiler.NewEmitterConfig(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	mod, err := rt.Instantiate(ctx, bin)
	require.NoError(t, err)
	defer mod.Close(ctx)

	result, err := mod.ExportedFunction("main").Call(ctx)
	require.NoError(t, err)
	kind, err := mod.ExportedFunction("get_kind").Call(ctx, result[0])
	require.NoError(t, err)
	require.Equal(t, int64(ast.Float), int64(kind[0]))
}

// TestWhileLoopIncrement covers spec.md §8 scenario
// `i=1; while(i<9){i++}; i+1` -> Int(10), hand-built as the Block
// [assign, while, tail-expression] shape CompileMain's node-mode body
// emission expects.
func TestWhileLoopIncrement(t *testing.T) {
	root := &ast.Node{
		Kind: ast.Block,
		Items: []ast.Node{
			*key(sym("i"), ast.OpAssign, intLit(1)),
			*key(
				key(sym("i"), ast.OpLt, intLit(9)),
				ast.OpWhile,
				key(key(sym("i"), ast.OpInc, nil), ast.OpDo, nil),
			),
			*key(sym("i"), ast.OpAdd, intLit(1)),
		},
	}
	require.Equal(t, int64(10), runMain(t, root))
}

// TestListIndex covers spec.md §8 scenario `{1 4 3}#2` -> Int(4) and
// property 5 (1-based indexing).
func TestListIndex(t *testing.T) {
	list := &ast.Node{
		Kind:    ast.List,
		Bracket: ast.BracketCurly,
		Items:   []ast.Node{*intLit(1), *intLit(4), *intLit(3)},
	}
	root := key(list, ast.OpIndex, intLit(2))
	require.Equal(t, int64(4), runMain(t, root))
}

// TestExclusiveRange covers spec.md §8 scenario `[0..3]` -> List[0,1,2]
// and the supplemented constant-folding-of-literal-ranges feature
// (SPEC_FULL.md §12). node_count/list_at are internal traversal
// helpers (spec.md §5's accessor table), not part of the §6.2 export
// list, so both checks go through surface forms (`count(...)`,
// 1-based `#` indexing) that only need the always-exported
// get_kind/get_int_value pair to read back.
func TestExclusiveRange(t *testing.T) {
	countRoot := &ast.Node{Kind: ast.List, Items: []ast.Node{
		*sym("count"), *key(intLit(0), ast.OpRangeExclusive, intLit(3)),
	}}
	require.Equal(t, int64(3), runMain(t, countRoot))

	firstRoot := key(key(intLit(0), ast.OpRangeExclusive, intLit(3)), ast.OpIndex, intLit(1))
	require.Equal(t, int64(0), runMain(t, firstRoot))
}

// TestUserFunctionCall exercises the two-pass user function pipeline
// (funcs.go CompileUserFunctions): a non-recursive function
// `double(it) := it*2` declared before `double(21)` is evaluated, matching
// spec.md §4.5.5's pass-1-registers-signatures/pass-2-compiles-bodies
// ordering.
func TestUserFunctionCall(t *testing.T) {
	root := &ast.Node{
		Kind: ast.Block,
		Items: []ast.Node{
			*key(
				&ast.Node{Kind: ast.List, Bracket: ast.BracketRound, Items: []ast.Node{*sym("double"), *sym("it")}},
				ast.OpDefine,
				key(sym("it"), ast.OpMul, intLit(2)),
			),
			{Kind: ast.List, Items: []ast.Node{*sym("double"), *intLit(21)}},
		},
	}
	require.Equal(t, int64(42), runMain(t, root))
}
