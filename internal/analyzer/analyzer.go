// Package analyzer implements spec.md §4.1: a single pre-pass over the
// AST that populates a compilectx.Context with everything the emitter
// needs to know without looking ahead during emission.
//
// Grounded on wazero's own forward-pass module validation (internal
// module state is fully resolved before any code is compiled) and on
// the compiler.go value-location analysis that walks a function body
// once to know what it needs before emitting a single instruction.
package analyzer

import (
	"github.com/pannous/wasp/ast"
	"github.com/pannous/wasp/internal/compilectx"
	"github.com/pannous/wasp/internal/funcreg"
	"github.com/pannous/wasp/internal/scope"
	"github.com/pannous/wasp/internal/typeregistry"
	"github.com/pannous/wasp/internal/wasm"
)

// Analyze runs every pass of spec.md §4.1 over root and returns the
// populated Context.
func Analyze(root *ast.Node) *compilectx.Context {
	ctx := compilectx.New()
	CollectAllTypes(ctx.Types, root)
	ExtractFFIImports(ctx, root)
	ExtractUserFunctions(ctx, root)
	AnalyzeRequiredFunctions(ctx, root)
	return ctx
}

// CollectAllTypes walks the tree and registers every type-declaration
// node (a TypeDef-kind node with a non-empty field list) in the
// registry. TypeDef-kind nodes with no fields are references to an
// already (or later) declared type and are skipped.
func CollectAllTypes(reg *typeregistry.Registry, root *ast.Node) {
	walk(root, func(n *ast.Node) {
		if n.Kind != ast.TypeDef || len(n.TypeFields) == 0 {
			return
		}
		fields := make([]typeregistry.Field, 0, len(n.TypeFields))
		for _, f := range n.TypeFields {
			fields = append(fields, typeregistry.Field{Name: f.TypeName, TypeName: fieldTypeName(f)})
		}
		reg.Register(n.TypeName, fields)
	})
}

func fieldTypeName(f ast.Node) string {
	if f.Inner != nil {
		return f.Inner.TypeName
	}
	return f.TypeName
}

// ExtractFFIImports scans for `use <library>` and `import <name> from
// <library>` forms, synthesizing a ValType signature per recognized
// foreign function name.
func ExtractFFIImports(ctx *compilectx.Context, root *ast.Node) {
	walk(root, func(n *ast.Node) {
		if n.Kind != ast.List || len(n.Items) < 2 {
			return
		}
		head := n.Items[0].DropMeta()
		if head == nil || head.Kind != ast.Symbol {
			return
		}
		switch head.Text {
		case "use":
			// [use, Symbol(library)] — registers nothing. The emitter
			// recognizes FFI calls only for names already in ctx.FFI,
			// which only `import` forms add.
		case "import":
			// [import, Symbol(name), Symbol("from"), Symbol(library)]
			if len(n.Items) >= 4 {
				name := n.Items[1].DropMeta()
				lib := n.Items[3].DropMeta()
				if name != nil && lib != nil && name.Kind == ast.Symbol && lib.Kind == ast.Symbol {
					registerFFI(ctx, name.Text, lib.Text)
				}
			}
		}
	})

	// A second pass fixes each registered import's arity to the widest
	// call site observed, since `import`/`use` forms carry a library
	// and a name but never a signature (spec.md §4.3's FFI imports are
	// untyped at the surface syntax level; every argument and the
	// result are i32).
	walk(root, func(n *ast.Node) {
		if n.Kind != ast.List || len(n.Items) == 0 {
			return
		}
		head := n.Items[0].DropMeta()
		if head == nil || head.Kind != ast.Symbol {
			return
		}
		sig, ok := ctx.FFI.Lookup(head.Text)
		if !ok {
			return
		}
		argc := len(n.Items) - 1
		if argc > len(sig.Params) {
			params := make([]wasm.ValueType, argc)
			for i := range params {
				params[i] = wasm.ValueTypeI32
			}
			sig.Params = params
			sig.Results = []wasm.ValueType{wasm.ValueTypeI32}
			ctx.FFI.Update(head.Text, sig)
		}
	})
}

func registerFFI(ctx *compilectx.Context, name, library string) {
	ctx.FFI.Add(name, funcreg.FFISignature{Library: library, Results: []wasm.ValueType{wasm.ValueTypeI32}})
}

// ExtractUserFunctions recognizes `name := body`, `name = body`,
// `name(params...) := body` and `name(params...) = body` shapes,
// creating a UserFunctionDef for each with func_index left unset.
// Keyword forms (`def`/`fun`/`fn name(params...): body`) are not
// recognized.
func ExtractUserFunctions(ctx *compilectx.Context, root *ast.Node) {
	walk(root, func(n *ast.Node) {
		if n.Kind != ast.KeyKind {
			return
		}
		switch n.Op {
		case ast.OpDefine, ast.OpAssign:
			left := n.Left.DropMeta()
			if left == nil {
				return
			}
			if left.Kind == ast.Symbol {
				def := &funcreg.UserFunctionDef{
					Name:       left.Text,
					Body:       n.Right,
					ReturnKind: InferReturnKind(n.Right),
				}
				ctx.DeclareUserFunction(def)
				return
			}
			if left.Kind == ast.List && len(left.Items) > 0 {
				nameNode := left.Items[0].DropMeta()
				if nameNode == nil || nameNode.Kind != ast.Symbol {
					return
				}
				params := make([]funcreg.Param, 0, len(left.Items)-1)
				for _, p := range left.Items[1:] {
					pp := p.DropMeta()
					if pp == nil {
						continue
					}
					params = append(params, funcreg.Param{Name: pp.Text})
				}
				def := &funcreg.UserFunctionDef{
					Name:       nameNode.Text,
					Params:     params,
					Body:       n.Right,
					ReturnKind: InferReturnKind(n.Right),
				}
				ctx.DeclareUserFunction(def)
			}
		}
	})
}

// InferReturnKind infers a user function's return Kind from its body:
// Int by default, Float if any float literal or op is reachable,
// otherwise the Kind of a reference-producing tail shape.
func InferReturnKind(body *ast.Node) ast.Kind {
	if body == nil {
		return ast.Int
	}
	b := body.DropMeta()
	if b == nil {
		return ast.Int
	}
	switch b.Kind {
	case ast.Float, ast.Float32:
		return ast.Float
	case ast.Text, ast.Symbol, ast.List:
		return b.Kind
	}
	if b.Kind == ast.KeyKind {
		if containsFloat(b) {
			return ast.Float
		}
	}
	if b.Kind == ast.Block && len(b.Items) > 0 {
		return InferReturnKind(&b.Items[len(b.Items)-1])
	}
	return ast.Int
}

func containsFloat(n *ast.Node) bool {
	found := false
	walk(n, func(m *ast.Node) {
		if m.Kind == ast.Float || m.Kind == ast.Float32 || m.Op == ast.OpDiv {
			found = true
		}
	})
	return found
}

// CollectVariables allocates a Local for every plain symbol assigned
// by `:=` or `=` within body (destructuring targets are not
// handled), returning the number of
// extra scratch temporaries needed for control-flow lowering (one per
// while/if that needs a scratch local).
func CollectVariables(body *ast.Node, sc *scope.Scope) int {
	nextPos := uint32(len(sc.Names()))
	temps := 0
	walk(body, func(n *ast.Node) {
		if n.Kind != ast.KeyKind {
			return
		}
		switch n.Op {
		case ast.OpDefine, ast.OpAssign:
			left := n.Left.DropMeta()
			if left != nil && left.Kind == ast.Symbol {
				if _, ok := sc.Lookup(left.Text); !ok {
					kind := InferType(n.Right, sc)
					sc.Declare(left.Text, nextPos, kind)
					nextPos++
				}
			}
		case ast.OpWhile, ast.OpIf:
			temps++
		}
	})
	return temps
}

// AnalyzeRequiredFunctions computes the transitive set of runtime
// helper names the program actually needs, per spec.md §4.1's catalog
// and transitive-closure rule (a helper used by another required
// helper is itself required).
func AnalyzeRequiredFunctions(ctx *compilectx.Context, root *ast.Node) {
	needs := map[string]bool{}

	// new_empty is reachable from every compilation regardless of
	// whether the tree contains a literal Empty node: emitWhileNode,
	// an if without an else arm and an empty List or Block all produce
	// it, and emitPuts falls back to it whenever WASI output isn't
	// resolvable. Always required.
	needs["new_empty"] = true
	// get_kind and get_int_value are how a host reads results back, so
	// they are always emitted and exported.
	needs["get_kind"] = true
	needs["get_int_value"] = true

	walk(root, func(n *ast.Node) {
		switch n.Kind {
		case ast.Int, ast.Int32:
			needs["new_int"] = true
		case ast.Float, ast.Float32:
			needs["new_float"] = true
		case ast.Text:
			needs["new_text"] = true
		case ast.Symbol:
			needs["new_symbol"] = true
		case ast.Codepoint:
			needs["new_codepoint"] = true
		case ast.Empty:
			needs["new_empty"] = true
		case ast.List:
			needs["new_list"] = true
			requireListCallHelpers(needs, n)
		case ast.TypeDef:
			needs["new_type"] = true
		case ast.KeyKind:
			needs["new_key"] = true
			if n.Op == ast.OpPow {
				needs["i64_pow"] = true
			}
			if n.Op == ast.OpIndex || n.Op == ast.OpIndexSet {
				needs["node_index_at"] = true
				needs["node_set_at"] = true
				needs["list_at"] = true
				needs["list_node_at"] = true
				needs["list_set_at"] = true
				needs["string_char_at"] = true
				needs["string_set_char_at"] = true
				needs["node_count"] = true
			}
			if n.Op == ast.OpDot {
				requireDotHelpers(needs, n)
			}
		}
	})

	// transitive closure: every helper-to-helper call emitter/helpers.go
	// actually makes, so tree-shaking never drops a callee a required
	// helper's body still needs.
	closure := map[string][]string{
		"node_index_at":      {"string_char_at", "list_node_at"},
		"node_set_at":        {"string_set_char_at", "list_set_at"},
		"list_at":            {"get_int_value"},
		"list_set_at":        {"new_int"},
		"string_char_at":     {"new_codepoint"},
	}
	changed := true
	for changed {
		changed = false
		for name := range needs {
			for _, dep := range closure[name] {
				if !needs[dep] {
					needs[dep] = true
					changed = true
				}
			}
		}
	}

	for name := range needs {
		ctx.RequireHelper(name)
	}
}

// requireListCallHelpers flags the helpers a List's call-shape head
// (emitCall's "count"/"size"/... intrinsics) reaches, mirroring
// recognizeCall/emitCall in internal/emitter/list.go exactly so
// tree-shaking never drops a callee those dispatch arms use.
func requireListCallHelpers(needs map[string]bool, n *ast.Node) {
	if len(n.Items) == 0 {
		return
	}
	head := n.Items[0].DropMeta()
	if head == nil || head.Kind != ast.Symbol {
		return
	}
	switch head.Text {
	case "count", "size":
		needs["node_count"] = true
		needs["new_int"] = true
	case "puts":
		needs["new_int"] = true
	case "puti", "putl":
		needs["new_int"] = true
	case "putf":
		needs["new_float"] = true
		needs["new_int"] = true
	case "int", "number", "bool":
		needs["new_int"] = true
	case "float":
		needs["new_float"] = true
	case "ceil", "floor", "round":
		needs["new_float"] = true
	case "fetch":
		needs["new_int"] = true
	}
}

// requireDotHelpers flags the helpers emitDotNode's `.count`/`.size`/
// `.number`/field-access arms reach for a Key(Dot) node, keyed on the
// same member name emitDotNode itself switches on.
func requireDotHelpers(needs map[string]bool, n *ast.Node) {
	member := n.Right.DropMeta()
	name := ""
	if member != nil && (member.Kind == ast.Symbol || member.Kind == ast.Text) {
		name = member.Text
	}
	switch name {
	case "count", "size":
		needs["node_count"] = true
		needs["new_int"] = true
	case "number":
		needs["get_int_value"] = true
		needs["new_int"] = true
	default:
		needs["new_symbol"] = true
		needs["node_index_at"] = true
		needs["string_char_at"] = true
		needs["list_node_at"] = true
	}
}

// InferType performs the structural type inference spec.md §4.1
// describes: which WASM numeric type an expression produces, and
// hence whether the emitter should call a Node constructor or emit a
// raw primitive.
func InferType(node *ast.Node, sc *scope.Scope) ast.Kind {
	if node == nil {
		return ast.Empty
	}
	n := node.DropMeta()
	if n == nil {
		return ast.Empty
	}
	switch n.Kind {
	case ast.Int, ast.Float, ast.Text, ast.Symbol, ast.Codepoint, ast.List, ast.Block, ast.Empty, ast.TypeDef:
		return n.Kind
	case ast.KeyKind:
		if n.Op == ast.OpDiv {
			return ast.Float
		}
		if n.Op.IsArithmetic() {
			l, r := InferType(n.Left, sc), InferType(n.Right, sc)
			if l == ast.Float || r == ast.Float {
				return ast.Float
			}
			return ast.Int
		}
		if n.Op.IsComparison() || n.Op.IsLogical() {
			return ast.Int
		}
		if n.Op == ast.OpDefine || n.Op == ast.OpAssign {
			return InferType(n.Right, sc)
		}
		if n.Op == ast.OpDot {
			return ast.Int
		}
	case ast.Int32:
		return ast.Int
	case ast.Float32:
		return ast.Float
	}
	if n.Kind == ast.Symbol {
		if l, ok := sc.Lookup(n.Text); ok {
			return l.Kind
		}
	}
	return ast.Int
}

// walk visits every node in the tree rooted at n, depth-first,
// left-to-right, applying DropMeta's projection rule implicitly by
// visiting Meta's Inner too (structural passes must see through Meta
// wrappers per spec.md §3.1's invariant).
func walk(n *ast.Node, visit func(*ast.Node)) {
	if n == nil {
		return
	}
	visit(n)
	walk(n.Left, visit)
	walk(n.Right, visit)
	walk(n.Inner, visit)
	walk(n.ErrorInner, visit)
	for i := range n.Items {
		walk(&n.Items[i], visit)
	}
	for i := range n.TypeFields {
		walk(&n.TypeFields[i], visit)
	}
}
