package compiler_test

import (
	"context"
	"fmt"
	"log"

	"github.com/tetratelabs/wazero"

	compiler "github.com/pannous/wasp"
	"github.com/pannous/wasp/ast"
)

// This is an example of compiling a Wasp AST — here, the three-node tree
// for the expression `21 + 21` — to a WebAssembly GC binary and
// running it under wazero.
//
// See https://github.com/tetratelabs/wazero/tree/main/examples for
// more examples of instantiating a compiled module.
func Example() {
	root := ast.Node{
		Kind:  ast.KeyKind,
		Op:    ast.OpAdd,
		Left:  &ast.Node{Kind: ast.Int, Int: 21},
		Right: &ast.Node{Kind: ast.Int, Int: 21},
	}

	bin, err := compiler.Compile(&root, compiler.NewEmitterConfig(), nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, bin)
	if err != nil {
		log.Fatal(err)
	}
	defer mod.Close(ctx)

	main := mod.ExportedFunction("main")
	result, err := main.Call(ctx)
	if err != nil {
		log.Fatal(err)
	}

	value, err := mod.ExportedFunction("get_int_value").Call(ctx, result[0])
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("21 + 21 = %d\n", int64(value[0]))

	// Output:
	// 21 + 21 = 42
}
