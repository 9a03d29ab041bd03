// Package ast defines the Node abstract syntax tree that the Wasp
// analyzer and emitter consume. It is the contract between the
// surface-syntax parser (out of scope for this module) and the
// compiler core: the parser produces a Node tree and the core turns
// it into a validated WebAssembly binary.
//
// Node is a tagged union, mirroring the shape of the heap record the
// emitted WebAssembly module uses at runtime (internal/typemanager's
// EmitGCTypes defines that $Node struct: kind i64, data anyref, value
// anyref).
package ast

import "fmt"

// Kind is the compile-time discriminant of a Node. Its numeric values
// also appear, as the low byte of a runtime Node's kind field, inside
// every module this compiler emits (see Kind constant globals in the
// root package).
type Kind int

const (
	Empty Kind = iota
	Int
	Float
	Text
	Codepoint
	Symbol
	KeyKind
	Block
	List
	Data
	Meta
	ErrorKind
	TypeDef
	Pointer
	Int32
	Float32
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Text:
		return "Text"
	case Codepoint:
		return "Codepoint"
	case Symbol:
		return "Symbol"
	case KeyKind:
		return "Key"
	case Block:
		return "Block"
	case List:
		return "List"
	case Data:
		return "Data"
	case Meta:
		return "Meta"
	case ErrorKind:
		return "Error"
	case TypeDef:
		return "TypeDef"
	case Pointer:
		return "Pointer"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInt reports whether k is an integral numeric kind.
func (k Kind) IsInt() bool { return k == Int || k == Int32 }

// IsFloat reports whether k is a floating-point numeric kind.
func (k Kind) IsFloat() bool { return k == Float || k == Float32 }

// IsNumeric reports whether k is any numeric kind.
func (k Kind) IsNumeric() bool { return k.IsInt() || k.IsFloat() }

// IsRef reports whether a value of this kind is represented at
// runtime as a Node reference rather than a raw WebAssembly primitive.
func (k Kind) IsRef() bool {
	switch k {
	case Text, Symbol, KeyKind, Block, List, Data, Meta, ErrorKind, TypeDef, Empty, Codepoint:
		return true
	default:
		return false
	}
}

// Op is the operator tag carried by a Key node's middle slot. The
// numbering groups operators by dispatch class so helper predicates
// (IsArithmetic, IsComparison, ...) are simple range checks.
type Op int

const (
	OpUnknown Op = iota

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	opArithmeticEnd

	// Comparison
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	opComparisonEnd

	// Logical
	OpAnd
	OpOr
	OpNot
	opLogicalEnd

	// Assignment / binding
	OpAssign  // =
	OpDefine  // :=
	OpIndexSet
	opAssignEnd

	// Compound assignment
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign
	opCompoundAssignEnd

	// Control-flow connectives
	OpIf
	OpThen
	OpElse
	OpWhile
	OpDo
	OpTernaryCond // ?
	OpTernaryElse // :

	// Member access / indexing / cast / range
	OpDot
	OpIndex // #
	OpAs
	OpRangeExclusive // ..
	OpRangeInclusive // … or `to`

	// Unary / prefix / suffix forms
	OpSqrt   // √
	OpNorm   // ‖·‖
	OpNeg    // unary -
	OpSquare // x²
	OpCube   // x³
	OpInc    // ++
	OpDec    // --
)

// IsArithmetic reports whether op is a binary arithmetic operator.
func (op Op) IsArithmetic() bool { return op > OpUnknown && op < opArithmeticEnd }

// IsComparison reports whether op is a comparison operator.
func (op Op) IsComparison() bool { return op > opArithmeticEnd && op < opComparisonEnd }

// IsLogical reports whether op is a logical connective (and/or/not).
func (op Op) IsLogical() bool { return op > opComparisonEnd && op < opLogicalEnd }

// IsCompoundAssign reports whether op is a read-modify-write assignment.
func (op Op) IsCompoundAssign() bool { return op > opAssignEnd && op < opCompoundAssignEnd }

// IsPrefix reports whether op is a unary prefix operator.
func (op Op) IsPrefix() bool {
	switch op {
	case OpSqrt, OpNorm, OpNeg:
		return true
	default:
		return false
	}
}

// IsSuffix reports whether op is a unary suffix operator.
func (op Op) IsSuffix() bool { return op == OpSquare || op == OpCube }

// Bracket records which paired delimiter a List literal used, so the
// host-side readback layer can round-trip the original notation.
type Bracket int

const (
	BracketCurly Bracket = iota
	BracketSquare
	BracketRound
	BracketAngle
)

// Node is the universal AST/runtime-value shape for the Wasp language.
// Only one of the payload fields is meaningful per Kind; Node is kept
// as a flat struct (rather than a Go interface per variant) because
// the emitter dispatches on Kind directly and a flat struct is cheaper
// to pattern-match than a type switch over many small types.
type Node struct {
	Kind Kind

	// Number payload (Kind == Int | Float | Int32 | Float32).
	Int   int64
	Float float64

	// Text / Symbol / Error message payload.
	Text string

	// Codepoint payload (Kind == Codepoint).
	Codepoint rune

	// Key payload (Kind == KeyKind): Left Op Right.
	Op    Op
	Left  *Node
	Right *Node

	// List / Block payload.
	Items     []Node
	Bracket   Bracket
	Separator string

	// TypeDef payload (Kind == TypeDef).
	TypeName   string
	TypeFields []Node // each is itself a TypeDef-shaped Node for one field

	// Meta payload (Kind == Meta): wraps Inner with position/comment data
	// that structural analysis must see through.
	Inner   *Node
	Comment string
	Line    int
	Column  int

	// Error payload (Kind == ErrorKind) wraps the diagnostic's subject node.
	ErrorInner *Node
}

// DropMeta returns the node with all Meta wrappers stripped, per the
// invariant that every structural analysis in the analyzer and emitter
// operates on the projection, not the raw tree.
func (n *Node) DropMeta() *Node {
	cur := n
	for cur != nil && cur.Kind == Meta {
		cur = cur.Inner
	}
	return cur
}

// IsFalsy reports whether n is one of the statically-falsy shapes
// enumerated by the language's truthiness rule: Empty, False, the
// number zero, an empty Text/Symbol, or an empty List/Block — seen
// through DropMeta.
func (n *Node) IsFalsy() bool {
	p := n.DropMeta()
	if p == nil {
		return true
	}
	switch p.Kind {
	case Empty:
		return true
	case Int, Int32:
		return p.Int == 0
	case Float, Float32:
		return p.Float == 0
	case Text, Symbol:
		return p.Text == ""
	case List, Block:
		return len(p.Items) == 0
	}
	return false
}

// False is the boolean singleton; in the runtime Node record it is
// represented exactly like Int(0), and True like Int(1) — spec.md §8's
// truthiness property collapses them into one discriminant (Int).
func False() Node { return Node{Kind: Int, Int: 0} }

// True is the boolean singleton for a literal `true`.
func True() Node { return Node{Kind: Int, Int: 1} }
