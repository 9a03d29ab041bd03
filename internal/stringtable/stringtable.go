// Package stringtable implements spec.md §3.6/§4.4: a deduplicating
// pool of string literals backed by linear memory data segments. Every
// distinct literal text appears once in the data section; repeated
// occurrences of the same text share one (offset, length) pair.
package stringtable

import "github.com/pannous/wasp/ast"

// Entry is one interned string's placement in linear memory.
type Entry struct {
	Offset uint32
	Length uint32
}

// Table collects and deduplicates string literals ahead of emission,
// so every `new_text`/`string_char_at` call site can reference a fixed
// offset without re-walking the tree (spec.md §4.4's pre-pass).
type Table struct {
	byText map[string]Entry
	order  []string
	next   uint32
}

// New returns an empty Table. Offsets start at base, which lets the
// caller reserve low memory (e.g. a null-page) before string data
// begins.
func New(base uint32) *Table {
	return &Table{byText: map[string]Entry{}, next: base}
}

// Allocate interns s, returning its (offset, length). Calling Allocate
// twice with the same text returns the same Entry.
func (t *Table) Allocate(s string) Entry {
	if e, ok := t.byText[s]; ok {
		return e
	}
	e := Entry{Offset: t.next, Length: uint32(len(s))}
	t.byText[s] = e
	t.order = append(t.order, s)
	t.next += e.Length
	return e
}

// Lookup returns the Entry for a previously-allocated string.
func (t *Table) Lookup(s string) (Entry, bool) {
	e, ok := t.byText[s]
	return e, ok
}

// InOrder returns every interned string in allocation order, which is
// also the order data segments are written in (spec.md §8 property 2:
// deterministic output for identical input).
func (t *Table) InOrder() []string {
	return append([]string(nil), t.order...)
}

// NextOffset reports the first unallocated memory offset, i.e. where
// the next caller-managed allocation (e.g. a runtime-built list)
// should begin.
func (t *Table) NextOffset() uint32 { return t.next }

// CollectFromNode walks root and interns every Text-kind literal it
// finds, depth-first, left-to-right, matching tree-walk emission order
// so the resulting offsets line up with first-use order (spec.md
// §4.4: "the pre-walk visits nodes in the same order the emitter
// later will").
func CollectFromNode(root *ast.Node, t *Table) {
	if root == nil {
		return
	}
	n := root.DropMeta()
	if n == nil {
		return
	}
	if n.Kind == ast.Text {
		t.Allocate(n.Text)
	}
	collectFromNode(n.Left, t)
	collectFromNode(n.Right, t)
	collectFromNode(n.Inner, t)
	for i := range n.Items {
		collectFromNode(&n.Items[i], t)
	}
}

func collectFromNode(n *ast.Node, t *Table) {
	if n == nil {
		return
	}
	CollectFromNode(n, t)
}
