// Package scope implements spec.md §3.4: the mapping from a Wasp
// variable name to the WebAssembly local that holds it, including the
// pointer/length carry-through used when a variable was assigned a
// literal string.
package scope

import "github.com/pannous/wasp/ast"

// Local describes one WebAssembly local slot bound to a source
// variable.
type Local struct {
	// Position is the WebAssembly local index.
	Position uint32
	// Kind drives value-type selection at declaration time (i64, f64,
	// or a Node reference).
	Kind ast.Kind
	// DataPointer/DataLength are populated when the variable's most
	// recent assignment was a literal string, so the FFI/WASI emitters
	// can pass the pointer pair without re-interning (spec.md §3.4,
	// §4.4).
	DataPointer uint32
	DataLength  uint32
	HasStringData bool
}

// Scope maps variable names to their Local within one function body
// (or the implicit main-function body).
type Scope struct {
	parent *Scope
	vars   map[string]*Local
}

// New returns an empty root Scope.
func New() *Scope {
	return &Scope{vars: map[string]*Local{}}
}

// Child returns a new Scope nested under s. Lookups fall through to
// the parent, but Declare always adds to the innermost scope. The
// emitter's `if`/`while` bodies do not open a child scope; they share
// their function's Scope.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: map[string]*Local{}}
}

// Declare binds name to a new Local at the given position/kind,
// overwriting any shadowed binding in this same scope.
func (s *Scope) Declare(name string, position uint32, kind ast.Kind) *Local {
	l := &Local{Position: position, Kind: kind}
	s.vars[name] = l
	return l
}

// Lookup finds name in s or any enclosing scope.
func (s *Scope) Lookup(name string) (*Local, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if l, ok := cur.vars[name]; ok {
			return l, true
		}
	}
	return nil, false
}

// SetStringData records the pointer/length of a literal string most
// recently assigned to name, for later FFI/WASI use (spec.md §3.4).
func (s *Scope) SetStringData(name string, ptr, length uint32) {
	if l, ok := s.Lookup(name); ok {
		l.DataPointer = ptr
		l.DataLength = length
		l.HasStringData = true
	}
}

// Names returns every variable name declared directly in s (not
// ancestors), in declaration order determined by Position.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	// stable, position-ordered output keeps local declaration order
	// deterministic (spec.md §8 property 2).
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && s.vars[names[j-1]].Position > s.vars[names[j]].Position; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
