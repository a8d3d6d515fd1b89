package ctypes

import (
	"fmt"
	"sort"
	"strings"
)

// InitKind classifies the static initializer state of a file-scope or
// static-storage variable.
type InitKind int

const (
	NoInitializer InitKind = iota // declared extern, never initialized
	Tentative                     // declared without initializer, may become zero
	Initial                       // has a constant initial value
)

// StaticInit records what a static object's initializer is, if anything.
type StaticInit struct {
	Kind  InitKind
	Value Const // valid when Kind == Initial
}

// AttrKind distinguishes the three kinds of symbol table attributes.
type AttrKind int

const (
	LocalAttr  AttrKind = iota // automatic variable or TAC temporary
	StaticAttr                 // object with static storage duration
	FunAttr                    // function
)

// Attrs carries the per-symbol metadata the later passes need.
type Attrs struct {
	Kind    AttrKind
	Init    StaticInit // StaticAttr only
	Global  bool       // StaticAttr, FunAttr: externally visible
	Defined bool       // FunAttr: a body has been seen
}

// Symbol is one entry in the symbol table.
type Symbol struct {
	Type  Type
	Attrs Attrs
}

// Symbols maps post-resolve unique names to their type and attributes. It is
// created by the typechecker, extended by the TAC generator (temporaries),
// and read by the backend. Ownership moves forward with the pipeline; it is
// never shared across goroutines.
type Symbols struct {
	table map[string]Symbol
}

func NewSymbols() *Symbols {
	return &Symbols{table: make(map[string]Symbol)}
}

// Define inserts or replaces an entry.
func (s *Symbols) Define(name string, sym Symbol) {
	s.table[name] = sym
}

// Lookup returns the symbol for name and whether it exists.
func (s *Symbols) Lookup(name string) (Symbol, bool) {
	sym, ok := s.table[name]
	return sym, ok
}

// Names returns all symbol names in sorted order, so that passes iterating
// the table produce deterministic output.
func (s *Symbols) Names() []string {
	names := make([]string, 0, len(s.table))
	for name := range s.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a deterministically ordered dump of the table.
func (s *Symbols) String() string {
	var sb strings.Builder
	for _, name := range s.Names() {
		sym := s.table[name]
		switch sym.Attrs.Kind {
		case LocalAttr:
			fmt.Fprintf(&sb, "%-24s %s local\n", name, sym.Type)
		case StaticAttr:
			fmt.Fprintf(&sb, "%-24s %s static (init=%d, global=%t)\n",
				name, sym.Type, sym.Attrs.Init.Kind, sym.Attrs.Global)
		case FunAttr:
			fmt.Fprintf(&sb, "%-24s %s function (defined=%t, global=%t)\n",
				name, sym.Type, sym.Attrs.Defined, sym.Attrs.Global)
		}
	}
	return sb.String()
}
