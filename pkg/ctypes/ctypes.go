// Package ctypes holds the compiler's view of the C type system: the four
// integer types of the implemented subset, function types, typed constants,
// and the symbol table that the typechecker, the TAC generator, and the
// backend all share.
package ctypes

import (
	"fmt"
	"strings"
)

// Kind identifies a scalar type or a function type.
type Kind int

const (
	Int Kind = iota
	UInt
	Long
	ULong
	Fun
)

// Type describes the type of a declaration or expression. Scalar types carry
// only their Kind; function types also carry parameter and return types.
// Types are compared structurally with Equal.
type Type struct {
	Kind   Kind
	Params []Type // Fun only
	Ret    *Type  // Fun only
}

// Convenience values for the scalar types. These are safe to share because
// scalar Types are never mutated.
var (
	IntType   = Type{Kind: Int}
	UIntType  = Type{Kind: UInt}
	LongType  = Type{Kind: Long}
	ULongType = Type{Kind: ULong}
)

// FunType builds a function type from its parameter and return types.
func FunType(params []Type, ret Type) Type {
	return Type{Kind: Fun, Params: params, Ret: &ret}
}

// Size returns the width of a scalar type in bytes.
func (t Type) Size() int {
	switch t.Kind {
	case Int, UInt:
		return 4
	case Long, ULong:
		return 8
	}
	panic(fmt.Sprintf("Size of non-scalar type %s", t))
}

// Signed reports whether a scalar type is signed.
func (t Type) Signed() bool {
	return t.Kind == Int || t.Kind == Long
}

// rank orders the integer types for the usual arithmetic conversions.
var rank = map[Kind]int{Int: 0, UInt: 1, Long: 2, ULong: 3}

// Common returns the common type of two scalar operands under the usual
// arithmetic conversions: the operand of smaller rank converts to the other.
func Common(a, b Type) Type {
	if rank[a.Kind] >= rank[b.Kind] {
		return a
	}
	return b
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != Fun {
		return true
	}
	if len(t.Params) != len(o.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return t.Ret.Equal(*o.Ret)
}

func (t Type) String() string {
	switch t.Kind {
	case Int:
		return "int"
	case UInt:
		return "unsigned int"
	case Long:
		return "long"
	case ULong:
		return "unsigned long"
	case Fun:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("%s(%s)", t.Ret, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("Type(%d)", int(t.Kind))
}

// Const is a typed integer constant. The value is stored in Bits as the
// two's-complement image of the constant; Type decides how Bits is read
// (signed vs unsigned, 32 vs 64 bits).
type Const struct {
	Type Type
	Bits uint64
}

// IntConst builds a signed constant of the given type.
func IntConst(t Type, v int64) Const {
	return Const{Type: t, Bits: uint64(v)}.normalize()
}

// UIntConst builds an unsigned constant of the given type.
func UIntConst(t Type, v uint64) Const {
	return Const{Type: t, Bits: v}.normalize()
}

// normalize truncates Bits to the width of the constant's type so that two
// equal constants always have equal Bits.
func (c Const) normalize() Const {
	if c.Type.Size() == 4 {
		if c.Type.Signed() {
			c.Bits = uint64(int64(int32(c.Bits)))
		} else {
			c.Bits = uint64(uint32(c.Bits))
		}
	}
	return c
}

// Int64 reads the constant as a signed value (sign-extended for 32-bit types).
func (c Const) Int64() int64 {
	if c.Type.Size() == 4 && c.Type.Signed() {
		return int64(int32(c.Bits))
	}
	return int64(c.Bits)
}

// Uint64 reads the constant's raw bit image.
func (c Const) Uint64() uint64 { return c.Bits }

// IsZero reports whether the constant's value is zero.
func (c Const) IsZero() bool { return c.Bits == 0 }

// Convert reinterprets the constant as a value of type t following C
// conversion rules: truncation when narrowing, sign or zero extension when
// widening depending on the source type's signedness.
func (c Const) Convert(t Type) Const {
	if c.Type.Equal(t) {
		return c
	}
	bits := c.Bits
	if c.Type.Size() == 4 && t.Size() == 8 {
		if c.Type.Signed() {
			bits = uint64(int64(int32(bits)))
		} else {
			bits = uint64(uint32(bits))
		}
	}
	return Const{Type: t, Bits: bits}.normalize()
}

func (c Const) String() string {
	if c.Type.Signed() {
		return fmt.Sprintf("%d", c.Int64())
	}
	return fmt.Sprintf("%d", c.Uint64())
}
