package ctypes

import (
	"errors"
	"reflect"
	"testing"
)

func TestCommon(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Type
		expected Type
	}{
		{"Int With Int", IntType, IntType, IntType},
		{"Int With Long", IntType, LongType, LongType},
		{"Unsigned Beats Int", IntType, UIntType, UIntType},
		{"Long Beats Unsigned Int", UIntType, LongType, LongType},
		{"Unsigned Long Beats Long", LongType, ULongType, ULongType},
		{"Order Independent", ULongType, IntType, ULongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Common(tt.a, tt.b); !got.Equal(tt.expected) {
				t.Errorf("Common(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestConstConvert(t *testing.T) {
	tests := []struct {
		name     string
		input    Const
		target   Type
		expected Const
	}{
		{
			name:     "Long To Int Truncates",
			input:    IntConst(LongType, 4294967297),
			target:   IntType,
			expected: IntConst(IntType, 1),
		},
		{
			name:     "Negative Int To Long Sign Extends",
			input:    IntConst(IntType, -1),
			target:   LongType,
			expected: IntConst(LongType, -1),
		},
		{
			name:     "Unsigned Int To Long Zero Extends",
			input:    UIntConst(UIntType, 4294967295),
			target:   LongType,
			expected: IntConst(LongType, 4294967295),
		},
		{
			name:     "Negative Int To Unsigned Int Wraps",
			input:    IntConst(IntType, -1),
			target:   UIntType,
			expected: UIntConst(UIntType, 4294967295),
		},
		{
			name:     "Negative Long To Unsigned Long Wraps",
			input:    IntConst(LongType, -1),
			target:   ULongType,
			expected: UIntConst(ULongType, 18446744073709551615),
		},
		{
			name:     "Identity",
			input:    IntConst(IntType, 42),
			target:   IntType,
			expected: IntConst(IntType, 42),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input.Convert(tt.target)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("%v.Convert(%s) = %v, want %v", tt.input, tt.target, got, tt.expected)
			}
		})
	}
}

func TestInternalf(t *testing.T) {
	err := Internalf("unhandled value kind %d", 7)
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("Internalf returned %T, want *InternalError", err)
	}
	if got := err.Error(); got != "internal: unhandled value kind 7" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConstReaders(t *testing.T) {
	c := IntConst(IntType, -5)
	if c.Int64() != -5 {
		t.Errorf("Int64 = %d, want -5", c.Int64())
	}
	u := UIntConst(UIntType, 4000000000)
	if u.Uint64() != 4000000000 {
		t.Errorf("Uint64 = %d, want 4000000000", u.Uint64())
	}
	if !IntConst(LongType, 0).IsZero() || IntConst(LongType, 1).IsZero() {
		t.Error("IsZero misreports")
	}
}

func TestTypeEqual(t *testing.T) {
	f1 := FunType([]Type{IntType, LongType}, IntType)
	f2 := FunType([]Type{IntType, LongType}, IntType)
	f3 := FunType([]Type{IntType}, IntType)
	f4 := FunType([]Type{IntType, LongType}, LongType)

	if !f1.Equal(f2) {
		t.Error("identical signatures compare unequal")
	}
	if f1.Equal(f3) {
		t.Error("different arity compares equal")
	}
	if f1.Equal(f4) {
		t.Error("different return type compares equal")
	}
	if IntType.Equal(UIntType) {
		t.Error("int equals unsigned int")
	}
}

func TestSymbols(t *testing.T) {
	syms := NewSymbols()
	syms.Define("b", Symbol{Type: IntType, Attrs: Attrs{Kind: LocalAttr}})
	syms.Define("a", Symbol{Type: LongType, Attrs: Attrs{Kind: StaticAttr, Global: true}})

	if _, ok := syms.Lookup("missing"); ok {
		t.Error("Lookup found a missing name")
	}
	sym, ok := syms.Lookup("a")
	if !ok || !sym.Type.Equal(LongType) {
		t.Errorf("Lookup(a) = %+v, %v", sym, ok)
	}

	names := syms.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want sorted [a b]", names)
	}

	// Redefinition replaces the entry.
	syms.Define("b", Symbol{Type: ULongType, Attrs: Attrs{Kind: LocalAttr}})
	sym, _ = syms.Lookup("b")
	if !sym.Type.Equal(ULongType) {
		t.Errorf("redefined b has type %s, want unsigned long", sym.Type)
	}
}
