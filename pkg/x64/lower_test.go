package x64

import (
	"reflect"
	"testing"

	"mcc/pkg/compiler"
	"mcc/pkg/tacky"
)

// mustLower runs src through the whole pipeline up to assembly lowering.
func mustLower(t *testing.T, src string) (*Program, Symbols) {
	t.Helper()
	tokens, err := compiler.Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	parsed, err := compiler.Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	validated, syms, err := compiler.Validate(parsed)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	ir, err := tacky.Generate(validated, syms)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	prog, back, err := Lower(ir, syms)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	return prog, back
}

// fn returns the lowered function with the given name.
func fn(t *testing.T, prog *Program, name string) *Function {
	t.Helper()
	for _, tl := range prog.TopLevel {
		if f, ok := tl.(*Function); ok && f.Name == name {
			return f
		}
	}
	t.Fatalf("function %q not in lowered program", name)
	return nil
}

// operands flattens every operand in the body.
func operands(body []Instruction) []Operand {
	var out []Operand
	collect := func(op Operand) Operand {
		out = append(out, op)
		return op
	}
	for _, inst := range body {
		mapOperands(inst, collect)
	}
	return out
}

func TestLowerReplacesAllPseudos(t *testing.T) {
	src := `int g = 5;
int add(int a, long b) { return (int) (a + b); }
int main(void) { int x = 3; return add(x, 4l) + g; }`
	prog, _ := mustLower(t, src)
	for _, tl := range prog.TopLevel {
		f, ok := tl.(*Function)
		if !ok {
			continue
		}
		for _, op := range operands(f.Body) {
			if p, ok := op.(Pseudo); ok {
				t.Errorf("%s: pseudo %q survived lowering", f.Name, p.Name)
			}
		}
	}
}

func TestLowerFrameLayout(t *testing.T) {
	prog, _ := mustLower(t, "int main(void) { int a = 1; long b = 2l; return a; }")
	main := fn(t, prog, "main")

	if main.FrameSize%16 != 0 {
		t.Errorf("frame size %d not 16-byte aligned", main.FrameSize)
	}

	// The frame is allocated by a single subq at function entry.
	alloc, ok := main.Body[0].(*Binary)
	if !ok || alloc.Op != Sub || alloc.Type != Quadword || !reflect.DeepEqual(alloc.Dst, Reg{Name: SP}) {
		t.Fatalf("first instruction %+v, want subq into rsp", main.Body[0])
	}
	if imm := alloc.Src.(Imm); imm.Value != int64(main.FrameSize) {
		t.Errorf("subq allocates %d, want frame size %d", imm.Value, main.FrameSize)
	}

	// Quadword slots sit at 8-byte-aligned offsets.
	for _, inst := range main.Body {
		mov, ok := inst.(*Mov)
		if !ok || mov.Type != Quadword {
			continue
		}
		if s, ok := mov.Dst.(Stack); ok && s.Offset%8 != 0 {
			t.Errorf("quadword slot at offset %d not 8-aligned", s.Offset)
		}
	}
}

func TestLowerStaticsBecomeData(t *testing.T) {
	prog, _ := mustLower(t, "int g = 5; int main(void) { return g; }")
	main := fn(t, prog, "main")

	var sawData bool
	for _, op := range operands(main.Body) {
		if d, ok := op.(Data); ok && d.Name == "g" {
			sawData = true
		}
	}
	if !sawData {
		t.Error("no rip-relative reference to g in main")
	}

	var sv *StaticVariable
	for _, tl := range prog.TopLevel {
		if v, ok := tl.(*StaticVariable); ok && v.Name == "g" {
			sv = v
		}
	}
	if sv == nil {
		t.Fatal("g not lowered as a static variable")
	}
	if !sv.Global || sv.Alignment != 4 || sv.Init.Int64() != 5 {
		t.Errorf("g lowered as %+v, want global 4-aligned with initial 5", sv)
	}
}

func TestLowerDivision(t *testing.T) {
	t.Run("Signed Uses Cdq And Idiv", func(t *testing.T) {
		prog, _ := mustLower(t, "int main(void) { int a = 7; int b = 2; return a / b; }")
		main := fn(t, prog, "main")
		var sawCdq, sawIdiv, sawDiv bool
		for _, inst := range main.Body {
			switch inst.(type) {
			case *Cdq:
				sawCdq = true
			case *Idiv:
				sawIdiv = true
			case *Div:
				sawDiv = true
			}
		}
		if !sawCdq || !sawIdiv || sawDiv {
			t.Errorf("cdq=%v idiv=%v div=%v, want signed division", sawCdq, sawIdiv, sawDiv)
		}
	})

	t.Run("Unsigned Zeroes DX And Uses Div", func(t *testing.T) {
		prog, _ := mustLower(t, "int main(void) { unsigned int a = 7u; unsigned int b = 2u; return (int) (a % b); }")
		main := fn(t, prog, "main")
		var sawDiv, sawCdq, zeroedDX bool
		for _, inst := range main.Body {
			switch n := inst.(type) {
			case *Div:
				sawDiv = true
			case *Cdq:
				sawCdq = true
			case *Mov:
				if imm, ok := n.Src.(Imm); ok && imm.Value == 0 {
					if reflect.DeepEqual(n.Dst, Reg{Name: DX}) {
						zeroedDX = true
					}
				}
			}
		}
		if !sawDiv || sawCdq || !zeroedDX {
			t.Errorf("div=%v cdq=%v dx-zeroed=%v, want unsigned division", sawDiv, sawCdq, zeroedDX)
		}
	})
}

func TestLowerComparisons(t *testing.T) {
	condOf := func(src string) CondCode {
		prog, _ := mustLower(t, src)
		main := fn(t, prog, "main")
		for _, inst := range main.Body {
			if set, ok := inst.(*SetCC); ok {
				return set.Cond
			}
		}
		t.Fatalf("no setcc in %q", src)
		return 0
	}

	if cc := condOf("int main(void) { int a = 1; int b = 2; return a < b; }"); cc != L {
		t.Errorf("signed < uses cond %v, want L", cc)
	}
	if cc := condOf("int main(void) { unsigned int a = 1u; unsigned int b = 2u; return a < b; }"); cc != B {
		t.Errorf("unsigned < uses cond %v, want B", cc)
	}
	if cc := condOf("int main(void) { long a = 1l; long b = 2l; return a >= b; }"); cc != GE {
		t.Errorf("signed >= uses cond %v, want GE", cc)
	}
	if cc := condOf("int main(void) { unsigned long a = 1ul; unsigned long b = 2ul; return a >= b; }"); cc != AE {
		t.Errorf("unsigned >= uses cond %v, want AE", cc)
	}
}

func TestLowerShifts(t *testing.T) {
	shiftOf := func(src string) BinaryOp {
		prog, _ := mustLower(t, src)
		main := fn(t, prog, "main")
		for _, inst := range main.Body {
			if bin, ok := inst.(*Binary); ok && bin.Op.isShift() {
				return bin.Op
			}
		}
		t.Fatalf("no shift in %q", src)
		return 0
	}

	if op := shiftOf("int main(void) { int a = 8; int b = 1; return a >> b; }"); op != Sar {
		t.Errorf("signed right shift lowered to %v, want sar", op)
	}
	if op := shiftOf("int main(void) { unsigned int a = 8u; int b = 1; return (int) (a >> b); }"); op != Shr {
		t.Errorf("unsigned right shift lowered to %v, want shr", op)
	}
}

func TestLowerCallConvention(t *testing.T) {
	src := `int f(int a, int b, int c, int d, int e, int g, int h);
int main(void) { return f(1, 2, 3, 4, 5, 6, 7); }`
	prog, _ := mustLower(t, src)
	main := fn(t, prog, "main")

	var callIdx = -1
	for i, inst := range main.Body {
		if c, ok := inst.(*Call); ok && c.Name == "f" {
			callIdx = i
		}
	}
	if callIdx < 0 {
		t.Fatal("no call to f")
	}

	// One stack argument means 8 bytes of alignment padding before the
	// setup, one push, and 16 bytes deallocated after the call.
	var sawPad, sawPush bool
	for _, inst := range main.Body[:callIdx] {
		switch n := inst.(type) {
		case *Binary:
			if n.Op == Sub && reflect.DeepEqual(n.Dst, Reg{Name: SP}) {
				if imm, ok := n.Src.(Imm); ok && imm.Value == 8 {
					sawPad = true
				}
			}
		case *Push:
			sawPush = true
		}
	}
	if !sawPad || !sawPush {
		t.Errorf("pad=%v push=%v before call, want both", sawPad, sawPush)
	}

	dealloc, ok := main.Body[callIdx+1].(*Binary)
	if !ok || dealloc.Op != Add || !reflect.DeepEqual(dealloc.Dst, Reg{Name: SP}) {
		t.Fatalf("instruction after call is %+v, want addq to rsp", main.Body[callIdx+1])
	}
	if imm := dealloc.Src.(Imm); imm.Value != 16 {
		t.Errorf("deallocated %d bytes, want 16", imm.Value)
	}

	// The six register arguments land in the convention order.
	wantRegs := []RegName{DI, SI, DX, CX, R8, R9}
	var gotRegs []RegName
	for _, inst := range main.Body[:callIdx] {
		if mov, ok := inst.(*Mov); ok {
			if r, ok := mov.Dst.(Reg); ok {
				for _, want := range wantRegs {
					if r.Name == want {
						gotRegs = append(gotRegs, r.Name)
					}
				}
			}
		}
	}
	if !reflect.DeepEqual(gotRegs, wantRegs) {
		t.Errorf("register argument order %v, want %v", gotRegs, wantRegs)
	}
}

func TestLowerParameterHomes(t *testing.T) {
	src := "int f(int a, int b, int c, int d, int e, int g, int h) { return h; }"
	prog, _ := mustLower(t, src)
	f := fn(t, prog, "f")

	// After the frame subq, the first six moves come from registers and the
	// seventh from the caller's stack at 16(%rbp).
	var fromStack bool
	for _, inst := range f.Body {
		mov, ok := inst.(*Mov)
		if !ok {
			continue
		}
		if s, ok := mov.Src.(Stack); ok && s.Offset == 16 {
			fromStack = true
		}
	}
	if !fromStack {
		t.Error("seventh parameter not loaded from 16(%rbp)")
	}
}

func TestLowerSymbols(t *testing.T) {
	src := "long g = 1l; int f(void); int main(void) { return f(); }"
	_, back := mustLower(t, src)

	if e := back["g"]; e.Kind != ObjEntry || e.Type != Quadword || !e.IsStatic {
		t.Errorf("g entry %+v, want static quadword object", e)
	}
	if e := back["f"]; e.Kind != FunEntry || e.Defined {
		t.Errorf("f entry %+v, want undefined function", e)
	}
	if e := back["main"]; e.Kind != FunEntry || !e.Defined {
		t.Errorf("main entry %+v, want defined function", e)
	}
}
