package x64

import (
	"fmt"

	"mcc/pkg/ctypes"
	"mcc/pkg/tacky"
)

// Lower selects instructions for a TAC program, applies the System V
// calling convention, assigns every TAC variable a stack slot or static
// home, and legalizes operand combinations. The result is ready for text
// emission.
func Lower(prog *tacky.Program, syms *ctypes.Symbols) (*Program, Symbols, error) {
	l := &lowerer{front: syms, back: NewSymbols(syms)}
	out := &Program{}
	for _, tl := range prog.TopLevel {
		switch n := tl.(type) {
		case *tacky.Function:
			fn, err := l.lowerFunction(n)
			if err != nil {
				return nil, nil, err
			}
			out.TopLevel = append(out.TopLevel, fn)
		case *tacky.StaticVariable:
			out.TopLevel = append(out.TopLevel, &StaticVariable{
				Name:      n.Name,
				Global:    n.Global,
				Alignment: n.Type.Size(),
				Init:      n.Init,
			})
		}
	}
	return out, l.back, nil
}

type lowerer struct {
	front *ctypes.Symbols
	back  Symbols
}

// valType returns the operand width of a TAC value.
func (l *lowerer) valType(v tacky.Val) (AsmType, error) {
	t, err := tacky.ValType(v, l.front)
	if err != nil {
		return 0, err
	}
	return asmTypeOf(t), nil
}

// valSigned reports whether a TAC value has a signed type.
func (l *lowerer) valSigned(v tacky.Val) (bool, error) {
	t, err := tacky.ValType(v, l.front)
	if err != nil {
		return false, err
	}
	return t.Signed(), nil
}

// operand converts a TAC value into an assembly operand. Variables become
// pseudos; replacePseudos later assigns their homes.
func operand(v tacky.Val) Operand {
	switch n := v.(type) {
	case tacky.Constant:
		return Imm{Value: int64(n.Value.Uint64())}
	case tacky.Var:
		return Pseudo{Name: n.Name}
	}
	panic(fmt.Sprintf("unknown TAC value %T", v))
}

func (l *lowerer) lowerFunction(fn *tacky.Function) (*Function, error) {
	var body []Instruction

	// Move parameters from their convention-assigned homes into pseudos.
	for i, param := range fn.Params {
		t, err := l.valType(tacky.Var{Name: param})
		if err != nil {
			return nil, err
		}
		var src Operand
		if i < len(argRegisters) {
			src = Reg{Name: argRegisters[i]}
		} else {
			// Stack arguments start above the saved RBP and return address.
			src = Stack{Offset: 16 + 8*(i-len(argRegisters))}
		}
		body = append(body, &Mov{Type: t, Src: src, Dst: Pseudo{Name: param}})
	}

	for _, inst := range fn.Body {
		lowered, err := l.lowerInstruction(inst)
		if err != nil {
			return nil, err
		}
		body = append(body, lowered...)
	}

	body, frame := l.replacePseudos(body)
	// One stack adjustment per function, rounded so every call site sees a
	// 16-byte-aligned stack pointer.
	frame = roundUp(frame, 16)
	if frame > 0 {
		body = append([]Instruction{
			&Binary{Op: Sub, Type: Quadword, Src: Imm{Value: int64(frame)}, Dst: Reg{Name: SP}},
		}, body...)
	}
	body = legalize(body)

	return &Function{Name: fn.Name, Global: fn.Global, Body: body, FrameSize: frame}, nil
}

// condCode picks the condition code for a relational operator given the
// signedness of the compared operands.
func condCode(op tacky.BinaryOp, signed bool) CondCode {
	switch op {
	case tacky.Equal:
		return E
	case tacky.NotEqual:
		return NE
	case tacky.LessThan:
		if signed {
			return L
		}
		return B
	case tacky.LessOrEqual:
		if signed {
			return LE
		}
		return BE
	case tacky.GreaterThan:
		if signed {
			return G
		}
		return A
	default: // GreaterOrEqual
		if signed {
			return GE
		}
		return AE
	}
}

func (l *lowerer) lowerInstruction(inst tacky.Instruction) ([]Instruction, error) {
	switch n := inst.(type) {
	case *tacky.Return:
		t, err := l.valType(n.Val)
		if err != nil {
			return nil, err
		}
		return []Instruction{
			&Mov{Type: t, Src: operand(n.Val), Dst: Reg{Name: AX}},
			&Ret{},
		}, nil

	case *tacky.SignExtend:
		return []Instruction{&Movsx{Src: operand(n.Src), Dst: operand(n.Dst)}}, nil

	case *tacky.ZeroExtend:
		return []Instruction{&MovZeroExtend{Src: operand(n.Src), Dst: operand(n.Dst)}}, nil

	case *tacky.Truncate:
		return []Instruction{&Mov{Type: Longword, Src: operand(n.Src), Dst: operand(n.Dst)}}, nil

	case *tacky.Copy:
		t, err := l.valType(n.Src)
		if err != nil {
			return nil, err
		}
		return []Instruction{&Mov{Type: t, Src: operand(n.Src), Dst: operand(n.Dst)}}, nil

	case *tacky.Unary:
		return l.lowerUnary(n)

	case *tacky.Binary:
		return l.lowerBinary(n)

	case *tacky.Jump:
		return []Instruction{&Jmp{Target: n.Target}}, nil

	case *tacky.JumpIfZero:
		t, err := l.valType(n.Cond)
		if err != nil {
			return nil, err
		}
		return []Instruction{
			&Cmp{Type: t, Src: Imm{Value: 0}, Dst: operand(n.Cond)},
			&JmpCC{Cond: E, Target: n.Target},
		}, nil

	case *tacky.JumpIfNotZero:
		t, err := l.valType(n.Cond)
		if err != nil {
			return nil, err
		}
		return []Instruction{
			&Cmp{Type: t, Src: Imm{Value: 0}, Dst: operand(n.Cond)},
			&JmpCC{Cond: NE, Target: n.Target},
		}, nil

	case *tacky.Label:
		return []Instruction{&Label{Name: n.Name}}, nil

	case *tacky.FunCall:
		return l.lowerCall(n)

	default:
		return nil, ctypes.Internalf("unhandled TAC instruction %T", inst)
	}
}

func (l *lowerer) lowerUnary(n *tacky.Unary) ([]Instruction, error) {
	srcType, err := l.valType(n.Src)
	if err != nil {
		return nil, err
	}
	src, dst := operand(n.Src), operand(n.Dst)

	if n.Op == tacky.Not {
		// !x is a comparison against zero with an int result.
		return []Instruction{
			&Cmp{Type: srcType, Src: Imm{Value: 0}, Dst: src},
			&Mov{Type: Longword, Src: Imm{Value: 0}, Dst: dst},
			&SetCC{Cond: E, Operand: dst},
		}, nil
	}

	op := Neg
	if n.Op == tacky.Complement {
		op = Not
	}
	return []Instruction{
		&Mov{Type: srcType, Src: src, Dst: dst},
		&Unary{Op: op, Type: srcType, Operand: dst},
	}, nil
}

func (l *lowerer) lowerBinary(n *tacky.Binary) ([]Instruction, error) {
	t, err := l.valType(n.Src1)
	if err != nil {
		return nil, err
	}
	signed, err := l.valSigned(n.Src1)
	if err != nil {
		return nil, err
	}
	src1, src2, dst := operand(n.Src1), operand(n.Src2), operand(n.Dst)

	if n.Op.IsRelational() {
		return []Instruction{
			&Cmp{Type: t, Src: src2, Dst: src1},
			&Mov{Type: Longword, Src: Imm{Value: 0}, Dst: dst},
			&SetCC{Cond: condCode(n.Op, signed), Operand: dst},
		}, nil
	}

	switch n.Op {
	case tacky.Divide, tacky.Remainder:
		// Result register: AX for the quotient, DX for the remainder.
		result := Reg{Name: AX}
		if n.Op == tacky.Remainder {
			result = Reg{Name: DX}
		}
		if signed {
			return []Instruction{
				&Mov{Type: t, Src: src1, Dst: Reg{Name: AX}},
				&Cdq{Type: t},
				&Idiv{Type: t, Operand: src2},
				&Mov{Type: t, Src: result, Dst: dst},
			}, nil
		}
		return []Instruction{
			&Mov{Type: t, Src: src1, Dst: Reg{Name: AX}},
			&Mov{Type: t, Src: Imm{Value: 0}, Dst: Reg{Name: DX}},
			&Div{Type: t, Operand: src2},
			&Mov{Type: t, Src: result, Dst: dst},
		}, nil

	case tacky.ShiftLeft, tacky.ShiftRight:
		op := Shl
		if n.Op == tacky.ShiftRight {
			op = Shr
		}
		if signed {
			op = Sal
			if n.Op == tacky.ShiftRight {
				op = Sar
			}
		}
		if imm, ok := src2.(Imm); ok {
			return []Instruction{
				&Mov{Type: t, Src: src1, Dst: dst},
				&Binary{Op: op, Type: t, Src: imm, Dst: dst},
			}, nil
		}
		// A variable count is taken from CL.
		countType, err := l.valType(n.Src2)
		if err != nil {
			return nil, err
		}
		return []Instruction{
			&Mov{Type: t, Src: src1, Dst: dst},
			&Mov{Type: countType, Src: src2, Dst: Reg{Name: CX}},
			&Binary{Op: op, Type: t, Src: Reg{Name: CX}, Dst: dst},
		}, nil
	}

	var op BinaryOp
	switch n.Op {
	case tacky.Add:
		op = Add
	case tacky.Subtract:
		op = Sub
	case tacky.Multiply:
		op = Mult
	case tacky.BitAnd:
		op = And
	case tacky.BitOr:
		op = Or
	case tacky.BitXor:
		op = Xor
	default:
		return nil, ctypes.Internalf("unhandled TAC binary operator %s", n.Op)
	}
	return []Instruction{
		&Mov{Type: t, Src: src1, Dst: dst},
		&Binary{Op: op, Type: t, Src: src2, Dst: dst},
	}, nil
}

// lowerCall applies the calling convention: the first six integer arguments
// travel in registers, the rest are pushed in reverse order as 8-byte slots,
// with padding so the stack pointer stays 16-byte aligned at the call.
func (l *lowerer) lowerCall(n *tacky.FunCall) ([]Instruction, error) {
	var out []Instruction

	regArgs := n.Args
	var stackArgs []tacky.Val
	if len(n.Args) > len(argRegisters) {
		regArgs = n.Args[:len(argRegisters)]
		stackArgs = n.Args[len(argRegisters):]
	}

	padding := 0
	if len(stackArgs)%2 == 1 {
		padding = 8
		out = append(out, &Binary{Op: Sub, Type: Quadword, Src: Imm{Value: 8}, Dst: Reg{Name: SP}})
	}

	for i, arg := range regArgs {
		t, err := l.valType(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, &Mov{Type: t, Src: operand(arg), Dst: Reg{Name: argRegisters[i]}})
	}

	for i := len(stackArgs) - 1; i >= 0; i-- {
		arg := stackArgs[i]
		t, err := l.valType(arg)
		if err != nil {
			return nil, err
		}
		op := operand(arg)
		switch {
		case t == Quadword:
			out = append(out, &Push{Operand: op})
		case !isMemory(op):
			// Immediates push fine at any width.
			out = append(out, &Push{Operand: op})
		default:
			// Pushing 8 bytes of a 4-byte memory operand could read past
			// the object; stage it through AX instead.
			out = append(out,
				&Mov{Type: Longword, Src: op, Dst: Reg{Name: AX}},
				&Push{Operand: Reg{Name: AX}})
		}
	}

	out = append(out, &Call{Name: n.Name})

	if bytes := 8*len(stackArgs) + padding; bytes > 0 {
		out = append(out, &Binary{Op: Add, Type: Quadword, Src: Imm{Value: int64(bytes)}, Dst: Reg{Name: SP}})
	}

	retType, err := l.valType(n.Dst)
	if err != nil {
		return nil, err
	}
	out = append(out, &Mov{Type: retType, Src: Reg{Name: AX}, Dst: operand(n.Dst)})
	return out, nil
}

//  Pseudo replacement

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}

// replacePseudos assigns every pseudo a home: static objects become
// rip-relative Data operands, everything else gets a stack slot below RBP
// sized and aligned by its width. Returns the rewritten body and the raw
// frame size in bytes.
func (l *lowerer) replacePseudos(body []Instruction) ([]Instruction, int) {
	offsets := make(map[string]int)
	next := 0

	home := func(op Operand) Operand {
		p, ok := op.(Pseudo)
		if !ok {
			return op
		}
		entry := l.back[p.Name]
		if entry.IsStatic {
			return Data{Name: p.Name}
		}
		if off, ok := offsets[p.Name]; ok {
			return Stack{Offset: off}
		}
		if entry.Type == Quadword {
			next = -roundUp(-next+8, 8)
		} else {
			next -= 4
		}
		offsets[p.Name] = next
		return Stack{Offset: next}
	}

	out := make([]Instruction, len(body))
	for i, inst := range body {
		out[i] = mapOperands(inst, home)
	}
	return out, -next
}

// mapOperands rebuilds an instruction with fn applied to each operand.
func mapOperands(inst Instruction, fn func(Operand) Operand) Instruction {
	switch n := inst.(type) {
	case *Mov:
		return &Mov{Type: n.Type, Src: fn(n.Src), Dst: fn(n.Dst)}
	case *Movsx:
		return &Movsx{Src: fn(n.Src), Dst: fn(n.Dst)}
	case *MovZeroExtend:
		return &MovZeroExtend{Src: fn(n.Src), Dst: fn(n.Dst)}
	case *Unary:
		return &Unary{Op: n.Op, Type: n.Type, Operand: fn(n.Operand)}
	case *Binary:
		return &Binary{Op: n.Op, Type: n.Type, Src: fn(n.Src), Dst: fn(n.Dst)}
	case *Cmp:
		return &Cmp{Type: n.Type, Src: fn(n.Src), Dst: fn(n.Dst)}
	case *Idiv:
		return &Idiv{Type: n.Type, Operand: fn(n.Operand)}
	case *Div:
		return &Div{Type: n.Type, Operand: fn(n.Operand)}
	case *SetCC:
		return &SetCC{Cond: n.Cond, Operand: fn(n.Operand)}
	case *Push:
		return &Push{Operand: fn(n.Operand)}
	default:
		return inst
	}
}
