package x64

import "math"

// legalize rewrites instructions whose operand combinations no x86-64
// encoding accepts. R10 is the scratch register for sources, R11 for
// destinations, so the two never collide within one rewrite.
func legalize(body []Instruction) []Instruction {
	var out []Instruction
	for _, inst := range body {
		out = append(out, legalizeOne(inst)...)
	}
	return out
}

// fitsImm32 reports whether a constant can appear as an immediate in a
// quadword instruction, which sign-extends a 32-bit field.
func fitsImm32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

func legalizeOne(inst Instruction) []Instruction {
	switch n := inst.(type) {
	case *Mov:
		return legalizeMov(n)
	case *Movsx:
		return legalizeMovsx(n)
	case *MovZeroExtend:
		return legalizeMovZeroExtend(n)
	case *Binary:
		return legalizeBinary(n)
	case *Cmp:
		return legalizeCmp(n)
	case *Idiv:
		if imm, ok := n.Operand.(Imm); ok {
			return []Instruction{
				&Mov{Type: n.Type, Src: imm, Dst: Reg{Name: R10}},
				&Idiv{Type: n.Type, Operand: Reg{Name: R10}},
			}
		}
	case *Div:
		if imm, ok := n.Operand.(Imm); ok {
			return []Instruction{
				&Mov{Type: n.Type, Src: imm, Dst: Reg{Name: R10}},
				&Div{Type: n.Type, Operand: Reg{Name: R10}},
			}
		}
	case *Push:
		if imm, ok := n.Operand.(Imm); ok && !fitsImm32(imm.Value) {
			return []Instruction{
				&Mov{Type: Quadword, Src: imm, Dst: Reg{Name: R10}},
				&Push{Operand: Reg{Name: R10}},
			}
		}
	}
	return []Instruction{inst}
}

func legalizeMov(n *Mov) []Instruction {
	if imm, ok := n.Src.(Imm); ok {
		if n.Type == Longword {
			// movl only has a 32-bit immediate field; truncate up front so
			// the emitted text matches what the hardware would keep.
			if !fitsImm32(imm.Value) {
				n = &Mov{Type: Longword, Src: Imm{Value: int64(int32(imm.Value))}, Dst: n.Dst}
			}
		} else if !fitsImm32(imm.Value) && isMemory(n.Dst) {
			// Only movabs takes a 64-bit immediate, and only into a register.
			return []Instruction{
				&Mov{Type: Quadword, Src: imm, Dst: Reg{Name: R10}},
				&Mov{Type: Quadword, Src: Reg{Name: R10}, Dst: n.Dst},
			}
		}
	}
	if isMemory(n.Src) && isMemory(n.Dst) {
		return []Instruction{
			&Mov{Type: n.Type, Src: n.Src, Dst: Reg{Name: R10}},
			&Mov{Type: n.Type, Src: Reg{Name: R10}, Dst: n.Dst},
		}
	}
	return []Instruction{n}
}

func legalizeMovsx(n *Movsx) []Instruction {
	src, dst := n.Src, n.Dst
	var before, after []Instruction
	if imm, ok := src.(Imm); ok {
		before = append(before, &Mov{Type: Longword, Src: imm, Dst: Reg{Name: R10}})
		src = Reg{Name: R10}
	}
	if isMemory(dst) {
		after = append(after, &Mov{Type: Quadword, Src: Reg{Name: R11}, Dst: dst})
		dst = Reg{Name: R11}
	}
	if len(before) == 0 && len(after) == 0 {
		return []Instruction{n}
	}
	out := append(before, &Movsx{Src: src, Dst: dst})
	return append(out, after...)
}

// legalizeMovZeroExtend turns the pseudo-instruction into real movs: a
// 32-bit mov already zeroes the upper half of its destination register.
func legalizeMovZeroExtend(n *MovZeroExtend) []Instruction {
	if isMemory(n.Dst) {
		return []Instruction{
			&Mov{Type: Longword, Src: n.Src, Dst: Reg{Name: R11}},
			&Mov{Type: Quadword, Src: Reg{Name: R11}, Dst: n.Dst},
		}
	}
	return []Instruction{&Mov{Type: Longword, Src: n.Src, Dst: n.Dst}}
}

func legalizeBinary(n *Binary) []Instruction {
	if n.Op.isShift() {
		return []Instruction{n}
	}

	src := n.Src
	var before []Instruction
	if imm, ok := src.(Imm); ok && n.Type == Quadword && !fitsImm32(imm.Value) {
		before = append(before, &Mov{Type: Quadword, Src: imm, Dst: Reg{Name: R10}})
		src = Reg{Name: R10}
	}

	if n.Op == Mult {
		// imul cannot target memory.
		if isMemory(n.Dst) {
			out := append(before,
				&Mov{Type: n.Type, Src: n.Dst, Dst: Reg{Name: R11}},
				&Binary{Op: Mult, Type: n.Type, Src: src, Dst: Reg{Name: R11}},
				&Mov{Type: n.Type, Src: Reg{Name: R11}, Dst: n.Dst})
			return out
		}
		if len(before) > 0 {
			return append(before, &Binary{Op: Mult, Type: n.Type, Src: src, Dst: n.Dst})
		}
		return []Instruction{n}
	}

	if isMemory(src) && isMemory(n.Dst) {
		before = append(before, &Mov{Type: n.Type, Src: src, Dst: Reg{Name: R10}})
		src = Reg{Name: R10}
	}
	if len(before) > 0 {
		return append(before, &Binary{Op: n.Op, Type: n.Type, Src: src, Dst: n.Dst})
	}
	return []Instruction{n}
}

func legalizeCmp(n *Cmp) []Instruction {
	src, dst := n.Src, n.Dst
	var before []Instruction
	if imm, ok := src.(Imm); ok && n.Type == Quadword && !fitsImm32(imm.Value) {
		before = append(before, &Mov{Type: Quadword, Src: imm, Dst: Reg{Name: R10}})
		src = Reg{Name: R10}
	}
	if isMemory(src) && isMemory(dst) {
		before = append(before, &Mov{Type: n.Type, Src: src, Dst: Reg{Name: R10}})
		src = Reg{Name: R10}
	}
	if _, ok := dst.(Imm); ok {
		// cmp cannot have an immediate second operand.
		before = append(before, &Mov{Type: n.Type, Src: dst, Dst: Reg{Name: R11}})
		dst = Reg{Name: R11}
	}
	if len(before) > 0 {
		return append(before, &Cmp{Type: n.Type, Src: src, Dst: dst})
	}
	return []Instruction{n}
}
