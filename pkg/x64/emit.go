package x64

import (
	"fmt"
	"strings"
)

// Platform selects assembler conventions for the output text.
type Platform int

const (
	Linux Platform = iota
	Darwin
)

var reg8 = map[RegName]string{
	AX: "%rax", CX: "%rcx", DX: "%rdx", DI: "%rdi", SI: "%rsi",
	R8: "%r8", R9: "%r9", R10: "%r10", R11: "%r11", SP: "%rsp",
}

// SP only ever appears at quadword width, in frame and stack-argument
// adjustments, so the narrower tables have no entry for it.
var reg4 = map[RegName]string{
	AX: "%eax", CX: "%ecx", DX: "%edx", DI: "%edi", SI: "%esi",
	R8: "%r8d", R9: "%r9d", R10: "%r10d", R11: "%r11d",
}

var reg1 = map[RegName]string{
	AX: "%al", CX: "%cl", DX: "%dl", DI: "%dil", SI: "%sil",
	R8: "%r8b", R9: "%r9b", R10: "%r10b", R11: "%r11b",
}

var condNames = map[CondCode]string{
	E: "e", NE: "ne", G: "g", GE: "ge", L: "l", LE: "le",
	A: "a", AE: "ae", B: "b", BE: "be",
}

// Emit renders a lowered program as AT&T-syntax assembly text.
func Emit(prog *Program, syms Symbols, platform Platform) string {
	e := &emitter{syms: syms, platform: platform}
	for _, tl := range prog.TopLevel {
		switch n := tl.(type) {
		case *Function:
			e.function(n)
		case *StaticVariable:
			e.staticVariable(n)
		}
	}
	if platform == Linux {
		e.line("\t.section .note.GNU-stack,\"\",@progbits")
	}
	return e.b.String()
}

type emitter struct {
	b        strings.Builder
	syms     Symbols
	platform Platform
}

func (e *emitter) line(format string, args ...any) {
	fmt.Fprintf(&e.b, format+"\n", args...)
}

// symbol renders an external symbol name with the platform prefix.
func (e *emitter) symbol(name string) string {
	if e.platform == Darwin {
		return "_" + name
	}
	return name
}

// local renders an assembler-local label name.
func (e *emitter) local(name string) string {
	if e.platform == Darwin {
		return "L" + name
	}
	return ".L" + name
}

func suffix(t AsmType) string {
	if t == Quadword {
		return "q"
	}
	return "l"
}

// operand renders op at the given width.
func (e *emitter) operand(op Operand, t AsmType) string {
	switch n := op.(type) {
	case Imm:
		return fmt.Sprintf("$%d", n.Value)
	case Reg:
		if t == Quadword {
			return reg8[n.Name]
		}
		return reg4[n.Name]
	case Stack:
		return fmt.Sprintf("%d(%%rbp)", n.Offset)
	case Data:
		return fmt.Sprintf("%s(%%rip)", e.symbol(n.Name))
	}
	panic(fmt.Sprintf("cannot emit operand %T", op))
}

// byteOperand renders op as the 1-byte alias, for setcc.
func (e *emitter) byteOperand(op Operand) string {
	if r, ok := op.(Reg); ok {
		return reg1[r.Name]
	}
	return e.operand(op, Longword)
}

func (e *emitter) function(fn *Function) {
	name := e.symbol(fn.Name)
	if fn.Global {
		e.line("\t.globl %s", name)
	}
	e.line("\t.text")
	e.line("%s:", name)
	e.line("\tpushq %%rbp")
	e.line("\tmovq %%rsp, %%rbp")
	for _, inst := range fn.Body {
		e.instruction(inst)
	}
}

func (e *emitter) staticVariable(v *StaticVariable) {
	name := e.symbol(v.Name)
	if v.Global {
		e.line("\t.globl %s", name)
	}
	if v.Init.IsZero() {
		e.line("\t.bss")
		e.line("\t.align %d", v.Alignment)
		e.line("%s:", name)
		e.line("\t.zero %d", v.Init.Type.Size())
		return
	}
	e.line("\t.data")
	e.line("\t.align %d", v.Alignment)
	e.line("%s:", name)
	if v.Init.Type.Size() == 8 {
		e.line("\t.quad %d", v.Init.Int64())
	} else {
		e.line("\t.long %d", int32(v.Init.Uint64()))
	}
}

func (e *emitter) instruction(inst Instruction) {
	switch n := inst.(type) {
	case *Mov:
		e.line("\tmov%s %s, %s", suffix(n.Type), e.operand(n.Src, n.Type), e.operand(n.Dst, n.Type))
	case *Movsx:
		e.line("\tmovslq %s, %s", e.operand(n.Src, Longword), e.operand(n.Dst, Quadword))
	case *Unary:
		op := "neg"
		if n.Op == Not {
			op = "not"
		}
		e.line("\t%s%s %s", op, suffix(n.Type), e.operand(n.Operand, n.Type))
	case *Binary:
		e.binary(n)
	case *Cmp:
		e.line("\tcmp%s %s, %s", suffix(n.Type), e.operand(n.Src, n.Type), e.operand(n.Dst, n.Type))
	case *Idiv:
		e.line("\tidiv%s %s", suffix(n.Type), e.operand(n.Operand, n.Type))
	case *Div:
		e.line("\tdiv%s %s", suffix(n.Type), e.operand(n.Operand, n.Type))
	case *Cdq:
		if n.Type == Quadword {
			e.line("\tcqo")
		} else {
			e.line("\tcdq")
		}
	case *Jmp:
		e.line("\tjmp %s", e.local(n.Target))
	case *JmpCC:
		e.line("\tj%s %s", condNames[n.Cond], e.local(n.Target))
	case *SetCC:
		e.line("\tset%s %s", condNames[n.Cond], e.byteOperand(n.Operand))
	case *Label:
		e.line("%s:", e.local(n.Name))
	case *Push:
		e.line("\tpushq %s", e.operand(n.Operand, Quadword))
	case *Call:
		target := e.symbol(n.Name)
		if e.platform == Linux {
			if entry, ok := e.syms[n.Name]; !ok || !entry.Defined {
				target += "@PLT"
			}
		}
		e.line("\tcall %s", target)
	case *Ret:
		e.line("\tmovq %%rbp, %%rsp")
		e.line("\tpopq %%rbp")
		e.line("\tret")
	default:
		panic(fmt.Sprintf("cannot emit instruction %T", inst))
	}
}

var binaryNames = map[BinaryOp]string{
	Add: "add", Sub: "sub", Mult: "imul",
	And: "and", Or: "or", Xor: "xor",
	Sal: "sal", Sar: "sar", Shl: "shl", Shr: "shr",
}

func (e *emitter) binary(n *Binary) {
	src := e.operand(n.Src, n.Type)
	if n.Op.isShift() {
		// A register shift count is always CL.
		if r, ok := n.Src.(Reg); ok {
			src = reg1[r.Name]
		}
	}
	e.line("\t%s%s %s, %s", binaryNames[n.Op], suffix(n.Type), src, e.operand(n.Dst, n.Type))
}
