// Package x64 lowers TAC into x86-64 assembly: instruction selection,
// calling convention, stack-frame layout, operand legalization, and final
// text emission in AT&T syntax.
package x64

import (
	"mcc/pkg/ctypes"
)

// AsmType is the operand width an instruction operates at.
type AsmType int

const (
	Longword AsmType = iota // 32-bit
	Quadword                // 64-bit
)

// Size returns the width in bytes.
func (t AsmType) Size() int {
	if t == Quadword {
		return 8
	}
	return 4
}

func asmTypeOf(t ctypes.Type) AsmType {
	if t.Size() == 8 {
		return Quadword
	}
	return Longword
}

// RegName enumerates the registers the backend uses. R10 and R11 are
// reserved for legalization rewrites and never carry program values.
type RegName int

const (
	AX RegName = iota
	CX
	DX
	DI
	SI
	R8
	R9
	R10
	R11
	SP
)

// argRegisters is the System V integer argument register sequence.
var argRegisters = []RegName{DI, SI, DX, CX, R8, R9}

// Operand is an instruction operand.
type Operand interface {
	operand()
}

// Imm is an immediate. Value holds the bit image; the instruction's AsmType
// decides how much of it is meaningful.
type Imm struct {
	Value int64
}

// Reg names a hardware register; the instruction width picks the alias.
type Reg struct {
	Name RegName
}

// Pseudo is a TAC variable that has not been assigned a home yet. None
// survive past pseudo replacement.
type Pseudo struct {
	Name string
}

// Stack addresses Offset(%rbp).
type Stack struct {
	Offset int
}

// Data addresses a static object Name(%rip).
type Data struct {
	Name string
}

func (Imm) operand()    {}
func (Reg) operand()    {}
func (Pseudo) operand() {}
func (Stack) operand()  {}
func (Data) operand()   {}

// isMemory reports whether op addresses memory.
func isMemory(op Operand) bool {
	switch op.(type) {
	case Stack, Data:
		return true
	}
	return false
}

// UnaryOp enumerates one-operand ALU opcodes.
type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
)

// BinaryOp enumerates two-operand ALU opcodes.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mult
	And
	Or
	Xor
	Sal // arithmetic (signed) shift left
	Sar // arithmetic shift right
	Shl // logical (unsigned) shift left
	Shr // logical shift right
)

// isShift reports whether op takes its count from CL.
func (op BinaryOp) isShift() bool {
	return op == Sal || op == Sar || op == Shl || op == Shr
}

// CondCode enumerates condition codes for SetCC and JmpCC. The unsigned
// comparisons (A/AE/B/BE) mirror the signed ones (G/GE/L/LE).
type CondCode int

const (
	E CondCode = iota
	NE
	G
	GE
	L
	LE
	A
	AE
	B
	BE
)

// Instruction is one machine instruction (or pseudo-instruction prior to
// legalization).
type Instruction interface {
	instruction()
}

// Mov copies Src to Dst at the given width.
type Mov struct {
	Type AsmType
	Src  Operand
	Dst  Operand
}

// Movsx sign-extends a longword Src into a quadword Dst.
type Movsx struct {
	Src Operand
	Dst Operand
}

// MovZeroExtend zero-extends a longword Src into a quadword Dst. It has no
// direct encoding; legalization rewrites it into 32-bit moves.
type MovZeroExtend struct {
	Src Operand
	Dst Operand
}

// Unary applies Op to Operand in place.
type Unary struct {
	Op      UnaryOp
	Type    AsmType
	Operand Operand
}

// Binary computes Dst = Dst Op Src.
type Binary struct {
	Op   BinaryOp
	Type AsmType
	Src  Operand
	Dst  Operand
}

// Cmp sets flags for Dst - Src.
type Cmp struct {
	Type AsmType
	Src  Operand
	Dst  Operand
}

// Idiv is signed division of DX:AX by Operand; Div is unsigned.
type Idiv struct {
	Type    AsmType
	Operand Operand
}

type Div struct {
	Type    AsmType
	Operand Operand
}

// Cdq sign-extends AX into DX (cdq or cqo depending on width).
type Cdq struct {
	Type AsmType
}

// Jmp unconditionally jumps to a local label.
type Jmp struct {
	Target string
}

// JmpCC jumps to a local label when the condition holds.
type JmpCC struct {
	Cond   CondCode
	Target string
}

// SetCC stores the condition as a byte in Operand.
type SetCC struct {
	Cond    CondCode
	Operand Operand
}

// Label marks a local jump target.
type Label struct {
	Name string
}

// Push pushes a quadword operand.
type Push struct {
	Operand Operand
}

// Call invokes a function symbol.
type Call struct {
	Name string
}

// Ret restores the caller's frame and returns.
type Ret struct{}

func (*Mov) instruction()           {}
func (*Movsx) instruction()         {}
func (*MovZeroExtend) instruction() {}
func (*Unary) instruction()         {}
func (*Binary) instruction()        {}
func (*Cmp) instruction()           {}
func (*Idiv) instruction()          {}
func (*Div) instruction()           {}
func (*Cdq) instruction()           {}
func (*Jmp) instruction()           {}
func (*JmpCC) instruction()         {}
func (*SetCC) instruction()         {}
func (*Label) instruction()         {}
func (*Push) instruction()          {}
func (*Call) instruction()          {}
func (*Ret) instruction()           {}

// TopLevel is a lowered function or static object.
type TopLevel interface {
	topLevel()
}

// Function is a lowered function body. FrameSize is the 16-byte-rounded
// local frame, filled in by pseudo replacement.
type Function struct {
	Name      string
	Global    bool
	Body      []Instruction
	FrameSize int
}

// StaticVariable is an initialized or zero-filled static object.
type StaticVariable struct {
	Name      string
	Global    bool
	Alignment int
	Init      ctypes.Const
}

func (*Function) topLevel()       {}
func (*StaticVariable) topLevel() {}

// Program is a lowered translation unit.
type Program struct {
	TopLevel []TopLevel
}

// SymbolKind distinguishes backend symbol entries.
type SymbolKind int

const (
	ObjEntry SymbolKind = iota
	FunEntry
)

// SymbolEntry is the backend's view of one identifier: functions record
// whether this unit defines them, objects record their width and storage.
type SymbolEntry struct {
	Kind     SymbolKind
	Type     AsmType // ObjEntry: operand width
	IsStatic bool    // ObjEntry: static storage (addressed rip-relative)
	Defined  bool    // FunEntry: has a body in this unit
}

// Symbols is the backend symbol table, derived from the frontend table
// during lowering and consulted by pseudo replacement and emission.
type Symbols map[string]SymbolEntry

// NewSymbols projects the frontend symbol table into backend form.
func NewSymbols(syms *ctypes.Symbols) Symbols {
	out := make(Symbols)
	for _, name := range syms.Names() {
		sym, _ := syms.Lookup(name)
		if sym.Attrs.Kind == ctypes.FunAttr {
			out[name] = SymbolEntry{Kind: FunEntry, Defined: sym.Attrs.Defined}
			continue
		}
		out[name] = SymbolEntry{
			Kind:     ObjEntry,
			Type:     asmTypeOf(sym.Type),
			IsStatic: sym.Attrs.Kind == ctypes.StaticAttr,
		}
	}
	return out
}
