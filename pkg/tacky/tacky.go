// Package tacky defines the compiler's three-address-code intermediate
// representation and the lowering from the typed AST into it. Every
// instruction names its operands and destination explicitly; values are
// either typed constants or uniquely named temporaries.
package tacky

import (
	"fmt"
	"strings"

	"mcc/pkg/ctypes"
)

// Program is a lowered translation unit: function bodies plus the static
// variables collected from the symbol table.
type Program struct {
	TopLevel []TopLevel
}

// TopLevel is a function definition or a static variable definition.
type TopLevel interface {
	topLevel()
	String() string
}

// Function is a flat ordered instruction sequence with its parameter names.
type Function struct {
	Name   string
	Global bool
	Params []string
	Body   []Instruction
}

// StaticVariable is an object with static storage duration and a concrete
// initial value (tentative definitions have already been zero-filled).
type StaticVariable struct {
	Name   string
	Global bool
	Type   ctypes.Type
	Init   ctypes.Const
}

func (*Function) topLevel()       {}
func (*StaticVariable) topLevel() {}

func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%s):\n", f.Name, strings.Join(f.Params, ", "))
	for _, inst := range f.Body {
		fmt.Fprintf(&sb, "  %s\n", inst)
	}
	return sb.String()
}

func (v *StaticVariable) String() string {
	return fmt.Sprintf("static %s %s = %s", v.Type, v.Name, v.Init)
}

// Val is a TAC operand: a constant or a variable/temporary.
type Val interface {
	val()
	String() string
}

// Constant is a typed integer constant operand.
type Constant struct {
	Value ctypes.Const
}

// Var names a TAC variable: a renamed source local, a compiler temporary,
// or a static object.
type Var struct {
	Name string
}

func (Constant) val() {}
func (Var) val()      {}

func (c Constant) String() string { return c.Value.String() }
func (v Var) String() string      { return v.Name }

// UnaryOp enumerates TAC unary operators.
type UnaryOp int

const (
	Negate UnaryOp = iota
	Complement
	Not
)

var unaryNames = [...]string{Negate: "neg", Complement: "not", Not: "lnot"}

func (op UnaryOp) String() string { return unaryNames[op] }

// BinaryOp enumerates TAC binary operators. The relational operators yield
// an int 0/1 result.
type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Remainder
	BitAnd
	BitOr
	BitXor
	ShiftLeft
	ShiftRight
	Equal
	NotEqual
	LessThan
	LessOrEqual
	GreaterThan
	GreaterOrEqual
)

var binaryNames = [...]string{
	Add: "add", Subtract: "sub", Multiply: "mul", Divide: "div", Remainder: "rem",
	BitAnd: "and", BitOr: "or", BitXor: "xor", ShiftLeft: "shl", ShiftRight: "shr",
	Equal: "eq", NotEqual: "ne", LessThan: "lt", LessOrEqual: "le",
	GreaterThan: "gt", GreaterOrEqual: "ge",
}

func (op BinaryOp) String() string { return binaryNames[op] }

// IsRelational reports whether op compares its operands rather than
// computing with them.
func (op BinaryOp) IsRelational() bool {
	return op >= Equal
}

// Instruction is one TAC instruction.
type Instruction interface {
	instruction()
	String() string
}

// Return transfers v to the caller.
type Return struct {
	Val Val
}

// SignExtend widens a 32-bit value to 64 bits replicating the sign bit.
type SignExtend struct {
	Src, Dst Val
}

// ZeroExtend widens a 32-bit value to 64 bits filling with zeros.
type ZeroExtend struct {
	Src, Dst Val
}

// Truncate narrows a 64-bit value to its low 32 bits.
type Truncate struct {
	Src, Dst Val
}

// Unary computes Dst = Op Src.
type Unary struct {
	Op  UnaryOp
	Src Val
	Dst Val
}

// Binary computes Dst = Src1 Op Src2.
type Binary struct {
	Op   BinaryOp
	Src1 Val
	Src2 Val
	Dst  Val
}

// Copy moves Src into Dst.
type Copy struct {
	Src, Dst Val
}

// Jump unconditionally continues at Target.
type Jump struct {
	Target string
}

// JumpIfZero jumps to Target when Cond is zero.
type JumpIfZero struct {
	Cond   Val
	Target string
}

// JumpIfNotZero jumps to Target when Cond is nonzero.
type JumpIfNotZero struct {
	Cond   Val
	Target string
}

// Label marks a jump target.
type Label struct {
	Name string
}

// FunCall invokes Name with Args and stores the result in Dst.
type FunCall struct {
	Name string
	Args []Val
	Dst  Val
}

func (*Return) instruction()        {}
func (*SignExtend) instruction()    {}
func (*ZeroExtend) instruction()    {}
func (*Truncate) instruction()      {}
func (*Unary) instruction()         {}
func (*Binary) instruction()        {}
func (*Copy) instruction()          {}
func (*Jump) instruction()          {}
func (*JumpIfZero) instruction()    {}
func (*JumpIfNotZero) instruction() {}
func (*Label) instruction()         {}
func (*FunCall) instruction()       {}

func (i *Return) String() string     { return fmt.Sprintf("ret %s", i.Val) }
func (i *SignExtend) String() string { return fmt.Sprintf("%s = sext %s", i.Dst, i.Src) }
func (i *ZeroExtend) String() string { return fmt.Sprintf("%s = zext %s", i.Dst, i.Src) }
func (i *Truncate) String() string   { return fmt.Sprintf("%s = trunc %s", i.Dst, i.Src) }
func (i *Unary) String() string      { return fmt.Sprintf("%s = %s %s", i.Dst, i.Op, i.Src) }
func (i *Binary) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.Src1, i.Src2)
}
func (i *Copy) String() string       { return fmt.Sprintf("%s = %s", i.Dst, i.Src) }
func (i *Jump) String() string       { return fmt.Sprintf("jmp %s", i.Target) }
func (i *JumpIfZero) String() string { return fmt.Sprintf("jz %s, %s", i.Cond, i.Target) }
func (i *JumpIfNotZero) String() string {
	return fmt.Sprintf("jnz %s, %s", i.Cond, i.Target)
}
func (i *Label) String() string { return i.Name + ":" }
func (i *FunCall) String() string {
	parts := make([]string, len(i.Args))
	for n, a := range i.Args {
		parts[n] = a.String()
	}
	return fmt.Sprintf("%s = call %s(%s)", i.Dst, i.Name, strings.Join(parts, ", "))
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, tl := range p.TopLevel {
		sb.WriteString(tl.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
