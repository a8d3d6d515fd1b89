package tacky

import (
	"fmt"

	"mcc/pkg/compiler"
	"mcc/pkg/ctypes"
)

// Generate lowers a validated, typed AST into TAC. Temporaries it creates
// are registered in syms with their type, and the symbol table's static
// objects are materialized as top-level StaticVariable definitions.
func Generate(prog *compiler.Program, syms *ctypes.Symbols) (*Program, error) {
	g := &generator{syms: syms}
	out := &Program{}

	// Static objects live in the symbol table, whether they came from
	// file scope or from local static declarations. Tentative definitions
	// become zero-initialized. They go first so the data section precedes
	// the text section in the final assembly.
	for _, name := range syms.Names() {
		sym, _ := syms.Lookup(name)
		if sym.Attrs.Kind != ctypes.StaticAttr {
			continue
		}
		switch sym.Attrs.Init.Kind {
		case ctypes.Initial:
			out.TopLevel = append(out.TopLevel, &StaticVariable{
				Name:   name,
				Global: sym.Attrs.Global,
				Type:   sym.Type,
				Init:   sym.Attrs.Init.Value,
			})
		case ctypes.Tentative:
			out.TopLevel = append(out.TopLevel, &StaticVariable{
				Name:   name,
				Global: sym.Attrs.Global,
				Type:   sym.Type,
				Init:   ctypes.IntConst(sym.Type, 0),
			})
		}
	}

	for _, decl := range prog.Decls {
		fn, ok := decl.(*compiler.FuncDecl)
		if !ok || fn.Body == nil {
			continue // declarations and file-scope variables produce no code here
		}
		lowered, err := g.genFunction(fn)
		if err != nil {
			return nil, err
		}
		out.TopLevel = append(out.TopLevel, lowered)
	}
	return out, nil
}

// ValType resolves the type of a TAC operand: constants carry their own,
// variables are looked up in the symbol table.
func ValType(v Val, syms *ctypes.Symbols) (ctypes.Type, error) {
	switch n := v.(type) {
	case Constant:
		return n.Value.Type, nil
	case Var:
		sym, ok := syms.Lookup(n.Name)
		if !ok {
			return ctypes.Type{}, ctypes.Internalf("TAC variable %q has no symbol entry", n.Name)
		}
		return sym.Type, nil
	}
	return ctypes.Type{}, ctypes.Internalf("unknown TAC value %T", v)
}

type generator struct {
	syms         *ctypes.Symbols
	instrs       []Instruction
	tempCounter  int
	labelCounter int
}

// newTemp allocates a fresh temporary of type t and records it in the
// symbol table so every later pass can recover its width.
func (g *generator) newTemp(t ctypes.Type) Var {
	name := fmt.Sprintf("tmp.%d", g.tempCounter)
	g.tempCounter++
	g.syms.Define(name, ctypes.Symbol{Type: t, Attrs: ctypes.Attrs{Kind: ctypes.LocalAttr}})
	return Var{Name: name}
}

// newLabel mints a unique label with a readable prefix.
func (g *generator) newLabel(prefix string) string {
	label := fmt.Sprintf("%s.%d", prefix, g.labelCounter)
	g.labelCounter++
	return label
}

func (g *generator) emit(inst Instruction) {
	g.instrs = append(g.instrs, inst)
}

func (g *generator) genFunction(fn *compiler.FuncDecl) (*Function, error) {
	g.instrs = nil
	for _, item := range fn.Body.Items {
		if err := g.genStmt(item); err != nil {
			return nil, err
		}
	}
	// A function falling off its end returns zero; for main this is
	// required, for others it is harmless because the value is unused.
	g.emit(&Return{Val: Constant{Value: ctypes.IntConst(ctypes.IntType, 0)}})

	sym, _ := g.syms.Lookup(fn.Name)
	return &Function{
		Name:   fn.Name,
		Global: sym.Attrs.Global,
		Params: fn.Params,
		Body:   g.instrs,
	}, nil
}

//  Statements

func breakLabel(loop string) string    { return "break_" + loop }
func continueLabel(loop string) string { return "continue_" + loop }

func (g *generator) genStmt(s compiler.Stmt) error {
	switch n := s.(type) {
	case *compiler.ReturnStmt:
		v, err := g.genExpr(n.Expr)
		if err != nil {
			return err
		}
		g.emit(&Return{Val: v})
		return nil

	case *compiler.ExprStmt:
		_, err := g.genExpr(n.Expr)
		return err

	case *compiler.NullStmt:
		return nil

	case *compiler.IfStmt:
		cond, err := g.genExpr(n.Cond)
		if err != nil {
			return err
		}
		if n.Else == nil {
			end := g.newLabel("if_end")
			g.emit(&JumpIfZero{Cond: cond, Target: end})
			if err := g.genStmt(n.Then); err != nil {
				return err
			}
			g.emit(&Label{Name: end})
			return nil
		}
		elseLabel := g.newLabel("if_else")
		end := g.newLabel("if_end")
		g.emit(&JumpIfZero{Cond: cond, Target: elseLabel})
		if err := g.genStmt(n.Then); err != nil {
			return err
		}
		g.emit(&Jump{Target: end})
		g.emit(&Label{Name: elseLabel})
		if err := g.genStmt(n.Else); err != nil {
			return err
		}
		g.emit(&Label{Name: end})
		return nil

	case *compiler.CompoundStmt:
		for _, item := range n.Items {
			if err := g.genStmt(item); err != nil {
				return err
			}
		}
		return nil

	case *compiler.WhileStmt:
		g.emit(&Label{Name: continueLabel(n.Label)})
		cond, err := g.genExpr(n.Cond)
		if err != nil {
			return err
		}
		g.emit(&JumpIfZero{Cond: cond, Target: breakLabel(n.Label)})
		if err := g.genStmt(n.Body); err != nil {
			return err
		}
		g.emit(&Jump{Target: continueLabel(n.Label)})
		g.emit(&Label{Name: breakLabel(n.Label)})
		return nil

	case *compiler.DoWhileStmt:
		start := g.newLabel("do_start")
		g.emit(&Label{Name: start})
		if err := g.genStmt(n.Body); err != nil {
			return err
		}
		g.emit(&Label{Name: continueLabel(n.Label)})
		cond, err := g.genExpr(n.Cond)
		if err != nil {
			return err
		}
		g.emit(&JumpIfNotZero{Cond: cond, Target: start})
		g.emit(&Label{Name: breakLabel(n.Label)})
		return nil

	case *compiler.ForStmt:
		if n.Init != nil {
			if err := g.genStmt(n.Init); err != nil {
				return err
			}
		}
		start := g.newLabel("for_start")
		g.emit(&Label{Name: start})
		if n.Cond != nil {
			cond, err := g.genExpr(n.Cond)
			if err != nil {
				return err
			}
			g.emit(&JumpIfZero{Cond: cond, Target: breakLabel(n.Label)})
		}
		if err := g.genStmt(n.Body); err != nil {
			return err
		}
		g.emit(&Label{Name: continueLabel(n.Label)})
		if n.Post != nil {
			if _, err := g.genExpr(n.Post); err != nil {
				return err
			}
		}
		g.emit(&Jump{Target: start})
		g.emit(&Label{Name: breakLabel(n.Label)})
		return nil

	case *compiler.BreakStmt:
		g.emit(&Jump{Target: breakLabel(n.Label)})
		return nil

	case *compiler.ContinueStmt:
		g.emit(&Jump{Target: continueLabel(n.Label)})
		return nil

	case *compiler.VarDecl:
		// Statics were materialized from the symbol table; extern locals
		// refer to objects defined elsewhere. Only automatic variables
		// with an initializer produce code.
		if n.Storage != compiler.NoStorage || n.Init == nil {
			return nil
		}
		v, err := g.genExpr(n.Init)
		if err != nil {
			return err
		}
		g.emit(&Copy{Src: v, Dst: Var{Name: n.Name}})
		return nil

	case *compiler.FuncDecl:
		// Block-scope function declarations carry no body.
		return nil

	default:
		return ctypes.Internalf("unhandled statement %T in TAC generation", s)
	}
}

//  Expressions

var unaryOps = map[compiler.TokenType]UnaryOp{
	compiler.MINUS: Negate,
	compiler.TILDE: Complement,
	compiler.NOT:   Not,
}

var binaryOps = map[compiler.TokenType]BinaryOp{
	compiler.PLUS:       Add,
	compiler.MINUS:      Subtract,
	compiler.STAR:       Multiply,
	compiler.SLASH:      Divide,
	compiler.PERCENT:    Remainder,
	compiler.AND:        BitAnd,
	compiler.PIPE:       BitOr,
	compiler.CARET:      BitXor,
	compiler.SHL_OP:     ShiftLeft,
	compiler.SHR_OP:     ShiftRight,
	compiler.EQUALS:     Equal,
	compiler.NOT_EQ:     NotEqual,
	compiler.LESS:       LessThan,
	compiler.LESS_EQ:    LessOrEqual,
	compiler.GREATER:    GreaterThan,
	compiler.GREATER_EQ: GreaterOrEqual,
}

// genExpr lowers one expression, returning the Val that holds its result.
// Sub-expression instructions are appended in evaluation order.
func (g *generator) genExpr(e compiler.Expr) (Val, error) {
	switch n := e.(type) {
	case *compiler.Constant:
		return Constant{Value: n.Value}, nil

	case *compiler.Var:
		return Var{Name: n.Name}, nil

	case *compiler.Cast:
		return g.genCast(n)

	case *compiler.Unary:
		src, err := g.genExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		op, ok := unaryOps[n.Op]
		if !ok {
			return nil, ctypes.Internalf("unhandled unary operator %s", n.Op)
		}
		dst := g.newTemp(n.Type)
		g.emit(&Unary{Op: op, Src: src, Dst: dst})
		return dst, nil

	case *compiler.Binary:
		switch n.Op {
		case compiler.AND_LOGICAL:
			return g.genAnd(n)
		case compiler.OR_LOGICAL:
			return g.genOr(n)
		}
		src1, err := g.genExpr(n.Left)
		if err != nil {
			return nil, err
		}
		src2, err := g.genExpr(n.Right)
		if err != nil {
			return nil, err
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, ctypes.Internalf("unhandled binary operator %s", n.Op)
		}
		dst := g.newTemp(n.Type)
		g.emit(&Binary{Op: op, Src1: src1, Src2: src2, Dst: dst})
		return dst, nil

	case *compiler.Assignment:
		target, ok := n.Left.(*compiler.Var)
		if !ok {
			return nil, ctypes.Internalf("assignment target %T survived validation", n.Left)
		}
		v, err := g.genExpr(n.Right)
		if err != nil {
			return nil, err
		}
		dst := Var{Name: target.Name}
		g.emit(&Copy{Src: v, Dst: dst})
		return dst, nil

	case *compiler.FunctionCall:
		args := make([]Val, len(n.Args))
		for i, a := range n.Args {
			v, err := g.genExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		dst := g.newTemp(n.Type)
		g.emit(&FunCall{Name: n.Name, Args: args, Dst: dst})
		return dst, nil

	default:
		return nil, ctypes.Internalf("unhandled expression %T in TAC generation", e)
	}
}

// genCast lowers a type conversion. Same width is a plain copy; narrowing
// truncates; widening sign- or zero-extends depending on the source type.
func (g *generator) genCast(n *compiler.Cast) (Val, error) {
	src, err := g.genExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	from := n.Expr.ExprType()
	if from.Equal(n.Target) {
		return src, nil
	}
	dst := g.newTemp(n.Target)
	switch {
	case from.Size() == n.Target.Size():
		g.emit(&Copy{Src: src, Dst: dst})
	case from.Size() > n.Target.Size():
		g.emit(&Truncate{Src: src, Dst: dst})
	case from.Signed():
		g.emit(&SignExtend{Src: src, Dst: dst})
	default:
		g.emit(&ZeroExtend{Src: src, Dst: dst})
	}
	return dst, nil
}

// genAnd lowers a && b with short-circuit evaluation: b is only evaluated
// when a is nonzero.
func (g *generator) genAnd(n *compiler.Binary) (Val, error) {
	falseLabel := g.newLabel("and_false")
	end := g.newLabel("and_end")
	dst := g.newTemp(n.Type)

	left, err := g.genExpr(n.Left)
	if err != nil {
		return nil, err
	}
	g.emit(&JumpIfZero{Cond: left, Target: falseLabel})
	right, err := g.genExpr(n.Right)
	if err != nil {
		return nil, err
	}
	g.emit(&JumpIfZero{Cond: right, Target: falseLabel})
	g.emit(&Copy{Src: Constant{Value: ctypes.IntConst(ctypes.IntType, 1)}, Dst: dst})
	g.emit(&Jump{Target: end})
	g.emit(&Label{Name: falseLabel})
	g.emit(&Copy{Src: Constant{Value: ctypes.IntConst(ctypes.IntType, 0)}, Dst: dst})
	g.emit(&Label{Name: end})
	return dst, nil
}

// genOr lowers a || b; b is only evaluated when a is zero.
func (g *generator) genOr(n *compiler.Binary) (Val, error) {
	trueLabel := g.newLabel("or_true")
	end := g.newLabel("or_end")
	dst := g.newTemp(n.Type)

	left, err := g.genExpr(n.Left)
	if err != nil {
		return nil, err
	}
	g.emit(&JumpIfNotZero{Cond: left, Target: trueLabel})
	right, err := g.genExpr(n.Right)
	if err != nil {
		return nil, err
	}
	g.emit(&JumpIfNotZero{Cond: right, Target: trueLabel})
	g.emit(&Copy{Src: Constant{Value: ctypes.IntConst(ctypes.IntType, 0)}, Dst: dst})
	g.emit(&Jump{Target: end})
	g.emit(&Label{Name: trueLabel})
	g.emit(&Copy{Src: Constant{Value: ctypes.IntConst(ctypes.IntType, 1)}, Dst: dst})
	g.emit(&Label{Name: end})
	return dst, nil
}
