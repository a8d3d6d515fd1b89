package compiler

import (
	"mcc/pkg/ctypes"
)

// Typecheck is the third semantic pass: it assigns a type to every
// expression, inserts explicit Cast nodes at every implicit conversion
// point, and builds the symbol table that the TAC generator and the backend
// consume. Returns a new tree plus the table.
func Typecheck(prog *Program) (*Program, *ctypes.Symbols, error) {
	c := &checker{syms: ctypes.NewSymbols()}
	out := &Program{Decls: make([]Decl, len(prog.Decls))}
	for i, decl := range prog.Decls {
		switch d := decl.(type) {
		case *FuncDecl:
			fn, err := c.checkFuncDecl(d)
			if err != nil {
				return nil, nil, err
			}
			out.Decls[i] = fn
		case *VarDecl:
			vd, err := c.checkFileScopeVar(d)
			if err != nil {
				return nil, nil, err
			}
			out.Decls[i] = vd
		}
	}
	return out, c.syms, nil
}

type checker struct {
	syms *ctypes.Symbols
	// return type of the function currently being checked
	returnType ctypes.Type
}

// convertTo wraps e in a Cast to t unless e already has that exact type, so
// repeated conversion to the same type never stacks redundant casts.
func convertTo(e Expr, t ctypes.Type) Expr {
	if e.ExprType().Equal(t) {
		return e
	}
	return &Cast{Target: t, Expr: e, Type: t}
}

// evalConstant evaluates the compile-time-constant initializer forms the
// subset permits: a literal, a cast of one, or a (possibly nested) - or ~
// applied to one. Anything else reports !ok.
func evalConstant(e Expr) (ctypes.Const, bool) {
	switch n := e.(type) {
	case *Constant:
		return n.Value, true
	case *Cast:
		inner, ok := evalConstant(n.Expr)
		if !ok {
			return ctypes.Const{}, false
		}
		return inner.Convert(n.Target), true
	case *Unary:
		inner, ok := evalConstant(n.Expr)
		if !ok {
			return ctypes.Const{}, false
		}
		switch n.Op {
		case MINUS:
			return ctypes.IntConst(inner.Type, -inner.Int64()), true
		case TILDE:
			return ctypes.UIntConst(inner.Type, ^inner.Uint64()), true
		}
	}
	return ctypes.Const{}, false
}

//  Declarations

func (c *checker) checkFileScopeVar(d *VarDecl) (*VarDecl, error) {
	init := ctypes.StaticInit{Kind: ctypes.Tentative}
	if d.Init != nil {
		value, ok := evalConstant(d.Init)
		if !ok {
			return nil, typeErrorf("non-constant initializer for file-scope variable %q", d.Name)
		}
		init = ctypes.StaticInit{Kind: ctypes.Initial, Value: value.Convert(d.Type)}
	} else if d.Storage == ExternStorage {
		init = ctypes.StaticInit{Kind: ctypes.NoInitializer}
	}
	global := d.Storage != StaticStorage

	if prev, ok := c.syms.Lookup(d.Name); ok {
		if !prev.Type.Equal(d.Type) {
			return nil, &ConflictingTypeError{Name: d.Name, Prev: prev.Type.String(), Decl: d.Type.String()}
		}
		if d.Storage == ExternStorage {
			global = prev.Attrs.Global
		} else if prev.Attrs.Global != global {
			return nil, typeErrorf("conflicting linkage for variable %q", d.Name)
		}
		if prev.Attrs.Init.Kind == ctypes.Initial {
			if init.Kind == ctypes.Initial {
				return nil, typeErrorf("conflicting file-scope definitions of %q", d.Name)
			}
			init = prev.Attrs.Init
		} else if init.Kind != ctypes.Initial && prev.Attrs.Init.Kind == ctypes.Tentative {
			init = ctypes.StaticInit{Kind: ctypes.Tentative}
		}
	}

	c.syms.Define(d.Name, ctypes.Symbol{
		Type:  d.Type,
		Attrs: ctypes.Attrs{Kind: ctypes.StaticAttr, Init: init, Global: global},
	})
	return d, nil
}

func (c *checker) checkLocalVarDecl(d *VarDecl) (*VarDecl, error) {
	switch d.Storage {
	case ExternStorage:
		if d.Init != nil {
			return nil, typeErrorf("initializer on local extern declaration of %q", d.Name)
		}
		if prev, ok := c.syms.Lookup(d.Name); ok {
			if !prev.Type.Equal(d.Type) {
				return nil, &ConflictingTypeError{Name: d.Name, Prev: prev.Type.String(), Decl: d.Type.String()}
			}
			// An existing symbol already covers this extern declaration.
			return d, nil
		}
		c.syms.Define(d.Name, ctypes.Symbol{
			Type: d.Type,
			Attrs: ctypes.Attrs{
				Kind:   ctypes.StaticAttr,
				Init:   ctypes.StaticInit{Kind: ctypes.NoInitializer},
				Global: true,
			},
		})
		return d, nil

	case StaticStorage:
		// A local static without an initializer starts at zero.
		init := ctypes.StaticInit{Kind: ctypes.Initial, Value: ctypes.IntConst(d.Type, 0)}
		if d.Init != nil {
			value, ok := evalConstant(d.Init)
			if !ok {
				return nil, typeErrorf("non-constant initializer for local static variable %q", d.Name)
			}
			init.Value = value.Convert(d.Type)
		}
		c.syms.Define(d.Name, ctypes.Symbol{
			Type:  d.Type,
			Attrs: ctypes.Attrs{Kind: ctypes.StaticAttr, Init: init, Global: false},
		})
		return d, nil

	default:
		c.syms.Define(d.Name, ctypes.Symbol{
			Type:  d.Type,
			Attrs: ctypes.Attrs{Kind: ctypes.LocalAttr},
		})
		out := *d
		if d.Init != nil {
			init, err := c.checkExpr(d.Init)
			if err != nil {
				return nil, err
			}
			out.Init = convertTo(init, d.Type)
		}
		return &out, nil
	}
}

func (c *checker) checkFuncDecl(d *FuncDecl) (*FuncDecl, error) {
	hasBody := d.Body != nil
	defined := hasBody
	global := d.Storage != StaticStorage

	if prev, ok := c.syms.Lookup(d.Name); ok {
		if prev.Attrs.Kind != ctypes.FunAttr || !prev.Type.Equal(d.Type) {
			return nil, &ConflictingTypeError{Name: d.Name, Prev: prev.Type.String(), Decl: d.Type.String()}
		}
		if prev.Attrs.Defined && hasBody {
			return nil, &DuplicateDefinitionError{Name: d.Name}
		}
		if prev.Attrs.Global && d.Storage == StaticStorage {
			return nil, typeErrorf("static declaration of %q follows non-static declaration", d.Name)
		}
		defined = defined || prev.Attrs.Defined
		global = prev.Attrs.Global
	}
	c.syms.Define(d.Name, ctypes.Symbol{
		Type:  d.Type,
		Attrs: ctypes.Attrs{Kind: ctypes.FunAttr, Defined: defined, Global: global},
	})

	out := *d
	if hasBody {
		for i, param := range d.Params {
			c.syms.Define(param, ctypes.Symbol{
				Type:  d.Type.Params[i],
				Attrs: ctypes.Attrs{Kind: ctypes.LocalAttr},
			})
		}
		c.returnType = *d.Type.Ret
		body, err := c.checkStmt(d.Body)
		if err != nil {
			return nil, err
		}
		out.Body = body.(*CompoundStmt)
	}
	return &out, nil
}

//  Statements

func (c *checker) checkStmt(s Stmt) (Stmt, error) {
	switch n := s.(type) {
	case *ReturnStmt:
		expr, err := c.checkExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Expr: convertTo(expr, c.returnType)}, nil

	case *ExprStmt:
		expr, err := c.checkExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr}, nil

	case *NullStmt:
		return n, nil

	case *IfStmt:
		cond, err := c.checkExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.checkStmt(n.Then)
		if err != nil {
			return nil, err
		}
		var els Stmt
		if n.Else != nil {
			if els, err = c.checkStmt(n.Else); err != nil {
				return nil, err
			}
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}, nil

	case *CompoundStmt:
		out := &CompoundStmt{Items: make([]Stmt, len(n.Items))}
		for i, item := range n.Items {
			checked, err := c.checkBlockItem(item)
			if err != nil {
				return nil, err
			}
			out.Items[i] = checked
		}
		return out, nil

	case *WhileStmt:
		cond, err := c.checkExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := c.checkStmt(n.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body, Label: n.Label}, nil

	case *DoWhileStmt:
		body, err := c.checkStmt(n.Body)
		if err != nil {
			return nil, err
		}
		cond, err := c.checkExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		return &DoWhileStmt{Body: body, Cond: cond, Label: n.Label}, nil

	case *ForStmt:
		out := &ForStmt{Label: n.Label}
		if n.Init != nil {
			init, err := c.checkBlockItem(n.Init)
			if err != nil {
				return nil, err
			}
			if vd, ok := init.(*VarDecl); ok && vd.Storage != NoStorage {
				return nil, typeErrorf("storage class on for-loop initializer declaration of %q", vd.Name)
			}
			out.Init = init
		}
		var err error
		if n.Cond != nil {
			if out.Cond, err = c.checkExpr(n.Cond); err != nil {
				return nil, err
			}
		}
		if n.Post != nil {
			if out.Post, err = c.checkExpr(n.Post); err != nil {
				return nil, err
			}
		}
		if out.Body, err = c.checkStmt(n.Body); err != nil {
			return nil, err
		}
		return out, nil

	case *BreakStmt, *ContinueStmt:
		return n, nil

	default:
		return nil, typeErrorf("unhandled statement %T in typecheck", s)
	}
}

func (c *checker) checkBlockItem(item Stmt) (Stmt, error) {
	switch d := item.(type) {
	case *VarDecl:
		return c.checkLocalVarDecl(d)
	case *FuncDecl:
		return c.checkFuncDecl(d)
	default:
		return c.checkStmt(item)
	}
}

//  Expressions

func (c *checker) checkExpr(e Expr) (Expr, error) {
	switch n := e.(type) {
	case *Constant:
		return &Constant{Value: n.Value, Type: n.Value.Type}, nil

	case *Var:
		sym, ok := c.syms.Lookup(n.Name)
		if !ok {
			return nil, &UndeclaredVariableError{Name: n.Name}
		}
		if sym.Type.Kind == ctypes.Fun {
			return nil, typeErrorf("function %q used as a variable", n.Name)
		}
		return &Var{Name: n.Name, Type: sym.Type}, nil

	case *Cast:
		inner, err := c.checkExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		return &Cast{Target: n.Target, Expr: inner, Type: n.Target}, nil

	case *Unary:
		inner, err := c.checkExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		// ! produces an int truth value; - and ~ keep the operand type.
		typ := inner.ExprType()
		if n.Op == NOT {
			typ = ctypes.IntType
		}
		return &Unary{Op: n.Op, Expr: inner, Type: typ}, nil

	case *Binary:
		left, err := c.checkExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.checkExpr(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case AND_LOGICAL, OR_LOGICAL:
			// Short-circuit operators test each operand on its own;
			// no conversion between them is needed.
			return &Binary{Op: n.Op, Left: left, Right: right, Type: ctypes.IntType}, nil
		case SHL_OP, SHR_OP:
			// Shifts take the type of the shifted operand, not a common type.
			return &Binary{Op: n.Op, Left: left, Right: right, Type: left.ExprType()}, nil
		}
		common := ctypes.Common(left.ExprType(), right.ExprType())
		left = convertTo(left, common)
		right = convertTo(right, common)
		typ := common
		switch n.Op {
		case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
			typ = ctypes.IntType
		}
		return &Binary{Op: n.Op, Left: left, Right: right, Type: typ}, nil

	case *Assignment:
		left, err := c.checkExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.checkExpr(n.Right)
		if err != nil {
			return nil, err
		}
		target := left.ExprType()
		return &Assignment{Left: left, Right: convertTo(right, target), Type: target}, nil

	case *FunctionCall:
		sym, ok := c.syms.Lookup(n.Name)
		if !ok {
			return nil, &UndeclaredFunctionError{Name: n.Name}
		}
		if sym.Type.Kind != ctypes.Fun {
			return nil, typeErrorf("variable %q used as a function", n.Name)
		}
		if len(n.Args) != len(sym.Type.Params) {
			return nil, typeErrorf("function %q called with %d arguments, expected %d",
				n.Name, len(n.Args), len(sym.Type.Params))
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			arg, err := c.checkExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = convertTo(arg, sym.Type.Params[i])
		}
		return &FunctionCall{Name: n.Name, Args: args, Type: *sym.Type.Ret}, nil

	default:
		return nil, typeErrorf("unhandled expression %T in typecheck", e)
	}
}
