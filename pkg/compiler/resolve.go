package compiler

import "fmt"

// Resolve is the first semantic pass: it renames every local variable to a
// globally-unique internal name and checks scope rules. It returns a new
// tree; the input is not modified.
//
// Identifiers with linkage (functions, file-scope variables, block-scope
// extern declarations) keep their source names; everything else becomes
// "name.N" for a monotonically increasing N.
func Resolve(prog *Program) (*Program, error) {
	r := &resolver{idents: make(identMap)}
	out := &Program{}
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *FuncDecl:
			fn, err := r.resolveFuncDecl(d, true)
			if err != nil {
				return nil, err
			}
			out.Decls = append(out.Decls, fn)
		case *VarDecl:
			vd, err := r.resolveFileScopeVar(d)
			if err != nil {
				return nil, err
			}
			out.Decls = append(out.Decls, vd)
		}
	}
	return out, nil
}

type resolver struct {
	counter int
	idents  identMap
}

// identEntry records what a source name currently resolves to.
type identEntry struct {
	uniqueName       string
	fromCurrentScope bool
	hasLinkage       bool
}

type identMap map[string]identEntry

// enterScope returns a copy of the map with every entry demoted to "from an
// outer scope", so redeclaration in the new scope is legal shadowing.
func (m identMap) enterScope() identMap {
	inner := make(identMap, len(m))
	for name, e := range m {
		e.fromCurrentScope = false
		inner[name] = e
	}
	return inner
}

// uniqueName mints a fresh internal name for a local.
func (r *resolver) uniqueName(base string) string {
	name := fmt.Sprintf("%s.%d", base, r.counter)
	r.counter++
	return name
}

func (r *resolver) resolveFileScopeVar(d *VarDecl) (*VarDecl, error) {
	r.idents[d.Name] = identEntry{uniqueName: d.Name, fromCurrentScope: true, hasLinkage: true}
	// The initializer of a file-scope variable must be constant, which the
	// typechecker enforces; names inside it still resolve normally.
	out := *d
	if d.Init != nil {
		init, err := r.resolveExpr(d.Init, r.idents)
		if err != nil {
			return nil, err
		}
		out.Init = init
	}
	return &out, nil
}

func (r *resolver) resolveFuncDecl(d *FuncDecl, topLevel bool) (*FuncDecl, error) {
	if prev, ok := r.idents[d.Name]; ok && prev.fromCurrentScope && !prev.hasLinkage {
		return nil, &DuplicateDeclarationError{Name: d.Name}
	}
	if !topLevel {
		if d.Body != nil {
			return nil, &NestedFunctionDefinitionError{Name: d.Name}
		}
		if d.Storage == StaticStorage {
			return nil, typeErrorf("invalid storage class for block-scope declaration of function %q", d.Name)
		}
	}
	r.idents[d.Name] = identEntry{uniqueName: d.Name, fromCurrentScope: true, hasLinkage: true}

	out := *d
	inner := r.idents.enterScope()
	out.Params = make([]string, len(d.Params))
	for i, param := range d.Params {
		if prev, ok := inner[param]; ok && prev.fromCurrentScope {
			return nil, &DuplicateDeclarationError{Name: param}
		}
		unique := r.uniqueName(param)
		inner[param] = identEntry{uniqueName: unique, fromCurrentScope: true}
		out.Params[i] = unique
	}
	if d.Body != nil {
		body, err := r.resolveBlock(d.Body, inner)
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return &out, nil
}

// resolveBlock resolves the items of a block whose scope map is idents.
// The caller decides whether idents is a fresh scope.
func (r *resolver) resolveBlock(block *CompoundStmt, idents identMap) (*CompoundStmt, error) {
	out := &CompoundStmt{Items: make([]Stmt, len(block.Items))}
	for i, item := range block.Items {
		resolved, err := r.resolveBlockItem(item, idents)
		if err != nil {
			return nil, err
		}
		out.Items[i] = resolved
	}
	return out, nil
}

func (r *resolver) resolveBlockItem(item Stmt, idents identMap) (Stmt, error) {
	switch d := item.(type) {
	case *VarDecl:
		return r.resolveLocalVarDecl(d, idents)
	case *FuncDecl:
		saved := r.idents
		r.idents = idents
		fn, err := r.resolveFuncDecl(d, false)
		r.idents = saved
		return fn, err
	default:
		return r.resolveStmt(item, idents)
	}
}

func (r *resolver) resolveLocalVarDecl(d *VarDecl, idents identMap) (*VarDecl, error) {
	if prev, ok := idents[d.Name]; ok && prev.fromCurrentScope {
		// Two extern declarations of the same name may coexist.
		if !(prev.hasLinkage && d.Storage == ExternStorage) {
			return nil, &DuplicateDeclarationError{Name: d.Name}
		}
	}
	out := *d
	if d.Storage == ExternStorage {
		idents[d.Name] = identEntry{uniqueName: d.Name, fromCurrentScope: true, hasLinkage: true}
	} else {
		unique := r.uniqueName(d.Name)
		idents[d.Name] = identEntry{uniqueName: unique, fromCurrentScope: true}
		out.Name = unique
	}
	if d.Init != nil {
		init, err := r.resolveExpr(d.Init, idents)
		if err != nil {
			return nil, err
		}
		out.Init = init
	}
	return &out, nil
}

func (r *resolver) resolveStmt(s Stmt, idents identMap) (Stmt, error) {
	switch n := s.(type) {
	case *ReturnStmt:
		expr, err := r.resolveExpr(n.Expr, idents)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Expr: expr}, nil

	case *ExprStmt:
		expr, err := r.resolveExpr(n.Expr, idents)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr}, nil

	case *NullStmt:
		return n, nil

	case *IfStmt:
		cond, err := r.resolveExpr(n.Cond, idents)
		if err != nil {
			return nil, err
		}
		then, err := r.resolveStmt(n.Then, idents)
		if err != nil {
			return nil, err
		}
		var els Stmt
		if n.Else != nil {
			if els, err = r.resolveStmt(n.Else, idents); err != nil {
				return nil, err
			}
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}, nil

	case *CompoundStmt:
		return r.resolveBlock(n, idents.enterScope())

	case *WhileStmt:
		cond, err := r.resolveExpr(n.Cond, idents)
		if err != nil {
			return nil, err
		}
		body, err := r.resolveStmt(n.Body, idents)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil

	case *DoWhileStmt:
		body, err := r.resolveStmt(n.Body, idents)
		if err != nil {
			return nil, err
		}
		cond, err := r.resolveExpr(n.Cond, idents)
		if err != nil {
			return nil, err
		}
		return &DoWhileStmt{Body: body, Cond: cond}, nil

	case *ForStmt:
		// The for header introduces its own scope around init, cond, post
		// and the body.
		header := idents.enterScope()
		out := &ForStmt{}
		if n.Init != nil {
			init, err := r.resolveBlockItem(n.Init, header)
			if err != nil {
				return nil, err
			}
			out.Init = init
		}
		var err error
		if n.Cond != nil {
			if out.Cond, err = r.resolveExpr(n.Cond, header); err != nil {
				return nil, err
			}
		}
		if n.Post != nil {
			if out.Post, err = r.resolveExpr(n.Post, header); err != nil {
				return nil, err
			}
		}
		if out.Body, err = r.resolveStmt(n.Body, header); err != nil {
			return nil, err
		}
		return out, nil

	case *BreakStmt:
		return &BreakStmt{}, nil

	case *ContinueStmt:
		return &ContinueStmt{}, nil

	default:
		return nil, typeErrorf("unhandled statement %T in resolve", s)
	}
}

func (r *resolver) resolveExpr(e Expr, idents identMap) (Expr, error) {
	switch n := e.(type) {
	case *Constant:
		return n, nil

	case *Var:
		entry, ok := idents[n.Name]
		if !ok {
			return nil, &UndeclaredVariableError{Name: n.Name}
		}
		return &Var{Name: entry.uniqueName}, nil

	case *Cast:
		inner, err := r.resolveExpr(n.Expr, idents)
		if err != nil {
			return nil, err
		}
		return &Cast{Target: n.Target, Expr: inner}, nil

	case *Unary:
		inner, err := r.resolveExpr(n.Expr, idents)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: n.Op, Expr: inner}, nil

	case *Binary:
		left, err := r.resolveExpr(n.Left, idents)
		if err != nil {
			return nil, err
		}
		right, err := r.resolveExpr(n.Right, idents)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: n.Op, Left: left, Right: right}, nil

	case *Assignment:
		if _, ok := n.Left.(*Var); !ok {
			return nil, typeErrorf("invalid lvalue %s", n.Left)
		}
		left, err := r.resolveExpr(n.Left, idents)
		if err != nil {
			return nil, err
		}
		right, err := r.resolveExpr(n.Right, idents)
		if err != nil {
			return nil, err
		}
		return &Assignment{Left: left, Right: right}, nil

	case *FunctionCall:
		entry, ok := idents[n.Name]
		if !ok {
			return nil, &UndeclaredFunctionError{Name: n.Name}
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			arg, err := r.resolveExpr(a, idents)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return &FunctionCall{Name: entry.uniqueName, Args: args}, nil

	default:
		return nil, typeErrorf("unhandled expression %T in resolve", e)
	}
}
