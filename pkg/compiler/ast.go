package compiler

import (
	"fmt"
	"strings"

	"mcc/pkg/ctypes"
)

// Node is implemented by every AST node. Children returns the node's child
// nodes in source order, so that generic traversals never need per-node-kind
// dispatch tables.
type Node interface {
	String() string
	Children() []Node
}

// Walk visits n and its descendants in pre-order. If fn returns false the
// walk does not descend into that node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Dump renders n and its descendants as an indented tree, one node per
// line. Useful for inspecting the output of the parse and validate stages.
func Dump(n Node) string {
	var b strings.Builder
	var visit func(n Node, depth int)
	visit = func(n Node, depth int) {
		if n == nil {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.String())
		b.WriteByte('\n')
		for _, c := range n.Children() {
			visit(c, depth+1)
		}
	}
	visit(n, 0)
	return b.String()
}

// StorageClass is the optional static/extern specifier on a declaration.
type StorageClass int

const (
	NoStorage StorageClass = iota
	StaticStorage
	ExternStorage
)

func (sc StorageClass) String() string {
	switch sc {
	case StaticStorage:
		return "static"
	case ExternStorage:
		return "extern"
	}
	return ""
}

//  Expression nodes

// Expr is implemented by every node that produces a value. Type is zero
// until the typechecker rewrites the tree; after that every expression
// carries its resolved type.
type Expr interface {
	Node
	exprNode()
	ExprType() ctypes.Type
}

// Constant is an integer literal, already classified by value and suffix.
type Constant struct {
	Value ctypes.Const
	Type  ctypes.Type
}

func (*Constant) exprNode() {}
func (c *Constant) ExprType() ctypes.Type { return c.Type }
func (c *Constant) Children() []Node { return nil }
func (c *Constant) String() string { return c.Value.String() }

// Var is a read of a named variable.
type Var struct {
	Name string
	Type ctypes.Type
}

func (*Var) exprNode() {}
func (v *Var) ExprType() ctypes.Type { return v.Type }
func (v *Var) Children() []Node { return nil }
func (v *Var) String() string { return v.Name }

// Cast converts Expr to Target. The parser produces explicit casts; the
// typechecker inserts implicit ones at promotion points.
type Cast struct {
	Target ctypes.Type
	Expr   Expr
	Type   ctypes.Type
}

func (*Cast) exprNode() {}
func (c *Cast) ExprType() ctypes.Type { return c.Type }
func (c *Cast) Children() []Node { return []Node{c.Expr} }
func (c *Cast) String() string { return fmt.Sprintf("(%s) %s", c.Target, c.Expr) }

// Unary represents Op Expr for -, ~ and !.
type Unary struct {
	Op   TokenType
	Expr Expr
	Type ctypes.Type
}

func (*Unary) exprNode() {}
func (u *Unary) ExprType() ctypes.Type { return u.Type }
func (u *Unary) Children() []Node { return []Node{u.Expr} }
func (u *Unary) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Expr) }

// Binary represents Left Op Right, including the short-circuit logical
// operators (distinguished by Op, not by node kind; lowering special-cases
// them).
type Binary struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Type  ctypes.Type
}

func (*Binary) exprNode() {}
func (b *Binary) ExprType() ctypes.Type { return b.Type }
func (b *Binary) Children() []Node { return []Node{b.Left, b.Right} }
func (b *Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// Assignment represents Left = Right as an expression.
type Assignment struct {
	Left  Expr
	Right Expr
	Type  ctypes.Type
}

func (*Assignment) exprNode() {}
func (a *Assignment) ExprType() ctypes.Type { return a.Type }
func (a *Assignment) Children() []Node { return []Node{a.Left, a.Right} }
func (a *Assignment) String() string { return fmt.Sprintf("(%s = %s)", a.Left, a.Right) }

// FunctionCall represents Name(Args).
type FunctionCall struct {
	Name string
	Args []Expr
	Type ctypes.Type
}

func (*FunctionCall) exprNode() {}
func (c *FunctionCall) ExprType() ctypes.Type { return c.Type }
func (c *FunctionCall) Children() []Node {
	kids := make([]Node, len(c.Args))
	for i, a := range c.Args {
		kids[i] = a
	}
	return kids
}
func (c *FunctionCall) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

//  Statement nodes

// Stmt is implemented by every node that does not produce a value.
// Declarations are statements too, so block bodies are plain []Stmt.
type Stmt interface {
	Node
	stmtNode()
}

// ReturnStmt represents  return expr;
type ReturnStmt struct {
	Expr Expr
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) Children() []Node { return []Node{r.Expr} }
func (r *ReturnStmt) String() string { return fmt.Sprintf("return %s;", r.Expr) }

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode() {}
func (e *ExprStmt) Children() []Node { return []Node{e.Expr} }
func (e *ExprStmt) String() string { return e.Expr.String() + ";" }

// NullStmt is a bare semicolon.
type NullStmt struct{}

func (*NullStmt) stmtNode() {}
func (*NullStmt) Children() []Node { return nil }
func (*NullStmt) String() string { return ";" }

// IfStmt represents if (cond) then [else els].
type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // may be nil
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) Children() []Node {
	kids := []Node{i.Cond, i.Then}
	if i.Else != nil {
		kids = append(kids, i.Else)
	}
	return kids
}
func (i *IfStmt) String() string {
	if i.Else != nil {
		return fmt.Sprintf("if (%s) %s else %s", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("if (%s) %s", i.Cond, i.Then)
}

// CompoundStmt represents { item; ... } and introduces a scope.
type CompoundStmt struct {
	Items []Stmt
}

func (*CompoundStmt) stmtNode() {}
func (c *CompoundStmt) Children() []Node {
	kids := make([]Node, len(c.Items))
	for i, s := range c.Items {
		kids[i] = s
	}
	return kids
}
func (c *CompoundStmt) String() string { return fmt.Sprintf("{ %d items }", len(c.Items)) }

// WhileStmt represents while (cond) body. Label is assigned by loop labeling.
type WhileStmt struct {
	Cond  Expr
	Body  Stmt
	Label string
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) Children() []Node { return []Node{w.Cond, w.Body} }
func (w *WhileStmt) String() string { return fmt.Sprintf("while (%s) %s", w.Cond, w.Body) }

// DoWhileStmt represents do body while (cond);
type DoWhileStmt struct {
	Body  Stmt
	Cond  Expr
	Label string
}

func (*DoWhileStmt) stmtNode() {}
func (d *DoWhileStmt) Children() []Node { return []Node{d.Body, d.Cond} }
func (d *DoWhileStmt) String() string { return fmt.Sprintf("do %s while (%s);", d.Body, d.Cond) }

// ForStmt represents for (init; cond; post) body.
// Init is a *VarDecl, an *ExprStmt, or nil; Cond and Post may be nil.
type ForStmt struct {
	Init  Stmt
	Cond  Expr
	Post  Expr
	Body  Stmt
	Label string
}

func (*ForStmt) stmtNode() {}
func (f *ForStmt) Children() []Node {
	var kids []Node
	if f.Init != nil {
		kids = append(kids, f.Init)
	}
	if f.Cond != nil {
		kids = append(kids, f.Cond)
	}
	if f.Post != nil {
		kids = append(kids, f.Post)
	}
	return append(kids, f.Body)
}
func (f *ForStmt) String() string {
	return fmt.Sprintf("for (%v; %v; %v) %s", f.Init, f.Cond, f.Post, f.Body)
}

// BreakStmt represents break; Label is filled in by loop labeling.
type BreakStmt struct {
	Label string
}

func (*BreakStmt) stmtNode() {}
func (*BreakStmt) Children() []Node { return nil }
func (*BreakStmt) String() string { return "break;" }

// ContinueStmt represents continue;
type ContinueStmt struct {
	Label string
}

func (*ContinueStmt) stmtNode() {}
func (*ContinueStmt) Children() []Node { return nil }
func (*ContinueStmt) String() string { return "continue;" }

//  Declarations

// Decl is a top-level or block-scope declaration.
type Decl interface {
	Stmt
	declNode()
	DeclName() string
}

// VarDecl represents  [storage] type name [= init];
type VarDecl struct {
	Name    string
	Type    ctypes.Type
	Init    Expr // may be nil
	Storage StorageClass
}

func (*VarDecl) declNode() {}
func (*VarDecl) stmtNode() {}
func (d *VarDecl) DeclName() string { return d.Name }
func (d *VarDecl) Children() []Node {
	if d.Init == nil {
		return nil
	}
	return []Node{d.Init}
}
func (d *VarDecl) String() string {
	var sb strings.Builder
	if d.Storage != NoStorage {
		sb.WriteString(d.Storage.String() + " ")
	}
	fmt.Fprintf(&sb, "%s %s", d.Type, d.Name)
	if d.Init != nil {
		fmt.Fprintf(&sb, " = %s", d.Init)
	}
	sb.WriteString(";")
	return sb.String()
}

// FuncDecl represents  [storage] ret name(params) (";" | body).
// Type is the full function type; Params holds the parameter names in order.
type FuncDecl struct {
	Name    string
	Type    ctypes.Type
	Params  []string
	Body    *CompoundStmt // nil for a declaration without a body
	Storage StorageClass
}

func (*FuncDecl) declNode() {}
func (*FuncDecl) stmtNode() {}
func (d *FuncDecl) DeclName() string { return d.Name }
func (d *FuncDecl) Children() []Node {
	if d.Body == nil {
		return nil
	}
	return []Node{d.Body}
}
func (d *FuncDecl) String() string {
	suffix := ";"
	if d.Body != nil {
		suffix = " " + d.Body.String()
	}
	return fmt.Sprintf("%s %s(%d params)%s", d.Type.Ret, d.Name, len(d.Params), suffix)
}

// Program is a full translation unit.
type Program struct {
	Decls []Decl
}

func (p *Program) Children() []Node {
	kids := make([]Node, len(p.Decls))
	for i, d := range p.Decls {
		kids[i] = d
	}
	return kids
}
func (p *Program) String() string { return fmt.Sprintf("Program(%d decls)", len(p.Decls)) }
