package compiler

import "fmt"

// LabelLoops is the second semantic pass: every loop gets a unique label and
// each break/continue inside it is annotated with the label of its nearest
// enclosing loop, so TAC generation can emit the matching jump targets
// without re-walking the tree. Returns a new tree.
func LabelLoops(prog *Program) (*Program, error) {
	ll := &loopLabeler{}
	out := &Program{Decls: make([]Decl, len(prog.Decls))}
	for i, decl := range prog.Decls {
		switch d := decl.(type) {
		case *FuncDecl:
			fn := *d
			if d.Body != nil {
				body, err := ll.labelStmt(d.Body, "")
				if err != nil {
					return nil, err
				}
				fn.Body = body.(*CompoundStmt)
			}
			out.Decls[i] = &fn
		default:
			out.Decls[i] = decl
		}
	}
	return out, nil
}

type loopLabeler struct {
	counter int
}

func (ll *loopLabeler) newLabel() string {
	label := fmt.Sprintf("loop.%d", ll.counter)
	ll.counter++
	return label
}

// labelStmt rewrites s with loop labels attached. current is the label of
// the nearest enclosing loop, or "" outside any loop.
func (ll *loopLabeler) labelStmt(s Stmt, current string) (Stmt, error) {
	switch n := s.(type) {
	case *BreakStmt:
		if current == "" {
			return nil, &BreakOutsideLoopError{}
		}
		return &BreakStmt{Label: current}, nil

	case *ContinueStmt:
		if current == "" {
			return nil, &ContinueOutsideLoopError{}
		}
		return &ContinueStmt{Label: current}, nil

	case *WhileStmt:
		label := ll.newLabel()
		body, err := ll.labelStmt(n.Body, label)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: n.Cond, Body: body, Label: label}, nil

	case *DoWhileStmt:
		label := ll.newLabel()
		body, err := ll.labelStmt(n.Body, label)
		if err != nil {
			return nil, err
		}
		return &DoWhileStmt{Body: body, Cond: n.Cond, Label: label}, nil

	case *ForStmt:
		label := ll.newLabel()
		body, err := ll.labelStmt(n.Body, label)
		if err != nil {
			return nil, err
		}
		return &ForStmt{Init: n.Init, Cond: n.Cond, Post: n.Post, Body: body, Label: label}, nil

	case *IfStmt:
		then, err := ll.labelStmt(n.Then, current)
		if err != nil {
			return nil, err
		}
		var els Stmt
		if n.Else != nil {
			if els, err = ll.labelStmt(n.Else, current); err != nil {
				return nil, err
			}
		}
		return &IfStmt{Cond: n.Cond, Then: then, Else: els}, nil

	case *CompoundStmt:
		out := &CompoundStmt{Items: make([]Stmt, len(n.Items))}
		for i, item := range n.Items {
			labeled, err := ll.labelStmt(item, current)
			if err != nil {
				return nil, err
			}
			out.Items[i] = labeled
		}
		return out, nil

	default:
		// Declarations, returns, expression and null statements contain no
		// loops or jumps.
		return s, nil
	}
}
