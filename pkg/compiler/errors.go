package compiler

import "fmt"

// Each phase reports one family of errors; the first error aborts the
// pipeline, there is no recovery or resynchronization.

// LexError is an unrecognized character or malformed literal.
type LexError struct {
	Line, Col int
	Msg       string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// ParseError is a token-kind mismatch against a grammar expectation.
type ParseError struct {
	Expected string // token type or grammar construct that was required
	Actual   Token
	Snippet  string // trimmed source line of the offending token, may be empty
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d, col %d: expected %s, got %s (%q)",
		e.Actual.Line, e.Actual.Col, e.Expected, e.Actual.Type, e.Actual.Lexeme)
	if e.Snippet != "" {
		msg += "\n  |> " + e.Snippet
	}
	return msg
}

// DuplicateDeclarationError: the same name declared twice in one scope.
type DuplicateDeclarationError struct {
	Name string
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("duplicate declaration of %q in the same scope", e.Name)
}

// UndeclaredVariableError: a variable referenced with no visible declaration.
type UndeclaredVariableError struct {
	Name string
}

func (e *UndeclaredVariableError) Error() string {
	return fmt.Sprintf("use of undeclared variable %q", e.Name)
}

// UndeclaredFunctionError: a call to a function with no visible declaration.
type UndeclaredFunctionError struct {
	Name string
}

func (e *UndeclaredFunctionError) Error() string {
	return fmt.Sprintf("call to undeclared function %q", e.Name)
}

// NestedFunctionDefinitionError: a function body inside another function.
type NestedFunctionDefinitionError struct {
	Name string
}

func (e *NestedFunctionDefinitionError) Error() string {
	return fmt.Sprintf("nested definition of function %q", e.Name)
}

// BreakOutsideLoopError / ContinueOutsideLoopError: the statement has no
// enclosing loop to attach to.
type BreakOutsideLoopError struct{}

func (e *BreakOutsideLoopError) Error() string { return "break statement outside of a loop" }

type ContinueOutsideLoopError struct{}

func (e *ContinueOutsideLoopError) Error() string { return "continue statement outside of a loop" }

// ConflictingTypeError: redeclaration with an incompatible type.
type ConflictingTypeError struct {
	Name string
	Prev string
	Decl string
}

func (e *ConflictingTypeError) Error() string {
	return fmt.Sprintf("conflicting types for %q: previously %s, now %s", e.Name, e.Prev, e.Decl)
}

// DuplicateDefinitionError: a second body for an already defined function.
type DuplicateDefinitionError struct {
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("redefinition of function %q", e.Name)
}

// TypeError covers the remaining typecheck diagnostics (bad initializers,
// call arity, non-lvalue assignment targets).
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string { return e.Msg }

func typeErrorf(format string, args ...any) error {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}
