package compiler

import (
	"errors"
	"reflect"
	"testing"

	"mcc/pkg/ctypes"
)

// mustParse lexes and parses src, failing the test on any error.
func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	prog, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return prog
}

func TestResolveRenaming(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Program
	}{
		{
			name:  "Shadowed Local Gets Distinct Name",
			input: "int main(void) { int a = 1; { int a = 2; } return a; }",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name:   "main",
					Type:   ctypes.FunType(nil, ctypes.IntType),
					Params: []string{},
					Body: &CompoundStmt{Items: []Stmt{
						&VarDecl{Name: "a.0", Type: ctypes.IntType,
							Init: &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)}},
						&CompoundStmt{Items: []Stmt{
							&VarDecl{Name: "a.1", Type: ctypes.IntType,
								Init: &Constant{Value: ctypes.IntConst(ctypes.IntType, 2)}},
						}},
						&ReturnStmt{Expr: &Var{Name: "a.0"}},
					}},
				},
			}},
		},
		{
			name:  "Parameters Are Renamed",
			input: "int add(int a, int b) { return a + b; }",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name:   "add",
					Type:   ctypes.FunType([]ctypes.Type{ctypes.IntType, ctypes.IntType}, ctypes.IntType),
					Params: []string{"a.0", "b.1"},
					Body: &CompoundStmt{Items: []Stmt{
						&ReturnStmt{Expr: &Binary{Op: PLUS,
							Left:  &Var{Name: "a.0"},
							Right: &Var{Name: "b.1"},
						}},
					}},
				},
			}},
		},
		{
			name:  "Extern Local Keeps Its Name",
			input: "int main(void) { extern int g; return g; }",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name:   "main",
					Type:   ctypes.FunType(nil, ctypes.IntType),
					Params: []string{},
					Body: &CompoundStmt{Items: []Stmt{
						&VarDecl{Name: "g", Type: ctypes.IntType, Storage: ExternStorage},
						&ReturnStmt{Expr: &Var{Name: "g"}},
					}},
				},
			}},
		},
		{
			name:  "File Scope Names Survive",
			input: "long counter = 0l; int main(void) { counter = 1; return 0; }",
			expected: &Program{Decls: []Decl{
				&VarDecl{Name: "counter", Type: ctypes.LongType,
					Init: &Constant{Value: ctypes.IntConst(ctypes.LongType, 0)}},
				&FuncDecl{
					Name:   "main",
					Type:   ctypes.FunType(nil, ctypes.IntType),
					Params: []string{},
					Body: &CompoundStmt{Items: []Stmt{
						&ExprStmt{Expr: &Assignment{
							Left:  &Var{Name: "counter"},
							Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
						}},
						&ReturnStmt{Expr: &Constant{Value: ctypes.IntConst(ctypes.IntType, 0)}},
					}},
				},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(mustParse(t, tt.input))
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Resolve(%q)\n got %+v\nwant %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr any
	}{
		{
			name:    "Duplicate Local Declaration",
			input:   "int main(void) { int x = 1; int x = 2; return x; }",
			wantErr: new(*DuplicateDeclarationError),
		},
		{
			name:    "Parameter Redeclared As Parameter",
			input:   "int f(int a, int a) { return a; }",
			wantErr: new(*DuplicateDeclarationError),
		},
		{
			name:    "Undeclared Variable",
			input:   "int main(void) { return x; }",
			wantErr: new(*UndeclaredVariableError),
		},
		{
			name:    "Use Before Declaration",
			input:   "int main(void) { x = 1; int x; return x; }",
			wantErr: new(*UndeclaredVariableError),
		},
		{
			name:    "Undeclared Function",
			input:   "int main(void) { return f(); }",
			wantErr: new(*UndeclaredFunctionError),
		},
		{
			name:    "Nested Function Definition",
			input:   "int main(void) { int f(void) { return 1; } return f(); }",
			wantErr: new(*NestedFunctionDefinitionError),
		},
		{
			name:    "Block Scope Static Function",
			input:   "int main(void) { static int f(void); return 0; }",
			wantErr: new(*TypeError),
		},
		{
			name:    "Constant Assignment Target",
			input:   "int main(void) { 1 = 2; return 0; }",
			wantErr: new(*TypeError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(mustParse(t, tt.input))
			if err == nil {
				t.Fatalf("Resolve(%q) succeeded, want error", tt.input)
			}
			if !errors.As(err, tt.wantErr) {
				t.Errorf("Resolve(%q) error %v has wrong type %T", tt.input, err, err)
			}
		})
	}
}
