package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"mcc/pkg/ctypes"
)

// parseExprString lexes src as a lone expression and parses it.
func parseExprString(t *testing.T, src string) Expr {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	p := NewParser(tokens, src)
	expr, err := p.parseExpression(0)
	if err != nil {
		t.Fatalf("parseExpression(%q) failed: %v", src, err)
	}
	return expr
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Expr
	}{
		{
			name:  "Multiplication Binds Tighter",
			input: "1 + 2 * 3",
			expected: &Binary{Op: PLUS,
				Left: &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
				Right: &Binary{Op: STAR,
					Left:  &Constant{Value: ctypes.IntConst(ctypes.IntType, 2)},
					Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 3)},
				},
			},
		},
		{
			name:  "Shift Binds Looser Than Addition",
			input: "1 << 2 + 3",
			expected: &Binary{Op: SHL_OP,
				Left: &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
				Right: &Binary{Op: PLUS,
					Left:  &Constant{Value: ctypes.IntConst(ctypes.IntType, 2)},
					Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 3)},
				},
			},
		},
		{
			name:  "Bitwise And Binds Looser Than Equality",
			input: "a & b == c",
			expected: &Binary{Op: AND,
				Left: &Var{Name: "a"},
				Right: &Binary{Op: EQUALS,
					Left:  &Var{Name: "b"},
					Right: &Var{Name: "c"},
				},
			},
		},
		{
			name:  "Subtraction Left Associative",
			input: "10 - 4 - 3",
			expected: &Binary{Op: MINUS,
				Left: &Binary{Op: MINUS,
					Left:  &Constant{Value: ctypes.IntConst(ctypes.IntType, 10)},
					Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 4)},
				},
				Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 3)},
			},
		},
		{
			name:  "Assignment Right Associative",
			input: "a = b = 3",
			expected: &Assignment{
				Left: &Var{Name: "a"},
				Right: &Assignment{
					Left:  &Var{Name: "b"},
					Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 3)},
				},
			},
		},
		{
			name:  "Cast Of Unary",
			input: "(unsigned long) -x",
			expected: &Cast{
				Target: ctypes.ULongType,
				Expr:   &Unary{Op: MINUS, Expr: &Var{Name: "x"}},
			},
		},
		{
			name:  "Parenthesised Grouping",
			input: "(1 + 2) * 3",
			expected: &Binary{Op: STAR,
				Left: &Binary{Op: PLUS,
					Left:  &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
					Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 2)},
				},
				Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 3)},
			},
		},
		{
			name:  "Call With Arguments",
			input: "add(1, x)",
			expected: &FunctionCall{Name: "add", Args: []Expr{
				&Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
				&Var{Name: "x"},
			}},
		},
		{
			name:     "Unsuffixed Literal Overflowing Int Is Long",
			input:    "2147483648",
			expected: &Constant{Value: ctypes.IntConst(ctypes.LongType, 2147483648)},
		},
		{
			name:     "U Suffixed Literal Overflowing Uint Is Ulong",
			input:    "4294967296u",
			expected: &Constant{Value: ctypes.UIntConst(ctypes.ULongType, 4294967296)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseExprString(t, tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("parse(%q)\n got %v\nwant %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseProgram(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Program
	}{
		{
			name:  "Return Constant Function",
			input: "int main(void) { return 42; }",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name: "main",
					Type: ctypes.FunType(nil, ctypes.IntType),
					Body: &CompoundStmt{Items: []Stmt{
						&ReturnStmt{Expr: &Constant{Value: ctypes.IntConst(ctypes.IntType, 42)}},
					}},
				},
			}},
		},
		{
			name:  "Static Long Variable",
			input: "static long x = 10l;",
			expected: &Program{Decls: []Decl{
				&VarDecl{
					Name:    "x",
					Type:    ctypes.LongType,
					Init:    &Constant{Value: ctypes.IntConst(ctypes.LongType, 10)},
					Storage: StaticStorage,
				},
			}},
		},
		{
			name:  "Function Prototype",
			input: "long add(int a, unsigned long b);",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name:   "add",
					Type:   ctypes.FunType([]ctypes.Type{ctypes.IntType, ctypes.ULongType}, ctypes.LongType),
					Params: []string{"a", "b"},
				},
			}},
		},
		{
			name:  "Do While",
			input: "int main(void) { do ; while (1); return 0; }",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name: "main",
					Type: ctypes.FunType(nil, ctypes.IntType),
					Body: &CompoundStmt{Items: []Stmt{
						&DoWhileStmt{
							Body: &NullStmt{},
							Cond: &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
						},
						&ReturnStmt{Expr: &Constant{Value: ctypes.IntConst(ctypes.IntType, 0)}},
					}},
				},
			}},
		},
		{
			name:  "For With Declaration Init",
			input: "int main(void) { for (int i = 0; i < 10; i = i + 1) break; return 0; }",
			expected: &Program{Decls: []Decl{
				&FuncDecl{
					Name: "main",
					Type: ctypes.FunType(nil, ctypes.IntType),
					Body: &CompoundStmt{Items: []Stmt{
						&ForStmt{
							Init: &VarDecl{
								Name: "i",
								Type: ctypes.IntType,
								Init: &Constant{Value: ctypes.IntConst(ctypes.IntType, 0)},
							},
							Cond: &Binary{Op: LESS,
								Left:  &Var{Name: "i"},
								Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 10)},
							},
							Post: &Assignment{
								Left: &Var{Name: "i"},
								Right: &Binary{Op: PLUS,
									Left:  &Var{Name: "i"},
									Right: &Constant{Value: ctypes.IntConst(ctypes.IntType, 1)},
								},
							},
							Body: &BreakStmt{},
						},
						&ReturnStmt{Expr: &Constant{Value: ctypes.IntConst(ctypes.IntType, 0)}},
					}},
				},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex(%q) failed: %v", tt.input, err)
			}
			got, err := Parse(tokens, tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q)\n got %+v\nwant %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "Multi Declarator Statement",
			input:   "int main(void) { int x = 1, y = 2; return x; }",
			wantMsg: "multi-declarator",
		},
		{
			name:    "Missing Semicolon",
			input:   "int main(void) { return 42 }",
			wantMsg: "expected",
		},
		{
			name:    "Signed And Unsigned Together",
			input:   "signed unsigned x;",
			wantMsg: "valid type",
		},
		{
			name:    "Duplicate Specifier",
			input:   "int int x;",
			wantMsg: "duplicate specifier",
		},
		{
			name:    "Two Storage Classes",
			input:   "static extern int x;",
			wantMsg: "storage class",
		},
		{
			name:    "Storage Class In For Init",
			input:   "int main(void) { for (static int i = 0; i < 3; i = i + 1) ; return 0; }",
			wantMsg: "storage class",
		},
		{
			name:    "Call Of Non Identifier",
			input:   "int main(void) { return (1 + 2)(); }",
			wantMsg: "function name",
		},
		{
			name:    "Missing Operand",
			input:   "int main(void) { return 1 + ; }",
			wantMsg: "expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex(%q) failed: %v", tt.input, err)
			}
			_, err = Parse(tokens, tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse(%q) error is %T, want *ParseError", tt.input, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse(%q) error %q does not mention %q", tt.input, err, tt.wantMsg)
			}
		})
	}
}
