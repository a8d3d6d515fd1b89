package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER  // variable / function name
	CONST_INT   // decimal integer literal, no suffix
	CONST_LONG  // literal with l/L suffix
	CONST_UINT  // literal with u/U suffix
	CONST_ULONG // literal with both u and l suffixes

	// Keywords
	INT      // "int"
	LONG     // "long"
	UNSIGNED // "unsigned"
	SIGNED   // "signed"
	VOID     // "void"
	RETURN   // "return"
	IF       // "if"
	ELSE     // "else"
	DO       // "do"
	WHILE    // "while"
	FOR      // "for"
	BREAK    // "break"
	CONTINUE // "continue"
	STATIC   // "static"
	EXTERN   // "extern"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,

	// Operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	AND         // &
	PIPE        // |
	CARET       // ^
	TILDE       // ~
	SHL_OP      // <<
	SHR_OP      // >>
	NOT         // !
	AND_LOGICAL // &&
	OR_LOGICAL  // ||

	// Assignment / comparison  (order matters: ASSIGN before EQUALS)
	ASSIGN // =

	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	CONST_INT:   "CONST_INT",
	CONST_LONG:  "CONST_LONG",
	CONST_UINT:  "CONST_UINT",
	CONST_ULONG: "CONST_ULONG",
	INT:         "INT",
	LONG:        "LONG",
	UNSIGNED:    "UNSIGNED",
	SIGNED:      "SIGNED",
	VOID:        "VOID",
	RETURN:      "RETURN",
	IF:          "IF",
	ELSE:        "ELSE",
	DO:          "DO",
	WHILE:       "WHILE",
	FOR:         "FOR",
	BREAK:       "BREAK",
	CONTINUE:    "CONTINUE",
	STATIC:      "STATIC",
	EXTERN:      "EXTERN",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AND:         "AND",
	PIPE:        "PIPE",
	CARET:       "CARET",
	TILDE:       "TILDE",
	SHL_OP:      "SHL_OP",
	SHR_OP:      "SHR_OP",
	NOT:         "NOT",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Col    int    // 1-based source column of the first character
}

func (t Token) String() string {
	return fmt.Sprintf("%-11s %-14q  line %d, col %d", t.Type, t.Lexeme, t.Line, t.Col)
}
