package compiler

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"int":      INT,
	"long":     LONG,
	"unsigned": UNSIGNED,
	"signed":   SIGNED,
	"void":     VOID,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"do":       DO,
	"while":    WHILE,
	"for":      FOR,
	"break":    BREAK,
	"continue": CONTINUE,
	"static":   STATIC,
	"extern":   EXTERN,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based source column
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it. A newline resets the column
// counter and bumps the line counter.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) errorf(line, col int, format string, args ...any) error {
	return &LexError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the closing "*/".
// The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment(line, col int) error {
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			return nil
		}
		l.advance()
	}
	return l.errorf(line, col, "unterminated block comment")
}

// isIdentRune reports whether r may appear in an identifier after the first
// character.
func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && isIdentRune(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line, Col: col}
}

// scanInt collects a decimal integer literal plus any valid combination of
// u/U and l/L suffixes (in either order, each at most once). The literal's
// token type encodes which suffixes were present. A digit run followed by
// any other identifier character (e.g. 123abc or a repeated suffix) is
// malformed.
func (l *Lexer) scanInt() (Token, error) {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	numEnd := l.pos

	var hasU, hasL bool
	for l.pos < len(l.src) {
		switch l.peek() {
		case 'u', 'U':
			if hasU {
				return Token{}, l.errorf(line, col, "malformed integer suffix")
			}
			hasU = true
			l.advance()
			continue
		case 'l', 'L':
			if hasL {
				return Token{}, l.errorf(line, col, "malformed integer suffix")
			}
			hasL = true
			l.advance()
			continue
		}
		break
	}

	// A literal must not run straight into an identifier: 123abc is one
	// malformed token, not a number followed by a name.
	if l.pos < len(l.src) && isIdentRune(l.peek()) {
		return Token{}, l.errorf(line, col, "malformed integer literal %q",
			string(l.src[start:l.pos+1]))
	}

	tt := CONST_INT
	switch {
	case hasU && hasL:
		tt = CONST_ULONG
	case hasU:
		tt = CONST_UINT
	case hasL:
		tt = CONST_LONG
	}
	return Token{Type: tt, Lexeme: string(l.src[start:numEnd]), Line: line, Col: col}, nil
}

// nextToken skips whitespace/comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	// Skip whitespace and both comment styles in a loop so that
	// a comment followed immediately by more whitespace is handled.
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Lexeme: "", Line: l.line, Col: l.col}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			line, col := l.line, l.col
			l.advance()
			l.advance()
			if err := l.skipBlockComment(line, col); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}

	ch := l.peek()
	line, col := l.line, l.col

	if unicode.IsLetter(ch) || ch == '_' {
		return l.scanIdent(), nil
	}
	if unicode.IsDigit(ch) {
		return l.scanInt()
	}

	// Operators and punctuation: match the longest form first.
	l.advance() // consume the character before the switch
	one := func(tt TokenType) (Token, error) {
		return Token{Type: tt, Lexeme: string(ch), Line: line, Col: col}, nil
	}
	two := func(tt TokenType, second rune) (Token, error) {
		l.advance()
		return Token{Type: tt, Lexeme: string([]rune{ch, second}), Line: line, Col: col}, nil
	}

	switch ch {
	case '{':
		return one(LBRACE)
	case '}':
		return one(RBRACE)
	case '(':
		return one(LPAREN)
	case ')':
		return one(RPAREN)
	case ';':
		return one(SEMICOLON)
	case ',':
		return one(COMMA)
	case '+':
		return one(PLUS)
	case '-':
		return one(MINUS)
	case '*':
		return one(STAR)
	case '/':
		return one(SLASH)
	case '%':
		return one(PERCENT)
	case '^':
		return one(CARET)
	case '~':
		return one(TILDE)
	case '&':
		if l.peek() == '&' {
			return two(AND_LOGICAL, '&')
		}
		return one(AND)
	case '|':
		if l.peek() == '|' {
			return two(OR_LOGICAL, '|')
		}
		return one(PIPE)
	case '!':
		if l.peek() == '=' {
			return two(NOT_EQ, '=')
		}
		return one(NOT)
	case '<':
		if l.peek() == '=' {
			return two(LESS_EQ, '=')
		}
		if l.peek() == '<' {
			return two(SHL_OP, '<')
		}
		return one(LESS)
	case '>':
		if l.peek() == '=' {
			return two(GREATER_EQ, '=')
		}
		if l.peek() == '>' {
			return two(SHR_OP, '>')
		}
		return one(GREATER)
	case '=':
		if l.peek() == '=' { // lookahead: distinguish = vs ==
			return two(EQUALS, '=')
		}
		return one(ASSIGN)
	default:
		return Token{}, l.errorf(line, col, "unexpected character %q", ch)
	}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil error on the first illegal character, malformed
// literal, or unterminated comment.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
