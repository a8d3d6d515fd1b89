package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"mcc/pkg/ctypes"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar (single-declarator subset):
//
//	program     = declaration* EOF
//	declaration = specifiers IDENTIFIER ( varTail | funcTail )
//	varTail     = ("=" expression)? ";"
//	funcTail    = "(" ("void" | param ("," param)*) ")" (";" | block)
//	statement   = "return" expression ";" | ";" | block
//	            | "if" "(" expression ")" statement ("else" statement)?
//	            | "while" "(" expression ")" statement
//	            | "do" statement "while" "(" expression ")" ";"
//	            | "for" "(" forInit expression? ";" expression? ")" statement
//	            | "break" ";" | "continue" ";"
//	            | expression ";"
//	expression  = precedence climb over unary, with "=" right-associative
//	unary       = ("-" | "~" | "!") unary | "(" typeSpecifiers ")" unary | postfix
//	postfix     = primary ("(" args ")")?
//	primary     = constant | IDENTIFIER | "(" expression ")"
//
// Multi-declarator statements (int x, y;) are deliberately rejected.
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// Parse builds the Program for a full translation unit.
func Parse(tokens []Token, rawSource string) (*Program, error) {
	p := NewParser(tokens, rawSource)
	prog := &Program{}
	for p.peek().Type != EOF {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decl)
	}
	return prog, nil
}

// errorAt builds a ParseError with the source line where tok appears.
func (p *Parser) errorAt(tok Token, expected string) error {
	snippet := ""
	if lineIdx := tok.Line - 1; lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}
	return &ParseError{Expected: expected, Actual: tok, Snippet: snippet}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.errorAt(tok, tt.String())
	}
	return tok, nil
}

//  Declarations

func isSpecifier(tt TokenType) bool {
	return isTypeSpecifier(tt) || tt == STATIC || tt == EXTERN
}

func isTypeSpecifier(tt TokenType) bool {
	return tt == INT || tt == LONG || tt == UNSIGNED || tt == SIGNED
}

// parseTypeSpecifiers consumes a run of type-specifier keywords and maps the
// combination to one of the four integer types. Each specifier may appear at
// most once and signed excludes unsigned.
func (p *Parser) parseTypeSpecifiers() (ctypes.Type, error) {
	start := p.peek()
	var seen []TokenType
	for isTypeSpecifier(p.peek().Type) {
		tt := p.advance().Type
		for _, s := range seen {
			if s == tt {
				return ctypes.Type{}, p.errorAt(start, "a valid type (duplicate specifier)")
			}
		}
		seen = append(seen, tt)
	}
	return p.combineTypeSpecifiers(seen, start)
}

// combineTypeSpecifiers maps a set of type-specifier keywords to one of the
// four integer types. "int" and "signed" only contribute their presence.
func (p *Parser) combineTypeSpecifiers(seen []TokenType, at Token) (ctypes.Type, error) {
	var hasLong, hasUnsigned, hasSigned bool
	for _, tt := range seen {
		switch tt {
		case LONG:
			hasLong = true
		case UNSIGNED:
			hasUnsigned = true
		case SIGNED:
			hasSigned = true
		}
	}
	if len(seen) == 0 || (hasSigned && hasUnsigned) {
		return ctypes.Type{}, p.errorAt(at, "a valid type")
	}
	switch {
	case hasUnsigned && hasLong:
		return ctypes.ULongType, nil
	case hasUnsigned:
		return ctypes.UIntType, nil
	case hasLong:
		return ctypes.LongType, nil
	default:
		return ctypes.IntType, nil
	}
}

// parseSpecifiers consumes a mixed run of type specifiers and storage-class
// specifiers in any order. At most one storage class is allowed.
func (p *Parser) parseSpecifiers() (ctypes.Type, StorageClass, error) {
	start := p.peek()
	var types []TokenType
	storage := NoStorage
	for isSpecifier(p.peek().Type) {
		tok := p.advance()
		switch tok.Type {
		case STATIC, EXTERN:
			if storage != NoStorage {
				return ctypes.Type{}, 0, p.errorAt(tok, "at most one storage class")
			}
			if tok.Type == STATIC {
				storage = StaticStorage
			} else {
				storage = ExternStorage
			}
		default:
			for _, s := range types {
				if s == tok.Type {
					return ctypes.Type{}, 0, p.errorAt(start, "a valid type (duplicate specifier)")
				}
			}
			types = append(types, tok.Type)
		}
	}
	typ, err := p.combineTypeSpecifiers(types, start)
	if err != nil {
		return ctypes.Type{}, 0, err
	}
	return typ, storage, nil
}

// parseDeclaration parses a variable or function declaration. The presence of
// "(" after the declarator name selects the function form.
func (p *Parser) parseDeclaration() (Decl, error) {
	typ, storage, err := p.parseSpecifiers()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if p.peek().Type == LPAREN {
		return p.parseFuncTail(name.Lexeme, typ, storage)
	}
	return p.parseVarTail(name, typ, storage)
}

// parseVarTail finishes a variable declaration after its name.
func (p *Parser) parseVarTail(name Token, typ ctypes.Type, storage StorageClass) (Decl, error) {
	decl := &VarDecl{Name: name.Lexeme, Type: typ, Storage: storage}
	if p.peek().Type == ASSIGN {
		p.advance()
		init, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	// int x, y; is a stated subset limitation, not an oversight.
	if p.peek().Type == COMMA {
		return nil, p.errorAt(p.peek(), "';' (multi-declarator statements are not supported)")
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseFuncTail finishes a function declaration after its name; the leading
// "(" has not been consumed yet.
func (p *Parser) parseFuncTail(name string, ret ctypes.Type, storage StorageClass) (Decl, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var paramTypes []ctypes.Type
	var paramNames []string
	if p.peek().Type == VOID {
		p.advance()
	} else {
		for {
			ptype, err := p.parseTypeSpecifiers()
			if err != nil {
				return nil, err
			}
			pname, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			paramTypes = append(paramTypes, ptype)
			paramNames = append(paramNames, pname.Lexeme)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	decl := &FuncDecl{
		Name:    name,
		Type:    ctypes.FunType(paramTypes, ret),
		Params:  paramNames,
		Storage: storage,
	}
	if p.peek().Type == SEMICOLON {
		p.advance()
		return decl, nil
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

//  Statements

// parseBlock parses items until the closing brace, which it consumes.
// The opening brace has already been consumed.
func (p *Parser) parseBlock() (*CompoundStmt, error) {
	block := &CompoundStmt{}
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		block.Items = append(block.Items, item)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseBlockItem parses one declaration or statement inside a block.
func (p *Parser) parseBlockItem() (Stmt, error) {
	if isSpecifier(p.peek().Type) {
		return p.parseDeclaration()
	}
	return p.parseStatement()
}

// parseStatement dispatches to the correct sub-parser based on the leading token.
func (p *Parser) parseStatement() (Stmt, error) {
	switch p.peek().Type {

	case RETURN:
		p.advance()
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ReturnStmt{Expr: expr}, nil

	case SEMICOLON:
		p.advance()
		return &NullStmt{}, nil

	case LBRACE:
		p.advance()
		return p.parseBlock()

	case IF:
		p.advance()
		return p.parseIf()

	case WHILE:
		p.advance()
		return p.parseWhile()

	case DO:
		p.advance()
		return p.parseDoWhile()

	case FOR:
		p.advance()
		return p.parseFor()

	case BREAK:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &BreakStmt{}, nil

	case CONTINUE:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ContinueStmt{}, nil

	default:
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr}, nil
	}
}

// parseIf parses if ( cond ) then [ else els ].
// The leading IF token has already been consumed.
func (p *Parser) parseIf() (Stmt, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.peek().Type == ELSE {
		p.advance()
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{Cond: cond, Then: then, Else: els}, nil
}

// parseWhile parses while ( cond ) body.
// The leading WHILE token has already been consumed.
func (p *Parser) parseWhile() (Stmt, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

// parseDoWhile parses do body while ( cond ) ;
// The leading DO token has already been consumed.
func (p *Parser) parseDoWhile() (Stmt, error) {
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &DoWhileStmt{Body: body, Cond: cond}, nil
}

// parseFor parses for ( init ; cond ; post ) body.
// The leading FOR token has already been consumed.
func (p *Parser) parseFor() (Stmt, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var init Stmt
	if isSpecifier(p.peek().Type) {
		if p.peek().Type == STATIC || p.peek().Type == EXTERN {
			return nil, p.errorAt(p.peek(), "a for-loop initializer without a storage class")
		}
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		vd, ok := decl.(*VarDecl)
		if !ok {
			return nil, p.errorAt(p.peek(), "a variable declaration in for-loop initializer")
		}
		init = vd // parseDeclaration consumed the semicolon
	} else if p.peek().Type == SEMICOLON {
		p.advance()
	} else {
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		init = &ExprStmt{Expr: expr}
	}

	var cond Expr
	if p.peek().Type != SEMICOLON {
		var err error
		cond, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	var post Expr
	if p.peek().Type != RPAREN {
		var err error
		post, err = p.parseExpression(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ForStmt{Init: init, Cond: cond, Post: post, Body: body}, nil
}

//  Expressions

// precedence maps binary operator tokens to their binding strength. Zero
// means "not a binary operator".
var precedence = map[TokenType]int{
	STAR:        50,
	SLASH:       50,
	PERCENT:     50,
	PLUS:        45,
	MINUS:       45,
	SHL_OP:      40,
	SHR_OP:      40,
	LESS:        35,
	LESS_EQ:     35,
	GREATER:     35,
	GREATER_EQ:  35,
	EQUALS:      30,
	NOT_EQ:      30,
	AND:         25,
	CARET:       20,
	PIPE:        15,
	AND_LOGICAL: 10,
	OR_LOGICAL:  5,
	ASSIGN:      1,
}

// parseExpression implements precedence climbing: parse one unary term, then
// keep consuming binary operators whose precedence is at least minPrec. Left-
// associative operators recurse with a raised threshold; assignment is
// right-associative and recurses with its own.
func (p *Parser) parseExpression(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().Type
		prec := precedence[op]
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.advance()
		if op == ASSIGN {
			right, err := p.parseExpression(prec)
			if err != nil {
				return nil, err
			}
			left = &Assignment{Left: left, Right: right}
			continue
		}
		right, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// parseUnary handles the prefix operators -, ~, ! and explicit casts.
func (p *Parser) parseUnary() (Expr, error) {
	switch p.peek().Type {
	case MINUS, TILDE, NOT:
		op := p.advance().Type
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Expr: operand}, nil

	case LPAREN:
		// A parenthesis opening a type specifier is a cast, otherwise
		// grouping (handled by parsePrimary).
		if isTypeSpecifier(p.peekAt(1).Type) {
			p.advance() // (
			target, err := p.parseTypeSpecifiers()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &Cast{Target: target, Expr: operand}, nil
		}
	}
	return p.parsePostfix()
}

// parsePostfix handles function calls.
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == LPAREN {
		v, ok := expr.(*Var)
		if !ok {
			return nil, p.errorAt(p.peek(), "a function name before '('")
		}
		p.advance() // (
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		return &FunctionCall{Name: v.Name, Args: args}, nil
	}
	return expr, nil
}

// parseCallArgs parses the argument list of a call; the opening parenthesis
// has already been consumed and the closing one is consumed here.
func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary handles constants, variables, and parenthesised expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case CONST_INT, CONST_LONG, CONST_UINT, CONST_ULONG:
		p.advance()
		value, err := classifyConstant(tok)
		if err != nil {
			return nil, p.errorAt(tok, err.Error())
		}
		return &Constant{Value: value}, nil

	case IDENTIFIER:
		p.advance()
		return &Var{Name: tok.Lexeme}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.errorAt(tok, "an expression")
	}
}

// classifyConstant assigns a literal its C type from the suffix on the token
// and the magnitude of the value: an unsuffixed literal that does not fit in
// int is a long, a u-suffixed one that does not fit in unsigned int is an
// unsigned long.
func classifyConstant(tok Token) (ctypes.Const, error) {
	v, err := strconv.ParseUint(tok.Lexeme, 10, 64)
	if err != nil {
		return ctypes.Const{}, fmt.Errorf("a constant within range (%q is too large)", tok.Lexeme)
	}
	switch tok.Type {
	case CONST_INT:
		if v <= math.MaxInt32 {
			return ctypes.IntConst(ctypes.IntType, int64(v)), nil
		}
		fallthrough
	case CONST_LONG:
		if v > math.MaxInt64 {
			return ctypes.Const{}, fmt.Errorf("a constant within range (%q is too large)", tok.Lexeme)
		}
		return ctypes.IntConst(ctypes.LongType, int64(v)), nil
	case CONST_UINT:
		if v <= math.MaxUint32 {
			return ctypes.UIntConst(ctypes.UIntType, v), nil
		}
		fallthrough
	default: // CONST_ULONG
		return ctypes.UIntConst(ctypes.ULongType, v), nil
	}
}
