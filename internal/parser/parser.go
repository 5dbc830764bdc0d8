// Package parser implements the recursive-descent, precedence-climbing
// parser described in spec.md §4.2. It is total: every syntax error
// carries a token span and a short message, and the parser does not
// perform semantic validation (that is the compiler's job).
package parser

import (
	"strconv"

	"jsvm/internal/ast"
	"jsvm/internal/lexer"
	"jsvm/internal/token"
)

// Parser consumes a pre-lexed token buffer with arbitrary-position
// backtracking, needed to disambiguate arrow-function parameter lists from
// parenthesized expressions.
type Parser struct {
	toks []token.Token
	pos  int
	errs []error
}

// Parse lexes src and parses a full Program. It never panics; all failures
// are collected and returned as the second result.
func Parse(src string) (*ast.Program, []error) {
	l := lexer.New(src)
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	p := &Parser{toks: toks}
	for _, e := range l.Errors() {
		p.errs = append(p.errs, e)
	}
	prog := p.parseProgram()
	return prog, p.errs
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }
func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}
func (p *Parser) expect(k token.Kind, msg string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.errorHere(msg)
	return p.cur()
}
func (p *Parser) errorHere(msg string) {
	p.errs = append(p.errs, &Error{Tok: p.cur(), Msg: msg})
}

func (p *Parser) mark() int        { return p.pos }
func (p *Parser) reset(mark int)   { p.pos = mark }

func pos(t token.Token) (int, int) { return t.Line, t.Col }

// consumeSemicolon applies automatic semicolon insertion: an explicit `;`,
// a newline before the next token, a `}` closing the enclosing block, or
// EOF all terminate a statement silently.
func (p *Parser) consumeSemicolon() {
	if p.match(token.Semicolon) {
		return
	}
	if p.check(token.RBrace) || p.check(token.EOF) || p.cur().NewlineBefore {
		return
	}
	p.errorHere("expected ';'")
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.check(token.EOF) {
		prog.Body = append(prog.Body, p.parseStatement())
	}
	return prog
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwVar, token.KwLet, token.KwConst:
		s := p.parseVarDecl()
		p.consumeSemicolon()
		return s
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwBreak:
		return p.parseBreak()
	case token.KwContinue:
		return p.parseContinue()
	case token.KwThrow:
		return p.parseThrow()
	case token.KwTry:
		return p.parseTry()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwFunction:
		return p.parseFunctionDecl(false)
	case token.KwAsync:
		if p.peekAt(1).Kind == token.KwFunction {
			p.advance()
			return p.parseFunctionDecl(true)
		}
	case token.KwClass:
		return p.parseClassDecl()
	case token.KwImport:
		return p.parseImport()
	case token.KwExport:
		return p.parseExport()
	case token.Semicolon:
		line, col := pos(p.cur())
		p.advance()
		return &ast.BlockStatement{ast.NewBase(line, col), nil}
	}
	if p.check(token.Ident) && p.peekAt(1).Kind == token.Colon {
		return p.parseLabeled()
	}
	expr := p.parseExpression()
	p.consumeSemicolon()
	line, col := expr.Pos()
	return &ast.ExprStatement{ast.NewBase(line, col), expr}
}

func (p *Parser) parseBlock() *ast.BlockStatement {
	line, col := pos(p.cur())
	p.expect(token.LBrace, "expected '{'")
	var body []ast.Statement
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		body = append(body, p.parseStatement())
	}
	p.expect(token.RBrace, "expected '}'")
	return &ast.BlockStatement{ast.NewBase(line, col), body}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	line, col := pos(p.cur())
	kind := p.advance().Lexeme
	decl := &ast.VarDecl{ast.NewBase(line, col), kind, nil}
	for {
		target := p.parseBindingTarget()
		var init ast.Expression
		if p.match(token.Assign) {
			init = p.parseAssignExpr()
		}
		decl.Decls = append(decl.Decls, ast.Declarator{Target: target, Init: init})
		if !p.match(token.Comma) {
			break
		}
	}
	return decl
}

func (p *Parser) parseBindingTarget() ast.Expression {
	switch p.cur().Kind {
	case token.LBracket:
		return p.parseArrayPattern()
	case token.LBrace:
		return p.parseObjectPattern()
	default:
		return p.parseIdentifier()
	}
}

func (p *Parser) parseIdentifier() *ast.Identifier {
	line, col := pos(p.cur())
	t := p.cur()
	if t.Kind != token.Ident && t.Kind != token.KwOf && t.Kind != token.KwAs &&
		t.Kind != token.KwFrom && t.Kind != token.KwGet && t.Kind != token.KwSet &&
		t.Kind != token.KwAsync && t.Kind != token.KwStatic {
		p.errorHere("expected identifier")
	}
	p.advance()
	return &ast.Identifier{ast.NewBase(line, col), t.Lexeme}
}

func (p *Parser) parseArrayPattern() *ast.ArrayPattern {
	line, col := pos(p.cur())
	p.expect(token.LBracket, "expected '['")
	ap := &ast.ArrayPattern{Base: ast.NewBase(line, col)}
	for !p.check(token.RBracket) && !p.check(token.EOF) {
		if p.match(token.Comma) {
			ap.Elements = append(ap.Elements, ast.Param{})
			continue
		}
		rest := p.match(token.DotDotDot)
		target := p.parseBindingTarget()
		var def ast.Expression
		if !rest && p.match(token.Assign) {
			def = p.parseAssignExpr()
		}
		ap.Elements = append(ap.Elements, ast.Param{Target: target, Default: def, Rest: rest})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBracket, "expected ']'")
	return ap
}

func (p *Parser) parseObjectPattern() *ast.ObjectPattern {
	line, col := pos(p.cur())
	p.expect(token.LBrace, "expected '{'")
	op := &ast.ObjectPattern{Base: ast.NewBase(line, col)}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.match(token.DotDotDot) {
			op.Rest = p.parseIdentifier().Name
			break
		}
		computed := false
		var keyExpr ast.Expression
		var key string
		if p.match(token.LBracket) {
			computed = true
			keyExpr = p.parseAssignExpr()
			p.expect(token.RBracket, "expected ']'")
		} else {
			key = p.propertyKeyName()
		}
		var target ast.Expression
		if p.match(token.Colon) {
			target = p.parseBindingTarget()
		} else {
			target = &ast.Identifier{ast.NewBase(line, col), key}
		}
		var def ast.Expression
		if p.match(token.Assign) {
			def = p.parseAssignExpr()
		}
		op.Props = append(op.Props, ast.ObjectPatternProp{
			Key: key, Computed: computed, KeyExpr: keyExpr,
			Value: ast.Param{Target: target, Default: def},
		})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "expected '}'")
	return op
}

func (p *Parser) propertyKeyName() string {
	t := p.cur()
	if t.Kind == token.String {
		p.advance()
		return t.Lexeme
	}
	if t.Kind == token.Number {
		p.advance()
		return t.Lexeme
	}
	p.advance()
	return t.Lexeme
}

func (p *Parser) parseIf() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	p.expect(token.LParen, "expected '('")
	test := p.parseExpression()
	p.expect(token.RParen, "expected ')'")
	then := p.parseStatement()
	var els ast.Statement
	if p.match(token.KwElse) {
		els = p.parseStatement()
	}
	return &ast.IfStatement{ast.NewBase(line, col), test, then, els}
}

func (p *Parser) parseWhile() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	p.expect(token.LParen, "expected '('")
	test := p.parseExpression()
	p.expect(token.RParen, "expected ')'")
	body := p.parseStatement()
	return &ast.WhileStatement{ast.NewBase(line, col), test, body}
}

func (p *Parser) parseDoWhile() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	body := p.parseStatement()
	p.expect(token.KwWhile, "expected 'while'")
	p.expect(token.LParen, "expected '('")
	test := p.parseExpression()
	p.expect(token.RParen, "expected ')'")
	p.consumeSemicolon()
	return &ast.DoWhileStatement{ast.NewBase(line, col), body, test}
}

func (p *Parser) parseFor() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	isAwait := p.match(token.KwAwait)
	p.expect(token.LParen, "expected '('")

	var initNode ast.Node
	if p.check(token.KwVar) || p.check(token.KwLet) || p.check(token.KwConst) {
		decl := p.parseVarDecl()
		if p.check(token.KwIn) || p.check(token.KwOf) {
			of := p.cur().Kind == token.KwOf
			p.advance()
			right := p.parseAssignExpr()
			p.expect(token.RParen, "expected ')'")
			body := p.parseStatement()
			return &ast.ForInStatement{ast.NewBase(line, col), decl, right, body, of, isAwait}
		}
		initNode = decl
	} else if !p.check(token.Semicolon) {
		expr := p.parseExpression()
		if p.check(token.KwIn) || p.check(token.KwOf) {
			of := p.cur().Kind == token.KwOf
			p.advance()
			right := p.parseAssignExpr()
			p.expect(token.RParen, "expected ')'")
			body := p.parseStatement()
			return &ast.ForInStatement{ast.NewBase(line, col), expr, right, body, of, isAwait}
		}
		initNode = expr
	}
	p.expect(token.Semicolon, "expected ';'")
	var test ast.Expression
	if !p.check(token.Semicolon) {
		test = p.parseExpression()
	}
	p.expect(token.Semicolon, "expected ';'")
	var update ast.Expression
	if !p.check(token.RParen) {
		update = p.parseExpression()
	}
	p.expect(token.RParen, "expected ')'")
	body := p.parseStatement()
	return &ast.ForStatement{ast.NewBase(line, col), initNode, test, update, body}
}

func (p *Parser) parseReturn() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	var arg ast.Expression
	if !p.check(token.Semicolon) && !p.check(token.RBrace) && !p.check(token.EOF) && !p.cur().NewlineBefore {
		arg = p.parseExpression()
	}
	p.consumeSemicolon()
	return &ast.ReturnStatement{ast.NewBase(line, col), arg}
}

func (p *Parser) parseBreak() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	label := ""
	if p.check(token.Ident) && !p.cur().NewlineBefore {
		label = p.advance().Lexeme
	}
	p.consumeSemicolon()
	return &ast.BreakStatement{ast.NewBase(line, col), label}
}

func (p *Parser) parseContinue() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	label := ""
	if p.check(token.Ident) && !p.cur().NewlineBefore {
		label = p.advance().Lexeme
	}
	p.consumeSemicolon()
	return &ast.ContinueStatement{ast.NewBase(line, col), label}
}

func (p *Parser) parseThrow() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	arg := p.parseExpression()
	p.consumeSemicolon()
	return &ast.ThrowStatement{ast.NewBase(line, col), arg}
}

func (p *Parser) parseTry() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	block := p.parseBlock()
	st := &ast.TryStatement{Base: ast.NewBase(line, col), Block: block}
	if p.match(token.KwCatch) {
		st.HasCatch = true
		if p.match(token.LParen) {
			st.CatchParam = p.parseBindingTarget()
			p.expect(token.RParen, "expected ')'")
		}
		st.CatchBody = p.parseBlock()
	}
	if p.match(token.KwFinally) {
		st.HasFinally = true
		st.FinallyBody = p.parseBlock()
	}
	return st
}

func (p *Parser) parseSwitch() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	p.expect(token.LParen, "expected '('")
	disc := p.parseExpression()
	p.expect(token.RParen, "expected ')'")
	p.expect(token.LBrace, "expected '{'")
	var cases []ast.SwitchCase
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		var test ast.Expression
		if p.match(token.KwCase) {
			test = p.parseExpression()
		} else {
			p.expect(token.KwDefault, "expected 'case' or 'default'")
		}
		p.expect(token.Colon, "expected ':'")
		var body []ast.Statement
		for !p.check(token.KwCase) && !p.check(token.KwDefault) && !p.check(token.RBrace) && !p.check(token.EOF) {
			body = append(body, p.parseStatement())
		}
		cases = append(cases, ast.SwitchCase{Test: test, Body: body})
	}
	p.expect(token.RBrace, "expected '}'")
	return &ast.SwitchStatement{ast.NewBase(line, col), disc, cases}
}

func (p *Parser) parseLabeled() ast.Statement {
	line, col := pos(p.cur())
	label := p.advance().Lexeme
	p.expect(token.Colon, "expected ':'")
	body := p.parseStatement()
	return &ast.LabeledStatement{ast.NewBase(line, col), label, body}
}

func (p *Parser) parseFunctionDecl(async bool) ast.Statement {
	line, col := pos(p.cur())
	p.advance() // 'function'
	gen := p.match(token.Star)
	name := p.parseIdentifier().Name
	params := p.parseParams()
	body := p.parseBlock()
	return &ast.FunctionDecl{ast.NewBase(line, col), name, params, body, async, gen}
}

func (p *Parser) parseParams() []ast.Param {
	p.expect(token.LParen, "expected '('")
	var params []ast.Param
	for !p.check(token.RParen) && !p.check(token.EOF) {
		rest := p.match(token.DotDotDot)
		target := p.parseBindingTarget()
		var def ast.Expression
		if !rest && p.match(token.Assign) {
			def = p.parseAssignExpr()
		}
		params = append(params, ast.Param{Target: target, Default: def, Rest: rest})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')'")
	return params
}

func (p *Parser) parseClassDecl() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	name := ""
	if p.check(token.Ident) {
		name = p.advance().Lexeme
	}
	var super ast.Expression
	if p.match(token.KwExtends) {
		super = p.parseLHSExpr()
	}
	members := p.parseClassBody()
	return &ast.ClassDecl{ast.NewBase(line, col), name, super, members}
}

func (p *Parser) parseClassBody() []ast.ClassMember {
	p.expect(token.LBrace, "expected '{'")
	var members []ast.ClassMember
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.match(token.Semicolon) {
			continue
		}
		members = append(members, p.parseClassMember())
	}
	p.expect(token.RBrace, "expected '}'")
	return members
}

func (p *Parser) parseClassMember() ast.ClassMember {
	static := false
	if p.check(token.KwStatic) && p.peekAt(1).Kind != token.LParen && p.peekAt(1).Kind != token.Assign {
		static = true
		p.advance()
	}
	kind := "method"
	async := false
	gen := false
	if p.check(token.KwGet) && p.peekAt(1).Kind != token.LParen {
		kind = "get"
		p.advance()
	} else if p.check(token.KwSet) && p.peekAt(1).Kind != token.LParen {
		kind = "set"
		p.advance()
	} else if p.check(token.KwAsync) && p.peekAt(1).Kind != token.LParen {
		async = true
		p.advance()
	}
	if p.match(token.Star) {
		gen = true
	}
	computed := false
	var keyExpr ast.Expression
	var key string
	if p.match(token.LBracket) {
		computed = true
		keyExpr = p.parseAssignExpr()
		p.expect(token.RBracket, "expected ']'")
	} else {
		key = p.propertyKeyName()
	}
	if p.check(token.LParen) {
		line, col := pos(p.cur())
		params := p.parseParams()
		body := p.parseBlock()
		fn := &ast.FunctionExpr{ast.NewBase(line, col), key, params, body, async, gen, false, nil}
		if key == "constructor" {
			kind = "constructor"
		}
		return ast.ClassMember{Key: key, Computed: computed, KeyExpr: keyExpr, Kind: kind, Static: static, Fn: fn}
	}
	var value ast.Expression
	if p.match(token.Assign) {
		value = p.parseAssignExpr()
	}
	p.consumeSemicolon()
	return ast.ClassMember{Key: key, Computed: computed, KeyExpr: keyExpr, Kind: "field", Static: static, Value: value}
}

func (p *Parser) parseImport() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	decl := &ast.ImportDecl{Base: ast.NewBase(line, col)}
	if p.check(token.String) {
		decl.Source = p.advance().Lexeme
		p.consumeSemicolon()
		return decl
	}
	if p.check(token.Ident) {
		decl.Default = p.advance().Lexeme
		if p.match(token.Comma) {
			p.parseImportClauseTail(decl)
		}
	} else {
		p.parseImportClauseTail(decl)
	}
	p.expect(token.KwFrom, "expected 'from'")
	decl.Source = p.expect(token.String, "expected module specifier").Lexeme
	p.consumeSemicolon()
	return decl
}

func (p *Parser) parseImportClauseTail(decl *ast.ImportDecl) {
	if p.match(token.Star) {
		p.expect(token.KwAs, "expected 'as'")
		decl.Namespace = p.parseIdentifier().Name
		return
	}
	p.expect(token.LBrace, "expected '{'")
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		imported := p.parseIdentifier().Name
		local := imported
		if p.match(token.KwAs) {
			local = p.parseIdentifier().Name
		}
		decl.Named = append(decl.Named, ast.ImportSpecifier{Imported: imported, Local: local})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "expected '}'")
}

func (p *Parser) parseExport() ast.Statement {
	line, col := pos(p.cur())
	p.advance()
	decl := &ast.ExportDecl{Base: ast.NewBase(line, col)}
	if p.match(token.KwDefault) {
		decl.Default = true
		stmt := p.parseStatement()
		decl.Decl = stmt
		return decl
	}
	if p.check(token.LBrace) {
		p.advance()
		for !p.check(token.RBrace) && !p.check(token.EOF) {
			local := p.parseIdentifier().Name
			exported := local
			if p.match(token.KwAs) {
				exported = p.parseIdentifier().Name
			}
			decl.Named = append(decl.Named, ast.ExportSpecifier{Local: local, Exported: exported})
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBrace, "expected '}'")
		if p.match(token.KwFrom) {
			decl.Source = p.expect(token.String, "expected module specifier").Lexeme
		}
		p.consumeSemicolon()
		return decl
	}
	decl.Decl = p.parseStatement()
	return decl
}

// ---- Expressions ----

func (p *Parser) parseExpression() ast.Expression {
	expr := p.parseAssignExpr()
	if p.check(token.Comma) {
		line, col := expr.Pos()
		seq := &ast.SequenceExpr{ast.NewBase(line, col), []ast.Expression{expr}}
		for p.match(token.Comma) {
			seq.Exprs = append(seq.Exprs, p.parseAssignExpr())
		}
		return seq
	}
	return expr
}

var assignOps = map[token.Kind]string{
	token.Assign: "=", token.PlusEq: "+=", token.MinusEq: "-=", token.StarEq: "*=",
	token.SlashEq: "/=", token.PercentEq: "%=", token.StarStarEq: "**=",
	token.AmpEq: "&=", token.PipeEq: "|=", token.CaretEq: "^=",
	token.ShlEq: "<<=", token.ShrEq: ">>=", token.UShrEq: ">>>=",
	token.AmpAmpEq: "&&=", token.PipePipeEq: "||=", token.QuestionQuestionEq: "??=",
}

func (p *Parser) parseAssignExpr() ast.Expression {
	if arrow, ok := p.tryParseArrow(); ok {
		return arrow
	}
	if p.check(token.KwAsync) {
		if arrow, ok := p.tryParseAsyncArrow(); ok {
			return arrow
		}
	}
	if p.check(token.KwYield) {
		return p.parseYield()
	}
	left := p.parseConditional()
	if op, ok := assignOps[p.cur().Kind]; ok {
		p.advance()
		right := p.parseAssignExpr()
		line, col := left.Pos()
		return &ast.AssignExpr{ast.NewBase(line, col), op, left, right}
	}
	return left
}

func (p *Parser) parseYield() ast.Expression {
	line, col := pos(p.cur())
	p.advance()
	delegate := p.match(token.Star)
	var arg ast.Expression
	if !p.check(token.Semicolon) && !p.check(token.RParen) && !p.check(token.RBrace) &&
		!p.check(token.RBracket) && !p.check(token.Comma) && !p.check(token.EOF) && !p.cur().NewlineBefore {
		arg = p.parseAssignExpr()
	}
	return &ast.YieldExpr{ast.NewBase(line, col), arg, delegate}
}

// tryParseArrow speculatively parses `(params) => body` or `ident =>
// body`, backtracking if the lookahead doesn't pan out.
func (p *Parser) tryParseArrow() (ast.Expression, bool) {
	start := p.mark()
	line, col := pos(p.cur())

	if p.check(token.Ident) && p.peekAt(1).Kind == token.Arrow {
		name := p.advance().Lexeme
		p.advance() // =>
		return p.finishArrow(line, col, []ast.Param{{Target: &ast.Identifier{ast.NewBase(line, col), name}}}, false), true
	}

	if !p.check(token.LParen) {
		return nil, false
	}
	savedErrs := len(p.errs)
	params, ok := p.tryParseParamList()
	if !ok || !p.check(token.Arrow) {
		p.reset(start)
		p.errs = p.errs[:savedErrs]
		return nil, false
	}
	p.advance() // =>
	return p.finishArrow(line, col, params, false), true
}

func (p *Parser) tryParseAsyncArrow() (ast.Expression, bool) {
	start := p.mark()
	line, col := pos(p.cur())
	p.advance() // async
	if p.cur().NewlineBefore {
		p.reset(start)
		return nil, false
	}
	if p.check(token.Ident) && p.peekAt(1).Kind == token.Arrow {
		name := p.advance().Lexeme
		p.advance()
		return p.finishArrow(line, col, []ast.Param{{Target: &ast.Identifier{ast.NewBase(line, col), name}}}, true), true
	}
	if !p.check(token.LParen) {
		p.reset(start)
		return nil, false
	}
	savedErrs := len(p.errs)
	params, ok := p.tryParseParamList()
	if !ok || !p.check(token.Arrow) {
		p.reset(start)
		p.errs = p.errs[:savedErrs]
		return nil, false
	}
	p.advance()
	return p.finishArrow(line, col, params, true), true
}

func (p *Parser) tryParseParamList() ([]ast.Param, bool) {
	errBefore := len(p.errs)
	params := p.parseParams()
	return params, len(p.errs) == errBefore
}

func (p *Parser) finishArrow(line, col int, params []ast.Param, async bool) ast.Expression {
	fn := &ast.FunctionExpr{Base: ast.NewBase(line, col), Params: params, Async: async, Arrow: true}
	if p.check(token.LBrace) {
		fn.Body = p.parseBlock()
	} else {
		fn.ExprBody = p.parseAssignExpr()
	}
	return fn
}

func (p *Parser) parseConditional() ast.Expression {
	test := p.parseNullish()
	if p.match(token.Question) {
		then := p.parseAssignExpr()
		p.expect(token.Colon, "expected ':'")
		els := p.parseAssignExpr()
		line, col := test.Pos()
		return &ast.ConditionalExpr{ast.NewBase(line, col), test, then, els}
	}
	return test
}

func (p *Parser) parseNullish() ast.Expression {
	left := p.parseLogicalOr()
	for p.check(token.QuestionQuestion) {
		p.advance()
		right := p.parseLogicalOr()
		line, col := left.Pos()
		left = &ast.LogicalExpr{ast.NewBase(line, col), "??", left, right}
	}
	return left
}

func (p *Parser) parseLogicalOr() ast.Expression {
	left := p.parseLogicalAnd()
	for p.check(token.PipePipe) {
		p.advance()
		right := p.parseLogicalAnd()
		line, col := left.Pos()
		left = &ast.LogicalExpr{ast.NewBase(line, col), "||", left, right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expression {
	left := p.parseBitOr()
	for p.check(token.AmpAmp) {
		p.advance()
		right := p.parseBitOr()
		line, col := left.Pos()
		left = &ast.LogicalExpr{ast.NewBase(line, col), "&&", left, right}
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expression  { return p.parseBinaryLevel(p.parseBitXor, token.Pipe) }
func (p *Parser) parseBitXor() ast.Expression { return p.parseBinaryLevel(p.parseBitAnd, token.Caret) }
func (p *Parser) parseBitAnd() ast.Expression { return p.parseBinaryLevel(p.parseEquality, token.Amp) }

func (p *Parser) parseBinaryLevel(next func() ast.Expression, kinds ...token.Kind) ast.Expression {
	left := next()
	for p.matchesAny(kinds...) {
		op := p.advance()
		right := next()
		line, col := left.Pos()
		left = &ast.BinaryExpr{ast.NewBase(line, col), op.Lexeme, left, right}
	}
	return left
}

func (p *Parser) matchesAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) parseEquality() ast.Expression {
	return p.parseBinaryLevel(p.parseRelational, token.Eq, token.NotEq, token.StrictEq, token.StrictNotEq)
}

func (p *Parser) parseRelational() ast.Expression {
	return p.parseBinaryLevel(p.parseShift, token.Lt, token.Gt, token.LtEq, token.GtEq, token.KwInstanceof, token.KwIn)
}

func (p *Parser) parseShift() ast.Expression {
	return p.parseBinaryLevel(p.parseAdditive, token.Shl, token.Shr, token.UShr)
}

func (p *Parser) parseAdditive() ast.Expression {
	return p.parseBinaryLevel(p.parseMultiplicative, token.Plus, token.Minus)
}

func (p *Parser) parseMultiplicative() ast.Expression {
	return p.parseBinaryLevel(p.parseExponent, token.Star, token.Slash, token.Percent)
}

// parseExponent is right-associative per `**`'s usual precedence.
func (p *Parser) parseExponent() ast.Expression {
	left := p.parseUnary()
	if p.check(token.StarStar) {
		p.advance()
		right := p.parseExponent()
		line, col := left.Pos()
		return &ast.BinaryExpr{ast.NewBase(line, col), "**", left, right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur().Kind {
	case token.Bang, token.Minus, token.Plus, token.Tilde, token.KwTypeof, token.KwVoid, token.KwDelete:
		line, col := pos(p.cur())
		op := p.advance().Lexeme
		arg := p.parseUnary()
		return &ast.UnaryExpr{ast.NewBase(line, col), op, arg, true}
	case token.PlusPlus, token.MinusMinus:
		line, col := pos(p.cur())
		op := p.advance().Lexeme
		arg := p.parseUnary()
		return &ast.UpdateExpr{ast.NewBase(line, col), op, arg, true}
	case token.KwAwait:
		line, col := pos(p.cur())
		p.advance()
		arg := p.parseUnary()
		return &ast.AwaitExpr{ast.NewBase(line, col), arg}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parseLHSExpr()
	if (p.check(token.PlusPlus) || p.check(token.MinusMinus)) && !p.cur().NewlineBefore {
		op := p.advance().Lexeme
		line, col := expr.Pos()
		return &ast.UpdateExpr{ast.NewBase(line, col), op, expr, false}
	}
	return expr
}

func (p *Parser) parseLHSExpr() ast.Expression {
	var expr ast.Expression
	if p.check(token.KwNew) {
		expr = p.parseNew()
	} else {
		expr = p.parsePrimary()
	}
	return p.parseCallTail(expr)
}

func (p *Parser) parseNew() ast.Expression {
	line, col := pos(p.cur())
	p.advance()
	callee := p.parseLHSExprNoCall()
	var args []ast.Expression
	if p.match(token.LParen) {
		args = p.parseArgList()
	}
	return &ast.NewExpr{ast.NewBase(line, col), callee, args}
}

// parseLHSExprNoCall parses the callee of `new`, which binds tighter than
// a trailing call (`new a.b.C()` constructs C, not `(new a.b.C)()`).
func (p *Parser) parseLHSExprNoCall() ast.Expression {
	var expr ast.Expression
	if p.check(token.KwNew) {
		expr = p.parseNew()
	} else {
		expr = p.parsePrimary()
	}
	for {
		if p.match(token.Dot) {
			line, col := expr.Pos()
			name := p.propertyKeyName()
			expr = &ast.MemberExpr{ast.NewBase(line, col), expr, name, false, nil, false}
			continue
		}
		if p.match(token.LBracket) {
			line, col := expr.Pos()
			idx := p.parseExpression()
			p.expect(token.RBracket, "expected ']'")
			expr = &ast.MemberExpr{ast.NewBase(line, col), expr, "", true, idx, false}
			continue
		}
		break
	}
	return expr
}

func (p *Parser) parseCallTail(expr ast.Expression) ast.Expression {
	for {
		switch {
		case p.check(token.Dot):
			p.advance()
			line, col := expr.Pos()
			name := p.propertyKeyName()
			expr = &ast.MemberExpr{ast.NewBase(line, col), expr, name, false, nil, false}
		case p.check(token.QuestionDot):
			p.advance()
			line, col := expr.Pos()
			if p.check(token.LParen) {
				p.advance()
				args := p.parseArgList()
				expr = &ast.CallExpr{ast.NewBase(line, col), expr, args, true}
			} else if p.check(token.LBracket) {
				p.advance()
				idx := p.parseExpression()
				p.expect(token.RBracket, "expected ']'")
				expr = &ast.MemberExpr{ast.NewBase(line, col), expr, "", true, idx, true}
			} else {
				name := p.propertyKeyName()
				expr = &ast.MemberExpr{ast.NewBase(line, col), expr, name, false, nil, true}
			}
		case p.check(token.LBracket):
			p.advance()
			line, col := expr.Pos()
			idx := p.parseExpression()
			p.expect(token.RBracket, "expected ']'")
			expr = &ast.MemberExpr{ast.NewBase(line, col), expr, "", true, idx, false}
		case p.check(token.LParen):
			p.advance()
			line, col := expr.Pos()
			args := p.parseArgList()
			expr = &ast.CallExpr{ast.NewBase(line, col), expr, args, false}
		case p.check(token.NoSubTemplate) || p.check(token.TemplateHead):
			line, col := expr.Pos()
			tmpl := p.parseTemplateLiteral()
			expr = &ast.TaggedTemplateExpr{ast.NewBase(line, col), expr, tmpl}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgList() []ast.Expression {
	var args []ast.Expression
	for !p.check(token.RParen) && !p.check(token.EOF) {
		if p.match(token.DotDotDot) {
			line, col := pos(p.cur())
			arg := p.parseAssignExpr()
			args = append(args, &ast.SpreadElement{ast.NewBase(line, col), arg})
		} else {
			args = append(args, p.parseAssignExpr())
		}
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')'")
	return args
}

func (p *Parser) parsePrimary() ast.Expression {
	t := p.cur()
	line, col := pos(t)
	switch t.Kind {
	case token.Number:
		p.advance()
		if isBigIntLexeme(t.Lexeme) {
			digits := removeUnderscores(t.Lexeme)
			digits = digits[:len(digits)-1] // drop the `n` suffix
			return &ast.BigIntLiteral{ast.NewBase(line, col), digits}
		}
		v := parseNumberLiteral(t.Lexeme)
		return &ast.NumberLiteral{ast.NewBase(line, col), v}
	case token.String:
		p.advance()
		return &ast.StringLiteral{ast.NewBase(line, col), t.Lexeme}
	case token.KwTrue:
		p.advance()
		return &ast.BoolLiteral{ast.NewBase(line, col), true}
	case token.KwFalse:
		p.advance()
		return &ast.BoolLiteral{ast.NewBase(line, col), false}
	case token.KwNull:
		p.advance()
		return &ast.NullLiteral{ast.NewBase(line, col)}
	case token.KwUndefined:
		p.advance()
		return &ast.UndefinedLiteral{ast.NewBase(line, col)}
	case token.KwThis:
		p.advance()
		return &ast.ThisExpr{ast.NewBase(line, col)}
	case token.KwSuper:
		p.advance()
		return &ast.SuperExpr{ast.NewBase(line, col)}
	case token.Ident, token.KwOf, token.KwAs, token.KwFrom, token.KwGet, token.KwSet, token.KwStatic:
		p.advance()
		return &ast.Identifier{ast.NewBase(line, col), t.Lexeme}
	case token.KwAsync:
		p.advance()
		if p.check(token.KwFunction) {
			return p.parseFunctionExpr(true)
		}
		return &ast.Identifier{ast.NewBase(line, col), "async"}
	case token.KwFunction:
		return p.parseFunctionExpr(false)
	case token.KwClass:
		return p.parseClassExpr()
	case token.LParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen, "expected ')'")
		return expr
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LBrace:
		return p.parseObjectLiteral()
	case token.NoSubTemplate, token.TemplateHead:
		return p.parseTemplateLiteral()
	case token.Regex:
		p.advance()
		pat, flags := splitRegex(t.Lexeme)
		return &ast.RegexLiteral{ast.NewBase(line, col), pat, flags}
	default:
		p.errorHere("unexpected token")
		p.advance()
		return &ast.UndefinedLiteral{ast.NewBase(line, col)}
	}
}

func splitRegex(lexeme string) (pattern, flags string) {
	end := len(lexeme) - 1
	for end > 0 && lexeme[end] != '/' {
		end--
	}
	return lexeme[1:end], lexeme[end+1:]
}

// isBigIntLexeme reports whether a numeric lexeme carries the BigInt `n`
// suffix lexer.lexNumber leaves in place (e.g. "10n", "0x1fn").
func isBigIntLexeme(lexeme string) bool {
	return len(lexeme) > 0 && lexeme[len(lexeme)-1] == 'n'
}

func parseNumberLiteral(lexeme string) float64 {
	s := removeUnderscores(lexeme)
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, _ := strconv.ParseInt(s[2:], 16, 64)
		return float64(n)
	}
	if len(s) > 1 && s[0] == '0' && (s[1] == 'o' || s[1] == 'O') {
		n, _ := strconv.ParseInt(s[2:], 8, 64)
		return float64(n)
	}
	if len(s) > 1 && s[0] == '0' && (s[1] == 'b' || s[1] == 'B') {
		n, _ := strconv.ParseInt(s[2:], 2, 64)
		return float64(n)
	}
	if len(s) > 0 && s[len(s)-1] == 'n' {
		s = s[:len(s)-1]
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func removeUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func (p *Parser) parseFunctionExpr(async bool) ast.Expression {
	line, col := pos(p.cur())
	p.advance() // 'function'
	gen := p.match(token.Star)
	name := ""
	if p.check(token.Ident) {
		name = p.advance().Lexeme
	}
	params := p.parseParams()
	body := p.parseBlock()
	return &ast.FunctionExpr{ast.NewBase(line, col), name, params, body, async, gen, false, nil}
}

func (p *Parser) parseClassExpr() ast.Expression {
	line, col := pos(p.cur())
	p.advance()
	name := ""
	if p.check(token.Ident) {
		name = p.advance().Lexeme
	}
	var super ast.Expression
	if p.match(token.KwExtends) {
		super = p.parseLHSExpr()
	}
	members := p.parseClassBody()
	return &ast.ClassExpr{ast.NewBase(line, col), name, super, members}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	line, col := pos(p.cur())
	p.advance()
	arr := &ast.ArrayLiteral{Base: ast.NewBase(line, col)}
	for !p.check(token.RBracket) && !p.check(token.EOF) {
		if p.check(token.Comma) {
			arr.Elements = append(arr.Elements, nil)
			p.advance()
			continue
		}
		if p.match(token.DotDotDot) {
			eline, ecol := pos(p.cur())
			arg := p.parseAssignExpr()
			arr.Elements = append(arr.Elements, &ast.SpreadElement{ast.NewBase(eline, ecol), arg})
		} else {
			arr.Elements = append(arr.Elements, p.parseAssignExpr())
		}
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBracket, "expected ']'")
	return arr
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	line, col := pos(p.cur())
	p.advance()
	obj := &ast.ObjectLiteral{Base: ast.NewBase(line, col)}
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.match(token.DotDotDot) {
			arg := p.parseAssignExpr()
			obj.Props = append(obj.Props, ast.ObjectProp{Kind: "spread", Value: arg})
			if !p.match(token.Comma) {
				break
			}
			continue
		}
		obj.Props = append(obj.Props, p.parseObjectProp())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "expected '}'")
	return obj
}

func (p *Parser) parseObjectProp() ast.ObjectProp {
	async := false
	gen := false
	accessor := ""
	if p.check(token.KwGet) && p.peekAt(1).Kind != token.Colon && p.peekAt(1).Kind != token.Comma && p.peekAt(1).Kind != token.RBrace && p.peekAt(1).Kind != token.LParen {
		accessor = "get"
		p.advance()
	} else if p.check(token.KwSet) && p.peekAt(1).Kind != token.Colon && p.peekAt(1).Kind != token.Comma && p.peekAt(1).Kind != token.RBrace && p.peekAt(1).Kind != token.LParen {
		accessor = "set"
		p.advance()
	} else if p.check(token.KwAsync) && p.peekAt(1).Kind != token.Colon && p.peekAt(1).Kind != token.Comma && p.peekAt(1).Kind != token.RBrace {
		async = true
		p.advance()
	}
	if p.match(token.Star) {
		gen = true
	}
	line, col := pos(p.cur())
	computed := false
	var keyExpr ast.Expression
	var key string
	if p.match(token.LBracket) {
		computed = true
		keyExpr = p.parseAssignExpr()
		p.expect(token.RBracket, "expected ']'")
	} else {
		key = p.propertyKeyName()
	}
	if p.check(token.LParen) {
		params := p.parseParams()
		body := p.parseBlock()
		fn := &ast.FunctionExpr{ast.NewBase(line, col), key, params, body, async, gen, false, nil}
		kind := "method"
		if accessor != "" {
			kind = accessor
		}
		return ast.ObjectProp{Key: key, Computed: computed, KeyExpr: keyExpr, Value: fn, Kind: kind}
	}
	if p.match(token.Colon) {
		val := p.parseAssignExpr()
		return ast.ObjectProp{Key: key, Computed: computed, KeyExpr: keyExpr, Value: val, Kind: "init"}
	}
	// shorthand: { a } or { a = defaultExpr } (pattern-only, tolerated here)
	ident := &ast.Identifier{ast.NewBase(line, col), key}
	return ast.ObjectProp{Key: key, Value: ident, Kind: "init", Shorthand: true}
}

func (p *Parser) parseTemplateLiteral() *ast.TemplateLiteral {
	t := p.cur()
	line, col := pos(t)
	tmpl := &ast.TemplateLiteral{Base: ast.NewBase(line, col)}
	if t.Kind == token.NoSubTemplate {
		p.advance()
		tmpl.Quasis = []string{t.Lexeme}
		return tmpl
	}
	p.advance() // head
	tmpl.Quasis = append(tmpl.Quasis, t.Lexeme)
	for {
		expr := p.parseExpression()
		tmpl.Exprs = append(tmpl.Exprs, expr)
		next := p.cur()
		if next.Kind == token.TemplateMiddle {
			p.advance()
			tmpl.Quasis = append(tmpl.Quasis, next.Lexeme)
			continue
		}
		if next.Kind == token.TemplateTail {
			p.advance()
			tmpl.Quasis = append(tmpl.Quasis, next.Lexeme)
			break
		}
		p.errorHere("expected template continuation")
		break
	}
	return tmpl
}
