package syntax

import (
	"github.com/philipwilsonTHG/psh-sub003/token"
)

// parseCompound recognizes the `compound` grammar alternatives by peeking
// at the current token/keyword; returns nil (consuming nothing) if none
// match, so the caller falls back to parseSimpleCommand.
func (p *Parser) parseCompound() Command {
	t := p.peek()
	if t.Kind == token.LPAREN {
		return p.parseSubshell()
	}
	if t.Kind == token.LBRACE && p.flags.commandPos {
		return p.parseBraceGroup()
	}
	if t.Kind == token.DLPAREN {
		return p.parseArithmeticEval()
	}
	if t.Kind == token.DLBRCK {
		return p.parseEnhancedTest()
	}
	if t.Kind == token.WORD && p.flags.commandPos {
		switch t.Word.Lit() {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "until":
			return p.parseUntil()
		case "for":
			return p.parseFor()
		case "case":
			return p.parseCase()
		case "select":
			return p.parseSelect()
		}
	}
	return nil
}

// tryFunctionDef recognizes both "function name [()] { ... }" and the
// POSIX "name() { ... }" forms.
func (p *Parser) tryFunctionDef() *Stmt {
	if !p.flags.commandPos {
		return nil
	}
	t := p.peek()
	braceStyle := false
	var name string
	var defPos token.Pos
	if t.Kind == token.WORD && t.Word.Lit() == "function" {
		defPos = t.Start
		braceStyle = true
		p.next()
		nt := p.peek()
		if nt.Kind != token.WORD {
			p.errorf(nt.Start, "expected function name after 'function'")
			return nil
		}
		name = nt.Word.Lit()
		p.next()
		if lp := p.peek(); lp.Kind == token.LPAREN {
			p.next()
			if rp := p.peek(); rp.Kind == token.RPAREN {
				p.next()
			}
		}
	} else if t.Kind == token.WORD && isIdentifier(t.Word.Lit()) && p.peekAt(1).Kind == token.LPAREN && p.peekAt(1).AdjacentToPrev {
		defPos = t.Start
		name = t.Word.Lit()
		p.next()
		p.next() // (
		if rp := p.peek(); rp.Kind == token.RPAREN {
			p.next()
		} else {
			p.errorf(defPos, "expected ')' after function name")
			return nil
		}
	} else {
		return nil
	}
	p.skipSeparators()
	var body *Stmt
	p.withCommandPos(true, func() {
		body = p.parseCommandStmt()
	})
	if body == nil {
		p.errorf(defPos, "expected function body")
		return nil
	}
	fd := &FunctionDef{DefPos: defPos, Name: name, BraceStyle: braceStyle, Body: body}
	return &Stmt{StmtPos: defPos, StmtEnd: fd.End(), Cmd: fd}
}

func (p *Parser) parseSubshell() Command {
	lp := p.next()
	var body *StatementList
	p.withCommandPos(true, func() {
		body = p.parseStatementList(nil)
	})
	rp := p.expect(token.RPAREN, "expected ')' to close subshell")
	return &Subshell{LparenPos: lp.Start, RparenPos: rp, Body: body}
}

func (p *Parser) parseBraceGroup() Command {
	lb := p.next()
	var body *StatementList
	p.withCommandPos(true, func() {
		body = p.parseStatementList(map[string]bool{"}": true})
	})
	rb := p.expectWordOrKind(token.RBRACE, "}", "expected '}' to close brace group")
	return &BraceGroup{LbracePos: lb.Start, RbracePos: rb, Body: body}
}

// expect consumes the current token if it matches k, else records a
// missing-terminator error and returns the current position.
func (p *Parser) expect(k token.Kind, suggestion string) token.Pos {
	t := p.peek()
	if t.Kind == k {
		p.next()
		return t.Start
	}
	p.errorSuggest(t.Start, suggestion, "unexpected token %q", t.Raw)
	return t.Start
}

// expectWordOrKind handles the brace-group '}' case, which the lexer
// emits as RBRACE, as well as keyword-as-word terminators like "fi"/"done"
// which arrive as plain WORD tokens whose literal matches lit.
func (p *Parser) expectWordOrKind(k token.Kind, lit, suggestion string) token.Pos {
	t := p.peek()
	if t.Kind == k || (t.Kind == token.WORD && t.Word.Lit() == lit) {
		p.next()
		return t.Start
	}
	p.errorSuggest(t.Start, suggestion, "expected %q, found %q", lit, t.Raw)
	return t.Start
}

func (p *Parser) expectKeyword(lit, suggestion string) token.Pos {
	t := p.peek()
	if t.Kind == token.WORD && t.Word.Lit() == lit {
		p.next()
		return t.Start
	}
	p.errorSuggest(t.Start, suggestion, "expected %q, found %q", lit, t.Raw)
	return t.Start
}

func (p *Parser) atKeyword(lit string) bool {
	t := p.peek()
	return t.Kind == token.WORD && t.Word.Lit() == lit
}

func (p *Parser) parseIf() Command {
	ifPos := p.expectKeyword("if", "")
	var cond, then *StatementList
	p.withCommandPos(true, func() { cond = p.parseStatementList(map[string]bool{"then": true}) })
	p.expectKeyword("then", "add 'then' before the if-body")
	p.withCommandPos(true, func() { then = p.parseStatementList(map[string]bool{"elif": true, "else": true, "fi": true}) })
	ifc := &If{IfPos: ifPos, Cond: cond, Then: then}
	for p.atKeyword("elif") {
		p.next()
		var ec, et *StatementList
		p.withCommandPos(true, func() { ec = p.parseStatementList(map[string]bool{"then": true}) })
		p.expectKeyword("then", "add 'then' after elif condition")
		p.withCommandPos(true, func() { et = p.parseStatementList(map[string]bool{"elif": true, "else": true, "fi": true}) })
		ifc.Elifs = append(ifc.Elifs, &Elif{Cond: ec, Then: et})
	}
	if p.atKeyword("else") {
		p.next()
		p.withCommandPos(true, func() { ifc.Else = p.parseStatementList(map[string]bool{"fi": true}) })
	}
	ifc.FiPos = p.expectKeyword("fi", "add 'fi' to close the if statement")
	return ifc
}

func (p *Parser) parseWhile() Command {
	wp := p.expectKeyword("while", "")
	var cond, body *StatementList
	p.withCommandPos(true, func() { cond = p.parseStatementList(map[string]bool{"do": true}) })
	p.expectKeyword("do", "add 'do' after the while condition")
	p.withCommandPos(true, func() { body = p.parseStatementList(map[string]bool{"done": true}) })
	dp := p.expectKeyword("done", "add 'done' to close the while loop")
	return &While{WhilePos: wp, DonePos: dp, Cond: cond, Body: body}
}

func (p *Parser) parseUntil() Command {
	up := p.expectKeyword("until", "")
	var cond, body *StatementList
	p.withCommandPos(true, func() { cond = p.parseStatementList(map[string]bool{"do": true}) })
	p.expectKeyword("do", "add 'do' after the until condition")
	p.withCommandPos(true, func() { body = p.parseStatementList(map[string]bool{"done": true}) })
	dp := p.expectKeyword("done", "add 'done' to close the until loop")
	return &Until{UntilPos: up, DonePos: dp, Cond: cond, Body: body}
}

func (p *Parser) parseFor() Command {
	fp := p.expectKeyword("for", "")
	if t := p.peek(); t.Kind == token.DLPAREN {
		return p.parseCForLoop(fp)
	}
	nameTok := p.peek()
	if nameTok.Kind != token.WORD || !isIdentifier(nameTok.Word.Lit()) {
		p.errorf(nameTok.Start, "expected loop variable name after 'for'")
	}
	name := nameTok.Word.Lit()
	p.next()
	p.skipSeparators()
	fl := &ForIn{ForPos: fp, Name: name}
	if p.atKeyword("in") {
		p.next()
		fl.HasIn = true
		for {
			t := p.peek()
			if t.Kind != token.WORD && t.Kind != token.ASSIGNW {
				break
			}
			p.next()
			fl.Items = append(fl.Items, p.buildCompositeWord(t))
		}
	}
	p.skipSeparators()
	p.expectKeyword("do", "add 'do' after the for list")
	p.withCommandPos(true, func() { fl.Body = p.parseStatementList(map[string]bool{"done": true}) })
	fl.DonePos = p.expectKeyword("done", "add 'done' to close the for loop")
	return fl
}

func (p *Parser) parseCForLoop(fp token.Pos) Command {
	p.next() // ((
	raw := p.scanArithUntilDRPAREN()
	init, cond, post := splitCStyleClauses(raw)
	p.skipSeparators()
	c := &CForLoop{ForPos: fp, Init: init, Cond: cond, Post: post}
	p.expectKeyword("do", "add 'do' after the C-style for header")
	p.withCommandPos(true, func() { c.Body = p.parseStatementList(map[string]bool{"done": true}) })
	c.DonePos = p.expectKeyword("done", "add 'done' to close the for loop")
	return c
}

func splitCStyleClauses(s string) (init, cond, post string) {
	parts := splitTopLevel(s, ';')
	if len(parts) > 0 {
		init = parts[0]
	}
	if len(parts) > 1 {
		cond = parts[1]
	}
	if len(parts) > 2 {
		post = parts[2]
	}
	return
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// scanArithUntilDRPAREN consumes raw source text up to the matching "))",
// used for "(( expr ))" and C-style for headers, whose expressions are
// evaluated lazily by C6 rather than parsed into syntax-package AST.
func (p *Parser) scanArithUntilDRPAREN() string {
	src := p.lex.src
	start := src.pos()
	depth := 1
	for depth > 0 {
		if src.atEOF() {
			p.errorf(start, "unterminated arithmetic expression")
			break
		}
		if src.peek(0) == '(' {
			depth++
			src.advance(1)
			continue
		}
		if src.peek(0) == ')' && src.peek(1) == ')' {
			depth--
			src.advance(2)
			continue
		}
		if src.peek(0) == ')' {
			depth--
			src.advance(1)
			continue
		}
		src.advance(1)
	}
	end := src.pos() - 2
	if end < start {
		end = start
	}
	expr := src.src[start-1 : end-1]
	p.buf = nil // the byte-level scan bypassed the lexer queue; resync it
	return expr
}

func (p *Parser) parseArithmeticEval() Command {
	lp := p.next() // ((
	expr := p.scanArithUntilDRPAREN()
	return &ArithmeticEval{LeftPos: lp.Start, RightPos: p.lex.src.pos() - 2, Expr: expr}
}

func (p *Parser) parseCase() Command {
	cp := p.expectKeyword("case", "")
	wordTok := p.peek()
	if wordTok.Kind != token.WORD && wordTok.Kind != token.ASSIGNW {
		p.errorf(wordTok.Start, "expected word after 'case'")
	} else {
		p.next()
	}
	scrutinee := p.buildCompositeWord(wordTok)
	p.expectKeyword("in", "add 'in' after the case word")
	c := &Case{CasePos: cp, Word: scrutinee}
	for !p.atKeyword("esac") && p.peek().Kind != token.EOF {
		p.skipSeparators()
		if p.atKeyword("esac") {
			break
		}
		if t := p.peek(); t.Kind == token.LPAREN {
			p.next()
		}
		item := &CaseItem{}
		var patterns []*Word
		for {
			t := p.peek()
			if t.Kind != token.WORD && t.Kind != token.ASSIGNW {
				break
			}
			p.next()
			patterns = append(patterns, p.buildCompositeWord(t))
			if t2 := p.peek(); t2.Kind == token.OR {
				p.next()
				continue
			}
			break
		}
		item.Patterns = patterns
		p.expect(token.RPAREN, "expected ')' after case pattern")
		p.withCommandPos(true, func() {
			item.Body = p.parseStatementList(map[string]bool{"esac": true})
		})
		switch t := p.peek(); t.Kind {
		case token.DSEMICOLON:
			p.next()
			item.Term = CaseBreak
		case token.SEMIFALL:
			p.next()
			item.Term = CaseFallthru
		case token.DSEMIFALL:
			p.next()
			item.Term = CaseContinue
		default:
			item.Term = CaseBreak
		}
		c.Items = append(c.Items, item)
	}
	c.EsacPos = p.expectKeyword("esac", "add 'esac' to close the case statement")
	return c
}

func (p *Parser) parseSelect() Command {
	sp := p.expectKeyword("select", "")
	nameTok := p.peek()
	name := nameTok.Word.Lit()
	p.next()
	s := &Select{SelectPos: sp, Name: name}
	if p.atKeyword("in") {
		p.next()
		for {
			t := p.peek()
			if t.Kind != token.WORD && t.Kind != token.ASSIGNW {
				break
			}
			p.next()
			s.Items = append(s.Items, p.buildCompositeWord(t))
		}
	}
	p.skipSeparators()
	p.expectKeyword("do", "add 'do' after the select list")
	p.withCommandPos(true, func() { s.Body = p.parseStatementList(map[string]bool{"done": true}) })
	s.DonePos = p.expectKeyword("done", "add 'done' to close the select loop")
	return s
}
