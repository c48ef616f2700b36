package syntax

import "github.com/philipwilsonTHG/psh-sub003/token"

// parseEnhancedTest parses "[[ expr ]]" per spec.md §4.4: binary
// string/numeric/regex comparisons, unary file tests, logical
// and/or/not, and parenthesized grouping, entirely inside the
// `in_test_expr` flag so "<"/">" lex as comparison operators rather than
// redirections.
func (p *Parser) parseEnhancedTest() Command {
	lb := p.next() // [[
	var expr TestExpr
	p.withTestExpr(true, func() {
		expr = p.parseTestOr()
	})
	rb := p.expectWordOrKind(token.DRBRCK, "]]", "add ']]' to close the test expression")
	return &EnhancedTest{LbrckPos: lb.Start, RbrckPos: rb, X: expr}
}

func (p *Parser) parseTestOr() TestExpr {
	x := p.parseTestAnd()
	for p.peek().Kind == token.LOR {
		p.next()
		y := p.parseTestAnd()
		x = &TestOr{X: x, Y: y}
	}
	return x
}

func (p *Parser) parseTestAnd() TestExpr {
	x := p.parseTestUnaryExpr()
	for p.peek().Kind == token.LAND {
		p.next()
		y := p.parseTestUnaryExpr()
		x = &TestAnd{X: x, Y: y}
	}
	return x
}

var testUnaryOps = map[string]TestUnaryOp{
	"-e": TestFileExists, "-f": TestRegularFile, "-d": TestDirectory,
	"-r": TestReadable, "-w": TestWritable, "-x": TestExecutable,
	"-s": TestNonEmpty, "-z": TestStringEmpty, "-n": TestStringNonEmpty,
	"-v": TestVarSet, "-R": TestNameRef, "-o": TestOptSet,
}

var testBinaryOps = map[string]TestBinaryOp{
	"==": TestStrEQ, "=": TestStrEQ, "!=": TestStrNE, "<": TestStrLT, ">": TestStrGT,
	"=~": TestRegexMatch,
	"-eq": TestArithEQ, "-ne": TestArithNE, "-lt": TestArithLT,
	"-le": TestArithLE, "-gt": TestArithGT, "-ge": TestArithGE,
}

func (p *Parser) parseTestUnaryExpr() TestExpr {
	t := p.peek()
	if t.Kind == token.NOT || (t.Kind == token.WORD && t.Word.Lit() == "!") {
		bang := t.Start
		p.next()
		return &TestNot{BangPos: bang, X: p.parseTestUnaryExpr()}
	}
	if t.Kind == token.LPAREN {
		p.next()
		inner := p.parseTestOr()
		rp := p.expect(token.RPAREN, "expected ')' in test expression")
		return &TestParen{LparenPos: t.Start, RparenPos: rp, X: inner}
	}
	if t.Kind == token.WORD {
		if op, ok := testUnaryOps[t.Word.Lit()]; ok {
			p.next()
			operand := p.peek()
			p.next()
			return &TestUnary{OpPos: t.Start, Op: op, X: p.buildCompositeWord(operand)}
		}
	}
	// word [binary-op word]
	left := p.parseTestWord()
	nt := p.peek()
	opLit := nt.Raw
	if nt.Kind == token.WORD {
		opLit = nt.Word.Lit()
	}
	if op, ok := testBinaryOps[opLit]; ok && (nt.Kind == token.WORD || nt.Kind == token.LSS || nt.Kind == token.GTR || nt.Kind == token.TREMATCH) {
		p.next()
		right := p.parseTestWord()
		return &TestBinary{Op: op, X: left, Y: right}
	}
	return &TestWord{X: left}
}

func (p *Parser) parseTestWord() *Word {
	t := p.peek()
	p.next()
	return p.buildCompositeWord(t)
}
