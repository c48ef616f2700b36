package syntax

import (
	"fmt"
	"strings"

	"github.com/philipwilsonTHG/psh-sub003/token"
)

// LexError is a recoverable lexical error (unterminated quote/expansion/
// heredoc, invalid operator), reported with a source position.
type LexError struct {
	Filename string
	Pos      token.Position
	Text     string
}

func (e *LexError) Error() string {
	name := e.Filename
	if name == "" {
		name = "psh"
	}
	return fmt.Sprintf("%s:%d:%d: %s", name, e.Pos.Line, e.Pos.Column, e.Text)
}

// LexerContext carries the parser-state hints the lexer's recognizers
// need to disambiguate context-sensitive bytes: whether "<"/">" are
// redirection or test operators, whether a keyword candidate is in
// command position, and the nesting depth inside "(( ))" (so that "<<"/
// ">>" read as shifts rather than heredoc/append operators).
type LexerContext struct {
	CommandPosition bool
	InTestExpr      bool
	ArithDepth      int
	ExtGlob         bool
}

// heredocRequest is queued by the lexer when it sees "<<"/"<<-" so that,
// once the rest of the logical line has been tokenized, the lexer can
// consume the following physical lines up to the delimiter.
type heredocRequest struct {
	key       string
	delim     string
	quoted    bool
	stripTabs bool
}

// Token is the C2 output unit: a typed token carrying quote, expansion,
// and adjacency metadata, per spec.md §3.
type Token struct {
	Kind           token.Kind
	Raw            string
	Word           *Word // set for Kind == token.WORD / token.ASSIGNW
	Start, End     token.Pos
	Line, Column   int
	AdjacentToPrev bool
	HeredocKey     string
}

// Lexer is the finite state machine of spec.md §4.2. It is driven
// token-at-a-time by the parser, which supplies LexerContext hints
// before each call because only the parser knows whether it is inside
// "[[ ]]", in command position, etc.
type Lexer struct {
	src      *source
	filename string

	lastEnd token.Pos
	atLineStart bool

	pendingHeredocs []heredocRequest
	heredocBodies   map[string]*HeredocBody
	heredocSeq      int

	Errs []*LexError
}

func NewLexer(filename, src string) *Lexer {
	return &Lexer{
		src:           newSource(stripLineContinuations(src)),
		filename:      filename,
		atLineStart:   true,
		heredocBodies: map[string]*HeredocBody{},
	}
}

func (l *Lexer) errorf(pos token.Pos, format string, args ...any) {
	line, col := l.src.lineCol(pos)
	l.Errs = append(l.Errs, &LexError{
		Filename: l.filename,
		Pos:      token.Position{Offset: int(pos) - 1, Line: line, Column: col},
		Text:     fmt.Sprintf(format, args...),
	})
}

// HeredocBody returns the collected body for a heredoc key, once the
// owning logical line has been fully tokenized.
func (l *Lexer) HeredocBody(key string) *HeredocBody { return l.heredocBodies[key] }

var operatorTable = []struct {
	s string
	k token.Kind
}{
	// Longest-match first within each starting byte.
	{"<<<", token.WHEREDOC}, {"<<-", token.DHEREDOC}, {"<<", token.SHL}, {"<&", token.DPLIN}, {"<(", token.CMDIN}, {"<>", token.RDRINOUT}, {"<", token.LSS},
	{">>", token.SHR}, {">&", token.DPLOUT}, {">(", token.CMDOUT}, {">", token.GTR},
	{"&>>", token.APPALL}, {"&>", token.RDRALL}, {"&&", token.LAND}, {"&", token.AND},
	{"||", token.LOR}, {"|&", token.PIPEALL}, {"|", token.OR},
	{";;&", token.DSEMIFALL}, {";;", token.DSEMICOLON}, {";&", token.SEMIFALL}, {";", token.SEMICOLON},
	{"((", token.DLPAREN}, {"(", token.LPAREN},
	{"))", token.DRPAREN}, {")", token.RPAREN},
	{"[[", token.DLBRCK}, {"]]", token.DRBRCK},
	{"{", token.LBRACE}, {"}", token.RBRACE},
}

// Next produces the next token given the current parser-state hints.
// Returns a Kind == token.EOF token when the source is exhausted.
func (l *Lexer) Next(ctx LexerContext) Token {
	prevEnd := l.lastEnd
	l.skipBlanksAndComments()
	start := l.src.pos()
	adjacent := prevEnd != 0 && prevEnd == start && !l.atLineStart

	if l.src.atEOF() {
		return l.finish(Token{Kind: token.EOF, Start: start, End: start, AdjacentToPrev: adjacent})
	}

	c := l.src.peek(0)

	if c == '\n' {
		l.src.advance(1)
		l.atLineStart = true
		tok := l.finish(Token{Kind: token.NEWLINE, Raw: "\n", Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
		l.consumePendingHeredocs()
		return tok
	}
	l.atLineStart = false

	// Redirection fd prefix digits are handled by the parser peeking at a
	// preceding bare WORD token of all-digits; the lexer itself never
	// special-cases them.

	if op, ok := l.matchOperator(ctx); ok {
		return l.finish(Token{Kind: op.k, Raw: op.s, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
	}

	if c == '\'' {
		return l.lexSingleQuoted(start, adjacent)
	}
	if c == '"' {
		return l.lexDoubleQuoted(start, adjacent)
	}
	if c == '`' {
		return l.lexBackquoted(start, adjacent)
	}
	if c == '$' {
		return l.lexDollar(start, adjacent, ctx)
	}

	// Extended-glob patterns: ?(...) *(...) +(...) @(...) !(...)
	if ctx.ExtGlob && strings.IndexByte("?*+@!", c) >= 0 && l.src.peek(1) == '(' {
		if w, ok := l.tryExtGlob(); ok {
			return l.finish(Token{Kind: token.WORD, Word: w, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
		}
	}

	return l.lexBareWord(start, adjacent, ctx)
}

func (l *Lexer) finish(t Token) Token {
	t.Line, t.Column = l.src.lineCol(t.Start)
	l.lastEnd = t.End
	return t
}

func (l *Lexer) skipBlanksAndComments() {
	for {
		for !l.src.atEOF() {
			c := l.src.peek(0)
			if c == ' ' || c == '\t' {
				l.src.advance(1)
				continue
			}
			break
		}
		if l.src.peek(0) == '#' {
			for !l.src.atEOF() && l.src.peek(0) != '\n' {
				l.src.advance(1)
			}
			continue
		}
		break
	}
}

func (l *Lexer) matchOperator(ctx LexerContext) (op struct {
	s string
	k token.Kind
}, ok bool) {
	rest := l.src.peekStr(3)
	for _, cand := range operatorTable {
		if strings.HasPrefix(rest, cand.s) {
			// Inside (( )), "<<"/">>" are shifts, not heredoc/append; let
			// the arithmetic tokenizer (expand.arith) own them instead.
			if ctx.ArithDepth > 0 && (cand.k == token.SHL || cand.k == token.SHR || cand.k == token.DHEREDOC) {
				continue
			}
			l.src.advance(len(cand.s))
			return cand, true
		}
	}
	return op, false
}

// lexSingleQuoted consumes '...' verbatim with no expansion metadata.
func (l *Lexer) lexSingleQuoted(start token.Pos, adjacent bool) Token {
	l.src.advance(1) // opening '
	valStart := l.src.pos()
	for {
		if l.src.atEOF() {
			l.errorf(start, "unterminated single-quoted string")
			break
		}
		if l.src.peek(0) == '\'' {
			break
		}
		l.src.advance(1)
	}
	val := l.src.src[valStart-1 : l.src.pos()-1]
	if !l.src.atEOF() {
		l.src.advance(1) // closing '
	}
	w := &Word{Parts: []WordPart{&Literal{ValuePos: start, ValueEnd: l.src.pos(), Value: val, Quoted: true, QuoteChar: '\''}}}
	return l.finish(Token{Kind: token.WORD, Word: w, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
}

// lexDoubleQuoted decomposes "..." into literal runs and nested
// $var/${...}/$(...)/`...`/$(( )) parts, quote-aware so that closing
// delimiters inside those nested expansions are not mistaken for the
// closing double quote.
func (l *Lexer) lexDoubleQuoted(start token.Pos, adjacent bool) Token {
	l.src.advance(1) // opening "
	var parts []WordPart
	for {
		if l.src.atEOF() {
			l.errorf(start, "unterminated double-quoted string")
			break
		}
		c := l.src.peek(0)
		if c == '"' {
			l.src.advance(1)
			break
		}
		if c == '\\' {
			// Backslash retains its escaping meaning only before $ ` " \ or
			// newline inside double quotes; otherwise it is literal.
			next := l.src.peek(1)
			if strings.IndexByte("$`\"\\\n", next) >= 0 {
				litStart := l.src.pos()
				l.src.advance(2)
				val := unescapeOne(next)
				parts = append(parts, &Literal{ValuePos: litStart, ValueEnd: l.src.pos(), Value: val, Quoted: true, QuoteChar: '"'})
				continue
			}
			litStart := l.src.pos()
			l.src.advance(1)
			parts = append(parts, &Literal{ValuePos: litStart, ValueEnd: l.src.pos(), Value: "\\", Quoted: true, QuoteChar: '"'})
			continue
		}
		if c == '$' {
			parts = append(parts, l.lexDollarPart(true, '"'))
			continue
		}
		if c == '`' {
			parts = append(parts, l.lexBackquotedPart(true, '"'))
			continue
		}
		litStart := l.src.pos()
		for !l.src.atEOF() {
			c := l.src.peek(0)
			if c == '"' || c == '$' || c == '`' || c == '\\' {
				break
			}
			l.src.advance(1)
		}
		parts = append(parts, &Literal{ValuePos: litStart, ValueEnd: l.src.pos(), Value: l.src.src[litStart-1 : l.src.pos()-1], Quoted: true, QuoteChar: '"'})
	}
	dq := &DoubleQuoted{LeftPos: start, RightPos: l.src.pos() - 1, Parts: parts}
	w := &Word{Parts: []WordPart{dq}}
	return l.finish(Token{Kind: token.WORD, Word: w, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
}

func unescapeOne(c byte) string {
	if c == '\n' {
		return ""
	}
	return string(c)
}

func (l *Lexer) lexBackquoted(start token.Pos, adjacent bool) Token {
	part := l.lexBackquotedPart(false, 0)
	w := &Word{Parts: []WordPart{part}}
	return l.finish(Token{Kind: token.WORD, Word: w, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
}

func (l *Lexer) lexBackquotedPart(quoted bool, qc QuoteChar) WordPart {
	start := l.src.pos()
	l.src.advance(1) // `
	bodyStart := l.src.pos()
	for {
		if l.src.atEOF() {
			l.errorf(start, "unterminated backquoted command substitution")
			break
		}
		if l.src.peek(0) == '`' {
			break
		}
		if l.src.peek(0) == '\\' && (l.src.peek(1) == '`' || l.src.peek(1) == '\\' || l.src.peek(1) == '$') {
			l.src.advance(2)
			continue
		}
		l.src.advance(1)
	}
	body := l.src.src[bodyStart-1 : l.src.pos()-1]
	if !l.src.atEOF() {
		l.src.advance(1)
	}
	stmts, errs := ParseStatements(l.filename, body)
	l.Errs = append(l.Errs, errs...)
	return &CommandSubstitution{LeftPos: start, RightPos: l.src.pos() - 1, Stmts: stmts, Backquoted: true, Quoted: quoted, QuoteChar: qc}
}

// lexDollar dispatches the family of "$..." forms at top level (outside
// double quotes); lexDollarPart is the equivalent used inside them.
func (l *Lexer) lexDollar(start token.Pos, adjacent bool, ctx LexerContext) Token {
	part := l.lexDollarPart(false, 0)
	if lit, ok := part.(*Literal); ok && lit.Value == "$" {
		// Bare trailing '$' with nothing recognizable after it: literal.
		w := &Word{Parts: []WordPart{lit}}
		return l.finish(Token{Kind: token.WORD, Word: w, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
	}
	w := &Word{Parts: []WordPart{part}}
	// A bare word may continue right after the expansion (e.g. "$x.txt");
	// fold any immediately-adjacent bare-word continuation into this Word.
	for !l.src.atEOF() && isWordByte(l.src.peek(0)) {
		lit := l.scanLiteralRun(ctx)
		w.Parts = append(w.Parts, lit)
	}
	return l.finish(Token{Kind: token.WORD, Word: w, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
}

func (l *Lexer) lexDollarPart(quoted bool, qc QuoteChar) WordPart {
	start := l.src.pos()
	l.src.advance(1) // $
	c := l.src.peek(0)
	switch {
	case c == '(' && l.src.peek(1) == '(':
		return l.lexArithExpansion(start, quoted, qc)
	case c == '(':
		return l.lexCmdSubst(start, quoted, qc)
	case c == '{':
		return l.lexParamExpansion(start, quoted, qc)
	case isNameStart(c):
		return l.lexSimpleVar(start, quoted, qc)
	case isSpecialParam(c):
		l.src.advance(1)
		return &VariableExpansion{DollarPos: start, EndPos: l.src.pos(), Name: string(c), Quoted: quoted, QuoteChar: qc}
	default:
		return &Literal{ValuePos: start, ValueEnd: l.src.pos(), Value: "$", Quoted: quoted, QuoteChar: qc}
	}
}

func isSpecialParam(c byte) bool {
	return strings.IndexByte("@*#?$!-0123456789", c) >= 0
}

func (l *Lexer) lexSimpleVar(start token.Pos, quoted bool, qc QuoteChar) WordPart {
	nameStart := l.src.pos()
	for !l.src.atEOF() && isNameByte(l.src.peek(0)) {
		l.src.advance(1)
	}
	name := l.src.src[nameStart-1 : l.src.pos()-1]
	return &VariableExpansion{DollarPos: start, EndPos: l.src.pos(), Name: name, Quoted: quoted, QuoteChar: qc}
}

func (l *Lexer) lexCmdSubst(start token.Pos, quoted bool, qc QuoteChar) WordPart {
	l.src.advance(1) // (
	bodyStart := l.src.pos()
	depth := 1
	for depth > 0 {
		if l.src.atEOF() {
			l.errorf(start, "unterminated command substitution")
			break
		}
		switch l.src.peek(0) {
		case '(':
			depth++
			l.src.advance(1)
		case ')':
			depth--
			l.src.advance(1)
		case '\'':
			l.skipSingleQuotedSpan()
		case '"':
			l.skipDoubleQuotedSpan()
		default:
			l.src.advance(1)
		}
	}
	bodyEnd := l.src.pos() - 1
	body := l.src.src[bodyStart-1 : bodyEnd-1]
	stmts, errs := ParseStatements(l.filename, body)
	l.Errs = append(l.Errs, errs...)
	return &CommandSubstitution{LeftPos: start, RightPos: l.src.pos() - 1, Stmts: stmts, Quoted: quoted, QuoteChar: qc}
}

func (l *Lexer) lexArithExpansion(start token.Pos, quoted bool, qc QuoteChar) WordPart {
	l.src.advance(2) // ((
	bodyStart := l.src.pos()
	depth := 1
	for depth > 0 {
		if l.src.atEOF() {
			l.errorf(start, "unterminated arithmetic expansion")
			break
		}
		if l.src.peek(0) == '(' {
			depth++
			l.src.advance(1)
			continue
		}
		if l.src.peek(0) == ')' && l.src.peek(1) == ')' {
			depth--
			l.src.advance(2)
			continue
		}
		if l.src.peek(0) == ')' {
			depth--
			l.src.advance(1)
			continue
		}
		l.src.advance(1)
	}
	bodyEnd := l.src.pos() - 2
	if bodyEnd < bodyStart {
		bodyEnd = bodyStart
	}
	expr := l.src.src[bodyStart-1 : bodyEnd-1]
	return &ArithmeticExpansion{LeftPos: start, RightPos: l.src.pos() - 1, Expr: expr, Quoted: quoted, QuoteChar: qc}
}

// lexParamExpansion parses "${...}" per spec.md §4.3: array subscripts
// before operator detection, earliest-position matching over the fixed
// operator table, falling back to a bare VariableExpansion when there is
// no operator at all.
func (l *Lexer) lexParamExpansion(start token.Pos, quoted bool, qc QuoteChar) WordPart {
	l.src.advance(1) // {
	indirect := false
	if l.src.peek(0) == '!' {
		indirect = true
		l.src.advance(1)
	}
	lengthFlag := false
	if l.src.peek(0) == '#' && l.src.peek(1) != '}' && !isParamOpStart(l.src.peek(1)) {
		lengthFlag = true
		l.src.advance(1)
	}
	nameStart := l.src.pos()
	for !l.src.atEOF() && isNameByte(l.src.peek(0)) {
		l.src.advance(1)
	}
	if l.src.pos() == nameStart && isSpecialParam(l.src.peek(0)) {
		l.src.advance(1)
	}
	name := l.src.src[nameStart-1 : l.src.pos()-1]

	var index *Word
	if l.src.peek(0) == '[' {
		l.src.advance(1)
		idxStart := l.src.pos()
		depth := 1
		for depth > 0 && !l.src.atEOF() {
			switch l.src.peek(0) {
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					break
				}
			}
			if depth == 0 {
				break
			}
			l.src.advance(1)
		}
		idxText := l.src.src[idxStart-1 : l.src.pos()-1]
		index = &Word{Parts: []WordPart{&Literal{ValuePos: idxStart, ValueEnd: l.src.pos(), Value: idxText}}}
		if l.src.peek(0) == ']' {
			l.src.advance(1)
		}
	}

	op, operandNeeded := l.matchParamOperator()
	var operand *Word
	if operandNeeded {
		operand = l.scanBracedOperand()
	}
	rbrace := l.src.pos()
	if l.src.peek(0) == '}' {
		l.src.advance(1)
	} else {
		l.errorf(start, "unterminated parameter expansion")
	}

	if op == OpNone && !lengthFlag && !indirect && index == nil {
		return &VariableExpansion{DollarPos: start, EndPos: l.src.pos(), Name: name, Quoted: quoted, QuoteChar: qc}
	}
	if lengthFlag {
		op = OpLength
	}
	return &ParameterExpansion{
		DollarPos: start, RbracePos: rbrace, Name: name, Index: index,
		Operator: op, Operand: operand, Indirect: indirect, Quoted: quoted, QuoteChar: qc,
	}
}

func isParamOpStart(c byte) bool {
	return strings.IndexByte(":-=?+#%/^,", c) >= 0
}

// matchParamOperator implements the earliest-position operator table of
// spec.md §4.3: {:-, :=, :?, :+, ##, #, %%, %, ^^, ^, ,,, ,, /#, /%, //, /, :}.
func (l *Lexer) matchParamOperator() (ParamOperator, bool) {
	type cand struct {
		s  string
		op ParamOperator
		needsOperand bool
	}
	table := []cand{
		{":-", OpDefault, true}, {":=", OpAssignDefault, true},
		{":?", OpError, true}, {":+", OpAlternate, true},
		{"##", OpRemovePrefixL, true}, {"#", OpRemovePrefix, true},
		{"%%", OpRemoveSuffixL, true}, {"%", OpRemoveSuffix, true},
		{"^^", OpUpperAll, false}, {"^", OpUpperFirst, false},
		{",,", OpLowerAll, false}, {",", OpLowerFirst, false},
		{"/#", OpReplacePrefix, true}, {"/%", OpReplaceSuffix, true},
		{"//", OpReplaceAll, true}, {"/", OpReplace, true},
		{":", OpSubstring, true},
		{"-", OpDefault, true}, {"=", OpAssignDefault, true},
		{"?", OpError, true}, {"+", OpAlternate, true},
	}
	rest := l.src.peekStr(2)
	for _, c := range table {
		if strings.HasPrefix(rest, c.s) {
			l.src.advance(len(c.s))
			return c.op, c.needsOperand
		}
	}
	return OpNone, false
}

// scanBracedOperand reads the Word that forms a ParamExp operand, up to
// (but not past) the closing '}', itself expansion-aware.
func (l *Lexer) scanBracedOperand() *Word {
	var parts []WordPart
	for !l.src.atEOF() && l.src.peek(0) != '}' {
		switch l.src.peek(0) {
		case '\'':
			tok := l.lexSingleQuoted(l.src.pos(), false)
			parts = append(parts, tok.Word.Parts...)
		case '"':
			tok := l.lexDoubleQuoted(l.src.pos(), false)
			parts = append(parts, tok.Word.Parts...)
		case '$':
			parts = append(parts, l.lexDollarPart(false, 0))
		default:
			litStart := l.src.pos()
			for !l.src.atEOF() {
				c := l.src.peek(0)
				if c == '}' || c == '$' || c == '\'' || c == '"' {
					break
				}
				if c == '\\' && l.src.peek(1) != 0 {
					l.src.advance(2)
					continue
				}
				l.src.advance(1)
			}
			parts = append(parts, &Literal{ValuePos: litStart, ValueEnd: l.src.pos(), Value: l.src.src[litStart-1 : l.src.pos()-1]})
		}
	}
	return &Word{Parts: parts}
}

func (l *Lexer) tryExtGlob() (*Word, bool) {
	start := l.src.pos()
	op := l.src.peek(0)
	l.src.advance(2) // op (
	depth := 1
	patStart := l.src.pos()
	for depth > 0 {
		if l.src.atEOF() {
			l.errorf(start, "unterminated extended glob pattern")
			return nil, false
		}
		switch l.src.peek(0) {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				break
			}
		}
		if depth == 0 {
			break
		}
		l.src.advance(1)
	}
	pat := l.src.src[patStart-1 : l.src.pos()-1]
	l.src.advance(1) // )
	w := &Word{Parts: []WordPart{&ExtGlobPart{StartPos: start, EndPos: l.src.pos(), Op: op,
		Pattern: &Word{Parts: []WordPart{&Literal{ValuePos: patStart, ValueEnd: l.src.pos() - 1, Value: pat}}}}}}
	return w, true
}

func (l *Lexer) skipSingleQuotedSpan() {
	l.src.advance(1)
	for !l.src.atEOF() && l.src.peek(0) != '\'' {
		l.src.advance(1)
	}
	if !l.src.atEOF() {
		l.src.advance(1)
	}
}

func (l *Lexer) skipDoubleQuotedSpan() {
	l.src.advance(1)
	for !l.src.atEOF() && l.src.peek(0) != '"' {
		if l.src.peek(0) == '\\' {
			l.src.advance(2)
			continue
		}
		l.src.advance(1)
	}
	if !l.src.atEOF() {
		l.src.advance(1)
	}
}

func isWordByte(c byte) bool {
	if c == 0 {
		return false
	}
	if strings.IndexByte(" \t\n|&;<>()$'\"`\\", c) >= 0 {
		return false
	}
	return true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isNameByte(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// scanLiteralRun scans a run of bare-word bytes, stopping at whitespace,
// operator-starting bytes, or an unescaped '$'/quote. Backslash escapes
// outside quotes remove the backslash and keep the escaped byte literal.
func (l *Lexer) scanLiteralRun(ctx LexerContext) *Literal {
	start := l.src.pos()
	var b strings.Builder
	for !l.src.atEOF() {
		c := l.src.peek(0)
		if c == '\\' && l.src.peek(1) != 0 {
			b.WriteByte(l.src.peek(1))
			l.src.advance(2)
			continue
		}
		if !isWordByte(c) {
			break
		}
		if c == '~' && b.Len() > 0 {
			// '~' mid-word is never a tilde expansion site.
		}
		b.WriteByte(c)
		l.src.advance(1)
	}
	return &Literal{ValuePos: start, ValueEnd: l.src.pos(), Value: b.String()}
}

func (l *Lexer) lexBareWord(start token.Pos, adjacent bool, ctx LexerContext) Token {
	var parts []WordPart
	for !l.src.atEOF() {
		c := l.src.peek(0)
		switch {
		case c == '\'':
			tok := l.lexSingleQuoted(l.src.pos(), false)
			parts = append(parts, tok.Word.Parts...)
			continue
		case c == '"':
			tok := l.lexDoubleQuoted(l.src.pos(), false)
			parts = append(parts, tok.Word.Parts...)
			continue
		case c == '`':
			parts = append(parts, l.lexBackquotedPart(false, 0))
			continue
		case c == '$':
			parts = append(parts, l.lexDollarPart(false, 0))
			continue
		case ctx.ExtGlob && strings.IndexByte("?*+@!", c) >= 0 && l.src.peek(1) == '(':
			if w, ok := l.tryExtGlob(); ok {
				parts = append(parts, w.Parts...)
				continue
			}
		}
		if !isWordByte(c) {
			goto done
		}
		if tildeStart := len(parts) == 0 && c == '~'; tildeStart {
			if t, ok := l.tryTilde(); ok {
				parts = append(parts, t)
				continue
			}
		}
		parts = append(parts, l.scanLiteralRun(ctx))
	}
done:
	if len(parts) == 0 {
		// Single stray byte the operator/quote scanners didn't claim
		// (e.g. a lone ':' in most contexts): emit as literal so the
		// stream always makes progress.
		c := l.src.peek(0)
		litStart := l.src.pos()
		l.src.advance(1)
		parts = append(parts, &Literal{ValuePos: litStart, ValueEnd: l.src.pos(), Value: string(c)})
	}
	word := &Word{Parts: mergeLiterals(parts)}
	return l.finish(Token{Kind: token.WORD, Word: word, Start: start, End: l.src.pos(), AdjacentToPrev: adjacent})
}

func (l *Lexer) tryTilde() (WordPart, bool) {
	start := l.src.pos()
	save := l.src.savePos()
	l.src.advance(1) // ~
	userStart := l.src.pos()
	for !l.src.atEOF() && isNameByte(l.src.peek(0)) {
		l.src.advance(1)
	}
	next := l.src.peek(0)
	if next != 0 && next != '/' && !isWordSep(next) {
		l.src.restorePos(save)
		return nil, false
	}
	user := l.src.src[userStart-1 : l.src.pos()-1]
	return &TildePart{TildePos: start, EndPos: l.src.pos(), User: user}, true
}

func isWordSep(c byte) bool { return !isWordByte(c) }

func isIdentifier(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

// mergeLiterals coalesces consecutive unquoted Literal parts produced by
// tilde/escape handling so a Word's Parts stay minimal.
func mergeLiterals(parts []WordPart) []WordPart {
	var out []WordPart
	for _, p := range parts {
		if lit, ok := p.(*Literal); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*Literal); ok && prev.Quoted == lit.Quoted && prev.QuoteChar == lit.QuoteChar {
				prev.Value += lit.Value
				prev.ValueEnd = lit.ValueEnd
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// QueueHeredoc is called by the parser immediately after it parses a
// "<<"/"<<-" redirect operator and its delimiter word, so the lexer can
// fold the heredoc body collection into the end of the current logical
// line (spec.md §4.2).
func (l *Lexer) QueueHeredoc(delim string, quotedDelim, stripTabs bool) string {
	l.heredocSeq++
	key := fmt.Sprintf("heredoc#%d", l.heredocSeq)
	l.pendingHeredocs = append(l.pendingHeredocs, heredocRequest{key: key, delim: delim, quoted: quotedDelim, stripTabs: stripTabs})
	return key
}

// consumePendingHeredocs runs after a NEWLINE token is produced, reading
// subsequent physical lines (in left-to-right request order) until each
// delimiter line is seen.
func (l *Lexer) consumePendingHeredocs() {
	reqs := l.pendingHeredocs
	l.pendingHeredocs = nil
	for _, req := range reqs {
		var b strings.Builder
		for {
			if l.src.atEOF() {
				l.errorf(l.src.pos(), "unterminated heredoc (wanted %q)", req.delim)
				break
			}
			lineStart := l.src.pos()
			for !l.src.atEOF() && l.src.peek(0) != '\n' {
				l.src.advance(1)
			}
			line := l.src.src[lineStart-1 : l.src.pos()-1]
			hadNL := l.src.peek(0) == '\n'
			if hadNL {
				l.src.advance(1)
			}
			check := line
			if req.stripTabs {
				check = strings.TrimLeft(line, "\t")
			}
			if check == req.delim {
				break
			}
			body := line
			if req.stripTabs {
				body = strings.TrimLeft(line, "\t")
			}
			b.WriteString(body)
			b.WriteByte('\n')
			if !hadNL {
				break
			}
		}
		l.heredocBodies[req.key] = &HeredocBody{Delim: req.delim, QuotedDelim: req.quoted, StripTabs: req.stripTabs, Text: b.String()}
	}
	l.atLineStart = true
}
