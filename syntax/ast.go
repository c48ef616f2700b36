package syntax

import "github.com/philipwilsonTHG/psh-sub003/token"

// File is a fully parsed script or logical line.
type File struct {
	Name  string
	Stmts []*Stmt
}

func (f *File) Pos() token.Pos {
	if len(f.Stmts) == 0 {
		return 0
	}
	return f.Stmts[0].Pos()
}

func (f *File) End() token.Pos {
	if len(f.Stmts) == 0 {
		return 0
	}
	return f.Stmts[len(f.Stmts)-1].End()
}

// Node is implemented by every AST type so walk.go can traverse generically.
type Node interface {
	Pos() token.Pos
	End() token.Pos
}

// Stmt wraps a Command with the modifiers that can surround it: leading
// assignments, redirections, a leading "!", and a trailing "&".
type Stmt struct {
	StmtPos, StmtEnd token.Pos
	Cmd              Command
	Assigns          []*Assign
	Redirs           []*Redirect
	Negated          bool
	Background       bool
}

func (s *Stmt) Pos() token.Pos { return s.StmtPos }
func (s *Stmt) End() token.Pos { return s.StmtEnd }

// Command is any node that can appear as Stmt.Cmd.
type Command interface {
	Node
	commandNode()
}

func (*SimpleCommand) commandNode() {}
func (*Pipeline) commandNode()      {}
func (*AndOrList) commandNode()     {}
func (*If) commandNode()            {}
func (*While) commandNode()         {}
func (*Until) commandNode()         {}
func (*ForIn) commandNode()         {}
func (*CForLoop) commandNode()      {}
func (*Case) commandNode()          {}
func (*Select) commandNode()        {}
func (*Subshell) commandNode()      {}
func (*BraceGroup) commandNode()    {}
func (*FunctionDef) commandNode()   {}
func (*ArithmeticEval) commandNode(){}
func (*EnhancedTest) commandNode()  {}

// StatementList is a sequence of and/or lists separated by ';'/'&'/newline,
// the body of every compound command and of a whole File.
type StatementList struct {
	ListPos, ListEnd token.Pos
	Statements        []*Stmt
}

func (l *StatementList) Pos() token.Pos { return l.ListPos }
func (l *StatementList) End() token.Pos { return l.ListEnd }

// Assign is a "NAME=value" / "NAME+=value" / "name[index]=value" prefix
// assignment, recognized per spec.md §4.4's adjacency rule.
type Assign struct {
	NamePos   token.Pos
	Name      string
	Index     *Word // non-nil for array-element assignment
	Array     bool  // name=(a b c)
	Assoc     bool  // name["k"]=v
	Append    bool  // +=
	Value     *Word
	ArrayVals []*Word // elements of name=(a b c)
}

func (a *Assign) Pos() token.Pos { return a.NamePos }
func (a *Assign) End() token.Pos {
	if a.Value != nil {
		return a.Value.End()
	}
	return a.NamePos
}

// RedirOp enumerates the redirection operators of spec.md §4.2's operator
// table, restricted to the ones valid after a [fd] prefix.
type RedirOp int

const (
	RedirReadFrom  RedirOp = iota // <
	RedirWriteTo                  // >
	RedirAppend                   // >>
	RedirReadWrite                // <>
	RedirClobber                  // >|
	RedirHeredoc                  // <<
	RedirHeredocLop                // <<-
	RedirHeredocStr                // <<<
	RedirDupIn                     // <&
	RedirDupOut                    // >&
	RedirAll                       // &>
	RedirAppAll                    // &>>
	RedirProcIn                    // <(
	RedirProcOut                   // >(
)

// Redirect is one "[fd] op target" redirection, held in the Redirs of the
// Stmt that wraps a simple or compound command.
type Redirect struct {
	OpPos token.Pos
	Op    RedirOp
	Fd    *Word // explicit source fd, e.g. "2>" -- nil means the op's default
	Target *Word // file/fd-duplication target; nil for a pure heredoc
	Heredoc *HeredocBody
}

func (r *Redirect) Pos() token.Pos { return r.OpPos }
func (r *Redirect) End() token.Pos {
	if r.Target != nil {
		return r.Target.End()
	}
	return r.OpPos
}

// HeredocBody is the verbatim body text collected by the lexer for a
// "<<"/"<<-" redirect, linked to its opener only through the key that
// Lexer.QueueHeredoc hands out (kept in Redirect.Target until the parser's
// resolveHeredocs copies the body in) because the body appears on later
// physical lines (spec.md §3 Glossary).
type HeredocBody struct {
	Delim         string
	QuotedDelim   bool // disables expansion of the body at execution time
	StripTabs     bool // "<<-"
	Text          string
}

// SimpleCommand is "argv[0] argv[1:] [redirects] [&]"; prefix assignments
// and redirects live on the enclosing Stmt, not here, matching the
// teacher's CallExpr split (Assigns/Redirs on Stmt, Args on the command).
type SimpleCommand struct {
	Words []*Word
}

func (c *SimpleCommand) Pos() token.Pos { return c.Words[0].Pos() }
func (c *SimpleCommand) End() token.Pos { return c.Words[len(c.Words)-1].End() }

// Pipeline is "[!] cmd1 | cmd2 | ...".
type Pipeline struct {
	Bang     token.Pos // 0 if not negated
	Commands []*Stmt
	PipeAll  []bool // PipeAll[i] true if commands[i] was followed by "|&"
}

func (p *Pipeline) Pos() token.Pos {
	if p.Bang != 0 {
		return p.Bang
	}
	return p.Commands[0].Pos()
}
func (p *Pipeline) End() token.Pos { return p.Commands[len(p.Commands)-1].End() }
func (p *Pipeline) Negated() bool  { return p.Bang != 0 }

// AndOrOp is && or ||.
type AndOrOp int

const (
	AndOp AndOrOp = iota
	OrOp
)

// AndOrList is "pipeline (('&&'|'||') pipeline)*".
type AndOrList struct {
	First *Pipeline
	Rest  []struct {
		Op       AndOrOp
		Pipeline *Pipeline
	}
}

func (a *AndOrList) Pos() token.Pos { return a.First.Pos() }
func (a *AndOrList) End() token.Pos {
	if len(a.Rest) == 0 {
		return a.First.End()
	}
	return a.Rest[len(a.Rest)-1].Pipeline.End()
}

// If is "if cond; then body; elif cond; then body; else body; fi".
type If struct {
	IfPos, FiPos token.Pos
	Cond, Then   *StatementList
	Elifs        []*Elif
	Else         *StatementList
}

func (i *If) Pos() token.Pos { return i.IfPos }
func (i *If) End() token.Pos { return i.FiPos + 2 }

type Elif struct {
	Cond, Then *StatementList
}

// While/Until share a shape; kept as distinct types so the executor's
// closed dispatch switch stays exhaustive and compile-time checked.
type While struct {
	WhilePos, DonePos token.Pos
	Cond, Body        *StatementList
}

func (w *While) Pos() token.Pos { return w.WhilePos }
func (w *While) End() token.Pos { return w.DonePos + 4 }

type Until struct {
	UntilPos, DonePos token.Pos
	Cond, Body        *StatementList
}

func (u *Until) Pos() token.Pos { return u.UntilPos }
func (u *Until) End() token.Pos { return u.DonePos + 4 }

// ForIn is "for name [in words]; do body; done". Items is nil when
// the "in" clause was omitted, meaning "in \"$@\"" per spec.md §4.4.
type ForIn struct {
	ForPos, DonePos token.Pos
	Name            string
	Items           []*Word
	HasIn           bool
	Body            *StatementList
}

func (f *ForIn) Pos() token.Pos { return f.ForPos }
func (f *ForIn) End() token.Pos { return f.DonePos + 4 }

// CForLoop is "for (( init; cond; update )); do body; done".
type CForLoop struct {
	ForPos, DonePos  token.Pos
	Init, Cond, Post string // raw arithmetic text, evaluated lazily by C6
	Body             *StatementList
}

func (c *CForLoop) Pos() token.Pos { return c.ForPos }
func (c *CForLoop) End() token.Pos { return c.DonePos + 4 }

// CaseTerm is the terminator following a case item's body.
type CaseTerm int

const (
	CaseBreak    CaseTerm = iota // ;;
	CaseFallthru                 // ;&
	CaseContinue                 // ;;&
)

type CaseItem struct {
	Patterns []*Word
	Body     *StatementList
	Term     CaseTerm
}

// Case is "case word in pattern) body;; ... esac".
type Case struct {
	CasePos, EsacPos token.Pos
	Word             *Word
	Items            []*CaseItem
}

func (c *Case) Pos() token.Pos { return c.CasePos }
func (c *Case) End() token.Pos { return c.EsacPos + 4 }

// Select is bash's "select name in words; do body; done".
type Select struct {
	SelectPos, DonePos token.Pos
	Name               string
	Items              []*Word
	Body               *StatementList
}

func (s *Select) Pos() token.Pos { return s.SelectPos }
func (s *Select) End() token.Pos { return s.DonePos + 4 }

// Subshell is "( body )", executed in a forked copy of the shell state.
type Subshell struct {
	LparenPos, RparenPos token.Pos
	Body                 *StatementList
}

func (s *Subshell) Pos() token.Pos { return s.LparenPos }
func (s *Subshell) End() token.Pos { return s.RparenPos + 1 }

// BraceGroup is "{ body ; }", executed in the current shell.
type BraceGroup struct {
	LbracePos, RbracePos token.Pos
	Body                 *StatementList
}

func (b *BraceGroup) Pos() token.Pos { return b.LbracePos }
func (b *BraceGroup) End() token.Pos { return b.RbracePos + 1 }

// FunctionDef binds Name to Body in the current scope when executed.
type FunctionDef struct {
	DefPos     token.Pos
	Name       string
	BraceStyle bool // "function name { ... }" vs "name() { ... }"
	Body       *Stmt
}

func (f *FunctionDef) Pos() token.Pos { return f.DefPos }
func (f *FunctionDef) End() token.Pos { return f.Body.End() }

// ArithmeticEval is "((expr))" used as a command; raw text, evaluated
// lazily by C6 at execution time.
type ArithmeticEval struct {
	LeftPos, RightPos token.Pos
	Expr              string
}

func (a *ArithmeticEval) Pos() token.Pos { return a.LeftPos }
func (a *ArithmeticEval) End() token.Pos { return a.RightPos + 2 }

// TestExpr is the dedicated expression grammar inside "[[ ... ]]".
type TestExpr interface {
	Node
	testExprNode()
}

func (*TestUnary) testExprNode()  {}
func (*TestBinary) testExprNode() {}
func (*TestAnd) testExprNode()    {}
func (*TestOr) testExprNode()     {}
func (*TestNot) testExprNode()    {}
func (*TestWord) testExprNode()   {}
func (*TestParen) testExprNode()  {}

type TestUnaryOp int

const (
	TestFileExists TestUnaryOp = iota
	TestRegularFile
	TestDirectory
	TestReadable
	TestWritable
	TestExecutable
	TestNonEmpty
	TestStringEmpty
	TestStringNonEmpty
	TestVarSet
	TestNameRef
	TestOptSet
)

type TestUnary struct {
	OpPos token.Pos
	Op    TestUnaryOp
	X     *Word
}

func (t *TestUnary) Pos() token.Pos { return t.OpPos }
func (t *TestUnary) End() token.Pos { return t.X.End() }

type TestBinaryOp int

const (
	TestStrEQ TestBinaryOp = iota
	TestStrNE
	TestStrLT
	TestStrGT
	TestRegexMatch
	TestArithEQ
	TestArithNE
	TestArithLT
	TestArithLE
	TestArithGT
	TestArithGE
)

type TestBinary struct {
	Op   TestBinaryOp
	X, Y *Word
}

func (t *TestBinary) Pos() token.Pos { return t.X.Pos() }
func (t *TestBinary) End() token.Pos { return t.Y.End() }

type TestAnd struct{ X, Y TestExpr }

func (t *TestAnd) Pos() token.Pos { return t.X.Pos() }
func (t *TestAnd) End() token.Pos { return t.Y.End() }

type TestOr struct{ X, Y TestExpr }

func (t *TestOr) Pos() token.Pos { return t.X.Pos() }
func (t *TestOr) End() token.Pos { return t.Y.End() }

type TestNot struct {
	BangPos token.Pos
	X       TestExpr
}

func (t *TestNot) Pos() token.Pos { return t.BangPos }
func (t *TestNot) End() token.Pos { return t.X.End() }

// TestWord is a bare word used as a truthiness test (non-empty string).
type TestWord struct{ X *Word }

func (t *TestWord) Pos() token.Pos { return t.X.Pos() }
func (t *TestWord) End() token.Pos { return t.X.End() }

type TestParen struct {
	LparenPos, RparenPos token.Pos
	X                     TestExpr
}

func (t *TestParen) Pos() token.Pos { return t.LparenPos }
func (t *TestParen) End() token.Pos { return t.RparenPos + 1 }

// EnhancedTest is "[[ expr ]]" used as a command.
type EnhancedTest struct {
	LbrckPos, RbrckPos token.Pos
	X                  TestExpr
}

func (e *EnhancedTest) Pos() token.Pos { return e.LbrckPos }
func (e *EnhancedTest) End() token.Pos { return e.RbrckPos + 2 }
