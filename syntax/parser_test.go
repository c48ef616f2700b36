package syntax

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseSimpleCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "echo hello world\n")
	c.Assert(errs, qt.HasLen, 0)
	c.Assert(f.Stmts, qt.HasLen, 1)

	call, ok := f.Stmts[0].Cmd.(*SimpleCommand)
	c.Assert(ok, qt.IsTrue)
	c.Assert(call.Words, qt.HasLen, 3)
	c.Assert(call.Words[0].Lit(), qt.Equals, "echo")
	c.Assert(call.Words[1].Lit(), qt.Equals, "hello")
	c.Assert(call.Words[2].Lit(), qt.Equals, "world")
}

func TestParsePipeline(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "foo | bar | baz\n")
	c.Assert(errs, qt.HasLen, 0)
	c.Assert(f.Stmts, qt.HasLen, 1)

	pipe, ok := f.Stmts[0].Cmd.(*Pipeline)
	c.Assert(ok, qt.IsTrue)
	c.Assert(pipe.Commands, qt.HasLen, 3)
}

func TestParseIfElse(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "if foo; then bar; else baz; fi\n")
	c.Assert(errs, qt.HasLen, 0)

	ifc, ok := f.Stmts[0].Cmd.(*If)
	c.Assert(ok, qt.IsTrue)
	c.Assert(ifc.Then.Statements, qt.HasLen, 1)
	c.Assert(ifc.Else.Statements, qt.HasLen, 1)
}

func TestParseForIn(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "for x in a b c; do echo $x; done\n")
	c.Assert(errs, qt.HasLen, 0)

	forc, ok := f.Stmts[0].Cmd.(*ForIn)
	c.Assert(ok, qt.IsTrue)
	c.Assert(forc.Name, qt.Equals, "x")
	c.Assert(forc.Items, qt.HasLen, 3)
}

func TestParseFunctionDef(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "greet() { echo hi; }\n")
	c.Assert(errs, qt.HasLen, 0)

	fn, ok := f.Stmts[0].Cmd.(*FunctionDef)
	c.Assert(ok, qt.IsTrue)
	c.Assert(fn.Name, qt.Equals, "greet")
}

func TestParseAssignmentPrefix(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "FOO=bar echo $FOO\n")
	c.Assert(errs, qt.HasLen, 0)
	c.Assert(f.Stmts[0].Assigns, qt.HasLen, 1)
	c.Assert(f.Stmts[0].Assigns[0].Name, qt.Equals, "FOO")
}

func TestParseUnterminatedIfReportsError(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	_, errs := Parse("<test>", "if true; then echo hi\n")
	c.Assert(errs, qt.Not(qt.HasLen), 0)
}

func TestParseCaseStatement(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	f, errs := Parse("<test>", "case $x in foo) echo a ;; *) echo b ;; esac\n")
	c.Assert(errs, qt.HasLen, 0)

	cs, ok := f.Stmts[0].Cmd.(*Case)
	c.Assert(ok, qt.IsTrue)
	c.Assert(cs.Items, qt.HasLen, 2)
}
