package interp_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/philipwilsonTHG/psh-sub003/interp"
)

// fakeExecHandler stands in for /bin/echo and friends for simple commands:
// it recognizes "echo" and fails everything else, matching the
// external-collaborator boundary spec.md draws around real processes.
// Stages of a multi-command pipeline do not go through the exec handler,
// so TestShellPipeline runs the real echo found on PATH.
func fakeExecHandler(ctx context.Context, hc interp.HandlerContext, args []string) error {
	switch args[0] {
	case "echo":
		fmt.Fprintln(hc.Stdout, strings.Join(args[1:], " "))
		return nil
	default:
		fmt.Fprintf(hc.Stderr, "%s: not found\n", args[0])
		return interp.NewExitStatus(127)
	}
}

func run(t *testing.T, src string) (string, int) {
	t.Helper()
	var out strings.Builder
	r, err := interp.NewRunner(
		interp.WithStdIO(strings.NewReader(""), &out, &out),
		interp.WithExecHandler(fakeExecHandler),
	)
	qt.New(t).Assert(err, qt.IsNil)
	status, _ := interp.Shell(context.Background(), r, "<test>", src)
	return out.String(), status
}

func TestShellSimpleCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, status := run(t, `echo hello world`)
	c.Assert(out, qt.Equals, "hello world\n")
	c.Assert(status, qt.Equals, 0)
}

func TestShellVariableExpansion(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `foo=abc; echo $foo`)
	c.Assert(out, qt.Equals, "abc\n")
}

func TestShellArithmeticAndConcat(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `foo=abc
for i in 1 2 3; do
  foo+=$i
done
echo $foo $((2 + 3))`)
	c.Assert(out, qt.Equals, "abc123 5\n")
}

func TestShellIfElse(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `if true; then echo yes; else echo no; fi`)
	c.Assert(out, qt.Equals, "yes\n")

	out, _ = run(t, `if false; then echo yes; else echo no; fi`)
	c.Assert(out, qt.Equals, "no\n")
}

func TestShellWhileLoop(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `i=0
while [[ $i -lt 3 ]]; do
  echo $i
  i=$((i + 1))
done`)
	c.Assert(out, qt.Equals, "0\n1\n2\n")
}

func TestShellCaseStatement(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `x=bar
case $x in
  foo) echo matched-foo ;;
  bar|baz) echo matched-bar ;;
  *) echo no-match ;;
esac`)
	c.Assert(out, qt.Equals, "matched-bar\n")
}

func TestShellFunctionCall(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `greet() {
  echo "hi $1"
}
greet world`)
	c.Assert(out, qt.Equals, "hi world\n")
}

func TestShellPipeline(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, status := run(t, `echo foo | echo bar`)
	c.Assert(out, qt.Equals, "bar\n")
	c.Assert(status, qt.Equals, 0)
}

func TestShellCommandSubstitution(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `x=$(echo inner); echo "got: $x"`)
	c.Assert(out, qt.Equals, "got: inner\n")
}

func TestShellBreakContinue(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	out, _ := run(t, `for i in 1 2 3 4 5; do
  if [[ $i -eq 2 ]]; then continue; fi
  if [[ $i -eq 4 ]]; then break; fi
  echo $i
done`)
	c.Assert(out, qt.Equals, "1\n3\n")
}

func TestShellStdoutDupToStderr(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	var stdout, stderr strings.Builder
	r, err := interp.NewRunner(
		interp.WithStdIO(strings.NewReader(""), &stdout, &stderr),
		interp.WithExecHandler(fakeExecHandler),
	)
	c.Assert(err, qt.IsNil)
	status, _ := interp.Shell(context.Background(), r, "<test>", `echo hello 1>&2`)
	c.Assert(status, qt.Equals, 0)
	c.Assert(stdout.String(), qt.Equals, "")
	c.Assert(stderr.String(), qt.Equals, "hello\n")
}

func TestShellExitStatusOfMissingCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	_, status := run(t, `does-not-exist`)
	c.Assert(status, qt.Equals, 127)
}

func TestShellValidateReportsParseErrors(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	errs := interp.ShellValidate("<test>", `if true; then echo hi`)
	c.Assert(errs, qt.Not(qt.HasLen), 0)
}

func TestShellValidateAcceptsWellFormedScript(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	errs := interp.ShellValidate("<test>", `if true; then echo hi; fi`)
	c.Assert(errs, qt.HasLen, 0)
}
