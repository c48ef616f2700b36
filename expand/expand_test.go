package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/philipwilsonTHG/psh-sub003/syntax"
)

// fakeEnv is a minimal Env/WriteEnv double for exercising expansion in
// isolation from interp.State.
type fakeEnv struct {
	vars    map[string]Variable
	ifs     string
	options map[string]bool
	args    []string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{vars: map[string]Variable{}, ifs: " \t\n", options: map[string]bool{}}
}

func (e *fakeEnv) Get(name string) Variable { return e.vars[name] }

func (e *fakeEnv) Set(name string, v Variable) error {
	e.vars[name] = v
	return nil
}

func (e *fakeEnv) Each(f func(string, Variable) bool) {
	for k, v := range e.vars {
		if !f(k, v) {
			return
		}
	}
}

func (e *fakeEnv) Positional(n int) (string, bool) {
	if n < 1 || n > len(e.args) {
		return "", false
	}
	return e.args[n-1], true
}

func (e *fakeEnv) NumPositional() int { return len(e.args) }
func (e *fakeEnv) Arg0() string       { return "psh" }
func (e *fakeEnv) IFS() string        { return e.ifs }
func (e *fakeEnv) Option(name string) bool { return e.options[name] }
func (e *fakeEnv) HomeDir(user string) (string, bool) {
	if user == "" {
		return "/home/tester", true
	}
	return "", false
}
func (e *fakeEnv) RunSubshell(stmts []*syntax.Stmt) (string, error) { return "", nil }
func (e *fakeEnv) CWD() string                                     { return "/tmp" }

func litWord(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Literal{Value: s}}}
}

func varWord(name string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.VariableExpansion{Name: name}}}
}

func TestExpandLiteralPlainText(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	cfg := &Config{Env: newFakeEnv()}
	got, err := ExpandLiteral(cfg, litWord("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hello")
}

func TestExpandLiteralVariable(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	env := newFakeEnv()
	env.vars["NAME"] = Variable{IsSet: true, Kind: Scalar, Str: "world"}
	cfg := &Config{Env: env}

	got, err := ExpandLiteral(cfg, varWord("NAME"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "world")
}

func TestExpandWordFieldsSplitsOnIFS(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	env := newFakeEnv()
	env.vars["LIST"] = Variable{IsSet: true, Kind: Scalar, Str: "a b  c"}
	cfg := &Config{Env: env}

	got, err := ExpandWordFields(cfg, varWord("LIST"))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"a", "b", "c"})
}

func TestExpandWordFieldsPositionalAll(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	env := newFakeEnv()
	env.args = []string{"one", "two three", "four"}
	cfg := &Config{Env: env}

	quotedAll := &syntax.Word{Parts: []syntax.WordPart{&syntax.VariableExpansion{Name: "@", Quoted: true}}}
	got, err := ExpandWordFields(cfg, quotedAll)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"one", "two three", "four"})
}

func TestExpandParamExpansionDefault(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	cfg := &Config{Env: newFakeEnv()}
	pe := &syntax.ParameterExpansion{
		Name:     "UNSET",
		Operator: syntax.OpDefault,
		Operand:  litWord("fallback"),
	}
	got, err := ExpandParamExpansion(cfg, pe)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "fallback")
}

func TestExpandParamExpansionErrorsWhenUnset(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	cfg := &Config{Env: newFakeEnv()}
	pe := &syntax.ParameterExpansion{
		Name:     "UNSET",
		Operator: syntax.OpError,
		Operand:  litWord("must be set"),
	}
	_, err := ExpandParamExpansion(cfg, pe)
	c.Assert(err, qt.Not(qt.IsNil))
	var uerr *UnsetParameterError
	c.Assert(err, qt.ErrorAs, &uerr)
}

func TestExpandParamExpansionRemoveSuffix(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	env := newFakeEnv()
	env.vars["FILE"] = Variable{IsSet: true, Kind: Scalar, Str: "archive.tar.gz"}
	cfg := &Config{Env: env}
	pe := &syntax.ParameterExpansion{
		Name:     "FILE",
		Operator: syntax.OpRemoveSuffix,
		Operand:  litWord(".gz"),
	}
	got, err := ExpandParamExpansion(cfg, pe)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "archive.tar")
}
