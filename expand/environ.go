// Package expand implements C5, the structural expansion engine: brace,
// tilde, parameter, command substitution, arithmetic, word splitting,
// pathname expansion and quote removal, run in that order over the Word
// AST produced by the syntax package.
package expand

import "github.com/philipwilsonTHG/psh-sub003/syntax"

// ValueKind distinguishes the shapes a shell variable's value can take,
// grounded on the teacher's expand.ValueKind.
type ValueKind uint8

const (
	Unknown ValueKind = iota
	Scalar
	Indexed
	Associative
	NameRef
)

// Variable is the value shape expand needs from shell state; interp's
// scope implementation stores the richer attribute set (readonly,
// exported, local) and converts to this on lookup.
type Variable struct {
	IsSet    bool
	Kind     ValueKind
	Str      string
	List     []string
	Map      map[string]string
	RefName  string // used when Kind == NameRef
	Exported bool
	ReadOnly bool
}

// Env is the read side of shell state that expansion depends on: scalar,
// array and special-parameter lookups, plus the handful of global options
// (IFS, globbing flags) that change expansion behavior.
type Env interface {
	Get(name string) Variable
	Each(func(name string, v Variable) bool)

	// Positional returns $1..$N, reporting false for any other n; $0
	// comes from Arg0.
	Positional(n int) (string, bool)
	NumPositional() int
	Arg0() string

	IFS() string
	Option(name string) bool // nounset, noglob, nocaseglob, dotglob, nullglob, extglob, globstar, failglob
	HomeDir(user string) (string, bool)

	// RunSubshell executes stmts in a forked-off or emulated subshell and
	// returns its captured stdout, for command substitution.
	RunSubshell(stmts []*syntax.Stmt) (string, error)

	CWD() string
}

// WriteEnv extends Env with mutation, needed by arithmetic assignment and
// parameter expansion's ":=" default-assign operator.
type WriteEnv interface {
	Env
	Set(name string, v Variable) error
}

func (v Variable) String() string {
	switch v.Kind {
	case Scalar, NameRef:
		return v.Str
	case Indexed:
		if len(v.List) > 0 {
			return v.List[0]
		}
	}
	return ""
}
