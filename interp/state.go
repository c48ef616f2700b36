// Package interp implements C7 (shell state), C8 (the tree-walking
// executor) and C9 (process launching and job control): the runtime half
// of the shell, sitting on top of the syntax and expand packages.
package interp

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh-sub003/expand"
	"github.com/philipwilsonTHG/psh-sub003/syntax"
)

// varEntry is the attribute-carrying storage cell behind every shell
// variable, grounded on the teacher's expand.Variable but kept local to
// interp since the executor tracks its own attribute flags (read-only,
// exported) beside the embedded value.
type varEntry struct {
	expand.Variable
	readOnly bool
	exported bool
}

// Scope is one level of the variable lookup chain: the global scope plus
// one pushed per function call. Command substitutions and subshells push
// no scope; they run on a copy made by Runner.forkState. Set writes to the
// scope that already holds a name, or creates it in the innermost scope;
// Unset deletes the binding from the scope that holds it.
type Scope struct {
	vars   map[string]*varEntry
	parent *Scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]*varEntry), parent: parent}
}

func (s *Scope) lookup(name string) (*varEntry, *Scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, cur
		}
	}
	return nil, nil
}

// State is the full mutable state of one running shell: the scope stack,
// positional parameters, special parameters, options, traps, and the job
// table. It implements expand.Env/expand.WriteEnv so the expansion engine
// can read and write straight through it.
type State struct {
	top  *Scope
	cur  *Scope
	Dir  string
	argv []string // argv[0] plus positional parameters

	LastStatus   int
	LastBgPid    int
	LastPipeline []int

	ifs string

	Options map[string]bool

	Traps map[string]string

	Jobs *JobManager

	Stdin          *os.File
	Stdout, Stderr *os.File

	FuncDef map[string]*FuncStmt

	execHandler ExecHandlerFunc
	callHandler CallHandlerFunc

	// subshell runs a command substitution's statement list and captures
	// its stdout, installed by the owning Runner since it alone knows how
	// to execute a *syntax.Stmt; State itself has no executor dependency.
	subshell func(stmts []*syntax.Stmt) (string, error)
}

// FuncStmt pairs a defined function's body with the closure of local
// state it needs at call time (currently just the body; functions don't
// close over their defining scope in POSIX shells).
type FuncStmt struct {
	Body any // *syntax.Stmt, stored untyped; runner.go type-asserts it.
}

// NewState builds a fresh top-level shell state seeded from the process
// environment, the default option set, and argv.
func NewState(dir string, argv []string) *State {
	s := &State{
		top:     newScope(nil),
		ifs:     " \t\n",
		Options: defaultOptions(),
		Traps:   map[string]string{},
		FuncDef: map[string]*FuncStmt{},
		argv:    append([]string{argv0OrDefault(argv)}, argv[min(1, len(argv)):]...),
		Dir:     dir,
	}
	s.cur = s.top
	s.Jobs = NewJobManager()
	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		s.top.vars[name] = &varEntry{
			Variable: expand.Variable{IsSet: true, Kind: expand.Scalar, Str: val},
			exported: true,
		}
	}
	if v, ok := s.top.vars["IFS"]; ok {
		s.ifs = v.Str
	}
	return s
}

func argv0OrDefault(argv []string) string {
	if len(argv) > 0 {
		return argv[0]
	}
	return "psh"
}

func defaultOptions() map[string]bool {
	return map[string]bool{
		"errexit":    false,
		"nounset":    false,
		"xtrace":     false,
		"noglob":     false,
		"noclobber":  false,
		"pipefail":   false,
		"nocaseglob": false,
		"dotglob":    false,
		"nullglob":   false,
		"failglob":   false,
		"extglob":    false,
		"globstar":   false,
		"monitor":    true,
	}
}

// PushScope enters a new local-variable scope, e.g. for a function call.
func (s *State) PushScope() { s.cur = newScope(s.cur) }

// PopScope leaves the most recently pushed scope.
func (s *State) PopScope() {
	if s.cur.parent != nil {
		s.cur = s.cur.parent
	}
}

// --- expand.Env / expand.WriteEnv ---

func (s *State) Get(name string) expand.Variable {
	switch name {
	case "?":
		return expand.Variable{IsSet: true, Kind: expand.Scalar, Str: strconv.Itoa(s.LastStatus)}
	case "$":
		return expand.Variable{IsSet: true, Kind: expand.Scalar, Str: strconv.Itoa(os.Getpid())}
	case "!":
		return expand.Variable{IsSet: true, Kind: expand.Scalar, Str: strconv.Itoa(s.LastBgPid)}
	case "-":
		return expand.Variable{IsSet: true, Kind: expand.Scalar, Str: s.optionFlagString()}
	case "PPID":
		return expand.Variable{IsSet: true, Kind: expand.Scalar, Str: strconv.Itoa(os.Getppid())}
	}
	if e, _ := s.cur.lookup(name); e != nil {
		return e.Variable
	}
	return expand.Variable{}
}

func (s *State) Set(name string, v expand.Variable) error {
	e, scope := s.cur.lookup(name)
	if e != nil && e.readOnly {
		return fmt.Errorf("%s: readonly variable", name)
	}
	if e == nil {
		scope = s.cur
		e = &varEntry{}
		scope.vars[name] = e
	}
	e.Variable = v
	if name == "IFS" {
		s.ifs = v.Str
	}
	return nil
}

func (s *State) SetExported(name string, exported bool) {
	e, _ := s.cur.lookup(name)
	if e == nil {
		e = &varEntry{Variable: expand.Variable{IsSet: false, Kind: expand.Unknown}}
		s.cur.vars[name] = e
	}
	e.exported = exported
}

func (s *State) SetReadOnly(name string) {
	e, _ := s.cur.lookup(name)
	if e == nil {
		e = &varEntry{}
		s.cur.vars[name] = e
	}
	e.readOnly = true
}

func (s *State) Unset(name string) {
	_, scope := s.cur.lookup(name)
	if scope != nil {
		delete(scope.vars, name)
	}
}

func (s *State) Each(f func(name string, v expand.Variable) bool) {
	seen := map[string]bool{}
	for cur := s.cur; cur != nil; cur = cur.parent {
		names := make([]string, 0, len(cur.vars))
		for n := range cur.vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			if !f(n, cur.vars[n].Variable) {
				return
			}
		}
	}
}

// EachExported walks the scope chain like Each, but yields only variables
// marked exported (via SetExported or inherited from the process
// environment at startup), the set that belongs in a child process's
// environment.
func (s *State) EachExported(f func(name string, v expand.Variable) bool) {
	seen := map[string]bool{}
	for cur := s.cur; cur != nil; cur = cur.parent {
		names := make([]string, 0, len(cur.vars))
		for n := range cur.vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			e := cur.vars[n]
			if !e.exported {
				continue
			}
			if !f(n, e.Variable) {
				return
			}
		}
	}
}

func (s *State) Positional(n int) (string, bool) {
	if n < 1 || n >= len(s.argv) {
		return "", false
	}
	return s.argv[n], true
}

func (s *State) NumPositional() int { return max(0, len(s.argv)-1) }

func (s *State) Arg0() string {
	if len(s.argv) == 0 {
		return "psh"
	}
	return s.argv[0]
}

func (s *State) SetPositional(args []string) {
	s.argv = append([]string{s.Arg0()}, args...)
}

func (s *State) IFS() string { return s.ifs }

func (s *State) Option(name string) bool { return s.Options[name] }

func (s *State) HomeDir(user string) (string, bool) {
	return expand.HomeDir(user)
}

func (s *State) CWD() string { return s.Dir }

func (s *State) RunSubshell(stmts []*syntax.Stmt) (string, error) {
	if s.subshell == nil {
		return "", fmt.Errorf("command substitution unavailable outside a running shell")
	}
	return s.subshell(stmts)
}

func (s *State) optionFlagString() string {
	var b strings.Builder
	flags := map[string]byte{"errexit": 'e', "nounset": 'u', "xtrace": 'x', "noglob": 'f', "monitor": 'm'}
	for name, ch := range flags {
		if s.Options[name] {
			b.WriteByte(ch)
		}
	}
	return b.String()
}
