package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/philipwilsonTHG/psh-sub003/expand"
	"github.com/philipwilsonTHG/psh-sub003/pattern"
	"github.com/philipwilsonTHG/psh-sub003/syntax"
)

// Runner is the C8 tree-walking executor: one value per running shell,
// holding the State plus the handful of cross-cutting fields (exec/call
// handlers, loop-control counters, return/exit signals) that every dispatch
// arm needs to see; shell options such as errexit and xtrace live in
// State.Options.
//
// Not safe for concurrent use, matching the teacher's Runner contract.
type Runner struct {
	State *State

	Stdin          io.Reader
	Stdout, Stderr io.Writer

	execHandler ExecHandlerFunc
	callHandler CallHandlerFunc

	breakN, contN int
	returning     bool
	exiting       bool
	inFunc        int
	inLoop        int
}

// NewRunner builds a Runner from functional options, mirroring the
// teacher's New(opts ...RunnerOption) constructor.
func NewRunner(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.State == nil {
		dir, _ := os.Getwd()
		r.State = NewState(dir, os.Args)
	}
	if r.execHandler == nil {
		r.execHandler = DefaultExecHandler()
	}
	r.State.subshell = r.runCommandSubstitution
	return r, nil
}

// runCommandSubstitution executes stmts in a forked state with stdout
// captured to a buffer, implementing expand.Env.RunSubshell for "$(...)"
// and legacy backtick command substitution.
func (r *Runner) runCommandSubstitution(stmts []*syntax.Stmt) (string, error) {
	child := r.forkState()
	var buf strings.Builder
	child.Stdout = &buf
	child.State.subshell = child.runCommandSubstitution
	child.execStmts(context.Background(), stmts)
	r.State.LastStatus = child.State.LastStatus
	return buf.String(), nil
}

// RunnerOption configures a Runner; see WithState/WithDir/WithParams/
// WithStdIO/WithExecHandler/WithCallHandler.
type RunnerOption func(*Runner) error

func WithState(s *State) RunnerOption {
	return func(r *Runner) error { r.State = s; return nil }
}

func WithDir(dir string) RunnerOption {
	return func(r *Runner) error {
		if r.State == nil {
			r.State = NewState(dir, os.Args)
		} else {
			r.State.Dir = dir
		}
		return nil
	}
}

func WithParams(args ...string) RunnerOption {
	return func(r *Runner) error {
		if r.State == nil {
			dir, _ := os.Getwd()
			r.State = NewState(dir, append([]string{"psh"}, args...))
		} else {
			r.State.SetPositional(args)
		}
		return nil
	}
}

func WithStdIO(in io.Reader, out, err io.Writer) RunnerOption {
	return func(r *Runner) error {
		r.Stdin, r.Stdout, r.Stderr = in, out, err
		return nil
	}
}

func WithExecHandler(f ExecHandlerFunc) RunnerOption {
	return func(r *Runner) error { r.execHandler = f; return nil }
}

func WithCallHandler(f CallHandlerFunc) RunnerOption {
	return func(r *Runner) error { r.callHandler = f; return nil }
}

// Run executes every statement of f in order, returning the exit status
// of the last command run, the "shell(script)" entry point of spec.md §6.
func (r *Runner) Run(ctx context.Context, f *syntax.File) (int, error) {
	r.execStmts(ctx, f.Stmts)
	return r.State.LastStatus, nil
}

func (r *Runner) expandCfg() *expand.Config {
	return &expand.Config{
		Env:        r.State,
		NoGlob:     r.State.Options["noglob"],
		NoCaseGlob: r.State.Options["nocaseglob"],
		DotGlob:    r.State.Options["dotglob"],
		NullGlob:   r.State.Options["nullglob"],
		FailGlob:   r.State.Options["failglob"],
		ExtGlob:    r.State.Options["extglob"],
		GlobStar:   r.State.Options["globstar"],
		NoUnset:    r.State.Options["nounset"],
	}
}

func (r *Runner) fields(words []*syntax.Word) ([]string, error) {
	cfg := r.expandCfg()
	var out []string
	for _, w := range words {
		for _, variant := range braceVariants(w) {
			fs, err := expand.ExpandWordFields(cfg, variant)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
	}
	return out, nil
}

// braceVariants applies brace expansion when w is a single unquoted
// literal, the common case spec.md's phase-1 expansion covers; words that
// mix in quoting, tildes or expansions skip this phase, a documented
// simplification.
func braceVariants(w *syntax.Word) []*syntax.Word {
	if !w.IsUnquotedLiteral() {
		return []*syntax.Word{w}
	}
	raw := literalText(w)
	if !strings.ContainsAny(raw, "{}") {
		return []*syntax.Word{w}
	}
	variants := expand.BraceExpand(raw)
	if len(variants) == 1 {
		return []*syntax.Word{w}
	}
	out := make([]*syntax.Word, len(variants))
	for i, v := range variants {
		out[i] = &syntax.Word{Parts: []syntax.WordPart{&syntax.Literal{Value: v}}}
	}
	return out
}

func literalText(w *syntax.Word) string {
	var b strings.Builder
	for _, p := range w.Parts {
		if lit, ok := p.(*syntax.Literal); ok {
			b.WriteString(lit.Value)
		}
	}
	return b.String()
}

func (r *Runner) literal(w *syntax.Word) string {
	s, err := expand.ExpandLiteral(r.expandCfg(), w)
	if err != nil {
		r.reportError(err)
	}
	return s
}

func (r *Runner) reportError(err error) {
	fmt.Fprintln(r.Stderr, err)
}

// execStmts runs a statement list in order, stopping early on a pending
// break/continue/return/exit signal.
func (r *Runner) execStmts(ctx context.Context, stmts []*syntax.Stmt) {
	for _, st := range stmts {
		r.execStmt(ctx, st)
		if r.stopRequested() {
			return
		}
	}
}

func (r *Runner) stopRequested() bool {
	return r.breakN > 0 || r.contN > 0 || r.returning || r.exiting
}

func (r *Runner) execStmt(ctx context.Context, st *syntax.Stmt) {
	if st.Background {
		r.execBackground(ctx, st)
		r.State.LastStatus = 0
		return
	}
	savedIn, savedOut, savedErr := r.Stdin, r.Stdout, r.Stderr
	closers := r.applyRedirects(ctx, st.Redirs)
	defer func() {
		closeAll(closers)
		r.Stdin, r.Stdout, r.Stderr = savedIn, savedOut, savedErr
	}()

	for _, a := range st.Assigns {
		r.execAssign(a)
	}
	if st.Cmd != nil {
		r.execCommand(ctx, st.Cmd)
	}
	if st.Negated {
		if r.State.LastStatus == 0 {
			r.State.LastStatus = 1
		} else {
			r.State.LastStatus = 0
		}
	}
	if r.State.Options["errexit"] && r.State.LastStatus != 0 && !r.stopRequested() {
		r.exiting = true
	}
}

func (r *Runner) execBackground(ctx context.Context, st *syntax.Stmt) {
	child := *st
	child.Background = false
	go r.execStmt(ctx, &child)
}

func closeAll(cs []io.Closer) {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i].Close()
	}
}

func (r *Runner) execAssign(a *syntax.Assign) {
	name := a.Name
	switch {
	case a.Array:
		vals := make([]string, len(a.ArrayVals))
		for i, w := range a.ArrayVals {
			vals[i] = r.literal(w)
		}
		r.State.Set(name, expand.Variable{IsSet: true, Kind: expand.Indexed, List: vals})
	case a.Assoc:
		// The parser never sets Assoc; this branch reads each ArrayVals
		// word as a "key\x00value" pair.
		m := map[string]string{}
		if cur := r.State.Get(name); cur.Kind == expand.Associative {
			for k, v := range cur.Map {
				m[k] = v
			}
		}
		for _, w := range a.ArrayVals {
			kv := r.literal(w)
			if k, v, ok := strings.Cut(kv, "\x00"); ok {
				m[k] = v
			}
		}
		r.State.Set(name, expand.Variable{IsSet: true, Kind: expand.Associative, Map: m})
	case a.Index != nil:
		idx := r.literal(a.Index)
		cur := r.State.Get(name)
		val := r.literal(a.Value)
		if a.Append {
			val = elementAt(cur, idx) + val
		}
		r.State.Set(name, setElementAt(cur, idx, val))
	default:
		val := r.literal(a.Value)
		if a.Append {
			cur := r.State.Get(name)
			val = cur.String() + val
		}
		r.State.Set(name, expand.Variable{IsSet: true, Kind: expand.Scalar, Str: val})
	}
}

func elementAt(vr expand.Variable, idx string) string {
	if vr.Kind == expand.Associative {
		return vr.Map[idx]
	}
	if n, err := strconv.Atoi(idx); err == nil && n >= 0 && n < len(vr.List) {
		return vr.List[n]
	}
	return ""
}

func setElementAt(vr expand.Variable, idx, val string) expand.Variable {
	if vr.Kind == expand.Associative || !isDigits(idx) {
		m := vr.Map
		if m == nil {
			m = map[string]string{}
		}
		m[idx] = val
		return expand.Variable{IsSet: true, Kind: expand.Associative, Map: m}
	}
	n, _ := strconv.Atoi(idx)
	list := vr.List
	for len(list) <= n {
		list = append(list, "")
	}
	list[n] = val
	return expand.Variable{IsSet: true, Kind: expand.Indexed, List: list}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// execCommand is the closed tagged-union dispatch over every Command
// variant, per spec.md §9.
func (r *Runner) execCommand(ctx context.Context, cmd syntax.Command) {
	switch c := cmd.(type) {
	case *syntax.SimpleCommand:
		r.execSimple(ctx, c)
	case *syntax.Pipeline:
		r.execPipeline(ctx, c)
	case *syntax.AndOrList:
		r.execAndOr(ctx, c)
	case *syntax.If:
		r.execIf(ctx, c)
	case *syntax.While:
		r.execWhile(ctx, c)
	case *syntax.Until:
		r.execUntil(ctx, c)
	case *syntax.ForIn:
		r.execForIn(ctx, c)
	case *syntax.CForLoop:
		r.execCFor(ctx, c)
	case *syntax.Case:
		r.execCase(ctx, c)
	case *syntax.Select:
		r.execSelect(ctx, c)
	case *syntax.Subshell:
		r.execSubshell(ctx, c)
	case *syntax.BraceGroup:
		r.execStmts(ctx, c.Body.Statements)
	case *syntax.FunctionDef:
		r.State.FuncDef[c.Name] = &FuncStmt{Body: c.Body}
		r.State.LastStatus = 0
	case *syntax.ArithmeticEval:
		n, err := r.expandCfg().Arithm(c.Expr)
		if err != nil {
			r.reportError(err)
			r.State.LastStatus = 1
			return
		}
		r.State.LastStatus = boolStatus(n != 0)
	case *syntax.EnhancedTest:
		r.State.LastStatus = boolStatus(r.evalTest(c.X))
	}
}

func boolStatus(b bool) int {
	if b {
		return 0
	}
	return 1
}

func (r *Runner) execIf(ctx context.Context, i *syntax.If) {
	r.execStmts(ctx, i.Cond.Statements)
	if r.stopRequested() {
		return
	}
	if r.State.LastStatus == 0 {
		r.execStmts(ctx, i.Then.Statements)
		return
	}
	for _, e := range i.Elifs {
		r.execStmts(ctx, e.Cond.Statements)
		if r.stopRequested() {
			return
		}
		if r.State.LastStatus == 0 {
			r.execStmts(ctx, e.Then.Statements)
			return
		}
	}
	if i.Else != nil {
		r.execStmts(ctx, i.Else.Statements)
		return
	}
	r.State.LastStatus = 0
}

func (r *Runner) execWhile(ctx context.Context, w *syntax.While) {
	r.inLoop++
	defer func() { r.inLoop-- }()
	for {
		r.execStmts(ctx, w.Cond.Statements)
		if r.returning || r.exiting {
			return
		}
		if r.State.LastStatus != 0 {
			return
		}
		r.execStmts(ctx, w.Body.Statements)
		if r.handleLoopSignal() {
			return
		}
	}
}

func (r *Runner) execUntil(ctx context.Context, u *syntax.Until) {
	r.inLoop++
	defer func() { r.inLoop-- }()
	for {
		r.execStmts(ctx, u.Cond.Statements)
		if r.returning || r.exiting {
			return
		}
		if r.State.LastStatus == 0 {
			return
		}
		r.execStmts(ctx, u.Body.Statements)
		if r.handleLoopSignal() {
			return
		}
	}
}

// handleLoopSignal consumes one level of a pending break/continue signal
// and reports whether the loop must stop iterating.
func (r *Runner) handleLoopSignal() bool {
	if r.returning || r.exiting {
		return true
	}
	if r.contN > 0 {
		r.contN--
		return r.contN > 0
	}
	if r.breakN > 0 {
		r.breakN--
		return true
	}
	return false
}

func (r *Runner) execForIn(ctx context.Context, f *syntax.ForIn) {
	r.inLoop++
	defer func() { r.inLoop-- }()
	var items []string
	if f.HasIn {
		fs, err := r.fields(f.Items)
		if err != nil {
			r.reportError(err)
			r.State.LastStatus = 1
			return
		}
		items = fs
	} else {
		for i := 1; i <= r.State.NumPositional(); i++ {
			s, _ := r.State.Positional(i)
			items = append(items, s)
		}
	}
	for _, it := range items {
		r.State.Set(f.Name, expand.Variable{IsSet: true, Kind: expand.Scalar, Str: it})
		r.execStmts(ctx, f.Body.Statements)
		if r.handleLoopSignal() {
			return
		}
	}
	r.State.LastStatus = 0
}

func (r *Runner) execCFor(ctx context.Context, c *syntax.CForLoop) {
	r.inLoop++
	defer func() { r.inLoop-- }()
	cfg := r.expandCfg()
	if c.Init != "" {
		if _, err := cfg.Arithm(c.Init); err != nil {
			r.reportError(err)
		}
	}
	for {
		if c.Cond != "" {
			n, err := cfg.Arithm(c.Cond)
			if err != nil {
				r.reportError(err)
				r.State.LastStatus = 1
				return
			}
			if n == 0 {
				break
			}
		}
		r.execStmts(ctx, c.Body.Statements)
		if r.handleLoopSignal() {
			return
		}
		if c.Post != "" {
			if _, err := cfg.Arithm(c.Post); err != nil {
				r.reportError(err)
			}
		}
	}
	r.State.LastStatus = 0
}

func (r *Runner) execCase(ctx context.Context, c *syntax.Case) {
	subject := r.literal(c.Word)
	extglob := r.State.Options["extglob"]
	matched := false
	for _, item := range c.Items {
		if !matched {
			for _, pw := range item.Patterns {
				pat := r.literal(pw)
				if matchPattern(subject, pat, extglob) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		r.execStmts(ctx, item.Body.Statements)
		switch item.Term {
		case syntax.CaseBreak:
			return
		case syntax.CaseFallthru:
			matched = true
			continue
		case syntax.CaseContinue:
			matched = false
			continue
		}
	}
}

func matchPattern(s, pat string, extglob bool) bool {
	expr, err := pattern.Regexp(pat, pattern.EntireString, extglob)
	if err != nil {
		return s == pat
	}
	ok, _ := matchRegexp(expr, s)
	return ok
}

func (r *Runner) execSelect(ctx context.Context, s *syntax.Select) {
	items, err := r.fields(s.Items)
	if err != nil {
		r.reportError(err)
		r.State.LastStatus = 1
		return
	}
	reader := newLineReader(r.Stdin)
	for {
		fmt.Fprint(r.Stderr, "#? ")
		for i, it := range items {
			fmt.Fprintf(r.Stderr, "%d) %s\n", i+1, it)
		}
		line, ok := reader.readLine()
		if !ok {
			return
		}
		r.State.Set("REPLY", expand.Variable{IsSet: true, Kind: expand.Scalar, Str: line})
		n, _ := strconv.Atoi(strings.TrimSpace(line))
		val := ""
		if n >= 1 && n <= len(items) {
			val = items[n-1]
		}
		r.State.Set(s.Name, expand.Variable{IsSet: true, Kind: expand.Scalar, Str: val})
		r.execStmts(ctx, s.Body.Statements)
		if r.handleLoopSignal() {
			return
		}
	}
}

func (r *Runner) execSubshell(ctx context.Context, s *syntax.Subshell) {
	sub := r.forkState()
	sub.execStmts(ctx, s.Body.Statements)
	r.State.LastStatus = sub.State.LastStatus
}

// forkState builds a child Runner sharing everything except the variable
// scope: every visible variable, with its exported and read-only flags, is
// copied into one fresh scope, so a subshell's assignments never leak back
// to the parent, per POSIX subshell semantics.
func (r *Runner) forkState() *Runner {
	child := *r
	st := *r.State
	childScope := newScope(nil)
	for cur := r.State.cur; cur != nil; cur = cur.parent {
		for name, e := range cur.vars {
			if _, ok := childScope.vars[name]; !ok {
				cp := *e
				childScope.vars[name] = &cp
			}
		}
	}
	st.top, st.cur = childScope, childScope
	child.State = &st
	return &child
}

func (r *Runner) execAndOr(ctx context.Context, a *syntax.AndOrList) {
	r.execPipeline(ctx, a.First)
	for _, link := range a.Rest {
		if r.stopRequested() {
			return
		}
		success := r.State.LastStatus == 0
		if link.Op == syntax.AndOp && !success {
			continue
		}
		if link.Op == syntax.OrOp && success {
			continue
		}
		r.execPipeline(ctx, link.Pipeline)
	}
}

// execSimple expands a simple command's words and dispatches it to a
// shell function, a builtin, or an external process in that order, the
// same precedence spec.md §8 requires.
func (r *Runner) execSimple(ctx context.Context, c *syntax.SimpleCommand) {
	args, err := r.fields(c.Words)
	if err != nil {
		r.reportError(err)
		r.State.LastStatus = 1
		return
	}
	if len(args) == 0 {
		r.State.LastStatus = 0
		return
	}
	if r.callHandler != nil {
		args, err = r.callHandler(ctx, args)
		if err != nil {
			r.reportError(err)
			r.State.LastStatus = 1
			return
		}
	}
	if r.State.Options["xtrace"] {
		ps4 := r.State.Get("PS4").String()
		if ps4 == "" {
			ps4 = "+ "
		}
		fmt.Fprintf(r.Stderr, "%s%s\n", ps4, strings.Join(args, " "))
	}
	if fn, ok := r.State.FuncDef[args[0]]; ok {
		r.callFunction(ctx, fn, args)
		return
	}
	if b, ok := builtins[args[0]]; ok {
		r.State.LastStatus = b(r, args)
		return
	}
	hc := HandlerContext{
		State:  r.State,
		Dir:    r.State.Dir,
		Stdin:  r.Stdin,
		Stdout: r.Stdout,
		Stderr: r.Stderr,
	}
	err = r.execHandler(ctx, hc, args)
	status, _ := exitStatusOf(err)
	if es, ok := err.(ExitStatus); ok {
		status = int(es)
	}
	r.State.LastStatus = status
}

func (r *Runner) callFunction(ctx context.Context, fn *FuncStmt, args []string) {
	body, ok := fn.Body.(*syntax.Stmt)
	if !ok {
		r.State.LastStatus = 1
		return
	}
	savedArgv := r.State.argv
	r.State.SetPositional(args[1:])
	r.State.PushScope()
	r.inFunc++
	r.execStmt(ctx, body)
	r.inFunc--
	r.State.PopScope()
	r.State.argv = savedArgv
	if r.returning {
		r.returning = false
	}
}

// execMultiPipeline runs the stages of a multi-command pipeline connected
// by os.Pipe. A simple-command stage is looked up on PATH and started as an
// external process in the pipeline's process group (shell functions,
// builtins and the exec handler are not consulted); any other stage runs
// in-process on a forked state. It registers the process group with the
// JobManager, waits on every stage through an errgroup, and reports the
// last stage's status (or, under pipefail, the rightmost non-zero one).
func (r *Runner) execMultiPipeline(ctx context.Context, p *syntax.Pipeline) {
	n := len(p.Commands)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			r.reportError(err)
			r.State.LastStatus = 1
			return
		}
		readers[i+1] = pr
		writers[i] = pw
	}

	cmds := make([]*exec.Cmd, 0, n)
	statuses := make([]int, n)
	var pgid int
	var grp errgroup.Group

	for i, stmt := range p.Commands {
		i, stmt := i, stmt
		child := r.forkState()
		if readers[i] != nil {
			child.Stdin = readers[i]
		}
		if writers[i] != nil {
			child.Stdout = writers[i]
		}
		sc, ok := stmt.Cmd.(*syntax.SimpleCommand)
		if !ok {
			grp.Go(func() error {
				child.execStmt(ctx, stmt)
				statuses[i] = child.State.LastStatus
				closeIf(readers[i])
				closeIf(writers[i])
				return nil
			})
			continue
		}
		args, err := child.fields(sc.Words)
		if err != nil || len(args) == 0 {
			statuses[i] = 1
			closeIf(readers[i])
			closeIf(writers[i])
			continue
		}
		path, err := LookPathDir(child.State.Dir, child.State, args[0])
		if err != nil {
			fmt.Fprintln(r.Stderr, err)
			statuses[i] = 127
			closeIf(readers[i])
			closeIf(writers[i])
			continue
		}
		cmd := exec.CommandContext(ctx, path, args[1:]...)
		cmd.Args = args
		cmd.Env = execEnv(child.State)
		cmd.Dir = child.State.Dir
		cmd.Stdin = child.Stdin
		cmd.Stdout = child.Stdout
		cmd.Stderr = r.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		if err := cmd.Start(); err != nil {
			fmt.Fprintln(r.Stderr, err)
			statuses[i] = 127
			closeIf(readers[i])
			closeIf(writers[i])
			continue
		}
		if pgid == 0 {
			pgid = cmd.Process.Pid
		}
		cmds = append(cmds, cmd)
		closeIf(readers[i])
		closeIf(writers[i])
		grp.Go(func() error {
			statuses[i], _ = exitStatusOf(cmd.Wait())
			return nil
		})
	}

	foreground := r.State.Options["monitor"] && r.State.Jobs.hasTTY && pgid != 0
	if foreground {
		r.State.Jobs.SetForeground(pgid)
	}
	if pgid != 0 {
		r.State.Jobs.Add(pgid, cmds, "")
	}
	grp.Wait()
	if foreground {
		r.State.Jobs.ReclaimForeground()
	}

	last := statuses[n-1]
	if r.State.Options["pipefail"] {
		for _, st := range statuses {
			if st != 0 {
				last = st
			}
		}
	}
	r.State.LastStatus = last
}

func closeIf(f *os.File) {
	if f != nil {
		f.Close()
	}
}

type lineReader struct {
	r io.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader { return &lineReader{r: r} }

func (lr *lineReader) readLine() (string, bool) {
	var line []byte
	one := make([]byte, 1)
	for {
		n, err := lr.r.Read(one)
		if n > 0 {
			if one[0] == '\n' {
				return string(line), true
			}
			line = append(line, one[0])
		}
		if err != nil {
			if len(line) > 0 {
				return string(line), true
			}
			return "", false
		}
	}
}

func (r *Runner) execPipeline(ctx context.Context, p *syntax.Pipeline) {
	if len(p.Commands) == 1 {
		r.execStmt(ctx, p.Commands[0])
	} else {
		r.execMultiPipeline(ctx, p)
	}
	if p.Negated() {
		if r.State.LastStatus == 0 {
			r.State.LastStatus = 1
		} else {
			r.State.LastStatus = 0
		}
	}
}

func (r *Runner) evalTest(t syntax.TestExpr) bool {
	cfg := r.expandCfg()
	switch x := t.(type) {
	case *syntax.TestAnd:
		return r.evalTest(x.X) && r.evalTest(x.Y)
	case *syntax.TestOr:
		return r.evalTest(x.X) || r.evalTest(x.Y)
	case *syntax.TestNot:
		return !r.evalTest(x.X)
	case *syntax.TestParen:
		return r.evalTest(x.X)
	case *syntax.TestWord:
		return r.literal(x.X) != ""
	case *syntax.TestUnary:
		return r.evalTestUnary(x)
	case *syntax.TestBinary:
		return r.evalTestBinary(x, cfg)
	}
	return false
}

func (r *Runner) evalTestUnary(x *syntax.TestUnary) bool {
	val := r.literal(x.X)
	switch x.Op {
	case syntax.TestStringEmpty:
		return val == ""
	case syntax.TestStringNonEmpty:
		return val != ""
	case syntax.TestVarSet:
		return r.State.Get(val).IsSet
	case syntax.TestOptSet:
		return r.State.Options[val]
	case syntax.TestFileExists:
		_, err := os.Stat(val)
		return err == nil
	case syntax.TestRegularFile:
		fi, err := os.Stat(val)
		return err == nil && fi.Mode().IsRegular()
	case syntax.TestDirectory:
		fi, err := os.Stat(val)
		return err == nil && fi.IsDir()
	case syntax.TestReadable:
		return unix.Access(val, unix.R_OK) == nil
	case syntax.TestWritable:
		return unix.Access(val, unix.W_OK) == nil
	case syntax.TestExecutable:
		fi, err := os.Stat(val)
		return err == nil && fi.Mode()&0o111 != 0
	case syntax.TestNonEmpty:
		fi, err := os.Stat(val)
		return err == nil && fi.Size() > 0
	case syntax.TestNameRef:
		return r.State.Get(val).Kind == expand.NameRef
	}
	return false
}

func (r *Runner) evalTestBinary(x *syntax.TestBinary, cfg *expand.Config) bool {
	l := r.literal(x.X)
	rv := r.literal(x.Y)
	switch x.Op {
	case syntax.TestStrEQ:
		ok, _ := matchRegexp(mustPatternExpr(rv, true), l)
		return ok
	case syntax.TestStrNE:
		ok, _ := matchRegexp(mustPatternExpr(rv, true), l)
		return !ok
	case syntax.TestStrLT:
		return l < rv
	case syntax.TestStrGT:
		return l > rv
	case syntax.TestRegexMatch:
		ok, _ := matchRegexp(rv, l)
		return ok
	case syntax.TestArithEQ, syntax.TestArithNE, syntax.TestArithLT,
		syntax.TestArithLE, syntax.TestArithGT, syntax.TestArithGE:
		ln, _ := cfg.Arithm(l)
		rn, _ := cfg.Arithm(rv)
		switch x.Op {
		case syntax.TestArithEQ:
			return ln == rn
		case syntax.TestArithNE:
			return ln != rn
		case syntax.TestArithLT:
			return ln < rn
		case syntax.TestArithLE:
			return ln <= rn
		case syntax.TestArithGT:
			return ln > rn
		default:
			return ln >= rn
		}
	}
	return false
}

func mustPatternExpr(pat string, entire bool) string {
	mode := pattern.Mode(0)
	if entire {
		mode |= pattern.EntireString
	}
	expr, err := pattern.Regexp(pat, mode, false)
	if err != nil {
		return "^$"
	}
	return expr
}

var regexpCache sync.Map // string -> *regexp.Regexp

func matchRegexp(expr, s string) (bool, error) {
	if cached, ok := regexpCache.Load(expr); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return false, err
	}
	regexpCache.Store(expr, rx)
	return rx.MatchString(s), nil
}

// redirection

func (r *Runner) applyRedirects(ctx context.Context, redirs []*syntax.Redirect) []io.Closer {
	var closers []io.Closer
	for _, rd := range redirs {
		c := r.applyRedirect(ctx, rd)
		if c != nil {
			closers = append(closers, c)
		}
	}
	return closers
}

// redirFd reads the explicit source descriptor off a redirect ("2>" ->
// 2), defaulting to 1 for output-shaped ops and 0 for input-shaped ones
// when the word is absent, matching POSIX's per-operator default fd.
func (r *Runner) redirFd(rd *syntax.Redirect, defaultFd int) int {
	if rd.Fd == nil {
		return defaultFd
	}
	n, err := strconv.Atoi(r.literal(rd.Fd))
	if err != nil {
		return defaultFd
	}
	return n
}

// setOutputStream points the shell's fd 1/2 at f, the closest this
// runner's three-stream model (Stdin/Stdout/Stderr, not a general fd
// table) comes to POSIX's arbitrary-fd redirection; any fd above 2 falls
// back to fd 1, a documented simplification.
func (r *Runner) setOutputStream(fd int, f io.Writer) {
	if fd == 2 {
		r.Stderr = f
		return
	}
	r.Stdout = f
}

func (r *Runner) setInputStream(fd int, f io.Reader) {
	r.Stdin = f
}

// streamByFd resolves "1" -> current Stdout, "2" -> current Stderr, or a
// plain numeric fd above 2 to Stdout, for the right-hand side of "N>&M".
func (r *Runner) streamByFd(fd int) io.Writer {
	if fd == 2 {
		return r.Stderr
	}
	return r.Stdout
}

func (r *Runner) applyRedirect(ctx context.Context, rd *syntax.Redirect) io.Closer {
	switch rd.Op {
	case syntax.RedirWriteTo, syntax.RedirAppend, syntax.RedirClobber, syntax.RedirReadWrite:
		path := r.literal(rd.Target)
		flags := os.O_CREATE | os.O_WRONLY
		switch rd.Op {
		case syntax.RedirAppend:
			flags |= os.O_APPEND
		case syntax.RedirReadWrite:
			flags = os.O_CREATE | os.O_RDWR
		default:
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			r.reportError(err)
			return nil
		}
		r.setOutputStream(r.redirFd(rd, 1), f)
		return f
	case syntax.RedirReadFrom:
		path := r.literal(rd.Target)
		f, err := os.Open(path)
		if err != nil {
			r.reportError(err)
			return nil
		}
		r.setInputStream(r.redirFd(rd, 0), f)
		return f
	case syntax.RedirDupOut:
		target := r.literal(rd.Target)
		if target == "-" {
			return nil
		}
		n, err := strconv.Atoi(target)
		if err != nil {
			r.reportError(fmt.Errorf("bad fd duplication target %q", target))
			return nil
		}
		r.setOutputStream(r.redirFd(rd, 1), r.streamByFd(n))
		return nil
	case syntax.RedirDupIn:
		target := r.literal(rd.Target)
		if target == "-" {
			return nil
		}
		if _, err := strconv.Atoi(target); err != nil {
			r.reportError(fmt.Errorf("bad fd duplication target %q", target))
			return nil
		}
		// fd 0 is the only input descriptor this runner models; "<&N"
		// duplicating another input fd onto it is a no-op beyond that.
		return nil
	case syntax.RedirAll, syntax.RedirAppAll:
		path := r.literal(rd.Target)
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if rd.Op == syntax.RedirAppAll {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			r.reportError(err)
			return nil
		}
		r.Stdout = f
		r.Stderr = f
		return f
	case syntax.RedirHeredoc, syntax.RedirHeredocLop:
		body := ""
		if rd.Heredoc != nil {
			body = rd.Heredoc.Text
			if rd.Heredoc.StripTabs {
				body = stripLeadingTabs(body)
			}
			if !rd.Heredoc.QuotedDelim {
				if expanded, err := expand.ExpandLiteral(r.expandCfg(), &syntax.Word{Parts: []syntax.WordPart{&syntax.Literal{Value: body}}}); err == nil {
					body = expanded
				}
			}
		}
		r.Stdin = strings.NewReader(body)
		return nil
	case syntax.RedirHeredocStr:
		body := r.literal(rd.Target) + "\n"
		r.Stdin = strings.NewReader(body)
		return nil
	}
	return nil
}

func stripLeadingTabs(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimLeft(l, "\t")
	}
	return strings.Join(lines, "\n")
}
