package interp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/philipwilsonTHG/psh-sub003/expand"
)

// Builtin is the interface of a builtin command implementation. The table
// of builtins the executor dispatches to is the fixed, unexported builtins
// map below; there is no call for adding entries to it. The core ships
// only the handful of trivial builtins below, needed to exercise the
// executor end-to-end; a full builtin suite is out of scope.
type Builtin interface {
	Run(r *Runner, args []string) int
}

// BuiltinFunc adapts a plain function to Builtin.
type BuiltinFunc func(r *Runner, args []string) int

func (f BuiltinFunc) Run(r *Runner, args []string) int { return f(r, args) }

// builtins holds the trivial set the core is required to provide, plus
// the job-control surface spec.md §4.9 mandates (jobs/fg/bg), which the
// teacher itself has no equivalent of since it embeds no job table.
var builtins = map[string]BuiltinFunc{
	":":        func(r *Runner, args []string) int { return 0 },
	"true":     func(r *Runner, args []string) int { return 0 },
	"false":    func(r *Runner, args []string) int { return 1 },
	"exit":     builtinExit,
	"return":   builtinReturn,
	"break":    builtinBreak,
	"continue": builtinContinue,
	"cd":       builtinCd,
	"export":   builtinExport,
	"unset":    builtinUnset,
	"readonly": builtinReadonly,
	"shift":    builtinShift,
	"set":      builtinSet,
	"jobs":     builtinJobs,
	"fg":       builtinFg,
	"bg":       builtinBg,
	"wait":     builtinWait,
}

func builtinExit(r *Runner, args []string) int {
	status := r.State.LastStatus
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err == nil {
			status = n
		}
	}
	r.exiting = true
	return status
}

func builtinReturn(r *Runner, args []string) int {
	status := r.State.LastStatus
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			status = n
		}
	}
	r.returning = true
	return status
}

func builtinBreak(r *Runner, args []string) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	r.breakN = n
	return 0
}

func builtinContinue(r *Runner, args []string) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	r.contN = n
	return 0
}

func builtinCd(r *Runner, args []string) int {
	dir := ""
	if len(args) > 1 {
		dir = args[1]
	} else {
		dir = r.State.Get("HOME").String()
	}
	if dir == "-" {
		dir = r.State.Get("OLDPWD").String()
	}
	if !strings.HasPrefix(dir, "/") {
		dir = r.State.Dir + "/" + dir
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(r.Stderr, "cd: %s: No such file or directory\n", dir)
		return 1
	}
	r.State.Set("OLDPWD", expand.Variable{IsSet: true, Kind: expand.Scalar, Str: r.State.Dir})
	r.State.Dir = dir
	r.State.Set("PWD", expand.Variable{IsSet: true, Kind: expand.Scalar, Str: dir})
	return 0
}

func builtinExport(r *Runner, args []string) int {
	for _, a := range args[1:] {
		name, val, hasVal := strings.Cut(a, "=")
		if hasVal {
			r.State.Set(name, expand.Variable{IsSet: true, Kind: expand.Scalar, Str: val})
		}
		r.State.SetExported(name, true)
	}
	return 0
}

func builtinUnset(r *Runner, args []string) int {
	for _, name := range args[1:] {
		r.State.Unset(name)
	}
	return 0
}

func builtinReadonly(r *Runner, args []string) int {
	for _, a := range args[1:] {
		name, val, hasVal := strings.Cut(a, "=")
		if hasVal {
			r.State.Set(name, expand.Variable{IsSet: true, Kind: expand.Scalar, Str: val})
		}
		r.State.SetReadOnly(name)
	}
	return 0
}

func builtinShift(r *Runner, args []string) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	if n > r.State.NumPositional() {
		return 1
	}
	rest := []string{}
	for i := n + 1; i <= r.State.NumPositional(); i++ {
		s, _ := r.State.Positional(i)
		rest = append(rest, s)
	}
	r.State.SetPositional(rest)
	return 0
}

// builtinSet implements the "set -o"/"set +o" option toggles of §3
// ("Options"), the minimal surface the executor itself depends on
// (errexit, nounset, xtrace, noglob, pipefail, and the glob-behavior
// shopt-equivalents).
func builtinSet(r *Runner, args []string) int {
	for i := 1; i < len(args); i++ {
		a := args[i]
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			continue
		}
		enable := a[0] == '-'
		flags := a[1:]
		if flags == "o" {
			if i+1 < len(args) {
				i++
				if _, ok := r.State.Options[args[i]]; ok {
					r.State.Options[args[i]] = enable
				}
			}
			continue
		}
		for _, f := range flags {
			name, ok := setFlagName(byte(f))
			if ok {
				r.State.Options[name] = enable
			}
		}
	}
	return 0
}

func setFlagName(f byte) (string, bool) {
	switch f {
	case 'e':
		return "errexit", true
	case 'u':
		return "nounset", true
	case 'x':
		return "xtrace", true
	case 'f':
		return "noglob", true
	case 'm':
		return "monitor", true
	}
	return "", false
}

func builtinJobs(r *Runner, args []string) int {
	for _, j := range r.State.Jobs.List() {
		fmt.Fprintf(r.Stdout, "[%d]  %s\t%s\n", j.ID, j.State, j.Line)
	}
	return 0
}

func builtinFg(r *Runner, args []string) int {
	j, ok := lookupJobArg(r, args)
	if !ok {
		fmt.Fprintln(r.Stderr, "fg: no such job")
		return 1
	}
	r.State.Jobs.SetForeground(j.PGID)
	r.State.Jobs.Signal(j, syscall.SIGCONT)
	status, _ := r.State.Jobs.Wait(j)
	r.State.Jobs.ReclaimForeground()
	r.State.Jobs.Remove(j.ID)
	return status
}

func builtinBg(r *Runner, args []string) int {
	j, ok := lookupJobArg(r, args)
	if !ok {
		fmt.Fprintln(r.Stderr, "bg: no such job")
		return 1
	}
	j.State = JobRunning
	if err := r.State.Jobs.Signal(j, syscall.SIGCONT); err != nil {
		fmt.Fprintln(r.Stderr, err)
		return 1
	}
	return 0
}

func lookupJobArg(r *Runner, args []string) (*Job, bool) {
	jobs := r.State.Jobs.List()
	if len(args) < 2 {
		if len(jobs) == 0 {
			return nil, false
		}
		return jobs[len(jobs)-1], true
	}
	spec := strings.TrimPrefix(args[1], "%")
	id, err := strconv.Atoi(spec)
	if err != nil {
		return nil, false
	}
	return r.State.Jobs.Get(id)
}

func builtinWait(r *Runner, args []string) int {
	if len(args) < 2 {
		status := 0
		for _, j := range r.State.Jobs.List() {
			status, _ = r.State.Jobs.Wait(j)
			r.State.Jobs.Remove(j.ID)
		}
		return status
	}
	j, ok := lookupJobArg(r, args)
	if !ok {
		return 127
	}
	status, _ := r.State.Jobs.Wait(j)
	r.State.Jobs.Remove(j.ID)
	return status
}
