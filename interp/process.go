package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/philipwilsonTHG/psh-sub003/expand"
)

// HandlerContext is the data passed to exec/call handlers, grounded on
// the teacher's interp.HandlerContext.
type HandlerContext struct {
	State          *State
	Dir            string
	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

// ExecHandlerFunc executes an external command (argv[0] resolved against
// PATH), returning its exit status via NewExitStatus or a fatal error.
type ExecHandlerFunc func(ctx context.Context, hc HandlerContext, args []string) error

// CallHandlerFunc runs before every simple command once expansion has
// finished, letting a caller rewrite the argument list.
type CallHandlerFunc func(ctx context.Context, args []string) ([]string, error)

// ExitStatus carries a process's exit code back up through error returns,
// the same encoding the teacher uses for NewExitStatus.
type ExitStatus uint8

func (e ExitStatus) Error() string { return fmt.Sprintf("exit status %d", uint8(e)) }

func NewExitStatus(status uint8) error { return ExitStatus(status) }

// DefaultExecHandler finds argv[0] on PATH and runs it as a child
// process in its own process group, per spec.md §9's fork/exec +
// Setpgid(0) + tcsetpgrp protocol for the foreground job.
func DefaultExecHandler() ExecHandlerFunc {
	return func(ctx context.Context, hc HandlerContext, args []string) error {
		path, err := LookPathDir(hc.Dir, hc.State, args[0])
		if err != nil {
			fmt.Fprintln(hc.Stderr, err)
			return NewExitStatus(127)
		}
		cmd := exec.CommandContext(ctx, path, args[1:]...)
		cmd.Args = args
		cmd.Env = execEnv(hc.State)
		cmd.Dir = hc.Dir
		cmd.Stdin = hc.Stdin
		cmd.Stdout = hc.Stdout
		cmd.Stderr = hc.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		if err := cmd.Start(); err != nil {
			fmt.Fprintln(hc.Stderr, err)
			return NewExitStatus(127)
		}
		pgid := cmd.Process.Pid
		foreground := hc.State.Options["monitor"] && hc.State.Jobs.hasTTY
		if foreground {
			hc.State.Jobs.SetForeground(pgid)
			defer hc.State.Jobs.ReclaimForeground()
		}
		err = cmd.Wait()
		status, werr := exitStatusOf(err)
		if werr != nil && status == 127 {
			return werr
		}
		return NewExitStatus(uint8(status))
	}
}

func execEnv(s *State) []string {
	var out []string
	s.EachExported(func(name string, v expand.Variable) bool {
		out = append(out, name+"="+v.String())
		return true
	})
	return out
}

func checkStat(dir, file string, checkExec bool) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	info, err := os.Stat(file)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("is a directory")
	}
	if checkExec && info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("permission denied")
	}
	return file, nil
}

// LookPathDir resolves an executable name against PATH the same way a
// real shell does: absolute/relative paths containing a slash are
// checked directly; bare names are searched across $PATH.
func LookPathDir(cwd string, env expand.Env, file string) (string, error) {
	if strings.ContainsRune(file, '/') {
		return checkStat(cwd, file, true)
	}
	pathList := filepath.SplitList(env.Get("PATH").String())
	if len(pathList) == 0 {
		pathList = []string{""}
	}
	for _, elem := range pathList {
		var path string
		switch elem {
		case "", ".":
			path = "." + string(filepath.Separator) + file
		default:
			path = filepath.Join(elem, file)
		}
		if f, err := checkStat(cwd, path, true); err == nil {
			return f, nil
		}
	}
	return "", fmt.Errorf("%s: command not found", file)
}
