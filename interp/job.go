package interp

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// JobState is the lifecycle state of a job, per spec.md §9's job table.
type JobState int

const (
	JobRunning JobState = iota
	JobStopped
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobStopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// Job is one entry of the job table: a pipeline launched as its own
// process group, trackable by "jobs", "fg %N" and "bg %N".
type Job struct {
	ID      int
	PGID    int
	Cmds    []*exec.Cmd
	Line    string
	State   JobState
	Status  int
	Current bool
}

// JobManager owns the process-group-indexed job table and the terminal
// hand-off between the shell and its foreground job, grounded on the
// teacher's SysProcAttr{Setpgid: true} usage in handler_unix.go but
// extended here with a full fg/bg/jobs job table, since the teacher has
// no real job control of its own (spec.md's supplemented-features
// decision, recorded in DESIGN.md).
type JobManager struct {
	mu       sync.Mutex
	jobs     map[int]*Job
	nextID   int
	shellPG  int
	ttyFd    int
	hasTTY   bool
}

func NewJobManager() *JobManager {
	jm := &JobManager{jobs: map[int]*Job{}, nextID: 1}
	jm.shellPG, _ = unix.Getpgid(os.Getpid())
	jm.ttyFd = int(os.Stdin.Fd())
	jm.hasTTY = term.IsTerminal(jm.ttyFd)
	return jm
}

// Add registers a freshly started pipeline's process group as a new job,
// reusing the lowest free job ID starting at 1, matching the shell
// convention that job numbers get reused as soon as they're free.
func (jm *JobManager) Add(pgid int, cmds []*exec.Cmd, line string) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	id := jm.lowestFreeIDLocked()
	j := &Job{ID: id, PGID: pgid, Cmds: cmds, Line: line, State: JobRunning}
	jm.jobs[id] = j
	return j
}

func (jm *JobManager) lowestFreeIDLocked() int {
	id := 1
	for {
		if _, ok := jm.jobs[id]; !ok {
			return id
		}
		id++
	}
}

// Remove drops a completed job from the table so its ID can be reused.
func (jm *JobManager) Remove(id int) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.jobs, id)
}

func (jm *JobManager) Get(id int) (*Job, bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	j, ok := jm.jobs[id]
	return j, ok
}

// List returns all jobs ordered by ID, for the "jobs" builtin.
func (jm *JobManager) List() []*Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	ids := make([]int, 0, len(jm.jobs))
	for id := range jm.jobs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*Job, len(ids))
	for i, id := range ids {
		out[i] = jm.jobs[id]
	}
	return out
}

// SetForeground hands the controlling terminal to pgid, the same
// tcsetpgrp dance a real job-control shell performs around fg and every
// foreground pipeline launch.
func (jm *JobManager) SetForeground(pgid int) error {
	if !jm.hasTTY {
		return nil
	}
	signal := make(chan struct{})
	go func() {
		unix.IoctlSetPointerInt(jm.ttyFd, unix.TIOCSPGRP, pgid)
		close(signal)
	}()
	<-signal
	return nil
}

// ReclaimForeground restores the shell itself as the terminal's
// foreground process group after a foreground job exits or stops.
func (jm *JobManager) ReclaimForeground() error {
	return jm.SetForeground(jm.shellPG)
}

// Wait blocks until every process in the job has exited, marks the job
// Done with the last process's exit status, and returns that status
// (plus any error that is not an exit status). A stopped process is not
// detected; Wait keeps waiting for it to exit.
func (jm *JobManager) Wait(j *Job) (int, error) {
	var lastStatus int
	var lastErr error
	for _, cmd := range j.Cmds {
		err := cmd.Wait()
		lastStatus, lastErr = exitStatusOf(err)
	}
	jm.mu.Lock()
	j.State = JobDone
	j.Status = lastStatus
	jm.mu.Unlock()
	return lastStatus, lastErr
}

func exitStatusOf(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ee, ok := err.(*exec.ExitError); ok {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal()), nil
			}
			return ws.ExitStatus(), nil
		}
		return ee.ExitCode(), nil
	}
	return 127, err
}

// Signal sends sig to every process in the job's process group, the
// negative-pgid kill() convention C9 uses to stop/continue/terminate a
// whole pipeline at once.
func (jm *JobManager) Signal(j *Job, sig syscall.Signal) error {
	return syscall.Kill(-j.PGID, sig)
}

var errNoSuchJob = fmt.Errorf("no such job")
