package interp

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestJobManagerAddReusesLowestFreeID(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	jm := &JobManager{jobs: map[int]*Job{}, nextID: 1}

	j1 := jm.Add(1001, nil, "sleep 1")
	j2 := jm.Add(1002, nil, "sleep 2")
	c.Assert(j1.ID, qt.Equals, 1)
	c.Assert(j2.ID, qt.Equals, 2)

	jm.Remove(j1.ID)
	j3 := jm.Add(1003, nil, "sleep 3")
	c.Assert(j3.ID, qt.Equals, 1)
}

func TestJobManagerList(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	jm := &JobManager{jobs: map[int]*Job{}, nextID: 1}

	jm.Add(1001, nil, "one")
	jm.Add(1002, nil, "two")

	jobs := jm.List()
	c.Assert(jobs, qt.HasLen, 2)
	c.Assert(jobs[0].ID, qt.Equals, 1)
	c.Assert(jobs[1].ID, qt.Equals, 2)
}

func TestJobManagerGetMissing(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	jm := &JobManager{jobs: map[int]*Job{}, nextID: 1}

	_, ok := jm.Get(42)
	c.Assert(ok, qt.IsFalse)
}

func TestJobStateString(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(JobRunning.String(), qt.Equals, "Running")
	c.Assert(JobStopped.String(), qt.Equals, "Stopped")
	c.Assert(JobDone.String(), qt.Equals, "Done")
}
