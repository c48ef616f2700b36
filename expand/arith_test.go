package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

// fakeArithEnv is a minimal in-memory ArithEnv for exercising variable
// reads and writes during arithmetic evaluation.
type fakeArithEnv struct{ vars map[string]string }

func newFakeArithEnv() *fakeArithEnv { return &fakeArithEnv{vars: map[string]string{}} }

func (e *fakeArithEnv) Get(name string) string { return e.vars[name] }

func (e *fakeArithEnv) Set(name, val string) error {
	e.vars[name] = val
	return nil
}

func TestEvalArith(t *testing.T) {
	t.Parallel()
	tests := []struct {
		expr string
		want int64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 * (3 + 4)", 14},
		{"7 / 2", 3},
		{"7 % 2", 1},
		{"-5 + 3", -2},
		{"1 << 4", 16},
		{"10 > 3", 1},
		{"10 < 3", 0},
		{"1 && 0", 0},
		{"1 || 0", 1},
		{"5 == 5", 1},
		{"5 != 5", 0},
		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 3", 3},
	}
	for _, test := range tests {
		test := test
		t.Run(test.expr, func(t *testing.T) {
			t.Parallel()
			c := qt.New(t)
			got, err := EvalArith(test.expr, newFakeArithEnv())
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestEvalArithAssignment(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	env := newFakeArithEnv()
	env.vars["x"] = "5"

	got, err := EvalArith("x += 3", env)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, int64(8))
	c.Assert(env.vars["x"], qt.Equals, "8")
}

func TestEvalArithPreIncrement(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	env := newFakeArithEnv()
	env.vars["x"] = "1"

	got, err := EvalArith("++x", env)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, int64(2))
	c.Assert(env.vars["x"], qt.Equals, "2")
}

func TestEvalArithDivByZero(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	_, err := EvalArith("1 / 0", newFakeArithEnv())
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestEvalArithSyntaxError(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	_, err := EvalArith("1 +", newFakeArithEnv())
	c.Assert(err, qt.Not(qt.IsNil))
}
