package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBraceExpand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"foo", []string{"foo"}},
		{"{foo}", []string{"{foo}"}},
		{"a{b,c}d", []string{"abd", "acd"}},
		{"{1..3}", []string{"1", "2", "3"}},
		{"{3..1}", []string{"3", "2", "1"}},
		{"{01..03}", []string{"01", "02", "03"}},
		{"{a..c}", []string{"a", "b", "c"}},
		{"pre{a,b{1,2}}post", []string{"preapost", "preb1post", "preb2post"}},
		{"{a,b}{c,d}", []string{"ac", "ad", "bc", "bd"}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.in, func(t *testing.T) {
			t.Parallel()
			c := qt.New(t)
			c.Assert(BraceExpand(test.in), qt.DeepEquals, test.want)
		})
	}
}
