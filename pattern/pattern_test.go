package pattern

import (
	"regexp"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegexp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pat     string
		mode    Mode
		extglob bool
		want    string
		wantErr bool
	}{
		{pat: ``, want: ``},
		{pat: `foo`, want: `foo`},
		{pat: `foo*`, want: `foo.*`},
		{pat: `?`, want: `.`},
		{pat: `[abc]`, want: `[abc]`},
		{pat: `[!abc]`, want: `[^abc]`},
		{pat: `\`, wantErr: true},
		{pat: `[abc`, wantErr: true},
	}

	for _, test := range tests {
		test := test
		t.Run("", func(t *testing.T) {
			t.Parallel()
			c := qt.New(t)
			got, err := Regexp(test.pat, test.mode, test.extglob)
			if test.wantErr {
				c.Assert(err, qt.Not(qt.IsNil))
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestGlobStarFilenames(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	expr, err := Regexp("**", Filenames|EntireString, false)
	c.Assert(err, qt.IsNil)
	rx, err := regexp.Compile(expr)
	c.Assert(err, qt.IsNil)
	c.Assert(rx.MatchString("/a/b/c/foo"), qt.IsTrue)

	expr, err = Regexp("**", Filenames|NoGlobStar|EntireString, false)
	c.Assert(err, qt.IsNil)
	rx, err = regexp.Compile(expr)
	c.Assert(err, qt.IsNil)
	c.Assert(rx.MatchString("foo/bar"), qt.IsFalse)
}

func TestExtGlob(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	expr, err := Regexp("@(foo|bar)", EntireString, true)
	c.Assert(err, qt.IsNil)
	rx, err := regexp.Compile(expr)
	c.Assert(err, qt.IsNil)
	c.Assert(rx.MatchString("foo"), qt.IsTrue)
	c.Assert(rx.MatchString("bar"), qt.IsTrue)
	c.Assert(rx.MatchString("baz"), qt.IsFalse)

	// without extglob enabled, the leading '@(' is literal
	expr, err = Regexp("@(foo|bar)", EntireString, false)
	c.Assert(err, qt.IsNil)
	rx, err = regexp.Compile(expr)
	c.Assert(err, qt.IsNil)
	c.Assert(rx.MatchString("@(foo|bar)"), qt.IsTrue)
}

func TestHasMeta(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(HasMeta("foo", false), qt.IsFalse)
	c.Assert(HasMeta("foo*", false), qt.IsTrue)
	c.Assert(HasMeta("foo?", false), qt.IsTrue)
	c.Assert(HasMeta("foo[a]", false), qt.IsTrue)
	c.Assert(HasMeta("@(foo)", false), qt.IsFalse)
	c.Assert(HasMeta("@(foo)", true), qt.IsTrue)
}

func TestQuoteMeta(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(QuoteMeta("foo*bar"), qt.Equals, `foo\*bar`)
	c.Assert(QuoteMeta("a[b]c"), qt.Equals, `a\[b\]c`)
	c.Assert(QuoteMeta("plain"), qt.Equals, "plain")
}
