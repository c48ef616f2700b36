package expand

import (
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/philipwilsonTHG/psh-sub003/pattern"
	"github.com/philipwilsonTHG/psh-sub003/syntax"
)

// chunk is one piece of a field under construction: a run of text plus
// whether it came from a quoted context (and so is exempt from word
// splitting and pathname expansion).
type chunk struct {
	s      string
	quoted bool
}

// ExpandLiteral fully expands word to a single string: tilde, parameter,
// command and arithmetic substitution all run, but word splitting and
// pathname expansion never apply. This is the form used for assignment
// right-hand sides, operands of parameter-expansion operators, and case
// patterns before pattern.Regexp compiles them.
func ExpandLiteral(cfg *Config, word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	chunks, err := expandParts(cfg, word.Parts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.s)
	}
	return b.String(), nil
}

// ExpandWordFields runs the full seven-phase pipeline (minus brace
// expansion, applied earlier by the caller on raw source text) over one
// word, producing zero or more resulting argument fields.
func ExpandWordFields(cfg *Config, word *syntax.Word) ([]string, error) {
	if word == nil {
		return nil, nil
	}
	if fields, handled, err := expandAllElements(cfg, word); handled {
		if err != nil {
			return nil, err
		}
		return globFields(cfg, fields)
	}

	chunks, err := expandParts(cfg, word.Parts)
	if err != nil {
		return nil, err
	}
	fields := splitChunks(cfg, chunks)
	return globFields(cfg, fields)
}

// expandAllElements special-cases a word that is exactly one bare "$@",
// "$*", "${arr[@]}" or "${arr[*]}" reference: each element of the
// underlying array becomes its own field, bypassing normal IFS splitting
// for the quoted form, per spec.md's "$@ splits into one field per
// positional parameter regardless of IFS" rule.
func expandAllElements(cfg *Config, word *syntax.Word) ([]string, bool, error) {
	if len(word.Parts) != 1 {
		return nil, false, nil
	}
	switch p := word.Parts[0].(type) {
	case *syntax.VariableExpansion:
		if p.Name != "@" && p.Name != "*" {
			return nil, false, nil
		}
		elems := positionalElements(cfg)
		return joinOrSplitElements(cfg, elems, p.Name == "*", p.Quoted), true, nil
	case *syntax.ParameterExpansion:
		if p.Operator != syntax.OpNone || p.Index == nil {
			return nil, false, nil
		}
		lit := ""
		if p.Index.IsUnquotedLiteral() {
			lit = p.Index.Lit()
		}
		if lit != "@" && lit != "*" {
			return nil, false, nil
		}
		vr := cfg.Env.Get(p.Name)
		var elems []string
		switch vr.Kind {
		case Indexed:
			elems = vr.List
		case Associative:
			keys := sortedKeys(vr)
			for _, k := range keys {
				elems = append(elems, vr.Map[k])
			}
		default:
			elems = []string{vr.String()}
		}
		return joinOrSplitElements(cfg, elems, lit == "*", p.Quoted), true, nil
	}
	return nil, false, nil
}

func positionalElements(cfg *Config) []string {
	var out []string
	for i := 1; i <= cfg.Env.NumPositional(); i++ {
		s, _ := cfg.Env.Positional(i)
		out = append(out, s)
	}
	return out
}

func joinOrSplitElements(cfg *Config, elems []string, star, quoted bool) []string {
	if len(elems) == 0 {
		return nil
	}
	if quoted {
		if star {
			return []string{strings.Join(elems, cfg.ifsSep())}
		}
		return elems
	}
	// unquoted "$*"/"$@": concatenate with a space then re-split by IFS,
	// same as any other unquoted expansion result.
	joined := strings.Join(elems, " ")
	return splitByIFS(cfg, joined)
}

// expandParts walks a word's parts left to right, expanding each into a
// chunk; adjacent chunks with the same quotedness are not merged here so
// the splitter can see field boundaries precisely.
func expandParts(cfg *Config, parts []syntax.WordPart) ([]chunk, error) {
	var out []chunk
	for _, part := range parts {
		cs, err := expandPart(cfg, part)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

func expandPart(cfg *Config, part syntax.WordPart) ([]chunk, error) {
	switch p := part.(type) {
	case *syntax.Literal:
		return []chunk{{s: p.Value, quoted: p.Quoted}}, nil
	case *syntax.TildePart:
		home, ok := cfg.Env.HomeDir(p.User)
		if !ok {
			return []chunk{{s: "~" + p.User}}, nil
		}
		return []chunk{{s: home}}, nil
	case *syntax.VariableExpansion:
		vr := cfg.Env.Get(p.Name)
		return []chunk{{s: specialOrVar(cfg, p.Name, vr), quoted: p.Quoted}}, nil
	case *syntax.ParameterExpansion:
		s, err := ExpandParamExpansion(cfg, p)
		if err != nil {
			return nil, err
		}
		return []chunk{{s: s, quoted: p.Quoted}}, nil
	case *syntax.CommandSubstitution:
		out, err := cfg.Env.RunSubshell(p.Stmts)
		if err != nil {
			return nil, err
		}
		out = strings.TrimRight(out, "\n")
		return []chunk{{s: out, quoted: p.Quoted}}, nil
	case *syntax.ArithmeticExpansion:
		n, err := cfg.Arithm(p.Expr)
		if err != nil {
			return nil, err
		}
		return []chunk{{s: strconv.FormatInt(n, 10), quoted: p.Quoted}}, nil
	case *syntax.ProcessSubstitution:
		// Process substitution is not performed: it expands to an empty
		// string, and the executor wires up no fifo for it either.
		return []chunk{{s: ""}}, nil
	case *syntax.DoubleQuoted:
		return expandParts(cfg, p.Parts)
	case *syntax.ExtGlobPart:
		pat, err := ExpandLiteral(cfg, p.Pattern)
		if err != nil {
			return nil, err
		}
		return []chunk{{s: string(p.Op) + "(" + pat + ")"}}, nil
	}
	return nil, nil
}

func specialOrVar(cfg *Config, name string, vr Variable) string {
	switch name {
	case "#":
		return strconv.Itoa(cfg.Env.NumPositional())
	case "0":
		return cfg.Env.Arg0()
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		s, _ := cfg.Env.Positional(n)
		return s
	}
	return vr.String()
}

// splitChunks applies IFS-aware field splitting: runs of unquoted text are
// split on IFS characters, quoted runs never are, and adjacent chunks
// belonging to the same field are concatenated.
func splitChunks(cfg *Config, chunks []chunk) []string {
	var fields []string
	var cur strings.Builder
	curHasContent := false
	flush := func() {
		if curHasContent || cur.Len() > 0 {
			fields = append(fields, cur.String())
		}
		cur.Reset()
		curHasContent = false
	}
	ifs := cfg.Env.IFS()
	for _, c := range chunks {
		if c.quoted {
			cur.WriteString(c.s)
			curHasContent = true
			continue
		}
		parts := splitIFSString(c.s, ifs)
		if len(parts) == 0 {
			continue
		}
		cur.WriteString(parts[0])
		curHasContent = true
		for _, p := range parts[1:] {
			flush()
			cur.WriteString(p)
			curHasContent = true
		}
	}
	flush()
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func splitByIFS(cfg *Config, s string) []string {
	return splitIFSString(s, cfg.Env.IFS())
}

// splitIFSString implements POSIX field splitting: leading/trailing IFS
// whitespace is trimmed, runs of IFS whitespace collapse to one
// separator, and a single non-whitespace IFS character always starts a
// new field even when adjacent to another.
func splitIFSString(s string, ifs string) []string {
	if ifs == "" {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	isSpace := func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }
	isIFS := func(r rune) bool { return strings.ContainsRune(ifs, r) }

	var fields []string
	var cur strings.Builder
	i := 0
	runes := []rune(s)
	// trim leading IFS whitespace
	for i < len(runes) && isIFS(runes[i]) && isSpace(runes[i]) {
		i++
	}
	started := false
	for i < len(runes) {
		r := runes[i]
		if isIFS(r) {
			if isSpace(r) {
				if cur.Len() > 0 || started {
					fields = append(fields, cur.String())
					cur.Reset()
					started = false
				}
				for i < len(runes) && isIFS(runes[i]) && isSpace(runes[i]) {
					i++
				}
				continue
			}
			fields = append(fields, cur.String())
			cur.Reset()
			started = false
			i++
			continue
		}
		cur.WriteRune(r)
		started = true
		i++
	}
	if cur.Len() > 0 || started {
		fields = append(fields, cur.String())
	}
	return fields
}

// globFields applies pathname expansion to each field that contains an
// unescaped glob metacharacter, per the noglob/nullglob/failglob/dotglob/
// extglob/globstar/nocaseglob option set on cfg.
func globFields(cfg *Config, fields []string) ([]string, error) {
	if cfg.NoGlob {
		return fields, nil
	}
	var out []string
	for _, f := range fields {
		if !pattern.HasMeta(f, cfg.ExtGlob) {
			out = append(out, f)
			continue
		}
		matches, err := globOne(cfg, f)
		if err != nil {
			return nil, err
		}
		switch {
		case len(matches) > 0:
			out = append(out, matches...)
		case cfg.FailGlob:
			return nil, &GlobError{Pattern: f}
		case cfg.NullGlob:
			// contributes nothing
		default:
			out = append(out, f)
		}
	}
	return out, nil
}

// GlobError is returned when failglob is set and a pattern matches no
// file.
type GlobError struct{ Pattern string }

func (e *GlobError) Error() string { return "no match: " + e.Pattern }

func globOne(cfg *Config, pat string) ([]string, error) {
	if cfg.NoCaseGlob {
		matches, err := caseInsensitiveGlob(pat)
		if err != nil {
			return nil, nil
		}
		return filterDotfiles(matches, cfg.DotGlob, pat), nil
	}
	if strings.Contains(pat, "**") && cfg.GlobStar {
		matches, err := doublestar.FilepathGlob(pat, doublestar.WithNoFollow())
		if err != nil {
			return nil, nil
		}
		return filterDotfiles(matches, cfg.DotGlob, pat), nil
	}
	matches, err := filepath.Glob(pat)
	if err != nil {
		return nil, nil
	}
	sort.Strings(matches)
	return filterDotfiles(matches, cfg.DotGlob, pat), nil
}

func filterDotfiles(matches []string, dotglob bool, origPattern string) []string {
	if dotglob || strings.HasPrefix(filepath.Base(origPattern), ".") {
		return matches
	}
	var out []string
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), ".") {
			continue
		}
		out = append(out, m)
	}
	return out
}

func caseInsensitiveGlob(pat string) ([]string, error) {
	dir, base := filepath.Split(pat)
	expr, err := pattern.Regexp(base, pattern.EntireString|pattern.NoCase, false)
	if err != nil {
		return nil, err
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}
	var out []string
	for _, e := range entries {
		if rx.MatchString(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// HomeDir resolves "~" and "~user" against the OS user database, the
// fallback a real shell uses when the environment doesn't already define
// HOME for the current user.
func HomeDir(username string) (string, bool) {
	if username == "" {
		if h, ok := os.LookupEnv("HOME"); ok {
			return h, true
		}
		u, err := user.Current()
		if err != nil {
			return "", false
		}
		return u.HomeDir, true
	}
	u, err := user.Lookup(username)
	if err != nil {
		return "", false
	}
	return u.HomeDir, true
}
