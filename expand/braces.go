package expand

import (
	"strconv"
	"strings"
)

// BraceExpand performs brace expansion on a literal word body, following
// spec.md §4.1's first expansion phase: "{a,b,c}" alternation and
// "{n..m[..step]}" sequence forms, including nested braces. It never
// errors; a malformed or unbalanced brace sequence is left untouched, the
// same permissive behavior the teacher's syntax.ExpandBraces documents.
//
// Brace expansion only applies to a word built from unquoted literal text,
// per spec.md's note that expansion runs on the structural Word AST: the
// C5 orchestrator calls this only when a Word IsUnquotedLiteral.
func BraceExpand(s string) []string {
	words, ok := expandBraceLevel(s)
	if !ok {
		return []string{s}
	}
	return words
}

func expandBraceLevel(s string) ([]string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	end := -1
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, false
	}
	prefix, body, suffix := s[:start], s[start+1:end], s[end+1:]

	if seq, ok := expandSequence(body); ok {
		var out []string
		for _, mid := range seq {
			out = append(out, expandCombine(prefix, mid, suffix)...)
		}
		return out, true
	}

	alts := splitTopLevelComma(body)
	if len(alts) < 2 {
		return nil, false
	}
	var out []string
	for _, alt := range alts {
		out = append(out, expandCombine(prefix, alt, suffix)...)
	}
	return out, true
}

// expandCombine re-runs brace expansion over prefix+mid+suffix so nested
// and sibling brace groups in the remainder are also expanded.
func expandCombine(prefix, mid, suffix string) []string {
	combined := prefix + mid + suffix
	if words, ok := expandBraceLevel(combined); ok {
		return words
	}
	return []string{combined}
}

func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// expandSequence recognizes "x..y" or "x..y..step" where x and y are both
// integers or both single letters, per bash's {1..5} / {a..e} / {1..10..2}
// forms.
func expandSequence(body string) ([]string, bool) {
	parts := strings.Split(body, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, false
	}
	step := 1
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n == 0 {
			return nil, false
		}
		step = n
	}

	if from, to, ok := bothInts(parts[0], parts[1]); ok {
		return intSeq(from, to, step, parts[0]), true
	}
	if len(parts[0]) == 1 && len(parts[1]) == 1 && isLetter(parts[0][0]) && isLetter(parts[1][0]) {
		return letterSeq(parts[0][0], parts[1][0], step), true
	}
	return nil, false
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func bothInts(a, b string) (int, int, bool) {
	x, err1 := strconv.Atoi(a)
	y, err2 := strconv.Atoi(b)
	return x, y, err1 == nil && err2 == nil
}

func intSeq(from, to, step int, origFrom string) []string {
	if step < 0 {
		step = -step
	}
	width := 0
	if strings.HasPrefix(origFrom, "0") && len(origFrom) > 1 {
		width = len(origFrom)
	}
	var out []string
	fmtN := func(n int) string {
		s := strconv.Itoa(n)
		if width > 0 {
			neg := strings.HasPrefix(s, "-")
			digits := strings.TrimPrefix(s, "-")
			for len(digits) < width-boolToWidth(neg) {
				digits = "0" + digits
			}
			if neg {
				return "-" + digits
			}
			return digits
		}
		return s
	}
	if from <= to {
		for n := from; n <= to; n += step {
			out = append(out, fmtN(n))
		}
	} else {
		for n := from; n >= to; n -= step {
			out = append(out, fmtN(n))
		}
	}
	return out
}

func boolToWidth(neg bool) int {
	if neg {
		return 1
	}
	return 0
}

func letterSeq(from, to byte, step int) []string {
	if step < 0 {
		step = -step
	}
	var out []string
	if from <= to {
		for c := from; c <= to; c += byte(step) {
			out = append(out, string(c))
		}
	} else {
		for c := from; c >= to; c -= byte(step) {
			out = append(out, string(c))
		}
	}
	return out
}
