package expand

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/philipwilsonTHG/psh-sub003/pattern"
	"github.com/philipwilsonTHG/psh-sub003/syntax"
)

// UnsetParameterError is raised by the ":?"/"?" operator, mirroring
// bash's "parameter: message" fatal expansion error.
type UnsetParameterError struct {
	Name    string
	Message string
}

func (e *UnsetParameterError) Error() string {
	if e.Message != "" {
		return e.Name + ": " + e.Message
	}
	return e.Name + ": parameter not set"
}

// ExpandParamExpansion resolves a single "${...}" node to its expanded
// string, applying whichever operator it carries. A bare array name yields
// its Variable.String value; the "@"/"*" index forms join every element
// into one string (see varIndexed). One field per element for
// "${arr[@]}" is produced by ExpandWordFields via expandAllElements.
func ExpandParamExpansion(cfg *Config, pe *syntax.ParameterExpansion) (string, error) {
	name := pe.Name
	vr, set := lookupParam(cfg, name)

	str := varScalar(cfg, vr)
	if pe.Index != nil {
		s, err := varIndexed(cfg, vr, pe.Index)
		if err != nil {
			return "", err
		}
		str = s
	}

	switch pe.Operator {
	case syntax.OpNone:
		if cfg.NoUnset && !set {
			return "", &UnsetParameterError{Name: name, Message: "unbound variable"}
		}
	case syntax.OpLength:
		n := len([]rune(str))
		if isAllElements(pe.Index) {
			n = varElementCount(vr)
		}
		str = strconv.Itoa(n)
	case syntax.OpKeys, syntax.OpIndices:
		str = strings.Join(sortedKeys(vr), " ")
	case syntax.OpArrayLength:
		str = strconv.Itoa(varElementCount(vr))
	case syntax.OpDefault, syntax.OpAssignDefault, syntax.OpError, syntax.OpAlternate:
		arg, err := operandString(cfg, pe.Operand)
		if err != nil {
			return "", err
		}
		switch pe.Operator {
		case syntax.OpAlternate:
			if set && str != "" {
				str = arg
			} else {
				str = ""
			}
		case syntax.OpDefault:
			if !set || str == "" {
				str = arg
			}
		case syntax.OpAssignDefault:
			if !set || str == "" {
				str = arg
				if err := cfg.envSet(name, arg); err != nil {
					return "", err
				}
			}
		case syntax.OpError:
			if !set || str == "" {
				return "", &UnsetParameterError{Name: name, Message: arg}
			}
		}
	case syntax.OpRemovePrefix, syntax.OpRemovePrefixL,
		syntax.OpRemoveSuffix, syntax.OpRemoveSuffixL:
		arg, err := operandString(cfg, pe.Operand)
		if err != nil {
			return "", err
		}
		suffix := pe.Operator == syntax.OpRemoveSuffix || pe.Operator == syntax.OpRemoveSuffixL
		greedy := pe.Operator == syntax.OpRemovePrefixL || pe.Operator == syntax.OpRemoveSuffixL
		str, err = removePattern(str, arg, suffix, greedy, cfg.ExtGlob)
		if err != nil {
			return "", err
		}
	case syntax.OpReplace, syntax.OpReplaceAll, syntax.OpReplacePrefix, syntax.OpReplaceSuffix:
		origRaw, withRaw, ok := splitOperandSlash(pe.Operand)
		if !ok {
			return str, nil
		}
		orig, err := operandString(cfg, origRaw)
		if err != nil {
			return "", err
		}
		with, err := operandString(cfg, withRaw)
		if err != nil {
			return "", err
		}
		str, err = replacePattern(str, orig, with, pe.Operator, cfg.ExtGlob)
		if err != nil {
			return "", err
		}
	case syntax.OpUpperFirst, syntax.OpUpperAll, syntax.OpLowerFirst, syntax.OpLowerAll:
		arg, err := operandString(cfg, pe.Operand)
		if err != nil {
			return "", err
		}
		str, err = applyCase(str, arg, pe.Operator, cfg.ExtGlob)
		if err != nil {
			return "", err
		}
	case syntax.OpSubstring:
		offRaw, lenRaw, hasLen := splitOperandColon(pe.Operand)
		off, err := evalSlicePos(cfg, offRaw, len(str))
		if err != nil {
			return "", err
		}
		if off < 0 {
			off = 0
		}
		if off > len(str) {
			off = len(str)
		}
		end := len(str)
		if hasLen {
			n, err := evalSliceLen(cfg, lenRaw)
			if err != nil {
				return "", err
			}
			end = off + n
			if end > len(str) {
				end = len(str)
			}
			if end < off {
				end = off
			}
		}
		str = str[off:end]
	}
	if pe.Indirect {
		target := cfg.Env.Get(str)
		str = target.String()
	}
	return str, nil
}

func lookupParam(cfg *Config, name string) (Variable, bool) {
	if name == "LINENO" {
		return Variable{IsSet: true, Kind: Scalar, Str: "0"}, true
	}
	vr := cfg.Env.Get(name)
	return vr, vr.IsSet
}

func varScalar(cfg *Config, vr Variable) string {
	if vr.Kind == NameRef {
		return cfg.Env.Get(vr.RefName).String()
	}
	return vr.String()
}

func varElementCount(vr Variable) int {
	switch vr.Kind {
	case Indexed:
		return len(vr.List)
	case Associative:
		return len(vr.Map)
	}
	if vr.Str == "" {
		return 0
	}
	return 1
}

func sortedKeys(vr Variable) []string {
	if vr.Kind != Associative {
		keys := make([]string, len(vr.List))
		for i := range vr.List {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	keys := make([]string, 0, len(vr.Map))
	for k := range vr.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isAllElements(idx *syntax.Word) bool {
	return idx != nil && idx.IsUnquotedLiteral() && (idx.Lit() == "@" || idx.Lit() == "*")
}

func varIndexed(cfg *Config, vr Variable, idx *syntax.Word) (string, error) {
	if lit := isAllElements(idx); lit {
		switch vr.Kind {
		case Indexed:
			return strings.Join(vr.List, cfg.ifsSep()), nil
		case Associative:
			keys := sortedKeys(vr)
			vals := make([]string, len(keys))
			for i, k := range keys {
				vals[i] = vr.Map[k]
			}
			return strings.Join(vals, cfg.ifsSep()), nil
		}
		return vr.String(), nil
	}
	// associative arrays index by string, not arithmetic
	if vr.Kind == Associative {
		key, err := ExpandLiteral(cfg, idx)
		return vr.Map[key], err
	}
	n, err := cfg.Arithm(rawWordText(idx))
	if err != nil {
		return "", err
	}
	switch vr.Kind {
	case Indexed:
		i := int(n)
		if i < 0 {
			i += len(vr.List)
		}
		if i < 0 || i >= len(vr.List) {
			return "", nil
		}
		return vr.List[i], nil
	case Associative:
		return vr.Map[strconv.FormatInt(n, 10)], nil
	}
	if n == 0 {
		return vr.String(), nil
	}
	return "", nil
}

func (cfg *Config) ifsSep() string {
	ifs := cfg.Env.IFS()
	if ifs == "" {
		return " "
	}
	return ifs[:1]
}

func operandString(cfg *Config, w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	return ExpandLiteral(cfg, w)
}

// splitOperandSlash splits a ${v/orig/with} operand word on its first
// unquoted top-level '/', per the grammar the lexer packs into Operand.
func splitOperandSlash(w *syntax.Word) (*syntax.Word, *syntax.Word, bool) {
	return splitOperandOn(w, '/')
}

func splitOperandColon(w *syntax.Word) (*syntax.Word, *syntax.Word, bool) {
	return splitOperandOn(w, ':')
}

func splitOperandOn(w *syntax.Word, sep byte) (*syntax.Word, *syntax.Word, bool) {
	if w == nil {
		return nil, nil, false
	}
	for i, part := range w.Parts {
		lit, ok := part.(*syntax.Literal)
		if !ok || lit.QuoteChar != 0 {
			continue
		}
		if j := strings.IndexByte(lit.Value, sep); j >= 0 {
			left := &syntax.Word{Parts: append(append([]syntax.WordPart{}, w.Parts[:i]...), &syntax.Literal{Value: lit.Value[:j]})}
			right := &syntax.Word{Parts: append([]syntax.WordPart{&syntax.Literal{Value: lit.Value[j+1:]}}, w.Parts[i+1:]...)}
			return left, right, true
		}
	}
	return w, nil, false
}

func evalSlicePos(cfg *Config, w *syntax.Word, strLen int) (int, error) {
	if w == nil {
		return 0, nil
	}
	n, err := cfg.Arithm(rawWordText(w))
	if err != nil {
		return 0, err
	}
	p := int(n)
	if p < 0 {
		p += strLen
	}
	return p, nil
}

func evalSliceLen(cfg *Config, w *syntax.Word) (int, error) {
	if w == nil {
		return 0, nil
	}
	n, err := cfg.Arithm(rawWordText(w))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func removePattern(str, pat string, fromEnd, greedy bool, extglob bool) (string, error) {
	if pat == "" {
		return str, nil
	}
	expr, err := pattern.Regexp(pat, 0, extglob)
	if err != nil {
		return str, nil
	}
	mode := ""
	if !greedy {
		mode = "U"
	}
	switch {
	case fromEnd:
		expr = "(?" + mode + "s)(" + expr + ")$"
	default:
		expr = "(?" + mode + "s)^(" + expr + ")"
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return str, nil
	}
	if loc := rx.FindStringSubmatchIndex(str); loc != nil {
		return str[:loc[2]] + str[loc[3]:], nil
	}
	return str, nil
}

func replacePattern(str, pat, with string, op syntax.ParamOperator, extglob bool) (string, error) {
	if pat == "" {
		return str, nil
	}
	expr, err := pattern.Regexp(pat, 0, extglob)
	if err != nil {
		return str, nil
	}
	switch op {
	case syntax.OpReplacePrefix:
		expr = "^(" + expr + ")"
	case syntax.OpReplaceSuffix:
		expr = "(" + expr + ")$"
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return str, nil
	}
	if op == syntax.OpReplaceAll {
		return rx.ReplaceAllLiteralString(str, with), nil
	}
	loc := rx.FindStringIndex(str)
	if loc == nil {
		return str, nil
	}
	return str[:loc[0]] + with + str[loc[1]:], nil
}

func applyCase(str, argPattern string, op syntax.ParamOperator, extglob bool) (string, error) {
	caseFn := unicode.ToLower
	if op == syntax.OpUpperFirst || op == syntax.OpUpperAll {
		caseFn = unicode.ToUpper
	}
	all := op == syntax.OpUpperAll || op == syntax.OpLowerAll

	var rx *regexp.Regexp
	if argPattern != "" {
		expr, err := pattern.Regexp(argPattern, 0, extglob)
		if err != nil {
			return str, nil
		}
		rx, err = regexp.Compile(expr)
		if err != nil {
			return str, nil
		}
	}
	rs := []rune(str)
	for i, r := range rs {
		if rx != nil && !rx.MatchString(string(r)) {
			continue
		}
		rs[i] = caseFn(r)
		if !all {
			break
		}
	}
	return string(rs), nil
}

func rawWordText(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range w.Parts {
		if lit, ok := p.(*syntax.Literal); ok {
			b.WriteString(lit.Value)
		}
	}
	return b.String()
}
