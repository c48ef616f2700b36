package syntax

import "github.com/philipwilsonTHG/psh-sub003/token"

// Word is the C3 structural representation of a single command argument:
// an ordered list of parts, each carrying its own quote context. This is
// the value the expansion engine (C5) operates on directly; it never
// re-derives a Word from rebuilt strings.
type Word struct {
	Parts []WordPart
}

func (w *Word) Pos() token.Pos {
	if len(w.Parts) == 0 {
		return 0
	}
	return w.Parts[0].Pos()
}

func (w *Word) End() token.Pos {
	if len(w.Parts) == 0 {
		return 0
	}
	return w.Parts[len(w.Parts)-1].End()
}

// IsQuoted reports whether every part of the word was written inside
// quotes (single, double, or $'...').
func (w *Word) IsQuoted() bool {
	for _, p := range w.Parts {
		if !p.quoted() {
			return false
		}
	}
	return len(w.Parts) > 0
}

// IsUnquotedLiteral reports whether the word is exactly one unquoted
// Literal part, the common case for keywords, operators-as-words, etc.
func (w *Word) IsUnquotedLiteral() bool {
	if len(w.Parts) != 1 {
		return false
	}
	lit, ok := w.Parts[0].(*Literal)
	return ok && !lit.Quoted
}

// Lit returns the literal text of an IsUnquotedLiteral word, or "" if it
// is not one. Used by the parser for keyword/assignment/case-terminator
// recognition, never by the expansion engine.
func (w *Word) Lit() string {
	if !w.IsUnquotedLiteral() {
		return ""
	}
	return w.Parts[0].(*Literal).Value
}

// HasExpansionParts reports whether any part requires phases 3-5 of
// expansion (parameter, command, or arithmetic expansion).
func (w *Word) HasExpansionParts() bool {
	for _, p := range w.Parts {
		switch p.(type) {
		case *Literal, *TildePart:
		default:
			return true
		}
	}
	return false
}

// HasUnquotedExpansion reports whether any expansion part of the word is
// unquoted, i.e. eligible for word splitting and pathname expansion.
func (w *Word) HasUnquotedExpansion() bool {
	for _, p := range w.Parts {
		switch p.(type) {
		case *Literal, *TildePart:
			continue
		}
		if !p.quoted() {
			return true
		}
	}
	return false
}

// WordPart is one literal/expansion span of a Word. Every implementation
// records the quote context ("at that sub-span of the source", per
// spec.md §3) that applied when it was lexed.
type WordPart interface {
	Pos() token.Pos
	End() token.Pos
	quoted() bool
}

// QuoteChar is '\'', '"', or 0 (unquoted).
type QuoteChar byte

type partBase struct {
	From, To QuoteChar
}

// Literal is a run of ordinary text, quoted or not.
type Literal struct {
	ValuePos, ValueEnd token.Pos
	Value              string
	Quoted             bool
	QuoteChar          QuoteChar
}

func (l *Literal) Pos() token.Pos { return l.ValuePos }
func (l *Literal) End() token.Pos { return l.ValueEnd }
func (l *Literal) quoted() bool   { return l.Quoted }

// VariableExpansion is a bare "$name" or "$1".."$9"/"$@"/"$*"/"$#"/"$?"/
// "$$"/"$!"/"$-" reference, with no operator suffix.
type VariableExpansion struct {
	DollarPos, EndPos token.Pos
	Name              string
	Quoted            bool
	QuoteChar         QuoteChar
}

func (v *VariableExpansion) Pos() token.Pos { return v.DollarPos }
func (v *VariableExpansion) End() token.Pos { return v.EndPos }
func (v *VariableExpansion) quoted() bool   { return v.Quoted }

// ParamOperator enumerates the "${name OP operand}" suffix operators,
// matched by earliest position in the fixed table from spec.md §4.3:
// {:-, :=, :?, :+, ##, #, %%, %, ^^, ^, ,,, ,, /#, /%, //, /, :}.
type ParamOperator int

const (
	OpNone ParamOperator = iota
	OpDefault        // :- or -
	OpAssignDefault  // := or =
	OpError          // :? or ?
	OpAlternate      // :+ or +
	OpLength         // #var (Length flag, not an operator on a ParamExp operand)
	OpRemovePrefix   // #
	OpRemovePrefixL  // ##
	OpRemoveSuffix   // %
	OpRemoveSuffixL  // %%
	OpReplace        // /
	OpReplaceAll     // //
	OpReplacePrefix  // /#
	OpReplaceSuffix  // /%
	OpUpperFirst     // ^
	OpUpperAll       // ^^
	OpLowerFirst     // ,
	OpLowerAll       // ,,
	OpSubstring      // :offset[:length]
	OpIndices        // !name[@] / !name[*]
	OpKeys           // !name@
	OpArrayLength    // #name[@]
)

// ParameterExpansion is "${name[OP operand]}" or its "$name" shorthand
// when Operator == OpNone (VariableExpansion is used for that common
// case instead; ParameterExpansion always carries braces).
type ParameterExpansion struct {
	DollarPos, RbracePos token.Pos
	Name                 string
	Index                *Word // arr[expr] subscript, parsed before operator detection
	Operator             ParamOperator
	Operand              *Word
	Indirect             bool // ${!name}
	Quoted               bool
	QuoteChar            QuoteChar
}

func (p *ParameterExpansion) Pos() token.Pos { return p.DollarPos }
func (p *ParameterExpansion) End() token.Pos { return p.RbracePos + 1 }
func (p *ParameterExpansion) quoted() bool   { return p.Quoted }

// CommandSubstitution holds a nested, fully parsed statement list: "$(...)"
// or legacy "`...`".
type CommandSubstitution struct {
	LeftPos, RightPos token.Pos
	Stmts             []*Stmt
	Backquoted        bool
	Quoted            bool
	QuoteChar         QuoteChar
}

func (c *CommandSubstitution) Pos() token.Pos { return c.LeftPos }
func (c *CommandSubstitution) End() token.Pos { return c.RightPos + 1 }
func (c *CommandSubstitution) quoted() bool   { return c.Quoted }

// ArithmeticExpansion stores the raw, unparsed expression text of a
// "$((...))"; C6 parses and evaluates it lazily during expansion so that
// the Word AST never needs an arithmetic grammar of its own.
type ArithmeticExpansion struct {
	LeftPos, RightPos token.Pos
	Expr              string
	Quoted            bool
	QuoteChar         QuoteChar
}

func (a *ArithmeticExpansion) Pos() token.Pos { return a.LeftPos }
func (a *ArithmeticExpansion) End() token.Pos { return a.RightPos + 1 }
func (a *ArithmeticExpansion) quoted() bool   { return a.Quoted }

// ProcessSubstitution is "<(cmd)" or ">(cmd)"; it is never quoted.
type ProcessSubstitution struct {
	LeftPos, RightPos token.Pos
	Direction         ProcSubDir
	Stmts             []*Stmt
}

type ProcSubDir int

const (
	ProcSubIn ProcSubDir = iota
	ProcSubOut
)

func (p *ProcessSubstitution) Pos() token.Pos { return p.LeftPos }
func (p *ProcessSubstitution) End() token.Pos { return p.RightPos + 1 }
func (p *ProcessSubstitution) quoted() bool   { return false }

// TildePart is "~" or "~user", produced only when the adjacency rules of
// spec.md §4.3 allow tilde expansion at this position.
type TildePart struct {
	TildePos, EndPos token.Pos
	User             string
}

func (t *TildePart) Pos() token.Pos { return t.TildePos }
func (t *TildePart) End() token.Pos { return t.EndPos }
func (t *TildePart) quoted() bool   { return false }

// DoubleQuoted groups a run of parts that share one pair of double quotes,
// so the printer/dumper can reconstruct the original quoting boundary
// even though each inner part already carries Quoted=true individually.
type DoubleQuoted struct {
	LeftPos, RightPos token.Pos
	Parts             []WordPart
}

func (d *DoubleQuoted) Pos() token.Pos { return d.LeftPos }
func (d *DoubleQuoted) End() token.Pos { return d.RightPos + 1 }
func (d *DoubleQuoted) quoted() bool   { return true }

// ExtGlobPart is a "?(...)","*(...)","+(...)","@(...)","!(...)" pattern,
// lexed as a single token only when the extglob option is enabled.
type ExtGlobPart struct {
	StartPos, EndPos token.Pos
	Op               byte // one of ?*+@!
	Pattern          *Word
}

func (e *ExtGlobPart) Pos() token.Pos { return e.StartPos }
func (e *ExtGlobPart) End() token.Pos { return e.EndPos }
func (e *ExtGlobPart) quoted() bool   { return false }
