package syntax

import "github.com/philipwilsonTHG/psh-sub003/token"

// source is the C1 character-stream + position tracker. It indexes the
// input by byte offset and supports the peek/advance/save-restore
// operations the lexer drives its state machine with.
type source struct {
	src  string
	off  int // next unread byte
	line int
	// lineOffsets holds the byte offset of the first character of each
	// line; lineOffsets[0] is always 0. Built incrementally as advance
	// crosses newlines, mirroring syntax.File.Lines in the teacher.
	lineOffsets []int
}

func newSource(src string) *source {
	return &source{src: src, line: 1, lineOffsets: []int{0}}
}

func (s *source) len() int { return len(s.src) }

// peek returns the byte k positions ahead of the cursor, or 0 past EOF.
func (s *source) peek(k int) byte {
	if s.off+k >= len(s.src) {
		return 0
	}
	return s.src[s.off+k]
}

func (s *source) peekStr(n int) string {
	end := s.off + n
	if end > len(s.src) {
		end = len(s.src)
	}
	return s.src[s.off:end]
}

func (s *source) atEOF() bool { return s.off >= len(s.src) }

// advance consumes n bytes, tracking line numbers as unescaped newlines
// are crossed. Line continuations are removed from the stream before
// tokenization (see stripLineContinuations), so every '\n' seen here is real.
func (s *source) advance(n int) {
	for i := 0; i < n && s.off < len(s.src); i++ {
		if s.src[s.off] == '\n' {
			s.line++
			s.lineOffsets = append(s.lineOffsets, s.off+1)
		}
		s.off++
	}
}

type savedPos struct {
	off, line int
	nLines    int
}

func (s *source) savePos() savedPos {
	return savedPos{off: s.off, line: s.line, nLines: len(s.lineOffsets)}
}

func (s *source) restorePos(p savedPos) {
	s.off, s.line = p.off, p.line
	s.lineOffsets = s.lineOffsets[:p.nLines]
}

func (s *source) pos() token.Pos { return token.Pos(s.off + 1) }

// lineCol resolves a Pos into (line, column) via binary search over the
// recorded line-start offsets, the same inlined-search trick the teacher
// uses in syntax.File.Position.
func (s *source) lineCol(p token.Pos) (line, col int) {
	off := int(p) - 1
	i, j := 0, len(s.lineOffsets)
	for i < j {
		h := (i + j) / 2
		if s.lineOffsets[h] <= off {
			i = h + 1
		} else {
			j = h
		}
	}
	idx := i - 1
	if idx < 0 {
		return 1, off + 1
	}
	return idx + 1, off - s.lineOffsets[idx] + 1
}

// stripLineContinuations removes every unescaped "\\\n" outside of
// single-quoted spans, per spec.md §4.1: "Line-continuation preservation
// inside single quotes is required." This is a pre-tokenization pass so
// the lexer and its offset tracking never observe the removed bytes.
func stripLineContinuations(src string) string {
	var b []byte
	inSingle := false
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\'' && !inSingle:
			inSingle = true
			b = append(b, c)
			i++
		case c == '\'' && inSingle:
			inSingle = false
			b = append(b, c)
			i++
		case c == '\\' && i+1 < len(src) && src[i+1] == '\n' && !inSingle:
			i += 2 // drop both bytes entirely
		case c == '\\' && i+1 < len(src) && !inSingle:
			b = append(b, c, src[i+1]) // escaped byte, kept as is
			i += 2
		default:
			b = append(b, c)
			i++
		}
	}
	return string(b)
}
