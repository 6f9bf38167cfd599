package glsl

import "fmt"

// Pos is a 1-based line/column position in the source.
type Pos struct {
	Line, Col int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokPunct
	tokDirective // a whole preprocessor line, '#' included
)

type token struct {
	kind  tokenKind
	text  string
	pos   Pos
	start int // byte offsets into the source
	end   int
}

func (t token) is(kind tokenKind, text string) bool { return t.kind == kind && t.text == text }

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokDirective:
		return "directive"
	}
	return fmt.Sprintf("%q", t.text)
}

// lex splits src into tokens. Comments are dropped and preprocessor lines
// become single directive tokens.
func lex(src string) ([]token, error) {
	var (
		toks      []token
		line, col = 1, 1
		i         int
		lineStart = true // only whitespace seen since the last newline
	)
	advance := func(n int) {
		for k := 0; k < n && i < len(src); k++ {
			if src[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			advance(1)
			lineStart = true
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			advance(1)
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				advance(1)
			}
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			at := Pos{line, col}
			advance(2)
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				advance(1)
			}
			if i >= len(src) {
				return nil, &ParseError{Pos: at, Msg: "unterminated block comment"}
			}
			advance(2)
			continue
		}

		t := token{pos: Pos{line, col}, start: i}
		switch {
		case c == '#':
			if !lineStart {
				return nil, &ParseError{Pos: t.pos, Msg: "'#' must start a line"}
			}
			t.kind = tokDirective
			for i < len(src) && src[i] != '\n' {
				// a line comment ends the directive text
				if src[i] == '/' && i+1 < len(src) && (src[i+1] == '/' || src[i+1] == '*') {
					break
				}
				advance(1)
			}
		case isIdentStart(c):
			t.kind = tokIdent
			for i < len(src) && isIdentPart(src[i]) {
				advance(1)
			}
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			t.kind = tokNumber
			for i < len(src) && (isIdentPart(src[i]) || src[i] == '.') {
				advance(1)
			}
		default:
			t.kind = tokPunct
			advance(1)
		}
		t.end = i
		t.text = trimRight(src[t.start:t.end])
		toks = append(toks, t)
		lineStart = false
	}
	toks = append(toks, token{kind: tokEOF, pos: Pos{line, col}, start: len(src), end: len(src)})
	return toks, nil
}

func isIdentStart(c byte) bool { return c == '_' || (c|0x20) >= 'a' && (c|0x20) <= 'z' }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }

func trimRight(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
