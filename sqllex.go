package lightrecord

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnterminated is returned when a query ends inside a quoted region or a
// block comment.
var ErrUnterminated = errors.New("lightrecord: unterminated")

type paramKind uint8

const (
	paramPositional paramKind = iota // ?
	paramNamed                       // :name
)

// paramToken is one parameter marker outside quoted text and comments.
// query[start:end] is the marker itself.
type paramToken struct {
	kind       paramKind
	name       string
	start, end int
}

// lexParams finds the parameter markers of query in order. Quoted strings
// and identifiers, comments, PostgreSQL $tag$ bodies and :: casts are
// skipped.
func lexParams(query string) ([]paramToken, error) {
	lx := sqlLexer{src: query}
	for lx.pos < len(lx.src) {
		if err := lx.step(); err != nil {
			return nil, err
		}
	}
	return lx.toks, nil
}

// sqlLexer walks bytes: every byte it reacts to is ASCII, so multi-byte
// runes are stepped over unchanged.
type sqlLexer struct {
	src  string
	pos  int
	toks []paramToken
}

func (lx *sqlLexer) rest() string { return lx.src[lx.pos:] }

func (lx *sqlLexer) step() error {
	switch c := lx.src[lx.pos]; c {
	case '\'':
		return lx.quoted(c, "single-quoted string")
	case '"':
		return lx.quoted(c, "double-quoted identifier")
	case '`':
		return lx.quoted(c, "backtick-quoted identifier")
	case '-':
		if strings.HasPrefix(lx.rest(), "--") {
			lx.lineComment()
			return nil
		}
	case '/':
		if strings.HasPrefix(lx.rest(), "/*") {
			return lx.blockComment()
		}
	case '$':
		if tag, ok := dollarTag(lx.rest()); ok {
			return lx.dollarQuoted(tag)
		}
	case '?':
		lx.toks = append(lx.toks, paramToken{kind: paramPositional, start: lx.pos, end: lx.pos + 1})
	case ':':
		if strings.HasPrefix(lx.rest(), "::") {
			lx.pos += 2
			return nil
		}
		if name := identPrefix(lx.src[lx.pos+1:]); name != "" {
			end := lx.pos + 1 + len(name)
			lx.toks = append(lx.toks, paramToken{kind: paramNamed, name: name, start: lx.pos, end: end})
			lx.pos = end
			return nil
		}
	}
	lx.pos++
	return nil
}

// quoted skips a region opened and closed by q; a doubled q inside is an
// escaped quote.
func (lx *sqlLexer) quoted(q byte, what string) error {
	for i := lx.pos + 1; i < len(lx.src); i++ {
		if lx.src[i] != q {
			continue
		}
		if i+1 < len(lx.src) && lx.src[i+1] == q {
			i++
			continue
		}
		lx.pos = i + 1
		return nil
	}
	return fmt.Errorf("%w %s", ErrUnterminated, what)
}

func (lx *sqlLexer) lineComment() {
	if i := strings.IndexByte(lx.rest(), '\n'); i >= 0 {
		lx.pos += i + 1
		return
	}
	lx.pos = len(lx.src)
}

func (lx *sqlLexer) blockComment() error {
	i := strings.Index(lx.src[lx.pos+2:], "*/")
	if i < 0 {
		return fmt.Errorf("%w block comment", ErrUnterminated)
	}
	lx.pos += 2 + i + 2
	return nil
}

func (lx *sqlLexer) dollarQuoted(tag string) error {
	body := lx.pos + len(tag)
	i := strings.Index(lx.src[body:], tag)
	if i < 0 {
		return fmt.Errorf("%w dollar-quoted string", ErrUnterminated)
	}
	lx.pos = body + i + len(tag)
	return nil
}

// dollarTag returns the opening "$$" or "$tag$" at the start of s.
func dollarTag(s string) (string, bool) {
	for i, r := range s[1:] {
		if r == '$' {
			return s[:i+2], true
		}
		if !isIdentRune(r) {
			return "", false
		}
	}
	return "", false
}

// identPrefix returns the leading identifier of s, or "".
func identPrefix(s string) string {
	for i, r := range s {
		if !isIdentRune(r) {
			return s[:i]
		}
	}
	return s
}

func isIdentRune(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
