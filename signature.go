package lightrecord

import (
	"strconv"
	"strings"
)

// Signature is the ordered, deduplicated list of column names of a result.
// Two results share a Signature when their names match in the same order.
type Signature []string

// NewSignature builds a Signature from result column metadata.
// Names are kept exactly as the driver reported them; a repeated name keeps
// its first position.
func NewSignature(cols []string) Signature {
	sig := make(Signature, 0, len(cols))
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		sig = append(sig, c)
	}
	return sig
}

// Key returns the cache key for s. Each name is length-prefixed, so any two
// signatures that differ in names or order key differently.
func (s Signature) Key() string {
	var b strings.Builder
	for _, c := range s {
		writeKeyPart(&b, c)
	}
	return b.String()
}

// writeKeyPart appends "len:name" to b.
func writeKeyPart(b *strings.Builder, part string) {
	b.WriteString(strconv.Itoa(len(part)))
	b.WriteByte(':')
	b.WriteString(part)
}

// Equal reports whether s and o list the same names in the same order.
func (s Signature) Equal(o Signature) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Index returns the position of name in s.
func (s Signature) Index(name string) (int, bool) {
	for i, c := range s {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Contains reports whether name is one of the columns of s.
func (s Signature) Contains(name string) bool {
	_, ok := s.Index(name)
	return ok
}

func (s Signature) String() string {
	return "[" + strings.Join(s, ",") + "]"
}
