package lightrecord

import "strings"

// RecordType describes the records produced for one (Base, Signature) pair.
//
// A RecordType is immutable once synthesized. The registry hands out the same
// *RecordType for every query sharing the pair, so pointer comparison is a
// valid shape test.
type RecordType struct {
	base     Base
	sig      Signature
	index    map[string]int
	identity int // position of the primary key column, -1 if none
	name     string
}

// synthesize builds the RecordType for base and sig. An empty signature
// yields a valid type without columns.
func synthesize(base Base, sig Signature) *RecordType {
	sig = append(Signature(nil), sig...)
	rt := &RecordType{
		base:     base,
		sig:      sig,
		index:    make(map[string]int, len(sig)),
		identity: -1,
	}
	for i, c := range sig {
		rt.index[c] = i
	}
	rt.identity = identityIndex(base, rt.index)

	var b strings.Builder
	if base != nil {
		b.WriteString(base.Name())
	}
	b.WriteString(sig.String())
	rt.name = b.String()
	return rt
}

// identityIndex locates the column the primary key reads from. A base whose
// declared columns omit its own primary key gets no identity rather than a guess.
func identityIndex(base Base, index map[string]int) int {
	if base == nil {
		return -1
	}
	pk := base.PrimaryKey()
	if pk == "" {
		return -1
	}
	if decl := base.Columns(); len(decl) > 0 && !Signature(decl).Contains(pk) {
		return -1
	}
	if i, ok := index[pk]; ok {
		return i
	}
	return -1
}

// Base returns the structure the type was synthesized for.
func (rt *RecordType) Base() Base { return rt.base }

// Signature returns a copy of the column signature.
func (rt *RecordType) Signature() Signature { return append(Signature(nil), rt.sig...) }

// ColumnNames lists the accessible columns in result order.
func (rt *RecordType) ColumnNames() []string { return append([]string(nil), rt.sig...) }

// NumColumns returns the number of columns in the signature.
func (rt *RecordType) NumColumns() int { return len(rt.sig) }

// HasAttribute reports whether name is a column of the type.
func (rt *RecordType) HasAttribute(name string) bool {
	_, ok := rt.index[name]
	return ok
}

// IdentityColumn returns the column Identity reads, if the type has one.
func (rt *RecordType) IdentityColumn() (string, bool) {
	if rt.identity < 0 {
		return "", false
	}
	return rt.sig[rt.identity], true
}

// String returns a display name such as "people[name,email]".
func (rt *RecordType) String() string { return rt.name }

// New wraps row as a record of this type. Columns missing from row read as
// nil; keys outside the signature are ignored.
func (rt *RecordType) New(row map[string]any) *Record {
	values := make([]any, len(rt.sig))
	for i, c := range rt.sig {
		values[i] = row[c]
	}
	return &Record{typ: rt, values: values}
}

// positions maps each raw result column to its signature slot.
func (rt *RecordType) positions(cols []string) []int {
	pos := make([]int, len(cols))
	for i, c := range cols {
		if j, ok := rt.index[c]; ok {
			pos[i] = j
		} else {
			pos[i] = -1
		}
	}
	return pos
}

// fromRaw builds a record from one scanned row. When a name repeats in the
// result the later value wins, as it would in a hash row.
func (rt *RecordType) fromRaw(pos []int, raw []any) *Record {
	values := make([]any, len(rt.sig))
	for i, j := range pos {
		if j >= 0 {
			values[j] = raw[i]
		}
	}
	return &Record{typ: rt, values: values}
}
