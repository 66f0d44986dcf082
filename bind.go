package lightrecord

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Binder copies records into Go structs and caches one plan per (Go type,
// RecordType). [Bind] and [BindAll] share a package-level Binder; use
// [BindWith] with your own to keep plans apart.
type Binder struct {
	planCache        sync.Map // key: bindKey -> *bindPlan (per (T, RecordType))
	structIndexCache sync.Map // key: reflect.Type -> *fieldIndex (per T)
}

// NewBinder returns a Binder with empty caches.
func NewBinder() *Binder { return &Binder{} }

// --- package-level lazy global binder (used by Bind/BindAll) ---

var (
	binder     *Binder
	binderOnce sync.Once
)

func getBinder() *Binder {
	binderOnce.Do(func() { binder = NewBinder() })
	return binder
}

// Bind copies r into a new T, which must be a struct or pointer to struct.
//
// Fields bind by `db:"name"` first, otherwise by case-insensitive field name;
// `db:",inline"` and anonymous structs are flattened. Columns without a field
// are ignored and fields without a column keep their zero value. A field
// implementing [sql.Scanner] receives the raw value; otherwise assignable
// values are set directly, numbers are converted, and []byte may fill a
// string or be parsed into a number.
//
// Example:
//
//	type Contact struct {
//	    Name  string `db:"name"`
//	    Email string `db:"email"`
//	}
//	c, err := lightrecord.Bind[Contact](rec)
func Bind[T any](r *Record) (T, error) {
	return BindWith[T](getBinder(), r)
}

// BindAll binds every record with [Bind], stopping at the first error.
func BindAll[T any](recs []*Record) ([]T, error) {
	b := getBinder()
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		v, err := BindWith[T](b, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// BindWith is [Bind] using b's plan cache.
func BindWith[T any](b *Binder, r *Record) (T, error) {
	var zero T
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if !isStruct(rt) {
		return zero, fmt.Errorf("lightrecord: cannot bind record into %s; use a struct", rt)
	}
	pl := b.getPlan(rt, r.typ)

	root := reflect.New(rt).Elem()
	for i, fp := range pl.fields {
		if fp == nil {
			continue
		}
		dst := fieldByPathAlloc(root, fp)
		if err := assignValue(dst, r.values[i]); err != nil {
			return zero, fmt.Errorf("lightrecord: bind column %q: %w", r.typ.sig[i], err)
		}
	}
	return root.Interface().(T), nil
}

// ---------------- Planning & caches ----------------

type bindKey struct {
	rt  reflect.Type
	typ *RecordType
}

// bindPlan holds one field path per record column; nil drops the column.
type bindPlan struct {
	fields [][]int
}

func (b *Binder) getPlan(rt reflect.Type, typ *RecordType) *bindPlan {
	key := bindKey{rt: rt, typ: typ}
	if v, ok := b.planCache.Load(key); ok {
		return v.(*bindPlan)
	}
	indexer := b.structIndex(rt)
	p := &bindPlan{fields: make([][]int, len(typ.sig))}
	for i, c := range typ.sig {
		if fp, ok := indexer.byName[normalizeColAscii(c)]; ok {
			p.fields[i] = fp
		}
	}
	v, _ := b.planCache.LoadOrStore(key, p)
	return v.(*bindPlan)
}

type fieldIndex struct {
	byName map[string][]int // lower-case column name -> index path
}

func (b *Binder) structIndex(rt reflect.Type) *fieldIndex {
	if v, ok := b.structIndexCache.Load(rt); ok {
		return v.(*fieldIndex)
	}
	fi := buildStructIndex(rt)
	b.structIndexCache.Store(rt, &fi)
	return &fi
}

// ---------------- Assignment ----------------

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

func assignValue(dst reflect.Value, src any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		return assignValue(dst.Elem(), src)
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	if raw, ok := src.([]byte); ok {
		return assignBytes(dst, raw)
	}
	if s, ok := src.(string); ok && dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 {
		dst.SetBytes([]byte(s))
		return nil
	}

	switch {
	case isNumberKind(sv.Kind()) && isNumberKind(dst.Kind()):
		dst.Set(sv.Convert(dst.Type()))
		return nil
	case sv.Kind() == reflect.String && dst.Kind() == reflect.String:
		dst.SetString(sv.String())
		return nil
	case isIntKind(sv.Kind()) && dst.Kind() == reflect.Bool:
		dst.SetBool(sv.Int() != 0)
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
}

// assignBytes covers drivers that hand back text for every column type.
func assignBytes(dst reflect.Value, raw []byte) error {
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(string(raw))
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("cannot assign []byte to %s", dst.Type())
		}
		dst.SetBytes(append([]byte(nil), raw...))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(string(raw), 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(string(raw), 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(string(raw), dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.Bool:
		v, err := strconv.ParseBool(string(raw))
		if err != nil {
			return err
		}
		dst.SetBool(v)
	default:
		return fmt.Errorf("cannot assign []byte to %s", dst.Type())
	}
	return nil
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// ---------------- Struct indexing & tags ----------------

func buildStructIndex(rt reflect.Type) fieldIndex {
	idx := fieldIndex{byName: make(map[string][]int)}

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous {
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isStruct(ft) {
					walk(ft, path, inline)
					continue
				}
			}
			if name == "" {
				name = sf.Name
			}
			lc := toLowerAscii(name)
			if _, ok := idx.byName[lc]; !ok {
				idx.byName[lc] = path
			}
		}
	}
	walk(rt, nil, false)
	return idx
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// fieldByPathAlloc walks fpath, allocating nil pointers so the final field is addressable.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	if v.Kind() == reflect.Ptr && v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}
	return v
}

// ---------------- Column normalization (ASCII fast-path) ----------------

// normalizeColAscii strips one layer of identifier quoting and lower-cases,
// for matching only. Records keep the driver's names untouched.
func normalizeColAscii(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerAscii(s)
}

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
