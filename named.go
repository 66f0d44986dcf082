package lightrecord

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Placeholder selects the positional parameter style for a target database.
//
//   - PlaceholderQuestion: ?            (SQLite, DuckDB, MySQL)
//   - PlaceholderDollar:   $1, $2, ...  (PostgreSQL)
//   - PlaceholderAtP:      @p1, @p2 ... (SQL Server)
//   - PlaceholderColonNum: :1, :2, ...  (Oracle)
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

// ErrNilParams is returned when named binding gets a nil pointer, map or record.
var ErrNilParams = errors.New("lightrecord: named bind: nil params")

// ErrUnsupportedArg is returned by the internal params resolver for values
// that are neither a record, a struct, nor a map keyed by string.
var ErrUnsupportedArg = errors.New("lightrecord: named bind: params must be a record, struct or map[string]any")

// ErrDuplicateKeyTag is returned when two struct fields, embedded ones
// included, resolve to the same case-insensitive parameter name.
var ErrDuplicateKeyTag = errors.New("lightrecord: named bind: duplicate key from struct tags/fields")

// ErrMixedParams is returned when a query bound by name also carries a bare ?.
var ErrMixedParams = errors.New("lightrecord: named bind: query mixes ? and :name parameters")

// Rebind resolves :name parameters and rewrites placeholders for ph.
//
// With exactly one record, struct, or map[string]any argument, every :name
// marker is replaced by a placeholder and its value appended to args. Slices
// and arrays expand to one placeholder per element ([]byte stays scalar); an
// empty one becomes NULL. Any other argument list is positional: only ?
// markers are renumbered. Quoted text, comments, $tag$ bodies and :: casts
// are left alone.
//
// A [Record] as params lets one query's row drive the next: :col reads the
// column (exact name first, then case-insensitive) and :id falls back to the
// record's identity when no column is called id.
//
//	sql, args, err := lightrecord.Rebind(
//	    `SELECT * FROM orders WHERE person_id = :id AND status IN (:s)`,
//	    lightrecord.PlaceholderDollar,
//	    map[string]any{"id": 7, "s": []string{"open", "held"}},
//	)
//	// sql  => SELECT * FROM orders WHERE person_id = $1 AND status IN ($2,$3)
//	// args => [7 open held]
func Rebind(query string, ph Placeholder, params ...any) (string, []any, error) {
	named := len(params) == 1 && isNamedParams(params[0])
	if !named && ph == PlaceholderQuestion {
		return query, params, nil
	}
	toks, err := lexParams(query)
	if err != nil {
		return "", nil, err
	}

	var src paramSource
	if named {
		if src, err = paramsOf(params[0]); err != nil {
			return "", nil, err
		}
	}

	b := rebinder{ph: ph}
	b.out.Grow(len(query) + 8)
	last := 0
	for _, tk := range toks {
		b.out.WriteString(query[last:tk.start])
		last = tk.end
		switch {
		case tk.kind == paramPositional && named:
			return "", nil, fmt.Errorf("%w (offset %d)", ErrMixedParams, tk.start)
		case tk.kind == paramPositional:
			b.mark()
		case !named:
			b.out.WriteString(query[tk.start:tk.end])
		default:
			v, ok := src.param(tk.name)
			if !ok {
				return "", nil, fmt.Errorf("lightrecord: named bind: missing value for :%s", tk.name)
			}
			b.bind(v)
		}
	}
	b.out.WriteString(query[last:])

	if !named {
		return b.out.String(), params, nil
	}
	return b.out.String(), b.args, nil
}

// NamedQuery binds params with [Rebind] and runs [Query].
//
//	prev, _ := lightrecord.Get(ctx, db, people, `SELECT id, team FROM people WHERE email = ?`, email)
//	peers, err := lightrecord.NamedQuery(ctx, db, people, lightrecord.PlaceholderQuestion,
//	    `SELECT id, name FROM people WHERE team = :team AND id <> :id`, prev)
func NamedQuery(ctx context.Context, q Querier, base Base, ph Placeholder, query string, params ...any) ([]*Record, error) {
	bound, args, err := Rebind(query, ph, params...)
	if err != nil {
		return nil, err
	}
	return Query(ctx, q, base, bound, args...)
}

// NamedEach binds params with [Rebind] and streams with [Each]. A binding
// error is returned before any connection is checked out.
func NamedEach(ctx context.Context, pool Pool, base Base, ph Placeholder, query string, fn func(*Record) error, params ...any) error {
	bound, args, err := Rebind(query, ph, params...)
	if err != nil {
		return err
	}
	return Each(ctx, pool, base, bound, fn, args...)
}

// PlaceholderFor picks the Placeholder conventionally used by a driver name.
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "sqlserver", "mssql":
		return PlaceholderAtP
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

// rebinder accumulates the rewritten query and its arguments.
type rebinder struct {
	ph   Placeholder
	out  strings.Builder
	args []any
	n    int
}

func (b *rebinder) mark() {
	b.n++
	switch b.ph {
	case PlaceholderDollar:
		b.out.WriteByte('$')
	case PlaceholderAtP:
		b.out.WriteString("@p")
	case PlaceholderColonNum:
		b.out.WriteByte(':')
	default:
		b.out.WriteByte('?')
		return
	}
	b.out.WriteString(strconv.Itoa(b.n))
}

func (b *rebinder) bind(v any) {
	rv := reflect.ValueOf(v)
	if !isSliceOrArray(rv) {
		b.mark()
		b.args = append(b.args, v)
		return
	}
	if rv.Len() == 0 {
		b.out.WriteString("NULL")
		return
	}
	for i := range rv.Len() {
		if i > 0 {
			b.out.WriteByte(',')
		}
		b.mark()
		b.args = append(b.args, rv.Index(i).Interface())
	}
}

// paramSource resolves the value of a :name marker.
type paramSource interface {
	param(name string) (any, bool)
}

// foldedParams holds struct or map params keyed by lowercase name.
type foldedParams map[string]any

func (p foldedParams) param(name string) (any, bool) {
	v, ok := p[strings.ToLower(name)]
	return v, ok
}

// recordParams reads markers from a row.
type recordParams struct{ Attributes }

func (p recordParams) param(name string) (any, bool) {
	if v, ok := p.Get(name); ok {
		return v, true
	}
	for _, c := range p.ColumnNames() {
		if strings.EqualFold(c, name) {
			return p.Get(c)
		}
	}
	if strings.EqualFold(name, "id") {
		return p.Identity()
	}
	return nil, false
}

// isNamedParams reports whether a single argument selects named binding.
func isNamedParams(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	if _, ok := v.(Attributes); ok {
		return true
	}
	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	}
	return false
}

func paramsOf(params any) (paramSource, error) {
	rv := reflect.ValueOf(params)
	if !rv.IsValid() {
		return nil, ErrNilParams
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrNilParams
		}
		rv = rv.Elem()
	}
	if a, ok := params.(Attributes); ok {
		return recordParams{a}, nil
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrUnsupportedArg
		}
		if rv.IsNil() {
			return nil, ErrNilParams
		}
		p := make(foldedParams, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			p[strings.ToLower(it.Key().String())] = it.Value().Interface()
		}
		return p, nil
	case reflect.Struct:
		p := foldedParams{}
		if err := p.collect(rv); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, ErrUnsupportedArg
	}
}

// collect adds the exported fields of v by `db` tag or field name. Embedded
// structs are flattened; nil embedded pointers contribute nothing.
func (p foldedParams) collect(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		fv := v.Field(i)
		if f.Anonymous {
			for fv.Kind() == reflect.Pointer && !fv.IsNil() {
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Pointer {
				continue
			}
			if fv.Kind() == reflect.Struct {
				if err := p.collect(fv); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		name, _, omit := parseTag(f.Tag.Get("db"))
		if omit {
			continue
		}
		if name == "" {
			name = f.Name
		}
		key := strings.ToLower(name)
		if _, dup := p[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKeyTag, key)
		}
		p[key] = fv.Interface()
	}
	return nil
}

func isSliceOrArray(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Slice:
		return v.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}
