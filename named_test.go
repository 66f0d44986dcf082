package lightrecord

import (
	"context"
	"database/sql/driver"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reDollarToken = regexp.MustCompile(`\$\d+`)

type tenantScope struct {
	Tenant int `db:"tenant"`
}

type reportFilter struct {
	tenantScope
	Status string    `db:"status"`
	IDs    []int64   `db:"ids"`
	Since  time.Time `db:"since"`
	Skip   string    `db:"-"`
}

func TestRebind(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    string
		ph       Placeholder
		params   []any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:  "struct params, postgres, skips comments and dollar quotes",
			query: "SELECT id FROM people WHERE tenant=:tenant AND status=:status AND id IN (:ids) AND created_at >= :since -- :c\n/* :b */ $tag$ :d $tag$",
			ph:    PlaceholderDollar,
			params: []any{reportFilter{
				tenantScope: tenantScope{Tenant: 42},
				Status:      "active",
				IDs:         []int64{7, 8, 9},
				Since:       since,
			}},
			wantSQL:  "SELECT id FROM people WHERE tenant=$1 AND status=$2 AND id IN ($3,$4,$5) AND created_at >= $6 -- :c\n/* :b */ $tag$ :d $tag$",
			wantArgs: []any{42, "active", int64(7), int64(8), int64(9), since},
		},
		{
			name:     "empty slice becomes NULL",
			query:    `SELECT 1 WHERE status=:status AND id IN (:ids)`,
			ph:       PlaceholderAtP,
			params:   []any{map[string]any{"status": "x", "ids": []int{}}},
			wantSQL:  `SELECT 1 WHERE status=@p1 AND id IN (NULL)`,
			wantArgs: []any{"x"},
		},
		{
			name:     "bytes stay scalar, arrays expand",
			query:    `SELECT 1 WHERE b=:b AND n IN (:nums)`,
			ph:       PlaceholderDollar,
			params:   []any{map[string]any{"b": []byte("hi"), "nums": [2]int{5, 6}}},
			wantSQL:  `SELECT 1 WHERE b=$1 AND n IN ($2,$3)`,
			wantArgs: []any{[]byte("hi"), 5, 6},
		},
		{
			name:     "repeated names are numbered in order",
			query:    `SELECT 1 WHERE a=:x OR b IN (:arr) OR c=:x`,
			ph:       PlaceholderColonNum,
			params:   []any{map[string]any{"x": 9, "arr": []int{1, 2}}},
			wantSQL:  `SELECT 1 WHERE a=:1 OR b IN (:2,:3) OR c=:4`,
			wantArgs: []any{9, 1, 2, 9},
		},
		{
			name:     "positional passthrough",
			query:    `SELECT * FROM t WHERE a=? AND b IN (?,?) -- ? in comment`,
			ph:       PlaceholderColonNum,
			params:   []any{"aa", 2, 3},
			wantSQL:  `SELECT * FROM t WHERE a=:1 AND b IN (:2,:3) -- ? in comment`,
			wantArgs: []any{"aa", 2, 3},
		},
		{
			name:    "question style without params is a no-op",
			query:   "SELECT ? AS x, '--' AS y",
			ph:      PlaceholderQuestion,
			wantSQL: "SELECT ? AS x, '--' AS y",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotSQL, gotArgs, err := Rebind(tc.query, tc.ph, tc.params...)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, gotSQL)
			assert.Equal(t, len(tc.wantArgs), len(gotArgs))
			for i := range tc.wantArgs {
				assert.True(t, reflect.DeepEqual(tc.wantArgs[i], gotArgs[i]), "arg %d: got %#v want %#v", i, gotArgs[i], tc.wantArgs[i])
			}
		})
	}
}

func TestRebind_Errors(t *testing.T) {
	var nilStruct *struct{ A int }
	_, err := paramsOf(nilStruct)
	assert.ErrorIs(t, err, ErrNilParams)
	_, err = paramsOf(nil)
	assert.ErrorIs(t, err, ErrNilParams)

	_, _, err = Rebind(`SELECT :missing`, PlaceholderQuestion, map[string]any{"other": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value for :missing")

	type dup struct {
		A int `db:"name"`
		B int `db:"NAME"`
	}
	_, _, err = Rebind(`SELECT :name`, PlaceholderQuestion, dup{})
	assert.ErrorIs(t, err, ErrDuplicateKeyTag)

	_, _, err = Rebind(`SELECT ? WHERE a = :a`, PlaceholderQuestion, map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrMixedParams)

	_, _, err = Rebind(`SELECT '?`, PlaceholderDollar, 1)
	assert.ErrorIs(t, err, ErrUnterminated)
}

func TestRebind_PositionalKeepsNamedText(t *testing.T) {
	got, args, err := Rebind(`SELECT :a, ?`, PlaceholderDollar, 5)
	require.NoError(t, err)
	assert.Equal(t, `SELECT :a, $1`, got)
	assert.Equal(t, []any{5}, args)
}

func TestRebind_RecordParams(t *testing.T) {
	accounts := NewTable("accounts", "account_id")
	rec := synthesize(accounts, Signature{"account_id", "Team", "tags"}).New(map[string]any{
		"account_id": int64(7),
		"Team":       "infra",
		"tags":       []string{"a", "b"},
	})

	got, args, err := Rebind(
		`SELECT id FROM people WHERE owner = :id AND team = :team AND tag IN (:tags) AND x = :account_id`,
		PlaceholderDollar, rec)
	require.NoError(t, err)
	assert.Equal(t, `SELECT id FROM people WHERE owner = $1 AND team = $2 AND tag IN ($3,$4) AND x = $5`, got)
	assert.Equal(t, []any{int64(7), "infra", "a", "b", int64(7)}, args)

	// Projected-away identity is a missing value, not a nil argument.
	noKey := synthesize(accounts, Signature{"Team"}).New(map[string]any{"Team": "infra"})
	_, _, err = Rebind(`SELECT :id`, PlaceholderQuestion, noKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value for :id")

	var nilRec *Record
	got, args, err = Rebind(`SELECT ?`, PlaceholderQuestion, nilRec)
	require.NoError(t, err)
	assert.Equal(t, `SELECT ?`, got)
	assert.Equal(t, []any{nilRec}, args)
}

func TestRebind_SkipsQuotedRegions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strings comments dollar blocks", "SELECT '?', $$ ? $$, $z$ ? $z$, -- ? line\n/* ? block */ ? AS bind", "SELECT '?', $$ ? $$, $z$ ? $z$, -- ? line\n/* ? block */ $1 AS bind"},
		{"double quoted identifiers", `SELECT "a ? "" b", ?`, `SELECT "a ? "" b", $1`},
		{"backtick identifiers", "SELECT `c ? `` d`, ?", "SELECT `c ? `` d`, $1"},
		{"pg casts", `SELECT x::text, ?`, `SELECT x::text, $1`},
		{"multibyte text", `SELECT 'héllo', ?, 'ü'`, `SELECT 'héllo', $1, 'ü'`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := Rebind(tc.in, PlaceholderDollar, "v")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Len(t, reDollarToken.FindAllString(got, -1), 1)
		})
	}
}

func TestRebind_TwoDigitNumbers(t *testing.T) {
	args := make([]any, 12)
	got, _, err := Rebind("?"+strings.Repeat(",?", 11), PlaceholderAtP, args...)
	require.NoError(t, err)
	for i := 1; i <= 12; i++ {
		assert.Contains(t, got, "@p"+strconv.Itoa(i))
	}
}

func TestParamsOf(t *testing.T) {
	type Inner struct {
		A int `db:"a"`
	}
	type Outer struct {
		*Inner
		B string `db:"b,inline"`
		C string `db:"-"`
		d int
	}

	src, err := paramsOf(Outer{Inner: &Inner{A: 10}, B: "bee", C: "skip", d: 1})
	require.NoError(t, err)
	v, ok := src.param("A")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	v, ok = src.param("b")
	assert.True(t, ok)
	assert.Equal(t, "bee", v)
	_, ok = src.param("c")
	assert.False(t, ok)
	_, ok = src.param("d")
	assert.False(t, ok)

	src, err = paramsOf(&Outer{B: "nil embedded"})
	require.NoError(t, err)
	_, ok = src.param("a")
	assert.False(t, ok, "nil embedded pointer is skipped")

	var nilMap map[string]any
	_, err = paramsOf(nilMap)
	assert.ErrorIs(t, err, ErrNilParams)
	_, err = paramsOf(map[int]any{1: 2})
	assert.ErrorIs(t, err, ErrUnsupportedArg)
	_, err = paramsOf(123)
	assert.ErrorIs(t, err, ErrUnsupportedArg)
}

func TestIsNamedParams(t *testing.T) {
	type S struct{ X int }
	var nilPtr *S
	assert.False(t, isNamedParams(nilPtr))
	assert.True(t, isNamedParams(S{}))
	assert.True(t, isNamedParams(&S{}))
	assert.True(t, isNamedParams(map[string]any{"a": 1}))
	assert.True(t, isNamedParams(synthesize(people, Signature{"id"}).New(nil)))
	assert.False(t, isNamedParams(map[int]any{1: 2}))
	assert.False(t, isNamedParams(7))
}

func TestIsSliceOrArray(t *testing.T) {
	assert.True(t, isSliceOrArray(reflect.ValueOf([]int{1})))
	assert.False(t, isSliceOrArray(reflect.ValueOf([]byte{1})), "[]byte is scalar")
	assert.True(t, isSliceOrArray(reflect.ValueOf([2]int{1, 2})))
	assert.False(t, isSliceOrArray(reflect.Value{}))
}

func TestPlaceholderFor(t *testing.T) {
	tests := map[string]Placeholder{
		"pgx":       PlaceholderDollar,
		"lib/pq":    PlaceholderDollar,
		"sqlserver": PlaceholderAtP,
		"godror":    PlaceholderColonNum,
		"sqlite3":   PlaceholderQuestion,
		"duckdb":    PlaceholderQuestion,
	}
	for driverName, want := range tests {
		assert.Equal(t, want, PlaceholderFor(driverName), driverName)
	}
}

func TestNamedQuery_RewritesBeforeExecuting(t *testing.T) {
	var gotQuery string
	var gotArgs []driver.NamedValue
	db, _ := newTestDB(t, func(q string, args []driver.NamedValue) ([]string, [][]driver.Value, error) {
		gotQuery, gotArgs = q, args
		return []string{"id", "name"}, [][]driver.Value{{int64(1), "ada"}}, nil
	})

	recs, err := NamedQuery(context.Background(), db, people, PlaceholderDollar,
		`SELECT id, name FROM people WHERE id IN (:ids)`, map[string]any{"ids": []int64{1, 2}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, `SELECT id, name FROM people WHERE id IN ($1,$2)`, gotQuery)
	require.Len(t, gotArgs, 2)
	assert.Equal(t, int64(2), gotArgs[1].Value)
}

func TestNamedQuery_BindError(t *testing.T) {
	db, _ := newTestDB(t, rowsOf([]string{"id"}))
	_, err := NamedQuery(context.Background(), db, people, PlaceholderQuestion, `SELECT :id`, map[string]any{})
	assert.Error(t, err)
}

func TestNamedEach(t *testing.T) {
	var gotQuery string
	db, _ := newTestDB(t, func(q string, _ []driver.NamedValue) ([]string, [][]driver.Value, error) {
		gotQuery = q
		return []string{"id"}, [][]driver.Value{{int64(1)}, {int64(2)}}, nil
	})
	pool := newCountingPool(db)

	n := 0
	err := NamedEach(context.Background(), pool, people, PlaceholderQuestion,
		`SELECT id FROM people WHERE status = :status`,
		func(*Record) error { n++; return nil },
		map[string]any{"status": "active"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, `SELECT id FROM people WHERE status = ?`, gotQuery)
}

func TestNamedEach_BindErrorSkipsCheckout(t *testing.T) {
	db, _ := newTestDB(t, rowsOf([]string{"id"}))
	pool := newCountingPool(db)

	for _, q := range []string{`SELECT :a`, `SELECT 'open`} {
		err := NamedEach(context.Background(), pool, people, PlaceholderQuestion,
			q, func(*Record) error { return nil }, map[string]any{})
		assert.Error(t, err, q)
	}
	out, in := pool.counts()
	assert.Equal(t, 0, out)
	assert.Equal(t, 0, in)
}

func TestNamedQuery_RecordDrivesNextQuery(t *testing.T) {
	var gotArgs []driver.NamedValue
	db, _ := newTestDB(t, func(q string, args []driver.NamedValue) ([]string, [][]driver.Value, error) {
		gotArgs = args
		if strings.Contains(q, "email") {
			return []string{"id", "team"}, [][]driver.Value{{int64(4), "infra"}}, nil
		}
		return []string{"id", "name"}, [][]driver.Value{{int64(5), "bo"}, {int64(6), "cy"}}, nil
	})
	ctx := context.Background()

	me, err := Get(ctx, db, people, `SELECT id, team FROM people WHERE email = ?`, "a@example.com")
	require.NoError(t, err)

	peers, err := NamedQuery(ctx, db, people, PlaceholderQuestion,
		`SELECT id, name FROM people WHERE team = :team AND id <> :id`, me)
	require.NoError(t, err)
	require.Len(t, peers, 2)
	require.Len(t, gotArgs, 2)
	assert.Equal(t, "infra", gotArgs[0].Value)
	assert.Equal(t, int64(4), gotArgs[1].Value)
}
