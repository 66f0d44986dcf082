package lightrecord

import (
	"context"
	"database/sql"
	"log/slog"
)

// Get executes the SQL query and returns the first row as a [Record].
//
// It returns [sql.ErrNoRows] if the query yields no rows and does not
// enforce "exactly one row"; later rows are never read. Use LIMIT 1 (or an
// equivalent WHERE clause) when you require at most one row.
//
// Example:
//
//	r, err := lightrecord.Get(ctx, db, people, `SELECT id, name FROM people WHERE id = ?`, 42)
//	if errors.Is(err, sql.ErrNoRows) {
//	    // handle not found
//	}
//	id, ok := r.Identity()
func Get(ctx context.Context, q Querier, base Base, query string, args ...any) (*Record, error) {
	return getRecord(ctx, q, DefaultRegistry(), discardLogger, base, query, args)
}

func getRecord(ctx context.Context, q Querier, reg *Registry, logger *slog.Logger,
	base Base, query string, args []any) (rec *Record, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// Ensure Close error is propagated if no earlier error occurred.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			rec, err = nil, cerr
		}
	}()

	c, err := openCursor(rows, reg, base)
	if err != nil {
		return nil, err
	}
	rec, err = c.next()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, sql.ErrNoRows
	}
	logger.Debug("light record fetched", "mode", "first", "type", c.typ.String())
	return rec, nil
}
