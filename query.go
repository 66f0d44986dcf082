package lightrecord

import (
	"context"
	"log/slog"
	"time"
)

// Query executes the SQL query and returns every result row as a [Record].
//
// The whole result is read before any record is returned: if execution,
// scanning, or iteration fails, Query returns the error and no records.
// Records come back in the order the driver produced the rows. Their
// [RecordType] is resolved from the result's column names in the default
// registry, so repeated queries with the same shape share one type.
//
// Example:
//
//	people := lightrecord.NewTable("people", "id", "id", "name", "email")
//
//	ctx := context.Background()
//	recs, err := lightrecord.Query(ctx, db, people, `SELECT name, email FROM people ORDER BY name`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range recs {
//	    fmt.Println(r.Value("name"), r.Value("email"))
//	}
func Query(ctx context.Context, q Querier, base Base, query string, args ...any) ([]*Record, error) {
	return queryRecords(ctx, q, DefaultRegistry(), discardLogger, base, query, args)
}

func queryRecords(ctx context.Context, q Querier, reg *Registry, logger *slog.Logger,
	base Base, query string, args []any) (out []*Record, err error) {
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Debug("light records query failed", "mode", "eager", "sql", query, "error", err)
		return nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			out, err = nil, cerr
		}
	}()

	c, err := openCursor(rows, reg, base)
	if err != nil {
		return nil, err
	}
	for {
		rec, nerr := c.next()
		if nerr != nil {
			return nil, nerr
		}
		if rec == nil {
			break
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []*Record{}
	}

	logger.Debug("light records fetched", "mode", "eager", "type", c.typ.String(),
		"rows", len(out), "duration", time.Since(start))
	return out, nil
}
