package lightrecord

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"
)

// Each executes the SQL query on a connection checked out from pool and
// calls fn once per row, in order, fetching the next row only after fn
// returns.
//
// Rows are read from the live cursor one at a time and not retained, so
// memory stays flat however large the result is. fn may return [ErrStop] to
// end the traversal early; Each then returns nil. Any other error from fn,
// the driver, or the pool ends the traversal and is returned unchanged.
// Records already passed to fn stay delivered. The connection goes back to
// the pool on every path.
//
// Example:
//
//	pool := lightrecord.SQLPool{DB: db}
//	err := lightrecord.Each(ctx, pool, people, `SELECT name, email FROM people`,
//	    func(r *lightrecord.Record) error {
//	        return enc.Encode(r)
//	    })
func Each(ctx context.Context, pool Pool, base Base, query string, fn func(*Record) error, args ...any) error {
	return eachRecord(ctx, pool, DefaultRegistry(), discardLogger, base, query, args, fn)
}

// All is the range-over-func form of [Each]. Breaking out of the loop stops
// the cursor and releases the connection. A failure is yielded once as
// (nil, err) and ends the sequence; a release failure after a break is
// dropped because the loop has already exited.
//
// Example:
//
//	for r, err := range lightrecord.All(ctx, pool, people, `SELECT id, name FROM people`) {
//	    if err != nil {
//	        return err
//	    }
//	    if done(r) {
//	        break
//	    }
//	}
func All(ctx context.Context, pool Pool, base Base, query string, args ...any) iter.Seq2[*Record, error] {
	return allRecords(ctx, pool, DefaultRegistry(), discardLogger, base, query, args)
}

func allRecords(ctx context.Context, pool Pool, reg *Registry, logger *slog.Logger,
	base Base, query string, args []any) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		stopped := false
		err := eachRecord(ctx, pool, reg, logger, base, query, args, func(r *Record) error {
			if !yield(r, nil) {
				stopped = true
				return ErrStop
			}
			return nil
		})
		if err == nil {
			return
		}
		// The loop body already returned; yield must not be called again.
		if stopped {
			logger.Debug("light records release failed after break", "error", err)
			return
		}
		yield(nil, err)
	}
}

func eachRecord(ctx context.Context, pool Pool, reg *Registry, logger *slog.Logger,
	base Base, query string, args []any, fn func(*Record) error) error {
	return withConn(ctx, pool, logger, func(conn Conn) error {
		return streamOn(ctx, conn, reg, logger, base, query, args, fn)
	})
}

func streamOn(ctx context.Context, conn Conn, reg *Registry, logger *slog.Logger,
	base Base, query string, args []any, fn func(*Record) error) (err error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Debug("light records query failed", "mode", "stream", "sql", query, "error", err)
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	c, err := openCursor(rows, reg, base)
	if err != nil {
		return err
	}

	n := 0
	stopped := false
	for {
		rec, nerr := c.next()
		if nerr != nil {
			return nerr
		}
		if rec == nil {
			break
		}
		n++
		if ferr := fn(rec); ferr != nil {
			if errors.Is(ferr, ErrStop) {
				stopped = true
				break
			}
			return ferr
		}
	}

	logger.Debug("light records streamed", "type", c.typ.String(), "rows", n,
		"stopped", stopped, "duration", time.Since(start))
	return nil
}
