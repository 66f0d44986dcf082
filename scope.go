package lightrecord

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// WithConn checks out one connection from pool, runs fn with it, and checks
// it back in exactly once however fn ends: normal return, error, or panic.
//
// A failed checkout is returned as is and owes no checkin. A checkin error
// is returned only when fn itself succeeded.
func WithConn(ctx context.Context, pool Pool, fn func(Conn) error) error {
	return withConn(ctx, pool, discardLogger, fn)
}

func withConn(ctx context.Context, pool Pool, logger *slog.Logger, fn func(Conn) error) (err error) {
	if pool == nil {
		return ErrNilPool
	}
	conn, err := pool.Checkout(ctx)
	if err != nil {
		logger.Debug("connection checkout failed", "error", err)
		return err
	}

	scopeID := uuid.NewString()
	logger.Debug("connection checked out", "scope_id", scopeID)
	defer func() {
		cerr := pool.Checkin(conn)
		if cerr != nil {
			logger.Debug("connection checkin failed", "scope_id", scopeID, "error", cerr)
			if err == nil {
				err = cerr
			}
			return
		}
		logger.Debug("connection checked in", "scope_id", scopeID)
	}()

	return fn(conn)
}
