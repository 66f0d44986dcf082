package lightrecord

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"log/slog"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn is a connection lent by a [Pool]. *sql.Conn satisfies it.
type Conn interface {
	Querier
}

// Pool lends and reclaims connections for streaming reads.
//
// Every successful Checkout is matched by exactly one Checkin; a failed
// Checkout owes nothing.
type Pool interface {
	Checkout(ctx context.Context) (Conn, error)
	Checkin(c Conn) error
}

// SQLPool adapts a *sql.DB connection pool to [Pool].
type SQLPool struct {
	DB *sql.DB
}

// Checkout pins one connection from the pool.
func (p SQLPool) Checkout(ctx context.Context) (Conn, error) {
	if p.DB == nil {
		return nil, ErrNilPool
	}
	conn, err := p.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Checkin returns c to the pool.
func (p SQLPool) Checkin(c Conn) error {
	if sc, ok := c.(*sql.Conn); ok {
		return sc.Close()
	}
	return nil
}

// ErrStop may be returned by an [Each] visitor to end iteration early.
// It is never returned to the caller.
var ErrStop = errors.New("lightrecord: stop iteration")

// ErrUnknownColumn is returned by [Record.Set] for a column outside the record's signature.
var ErrUnknownColumn = errors.New("lightrecord: unknown column")

// ErrNilPool is returned when a streaming read is attempted without a pool.
var ErrNilPool = errors.New("lightrecord: nil pool")

// DB bundles the collaborators used by both consumption paths.
// Its methods are safe for concurrent use.
type DB struct {
	q        Querier
	pool     Pool
	registry *Registry
	logger   *slog.Logger
}

// Option configures a [DB].
type Option func(*DB)

// WithRegistry makes the DB resolve record types in r instead of the default registry.
func WithRegistry(r *Registry) Option { return func(d *DB) { d.registry = r } }

// WithLogger sets the logger used for query and connection debug events.
func WithLogger(l *slog.Logger) Option { return func(d *DB) { d.logger = l } }

// WithPool overrides the pool used by streaming reads.
func WithPool(p Pool) Option { return func(d *DB) { d.pool = p } }

// New returns a DB that runs eager reads on db and streams on connections
// pinned from db's pool.
func New(db *sql.DB, opts ...Option) *DB {
	d := &DB{q: db, pool: SQLPool{DB: db}}
	for _, o := range opts {
		o(d)
	}
	if d.registry == nil {
		d.registry = DefaultRegistry()
	}
	if d.logger == nil {
		d.logger = discardLogger
	}
	return d
}

// Registry returns the registry the DB resolves record types in.
func (d *DB) Registry() *Registry { return d.registry }

// Query runs [Query] against the DB.
func (d *DB) Query(ctx context.Context, base Base, query string, args ...any) ([]*Record, error) {
	return queryRecords(ctx, d.q, d.registry, d.logger, base, query, args)
}

// Get runs [Get] against the DB.
func (d *DB) Get(ctx context.Context, base Base, query string, args ...any) (*Record, error) {
	return getRecord(ctx, d.q, d.registry, d.logger, base, query, args)
}

// Each runs [Each] against the DB's pool.
func (d *DB) Each(ctx context.Context, base Base, query string, fn func(*Record) error, args ...any) error {
	return eachRecord(ctx, d.pool, d.registry, d.logger, base, query, args, fn)
}

// All runs [All] against the DB's pool.
func (d *DB) All(ctx context.Context, base Base, query string, args ...any) iter.Seq2[*Record, error] {
	return allRecords(ctx, d.pool, d.registry, d.logger, base, query, args)
}

var discardLogger = slog.New(slog.DiscardHandler)
