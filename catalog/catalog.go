// Package catalog is the repository layer of the metadata catalog: CRUD
// over files, datasets, namespaces, users, roles, named queries and
// parameter categories, lazy file-set streaming with union/join/subtract
// algebra, the basic-query planner entry point, and bulk ingest.
//
// The package runs on pgx natively (not database/sql) for jsonb scanning
// and the COPY protocol. A Catalog works with *pgxpool.Pool, *pgx.Conn,
// or pgx.Tx; WithTx binds a catalog to an existing transaction so
// operations participate without committing.
package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filecat/filecat"
)

// isNoRows distinguishes "no such record" from real store failures;
// lookups translate it to a nil record or ErrNotFound, never StoreError.
func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// DB is the pgx surface the repositories need.
// Satisfied by *pgxpool.Pool, *pgx.Conn, and pgx.Tx (nested transactions
// become savepoints).
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// DefaultCopyThreshold is the batch size above which bulk ingest switches
// from a multi-row INSERT to the COPY protocol.
const DefaultCopyThreshold = 100

// Catalog is the entry point to the repository layer. It is lightweight
// and safe to create per request; it holds no state beyond the database
// handle and options.
type Catalog struct {
	db            DB
	copyThreshold int
	inTx          bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCopyThreshold overrides the bulk-ingest batch size at which
// CreateMany switches to COPY.
func WithCopyThreshold(n int) Option {
	return func(c *Catalog) {
		c.copyThreshold = n
	}
}

// New creates a catalog over the given handle.
func New(db DB, opts ...Option) *Catalog {
	c := &Catalog{db: db, copyThreshold: DefaultCopyThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTx returns a catalog bound to tx. Operations on the returned
// catalog never open or commit transactions of their own; the caller
// owns the commit.
func (c *Catalog) WithTx(tx pgx.Tx) *Catalog {
	return c.clone(tx)
}

// clone binds a copy of the catalog to db, marking it
// transaction-bound.
func (c *Catalog) clone(db DB) *Catalog {
	bound := *c
	bound.db = db
	bound.inTx = true
	return &bound
}

// withTx runs fn inside a transaction. When the catalog is already bound
// to one, fn joins it; otherwise a transaction is opened and committed
// (or rolled back on error) here.
func (c *Catalog) withTx(ctx context.Context, op string, fn func(db DB) error) error {
	if c.inTx {
		return fn(c.db)
	}
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return filecat.MapStoreError(op, err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return filecat.MapStoreError(op, err)
	}
	return nil
}

// Files returns the file repository.
func (c *Catalog) Files() *Files { return &Files{c: c} }

// Datasets returns the dataset repository.
func (c *Catalog) Datasets() *Datasets { return &Datasets{c: c} }

// Namespaces returns the namespace repository.
func (c *Catalog) Namespaces() *Namespaces { return &Namespaces{c: c} }

// Users returns the user repository.
func (c *Catalog) Users() *Users { return &Users{c: c} }

// Roles returns the role repository.
func (c *Catalog) Roles() *Roles { return &Roles{c: c} }

// Queries returns the named-query repository.
func (c *Catalog) Queries() *Queries { return &Queries{c: c} }

// Params returns the parameter-category repository.
func (c *Catalog) Params() *Params { return &Params{c: c} }
