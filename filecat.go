// Package filecat provides a PostgreSQL-backed metadata catalog engine for
// scientific data. It stores records about files (content-ID plus a
// namespace:name path), groups them into datasets forming parent/child
// hierarchies, attaches arbitrary JSON metadata to files and datasets, and
// answers filtered queries over that metadata.
//
// # Module Structure
//
// The module is split by concern:
//
//   - github.com/filecat/filecat (root): record types, name parsing,
//     error kinds, schema migrator. Stdlib plus the pg drivers only.
//   - query: compiles DNF metadata predicates, dataset selectors, and
//     basic file queries into SQL with jsonb path operators. Pure.
//   - catalog: the repository layer over pgx (CRUD, lazy file sets,
//     set algebra, bulk ingest).
//   - metaval: parameter-category validation of metadata dictionaries.
//
// # Core Concepts
//
// Files are identified two ways: by a stable 128-bit hex fid, and by a
// globally unique namespace:name pair. A FileRef carries either form and
// is resolved once at the top of each repository operation.
//
//	f, err := cat.Files().Get(ctx, filecat.ByID("a1b2..."), true)
//	f, err = cat.Files().Get(ctx, filecat.ByName("dune", "raw_0001.root"), false)
//
// Queries arrive as an already-parsed expression tree (the metadata
// grammar parser is an external collaborator) and compile to a single
// relational query:
//
//	q := &query.BasicFileQuery{
//	    Selector: sel,              // dataset patterns + with-children flags
//	    Wheres:   dnf,              // OR of ANDs of atomic predicates
//	    WithMeta: true,
//	    Limit:    query.NoLimit,
//	}
//	fs, err := cat.QueryFiles(ctx, q)
//	defer fs.Close()
//	for fs.Next() { use(fs.File()) }
//
// # Transactions
//
// Repository operations open, commit, or roll back their own transaction
// when no outer one is supplied; Catalog.WithTx binds a catalog to an
// existing pgx.Tx so operations participate without committing.
//
// # Schema Management
//
// The Migrator applies the embedded DDL idempotently and works with
// *sql.DB, *sql.Tx, or *sql.Conn:
//
//	db, _ := sql.Open("postgres", dsn)
//	err := filecat.NewMigrator(db).ApplyDDL(ctx)
package filecat

import (
	"context"
	"database/sql"
)

// Querier executes queries against PostgreSQL.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn. It is the surface the
// Migrator status checks need; the repository layer in package catalog
// uses pgx natively instead for COPY and jsonb support.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer extends Querier with ExecContext for applying DDL.
// Only the migrator needs this; keeping it separate keeps read-only
// consumers on the minimal interface.
type Execer interface {
	Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
