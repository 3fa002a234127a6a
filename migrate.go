package filecat

import (
	"context"
	"fmt"

	filecatsql "github.com/filecat/filecat/sql"
)

// Migrator applies the catalog schema to PostgreSQL.
// It is idempotent: the embedded DDL uses CREATE TABLE IF NOT EXISTS and
// CREATE OR REPLACE VIEW throughout, so running it on every application
// startup is safe.
//
// The Execer is typically *sql.DB; pass *sql.Tx to stage the schema
// inside a transaction.
type Migrator struct {
	db Execer
}

// NewMigrator creates a schema migrator over the given handle.
func NewMigrator(db Execer) *Migrator {
	return &Migrator{db: db}
}

// ApplyDDL applies the embedded schema: the files/datasets/namespaces
// tables, the association tables, indexes, and the files_with_provenance
// view.
func (m *Migrator) ApplyDDL(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, filecatsql.SchemaSQL); err != nil {
		return fmt.Errorf("applying schema.sql: %w", err)
	}
	return nil
}

// Status describes the current schema state.
type Status struct {
	MissingTables []string
}

// Migrated reports whether all catalog tables are present.
func (s Status) Migrated() bool { return len(s.MissingTables) == 0 }

// catalogTables are the relations Status probes for.
var catalogTables = []string{
	"files",
	"parent_child",
	"datasets",
	"files_datasets",
	"namespaces",
	"users",
	"authenticators",
	"roles",
	"users_roles",
	"queries",
	"parameter_categories",
}

// Status probes the database for the catalog tables and reports which
// are missing. It never fails on a missing table, only on connection
// problems.
func (m *Migrator) Status(ctx context.Context) (Status, error) {
	var st Status
	for _, table := range catalogTables {
		var exists bool
		err := m.db.QueryRowContext(ctx,
			"select exists (select 1 from information_schema.tables where table_name = $1)",
			table,
		).Scan(&exists)
		if err != nil {
			return st, MapStoreError("schema status", err)
		}
		if !exists {
			st.MissingTables = append(st.MissingTables, table)
		}
	}
	return st, nil
}
