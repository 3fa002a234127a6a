// Package sql provides the embedded DDL for the filecat schema.
package sql

import (
	_ "embed"
)

// SchemaSQL contains the catalog schema: tables, association tables,
// indexes, and the files_with_provenance view. Every statement is written
// with IF NOT EXISTS / OR REPLACE so the migrator can apply it on every
// startup.
//
// Embedding the DDL means the binary carries its own schema and needs no
// external SQL files at runtime.
//
//go:embed schema.sql
var SchemaSQL string
