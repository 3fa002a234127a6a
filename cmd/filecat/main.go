// Package main provides the filecat CLI for managing the metadata
// catalog schema and inspecting compiled queries.
//
// The CLI supports:
//   - migrate: apply the catalog schema to PostgreSQL
//   - status: report which catalog tables are missing
//   - compile: compile a JSON query description to SQL without a database
//
// Commands that touch the database (migrate, status) need --db,
// FILECAT_DATABASE_URL, or a filecat.yaml with database_url.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "filecat: %v\n", err)
		os.Exit(1)
	}
}
