package main

import (
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/filecat/filecat"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the catalog schema to the database",
	Long: `Apply the catalog schema to PostgreSQL.

The schema is idempotent; running migrate against an up-to-date
database is a no-op.`,
	Example: `  # Apply the schema
  filecat migrate --db postgres://localhost/filecat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := cmd.Context()
		if err := filecat.NewMigrator(db).ApplyDDL(ctx); err != nil {
			return err
		}
		slog.Info("catalog schema applied")
		cmd.Println("Schema applied.")
		return nil
	},
}
