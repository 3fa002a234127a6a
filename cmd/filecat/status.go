package main

import (
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/filecat/filecat"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the schema state of the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		st, err := filecat.NewMigrator(db).Status(cmd.Context())
		if err != nil {
			return err
		}
		if st.Migrated() {
			cmd.Println("Schema is up to date.")
			return nil
		}
		cmd.Println("Missing tables:")
		for _, table := range st.MissingTables {
			cmd.Printf("  %s\n", table)
		}
		return fmt.Errorf("schema is not fully applied (run 'filecat migrate')")
	},
}
