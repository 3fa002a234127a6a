package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/filecat/filecat/internal/sqlgen"
	"github.com/filecat/filecat/query"
)

var compileFile string

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a query description to SQL",
	Long: `Compile a JSON query description - the expression tree the metadata
parser produces - to the SQL the catalog would run. No database is
needed; this is the tool for inspecting and debugging query plans.

The input is a basic file query:

  {
    "selector": {"patterns": [{"namespace": "dune", "name": "raw_%", "wildcard": true}]},
    "wheres": [[{"op": "cmp_op", "attr": {"shape": "scalar", "name": "run"}, "cmp": "==", "value": 4242}]],
    "with_metadata": true,
    "limit": -1
  }`,
	Example: `  # Compile a query from a file
  filecat compile -f query.json

  # Compile from stdin
  echo '{"wheres": [[...]], "limit": -1}' | filecat compile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if compileFile != "" {
			f, err := os.Open(compileFile)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		raw, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("reading query: %w", err)
		}

		q := query.NewBasicFileQuery()
		if err := json.Unmarshal(raw, q); err != nil {
			return fmt.Errorf("decoding query: %w", err)
		}

		sql, err := query.SQLForBasicQuery(q, sqlgen.NewAliases())
		if err != nil {
			return err
		}
		cmd.Println(sql)
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileFile, "file", "f", "", "read the query from a file instead of stdin")
}
