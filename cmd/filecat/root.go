package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/filecat/filecat/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	dbURL   string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "filecat",
	Short: "Scientific-data metadata catalog",
	Long: `filecat - scientific-data metadata catalog

Stores file records with JSON metadata, groups them into dataset
hierarchies, and answers filtered metadata queries compiled to
PostgreSQL jsonb path operators.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		var err error
		cfg, configPath, err = cli.Load(cfgFile)
		if err != nil {
			return err
		}
		if configPath != "" {
			slog.Debug("loaded config", "path", configPath)
		}
		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover filecat.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "database URL (overrides config and FILECAT_DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd, statusCmd, compileCmd)
}

// openDB resolves the database URL from flag, environment, or config
// and opens a database/sql handle on lib/pq.
func openDB() (*sql.DB, error) {
	dsn := dbURL
	if dsn == "" {
		dsn = cfg.DatabaseURL
	}
	if dsn == "" {
		return nil, fmt.Errorf("no database URL: use --db, FILECAT_DATABASE_URL, or database_url in filecat.yaml")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}
