// Package cli implements the lightrecord command-line tool: ad-hoc queries
// printed through synthesized record types.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/go-mizu/lightrecord"
	"github.com/go-mizu/lightrecord/internal/config"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// app is the state shared by subcommands once the root pre-run resolved the
// configuration.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	lr       *lightrecord.DB
	registry *lightrecord.Registry
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		driver   string
		dsn      string
		logLevel string
		output   string
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "lightrecord",
		Short:         "Query a database through light records",
		Long:          "Run SQL and print each row as a record shaped exactly like the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > file > default
			if cmd.Flags().Changed("driver") {
				cfg.Driver = driver
			}
			if cmd.Flags().Changed("dsn") {
				cfg.DSN = dsn
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			a.registry = lightrecord.NewRegistry(lightrecord.WithRegistryLogger(a.logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "sqlite3", "database/sql driver (sqlite3, duckdb)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Data source name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(newQueryCmd(a))
	rootCmd.AddCommand(newStreamCmd(a))
	rootCmd.AddCommand(newTypesCmd(a))

	return rootCmd
}

// open connects lazily so that commands which never touch the database do
// not need a DSN.
func (a *app) open() (*lightrecord.DB, error) {
	if a.lr != nil {
		return a.lr, nil
	}
	if a.cfg.DSN == "" {
		return nil, fmt.Errorf("no DSN configured: use --dsn, LIGHTRECORD_DSN or the config file")
	}
	db, err := sql.Open(a.cfg.Driver, a.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.Driver, err)
	}
	if a.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(a.cfg.MaxOpenConns)
	}
	a.logger.Debug("database opened", "driver", a.cfg.Driver)
	a.db = db
	a.lr = lightrecord.New(db,
		lightrecord.WithRegistry(a.registry),
		lightrecord.WithLogger(a.logger),
	)
	return a.lr, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
	a.db, a.lr = nil, nil
}

func (a *app) base(cmd *cobra.Command) (lightrecord.Base, error) {
	name, _ := cmd.Flags().GetString("base")
	t, err := a.cfg.Base(name)
	if err != nil {
		return nil, err
	}
	return t, nil
}
