// Package cli implements the custody command tree.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/custody/internal/config"
	"github.com/erazemk/custody/internal/db"
)

type rootOptions struct {
	configFile string
	dbPath     string
	logPath    string

	cfg      *config.Config
	closeLog func()
}

// NewRootCmd builds the custody command with all subcommands.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "custody",
		Short: "Equipment custody transfer ledger",
		Long: `custody records transfers of serialized equipment between units in an
append-only ledger and issues a gap-free certificate number for each transfer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVarP(&opts.dbPath, "db", "d", "", "SQLite database path")
	pf.StringVarP(&opts.logPath, "log", "l", "", "also append logs to this file")

	root.AddCommand(
		newInitCmd(opts),
		newServeCmd(opts),
		newProvisionCmd(opts),
		newTransferCmd(opts),
		newExportCmd(opts),
		newLedgerCmd(opts),
	)
	return root
}

// load resolves the configuration, lets explicit flags override it and sets
// up logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath = o.dbPath
	}
	if cmd.Flags().Changed("log") {
		cfg.LogPath = o.logPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	o.cfg = cfg

	closeLog, err := setupLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.LogPath)
	if err != nil {
		return err
	}
	o.closeLog = closeLog
	return nil
}

// openExisting opens the configured database, refusing to create a new one.
func (o *rootOptions) openExisting() (*sql.DB, error) {
	if _, err := os.Stat(o.cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("database %s not found, run `custody init` first", o.cfg.DatabasePath)
	}
	database, err := db.Open(o.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
