package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/custody/internal/auth"
	"github.com/erazemk/custody/internal/config"
	"github.com/erazemk/custody/internal/db"
	"github.com/erazemk/custody/internal/model"
	"github.com/erazemk/custody/internal/store"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database, seed units and the admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfg.DatabasePath
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("database file %s already exists", path)
			}

			password, err := initDatabase(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			printInitResult(cmd.OutOrStdout(), opts.cfg, password)
			return nil
		},
	}
}

// initDatabase creates a new database with the schema, the configured units
// and an admin account, and returns the generated admin password. A failed
// initialisation removes the file again.
func initDatabase(ctx context.Context, cfg *config.Config) (password string, err error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	defer func() {
		if err != nil {
			database.Close()
			for _, suffix := range []string{"", "-wal", "-shm"} {
				os.Remove(cfg.DatabasePath + suffix)
			}
		}
	}()

	if err := db.Migrate(database); err != nil {
		return "", fmt.Errorf("creating schema: %w", err)
	}
	if _, err := store.SeedUnits(ctx, database, cfg.Units); err != nil {
		return "", fmt.Errorf("seeding units: %w", err)
	}

	password, err = generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, cfg.AdminUser, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

func printInitResult(w io.Writer, cfg *config.Config, password string) {
	bold := color.New(color.Bold)
	fmt.Fprintf(w, "Database created: %s\n", cfg.DatabasePath)
	fmt.Fprintf(w, "Units registered: %d\n", len(cfg.Units))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Username: %s\n", cfg.AdminUser)
	fmt.Fprintf(w, "  Password: %s\n", bold.Sprint(password))
	fmt.Fprintln(w)
	color.New(color.FgYellow).Fprintln(w, "Save this password, it cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
