package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
	"github.com/garnizeh/ats/internal/repository/sqlstore"
)

// ErrNotSQLite is returned by file level commands on a Postgres deployment.
var ErrNotSQLite = errors.New("command only supports the sqlite driver; use pg_dump/pg_restore for postgres")

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// NewMigrateCommand applies the embedded migrations to the SQLite database.
func NewMigrateCommand(configPath *string) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return Migrate(cmd.Context(), cfg.Database, seed, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the demo data set")
	return cmd
}

// Migrate opens the configured SQLite database and brings its schema up to
// date.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, seed bool, out io.Writer) error {
	if cfg.Driver != "sqlite" {
		return ErrNotSQLite
	}
	d, err := db.New(ctx, sqlstore.SQLiteDSN(cfg.Path), quietLogger())
	if err != nil {
		return err
	}
	defer d.Close()

	if err := sqlstore.Migrate(ctx, d, seed); err != nil {
		return err
	}
	fmt.Fprintln(out, "Database migrated successfully.")
	return nil
}

// NewBackupCommand snapshots the SQLite database.
func NewBackupCommand(configPath *string) *cobra.Command {
	var dst string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the SQLite database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if dst == "" {
				dst = cfg.Database.Path + ".bak"
			}
			return Backup(cmd.Context(), cfg.Database, dst, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&dst, "output", "o", "", "snapshot path (default <database>.bak)")
	return cmd
}

// Backup writes a consistent copy of the live database to dst using
// VACUUM INTO, which is safe while the server keeps writing in WAL mode.
func Backup(ctx context.Context, cfg config.DatabaseConfig, dst string, out io.Writer) error {
	if cfg.Driver != "sqlite" {
		return ErrNotSQLite
	}
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	d, err := db.New(ctx, sqlstore.SQLiteDSN(cfg.Path), quietLogger())
	if err != nil {
		return err
	}
	defer d.Close()

	if _, err := d.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	fmt.Fprintf(out, "Database backup completed: %s\n", dst)
	return nil
}

// NewRestoreCommand replaces the SQLite database with a snapshot. The server
// must be stopped first.
func NewRestoreCommand(configPath *string) *cobra.Command {
	var src string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the SQLite database with a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if src == "" {
				src = cfg.Database.Path + ".bak"
			}
			return Restore(cfg.Database, src, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&src, "input", "i", "", "snapshot path (default <database>.bak)")
	return cmd
}

// Restore copies src over the database file and drops stale WAL sidecars.
func Restore(cfg config.DatabaseConfig, src string, out io.Writer) error {
	if cfg.Driver != "sqlite" {
		return ErrNotSQLite
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(cfg.Path)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("restore: %w", err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(cfg.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("restore: %w", err)
		}
	}

	fmt.Fprintln(out, "Database restore completed.")
	return nil
}
