package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	dbfs "github.com/garnizeh/ats/db"
	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
)

// sqlitePragmas let report reads run alongside outbox writes.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=foreign_keys(1)",
}

// SQLiteDSN appends the service pragmas to a database path unless the path
// already carries query parameters.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") || strings.Contains(path, ":memory:") {
		return path
	}
	return path + "?" + strings.Join(sqlitePragmas, "&")
}

// Open connects to the configured database and returns the store plus a
// close func. SQLite databases are migrated (and seeded when cfg.Seed) when
// cfg.MigrateOnStart is set; Postgres schemas are managed outside the service.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := OpenPostgres(ctx, cfg.URL, int32(cfg.MaxOpenConns))
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", classify(err))
		}
		return New(NewPostgres(pool), logger), func() error { pool.Close(); return nil }, nil

	case "", "sqlite":
		d, err := db.NewWithOptions(ctx, SQLiteDSN(cfg.Path), logger, db.Options{
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", classify(err))
		}
		if cfg.MigrateOnStart || cfg.Seed {
			if err := Migrate(ctx, d, cfg.Seed); err != nil {
				_ = d.Close()
				return nil, nil, err
			}
		}
		return New(NewSQLite(d), logger), d.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Migrate applies the embedded migrations and, with seed, the demo data.
func Migrate(ctx context.Context, d *db.DB, seed bool) error {
	var err error
	if seed {
		err = db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles)
	} else {
		err = db.Migrate(ctx, d, dbfs.Migrations, nil)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
