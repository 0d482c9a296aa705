package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-custody/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

// Config selects the database backing the dispatch log. Driver accepts
// postgres or sqlite3 spellings.
type Config struct {
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	return driverName(migrations.NormalizeDialect(c.Driver))
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	return "go-custody"
}

// Open connects to the configured database, applies the dispatch log
// migrations and returns the persistence client.
func Open(ctx context.Context, cfg Config) (*persistence.Client, error) {
	dialect := migrations.NormalizeDialect(cfg.Driver)
	if dialect == "" {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}

	sqlDB, err := sql.Open(driverName(dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect, err)
	}
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, bunDialect(dialect))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	if err := Migrate(ctx, client, dialect); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Migrate registers the dispatch log migrations for dialect on client and
// applies them.
func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	target := migrations.NormalizeDialect(dialect)
	if target == "" {
		return fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}
	_, err := migrations.Register(ctx, func(_ context.Context, registered string, _ string, fsys fs.FS) error {
		if registered != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(target))
	if err != nil {
		return fmt.Errorf("sqlstore: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func driverName(dialect string) string {
	if dialect == migrations.DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func bunDialect(dialect string) schema.Dialect {
	if dialect == migrations.DialectSQLite {
		return sqlitedialect.New()
	}
	return pgdialect.New()
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
