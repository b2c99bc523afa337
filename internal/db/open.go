package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/kragdb/internal/table"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Config struct {
	Driver string // "sqlite" | "postgres"
	Path   string // sqlite file, e.g. "./data/kragdb.db"
	URL    string // postgres DSN
	Env    string // "dev" | "prod"
}

// Open connects to the configured database, then creates every table and
// applies pending migrations.
func Open(ctx context.Context, cfg Config, tables ...table.Table) (*sqlx.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		db, err = openSQLite(cfg.Path)
	case DriverPostgres:
		db, err = openPostgres(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db, tables...); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		path = "./data/kragdb.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	// Per-connection PRAGMAs: foreign keys on, WAL, NORMAL sync, and a busy
	// timeout so a stray second writer waits instead of failing.
	db, err := sqlx.Open(DriverSQLite, SQLiteDSN("file:"+path))
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open: %w", err)
	}

	// SQLite gets exactly one connection; the Worker is the only writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func openPostgres(url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
	}
	db, err := sqlx.Open(DriverPostgres, url)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// SQLiteDSN appends the server PRAGMAs to a modernc file URI. base may
// already carry query parameters.
func SQLiteDSN(base string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
}
