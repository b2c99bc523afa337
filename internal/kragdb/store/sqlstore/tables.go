// Package sqlstore keeps users, passes and access events in SQLite or
// PostgreSQL through sqlx. Every write goes through the single-writer
// db.Worker.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	dbpkg "github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

// UserTable is the schema of user.User. The name is quoted everywhere
// because user is reserved in PostgreSQL.
type UserTable struct{}

// PassTable is the schema of pass.UserPass.
type PassTable struct{}

var (
	_ table.Table = UserTable{}
	_ table.Table = PassTable{}
)

// Tables lists every record table in creation order.
func Tables() []table.Table { return []table.Table{UserTable{}, PassTable{}} }

func (UserTable) TableName() string { return "user" }

func (UserTable) ColumnNames() []string {
	return []string{"id", "username", "number", "email", "permissions", "password"}
}

func (t UserTable) Init(ctx context.Context, db sqlx.ExtContext) error {
	return execDDL(ctx, db, t.TableName(), map[string][]string{
		dbpkg.DriverSQLite: {`
CREATE TABLE IF NOT EXISTS "user" (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  username    TEXT NOT NULL,
  number      INTEGER UNIQUE,
  email       TEXT NOT NULL UNIQUE,
  permissions INTEGER NOT NULL,
  password    TEXT NOT NULL
);`},
		dbpkg.DriverPostgres: {`
CREATE TABLE IF NOT EXISTS "user" (
  id          SERIAL PRIMARY KEY,
  username    TEXT NOT NULL,
  number      BIGINT UNIQUE,
  email       TEXT NOT NULL UNIQUE,
  permissions BIGINT NOT NULL,
  password    TEXT NOT NULL
);`},
	})
}

func (PassTable) TableName() string { return "userpass" }

func (PassTable) ColumnNames() []string {
	return []string{"id", "user_id", "time_pass", "session_pass"}
}

func (t PassTable) Init(ctx context.Context, db sqlx.ExtContext) error {
	index := `CREATE INDEX IF NOT EXISTS idx_userpass_user ON userpass(user_id);`
	return execDDL(ctx, db, t.TableName(), map[string][]string{
		dbpkg.DriverSQLite: {`
CREATE TABLE IF NOT EXISTS userpass (
  id           INTEGER PRIMARY KEY,
  user_id      INTEGER NOT NULL,
  time_pass    BLOB NOT NULL,
  session_pass BLOB NOT NULL
);`, index},
		dbpkg.DriverPostgres: {`
CREATE TABLE IF NOT EXISTS userpass (
  id           BIGSERIAL PRIMARY KEY,
  user_id      INTEGER NOT NULL,
  time_pass    BYTEA NOT NULL,
  session_pass BYTEA NOT NULL
);`, index},
	})
}

func execDDL(ctx context.Context, db sqlx.ExtContext, name string, byDriver map[string][]string) error {
	stmts, ok := byDriver[db.DriverName()]
	if !ok {
		return fmt.Errorf("create %s: no schema for driver %q", name, db.DriverName())
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil
}
