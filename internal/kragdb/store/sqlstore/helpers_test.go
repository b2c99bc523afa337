package sqlstore_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store/sqlstore"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

// openTestDB returns an in-memory SQLite database with the production
// PRAGMAs, tables and migrations. It is closed when the test finishes.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// Each test gets its own named in-memory database. Shared cache keeps
	// it alive while the pool holds a connection.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := db.SQLiteDSN(fmt.Sprintf("file:test_%s?mode=memory&cache=shared", name))

	conn, err := sqlx.Open(db.DriverSQLite, dsn)
	require.NoError(t, err, "sqlx.Open")

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	require.NoError(t, conn.Ping(), "ping")
	require.NoError(t, db.Migrate(context.Background(), conn, sqlstore.Tables()...), "migrate")

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker on conn, closed when the test finishes.
func newTestWriter(t *testing.T, conn *sqlx.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return w
}

func newUser(t *testing.T, name string) user.CreateUser {
	t.Helper()
	h, err := user.HashPassword(name + "-password")
	require.NoError(t, err)
	return user.CreateUser{
		Username:    name,
		Email:       user.MustParseEmail(name + "@example.com"),
		Password:    h,
		Permissions: perm.PassRead,
	}
}

func ptr[T any](v T) *T { return &v }
