package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store/sqlstore"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

func openFileDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "kragdb.db")
	conn, err := db.Open(context.Background(), db.Config{Driver: db.DriverSQLite, Path: path}, sqlstore.Tables()...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// ═══════════════════════════════════════════════════════════════════════════
// Open / Migrate
// ═══════════════════════════════════════════════════════════════════════════

func TestOpen_CreatesTablesAndMigrations(t *testing.T) {
	conn := openFileDB(t)
	ctx := context.Background()

	for _, name := range []string{"user", "userpass", "access_events", "schema_migrations"} {
		var n int
		require.NoError(t, conn.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name))
		assert.Equal(t, 1, n, "table %s", name)
	}

	var versions []int
	require.NoError(t, conn.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations ORDER BY version`))
	assert.Equal(t, []int{1}, versions)
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := openFileDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx, conn, sqlstore.Tables()...))
	require.NoError(t, db.Migrate(ctx, conn, sqlstore.Tables()...))

	var n int
	require.NoError(t, conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Equal(t, 1, n)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := db.Open(ctx, db.Config{Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported db driver")

	_, err = db.Open(ctx, db.Config{Driver: db.DriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_URL")
}

// ═══════════════════════════════════════════════════════════════════════════
// Worker
// ═══════════════════════════════════════════════════════════════════════════

func TestWorker_CommitAndRollback(t *testing.T) {
	conn := openFileDB(t)
	w := db.NewWorker(conn)
	defer w.Close()
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, `CREATE TABLE counter (n INTEGER NOT NULL)`)
	require.NoError(t, err)

	require.NoError(t, w.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO counter (n) VALUES (1)`)
		return err
	}))

	boom := errors.New("boom")
	err = w.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO counter (n) VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var ns []int
	require.NoError(t, conn.SelectContext(ctx, &ns, `SELECT n FROM counter`))
	assert.Equal(t, []int{1}, ns)
}

func TestWorker_SerializesJobs(t *testing.T) {
	conn := openFileDB(t)
	w := db.NewWorker(conn)
	defer w.Close()
	ctx := context.Background()

	_, err := conn.ExecContext(ctx, `CREATE TABLE counter (n INTEGER NOT NULL); INSERT INTO counter (n) VALUES (0);`)
	require.NoError(t, err)

	const jobs = 50
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
				var n int
				if err := tx.GetContext(ctx, &n, `SELECT n FROM counter`); err != nil {
					return err
				}
				_, err := tx.ExecContext(ctx, `UPDATE counter SET n = ?`, n+1)
				return err
			}))
		}()
	}
	wg.Wait()

	var n int
	require.NoError(t, conn.GetContext(ctx, &n, `SELECT n FROM counter`))
	assert.Equal(t, jobs, n)
}

func TestWorker_ClosedAndCancelled(t *testing.T) {
	conn := openFileDB(t)
	w := db.NewWorker(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Do(ctx, func(context.Context, *sqlx.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	w.Close()
	w.Close()
	err = w.Do(context.Background(), func(context.Context, *sqlx.Tx) error { return nil })
	assert.ErrorIs(t, err, db.ErrWorkerClosed)
}

// ═══════════════════════════════════════════════════════════════════════════
// SeedDev
// ═══════════════════════════════════════════════════════════════════════════

func TestSeedDev(t *testing.T) {
	conn := openFileDB(t)
	ctx := context.Background()

	// Nothing to seed without credentials.
	require.NoError(t, db.SeedDev(ctx, conn, db.SeedDevOptions{}))

	opt := db.SeedDevOptions{RootEmail: "root@example.com", RootPassword: "hunter2"}
	require.NoError(t, db.SeedDev(ctx, conn, opt))
	require.NoError(t, db.SeedDev(ctx, conn, opt))

	var users []user.User
	require.NoError(t, conn.SelectContext(ctx, &users,
		`SELECT id, username, number, email, permissions, password FROM "user"`))
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)
	assert.Equal(t, perm.Root, users[0].Permissions)
	assert.True(t, users[0].Password.Verify("hunter2"))

	err := db.SeedDev(ctx, conn, db.SeedDevOptions{RootEmail: "bruh", RootPassword: "x"})
	assert.ErrorIs(t, err, user.ErrInvalidEmail)
}
