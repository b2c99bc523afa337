package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	dbpkg "github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

// Repository runs the create/query/update/delete statements of one table
// for entity T, its create shape C and its query shape Q. Statements are
// built from the Binder columns, so only the fields a value actually sets
// reach the database.
type Repository[T, C, Q table.Binder] struct {
	db     *sqlx.DB
	writer *dbpkg.Worker
	name   string // unquoted, for errors
	table  string // quoted
	key    string
	cols   string // select list
}

func NewRepository[T, C, Q table.Binder](db *sqlx.DB, writer *dbpkg.Worker, t table.Table, key string) *Repository[T, C, Q] {
	var zero T
	return &Repository[T, C, Q]{
		db:     db,
		writer: writer,
		name:   t.TableName(),
		table:  quoteIdent(t.TableName()),
		key:    key,
		cols:   columnList(table.SchemaColumns(zero)),
	}
}

func (r *Repository[T, C, Q]) Create(ctx context.Context, args C) (T, error) {
	var out T
	cols := args.BoundColumns()
	vals := args.BindValues(nil)

	var q string
	if len(cols) == 0 {
		q = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", r.table, r.cols)
	} else {
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			r.table, columnList(cols), placeholders(len(cols)), r.cols)
	}

	err := r.writer.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, tx.Rebind(q), vals...).StructScan(&out)
	})
	if err != nil {
		return out, fmt.Errorf("create %s: %w", r.name, classify(err))
	}
	return out, nil
}

// Query returns every row matching filter, ordered by key.
func (r *Repository[T, C, Q]) Query(ctx context.Context, filter Q) ([]T, error) {
	where, args := whereClause(filter)
	q := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", r.cols, r.table, where, quoteIdent(r.key))

	var out []T
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", r.name, err)
	}
	return out, nil
}

// Update sets u.Set on every row matching u.Match and reports the number
// of rows changed. An empty Set is a no-op.
func (r *Repository[T, C, Q]) Update(ctx context.Context, u table.Update[Q]) (int64, error) {
	where, matchArgs := whereClause(u.Match)
	if where == "" {
		return 0, fmt.Errorf("update %s: %w", r.name, store.ErrEmptyFilter)
	}
	setCols := u.Set.BoundColumns()
	if len(setCols) == 0 {
		return 0, nil
	}

	q := fmt.Sprintf("UPDATE %s SET %s%s", r.table, assignments(setCols), where)
	args := append(u.Set.BindValues(nil), matchArgs...)
	return r.exec(ctx, "update", q, args)
}

func (r *Repository[T, C, Q]) Delete(ctx context.Context, filter Q) (int64, error) {
	where, args := whereClause(filter)
	if where == "" {
		return 0, fmt.Errorf("delete %s: %w", r.name, store.ErrEmptyFilter)
	}
	q := fmt.Sprintf("DELETE FROM %s%s", r.table, where)
	return r.exec(ctx, "delete", q, args)
}

// Modify loads the first row matching filter, lets fn edit it and writes
// the whole row back when fn returns true. Load and write share one
// worker transaction, and PostgreSQL also locks the row, so concurrent
// modifications of the same row are applied one after the other.
func (r *Repository[T, C, Q]) Modify(ctx context.Context, filter Q, fn func(*T) (bool, error)) (T, error) {
	var out T
	where, args := whereClause(filter)
	if where == "" {
		return out, fmt.Errorf("modify %s: %w", r.name, store.ErrEmptyFilter)
	}

	sel := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT 1", r.cols, r.table, where, quoteIdent(r.key))
	if r.db.DriverName() == dbpkg.DriverPostgres {
		sel += " FOR UPDATE"
	}

	err := r.writer.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var row T
		if err := tx.QueryRowxContext(ctx, tx.Rebind(sel), args...).StructScan(&row); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return fmt.Errorf("load: %w", err)
		}

		write, err := fn(&row)
		if err != nil {
			return err
		}
		if write {
			q, vals, err := r.rowUpdate(row)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), vals...); err != nil {
				return fmt.Errorf("write: %w", classify(err))
			}
		}
		out = row
		return nil
	})
	if err != nil {
		return out, fmt.Errorf("modify %s: %w", r.name, err)
	}
	return out, nil
}

// rowUpdate writes every column of row except the key, matched on the key.
func (r *Repository[T, C, Q]) rowUpdate(row T) (string, []any, error) {
	cols, vals := table.Row(row)

	var (
		set    []string
		args   []any
		keyVal any
		found  bool
	)
	for i, c := range cols {
		if c == r.key {
			keyVal, found = vals[i], true
			continue
		}
		set = append(set, c)
		args = append(args, vals[i])
	}
	if !found {
		return "", nil, fmt.Errorf("%s has no %s column", r.name, r.key)
	}

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", r.table, assignments(set), quoteIdent(r.key))
	return q, append(args, keyVal), nil
}

func (r *Repository[T, C, Q]) exec(ctx context.Context, op, q string, args []any) (int64, error) {
	var n int64
	err := r.writer.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", op, r.name, classify(err))
	}
	return n, nil
}

// ── SQL fragments ──

func whereClause(filter table.Binder) (string, []any) {
	cols := filter.BoundColumns()
	if len(cols) == 0 {
		return "", nil
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdent(c) + " = ?"
	}
	return " WHERE " + strings.Join(parts, " AND "), filter.BindValues(nil)
}

func assignments(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdent(c) + " = ?"
	}
	return strings.Join(parts, ", ")
}

func columnList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quoteIdent(c)
	}
	return strings.Join(q, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
