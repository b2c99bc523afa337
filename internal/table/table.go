// Package table is the persistence contract shared by every storage
// backend: how a record names its table, how it projects itself onto
// ordered column/value pairs, and which argument shapes create and query it.
package table

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Table describes where a record type lives in a SQL database.
type Table interface {
	TableName() string
	// ColumnNames lists every column in schema order.
	ColumnNames() []string
	// Init creates the table if it does not exist. It must be safe to call
	// on every start.
	Init(ctx context.Context, db sqlx.ExtContext) error
}

// Binder projects a record onto the columns it actually carries.
//
// BoundColumns and BindValues always walk the same fields in the same
// order, so the i-th column pairs with the i-th appended value.
type Binder interface {
	BoundColumns() []string
	BindValues(args []any) []any
}

// Queryable links an entity to the argument shape used to create it (C)
// and the all-optional shape used to filter it (Q).
type Queryable[C, Q Binder] interface {
	Binder
	Args() (C, Q)
}

// Update replaces the Set columns on every row matching Match.
type Update[Q Binder] struct {
	Match Q `json:"match"`
	Set   Q `json:"set"`
}
