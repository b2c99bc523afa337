package user

import (
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

// CreateUser is the shape expected when creating a user. ID is normally
// left nil so the database assigns one.
type CreateUser struct {
	ID          *ID          `db:"id" json:"id,omitempty"`
	Username    string       `db:"username" json:"username"`
	Email       Email        `db:"email" json:"email"`
	Number      *PhoneNumber `db:"number" json:"number,omitempty"`
	Password    PasswordHash `db:"password" json:"password"`
	Permissions perm.Set     `db:"permissions" json:"permissions"`
}

// QueryUser matches users on every field that is set. As the Set half of
// an update it also carries a new password or permission set; filtering on
// Password never matches because every hash is salted.
type QueryUser struct {
	ID          *ID           `db:"id" json:"id,omitempty"`
	Username    *string       `db:"username" json:"username,omitempty"`
	Email       *Email        `db:"email" json:"email,omitempty"`
	Number      *PhoneNumber  `db:"number" json:"number,omitempty"`
	Password    *PasswordHash `db:"password" json:"password,omitempty"`
	Permissions *perm.Set     `db:"permissions" json:"permissions,omitempty"`
}

var (
	_ = table.Register(CreateUser{})
	_ = table.Register(QueryUser{})
)

func (c CreateUser) BoundColumns() []string      { return table.Columns(c) }
func (c CreateUser) BindValues(args []any) []any { return table.AppendValues(args, c) }

func (q QueryUser) BoundColumns() []string      { return table.Columns(q) }
func (q QueryUser) BindValues(args []any) []any { return table.AppendValues(args, q) }

// IsEmpty reports whether q sets no field at all.
func (q QueryUser) IsEmpty() bool { return len(q.BoundColumns()) == 0 }
