// Package user holds the account record and its value types.
package user

import (
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

type (
	ID          int32
	PhoneNumber int64
)

// User is one account. Email and Number are unique across users.
type User struct {
	ID          ID           `db:"id" json:"id"`
	Username    string       `db:"username" json:"username"`
	Email       Email        `db:"email" json:"email"`
	Number      *PhoneNumber `db:"number" json:"number"`
	Password    PasswordHash `db:"password" json:"password"`
	Permissions perm.Set     `db:"permissions" json:"permissions"`
}

var (
	_ table.Queryable[CreateUser, QueryUser] = User{}
	_                                        = table.Register(User{})
)

func (u User) BoundColumns() []string      { return table.Columns(u) }
func (u User) BindValues(args []any) []any { return table.AppendValues(args, u) }
func (User) Args() (CreateUser, QueryUser) { return CreateUser{}, QueryUser{} }

// SessionAuthHash fingerprints the credentials of u. Changing the password
// changes it, which invalidates any session keyed on the old value.
func (u User) SessionAuthHash() []byte { return u.Password.Bytes() }

func (u User) IsRoot() bool { return u.Permissions == perm.Root }

func (u User) MarshalZerologObject(e *zerolog.Event) {
	e.Int32("id", int32(u.ID)).
		Str("username", u.Username).
		Str("email", u.Email.String()).
		Str("permissions", u.Permissions.String()).
		Str("password", redacted)
	if u.Number != nil {
		e.Int64("number", int64(*u.Number))
	}
}
