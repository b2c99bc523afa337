// Package store declares the persistence contracts the services depend on.
// Backends live in the sqlstore and memory subpackages.
package store

import (
	"context"
	"errors"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict wraps unique-constraint violations such as a duplicate email.
	ErrConflict = errors.New("record conflicts with an existing one")
	// ErrEmptyFilter refuses update, delete and modify calls that would
	// otherwise touch every row.
	ErrEmptyFilter = errors.New("filter matches every row")
)

type UserStore interface {
	CreateUser(ctx context.Context, args user.CreateUser) (user.User, error)
	// QueryUsers returns every user matching q, ordered by id. An empty q
	// returns all users.
	QueryUsers(ctx context.Context, q user.QueryUser) ([]user.User, error)
	UpdateUsers(ctx context.Context, u table.Update[user.QueryUser]) (int64, error)
	DeleteUsers(ctx context.Context, q user.QueryUser) (int64, error)
	// DeleteUserAndPasses removes the user and every pass issued to it as
	// one atomic step. It reports the number of users removed.
	DeleteUserAndPasses(ctx context.Context, id user.ID) (int64, error)
}

// ModifyFunc edits a pass in place. Returning false leaves the stored row
// untouched.
type ModifyFunc func(p *pass.UserPass) (write bool, err error)

type PassStore interface {
	CreatePass(ctx context.Context, args pass.CreateUserPass) (pass.UserPass, error)
	QueryPasses(ctx context.Context, q pass.QueryUserPass) ([]pass.UserPass, error)
	UpdatePasses(ctx context.Context, u table.Update[pass.QueryUserPass]) (int64, error)
	DeletePasses(ctx context.Context, q pass.QueryUserPass) (int64, error)

	// ModifyPass loads the first pass matching q, hands it to fn and
	// writes it back when fn asks to, all as one atomic step. It returns
	// the pass as it stands afterwards.
	ModifyPass(ctx context.Context, q pass.QueryUserPass, fn ModifyFunc) (pass.UserPass, error)
}

// FirstUser returns the lowest-id user matching q.
func FirstUser(ctx context.Context, s UserStore, q user.QueryUser) (user.User, error) {
	us, err := s.QueryUsers(ctx, q)
	if err != nil {
		return user.User{}, err
	}
	if len(us) == 0 {
		return user.User{}, ErrNotFound
	}
	return us[0], nil
}

// FirstPass returns the lowest-id pass matching q.
func FirstPass(ctx context.Context, s PassStore, q pass.QueryUserPass) (pass.UserPass, error) {
	ps, err := s.QueryPasses(ctx, q)
	if err != nil {
		return pass.UserPass{}, err
	}
	if len(ps) == 0 {
		return pass.UserPass{}, ErrNotFound
	}
	return ps[0], nil
}
