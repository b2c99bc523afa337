package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	dbpkg "github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

type PassStore struct {
	repo *Repository[pass.UserPass, pass.CreateUserPass, pass.QueryUserPass]
}

var _ store.PassStore = (*PassStore)(nil)

func NewPassStore(db *sqlx.DB, writer *dbpkg.Worker) *PassStore {
	return &PassStore{
		repo: NewRepository[pass.UserPass, pass.CreateUserPass, pass.QueryUserPass](db, writer, PassTable{}, "id"),
	}
}

func (s *PassStore) CreatePass(ctx context.Context, args pass.CreateUserPass) (pass.UserPass, error) {
	return s.repo.Create(ctx, args)
}

func (s *PassStore) QueryPasses(ctx context.Context, q pass.QueryUserPass) ([]pass.UserPass, error) {
	return s.repo.Query(ctx, q)
}

func (s *PassStore) UpdatePasses(ctx context.Context, u table.Update[pass.QueryUserPass]) (int64, error) {
	return s.repo.Update(ctx, u)
}

func (s *PassStore) DeletePasses(ctx context.Context, q pass.QueryUserPass) (int64, error) {
	return s.repo.Delete(ctx, q)
}

func (s *PassStore) ModifyPass(ctx context.Context, q pass.QueryUserPass, fn store.ModifyFunc) (pass.UserPass, error) {
	return s.repo.Modify(ctx, q, fn)
}
