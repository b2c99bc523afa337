package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	dbpkg "github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

type UserStore struct {
	repo *Repository[user.User, user.CreateUser, user.QueryUser]
}

var _ store.UserStore = (*UserStore)(nil)

func NewUserStore(db *sqlx.DB, writer *dbpkg.Worker) *UserStore {
	return &UserStore{
		repo: NewRepository[user.User, user.CreateUser, user.QueryUser](db, writer, UserTable{}, "id"),
	}
}

func (s *UserStore) CreateUser(ctx context.Context, args user.CreateUser) (user.User, error) {
	return s.repo.Create(ctx, args)
}

func (s *UserStore) QueryUsers(ctx context.Context, q user.QueryUser) ([]user.User, error) {
	return s.repo.Query(ctx, q)
}

func (s *UserStore) UpdateUsers(ctx context.Context, u table.Update[user.QueryUser]) (int64, error) {
	return s.repo.Update(ctx, u)
}

func (s *UserStore) DeleteUsers(ctx context.Context, q user.QueryUser) (int64, error) {
	return s.repo.Delete(ctx, q)
}

func (s *UserStore) DeleteUserAndPasses(ctx context.Context, id user.ID) (int64, error) {
	passes := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(PassTable{}.TableName()), quoteIdent("user_id"))
	users := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.repo.table, quoteIdent(s.repo.key))

	var n int64
	err := s.repo.writer.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(passes), id); err != nil {
			return fmt.Errorf("passes: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(users), id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete user %d: %w", id, classify(err))
	}
	return n, nil
}
