// Package memory keeps users, passes and access events in process memory.
// It is intended for tests and dev environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

// ── users ──

type UserStore struct {
	mu     sync.RWMutex
	nextID user.ID
	rows   map[user.ID]user.User
	passes *PassStore
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore returns an empty store. passes, when set, is the pass store
// DeleteUserAndPasses clears alongside the user.
func NewUserStore(passes *PassStore) *UserStore {
	return &UserStore{nextID: 1, rows: make(map[user.ID]user.User), passes: passes}
}

func (s *UserStore) CreateUser(_ context.Context, args user.CreateUser) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	if args.ID != nil {
		id = *args.ID
	}
	if _, ok := s.rows[id]; ok {
		return user.User{}, fmt.Errorf("create user: %w: id %d", store.ErrConflict, id)
	}
	u := user.User{
		ID:          id,
		Username:    args.Username,
		Email:       args.Email,
		Number:      args.Number,
		Password:    args.Password,
		Permissions: args.Permissions,
	}
	if err := checkUnique(s.rows, u); err != nil {
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	s.rows[id] = u
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return u, nil
}

// checkUnique mirrors the table's UNIQUE constraints. Callers hold mu.
func checkUnique(rows map[user.ID]user.User, u user.User) error {
	for id, other := range rows {
		if id == u.ID {
			continue
		}
		switch {
		case other.Email == u.Email:
			return fmt.Errorf("%w: email %s", store.ErrConflict, u.Email)
		case u.Number != nil && other.Number != nil && *other.Number == *u.Number:
			return fmt.Errorf("%w: number %d", store.ErrConflict, *u.Number)
		}
	}
	return nil
}

func (s *UserStore) QueryUsers(_ context.Context, q user.QueryUser) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matching(s.rows, q), nil
}

func (s *UserStore) UpdateUsers(_ context.Context, u table.Update[user.QueryUser]) (int64, error) {
	if u.Match.IsEmpty() {
		return 0, fmt.Errorf("update user: %w", store.ErrEmptyFilter)
	}
	if u.Set.ID != nil {
		return 0, fmt.Errorf("update user: changing id is not supported")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check every changed row against the others before writing any.
	rows := matching(s.rows, u.Match)
	staged := make(map[user.ID]user.User, len(s.rows))
	for id, row := range s.rows {
		staged[id] = row
	}
	for i := range rows {
		if err := table.Assign(&rows[i], u.Set); err != nil {
			return 0, fmt.Errorf("update user: %w", err)
		}
		staged[rows[i].ID] = rows[i]
	}
	for _, row := range rows {
		if err := checkUnique(staged, row); err != nil {
			return 0, fmt.Errorf("update user: %w", err)
		}
	}

	for _, row := range rows {
		s.rows[row.ID] = row
	}
	return int64(len(rows)), nil
}

func (s *UserStore) DeleteUsers(_ context.Context, q user.QueryUser) (int64, error) {
	if q.IsEmpty() {
		return 0, fmt.Errorf("delete user: %w", store.ErrEmptyFilter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range matching(s.rows, q) {
		delete(s.rows, row.ID)
		n++
	}
	return n, nil
}

// DeleteUserAndPasses holds both store locks so no reader sees the user
// without its passes or the reverse.
func (s *UserStore) DeleteUserAndPasses(_ context.Context, id user.ID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return 0, nil
	}
	if s.passes != nil {
		s.passes.mu.Lock()
		for pid, p := range s.passes.rows {
			if p.UserID == id {
				delete(s.passes.rows, pid)
			}
		}
		s.passes.mu.Unlock()
	}
	delete(s.rows, id)
	return 1, nil
}

// ── passes ──

type PassStore struct {
	mu     sync.RWMutex
	nextID pass.ID
	rows   map[pass.ID]pass.UserPass
}

var _ store.PassStore = (*PassStore)(nil)

func NewPassStore() *PassStore {
	return &PassStore{nextID: 1, rows: make(map[pass.ID]pass.UserPass)}
}

func (s *PassStore) CreatePass(_ context.Context, args pass.CreateUserPass) (pass.UserPass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	if args.ID != nil {
		id = *args.ID
	}
	if _, ok := s.rows[id]; ok {
		return pass.UserPass{}, fmt.Errorf("create userpass: %w: id %d", store.ErrConflict, id)
	}
	p := pass.UserPass{ID: id, UserID: args.UserID, TimePass: args.TimePass, SessionPass: args.SessionPass}
	s.rows[id] = p
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return p, nil
}

func (s *PassStore) QueryPasses(_ context.Context, q pass.QueryUserPass) ([]pass.UserPass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matching(s.rows, q), nil
}

func (s *PassStore) UpdatePasses(_ context.Context, u table.Update[pass.QueryUserPass]) (int64, error) {
	if u.Match.IsEmpty() {
		return 0, fmt.Errorf("update userpass: %w", store.ErrEmptyFilter)
	}
	if u.Set.ID != nil {
		return 0, fmt.Errorf("update userpass: changing id is not supported")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range matching(s.rows, u.Match) {
		if err := table.Assign(&row, u.Set); err != nil {
			return n, fmt.Errorf("update userpass: %w", err)
		}
		s.rows[row.ID] = row
		n++
	}
	return n, nil
}

func (s *PassStore) DeletePasses(_ context.Context, q pass.QueryUserPass) (int64, error) {
	if q.IsEmpty() {
		return 0, fmt.Errorf("delete userpass: %w", store.ErrEmptyFilter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range matching(s.rows, q) {
		delete(s.rows, row.ID)
		n++
	}
	return n, nil
}

// ModifyPass holds the store lock for the whole load, decide and write.
func (s *PassStore) ModifyPass(_ context.Context, q pass.QueryUserPass, fn store.ModifyFunc) (pass.UserPass, error) {
	if q.IsEmpty() {
		return pass.UserPass{}, fmt.Errorf("modify userpass: %w", store.ErrEmptyFilter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := matching(s.rows, q)
	if len(rows) == 0 {
		return pass.UserPass{}, fmt.Errorf("modify userpass: %w", store.ErrNotFound)
	}
	p := rows[0]
	write, err := fn(&p)
	if err != nil {
		return pass.UserPass{}, fmt.Errorf("modify userpass: %w", err)
	}
	if write {
		s.rows[p.ID] = p
	}
	return p, nil
}

// matching returns the rows matching filter in key order.
func matching[K ~int32 | ~int64, T table.Binder](rows map[K]T, filter table.Binder) []T {
	keys := make([]K, 0, len(rows))
	for k, row := range rows {
		if table.Matches(filter, row) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = rows[k]
	}
	return out
}
