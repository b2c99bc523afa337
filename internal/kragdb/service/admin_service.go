package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

var (
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSessions    = errors.New("invalid session count")
	ErrInvalidInput       = errors.New("invalid input")
)

// Operator is the actor used by the command line tools. It holds every
// permission and does not exist in the user table.
var Operator = user.User{Username: "operator", Permissions: perm.Root}

// AdminService manages users and passes on behalf of an authenticated
// actor. Every method checks the actor's permissions first.
type AdminService struct {
	users  store.UserStore
	passes store.PassStore
	logger zerolog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummy     user.PasswordHash
}

func NewAdminService(us store.UserStore, ps store.PassStore, logger zerolog.Logger) *AdminService {
	return &AdminService{users: us, passes: ps, logger: logger, now: time.Now}
}

func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// Authenticate returns the user with the given email when password
// matches. An unknown email still costs one hash verification.
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	addr, err := user.ParseEmail(email)
	if err != nil {
		s.verifyDummy(password)
		return user.User{}, ErrInvalidCredentials
	}
	u, err := store.FirstUser(ctx, s.users, user.QueryUser{Email: &addr})
	if errors.Is(err, store.ErrNotFound) {
		s.verifyDummy(password)
		return user.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return user.User{}, fmt.Errorf("Authenticate lookup: %w", err)
	}
	if !u.Password.Verify(password) {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AdminService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummy, _ = user.HashPassword("not-a-real-password")
	})
	s.dummy.Verify(password)
}

// ── users ──

func (s *AdminService) CreateUser(ctx context.Context, actor user.User, req types.CreateUserRequest) (user.User, error) {
	if err := require(actor, perm.UserCreate); err != nil {
		return user.User{}, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return user.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	email, err := user.ParseEmail(req.Email)
	if err != nil {
		return user.User{}, err
	}
	hash, err := user.HashPassword(req.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	perms, err := parsePerms(req.Permissions)
	if err != nil {
		return user.User{}, err
	}
	if err := canGrant(actor, perms); err != nil {
		return user.User{}, err
	}

	args := user.CreateUser{
		Username:    username,
		Email:       email,
		Password:    hash,
		Permissions: perms,
	}
	if req.Number != nil {
		n := user.PhoneNumber(*req.Number)
		args.Number = &n
	}

	u, err := s.users.CreateUser(ctx, args)
	if err != nil {
		return user.User{}, err
	}
	s.logger.Info().Object("user", u).Int32("actor", int32(actor.ID)).Msg("user created")
	return u, nil
}

// QueryUsers lists users matching q. An actor without UserRead only ever
// sees their own row.
func (s *AdminService) QueryUsers(ctx context.Context, actor user.User, q user.QueryUser) ([]user.User, error) {
	if !actor.Permissions.Contains(perm.UserRead) {
		if q.ID != nil && *q.ID != actor.ID {
			return nil, ErrForbidden
		}
		q.ID = &actor.ID
	}
	return s.users.QueryUsers(ctx, q)
}

func (s *AdminService) GetUser(ctx context.Context, actor user.User, id user.ID) (user.User, error) {
	if id != actor.ID {
		if err := require(actor, perm.UserRead); err != nil {
			return user.User{}, err
		}
	}
	return store.FirstUser(ctx, s.users, user.QueryUser{ID: &id})
}

// UpdateUser applies req to user id. Users may change their own username
// and password without UserUpdate. Root users can only be changed by root.
func (s *AdminService) UpdateUser(ctx context.Context, actor user.User, id user.ID, req types.UpdateUserRequest) (user.User, error) {
	self := id == actor.ID
	selfOnly := req.Email == nil && req.Number == nil && req.Permissions == nil
	if !(self && selfOnly) {
		if err := require(actor, perm.UserUpdate); err != nil {
			return user.User{}, err
		}
	}

	target, err := store.FirstUser(ctx, s.users, user.QueryUser{ID: &id})
	if err != nil {
		return user.User{}, err
	}
	if target.IsRoot() && !actor.IsRoot() {
		return user.User{}, ErrForbidden
	}

	var set user.QueryUser
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			return user.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		set.Username = &name
	}
	if req.Email != nil {
		email, err := user.ParseEmail(*req.Email)
		if err != nil {
			return user.User{}, err
		}
		set.Email = &email
	}
	if req.Number != nil {
		n := user.PhoneNumber(*req.Number)
		set.Number = &n
	}
	if req.Password != nil {
		hash, err := user.HashPassword(*req.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		set.Password = &hash
	}
	if req.Permissions != nil {
		perms, err := parsePerms(*req.Permissions)
		if err != nil {
			return user.User{}, err
		}
		if err := canGrant(actor, perms); err != nil {
			return user.User{}, err
		}
		set.Permissions = &perms
	}

	if _, err := s.users.UpdateUsers(ctx, table.Update[user.QueryUser]{
		Match: user.QueryUser{ID: &id},
		Set:   set,
	}); err != nil {
		return user.User{}, err
	}
	return store.FirstUser(ctx, s.users, user.QueryUser{ID: &id})
}

// DeleteUser removes a user together with their passes. Root users cannot
// be deleted.
func (s *AdminService) DeleteUser(ctx context.Context, actor user.User, id user.ID) (int64, error) {
	if err := require(actor, perm.UserDelete); err != nil {
		return 0, err
	}
	target, err := store.FirstUser(ctx, s.users, user.QueryUser{ID: &id})
	if err != nil {
		return 0, err
	}
	if target.IsRoot() {
		return 0, ErrForbidden
	}

	n, err := s.users.DeleteUserAndPasses(ctx, id)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int32("user_id", int32(id)).Int32("actor", int32(actor.ID)).Msg("user deleted")
	return n, nil
}

// ── passes ──

func (s *AdminService) IssuePass(ctx context.Context, actor user.User, req types.IssuePassRequest) (pass.UserPass, error) {
	if err := require(actor, perm.PassCreate); err != nil {
		return pass.UserPass{}, err
	}
	if req.UserID <= 0 {
		return pass.UserPass{}, ErrInvalidUserID
	}
	uid := user.ID(req.UserID)
	if _, err := store.FirstUser(ctx, s.users, user.QueryUser{ID: &uid}); err != nil {
		return pass.UserPass{}, err
	}

	args := pass.NewCreateUserPass(uid)
	if strings.TrimSpace(req.Expiry) != "" {
		tp, err := pass.ParseTimePass(req.Expiry)
		if err != nil {
			return pass.UserPass{}, err
		}
		args.TimePass = tp
	}
	args.SessionPass.SessionsLeft = req.Sessions

	p, err := s.passes.CreatePass(ctx, args)
	if err != nil {
		return pass.UserPass{}, err
	}
	s.logger.Info().Object("pass", p).Int32("actor", int32(actor.ID)).Msg("pass issued")
	return p, nil
}

// QueryPasses lists passes, optionally of one user. An actor without
// PassRead only sees their own passes.
func (s *AdminService) QueryPasses(ctx context.Context, actor user.User, userID *user.ID) ([]pass.UserPass, error) {
	var q pass.QueryUserPass
	if userID != nil {
		q.UserID = userID
	}
	if !actor.Permissions.Contains(perm.PassRead) {
		if userID != nil && *userID != actor.ID {
			return nil, ErrForbidden
		}
		q.UserID = &actor.ID
	}
	return s.passes.QueryPasses(ctx, q)
}

func (s *AdminService) GetPass(ctx context.Context, actor user.User, id pass.ID) (pass.UserPass, error) {
	p, err := store.FirstPass(ctx, s.passes, pass.ByID(id))
	if err != nil {
		return pass.UserPass{}, err
	}
	if p.UserID != actor.ID {
		if err := require(actor, perm.PassRead); err != nil {
			return pass.UserPass{}, err
		}
	}
	return p, nil
}

// AddSessions tops up the session pass. The count must be positive and
// the total must fit in 32 bits.
func (s *AdminService) AddSessions(ctx context.Context, actor user.User, id pass.ID, n uint32) (pass.UserPass, error) {
	if err := require(actor, perm.PassUpdate); err != nil {
		return pass.UserPass{}, err
	}
	if n == 0 {
		return pass.UserPass{}, ErrInvalidSessions
	}
	return s.passes.ModifyPass(ctx, pass.ByID(id), func(up *pass.UserPass) (bool, error) {
		if up.SessionPass.SessionsLeft > math.MaxUint32-n {
			return false, ErrInvalidSessions
		}
		up.SessionPass.SessionsLeft += n
		return true, nil
	})
}

// ExtendTimePass sets a new expiry. Days counts from the later of now and
// the current expiry, so extending an active pass never shortens it.
func (s *AdminService) ExtendTimePass(ctx context.Context, actor user.User, id pass.ID, req types.ExtendTimeRequest) (pass.UserPass, error) {
	if err := require(actor, perm.PassUpdate); err != nil {
		return pass.UserPass{}, err
	}

	var until *pass.TimePass
	if strings.TrimSpace(req.Until) != "" {
		tp, err := pass.ParseTimePass(req.Until)
		if err != nil {
			return pass.UserPass{}, err
		}
		until = &tp
	} else if req.Days <= 0 {
		return pass.UserPass{}, fmt.Errorf("%w: until or a positive days is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	return s.passes.ModifyPass(ctx, pass.ByID(id), func(up *pass.UserPass) (bool, error) {
		if until != nil {
			up.TimePass = *until
			return true, nil
		}
		from := up.TimePass.Expiry
		if from.Before(now) {
			from = now
		}
		up.TimePass.Expiry = from.AddDate(0, 0, req.Days).UTC()
		return true, nil
	})
}

func (s *AdminService) DeletePass(ctx context.Context, actor user.User, id pass.ID) (int64, error) {
	if err := require(actor, perm.PassDelete); err != nil {
		return 0, err
	}
	n, err := s.passes.DeletePasses(ctx, pass.ByID(id))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	return n, nil
}

func require(actor user.User, need perm.Set) error {
	if !actor.Permissions.Contains(need) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, need)
	}
	return nil
}

// canGrant stops an actor from handing out permissions they lack.
func canGrant(actor user.User, perms perm.Set) error {
	if actor.IsRoot() || actor.Permissions.Contains(perms) {
		return nil
	}
	return fmt.Errorf("%w: cannot grant %s", ErrForbidden, perms.Difference(actor.Permissions))
}

func parsePerms(s string) (perm.Set, error) {
	if strings.TrimSpace(s) == "" {
		return perm.None, nil
	}
	p, err := perm.Parse(s)
	if err != nil {
		return perm.None, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return p, nil
}
