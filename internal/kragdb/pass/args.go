package pass

import (
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

// CreateUserPass is the shape expected when issuing a pass.
type CreateUserPass struct {
	ID          *ID         `db:"id" json:"id,omitempty"`
	UserID      user.ID     `db:"user_id" json:"user_id"`
	TimePass    TimePass    `db:"time_pass" json:"time_pass"`
	SessionPass SessionPass `db:"session_pass" json:"session_pass"`
}

// NewCreateUserPass issues an inactive pass for userID: an expired time
// pass and no sessions.
func NewCreateUserPass(userID user.ID) CreateUserPass {
	return CreateUserPass{
		UserID:      userID,
		TimePass:    DefaultTimePass(),
		SessionPass: DefaultSessionPass(),
	}
}

type QueryUserPass struct {
	ID          *ID          `db:"id" json:"id,omitempty"`
	UserID      *user.ID     `db:"user_id" json:"user_id,omitempty"`
	TimePass    *TimePass    `db:"time_pass" json:"time_pass,omitempty"`
	SessionPass *SessionPass `db:"session_pass" json:"session_pass,omitempty"`
}

var (
	_ = table.Register(CreateUserPass{})
	_ = table.Register(QueryUserPass{})
)

func (c CreateUserPass) BoundColumns() []string      { return table.Columns(c) }
func (c CreateUserPass) BindValues(args []any) []any { return table.AppendValues(args, c) }

func (q QueryUserPass) BoundColumns() []string      { return table.Columns(q) }
func (q QueryUserPass) BindValues(args []any) []any { return table.AppendValues(args, q) }

func (q QueryUserPass) IsEmpty() bool { return len(q.BoundColumns()) == 0 }

// ByID matches a single pass.
func ByID(id ID) QueryUserPass { return QueryUserPass{ID: &id} }

// ByUser matches every pass of a user.
func ByUser(id user.ID) QueryUserPass { return QueryUserPass{UserID: &id} }
