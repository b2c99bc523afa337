package pass

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
	"github.com/BrandonDHaskell/kragdb/internal/table"
)

type ID int64

// UserPass is the pass set issued to one user. One per user is the
// convention; nothing enforces it.
type UserPass struct {
	ID          ID          `db:"id" json:"id"`
	UserID      user.ID     `db:"user_id" json:"user_id"`
	TimePass    TimePass    `db:"time_pass" json:"time_pass"`
	SessionPass SessionPass `db:"session_pass" json:"session_pass"`
}

var (
	_ table.Queryable[CreateUserPass, QueryUserPass] = UserPass{}
	_                                                = table.Register(UserPass{})
)

func (p UserPass) BoundColumns() []string              { return table.Columns(p) }
func (p UserPass) BindValues(args []any) []any         { return table.AppendValues(args, p) }
func (UserPass) Args() (CreateUserPass, QueryUserPass) { return CreateUserPass{}, QueryUserPass{} }

func (p *UserPass) UseKey() AccessAttempt { return p.UseKeyAt(time.Now()) }

// UseKeyAt prefers the time pass. The session pass is only consulted, and
// possibly charged, when the time pass has expired.
func (p *UserPass) UseKeyAt(now time.Time) AccessAttempt {
	if a := p.TimePass.UseKeyAt(now); a.Succeeded() {
		return a
	}
	return p.SessionPass.UseKeyAt(now)
}

func (p UserPass) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("id", int64(p.ID)).
		Int32("user_id", int32(p.UserID)).
		Time("expiry", p.TimePass.Expiry).
		Uint32("sessions_left", p.SessionPass.SessionsLeft).
		Time("last_time_used", p.SessionPass.LastTimeUsed)
}
