// Package pass decides whether a membership pass grants entry right now,
// and by which credential.
//
// Deciding is pure: nothing in this package performs I/O. A caller loads a
// UserPass, calls UseKey, and writes the pass back only when the returned
// attempt reports Consumed.
package pass

import (
	"fmt"
	"time"
)

// AccessMethod names the credential that let a holder in.
type AccessMethod uint8

const (
	MethodTimePass AccessMethod = iota + 1
	MethodSessionPassSession
	MethodSessionPassGrace
)

func (m AccessMethod) String() string {
	switch m {
	case MethodTimePass:
		return "time_pass"
	case MethodSessionPassSession:
		return "session_pass_session"
	case MethodSessionPassGrace:
		return "session_pass_grace"
	default:
		return fmt.Sprintf("AccessMethod(%d)", uint8(m))
	}
}

// AccessAttempt is the outcome of one entry check. The zero value is
// Failure, which is a normal outcome and not an error.
type AccessAttempt struct {
	method AccessMethod
}

var Failure = AccessAttempt{}

func Successful(m AccessMethod) AccessAttempt { return AccessAttempt{method: m} }

func (a AccessAttempt) Succeeded() bool { return a.method != 0 }

// Method returns the credential used and false on Failure.
func (a AccessAttempt) Method() (AccessMethod, bool) { return a.method, a.method != 0 }

// IsSuccessAnd reports whether a succeeded and its method satisfies f.
func (a AccessAttempt) IsSuccessAnd(f func(AccessMethod) bool) bool {
	return a.Succeeded() && f(a.method)
}

// Consumed reports whether the attempt spent a session. It is the only
// outcome after which the pass must be persisted.
func (a AccessAttempt) Consumed() bool { return a.method == MethodSessionPassSession }

func (a AccessAttempt) String() string {
	if !a.Succeeded() {
		return "failure"
	}
	return a.method.String()
}

func (a AccessAttempt) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UsableKey is implemented by every pass kind. UseKey checks the pass
// against the current time; UseKeyAt takes the clock explicitly.
// Implementations mutate the receiver only when a session is consumed.
type UsableKey interface {
	UseKey() AccessAttempt
	UseKeyAt(now time.Time) AccessAttempt
}

var (
	_ UsableKey = (*TimePass)(nil)
	_ UsableKey = (*SessionPass)(nil)
	_ UsableKey = (*UserPass)(nil)
)

// Epoch is the default instant for never-used passes.
var Epoch = time.Unix(0, 0).UTC()
