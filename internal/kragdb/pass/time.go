package pass

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimePass grants entry until Expiry.
type TimePass struct {
	Expiry time.Time `json:"expiry"`
}

// DefaultTimePass returns a pass that expired at the Unix epoch.
func DefaultTimePass() TimePass { return TimePass{Expiry: Epoch} }

func (p *TimePass) UseKey() AccessAttempt { return p.UseKeyAt(time.Now()) }

func (p *TimePass) UseKeyAt(now time.Time) AccessAttempt {
	if now.Before(p.Expiry) {
		return Successful(MethodTimePass)
	}
	return Failure
}

// ParseError reports input that does not describe a pass.
type ParseError struct {
	Kind  string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pass: parse %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNoLayout = errors.New("expected RFC 3339 or YYYY-MM-DD HH:MM:SS")

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimePass reads an expiry instant. Inputs without an offset are UTC.
func ParseTimePass(s string) (TimePass, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return TimePass{Expiry: t.UTC()}, nil
		}
	}
	return TimePass{}, &ParseError{Kind: "time pass", Input: s, Err: errNoLayout}
}

// ParseSessionPass reads a session count. The result has never been used.
func ParseSessionPass(s string) (SessionPass, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return SessionPass{}, &ParseError{Kind: "session pass", Input: s, Err: err}
	}
	return SessionPass{SessionsLeft: uint32(n), LastTimeUsed: Epoch}, nil
}
