package pass

import "time"

// graceZone is the facility's wall clock. It is a fixed offset and does
// not follow daylight saving.
var graceZone = time.FixedZone("UTC+2", 2*60*60)

// lateEntryHour is the local hour from which a session also covers the
// early hours of the next day.
const lateEntryHour = 20

// SessionPass holds a number of paid entries. Paying for an entry opens a
// free re-entry window:
//
//	entered 00:00-19:59  free until midnight the same day
//	entered 20:00-23:59  free until 05:00 the next day
type SessionPass struct {
	SessionsLeft uint32    `json:"sessions_left"`
	LastTimeUsed time.Time `json:"last_time_used"`
}

// DefaultSessionPass has no sessions and was last used at the epoch.
func DefaultSessionPass() SessionPass { return SessionPass{LastTimeUsed: Epoch} }

func (p *SessionPass) UseKey() AccessAttempt { return p.UseKeyAt(time.Now()) }

// UseKeyAt checks the grace window before the session count, so a pass
// with no sessions left still admits re-entry inside its window.
func (p *SessionPass) UseKeyAt(now time.Time) AccessAttempt {
	if now.Before(p.GraceUntil()) {
		return Successful(MethodSessionPassGrace)
	}
	if p.SessionsLeft > 0 {
		p.SessionsLeft--
		p.LastTimeUsed = now.UTC()
		return Successful(MethodSessionPassSession)
	}
	return Failure
}

// GraceUntil returns the end of the free re-entry window opened by the
// last paid entry.
func (p SessionPass) GraceUntil() time.Time {
	local := p.LastTimeUsed.In(graceZone)
	h, m, s := local.Clock()
	sinceMidnight := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	next := local.Add(24*time.Hour - sinceMidnight)
	if h >= lateEntryHour {
		next = next.Add(5 * time.Hour)
	}
	return next
}
