package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

var (
	ErrInvalidUserID = errors.New("user_id is required")
	ErrNoPass        = errors.New("no pass issued")
)

// Reasons recorded for decisions that did not succeed with a method.
const (
	ReasonNoValidPass = "no_valid_pass"
	ReasonNoPass      = "no_pass"
)

type AccessService struct {
	passes store.PassStore
	events store.AccessEventStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewAccessService(ps store.PassStore, es store.AccessEventStore, logger zerolog.Logger) *AccessService {
	return &AccessService{passes: ps, events: es, logger: logger, now: time.Now}
}

// WithClock replaces the decision clock. Tests use it to pin the grace
// window.
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	s.now = now
	return s
}

// Decide checks the user's pass and, when entry spends a session, stores
// the spent session in the same step. A denied entry is a normal response,
// not an error. A user without a matching pass gets ErrNoPass together
// with a filled-in denial.
func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	now := s.now().UTC()

	if req.UserID <= 0 {
		return types.AccessResponse{}, ErrInvalidUserID
	}
	uid := user.ID(req.UserID)

	q := pass.ByUser(uid)
	if req.PassID != nil {
		id := pass.ID(*req.PassID)
		q.ID = &id
	}

	var attempt pass.AccessAttempt
	p, err := s.passes.ModifyPass(ctx, q, func(up *pass.UserPass) (bool, error) {
		attempt = up.UseKeyAt(now)
		return attempt.Consumed(), nil
	})
	if errors.Is(err, store.ErrNotFound) {
		resp := types.AccessResponse{
			OK:         false,
			Reason:     ReasonNoPass,
			UserID:     req.UserID,
			ServerTime: now.Format(time.RFC3339Nano),
		}
		if req.PassID != nil {
			resp.PassID = *req.PassID
		}
		s.recordEvent(ctx, req, nil, pass.Failure, ReasonNoPass, now)
		return resp, ErrNoPass
	}
	if err != nil {
		return types.AccessResponse{}, err
	}

	reason := ReasonNoValidPass
	if attempt.Succeeded() {
		reason = attempt.String()
	}

	s.recordEvent(ctx, req, &p.ID, attempt, reason, now)

	resp := types.AccessResponse{
		OK:           true,
		Granted:      attempt.Succeeded(),
		Reason:       reason,
		UserID:       req.UserID,
		PassID:       int64(p.ID),
		SessionsLeft: p.SessionPass.SessionsLeft,
		ServerTime:   now.Format(time.RFC3339Nano),
	}
	if m, ok := attempt.Method(); ok {
		resp.Method = m.String()
	}
	return resp, nil
}

// recordEvent writes the decision to the audit log. A failed write is
// logged and otherwise ignored so the caller still gets its decision.
func (s *AccessService) recordEvent(
	ctx context.Context,
	req types.AccessRequest,
	passID *pass.ID,
	attempt pass.AccessAttempt,
	reason string,
	decidedAt time.Time,
) {
	rec := store.AccessEventRecord{
		UserID:      user.ID(req.UserID),
		PassID:      passID,
		ModuleID:    strings.TrimSpace(req.ModuleID),
		ReceivedAt:  decidedAt,
		RequestedAt: parseOptionalTimestamp(req.RequestedAt),
		Granted:     attempt.Succeeded(),
		Reason:      reason,
		DecidedAt:   decidedAt,
	}
	if m, ok := attempt.Method(); ok {
		rec.Method = m.String()
	}

	if err := s.events.RecordEvent(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Int32("user_id", req.UserID).Msg("record access event")
	}
}

// parseOptionalTimestamp returns nil for an empty or unparseable string.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
