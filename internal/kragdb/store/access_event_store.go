package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

// AccessEventRecord captures a single access decision for the audit log.
type AccessEventRecord struct {
	ID          uuid.UUID
	UserID      user.ID
	PassID      *pass.ID // nil when the user had no pass
	ModuleID    string   // reader or door the request came from, may be empty
	ReceivedAt  time.Time
	RequestedAt *time.Time // optional client-reported timestamp
	Granted     bool
	Method      string // empty on failure
	Reason      string
	DecidedAt   time.Time
}

// AccessEventStore persists access decisions as an append-only audit log.
type AccessEventStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error
	// PruneOlderThan deletes events received before cutoff and reports how
	// many went.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
