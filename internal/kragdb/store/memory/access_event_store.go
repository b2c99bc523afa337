package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
)

// AccessEventStore is an in-memory append-only log of access decisions.
type AccessEventStore struct {
	mu     sync.Mutex
	events []store.AccessEventRecord
}

var _ store.AccessEventStore = (*AccessEventStore)(nil)

func NewAccessEventStore() *AccessEventStore {
	return &AccessEventStore{}
}

func (s *AccessEventStore) RecordEvent(_ context.Context, rec store.AccessEventRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = rec.ReceivedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

func (s *AccessEventStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, e := range s.events {
		if !e.ReceivedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	n := int64(len(s.events) - len(kept))
	s.events = kept
	return n, nil
}

// Events returns a copy of all recorded events. Test-only helper.
func (s *AccessEventStore) Events() []store.AccessEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
