package db

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// ErrWorkerClosed is returned by Do after Close.
var ErrWorkerClosed = errors.New("db: worker closed")

// TxFn runs inside a transaction. Returning an error rolls it back.
type TxFn func(ctx context.Context, tx *sqlx.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker serializes every write through one goroutine, one transaction per
// job. Read-modify-write sequences run as a single job, so two callers
// can never both act on the same pre-write state.
type Worker struct {
	db   *sqlx.DB
	jobs chan job
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewWorker(db *sqlx.DB) *Worker {
	w := &Worker{
		db:   db,
		jobs: make(chan job, 256),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains queued jobs and stops the worker. It is safe to call more
// than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)
	j := job{ctx: ctx, fn: fn, ch: ch}

	// Enqueue, unless the caller gives up while the buffer is full. Close
	// waits for enqueues already past the closed check.
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWorkerClosed
	}
	select {
	case w.jobs <- j:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}

	// The loop still finishes a job whose caller has gone; the result lands
	// in the buffered ch and is dropped.
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		if err := j.ctx.Err(); err != nil {
			j.ch <- err
			continue
		}

		tx, err := w.db.BeginTxx(j.ctx, nil)
		if err != nil {
			j.ch <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.ch <- err
			continue
		}

		j.ch <- tx.Commit()
	}
}
