package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/slotgraph/internal/ir"
)

// Journal writes every pass it receives to a Store. Its Record method has
// the engine.PassFunc signature:
//
//	j := store.NewJournal(ctx, s, logger)
//	cancel := eng.OnPass(j.Record)
//
// A failed write is logged and remembered; later passes are still written.
type Journal struct {
	ctx    context.Context
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	err     error
	written int
}

// NewJournal creates a journal writing to s. A nil logger uses
// slog.Default().
func NewJournal(ctx context.Context, s *Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{ctx: ctx, store: s, logger: logger}
}

// Record journals one pass.
func (j *Journal) Record(rec ir.PassRecord) {
	inserted, err := j.store.WritePass(j.ctx, rec)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.logger.Error("journal write failed", "pass", rec.ID, "token", rec.Token, "error", err)
		if j.err == nil {
			j.err = err
		}
		return
	}
	if inserted {
		j.written++
	}
}

// Err returns the first write error, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Written returns the number of passes inserted by this journal.
func (j *Journal) Written() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}
