package store

import (
	"context"
	"fmt"

	"github.com/roach88/slotgraph/internal/ir"
)

// Mismatch describes a journaled pass whose stored ID does not match the
// ID recomputed from its content.
type Mismatch struct {
	ID       string `json:"id"`
	Expected string `json:"expected"`
	Seq      int64  `json:"seq"`
}

// Verify recomputes the content-addressed ID of every journaled pass and
// checks each pass's notification rows against its dirtied list.
// Returns the mismatching passes in seq order; an empty result means the
// journal is intact.
func (s *Store) Verify(ctx context.Context) ([]Mismatch, error) {
	passes, err := s.ReadAllPasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	mismatches := []Mismatch{}
	for _, rec := range passes {
		want, err := ir.PassID(rec.Token, rec.Kind, rec.Trigger, rec.Source, rec.Seq)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", rec.ID, err)
		}
		if want != rec.ID {
			mismatches = append(mismatches, Mismatch{ID: rec.ID, Expected: want, Seq: rec.Seq})
			continue
		}

		var n int
		if err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM notifications
			WHERE pass_id = ? AND signal = 'dirtied'
		`, rec.ID).Scan(&n); err != nil {
			return nil, fmt.Errorf("verify %s: count notifications: %w", rec.ID, err)
		}
		if n != len(rec.Dirtied) {
			mismatches = append(mismatches, Mismatch{ID: rec.ID, Expected: want, Seq: rec.Seq})
		}
	}
	return mismatches, nil
}
