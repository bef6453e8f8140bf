package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/queryir"
	"github.com/roach88/slotgraph/internal/querysql"
)

const passColumns = `p.id, p.token, p.seq, p.kind, p.trigger_slot, p.source_slot,
	p.set_slots, p.dirtied_slots, p.error_code, p.error`

// ReadPass retrieves a single pass by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPass(ctx context.Context, id string) (ir.PassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+passColumns+`
		FROM passes p
		WHERE p.id = ?
	`, id)
	return scanPass(row)
}

// ReadAllPasses returns every journaled pass ordered by seq ASC, id ASC.
func (s *Store) ReadAllPasses(ctx context.Context) ([]ir.PassRecord, error) {
	return s.queryPasses(ctx, `
		SELECT `+passColumns+`
		FROM passes p
		ORDER BY p.seq ASC, p.id COLLATE BINARY ASC
	`)
}

// ReadPassesByToken returns the passes stamped with token.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadPassesByToken(ctx context.Context, token string) ([]ir.PassRecord, error) {
	return s.QueryPasses(ctx, queryir.Select{
		Filter: queryir.Equals{Field: queryir.FieldToken, Value: ir.IRString(token)},
	})
}

// ReadPassesForSlot returns the passes that dirtied the slot with the given
// full name.
func (s *Store) ReadPassesForSlot(ctx context.Context, slot string) ([]ir.PassRecord, error) {
	return s.QueryPasses(ctx, queryir.Select{
		Filter: queryir.Touches{Signal: queryir.SignalDirtied, Slot: slot},
	})
}

// ReadAbortedPasses returns the passes that stopped on a protocol violation.
func (s *Store) ReadAbortedPasses(ctx context.Context) ([]ir.PassRecord, error) {
	return s.QueryPasses(ctx, queryir.Select{Filter: queryir.Aborted{}})
}

// QueryPasses validates, compiles and runs a journal query.
// Results are ordered by seq ASC, id ASC.
func (s *Store) QueryPasses(ctx context.Context, q queryir.Query) ([]ir.PassRecord, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return nil, err
	}
	query, params, err := querysql.NewSQLCompiler(passColumns).Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	return s.queryPasses(ctx, query, params...)
}

// SlotCount is the number of dirtied notifications journaled for one slot.
type SlotCount struct {
	Slot  string `json:"slot"`
	Count int64  `json:"count"`
}

// CountDirtied returns per-slot dirtied counts, most notified first.
// Ties are broken by slot name.
func (s *Store) CountDirtied(ctx context.Context) ([]SlotCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, COUNT(*) AS n
		FROM notifications
		WHERE signal = 'dirtied'
		GROUP BY slot
		ORDER BY n DESC, slot COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count dirtied: %w", err)
	}
	defer rows.Close()

	counts := []SlotCount{}
	for rows.Next() {
		var c SlotCount
		if err := rows.Scan(&c.Slot, &c.Count); err != nil {
			return nil, fmt.Errorf("scan slot count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot counts: %w", err)
	}
	return counts, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM passes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryPasses(ctx context.Context, query string, args ...any) ([]ir.PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []ir.PassRecord{}
	for rows.Next() {
		rec, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPass(sc scanner) (ir.PassRecord, error) {
	var rec ir.PassRecord
	var kind, setJSON, dirtiedJSON string

	if err := sc.Scan(
		&rec.ID, &rec.Token, &rec.Seq, &kind, &rec.Trigger, &rec.Source,
		&setJSON, &dirtiedJSON, &rec.ErrorCode, &rec.Error,
	); err != nil {
		return ir.PassRecord{}, err
	}
	rec.Kind = ir.PassKind(kind)

	set, err := unmarshalSlots(setJSON)
	if err != nil {
		return ir.PassRecord{}, err
	}
	if len(set) > 0 {
		rec.Set = set
	}

	dirtied, err := unmarshalSlots(dirtiedJSON)
	if err != nil {
		return ir.PassRecord{}, err
	}
	rec.Dirtied = dirtied
	return rec, nil
}
