package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/queryir"
)

// ErrPassConflict is returned when a pass ID or seq is already journaled
// with different content.
var ErrPassConflict = errors.New("conflicting pass already journaled")

// WritePass inserts a pass and its notifications in one transaction.
// Returns inserted=false when the identical pass is already journaled;
// nothing is written in that case. A journaled pass with the same ID or
// seq but different notifications fails with ErrPassConflict.
//
// The set and dirtied lists are stored twice: as canonical JSON on the pass
// row for ordered reads, and as notification rows for per-slot queries.
func (s *Store) WritePass(ctx context.Context, rec ir.PassRecord) (inserted bool, err error) {
	if rec.ID == "" {
		return false, fmt.Errorf("write pass: empty id")
	}

	setJSON, err := marshalSlots(rec.Set)
	if err != nil {
		return false, fmt.Errorf("write pass: %w", err)
	}
	dirtiedJSON, err := marshalSlots(rec.Dirtied)
	if err != nil {
		return false, fmt.Errorf("write pass: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write pass: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO passes
		(id, token, seq, kind, trigger_slot, source_slot, set_slots, dirtied_slots,
		 error_code, error, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Token,
		rec.Seq,
		string(rec.Kind),
		rec.Trigger,
		rec.Source,
		setJSON,
		dirtiedJSON,
		rec.ErrorCode,
		rec.Error,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("write pass %s: seq %d: %w", rec.ID, rec.Seq, ErrPassConflict)
		}
		return false, fmt.Errorf("write pass: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write pass: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, checkSamePass(ctx, tx, rec, setJSON, dirtiedJSON)
	}

	if err := insertNotifications(ctx, tx, rec.ID, queryir.SignalSet, rec.Set); err != nil {
		return false, err
	}
	if err := insertNotifications(ctx, tx, rec.ID, queryir.SignalDirtied, rec.Dirtied); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write pass: commit: %w", err)
	}
	return true, nil
}

// checkSamePass compares a journaled pass with rec after an ID collision.
func checkSamePass(ctx context.Context, tx *sql.Tx, rec ir.PassRecord, setJSON, dirtiedJSON string) error {
	var set, dirtied, code string
	err := tx.QueryRowContext(ctx, `
		SELECT set_slots, dirtied_slots, error_code FROM passes WHERE id = ?
	`, rec.ID).Scan(&set, &dirtied, &code)
	if err != nil {
		return fmt.Errorf("write pass: read existing: %w", err)
	}
	if set != setJSON || dirtied != dirtiedJSON || code != rec.ErrorCode {
		return fmt.Errorf("write pass %s: %w", rec.ID, ErrPassConflict)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func insertNotifications(ctx context.Context, tx *sql.Tx, passID, signal string, slots []string) error {
	if len(slots) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications (pass_id, signal, position, slot)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write pass: prepare %s: %w", signal, err)
	}
	defer stmt.Close()

	for i, slot := range slots {
		if _, err := stmt.ExecContext(ctx, passID, signal, i, slot); err != nil {
			return fmt.Errorf("write pass: %s[%d]: %w", signal, i, err)
		}
	}
	return nil
}
