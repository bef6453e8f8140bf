// Package store provides a SQLite-backed journal of propagation passes.
//
// The journal is append-only:
//   - passes: one row per PassRecord, keyed by its content-addressed ID
//   - notifications: every set and dirtied signal of a pass, in delivery order
//
// # Ordering
//
// Queries return passes ORDER BY seq ASC, id ASC COLLATE BINARY so results
// are identical across runs regardless of wall time.
//
// # Idempotency
//
// Writing a pass whose ID is already present is a no-op. Pass IDs are
// computed by ir.PassID over the token, kind, trigger, source and seq, so a
// re-run with the same token generator and clock journals nothing twice.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The journal records what was dirtied, never graph state.
package store
