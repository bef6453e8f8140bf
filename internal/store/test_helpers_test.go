package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/slotgraph/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPass creates a set pass with a correct content-addressed ID.
func createTestPass(token string, seq int64, trigger string, dirtied ...string) ir.PassRecord {
	if dirtied == nil {
		dirtied = []string{}
	}
	return ir.PassRecord{
		ID:      ir.MustPassID(token, ir.PassKindSet, trigger, "", seq),
		Token:   token,
		Seq:     seq,
		Kind:    ir.PassKindSet,
		Trigger: trigger,
		Set:     []string{trigger},
		Dirtied: dirtied,
	}
}
