package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/queryir"
)

func seedPasses(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []struct {
		token   string
		seq     int64
		trigger string
		dirtied []string
	}{
		{"run-2", 2, "B.op1", []string{"B.op1", "B.sum"}},
		{"run-1", 1, "A.op1", []string{"A.op1", "A.sum", "B.op1", "B.sum"}},
		{"run-1", 3, "A.op2", []string{"A.op2", "A.sum", "B.op1", "B.sum"}},
	} {
		_, err := s.WritePass(ctx, createTestPass(rec.token, rec.seq, rec.trigger, rec.dirtied...))
		require.NoError(t, err)
	}
}

func TestReadAllPasses_Ordered(t *testing.T) {
	s := createTestStore(t)
	seedPasses(t, s)

	passes, err := s.ReadAllPasses(context.Background())
	require.NoError(t, err)
	require.Len(t, passes, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{passes[0].Seq, passes[1].Seq, passes[2].Seq})
	assert.Equal(t, []string{"A.op1"}, passes[0].Set)
}

func TestReadPassesByToken(t *testing.T) {
	s := createTestStore(t)
	seedPasses(t, s)
	ctx := context.Background()

	passes, err := s.ReadPassesByToken(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, "A.op1", passes[0].Trigger)
	assert.Equal(t, "A.op2", passes[1].Trigger)

	passes, err = s.ReadPassesByToken(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, passes)
	assert.Empty(t, passes)
}

func TestReadPassesForSlot(t *testing.T) {
	s := createTestStore(t)
	seedPasses(t, s)
	ctx := context.Background()

	passes, err := s.ReadPassesForSlot(ctx, "B.sum")
	require.NoError(t, err)
	assert.Len(t, passes, 3)

	passes, err = s.ReadPassesForSlot(ctx, "A.op2")
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, int64(3), passes[0].Seq)
}

func TestReadPass_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadPass(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadAbortedPasses(t *testing.T) {
	s := createTestStore(t)
	seedPasses(t, s)
	ctx := context.Background()

	bad := createTestPass("run-3", 4, "C.in", "C.in")
	bad.ErrorCode = "FOREIGN_SLOT"
	_, err := s.WritePass(ctx, bad)
	require.NoError(t, err)

	passes, err := s.ReadAbortedPasses(ctx)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, bad.ID, passes[0].ID)
}

func TestCountDirtied(t *testing.T) {
	s := createTestStore(t)
	seedPasses(t, s)

	counts, err := s.CountDirtied(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SlotCount{
		{Slot: "B.op1", Count: 3},
		{Slot: "B.sum", Count: 3},
		{Slot: "A.sum", Count: 2},
		{Slot: "A.op1", Count: 1},
		{Slot: "A.op2", Count: 1},
	}, counts)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	seedPasses(t, s)
	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
}

func TestQueryPasses(t *testing.T) {
	s := createTestStore(t)
	seedPasses(t, s)
	ctx := context.Background()

	tests := []struct {
		name  string
		query queryir.Select
		seqs  []int64
	}{
		{"no filter", queryir.Select{}, []int64{1, 2, 3}},
		{"limit", queryir.Select{Limit: 2}, []int64{1, 2}},
		{"token and slot", queryir.Select{Filter: queryir.AllOf(
			queryir.Equals{Field: queryir.FieldToken, Value: ir.IRString("run-1")},
			queryir.Touches{Signal: queryir.SignalDirtied, Slot: "A.op2"},
		)}, []int64{3}},
		{"set signal", queryir.Select{Filter: queryir.Touches{Signal: queryir.SignalSet, Slot: "B.op1"}}, []int64{2}},
		{"seq", queryir.Select{Filter: queryir.Equals{Field: queryir.FieldSeq, Value: ir.IRInt(2)}}, []int64{2}},
		{"kind", queryir.Select{Filter: queryir.Equals{Field: queryir.FieldKind, Value: ir.IRString("set")}}, []int64{1, 2, 3}},
		{"no match", queryir.Select{Filter: queryir.Equals{Field: queryir.FieldKind, Value: ir.IRString("connect")}}, []int64{}},
		{"empty and", queryir.Select{Filter: queryir.And{}}, []int64{1, 2, 3}},
		{"after", queryir.Select{Filter: queryir.After{Seq: 1}}, []int64{2, 3}},
		{"slot after", queryir.Select{Filter: queryir.AllOf(
			queryir.Touches{Signal: queryir.SignalDirtied, Slot: "B.sum"},
			queryir.After{Seq: 2},
		)}, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passes, err := s.QueryPasses(ctx, tt.query)
			require.NoError(t, err)
			seqs := []int64{}
			for _, p := range passes {
				seqs = append(seqs, p.Seq)
			}
			assert.Equal(t, tt.seqs, seqs)
		})
	}
}

func TestQueryPasses_RejectsInvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QueryPasses(context.Background(), queryir.Select{
		Filter: queryir.Equals{Field: "token; DROP TABLE passes", Value: ir.IRString("x")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")

	_, err = s.QueryPasses(context.Background(), nil)
	assert.Error(t, err)
}
