package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassIDDeterminism(t *testing.T) {
	id1, err := PassID("pass-1", PassKindSet, "n1.op1", "", 1)
	require.NoError(t, err)
	id2, err := PassID("pass-1", PassKindSet, "n1.op1", "", 1)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "PassID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestPassIDChangesWithInput(t *testing.T) {
	base := MustPassID("pass-1", PassKindConnect, "n2.op1", "n1.sum", 1)

	assert.NotEqual(t, base, MustPassID("pass-2", PassKindConnect, "n2.op1", "n1.sum", 1), "token")
	assert.NotEqual(t, base, MustPassID("pass-1", PassKindDisconnect, "n2.op1", "n1.sum", 1), "kind")
	assert.NotEqual(t, base, MustPassID("pass-1", PassKindConnect, "n2.op2", "n1.sum", 1), "trigger")
	assert.NotEqual(t, base, MustPassID("pass-1", PassKindConnect, "n2.op1", "", 1), "source")
	assert.NotEqual(t, base, MustPassID("pass-1", PassKindConnect, "n2.op1", "n1.sum", 2), "seq")
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainPass, data), hashWithDomain(DomainNodeType, data))
}

func TestNodeTypesHashOrderSensitive(t *testing.T) {
	a := NodeTypeSpec{Name: "A", Slots: []SlotSpec{{Name: "in", Direction: DirectionIn, Default: IRInt(0)}}}
	b := NodeTypeSpec{Name: "B", Slots: []SlotSpec{{Name: "out", Direction: DirectionOut}}}

	h1, err := NodeTypesHash([]NodeTypeSpec{a, b})
	require.NoError(t, err)
	h2, err := NodeTypesHash([]NodeTypeSpec{a, b})
	require.NoError(t, err)
	h3, err := NodeTypesHash([]NodeTypeSpec{b, a})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestPassRecordAborted(t *testing.T) {
	assert.False(t, PassRecord{}.Aborted())
	assert.True(t, PassRecord{ErrorCode: "COMPOUND_RESULT"}.Aborted())
}
