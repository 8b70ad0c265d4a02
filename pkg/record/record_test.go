package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rird-project/rird/pkg/identity"
)

func mustKeyPair(t *testing.T) *identity.KeyPair {
	t.Helper()
	kp, err := identity.Generate()
	require.NoError(t, err)
	return kp
}

func TestCreateProducesVerifiableRecord(t *testing.T) {
	kp := mustKeyPair(t)
	data, err := ToPayloadMap(TaskPostedPayload{
		Description: "summarize top 10 HN posts",
		Category:    "research",
		BudgetXMR:   "0.05",
		TrustTier:   2,
	})
	require.NoError(t, err)

	r, err := Create(kp.PublicHex(), kp, TypeTaskPosted, data, nil)
	require.NoError(t, err)

	assert.True(t, Verify(r))
}

func TestTamperingInvalidatesSignature(t *testing.T) {
	kp := mustKeyPair(t)
	r, err := Create(kp.PublicHex(), kp, TypeAgentOnline, nil, nil)
	require.NoError(t, err)
	require.True(t, Verify(r))

	r.Data["description"] = "altered"
	assert.False(t, Verify(r))
}

func TestTamperingAgentInvalidatesSignature(t *testing.T) {
	kpA := mustKeyPair(t)
	kpB := mustKeyPair(t)

	r, err := Create(kpA.PublicHex(), kpA, TypeAgentOnline, nil, nil)
	require.NoError(t, err)
	require.True(t, Verify(r))

	r.Agent = kpB.PublicHex() // signature still A's
	assert.False(t, Verify(r))
}

func TestIDIndependentOfDataKeyOrder(t *testing.T) {
	kp := mustKeyPair(t)
	now := time.Now().Unix()

	idA := deriveID(Version, kp.PublicHex(), TypeTaskPosted, map[string]interface{}{
		"a": "1", "b": "2", "c": "3",
	}, now, nil)
	idB := deriveID(Version, kp.PublicHex(), TypeTaskPosted, map[string]interface{}{
		"c": "3", "a": "1", "b": "2",
	}, now, nil)

	assert.Equal(t, idA, idB)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	kp := mustKeyPair(t)
	r, err := Create(kp.PublicHex(), kp, TypeAgentOnline, map[string]interface{}{"endpoint": "x"}, []string{"blake3:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"})
	require.NoError(t, err)

	bytes, err := Serialize(r)
	require.NoError(t, err)

	got, err := Deserialize(bytes)
	require.NoError(t, err)

	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Agent, got.Agent)
	assert.Equal(t, r.Type, got.Type)
	assert.Equal(t, r.TS, got.TS)
	assert.Equal(t, r.Refs, got.Refs)
	assert.True(t, Verify(got))
}

func TestClockDriftRejected(t *testing.T) {
	kp := mustKeyPair(t)
	r, err := Create(kp.PublicHex(), kp, TypeAgentOnline, nil, nil)
	require.NoError(t, err)

	farFuture := time.Unix(r.TS, 0).Add(2 * time.Hour)
	assert.False(t, VerifyAt(r, farFuture))

	withinWindow := time.Unix(r.TS, 0).Add(30 * time.Minute)
	assert.True(t, VerifyAt(r, withinWindow))
}

func TestUnknownTypeRejectedAtCreate(t *testing.T) {
	kp := mustKeyPair(t)
	_, err := Create(kp.PublicHex(), kp, Type("task.unknown"), nil, nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}
