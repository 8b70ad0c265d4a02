package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainIdentityAttestAndVerify(t *testing.T) {
	chain, err := GenerateChainIdentity()
	require.NoError(t, err)

	agent, err := Generate()
	require.NoError(t, err)

	sig, err := chain.AttestAgent(agent.PublicHex())
	require.NoError(t, err)

	assert.True(t, VerifyChainAttestation(chain.PublicKeyHex(), agent.PublicHex(), sig))
}

func TestVerifyChainAttestationRejectsTamperedAgent(t *testing.T) {
	chain, err := GenerateChainIdentity()
	require.NoError(t, err)

	agent, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)

	sig, err := chain.AttestAgent(agent.PublicHex())
	require.NoError(t, err)

	assert.False(t, VerifyChainAttestation(chain.PublicKeyHex(), other.PublicHex(), sig))
}

func TestVerifyChainAttestationRejectsMalformedInput(t *testing.T) {
	assert.False(t, VerifyChainAttestation("not-hex", "agent", []byte{1, 2, 3}))
	assert.False(t, VerifyChainAttestation("", "", nil))
}
