package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSignVerify(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	msg := []byte("blake3:deadbeef")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.True(t, Verify(sig, msg, kp.PublicHex()))
	assert.False(t, Verify(sig, []byte("tampered"), kp.PublicHex()))
}

func TestVerifyNeverPanicsOnMalformedInput(t *testing.T) {
	assert.False(t, Verify(nil, nil, "not-hex"))
	assert.False(t, Verify([]byte{1, 2, 3}, []byte("msg"), ""))
	assert.False(t, Verify([]byte{1, 2, 3}, []byte("msg"), "zz"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")

	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, Save(path, kp))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, loaded.PublicKey)
	assert.Equal(t, kp.PrivateKey, loaded.PrivateKey)
}

func TestLoadAbsent(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrAbsent)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadOrGenerateCreatesThenReuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")

	first, err := LoadOrGenerate(path)
	require.NoError(t, err)

	second, err := LoadOrGenerate(path)
	require.NoError(t, err)

	assert.Equal(t, first.PublicKey, second.PublicKey)
}
