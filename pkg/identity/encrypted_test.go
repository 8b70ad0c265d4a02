package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveEncryptedLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.enc.json")

	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, SaveEncrypted(path, kp, "correct horse battery staple"))

	loaded, err := LoadEncrypted(path, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, loaded.PublicKey)
	assert.Equal(t, kp.PrivateKey, loaded.PrivateKey)
}

func TestLoadEncryptedWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.enc.json")

	kp, err := Generate()
	require.NoError(t, err)
	require.NoError(t, SaveEncrypted(path, kp, "right passphrase"))

	_, err = LoadEncrypted(path, "wrong passphrase")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestLoadOrGenerateEncryptedCreatesThenReuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.enc.json")

	first, err := LoadOrGenerateEncrypted(path, "pw")
	require.NoError(t, err)

	second, err := LoadOrGenerateEncrypted(path, "pw")
	require.NoError(t, err)

	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestLoadEncryptedAbsent(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadEncrypted(filepath.Join(dir, "missing.json"), "pw")
	assert.ErrorIs(t, err, ErrAbsent)
}
