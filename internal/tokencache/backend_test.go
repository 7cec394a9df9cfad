package tokencache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestSealedFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.age")
	b := NewSealedFileBackend(path, "correct horse battery staple")
	require.True(t, b.Verify())

	blob := []byte(`{"Account":{"home":"u1"}}`)
	require.NoError(t, b.Write(blob))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("Account")), "blob must not be stored in plaintext")

	got, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestSealedFileBackend_WrongPassphraseIsDiscardedByStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.age")
	require.NoError(t, NewSealedFileBackend(path, "first").Write([]byte("{}")))

	second := NewSealedFileBackend(path, "second")
	store, err := Open(NewFileBackend(path+".plain"), []Backend{second})
	require.NoError(t, err)
	require.Equal(t, "sealed-file", store.BackendName())

	assert.Nil(t, store.Load())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSealedFileBackend_VerifyNeedsPassphrase(t *testing.T) {
	b := NewSealedFileBackend(filepath.Join(t.TempDir(), "cache.age"), "")
	assert.False(t, b.Verify())

	_, err := b.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringBackend(t *testing.T) {
	keyring.MockInit()

	b := NewKeyringBackend()
	require.True(t, b.Verify())

	_, err := b.Read()
	assert.ErrorIs(t, err, ErrNotFound)

	blob := []byte{0x00, 0x10, 0x20, 0xff}
	require.NoError(t, b.Write(blob))

	got, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	require.NoError(t, b.Delete())
	require.NoError(t, b.Delete())
	_, err = b.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringBackend_UndecodableEntryIsDiscarded(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set(KeyringService, KeyringAccount, "%%% not base64 %%%"))

	store, err := Open(NewFileBackend(filepath.Join(t.TempDir(), "c.bin")), []Backend{NewKeyringBackend()})
	require.NoError(t, err)
	require.Equal(t, "keyring", store.BackendName())

	assert.Nil(t, store.Load())
	_, err = keyring.Get(KeyringService, KeyringAccount)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestFileBackend_DeleteMissing(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "missing.bin"))
	assert.NoError(t, b.Delete())
	_, err := b.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}
