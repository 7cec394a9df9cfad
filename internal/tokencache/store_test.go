package tokencache

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend is an in-memory Backend that counts writes.
type memoryBackend struct {
	mu       sync.Mutex
	name     string
	ok       bool
	data     []byte
	writes   int
	readErr  error
	writeErr error
}

func (m *memoryBackend) Name() string { return m.name }
func (m *memoryBackend) Verify() bool { return m.ok }

func (m *memoryBackend) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *memoryBackend) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryBackend) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.readErr = nil
	return nil
}

func newFileStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Helix", "helix-token-cache.bin")
	store, err := Open(NewFileBackend(path), nil, opts...)
	require.NoError(t, err)
	return store, path
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := newFileStore(t)

	blob := []byte{0x00, 0x01, 0xfe, 0xff, '{', '}', '\n'}
	require.NoError(t, store.Save(blob))

	assert.Equal(t, blob, store.Load())
}

func TestStore_LoadMissingReturnsNil(t *testing.T) {
	store, _ := newFileStore(t)
	assert.Nil(t, store.Load())
}

func TestStore_CorruptArtifactIsDiscarded(t *testing.T) {
	store, path := newFileStore(t, WithValidator(JSONValidator))

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("\x00garbage{"), 0600))

	assert.Nil(t, store.Load())

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "corrupt artifact should be removed")

	blob := []byte(`{"AccessToken":{}}`)
	require.NoError(t, store.Save(blob))
	assert.Equal(t, blob, store.Load())
}

func TestStore_ReadFailureDeletesArtifact(t *testing.T) {
	backend := &memoryBackend{name: "memory", ok: true, data: []byte("x"), readErr: errors.New("locked")}
	store, err := Open(NewFileBackend(filepath.Join(t.TempDir(), "c.bin")), []Backend{backend})
	require.NoError(t, err)

	assert.Nil(t, store.Load())
	assert.Nil(t, backend.data)
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions not applicable on Windows")
	}
	store, path := newFileStore(t)
	require.NoError(t, store.Save([]byte("{}")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestStore_SkipsRedundantWrites(t *testing.T) {
	backend := &memoryBackend{name: "memory", ok: true}
	store, err := Open(NewFileBackend(filepath.Join(t.TempDir(), "c.bin")), []Backend{backend})
	require.NoError(t, err)

	require.NoError(t, store.Save([]byte("a")))
	require.NoError(t, store.Save([]byte("a")))
	assert.Equal(t, 1, backend.writes)

	require.NoError(t, store.Save([]byte("b")))
	assert.Equal(t, 2, backend.writes)

	// After a clear the same content must be written again.
	store.Clear()
	require.NoError(t, store.Save([]byte("b")))
	assert.Equal(t, 3, backend.writes)
}

func TestStore_SaveReportsCacheIOError(t *testing.T) {
	backend := &memoryBackend{name: "memory", ok: true, writeErr: errors.New("quota exceeded")}
	store, err := Open(NewFileBackend(filepath.Join(t.TempDir(), "c.bin")), []Backend{backend})
	require.NoError(t, err)

	err = store.Save([]byte("a"))
	var ioErr *CacheIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "save", ioErr.Op)
	assert.Equal(t, "memory", ioErr.Backend)
}

func TestStore_ClearMissingIsSilent(t *testing.T) {
	store, _ := newFileStore(t)
	store.Clear()
	store.Clear()
	assert.Nil(t, store.Load())
}

func TestOpen_SelectsFirstVerifiedCandidate(t *testing.T) {
	fallback := NewFileBackend(filepath.Join(t.TempDir(), "c.bin"))
	broken := &memoryBackend{name: "broken", ok: false}
	working := &memoryBackend{name: "working", ok: true}
	later := &memoryBackend{name: "later", ok: true}

	store, err := Open(fallback, []Backend{nil, broken, working, later})
	require.NoError(t, err)
	assert.Equal(t, "working", store.BackendName())
	assert.Empty(t, store.Path())
}

func TestOpen_FallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Helix", "c.bin")
	store, err := Open(NewFileBackend(path), []Backend{&memoryBackend{name: "keyring", ok: false}})
	require.NoError(t, err)
	assert.Equal(t, "file", store.BackendName())
	assert.Equal(t, path, store.Path())
	assert.Contains(t, store.String(), path)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	store, _ := newFileStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Save([]byte{byte('a' + i)})
		}(i)
	}
	wg.Wait()

	data := store.Load()
	require.Len(t, data, 1)
	assert.GreaterOrEqual(t, data[0], byte('a'))
}
