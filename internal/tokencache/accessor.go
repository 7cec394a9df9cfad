package tokencache

import (
	"context"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"

	"helix/pkg/logging"
)

// emptyCache is the serialized form of a cache with no accounts.
var emptyCache = []byte("{}")

// CacheAccessor connects an MSAL client's in-memory cache to a Store.
// MSAL calls Replace before every cache read and Export after every change.
type CacheAccessor struct {
	store *Store

	mu sync.Mutex
	// seen is set once a persisted blob has been loaded into memory. When the
	// artifact later disappears (logout from another process) the in-memory
	// cache is reset; before that, a missing artifact leaves memory untouched.
	seen bool
}

var _ cache.ExportReplace = (*CacheAccessor)(nil)

// NewCacheAccessor returns an accessor backed by store.
func NewCacheAccessor(store *Store) *CacheAccessor {
	return &CacheAccessor{store: store}
}

// Replace loads the persisted blob into MSAL's in-memory cache.
func (a *CacheAccessor) Replace(ctx context.Context, u cache.Unmarshaler, hints cache.ReplaceHints) error {
	data := a.store.Load()

	a.mu.Lock()
	defer a.mu.Unlock()

	if data == nil {
		if a.seen {
			a.seen = false
			return u.Unmarshal(emptyCache)
		}
		return nil
	}

	if err := u.Unmarshal(data); err != nil {
		logging.WarnErr("TokenStore", &CacheIOError{Op: "unmarshal", Backend: a.store.BackendName(), Err: err},
			"Persisted token cache could not be decoded, discarding it")
		a.store.Clear()
		a.seen = false
		return nil
	}
	a.seen = true
	return nil
}

// Export persists MSAL's in-memory cache when it differs from the stored blob.
func (a *CacheAccessor) Export(ctx context.Context, m cache.Marshaler, hints cache.ExportHints) error {
	data, err := m.Marshal()
	if err != nil {
		logging.WarnErr("TokenStore", err, "Failed to serialize token cache")
		return nil
	}
	if err := a.store.Save(data); err != nil {
		logging.WarnErr("TokenStore", err, "Token cache not persisted, sign-in will not survive a restart")
		return nil
	}

	a.mu.Lock()
	a.seen = true
	a.mu.Unlock()
	return nil
}
