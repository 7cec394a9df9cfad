package tokencache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"helix/pkg/logging"
)

// Validator rejects blobs that cannot be what the identity client wrote.
type Validator func(data []byte) error

// JSONValidator accepts only well-formed JSON documents.
func JSONValidator(data []byte) error {
	if !json.Valid(data) {
		return errors.New("cache blob is not valid JSON")
	}
	return nil
}

// Option configures a Store.
type Option func(*Store)

// WithValidator installs a blob validator consulted on Load.
func WithValidator(v Validator) Option {
	return func(s *Store) {
		s.validate = v
	}
}

// Store persists the opaque identity cache blob through the backend chosen
// at Open. The backend never changes for the lifetime of the Store.
//
// Load and Clear never return errors: storage faults are logged and the
// cache is treated as empty. Save reports faults so callers can log them,
// but losing a write only costs a later re-login.
//
// Writers are serialized by an in-process mutex. Concurrent writers in other
// processes are not coordinated; the last rename wins.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	validate Validator

	// digest of the blob last read from or written to the backend
	digest    [sha256.Size]byte
	hasDigest bool
}

// Open selects the first candidate whose Verify succeeds, falling back to
// fallback unconditionally. It fails only when the fallback directory
// cannot be created, since then no location can hold the cache.
func Open(fallback *FileBackend, candidates []Backend, opts ...Option) (*Store, error) {
	var selected Backend
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.Verify() {
			selected = c
			break
		}
		logging.Debug("TokenStore", "Cache backend %s unavailable, trying next", c.Name())
	}

	if selected == nil {
		if err := os.MkdirAll(filepath.Dir(fallback.Path()), dirPerm); err != nil {
			return nil, &CacheIOError{Op: "open", Backend: fallback.Name(), Err: err}
		}
		selected = fallback
	}

	s := &Store{backend: selected}
	for _, opt := range opts {
		opt(s)
	}

	logging.Info("TokenStore", "Using %s token cache backend", selected.Name())
	return s, nil
}

// BackendName reports the selected backend.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Path returns the artifact location for file backends, or "" otherwise.
func (s *Store) Path() string {
	if l, ok := s.backend.(Locator); ok {
		return l.Path()
	}
	return ""
}

// Load returns the persisted blob, or nil when it is absent or unreadable.
// An unreadable artifact is deleted so a later Save starts clean.
func (s *Store) Load() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Read()
	if errors.Is(err, ErrNotFound) {
		s.hasDigest = false
		return nil
	}
	if err == nil && s.validate != nil {
		err = s.validate(data)
	}
	if err != nil {
		logging.WarnErr("TokenStore", &CacheIOError{Op: "load", Backend: s.backend.Name(), Err: err},
			"Discarding unreadable token cache")
		if derr := s.backend.Delete(); derr != nil {
			logging.WarnErr("TokenStore", &CacheIOError{Op: "delete", Backend: s.backend.Name(), Err: derr},
				"Failed to remove unreadable token cache")
		}
		s.hasDigest = false
		return nil
	}

	s.digest = sha256.Sum256(data)
	s.hasDigest = true
	return data
}

// Save persists data unless it is identical to what the backend already holds.
func (s *Store) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256(data)
	if s.hasDigest && sum == s.digest {
		return nil
	}

	if err := s.backend.Write(data); err != nil {
		// SECURITY AUDIT: cache persistence failed
		slog.Warn("SECURITY_AUDIT: token cache write failed",
			"event", "token_cache_write_failed",
			"backend", s.backend.Name(),
			"error", err.Error(),
		)
		s.hasDigest = false
		return &CacheIOError{Op: "save", Backend: s.backend.Name(), Err: err}
	}

	s.digest = sum
	s.hasDigest = true

	// SECURITY AUDIT: cache persisted (contents are never logged)
	slog.Info("SECURITY_AUDIT: token cache written",
		"event", "token_cache_written",
		"backend", s.backend.Name(),
		"bytes", len(data),
	)
	return nil
}

// Clear removes the persisted artifact. Failures are logged and swallowed.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasDigest = false
	if err := s.backend.Delete(); err != nil {
		slog.Warn("SECURITY_AUDIT: token cache deletion failed",
			"event", "token_cache_delete_failed",
			"backend", s.backend.Name(),
			"error", err.Error(),
		)
		return
	}

	// SECURITY AUDIT: cache cleared
	slog.Info("SECURITY_AUDIT: token cache cleared",
		"event", "token_cache_cleared",
		"backend", s.backend.Name(),
	)
}

// String describes the store for status output.
func (s *Store) String() string {
	if p := s.Path(); p != "" {
		return fmt.Sprintf("%s (%s)", s.backend.Name(), p)
	}
	return s.backend.Name()
}
