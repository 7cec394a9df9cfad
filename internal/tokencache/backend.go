package tokencache

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Backend when no artifact has been persisted.
var ErrNotFound = errors.New("token cache artifact not found")

// Backend is one place the identity cache blob can live.
//
// Implementations do not need to be safe for concurrent use; the Store
// serializes every call.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// Verify probes whether the backend is usable on this machine.
	Verify() bool
	// Read returns the persisted blob or ErrNotFound.
	Read() ([]byte, error)
	// Write replaces the persisted blob.
	Write(data []byte) error
	// Delete removes the persisted blob. Deleting a missing blob is not an error.
	Delete() error
}

// Locator is implemented by backends that persist to a file.
type Locator interface {
	Path() string
}

// CacheIOError describes a storage fault. The Store logs and absorbs these;
// they never reach token acquisition callers.
type CacheIOError struct {
	Op      string
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *CacheIOError) Error() string {
	return fmt.Sprintf("token cache %s via %s failed: %v", e.Op, e.Backend, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *CacheIOError) Unwrap() error {
	return e.Err
}
