package tokencache

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name used for OS keyring entries.
	KeyringService = "helix"
	// KeyringAccount is the entry holding the identity cache blob.
	KeyringAccount = "token-cache"

	keyringProbeAccount = "token-cache-probe"
)

// KeyringBackend stores the blob in the OS keyring (Keychain, Secret
// Service or Windows Credential Manager) as base64 text.
type KeyringBackend struct {
	service string
	account string
}

// NewKeyringBackend returns a backend using the default service and account names.
func NewKeyringBackend() *KeyringBackend {
	return &KeyringBackend{service: KeyringService, account: KeyringAccount}
}

// Name returns the backend identifier.
func (b *KeyringBackend) Name() string { return "keyring" }

// Verify round-trips a probe secret. Headless Linux hosts without a
// Secret Service daemon fail here.
func (b *KeyringBackend) Verify() bool {
	const probe = "helix-probe"
	if err := keyring.Set(b.service, keyringProbeAccount, probe); err != nil {
		return false
	}
	got, err := keyring.Get(b.service, keyringProbeAccount)
	_ = keyring.Delete(b.service, keyringProbeAccount)
	return err == nil && got == probe
}

// Read returns the decoded blob.
func (b *KeyringBackend) Read() ([]byte, error) {
	encoded, err := keyring.Get(b.service, b.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keyring entry: %w", err)
	}
	return data, nil
}

// Write stores the blob.
func (b *KeyringBackend) Write(data []byte) error {
	return keyring.Set(b.service, b.account, base64.StdEncoding.EncodeToString(data))
}

// Delete removes the entry.
func (b *KeyringBackend) Delete() error {
	err := keyring.Delete(b.service, b.account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
