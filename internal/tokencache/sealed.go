package tokencache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// sealedWorkFactor is the scrypt cost. The cache is rewritten after most
// token acquisitions, so the default of 18 is too slow for this use.
const sealedWorkFactor = 15

// SealedFileBackend stores the blob in a file encrypted with an age scrypt
// recipient derived from a passphrase.
type SealedFileBackend struct {
	path       string
	passphrase string
}

// NewSealedFileBackend returns a backend encrypting to path with passphrase.
func NewSealedFileBackend(path, passphrase string) *SealedFileBackend {
	return &SealedFileBackend{path: path, passphrase: passphrase}
}

// Name returns the backend identifier.
func (b *SealedFileBackend) Name() string { return "sealed-file" }

// Path returns the artifact location.
func (b *SealedFileBackend) Path() string { return b.path }

// Verify requires a passphrase and a writable cache directory.
func (b *SealedFileBackend) Verify() bool {
	if b.passphrase == "" {
		return false
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	probe.Close()
	return os.Remove(probe.Name()) == nil
}

// Read decrypts the file contents.
func (b *SealedFileBackend) Read() ([]byte, error) {
	// #nosec G304 -- path comes from configuration, not request input
	ciphertext, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	identity, err := age.NewScryptIdentity(b.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to derive identity: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt cache: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted cache: %w", err)
	}
	return plaintext, nil
}

// Write encrypts data and atomically replaces the file.
func (b *SealedFileBackend) Write(data []byte) error {
	recipient, err := age.NewScryptRecipient(b.passphrase)
	if err != nil {
		return fmt.Errorf("failed to derive recipient: %w", err)
	}
	recipient.SetWorkFactor(sealedWorkFactor)

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to encrypt cache: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize encryption: %w", err)
	}

	return writeFileAtomic(b.path, ciphertext.Bytes())
}

// Delete removes the file.
func (b *SealedFileBackend) Delete() error {
	return removeIfExists(b.path)
}
