// Package tokencache persists the identity client's serialized token cache.
//
// A Store owns one opaque blob. Where the blob lives is decided once, when the
// Store is opened, by walking an ordered list of Backend candidates and taking
// the first whose Verify probe succeeds:
//
//  1. KeyringBackend: the OS keyring (Keychain, Secret Service, Credential Manager)
//  2. SealedFileBackend: an age-encrypted file, offered only when a passphrase is configured
//  3. FileBackend: a plain file with owner-only permissions, always accepted
//
// Storage faults never propagate to token acquisition. A blob that cannot be
// read or decoded is deleted and treated as an empty cache; a failed write is
// logged. Losing the cache only costs the user another sign-in.
//
// CacheAccessor adapts a Store to MSAL's cache.ExportReplace hooks, and
// Watcher notifies the process when another helix process rewrites a
// file-backed cache.
package tokencache
