// Package keychain wraps the OS secret store (macOS Keychain, Linux Secret
// Service, Windows Credential Manager) behind the Store interface used by the
// session and credential layers. Secrets are namespaced under a single
// service name per installation.
package keychain

import (
	"errors"
	"strings"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
)

// Service is the namespace under which every secret is stored.
const Service = "cloudwarden"

// Store is the secret store collaborator contract: opaque per-key secret
// get/set/delete. Implementations must return ErrItemNotFound (possibly
// wrapped) for missing keys so callers can fail closed.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ErrItemNotFound is returned when the requested secret does not exist.
var ErrItemNotFound = errors.New("keychain item not found")

// client is the platform-specific backend. One implementation per GOOS.
type client interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
	IsAvailable() bool
}

// Keyring is the OS-backed Store.
type Keyring struct {
	service string
	client  client
}

// New creates a Store backed by the platform keychain.
func New() *Keyring {
	return &Keyring{
		service: Service,
		client:  newPlatformClient(),
	}
}

// NewWithClient creates a Keyring with a custom backend.
// This is primarily for testing, allowing the platform client to be faked.
func NewWithClient(service string, c client) *Keyring {
	return &Keyring{service: service, client: c}
}

// Get retrieves a secret by key.
func (k *Keyring) Get(key string) (string, error) {
	value, err := k.client.Get(k.service, key)
	if err != nil {
		if isNotFound(err) {
			return "", &cwerrors.SecretStoreError{Op: "get", Key: key, Err: ErrItemNotFound}
		}
		return "", &cwerrors.SecretStoreError{Op: "get", Key: key, Err: err}
	}
	return value, nil
}

// Set stores a secret under key, replacing any existing value.
func (k *Keyring) Set(key, value string) error {
	if err := k.client.Set(k.service, key, value); err != nil {
		return &cwerrors.SecretStoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes a secret. Deleting a missing key is not an error.
func (k *Keyring) Delete(key string) error {
	if err := k.client.Delete(k.service, key); err != nil && !isNotFound(err) {
		return &cwerrors.SecretStoreError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Available reports whether a secret store backend is usable on this host.
func (k *Keyring) Available() bool {
	return k.client.IsAvailable()
}

func isNotFound(err error) bool {
	if errors.Is(err, ErrItemNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "itemNotFound")
}
