//go:build linux

package keychain

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"
)

// linuxClient implements client for Linux (Secret Service)
type linuxClient struct{}

// newPlatformClient creates the platform-specific keychain client
func newPlatformClient() client {
	return &linuxClient{}
}

// Get retrieves a secret from Linux Secret Service
func (c *linuxClient) Get(service, key string) (string, error) {
	secret, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrItemNotFound
		}
		return "", err
	}
	return secret, nil
}

// Set stores a secret in Linux Secret Service
func (c *linuxClient) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}

// Delete removes a secret from Linux Secret Service
func (c *linuxClient) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

// IsAvailable returns true if a Secret Service implementation is reachable.
// A session D-Bus plus a display is the practical requirement for
// gnome-keyring or KWallet.
func (c *linuxClient) IsAvailable() bool {
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return false
	}
	return true
}

var _ client = (*linuxClient)(nil)
