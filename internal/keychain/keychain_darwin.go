//go:build darwin

package keychain

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// darwinClient implements client for macOS
type darwinClient struct{}

// newPlatformClient creates the platform-specific keychain client
func newPlatformClient() client {
	return &darwinClient{}
}

// Get retrieves a secret from the macOS keychain
func (c *darwinClient) Get(service, key string) (string, error) {
	secret, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrItemNotFound
		}
		return "", err
	}
	return secret, nil
}

// Set stores a secret in the macOS keychain
func (c *darwinClient) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}

// Delete removes a secret from the macOS keychain
func (c *darwinClient) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

// IsAvailable returns true since the keychain is part of macOS
func (c *darwinClient) IsAvailable() bool {
	return true
}

var _ client = (*darwinClient)(nil)
