//go:build windows

package keychain

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// windowsClient implements client for Windows (Credential Manager)
type windowsClient struct{}

// newPlatformClient creates the platform-specific keychain client
func newPlatformClient() client {
	return &windowsClient{}
}

// Get retrieves a secret from the Windows Credential Manager
func (c *windowsClient) Get(service, key string) (string, error) {
	secret, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrItemNotFound
		}
		return "", err
	}
	return secret, nil
}

// Set stores a secret in the Windows Credential Manager
func (c *windowsClient) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}

// Delete removes a secret from the Windows Credential Manager
func (c *windowsClient) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

// IsAvailable returns true since the Credential Manager is part of Windows
func (c *windowsClient) IsAvailable() bool {
	return true
}

var _ client = (*windowsClient)(nil)
