//go:build !darwin && !linux && !windows

package keychain

import "errors"

// ErrUnsupportedPlatform is returned on platforms without a secret store.
var ErrUnsupportedPlatform = errors.New("keychain not supported on this platform")

// unsupportedClient is a stub for unsupported platforms
type unsupportedClient struct{}

// newPlatformClient creates a stub client for unsupported platforms
func newPlatformClient() client {
	return &unsupportedClient{}
}

// Get returns an error on unsupported platforms
func (c *unsupportedClient) Get(service, key string) (string, error) {
	return "", ErrUnsupportedPlatform
}

// Set returns an error on unsupported platforms
func (c *unsupportedClient) Set(service, key, value string) error {
	return ErrUnsupportedPlatform
}

// Delete returns an error on unsupported platforms
func (c *unsupportedClient) Delete(service, key string) error {
	return ErrUnsupportedPlatform
}

// IsAvailable returns false on unsupported platforms
func (c *unsupportedClient) IsAvailable() bool {
	return false
}

var _ client = (*unsupportedClient)(nil)
