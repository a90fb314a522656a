// Package config carries the shared CLI configuration and wires the service
// graph behind lazily built accessors.
package config

import (
	"fmt"

	"github.com/cloudwarden/cloudwarden/internal/awssso"
	"github.com/cloudwarden/cloudwarden/internal/credentials"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/session"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// Config holds flag values parsed by the root command plus the constructed
// services. Accessors build each service on first use so commands only pay
// for what they touch.
type Config struct {
	WorkspacePath   string
	CredentialsPath string
	Debug           bool
	NoColor         bool

	Logger *logging.Logger

	store    workspace.Store
	keyring  keychain.Store
	sink     credentials.Sink
	registry *session.Registry
	manager  *awssso.Manager
}

// Store returns the workspace store, resolving the default path if none was
// given.
func (c *Config) Store() (workspace.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	path := c.WorkspacePath
	if path == "" {
		var err error
		path, err = workspace.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	c.store = workspace.NewFileStore(path)
	return c.store, nil
}

// Keychain returns the platform secret store.
func (c *Config) Keychain() (keychain.Store, error) {
	if c.keyring != nil {
		return c.keyring, nil
	}
	kr := keychain.New()
	if !kr.Available() {
		return nil, fmt.Errorf("no usable secret store on this platform")
	}
	c.keyring = kr
	return c.keyring, nil
}

// Sink returns the credentials file writer.
func (c *Config) Sink() (credentials.Sink, error) {
	if c.sink != nil {
		return c.sink, nil
	}
	path := c.CredentialsPath
	if path == "" {
		var err error
		path, err = credentials.DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
	}
	c.sink = credentials.NewFileSink(path)
	return c.sink, nil
}

// Registry returns the session registry.
func (c *Config) Registry() (*session.Registry, error) {
	if c.registry != nil {
		return c.registry, nil
	}
	store, err := c.Store()
	if err != nil {
		return nil, err
	}
	kr, err := c.Keychain()
	if err != nil {
		return nil, err
	}
	sink, err := c.Sink()
	if err != nil {
		return nil, err
	}
	c.registry = session.NewRegistry(store, kr, sink, c.Logger)
	return c.registry, nil
}

// SSOManager returns the AWS SSO access manager.
func (c *Config) SSOManager() (*awssso.Manager, error) {
	if c.manager != nil {
		return c.manager, nil
	}
	store, err := c.Store()
	if err != nil {
		return nil, err
	}
	kr, err := c.Keychain()
	if err != nil {
		return nil, err
	}
	c.manager = awssso.NewManager(kr, store, c.Logger)
	return c.manager, nil
}

// Syncer returns the SSO directory syncer.
func (c *Config) Syncer() (*awssso.Syncer, error) {
	store, err := c.Store()
	if err != nil {
		return nil, err
	}
	manager, err := c.SSOManager()
	if err != nil {
		return nil, err
	}
	return awssso.NewSyncer(store, manager, c.Logger), nil
}

// CredentialService returns the refresh driver with all three strategies
// attached.
func (c *Config) CredentialService() (*credentials.Service, error) {
	store, err := c.Store()
	if err != nil {
		return nil, err
	}
	kr, err := c.Keychain()
	if err != nil {
		return nil, err
	}
	sink, err := c.Sink()
	if err != nil {
		return nil, err
	}
	manager, err := c.SSOManager()
	if err != nil {
		return nil, err
	}

	aws := credentials.NewAWSStrategy(kr, sink, manager, c.Logger)
	azure := credentials.NewAzureStrategy(kr, c.Logger)
	sso := credentials.NewSSOStrategy(manager, sink, c.Logger)
	return credentials.NewService(store, c.Logger, aws, azure, sso), nil
}
