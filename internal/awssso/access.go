package awssso

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// AccessInfo is the SSO credential bundle. It lives in the secret store as
// four independent entries; either all four are present and consistent or
// the bundle counts as absent.
type AccessInfo struct {
	PortalURL      string
	Region         string
	AccessToken    string
	ExpirationTime time.Time
}

// Manager owns the access-info bundle and the login/logout lifecycle around
// it.
type Manager struct {
	keychain keychain.Store
	store    workspace.Store
	logger   *logging.Logger

	now       func() time.Time
	newOIDC   func(ctx context.Context, region string) (OIDCAPI, error)
	newPortal func(ctx context.Context, region string) (PortalAPI, error)
	openURL   func(string) error
	sleep     func(time.Duration)
}

// NewManager creates a Manager over the given collaborators.
func NewManager(kc keychain.Store, store workspace.Store, logger *logging.Logger) *Manager {
	return &Manager{
		keychain:  kc,
		store:     store,
		logger:    logger,
		now:       time.Now,
		newOIDC:   NewOIDCClient,
		newPortal: NewPortalClient,
		openURL:   nil, // DeviceFlow default (system browser)
		sleep:     nil, // DeviceFlow default
	}
}

// Configure stores the portal URL and region so later logins don't require
// re-entry. These two secrets survive logout.
func (m *Manager) Configure(portalURL, region string) error {
	if err := m.keychain.Set(keychain.KeyAWSSSOPortalURL, portalURL); err != nil {
		return err
	}
	return m.keychain.Set(keychain.KeyAWSSSORegion, region)
}

// IsActive reports whether a stored, still-valid access token exists. Any
// missing or unparseable expiration counts as inactive: the check fails
// closed and the caller must log in again.
func (m *Manager) IsActive() bool {
	raw, err := m.keychain.Get(keychain.KeyAWSSSOExpirationTime)
	if err != nil {
		return false
	}
	expiration, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		m.logger.Debug("unparseable SSO expiration %q, forcing re-login", raw)
		return false
	}
	return expiration.After(m.now())
}

// Login runs the device flow using the stored portal URL and region, then
// persists the resulting bundle. If persistence fails the obtained token is
// still returned alongside the error; it remains valid in memory.
func (m *Manager) Login(ctx context.Context) (*AccessInfo, error) {
	var portalURL, region string
	var g errgroup.Group
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSOPortalURL)
		portalURL = v
		return err
	})
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSORegion)
		region = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("SSO login: %w", err)
	}

	api, err := m.newOIDC(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("SSO login: %w", err)
	}
	flow := NewDeviceFlow(api, region, m.logger)
	if m.openURL != nil {
		flow.openURL = m.openURL
	}
	if m.sleep != nil {
		flow.sleep = m.sleep
	}
	flow.now = m.now

	token, err := flow.Login(ctx, portalURL)
	if err != nil {
		return nil, err
	}

	info := &AccessInfo{
		PortalURL:      portalURL,
		Region:         region,
		AccessToken:    token.AccessToken,
		ExpirationTime: token.ExpirationTime,
	}
	if err := m.SaveAccessInfo(info); err != nil {
		return info, err
	}
	return info, nil
}

// SaveAccessInfo persists the four bundle entries. Writes are independent
// and issued concurrently.
func (m *Manager) SaveAccessInfo(info *AccessInfo) error {
	var g errgroup.Group
	g.Go(func() error { return m.keychain.Set(keychain.KeyAWSSSOPortalURL, info.PortalURL) })
	g.Go(func() error { return m.keychain.Set(keychain.KeyAWSSSORegion, info.Region) })
	g.Go(func() error { return m.keychain.Set(keychain.KeyAWSSSOAccessToken, info.AccessToken) })
	g.Go(func() error {
		return m.keychain.Set(keychain.KeyAWSSSOExpirationTime, info.ExpirationTime.Format(time.RFC3339))
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("save SSO access info: %w", err)
	}
	return nil
}

// CachedOrLogin reconstructs the bundle from the secret store when a valid
// token exists, reading the entries in parallel and waiting for all of them;
// otherwise it performs a full login.
func (m *Manager) CachedOrLogin(ctx context.Context) (*AccessInfo, error) {
	if !m.IsActive() {
		return m.Login(ctx)
	}

	info := &AccessInfo{}
	var g errgroup.Group
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSOAccessToken)
		info.AccessToken = v
		return err
	})
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSORegion)
		info.Region = v
		return err
	})
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSOPortalURL)
		info.PortalURL = v
		return err
	})
	g.Go(func() error {
		raw, err := m.keychain.Get(keychain.KeyAWSSSOExpirationTime)
		if err != nil {
			return err
		}
		info.ExpirationTime, err = time.Parse(time.RFC3339, raw)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read SSO access info: %w", err)
	}
	return info, nil
}

// Logout invalidates the token on the portal side, deletes the access-token
// and expiration secrets and drops the SSO sessions from the workspace. The
// portal URL and region secrets are retained for the next login. On failure
// at any step the previously-read secrets and session list are restored
// best-effort before the original error is surfaced.
func (m *Manager) Logout(ctx context.Context) error {
	var accessToken, expirationTime, region string
	var g errgroup.Group
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSOAccessToken)
		accessToken = v
		return err
	})
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSOExpirationTime)
		expirationTime = v
		return err
	})
	g.Go(func() error {
		v, err := m.keychain.Get(keychain.KeyAWSSSORegion)
		region = v
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("SSO logout: %w", err)
	}

	ws, err := m.store.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("SSO logout: %w", err)
	}
	var oldSessions []workspace.Session
	if ws != nil {
		oldSessions = append([]workspace.Session(nil), ws.Sessions...)
	}

	rollback := func(cause error) error {
		rolled := true
		if accessToken != "" {
			if err := m.keychain.Set(keychain.KeyAWSSSOAccessToken, accessToken); err != nil {
				rolled = false
			}
		}
		if expirationTime != "" {
			if err := m.keychain.Set(keychain.KeyAWSSSOExpirationTime, expirationTime); err != nil {
				rolled = false
			}
		}
		if ws != nil {
			ws.Sessions = oldSessions
			if err := m.store.Save(ws); err != nil {
				rolled = false
			}
		}
		return &cwerrors.PartialFailureError{Op: "SSO logout", Rolled: rolled, Err: cause}
	}

	api, err := m.newPortal(ctx, region)
	if err != nil {
		return rollback(err)
	}
	if err := NewPortal(api, m.logger).Logout(ctx, accessToken); err != nil {
		return rollback(err)
	}

	if err := m.keychain.Delete(keychain.KeyAWSSSOAccessToken); err != nil {
		return rollback(err)
	}
	if err := m.keychain.Delete(keychain.KeyAWSSSOExpirationTime); err != nil {
		return rollback(err)
	}

	if ws != nil {
		kept := ws.Sessions[:0:0]
		for _, sess := range ws.Sessions {
			if sess.Account.Type != workspace.AccountTypeAWSSSO {
				kept = append(kept, sess)
			}
		}
		ws.Sessions = kept
		if err := m.store.Save(ws); err != nil {
			return rollback(err)
		}
	}

	m.logger.Info("logged out of AWS SSO")
	return nil
}
