package awssso

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

func approvingOIDC() *fakeOIDC {
	return &fakeOIDC{
		registerClientFunc: func(ctx context.Context, params *ssooidc.RegisterClientInput) (*ssooidc.RegisterClientOutput, error) {
			return &ssooidc.RegisterClientOutput{
				ClientId:     aws.String("cid"),
				ClientSecret: aws.String("cs"),
			}, nil
		},
		startDeviceAuthorizationFunc: func(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput) (*ssooidc.StartDeviceAuthorizationOutput, error) {
			return &ssooidc.StartDeviceAuthorizationOutput{
				DeviceCode:              aws.String("dev-code"),
				VerificationUriComplete: aws.String("https://verify.example"),
			}, nil
		},
		createTokenFunc: func(ctx context.Context, params *ssooidc.CreateTokenInput) (*ssooidc.CreateTokenOutput, error) {
			return &ssooidc.CreateTokenOutput{
				AccessToken: aws.String("fresh-token"),
				ExpiresIn:   3600,
			}, nil
		},
	}
}

func newTestManager(kc *memKeychain, store *memStore, api *fakeOIDC) *Manager {
	m := NewManager(kc, store, testLogger())
	m.openURL = func(string) error { return nil }
	m.sleep = func(time.Duration) {}
	if api != nil {
		m.newOIDC = func(ctx context.Context, region string) (OIDCAPI, error) {
			return api, nil
		}
	}
	return m
}

func TestIsActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		expiration string
		want       bool
	}{
		{"future expiration", now.Add(time.Hour).Format(time.RFC3339), true},
		{"past expiration", now.Add(-time.Hour).Format(time.RFC3339), false},
		{"unparseable expiration", "not-a-timestamp", false},
		{"missing expiration", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			kc := newMemKeychain()
			if tc.expiration != "" {
				kc.secrets[keychain.KeyAWSSSOExpirationTime] = tc.expiration
			}
			m := newTestManager(kc, &memStore{}, nil)
			m.now = func() time.Time { return now }

			assert.Equal(t, tc.want, m.IsActive())
		})
	}
}

func TestConfigureStoresPortalAndRegion(t *testing.T) {
	t.Parallel()

	kc := newMemKeychain()
	m := newTestManager(kc, &memStore{}, nil)

	require.NoError(t, m.Configure("https://portal", "eu-central-1"))
	assert.Equal(t, "https://portal", kc.secrets[keychain.KeyAWSSSOPortalURL])
	assert.Equal(t, "eu-central-1", kc.secrets[keychain.KeyAWSSSORegion])
}

func TestLoginPersistsBundle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kc := newMemKeychain()
	kc.secrets[keychain.KeyAWSSSOPortalURL] = "https://portal"
	kc.secrets[keychain.KeyAWSSSORegion] = "us-east-1"
	m := newTestManager(kc, &memStore{}, approvingOIDC())
	m.now = func() time.Time { return now }

	info, err := m.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", info.AccessToken)
	assert.Equal(t, now.Add(time.Hour), info.ExpirationTime)

	assert.Equal(t, "fresh-token", kc.secrets[keychain.KeyAWSSSOAccessToken])
	assert.Equal(t, now.Add(time.Hour).Format(time.RFC3339), kc.secrets[keychain.KeyAWSSSOExpirationTime])
}

func TestLoginWithoutConfiguration(t *testing.T) {
	t.Parallel()

	m := newTestManager(newMemKeychain(), &memStore{}, approvingOIDC())

	_, err := m.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, keychain.ErrItemNotFound)
}

func TestLoginSaveFailureStillReturnsToken(t *testing.T) {
	t.Parallel()

	kc := newMemKeychain()
	kc.secrets[keychain.KeyAWSSSOPortalURL] = "https://portal"
	kc.secrets[keychain.KeyAWSSSORegion] = "us-east-1"
	kc.setErr[keychain.KeyAWSSSOAccessToken] = errors.New("keyring locked")
	m := newTestManager(kc, &memStore{}, approvingOIDC())

	info, err := m.Login(context.Background())
	require.Error(t, err)
	require.NotNil(t, info, "token stays usable in memory when persistence fails")
	assert.Equal(t, "fresh-token", info.AccessToken)
}

func TestCachedOrLoginUsesCachedBundle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kc := newMemKeychain()
	activeBundle(kc, now)
	m := newTestManager(kc, &memStore{}, nil)
	m.now = func() time.Time { return now }
	m.newOIDC = func(ctx context.Context, region string) (OIDCAPI, error) {
		t.Fatal("must not log in while the cached token is valid")
		return nil, nil
	}

	info, err := m.CachedOrLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "portal-token", info.AccessToken)
	assert.Equal(t, "us-east-1", info.Region)
	assert.Equal(t, "https://example.awsapps.com/start", info.PortalURL)
	assert.Equal(t, now.Add(time.Hour).UTC(), info.ExpirationTime.UTC())
}

func TestCachedOrLoginFallsBackToLogin(t *testing.T) {
	t.Parallel()

	kc := newMemKeychain()
	kc.secrets[keychain.KeyAWSSSOPortalURL] = "https://portal"
	kc.secrets[keychain.KeyAWSSSORegion] = "us-east-1"
	m := newTestManager(kc, &memStore{}, approvingOIDC())

	info, err := m.CachedOrLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", info.AccessToken)
}

func TestLogoutDeletesTokenAndDropsSSOSessions(t *testing.T) {
	t.Parallel()

	now := time.Now()
	kc := newMemKeychain()
	activeBundle(kc, now)

	ws := workspace.New()
	ws.Sessions = []workspace.Session{
		{ID: "sso1", Account: workspace.Account{Type: workspace.AccountTypeAWSSSO, AccountName: "synced"}},
		{ID: "aws1", Account: workspace.Account{Type: workspace.AccountTypeAWS, AccountName: "manual"}},
	}
	store := &memStore{ws: ws}

	portal := &fakePortal{}
	m := newTestManager(kc, store, nil)
	m.newPortal = func(ctx context.Context, region string) (PortalAPI, error) {
		return portal, nil
	}

	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, 1, portal.logoutCalls)
	_, hasToken := kc.secrets[keychain.KeyAWSSSOAccessToken]
	_, hasExpiration := kc.secrets[keychain.KeyAWSSSOExpirationTime]
	assert.False(t, hasToken)
	assert.False(t, hasExpiration)

	// Portal URL and region survive for the next login.
	assert.Equal(t, "https://example.awsapps.com/start", kc.secrets[keychain.KeyAWSSSOPortalURL])
	assert.Equal(t, "us-east-1", kc.secrets[keychain.KeyAWSSSORegion])

	require.Len(t, store.ws.Sessions, 1)
	assert.Equal(t, "aws1", store.ws.Sessions[0].ID)
}

func TestLogoutRollsBackOnPortalFailure(t *testing.T) {
	t.Parallel()

	now := time.Now()
	kc := newMemKeychain()
	activeBundle(kc, now)

	ws := workspace.New()
	ws.Sessions = []workspace.Session{
		{ID: "sso1", Account: workspace.Account{Type: workspace.AccountTypeAWSSSO}},
	}
	store := &memStore{ws: ws}

	portal := &fakePortal{
		logoutFunc: func(ctx context.Context, params *sso.LogoutInput) (*sso.LogoutOutput, error) {
			return nil, errors.New("portal unreachable")
		},
	}
	m := newTestManager(kc, store, nil)
	m.newPortal = func(ctx context.Context, region string) (PortalAPI, error) {
		return portal, nil
	}

	err := m.Logout(context.Background())
	require.Error(t, err)

	var partial *cwerrors.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.True(t, partial.Rolled)

	assert.Equal(t, "portal-token", kc.secrets[keychain.KeyAWSSSOAccessToken])
	require.Len(t, store.ws.Sessions, 1)
	assert.Equal(t, "sso1", store.ws.Sessions[0].ID)
}
