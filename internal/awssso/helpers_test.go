package awssso

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

// fakeOIDC implements OIDCAPI with per-method overrides.
type fakeOIDC struct {
	registerClientFunc           func(ctx context.Context, params *ssooidc.RegisterClientInput) (*ssooidc.RegisterClientOutput, error)
	startDeviceAuthorizationFunc func(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput) (*ssooidc.StartDeviceAuthorizationOutput, error)
	createTokenFunc              func(ctx context.Context, params *ssooidc.CreateTokenInput) (*ssooidc.CreateTokenOutput, error)

	registerCalls  int
	authorizeCalls int
	tokenCalls     int
}

func (f *fakeOIDC) RegisterClient(ctx context.Context, params *ssooidc.RegisterClientInput, optFns ...func(*ssooidc.Options)) (*ssooidc.RegisterClientOutput, error) {
	f.registerCalls++
	return f.registerClientFunc(ctx, params)
}

func (f *fakeOIDC) StartDeviceAuthorization(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput, optFns ...func(*ssooidc.Options)) (*ssooidc.StartDeviceAuthorizationOutput, error) {
	f.authorizeCalls++
	return f.startDeviceAuthorizationFunc(ctx, params)
}

func (f *fakeOIDC) CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error) {
	f.tokenCalls++
	return f.createTokenFunc(ctx, params)
}

// fakePortal implements PortalAPI with per-method overrides.
type fakePortal struct {
	listAccountsFunc       func(ctx context.Context, params *sso.ListAccountsInput) (*sso.ListAccountsOutput, error)
	listAccountRolesFunc   func(ctx context.Context, params *sso.ListAccountRolesInput) (*sso.ListAccountRolesOutput, error)
	getRoleCredentialsFunc func(ctx context.Context, params *sso.GetRoleCredentialsInput) (*sso.GetRoleCredentialsOutput, error)
	logoutFunc             func(ctx context.Context, params *sso.LogoutInput) (*sso.LogoutOutput, error)

	listAccountsCalls int
	logoutCalls       int
}

func (f *fakePortal) ListAccounts(ctx context.Context, params *sso.ListAccountsInput, optFns ...func(*sso.Options)) (*sso.ListAccountsOutput, error) {
	f.listAccountsCalls++
	return f.listAccountsFunc(ctx, params)
}

func (f *fakePortal) ListAccountRoles(ctx context.Context, params *sso.ListAccountRolesInput, optFns ...func(*sso.Options)) (*sso.ListAccountRolesOutput, error) {
	return f.listAccountRolesFunc(ctx, params)
}

func (f *fakePortal) GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error) {
	return f.getRoleCredentialsFunc(ctx, params)
}

func (f *fakePortal) Logout(ctx context.Context, params *sso.LogoutInput, optFns ...func(*sso.Options)) (*sso.LogoutOutput, error) {
	f.logoutCalls++
	if f.logoutFunc != nil {
		return f.logoutFunc(ctx, params)
	}
	return &sso.LogoutOutput{}, nil
}

// memKeychain is a map-backed keychain.Store with injectable write failures.
// The manager reads and writes bundle entries concurrently, so access is
// locked.
type memKeychain struct {
	mu      sync.Mutex
	secrets map[string]string
	setErr  map[string]error
}

func newMemKeychain() *memKeychain {
	return &memKeychain{secrets: map[string]string{}, setErr: map[string]error{}}
}

func (m *memKeychain) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.secrets[key]
	if !ok {
		return "", &cwerrors.SecretStoreError{Op: "get", Key: key, Err: keychain.ErrItemNotFound}
	}
	return v, nil
}

func (m *memKeychain) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setErr[key]; err != nil {
		return err
	}
	m.secrets[key] = value
	return nil
}

func (m *memKeychain) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, key)
	return nil
}

// memStore is an in-memory workspace.Store. saveErrAfter fails the Nth save
// (1-based) and later ones when set.
type memStore struct {
	ws           *workspace.Workspace
	saveCalls    int
	resetCalls   int
	saveErrAfter int
	saveErr      error
}

func (m *memStore) Load() (*workspace.Workspace, error) {
	if m.ws == nil {
		return nil, os.ErrNotExist
	}
	return m.ws.Clone(), nil
}

func (m *memStore) Save(ws *workspace.Workspace) error {
	m.saveCalls++
	if m.saveErrAfter > 0 && m.saveCalls >= m.saveErrAfter {
		return m.saveErr
	}
	m.ws = ws.Clone()
	return nil
}

func (m *memStore) Reset() error {
	m.resetCalls++
	m.ws = nil
	return nil
}

func activeBundle(kc *memKeychain, now time.Time) {
	kc.secrets[keychain.KeyAWSSSOPortalURL] = "https://example.awsapps.com/start"
	kc.secrets[keychain.KeyAWSSSORegion] = "us-east-1"
	kc.secrets[keychain.KeyAWSSSOAccessToken] = "portal-token"
	kc.secrets[keychain.KeyAWSSSOExpirationTime] = now.Add(time.Hour).Format(time.RFC3339)
}
