package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
	"github.com/cloudwarden/cloudwarden/tests/fakes"
)

func azureTestSession(name string) workspace.Session {
	return workspace.Session{
		ID:     "az-" + name,
		Active: true,
		Account: workspace.Account{
			Type:           workspace.AccountTypeAzure,
			AccountName:    name,
			SubscriptionID: "sub-1",
			TenantID:       "tenant-1",
		},
	}
}

func newTestAzureStrategy(cred *fakes.FakeTokenCredential) (*AzureStrategy, *fakes.FakeKeychain) {
	kc := fakes.NewFakeKeychain()
	s := NewAzureStrategy(kc, testLogger())
	s.now = func() time.Time { return testNow }
	s.newCredential = func(tenantID string) (azcore.TokenCredential, error) {
		if cred == nil {
			return nil, errors.New("credential factory must not be called")
		}
		return cred, nil
	}
	return s, kc
}

func TestAzureRefreshStoresToken(t *testing.T) {
	t.Parallel()

	cred := fakes.NewFakeTokenCredential("mgmt-token")
	cred.ExpiresOn = testNow.Add(time.Hour)
	s, kc := newTestAzureStrategy(cred)

	ws := workspace.New()
	sess := azureTestSession("contoso")
	ws.Sessions = []workspace.Session{sess}

	require.NoError(t, s.RefreshSession(context.Background(), ws, sess))

	assert.Equal(t, "mgmt-token", kc.Secrets[keychain.AzureAccessTokenKey("contoso")])
	assert.Equal(t, testNow.Add(time.Hour).Format(time.RFC3339),
		kc.Secrets[keychain.AzureAccessTokenExpirationKey("contoso")])

	require.Len(t, cred.Scopes, 1)
	assert.Equal(t, []string{"https://management.azure.com/.default"}, cred.Scopes[0])
}

func TestAzureRefreshReusesValidToken(t *testing.T) {
	t.Parallel()

	s, kc := newTestAzureStrategy(nil)
	kc.Secrets[keychain.AzureAccessTokenKey("contoso")] = "cached"
	kc.Secrets[keychain.AzureAccessTokenExpirationKey("contoso")] = testNow.Add(time.Hour).Format(time.RFC3339)

	ws := workspace.New()
	sess := azureTestSession("contoso")
	require.NoError(t, s.RefreshSession(context.Background(), ws, sess))
	assert.Equal(t, "cached", kc.Secrets[keychain.AzureAccessTokenKey("contoso")])
}

func TestAzureRefreshExpiredTokenReacquires(t *testing.T) {
	t.Parallel()

	cred := fakes.NewFakeTokenCredential("new-token")
	s, kc := newTestAzureStrategy(cred)
	kc.Secrets[keychain.AzureAccessTokenKey("contoso")] = "old"
	kc.Secrets[keychain.AzureAccessTokenExpirationKey("contoso")] = testNow.Add(-time.Minute).Format(time.RFC3339)

	ws := workspace.New()
	require.NoError(t, s.RefreshSession(context.Background(), ws, azureTestSession("contoso")))
	assert.Equal(t, 1, cred.GetTokenCalls)
	assert.Equal(t, "new-token", kc.Secrets[keychain.AzureAccessTokenKey("contoso")])
}

func TestAzureActiveSessions(t *testing.T) {
	t.Parallel()

	s, _ := newTestAzureStrategy(nil)
	ws := workspace.New()
	idle := azureTestSession("idle")
	idle.Active = false
	ws.Sessions = []workspace.Session{
		azureTestSession("contoso"),
		idle,
		activeSession("a1", workspace.AccountTypeAWS),
	}

	active := s.ActiveSessions(ws)
	require.Len(t, active, 1)
	assert.Equal(t, "az-contoso", active[0].ID)
}

func TestAzureCleanCredentialsDeletesAllTokens(t *testing.T) {
	t.Parallel()

	s, kc := newTestAzureStrategy(nil)
	kc.Secrets[keychain.AzureAccessTokenKey("contoso")] = "tok"
	kc.Secrets[keychain.AzureAccessTokenExpirationKey("contoso")] = "exp"

	ws := workspace.New()
	idle := azureTestSession("contoso")
	idle.Active = false
	ws.Sessions = []workspace.Session{idle}

	require.NoError(t, s.CleanCredentials(ws))
	assert.False(t, kc.Has(keychain.AzureAccessTokenKey("contoso")))
	assert.False(t, kc.Has(keychain.AzureAccessTokenExpirationKey("contoso")))
}
