package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// azureManagementScope is the resource scope tokens are requested for.
const azureManagementScope = "https://management.azure.com/.default"

// AzureStrategy refreshes management tokens for Azure sessions through the
// device code flow, caching them in the secret store until they expire.
type AzureStrategy struct {
	keychain keychain.Store
	logger   *logging.Logger

	newCredential func(tenantID string) (azcore.TokenCredential, error)
	now           func() time.Time
}

func NewAzureStrategy(kc keychain.Store, logger *logging.Logger) *AzureStrategy {
	return &AzureStrategy{
		keychain:      kc,
		logger:        logger,
		newCredential: newDeviceCodeCredential,
		now:           time.Now,
	}
}

func newDeviceCodeCredential(tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
		TenantID: tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Azure device code credential: %w", err)
	}
	return cred, nil
}

func (s *AzureStrategy) Name() string { return "azure" }

func (s *AzureStrategy) ActiveSessions(ws *workspace.Workspace) []workspace.Session {
	var out []workspace.Session
	for _, sess := range ws.Sessions {
		if sess.Active && sess.Account.Type == workspace.AccountTypeAzure {
			out = append(out, sess)
		}
	}
	return out
}

// CleanCredentials drops every cached Azure token, active or not.
func (s *AzureStrategy) CleanCredentials(ws *workspace.Workspace) error {
	var errs []error
	for _, sess := range ws.Sessions {
		if sess.Account.Type != workspace.AccountTypeAzure {
			continue
		}
		name := sess.Account.AccountName
		if err := s.keychain.Delete(keychain.AzureAccessTokenKey(name)); err != nil {
			errs = append(errs, err)
		}
		if err := s.keychain.Delete(keychain.AzureAccessTokenExpirationKey(name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *AzureStrategy) RefreshSession(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) error {
	name := sess.Account.AccountName
	if s.tokenValid(name) {
		return nil
	}

	cred, err := s.newCredential(sess.Account.TenantID)
	if err != nil {
		return err
	}
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{azureManagementScope},
	})
	if err != nil {
		return fmt.Errorf("acquiring Azure token for %s: %w", name, err)
	}

	if err := s.keychain.Set(keychain.AzureAccessTokenKey(name), tok.Token); err != nil {
		return err
	}
	return s.keychain.Set(keychain.AzureAccessTokenExpirationKey(name),
		tok.ExpiresOn.Format(time.RFC3339))
}

// tokenValid reports whether the cached token for the account is present and
// unexpired. Any read or parse failure counts as invalid.
func (s *AzureStrategy) tokenValid(accountName string) bool {
	if _, err := s.keychain.Get(keychain.AzureAccessTokenKey(accountName)); err != nil {
		return false
	}
	raw, err := s.keychain.Get(keychain.AzureAccessTokenExpirationKey(accountName))
	if err != nil {
		return false
	}
	exp, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return exp.After(s.now())
}
