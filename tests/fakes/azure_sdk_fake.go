package fakes

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// FakeTokenCredential is a mock azcore.TokenCredential.
type FakeTokenCredential struct {
	// Token and ExpiresOn are returned by the default implementation.
	Token     string
	ExpiresOn time.Time

	// GetTokenFunc allows custom behavior for GetToken
	GetTokenFunc func(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error)

	GetTokenCalls int

	// Scopes records every scope set requested.
	Scopes [][]string
}

// NewFakeTokenCredential returns a credential yielding the given token with
// a one hour lifetime.
func NewFakeTokenCredential(token string) *FakeTokenCredential {
	return &FakeTokenCredential{
		Token:     token,
		ExpiresOn: time.Now().Add(time.Hour),
	}
}

func (f *FakeTokenCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.GetTokenCalls++
	f.Scopes = append(f.Scopes, options.Scopes)
	if f.GetTokenFunc != nil {
		return f.GetTokenFunc(ctx, options)
	}
	return azcore.AccessToken{Token: f.Token, ExpiresOn: f.ExpiresOn}, nil
}
