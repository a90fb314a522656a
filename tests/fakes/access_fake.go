package fakes

import (
	"context"
	"time"

	"github.com/cloudwarden/cloudwarden/internal/awssso"
)

// FakeAccessProvider serves a fixed SSO access bundle.
type FakeAccessProvider struct {
	Info *awssso.AccessInfo
	Err  error

	Calls int
}

// NewFakeAccessProvider returns a provider with a valid one hour bundle.
func NewFakeAccessProvider() *FakeAccessProvider {
	return &FakeAccessProvider{
		Info: &awssso.AccessInfo{
			PortalURL:      "https://example.awsapps.com/start",
			Region:         "us-east-1",
			AccessToken:    "fake-portal-token",
			ExpirationTime: time.Now().Add(time.Hour),
		},
	}
}

func (f *FakeAccessProvider) CachedOrLogin(ctx context.Context) (*awssso.AccessInfo, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Info, nil
}
