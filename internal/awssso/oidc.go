// Package awssso implements the AWS IAM Identity Center integration: the
// OAuth2 device-authorization flow against the SSO OIDC endpoint, the portal
// API for account/role discovery, the keychain-resident access-info bundle
// and the directory sync that merges discovered sessions into the workspace.
package awssso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc/types"
	"github.com/pkg/browser"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/logging"
)

const (
	clientName = "cloudwarden"
	clientType = "public"

	grantTypeDeviceCode = "urn:ietf:params:oauth:grant-type:device_code"

	// The approval wait is a fixed-interval poll with a hard retry budget:
	// one initial attempt plus maxTokenRetries retries, 5 seconds apart.
	pollInterval    = 5 * time.Second
	maxTokenRetries = 12
)

// OIDCAPI is the subset of the SSO OIDC client the device flow uses.
type OIDCAPI interface {
	RegisterClient(ctx context.Context, params *ssooidc.RegisterClientInput, optFns ...func(*ssooidc.Options)) (*ssooidc.RegisterClientOutput, error)
	StartDeviceAuthorization(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput, optFns ...func(*ssooidc.Options)) (*ssooidc.StartDeviceAuthorizationOutput, error)
	CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error)
}

// NewOIDCClient creates the real OIDC client for a region. Device-flow calls
// are unauthenticated, so the client carries anonymous credentials.
func NewOIDCClient(ctx context.Context, region string) (OIDCAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ssooidc.NewFromConfig(cfg), nil
}

// Registration is an OAuth public client registered with the OIDC endpoint.
type Registration struct {
	ClientID     string
	ClientSecret string
}

// Authorization is a pending device authorization awaiting user approval.
type Authorization struct {
	Registration
	DeviceCode      string
	VerificationURL string
}

// Token is an issued SSO access token. ExpirationTime is computed from the
// local clock at the moment of receipt.
type Token struct {
	AccessToken    string
	ExpirationTime time.Time
}

// DeviceFlow drives the device-authorization state machine:
// UNREGISTERED → CLIENT_REGISTERED → DEVICE_AUTHORIZED → POLLING →
// TOKEN_ISSUED, or TIMED_OUT when the user never approves.
type DeviceFlow struct {
	api    OIDCAPI
	region string
	logger *logging.Logger

	openURL func(string) error
	sleep   func(time.Duration)
	now     func() time.Time
}

// NewDeviceFlow creates a device flow over the given OIDC client.
func NewDeviceFlow(api OIDCAPI, region string, logger *logging.Logger) *DeviceFlow {
	return &DeviceFlow{
		api:     api,
		region:  region,
		logger:  logger,
		openURL: browser.OpenURL,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// RegisterClient registers a public OAuth client. A failure or an empty
// response is a hard error; registration is never retried.
func (f *DeviceFlow) RegisterClient(ctx context.Context) (*Registration, error) {
	out, err := f.api.RegisterClient(ctx, &ssooidc.RegisterClientInput{
		ClientName: aws.String(clientName),
		ClientType: aws.String(clientType),
	})
	if err != nil {
		return nil, &cwerrors.RegistrationError{Region: f.region, Err: err}
	}
	if out == nil || out.ClientId == nil || out.ClientSecret == nil {
		return nil, &cwerrors.RegistrationError{Region: f.region}
	}

	f.logger.Debug("registered SSO client in %s", f.region)
	return &Registration{
		ClientID:     aws.ToString(out.ClientId),
		ClientSecret: aws.ToString(out.ClientSecret),
	}, nil
}

// StartDeviceAuthorization obtains a device code and surfaces the
// verification URL to the user. Opening the browser is a required side
// effect of this step; if the browser cannot be opened the URL has already
// been printed so the user can follow it by hand.
func (f *DeviceFlow) StartDeviceAuthorization(ctx context.Context, reg *Registration, portalURL string) (*Authorization, error) {
	out, err := f.api.StartDeviceAuthorization(ctx, &ssooidc.StartDeviceAuthorizationInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		StartUrl:     aws.String(portalURL),
	})
	if err != nil {
		return nil, &cwerrors.DeviceAuthorizationError{PortalURL: portalURL, Err: err}
	}
	if out == nil || out.DeviceCode == nil || out.VerificationUriComplete == nil {
		return nil, &cwerrors.DeviceAuthorizationError{PortalURL: portalURL}
	}

	url := aws.ToString(out.VerificationUriComplete)
	f.logger.Info("approve the sign-in request in your browser: %s", url)
	if err := f.openURL(url); err != nil {
		f.logger.Warn("could not open browser: %v", err)
	}

	return &Authorization{
		Registration:    *reg,
		DeviceCode:      aws.ToString(out.DeviceCode),
		VerificationURL: url,
	}, nil
}

// PollForToken polls the token endpoint until the user approves the device
// authorization. While the endpoint reports the authorization as pending it
// retries every 5 seconds, up to 12 retries; exhausting the budget yields a
// SessionTimedOutError so callers can tell "user never approved" from a
// broken transport. The token's expiration is computed against the local
// clock at the moment of receipt.
func (f *DeviceFlow) PollForToken(ctx context.Context, auth *Authorization) (*Token, error) {
	retries := 0
	for {
		out, err := f.api.CreateToken(ctx, &ssooidc.CreateTokenInput{
			ClientId:     aws.String(auth.ClientID),
			ClientSecret: aws.String(auth.ClientSecret),
			GrantType:    aws.String(grantTypeDeviceCode),
			DeviceCode:   aws.String(auth.DeviceCode),
		})
		if err == nil {
			if out == nil || out.AccessToken == nil {
				return nil, &cwerrors.TokenError{Err: errors.New("empty token response")}
			}
			return &Token{
				AccessToken:    aws.ToString(out.AccessToken),
				ExpirationTime: f.now().Add(time.Duration(out.ExpiresIn) * time.Second),
			}, nil
		}

		var pending *types.AuthorizationPendingException
		if !errors.As(err, &pending) {
			return nil, &cwerrors.TokenError{Err: err}
		}
		if retries >= maxTokenRetries {
			return nil, &cwerrors.SessionTimedOutError{Attempts: retries}
		}
		retries++
		f.sleep(pollInterval)
	}
}

// Login runs the full device flow against the given portal.
func (f *DeviceFlow) Login(ctx context.Context, portalURL string) (*Token, error) {
	reg, err := f.RegisterClient(ctx)
	if err != nil {
		return nil, err
	}
	auth, err := f.StartDeviceAuthorization(ctx, reg, portalURL)
	if err != nil {
		return nil, err
	}
	return f.PollForToken(ctx, auth)
}
