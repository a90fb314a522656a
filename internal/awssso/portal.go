package awssso

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/sso/types"

	"github.com/cloudwarden/cloudwarden/internal/logging"
)

const (
	// Safety cap on portal pagination. Hitting it is treated as success
	// with truncation, not as an error.
	maxPortalPages = 300

	portalPageSize = 30
)

// PortalAPI is the subset of the SSO portal client the sync and credential
// layers use. The portal is the discovery API, distinct from the OIDC
// token-issuing endpoint.
type PortalAPI interface {
	ListAccounts(ctx context.Context, params *sso.ListAccountsInput, optFns ...func(*sso.Options)) (*sso.ListAccountsOutput, error)
	ListAccountRoles(ctx context.Context, params *sso.ListAccountRolesInput, optFns ...func(*sso.Options)) (*sso.ListAccountRolesOutput, error)
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
	Logout(ctx context.Context, params *sso.LogoutInput, optFns ...func(*sso.Options)) (*sso.LogoutOutput, error)
}

// NewPortalClient creates the real portal client for a region. Portal calls
// authenticate with the bearer access token, so the client itself carries
// anonymous credentials.
func NewPortalClient(ctx context.Context, region string) (PortalAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sso.NewFromConfig(cfg), nil
}

// Portal wraps a PortalAPI with the pagination and cap discipline shared by
// every listing call.
type Portal struct {
	api    PortalAPI
	logger *logging.Logger
}

// NewPortal creates a Portal over the given client.
func NewPortal(api PortalAPI, logger *logging.Logger) *Portal {
	return &Portal{api: api, logger: logger}
}

// ListAccounts pages through every account visible to the access token,
// stopping when no continuation token is returned or after maxPortalPages
// pages.
func (p *Portal) ListAccounts(ctx context.Context, accessToken string) ([]ssotypes.AccountInfo, error) {
	input := &sso.ListAccountsInput{
		AccessToken: aws.String(accessToken),
		MaxResults:  aws.Int32(portalPageSize),
	}

	var accounts []ssotypes.AccountInfo
	for page := 0; page < maxPortalPages; page++ {
		out, err := p.api.ListAccounts(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		accounts = append(accounts, out.AccountList...)
		if out.NextToken == nil || *out.NextToken == "" {
			return accounts, nil
		}
		input.NextToken = out.NextToken
	}

	p.logger.Warn("account listing truncated after %d pages", maxPortalPages)
	return accounts, nil
}

// ListRolesForAccount pages through every role of one account, with the same
// cap discipline as ListAccounts.
func (p *Portal) ListRolesForAccount(ctx context.Context, accessToken, accountID string) ([]ssotypes.RoleInfo, error) {
	input := &sso.ListAccountRolesInput{
		AccessToken: aws.String(accessToken),
		AccountId:   aws.String(accountID),
		MaxResults:  aws.Int32(portalPageSize),
	}

	var roles []ssotypes.RoleInfo
	for page := 0; page < maxPortalPages; page++ {
		out, err := p.api.ListAccountRoles(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list roles for account %s: %w", accountID, err)
		}
		roles = append(roles, out.RoleList...)
		if out.NextToken == nil || *out.NextToken == "" {
			return roles, nil
		}
		input.NextToken = out.NextToken
	}

	p.logger.Warn("role listing for account %s truncated after %d pages", accountID, maxPortalPages)
	return roles, nil
}

// RoleCredentials fetches short-lived credentials for an account/role pair.
func (p *Portal) RoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (*ssotypes.RoleCredentials, error) {
	out, err := p.api.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: aws.String(accessToken),
		AccountId:   aws.String(accountID),
		RoleName:    aws.String(roleName),
	})
	if err != nil {
		return nil, fmt.Errorf("get role credentials for %s/%s: %w", accountID, roleName, err)
	}
	if out.RoleCredentials == nil {
		return nil, fmt.Errorf("get role credentials for %s/%s: empty response", accountID, roleName)
	}
	return out.RoleCredentials, nil
}

// Logout invalidates the access token on the portal side.
func (p *Portal) Logout(ctx context.Context, accessToken string) error {
	if _, err := p.api.Logout(ctx, &sso.LogoutInput{AccessToken: aws.String(accessToken)}); err != nil {
		return fmt.Errorf("portal logout: %w", err)
	}
	return nil
}
