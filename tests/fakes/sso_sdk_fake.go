package fakes

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/sso/types"
)

// FakePortalClient is a mock implementation of the SSO portal API backed by
// in-memory account and role tables.
type FakePortalClient struct {
	// Accounts is returned by ListAccounts, split into pages of PageSize.
	Accounts []ssotypes.AccountInfo
	// Roles maps account ids to the roles returned by ListAccountRoles.
	Roles map[string][]ssotypes.RoleInfo
	// Credentials maps "accountID/roleName" to the role credentials
	// returned by GetRoleCredentials.
	Credentials map[string]*ssotypes.RoleCredentials
	// PageSize overrides the requested page size when > 0.
	PageSize int

	// ListAccountsFunc allows custom behavior for ListAccounts
	ListAccountsFunc func(ctx context.Context, params *sso.ListAccountsInput) (*sso.ListAccountsOutput, error)
	// ListAccountRolesFunc allows custom behavior for ListAccountRoles
	ListAccountRolesFunc func(ctx context.Context, params *sso.ListAccountRolesInput) (*sso.ListAccountRolesOutput, error)
	// GetRoleCredentialsFunc allows custom behavior for GetRoleCredentials
	GetRoleCredentialsFunc func(ctx context.Context, params *sso.GetRoleCredentialsInput) (*sso.GetRoleCredentialsOutput, error)
	// LogoutFunc allows custom behavior for Logout
	LogoutFunc func(ctx context.Context, params *sso.LogoutInput) (*sso.LogoutOutput, error)

	ListAccountsCalls       int
	ListAccountRolesCalls   int
	GetRoleCredentialsCalls int
	LogoutCalls             int
}

// NewFakePortalClient creates an empty portal fake.
func NewFakePortalClient() *FakePortalClient {
	return &FakePortalClient{
		Roles:       make(map[string][]ssotypes.RoleInfo),
		Credentials: make(map[string]*ssotypes.RoleCredentials),
	}
}

// AddAccount registers an account with its roles.
func (f *FakePortalClient) AddAccount(id, name string, roles ...string) {
	f.Accounts = append(f.Accounts, ssotypes.AccountInfo{
		AccountId:   aws.String(id),
		AccountName: aws.String(name),
	})
	for _, role := range roles {
		f.Roles[id] = append(f.Roles[id], ssotypes.RoleInfo{
			AccountId: aws.String(id),
			RoleName:  aws.String(role),
		})
	}
}

// AddRoleCredentials registers credentials for an account/role pair.
func (f *FakePortalClient) AddRoleCredentials(accountID, roleName string, creds *ssotypes.RoleCredentials) {
	f.Credentials[accountID+"/"+roleName] = creds
}

func (f *FakePortalClient) pageSize(requested *int32) int {
	if f.PageSize > 0 {
		return f.PageSize
	}
	if requested != nil && *requested > 0 {
		return int(*requested)
	}
	return 30
}

func (f *FakePortalClient) ListAccounts(ctx context.Context, params *sso.ListAccountsInput, optFns ...func(*sso.Options)) (*sso.ListAccountsOutput, error) {
	f.ListAccountsCalls++
	if f.ListAccountsFunc != nil {
		return f.ListAccountsFunc(ctx, params)
	}
	start := 0
	if params.NextToken != nil {
		fmt.Sscanf(*params.NextToken, "%d", &start)
	}
	size := f.pageSize(params.MaxResults)
	end := start + size
	if end > len(f.Accounts) {
		end = len(f.Accounts)
	}
	out := &sso.ListAccountsOutput{AccountList: f.Accounts[start:end]}
	if end < len(f.Accounts) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (f *FakePortalClient) ListAccountRoles(ctx context.Context, params *sso.ListAccountRolesInput, optFns ...func(*sso.Options)) (*sso.ListAccountRolesOutput, error) {
	f.ListAccountRolesCalls++
	if f.ListAccountRolesFunc != nil {
		return f.ListAccountRolesFunc(ctx, params)
	}
	roles := f.Roles[aws.ToString(params.AccountId)]
	start := 0
	if params.NextToken != nil {
		fmt.Sscanf(*params.NextToken, "%d", &start)
	}
	size := f.pageSize(params.MaxResults)
	end := start + size
	if end > len(roles) {
		end = len(roles)
	}
	out := &sso.ListAccountRolesOutput{RoleList: roles[start:end]}
	if end < len(roles) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (f *FakePortalClient) GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error) {
	f.GetRoleCredentialsCalls++
	if f.GetRoleCredentialsFunc != nil {
		return f.GetRoleCredentialsFunc(ctx, params)
	}
	key := aws.ToString(params.AccountId) + "/" + aws.ToString(params.RoleName)
	creds, ok := f.Credentials[key]
	if !ok {
		return nil, fmt.Errorf("no credentials registered for %s", key)
	}
	return &sso.GetRoleCredentialsOutput{RoleCredentials: creds}, nil
}

func (f *FakePortalClient) Logout(ctx context.Context, params *sso.LogoutInput, optFns ...func(*sso.Options)) (*sso.LogoutOutput, error) {
	f.LogoutCalls++
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, params)
	}
	return &sso.LogoutOutput{}, nil
}
