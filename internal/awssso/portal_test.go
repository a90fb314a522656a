package awssso

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/sso/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAccountsFollowsPagination(t *testing.T) {
	t.Parallel()

	pages := [][]ssotypes.AccountInfo{
		{{AccountId: aws.String("111")}, {AccountId: aws.String("222")}},
		{{AccountId: aws.String("333")}},
	}
	api := &fakePortal{
		listAccountsFunc: func(ctx context.Context, params *sso.ListAccountsInput) (*sso.ListAccountsOutput, error) {
			page := 0
			if params.NextToken != nil {
				fmt.Sscanf(*params.NextToken, "%d", &page)
			}
			out := &sso.ListAccountsOutput{AccountList: pages[page]}
			if page+1 < len(pages) {
				out.NextToken = aws.String(fmt.Sprintf("%d", page+1))
			}
			return out, nil
		},
	}

	portal := NewPortal(api, testLogger())
	accounts, err := portal.ListAccounts(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	assert.Equal(t, 2, api.listAccountsCalls)
}

func TestListAccountsTruncatesAtPageCap(t *testing.T) {
	t.Parallel()

	api := &fakePortal{
		listAccountsFunc: func(ctx context.Context, params *sso.ListAccountsInput) (*sso.ListAccountsOutput, error) {
			// Endless pagination: every page points at another one.
			return &sso.ListAccountsOutput{
				AccountList: []ssotypes.AccountInfo{{AccountId: aws.String("111")}},
				NextToken:   aws.String("more"),
			}, nil
		},
	}

	portal := NewPortal(api, testLogger())
	accounts, err := portal.ListAccounts(context.Background(), "tok")

	// Hitting the cap is success with truncation, never an error.
	require.NoError(t, err)
	assert.Len(t, accounts, 300)
	assert.Equal(t, 300, api.listAccountsCalls)
}

func TestRoleCredentialsEmptyResponse(t *testing.T) {
	t.Parallel()

	api := &fakePortal{
		getRoleCredentialsFunc: func(ctx context.Context, params *sso.GetRoleCredentialsInput) (*sso.GetRoleCredentialsOutput, error) {
			return &sso.GetRoleCredentialsOutput{}, nil
		},
	}

	portal := NewPortal(api, testLogger())
	_, err := portal.RoleCredentials(context.Background(), "tok", "111", "Admin")
	assert.Error(t, err)
}

func TestRoleCredentials(t *testing.T) {
	t.Parallel()

	api := &fakePortal{
		getRoleCredentialsFunc: func(ctx context.Context, params *sso.GetRoleCredentialsInput) (*sso.GetRoleCredentialsOutput, error) {
			assert.Equal(t, "111", aws.ToString(params.AccountId))
			assert.Equal(t, "Admin", aws.ToString(params.RoleName))
			return &sso.GetRoleCredentialsOutput{
				RoleCredentials: &ssotypes.RoleCredentials{
					AccessKeyId:     aws.String("AKIA"),
					SecretAccessKey: aws.String("secret"),
					SessionToken:    aws.String("token"),
					Expiration:      1790000000000,
				},
			}, nil
		},
	}

	portal := NewPortal(api, testLogger())
	creds, err := portal.RoleCredentials(context.Background(), "tok", "111", "Admin")
	require.NoError(t, err)
	assert.Equal(t, "AKIA", aws.ToString(creds.AccessKeyId))
}
