package fakes

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
)

// FakeSTSClient is a mock implementation of the STS API subset used by the
// aws refresh strategy.
type FakeSTSClient struct {
	// AssumeRoleFunc allows custom behavior for AssumeRole
	AssumeRoleFunc func(ctx context.Context, params *sts.AssumeRoleInput) (*sts.AssumeRoleOutput, error)
	// GetSessionTokenFunc allows custom behavior for GetSessionToken
	GetSessionTokenFunc func(ctx context.Context, params *sts.GetSessionTokenInput) (*sts.GetSessionTokenOutput, error)

	AssumeRoleCalls      int
	GetSessionTokenCalls int

	// AssumedRoleArns records every role ARN passed to AssumeRole.
	AssumedRoleArns []string

	// Expiration stamps the credentials returned by the default
	// implementations. Zero means one hour from now.
	Expiration time.Time
}

// NewFakeSTSClient creates an STS fake with happy-path defaults.
func NewFakeSTSClient() *FakeSTSClient {
	return &FakeSTSClient{}
}

func (f *FakeSTSClient) expiration() *time.Time {
	exp := f.Expiration
	if exp.IsZero() {
		exp = time.Now().Add(time.Hour)
	}
	return &exp
}

func (f *FakeSTSClient) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.AssumeRoleCalls++
	f.AssumedRoleArns = append(f.AssumedRoleArns, aws.ToString(params.RoleArn))
	if f.AssumeRoleFunc != nil {
		return f.AssumeRoleFunc(ctx, params)
	}
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIA-FAKE-ASSUMED"),
			SecretAccessKey: aws.String("fake-assumed-secret"),
			SessionToken:    aws.String("fake-assumed-token"),
			Expiration:      f.expiration(),
		},
	}, nil
}

func (f *FakeSTSClient) GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error) {
	f.GetSessionTokenCalls++
	if f.GetSessionTokenFunc != nil {
		return f.GetSessionTokenFunc(ctx, params)
	}
	return &sts.GetSessionTokenOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIA-FAKE-SESSION"),
			SecretAccessKey: aws.String("fake-session-secret"),
			SessionToken:    aws.String("fake-session-token"),
			Expiration:      f.expiration(),
		},
	}, nil
}
