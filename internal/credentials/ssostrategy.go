package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/cloudwarden/cloudwarden/internal/awssso"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// SSOStrategy refreshes credentials for sessions synced from the AWS SSO
// directory. It exchanges the cached portal access token for per-role
// credentials, logging in first if the token expired.
type SSOStrategy struct {
	access AccessProvider
	sink   Sink
	logger *logging.Logger

	newPortal func(ctx context.Context, region string) (awssso.PortalAPI, error)
}

func NewSSOStrategy(access AccessProvider, sink Sink, logger *logging.Logger) *SSOStrategy {
	return &SSOStrategy{
		access:    access,
		sink:      sink,
		logger:    logger,
		newPortal: awssso.NewPortalClient,
	}
}

func (s *SSOStrategy) Name() string { return "aws-sso" }

func (s *SSOStrategy) ActiveSessions(ws *workspace.Workspace) []workspace.Session {
	var out []workspace.Session
	for _, sess := range ws.Sessions {
		if sess.Active && sess.Account.Type == workspace.AccountTypeAWSSSO {
			out = append(out, sess)
		}
	}
	return out
}

// CleanCredentials scrubs the sink profiles referenced by SSO sessions.
func (s *SSOStrategy) CleanCredentials(ws *workspace.Workspace) error {
	seen := map[string]bool{}
	var errs []error
	for _, sess := range ws.Sessions {
		if sess.Account.Type != workspace.AccountTypeAWSSSO {
			continue
		}
		name := profileNameFor(ws, sess)
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := s.sink.RemoveProfile(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *SSOStrategy) RefreshSession(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) error {
	info, err := s.access.CachedOrLogin(ctx)
	if err != nil {
		return err
	}
	api, err := s.newPortal(ctx, info.Region)
	if err != nil {
		return err
	}
	portal := awssso.NewPortal(api, s.logger)
	rc, err := portal.RoleCredentials(ctx, info.AccessToken,
		sess.Account.AccountNumber, sess.Account.Role.Name)
	if err != nil {
		return err
	}
	return s.sink.WriteCredentials(profileNameFor(ws, sess), AWSCredentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Region:          regionFor(ws, sess),
		Expiration:      time.UnixMilli(rc.Expiration),
	})
}
