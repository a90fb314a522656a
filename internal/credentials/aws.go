package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	staticcreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"

	"github.com/cloudwarden/cloudwarden/internal/awssso"
	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// ErrNestedParent rejects truster chains deeper than one level. A truster's
// parent must itself be a parentless session.
var ErrNestedParent = errors.New("truster parent must not itself have a parent")

const (
	// Session tokens and assumed-role credentials are requested for one
	// hour, matching the STS default lower bound for chained credentials.
	sessionTokenDuration = int32(3600)

	sessionNamePrefix = "cloudwarden-"
)

// STSAPI is the subset of the STS client used by the aws strategy.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// NewSTSClient builds an STS client for the region. A nil base uses the
// ambient credential chain; otherwise the given static credentials are used.
func NewSTSClient(ctx context.Context, region string, base *AWSCredentials) (STSAPI, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if base != nil {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			staticcreds.NewStaticCredentialsProvider(
				base.AccessKeyID, base.SecretAccessKey, base.SessionToken)))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for %s: %w", region, err)
	}
	return sts.NewFromConfig(cfg), nil
}

// AccessProvider yields a valid SSO portal access bundle, logging in first if
// the cached one expired.
type AccessProvider interface {
	CachedOrLogin(ctx context.Context) (*awssso.AccessInfo, error)
}

// AWSStrategy refreshes credentials for plain, federated and truster AWS
// sessions.
type AWSStrategy struct {
	keychain keychain.Store
	sink     Sink
	logger   *logging.Logger
	access   AccessProvider

	newSTS    func(ctx context.Context, region string, base *AWSCredentials) (STSAPI, error)
	newPortal func(ctx context.Context, region string) (awssso.PortalAPI, error)
	now       func() time.Time
}

// NewAWSStrategy wires the strategy to the real STS and SSO portal clients.
func NewAWSStrategy(kc keychain.Store, sink Sink, access AccessProvider, logger *logging.Logger) *AWSStrategy {
	return &AWSStrategy{
		keychain:  kc,
		sink:      sink,
		logger:    logger,
		access:    access,
		newSTS:    NewSTSClient,
		newPortal: awssso.NewPortalClient,
		now:       time.Now,
	}
}

func (s *AWSStrategy) Name() string { return "aws" }

// ActiveSessions selects active sessions of any AWS variant except the SSO
// directory type, which has its own strategy.
func (s *AWSStrategy) ActiveSessions(ws *workspace.Workspace) []workspace.Session {
	var out []workspace.Session
	for _, sess := range ws.Sessions {
		switch sess.Account.Type {
		case workspace.AccountTypeAWS, workspace.AccountTypeAWSPlainUser, workspace.AccountTypeAWSTruster:
			if sess.Active {
				out = append(out, sess)
			}
		}
	}
	return out
}

// CleanCredentials removes the sink profiles this strategy could have
// written. With no profiles defined only the default profile is scrubbed.
func (s *AWSStrategy) CleanCredentials(ws *workspace.Workspace) error {
	if len(ws.Profiles) == 0 {
		return s.sink.RemoveProfile(workspace.DefaultProfileName)
	}
	var errs []error
	for _, p := range ws.Profiles {
		if err := s.sink.RemoveProfile(p.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *AWSStrategy) RefreshSession(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) error {
	var creds *AWSCredentials
	var err error
	switch {
	case sess.Account.IsTruster():
		creds, err = s.trusterCredentials(ctx, ws, sess)
	case sess.Account.Type == workspace.AccountTypeAWSPlainUser:
		creds, err = s.plainCredentials(ctx, ws, sess)
	default:
		creds, err = s.assumeWithAmbient(ctx, ws, sess)
	}
	if err != nil {
		return err
	}
	creds.Region = regionFor(ws, sess)
	return s.sink.WriteCredentials(profileNameFor(ws, sess), *creds)
}

// plainCredentials returns a session token for a plain account, reusing the
// cached one while it is still valid.
func (s *AWSStrategy) plainCredentials(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) (*AWSCredentials, error) {
	name := sess.Account.AccountName
	cached, err := s.cachedToken(
		keychain.PlainSessionTokenKey(name),
		keychain.PlainSessionTokenExpirationKey(name))
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	accessKeyID, err := s.keychain.Get(keychain.PlainAccessKeyIDKey(name))
	if err != nil {
		return nil, err
	}
	secretKey, err := s.keychain.Get(keychain.PlainSecretAccessKeyKey(name))
	if err != nil {
		return nil, err
	}

	api, err := s.newSTS(ctx, regionFor(ws, sess), &AWSCredentials{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretKey,
	})
	if err != nil {
		return nil, err
	}
	out, err := api.GetSessionToken(ctx, &sts.GetSessionTokenInput{
		DurationSeconds: aws.Int32(sessionTokenDuration),
	})
	if err != nil {
		return nil, fmt.Errorf("requesting session token for %s: %w", name, err)
	}
	if out == nil || out.Credentials == nil {
		return nil, fmt.Errorf("empty session token response for %s", name)
	}

	creds := credentialsFromSTS(out.Credentials)
	if err := s.cacheToken(
		keychain.PlainSessionTokenKey(name),
		keychain.PlainSessionTokenExpirationKey(name),
		creds); err != nil {
		s.logger.Warn("caching session token for %s failed: %v", name, err)
	}
	return creds, nil
}

// trusterCredentials resolves the parent session, obtains base credentials
// matching the parent's nature and assumes the truster's role with them.
func (s *AWSStrategy) trusterCredentials(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) (*AWSCredentials, error) {
	parent := ws.FindSession(sess.Account.Parent)
	if parent == nil {
		return nil, &cwerrors.NotFoundError{Kind: "parent session", ID: sess.Account.Parent}
	}
	if parent.Account.Parent != "" {
		return nil, fmt.Errorf("session %s: %w", sess.ID, ErrNestedParent)
	}

	name := sess.Account.AccountName
	cached, err := s.cachedToken(
		keychain.TrusterSessionTokenKey(name),
		keychain.TrusterSessionTokenExpirationKey(name))
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	var base *AWSCredentials
	switch parent.Account.Type {
	case workspace.AccountTypeAWSPlainUser:
		base, err = s.plainCredentials(ctx, ws, *parent)
	case workspace.AccountTypeAWSSSO:
		base, err = s.ssoRoleCredentials(ctx, *parent)
	case workspace.AccountTypeAWS:
		// Federated parent: the ambient credential chain carries the
		// federation identity.
		base = nil
	default:
		err = fmt.Errorf("session %s: parent account type %q cannot back a truster",
			sess.ID, parent.Account.Type)
	}
	if err != nil {
		return nil, err
	}

	creds, err := s.assumeRole(ctx, ws, sess, base)
	if err != nil {
		return nil, err
	}
	if err := s.cacheToken(
		keychain.TrusterSessionTokenKey(name),
		keychain.TrusterSessionTokenExpirationKey(name),
		creds); err != nil {
		s.logger.Warn("caching truster token for %s failed: %v", name, err)
	}
	return creds, nil
}

func (s *AWSStrategy) ssoRoleCredentials(ctx context.Context, parent workspace.Session) (*AWSCredentials, error) {
	info, err := s.access.CachedOrLogin(ctx)
	if err != nil {
		return nil, err
	}
	api, err := s.newPortal(ctx, info.Region)
	if err != nil {
		return nil, err
	}
	portal := awssso.NewPortal(api, s.logger)
	rc, err := portal.RoleCredentials(ctx, info.AccessToken,
		parent.Account.AccountNumber, parent.Account.Role.Name)
	if err != nil {
		return nil, err
	}
	return &AWSCredentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Expiration:      time.UnixMilli(rc.Expiration),
	}, nil
}

func (s *AWSStrategy) assumeWithAmbient(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) (*AWSCredentials, error) {
	return s.assumeRole(ctx, ws, sess, nil)
}

func (s *AWSStrategy) assumeRole(ctx context.Context, ws *workspace.Workspace, sess workspace.Session, base *AWSCredentials) (*AWSCredentials, error) {
	api, err := s.newSTS(ctx, regionFor(ws, sess), base)
	if err != nil {
		return nil, err
	}
	roleArn := fmt.Sprintf("arn:aws:iam::%s:role/%s",
		sess.Account.AccountNumber, sess.Account.Role.Name)
	out, err := api.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(sessionNamePrefix + sess.Account.AccountName),
		DurationSeconds: aws.Int32(sessionTokenDuration),
	})
	if err != nil {
		return nil, fmt.Errorf("assuming %s: %w", roleArn, err)
	}
	if out == nil || out.Credentials == nil {
		return nil, fmt.Errorf("empty assume-role response for %s", roleArn)
	}
	return credentialsFromSTS(out.Credentials), nil
}

// cachedToken returns the cached credentials under the given keys if they
// exist and have not expired, nil otherwise. Corrupt cache entries are
// treated as absent.
func (s *AWSStrategy) cachedToken(tokenKey, expirationKey string) (*AWSCredentials, error) {
	raw, err := s.keychain.Get(tokenKey)
	if err != nil {
		if errors.Is(err, keychain.ErrItemNotFound) {
			return nil, nil
		}
		return nil, err
	}
	expRaw, err := s.keychain.Get(expirationKey)
	if err != nil {
		if errors.Is(err, keychain.ErrItemNotFound) {
			return nil, nil
		}
		return nil, err
	}

	exp, err := time.Parse(time.RFC3339, expRaw)
	if err != nil || !exp.After(s.now()) {
		return nil, nil
	}

	var creds AWSCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		s.logger.Warn("discarding unreadable cached token %s: %v", tokenKey, err)
		return nil, nil
	}
	creds.Expiration = exp
	return &creds, nil
}

func (s *AWSStrategy) cacheToken(tokenKey, expirationKey string, creds *AWSCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := s.keychain.Set(tokenKey, string(data)); err != nil {
		return err
	}
	return s.keychain.Set(expirationKey, creds.Expiration.Format(time.RFC3339))
}

func credentialsFromSTS(c *ststypes.Credentials) *AWSCredentials {
	return &AWSCredentials{
		AccessKeyID:     aws.ToString(c.AccessKeyId),
		SecretAccessKey: aws.ToString(c.SecretAccessKey),
		SessionToken:    aws.ToString(c.SessionToken),
		Expiration:      aws.ToTime(c.Expiration),
	}
}

// profileNameFor resolves a session's profile reference to a sink profile
// name, falling back to the default profile.
func profileNameFor(ws *workspace.Workspace, sess workspace.Session) string {
	if p := ws.ProfileByID(sess.Profile); p != nil {
		return p.Name
	}
	return workspace.DefaultProfileName
}

func regionFor(ws *workspace.Workspace, sess workspace.Session) string {
	if sess.Account.Region != "" {
		return sess.Account.Region
	}
	if ws.DefaultRegion != "" {
		return ws.DefaultRegion
	}
	return workspace.DefaultRegion
}
