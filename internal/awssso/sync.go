package awssso

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/session"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// Syncer discovers accounts and roles through the SSO portal and merges the
// resulting sessions into the workspace.
type Syncer struct {
	store   workspace.Store
	manager *Manager
	logger  *logging.Logger

	newPortal func(ctx context.Context, region string) (PortalAPI, error)
	newID     func() string
	collator  *collate.Collator
}

// NewSyncer creates a Syncer.
func NewSyncer(store workspace.Store, manager *Manager, logger *logging.Logger) *Syncer {
	return &Syncer{
		store:     store,
		manager:   manager,
		logger:    logger,
		newPortal: NewPortalClient,
		newID:     uuid.NewString,
		collator:  collate.New(language.English, collate.IgnoreCase),
	}
}

// Sync logs in (or reuses the cached token), walks the portal directory and
// merges one session per (account, role) pair into the workspace. It returns
// the number of discovered sessions.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	info, err := s.manager.CachedOrLogin(ctx)
	if err != nil {
		return 0, err
	}

	api, err := s.newPortal(ctx, info.Region)
	if err != nil {
		return 0, fmt.Errorf("SSO sync: %w", err)
	}
	portal := NewPortal(api, s.logger)

	accounts, err := portal.ListAccounts(ctx, info.AccessToken)
	if err != nil {
		return 0, fmt.Errorf("SSO sync: %w", err)
	}

	var discovered []workspace.Session
	for _, account := range accounts {
		roles, err := portal.ListRolesForAccount(ctx, info.AccessToken, aws.ToString(account.AccountId))
		if err != nil {
			return 0, fmt.Errorf("SSO sync: %w", err)
		}
		for _, role := range roles {
			discovered = append(discovered, workspace.Session{
				ID:      s.newID(),
				Loading: false,
				Active:  false,
				Account: workspace.Account{
					Type:          workspace.AccountTypeAWSSSO,
					AccountName:   aws.ToString(account.AccountName),
					AccountNumber: aws.ToString(account.AccountId),
					Role:          workspace.Role{Name: aws.ToString(role.RoleName)},
					Email:         aws.ToString(account.EmailAddress),
				},
			})
		}
	}

	s.logger.Info("discovered %d SSO sessions across %d accounts", len(discovered), len(accounts))
	if err := s.MergeIntoWorkspace(discovered); err != nil {
		return 0, err
	}
	return len(discovered), nil
}

// MergeIntoWorkspace replaces the workspace's SSO-owned sessions with the
// incoming set while preserving the identity and lifecycle state of sessions
// that match an existing (accountName, accountNumber, roleName) tuple.
// Non-SSO sessions are retained unchanged, incoming sessions get the default
// profile (created if absent) and the workspace's default region, and a
// parent-integrity sweep drops trusters whose parent disappeared. The whole
// operation is transactional: on any failure the pre-operation workspace
// (or its absence, when one had to be created) is restored before the error
// propagates.
func (s *Syncer) MergeIntoWorkspace(incoming []workspace.Session) error {
	ws, err := s.store.Load()
	created := false
	var snapshot *workspace.Workspace
	switch {
	case err == nil:
		snapshot = ws.Clone()
	case errors.Is(err, os.ErrNotExist):
		ws = workspace.New()
		created = true
	default:
		return fmt.Errorf("SSO sync merge: %w", err)
	}

	if err := s.merge(ws, incoming, created); err != nil {
		rolled := true
		if created {
			if rbErr := s.store.Reset(); rbErr != nil {
				rolled = false
			}
		} else {
			if rbErr := s.store.Save(snapshot); rbErr != nil {
				rolled = false
			}
		}
		return &cwerrors.PartialFailureError{Op: "SSO sync merge", Rolled: rolled, Err: err}
	}
	return nil
}

func (s *Syncer) merge(ws *workspace.Workspace, incoming []workspace.Session, created bool) error {
	if created {
		if err := s.store.Save(ws); err != nil {
			return err
		}
	}

	profileID, _ := ws.EnsureProfile(workspace.DefaultProfileName)
	defaultRegion := ws.DefaultRegion
	if defaultRegion == "" {
		defaultRegion = workspace.DefaultRegion
	}

	fresh := make([]workspace.Session, len(incoming))
	copy(fresh, incoming)
	for i := range fresh {
		if fresh[i].Profile == "" {
			fresh[i].Profile = profileID
		}
		if fresh[i].Account.Region == "" {
			fresh[i].Account.Region = defaultRegion
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return s.collator.CompareString(fresh[i].Account.AccountName, fresh[j].Account.AccountName) < 0
	})

	var retained, oldSSO []workspace.Session
	for _, sess := range ws.Sessions {
		if sess.Account.Type == workspace.AccountTypeAWSSSO {
			oldSSO = append(oldSSO, sess)
		} else {
			retained = append(retained, sess)
		}
	}

	merged := make([]workspace.Session, 0, len(fresh))
	for _, sess := range fresh {
		if existing := matchSSOSession(oldSSO, sess); existing != nil {
			// Keep the live session object so sync never resets its
			// id, flags or lastStopDate.
			sess = *existing
		}
		merged = append(merged, sess)
	}

	ws.Sessions = append(retained, merged...)

	for _, dropped := range session.SweepDanglingTrusters(ws) {
		s.logger.Warn("dropping truster session %s: parent %s no longer exists", dropped.ID, dropped.Account.Parent)
	}

	return s.store.Save(ws)
}

// matchSSOSession finds an existing SSO session for the same account/role
// tuple.
func matchSSOSession(existing []workspace.Session, sess workspace.Session) *workspace.Session {
	for i := range existing {
		if existing[i].Account.AccountName == sess.Account.AccountName &&
			existing[i].Account.AccountNumber == sess.Account.AccountNumber &&
			existing[i].Account.Role.Name == sess.Account.Role.Name {
			return &existing[i]
		}
	}
	return nil
}
