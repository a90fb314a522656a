// Package credentials turns active sessions into live cloud credentials.
//
// Each account family has a Strategy; the Service drives them all through
// the same pass: load the workspace, select the strategy's active sessions,
// and either clean up (nothing active) or refresh each selected session in
// turn. Sessions are refreshed strictly sequentially so that a session's
// credentials are fully written before the next session is touched.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/metrics"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// Strategy refreshes credentials for one account family.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// ActiveSessions selects the sessions this strategy is responsible for
	// refreshing.
	ActiveSessions(ws *workspace.Workspace) []workspace.Session

	// CleanCredentials removes any credentials previously produced by this
	// strategy. Called when a pass finds no active sessions.
	CleanCredentials(ws *workspace.Workspace) error

	// RefreshSession produces fresh credentials for one session.
	RefreshSession(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) error
}

// Service maps account types to strategies and runs refresh passes.
type Service struct {
	store      workspace.Store
	logger     *logging.Logger
	strategies map[workspace.AccountType]Strategy
	broadcast  []Strategy
	now        func() time.Time
}

// NewService wires the fixed account type to strategy mapping. All three AWS
// variants share the aws strategy.
func NewService(store workspace.Store, logger *logging.Logger, aws, azure, sso Strategy) *Service {
	return &Service{
		store:  store,
		logger: logger,
		strategies: map[workspace.AccountType]Strategy{
			workspace.AccountTypeAWS:          aws,
			workspace.AccountTypeAWSPlainUser: aws,
			workspace.AccountTypeAWSTruster:   aws,
			workspace.AccountTypeAzure:        azure,
			workspace.AccountTypeAWSSSO:       sso,
		},
		// A nil account type fans out to these, in order. The sso strategy
		// is excluded: it can require an interactive browser login and only
		// runs when targeted explicitly.
		broadcast: []Strategy{aws, azure},
		now:       time.Now,
	}
}

// Refresh runs a refresh pass. A nil accountType runs the aws and azure
// strategies in sequence; a concrete type runs the strategy mapped to it.
func (s *Service) Refresh(ctx context.Context, accountType *workspace.AccountType) error {
	if accountType == nil {
		var errs []error
		for _, st := range s.broadcast {
			errs = append(errs, s.run(ctx, st))
		}
		return errors.Join(errs...)
	}
	st, ok := s.strategies[*accountType]
	if !ok {
		return fmt.Errorf("no refresh strategy for account type %q", *accountType)
	}
	return s.run(ctx, st)
}

func (s *Service) run(ctx context.Context, st Strategy) error {
	ws, err := s.store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// No workspace means nothing is active and nothing was written.
			return nil
		}
		return err
	}

	metrics.RefreshStarted(st.Name())

	active := st.ActiveSessions(ws)
	if len(active) == 0 {
		// Nothing active: scrub previously written credentials without any
		// network calls.
		if err := st.CleanCredentials(ws); err != nil {
			metrics.RefreshCompleted(st.Name(), "error")
			return fmt.Errorf("cleaning %s credentials: %w", st.Name(), err)
		}
		metrics.RefreshCompleted(st.Name(), "ok")
		return nil
	}

	var errs []error
	stamp := s.now()
	for _, sess := range active {
		if err := st.RefreshSession(ctx, ws, sess); err != nil {
			s.logger.Error("refresh failed for session %s (%s): %v",
				sess.ID, sess.Account.AccountName, err)
			metrics.SessionRefreshed(st.Name(), "error")
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))

			// A failed session falls back to inactive so the next pass does
			// not retry it without an explicit restart.
			if cur := ws.FindSession(sess.ID); cur != nil {
				cur.Active = false
				cur.Loading = false
				cur.LastStopDate = stamp
			}
			continue
		}
		metrics.SessionRefreshed(st.Name(), "ok")
		if cur := ws.FindSession(sess.ID); cur != nil {
			cur.Loading = false
		}
	}

	if err := s.store.Save(ws); err != nil {
		errs = append(errs, fmt.Errorf("saving workspace: %w", err))
	}

	if len(errs) > 0 {
		metrics.RefreshCompleted(st.Name(), "error")
		return errors.Join(errs...)
	}
	metrics.RefreshCompleted(st.Name(), "ok")
	return nil
}
