package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwarden/cloudwarden/internal/workspace"
	"github.com/cloudwarden/cloudwarden/tests/fakes"
)

// stubStrategy selects active sessions of one account type and records the
// order it is driven in.
type stubStrategy struct {
	name      string
	matchType workspace.AccountType

	cleanCalls  int
	refreshed   []string
	refreshErrs map[string]error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) ActiveSessions(ws *workspace.Workspace) []workspace.Session {
	var out []workspace.Session
	for _, sess := range ws.Sessions {
		if sess.Active && sess.Account.Type == s.matchType {
			out = append(out, sess)
		}
	}
	return out
}

func (s *stubStrategy) CleanCredentials(ws *workspace.Workspace) error {
	s.cleanCalls++
	return nil
}

func (s *stubStrategy) RefreshSession(ctx context.Context, ws *workspace.Workspace, sess workspace.Session) error {
	s.refreshed = append(s.refreshed, sess.ID)
	if err := s.refreshErrs[sess.ID]; err != nil {
		return err
	}
	return nil
}

func newStubService(ws *workspace.Workspace) (*Service, *fakes.FakeWorkspaceStore, *stubStrategy, *stubStrategy, *stubStrategy) {
	store := fakes.NewFakeWorkspaceStore()
	store.Workspace = ws
	aws := &stubStrategy{name: "aws", matchType: workspace.AccountTypeAWS, refreshErrs: map[string]error{}}
	azure := &stubStrategy{name: "azure", matchType: workspace.AccountTypeAzure, refreshErrs: map[string]error{}}
	sso := &stubStrategy{name: "aws-sso", matchType: workspace.AccountTypeAWSSSO, refreshErrs: map[string]error{}}
	return NewService(store, testLogger(), aws, azure, sso), store, aws, azure, sso
}

func activeSession(id string, accountType workspace.AccountType) workspace.Session {
	return workspace.Session{
		ID:      id,
		Active:  true,
		Loading: true,
		Account: workspace.Account{Type: accountType, AccountName: "acct-" + id},
	}
}

func TestRefreshNilTypeSkipsSSOStrategy(t *testing.T) {
	t.Parallel()

	ws := workspace.New()
	ws.Sessions = []workspace.Session{
		activeSession("a1", workspace.AccountTypeAWS),
		activeSession("z1", workspace.AccountTypeAzure),
		activeSession("s1", workspace.AccountTypeAWSSSO),
	}
	service, _, aws, azure, sso := newStubService(ws)

	require.NoError(t, service.Refresh(context.Background(), nil))

	assert.Equal(t, []string{"a1"}, aws.refreshed)
	assert.Equal(t, []string{"z1"}, azure.refreshed)
	assert.Empty(t, sso.refreshed, "sso refresh requires an explicit target")
	assert.Zero(t, sso.cleanCalls)
}

func TestRefreshEmptySelectionCleansWithoutRefreshing(t *testing.T) {
	t.Parallel()

	ws := workspace.New()
	ws.Sessions = []workspace.Session{
		{ID: "a1", Account: workspace.Account{Type: workspace.AccountTypeAWS}},
	}
	service, store, aws, _, _ := newStubService(ws)

	accountType := workspace.AccountTypeAWS
	require.NoError(t, service.Refresh(context.Background(), &accountType))

	assert.Equal(t, 1, aws.cleanCalls)
	assert.Empty(t, aws.refreshed)
	assert.Zero(t, store.SaveCalls, "a clean pass does not rewrite the workspace")
}

func TestRefreshProcessesSessionsSequentially(t *testing.T) {
	t.Parallel()

	ws := workspace.New()
	ws.Sessions = []workspace.Session{
		activeSession("a1", workspace.AccountTypeAWS),
		activeSession("a2", workspace.AccountTypeAWS),
	}
	service, store, aws, _, _ := newStubService(ws)

	accountType := workspace.AccountTypeAWS
	require.NoError(t, service.Refresh(context.Background(), &accountType))

	assert.Equal(t, []string{"a1", "a2"}, aws.refreshed)
	for _, sess := range store.Workspace.Sessions {
		assert.True(t, sess.Active)
		assert.False(t, sess.Loading, "session %s must leave the loading state", sess.ID)
	}
}

func TestRefreshIsolatesPerSessionFailures(t *testing.T) {
	t.Parallel()

	ws := workspace.New()
	ws.Sessions = []workspace.Session{
		activeSession("a1", workspace.AccountTypeAWS),
		activeSession("a2", workspace.AccountTypeAWS),
	}
	service, store, aws, _, _ := newStubService(ws)
	aws.refreshErrs["a1"] = errors.New("expired base credentials")

	accountType := workspace.AccountTypeAWS
	err := service.Refresh(context.Background(), &accountType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a1")

	// The failure did not stop the pass.
	assert.Equal(t, []string{"a1", "a2"}, aws.refreshed)

	failed := store.Workspace.FindSession("a1")
	assert.False(t, failed.Active)
	assert.False(t, failed.LastStopDate.IsZero())

	ok := store.Workspace.FindSession("a2")
	assert.True(t, ok.Active)
	assert.False(t, ok.Loading)
}

func TestRefreshTrusterTypeMapsToAWSStrategy(t *testing.T) {
	t.Parallel()

	ws := workspace.New()
	service, _, aws, _, _ := newStubService(ws)

	accountType := workspace.AccountTypeAWSTruster
	require.NoError(t, service.Refresh(context.Background(), &accountType))
	assert.Equal(t, 1, aws.cleanCalls)
}

func TestRefreshUnknownType(t *testing.T) {
	t.Parallel()

	service, _, _, _, _ := newStubService(workspace.New())

	accountType := workspace.AccountType("GCP")
	err := service.Refresh(context.Background(), &accountType)
	assert.Error(t, err)
}

func TestRefreshWithoutWorkspaceIsNoOp(t *testing.T) {
	t.Parallel()

	service, _, aws, _, _ := newStubService(nil)

	accountType := workspace.AccountTypeAWS
	require.NoError(t, service.Refresh(context.Background(), &accountType))
	assert.Zero(t, aws.cleanCalls)
	assert.Empty(t, aws.refreshed)
}
