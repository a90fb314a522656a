// Package session implements the registry over the workspace's session
// collection: lifecycle transitions, the mutual-exclusion rule, truster
// bookkeeping and the parent-integrity sweep.
//
// A session is INACTIVE, LOADING or ACTIVE. Start moves it to LOADING+ACTIVE,
// a failed refresh or a stop moves it back to INACTIVE. At most one AWS
// session per profile and at most one Azure session globally may be active;
// starting a session evicts whatever holds the slot.
package session

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	cwerrors "github.com/cloudwarden/cloudwarden/internal/errors"
	"github.com/cloudwarden/cloudwarden/internal/keychain"
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// Sink is the slice of the external credential sink the registry needs:
// scrubbing a profile's credentials when its sessions are re-pointed.
type Sink interface {
	RemoveProfile(profileName string) error
}

// Registry performs CRUD and lifecycle operations over the sessions inside
// the workspace document. Every operation is read-modify-write on the whole
// document; the store is assumed to have no other writer.
type Registry struct {
	store    workspace.Store
	keychain keychain.Store
	sink     Sink
	logger   *logging.Logger
	now      func() time.Time
}

// NewRegistry creates a registry. sink may be nil when no credential sink is
// wired (profile scrubbing then becomes a no-op).
func NewRegistry(store workspace.Store, kc keychain.Store, sink Sink, logger *logging.Logger) *Registry {
	return &Registry{
		store:    store,
		keychain: kc,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns all sessions. A missing workspace yields an empty list.
func (r *Registry) List() ([]workspace.Session, error) {
	ws, err := r.store.Load()
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ws.Sessions, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*workspace.Session, error) {
	ws, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	sess := ws.FindSession(id)
	if sess == nil {
		return nil, &cwerrors.NotFoundError{Kind: "session", ID: id}
	}
	out := *sess
	return &out, nil
}

// Start activates the session with the given id, evicting every other
// session that competes for the same slot: any active Azure session when the
// target is Azure-typed, any active AWS session sharing the target's profile
// otherwise. Evicted sessions get their lastStopDate stamped. The target is
// set LOADING+ACTIVE only if it was not already active.
func (r *Registry) Start(id string) error {
	ws, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	target := ws.FindSession(id)
	if target == nil {
		return &cwerrors.NotFoundError{Kind: "session", ID: id}
	}

	stamp := r.now()
	for i := range ws.Sessions {
		sess := &ws.Sessions[i]
		if sess.ID == id {
			continue
		}
		azurePair := sess.Account.IsAzure() && target.Account.IsAzure()
		samePool := !sess.Account.IsAzure() && !target.Account.IsAzure() && sess.Profile == target.Profile
		if sess.Active && (azurePair || samePool) {
			sess.Active = false
			sess.Loading = false
			sess.LastStopDate = stamp
		}
	}

	if !target.Active {
		target.Active = true
		target.Loading = true
	}

	r.logger.Debug("starting session %s (%s)", target.ID, target.Account.AccountName)
	return r.store.Save(ws)
}

// Stop deactivates the session with the given id and stamps its
// lastStopDate. An unknown id is reported as a warning and treated as a
// no-op.
func (r *Registry) Stop(id string) error {
	return r.stop(&id)
}

// StopAll deactivates every session.
func (r *Registry) StopAll() error {
	r.logger.Info("stopping all sessions")
	return r.stop(nil)
}

func (r *Registry) stop(id *string) error {
	ws, err := r.store.Load()
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return fmt.Errorf("stop session: %w", err)
	}

	if id != nil && ws.FindSession(*id) == nil {
		r.logger.Warn("stop: session %s does not exist", *id)
		return nil
	}

	stamp := r.now()
	for i := range ws.Sessions {
		sess := &ws.Sessions[i]
		if id == nil || sess.ID == *id {
			sess.Active = false
			sess.Loading = false
			sess.LastStopDate = stamp
		}
	}
	return r.store.Save(ws)
}

// Update replaces the stored session with the same id. An unknown id is
// reported as a warning and treated as a no-op.
func (r *Registry) Update(sess workspace.Session) error {
	ws, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	for i := range ws.Sessions {
		if ws.Sessions[i].ID == sess.ID {
			ws.Sessions[i] = sess
			return r.store.Save(ws)
		}
	}
	r.logger.Warn("update: session %s does not exist", sess.ID)
	return nil
}

// Remove deletes the session with the given id. An unknown id is reported as
// a warning and treated as a no-op.
func (r *Registry) Remove(id string) error {
	ws, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	for i := range ws.Sessions {
		if ws.Sessions[i].ID == id {
			r.logger.Info("removing session %s (%s)", id, ws.Sessions[i].Account.AccountName)
			ws.Sessions = append(ws.Sessions[:i], ws.Sessions[i+1:]...)
			return r.store.Save(ws)
		}
	}
	r.logger.Warn("remove: session %s does not exist", id)
	return nil
}

// ListTrusterSessions returns sessions whose credentials derive from a
// parent: explicitly AWS_TRUSTER typed, or any account with Parent set.
func (r *Registry) ListTrusterSessions() ([]workspace.Session, error) {
	sessions, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []workspace.Session
	for _, sess := range sessions {
		if sess.Account.IsTruster() {
			out = append(out, sess)
		}
	}
	return out, nil
}

// ParentSession resolves the parent of a truster session.
func (r *Registry) ParentSession(sess workspace.Session) (*workspace.Session, error) {
	if sess.Account.Parent == "" {
		return nil, &cwerrors.NotFoundError{Kind: "session", ID: ""}
	}
	return r.Get(sess.Account.Parent)
}

// ChildSessions returns every session whose account points at id as parent.
func (r *Registry) ChildSessions(id string) ([]workspace.Session, error) {
	sessions, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []workspace.Session
	for _, sess := range sessions {
		if sess.Account.Parent == id {
			out = append(out, sess)
		}
	}
	return out, nil
}

// AddProfile adds a named profile if no profile with that name exists, and
// returns the resulting profile either way.
func (r *Registry) AddProfile(name string) (workspace.Profile, error) {
	ws, err := r.store.Load()
	if err != nil {
		return workspace.Profile{}, fmt.Errorf("add profile: %w", err)
	}
	id, created := ws.EnsureProfile(name)
	if created {
		if err := r.store.Save(ws); err != nil {
			return workspace.Profile{}, fmt.Errorf("add profile: %w", err)
		}
	}
	return *ws.ProfileByID(id), nil
}

// ReplaceAllProfileID re-points every session on profile oldID to newID.
// Active re-pointed sessions are stopped and the old profile's entry is
// scrubbed from the credential sink.
func (r *Registry) ReplaceAllProfileID(oldID, newID string) error {
	ws, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}

	oldName := oldID
	if p := ws.ProfileByID(oldID); p != nil {
		oldName = p.Name
	}

	stamp := r.now()
	stopped := false
	for i := range ws.Sessions {
		sess := &ws.Sessions[i]
		if sess.Profile != oldID {
			continue
		}
		sess.Profile = newID
		if sess.Active {
			sess.Active = false
			sess.Loading = false
			sess.LastStopDate = stamp
			stopped = true
		}
	}

	if err := r.store.Save(ws); err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}

	if stopped && r.sink != nil {
		if err := r.sink.RemoveProfile(oldName); err != nil {
			return fmt.Errorf("replace profile: scrub sink: %w", err)
		}
	}
	return nil
}

// InvalidateSessionToken deletes the cached session-token secrets for a
// session so the next refresh generates fresh credentials. Plain accounts
// own plain-account-* keys; trusters with a plain parent own
// truster-account-* keys.
func (r *Registry) InvalidateSessionToken(sess workspace.Session) error {
	switch {
	case sess.Account.Type == workspace.AccountTypeAWSPlainUser:
		return r.deleteSecrets(
			keychain.PlainSessionTokenExpirationKey(sess.Account.AccountName),
			keychain.PlainSessionTokenKey(sess.Account.AccountName),
			keychain.SSMDataKey(sess.Profile),
		)

	case sess.Account.Type == workspace.AccountTypeAWSTruster,
		sess.Account.Type == workspace.AccountTypeAWS && sess.Account.Parent != "":
		if sess.Account.Parent == "" {
			return nil
		}
		parent, err := r.Get(sess.Account.Parent)
		if err != nil {
			return err
		}
		if parent.Account.Type != workspace.AccountTypeAWSPlainUser {
			return nil
		}
		return r.deleteSecrets(
			keychain.TrusterSessionTokenExpirationKey(sess.Account.AccountName),
			keychain.TrusterSessionTokenKey(sess.Account.AccountName),
			keychain.SSMDataKey(sess.Profile),
		)
	}
	return nil
}

func (r *Registry) deleteSecrets(keys ...string) error {
	for _, key := range keys {
		if err := r.keychain.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Sweep removes truster sessions whose parent no longer resolves and
// persists the result. It returns the removed sessions.
func (r *Registry) Sweep() ([]workspace.Session, error) {
	ws, err := r.store.Load()
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sweep trusters: %w", err)
	}
	removed := SweepDanglingTrusters(ws)
	if len(removed) == 0 {
		return nil, nil
	}
	for _, sess := range removed {
		r.logger.Warn("dropping truster session %s: parent %s no longer exists", sess.ID, sess.Account.Parent)
	}
	if err := r.store.Save(ws); err != nil {
		return nil, fmt.Errorf("sweep trusters: %w", err)
	}
	return removed, nil
}

// SweepDanglingTrusters removes, in place, every truster session whose
// parent id does not resolve to an existing session. Returns the removed
// sessions.
func SweepDanglingTrusters(ws *workspace.Workspace) []workspace.Session {
	ids := make(map[string]bool, len(ws.Sessions))
	for _, sess := range ws.Sessions {
		ids[sess.ID] = true
	}

	var kept, removed []workspace.Session
	for _, sess := range ws.Sessions {
		if sess.Account.IsTruster() && sess.Account.Parent != "" && !ids[sess.Account.Parent] {
			removed = append(removed, sess)
			continue
		}
		kept = append(kept, sess)
	}
	if len(removed) > 0 {
		ws.Sessions = kept
	}
	return removed
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// OrderByStopTime orders sessions by lastStopDate descending, most recently
// stopped first. The sort is stable so ties keep their relative order.
func OrderByStopTime(sessions []workspace.Session) []workspace.Session {
	out := append([]workspace.Session(nil), sessions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastStopDate.After(out[j].LastStopDate)
	})
	return out
}
