package fakes

import (
	"os"

	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

// FakeWorkspaceStore is an in-memory workspace.Store. A nil Workspace means
// no document exists and Load returns os.ErrNotExist wrapped, matching the
// file-backed store.
type FakeWorkspaceStore struct {
	Workspace *workspace.Workspace

	// LoadErr, SaveErr and ResetErr force failures when set.
	LoadErr  error
	SaveErr  error
	ResetErr error

	// SaveFunc overrides Save entirely when set.
	SaveFunc func(ws *workspace.Workspace) error

	LoadCalls  int
	SaveCalls  int
	ResetCalls int

	// Saved records every workspace passed to Save, deep-copied at call
	// time.
	Saved []*workspace.Workspace
}

// NewFakeWorkspaceStore returns an empty store with no workspace.
func NewFakeWorkspaceStore() *FakeWorkspaceStore {
	return &FakeWorkspaceStore{}
}

// Load returns a deep copy so callers cannot mutate the stored document
// without going through Save.
func (f *FakeWorkspaceStore) Load() (*workspace.Workspace, error) {
	f.LoadCalls++
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	if f.Workspace == nil {
		return nil, os.ErrNotExist
	}
	return f.Workspace.Clone(), nil
}

func (f *FakeWorkspaceStore) Save(ws *workspace.Workspace) error {
	f.SaveCalls++
	if f.SaveFunc != nil {
		return f.SaveFunc(ws)
	}
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.Workspace = ws.Clone()
	f.Saved = append(f.Saved, ws.Clone())
	return nil
}

func (f *FakeWorkspaceStore) Reset() error {
	f.ResetCalls++
	if f.ResetErr != nil {
		return f.ResetErr
	}
	f.Workspace = nil
	return nil
}
