package credentials

import (
	"github.com/cloudwarden/cloudwarden/internal/logging"
	"github.com/cloudwarden/cloudwarden/internal/workspace"
)

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

// memSink records written credentials by profile name.
type memSink struct {
	profiles    map[string]AWSCredentials
	writeErr    error
	writeCalls  []string
	removeCalls []string
}

func newMemSink() *memSink {
	return &memSink{profiles: map[string]AWSCredentials{}}
}

func (s *memSink) WriteCredentials(profileName string, creds AWSCredentials) error {
	s.writeCalls = append(s.writeCalls, profileName)
	if s.writeErr != nil {
		return s.writeErr
	}
	s.profiles[profileName] = creds
	return nil
}

func (s *memSink) RemoveProfile(profileName string) error {
	s.removeCalls = append(s.removeCalls, profileName)
	delete(s.profiles, profileName)
	return nil
}

func profiledWorkspace() *workspace.Workspace {
	ws := workspace.New()
	ws.Profiles = []workspace.Profile{{ID: "prof-id", Name: "dev"}}
	return ws
}
