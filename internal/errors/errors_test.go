package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionTimedOutIsDistinguishable(t *testing.T) {
	t.Parallel()

	timedOut := fmt.Errorf("poll: %w", &SessionTimedOutError{Attempts: 12})
	transport := fmt.Errorf("poll: %w", &TokenError{Err: fmt.Errorf("connection reset")})

	assert.True(t, IsSessionTimedOut(timedOut))
	assert.False(t, IsSessionTimedOut(transport))
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	err := &NotFoundError{Kind: "session", ID: "abc"}
	assert.True(t, IsNotFound(fmt.Errorf("start: %w", err)))
	assert.False(t, IsNotFound(fmt.Errorf("plain failure")))
	assert.Equal(t, "session abc not found", err.Error())
}

func TestUnwrapChains(t *testing.T) {
	t.Parallel()

	root := fmt.Errorf("root cause")

	tests := []struct {
		name string
		err  error
	}{
		{"registration", &RegistrationError{Region: "us-east-1", Err: root}},
		{"device authorization", &DeviceAuthorizationError{PortalURL: "https://x.awsapps.com/start", Err: root}},
		{"token", &TokenError{Err: root}},
		{"secret store", &SecretStoreError{Op: "get", Key: "AWS_SSO_REGION", Err: root}},
		{"partial failure", &PartialFailureError{Op: "logout", Rolled: true, Err: root}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.err, root)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestPartialFailureMessageReflectsRollback(t *testing.T) {
	t.Parallel()

	rolled := &PartialFailureError{Op: "sync merge", Rolled: true, Err: fmt.Errorf("store write")}
	stuck := &PartialFailureError{Op: "sync merge", Rolled: false, Err: fmt.Errorf("store write")}

	assert.Contains(t, rolled.Error(), "rolled back")
	assert.Contains(t, stuck.Error(), "incomplete")
}
