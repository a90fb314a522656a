// Package errors defines the error taxonomy for session and credential
// operations. Errors that callers need to branch on (timed-out device
// authorizations, registry lookup misses, rolled-back multi-step operations)
// are typed structs; everything else is wrapped with operation context.
package errors

import (
	"errors"
	"fmt"
)

// RegistrationError indicates that OAuth client registration against the
// SSO OIDC endpoint failed. Registration is never retried.
type RegistrationError struct {
	Region string
	Err    error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("SSO client registration failed in region %s: %v", e.Region, e.Err)
	}
	return fmt.Sprintf("SSO client registration failed in region %s: empty response", e.Region)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// DeviceAuthorizationError indicates that starting the device authorization
// failed, or that the endpoint returned an unusable response.
type DeviceAuthorizationError struct {
	PortalURL string
	Err       error
}

func (e *DeviceAuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("SSO device authorization failed for %s: %v", e.PortalURL, e.Err)
	}
	return fmt.Sprintf("SSO device authorization failed for %s: empty response", e.PortalURL)
}

func (e *DeviceAuthorizationError) Unwrap() error {
	return e.Err
}

// TokenError indicates a token creation failure that is not an exhausted
// approval wait: a transport error, a denied authorization, or any other
// API failure during polling.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("SSO token creation failed: %v", e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// SessionTimedOutError indicates the user never approved the device
// authorization within the polling budget. Callers distinguish it from
// TokenError: the remedy is asking the user to log in again, not checking
// the network.
type SessionTimedOutError struct {
	Attempts int
}

func (e *SessionTimedOutError) Error() string {
	return fmt.Sprintf("SSO session timed out after %d polling attempts", e.Attempts)
}

// SecretStoreError wraps a failure to read, write or delete a secret.
type SecretStoreError struct {
	Op  string // "get", "set", "delete"
	Key string
	Err error
}

func (e *SecretStoreError) Error() string {
	return fmt.Sprintf("secret store %s error for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *SecretStoreError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a registry lookup miss.
type NotFoundError struct {
	Kind string // "session", "profile"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// PartialFailureError is returned when a multi-step operation failed partway
// and its already-applied state changes were rolled back. Rolled reports
// whether the rollback itself succeeded.
type PartialFailureError struct {
	Op     string
	Rolled bool
	Err    error
}

func (e *PartialFailureError) Error() string {
	if e.Rolled {
		return fmt.Sprintf("%s failed and was rolled back: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed and rollback was incomplete: %v", e.Op, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a registry lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsSessionTimedOut reports whether err is an exhausted device-flow poll.
func IsSessionTimedOut(err error) bool {
	var to *SessionTimedOutError
	return errors.As(err, &to)
}
