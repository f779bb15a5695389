package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth flows. Handlers map these onto the API error
// envelope; anything else is treated as an internal storage failure.
var (
	// ErrInvalidCredentials covers bad passwords and rejected social
	// handshakes. Deliberately uniform so callers cannot probe accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers absent, expired, revoked and mismatched-owner
	// refresh tokens. Deliberately indistinguishable from each other.
	ErrInvalidToken = errors.New("token invalid or expired")

	// ErrUnauthorized is returned by Authenticate for any token that fails
	// signature, ledger or user checks.
	ErrUnauthorized = errors.New("unauthorized")

	ErrUserDisabled = errors.New("user is disabled")
	ErrEmailTaken   = errors.New("an account with this email already exists")
)

// AccountConflictError reports a social login that resolved to an email
// already bound to a different auth method. ExistingMethod names the method
// generically ("password account", "another social provider") without leaking
// which provider it is.
type AccountConflictError struct {
	ExistingMethod string
}

func (e *AccountConflictError) Error() string {
	return fmt.Sprintf("this email is already linked to a %s", e.ExistingMethod)
}
