package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnavailable      = errors.New("service unavailable")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPath      = errors.New("invalid path")
	ErrNoActiveSession  = errors.New("no active session")

	// ErrAuth is the family of credential failures reported by the auth
	// service. Every specific credential error below matches it via errors.Is.
	ErrAuth = errors.New("auth error")

	ErrDuplicateIdentifier = &AuthError{Code: "email-already-in-use", msg: "identifier already registered"}
	ErrWeakSecret          = &AuthError{Code: "weak-password", msg: "weak secret"}
	ErrInvalidIdentifier   = &AuthError{Code: "invalid-email", msg: "invalid identifier"}
	ErrCredentialNotFound  = &AuthError{Code: "user-not-found", msg: "credential not found"}
	ErrWrongSecret         = &AuthError{Code: "wrong-password", msg: "wrong secret"}

	// ErrNotApproved is returned when a credential is valid but the owner
	// has not been approved by an administrator yet.
	ErrNotApproved = errors.New("account not approved")
)

// AuthError is a credential failure with a stable code.
type AuthError struct {
	Code string
	msg  string
}

func (e *AuthError) Error() string { return e.msg }

// Is makes every AuthError match ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// SyncError describes a failed data store operation.
type SyncError struct {
	Op   string
	Path string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
