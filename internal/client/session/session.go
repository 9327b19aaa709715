// Package session owns the client's authentication and approval state.
//
// A Manager bridges the auth service's session-changed events into one of
// four states. Approval always comes from the data store record at
// usuarios/{subject}; the auth service is never trusted for it.
//
//	Unknown -> Unauthenticated                  no active credential
//	Unknown/Unauthenticated -> PendingApproval  record missing or aprovado=false
//	Unknown/Unauthenticated -> Authenticated    aprovado=true
//	PendingApproval/Authenticated -> Unauthenticated  sign-out
package session

import (
	"context"

	"github.com/dmitrijs2005/workoutlog/internal/workout"
)

type State int

const (
	StateUnknown State = iota
	StateUnauthenticated
	StatePendingApproval
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePendingApproval:
		return "pending_approval"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is a read-only view of the manager's state.
type Session struct {
	State      State
	SubjectID  string
	Identifier string
	Approved   bool
	// Loading is true before the first auth callback and while an operation
	// is in flight.
	Loading bool
}

// Authenticator is the capability handed to the UI layer.
type Authenticator interface {
	Register(ctx context.Context, creds workout.Credentials) error
	Login(ctx context.Context, identifier, secret string) bool
	Logout(ctx context.Context)
	Current() Session
}
