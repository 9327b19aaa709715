package client

import (
	"context"

	"github.com/dmitrijs2005/workoutlog/internal/api"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthService issues and validates credentials and reports session changes.
type AuthService interface {
	CreateCredential(ctx context.Context, identifier, secret string) (subjectID string, err error)
	ValidateCredential(ctx context.Context, identifier, secret string) (subjectID string, err error)
	Invalidate(ctx context.Context, subjectID string) error

	// OnSessionChanged registers fn and calls it right away with the current
	// subject ("" when signed out), then again on every change.
	OnSessionChanged(fn func(subjectID string)) (remove func())
}

// DataStore is the hierarchical data store with live subscriptions.
type DataStore interface {
	Read(ctx context.Context, path string) (Snapshot, error)
	Write(ctx context.Context, path string, value any) error
	Append(ctx context.Context, path string, value any) (key string, err error)

	// Subscribe delivers a full snapshot of path first and then after every
	// change. Callbacks for one subscription are sequential. An error
	// callback ends the subscription.
	Subscribe(path string, fn func(Snapshot, error)) (Subscription, error)
	Unsubscribe(sub Subscription)
}

// Subscription is a handle returned by DataStore.Subscribe.
type Subscription interface {
	Path() string
	// Done is closed once no more callbacks will be made.
	Done() <-chan struct{}
}

// Snapshot is the value stored under Path at some point in time.
type Snapshot struct {
	Path  string
	Value *structpb.Value
}

// Exists reports whether anything is stored at the path.
func (s Snapshot) Exists() bool {
	return !api.IsNull(s.Value)
}

// Decode unmarshals the snapshot into dst using its json tags.
func (s Snapshot) Decode(dst any) error {
	return api.DecodeValue(s.Value, dst)
}
