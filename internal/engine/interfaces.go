package engine

import (
	"context"
	"time"

	"github.com/osmia/marginalia/internal/model"
)

// MutationKey returns the tracker key for an entity's generation mutation.
// The format is a stable contract; external systems correlate on it.
func MutationKey(entityID string) string {
	return "comment-generate-" + entityID
}

// MutationKindCreate is the kind recorded for every generation mutation:
// generating writes a fresh annotation even when it replaces an old one.
const MutationKindCreate = "create"

// MutationTracker observes the optimistic mutation wrapped around each
// generation attempt so hosts can render sync state. Implementations must be
// safe for concurrent use and must not call back into the engine; the engine
// calls them from streaming goroutines and while holding its own lock.
type MutationTracker interface {
	// StartMutation records an optimistic mutation. proposed is the value
	// applied ahead of confirmation. Generation always records nil as the
	// prior value: every attempt writes a fresh annotation, even when it
	// replaces the slot of an earlier one.
	StartMutation(key, kind string, proposed, prior any)

	// CompleteMutation marks the mutation for key as confirmed.
	CompleteMutation(key string)

	// FailMutation marks the mutation for key as failed with its reason.
	FailMutation(key string, reason error)
}

// Notification asks the host to surface a transient, optionally actionable
// message. Duration is advisory; hosts may clamp it.
type Notification struct {
	// Action, when non-nil, is invoked if the user triggers ActionLabel.
	Action      func()
	Message     string
	ActionLabel string
	Duration    time.Duration
}

// Notifier surfaces user-facing notices. Implementations must be safe for
// concurrent use and must not block.
type Notifier interface {
	Notify(n Notification)
}

// Archive persists settled annotations. Only clean completions reach it;
// cancelled and failed attempts are never archived.
type Archive interface {
	SaveAnnotation(ctx context.Context, ann model.Annotation) error
}

type nopTracker struct{}

func (nopTracker) StartMutation(string, string, any, any) {}
func (nopTracker) CompleteMutation(string)                {}
func (nopTracker) FailMutation(string, error)             {}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
