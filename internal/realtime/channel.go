// Package realtime carries "something changed" notifications between active
// sessions of the same user. Delivery is best-effort and at-most-once with no
// ordering guarantee; correctness never depends on a message arriving, only
// on the orchestrator's periodic sync.
package realtime

import (
	"context"
	"time"

	"alcyxob/mindtrack-app/internal/domain"
)

// Kind distinguishes the two message shapes on the channel.
type Kind string

const (
	// KindFullSync tells other sessions to pull-and-merge from the remote
	// store now.
	KindFullSync Kind = "full_sync"

	// KindPartial carries an inline progress snapshot to merge directly,
	// skipping the round-trip fetch.
	KindPartial Kind = "partial"
)

// Message is the wire format broadcast on a per-owner channel. SessionID
// identifies the publishing session so receivers can ignore their own echo.
type Message struct {
	Kind      Kind                 `json:"kind"`
	OwnerID   string               `json:"ownerId"`
	SessionID string               `json:"sessionId"`
	SentAt    time.Time            `json:"sentAt"`
	Payload   *domain.UserProgress `json:"payload,omitempty"`
}

// Subscription is a handle to an active subscription.
type Subscription interface {
	Unsubscribe()
}

// Channel is the per-user publish/subscribe contract.
//
// Connected reports whether the underlying transport currently has a live
// connection; the orchestrator polls the remote store more aggressively
// while it is false.
type Channel interface {
	Subscribe(ctx context.Context, ownerID string, onMessage func(Message)) (Subscription, error)
	Publish(ctx context.Context, ownerID string, msg Message) error
	Connected() bool
}

// NoopChannel is used for anonymous/local-only sessions: nothing is ever
// delivered and Connected is always false, which pushes the orchestrator
// onto its fallback polling path.
type NoopChannel struct{}

var _ Channel = NoopChannel{}

func (NoopChannel) Subscribe(ctx context.Context, ownerID string, onMessage func(Message)) (Subscription, error) {
	return noopSubscription{}, nil
}

func (NoopChannel) Publish(ctx context.Context, ownerID string, msg Message) error {
	return nil
}

func (NoopChannel) Connected() bool {
	return false
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
