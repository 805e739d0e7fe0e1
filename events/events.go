// Package events fans domain events out to local listeners and, when configured, a message broker.
package events

import (
	"context"
	"time"
)

// Event types published after successful mutations.
const (
	PostCreated    = "post.created"
	PostLiked      = "post.liked"
	PostUnliked    = "post.unliked"
	PostShared     = "post.shared"
	PostFlagged    = "post.flagged"
	PostApproved   = "post.approved"
	PostRemoved    = "post.removed"
	CommentCreated = "comment.created"
	UserVerified   = "user.verified"
	UserSuspended  = "user.suspended"
)

// Event is the broker-agnostic payload.
type Event struct {
	Type     string         `json:"type"`
	ActorID  string         `json:"actor_id"`
	TargetID string         `json:"target_id"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

// Publisher accepts events. Implementations never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Message is what a Backend delivers to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend is the broker surface the bus needs.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}
