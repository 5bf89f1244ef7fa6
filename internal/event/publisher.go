package event

import (
	"context"
	"time"
)

type VoteEventType string

const (
	TypeUpvote   VoteEventType = "upvote"
	TypeDownvote VoteEventType = "downvote"
	TypeReset    VoteEventType = "reset"
	TypeToggle   VoteEventType = "toggle"
)

// VoteEvent is emitted after a mutation has been committed to the store.
type VoteEvent struct {
	Type           VoteEventType `json:"type"`
	Upvotes        int64         `json:"upvotes"`
	Downvotes      int64         `json:"downvotes"`
	IsVotingActive bool          `json:"isVotingActive"`
	Timestamp      time.Time     `json:"timestamp"`
}

type VotePublisher interface {
	Publish(ctx context.Context, evt VoteEvent) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher is used when no event stream is configured.
func NewNoopPublisher() VotePublisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, VoteEvent) error { return nil }
func (noopPublisher) Close() error                             { return nil }
