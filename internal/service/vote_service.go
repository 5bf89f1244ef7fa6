package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tally/voteboard/internal/event"
	"tally/voteboard/internal/metrics"
	"tally/voteboard/internal/model"
	"tally/voteboard/internal/repository"
)

type VoteService interface {
	GetStatus(ctx context.Context) (*model.VoteRecord, error)
	Upvote(ctx context.Context) (*model.VoteRecord, error)
	Downvote(ctx context.Context) (*model.VoteRecord, error)
	ResetCounts(ctx context.Context) (*model.VoteRecord, error)
	// SetVotingActive fails with ErrInvalidArgument when active is nil.
	SetVotingActive(ctx context.Context, active *bool) (*model.VoteRecord, error)
}

type voteService struct {
	store     repository.VoteStore
	publisher event.VotePublisher
	metrics   *metrics.VoteMetrics
	logger    *zap.Logger
}

// NewVoteService wires the business rules on top of store. publisher and
// voteMetrics may be nil.
func NewVoteService(
	store repository.VoteStore,
	publisher event.VotePublisher,
	voteMetrics *metrics.VoteMetrics,
	logger *zap.Logger,
) VoteService {
	if publisher == nil {
		publisher = event.NewNoopPublisher()
	}
	return &voteService{
		store:     store,
		publisher: publisher,
		metrics:   voteMetrics,
		logger:    logger,
	}
}

func (s *voteService) GetStatus(ctx context.Context) (*model.VoteRecord, error) {
	defer s.metrics.ObserveStoreOp("read", time.Now())
	return s.store.Read(ctx)
}

func (s *voteService) Upvote(ctx context.Context) (*model.VoteRecord, error) {
	return s.cast(ctx, model.VoteFieldUpvotes, event.TypeUpvote)
}

func (s *voteService) Downvote(ctx context.Context) (*model.VoteRecord, error) {
	return s.cast(ctx, model.VoteFieldDownvotes, event.TypeDownvote)
}

// cast checks the flag, then asks the store to increment. The two steps are
// separate store calls: a disable that commits between them lets this one
// increment through. The counters themselves never lose an update.
func (s *voteService) cast(ctx context.Context, field model.VoteField, evtType event.VoteEventType) (*model.VoteRecord, error) {
	current, err := s.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !current.IsVotingActive {
		s.metrics.VoteRejected(string(evtType))
		s.logger.Debug("vote rejected, voting disabled", zap.String("direction", string(evtType)))
		return nil, ErrVotingDisabled
	}

	start := time.Now()
	rec, err := s.store.ApplyDelta(ctx, field)
	s.metrics.ObserveStoreOp("apply_delta", start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", evtType, err)
	}

	s.metrics.VoteAccepted(string(evtType))
	s.publish(ctx, evtType, rec)
	return rec, nil
}

func (s *voteService) ResetCounts(ctx context.Context) (*model.VoteRecord, error) {
	start := time.Now()
	rec, err := s.store.Reset(ctx)
	s.metrics.ObserveStoreOp("reset", start)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	s.metrics.Reset()
	s.logger.Info("vote counts reset")
	s.publish(ctx, event.TypeReset, rec)
	return rec, nil
}

func (s *voteService) SetVotingActive(ctx context.Context, active *bool) (*model.VoteRecord, error) {
	if active == nil {
		return nil, fmt.Errorf("%w: isVotingActive must be a boolean", ErrInvalidArgument)
	}

	start := time.Now()
	rec, err := s.store.SetActive(ctx, *active)
	s.metrics.ObserveStoreOp("set_active", start)
	if err != nil {
		return nil, fmt.Errorf("set voting active: %w", err)
	}

	s.metrics.Toggle(*active)
	s.logger.Info("voting flag changed", zap.Bool("is_voting_active", rec.IsVotingActive))
	s.publish(ctx, event.TypeToggle, rec)
	return rec, nil
}

func (s *voteService) publish(ctx context.Context, evtType event.VoteEventType, rec *model.VoteRecord) {
	evt := event.VoteEvent{
		Type:           evtType,
		Upvotes:        rec.Upvotes,
		Downvotes:      rec.Downvotes,
		IsVotingActive: rec.IsVotingActive,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish vote event",
			zap.String("type", string(evtType)), zap.Error(err))
	}
}

// ensure voteService implements VoteService
var _ VoteService = (*voteService)(nil)
