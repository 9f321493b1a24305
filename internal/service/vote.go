package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/id"
	"github.com/devoverflow/overflow-server/internal/store"
	"github.com/devoverflow/overflow-server/internal/vote"
)

// VoteResult reports a successful vote and the voter's standing after it.
type VoteResult struct {
	Success bool `json:"success"`
	domain.VoteState
}

// VoteService casts votes on questions and answers.
type VoteService struct {
	runner *Runner
	index  QuestionIndexer
	logger *slog.Logger
}

// NewVoteService creates a new vote service. index may be nil; when set,
// question votes refresh the question's search document.
func NewVoteService(runner *Runner, index QuestionIndexer, logger *slog.Logger) *VoteService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &VoteService{runner: runner, index: index, logger: logger}
}

// Upvote applies an upvote request: it creates, toggles off, or flips the
// voter's vote on the target.
func (s *VoteService) Upvote(ctx context.Context, kind domain.TargetKind, targetID, voterID string) (VoteResult, error) {
	return s.cast(ctx, vote.Target{Kind: kind, ID: targetID}, voterID, vote.Up)
}

// Downvote is Upvote with the opposite polarity.
func (s *VoteService) Downvote(ctx context.Context, kind domain.TargetKind, targetID, voterID string) (VoteResult, error) {
	return s.cast(ctx, vote.Target{Kind: kind, ID: targetID}, voterID, vote.Down)
}

func (s *VoteService) cast(ctx context.Context, target vote.Target, voterID string, p vote.Polarity) (VoteResult, error) {
	if voterID == "" {
		return VoteResult{}, domainerrors.Wrap(vote.ErrNoVoter, domainerrors.CodeUnauthorized, "sign in to vote")
	}
	if err := s.runner.Admit(voterID); err != nil {
		return VoteResult{}, err
	}
	if _, err := domain.ParseTargetKind(string(target.Kind)); err != nil {
		return VoteResult{}, domainerrors.Validation(err.Error())
	}

	// Answer votes invalidate the parent question's answer listing.
	mutation := cache.VoteQuestion
	questionID := target.ID
	if target.Kind == domain.TargetAnswer {
		mutation = cache.VoteAnswer
		rec, err := s.runner.Reader().Get(ctx, store.Answers, target.ID, "question_id")
		if errors.Is(err, store.ErrNotFound) {
			return VoteResult{}, domainerrors.NotFoundf("answer %s not found", target.ID)
		}
		if err != nil {
			return VoteResult{}, err
		}
		questionID = rec.String("question_id")
	}

	existing, err := vote.Lookup(ctx, s.runner.Reader(), voterID, target)
	if err != nil {
		return VoteResult{}, err
	}

	outcome := vote.Transition(vote.StateOf(existing), p)

	var voteID string
	if existing != nil {
		voteID = existing.ID
	} else {
		voteID, err = id.Generate(id.PrefixVote)
		if err != nil {
			return VoteResult{}, err
		}
	}

	affected := cache.Affected{QuestionID: questionID, UserID: voterID}
	if err := s.runner.Run(ctx, mutation, affected, outcome.Ops(voteID, voterID, target)); err != nil {
		return VoteResult{}, err
	}
	if target.Kind == domain.TargetQuestion {
		reindexQuestion(ctx, s.index, questionID)
	}

	s.logger.Debug("vote applied",
		"target_type", target.Kind,
		"target_id", target.ID,
		"from", outcome.From,
		"to", outcome.To,
		"net", outcome.Net())

	return VoteResult{Success: true, VoteState: stateView(outcome.To)}, nil
}

// State returns the voter's current standing on a target.
func (s *VoteService) State(ctx context.Context, kind domain.TargetKind, targetID, voterID string) (domain.VoteState, error) {
	if voterID == "" {
		return domain.VoteState{}, domainerrors.Wrap(vote.ErrNoVoter, domainerrors.CodeUnauthorized, "sign in to see your vote")
	}
	existing, err := vote.Lookup(ctx, s.runner.Reader(), voterID, vote.Target{Kind: kind, ID: targetID})
	if err != nil {
		return domain.VoteState{}, err
	}
	return stateView(vote.StateOf(existing)), nil
}

func stateView(st vote.State) domain.VoteState {
	return domain.VoteState{
		HasUpvoted:   st == vote.Upvoted,
		HasDownvoted: st == vote.Downvoted,
	}
}
