package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/service"
)

func (s *Server) registerVoteRoutes() {
	for _, target := range []struct {
		kind   domain.TargetKind
		prefix string
		tag    string
	}{
		{domain.TargetQuestion, "/questions", "Question"},
		{domain.TargetAnswer, "/answers", "Answer"},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: "upvote" + target.tag,
			Method:      http.MethodPost,
			Path:        apiPrefix + target.prefix + "/{id}/upvote",
			Summary:     "Upvote " + string(target.kind),
			Description: "Casts an upvote, removes an existing upvote, or flips a downvote.",
			Tags:        []string{"Votes"},
			Security:    []map[string][]string{{"bearer": {}}},
		}, s.voteHandler(target.kind, s.services.Votes.Upvote))

		huma.Register(s.api, huma.Operation{
			OperationID: "downvote" + target.tag,
			Method:      http.MethodPost,
			Path:        apiPrefix + target.prefix + "/{id}/downvote",
			Summary:     "Downvote " + string(target.kind),
			Description: "Casts a downvote, removes an existing downvote, or flips an upvote.",
			Tags:        []string{"Votes"},
			Security:    []map[string][]string{{"bearer": {}}},
		}, s.voteHandler(target.kind, s.services.Votes.Downvote))
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "getVoteState",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/votes/{kind}/{id}",
		Summary:     "Get own vote",
		Description: "Returns whether the caller has upvoted or downvoted the target.",
		Tags:        []string{"Votes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVoteState)
}

// === DTOs ===

// VoteInput addresses the vote target.
type VoteInput struct {
	ID string `path:"id" doc:"Question or answer ID"`
}

// VoteOutput wraps the vote result for Huma.
type VoteOutput struct {
	Body service.VoteResult
}

// VoteStateInput addresses a target of either kind.
type VoteStateInput struct {
	Kind string `path:"kind" doc:"question or answer"`
	ID   string `path:"id" doc:"Target ID"`
}

// VoteStateOutput wraps the caller's vote state for Huma.
type VoteStateOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         domain.VoteState
}

type castFunc func(ctx context.Context, kind domain.TargetKind, targetID, voterID string) (service.VoteResult, error)

// === Handlers ===

func (s *Server) voteHandler(kind domain.TargetKind, cast castFunc) func(context.Context, *VoteInput) (*VoteOutput, error) {
	return func(ctx context.Context, input *VoteInput) (*VoteOutput, error) {
		res, err := cast(ctx, kind, input.ID, UserID(ctx))
		if err != nil {
			return nil, s.fail("vote", err)
		}
		return &VoteOutput{Body: res}, nil
	}
}

func (s *Server) handleVoteState(ctx context.Context, input *VoteStateInput) (*VoteStateOutput, error) {
	kind, err := domain.ParseTargetKind(input.Kind)
	if err != nil {
		return nil, s.fail("getVoteState", domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error()))
	}
	state, err := s.services.Votes.State(ctx, kind, input.ID, UserID(ctx))
	if err != nil {
		return nil, s.fail("getVoteState", err)
	}
	return &VoteStateOutput{CacheControl: CacheNoStore, Body: state}, nil
}
