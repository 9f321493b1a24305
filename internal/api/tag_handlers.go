package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/tags",
		Summary:     "List tags",
		Description: "Returns one page of tags with their question counts",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagQuestions",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/tags/{id}/questions",
		Summary:     "Get tag questions",
		Description: "Returns the tag and one page of the questions linked to it",
		Tags:        []string{"Tags"},
	}, s.handleGetTagQuestions)
}

// === DTOs ===

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	Sort     string `query:"sort" doc:"popular, name or recent (default popular)"`
	Page     int    `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	PageSize int    `query:"page_size" default:"10" minimum:"1" maximum:"100" doc:"Items per page"`
}

// ListTagsOutput wraps a page of tags for Huma.
type ListTagsOutput struct {
	Body service.ListResult[*domain.Tag]
}

// TagQuestionsInput contains parameters for a tag's question listing.
type TagQuestionsInput struct {
	ID       string `path:"id" doc:"Tag ID"`
	Query    string `query:"query" doc:"Full-text filter"`
	Filter   string `query:"filter" doc:"newest, unanswered or popular (default newest)"`
	Page     int    `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	PageSize int    `query:"page_size" default:"10" minimum:"1" maximum:"100" doc:"Items per page"`
}

// TagQuestionsResponse contains a tag and a page of its questions.
type TagQuestionsResponse struct {
	Tag       *domain.Tag                          `json:"tag" doc:"The tag"`
	Questions service.ListResult[*domain.Question] `json:"questions" doc:"Questions linked to the tag"`
}

// TagQuestionsOutput wraps the tag questions response for Huma.
type TagQuestionsOutput struct {
	Body TagQuestionsResponse
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	res, err := s.services.Tags.ListTags(ctx, domain.TagSort(input.Sort), pagination(input.Page, input.PageSize))
	if err != nil {
		return nil, s.fail("listTags", err)
	}
	return &ListTagsOutput{Body: res}, nil
}

func (s *Server) handleGetTagQuestions(ctx context.Context, input *TagQuestionsInput) (*TagQuestionsOutput, error) {
	tag, questions, err := s.services.Tags.ListTagQuestions(ctx, input.ID, service.QuestionFilter{
		Query:            input.Query,
		Sort:             domain.QuestionSort(input.Filter),
		PaginationParams: pagination(input.Page, input.PageSize),
	})
	if err != nil {
		return nil, s.fail("getTagQuestions", err)
	}
	return &TagQuestionsOutput{Body: TagQuestionsResponse{Tag: tag, Questions: questions}}, nil
}
