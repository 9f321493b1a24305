package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/service"
	"github.com/devoverflow/overflow-server/internal/store"
)

func (s *Server) registerQuestionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createQuestion",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/questions",
		Summary:       "Ask a question",
		Description:   "Creates a question with 1-3 tags. Unknown tags are created; known tags gain one usage.",
		Tags:          []string{"Questions"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateQuestion",
		Method:      http.MethodPatch,
		Path:        apiPrefix + "/questions/{id}",
		Summary:     "Edit a question",
		Description: "Replaces title, content and tags. Only the author may edit.",
		Tags:        []string{"Questions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "listQuestions",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/questions",
		Summary:     "List questions",
		Description: "Returns one page of questions, optionally filtered by text or tag.",
		Tags:        []string{"Questions"},
	}, s.handleListQuestions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getQuestion",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/questions/{id}",
		Summary:     "Get question",
		Tags:        []string{"Questions"},
	}, s.handleGetQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "recordQuestionView",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/questions/{id}/views",
		Summary:     "Count a view",
		Tags:        []string{"Questions"},
		Middlewares: huma.Middlewares{s.limitByIP},
	}, s.handleRecordView)
}

// === DTOs ===

// QuestionRequest is the request body for creating or editing a question.
type QuestionRequest struct {
	Title   string   `json:"title" doc:"Question title, 5-100 characters"`
	Content string   `json:"content" doc:"Question body"`
	Tags    []string `json:"tags" doc:"1-3 tag titles, each at most 15 characters"`
}

func (r QuestionRequest) input() domain.QuestionInput {
	return domain.QuestionInput{Title: r.Title, Content: r.Content, Tags: r.Tags}
}

// CreateQuestionInput wraps the create question request for Huma.
type CreateQuestionInput struct {
	Body QuestionRequest
}

// UpdateQuestionInput wraps the update question request for Huma.
type UpdateQuestionInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body QuestionRequest
}

// IDResponse carries the id of a created or edited record.
type IDResponse struct {
	ID string `json:"id" doc:"Record ID"`
}

// IDOutput wraps IDResponse for Huma.
type IDOutput struct {
	Body IDResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// ListQuestionsInput contains parameters for listing questions.
type ListQuestionsInput struct {
	Query    string `query:"query" doc:"Full-text filter"`
	Tag      string `query:"tag" doc:"Only questions with this tag ID"`
	Filter   string `query:"filter" doc:"newest, unanswered or popular (default newest)"`
	Page     int    `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	PageSize int    `query:"page_size" default:"10" minimum:"1" maximum:"100" doc:"Items per page"`
}

func (in *ListQuestionsInput) filter() service.QuestionFilter {
	return service.QuestionFilter{
		Query:            in.Query,
		TagID:            in.Tag,
		Sort:             domain.QuestionSort(in.Filter),
		PaginationParams: pagination(in.Page, in.PageSize),
	}
}

// QuestionListOutput wraps a page of questions for Huma.
type QuestionListOutput struct {
	Body service.ListResult[*domain.Question]
}

// QuestionPathInput addresses one question.
type QuestionPathInput struct {
	ID string `path:"id" doc:"Question ID"`
}

// QuestionOutput wraps a question for Huma.
type QuestionOutput struct {
	Body service.QuestionDetail
}

// === Handlers ===

func (s *Server) handleCreateQuestion(ctx context.Context, input *CreateQuestionInput) (*IDOutput, error) {
	questionID, err := s.services.Questions.Create(ctx, UserID(ctx), input.Body.input())
	if err != nil {
		return nil, s.fail("createQuestion", err)
	}
	return &IDOutput{Body: IDResponse{ID: questionID}}, nil
}

func (s *Server) handleUpdateQuestion(ctx context.Context, input *UpdateQuestionInput) (*IDOutput, error) {
	questionID, err := s.services.Questions.Update(ctx, UserID(ctx), input.ID, input.Body.input())
	if err != nil {
		return nil, s.fail("updateQuestion", err)
	}
	return &IDOutput{Body: IDResponse{ID: questionID}}, nil
}

func (s *Server) handleListQuestions(ctx context.Context, input *ListQuestionsInput) (*QuestionListOutput, error) {
	res, err := s.services.Questions.List(ctx, input.filter())
	if err != nil {
		return nil, s.fail("listQuestions", err)
	}
	return &QuestionListOutput{Body: res}, nil
}

func (s *Server) handleGetQuestion(ctx context.Context, input *QuestionPathInput) (*QuestionOutput, error) {
	q, err := s.services.Questions.Get(ctx, input.ID)
	if err != nil {
		return nil, s.fail("getQuestion", err)
	}
	return &QuestionOutput{Body: q}, nil
}

func (s *Server) handleRecordView(ctx context.Context, input *QuestionPathInput) (*MessageOutput, error) {
	if err := s.services.Questions.RecordView(ctx, input.ID); err != nil {
		return nil, s.fail("recordQuestionView", err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "View recorded"}}, nil
}

// pagination builds store paging from already range-checked query values.
func pagination(page, size int) store.PaginationParams {
	p := store.PaginationParams{Page: page, PageSize: min(size, maxPageSize)}
	p.Validate()
	return p
}
