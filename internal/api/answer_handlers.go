package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/service"
)

func (s *Server) registerAnswerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "answerQuestion",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/questions/{id}/answers",
		Summary:       "Answer a question",
		Description:   "Creates an answer and increments the question's answer count in the same batch.",
		Tags:          []string{"Answers"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleAnswerQuestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAnswers",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/questions/{id}/answers",
		Summary:     "List answers",
		Tags:        []string{"Answers"},
	}, s.handleListAnswers)
}

// === DTOs ===

// AnswerRequest is the request body for answering a question.
type AnswerRequest struct {
	Content string `json:"content" doc:"Answer body, at least 100 characters"`
}

// AnswerQuestionInput wraps the answer request for Huma.
type AnswerQuestionInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body AnswerRequest
}

// ListAnswersInput contains parameters for listing a question's answers.
type ListAnswersInput struct {
	ID       string `path:"id" doc:"Question ID"`
	Sort     string `query:"sort" doc:"latest, oldest or popular (default latest)"`
	Page     int    `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	PageSize int    `query:"page_size" default:"10" minimum:"1" maximum:"100" doc:"Items per page"`
}

// AnswerListOutput wraps a page of answers for Huma.
type AnswerListOutput struct {
	Body service.ListResult[*domain.Answer]
}

// === Handlers ===

func (s *Server) handleAnswerQuestion(ctx context.Context, input *AnswerQuestionInput) (*IDOutput, error) {
	answerID, err := s.services.Answers.Answer(ctx, UserID(ctx), input.ID, domain.AnswerInput{Content: input.Body.Content})
	if err != nil {
		return nil, s.fail("answerQuestion", err)
	}
	return &IDOutput{Body: IDResponse{ID: answerID}}, nil
}

func (s *Server) handleListAnswers(ctx context.Context, input *ListAnswersInput) (*AnswerListOutput, error) {
	res, err := s.services.Answers.List(ctx, input.ID, domain.AnswerSort(input.Sort), pagination(input.Page, input.PageSize))
	if err != nil {
		return nil, s.fail("listAnswers", err)
	}
	return &AnswerListOutput{Body: res}, nil
}
