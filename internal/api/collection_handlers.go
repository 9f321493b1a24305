package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/service"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "toggleSaveQuestion",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/questions/{id}/save",
		Summary:     "Save or unsave a question",
		Description: "Saves the question to the caller's collection, or removes it if already saved.",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleSave)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedQuestions",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/collections",
		Summary:     "List saved questions",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSaved)
}

// === DTOs ===

// ToggleSaveResponse reports the caller's save after the toggle.
type ToggleSaveResponse struct {
	Saved  bool    `json:"saved" doc:"Whether the question is now saved"`
	SaveID *string `json:"save_id" doc:"ID of the save, null after removal"`
}

// ToggleSaveOutput wraps the toggle response for Huma.
type ToggleSaveOutput struct {
	Body ToggleSaveResponse
}

// ListSavedInput contains paging for the caller's collection.
type ListSavedInput struct {
	Page     int `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	PageSize int `query:"page_size" default:"10" minimum:"1" maximum:"100" doc:"Items per page"`
}

// SavedListOutput wraps a page of saved questions for Huma.
type SavedListOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         service.ListResult[*domain.Question]
}

// === Handlers ===

func (s *Server) handleToggleSave(ctx context.Context, input *QuestionPathInput) (*ToggleSaveOutput, error) {
	saveID, err := s.services.Collections.ToggleSave(ctx, UserID(ctx), input.ID)
	if err != nil {
		return nil, s.fail("toggleSaveQuestion", err)
	}
	return &ToggleSaveOutput{Body: ToggleSaveResponse{Saved: saveID != nil, SaveID: saveID}}, nil
}

func (s *Server) handleListSaved(ctx context.Context, input *ListSavedInput) (*SavedListOutput, error) {
	res, err := s.services.Collections.ListSaved(ctx, UserID(ctx), pagination(input.Page, input.PageSize))
	if err != nil {
		return nil, s.fail("listSavedQuestions", err)
	}
	return &SavedListOutput{CacheControl: CacheNoStore, Body: res}, nil
}
