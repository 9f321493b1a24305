package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/devoverflow/overflow-server/internal/search"
	"github.com/devoverflow/overflow-server/internal/util"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchQuestions",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/search",
		Summary:     "Search questions",
		Description: "Full-text search over question titles, bodies and tags with highlighted fragments",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query     string `query:"q" doc:"Search text"`
	Tag       string `query:"tag" doc:"Restrict to a tag title"`
	Sort      string `query:"sort" enum:"relevance,newest,popular" default:"relevance" doc:"Result order"`
	Limit     int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum hits"`
	Offset    int    `query:"offset" default:"0" minimum:"0" doc:"Hits to skip"`
	Highlight bool   `query:"highlight" default:"true" doc:"Return highlighted fragments"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.SearchParams{
		Query:     input.Query,
		Limit:     input.Limit,
		Offset:    input.Offset,
		SortBy:    input.Sort,
		Highlight: input.Highlight,
	}
	if input.Tag != "" {
		params.Tag = util.NormalizeTagTitle(input.Tag)
	}

	res, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, s.fail("searchQuestions", err)
	}
	return &SearchOutput{Body: res}, nil
}
