package api

import (
	"github.com/devoverflow/overflow-server/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Questions   *service.QuestionService
	Answers     *service.AnswerService
	Votes       *service.VoteService
	Collections *service.CollectionService
	Tags        *service.TagService
	Search      *service.SearchService
}
