package service

import (
	"context"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/id"
	"github.com/devoverflow/overflow-server/internal/store"
	"github.com/devoverflow/overflow-server/internal/validation"
)

// AnswerService posts and lists answers.
type AnswerService struct {
	runner    *Runner
	views     *cache.Views
	validator *validation.Validator
	index     QuestionIndexer
	logger    *slog.Logger
}

// NewAnswerService creates a new answer service. index may be nil.
func NewAnswerService(runner *Runner, views *cache.Views, validator *validation.Validator, index QuestionIndexer, logger *slog.Logger) *AnswerService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AnswerService{runner: runner, views: views, validator: validator, index: index, logger: logger}
}

// Answer posts an answer and bumps the question's answer count in the
// same batch. A missing question fails the batch as a referential failure.
func (s *AnswerService) Answer(ctx context.Context, authorID, questionID string, in domain.AnswerInput) (string, error) {
	if err := s.runner.Admit(authorID); err != nil {
		return "", err
	}
	if err := s.validator.Validate(in); err != nil {
		return "", err
	}
	if questionID == "" {
		return "", domainerrors.Validation("question id is required")
	}

	answerID, err := id.Generate(id.PrefixAnswer)
	if err != nil {
		return "", err
	}

	ops := []store.Op{
		store.Create(store.Answers, answerID, map[string]any{
			"author_id":   authorID,
			"question_id": questionID,
			"content":     in.Content,
		}, ownerPermissions(authorID)...),
		store.Increment(store.Questions, questionID, "answers", 1),
	}

	if err := s.runner.Run(ctx, cache.AnswerQuestion, cache.Affected{QuestionID: questionID, UserID: authorID}, ops); err != nil {
		return "", err
	}

	// The popular search order reads the indexed answer count.
	reindexQuestion(ctx, s.index, questionID)
	return answerID, nil
}

// List returns one page of a question's answers.
func (s *AnswerService) List(ctx context.Context, questionID string, sort domain.AnswerSort, p store.PaginationParams) (ListResult[*domain.Answer], error) {
	p.Validate()
	if sort == "" {
		sort = domain.AnswerSortLatest
	}
	order, err := answerOrder(sort)
	if err != nil {
		return ListResult[*domain.Answer]{}, err
	}

	key := cache.Key("answers", questionID, sort, p.Page, p.PageSize)
	res, err := cache.Read(ctx, s.views, key, []cache.Tag{cache.QuestionAnswers(questionID)},
		func(ctx context.Context) (ListResult[*domain.Answer], error) {
			reader := s.runner.Reader()
			filter := store.Eq("question_id", questionID)

			total, err := reader.Count(ctx, store.Answers, filter)
			if err != nil {
				return ListResult[*domain.Answer]{}, err
			}
			recs, err := reader.List(ctx, store.Answers, store.Query{
				Filters: []store.Filter{filter},
				OrderBy: order,
				Limit:   p.PageSize,
				Offset:  p.Offset(),
			})
			if err != nil {
				return ListResult[*domain.Answer]{}, err
			}

			answers := make([]*domain.Answer, len(recs))
			for i, rec := range recs {
				answers[i] = answerFromRecord(rec)
			}
			return page(answers, p, total), nil
		})
	if err != nil {
		return degraded[*domain.Answer](s.logger, "answers", p, err), nil
	}
	return res, nil
}

func answerOrder(sort domain.AnswerSort) ([]store.Order, error) {
	switch sort {
	case domain.AnswerSortLatest:
		return []store.Order{store.Desc("created_at"), store.Desc("id")}, nil
	case domain.AnswerSortOldest:
		return []store.Order{store.Asc("created_at"), store.Asc("id")}, nil
	case domain.AnswerSortPopular:
		return []store.Order{store.Desc("upvotes"), store.Desc("created_at")}, nil
	default:
		return nil, domainerrors.Validationf("unknown sort %q", sort)
	}
}
