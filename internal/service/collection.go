package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/id"
	"github.com/devoverflow/overflow-server/internal/store"
)

// CollectionService manages the questions a user has saved.
type CollectionService struct {
	runner *Runner
	views  *cache.Views
	logger *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(runner *Runner, views *cache.Views, logger *slog.Logger) *CollectionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CollectionService{runner: runner, views: views, logger: logger}
}

// ToggleSave saves the question for userID, or removes it if already
// saved. It returns the save id, or nil after a removal.
//
// Two concurrent saves race on the unique (author, question) constraint;
// the loser reports the winner's save instead of failing.
func (s *CollectionService) ToggleSave(ctx context.Context, userID, questionID string) (*string, error) {
	if err := s.runner.Admit(userID); err != nil {
		return nil, err
	}
	if questionID == "" {
		return nil, domainerrors.Validation("question id is required")
	}

	affected := cache.Affected{QuestionID: questionID, UserID: userID}

	existing, err := s.find(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		if err := s.runner.Run(ctx, cache.ToggleSave, affected, []store.Op{
			store.Delete(store.Collections, existing),
		}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	saveID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return nil, err
	}
	err = s.runner.Run(ctx, cache.ToggleSave, affected, []store.Op{
		store.Create(store.Collections, saveID, map[string]any{
			"author_id":   userID,
			"question_id": questionID,
		}),
	})
	if store.IsConstraint(err) {
		winner, findErr := s.find(ctx, userID, questionID)
		if findErr != nil {
			return nil, findErr
		}
		if winner == "" {
			return nil, err
		}
		return &winner, nil
	}
	if err != nil {
		return nil, err
	}
	return &saveID, nil
}

func (s *CollectionService) find(ctx context.Context, userID, questionID string) (string, error) {
	recs, err := s.runner.Reader().List(ctx, store.Collections, store.Query{
		Filters: []store.Filter{
			store.Eq("author_id", userID),
			store.Eq("question_id", questionID),
		},
		Projection: []string{"id"},
		Limit:      1,
	})
	if err != nil {
		return "", fmt.Errorf("find save: %w", err)
	}
	if len(recs) == 0 {
		return "", nil
	}
	return recs[0].ID(), nil
}

// ListSaved returns one page of the questions userID saved, most recently
// saved first.
func (s *CollectionService) ListSaved(ctx context.Context, userID string, p store.PaginationParams) (ListResult[*domain.Question], error) {
	if userID == "" {
		return ListResult[*domain.Question]{}, domainerrors.Unauthorized("sign in required")
	}
	p.Validate()

	key := cache.Key("saved", userID, p.Page, p.PageSize)
	tags := []cache.Tag{cache.UserCollections(userID), cache.QuestionList()}
	res, err := cache.Read(ctx, s.views, key, tags, func(ctx context.Context) (ListResult[*domain.Question], error) {
		reader := s.runner.Reader()
		filter := store.Eq("author_id", userID)

		total, err := reader.Count(ctx, store.Collections, filter)
		if err != nil {
			return ListResult[*domain.Question]{}, err
		}
		saves, err := reader.List(ctx, store.Collections, store.Query{
			Filters:    []store.Filter{filter},
			OrderBy:    []store.Order{store.Desc("created_at"), store.Desc("id")},
			Limit:      p.PageSize,
			Offset:     p.Offset(),
			Projection: []string{"question_id"},
		})
		if err != nil {
			return ListResult[*domain.Question]{}, err
		}
		if len(saves) == 0 {
			return page[*domain.Question](nil, p, total), nil
		}

		ids := make([]string, len(saves))
		for i, sv := range saves {
			ids[i] = sv.String("question_id")
		}
		recs, err := reader.List(ctx, store.Questions, store.Query{
			Filters: []store.Filter{store.In("id", ids...)},
		})
		if err != nil {
			return ListResult[*domain.Question]{}, err
		}

		byID := make(map[string]*domain.Question, len(recs))
		for _, rec := range recs {
			byID[rec.ID()] = questionFromRecord(rec)
		}
		// Keep save order.
		questions := make([]*domain.Question, 0, len(ids))
		for _, qid := range ids {
			if q, ok := byID[qid]; ok {
				questions = append(questions, q)
			}
		}
		if err := attachTags(ctx, reader, questions); err != nil {
			return ListResult[*domain.Question]{}, err
		}
		return page(questions, p, total), nil
	})
	if err != nil {
		return degraded[*domain.Question](s.logger, "saved questions", p, err), nil
	}
	return res, nil
}
