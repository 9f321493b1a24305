package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/store"
)

// TagService lists tags and the questions under them. Tags are global and
// only ever written by question mutations through the reconciler.
type TagService struct {
	runner    *Runner
	views     *cache.Views
	questions *QuestionService
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(runner *Runner, views *cache.Views, questions *QuestionService, logger *slog.Logger) *TagService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TagService{runner: runner, views: views, questions: questions, logger: logger}
}

// ListTags returns one page of tags.
func (s *TagService) ListTags(ctx context.Context, sort domain.TagSort, p store.PaginationParams) (ListResult[*domain.Tag], error) {
	p.Validate()
	if sort == "" {
		sort = domain.TagSortPopular
	}
	var order []store.Order
	switch sort {
	case domain.TagSortPopular:
		order = []store.Order{store.Desc("questions"), store.Asc("title")}
	case domain.TagSortName:
		order = []store.Order{store.Asc("title")}
	case domain.TagSortRecent:
		order = []store.Order{store.Desc("created_at"), store.Asc("title")}
	default:
		return ListResult[*domain.Tag]{}, domainerrors.Validationf("unknown sort %q", sort)
	}

	key := cache.Key("tags", sort, p.Page, p.PageSize)
	res, err := cache.Read(ctx, s.views, key, []cache.Tag{cache.TagsList()},
		func(ctx context.Context) (ListResult[*domain.Tag], error) {
			reader := s.runner.Reader()
			total, err := reader.Count(ctx, store.Tags)
			if err != nil {
				return ListResult[*domain.Tag]{}, err
			}
			recs, err := reader.List(ctx, store.Tags, store.Query{
				OrderBy: order,
				Limit:   p.PageSize,
				Offset:  p.Offset(),
			})
			if err != nil {
				return ListResult[*domain.Tag]{}, err
			}
			tags := make([]*domain.Tag, len(recs))
			for i, rec := range recs {
				tags[i] = tagFromRecord(rec)
			}
			return page(tags, p, total), nil
		})
	if err != nil {
		return degraded[*domain.Tag](s.logger, "tags", p, err), nil
	}
	return res, nil
}

// GetTag returns one tag.
func (s *TagService) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	rec, err := s.runner.Reader().Get(ctx, store.Tags, tagID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("tag %s not found", tagID)
	}
	if err != nil {
		return nil, err
	}
	return tagFromRecord(rec), nil
}

// ListTagQuestions returns the tag and one page of its questions.
func (s *TagService) ListTagQuestions(ctx context.Context, tagID string, f QuestionFilter) (*domain.Tag, ListResult[*domain.Question], error) {
	tag, err := s.GetTag(ctx, tagID)
	if err != nil {
		return nil, ListResult[*domain.Question]{}, err
	}
	f.TagID = tag.ID
	questions, err := s.questions.List(ctx, f)
	if err != nil {
		return nil, ListResult[*domain.Question]{}, err
	}
	return tag, questions, nil
}
