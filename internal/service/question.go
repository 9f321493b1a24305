package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/id"
	"github.com/devoverflow/overflow-server/internal/reconcile"
	"github.com/devoverflow/overflow-server/internal/store"
	"github.com/devoverflow/overflow-server/internal/validation"
)

// QuestionIndexer refreshes one question's search document from the store.
type QuestionIndexer interface {
	IndexQuestion(ctx context.Context, questionID string)
}

// QuestionIndex is the secondary full-text index over questions.
type QuestionIndex interface {
	QuestionIndexer
	MatchingIDs(ctx context.Context, query string) ([]string, error)
}

// QuestionFilter selects and orders a question listing.
type QuestionFilter struct {
	Query string // full-text filter, empty for none
	TagID string // only questions linked to this tag
	Sort  domain.QuestionSort
	store.PaginationParams
}

// QuestionService creates, edits and lists questions.
type QuestionService struct {
	runner    *Runner
	views     *cache.Views
	validator *validation.Validator
	index     QuestionIndex
	logger    *slog.Logger
}

// NewQuestionService creates a new question service. index may be nil, in
// which case text queries are rejected.
func NewQuestionService(runner *Runner, views *cache.Views, validator *validation.Validator, index QuestionIndex, logger *slog.Logger) *QuestionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QuestionService{
		runner:    runner,
		views:     views,
		validator: validator,
		index:     index,
		logger:    logger,
	}
}

// Create stores a new question together with its tags and links in one
// batch and returns the question id.
func (s *QuestionService) Create(ctx context.Context, authorID string, in domain.QuestionInput) (string, error) {
	if err := s.runner.Admit(authorID); err != nil {
		return "", err
	}
	if err := s.validator.Validate(in); err != nil {
		return "", err
	}

	questionID, err := id.Generate(id.PrefixQuestion)
	if err != nil {
		return "", err
	}

	plan, err := reconcile.Build(ctx, s.runner.Reader(), questionID, in.Tags, nil)
	if err != nil {
		return "", err
	}

	ops := make([]store.Op, 0, 1+len(plan.Ops))
	ops = append(ops, store.Create(store.Questions, questionID, map[string]any{
		"author_id": authorID,
		"title":     in.Title,
		"content":   in.Content,
	}, ownerPermissions(authorID)...))
	ops = append(ops, plan.Ops...)

	if err := s.runner.Run(ctx, cache.CreateQuestion, cache.Affected{QuestionID: questionID, UserID: authorID}, ops); err != nil {
		return "", err
	}

	reindexQuestion(ctx, s.index, questionID)
	return questionID, nil
}

// Update edits a question's title, content and tags. Only the author may
// edit; anyone else is refused before a batch is opened.
func (s *QuestionService) Update(ctx context.Context, editorID, questionID string, in domain.QuestionInput) (string, error) {
	if err := s.runner.Admit(editorID); err != nil {
		return "", err
	}
	if err := s.validator.Validate(in); err != nil {
		return "", err
	}

	reader := s.runner.Reader()
	rec, err := reader.Get(ctx, store.Questions, questionID, "author_id")
	if errors.Is(err, store.ErrNotFound) {
		return "", domainerrors.NotFoundf("question %s not found", questionID)
	}
	if err != nil {
		return "", err
	}
	if rec.String("author_id") != editorID {
		return "", domainerrors.Forbidden("only the author can edit this question")
	}

	links, err := reconcile.LoadLinks(ctx, reader, questionID)
	if err != nil {
		return "", err
	}
	plan, err := reconcile.Build(ctx, reader, questionID, in.Tags, links)
	if err != nil {
		return "", err
	}

	ops := make([]store.Op, 0, len(plan.Ops)+1)
	ops = append(ops, plan.Ops...)
	ops = append(ops, store.Update(store.Questions, questionID, map[string]any{
		"title":   in.Title,
		"content": in.Content,
	}))

	affected := cache.Affected{QuestionID: questionID, UserID: editorID, TagsChanged: plan.Changed()}
	if err := s.runner.Run(ctx, cache.UpdateQuestion, affected, ops); err != nil {
		return "", err
	}

	reindexQuestion(ctx, s.index, questionID)
	return questionID, nil
}

// RecordView counts one view of a question. Views are anonymous.
func (s *QuestionService) RecordView(ctx context.Context, questionID string) error {
	if questionID == "" {
		return domainerrors.Validation("question id is required")
	}
	return s.runner.Run(ctx, cache.RecordView, cache.Affected{QuestionID: questionID}, []store.Op{
		store.Increment(store.Questions, questionID, "views", 1),
	})
}

// QuestionDetail is a question's detail view. A read that failed for any
// reason other than a missing question carries Error and no question.
type QuestionDetail struct {
	*domain.Question
	Error string `json:"error,omitempty"`
}

// Get returns a question with its tags. A missing question is an error;
// other read failures degrade to an empty detail.
func (s *QuestionService) Get(ctx context.Context, questionID string) (QuestionDetail, error) {
	q, err := s.get(ctx, questionID)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return QuestionDetail{}, err
	}
	if err != nil {
		s.logger.Error("question read failed", "question_id", questionID, "error", err)
		return QuestionDetail{Error: "could not load question"}, nil
	}
	return QuestionDetail{Question: q}, nil
}

func (s *QuestionService) get(ctx context.Context, questionID string) (*domain.Question, error) {
	key := cache.Key("question", questionID)
	return cache.Read(ctx, s.views, key, []cache.Tag{cache.QuestionDetails(questionID)},
		func(ctx context.Context) (*domain.Question, error) {
			reader := s.runner.Reader()
			rec, err := reader.Get(ctx, store.Questions, questionID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.NotFoundf("question %s not found", questionID)
			}
			if err != nil {
				return nil, err
			}
			q := questionFromRecord(rec)
			if err := attachTags(ctx, reader, []*domain.Question{q}); err != nil {
				return nil, err
			}
			return q, nil
		})
}

// List returns one page of questions. Read failures degrade to an empty
// page; only an invalid filter is an error.
func (s *QuestionService) List(ctx context.Context, f QuestionFilter) (ListResult[*domain.Question], error) {
	f.PaginationParams.Validate()
	if f.Sort == "" {
		f.Sort = domain.QuestionSortNewest
	}
	order, err := questionOrder(f.Sort)
	if err != nil {
		return ListResult[*domain.Question]{}, err
	}
	if f.Query != "" && s.index == nil {
		return ListResult[*domain.Question]{}, domainerrors.Validation("text search is not available")
	}

	key := cache.Key("questions", f.Query, f.TagID, f.Sort, f.Page, f.PageSize)
	res, err := cache.Read(ctx, s.views, key, []cache.Tag{cache.QuestionList()},
		func(ctx context.Context) (ListResult[*domain.Question], error) {
			return s.list(ctx, f, order)
		})
	if err != nil {
		return degraded[*domain.Question](s.logger, "questions", f.PaginationParams, err), nil
	}
	return res, nil
}

func (s *QuestionService) list(ctx context.Context, f QuestionFilter, order []store.Order) (ListResult[*domain.Question], error) {
	reader := s.runner.Reader()

	var filters []store.Filter
	if f.Query != "" {
		ids, err := s.index.MatchingIDs(ctx, f.Query)
		if err != nil {
			return ListResult[*domain.Question]{}, err
		}
		filters = append(filters, store.In("id", ids...))
	}
	if f.TagID != "" {
		links, err := reader.List(ctx, store.QuestionTags, store.Query{
			Filters:    []store.Filter{store.Eq("tag_id", f.TagID)},
			Projection: []string{"question_id"},
		})
		if err != nil {
			return ListResult[*domain.Question]{}, err
		}
		ids := make([]string, len(links))
		for i, l := range links {
			ids[i] = l.String("question_id")
		}
		filters = append(filters, store.In("id", ids...))
	}
	if f.Sort == domain.QuestionSortUnanswered {
		filters = append(filters, store.Eq("answers", 0))
	}

	total, err := reader.Count(ctx, store.Questions, filters...)
	if err != nil {
		return ListResult[*domain.Question]{}, err
	}

	recs, err := reader.List(ctx, store.Questions, store.Query{
		Filters: filters,
		OrderBy: order,
		Limit:   f.PageSize,
		Offset:  f.Offset(),
	})
	if err != nil {
		return ListResult[*domain.Question]{}, err
	}

	questions := make([]*domain.Question, len(recs))
	for i, rec := range recs {
		questions[i] = questionFromRecord(rec)
	}
	if err := attachTags(ctx, reader, questions); err != nil {
		return ListResult[*domain.Question]{}, err
	}
	return page(questions, f.PaginationParams, total), nil
}

func questionOrder(sort domain.QuestionSort) ([]store.Order, error) {
	switch sort {
	case domain.QuestionSortNewest, domain.QuestionSortUnanswered:
		return []store.Order{store.Desc("created_at"), store.Desc("id")}, nil
	case domain.QuestionSortPopular:
		return []store.Order{store.Desc("upvotes"), store.Desc("answers"), store.Desc("created_at")}, nil
	default:
		return nil, domainerrors.Validationf("unknown sort %q", sort)
	}
}

// reindexQuestion refreshes the search document after a committed change
// to the question's text or counters. The request may already be done.
func reindexQuestion(ctx context.Context, index QuestionIndexer, questionID string) {
	if index == nil {
		return
	}
	index.IndexQuestion(context.WithoutCancel(ctx), questionID)
}
