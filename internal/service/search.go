package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/search"
	"github.com/devoverflow/overflow-server/internal/store"
)

// maxSearchMatches caps how many ranked ids a text filter hands to a
// question listing.
const maxSearchMatches = 500

// SearchService bridges the search index with the record store. The index
// is written after commit and never participates in a batch.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Reader
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, reader store.Reader, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchService{
		index:  index,
		store:  reader,
		logger: logger,
	}
}

// Search runs a full-text question search.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if params.Limit > 100 {
		return nil, domainerrors.Validation("limit must not exceed 100")
	}
	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "search unavailable")
	}
	return res, nil
}

// MatchingIDs returns the ids of questions matching query, best first.
func (s *SearchService) MatchingIDs(ctx context.Context, query string) ([]string, error) {
	res, err := s.index.Search(ctx, search.SearchParams{
		Query:  query,
		Limit:  maxSearchMatches,
		SortBy: search.SortRelevance,
	})
	if err != nil {
		return nil, err
	}
	return res.IDs(), nil
}

// IndexQuestion reindexes one question from the store. Failures are
// logged; the index catches up on the next edit or Reindex.
func (s *SearchService) IndexQuestion(ctx context.Context, questionID string) {
	if err := s.indexQuestion(ctx, questionID); err != nil {
		s.logger.Warn("failed to index question", "question_id", questionID, "error", err)
		return
	}
	s.logger.Debug("indexed question", "question_id", questionID)
}

func (s *SearchService) indexQuestion(ctx context.Context, questionID string) error {
	rec, err := s.store.Get(ctx, store.Questions, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return s.index.DeleteQuestion(questionID)
	}
	if err != nil {
		return err
	}

	q := questionFromRecord(rec)
	if err := attachTags(ctx, s.store, []*domain.Question{q}); err != nil {
		return err
	}
	return s.index.IndexQuestion(search.QuestionToDocument(q))
}

// Reindex rebuilds the index from every stored question.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	const pageSize = 500
	total := 0
	for offset := 0; ; offset += pageSize {
		recs, err := s.store.List(ctx, store.Questions, store.Query{
			OrderBy: []store.Order{store.Asc("created_at"), store.Asc("id")},
			Limit:   pageSize,
			Offset:  offset,
		})
		if err != nil {
			return total, fmt.Errorf("list questions: %w", err)
		}
		if len(recs) == 0 {
			break
		}

		questions := make([]*domain.Question, len(recs))
		for i, rec := range recs {
			questions[i] = questionFromRecord(rec)
		}
		if err := attachTags(ctx, s.store, questions); err != nil {
			return total, err
		}

		docs := make([]*search.QuestionDocument, len(questions))
		for i, q := range questions {
			docs[i] = search.QuestionToDocument(q)
		}
		if err := s.index.IndexQuestions(docs); err != nil {
			return total, err
		}
		total += len(docs)

		if len(recs) < pageSize {
			break
		}
	}

	s.logger.Info("search index rebuilt", "questions", total)
	return total, nil
}
