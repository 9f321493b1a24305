package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/store"
)

// ListResult is one page of a cached listing. A listing whose read failed
// degrades to an empty page carrying Error instead of failing the request.
type ListResult[T any] struct {
	store.PaginatedResult[T]
	Error string `json:"error,omitempty"`
}

func page[T any](items []T, p store.PaginationParams, total int) ListResult[T] {
	return ListResult[T]{PaginatedResult: store.NewPaginatedResult(items, p, total)}
}

// degraded logs a failed listing read and returns the empty page shown
// in its place.
func degraded[T any](log *slog.Logger, what string, p store.PaginationParams, err error) ListResult[T] {
	log.Error("listing read failed", "listing", what, "error", err)
	res := page[T](nil, p, 0)
	res.Error = "could not load " + what
	return res
}

func questionFromRecord(rec store.Record) *domain.Question {
	return &domain.Question{
		ID:        rec.ID(),
		AuthorID:  rec.String("author_id"),
		Title:     rec.String("title"),
		Content:   rec.String("content"),
		Tags:      []domain.TagRef{},
		Views:     rec.Int("views"),
		Answers:   rec.Int("answers"),
		Upvotes:   rec.Int("upvotes"),
		Downvotes: rec.Int("downvotes"),
		CreatedAt: rec.Time("created_at"),
		UpdatedAt: rec.Time("updated_at"),
	}
}

func answerFromRecord(rec store.Record) *domain.Answer {
	return &domain.Answer{
		ID:         rec.ID(),
		AuthorID:   rec.String("author_id"),
		QuestionID: rec.String("question_id"),
		Content:    rec.String("content"),
		Upvotes:    rec.Int("upvotes"),
		Downvotes:  rec.Int("downvotes"),
		CreatedAt:  rec.Time("created_at"),
		UpdatedAt:  rec.Time("updated_at"),
	}
}

func tagFromRecord(rec store.Record) *domain.Tag {
	return &domain.Tag{
		ID:        rec.ID(),
		Title:     rec.String("title"),
		Questions: rec.Int("questions"),
		CreatedAt: rec.Time("created_at"),
	}
}

// attachTags fills in the tags of each question with two reads: the links
// for all questions, then the tag records for all linked ids.
func attachTags(ctx context.Context, r store.Reader, questions []*domain.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]string, len(questions))
	byID := make(map[string]*domain.Question, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		byID[q.ID] = q
	}

	links, err := r.List(ctx, store.QuestionTags, store.Query{
		Filters:    []store.Filter{store.In("question_id", ids...)},
		OrderBy:    []store.Order{store.Asc("created_at"), store.Asc("id")},
		Projection: []string{"question_id", "tag_id"},
	})
	if err != nil {
		return fmt.Errorf("load question tags: %w", err)
	}
	if len(links) == 0 {
		return nil
	}

	tagIDs := make([]string, 0, len(links))
	for _, l := range links {
		tagIDs = append(tagIDs, l.String("tag_id"))
	}
	tags, err := r.List(ctx, store.Tags, store.Query{
		Filters:    []store.Filter{store.In("id", tagIDs...)},
		Projection: []string{"id", "title"},
	})
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	titles := make(map[string]string, len(tags))
	for _, t := range tags {
		titles[t.ID()] = t.String("title")
	}

	for _, l := range links {
		q := byID[l.String("question_id")]
		tagID := l.String("tag_id")
		q.Tags = append(q.Tags, domain.TagRef{ID: tagID, Title: titles[tagID]})
	}
	return nil
}
