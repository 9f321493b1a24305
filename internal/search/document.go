// Package search provides full-text question search using Bleve.
// The index is a secondary view of the record store: it is updated after a
// question's batch commits and can be rebuilt from the store at any time.
package search

import (
	"github.com/devoverflow/overflow-server/internal/domain"
)

// QuestionDocument is the indexed form of a question.
type QuestionDocument struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`

	// Counters are indexed for sorting only; they lag behind the store
	// between reindexes.
	Answers int `json:"answers"`
	Upvotes int `json:"upvotes"`

	CreatedAt int64 `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *QuestionDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"content":    d.Content,
		"answers":    d.Answers,
		"upvotes":    d.Upvotes,
		"created_at": d.CreatedAt,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}

// QuestionToDocument converts a domain question to a search document.
func QuestionToDocument(q *domain.Question) *QuestionDocument {
	tags := make([]string, len(q.Tags))
	for i, t := range q.Tags {
		tags[i] = t.Title
	}
	return &QuestionDocument{
		ID:        q.ID,
		Title:     q.Title,
		Content:   q.Content,
		Tags:      tags,
		Answers:   q.Answers,
		Upvotes:   q.Upvotes,
		CreatedAt: q.CreatedAt.UnixMilli(),
	}
}
