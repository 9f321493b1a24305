package domain

import "time"

// Answer is a reply to a question. Creating one adds 1 to the parent's
// Answers counter in the same batch.
type Answer struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	QuestionID string    `json:"question_id"`
	Content    string    `json:"content"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AnswerInput is the author-supplied part of an answer.
type AnswerInput struct {
	Content string `json:"content" validate:"required,min=100"`
}

// AnswerSort orders an answer listing.
type AnswerSort string

const (
	AnswerSortLatest  AnswerSort = "latest"
	AnswerSortOldest  AnswerSort = "oldest"
	AnswerSortPopular AnswerSort = "popular"
)
