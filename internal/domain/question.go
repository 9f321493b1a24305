package domain

import "time"

// Question is a forum post. Answers, Upvotes and Downvotes are denormalized
// counters maintained by the write engine; Tags is populated on read.
type Question struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []TagRef  `json:"tags"`
	Views     int       `json:"views"`
	Answers   int       `json:"answers"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionInput is the author-supplied part of a question.
// Tags are raw titles; normalization happens before reconciliation.
type QuestionInput struct {
	Title   string   `json:"title" validate:"required,min=5,max=100"`
	Content string   `json:"content" validate:"notblank"`
	Tags    []string `json:"tags" validate:"min=1,max=3,dive,notblank,max=15"`
}

// QuestionSort orders question listings.
type QuestionSort string

const (
	QuestionSortNewest     QuestionSort = "newest"
	QuestionSortUnanswered QuestionSort = "unanswered"
	QuestionSortPopular    QuestionSort = "popular"
)
