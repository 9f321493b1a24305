package domain

import "time"

// Collection records that a user saved a question.
// A user saves a given question at most once.
type Collection struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	QuestionID string    `json:"question_id"`
	CreatedAt  time.Time `json:"created_at"`
}
