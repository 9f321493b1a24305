package domain

import "time"

// Tag is a community tag for categorizing questions.
// Title is the identity: trimmed and upper-cased, unique across the forum.
// Tags are created lazily on first use and never deleted.
type Tag struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Questions int       `json:"questions"` // Denormalized count of linked questions
	CreatedAt time.Time `json:"created_at"`
}

// TagRef is the id/title pair embedded in question views.
type TagRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// QuestionTag links a question to a tag. One link per (question, tag).
type QuestionTag struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	TagID      string    `json:"tag_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TagSort orders the tag listing.
type TagSort string

const (
	TagSortPopular TagSort = "popular"
	TagSortName    TagSort = "name"
	TagSortRecent  TagSort = "recent"
)
