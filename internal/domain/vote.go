package domain

import (
	"fmt"
	"time"
)

// TargetKind identifies what a vote is cast on.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

// ParseTargetKind validates a kind taken from a URL or payload.
func ParseTargetKind(s string) (TargetKind, error) {
	switch k := TargetKind(s); k {
	case TargetQuestion, TargetAnswer:
		return k, nil
	default:
		return "", fmt.Errorf("unknown vote target %q", s)
	}
}

// VoteType is the stored polarity of a vote row.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// Vote is one user's vote on one target. At most one row exists per
// (author, target kind, target id).
type Vote struct {
	ID         string     `json:"id"`
	AuthorID   string     `json:"author_id"`
	TargetType TargetKind `json:"target_type"`
	TargetID   string     `json:"target_id"`
	VoteType   VoteType   `json:"vote_type"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// VoteState is what a caller sees about their own vote on a target.
type VoteState struct {
	HasUpvoted   bool `json:"has_upvoted"`
	HasDownvoted bool `json:"has_downvoted"`
}
