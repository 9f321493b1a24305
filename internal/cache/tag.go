// Package cache scopes cached read views by tags and invalidates them after
// successful mutations.
//
// Tags form a closed vocabulary: a Kind plus, for scoped kinds, the id of
// the question or user the view belongs to. Views declare the tags they
// depend on when they are read; mutations fire tags through the Register.
package cache

import (
	"fmt"
	"strings"
)

// Kind is a cache tag family.
type Kind string

const (
	KindQuestionList    Kind = "question-list"
	KindQuestionDetails Kind = "question-details"
	KindQuestionAnswers Kind = "question-answers"
	KindTagsList        Kind = "tags-list"
	KindUserCollections Kind = "user-collections"
)

// scoped reports whether tags of this kind carry an id.
func (k Kind) scoped() bool {
	switch k {
	case KindQuestionDetails, KindQuestionAnswers, KindUserCollections:
		return true
	default:
		return false
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindQuestionList, KindQuestionDetails, KindQuestionAnswers, KindTagsList, KindUserCollections:
		return true
	default:
		return false
	}
}

// Tag is one cache tag.
type Tag struct {
	Kind Kind
	ID   string
}

// QuestionList tags every question listing, including per-tag listings.
func QuestionList() Tag { return Tag{Kind: KindQuestionList} }

// QuestionDetails tags the detail view of one question.
func QuestionDetails(questionID string) Tag {
	return Tag{Kind: KindQuestionDetails, ID: questionID}
}

// QuestionAnswers tags the answer listing of one question.
func QuestionAnswers(questionID string) Tag {
	return Tag{Kind: KindQuestionAnswers, ID: questionID}
}

// TagsList tags every tag listing.
func TagsList() Tag { return Tag{Kind: KindTagsList} }

// UserCollections tags one user's saved questions.
func UserCollections(userID string) Tag {
	return Tag{Kind: KindUserCollections, ID: userID}
}

// String renders the tag, e.g. "question-details:q-123".
func (t Tag) String() string {
	if t.ID == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + ":" + t.ID
}

// ParseTag is the inverse of Tag.String.
func ParseTag(s string) (Tag, error) {
	kind, id, hasID := strings.Cut(s, ":")
	k := Kind(kind)
	if !k.valid() {
		return Tag{}, fmt.Errorf("unknown cache tag kind %q", kind)
	}
	if k.scoped() != hasID || (hasID && id == "") {
		return Tag{}, fmt.Errorf("malformed cache tag %q", s)
	}
	return Tag{Kind: k, ID: id}, nil
}

func tagStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}
