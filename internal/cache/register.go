package cache

import (
	"fmt"
	"slices"
)

// Mutation names a write that fires cache tags.
type Mutation string

const (
	CreateQuestion Mutation = "create-question"
	UpdateQuestion Mutation = "update-question"
	AnswerQuestion Mutation = "answer-question"
	VoteQuestion   Mutation = "vote-question"
	VoteAnswer     Mutation = "vote-answer"
	ToggleSave     Mutation = "toggle-save"
	RecordView     Mutation = "record-view"
)

// Affected carries the ids a mutation touched.
type Affected struct {
	QuestionID string // for answer votes, the answer's parent question
	UserID     string
	// TagsChanged is set when a question edit changed its tag set.
	TagsChanged bool
}

// Param selects which Affected id fills a template.
type Param int

const (
	ParamNone Param = iota
	ParamQuestion
	ParamUser
)

// Template is one tag a mutation fires.
type Template struct {
	Kind  Kind
	Param Param
	// OnTagChange limits the template to edits that changed the tag set.
	OnTagChange bool
}

// Register maps each mutation to the tags it must fire after commit.
type Register struct {
	templates map[Mutation][]Template
}

// NewRegister returns the register for the Overflow write paths.
func NewRegister() *Register {
	return &Register{templates: map[Mutation][]Template{
		CreateQuestion: {
			{Kind: KindQuestionList},
			{Kind: KindTagsList},
		},
		UpdateQuestion: {
			{Kind: KindQuestionList},
			{Kind: KindQuestionDetails, Param: ParamQuestion},
			{Kind: KindTagsList, OnTagChange: true},
		},
		AnswerQuestion: {
			{Kind: KindQuestionDetails, Param: ParamQuestion},
			{Kind: KindQuestionAnswers, Param: ParamQuestion},
			{Kind: KindQuestionList},
		},
		VoteQuestion: {
			{Kind: KindQuestionDetails, Param: ParamQuestion},
			{Kind: KindQuestionList},
		},
		VoteAnswer: {
			{Kind: KindQuestionAnswers, Param: ParamQuestion},
		},
		ToggleSave: {
			{Kind: KindUserCollections, Param: ParamUser},
		},
		RecordView: {
			{Kind: KindQuestionDetails, Param: ParamQuestion},
			{Kind: KindQuestionList},
		},
	}}
}

// Templates returns the templates registered for m.
func (r *Register) Templates(m Mutation) []Template {
	return slices.Clone(r.templates[m])
}

// Tags expands m's templates with the affected ids, in registration order
// and without duplicates. A template whose id is missing is an error: firing
// an unscoped tag in its place would miss the view.
func (r *Register) Tags(m Mutation, a Affected) ([]Tag, error) {
	templates, ok := r.templates[m]
	if !ok {
		return nil, fmt.Errorf("no cache tags registered for mutation %q", m)
	}

	tags := make([]Tag, 0, len(templates))
	for _, tpl := range templates {
		if tpl.OnTagChange && !a.TagsChanged {
			continue
		}

		tag := Tag{Kind: tpl.Kind}
		switch tpl.Param {
		case ParamQuestion:
			tag.ID = a.QuestionID
		case ParamUser:
			tag.ID = a.UserID
		}
		if tpl.Param != ParamNone && tag.ID == "" {
			return nil, fmt.Errorf("mutation %q: %s needs an id", m, tpl.Kind)
		}

		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
