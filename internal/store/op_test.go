package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOp_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      Op
		wantErr string
	}{
		{name: "create question", op: Create(Questions, "q-1", map[string]any{"title": "t", "content": "c"})},
		{name: "update answer", op: Update(Answers, "ans-1", map[string]any{"content": "c"})},
		{name: "delete link", op: Delete(QuestionTags, "qt-1")},
		{name: "increment counter", op: Increment(Tags, "tag-1", "questions", 1)},
		{name: "decrement counter", op: Decrement(Questions, "q-1", "upvotes", 1)},
		{name: "empty id", op: Delete(Votes, ""), wantErr: "empty id"},
		{name: "unknown collection", op: Delete(Collection("users"), "u-1"), wantErr: "unknown field"},
		{name: "unknown field", op: Create(Tags, "tag-1", map[string]any{"slug": "x"}), wantErr: "tags.slug"},
		{name: "update without fields", op: Update(Questions, "q-1", nil), wantErr: "no fields"},
		{name: "update id", op: Update(Questions, "q-1", map[string]any{"id": "q-2"}), wantErr: "immutable"},
		{name: "non-counter increment", op: Increment(Questions, "q-1", "title", 1), wantErr: "not a counter"},
		{name: "negative amount", op: Increment(Questions, "q-1", "views", -1), wantErr: "negative amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestOp_ConstructorsCopyFields(t *testing.T) {
	fields := map[string]any{"title": "before"}
	op := Create(Questions, "q-1", fields)
	fields["title"] = "after"

	assert.Equal(t, "before", op.Fields["title"])
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "increment questions/q-1.answers by 1", Increment(Questions, "q-1", "answers", 1).String())
	assert.Equal(t, "delete votes/vote-1", Delete(Votes, "vote-1").String())
}

func TestBatchError_Classification(t *testing.T) {
	driverErr := errors.New("UNIQUE constraint failed: tags.title")
	err := fmt.Errorf("create question: %w", &BatchError{
		BatchID: "b-1",
		Kind:    FailureConstraint,
		Index:   2,
		Op:      Create(Tags, "tag-1", nil),
		Err:     driverErr,
	})

	require.ErrorIs(t, err, ErrBatchFailed)
	require.ErrorIs(t, err, driverErr)
	assert.True(t, IsConstraint(err))
	assert.False(t, IsReferential(err))
	assert.Contains(t, err.Error(), "op 2 (create tags/tag-1): constraint failure")

	_, ok := FailureOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestRecord_Accessors(t *testing.T) {
	r := Record{"id": "q-1", "views": int64(7), "created_at": "2026-01-02T03:04:05Z"}

	assert.Equal(t, "q-1", r.ID())
	assert.Equal(t, 7, r.Int("views"))
	assert.Equal(t, 0, r.Int("missing"))
	assert.Equal(t, "", r.String("missing"))
	assert.Equal(t, 2026, r.Time("created_at").Year())
}

func TestQuery_Fields(t *testing.T) {
	q := Query{
		Filters:    []Filter{Eq("author_id", "u-1"), In("id", "q-1", "q-2")},
		OrderBy:    []Order{Desc("created_at")},
		Projection: []string{"id", "title"},
	}

	assert.Equal(t, []string{"id", "title", "author_id", "id", "created_at"}, q.Fields())
	assert.NoError(t, Questions.CheckFields(q.Fields()...))
}
