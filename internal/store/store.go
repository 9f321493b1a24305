package store

import (
	"fmt"
	"slices"
	"time"
)

// Collection names a record set.
type Collection string

const (
	Questions    Collection = "questions"
	Tags         Collection = "tags"
	QuestionTags Collection = "question_tags"
	Answers      Collection = "answers"
	Votes        Collection = "votes"
	Collections  Collection = "collections"
)

// FieldID is present on every record.
const FieldID = "id"

type collectionSchema struct {
	fields   []string
	counters []string
}

// schemas is the closed set of fields each collection accepts. Field names
// end up in SQL, so anything outside this registry is rejected up front.
var schemas = map[Collection]collectionSchema{
	Questions: {
		fields:   []string{"id", "author_id", "title", "content", "views", "answers", "upvotes", "downvotes", "permissions", "created_at", "updated_at"},
		counters: []string{"views", "answers", "upvotes", "downvotes"},
	},
	Tags: {
		fields:   []string{"id", "title", "questions", "created_at"},
		counters: []string{"questions"},
	},
	QuestionTags: {
		fields: []string{"id", "question_id", "tag_id", "created_at"},
	},
	Answers: {
		fields:   []string{"id", "author_id", "question_id", "content", "upvotes", "downvotes", "permissions", "created_at", "updated_at"},
		counters: []string{"upvotes", "downvotes"},
	},
	Votes: {
		fields: []string{"id", "author_id", "target_type", "target_id", "vote_type", "created_at", "updated_at"},
	},
	Collections: {
		fields: []string{"id", "author_id", "question_id", "created_at"},
	},
}

// Valid reports whether the collection is known.
func (c Collection) Valid() bool {
	_, ok := schemas[c]
	return ok
}

// HasField reports whether field is a column of the collection.
func (c Collection) HasField(field string) bool {
	return slices.Contains(schemas[c].fields, field)
}

// IsCounter reports whether field may be incremented or decremented.
func (c Collection) IsCounter(field string) bool {
	return slices.Contains(schemas[c].counters, field)
}

// Fields returns the collection's columns in declaration order.
func (c Collection) Fields() []string {
	return slices.Clone(schemas[c].fields)
}

// CheckFields returns ErrUnknownField for the first field the collection lacks.
func (c Collection) CheckFields(fields ...string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: collection %q", ErrUnknownField, c)
	}
	for _, f := range fields {
		if !c.HasField(f) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, c, f)
		}
	}
	return nil
}

// Record is one row, keyed by field name.
// Values are string, int64, or time.Time as decoded by the store.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string { return r.String(FieldID) }

// String returns a string field, or "" if absent.
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Int returns an integer field, or 0 if absent.
func (r Record) Int(field string) int {
	switch v := r[field].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Time returns a timestamp field. Stored timestamps are RFC 3339 strings.
func (r Record) Time(field string) time.Time {
	switch v := r[field].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339Nano, v)
		return t
	default:
		return time.Time{}
	}
}
