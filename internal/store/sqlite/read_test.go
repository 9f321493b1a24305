package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/devoverflow/overflow-server/internal/store"
)

func seedTags(t *testing.T, s *Store) {
	t.Helper()
	mustCommit(t, s,
		store.Create(store.Tags, "tag-1", map[string]any{"title": "GO", "questions": 5}),
		store.Create(store.Tags, "tag-2", map[string]any{"title": "RUST", "questions": 9}),
		store.Create(store.Tags, "tag-3", map[string]any{"title": "SQL", "questions": 1}),
	)
}

func TestGet_Projection(t *testing.T) {
	s := newTestStore(t)
	seedTags(t, s)

	rec, err := s.Get(context.Background(), store.Tags, "tag-2", "title")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec) != 2 || rec.ID() != "tag-2" || rec.String("title") != "RUST" {
		t.Errorf("record = %v, want id and title only", rec)
	}

	if _, err := s.Get(context.Background(), store.Tags, "tag-2", "slug"); !errors.Is(err, store.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if _, err := s.Get(context.Background(), store.Tags, "tag-404"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_FiltersOrderAndPaging(t *testing.T) {
	s := newTestStore(t)
	seedTags(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		q    store.Query
		want []string
	}{
		{
			name: "single equality",
			q:    store.Query{Filters: []store.Filter{store.Eq("title", "GO")}},
			want: []string{"tag-1"},
		},
		{
			name: "in filter ordered by usage",
			q: store.Query{
				Filters: []store.Filter{store.In("title", "GO", "RUST", "ZIG")},
				OrderBy: []store.Order{store.Desc("questions")},
			},
			want: []string{"tag-2", "tag-1"},
		},
		{
			name: "limit and offset",
			q:    store.Query{OrderBy: []store.Order{store.Asc("title")}, Limit: 2, Offset: 1},
			want: []string{"tag-2", "tag-3"},
		},
		{
			name: "empty in matches nothing",
			q:    store.Query{Filters: []store.Filter{store.In[string]("title")}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.List(ctx, store.Tags, tt.q)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var got []string
			for _, r := range recs {
				got = append(got, r.ID())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	seedTags(t, s)
	ctx := context.Background()

	n, err := s.Count(ctx, store.Tags)
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v; want 3", n, err)
	}
	n, err = s.Count(ctx, store.Tags, store.In("id", "tag-1", "tag-3"))
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v; want 2", n, err)
	}
	if _, err := s.Count(ctx, store.Tags, store.Eq("nope", 1)); !errors.Is(err, store.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}
