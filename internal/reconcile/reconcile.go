// Package reconcile computes the store operations that move a question from
// its current tag links to a desired tag set.
//
// Tag records are append-only: a tag is created on first use and its usage
// counter (tags.questions) tracks the number of linked questions. Links that
// are already in place and still desired are left untouched.
package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/id"
	"github.com/devoverflow/overflow-server/internal/store"
	"github.com/devoverflow/overflow-server/internal/util"
)

// Link is an existing question-tag link together with the tag's title.
type Link struct {
	ID    string
	TagID string
	Title string
}

// Plan is the outcome of a reconciliation.
type Plan struct {
	// Ops is ordered: usage decrements, link deletions, tag creations,
	// usage increments, link creations.
	Ops []store.Op

	Created  []domain.TagRef // tags that did not exist before
	Linked   []domain.TagRef // tags newly linked to the question (includes Created)
	Unlinked []domain.TagRef // tags whose link is removed
	Kept     []domain.TagRef // tags already linked and still desired

	titles []string
	byName map[string]domain.TagRef
}

// Changed reports whether the question's tag set differs from before.
func (p *Plan) Changed() bool {
	return len(p.Linked) > 0 || len(p.Unlinked) > 0
}

// Tags returns the question's tag set after the plan commits, in the
// order the titles were supplied.
func (p *Plan) Tags() []domain.TagRef {
	refs := make([]domain.TagRef, 0, len(p.titles))
	for _, t := range p.titles {
		refs = append(refs, p.byName[t])
	}
	return refs
}

// NormalizeTitles trims and upper-cases raw titles, drops empties, and
// collapses duplicates keeping the first occurrence.
func NormalizeTitles(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := util.NormalizeTagTitle(r)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// LoadLinks reads a question's current links and their tag titles.
func LoadLinks(ctx context.Context, r store.Reader, questionID string) ([]Link, error) {
	recs, err := r.List(ctx, store.QuestionTags, store.Query{
		Filters:    []store.Filter{store.Eq("question_id", questionID)},
		OrderBy:    []store.Order{store.Asc("created_at"), store.Asc("id")},
		Projection: []string{"id", "tag_id"},
	})
	if err != nil {
		return nil, fmt.Errorf("load links for %s: %w", questionID, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	tagIDs := make([]string, len(recs))
	for i, rec := range recs {
		tagIDs[i] = rec.String("tag_id")
	}
	tags, err := r.List(ctx, store.Tags, store.Query{
		Filters:    []store.Filter{store.In("id", tagIDs...)},
		Projection: []string{"id", "title"},
	})
	if err != nil {
		return nil, fmt.Errorf("load tags for %s: %w", questionID, err)
	}
	titles := make(map[string]string, len(tags))
	for _, t := range tags {
		titles[t.ID()] = t.String("title")
	}

	links := make([]Link, len(recs))
	for i, rec := range recs {
		links[i] = Link{ID: rec.ID(), TagID: rec.String("tag_id"), Title: titles[rec.String("tag_id")]}
	}
	return links, nil
}

// Build computes the plan for questionID. desired is normalized here, so
// raw titles may be passed; previous is empty when creating a question.
//
// Existing tag records for the titles that need a new link are resolved in
// one read: an equality filter for a single title, an IN filter otherwise.
// Titles without a record get a pre-generated id so their links can be
// created in the same batch.
func Build(ctx context.Context, r store.Reader, questionID string, desired []string, previous []Link) (*Plan, error) {
	titles := NormalizeTitles(desired)
	p := &Plan{titles: titles, byName: make(map[string]domain.TagRef, len(titles))}

	prevByTitle := make(map[string]Link, len(previous))
	for _, l := range previous {
		prevByTitle[l.Title] = l
	}

	var removed []Link
	for _, l := range previous {
		if !slices.Contains(titles, l.Title) {
			removed = append(removed, l)
		}
	}

	var toLink []string
	for _, t := range titles {
		if l, ok := prevByTitle[t]; ok {
			ref := domain.TagRef{ID: l.TagID, Title: t}
			p.Kept = append(p.Kept, ref)
			p.byName[t] = ref
			continue
		}
		toLink = append(toLink, t)
	}

	existing, err := lookupTags(ctx, r, toLink)
	if err != nil {
		return nil, err
	}

	for _, l := range removed {
		p.Ops = append(p.Ops, store.Decrement(store.Tags, l.TagID, "questions", 1))
	}
	for _, l := range removed {
		p.Ops = append(p.Ops, store.Delete(store.QuestionTags, l.ID))
		p.Unlinked = append(p.Unlinked, domain.TagRef{ID: l.TagID, Title: l.Title})
	}

	for _, t := range toLink {
		if _, ok := existing[t]; ok {
			continue
		}
		tagID, err := id.Generate(id.PrefixTag)
		if err != nil {
			return nil, err
		}
		ref := domain.TagRef{ID: tagID, Title: t}
		p.Ops = append(p.Ops, store.Create(store.Tags, tagID, map[string]any{"title": t, "questions": 1}))
		p.Created = append(p.Created, ref)
		p.byName[t] = ref
	}
	for _, t := range toLink {
		tagID, ok := existing[t]
		if !ok {
			continue
		}
		p.Ops = append(p.Ops, store.Increment(store.Tags, tagID, "questions", 1))
		p.byName[t] = domain.TagRef{ID: tagID, Title: t}
	}

	for _, t := range toLink {
		ref := p.byName[t]
		linkID, err := id.Generate(id.PrefixQuestionTag)
		if err != nil {
			return nil, err
		}
		p.Ops = append(p.Ops, store.Create(store.QuestionTags, linkID, map[string]any{
			"question_id": questionID,
			"tag_id":      ref.ID,
		}))
		p.Linked = append(p.Linked, ref)
	}

	return p, nil
}

// lookupTags maps title to id for the titles that already have a record.
func lookupTags(ctx context.Context, r store.Reader, titles []string) (map[string]string, error) {
	found := make(map[string]string, len(titles))
	if len(titles) == 0 {
		return found, nil
	}

	filter := store.In("title", titles...)
	if len(titles) == 1 {
		filter = store.Eq("title", titles[0])
	}
	recs, err := r.List(ctx, store.Tags, store.Query{
		Filters:    []store.Filter{filter},
		Projection: []string{"id", "title"},
	})
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	for _, rec := range recs {
		found[rec.String("title")] = rec.ID()
	}
	return found, nil
}
