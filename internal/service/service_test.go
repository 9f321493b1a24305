package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/ratelimit"
	"github.com/devoverflow/overflow-server/internal/search"
	"github.com/devoverflow/overflow-server/internal/store"
	"github.com/devoverflow/overflow-server/internal/store/sqlite"
	"github.com/devoverflow/overflow-server/internal/validation"
	"github.com/devoverflow/overflow-server/internal/vote"
)

// countingStore counts opened batches.
type countingStore struct {
	store.Store
	begun atomic.Int32
}

func (c *countingStore) Begin(ctx context.Context) (store.Batch, error) {
	c.begun.Add(1)
	return c.Store.Begin(ctx)
}

// recordingPublisher keeps every announced invalidation.
type recordingPublisher struct {
	mu    sync.Mutex
	fired map[cache.Mutation][][]string
}

func (p *recordingPublisher) PublishInvalidation(m cache.Mutation, tags []cache.Tag, _ cache.Affected) {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	p.fired[m] = append(p.fired[m], names)
}

func (p *recordingPublisher) last(m cache.Mutation) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := p.fired[m]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

func (p *recordingPublisher) count(m cache.Mutation) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fired[m])
}

type testEnv struct {
	db          *sqlite.Store
	store       *countingStore
	published   *recordingPublisher
	runner      *Runner
	questions   *QuestionService
	answers     *AnswerService
	votes       *VoteService
	collections *CollectionService
	tags        *TagService
	search      *SearchService
}

func newTestEnv(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "overflow.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	backend, err := cache.OpenBadger(cache.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	index, err := search.NewSearchIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	counting := &countingStore{Store: db}
	published := &recordingPublisher{fired: map[cache.Mutation][][]string{}}
	views := cache.NewViews(backend, time.Minute, nil)
	runner := NewRunner(counting, cache.NewInvalidator(cache.NewRegister(), backend, published, nil), limiter, nil)
	searchSvc := NewSearchService(index, counting, nil)
	validator := validation.New()
	questions := NewQuestionService(runner, views, validator, searchSvc, nil)

	return &testEnv{
		db:          db,
		store:       counting,
		published:   published,
		runner:      runner,
		questions:   questions,
		answers:     NewAnswerService(runner, views, validator, searchSvc, nil),
		votes:       NewVoteService(runner, searchSvc, nil),
		collections: NewCollectionService(runner, views, nil),
		tags:        NewTagService(runner, views, questions, nil),
		search:      searchSvc,
	}
}

func questionInput(tags ...string) domain.QuestionInput {
	return domain.QuestionInput{
		Title:   "How do buffered channels block?",
		Content: "Sending on a full buffered channel blocks until a receiver is ready.",
		Tags:    tags,
	}
}

func answerInput() domain.AnswerInput {
	return domain.AnswerInput{Content: strings.Repeat("A receive frees a slot. ", 5)}
}

func (e *testEnv) tagByTitle(t *testing.T, title string) store.Record {
	t.Helper()
	recs, err := e.db.List(context.Background(), store.Tags, store.Query{Filters: []store.Filter{store.Eq("title", title)}})
	require.NoError(t, err)
	require.Len(t, recs, 1, "tag %s", title)
	return recs[0]
}

func (e *testEnv) question(t *testing.T, id string) store.Record {
	t.Helper()
	rec, err := e.db.Get(context.Background(), store.Questions, id)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) linkCount(t *testing.T, questionID string) int {
	t.Helper()
	n, err := e.db.Count(context.Background(), store.QuestionTags, store.Eq("question_id", questionID))
	require.NoError(t, err)
	return n
}

func TestCreateQuestion_DuplicateTagsCollapse(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go", "concurrency", " Go "))
	require.NoError(t, err)

	tagCount, err := env.db.Count(ctx, store.Tags)
	require.NoError(t, err)
	assert.Equal(t, 2, tagCount)
	assert.Equal(t, 1, env.tagByTitle(t, "GO").Int("questions"))
	assert.Equal(t, 1, env.tagByTitle(t, "CONCURRENCY").Int("questions"))
	assert.Equal(t, 2, env.linkCount(t, qid))

	assert.Equal(t, []string{"question-list", "tags-list"}, env.published.last(cache.CreateQuestion))
}

func TestCreateQuestion_ReusesExistingTags(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)
	_, err = env.questions.Create(ctx, "u-2", questionInput("GO", "testing"))
	require.NoError(t, err)

	tagCount, err := env.db.Count(ctx, store.Tags)
	require.NoError(t, err)
	assert.Equal(t, 2, tagCount)
	assert.Equal(t, 2, env.tagByTitle(t, "GO").Int("questions"))
	assert.Equal(t, 1, env.tagByTitle(t, "TESTING").Int("questions"))
}

func TestCreateQuestion_ValidationOpensNoBatch(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name  string
		input domain.QuestionInput
		field string
	}{
		{"short title", domain.QuestionInput{Title: "Hi", Content: "body", Tags: []string{"go"}}, "title"},
		{"blank content", domain.QuestionInput{Title: "A valid title", Content: "  ", Tags: []string{"go"}}, "content"},
		{"no tags", domain.QuestionInput{Title: "A valid title", Content: "body"}, "tags"},
		{"too many tags", domain.QuestionInput{Title: "A valid title", Content: "body", Tags: []string{"a", "b", "c", "d"}}, "tags"},
		{"long tag", domain.QuestionInput{Title: "A valid title", Content: "body", Tags: []string{strings.Repeat("x", 16)}}, "tags[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.questions.Create(context.Background(), "u-1", tt.input)
			require.ErrorIs(t, err, domainerrors.ErrValidation)

			var derr *domainerrors.Error
			require.True(t, errors.As(err, &derr))
			assert.Contains(t, derr.Details, tt.field)
		})
	}
	assert.Zero(t, env.store.begun.Load())
}

func TestCreateQuestion_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.questions.Create(context.Background(), "", questionInput("go"))
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.Zero(t, env.store.begun.Load())
}

func TestCreateQuestion_FaultLeavesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	// Ops: create question, create GO, create CONCURRENCY, links...
	env.db.SetFaultHook(func(index int, _ store.Op) error {
		if index == 2 {
			return errors.New("injected fault")
		}
		return nil
	})

	_, err := env.questions.Create(ctx, "u-1", questionInput("go", "concurrency"))
	require.Error(t, err)

	var be *store.BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2, be.Index)

	for _, coll := range []store.Collection{store.Questions, store.Tags, store.QuestionTags} {
		n, err := env.db.Count(ctx, coll)
		require.NoError(t, err)
		assert.Zero(t, n, coll)
	}
	assert.Zero(t, env.published.count(cache.CreateQuestion), "tags fired for a failed batch")
}

func TestCreateQuestion_FaultOnLastLinkLeavesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	// Ops: create question, create three tags, then three links. Index 6
	// is the third link.
	env.db.SetFaultHook(func(index int, _ store.Op) error {
		if index == 6 {
			return errors.New("injected fault")
		}
		return nil
	})

	_, err := env.questions.Create(ctx, "u-1", questionInput("go", "channels", "select"))
	require.Error(t, err)

	var be *store.BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 6, be.Index)

	for _, coll := range []store.Collection{store.Questions, store.Tags, store.QuestionTags} {
		n, err := env.db.Count(ctx, coll)
		require.NoError(t, err)
		assert.Zero(t, n, coll)
	}
	assert.Zero(t, env.published.count(cache.CreateQuestion))
}

func TestUpdateQuestion_NonAuthorForbidden(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-author", questionInput("go"))
	require.NoError(t, err)
	begun := env.store.begun.Load()

	_, err = env.questions.Update(ctx, "u-intruder", qid, questionInput("rust"))
	require.ErrorIs(t, err, domainerrors.ErrForbidden)
	assert.Equal(t, begun, env.store.begun.Load(), "batch opened for unauthorized edit")

	_, err = env.questions.Update(ctx, "u-author", "q-missing", questionInput("go"))
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUpdateQuestion_UnchangedTagsFireDetailsAndList(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go", "concurrency"))
	require.NoError(t, err)

	in := questionInput("concurrency", "go")
	in.Title = "How do unbuffered channels block?"
	_, err = env.questions.Update(ctx, "u-1", qid, in)
	require.NoError(t, err)

	assert.Equal(t, []string{"question-list", "question-details:" + qid}, env.published.last(cache.UpdateQuestion))
	assert.Equal(t, "How do unbuffered channels block?", env.question(t, qid).String("title"))
	assert.Equal(t, 1, env.tagByTitle(t, "GO").Int("questions"))
	assert.Equal(t, 2, env.linkCount(t, qid))
}

func TestUpdateQuestion_ChangedTagsReconcile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go", "concurrency"))
	require.NoError(t, err)

	_, err = env.questions.Update(ctx, "u-1", qid, questionInput("go", "channels"))
	require.NoError(t, err)

	assert.Equal(t, []string{"question-list", "question-details:" + qid, "tags-list"}, env.published.last(cache.UpdateQuestion))
	assert.Equal(t, 1, env.tagByTitle(t, "GO").Int("questions"))
	assert.Equal(t, 0, env.tagByTitle(t, "CONCURRENCY").Int("questions"), "tag records are never deleted")
	assert.Equal(t, 1, env.tagByTitle(t, "CHANNELS").Int("questions"))
	assert.Equal(t, 2, env.linkCount(t, qid))

	q, err := env.questions.Get(ctx, qid)
	require.NoError(t, err)
	titles := make([]string, len(q.Tags))
	for i, tag := range q.Tags {
		titles[i] = tag.Title
	}
	assert.ElementsMatch(t, []string{"GO", "CHANNELS"}, titles)
}

func TestAnswer_ConcurrentAnswersCount(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Go(func() {
			_, err := env.answers.Answer(ctx, fmt.Sprintf("u-%d", i), qid, answerInput())
			errs <- err
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, n, env.question(t, qid).Int("answers"))
	count, err := env.db.Count(ctx, store.Answers, store.Eq("question_id", qid))
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestAnswer_MissingQuestionIsReferential(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.answers.Answer(context.Background(), "u-1", "q-missing", answerInput())
	require.Error(t, err)
	assert.True(t, store.IsReferential(err))

	n, err := env.db.Count(context.Background(), store.Answers)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAnswer_InvalidatesCachedDetails(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	before, err := env.questions.Get(ctx, qid)
	require.NoError(t, err)
	assert.Zero(t, before.Answers)

	_, err = env.answers.Answer(ctx, "u-2", qid, answerInput())
	require.NoError(t, err)

	after, err := env.questions.Get(ctx, qid)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Answers)

	list, err := env.answers.List(ctx, qid, domain.AnswerSortLatest, store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Empty(t, list.Error)
}

func TestVote_Transitions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-author", questionInput("go"))
	require.NoError(t, err)

	tallies := func() (int, int) {
		rec := env.question(t, qid)
		return rec.Int("upvotes"), rec.Int("downvotes")
	}

	res, err := env.votes.Upvote(ctx, domain.TargetQuestion, qid, "u-voter")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.HasUpvoted)

	// Second upvote toggles off; the net effect is zero.
	res, err = env.votes.Upvote(ctx, domain.TargetQuestion, qid, "u-voter")
	require.NoError(t, err)
	assert.False(t, res.HasUpvoted)
	up, down := tallies()
	assert.Equal(t, 0, up)
	assert.Equal(t, 0, down)

	_, err = env.votes.Downvote(ctx, domain.TargetQuestion, qid, "u-voter")
	require.NoError(t, err)
	res, err = env.votes.Upvote(ctx, domain.TargetQuestion, qid, "u-voter")
	require.NoError(t, err)
	assert.True(t, res.HasUpvoted)

	up, down = tallies()
	assert.Equal(t, 1, up)
	assert.Equal(t, 0, down)

	rows, err := env.db.Count(ctx, store.Votes, store.Eq("author_id", "u-voter"))
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	state, err := env.votes.State(ctx, domain.TargetQuestion, qid, "u-voter")
	require.NoError(t, err)
	assert.Equal(t, domain.VoteState{HasUpvoted: true}, state)

	assert.Equal(t, []string{"question-details:" + qid, "question-list"}, env.published.last(cache.VoteQuestion))
}

func TestVote_AnswerFiresParentAnswers(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)
	aid, err := env.answers.Answer(ctx, "u-2", qid, answerInput())
	require.NoError(t, err)

	_, err = env.votes.Downvote(ctx, domain.TargetAnswer, aid, "u-3")
	require.NoError(t, err)

	assert.Equal(t, []string{"question-answers:" + qid}, env.published.last(cache.VoteAnswer))

	rec, err := env.db.Get(ctx, store.Answers, aid, "downvotes")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Int("downvotes"))

	_, err = env.votes.Upvote(ctx, domain.TargetAnswer, "ans-missing", "u-3")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestVote_RequiresVoter(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.votes.Upvote(context.Background(), domain.TargetQuestion, "q-1", "")
	require.ErrorIs(t, err, vote.ErrNoVoter)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.Zero(t, env.store.begun.Load())
}

func TestToggleSave(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	saved, err := env.collections.ToggleSave(ctx, "u-2", qid)
	require.NoError(t, err)
	require.NotNil(t, saved)

	list, err := env.collections.ListSaved(ctx, "u-2", store.DefaultPaginationParams())
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, qid, list.Items[0].ID)

	removed, err := env.collections.ToggleSave(ctx, "u-2", qid)
	require.NoError(t, err)
	assert.Nil(t, removed)

	list, err = env.collections.ListSaved(ctx, "u-2", store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	assert.Equal(t, []string{"user-collections:u-2"}, env.published.last(cache.ToggleSave))
}

func TestToggleSave_ConcurrentSavesConverge(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for range 2 {
		wg.Go(func() {
			_, err := env.collections.ToggleSave(ctx, "u-2", qid)
			results <- err
		})
	}
	wg.Wait()
	close(results)
	for err := range results {
		require.NoError(t, err)
	}

	// Either both saw no save (one insert wins, the other reports it) or
	// the second saw the first and removed it.
	n, err := env.db.Count(ctx, store.Collections, store.Eq("author_id", "u-2"))
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 1)
}

func TestRecordView(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	require.NoError(t, env.questions.RecordView(ctx, qid))
	require.NoError(t, env.questions.RecordView(ctx, qid))

	q, err := env.questions.Get(ctx, qid)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Views)

	err = env.questions.RecordView(ctx, "q-missing")
	assert.True(t, store.IsReferential(err))
}

func TestRecordView_RefreshesListing(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	before, err := env.questions.List(ctx, QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, before.Items, 1)
	assert.Zero(t, before.Items[0].Views)

	require.NoError(t, env.questions.RecordView(ctx, qid))

	after, err := env.questions.List(ctx, QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.Equal(t, 1, after.Items[0].Views)
}

func TestGetQuestion(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.questions.Get(ctx, "q-missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	qid, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	q, err := env.questions.Get(ctx, qid)
	require.NoError(t, err)
	require.NotNil(t, q.Question)
	assert.Equal(t, qid, q.ID)
	assert.Empty(t, q.Error)
}

func TestGetQuestion_DegradesOnReadFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.db.Close())

	q, err := env.questions.Get(context.Background(), "q-1")
	require.NoError(t, err)
	assert.Nil(t, q.Question)
	assert.NotEmpty(t, q.Error)
}

func TestListQuestions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	goID, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	py := questionInput("python")
	py.Title = "Async iterators in Python"
	py.Content = "How do generators interact with the event loop?"
	pyID, err := env.questions.Create(ctx, "u-1", py)
	require.NoError(t, err)

	_, err = env.answers.Answer(ctx, "u-2", goID, answerInput())
	require.NoError(t, err)

	all, err := env.questions.List(ctx, QuestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	unanswered, err := env.questions.List(ctx, QuestionFilter{Sort: domain.QuestionSortUnanswered})
	require.NoError(t, err)
	require.Len(t, unanswered.Items, 1)
	assert.Equal(t, pyID, unanswered.Items[0].ID)

	text, err := env.questions.List(ctx, QuestionFilter{Query: "channels"})
	require.NoError(t, err)
	require.Len(t, text.Items, 1)
	assert.Equal(t, goID, text.Items[0].ID)
	require.Len(t, text.Items[0].Tags, 1)
	assert.Equal(t, "GO", text.Items[0].Tags[0].Title)

	tag := env.tagByTitle(t, "PYTHON")
	gotTag, byTag, err := env.tags.ListTagQuestions(ctx, tag.ID(), QuestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "PYTHON", gotTag.Title)
	require.Len(t, byTag.Items, 1)
	assert.Equal(t, pyID, byTag.Items[0].ID)

	_, err = env.questions.List(ctx, QuestionFilter{Sort: "hottest"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListTags(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.questions.Create(ctx, "u-1", questionInput("go", "testing"))
	require.NoError(t, err)
	_, err = env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	popular, err := env.tags.ListTags(ctx, domain.TagSortPopular, store.DefaultPaginationParams())
	require.NoError(t, err)
	require.Len(t, popular.Items, 2)
	assert.Equal(t, "GO", popular.Items[0].Title)
	assert.Equal(t, 2, popular.Items[0].Questions)

	// The listing was cached; a new question fires tags-list and refreshes it.
	_, err = env.questions.Create(ctx, "u-1", questionInput("async"))
	require.NoError(t, err)
	popular, err = env.tags.ListTags(ctx, domain.TagSortPopular, store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Equal(t, 3, popular.Total)
	assert.Equal(t, "ASYNC", popular.Items[1].Title)

	byName, err := env.tags.ListTags(ctx, domain.TagSortName, store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Equal(t, "ASYNC", byName.Items[0].Title)
}

func TestListQuestions_DegradesOnReadFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.db.Close())

	res, err := env.questions.List(context.Background(), QuestionFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.NotEmpty(t, res.Error)
}

func TestRunner_RateLimitsMutations(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	defer limiter.Stop()
	env := newTestEnv(t, limiter)
	ctx := context.Background()

	_, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	_, err = env.questions.Create(ctx, "u-1", questionInput("go"))
	require.ErrorIs(t, err, domainerrors.ErrRateLimited)

	_, err = env.questions.Create(ctx, "u-2", questionInput("go"))
	require.NoError(t, err)
}

func TestSearch_PopularFollowsVotesAndAnswers(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	popular, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)
	newer, err := env.questions.Create(ctx, "u-1", questionInput("go"))
	require.NoError(t, err)

	_, err = env.votes.Upvote(ctx, domain.TargetQuestion, popular, "u-2")
	require.NoError(t, err)
	_, err = env.answers.Answer(ctx, "u-3", popular, answerInput())
	require.NoError(t, err)

	res, err := env.search.Search(ctx, search.SearchParams{Query: "buffered", SortBy: search.SortPopular, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{popular, newer}, res.IDs())

	// Withdrawing the vote drops the question back to newest-first.
	_, err = env.votes.Upvote(ctx, domain.TargetQuestion, popular, "u-2")
	require.NoError(t, err)
	_, err = env.answers.Answer(ctx, "u-3", newer, answerInput())
	require.NoError(t, err)
	_, err = env.answers.Answer(ctx, "u-4", newer, answerInput())
	require.NoError(t, err)

	res, err = env.search.Search(ctx, search.SearchParams{Query: "buffered", SortBy: search.SortPopular, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{newer, popular}, res.IDs())
}

func TestSearchService_Reindex(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for range 3 {
		_, err := env.questions.Create(ctx, "u-1", questionInput("go"))
		require.NoError(t, err)
	}

	n, err := env.search.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := env.search.Search(ctx, search.SearchParams{Query: "buffered", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)

	_, err = env.search.Search(ctx, search.SearchParams{Query: "buffered", Limit: 1000})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}
