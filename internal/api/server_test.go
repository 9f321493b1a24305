package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devoverflow/overflow-server/internal/auth"
	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/ratelimit"
	"github.com/devoverflow/overflow-server/internal/search"
	"github.com/devoverflow/overflow-server/internal/service"
	"github.com/devoverflow/overflow-server/internal/sse"
	"github.com/devoverflow/overflow-server/internal/store/sqlite"
	"github.com/devoverflow/overflow-server/internal/validation"
)

// testEnvelope mirrors both envelope shapes for decoding in tests.
type testEnvelope[T any] struct {
	V       int               `json:"v"`
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

type testServer struct {
	*Server
	api    humatest.TestAPI
	tokens *auth.TokenService
	sse    *sse.Manager
}

// setupTestServer creates a server over a temp SQLite file, an in-memory
// view cache and an in-memory search index.
func setupTestServer(t *testing.T, ipLimiter *ratelimit.KeyedRateLimiter) *testServer {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "overflow.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	backend, err := cache.OpenBadger(cache.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	index, err := search.NewSearchIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), 15*time.Minute)
	require.NoError(t, err)

	manager := sse.NewManager(nil)

	views := cache.NewViews(backend, time.Minute, nil)
	runner := service.NewRunner(db, cache.NewInvalidator(cache.NewRegister(), backend, manager, nil), nil, nil)
	validator := validation.New()
	searchSvc := service.NewSearchService(index, db, nil)
	questions := service.NewQuestionService(runner, views, validator, searchSvc, nil)

	srv := NewServer(Options{
		Services: &Services{
			Questions:   questions,
			Answers:     service.NewAnswerService(runner, views, validator, searchSvc, nil),
			Votes:       service.NewVoteService(runner, searchSvc, nil),
			Collections: service.NewCollectionService(runner, views, nil),
			Tags:        service.NewTagService(runner, views, questions, nil),
			Search:      searchSvc,
		},
		Tokens:    tokens,
		SSE:       manager,
		Database:  db,
		Index:     index,
		IPLimiter: ipLimiter,
	})

	return &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.API()),
		tokens: tokens,
		sse:    manager,
	}
}

func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.GenerateAccessToken(userID)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func (ts *testServer) createQuestion(t *testing.T, userID string, tags ...string) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/questions", ts.bearer(t, userID), map[string]any{
		"title":   "How do buffered channels block?",
		"content": "Sending on a full buffered channel blocks until a receiver is ready.",
		"tags":    tags,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeEnvelope[IDResponse](t, resp).Data.ID
}

func longAnswer() string {
	return strings.Repeat("A receive frees a slot in the buffer. ", 4)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[HealthResponse](t, resp)
	assert.True(t, env.Success)
	assert.Equal(t, EnvelopeVersion, env.V)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
	assert.Equal(t, "no connected clients", env.Data.Components["sse"].Message)
}

func TestCreateQuestion_RequiresIdentity(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/questions", map[string]any{
		"title":   "How do buffered channels block?",
		"content": "Body",
		"tags":    []string{"go"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	env := decodeEnvelope[any](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestCreateQuestion_InvalidTokenIsAnonymous(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/questions", "Authorization: Bearer v4.local.garbage", map[string]any{
		"title":   "How do buffered channels block?",
		"content": "Body",
		"tags":    []string{"go"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateQuestion_ThenRead(t *testing.T) {
	ts := setupTestServer(t, nil)

	qid := ts.createQuestion(t, "u-1", "go", "concurrency", " Go ")

	resp := ts.api.Get("/api/v1/questions/" + qid)
	require.Equal(t, http.StatusOK, resp.Code)

	q := decodeEnvelope[domain.Question](t, resp).Data
	assert.Equal(t, "u-1", q.AuthorID)
	titles := make([]string, len(q.Tags))
	for i, tag := range q.Tags {
		titles[i] = tag.Title
	}
	assert.ElementsMatch(t, []string{"GO", "CONCURRENCY"}, titles)

	list := decodeEnvelope[service.ListResult[*domain.Question]](t, ts.api.Get("/api/v1/questions")).Data
	require.Len(t, list.Items, 1)
	assert.Equal(t, qid, list.Items[0].ID)
	assert.Equal(t, 1, list.Total)
}

func TestCreateQuestion_ValidationDetails(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/questions", ts.bearer(t, "u-1"), map[string]any{
		"title":   "Hey",
		"content": "Body",
		"tags":    []string{"go", "this-tag-is-far-too-long"},
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	env := decodeEnvelope[any](t, resp)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Contains(t, env.Details, "title")
	assert.Contains(t, env.Details, "tags[1]")
}

func TestCreateQuestion_MissingFieldIsValidation(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/questions", ts.bearer(t, "u-1"), map[string]any{
		"title": "How do buffered channels block?",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope[any](t, resp).Code)
}

func TestUpdateQuestion_OnlyAuthor(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")

	body := map[string]any{
		"title":   "How do unbuffered channels block?",
		"content": "Edited body.",
		"tags":    []string{"go", "channels"},
	}

	resp := ts.api.Patch("/api/v1/questions/"+qid, ts.bearer(t, "u-2"), body)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope[any](t, resp).Code)

	resp = ts.api.Patch("/api/v1/questions/"+qid, ts.bearer(t, "u-1"), body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	q := decodeEnvelope[domain.Question](t, ts.api.Get("/api/v1/questions/"+qid)).Data
	assert.Equal(t, "How do unbuffered channels block?", q.Title)
	assert.Len(t, q.Tags, 2)
}

func TestUpdateQuestion_Missing(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Patch("/api/v1/questions/q_missing", ts.bearer(t, "u-1"), map[string]any{
		"title":   "How do unbuffered channels block?",
		"content": "Edited body.",
		"tags":    []string{"go"},
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAnswerQuestion(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")

	resp := ts.api.Post("/api/v1/questions/"+qid+"/answers", ts.bearer(t, "u-2"), map[string]any{
		"content": longAnswer(),
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	answerID := decodeEnvelope[IDResponse](t, resp).Data.ID

	q := decodeEnvelope[domain.Question](t, ts.api.Get("/api/v1/questions/"+qid)).Data
	assert.Equal(t, 1, q.Answers)

	answers := decodeEnvelope[service.ListResult[*domain.Answer]](t, ts.api.Get("/api/v1/questions/"+qid+"/answers")).Data
	require.Len(t, answers.Items, 1)
	assert.Equal(t, answerID, answers.Items[0].ID)
}

func TestAnswerQuestion_MissingQuestionIsNotFound(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/questions/q_missing/answers", ts.bearer(t, "u-2"), map[string]any{
		"content": longAnswer(),
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, resp).Code)
}

func TestVoteQuestion_Toggle(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")
	voter := ts.bearer(t, "u-2")

	resp := ts.api.Post("/api/v1/questions/"+qid+"/upvote", voter)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res := decodeEnvelope[service.VoteResult](t, resp).Data
	assert.True(t, res.Success)
	assert.True(t, res.HasUpvoted)

	state := ts.api.Get("/api/v1/votes/question/"+qid, voter)
	require.Equal(t, http.StatusOK, state.Code)
	assert.Equal(t, CacheNoStore, state.Header().Get("Cache-Control"))
	assert.True(t, decodeEnvelope[domain.VoteState](t, state).Data.HasUpvoted)

	resp = ts.api.Post("/api/v1/questions/"+qid+"/downvote", voter)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeEnvelope[service.VoteResult](t, resp).Data.HasDownvoted)

	q := decodeEnvelope[domain.Question](t, ts.api.Get("/api/v1/questions/"+qid)).Data
	assert.Equal(t, 0, q.Upvotes)
	assert.Equal(t, 1, q.Downvotes)

	resp = ts.api.Post("/api/v1/questions/"+qid+"/downvote", voter)
	require.Equal(t, http.StatusOK, resp.Code)
	res = decodeEnvelope[service.VoteResult](t, resp).Data
	assert.False(t, res.HasUpvoted)
	assert.False(t, res.HasDownvoted)
}

func TestVoteAnswer(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")

	resp := ts.api.Post("/api/v1/questions/"+qid+"/answers", ts.bearer(t, "u-2"), map[string]any{"content": longAnswer()})
	require.Equal(t, http.StatusCreated, resp.Code)
	answerID := decodeEnvelope[IDResponse](t, resp).Data.ID

	resp = ts.api.Post("/api/v1/answers/"+answerID+"/upvote", ts.bearer(t, "u-3"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	answers := decodeEnvelope[service.ListResult[*domain.Answer]](t, ts.api.Get("/api/v1/questions/"+qid+"/answers")).Data
	require.Len(t, answers.Items, 1)
	assert.Equal(t, 1, answers.Items[0].Upvotes)
}

func TestVote_RequiresIdentity(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")

	resp := ts.api.Post("/api/v1/questions/" + qid + "/upvote")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestVoteState_UnknownKind(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/votes/comment/c-1", ts.bearer(t, "u-1"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope[any](t, resp).Code)
}

func TestToggleSave(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")
	saver := ts.bearer(t, "u-2")

	resp := ts.api.Post("/api/v1/questions/"+qid+"/save", saver)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	saved := decodeEnvelope[ToggleSaveResponse](t, resp).Data
	assert.True(t, saved.Saved)
	require.NotNil(t, saved.SaveID)

	list := decodeEnvelope[service.ListResult[*domain.Question]](t, ts.api.Get("/api/v1/collections", saver)).Data
	require.Len(t, list.Items, 1)
	assert.Equal(t, qid, list.Items[0].ID)

	resp = ts.api.Post("/api/v1/questions/"+qid+"/save", saver)
	require.Equal(t, http.StatusOK, resp.Code)
	removed := decodeEnvelope[ToggleSaveResponse](t, resp).Data
	assert.False(t, removed.Saved)
	assert.Nil(t, removed.SaveID)

	list = decodeEnvelope[service.ListResult[*domain.Question]](t, ts.api.Get("/api/v1/collections", saver)).Data
	assert.Empty(t, list.Items)
}

func TestListSaved_RequiresIdentity(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/collections")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestTags(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go", "sql")
	ts.createQuestion(t, "u-2", "go")

	tags := decodeEnvelope[service.ListResult[*domain.Tag]](t, ts.api.Get("/api/v1/tags")).Data
	require.Len(t, tags.Items, 2)
	assert.Equal(t, "GO", tags.Items[0].Title)
	assert.Equal(t, 2, tags.Items[0].Questions)

	var sqlID string
	for _, tag := range tags.Items {
		if tag.Title == "SQL" {
			sqlID = tag.ID
		}
	}
	require.NotEmpty(t, sqlID)

	resp := ts.api.Get("/api/v1/tags/" + sqlID + "/questions")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeEnvelope[TagQuestionsResponse](t, resp).Data
	assert.Equal(t, "SQL", body.Tag.Title)
	require.Len(t, body.Questions.Items, 1)
	assert.Equal(t, qid, body.Questions.Items[0].ID)

	resp = ts.api.Get("/api/v1/tags/tag_missing/questions")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListQuestions_BadFilter(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/questions?filter=oldest")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearch(t *testing.T) {
	ts := setupTestServer(t, nil)
	qid := ts.createQuestion(t, "u-1", "go")

	resp := ts.api.Get("/api/v1/search?q=buffered&tag=go")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	res := decodeEnvelope[search.SearchResult](t, resp).Data
	require.Len(t, res.Hits, 1)
	assert.Equal(t, qid, res.Hits[0].ID)

	resp = ts.api.Get("/api/v1/search?q=buffered&limit=500")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRecordView_LimitedByIP(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)
	ts := setupTestServer(t, limiter)
	qid := ts.createQuestion(t, "u-1", "go")

	resp := ts.api.Post("/api/v1/questions/"+qid+"/views", "X-Real-IP: 198.51.100.4")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/questions/"+qid+"/views", "X-Real-IP: 198.51.100.4")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decodeEnvelope[any](t, resp).Code)

	q := decodeEnvelope[domain.Question](t, ts.api.Get("/api/v1/questions/"+qid)).Data
	assert.Equal(t, 1, q.Views)
}

func TestStreamUser(t *testing.T) {
	ts := setupTestServer(t, nil)
	token, err := ts.tokens.GenerateAccessToken("u-7")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, http.NoBody)
	assert.Equal(t, "u-7", ts.streamUser(r))

	r = httptest.NewRequest(http.MethodGet, "/api/v1/events?token=nope", http.NoBody)
	assert.Empty(t, ts.streamUser(r))

	r = httptest.NewRequest(http.MethodGet, "/api/v1/events", http.NoBody)
	r = r.WithContext(setUserID(r.Context(), "u-8"))
	assert.Equal(t, "u-8", ts.streamUser(r))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.api.Get("/health")

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "overflow_http_requests_total")
}
