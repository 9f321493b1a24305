package vote

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/store"
	"github.com/devoverflow/overflow-server/internal/store/sqlite"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		current    State
		requested  Polarity
		wantTo     State
		wantAction Action
		wantDeltas []Delta
		wantNet    int
	}{
		{
			name: "none + up", current: None, requested: Up,
			wantTo: Upvoted, wantAction: ActionCreate,
			wantDeltas: []Delta{{"upvotes", 1}}, wantNet: 1,
		},
		{
			name: "none + down", current: None, requested: Down,
			wantTo: Downvoted, wantAction: ActionCreate,
			wantDeltas: []Delta{{"downvotes", 1}}, wantNet: -1,
		},
		{
			name: "up + up toggles off", current: Upvoted, requested: Up,
			wantTo: None, wantAction: ActionDelete,
			wantDeltas: []Delta{{"upvotes", -1}}, wantNet: -1,
		},
		{
			name: "down + down toggles off", current: Downvoted, requested: Down,
			wantTo: None, wantAction: ActionDelete,
			wantDeltas: []Delta{{"downvotes", -1}}, wantNet: 1,
		},
		{
			name: "down + up switches", current: Downvoted, requested: Up,
			wantTo: Upvoted, wantAction: ActionUpdate,
			wantDeltas: []Delta{{"downvotes", -1}, {"upvotes", 1}}, wantNet: 2,
		},
		{
			name: "up + down switches", current: Upvoted, requested: Down,
			wantTo: Downvoted, wantAction: ActionUpdate,
			wantDeltas: []Delta{{"upvotes", -1}, {"downvotes", 1}}, wantNet: -2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Transition(tt.current, tt.requested)
			assert.Equal(t, tt.current, out.From)
			assert.Equal(t, tt.wantTo, out.To)
			assert.Equal(t, tt.wantAction, out.Action)
			assert.Equal(t, tt.wantDeltas, out.Deltas)
			assert.Equal(t, tt.wantNet, out.Net())
		})
	}
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, None, StateOf(nil))
	assert.Equal(t, Upvoted, StateOf(&domain.Vote{VoteType: domain.VoteUp}))
	assert.Equal(t, Downvoted, StateOf(&domain.Vote{VoteType: domain.VoteDown}))
}

func TestOutcome_Ops(t *testing.T) {
	target := Target{Kind: domain.TargetAnswer, ID: "ans-1"}

	ops := Transition(Downvoted, Up).Ops("vote-1", "u-1", target)
	require.Len(t, ops, 3)
	assert.Equal(t, store.Update(store.Votes, "vote-1", map[string]any{"vote_type": domain.VoteUp}), ops[0])
	assert.Equal(t, store.Decrement(store.Answers, "ans-1", "downvotes", 1), ops[1])
	assert.Equal(t, store.Increment(store.Answers, "ans-1", "upvotes", 1), ops[2])

	ops = Transition(None, Down).Ops("vote-2", "u-1", Target{Kind: domain.TargetQuestion, ID: "q-1"})
	require.Len(t, ops, 2)
	assert.Equal(t, store.OpCreate, ops[0].Kind)
	assert.Equal(t, "u-1", ops[0].Fields["author_id"])
	assert.Equal(t, store.Questions, ops[1].Collection)
}

// cast runs one vote the way the orchestrator does, without caching.
func cast(t *testing.T, s *sqlite.Store, voter string, target Target, p Polarity) Outcome {
	t.Helper()
	ctx := context.Background()

	existing, err := Lookup(ctx, s, voter, target)
	require.NoError(t, err)
	out := Transition(StateOf(existing), p)

	voteID := "vote-" + voter + "-" + target.ID
	if existing != nil {
		voteID = existing.ID
	}

	b, err := s.Begin(ctx)
	require.NoError(t, err)
	for _, op := range out.Ops(voteID, voter, target) {
		require.NoError(t, b.Add(op))
	}
	require.NoError(t, b.Commit(ctx))
	return out
}

func TestMachine_AgainstStore(t *testing.T) {
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	b, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Add(store.Create(store.Questions, "q-1", map[string]any{
		"author_id": "u-1", "title": "Question title", "content": "body",
	})))
	require.NoError(t, b.Commit(ctx))

	target := Target{Kind: domain.TargetQuestion, ID: "q-1"}
	tallies := func() (int, int) {
		q, err := s.Get(ctx, store.Questions, "q-1", "upvotes", "downvotes")
		require.NoError(t, err)
		return q.Int("upvotes"), q.Int("downvotes")
	}
	rows := func() int {
		n, err := s.Count(ctx, store.Votes, store.Eq("target_id", "q-1"))
		require.NoError(t, err)
		return n
	}

	t.Run("double upvote nets zero", func(t *testing.T) {
		cast(t, s, "u-2", target, Up)
		cast(t, s, "u-2", target, Up)

		up, down := tallies()
		assert.Equal(t, 0, up)
		assert.Equal(t, 0, down)
		assert.Equal(t, 0, rows())
	})

	t.Run("downvote then upvote is plus two with one row", func(t *testing.T) {
		cast(t, s, "u-3", target, Down)
		out := cast(t, s, "u-3", target, Up)

		assert.Equal(t, 2, out.Net())
		up, down := tallies()
		assert.Equal(t, 1, up)
		assert.Equal(t, 0, down)
		assert.Equal(t, 1, rows())

		existing, err := Lookup(ctx, s, "u-3", target)
		require.NoError(t, err)
		assert.Equal(t, Upvoted, StateOf(existing))
	})
}

func TestLookup_RequiresVoter(t *testing.T) {
	_, err := Lookup(context.Background(), nil, "", Target{Kind: domain.TargetQuestion, ID: "q-1"})
	assert.ErrorIs(t, err, ErrNoVoter)
}
