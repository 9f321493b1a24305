// Package vote implements the vote state machine.
//
// A voter has at most one vote per target. The machine is stateless: each
// call reconstructs the current state from the existing vote row and yields
// exactly one next state plus the counter deltas that keep the target's
// upvotes/downvotes tallies in step with the vote rows.
package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/store"
)

// ErrNoVoter is returned when no voter identity is supplied.
var ErrNoVoter = errors.New("voter identity required")

// State is a voter's standing on one target.
type State int

const (
	None State = iota
	Upvoted
	Downvoted
)

func (s State) String() string {
	switch s {
	case Upvoted:
		return "upvoted"
	case Downvoted:
		return "downvoted"
	default:
		return "none"
	}
}

// Polarity is the direction of a requested vote.
type Polarity int

const (
	Up Polarity = iota
	Down
)

func (p Polarity) String() string {
	if p == Down {
		return "down"
	}
	return "up"
}

// Opposite returns the other polarity.
func (p Polarity) Opposite() Polarity {
	if p == Up {
		return Down
	}
	return Up
}

// VoteType is the stored form of the polarity.
func (p Polarity) VoteType() domain.VoteType {
	if p == Down {
		return domain.VoteDown
	}
	return domain.VoteUp
}

// Counter is the target field tallying votes of this polarity.
func (p Polarity) Counter() string {
	if p == Down {
		return "downvotes"
	}
	return "upvotes"
}

func (p Polarity) state() State {
	if p == Down {
		return Downvoted
	}
	return Upvoted
}

// Action is the change applied to the vote row.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionDelete
	ActionUpdate
)

// Delta is a counter change on the vote target.
type Delta struct {
	Field  string
	Amount int // +1 or -1
}

// Outcome is the single valid result of a transition.
type Outcome struct {
	From   State
	To     State
	Action Action
	Type   domain.VoteType // stored vote type after create or update
	Deltas []Delta
}

// Net returns the change in (upvotes - downvotes).
func (o Outcome) Net() int {
	net := 0
	for _, d := range o.Deltas {
		if d.Field == "downvotes" {
			net -= d.Amount
		} else {
			net += d.Amount
		}
	}
	return net
}

// Transition applies a requested polarity to the current state.
//
//	none     + P        → create P, +1 P
//	P        + P        → delete,   -1 P      (toggle off)
//	opposite + P        → update P, -1 opposite, +1 P
func Transition(current State, requested Polarity) Outcome {
	switch current {
	case None:
		return Outcome{
			From:   None,
			To:     requested.state(),
			Action: ActionCreate,
			Type:   requested.VoteType(),
			Deltas: []Delta{{Field: requested.Counter(), Amount: 1}},
		}
	case requested.state():
		return Outcome{
			From:   current,
			To:     None,
			Action: ActionDelete,
			Deltas: []Delta{{Field: requested.Counter(), Amount: -1}},
		}
	default:
		return Outcome{
			From:   current,
			To:     requested.state(),
			Action: ActionUpdate,
			Type:   requested.VoteType(),
			Deltas: []Delta{
				{Field: requested.Opposite().Counter(), Amount: -1},
				{Field: requested.Counter(), Amount: 1},
			},
		}
	}
}

// StateOf reconstructs the state from the existing vote row, if any.
func StateOf(existing *domain.Vote) State {
	if existing == nil {
		return None
	}
	if existing.VoteType == domain.VoteDown {
		return Downvoted
	}
	return Upvoted
}

// Target identifies what is being voted on.
type Target struct {
	Kind domain.TargetKind
	ID   string
}

// Collection returns the record set holding the target's tallies.
func (t Target) Collection() store.Collection {
	if t.Kind == domain.TargetAnswer {
		return store.Answers
	}
	return store.Questions
}

// Ops renders the outcome as store operations: the vote row change first,
// then the counter deltas. voteID is the existing row's id for delete and
// update, or a fresh id for create.
func (o Outcome) Ops(voteID, voterID string, target Target) []store.Op {
	ops := make([]store.Op, 0, 1+len(o.Deltas))

	switch o.Action {
	case ActionCreate:
		ops = append(ops, store.Create(store.Votes, voteID, map[string]any{
			"author_id":   voterID,
			"target_type": target.Kind,
			"target_id":   target.ID,
			"vote_type":   o.Type,
		}))
	case ActionDelete:
		ops = append(ops, store.Delete(store.Votes, voteID))
	case ActionUpdate:
		ops = append(ops, store.Update(store.Votes, voteID, map[string]any{"vote_type": o.Type}))
	}

	for _, d := range o.Deltas {
		if d.Amount < 0 {
			ops = append(ops, store.Decrement(target.Collection(), target.ID, d.Field, -d.Amount))
		} else {
			ops = append(ops, store.Increment(target.Collection(), target.ID, d.Field, d.Amount))
		}
	}
	return ops
}

// Lookup reads the voter's existing vote on target. It returns nil, nil
// when the voter has not voted.
func Lookup(ctx context.Context, r store.Reader, voterID string, target Target) (*domain.Vote, error) {
	if voterID == "" {
		return nil, ErrNoVoter
	}

	recs, err := r.List(ctx, store.Votes, store.Query{
		Filters: []store.Filter{
			store.Eq("author_id", voterID),
			store.Eq("target_type", target.Kind),
			store.Eq("target_id", target.ID),
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("lookup vote: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	rec := recs[0]
	return &domain.Vote{
		ID:         rec.ID(),
		AuthorID:   rec.String("author_id"),
		TargetType: domain.TargetKind(rec.String("target_type")),
		TargetID:   rec.String("target_id"),
		VoteType:   domain.VoteType(rec.String("vote_type")),
		CreatedAt:  rec.Time("created_at"),
		UpdatedAt:  rec.Time("updated_at"),
	}, nil
}
