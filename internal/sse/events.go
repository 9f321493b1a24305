// Package sse streams cache invalidations to connected clients over
// Server-Sent Events, so open pages know which views to refetch.
package sse

import (
	"time"

	"github.com/devoverflow/overflow-server/internal/cache"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventCacheInvalidated announces tags fired by a committed mutation.
	EventCacheInvalidated EventType = "cache.invalidated"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID limits delivery to one user's clients. Empty means everyone.
	UserID string `json:"-"`
	// QuestionID routes invalidations to streams watching that question.
	QuestionID string `json:"-"`
}

// InvalidationEventData is the payload of cache.invalidated events.
type InvalidationEventData struct {
	Mutation   cache.Mutation `json:"mutation"`
	QuestionID string         `json:"question_id,omitempty"`
	Tags       []string       `json:"tags"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewInvalidationEvent creates a cache.invalidated event.
func NewInvalidationEvent(mutation cache.Mutation, questionID string, tags []cache.Tag) Event {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	return Event{
		Type:       EventCacheInvalidated,
		Timestamp:  time.Now(),
		QuestionID: questionID,
		Data: InvalidationEventData{
			Mutation:   mutation,
			QuestionID: questionID,
			Tags:       names,
		},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
