package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Views is a read-through cache of rendered read views.
//
// Each entry is stamped with the versions of its tags taken before the
// fill ran. A lookup compares the stamp with the current versions, so an
// entry filled while an invalidation was in flight is already stale when
// it lands. Concurrent fills for the same key and stamp are coalesced.
type Views struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
	flight  singleflight.Group
}

// NewViews creates a view cache over backend.
func NewViews(backend Backend, ttl time.Duration, logger *slog.Logger) *Views {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Views{backend: backend, ttl: ttl, logger: logger}
}

type entry struct {
	Stamp []uint64        `json:"stamp"`
	Value json.RawMessage `json:"value"`
}

// Read returns the cached view for key, or runs fill and caches its result.
// tags are the tags the view depends on. Backend failures fall through to
// fill; they never fail the read.
func Read[T any](ctx context.Context, v *Views, key string, tags []Tag, fill func(context.Context) (T, error)) (T, error) {
	var zero T

	versions, err := v.backend.Versions(ctx, versionKeys(tags))
	if err != nil {
		backendErrorsTotal.WithLabelValues("versions").Inc()
		viewRequestsTotal.WithLabelValues("bypass").Inc()
		v.logger.Warn("view cache unavailable, reading through", "key", key, "error", err)
		return fill(ctx)
	}

	entryKey := entryPrefix + key
	if raw, ok, err := v.backend.Load(ctx, entryKey); err != nil {
		backendErrorsTotal.WithLabelValues("load").Inc()
		v.logger.Warn("view cache load failed", "key", key, "error", err)
	} else if ok {
		var e entry
		if json.Unmarshal(raw, &e) == nil && slices.Equal(e.Stamp, versions) {
			var out T
			if err := json.Unmarshal(e.Value, &out); err == nil {
				viewRequestsTotal.WithLabelValues("hit").Inc()
				return out, nil
			}
		}
	}
	viewRequestsTotal.WithLabelValues("miss").Inc()

	raw, err, _ := v.flight.Do(entryKey+"@"+stampString(versions), func() (any, error) {
		value, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode view %s: %w", key, err)
		}
		e, err := json.Marshal(entry{Stamp: versions, Value: data})
		if err != nil {
			return nil, fmt.Errorf("encode view %s: %w", key, err)
		}
		if err := v.backend.Save(ctx, entryKey, e, v.ttl); err != nil {
			backendErrorsTotal.WithLabelValues("save").Inc()
			v.logger.Warn("view cache save failed", "key", key, "error", err)
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw.([]byte), &out); err != nil {
		return zero, fmt.Errorf("decode view %s: %w", key, err)
	}
	return out, nil
}

// Key joins view key parts, e.g. Key("questions", "newest", 2) = "questions|newest|2".
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, "|")
}

func stampString(versions []uint64) string {
	s := make([]string, len(versions))
	for i, v := range versions {
		s[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(s, ".")
}
