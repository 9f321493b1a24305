package cache

import (
	"context"
	"log/slog"
)

// Publisher announces fired tags to live clients.
type Publisher interface {
	PublishInvalidation(mutation Mutation, tags []Tag, affected Affected)
}

// Invalidator fires a mutation's tags after its batch has committed.
type Invalidator struct {
	register  *Register
	backend   Backend
	publisher Publisher
	logger    *slog.Logger
}

// NewInvalidator creates an invalidator. publisher may be nil.
func NewInvalidator(register *Register, backend Backend, publisher Publisher, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Invalidator{register: register, backend: backend, publisher: publisher, logger: logger}
}

// Invalidate bumps every tag m fires for a and returns them. It must only
// be called once the mutation's batch has committed. Failures are logged
// and never surface to the caller: the write already happened, and
// entries age out through their TTL.
func (i *Invalidator) Invalidate(ctx context.Context, m Mutation, a Affected) []Tag {
	tags, err := i.register.Tags(m, a)
	if err != nil {
		i.logger.Error("cache tags not resolved", "mutation", m, "error", err)
		return nil
	}
	if len(tags) == 0 {
		return nil
	}

	// Invalidation must outlive a canceled request.
	ctx = context.WithoutCancel(ctx)

	if err := i.backend.Bump(ctx, versionKeys(tags)); err != nil {
		backendErrorsTotal.WithLabelValues("bump").Inc()
		i.logger.Error("cache invalidation failed", "mutation", m, "tags", tagStrings(tags), "error", err)
	} else {
		i.logger.Debug("cache tags fired", "mutation", m, "tags", tagStrings(tags))
	}

	for _, t := range tags {
		tagsFiredTotal.WithLabelValues(string(t.Kind)).Inc()
	}
	if i.publisher != nil {
		i.publisher.PublishInvalidation(m, tags, a)
	}
	return tags
}
