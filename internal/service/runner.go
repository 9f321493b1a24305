// Package service implements the Overflow mutation orchestrator and the
// cached read side.
//
// Every mutation follows one shape: authenticate, validate, read what the
// plan needs, build the complete operation list, then hand it to the Runner.
// The Runner applies the list as one batch and fires the mutation's cache
// tags only after the batch has committed.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devoverflow/overflow-server/internal/cache"
	domainerrors "github.com/devoverflow/overflow-server/internal/errors"
	"github.com/devoverflow/overflow-server/internal/logger"
	"github.com/devoverflow/overflow-server/internal/ratelimit"
	"github.com/devoverflow/overflow-server/internal/store"
)

// Runner applies one mutation's operations as a single batch.
type Runner struct {
	store       store.Store
	invalidator *cache.Invalidator
	limiter     *ratelimit.KeyedRateLimiter
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewRunner creates a Runner. limiter may be nil to disable per-user
// mutation limits.
func NewRunner(s store.Store, invalidator *cache.Invalidator, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		store:       s,
		invalidator: invalidator,
		limiter:     limiter,
		tracer:      otel.Tracer("overflow.service"),
		logger:      logger,
	}
}

// Reader exposes the store for the reads a mutation plans with.
func (r *Runner) Reader() store.Reader {
	return r.store
}

// Admit checks that a mutation has an acting user and that the user is
// within their mutation rate.
func (r *Runner) Admit(userID string) error {
	if userID == "" {
		return domainerrors.Unauthorized("sign in required")
	}
	if r.limiter != nil && !r.limiter.Allow(userID) {
		return domainerrors.RateLimited("too many changes, slow down")
	}
	return nil
}

// Run begins a batch, adds ops in order and commits. A failed commit is
// rolled back and its error returned unchanged; nothing is retried. On
// success the mutation's cache tags fire before Run returns.
func (r *Runner) Run(ctx context.Context, m cache.Mutation, a cache.Affected, ops []store.Op) error {
	ctx, span := r.tracer.Start(ctx, "service.mutation",
		trace.WithAttributes(
			attribute.String("mutation", string(m)),
			attribute.Int("ops", len(ops)),
		))
	defer span.End()

	batch, err := r.store.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return err
	}

	log := r.logger.With(
		slog.String(logger.KeyMutation, string(m)),
		slog.String(logger.KeyBatch, batch.ID()),
	)

	for _, op := range ops {
		if err := batch.Add(op); err != nil {
			if rbErr := batch.Rollback(); rbErr != nil {
				log.Error("rollback failed", slog.String(logger.KeyError, rbErr.Error()))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid operation")
			return domainerrors.Wrapf(err, domainerrors.CodeInternal, "%s: invalid operation", m)
		}
	}

	if err := batch.Commit(ctx); err != nil {
		if rbErr := batch.Rollback(); rbErr != nil {
			log.Error("rollback failed", slog.String(logger.KeyError, rbErr.Error()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		log.Warn("mutation failed",
			slog.String(logger.KeyQuestion, a.QuestionID),
			slog.String(logger.KeyUserID, a.UserID),
			slog.String(logger.KeyError, err.Error()))
		return err
	}

	fired := r.invalidator.Invalidate(ctx, m, a)
	log.Info("mutation committed",
		slog.String(logger.KeyQuestion, a.QuestionID),
		slog.String(logger.KeyUserID, a.UserID),
		slog.Int("ops", len(ops)),
		slog.Int("tags", len(fired)))
	return nil
}

// ownerPermissions grants everyone read access and the owner write access.
func ownerPermissions(userID string) []string {
	return []string{
		`read("any")`,
		`update("user:` + userID + `")`,
		`delete("user:` + userID + `")`,
	}
}
