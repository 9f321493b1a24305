package providers

import (
	"github.com/samber/do/v2"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/config"
	"github.com/devoverflow/overflow-server/internal/logger"
	"github.com/devoverflow/overflow-server/internal/ratelimit"
	"github.com/devoverflow/overflow-server/internal/service"
	"github.com/devoverflow/overflow-server/internal/validation"
)

// MutationLimiterHandle wraps the per-user mutation limiter. Limiter is nil
// when rate limiting is disabled.
type MutationLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *MutationLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideMutationLimiter provides the per-user mutation rate limiter.
func ProvideMutationLimiter(i do.Injector) (*MutationLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.RateLimit.Enabled {
		log.Info("Mutation rate limiting disabled by configuration")
		return &MutationLimiterHandle{}, nil
	}

	return &MutationLimiterHandle{
		Limiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideRunner provides the mutation runner shared by all write services.
func ProvideRunner(i do.Injector) (*service.Runner, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	invalidator := do.MustInvoke[*cache.Invalidator](i)
	limiterHandle := do.MustInvoke[*MutationLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRunner(storeHandle.Store, invalidator, limiterHandle.Limiter, log.Component("mutations").Logger), nil
}

// ProvideQuestionService provides the question service.
func ProvideQuestionService(i do.Injector) (*service.QuestionService, error) {
	runner := do.MustInvoke[*service.Runner](i)
	views := do.MustInvoke[*cache.Views](i)
	validator := do.MustInvoke[*validation.Validator](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewQuestionService(runner, views, validator, searchService, log.Logger), nil
}

// ProvideAnswerService provides the answer service.
func ProvideAnswerService(i do.Injector) (*service.AnswerService, error) {
	runner := do.MustInvoke[*service.Runner](i)
	views := do.MustInvoke[*cache.Views](i)
	validator := do.MustInvoke[*validation.Validator](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnswerService(runner, views, validator, searchService, log.Logger), nil
}

// ProvideVoteService provides the vote service.
func ProvideVoteService(i do.Injector) (*service.VoteService, error) {
	runner := do.MustInvoke[*service.Runner](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewVoteService(runner, searchService, log.Logger), nil
}

// ProvideCollectionService provides the saved-question collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	runner := do.MustInvoke[*service.Runner](i)
	views := do.MustInvoke[*cache.Views](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCollectionService(runner, views, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	runner := do.MustInvoke[*service.Runner](i)
	views := do.MustInvoke[*cache.Views](i)
	questions := do.MustInvoke[*service.QuestionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(runner, views, questions, log.Logger), nil
}
