package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/devoverflow/overflow-server/internal/api"
	"github.com/devoverflow/overflow-server/internal/auth"
	"github.com/devoverflow/overflow-server/internal/config"
	"github.com/devoverflow/overflow-server/internal/logger"
	"github.com/devoverflow/overflow-server/internal/ratelimit"
	"github.com/devoverflow/overflow-server/internal/service"
)

// View counting is anonymous, so it is limited per client address instead
// of per user.
const (
	viewLimitRPS   = 0.2
	viewLimitBurst = 5
	viewLimitIdle  = 30 * time.Minute
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	viewLimiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.viewLimiter.Stop()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Questions:   do.MustInvoke[*service.QuestionService](i),
		Answers:     do.MustInvoke[*service.AnswerService](i),
		Votes:       do.MustInvoke[*service.VoteService](i),
		Collections: do.MustInvoke[*service.CollectionService](i),
		Tags:        do.MustInvoke[*service.TagService](i),
		Search:      do.MustInvoke[*service.SearchService](i),
	}

	viewLimiter := ratelimit.NewWithIdleTTL(viewLimitRPS, viewLimitBurst, viewLimitIdle)

	handler := api.NewServer(api.Options{
		Services:    services,
		Tokens:      tokenService,
		SSE:         sseHandle.Manager,
		Database:    storeHandle.Store,
		Index:       indexHandle.SearchIndex,
		IPLimiter:   viewLimiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log.Component("http").Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, viewLimiter: viewLimiter}, nil
}
