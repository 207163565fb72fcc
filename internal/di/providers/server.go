package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/api"
	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/ratelimit"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/routes"
	"github.com/talkboard/talkboard-web/internal/search"
	"github.com/talkboard/talkboard-web/internal/service"
	"github.com/talkboard/talkboard-web/internal/session"
)

// Version is the build version reported by /health and the forum user agent.
type Version string

// ProvideServices bundles the services used by the HTTP layer.
func ProvideServices(i do.Injector) (*api.Services, error) {
	return &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		Posts:      do.MustInvoke[*service.PostService](i),
		Comments:   do.MustInvoke[*service.CommentService](i),
		Content:    do.MustInvoke[*service.ContentService](i),
		Admin:      do.MustInvoke[*service.AdminService](i),
		Dashboard:  do.MustInvoke[*service.DashboardService](i),
		Membership: do.MustInvoke[*service.MembershipService](i),
	}, nil
}

// SignInLimiterHandle wraps the per-IP sign-in limiter.
type SignInLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *SignInLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSignInLimiter provides the per-IP sign-in rate limiter.
func ProvideSignInLimiter(i do.Injector) (*SignInLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	perMinute := max(cfg.Identity.SignInRate, 1)
	return &SignInLimiterHandle{
		KeyedRateLimiter: ratelimit.New(ratelimit.PerMinute(perMinute), perMinute),
	}, nil
}

// ProvideLiveSearch provides the debounced WebSocket search handler.
func ProvideLiveSearch(i do.Injector) (*search.LiveHandler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	services := do.MustInvoke[*api.Services](i)
	roles := do.MustInvoke[*role.Resolver](i)

	return search.NewLiveHandler(search.LiveOptions{
		Kinds:          api.LiveSearchKinds(services),
		RequireAdmin:   roles.Require,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Delay:          cfg.Search.Debounce,
		Logger:         log.Component("live").Logger,
	}), nil
}

// ProvideHealthChecks provides the component checks reported by /health.
func ProvideHealthChecks(i do.Injector) ([]api.HealthCheck, error) {
	store := do.MustInvoke[*SessionStoreHandle](i)
	index := do.MustInvoke[*TagIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return []api.HealthCheck{
		{
			Name: "sessions",
			Check: func(ctx context.Context) api.ComponentHealth {
				if err := store.Ping(ctx); err != nil {
					return api.ComponentHealth{Status: api.StatusUnhealthy, Message: err.Error()}
				}
				return api.ComponentHealth{Status: api.StatusHealthy}
			},
		},
		{
			Name: "search",
			Check: func(context.Context) api.ComponentHealth {
				count := index.Count()
				if count == 0 {
					return api.ComponentHealth{Status: api.StatusDegraded, Message: "tag index is empty"}
				}
				return api.ComponentHealth{Status: api.StatusHealthy, Message: fmt.Sprintf("%d tags", count)}
			},
		},
		{
			Name: "sse",
			Check: func(context.Context) api.ComponentHealth {
				return api.ComponentHealth{
					Status:  api.StatusHealthy,
					Message: fmt.Sprintf("%d clients", sseHandle.ClientCount()),
				}
			},
		},
	}, nil
}

// ProvideAPIServer provides the HTTP handler for pages and the JSON API.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	version := do.MustInvoke[Version](i)

	deps := api.Deps{
		Sessions:      do.MustInvoke[*session.Manager](i),
		Roles:         do.MustInvoke[*role.Resolver](i),
		Routes:        do.MustInvoke[*routes.Table](i),
		Enricher:      do.MustInvoke[*dto.Enricher](i),
		SSE:           do.MustInvoke[*SSEManagerHandle](i).Manager,
		Live:          do.MustInvoke[*search.LiveHandler](i),
		SignInLimiter: do.MustInvoke[*SignInLimiterHandle](i).KeyedRateLimiter,
		Health:        do.MustInvoke[[]api.HealthCheck](i),
		Logger:        log,
	}

	return api.NewServer(do.MustInvoke[*api.Services](i), deps, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		PublicURL:      cfg.Server.PublicURL,
		Version:        string(version),
	}), nil
}

// HTTPServerHandle wraps the HTTP server with shutdown capability.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*api.Server](i)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: httpServer}, nil
}
