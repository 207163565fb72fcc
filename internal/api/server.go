// Package api is the HTTP surface of the gateway: JSON page views on the chi
// router, the huma JSON API under /api/v1, live search and the event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/guard"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/ratelimit"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/routes"
	"github.com/talkboard/talkboard-web/internal/search"
	"github.com/talkboard/talkboard-web/internal/service"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/sse"
)

// Services groups the services used by the handlers.
type Services struct {
	Auth       *service.AuthService
	Posts      *service.PostService
	Comments   *service.CommentService
	Content    *service.ContentService
	Admin      *service.AdminService
	Dashboard  *service.DashboardService
	Membership *service.MembershipService
}

// Deps are the collaborators of the server besides the services.
type Deps struct {
	Sessions      *session.Manager
	Roles         *role.Resolver
	Routes        *routes.Table
	Enricher      *dto.Enricher
	SSE           *sse.Manager
	Live          *search.LiveHandler
	SignInLimiter *ratelimit.KeyedRateLimiter
	Health        []HealthCheck
	Logger        *logger.Logger
}

// Options configures the server.
type Options struct {
	AllowedOrigins []string
	// PublicURL is the browser-facing origin used in share links.
	PublicURL string
	Version   string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	deps     Deps
	opts     Options
	guards   *guard.Guards
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(services *Services, deps Deps, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{
		services: services,
		deps:     deps,
		opts:     opts,
		guards:   guard.New(deps.Roles, deps.Logger.Logger),
		router:   chi.NewRouter(),
		logger:   deps.Logger.Logger,
	}

	s.setupMiddleware()
	s.setupAPI()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.deps.Logger.Middleware)
	s.router.Use(middleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Location", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.router.Use(s.deps.Sessions.Middleware)
	s.router.Use(clearSignedOutCookie(s.deps.Sessions))
	s.router.Use(withClientInfo)
	s.router.Use(s.deps.Enricher.Middleware)
}

func (s *Server) setupAPI() {
	config := huma.DefaultConfig("Talkboard API", s.opts.Version)
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"session": {
			Type: "apiKey",
			In:   "cookie",
			Name: s.deps.Sessions.CookieName(),
		},
	}
	config.Transformers = append(config.Transformers, EnvelopeTransformer)
	config.DocsPath = "/api/docs"
	config.OpenAPIPath = "/api/openapi"

	RegisterErrorHandler()
	s.api = humachi.New(s.router, config)
	s.api.UseMiddleware(s.routeAccess)

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerPostRoutes()
	s.registerCommentRoutes()
	s.registerAdminRoutes()
	s.registerMembershipRoutes()
	s.registerContentRoutes()
}

func (s *Server) setupRoutes() {
	s.router.Method(http.MethodGet, "/ws/search", s.deps.Live)
	s.router.Method(http.MethodGet, "/api/v1/events", sse.NewHandler(s.deps.SSE, s.deps.Roles.IsAdmin, s.logger))

	s.registerPageRoutes()
}

// LiveSearchKinds returns the collections served by /ws/search.
func LiveSearchKinds(services *Services) map[string]search.Kind {
	return map[string]search.Kind{
		"users": {
			AdminOnly: true,
			Search: func(ctx context.Context, q string) (any, error) {
				return services.Admin.SearchUsers(ctx, q)
			},
		},
		"posts": {
			Search: func(ctx context.Context, q string) (any, error) {
				return services.Posts.Search(ctx, q)
			},
		},
		"tags": {
			Search: func(ctx context.Context, q string) (any, error) {
				return services.Content.SuggestTags(ctx, q, 0)
			},
		},
	}
}
