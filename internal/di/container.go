// Package di wires the gateway's components with samber/do.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(cfg *config.Config, version string) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, providers.Version(version))

	// Ambient
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideRoutes)

	// Sessions
	do.Provide(injector, providers.ProvideCookieKey)
	do.Provide(injector, providers.ProvideCookieCodec)
	do.Provide(injector, providers.ProvideSessionStore)
	do.Provide(injector, providers.ProvideIdentity)
	do.Provide(injector, providers.ProvideSessionManager)
	do.Provide(injector, providers.ProvideSessionJanitor)

	// Data
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideQueryCache)
	do.Provide(injector, providers.ProvideTagIndex)
	do.Provide(injector, providers.ProvideForumClient)
	do.Provide(injector, providers.ProvideUploader)
	do.Provide(injector, providers.ProvidePayments)

	// Services
	do.Provide(injector, providers.ProvideUserDirectory)
	do.Provide(injector, providers.ProvideEnricher)
	do.Provide(injector, providers.ProvideRoleResolver)
	do.Provide(injector, providers.ProvideContentService)
	do.Provide(injector, providers.ProvidePostService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideAdminService)
	do.Provide(injector, providers.ProvideDashboardService)
	do.Provide(injector, providers.ProvideMembershipService)
	do.Provide(injector, providers.ProvideAuthService)

	// HTTP
	do.Provide(injector, providers.ProvideServices)
	do.Provide(injector, providers.ProvideSignInLimiter)
	do.Provide(injector, providers.ProvideLiveSearch)
	do.Provide(injector, providers.ProvideHealthChecks)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap starts the background workers and the HTTP server.
// Call this after NewContainer to start the gateway.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*providers.SessionJanitor](injector); err != nil {
		return fmt.Errorf("start session janitor: %w", err)
	}

	providers.WarmTagIndex(injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}
