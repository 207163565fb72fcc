package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/routes"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Talkboard gateway",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"api_base_url", cfg.API.BaseURL,
		"data_path", cfg.Session.DataPath,
	)

	return log, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideRoutes provides the capability routing table.
func ProvideRoutes(_ do.Injector) (*routes.Table, error) {
	return routes.New()
}
