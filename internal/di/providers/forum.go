package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/payment"
	"github.com/talkboard/talkboard-web/internal/ratelimit"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/upload"
)

// ForumClientHandle wraps the forum API client and its rate limiter.
type ForumClientHandle struct {
	*apiclient.Client
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *ForumClientHandle) Shutdown() error {
	h.Close()
	h.limiter.Stop()
	return nil
}

// ProvideForumClient provides the forum API client. Requests carry the ID
// token of the session in the request context, and a 401 from the forum
// signs that session out.
func ProvideForumClient(i do.Injector) (*ForumClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sessions := do.MustInvoke[*session.Manager](i)
	version := do.MustInvoke[Version](i)

	clientLog := log.Component("apiclient")
	limiter := ratelimit.New(cfg.API.RateLimit, cfg.API.Burst)

	client, err := apiclient.New(apiclient.Options{
		BaseURL:        cfg.API.BaseURL,
		Credentials:    sessions.Token,
		OnUnauthorized: sessions.HandleUnauthorized,
		OnForbidden: func(ctx context.Context) {
			clientLog.Warn("Forum API refused request", "email", session.FromContext(ctx).Email())
		},
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Limiter:    limiter,
		Logger:     clientLog.Logger,
		UserAgent:  "Talkboard/" + string(version),
	})
	if err != nil {
		limiter.Stop()
		return nil, err
	}

	log.Info("Forum API client ready",
		"base_url", client.BaseURL(),
		"rate_limit", cfg.API.RateLimit,
		"burst", cfg.API.Burst,
	)
	return &ForumClientHandle{Client: client, limiter: limiter}, nil
}

// ProvideUploader provides the photo upload client.
func ProvideUploader(i do.Injector) (*upload.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return upload.New(upload.Config{
		URL:      cfg.Upload.URL,
		Key:      cfg.Upload.Key,
		MaxBytes: cfg.Upload.MaxBytes,
	}, log.Component("upload").Logger), nil
}

// ProvidePayments provides the payment provider client.
func ProvidePayments(i do.Injector) (*payment.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return payment.New(cfg.Payment.BaseURL, cfg.Payment.SecretKey, log.Component("payment").Logger), nil
}
