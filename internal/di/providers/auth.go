package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/auth"
	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/identity"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/session"
)

// CookieKey wraps the session cookie key bytes.
type CookieKey []byte

// ProvideCookieKey decodes SESSION_KEY, or loads or generates the key in the data path.
func ProvideCookieKey(i do.Injector) (CookieKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Session.KeyHex != "" {
		key, err := auth.DecodeKey(cfg.Session.KeyHex)
		if err != nil {
			return nil, err
		}
		log.Info("Session cookie key loaded from configuration")
		return CookieKey(key), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Session.DataPath)
	if err != nil {
		return nil, err
	}

	log.Info("Session cookie key loaded",
		"data_path", cfg.Session.DataPath,
		"session_duration", cfg.Session.Duration,
	)

	return CookieKey(key), nil
}

// ProvideCookieCodec provides the PASETO cookie codec.
func ProvideCookieCodec(i do.Injector) (*auth.CookieCodec, error) {
	key := do.MustInvoke[CookieKey](i)
	return auth.NewCookieCodec([]byte(key))
}

// IdentityHandle wraps the identity provider client with shutdown capability.
type IdentityHandle struct {
	*identity.Client
}

// Shutdown implements do.Shutdownable.
func (h *IdentityHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideIdentity provides the identity provider client.
func ProvideIdentity(i do.Injector) (*IdentityHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := identity.New(identity.Config{
		BaseURL:  cfg.Identity.BaseURL,
		TokenURL: cfg.Identity.TokenURL,
		APIKey:   cfg.Identity.APIKey,
	}, log.Component("identity").Logger)

	return &IdentityHandle{Client: client}, nil
}

// ProvideSessionManager provides the session manager.
func ProvideSessionManager(i do.Injector) (*session.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*SessionStoreHandle](i)
	identityHandle := do.MustInvoke[*IdentityHandle](i)
	codec := do.MustInvoke[*auth.CookieCodec](i)

	return session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		Duration:     cfg.Session.Duration,
		RefreshSkew:  cfg.Session.RefreshSkew,
		SecureCookie: cfg.Session.SecureCookie,
	}, storeHandle.Store, identityHandle.Client, codec, nil, log.Component("session").Logger), nil
}

// SessionJanitor deletes expired sessions in the background.
type SessionJanitor struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *SessionJanitor) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideSessionJanitor starts the expired session sweep.
func ProvideSessionJanitor(i do.Injector) (*SessionJanitor, error) {
	manager := do.MustInvoke[*session.Manager](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	j := &SessionJanitor{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(j.done)
		manager.RunJanitor(ctx, janitorInterval)
	}()

	log.Info("Session janitor started", "interval", janitorInterval)
	return j, nil
}
