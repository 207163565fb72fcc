package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/store/sqlite"
)

// SessionStoreHandle wraps the session store with shutdown capability.
type SessionStoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *SessionStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideSessionStore provides the SQLite session store.
func ProvideSessionStore(i do.Injector) (*SessionStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Session.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Session.DataPath, "sessions.db")
	store, err := sqlite.Open(dbPath, log.Component("store").Logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	log.Info("Session store opened", "path", dbPath)
	return &SessionStoreHandle{Store: store}, nil
}
