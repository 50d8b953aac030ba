package denylist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subscreen/internal/config"
	"subscreen/internal/logging"
)

// Backend names the selected store implementation.
type Backend string

const (
	BackendRedis Backend = "redis"
	BackendFile  Backend = "file"
)

// Manager wraps whichever backend was selected at construction time.
type Manager struct {
	Store
	backend Backend
}

// NewManager selects the backend once for the process lifetime. When a redis
// URL is configured and the server answers a bounded ping, the networked
// store wins; otherwise the file store is used and the fallback is logged.
// A mid-life reconnect requires a process restart.
func NewManager(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	ttl := time.Duration(cfg.Denylist.TTLHours) * time.Hour

	if cfg.Denylist.RedisURL != "" {
		store, err := NewRedisStore(cfg.Denylist.RedisURL, ttl, logger)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Denylist.PingTimeout)*time.Second)
			pingErr := store.Ping(ctx)
			cancel()
			if pingErr == nil {
				return &Manager{Store: store, backend: BackendRedis}, nil
			}
			_ = store.Close()
			err = pingErr
		}
		logging.WarnWithContext(logger, "redis denylist unreachable, falling back to file store", "denylist_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check redis_url and server availability"),
			logging.String(logging.FieldImpact, "denylist entries are local to this host until restart"))
	}

	store, err := NewFileStore(cfg.Denylist.Path, ttl, logger)
	if err != nil {
		return nil, fmt.Errorf("open file denylist: %w", err)
	}
	return &Manager{Store: store, backend: BackendFile}, nil
}

// ActiveBackend reports which store the manager selected.
func (m *Manager) ActiveBackend() Backend {
	return m.backend
}
