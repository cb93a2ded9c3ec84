package feature

import (
	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/cache"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
)

// Session carries the shared collaborators of one run: configuration, the
// backend client, the local cache, and the logger. The backend connection is
// opened lazily so purely cache-served calls never require credentials.
type Session struct {
	cfg    *config.Config
	logger *zap.Logger

	client *lamp.Client
	store  *cache.Store
}

// NewSession builds a session from configuration.
func NewSession(cfg *config.Config, logger *zap.Logger) *Session {
	return &Session{cfg: cfg, logger: logger}
}

// NewSessionWithClient builds a session around an existing client. Used by
// tests and by callers that manage their own transport.
func NewSessionWithClient(cfg *config.Config, client *lamp.Client, logger *zap.Logger) *Session {
	return &Session{cfg: cfg, logger: logger, client: client}
}

// Client returns the backend client, opening it on first use. Fails with a
// Configuration error when credentials are absent.
func (s *Session) Client() (*lamp.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if !s.cfg.HasCredentials() {
		return nil, cerrors.E("feature.Session", cerrors.KindConfiguration,
			"LAMP_ACCESS_KEY, LAMP_SECRET_KEY and LAMP_SERVER_ADDRESS must be set", nil)
	}
	s.client = lamp.NewClient(s.cfg.ServerAddress, s.cfg.AccessKey, s.cfg.SecretKey, s.logger)
	return s.client, nil
}

// Cache returns the local blob store, or nil when caching is disabled.
// Opening failures disable caching for the rest of the run.
func (s *Session) Cache() *cache.Store {
	if !s.cfg.CacheEnabled {
		return nil
	}
	if s.store == nil {
		store, err := cache.New(s.cfg.CacheDir, s.cfg.CacheCompression, s.logger)
		if err != nil {
			s.logger.Warn("cache unavailable, continuing without it", zap.Error(err))
			s.cfg.CacheEnabled = false
			return nil
		}
		s.store = store
	}
	return s.store
}

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}
