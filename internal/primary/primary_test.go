package primary

import (
	"testing"

	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"

	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/raw"
)

func newSession(t *testing.T, srv *lamptest.Server) *feature.Session {
	t.Helper()
	cfg := &config.Config{CacheEnabled: false}
	return feature.NewSessionWithClient(cfg, srv.Client(), zap.NewNop())
}

func newCachedSession(t *testing.T, srv *lamptest.Server) *feature.Session {
	t.Helper()
	cfg := &config.Config{CacheEnabled: true, CacheDir: t.TempDir()}
	return feature.NewSessionWithClient(cfg, srv.Client(), zap.NewNop())
}

func sensorEvent(ts int64, data map[string]interface{}) lamp.SensorEvent {
	return lamp.SensorEvent{Timestamp: ts, Data: data}
}
