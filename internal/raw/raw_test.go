package raw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"
)

func newSession(t *testing.T, srv *lamptest.Server, cacheDir string) *feature.Session {
	t.Helper()
	cfg := &config.Config{CacheEnabled: cacheDir != "", CacheDir: cacheDir}
	return feature.NewSessionWithClient(cfg, srv.Client(), zap.NewNop())
}

func gpsEvent(ts int64, lat, lon float64) lamp.SensorEvent {
	return lamp.SensorEvent{
		Timestamp: ts,
		Data:      map[string]interface{}{"latitude": lat, "longitude": lon},
	}
}

func TestPullFiltersWindowAndDedups(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	srv.AddSensor("U1", "lamp.gps",
		gpsEvent(500, 1, 1),   // before window
		gpsEvent(1000, 2, 2),
		gpsEvent(1000, 2, 2),  // duplicate timestamp
		gpsEvent(2000, 3, 3),
		gpsEvent(9000, 4, 4),  // after window
	)

	s := newSession(t, srv, "")
	res, err := feature.CallRaw(context.Background(), s, "lamp.gps",
		feature.Request{ID: "U1", Start: 1000, End: 5000})
	require.NoError(t, err)

	require.Len(t, res.Data, 2)
	for _, rec := range res.Data {
		ts := rec.Timestamp()
		require.GreaterOrEqual(t, ts, int64(1000))
		require.LessOrEqual(t, ts, int64(5000))
	}
}

func TestPullPaginatesBackward(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	// More events than one page; the pull must walk the cursor down.
	n := int64(PageLimit + 500)
	var events []lamp.SensorEvent
	for i := int64(0); i < n; i++ {
		events = append(events, gpsEvent(i*10, float64(i), float64(i)))
	}
	srv.AddSensor("U1", "lamp.gps", events...)

	s := newSession(t, srv, "")
	res, err := feature.CallRaw(context.Background(), s, "lamp.gps",
		feature.Request{ID: "U1", Start: 0, End: n * 10})
	require.NoError(t, err)
	require.Len(t, res.Data, int(n))
}

func TestCacheServesSecondCall(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	srv.AddSensor("U1", "lamp.gps",
		gpsEvent(1000, 2, 2),
		gpsEvent(2000, 3, 3),
	)

	s := newSession(t, srv, t.TempDir())
	ctx := context.Background()
	req := feature.Request{ID: "U1", Start: 0, End: 5000}

	first, err := feature.CallRaw(ctx, s, "lamp.gps", req)
	require.NoError(t, err)
	callsAfterFirst := srv.SensorCalls

	second, err := feature.CallRaw(ctx, s, "lamp.gps", req)
	require.NoError(t, err)
	require.Equal(t, callsAfterFirst, srv.SensorCalls)
	require.Equal(t, len(first.Data), len(second.Data))
}

func TestCacheSupersetServesNarrowerWindow(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	srv.AddSensor("U1", "lamp.gps",
		gpsEvent(1000, 2, 2),
		gpsEvent(4000, 3, 3),
	)

	s := newSession(t, srv, t.TempDir())
	ctx := context.Background()

	_, err := feature.CallRaw(ctx, s, "lamp.gps",
		feature.Request{ID: "U1", Start: 0, End: 5000})
	require.NoError(t, err)
	callsAfterFirst := srv.SensorCalls

	narrow, err := feature.CallRaw(ctx, s, "lamp.gps",
		feature.Request{ID: "U1", Start: 0, End: 2000})
	require.NoError(t, err)
	require.Equal(t, callsAfterFirst, srv.SensorCalls)
	require.Len(t, narrow.Data, 1)
	require.Equal(t, int64(1000), narrow.Data[0].Timestamp())
}

func TestMissingStreamYieldsEmptyResult(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	s := newSession(t, srv, "")
	res, err := feature.CallRaw(context.Background(), s, "lamp.gps",
		feature.Request{ID: "U1", Start: 0, End: 5000})
	require.NoError(t, err)
	require.Empty(t, res.Data)
	require.Zero(t, res.PercentGoodData)
}
