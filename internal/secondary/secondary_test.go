package secondary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"

	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/primary"
	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/raw"
)

const hourMS = int64(60 * 60 * 1000)

func newSession(t *testing.T, srv *lamptest.Server) *feature.Session {
	t.Helper()
	cfg := &config.Config{CacheEnabled: false}
	return feature.NewSessionWithClient(cfg, srv.Client(), zap.NewNop())
}

func sensorEvent(ts int64, data map[string]interface{}) lamp.SensorEvent {
	return lamp.SensorEvent{Timestamp: ts, Data: data}
}

func TestSleepDurationTwoDayWindows(t *testing.T) {
	// Stub the dependency: two eight-hour periods, one per day.
	feature.RegisterPrimary("cortex.sleep_periods", "sleep_periods", nil,
		func(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
			periods := []feature.Record{
				{"start": 1 * hourMS, "end": 9 * hourMS},
				{"start": 30 * hourMS, "end": 38 * hourMS},
			}
			return &feature.PrimaryResult{
				Timestamp:  req.Start,
				Duration:   req.End - req.Start,
				Data:       feature.ClipToWindow(periods, req.Start, req.End),
				HasRawData: feature.RawDataPresent,
			}, nil
		})

	srv := lamptest.New()
	defer srv.Close()
	s := newSession(t, srv)

	res, err := feature.Call(context.Background(), s, "cortex.sleep_duration",
		feature.Request{ID: "U1", Start: 0, End: 2 * dayMS, Resolution: dayMS})
	require.NoError(t, err)

	sec := res.(*feature.SecondaryResult)
	require.Len(t, sec.Data, 2)
	require.Equal(t, int64(8*hourMS), sec.Data[0].Int64("value"))
	require.Equal(t, int64(8*hourMS), sec.Data[1].Int64("value"))
	require.Equal(t, int64(0), sec.Data[0].Timestamp())
	require.Equal(t, dayMS, sec.Data[1].Timestamp())
}

func TestStepCountFiltersSourceAcrossCutover(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	base := int64(stepSourceCutoverMS)
	srv.AddSensor("U1", "lamp.steps",
		// Before the cutover: numeric type codes.
		sensorEvent(base-2000, map[string]interface{}{"type": 1, "value": 100}),
		sensorEvent(base-1000, map[string]interface{}{"type": 2, "value": 500}),
		// After: source strings.
		sensorEvent(base+1000, map[string]interface{}{"source": "com.apple.health", "value": 250}),
		sensorEvent(base+2000, map[string]interface{}{"source": "pedometer", "value": 999}),
	)

	s := newSession(t, srv)
	res, err := feature.Call(context.Background(), s, "cortex.step_count",
		feature.Request{
			ID: "U1", Start: base - dayMS, End: base + dayMS, Resolution: 2 * dayMS,
		})
	require.NoError(t, err)

	sec := res.(*feature.SecondaryResult)
	require.Len(t, sec.Data, 1)
	require.Equal(t, int64(350), sec.Data[0].Int64("value"))
}

func TestCallMetricsByDirection(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	srv.AddSensor("U1", "lamp.calls",
		sensorEvent(1000, map[string]interface{}{"call_type": 1, "call_duration": 60.0, "call_trace": "a"}),
		sensorEvent(2000, map[string]interface{}{"call_type": 2, "call_duration": 120.0, "call_trace": "b"}),
		sensorEvent(3000, map[string]interface{}{"call_type": 1, "call_duration": 30.0, "call_trace": "a"}),
	)

	s := newSession(t, srv)
	ctx := context.Background()
	base := feature.Request{ID: "U1", Start: 0, End: 10_000, Resolution: 10_000}

	res, err := feature.Call(ctx, s, "cortex.call_number", base)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.(*feature.SecondaryResult).Data[0].Int64("value"))

	incoming := base
	incoming.Params = map[string]interface{}{"call_direction": "incoming"}
	res, err = feature.Call(ctx, s, "cortex.call_number", incoming)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.(*feature.SecondaryResult).Data[0].Int64("value"))

	res, err = feature.Call(ctx, s, "cortex.call_duration", base)
	require.NoError(t, err)
	value, ok := res.(*feature.SecondaryResult).Data[0].Float("value")
	require.True(t, ok)
	require.InDelta(t, 210.0, value, 1e-9)

	res, err = feature.Call(ctx, s, "cortex.call_degree", base)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.(*feature.SecondaryResult).Data[0].Int64("value"))
}

func TestDataQualityFractionOfBins(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	// Four 10-minute bins, two with GPS.
	srv.AddSensor("U1", "lamp.gps",
		sensorEvent(1*60_000, map[string]interface{}{"latitude": 1.0, "longitude": 1.0}),
		sensorEvent(25*60_000, map[string]interface{}{"latitude": 1.0, "longitude": 1.0}),
	)

	s := newSession(t, srv)
	res, err := feature.Call(context.Background(), s, "cortex.data_quality",
		feature.Request{ID: "U1", Start: 0, End: 40 * 60_000, Resolution: 40 * 60_000})
	require.NoError(t, err)

	value, ok := res.(*feature.SecondaryResult).Data[0].Float("value")
	require.True(t, ok)
	require.InDelta(t, 0.5, value, 1e-9)
}

func TestTrajectorySimilarityNilWhenPriorEmpty(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	srv.AddSensor("U1", "lamp.gps",
		sensorEvent(dayMS+1000, map[string]interface{}{"latitude": 1.0, "longitude": 1.0}),
	)

	s := newSession(t, srv)
	res, err := feature.Call(context.Background(), s, "cortex.trajectory_similarity",
		feature.Request{ID: "U1", Start: dayMS, End: 2 * dayMS, Resolution: dayMS})
	require.NoError(t, err)

	rec := res.(*feature.SecondaryResult).Data[0]
	require.Contains(t, rec, "frechet")
	require.Nil(t, rec["frechet"])
	require.Nil(t, rec["dtw"])
}

func TestBluetoothDeviceCountDistinct(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	srv.AddSensor("U1", "lamp.bluetooth",
		sensorEvent(1000, map[string]interface{}{"bt_address": "AA"}),
		sensorEvent(2000, map[string]interface{}{"bt_address": "AA"}),
		sensorEvent(3000, map[string]interface{}{"bt_address": "BB"}),
	)

	s := newSession(t, srv)
	res, err := feature.Call(context.Background(), s, "cortex.bluetooth_device_count",
		feature.Request{ID: "U1", Start: 0, End: 10_000, Resolution: 10_000})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.(*feature.SecondaryResult).Data[0].Int64("value"))
}
