package primary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"
)

func TestScreenActiveBouts(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	// Two bouts; the second "on" at 1100 is within the debounce window of
	// the first and must be swallowed.
	srv.AddSensor("U1", "lamp.screen_state",
		sensorEvent(1000, map[string]interface{}{"value": 1}),
		sensorEvent(1100, map[string]interface{}{"value": 1}),
		sensorEvent(2500, map[string]interface{}{"value": 0}),
		sensorEvent(5000, map[string]interface{}{"value": 1}),
		sensorEvent(5800, map[string]interface{}{"value": 0}),
	)

	s := newSession(t, srv)
	res, err := feature.CallPrimary(context.Background(), s, "cortex.screen_active",
		feature.Request{ID: "U1", Start: 0, End: 10000})
	require.NoError(t, err)

	require.Equal(t, feature.RawDataPresent, res.HasRawData)
	require.Len(t, res.Data, 2)

	require.Equal(t, int64(1000), res.Data[0].Start())
	require.Equal(t, int64(2500), res.Data[0].End())
	require.Equal(t, int64(1500), res.Data[0].Int64("duration"))

	require.Equal(t, int64(5000), res.Data[1].Start())
	require.Equal(t, int64(5800), res.Data[1].End())
	require.Equal(t, int64(800), res.Data[1].Int64("duration"))
}

func TestScreenActiveNoEvents(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	s := newSession(t, srv)
	res, err := feature.CallPrimary(context.Background(), s, "cortex.screen_active",
		feature.Request{ID: "U1", Start: 0, End: 10000})
	require.NoError(t, err)
	require.Equal(t, feature.RawDataNone, res.HasRawData)
	require.Empty(t, res.Data)
}
