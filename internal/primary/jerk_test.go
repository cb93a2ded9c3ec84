package primary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"
)

func TestAccJerkSinglePair(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	// dt = 100 ms, Δz = 1 → jerk = 1 / 0.1 = 10 m/s³.
	srv.AddSensor("U1", "lamp.accelerometer",
		sensorEvent(0, map[string]interface{}{"x": 0.0, "y": 0.0, "z": 0.0}),
		sensorEvent(100, map[string]interface{}{"x": 0.0, "y": 0.0, "z": 1.0}),
	)

	s := newSession(t, srv)
	res, err := feature.CallPrimary(context.Background(), s, "cortex.acc_jerk",
		feature.Request{ID: "U1", Start: 0, End: 1000})
	require.NoError(t, err)

	require.Len(t, res.Data, 1)
	jerk, ok := res.Data[0].Float("acc_jerk")
	require.True(t, ok)
	require.InDelta(t, 10.0, jerk, 1e-9)
}

func TestAccJerkSkipsGapsAboveThreshold(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	// 600 ms apart: beyond the default 500 ms threshold, no pair forms.
	srv.AddSensor("U1", "lamp.accelerometer",
		sensorEvent(0, map[string]interface{}{"x": 0.0, "y": 0.0, "z": 0.0}),
		sensorEvent(600, map[string]interface{}{"x": 0.0, "y": 0.0, "z": 1.0}),
	)

	s := newSession(t, srv)
	res, err := feature.CallPrimary(context.Background(), s, "cortex.acc_jerk",
		feature.Request{ID: "U1", Start: 0, End: 1000})
	require.NoError(t, err)
	require.Empty(t, res.Data)
}
