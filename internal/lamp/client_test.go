package lamp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"
)

func TestSensorEventsWindowAndOrder(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	for _, ts := range []int64{1000, 2000, 3000, 4000} {
		srv.AddSensor("U1", "lamp.gps", lamp.SensorEvent{
			Timestamp: ts,
			Data:      map[string]interface{}{"latitude": 42.0, "longitude": -71.0},
		})
	}

	events, err := srv.Client().SensorEvents(context.Background(), "U1", "lamp.gps", 2000, 3000, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(3000), events[0].Timestamp)
	require.Equal(t, int64(2000), events[1].Timestamp)
}

func TestSensorEventsLimit(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	for ts := int64(0); ts < 10; ts++ {
		srv.AddSensor("U1", "lamp.gps", lamp.SensorEvent{Timestamp: ts})
	}

	events, err := srv.Client().SensorEvents(context.Background(), "U1", "lamp.gps", 0, 100, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, int64(9), events[0].Timestamp)
}

func TestAttachmentRoundTrip(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	client := srv.Client()
	ctx := context.Background()

	in := map[string]interface{}{"high": 42.5}
	require.NoError(t, client.AttachmentSet(ctx, "U1", "me", "cortex.test", in))

	var out map[string]interface{}
	require.NoError(t, client.AttachmentGet(ctx, "U1", "cortex.test", &out))
	require.Equal(t, 42.5, out["high"])

	keys, err := client.AttachmentList(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, []string{"cortex.test"}, keys)
}

func TestAttachmentGetMissingIsNotFound(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	var out map[string]interface{}
	err := srv.Client().AttachmentGet(context.Background(), "U1", "cortex.absent", &out)
	require.Error(t, err)
	require.True(t, cerrors.Is(err, cerrors.KindNotFound))
}

func TestParentNotFound(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()

	_, err := srv.Client().Parent(context.Background(), "nobody")
	require.Error(t, err)
	require.True(t, cerrors.Is(err, cerrors.KindNotFound))
}

func TestParentLevels(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	srv.Parents["U1"] = lamp.Parentage{"Study": "S1", "Researcher": "R1"}
	srv.Parents["R1"] = lamp.Parentage{}

	parents, err := srv.Client().Parent(context.Background(), "U1")
	require.NoError(t, err)
	require.Equal(t, "S1", parents["Study"])

	top, err := srv.Client().Parent(context.Background(), "R1")
	require.NoError(t, err)
	require.Empty(t, top)
}
