package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"

	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/raw"
	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/secondary"
)

const dayMS = int64(24 * 60 * 60 * 1000)

func newSession(t *testing.T, srv *lamptest.Server) *feature.Session {
	t.Helper()
	cfg := &config.Config{CacheEnabled: false}
	return feature.NewSessionWithClient(cfg, srv.Client(), zap.NewNop())
}

func seedHierarchy(srv *lamptest.Server) {
	srv.Parents["R1"] = lamp.Parentage{}
	srv.Parents["S1"] = lamp.Parentage{"Researcher": "R1"}
	srv.Parents["U1"] = lamp.Parentage{"Study": "S1", "Researcher": "R1"}
	srv.Parents["U2"] = lamp.Parentage{"Study": "S1", "Researcher": "R1"}
	srv.Studies["R1"] = []lamp.Study{{ID: "S1", Name: "Pilot"}}
	srv.Participants["S1"] = []lamp.Participant{{ID: "U1"}, {ID: "U2"}}
}

func TestResolveParticipants(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	seedHierarchy(srv)
	client := srv.Client()

	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"participant", []string{"U1"}, []string{"U1"}},
		{"study", []string{"S1"}, []string{"U1", "U2"}},
		{"researcher", []string{"R1"}, []string{"U1", "U2"}},
		{"mixed dedupes", []string{"U2", "S1"}, []string{"U2", "U1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveParticipants(context.Background(), client, tt.ids)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRunConcatenatesParticipants(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	seedHierarchy(srv)

	// Both participants walk inside two daily windows.
	base := int64(1_700_000_000_000)
	for _, id := range []string{"U1", "U2"} {
		srv.AddSensor(id, "lamp.steps",
			lamp.SensorEvent{Timestamp: base + 2*60*60*1000, Data: map[string]interface{}{
				"source": "com.apple.health", "value": 100.0,
			}},
			lamp.SensorEvent{Timestamp: base + dayMS + 2*60*60*1000, Data: map[string]interface{}{
				"source": "com.apple.health", "value": 250.0,
			}})
	}

	s := newSession(t, srv)
	tables, err := Run(context.Background(), s, []string{"S1"},
		[]string{"cortex.step_count", "cortex.not_a_feature"},
		Options{Start: base, End: base + 2*dayMS, Resolution: dayMS})
	require.NoError(t, err)

	require.Len(t, tables, 1)
	require.Equal(t, "cortex.step_count", tables[0].Feature)
	require.Len(t, tables[0].Rows, 4)

	perParticipant := make(map[string]int)
	for _, row := range tables[0].Rows {
		perParticipant[row.String("id")]++
	}
	require.Equal(t, map[string]int{"U1": 2, "U2": 2}, perParticipant)
}

func TestRunSkipsParticipantWithoutDataOnDerivedWindow(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	seedHierarchy(srv)

	s := newSession(t, srv)
	tables, err := Run(context.Background(), s, []string{"U1"},
		[]string{"cortex.step_count"}, Options{})
	require.NoError(t, err)

	require.Len(t, tables, 1)
	require.Empty(t, tables[0].Rows)
}

func TestRunDefaultsResolutionToOneDay(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	seedHierarchy(srv)

	base := int64(1_700_000_000_000)
	srv.AddSensor("U1", "lamp.steps",
		lamp.SensorEvent{Timestamp: base + 1000, Data: map[string]interface{}{
			"source": "com.apple.health", "value": 42.0,
		}})

	s := newSession(t, srv)
	tables, err := Run(context.Background(), s, []string{"U1"},
		[]string{"cortex.step_count"},
		Options{Start: base, End: base + dayMS})
	require.NoError(t, err)

	require.Len(t, tables, 1)
	require.Len(t, tables[0].Rows, 1)
	require.Equal(t, 42.0, mustFloat(t, tables[0].Rows[0], "value"))
}

func mustFloat(t *testing.T, rec feature.Record, key string) float64 {
	t.Helper()
	v, ok := rec.Float(key)
	require.True(t, ok)
	return v
}
