package primary

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp/lamptest"
)

func surveyFixture(srv *lamptest.Server) {
	settings, _ := json.Marshal([]lamp.ActivitySetting{
		{Text: "Felt anxious", Type: "likert"},
		{Text: "Slept well", Type: "boolean"},
		{Text: "Mood", Type: "list", Options: []string{"poor", "fair", "good", "great"}},
		{Text: "Comments", Type: "text"},
	})
	srv.Definitions["U1"] = []lamp.Activity{
		{ID: "act-1", Name: "Daily Check-in", Spec: "lamp.survey", Settings: settings},
	}
	srv.Activity["U1"] = []lamp.ActivityEvent{
		{
			Timestamp: 10_000,
			Duration:  5_000,
			Activity:  "act-1",
			TemporalSlices: []lamp.TemporalSlice{
				{Item: "Felt anxious", Value: 2.0, Duration: 1000},
				{Item: "Slept well", Value: "No", Duration: 1000},
				{Item: "Mood", Value: "good", Duration: 1000},
				{Item: "Comments", Value: "fine", Duration: 1000},
			},
		},
	}
}

func TestSurveyScoresAveragePerCategory(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	surveyFixture(srv)

	s := newSession(t, srv)
	res, err := feature.CallPrimary(context.Background(), s, "cortex.survey_scores",
		feature.Request{ID: "U1", Start: 0, End: 100_000})
	require.NoError(t, err)

	// likert 2, boolean No → 0, list "good" → 2·3/3 = 2; text skipped.
	// All share the default category (the survey name): mean 4/3.
	require.Len(t, res.Data, 1)
	rec := res.Data[0]
	require.Equal(t, "Daily Check-in", rec.String("category"))
	require.Equal(t, int64(10_000), rec.Start())
	require.Equal(t, int64(15_000), rec.End())
	require.InDelta(t, 4.0/3.0, mustFloat(t, rec, "score"), 1e-9)
}

func TestSurveyScoresCategoryOverrideAndReverse(t *testing.T) {
	srv := lamptest.New()
	defer srv.Close()
	surveyFixture(srv)

	s := newSession(t, srv)
	res, err := feature.CallPrimary(context.Background(), s, "cortex.survey_scores",
		feature.Request{
			ID: "U1", Start: 0, End: 100_000,
			Params: map[string]interface{}{
				"question_categories": map[string]interface{}{
					"Felt anxious": map[string]interface{}{
						"category":        "anxiety",
						"reverse_scoring": true,
					},
				},
			},
		})
	require.NoError(t, err)

	require.Len(t, res.Data, 2)
	byCategory := map[string]feature.Record{}
	for _, rec := range res.Data {
		byCategory[rec.String("category")] = rec
	}

	// Reversed likert: 3 − 2 = 1.
	require.InDelta(t, 1.0, mustFloat(t, byCategory["anxiety"], "score"), 1e-9)
	// Remaining two scored answers: (0 + 2) / 2.
	require.InDelta(t, 1.0, mustFloat(t, byCategory["Daily Check-in"], "score"), 1e-9)
}
