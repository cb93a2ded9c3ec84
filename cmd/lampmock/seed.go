package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// SeedIDs are the identifiers of the generated demo hierarchy.
type SeedIDs struct {
	Researcher   string
	Study        string
	Participants []string
}

// Seed populates the store with one researcher, one study, two participants,
// and a week of plausible sensor data ending now.
func Seed(store *Store) (*SeedIDs, error) {
	ids := &SeedIDs{
		Researcher: uuid.NewString(),
		Study:      uuid.NewString(),
		Participants: []string{
			"U" + uuid.NewString()[:8],
			"U" + uuid.NewString()[:8],
		},
	}
	if err := store.InsertHierarchy(ids.Researcher, ids.Study, "Demo Study", ids.Participants); err != nil {
		return nil, err
	}

	surveyID := uuid.NewString()
	settings := []map[string]interface{}{
		{"text": "Today I felt anxious", "type": "likert"},
		{"text": "Did you sleep well?", "type": "boolean"},
		{"text": "Overall mood", "type": "list", "options": []string{"poor", "fair", "good", "great"}},
	}
	if err := store.InsertActivity(surveyID, ids.Study, "Daily Check-in", "lamp.survey", settings); err != nil {
		return nil, err
	}

	end := time.Now().UnixMilli()
	start := end - 7*24*60*60*1000
	for i, participant := range ids.Participants {
		rng := rand.New(rand.NewSource(int64(i) + 1))
		if err := seedParticipant(store, participant, surveyID, start, end, rng); err != nil {
			return nil, fmt.Errorf("failed to seed participant %s: %w", participant, err)
		}
	}
	return ids, nil
}

func seedParticipant(store *Store, participant, surveyID string, start, end int64, rng *rand.Rand) error {
	const (
		homeLat, homeLon = 42.3601, -71.0589
		workLat, workLon = 42.3736, -71.1097
	)

	// GPS: home overnight, work midday, one commute each way.
	for ts := start; ts < end; ts += 10 * 60 * 1000 {
		hour := (ts / (60 * 60 * 1000)) % 24
		lat, lon := homeLat, homeLon
		if hour >= 9 && hour < 17 {
			lat, lon = workLat, workLon
		}
		if err := store.InsertSensorEvent(participant, "lamp.gps", ts, map[string]interface{}{
			"latitude":  lat + rng.Float64()*0.0004,
			"longitude": lon + rng.Float64()*0.0004,
			"accuracy":  5 + rng.Float64()*10,
		}); err != nil {
			return err
		}
	}

	// Accelerometer: quiet overnight, active during the day.
	for ts := start; ts < end; ts += 5 * 60 * 1000 {
		hour := (ts / (60 * 60 * 1000)) % 24
		base := 1.0
		if hour >= 8 && hour < 22 {
			base = 1.0 + 0.5*math.Abs(math.Sin(float64(ts)))
		}
		if err := store.InsertSensorEvent(participant, "lamp.accelerometer", ts, map[string]interface{}{
			"x": base * rng.Float64(),
			"y": base * rng.Float64(),
			"z": base,
		}); err != nil {
			return err
		}
	}

	// Screen: a handful of on/off bouts per day.
	for day := start; day < end; day += 24 * 60 * 60 * 1000 {
		for n := 0; n < 6; n++ {
			on := day + int64(rng.Intn(20*60*60*1000))
			off := on + int64(30000+rng.Intn(10*60*1000))
			if err := store.InsertSensorEvent(participant, "lamp.screen_state", on,
				map[string]interface{}{"value": 1}); err != nil {
				return err
			}
			if err := store.InsertSensorEvent(participant, "lamp.screen_state", off,
				map[string]interface{}{"value": 0}); err != nil {
				return err
			}
		}
	}

	// Calls and steps, sparse.
	for day := start; day < end; day += 24 * 60 * 60 * 1000 {
		ts := day + int64(rng.Intn(12*60*60*1000))
		if err := store.InsertSensorEvent(participant, "lamp.calls", ts, map[string]interface{}{
			"call_type":     1 + rng.Intn(2),
			"call_duration": float64(30 + rng.Intn(600)),
			"call_trace":    fmt.Sprintf("contact-%d", rng.Intn(5)),
		}); err != nil {
			return err
		}
		if err := store.InsertSensorEvent(participant, "lamp.steps", ts, map[string]interface{}{
			"value":  3000 + rng.Intn(8000),
			"source": "health",
		}); err != nil {
			return err
		}
	}

	// One survey response per day.
	for day := start; day < end; day += 24 * 60 * 60 * 1000 {
		ts := day + 20*60*60*1000
		slices := []interface{}{
			map[string]interface{}{"item": "Today I felt anxious", "value": rng.Intn(4), "type": nil, "duration": 2000},
			map[string]interface{}{"item": "Did you sleep well?", "value": "Yes", "type": nil, "duration": 1500},
			map[string]interface{}{"item": "Overall mood", "value": "good", "type": nil, "duration": 1800},
		}
		if err := store.InsertActivityEvent(participant, ts, 6000, surveyID, map[string]interface{}{}, slices); err != nil {
			return err
		}
	}

	return nil
}
