package raw

import (
	"context"

	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/cache"
	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
)

// Cognitive game activity specs.
var gameSpecs = map[string]bool{
	"lamp.jewels_a":        true,
	"lamp.jewels_b":        true,
	"lamp.balloon_risk":    true,
	"lamp.pop_the_bubbles": true,
	"lamp.spatial_span":    true,
	"lamp.cats_and_dogs":   true,
}

func init() {
	feature.RegisterRaw("lamp.survey", "survey",
		func(ctx context.Context, s *feature.Session, req feature.Request) (*feature.RawResult, error) {
			return pullActivityEvents(ctx, s, req, "survey", func(spec string) bool {
				return spec == "lamp.survey"
			})
		})
	feature.RegisterRaw("lamp.game", "game",
		func(ctx context.Context, s *feature.Session, req feature.Request) (*feature.RawResult, error) {
			return pullActivityEvents(ctx, s, req, "game", func(spec string) bool {
				return gameSpecs[spec]
			})
		})
}

// pullActivityEvents pages completed activity events backward from end and
// keeps those whose activity spec matches. The event's slices and static
// payload are carried on the record for the primary scorers.
func pullActivityEvents(ctx context.Context, s *feature.Session, req feature.Request, short string, match func(spec string) bool) (*feature.RawResult, error) {
	key := cache.Key{Feature: short, Participant: req.ID, Start: req.Start, End: req.End}

	if store := s.Cache(); store != nil {
		var cached feature.RawResult
		if stored, ok := store.Get(key, &cached); ok {
			s.Logger().Debug("raw cache hit",
				zap.String("feature", short),
				zap.Int64("stored_start", stored.Start),
				zap.Int64("stored_end", stored.End))
			return windowed(&cached, req), nil
		}
	}

	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	specs, err := activitySpecs(ctx, client, req.ID)
	if err != nil {
		return nil, err
	}

	events, err := paginateActivity(ctx, client, req.ID, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	var records []feature.Record
	for _, ev := range events {
		if !match(specs[ev.Activity]) {
			continue
		}
		records = append(records, flattenActivityEvent(ev))
	}

	result := &feature.RawResult{
		Timestamp: req.Start,
		Duration:  req.End - req.Start,
		Data:      records,
	}
	fillQuality(result, req)

	if store := s.Cache(); store != nil {
		if err := store.Put(key, result); err != nil {
			s.Logger().Warn("cache write failed", zap.String("feature", short), zap.Error(err))
		}
	}

	return result, nil
}

// activitySpecs maps activity id to its spec string.
func activitySpecs(ctx context.Context, client *lamp.Client, participant string) (map[string]string, error) {
	activities, err := client.Activities(ctx, participant)
	if err != nil {
		if cerrors.Is(err, cerrors.KindNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	specs := make(map[string]string, len(activities))
	for _, act := range activities {
		specs[act.ID] = act.Spec
	}
	return specs, nil
}

func paginateActivity(ctx context.Context, client *lamp.Client, participant string, start, end int64) ([]lamp.ActivityEvent, error) {
	var all []lamp.ActivityEvent
	seen := make(map[int64]bool)

	cursor := end
	for {
		page, err := client.ActivityEvents(ctx, participant, start, cursor, PageLimit)
		if err != nil {
			if cerrors.Is(err, cerrors.KindNotFound) {
				break
			}
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, ev := range page {
			if ev.Timestamp < start || ev.Timestamp > end {
				continue
			}
			if seen[ev.Timestamp] {
				continue
			}
			seen[ev.Timestamp] = true
			all = append(all, ev)
		}

		oldest := page[len(page)-1].Timestamp
		if oldest >= cursor || oldest <= start {
			break
		}
		cursor = oldest
	}

	return all, nil
}

func flattenActivityEvent(ev lamp.ActivityEvent) feature.Record {
	slices := make([]interface{}, 0, len(ev.TemporalSlices))
	for _, slice := range ev.TemporalSlices {
		slices = append(slices, map[string]interface{}{
			"item":     slice.Item,
			"value":    slice.Value,
			"type":     slice.Type,
			"level":    slice.Level,
			"duration": slice.Duration,
		})
	}
	return feature.Record{
		"timestamp":       ev.Timestamp,
		"duration":        ev.Duration,
		"activity":        ev.Activity,
		"static_data":     ev.StaticData,
		"temporal_slices": slices,
	}
}
