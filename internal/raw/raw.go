// Package raw implements the raw feature layer: per sensor kind, a paged
// pull of events inside a window, flattened to records with a canonical
// timestamp field and summarized by a data-quality envelope.
package raw

import (
	"context"

	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/cache"
	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/lamp"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/stats"
)

// PageLimit caps one backend page.
const PageLimit = 10000

// QualityBinMS is the fixed data-quality bin width.
const QualityBinMS = int64(10 * 60 * 1000)

// DefaultQualityThresholdHz marks a bin "good" when its sample rate reaches
// this value.
const DefaultQualityThresholdHz = 0.5

// registerSensor wires one sensor origin as a raw feature. The feature name
// is the origin itself.
func registerSensor(origin, short string) {
	feature.RegisterRaw(origin, short,
		func(ctx context.Context, s *feature.Session, req feature.Request) (*feature.RawResult, error) {
			return pullSensor(ctx, s, req, origin, short)
		})
}

func pullSensor(ctx context.Context, s *feature.Session, req feature.Request, origin, short string) (*feature.RawResult, error) {
	key := cache.Key{Feature: short, Participant: req.ID, Start: req.Start, End: req.End}

	if store := s.Cache(); store != nil {
		var cached feature.RawResult
		if stored, ok := store.Get(key, &cached); ok {
			s.Logger().Debug("raw cache hit",
				zap.String("feature", origin),
				zap.Int64("stored_start", stored.Start),
				zap.Int64("stored_end", stored.End))
			return windowed(&cached, req), nil
		}
	}

	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	events, err := paginateSensor(ctx, client, req.ID, origin, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	records := flattenSensor(events)
	result := &feature.RawResult{
		Timestamp: req.Start,
		Duration:  req.End - req.Start,
		Data:      records,
	}
	fillQuality(result, req)

	if store := s.Cache(); store != nil {
		if err := store.Put(key, result); err != nil {
			s.Logger().Warn("cache write failed", zap.String("feature", origin), zap.Error(err))
		}
	}

	return result, nil
}

// paginateSensor walks sensor events backward from end. Each page asks for
// events with timestamp ≤ cursor; the cursor then moves to the oldest
// returned timestamp. Iteration stops on an empty page, on a fixed point, or
// once the page reaches below start.
func paginateSensor(ctx context.Context, client *lamp.Client, participant, origin string, start, end int64) ([]lamp.SensorEvent, error) {
	var all []lamp.SensorEvent
	seen := make(map[int64]bool)

	cursor := end
	for {
		page, err := client.SensorEvents(ctx, participant, origin, start, cursor, PageLimit)
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
			// Duplicate timestamps collapse to one record per origin,
			// which also removes the page-boundary overlap.
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

// flattenSensor merges each event payload with its canonical timestamp.
// Retrieval order (descending) is preserved.
func flattenSensor(events []lamp.SensorEvent) []feature.Record {
	records := make([]feature.Record, 0, len(events))
	for _, ev := range events {
		rec := feature.Record{"timestamp": ev.Timestamp}
		for k, v := range ev.Data {
			if k == "timestamp" {
				continue
			}
			rec[k] = v
		}
		records = append(records, rec)
	}
	return records
}

// windowed filters a (possibly wider) cached result down to the request and
// recomputes its quality envelope.
func windowed(cached *feature.RawResult, req feature.Request) *feature.RawResult {
	out := &feature.RawResult{
		Timestamp: req.Start,
		Duration:  req.End - req.Start,
		Data:      feature.FilterWindow(cached.Data, req.Start, req.End),
	}
	fillQuality(out, req)
	return out
}

// fillQuality buckets the window into fixed 10-minute bins and summarizes
// per-bin sample rates.
func fillQuality(res *feature.RawResult, req feature.Request) {
	threshold := req.ParamFloat("quality_threshold_hz", DefaultQualityThresholdHz)

	nBins := (req.End - req.Start) / QualityBinMS
	if nBins == 0 {
		nBins = 1
	}

	counts := make([]float64, nBins)
	for _, rec := range res.Data {
		idx := (rec.Timestamp() - req.Start) / QualityBinMS
		if idx < 0 {
			idx = 0
		}
		if idx >= nBins {
			idx = nBins - 1
		}
		counts[idx]++
	}

	binSeconds := float64(QualityBinMS) / 1000.0
	rates := make([]float64, nBins)
	good := 0
	for i, c := range counts {
		rates[i] = c / binSeconds
		if rates[i] >= threshold {
			good++
		}
	}

	res.FSMean = stats.Mean(rates)
	res.FSVar = stats.Variance(rates)
	res.PercentGoodData = float64(good) / float64(nBins)
}
