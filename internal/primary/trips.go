package primary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/spatial"
)

const (
	// SpeedThresholdKmh below which a GPS point counts as stationary.
	SpeedThresholdKmh = 10.0
	// TimeThresholdMS above which the gap itself marks the point stationary.
	TimeThresholdMS = int64(10 * 60 * 1000)
)

// TripsAttachmentKey is the remote incremental state of the trips feature.
const TripsAttachmentKey = "cortex.trips"

func init() {
	feature.RegisterPrimary("cortex.trips", "trips",
		[]string{"lamp.gps"}, trips)
}

// trips segments the GPS stream into maximal runs of non-stationary points.
func trips(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	return runWithAttachment(ctx, s, req, TripsAttachmentKey, computeTrips)
}

func computeTrips(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.gps",
		feature.Request{ID: req.ID, Start: from, End: to, Params: req.Params})
	if err != nil {
		return nil, 0, err
	}

	points := append([]feature.Record{}, raw.Data...)
	feature.SortByTimestamp(points)

	// Per-step distance and stationary flag; the step from i-1 to i is
	// attributed to point i. The first point is always stationary.
	distanceKm := make([]float64, len(points))
	stationary := make([]bool, len(points))
	for i, p := range points {
		stationary[i] = true
		if i == 0 {
			continue
		}
		prev := points[i-1]
		lat0, _ := prev.Float("latitude")
		lon0, _ := prev.Float("longitude")
		lat1, _ := p.Float("latitude")
		lon1, _ := p.Float("longitude")

		dtMS := p.Timestamp() - prev.Timestamp()
		if dtMS <= 0 {
			continue
		}
		dxKm := spatial.HaversineKm(lat0, lon0, lat1, lon1)
		hours := float64(dtMS) / 3600000.0
		speed := dxKm / hours

		distanceKm[i] = dxKm
		stationary[i] = speed < SpeedThresholdKmh || dtMS > TimeThresholdMS
	}

	// A trip runs from the departure point (the last stationary point
	// before movement) through the last moving point.
	var records []feature.Record
	runStart := -1
	flush := func(endIdx int) {
		if runStart < 0 {
			return
		}
		originIdx := runStart - 1
		if originIdx < 0 {
			originIdx = runStart
		}
		first := points[originIdx]
		last := points[endIdx]
		if first.Timestamp() != last.Timestamp() {
			var distance float64
			for i := runStart; i <= endIdx; i++ {
				distance += distanceKm[i]
			}
			lat, _ := first.Float("latitude")
			lon, _ := first.Float("longitude")
			records = append(records, feature.Record{
				"start":     first.Timestamp(),
				"end":       last.Timestamp(),
				"duration":  last.Timestamp() - first.Timestamp(),
				"latitude":  lat,
				"longitude": lon,
				"distance":  distance,
			})
		}
		runStart = -1
	}

	for i := range points {
		if stationary[i] {
			flush(i - 1)
			continue
		}
		if runStart < 0 {
			runStart = i
		}
	}
	flush(len(points) - 1)

	return records, len(raw.Data), nil
}
