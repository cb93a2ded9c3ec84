package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/spatial"
)

const dayMS = int64(24 * 60 * 60 * 1000)

func init() {
	feature.RegisterSecondary("cortex.trajectory_similarity", "trajectory_similarity",
		[]string{"lamp.gps"}, trajectorySimilarity)
}

// trajectorySimilarity compares this window's GPS track to the one a day
// earlier under five curve distances. Null when either track is empty.
func trajectorySimilarity(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	current, err := gpsTrack(ctx, s, req, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	prior, err := gpsTrack(ctx, s, req, req.Start-dayMS, req.End-dayMS)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 || len(prior) == 0 {
		return feature.Record{
			"frechet":               nil,
			"dtw":                   nil,
			"curve_length":          nil,
			"area_between":          nil,
			"partial_curve_mapping": nil,
		}, nil
	}

	return feature.Record{
		"frechet":               spatial.Frechet(current, prior),
		"dtw":                   spatial.DTW(current, prior),
		"curve_length":          spatial.CurveLength(current, prior),
		"area_between":          spatial.AreaBetween(current, prior),
		"partial_curve_mapping": spatial.PartialCurveMapping(current, prior),
	}, nil
}

// gpsTrack pulls the GPS points over [start, end] ascending.
func gpsTrack(ctx context.Context, s *feature.Session, req feature.Request, start, end int64) ([]spatial.Point, error) {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return nil, nil
	}

	raw, err := feature.CallRaw(ctx, s, "lamp.gps",
		feature.Request{ID: req.ID, Start: start, End: end, Params: req.Params})
	if err != nil {
		return nil, err
	}

	events := append([]feature.Record{}, raw.Data...)
	feature.SortByTimestamp(events)

	var track []spatial.Point
	for _, ev := range events {
		lat, okLat := ev.Float("latitude")
		lon, okLon := ev.Float("longitude")
		if !okLat || !okLon {
			continue
		}
		track = append(track, spatial.Point{Lat: lat, Lon: lon})
	}
	return track, nil
}
