package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

func init() {
	feature.RegisterSecondary("cortex.trip_distance", "trip_distance",
		[]string{"cortex.trips"}, tripDistance)
	feature.RegisterSecondary("cortex.trip_duration", "trip_duration",
		[]string{"cortex.trips"}, tripDuration)
}

// tripDistance sums the distance in km of trips intersecting the window.
func tripDistance(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	trips, err := primaryWindow(ctx, s, "cortex.trips", req)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, rec := range trips.Data {
		if d, ok := rec.Float("distance"); ok {
			total += d
		}
	}
	return feature.Record{"value": total}, nil
}

// tripDuration sums the in-window time spent on trips.
func tripDuration(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	trips, err := primaryWindow(ctx, s, "cortex.trips", req)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, rec := range trips.Data {
		total += overlapMS(rec.Start(), rec.End(), req.Start, req.End)
	}
	return feature.Record{"value": total}, nil
}
