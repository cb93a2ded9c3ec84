package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

func init() {
	feature.RegisterSecondary("cortex.hometime", "hometime",
		[]string{"cortex.significant_locations"}, hometime)
}

// hometime is the dwell duration at the top-ranked significant location,
// taking rank 0 as home.
func hometime(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	locations, err := primaryWindow(ctx, s, "cortex.significant_locations", req)
	if err != nil {
		return nil, err
	}
	if locations.HasRawData == feature.RawDataNone {
		return feature.Record{"value": nil}, nil
	}

	for _, rec := range locations.Data {
		if rec.Int64("rank") == 0 {
			return feature.Record{"value": rec.Int64("duration")}, nil
		}
	}
	return feature.Record{"value": nil}, nil
}
