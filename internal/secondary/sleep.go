package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

func init() {
	feature.RegisterSecondary("cortex.sleep_duration", "sleep_duration",
		[]string{"cortex.sleep_periods"}, sleepDuration)
}

// sleepDuration sums the inferred sleep periods intersecting the window.
// When the dependency saw no raw data at all the value is null rather than
// a zero that would read as a sleepless night.
func sleepDuration(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	periods, err := primaryWindow(ctx, s, "cortex.sleep_periods", req)
	if err != nil {
		return nil, err
	}
	if periods.HasRawData == feature.RawDataNone {
		return feature.Record{"value": nil}, nil
	}

	var total int64
	for _, rec := range periods.Data {
		total += overlapMS(rec.Start(), rec.End(), req.Start, req.End)
	}
	return feature.Record{"value": total}, nil
}
