package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

func init() {
	feature.RegisterSecondary("cortex.screen_duration", "screen_duration",
		[]string{"cortex.screen_active"}, screenDuration)
}

// screenDuration sums the screen-on bouts intersecting the window.
func screenDuration(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	bouts, err := primaryWindow(ctx, s, "cortex.screen_active", req)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, rec := range bouts.Data {
		total += overlapMS(rec.Start(), rec.End(), req.Start, req.End)
	}
	return feature.Record{"value": total}, nil
}
