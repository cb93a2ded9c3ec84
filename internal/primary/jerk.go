package primary

import (
	"context"
	"math"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// DefaultJerkThresholdMS is the largest gap between samples across which a
// derivative is still taken.
const DefaultJerkThresholdMS = 500.0

func init() {
	feature.RegisterPrimary("cortex.acc_jerk", "acc_jerk",
		[]string{"lamp.accelerometer"}, accJerk)
}

// accJerk computes the magnitude of the acceleration derivative between
// adjacent accelerometer samples. Pairs separated by more than the gap
// threshold are dropped; jerk is undefined across gaps.
func accJerk(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	return runStateless(ctx, s, req, computeAccJerk)
}

func computeAccJerk(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.accelerometer",
		feature.Request{ID: req.ID, Start: from, End: to, Params: req.Params})
	if err != nil {
		return nil, 0, err
	}

	thresholdSec := req.ParamFloat("threshold", DefaultJerkThresholdMS) / 1000.0

	events := append([]feature.Record{}, raw.Data...)
	feature.SortByTimestamp(events)

	// Consecutive duplicate timestamps make dt zero; drop them.
	var samples []feature.Record
	var lastTS int64 = -1
	for _, ev := range events {
		if ev.Timestamp() == lastTS {
			continue
		}
		lastTS = ev.Timestamp()
		samples = append(samples, ev)
	}

	var records []feature.Record
	for i := 0; i+1 < len(samples); i++ {
		curr, next := samples[i], samples[i+1]
		dt := float64(next.Timestamp()-curr.Timestamp()) / 1000.0
		if dt <= 0 || dt >= thresholdSec {
			continue
		}

		x0, _ := curr.Float("x")
		y0, _ := curr.Float("y")
		z0, _ := curr.Float("z")
		x1, _ := next.Float("x")
		y1, _ := next.Float("y")
		z1, _ := next.Float("z")

		jx := (x1 - x0) / dt
		jy := (y1 - y0) / dt
		jz := (z1 - z0) / dt
		jerk := math.Sqrt(jx*jx + jy*jy + jz*jz)

		records = append(records, feature.Record{
			"start":    curr.Timestamp(),
			"end":      next.Timestamp(),
			"duration": next.Timestamp() - curr.Timestamp(),
			"acc_jerk": jerk,
		})
	}

	return records, len(raw.Data), nil
}
