package secondary

import (
	"context"
	"fmt"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// Default quality bin widths per stream.
const (
	accelQualityBinMS = int64(1000)
	gpsQualityBinMS   = int64(10 * 60 * 1000)
)

func init() {
	feature.RegisterSecondary("cortex.data_quality", "data_quality",
		[]string{"lamp.gps", "lamp.accelerometer"}, dataQuality)
}

// dataQuality is the fraction of sub-bins in the window containing at least
// one event of the requested stream ("gps" default, or "accelerometer").
// GPS bins are 10 minutes, accelerometer bins 1 second; "bin_size" overrides
// in ms.
func dataQuality(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	var stream string
	var binMS int64
	switch kind := req.ParamString("feature", "gps"); kind {
	case "gps":
		stream, binMS = "lamp.gps", gpsQualityBinMS
	case "accelerometer":
		stream, binMS = "lamp.accelerometer", accelQualityBinMS
	default:
		return nil, cerrors.E("secondary.dataQuality", cerrors.KindInvalidArgument,
			fmt.Sprintf("unknown data_quality stream %q", kind), nil)
	}
	if override := int64(req.ParamFloat("bin_size", 0)); override > 0 {
		binMS = override
	}

	raw, err := rawWindow(ctx, s, stream, req)
	if err != nil {
		return nil, err
	}

	n := (req.End - req.Start) / binMS
	if n == 0 {
		return feature.Record{"value": 0.0}, nil
	}

	filled := make(map[int64]bool)
	for _, rec := range raw.Data {
		ts := rec.Timestamp()
		if ts < req.Start || ts >= req.Start+n*binMS {
			continue
		}
		filled[(ts-req.Start)/binMS] = true
	}
	return feature.Record{"value": float64(len(filled)) / float64(n)}, nil
}
