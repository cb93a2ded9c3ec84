package secondary

import (
	"context"
	"strings"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/stats"
)

// stepSourceCutoverMS is when step events switched from a numeric type code
// to a free-form source string. Events on either side of the cutover are
// matched through the schema they were recorded under.
const stepSourceCutoverMS = 1_640_995_200_000 // 2022-01-01T00:00:00Z

// Numeric source codes used by step events before the cutover.
var legacyStepSources = map[int64]string{
	0: "pedometer",
	1: "health",
	2: "watch",
}

func init() {
	feature.RegisterSecondary("cortex.step_count", "step_count",
		[]string{"lamp.steps"}, stepCount)
	feature.RegisterSecondary("cortex.bluetooth_device_count", "bluetooth_device_count",
		[]string{"lamp.bluetooth"}, bluetoothDeviceCount)
	feature.RegisterSecondary("cortex.nearby_device_count", "nearby_device_count",
		[]string{"lamp.nearby_device"}, nearbyDeviceCount)
	feature.RegisterSecondary("cortex.battery_level", "battery_level",
		[]string{"lamp.device_state"}, batteryLevel)
}

// stepCount sums step events from one source ("health", "watch", or
// "pedometer", default health) across the schema cutover.
func stepCount(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.steps", req)
	if err != nil {
		return nil, err
	}
	source := req.ParamString("source", "health")

	var total int64
	for _, rec := range raw.Data {
		if stepSource(rec) != source {
			continue
		}
		total += rec.Int64("value")
	}
	return feature.Record{"value": total}, nil
}

func stepSource(rec feature.Record) string {
	if rec.Timestamp() < stepSourceCutoverMS {
		return legacyStepSources[rec.Int64("type")]
	}
	name := strings.ToLower(rec.String("source"))
	for _, known := range []string{"health", "watch", "pedometer"} {
		if strings.Contains(name, known) {
			return known
		}
	}
	return ""
}

// bluetoothDeviceCount counts distinct bluetooth addresses seen in the
// window.
func bluetoothDeviceCount(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.bluetooth", req)
	if err != nil {
		return nil, err
	}
	return feature.Record{"value": distinctField(raw.Data, "bt_address")}, nil
}

// nearbyDeviceCount counts distinct nearby-device addresses seen in the
// window.
func nearbyDeviceCount(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.nearby_device", req)
	if err != nil {
		return nil, err
	}
	return feature.Record{"value": distinctField(raw.Data, "address")}, nil
}

// batteryLevel is the mean reported battery level over the window, null
// when the device reported nothing.
func batteryLevel(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.device_state", req)
	if err != nil {
		return nil, err
	}

	var levels []float64
	for _, rec := range raw.Data {
		if v, ok := rec.Float("battery_level"); ok {
			levels = append(levels, v)
		}
	}
	if len(levels) == 0 {
		return feature.Record{"value": nil}, nil
	}
	return feature.Record{"value": stats.Mean(levels)}, nil
}

func distinctField(records []feature.Record, key string) int64 {
	seen := make(map[string]bool)
	for _, rec := range records {
		if v := rec.String(key); v != "" {
			seen[v] = true
		}
	}
	return int64(len(seen))
}
