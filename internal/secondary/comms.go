package secondary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// Call and message direction codes as recorded by the devices.
const (
	directionIncoming = 1
	directionOutgoing = 2
)

func init() {
	feature.RegisterSecondary("cortex.call_number", "call_number",
		[]string{"lamp.calls"}, callNumber)
	feature.RegisterSecondary("cortex.call_duration", "call_duration",
		[]string{"lamp.calls"}, callDuration)
	feature.RegisterSecondary("cortex.call_degree", "call_degree",
		[]string{"lamp.calls"}, callDegree)
	feature.RegisterSecondary("cortex.text_number", "text_number",
		[]string{"lamp.messages_usage"}, textNumber)
	feature.RegisterSecondary("cortex.text_degree", "text_degree",
		[]string{"lamp.messages_usage"}, textDegree)
}

// directionWanted reads the "call_direction" param: "all" (default),
// "incoming", or "outgoing".
func directionWanted(req feature.Request, rec feature.Record, typeField string) bool {
	switch req.ParamString("call_direction", "all") {
	case "incoming":
		return rec.Int64(typeField) == directionIncoming
	case "outgoing":
		return rec.Int64(typeField) == directionOutgoing
	default:
		return true
	}
}

// callNumber counts calls in the window, optionally filtered by direction.
func callNumber(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.calls", req)
	if err != nil {
		return nil, err
	}
	var n int64
	for _, rec := range raw.Data {
		if directionWanted(req, rec, "call_type") {
			n++
		}
	}
	return feature.Record{"value": n}, nil
}

// callDuration sums call durations (seconds) in the window.
func callDuration(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.calls", req)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, rec := range raw.Data {
		if !directionWanted(req, rec, "call_type") {
			continue
		}
		if d, ok := rec.Float("call_duration"); ok {
			total += d
		}
	}
	return feature.Record{"value": total}, nil
}

// callDegree counts distinct call counterparts in the window.
func callDegree(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.calls", req)
	if err != nil {
		return nil, err
	}
	traces := make(map[string]bool)
	for _, rec := range raw.Data {
		if !directionWanted(req, rec, "call_type") {
			continue
		}
		if trace := rec.String("call_trace"); trace != "" {
			traces[trace] = true
		}
	}
	return feature.Record{"value": int64(len(traces))}, nil
}

// textNumber counts text messages in the window, optionally filtered by
// direction.
func textNumber(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.messages_usage", req)
	if err != nil {
		return nil, err
	}
	var n int64
	for _, rec := range raw.Data {
		if directionWanted(req, rec, "message_type") {
			n++
		}
	}
	return feature.Record{"value": n}, nil
}

// textDegree counts distinct text counterparts in the window.
func textDegree(ctx context.Context, s *feature.Session, req feature.Request) (feature.Record, error) {
	raw, err := rawWindow(ctx, s, "lamp.messages_usage", req)
	if err != nil {
		return nil, err
	}
	traces := make(map[string]bool)
	for _, rec := range raw.Data {
		if !directionWanted(req, rec, "message_type") {
			continue
		}
		if trace := rec.String("message_trace"); trace != "" {
			traces[trace] = true
		}
	}
	return feature.Record{"value": int64(len(traces))}, nil
}
