package primary

import (
	"context"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// Screen-state value codes as reported by the devices.
const (
	screenOn       = 1
	screenOff      = 0
	screenLocked   = 2
	screenUnlocked = 3
)

// debounceMS drops a second "on" arriving this close after another.
const debounceMS = 1000

func init() {
	feature.RegisterPrimary("cortex.screen_active", "screen_active",
		[]string{"lamp.screen_state"}, screenActive)
}

// screenActive finds device-in-use bouts: intervals opened by an on/unlock
// event and closed by the next off/lock event.
func screenActive(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	return runStateless(ctx, s, req, computeScreenActive)
}

func computeScreenActive(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.screen_state",
		feature.Request{ID: req.ID, Start: from, End: to, Params: req.Params})
	if err != nil {
		return nil, 0, err
	}

	events := append([]feature.Record{}, raw.Data...)
	feature.SortByTimestamp(events)
	events = debounce(events)

	var bouts []feature.Record
	var boutStart int64
	seeking := false // false: seeking start, true: seeking end

	for _, ev := range events {
		state := int(ev.Int64("value"))
		ts := ev.Timestamp()

		if !seeking {
			if isOn(state) {
				boutStart = ts
				seeking = true
			}
			continue
		}
		if isOff(state) && ts > boutStart {
			bouts = append(bouts, feature.Record{
				"start":    boutStart,
				"end":      ts,
				"duration": ts - boutStart,
			})
			seeking = false
		}
	}

	return bouts, len(raw.Data), nil
}

// debounce removes an "on" event arriving within debounceMS of the previous
// "on".
func debounce(events []feature.Record) []feature.Record {
	var out []feature.Record
	var lastOn int64 = -1
	for _, ev := range events {
		state := int(ev.Int64("value"))
		ts := ev.Timestamp()
		if isOn(state) {
			if lastOn >= 0 && ts-lastOn < debounceMS {
				continue
			}
			lastOn = ts
		}
		out = append(out, ev)
	}
	return out
}

func isOn(state int) bool {
	return state == screenOn || state == screenUnlocked
}

func isOff(state int) bool {
	return state == screenOff || state == screenLocked
}
