package primary

import (
	"context"
	"math"

	"go.uber.org/zap"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

const (
	// SleepAttachmentKey holds the committed sleep-period records.
	SleepAttachmentKey = "cortex.sleep_periods"
	// SleepReductionKey holds the per-10-minute-of-day accelerometer
	// profile the expected window is derived from.
	SleepReductionKey = "cortex.sleep_periods.reduced"

	sleepBinMS    = int64(10 * 60 * 1000)
	binsPerDay    = 144
	minutesPerDay = 1440
	dayMS         = int64(24 * 60 * 60 * 1000)

	expectedSleepMin = 480 // 8 hours
	flexZoneMin      = 120 // 2 hours either side
)

// sleepBin is one 10-minute-of-day slot of the rolling accelerometer
// profile, maintained as a count-weighted incremental mean.
type sleepBin struct {
	Time struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	} `json:"time"`
	Magnitude float64 `json:"magnitude"`
	Count     int64   `json:"count"`
}

type sleepReduction struct {
	End  int64      `json:"end"`
	Data []sleepBin `json:"data"`
}

// agg10 accumulates one day's samples inside a single 10-minute bucket.
type agg10 struct {
	sum   float64
	count int64
}

func init() {
	feature.RegisterPrimary("cortex.sleep_periods", "sleep_periods",
		[]string{"lamp.accelerometer"}, sleepPeriods)
}

// sleepPeriods infers one sleep interval per day: a recurring low-activity
// window of the day anchors the expectation, and per-day bucket activity
// stretches or shrinks it.
func sleepPeriods(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	return runWithAttachment(ctx, s, req, SleepAttachmentKey, computeSleepPeriods)
}

func computeSleepPeriods(ctx context.Context, s *feature.Session, req feature.Request, from, to int64) ([]feature.Record, int, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.accelerometer",
		feature.Request{ID: req.ID, Start: from, End: to, Params: req.Params})
	if err != nil {
		return nil, 0, err
	}

	profile, err := updateSleepReduction(ctx, s, req.ID, raw.Data, to)
	if err != nil {
		return nil, 0, err
	}

	bedMin, wakeMin, ok := expectedSleepWindow(profile)
	if !ok {
		return nil, len(raw.Data), nil
	}

	records := detectDailySleep(raw.Data, profile, bedMin, wakeMin)
	return records, len(raw.Data), nil
}

// updateSleepReduction folds the new accelerometer tail into the remote
// per-10-minute-of-day profile and returns the merged profile indexed by bin
// of day.
func updateSleepReduction(ctx context.Context, s *feature.Session, participant string, events []feature.Record, to int64) ([binsPerDay]sleepBin, error) {
	var profile [binsPerDay]sleepBin

	client, err := s.Client()
	if err != nil {
		return profile, err
	}

	var reduction sleepReduction
	if err := client.AttachmentGet(ctx, participant, SleepReductionKey, &reduction); err != nil {
		if !cerrors.Is(err, cerrors.KindNotFound) {
			return profile, err
		}
	}

	for i := range profile {
		profile[i].Time.Hour = i / 6
		profile[i].Time.Minute = (i % 6) * 10
	}
	for _, bin := range reduction.Data {
		idx := bin.Time.Hour*6 + bin.Time.Minute/10
		if idx >= 0 && idx < binsPerDay {
			profile[idx].Magnitude = bin.Magnitude
			profile[idx].Count = bin.Count
		}
	}

	// Only events above the reduction high-water refine the profile;
	// everything older is already folded in.
	var sums [binsPerDay]float64
	var counts [binsPerDay]int64
	added := false
	for _, ev := range events {
		ts := ev.Timestamp()
		if ts <= reduction.End {
			continue
		}
		x, _ := ev.Float("x")
		y, _ := ev.Float("y")
		z, _ := ev.Float("z")
		idx := binOfDay(ts)
		sums[idx] += math.Sqrt(x*x + y*y + z*z)
		counts[idx]++
		added = true
	}

	if added {
		for i := range profile {
			if counts[i] == 0 {
				continue
			}
			total := profile[i].Count + counts[i]
			profile[i].Magnitude = (profile[i].Magnitude*float64(profile[i].Count) + sums[i]) / float64(total)
			profile[i].Count = total
		}
	}

	if added || reduction.End < to {
		out := sleepReduction{End: to, Data: profile[:]}
		if err := client.AttachmentSet(ctx, participant, AttachmentOwner, SleepReductionKey, out); err != nil {
			s.Logger().Warn("sleep reduction write failed", zap.Error(err))
		}
	}

	return profile, nil
}

// expectedSleepWindow scans candidate bed times between 18:00 and 03:30 at
// 30-minute spacing and picks the 8-hour window with the lowest
// count-weighted mean magnitude. ok is false when the profile has no
// coverage at any candidate.
func expectedSleepWindow(profile [binsPerDay]sleepBin) (bedMin, wakeMin int, ok bool) {
	best := math.Inf(1)
	for t0 := 18 * 60; t0 <= 27*60+30; t0 += 30 {
		var weighted, weight float64
		for m := t0; m < t0+expectedSleepMin; m += 10 {
			bin := profile[(m/10)%binsPerDay]
			if bin.Count == 0 {
				continue
			}
			weighted += bin.Magnitude * float64(bin.Count)
			weight += float64(bin.Count)
		}
		if weight == 0 {
			continue
		}
		mean := weighted / weight
		if mean < best {
			best = mean
			bedMin = t0 % minutesPerDay
		}
	}
	if math.IsInf(best, 1) {
		return 0, 0, false
	}
	return bedMin, (bedMin + expectedSleepMin) % minutesPerDay, true
}

// detectDailySleep walks the accelerometer stream day by day. Days are
// shifted so each one ends two hours after the expected wake time, which
// keeps an across-midnight sleep window inside a single day.
func detectDailySleep(events []feature.Record, profile [binsPerDay]sleepBin, bedMin, wakeMin int) []feature.Record {
	flexEndMin := (wakeMin + flexZoneMin) % minutesPerDay

	days := make(map[int64]map[int]*agg10)
	for _, ev := range events {
		ts := ev.Timestamp()
		x, _ := ev.Float("x")
		y, _ := ev.Float("y")
		z, _ := ev.Float("z")

		day := floorDiv(ts-int64(flexEndMin)*60000, dayMS)
		bin := binOfDay(ts)
		if days[day] == nil {
			days[day] = make(map[int]*agg10)
		}
		a := days[day][bin]
		if a == nil {
			a = &agg10{}
			days[day][bin] = a
		}
		a.sum += math.Sqrt(x*x + y*y + z*z)
		a.count++
	}

	var records []feature.Record
	for day, bins := range days {
		if len(bins) == 0 {
			continue
		}

		extraInactivity := 0
		extraActivity := 0
		firstInactiveMin := -1

		// Pre-bed flex zone, chronological order.
		for off := -flexZoneMin; off < 0; off += 10 {
			m := ((bedMin + off) + minutesPerDay) % minutesPerDay
			if dm, pm, ok := binMeans(bins, profile, m); ok && dm < pm {
				extraInactivity++
				if firstInactiveMin < 0 {
					firstInactiveMin = m
				}
			}
		}
		// Post-wake zone.
		for off := 0; off < flexZoneMin; off += 10 {
			m := (wakeMin + off) % minutesPerDay
			if dm, pm, ok := binMeans(bins, profile, m); ok && dm < pm {
				extraInactivity++
			}
		}
		// Inside the expected window, activity above the profile shortens
		// sleep.
		for off := 0; off < expectedSleepMin; off += 10 {
			m := (bedMin + off) % minutesPerDay
			if dm, pm, ok := binMeans(bins, profile, m); ok && dm > pm {
				extraActivity++
			}
		}
		sleepMS := int64(expectedSleepMin)*60000 -
			int64(extraActivity)*sleepBinMS +
			int64(extraInactivity)*sleepBinMS
		if sleepMS <= 0 {
			continue
		}

		startMin := bedMin
		if firstInactiveMin >= 0 {
			startMin = firstInactiveMin
		}

		start := day*dayMS + int64(startMin)*60000
		if startMin < 8*60 {
			// Bed times past midnight belong to the following date.
			start += dayMS
		}

		records = append(records, feature.Record{
			"start":    start,
			"end":      start + sleepMS,
			"duration": sleepMS,
		})
	}

	feature.SortByStart(records)
	return records
}

// binMeans resolves the day's bucket mean and the profile magnitude at a
// minute of day. ok is false when either side has no coverage.
func binMeans(bins map[int]*agg10, profile [binsPerDay]sleepBin, minute int) (dayMean, profMean float64, ok bool) {
	idx := (minute / 10) % binsPerDay
	a := bins[idx]
	if a == nil || a.count == 0 || profile[idx].Count == 0 {
		return 0, 0, false
	}
	return a.sum / float64(a.count), profile[idx].Magnitude, true
}

func binOfDay(ts int64) int {
	minuteOfDay := int((ts / 60000) % int64(minutesPerDay))
	if minuteOfDay < 0 {
		minuteOfDay += minutesPerDay
	}
	return minuteOfDay / 10
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
