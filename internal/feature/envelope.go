package feature

// RawResult is the uniform envelope of a raw feature: the events of one
// sensor kind inside the requested window plus a data-quality summary.
type RawResult struct {
	Timestamp       int64    `json:"timestamp"` // request start
	Duration        int64    `json:"duration"`  // end - start
	Data            []Record `json:"data"`
	FSMean          float64  `json:"fs_mean"`           // mean sample rate, Hz
	FSVar           float64  `json:"fs_var"`            // sample-rate variance
	PercentGoodData float64  `json:"percent_good_data"` // bins above threshold
}

// HasRawData states of a primary result.
const (
	// RawDataNone means the raw dependency returned no events.
	RawDataNone = 0
	// RawDataPresent means at least one event backed the computation.
	RawDataPresent = 1
	// RawDataUnqueried means the result was served purely from the
	// incremental attachment without touching the raw layer.
	RawDataUnqueried = -1
)

// PrimaryResult is the uniform envelope of a primary feature: interval
// records clipped to the requested window.
type PrimaryResult struct {
	Timestamp  int64    `json:"timestamp"`
	Duration   int64    `json:"duration"`
	Data       []Record `json:"data"`
	HasRawData int      `json:"has_raw_data"`
}

// SecondaryResult is the uniform envelope of a secondary feature: one record
// per resolution window, ascending by timestamp.
type SecondaryResult struct {
	Timestamp  int64    `json:"timestamp"`
	Duration   int64    `json:"duration"`
	Resolution int64    `json:"resolution"`
	Data       []Record `json:"data"`
}

// ClipToWindow trims interval records to [start, end], pulling clipped
// endpoints into the window and recomputing duration. Records wholly outside
// the window are dropped.
func ClipToWindow(records []Record, start, end int64) []Record {
	var out []Record
	for _, rec := range records {
		rs, re := rec.Start(), rec.End()
		if re <= start || rs >= end {
			continue
		}
		clipped := rec.Clone()
		if rs < start {
			clipped["start"] = start
			rs = start
		}
		if re > end {
			clipped["end"] = end
			re = end
		}
		clipped["duration"] = re - rs
		out = append(out, clipped)
	}
	return out
}

// FilterWindow keeps event records with start ≤ timestamp ≤ end.
func FilterWindow(records []Record, start, end int64) []Record {
	var out []Record
	for _, rec := range records {
		ts := rec.Timestamp()
		if ts >= start && ts <= end {
			out = append(out, rec)
		}
	}
	return out
}
