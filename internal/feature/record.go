package feature

import (
	"reflect"
	"sort"
)

// Record is one flattened event or interval. Payload schemas vary by device
// and backend version, so records stay schemaless; the accessors below read
// the handful of fields the algorithms pin down.
type Record map[string]interface{}

// Timestamp returns the canonical event timestamp in ms, or 0.
func (r Record) Timestamp() int64 {
	return r.Int64("timestamp")
}

// Start returns the interval start in ms, or 0.
func (r Record) Start() int64 {
	return r.Int64("start")
}

// End returns the interval end in ms, or 0.
func (r Record) End() int64 {
	return r.Int64("end")
}

// Int64 reads an integer field, tolerating the float64 that JSON decoding
// produces.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Float reads a numeric field as float64. ok is false when the field is
// absent or not numeric.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// String reads a string field, or "".
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal compares two records structurally, treating all numeric values as
// float64 so that a record survives a JSON round trip unchanged.
func (r Record) Equal(other Record) bool {
	return reflect.DeepEqual(canonical(map[string]interface{}(r)), canonical(map[string]interface{}(other)))
}

func canonical(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	case Record:
		return canonical(map[string]interface{}(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// SortByStart orders interval records ascending by start timestamp.
func SortByStart(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Start() < records[j].Start()
	})
}

// SortByTimestamp orders event records ascending by timestamp.
func SortByTimestamp(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp() < records[j].Timestamp()
	})
}

// Dedup removes structurally equal records, keeping first occurrences and
// preserving order.
func Dedup(records []Record) []Record {
	var out []Record
	for _, rec := range records {
		dup := false
		for _, kept := range out {
			if rec.Equal(kept) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, rec)
		}
	}
	return out
}
