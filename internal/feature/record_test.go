package feature

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordEqualAfterJSONRoundTrip(t *testing.T) {
	rec := Record{"start": int64(1000), "end": int64(2000), "value": 1.5}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded Record
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.True(t, rec.Equal(decoded))
}

func TestDedupCollapsesStructuralDuplicates(t *testing.T) {
	records := []Record{
		{"start": int64(0), "end": int64(10)},
		{"start": float64(0), "end": float64(10)},
		{"start": int64(5), "end": int64(15)},
	}

	out := Dedup(records)
	require.Len(t, out, 2)
}

func TestClipToWindowRecomputesDuration(t *testing.T) {
	records := []Record{
		{"start": int64(500), "end": int64(1500), "duration": int64(1000)},
		{"start": int64(2000), "end": int64(3000), "duration": int64(1000)},
		{"start": int64(5000), "end": int64(6000), "duration": int64(1000)},
	}

	out := ClipToWindow(records, 1000, 4000)
	require.Len(t, out, 2)

	require.Equal(t, int64(1000), out[0].Start())
	require.Equal(t, int64(1500), out[0].End())
	require.Equal(t, int64(500), out[0].Int64("duration"))

	require.Equal(t, int64(2000), out[1].Start())
	require.Equal(t, int64(3000), out[1].End())
	require.Equal(t, int64(1000), out[1].Int64("duration"))
}

func TestSortByStartIsStableAscending(t *testing.T) {
	records := []Record{
		{"start": int64(30)},
		{"start": int64(10)},
		{"start": int64(20)},
	}
	SortByStart(records)
	require.Equal(t, int64(10), records[0].Start())
	require.Equal(t, int64(20), records[1].Start())
	require.Equal(t, int64(30), records[2].Start())
}
