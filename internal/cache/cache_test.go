package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type blob struct {
	Values []int64 `json:"values"`
}

func TestPutGetRoundTripPerCodec(t *testing.T) {
	for _, codec := range []string{"", "gz", "xz", "zip"} {
		t.Run("codec_"+codec, func(t *testing.T) {
			store, err := New(t.TempDir(), codec, zap.NewNop())
			require.NoError(t, err)

			key := Key{Feature: "gps", Participant: "U1", Start: 0, End: 1000}
			require.NoError(t, store.Put(key, blob{Values: []int64{1, 2, 3}}))

			var out blob
			stored, ok := store.Get(key, &out)
			require.True(t, ok)
			require.Equal(t, key, stored)
			require.Equal(t, []int64{1, 2, 3}, out.Values)
		})
	}
}

func TestSupersetWindowIsAHit(t *testing.T) {
	store, err := New(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)

	wide := Key{Feature: "gps", Participant: "U1", Start: 0, End: 10000}
	require.NoError(t, store.Put(wide, blob{Values: []int64{42}}))

	var out blob
	stored, ok := store.Get(Key{Feature: "gps", Participant: "U1", Start: 2000, End: 8000}, &out)
	require.True(t, ok)
	require.Equal(t, wide, stored)
}

func TestNarrowerWindowIsAMiss(t *testing.T) {
	store, err := New(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)

	narrow := Key{Feature: "gps", Participant: "U1", Start: 2000, End: 8000}
	require.NoError(t, store.Put(narrow, blob{Values: []int64{42}}))

	var out blob
	_, ok := store.Get(Key{Feature: "gps", Participant: "U1", Start: 0, End: 10000}, &out)
	require.False(t, ok)
}

func TestCorruptBlobIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "gz", zap.NewNop())
	require.NoError(t, err)

	key := Key{Feature: "gps", Participant: "U1", Start: 0, End: 1000}
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, key.filename("gz")), []byte("not gzip"), 0o644))

	var out blob
	_, ok := store.Get(key, &out)
	require.False(t, ok)
}

func TestBz2FallsBackToPlainWrites(t *testing.T) {
	store, err := New(t.TempDir(), "bz2", zap.NewNop())
	require.NoError(t, err)

	key := Key{Feature: "gps", Participant: "U1", Start: 0, End: 1000}
	require.NoError(t, store.Put(key, blob{Values: []int64{7}}))

	var out blob
	_, ok := store.Get(key, &out)
	require.True(t, ok)
	require.Equal(t, []int64{7}, out.Values)
}

func TestOtherParticipantNeverHits(t *testing.T) {
	store, err := New(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Put(
		Key{Feature: "gps", Participant: "U1", Start: 0, End: 1000}, blob{}))

	var out blob
	_, ok := store.Get(Key{Feature: "gps", Participant: "U2", Start: 0, End: 1000}, &out)
	require.False(t, ok)
}

func TestUnderscoredParticipantPrefixNeverHits(t *testing.T) {
	store, err := New(t.TempDir(), "", zap.NewNop())
	require.NoError(t, err)

	long := Key{Feature: "gps", Participant: "u_1", Start: 0, End: 1000}
	require.NoError(t, store.Put(long, blob{Values: []int64{9}}))

	// "gps_u_1_0_1000.cortex" shares the "gps_u_" prefix but leaves three
	// window tokens, which the parser rejects.
	var out blob
	_, ok := store.Get(Key{Feature: "gps", Participant: "u", Start: 0, End: 1000}, &out)
	require.False(t, ok)

	stored, ok := store.Get(long, &out)
	require.True(t, ok)
	require.Equal(t, long, stored)
	require.Equal(t, []int64{9}, out.Values)
}
