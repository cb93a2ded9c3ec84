package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/spatial"
)

func twoBlobs() []spatial.Point {
	var points []spatial.Point
	for i := 0; i < 10; i++ {
		points = append(points, spatial.Point{Lat: 42.32 + float64(i)*1e-5, Lon: -71.05})
	}
	for i := 0; i < 5; i++ {
		points = append(points, spatial.Point{Lat: 42.50 + float64(i)*1e-5, Lon: -71.50})
	}
	return points
}

func TestDBSCANSeparatesBlobsAndNoise(t *testing.T) {
	points := append(twoBlobs(), spatial.Point{Lat: 40.0, Lon: -70.0})

	labels := DBSCAN(points, 1e-3, 3)
	centers, counts, noise := Centroids(points, labels)

	require.Len(t, centers, 2)
	require.Equal(t, []int{10, 5}, counts)
	require.Equal(t, []int{15}, noise)

	require.InDelta(t, 42.32, centers[0].Lat, 1e-3)
	require.InDelta(t, 42.50, centers[1].Lat, 1e-3)
}

func TestDBSCANAllNoiseBelowMinPts(t *testing.T) {
	points := []spatial.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	labels := DBSCAN(points, 1e-5, 3)
	require.Equal(t, []int{Noise, Noise}, labels)
}

func TestKMeansDeterministic(t *testing.T) {
	points := twoBlobs()

	first := KMeans(points, 2, 100)
	second := KMeans(points, 2, 100)

	require.Equal(t, first.Centroids, second.Centroids)
	require.Equal(t, first.Assignments, second.Assignments)
}

func TestKMeansSplitsBlobs(t *testing.T) {
	points := twoBlobs()
	fit := KMeans(points, 2, 100)

	require.Len(t, fit.Centroids, 2)
	require.Less(t, fit.Inertia, 1e-4)
	// Every point in the same blob shares an assignment.
	for i := 1; i < 10; i++ {
		require.Equal(t, fit.Assignments[0], fit.Assignments[i])
	}
	for i := 11; i < 15; i++ {
		require.Equal(t, fit.Assignments[10], fit.Assignments[i])
	}
	require.NotEqual(t, fit.Assignments[0], fit.Assignments[10])
}

func TestElbowKStopsWhenImprovementFlattens(t *testing.T) {
	points := twoBlobs()
	k := ElbowK(points, 6, 0.01, 100)
	require.GreaterOrEqual(t, k, 1)
	require.LessOrEqual(t, k, 2)
}

func TestKMeansClampsKToPointCount(t *testing.T) {
	points := []spatial.Point{{Lat: 1, Lon: 1}}
	fit := KMeans(points, 5, 10)
	require.Len(t, fit.Centroids, 1)
}
