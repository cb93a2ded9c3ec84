package cluster

import (
	"math"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/spatial"
)

// KMeansResult holds fitted centroids and per-point assignments.
type KMeansResult struct {
	Centroids   []spatial.Point
	Assignments []int
	// Inertia is the mean distance from each point to its centroid, in
	// degree space. Lower is tighter.
	Inertia float64
}

// KMeans fits k centroids with Lloyd iterations. Initialization is
// deterministic (farthest-point seeding from the first point) so repeated
// runs over the same input converge to the same centroids.
func KMeans(points []spatial.Point, k, maxIter int) *KMeansResult {
	if len(points) == 0 || k <= 0 {
		return &KMeansResult{}
	}
	if k > len(points) {
		k = len(points)
	}

	centroids := seed(points, k)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(centroids, p)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([]spatial.Point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assignments[i]
			sums[c].Lat += p.Lat
			sums[c].Lon += p.Lon
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			centroids[c] = spatial.Point{
				Lat: sums[c].Lat / float64(counts[c]),
				Lon: sums[c].Lon / float64(counts[c]),
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	var total float64
	for i, p := range points {
		total += spatial.EuclideanDegrees(p, centroids[assignments[i]])
	}

	return &KMeansResult{
		Centroids:   centroids,
		Assignments: assignments,
		Inertia:     total / float64(len(points)),
	}
}

// ElbowK fits increasing k and picks the first k where the consecutive
// inertia improvement drops below tol, else kMax.
func ElbowK(points []spatial.Point, kMax int, tol float64, maxIter int) int {
	if kMax < 1 {
		kMax = 1
	}
	if len(points) < 2 {
		return 1
	}

	prev := math.NaN()
	for k := 1; k <= kMax; k++ {
		score := KMeans(points, k, maxIter).Inertia
		if !math.IsNaN(prev) && math.Abs(score-prev) < tol {
			return k - 1
		}
		prev = score
	}
	return kMax
}

func seed(points []spatial.Point, k int) []spatial.Point {
	centroids := make([]spatial.Point, 0, k)
	centroids = append(centroids, points[0])

	for len(centroids) < k {
		bestIdx := 0
		bestDist := -1.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := spatial.EuclideanDegrees(p, c); dd < d {
					d = dd
				}
			}
			if d > bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		centroids = append(centroids, points[bestIdx])
	}
	return centroids
}

func nearest(centroids []spatial.Point, p spatial.Point) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := spatial.EuclideanDegrees(p, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
