// Package cluster holds the density and centroid clustering used by the
// significant-location feature. Both algorithms are deterministic for a
// given input ordering.
package cluster

import (
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/spatial"
)

// Noise labels a point not assigned to any DBSCAN cluster.
const Noise = -1

// DBSCAN labels points in degree space. eps is the neighborhood radius in
// degrees, minPts the density threshold. Returns one label per point;
// cluster ids start at 0.
func DBSCAN(points []spatial.Point, eps float64, minPts int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}
	visited := make([]bool, len(points))

	clusterID := 0
	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			continue
		}

		labels[i] = clusterID
		// Expand the cluster over the density-reachable set.
		for qi := 0; qi < len(neighbors); qi++ {
			j := neighbors[qi]
			if !visited[j] {
				visited[j] = true
				more := regionQuery(points, j, eps)
				if len(more) >= minPts {
					neighbors = append(neighbors, more...)
				}
			}
			if labels[j] == Noise {
				labels[j] = clusterID
			}
		}
		clusterID++
	}

	return labels
}

func regionQuery(points []spatial.Point, idx int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if spatial.EuclideanDegrees(points[idx], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// Centroids groups labeled points and returns each cluster's centroid with
// its member count, plus the indices of noise points.
func Centroids(points []spatial.Point, labels []int) (centers []spatial.Point, counts []int, noise []int) {
	groups := make(map[int][]spatial.Point)
	for i, label := range labels {
		if label == Noise {
			noise = append(noise, i)
			continue
		}
		groups[label] = append(groups[label], points[i])
	}

	maxLabel := -1
	for label := range groups {
		if label > maxLabel {
			maxLabel = label
		}
	}
	for label := 0; label <= maxLabel; label++ {
		members, ok := groups[label]
		if !ok {
			continue
		}
		centers = append(centers, spatial.Centroid(members))
		counts = append(counts, len(members))
	}
	return centers, counts, noise
}
