package primary

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/cluster"
	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/spatial"
)

const (
	// SigLocReductionKey persists the DBSCAN-reduced GPS summary so KMeans
	// reruns never revisit raw GPS below the high-water mark.
	SigLocReductionKey = "cortex.significant_locations.reduced"

	// reduceChunk bounds one DBSCAN pass.
	reduceChunk = 30000
	// reduceMergeMeters merges a new cluster centroid into an existing
	// reduced point this close.
	reduceMergeMeters = 20.0

	dbscanEpsDegrees = 1e-4
	dbscanMinPts     = 5

	defaultMaxClusters    = 10
	defaultMinClusterSize = 0.1
	elbowTolerance        = 0.01
	kmeansMaxIter         = 100

	kmPerDegree = 111.32
)

// reducedPoint is one entry of the significant-location reduction: a lossy
// GPS summary weighted by how many raw points collapsed into it.
type reducedPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int64   `json:"count"`
}

type sigLocReduction struct {
	End  int64          `json:"end"`
	Data []reducedPoint `json:"data"`
}

func init() {
	feature.RegisterPrimary("cortex.significant_locations", "significant_locations",
		[]string{"lamp.gps"}, significantLocations)
}

// significantLocations ranks the geographic centroids where the participant
// spends a disproportionate share of GPS samples. Rank 0 is the most
// prevalent. Records are centroid summaries, not intervals, so the window
// clip does not apply.
func significantLocations(ctx context.Context, s *feature.Session, req feature.Request) (*feature.PrimaryResult, error) {
	algorithm := req.ParamString("algorithm", "mode")

	var (
		records  []feature.Record
		rawCount int
		err      error
	)
	switch algorithm {
	case "kmeans":
		records, rawCount, err = sigLocKMeans(ctx, s, req)
	default:
		records, rawCount, err = sigLocMode(ctx, s, req)
	}
	if err != nil {
		return nil, err
	}

	hasRaw := feature.RawDataNone
	if rawCount > 0 {
		hasRaw = feature.RawDataPresent
	}
	return &feature.PrimaryResult{
		Timestamp:  req.Start,
		Duration:   req.End - req.Start,
		Data:       records,
		HasRawData: hasRaw,
	}, nil
}

// sigLocMode rounds coordinates to three decimals and ranks the modes.
func sigLocMode(ctx context.Context, s *feature.Session, req feature.Request) ([]feature.Record, int, error) {
	points, err := gpsPoints(ctx, s, req, req.Start)
	if err != nil {
		return nil, 0, err
	}
	if len(points) == 0 {
		return nil, 0, nil
	}

	minClusterSize := req.ParamFloat("min_cluster_size", defaultMinClusterSize)
	maxDist := req.ParamFloat("max_dist", 0)
	maxClusters := int(req.ParamFloat("k", defaultMaxClusters))

	type mode struct {
		center spatial.Point
		count  int
	}

	counts := make(map[spatial.Point]int)
	for _, p := range points {
		counts[roundPoint(p.loc)]++
	}

	modes := make([]mode, 0, len(counts))
	for center, count := range counts {
		modes = append(modes, mode{center: center, count: count})
	}
	sort.Slice(modes, func(i, j int) bool {
		if modes[i].count != modes[j].count {
			return modes[i].count > modes[j].count
		}
		if modes[i].center.Lat != modes[j].center.Lat {
			return modes[i].center.Lat < modes[j].center.Lat
		}
		return modes[i].center.Lon < modes[j].center.Lon
	})

	// Optional merge of nearby centroids into the higher-count one.
	if maxDist > 0 {
		for i := 0; i < len(modes); i++ {
			for j := i + 1; j < len(modes); {
				d := spatial.HaversineMeters(
					modes[i].center.Lat, modes[i].center.Lon,
					modes[j].center.Lat, modes[j].center.Lon)
				if d <= maxDist {
					modes[i].count += modes[j].count
					modes = append(modes[:j], modes[j+1:]...)
				} else {
					j++
				}
			}
		}
		sort.SliceStable(modes, func(i, j int) bool { return modes[i].count > modes[j].count })
	}

	total := len(points)
	var keep []mode
	for _, m := range modes {
		if float64(m.count)/float64(total) <= minClusterSize {
			continue
		}
		keep = append(keep, m)
		if len(keep) == maxClusters {
			break
		}
	}

	centers := make([]spatial.Point, len(keep))
	for i, m := range keep {
		centers[i] = m.center
	}
	assignments := assignNearest(points, centers)

	return summarizeCentroids(points, centers, assignments), len(points), nil
}

// sigLocKMeans maintains the DBSCAN reduction attachment and fits KMeans on
// the expanded summary, then describes the in-window points against the
// fitted centroids.
func sigLocKMeans(ctx context.Context, s *feature.Session, req feature.Request) ([]feature.Record, int, error) {
	client, err := s.Client()
	if err != nil {
		return nil, 0, err
	}

	var reduction sigLocReduction
	if err := client.AttachmentGet(ctx, req.ID, SigLocReductionKey, &reduction); err != nil {
		if !cerrors.Is(err, cerrors.KindNotFound) {
			return nil, 0, err
		}
	}

	// One pull covers both the reduction tail and the request window.
	pullFrom := req.Start
	if reduction.End < req.Start {
		pullFrom = reduction.End
	}
	points, err := gpsPoints(ctx, s, req, pullFrom)
	if err != nil {
		return nil, 0, err
	}

	var fresh []spatial.Point
	for _, p := range points {
		if p.ts > reduction.End {
			fresh = append(fresh, p.loc)
		}
	}
	reduction.Data = reduceGPS(reduction.Data, fresh)
	reduction.End = req.End
	if err := client.AttachmentSet(ctx, req.ID, AttachmentOwner, SigLocReductionKey, reduction); err != nil {
		s.Logger().Warn("significant-location reduction write failed", zap.Error(err))
	}

	if len(reduction.Data) == 0 {
		return nil, len(points), nil
	}

	// Expand the reduced table by count so KMeans sees the original
	// density without the original memory.
	var expanded []spatial.Point
	for _, rp := range reduction.Data {
		for i := int64(0); i < rp.Count; i++ {
			expanded = append(expanded, spatial.Point{Lat: rp.Latitude, Lon: rp.Longitude})
		}
	}

	kMax := int(req.ParamFloat("k", defaultMaxClusters))
	k := cluster.ElbowK(expanded, kMax, elbowTolerance, kmeansMaxIter)
	fit := cluster.KMeans(expanded, k, kmeansMaxIter)

	var window []gpsPoint
	for _, p := range points {
		if p.ts >= req.Start && p.ts <= req.End {
			window = append(window, p)
		}
	}
	assignments := assignNearest(window, fit.Centroids)

	return summarizeCentroids(window, fit.Centroids, assignments), len(points), nil
}

// reduceGPS folds new GPS points into the reduced table: density clusters
// merge into nearby reduced points or append, outliers persist as count-1
// points. Chunking bounds the DBSCAN working set.
func reduceGPS(reduced []reducedPoint, fresh []spatial.Point) []reducedPoint {
	for off := 0; off < len(fresh); off += reduceChunk {
		end := off + reduceChunk
		if end > len(fresh) {
			end = len(fresh)
		}
		chunk := fresh[off:end]

		labels := cluster.DBSCAN(chunk, dbscanEpsDegrees, dbscanMinPts)
		centers, counts, noise := cluster.Centroids(chunk, labels)

		for i, center := range centers {
			merged := false
			for j := range reduced {
				d := spatial.HaversineMeters(reduced[j].Latitude, reduced[j].Longitude, center.Lat, center.Lon)
				if d <= reduceMergeMeters {
					reduced[j].Count += int64(counts[i])
					merged = true
					break
				}
			}
			if !merged {
				reduced = append(reduced, reducedPoint{
					Latitude:  center.Lat,
					Longitude: center.Lon,
					Count:     int64(counts[i]),
				})
			}
		}
		for _, idx := range noise {
			reduced = append(reduced, reducedPoint{
				Latitude:  chunk[idx].Lat,
				Longitude: chunk[idx].Lon,
				Count:     1,
			})
		}
	}
	return reduced
}

type gpsPoint struct {
	ts  int64
	loc spatial.Point
}

// gpsPoints pulls the GPS stream over [from, req.End] ascending.
func gpsPoints(ctx context.Context, s *feature.Session, req feature.Request, from int64) ([]gpsPoint, error) {
	raw, err := feature.CallRaw(ctx, s, "lamp.gps",
		feature.Request{ID: req.ID, Start: from, End: req.End, Params: req.Params})
	if err != nil {
		return nil, err
	}

	events := append([]feature.Record{}, raw.Data...)
	feature.SortByTimestamp(events)

	points := make([]gpsPoint, 0, len(events))
	for _, ev := range events {
		lat, okLat := ev.Float("latitude")
		lon, okLon := ev.Float("longitude")
		if !okLat || !okLon {
			continue
		}
		points = append(points, gpsPoint{ts: ev.Timestamp(), loc: spatial.Point{Lat: lat, Lon: lon}})
	}
	return points, nil
}

func assignNearest(points []gpsPoint, centers []spatial.Point) []int {
	assignments := make([]int, len(points))
	for i, p := range points {
		best := 0
		bestDist := math.Inf(1)
		for c, center := range centers {
			if d := spatial.EuclideanDegrees(p.loc, center); d < bestDist {
				bestDist = d
				best = c
			}
		}
		assignments[i] = best
	}
	return assignments
}

// summarizeCentroids computes rank, proportion, mean radius, and dwell
// duration per centroid from the assigned in-window points.
func summarizeCentroids(points []gpsPoint, centers []spatial.Point, assignments []int) []feature.Record {
	if len(centers) == 0 {
		return nil
	}

	counts := make([]int, len(centers))
	radiusSums := make([]float64, len(centers))
	durations := make([]int64, len(centers))

	for i, p := range points {
		c := assignments[i]
		counts[c]++
		radiusSums[c] += spatial.EuclideanDegrees(p.loc, centers[c]) * kmPerDegree * 1000
		if i > 0 && assignments[i-1] == c {
			durations[c] += p.ts - points[i-1].ts
		}
	}

	order := make([]int, len(centers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })

	total := len(points)
	var records []feature.Record
	for rank, c := range order {
		var proportion, radius float64
		if total > 0 {
			proportion = float64(counts[c]) / float64(total)
		}
		if counts[c] > 0 {
			radius = radiusSums[c] / float64(counts[c])
		}
		records = append(records, feature.Record{
			"latitude":   centers[c].Lat,
			"longitude":  centers[c].Lon,
			"rank":       rank,
			"proportion": proportion,
			"radius":     radius,
			"duration":   durations[c],
		})
	}
	return records
}

func roundPoint(p spatial.Point) spatial.Point {
	return spatial.Point{
		Lat: math.Round(p.Lat*1000) / 1000,
		Lon: math.Round(p.Lon*1000) / 1000,
	}
}
