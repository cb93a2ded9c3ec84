package spatial

import (
	"math"
)

// Trajectory similarity measures. All operate on ordered coordinate
// sequences in degree space and return 0 for identical curves. Callers are
// expected to guard against empty inputs.

// Frechet computes the discrete Fréchet distance between two trajectories.
func Frechet(a, b []Point) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.NaN()
	}

	ca := make([][]float64, n)
	for i := range ca {
		ca[i] = make([]float64, m)
		for j := range ca[i] {
			ca[i][j] = -1
		}
	}

	var walk func(i, j int) float64
	walk = func(i, j int) float64 {
		if ca[i][j] >= 0 {
			return ca[i][j]
		}
		d := EuclideanDegrees(a[i], b[j])
		switch {
		case i == 0 && j == 0:
			ca[i][j] = d
		case i == 0:
			ca[i][j] = math.Max(walk(0, j-1), d)
		case j == 0:
			ca[i][j] = math.Max(walk(i-1, 0), d)
		default:
			ca[i][j] = math.Max(math.Min(math.Min(walk(i-1, j), walk(i-1, j-1)), walk(i, j-1)), d)
		}
		return ca[i][j]
	}

	return walk(n-1, m-1)
}

// DTW computes the dynamic-time-warping cumulative distance between two
// trajectories.
func DTW(a, b []Point) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.NaN()
	}

	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			d := EuclideanDegrees(a[i-1], b[j-1])
			curr[j] = d + math.Min(prev[j], math.Min(curr[j-1], prev[j-1]))
		}
		prev, curr = curr, prev
	}

	return prev[m]
}

// CurveLength returns the absolute difference of the two arc lengths.
func CurveLength(a, b []Point) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.NaN()
	}
	return math.Abs(arcLength(a) - arcLength(b))
}

// AreaBetween approximates the area enclosed between two trajectories by
// resampling both to a common count and summing the quadrilateral areas
// spanned by consecutive point pairs.
func AreaBetween(a, b []Point) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.NaN()
	}

	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	ra := resample(a, n)
	rb := resample(b, n)

	var area float64
	for i := 0; i < n-1; i++ {
		area += quadArea(ra[i], rb[i], rb[i+1], ra[i+1])
	}
	return area
}

// PartialCurveMapping maps the shorter trajectory onto every contiguous
// sub-curve of the longer one with the same point count and returns the
// smallest mean pairwise distance.
func PartialCurveMapping(a, b []Point) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.NaN()
	}

	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}

	best := math.Inf(1)
	for off := 0; off+len(short) <= len(long); off++ {
		var sum float64
		for i, p := range short {
			sum += EuclideanDegrees(p, long[off+i])
		}
		mean := sum / float64(len(short))
		if mean < best {
			best = mean
		}
	}
	return best
}

func arcLength(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += EuclideanDegrees(pts[i-1], pts[i])
	}
	return total
}

// resample produces n points along the polyline by linear interpolation of
// the point index.
func resample(pts []Point, n int) []Point {
	if len(pts) == 1 || n == 1 {
		out := make([]Point, n)
		for i := range out {
			out[i] = pts[0]
		}
		return out
	}

	out := make([]Point, n)
	step := float64(len(pts)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(pts) {
			hi = len(pts) - 1
		}
		frac := pos - float64(lo)
		out[i] = Point{
			Lat: pts[lo].Lat*(1-frac) + pts[hi].Lat*frac,
			Lon: pts[lo].Lon*(1-frac) + pts[hi].Lon*frac,
		}
	}
	return out
}

// quadArea is the shoelace area of the quadrilateral p1-p2-p3-p4.
func quadArea(p1, p2, p3, p4 Point) float64 {
	pts := [4]Point{p1, p2, p3, p4}
	var sum float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += pts[i].Lon*pts[j].Lat - pts[j].Lon*pts[i].Lat
	}
	return math.Abs(sum) / 2
}
