package geostat

import (
	"math"
	"sort"
)

// Bin is one half-open distance interval [Lower, Upper) of the
// empirical variogram. Center is the mean pair distance of the bin, or
// the interval midpoint when no pair fell into it. A bin with Count
// zero is degenerate and carries no semivariance estimate.
type Bin struct {
	Lower  float64
	Upper  float64
	Center float64
	Count  int
	Gamma  float64
}

// StandardBins builds linear bin edges from zero to maxDist. When num
// is not positive, the bin count follows a Sturges rule on the number
// of observation pairs, as a reasonable default for station data.
func StandardBins(obs []Observation, maxDist float64, num int) ([]float64, error) {
	if len(obs) < 2 {
		return nil, errValidation("need at least 2 observations, got %d", len(obs))
	}
	if maxDist <= 0 || !isFinite(maxDist) {
		return nil, errValidation("max distance must be positive, got %g", maxDist)
	}
	if num <= 0 {
		pairs := len(obs) * (len(obs) - 1) / 2
		num = int(math.Ceil(math.Log2(float64(pairs)))) + 1
	}
	edges := make([]float64, num+1)
	for i := range edges {
		edges[i] = maxDist * float64(i) / float64(num)
	}
	return edges, nil
}

// EstimateVariogram bins every unordered observation pair by its
// separation under the metric and accumulates squared value
// differences, yielding the empirical semivariance per bin:
//
//	gamma = sum (vi - vj)^2 / (2 * count)
//
// Pairs beyond the last edge are ignored. The result covers every bin
// in edge order; degenerate bins keep Count zero so that fitting can
// skip them. A direct O(n^2) pair pass is used, which is fine for the
// few hundred stations this targets.
func EstimateVariogram(obs []Observation, metric Metric, edges []float64) ([]Bin, error) {
	if len(obs) < 2 {
		return nil, errValidation("need at least 2 observations, got %d", len(obs))
	}
	if err := checkEdges(edges); err != nil {
		return nil, err
	}

	bins := make([]Bin, len(edges)-1)
	for k := range bins {
		bins[k].Lower = edges[k]
		bins[k].Upper = edges[k+1]
	}

	distSum := make([]float64, len(bins))
	sqSum := make([]float64, len(bins))
	for i := 0; i < len(obs); i++ {
		for j := i + 1; j < len(obs); j++ {
			d := metric.Distance(obs[i].Pos, obs[j].Pos)
			k := findBin(edges, d)
			if k < 0 {
				continue
			}
			bins[k].Count++
			distSum[k] += d
			sqSum[k] += pow2(obs[i].Value - obs[j].Value)
		}
	}

	for k := range bins {
		if bins[k].Count > 0 {
			bins[k].Center = distSum[k] / float64(bins[k].Count)
			bins[k].Gamma = sqSum[k] / (2 * float64(bins[k].Count))
		} else {
			bins[k].Center = (bins[k].Lower + bins[k].Upper) / 2
		}
	}
	return bins, nil
}

// Curve returns the non-degenerate empirical variogram as parallel
// distance and semivariance slices, ascending by distance.
func Curve(bins []Bin) (dist, gamma []float64) {
	for _, b := range bins {
		if b.Count > 0 {
			dist = append(dist, b.Center)
			gamma = append(gamma, b.Gamma)
		}
	}
	return dist, gamma
}

// findBin locates the half-open interval containing d, or -1 when d
// lies outside the edge span.
func findBin(edges []float64, d float64) int {
	if d < edges[0] || d >= edges[len(edges)-1] {
		return -1
	}
	// first edge strictly greater than d; the bin is one to its left
	idx := sort.SearchFloat64s(edges, d)
	if idx < len(edges) && edges[idx] == d {
		return idx
	}
	return idx - 1
}

func checkEdges(edges []float64) error {
	if len(edges) < 2 {
		return errValidation("need at least 2 bin edges, got %d", len(edges))
	}
	if edges[0] < 0 {
		return errValidation("bin edges must be non-negative, first is %g", edges[0])
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return errValidation("bin edges must be strictly increasing at index %d", i)
		}
	}
	return nil
}
