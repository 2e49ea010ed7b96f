package facematch

import "math"

// SelectBest evaluates every pair across a and b and returns the smallest
// distance together with the indices that produced it.
//
// Pairs are scanned A-major, B-minor and only a strictly smaller distance
// replaces the current best, so ties resolve to the lowest A index and then the
// lowest B index. NaN distances never win. Both sets must be non-empty.
func SelectBest(a, b DetectionSet, distance DistanceFunc) (float64, int, int) {
	if len(a) == 0 || len(b) == 0 {
		panic("facematch: SelectBest called with an empty detection set")
	}

	best := math.Inf(1)
	bestA, bestB := 0, 0
	found := false
	for i := range a {
		for j := range b {
			d := distance(a[i].Embedding, b[j].Embedding)
			if math.IsNaN(d) {
				continue
			}
			if !found || d < best {
				best, bestA, bestB = d, i, j
				found = true
			}
		}
	}

	if !found {
		return math.NaN(), 0, 0
	}
	return best, bestA, bestB
}
