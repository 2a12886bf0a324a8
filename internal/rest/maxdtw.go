// Package rest implements reference-based similar-trajectory compression:
// a reference set of trajectories is curated from the corpus, and every
// other trajectory is encoded as pointers into reference subsequences plus
// short literal runs where no reference matches within the error bound.
package rest

import (
	"math"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// MaxDTW returns the max-aggregated dynamic time warping distance between a
// and b in kilometers. Unlike classical DTW the outer aggregation is max,
// not sum, so the result bounds the worst per-pair distance along some
// monotone alignment:
//
//	D(A, B) = max(dist(last(A), last(B)), min(D(A', B'), D(A', B), D(A, B')))
//
// with D(∅, ∅) = 0 and D(A, ∅) = D(∅, B) = +Inf.
//
// band > 0 restricts alignment to a Sakoe-Chiba band of half-width band over
// the cell grid rooted at the start of both sequences; cells outside the
// band contribute +Inf. band = 0 means unrestricted.
func MaxDTW(a, b []geo.Point, band int) float64 {
	c := newDTWCache(a, b, band)
	return c.dist(len(a), 0, len(b))
}

// dtwCache memoizes MaxDTW sub-results for one query suffix against one
// reference trajectory. The matcher re-queries overlapping subsequences of
// the same reference while it expands matches, so the cache is keyed by
// (query prefix length, reference start, reference length) and shared across
// those calls. It must never be reused across reference trajectories or
// across encoder invocations: the keys would collide with stale values.
type dtwCache struct {
	q    []geo.Point
	r    []geo.Point
	band int
	memo map[dtwKey]float64
}

type dtwKey struct {
	qLen   int
	rStart int
	rLen   int
}

func newDTWCache(q, r []geo.Point, band int) *dtwCache {
	return &dtwCache{q: q, r: r, band: band, memo: make(map[dtwKey]float64)}
}

// dist returns MaxDTW(q[:qLen], r[rStart:rStart+rLen]).
func (c *dtwCache) dist(qLen, rStart, rLen int) float64 {
	if qLen == 0 && rLen == 0 {
		return 0
	}
	if qLen == 0 || rLen == 0 {
		return math.Inf(1)
	}
	key := dtwKey{qLen, rStart, rLen}
	if d, ok := c.memo[key]; ok {
		return d
	}

	var d float64
	if c.band > 0 && abs((qLen-1)-(rLen-1)) > c.band {
		d = math.Inf(1)
	} else {
		head := geo.Haversine(c.q[qLen-1], c.r[rStart+rLen-1])
		rest := math.Min(
			c.dist(qLen-1, rStart, rLen-1),
			math.Min(c.dist(qLen-1, rStart, rLen), c.dist(qLen, rStart, rLen-1)),
		)
		d = math.Max(head, rest)
	}
	c.memo[key] = d
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
