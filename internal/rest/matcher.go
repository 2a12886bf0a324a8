package rest

import (
	"sort"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// candidate names one reference trajectory the matcher should try, plus the
// seed offsets at which a match may start. A nil offsets slice means every
// offset (the no-spatial-filter path).
type candidate struct {
	traj    int
	offsets []int
}

// refRange is a live match: reference points p..q inclusive currently cover
// the query prefix under consideration.
type refRange struct {
	p, q int
	dist float64
}

// matchLongestPrefix finds the longest prefix of s (length >= 2) that a
// single contiguous subsequence of some candidate reference trajectory
// covers with MaxDTW below epsKm. It returns the covered prefix length and
// the witness subsequence. Ties in length keep the first witness found, so
// results are deterministic for a fixed candidate order.
//
// Per candidate the search is breadth-first over match lengths: the live
// set starts from all seed pairs within the bound, and each step grows the
// matched prefix by one point while expanding every live range (p, q) into
// (p, q+1) and (q, q+1), keeping only expansions still within the bound.
// With k > 0 only the k successors with smallest MaxDTW survive a step
// (ties broken by insertion order).
func matchLongestPrefix(s []geo.Point, refs *ReferenceSet, cands []candidate, epsKm float64, band, k int) (int, Ref, bool) {
	bestLen := 0
	var bestRef Ref

	for _, c := range cands {
		r := refs.Trajectory(c.traj)
		if len(r) < 2 {
			continue
		}
		cache := newDTWCache(s, r, band)

		live := seedMatches(c, r, cache, epsKm)
		matched := 2
		for len(live) > 0 {
			if matched > bestLen {
				bestLen = matched
				bestRef = Ref{Traj: c.traj, Start: live[0].p, End: live[0].q}
			}
			if matched == len(s) {
				break
			}
			matched++
			live = expandMatches(live, len(r), matched, cache, epsKm, k)
		}
	}

	if bestLen < 2 {
		return 0, Ref{}, false
	}
	return bestLen, bestRef, true
}

// seedMatches initializes the live set: every seed pair (j, j+1) whose two
// reference points cover the first two query points within the bound.
func seedMatches(c candidate, r []geo.Point, cache *dtwCache, epsKm float64) []refRange {
	var live []refRange
	add := func(j int) {
		if j < 0 || j+1 >= len(r) {
			return
		}
		if d := cache.dist(2, j, 2); d < epsKm {
			live = append(live, refRange{p: j, q: j + 1, dist: d})
		}
	}
	if c.offsets == nil {
		for j := 0; j+1 < len(r); j++ {
			add(j)
		}
		return live
	}
	for _, j := range c.offsets {
		add(j)
	}
	return live
}

// expandMatches grows every live range by one query point. The two successor
// moves per range mirror the DTW alignment steps projected onto contiguous
// subsequences: extend the reference range on the right, or restart from its
// tail pair. Duplicate successors are evaluated once.
func expandMatches(live []refRange, refLen, matched int, cache *dtwCache, epsKm float64, k int) []refRange {
	var next []refRange
	seen := make(map[[2]int]bool, 2*len(live))
	try := func(p, q int) {
		if q >= refLen {
			return
		}
		key := [2]int{p, q}
		if seen[key] {
			return
		}
		seen[key] = true
		if d := cache.dist(matched, p, q-p+1); d < epsKm {
			next = append(next, refRange{p: p, q: q, dist: d})
		}
	}
	for _, m := range live {
		try(m.p, m.q+1)
		try(m.q, m.q+1)
	}
	if k > 0 && len(next) > k {
		// Stable sort keeps insertion order for equal distances.
		sort.SliceStable(next, func(i, j int) bool { return next[i].dist < next[j].dist })
		next = next[:k]
	}
	return next
}
