package rest

import (
	"fmt"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// Shape summarizes the compressed size of one encoded trajectory:
// M is the input length in points, R the number of Ref segments, and D the
// number of raw points.
type Shape struct {
	M int
	R int
	D int
}

// CompressionRatio is the ratio of the raw byte size to the encoded byte
// size under the fixed PointBytes/RefBytes constants. Every encoding of a
// valid trajectory carries at least one segment, so the denominator is
// always positive: an all-raw encoding has D = M and yields exactly 1, and
// an all-Ref encoding has D = 0 and costs only its R references.
func (s Shape) CompressionRatio() float64 {
	return float64(s.M*PointBytes) / float64(s.D*PointBytes+s.R*RefBytes)
}

// Encoder compresses trajectories against a frozen view of a reference set.
// Index may be nil, in which case every reference trajectory is considered
// as a match candidate at every offset. An Encoder must not observe the
// reference set or index while a builder is mutating them.
type Encoder struct {
	Refs   *ReferenceSet
	Index  *PointIndex
	Params Params
}

// Encode compresses t and reports its shape. The cursor walks t emitting
// a Ref for the longest reference-covered prefix found by the matcher, or
// a literal step of one edge when no reference matches; consecutive
// literal steps grow a single RawRun.
// Adjacent segments share their boundary point, so a segment covering n
// points advances the cursor n-1 positions.
//
// Trajectories shorter than two points violate the engine's precondition
// and fail loudly.
func (e *Encoder) Encode(t []geo.Point) (*Encoded, error) {
	if len(t) < 2 {
		return nil, fmt.Errorf("trajectory must have at least 2 points, got %d", len(t))
	}
	epsKm := e.Params.epsilonKm()

	var segs []Segment
	rawPoints := 0
	refSegs := 0

	i := 0
	for i < len(t)-1 {
		cands := e.candidates(t[i])
		if n, ref, ok := matchLongestPrefix(t[i:], e.Refs, cands, epsKm, e.Params.DTWBand, e.Params.KBest); ok {
			segs = append(segs, ref)
			refSegs++
			i += n - 1
			continue
		}

		// No reference covers even the next edge: emit it literally,
		// growing the previous raw run when one is pending.
		if n := len(segs); n > 0 {
			if run, isRaw := segs[n-1].(RawRun); isRaw {
				run.Points = append(run.Points, t[i+1])
				segs[n-1] = run
				rawPoints++
				i++
				continue
			}
		}
		segs = append(segs, RawRun{Points: []geo.Point{t[i], t[i+1]}})
		rawPoints++
		i++
	}

	// Each raw step above counted one edge; the run's trailing endpoint is
	// one more stored point. Downstream compression-ratio arithmetic
	// depends on this convention.
	if rawPoints > 0 {
		rawPoints++
	}

	return &Encoded{
		Segments: segs,
		Shape:    Shape{M: len(t), R: refSegs, D: rawPoints},
	}, nil
}

// candidates builds the matcher's candidate pool for the current query
// head. With a spatial index, matches may only start at reference points
// inside the configured envelope around the head; without one, every
// reference trajectory is a candidate at every offset.
func (e *Encoder) candidates(head geo.Point) []candidate {
	if e.Index == nil {
		cands := make([]candidate, 0, e.Refs.Len())
		for i := 0; i < e.Refs.Len(); i++ {
			cands = append(cands, candidate{traj: i})
		}
		return cands
	}

	var cands []candidate
	for _, pr := range e.Index.Query(head, float64(e.Params.SpatialRadiusMeters)) {
		if n := len(cands); n > 0 && cands[n-1].traj == pr.Traj {
			cands[n-1].offsets = append(cands[n-1].offsets, pr.Offset)
			continue
		}
		cands = append(cands, candidate{traj: pr.Traj, offsets: []int{pr.Offset}})
	}
	return cands
}
