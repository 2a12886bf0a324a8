package rest

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// metersPerDegree converts a meter radius to degrees of latitude (and to
// degrees of longitude after dividing by cos(lat)).
const metersPerDegree = 111319.9

// rectEpsilon pads zero-area rectangles: the R-tree requires non-zero
// dimensions, and stored entries are single points.
const rectEpsilon = 1e-9

// PointRef locates one stored reference point: trajectory index in the
// reference set plus the point's offset within that trajectory.
type PointRef struct {
	Traj   int
	Offset int
}

// PointIndex is a 2-D bounding-box index over the points of every admitted
// reference trajectory, in unscaled degree space. It grows in lockstep with
// the reference set and supports the envelope query the encoder uses to
// prune match candidates.
type PointIndex struct {
	tree *rtreego.Rtree
}

// indexedPoint wraps one reference point for R-tree storage.
type indexedPoint struct {
	pt  geo.Point
	ref PointRef
}

// Bounds implements rtreego.Spatial.
func (ip *indexedPoint) Bounds() rtreego.Rect {
	origin := rtreego.Point{ip.pt.LngDegrees(), ip.pt.LatDegrees()}
	rect, _ := rtreego.NewRect(origin, []float64{rectEpsilon, rectEpsilon})
	return rect
}

// NewPointIndex creates an empty index.
func NewPointIndex() *PointIndex {
	return &PointIndex{tree: rtreego.NewTree(2, 25, 50)}
}

// Insert adds one reference point with its (trajectory, offset) stamp.
func (ix *PointIndex) Insert(p geo.Point, traj, offset int) {
	ix.tree.Insert(&indexedPoint{pt: p, ref: PointRef{Traj: traj, Offset: offset}})
}

// Query returns every stored entry whose point lies inside the axis-aligned
// envelope centered on center, with half-widths radiusMeters/111319.9 in
// latitude and radiusMeters/(111319.9*cos(lat)) in longitude. The envelope
// is a rectangle, not a disc; the over-approximation is deliberate and the
// MaxDTW check downstream compensates. Results are sorted by (trajectory,
// offset) so candidate iteration is deterministic.
//
// The longitude half-width uses cos(center.lat) without wrapping, so
// behavior within a radius of the poles is unspecified. A non-positive
// radius returns no entries.
func (ix *PointIndex) Query(center geo.Point, radiusMeters float64) []PointRef {
	if radiusMeters <= 0 {
		return nil
	}
	halfLat := radiusMeters / metersPerDegree
	halfLng := radiusMeters / (metersPerDegree * math.Cos(center.LatDegrees()*math.Pi/180.0))

	lng := center.LngDegrees()
	lat := center.LatDegrees()
	origin := rtreego.Point{lng - halfLng, lat - halfLat}
	rect, err := rtreego.NewRect(origin, []float64{2 * halfLng, 2 * halfLat})
	if err != nil {
		return nil
	}

	var out []PointRef
	for _, spatial := range ix.tree.SearchIntersect(rect) {
		ip := spatial.(*indexedPoint)
		// SearchIntersect matches the padded storage rects; keep only
		// entries whose point is actually inside the envelope.
		pLat := ip.pt.LatDegrees()
		pLng := ip.pt.LngDegrees()
		if pLat < lat-halfLat || pLat > lat+halfLat || pLng < lng-halfLng || pLng > lng+halfLng {
			continue
		}
		out = append(out, ip.ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Traj != out[j].Traj {
			return out[i].Traj < out[j].Traj
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}
