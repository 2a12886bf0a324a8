package rest

import "github.com/banshee-data/trajectory.report/internal/geo"

// Ref identifies a contiguous subsequence of a reference trajectory: points
// Start through End inclusive of the trajectory at Traj in the reference
// set. The encoded output stores only this triple; the points themselves
// live in the reference set, so an encoded trajectory must not outlive the
// set it was encoded against unless re-materialized with Decode.
type Ref struct {
	Traj  int
	Start int
	End   int
}

// Len returns the number of points the subsequence covers.
func (r Ref) Len() int { return r.End - r.Start + 1 }

// RawRun is a literal run of at least two points copied from the input
// trajectory. Runs appear where no reference subsequence matched within the
// error bound.
type RawRun struct {
	Points []geo.Point
}

// Segment is one element of an encoded trajectory: either a Ref or a
// RawRun. Adjacent segments share their boundary point.
type Segment interface {
	isSegment()
}

func (Ref) isSegment()    {}
func (RawRun) isSegment() {}

// Encoded is the compressed form of one trajectory along with its shape.
type Encoded struct {
	Segments []Segment
	Shape    Shape
}

// Decode reconstructs the point sequence from an encoded trajectory against
// the reference set it was encoded with. Adjacent segments share a boundary
// point; the duplicate is dropped, so the result has exactly the original
// length. The returned slice owns its points and is safe to keep after the
// reference set is gone.
func (e *Encoded) Decode(refs *ReferenceSet) []geo.Point {
	var out []geo.Point
	for i, seg := range e.Segments {
		var pts []geo.Point
		switch s := seg.(type) {
		case Ref:
			pts = refs.Trajectory(s.Traj)[s.Start : s.End+1]
		case RawRun:
			pts = s.Points
		}
		if i > 0 {
			pts = pts[1:]
		}
		out = append(out, pts...)
	}
	return out
}
