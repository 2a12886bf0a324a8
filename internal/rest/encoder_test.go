package rest

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// testParams returns encoder parameters with the spatial filter off and a
// 10 m error bound, matching the concrete scenarios.
func testParams() Params {
	p := DefaultParams()
	p.MaxDTWDistMeters = 10
	p.SpatialFilter = false
	return p
}

func encoderOver(p Params, refs *ReferenceSet, index *PointIndex) *Encoder {
	return &Encoder{Refs: refs, Index: index, Params: p}
}

func TestEncodeRejectsShortTrajectory(t *testing.T) {
	e := encoderOver(testParams(), NewReferenceSet(), nil)
	for _, n := range []int{0, 1} {
		if _, err := e.Encode(equatorLine(n, 0.001)); err == nil {
			t.Errorf("Encode of %d-point trajectory: want error", n)
		}
	}
}

func TestEncodeIdenticalQuerySingleRef(t *testing.T) {
	// Scenario: the query is itself the sole reference. One Ref segment
	// spans the full reference; shape (3, 1, 0); CR = 24/8 = 3.
	line := equatorLine(3, 0.001)
	e := encoderOver(testParams(), refSetOf(line), nil)

	enc, err := e.Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(enc.Segments))
	}
	if ref, ok := enc.Segments[0].(Ref); !ok || ref != (Ref{Traj: 0, Start: 0, End: 2}) {
		t.Errorf("segment = %+v, want Ref covering the full reference", enc.Segments[0])
	}
	if enc.Shape != (Shape{M: 3, R: 1, D: 0}) {
		t.Errorf("shape = %+v, want (3, 1, 0)", enc.Shape)
	}
	if cr := enc.Shape.CompressionRatio(); cr != 3.0 {
		t.Errorf("CR = %v, want 3.0", cr)
	}
}

func TestEncodeEmptyReferenceSetAllRaw(t *testing.T) {
	// Scenario: no references. All raw; shape (3, 0, 3); CR = 1.
	line := equatorLine(3, 0.001)
	e := encoderOver(testParams(), NewReferenceSet(), nil)

	enc, err := e.Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Segments) != 1 {
		t.Fatalf("segments = %d, want 1 merged raw run", len(enc.Segments))
	}
	run, ok := enc.Segments[0].(RawRun)
	if !ok {
		t.Fatalf("segment = %+v, want RawRun", enc.Segments[0])
	}
	if diff := cmp.Diff(line, run.Points); diff != "" {
		t.Errorf("raw run mismatch (-want +got):\n%s", diff)
	}
	if enc.Shape != (Shape{M: 3, R: 0, D: 3}) {
		t.Errorf("shape = %+v, want (3, 0, 3)", enc.Shape)
	}
	if cr := enc.Shape.CompressionRatio(); cr != 1.0 {
		t.Errorf("CR = %v, want 1.0", cr)
	}
}

func TestEncodeDeviationSplitsSegments(t *testing.T) {
	// Scenario: reference [A,B,C,D], query [A,B,X,C,D] with X far from
	// every reference point. Expect Ref(A..B), RawRun around X, Ref(C..D):
	// two Refs, one raw run, d = 2 adjusted to 3.
	ref := equatorLine(4, 0.001)
	x := pt(2, 2)
	query := []geo.Point{ref[0], ref[1], x, ref[2], ref[3]}
	e := encoderOver(testParams(), refSetOf(ref), nil)

	enc, err := e.Encode(query)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(enc.Segments))
	}
	if ref0, ok := enc.Segments[0].(Ref); !ok || ref0 != (Ref{Traj: 0, Start: 0, End: 1}) {
		t.Errorf("segment 0 = %+v, want Ref 0..1", enc.Segments[0])
	}
	run, ok := enc.Segments[1].(RawRun)
	if !ok {
		t.Fatalf("segment 1 = %+v, want RawRun", enc.Segments[1])
	}
	wantRun := []geo.Point{ref[1], x, ref[2]}
	if diff := cmp.Diff(wantRun, run.Points); diff != "" {
		t.Errorf("raw run mismatch (-want +got):\n%s", diff)
	}
	if ref2, ok := enc.Segments[2].(Ref); !ok || ref2 != (Ref{Traj: 0, Start: 2, End: 3}) {
		t.Errorf("segment 2 = %+v, want Ref 2..3", enc.Segments[2])
	}
	if enc.Shape != (Shape{M: 5, R: 2, D: 3}) {
		t.Errorf("shape = %+v, want (5, 2, 3)", enc.Shape)
	}
}

func TestEncodeZeroEpsilonAllRaw(t *testing.T) {
	// Round trip: ε = 0 with no spatial filter yields all-raw output with
	// r = 0 and d = |T|.
	p := testParams()
	p.MaxDTWDistMeters = 0
	line := equatorLine(7, 0.001)
	e := encoderOver(p, refSetOf(line), nil)

	enc, err := e.Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Shape != (Shape{M: 7, R: 0, D: 7}) {
		t.Errorf("shape = %+v, want (7, 0, 7)", enc.Shape)
	}
}

func TestEncodeReferenceMemberSingleRefAnyEpsilon(t *testing.T) {
	// Round trip: a trajectory already in the reference set encodes as one
	// Ref covering everything, for any ε > 0.
	line := equatorLine(12, 0.001)
	for _, eps := range []int{1, 10, 500} {
		p := testParams()
		p.MaxDTWDistMeters = eps
		e := encoderOver(p, refSetOf(line), nil)

		enc, err := e.Encode(line)
		if err != nil {
			t.Fatal(err)
		}
		if len(enc.Segments) != 1 || enc.Shape != (Shape{M: 12, R: 1, D: 0}) {
			t.Errorf("eps=%dm: segments=%d shape=%+v, want single full Ref", eps, len(enc.Segments), enc.Shape)
		}
	}
}

func TestEncodeTwoPointTrajectory(t *testing.T) {
	// |T| = 2 is a single segment either way.
	pair := equatorLine(2, 0.001)

	e := encoderOver(testParams(), refSetOf(pair), nil)
	enc, err := e.Encode(pair)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Segments) != 1 || enc.Shape != (Shape{M: 2, R: 1, D: 0}) {
		t.Errorf("matched pair: segments=%d shape=%+v, want one Ref", len(enc.Segments), enc.Shape)
	}

	e = encoderOver(testParams(), NewReferenceSet(), nil)
	enc, err = e.Encode(pair)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Segments) != 1 || enc.Shape != (Shape{M: 2, R: 0, D: 2}) {
		t.Errorf("unmatched pair: segments=%d shape=%+v, want one RawRun", len(enc.Segments), enc.Shape)
	}
}

func TestEncodeSpatialRadiusZeroAllRaw(t *testing.T) {
	// Scenario: spatial filter with radius 0 empties every candidate pool,
	// so the encoder produces raw output regardless of the reference set.
	line := equatorLine(5, 0.001)
	p := testParams()
	p.SpatialFilter = true
	p.SpatialRadiusMeters = 0

	index := NewPointIndex()
	refs := refSetOf(line)
	for offset, point := range line {
		index.Insert(point, 0, offset)
	}
	e := encoderOver(p, refs, index)

	enc, err := e.Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Shape != (Shape{M: 5, R: 0, D: 5}) {
		t.Errorf("shape = %+v, want all raw (5, 0, 5)", enc.Shape)
	}
}

func TestEncodeSpatialFilterMatchesFullScan(t *testing.T) {
	// With a generous radius the filtered path reproduces the unfiltered
	// encoding of a reference member.
	line := equatorLine(6, 0.001)
	p := testParams()
	p.SpatialFilter = true
	p.SpatialRadiusMeters = 300

	index := NewPointIndex()
	refs := refSetOf(line)
	for offset, point := range line {
		index.Insert(point, 0, offset)
	}
	e := encoderOver(p, refs, index)

	enc, err := e.Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.Segments) != 1 || enc.Shape != (Shape{M: 6, R: 1, D: 0}) {
		t.Errorf("segments=%d shape=%+v, want single full Ref", len(enc.Segments), enc.Shape)
	}
}

// walkSegments replays an encoding against its input, checking cursor
// monotonicity, boundary sharing, raw-point literality, and the per-segment
// error bound. It returns the final cursor.
func walkSegments(t *testing.T, enc *Encoded, input []geo.Point, refs *ReferenceSet, epsKm float64, band int) int {
	t.Helper()
	i := 0
	for si, seg := range enc.Segments {
		switch s := seg.(type) {
		case Ref:
			n := s.Len()
			sub := refs.Trajectory(s.Traj)[s.Start : s.End+1]
			if d := MaxDTW(input[i:i+n], sub, band); !(d < epsKm) {
				t.Errorf("segment %d: MaxDTW = %v, want < %v", si, d, epsKm)
			}
			i += n - 1
		case RawRun:
			for j, p := range s.Points {
				if input[i+j] != p {
					t.Errorf("segment %d: raw point %d = %+v, want literal %+v", si, j, p, input[i+j])
				}
			}
			i += len(s.Points) - 1
		}
		if i >= len(input) {
			t.Fatalf("cursor overran input at segment %d", si)
		}
	}
	return i
}

func TestEncodeInvariantsOnMixedQuery(t *testing.T) {
	ref := equatorLine(10, 0.001)
	query := []geo.Point{
		ref[0], ref[1], ref[2],
		pt(1, 1), pt(1, 1.001),
		ref[5], ref[6], ref[7], ref[8],
	}
	p := testParams()
	refs := refSetOf(ref)
	e := encoderOver(p, refs, nil)

	enc, err := e.Encode(query)
	if err != nil {
		t.Fatal(err)
	}

	if end := walkSegments(t, enc, query, refs, p.epsilonKm(), p.DTWBand); end != len(query)-1 {
		t.Errorf("segments cover up to index %d, want %d", end, len(query)-1)
	}
	if got := enc.Decode(refs); len(got) != len(query) {
		t.Errorf("decoded length = %d, want %d", len(got), len(query))
	}
}

func TestDecodeRoundTripsRawOnlyEncoding(t *testing.T) {
	line := equatorLine(6, 0.001)
	e := encoderOver(testParams(), NewReferenceSet(), nil)

	enc, err := e.Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(line, enc.Decode(NewReferenceSet())); diff != "" {
		t.Errorf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestCompressionRatioAllRef(t *testing.T) {
	// An all-Ref encoding pays only for its references: 10 points against
	// two 8-byte references is 80/16.
	s := Shape{M: 10, R: 2, D: 0}
	if cr := s.CompressionRatio(); cr != 5.0 {
		t.Errorf("CR = %v, want 5.0", cr)
	}
}
