package rest

import (
	"testing"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// builderParams admits candidates whose CR lands below 3.
func builderParams() Params {
	p := DefaultParams()
	p.MaxDTWDistMeters = 10
	p.CompressionThreshold = 3.0
	p.SpatialFilter = false
	return p
}

// shiftLine returns line translated north by the given microdegrees.
func shiftLine(line []geo.Point, microdeg int32) []geo.Point {
	out := make([]geo.Point, len(line))
	for i, p := range line {
		out[i] = geo.Point{Lat: p.Lat + microdeg, Lng: p.Lng}
	}
	return out
}

func TestBuilderAdmitsFirstTrajectory(t *testing.T) {
	b, err := NewBuilder(builderParams())
	if err != nil {
		t.Fatal(err)
	}
	// Against an empty set everything is raw, CR = 1 < threshold.
	ok, err := b.Consume(equatorLine(5, 0.001))
	if err != nil {
		t.Fatal(err)
	}
	if !ok || b.ReferenceSet().Len() != 1 {
		t.Errorf("first candidate not admitted: ok=%v len=%d", ok, b.ReferenceSet().Len())
	}
}

func TestBuilderRejectsWellCompressedCandidate(t *testing.T) {
	b, err := NewBuilder(builderParams())
	if err != nil {
		t.Fatal(err)
	}
	line := equatorLine(8, 0.001)
	if _, err := b.Consume(line); err != nil {
		t.Fatal(err)
	}

	// A near-copy compresses to a single Ref (CR = 64/8 = 8): rejected.
	ok, err := b.Consume(shiftLine(line, 1))
	if err != nil {
		t.Fatal(err)
	}
	if ok || b.ReferenceSet().Len() != 1 {
		t.Errorf("near-copy admitted: ok=%v len=%d", ok, b.ReferenceSet().Len())
	}
}

func TestBuilderSizeMonotone(t *testing.T) {
	b, err := NewBuilder(builderParams())
	if err != nil {
		t.Fatal(err)
	}
	candidates := [][]geo.Point{
		equatorLine(5, 0.001),
		shiftLine(equatorLine(5, 0.001), 1),
		shiftLine(equatorLine(6, 0.001), 500000), // far north, new coverage
		shiftLine(equatorLine(5, 0.001), 2),
	}
	prev := 0
	for i, c := range candidates {
		if _, err := b.Consume(c); err != nil {
			t.Fatal(err)
		}
		if n := b.ReferenceSet().Len(); n < prev {
			t.Fatalf("set shrank at candidate %d: %d -> %d", i, prev, n)
		} else {
			prev = n
		}
	}
	if prev != 2 {
		t.Errorf("final set size = %d, want 2 (two coverage areas)", prev)
	}
}

func TestBuilderOrderSensitivity(t *testing.T) {
	// Two near-identical lines: whichever comes first is admitted and
	// shadows the other. The resulting sets differ between permutations.
	a := equatorLine(6, 0.001)
	bLine := shiftLine(a, 1)

	buildFrom := func(ts [][]geo.Point) *ReferenceSet {
		b, err := NewBuilder(builderParams())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.BuildFrom(ts); err != nil {
			t.Fatal(err)
		}
		return b.ReferenceSet()
	}

	s1 := buildFrom([][]geo.Point{a, bLine})
	s2 := buildFrom([][]geo.Point{bLine, a})

	if s1.Len() != 1 || s2.Len() != 1 {
		t.Fatalf("set sizes = %d, %d, want 1 each", s1.Len(), s2.Len())
	}
	if s1.Trajectory(0)[0] == s2.Trajectory(0)[0] {
		t.Error("permuted corpora produced identical reference sets")
	}
}

func TestBuilderMaintainsSpatialIndex(t *testing.T) {
	p := builderParams()
	p.SpatialFilter = true
	p.SpatialRadiusMeters = 200
	b, err := NewBuilder(p)
	if err != nil {
		t.Fatal(err)
	}

	line := equatorLine(5, 0.001)
	if _, err := b.Consume(line); err != nil {
		t.Fatal(err)
	}

	got := b.Index().Query(line[0], 50)
	if len(got) != 1 || got[0] != (PointRef{Traj: 0, Offset: 0}) {
		t.Errorf("index query = %+v, want the admitted head point", got)
	}

	// The admitted trajectory now encodes through the filtered path as a
	// single Ref.
	enc, err := b.Encoder().Encode(line)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Shape != (Shape{M: 5, R: 1, D: 0}) {
		t.Errorf("shape = %+v, want (5, 1, 0)", enc.Shape)
	}
}

func TestBuilderSplitAdmissionKeepsOnlyRawRuns(t *testing.T) {
	p := builderParams()
	p.IncludeEntireTrajectory = false
	b, err := NewBuilder(p)
	if err != nil {
		t.Fatal(err)
	}

	base := equatorLine(4, 0.001)
	if _, err := b.Consume(base); err != nil {
		t.Fatal(err)
	}
	if b.ReferenceSet().Len() != 1 {
		t.Fatalf("seed admission failed")
	}

	// A candidate that matches base at both ends with a deviation in the
	// middle: only the raw stretch around the deviation is admitted.
	x := pt(1, 1)
	candidate := []geo.Point{base[0], base[1], x, base[2], base[3]}
	ok, err := b.Consume(candidate)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("split candidate not admitted")
	}
	if b.ReferenceSet().Len() != 2 {
		t.Fatalf("set size = %d, want 2", b.ReferenceSet().Len())
	}
	admitted := b.ReferenceSet().Trajectory(1)
	want := []geo.Point{base[1], x, base[2]}
	if len(admitted) != len(want) {
		t.Fatalf("admitted run length = %d, want %d", len(admitted), len(want))
	}
	for i := range want {
		if admitted[i] != want[i] {
			t.Errorf("admitted[%d] = %+v, want %+v", i, admitted[i], want[i])
		}
	}
}

func TestBuilderRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.CompressionThreshold = 0
	if _, err := NewBuilder(p); err == nil {
		t.Error("want error for non-positive threshold")
	}
}
