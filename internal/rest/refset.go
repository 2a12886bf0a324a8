package rest

import (
	"fmt"

	"github.com/banshee-data/trajectory.report/internal/geo"
)

// ReferenceSet is the ordered pool of trajectories the encoder compresses
// against. It only ever grows; trajectory indices are stable from the
// moment of insertion. Trajectories are immutable once appended.
type ReferenceSet struct {
	trajectories [][]geo.Point
}

// NewReferenceSet returns an empty reference set.
func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{}
}

// Append adds a trajectory and returns its stable index.
func (rs *ReferenceSet) Append(t []geo.Point) int {
	rs.trajectories = append(rs.trajectories, t)
	return len(rs.trajectories) - 1
}

// Trajectory returns the trajectory at index i.
func (rs *ReferenceSet) Trajectory(i int) []geo.Point {
	return rs.trajectories[i]
}

// Len returns the number of admitted trajectories.
func (rs *ReferenceSet) Len() int {
	return len(rs.trajectories)
}

// Builder streams candidate trajectories into a reference set. A candidate
// is admitted only when it compresses poorly against the references already
// admitted; a trajectory that fails to compress is exactly one that brings
// new spatial coverage. Admission order matters: later candidates see
// strictly more references than earlier ones.
type Builder struct {
	params Params
	refs   *ReferenceSet
	index  *PointIndex
}

// NewBuilder creates a builder with an empty reference set. The spatial
// index is created only when params enable the spatial filter.
func NewBuilder(params Params) (*Builder, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	b := &Builder{params: params, refs: NewReferenceSet()}
	if params.SpatialFilter {
		b.index = NewPointIndex()
	}
	return b, nil
}

// Consume encodes one candidate against the current reference set and
// admits it when the compression ratio falls below the admission threshold.
// It reports whether the candidate (or part of it) was admitted.
func (b *Builder) Consume(t []geo.Point) (bool, error) {
	enc, err := b.Encoder().Encode(t)
	if err != nil {
		return false, err
	}
	if enc.Shape.CompressionRatio() >= b.params.CompressionThreshold {
		return false, nil
	}

	if b.params.IncludeEntireTrajectory {
		b.admit(t)
		return true, nil
	}

	// Split admission: keep only the stretches that did not compress,
	// each raw run becoming its own reference trajectory. The parts that
	// were covered by existing references add no coverage and are dropped.
	admitted := false
	for _, seg := range enc.Segments {
		if run, isRaw := seg.(RawRun); isRaw && len(run.Points) >= 2 {
			b.admit(run.Points)
			admitted = true
		}
	}
	return admitted, nil
}

// BuildFrom consumes every trajectory of ts in order and returns the number
// admitted.
func (b *Builder) BuildFrom(ts [][]geo.Point) (int, error) {
	admitted := 0
	for i, t := range ts {
		ok, err := b.Consume(t)
		if err != nil {
			return admitted, fmt.Errorf("candidate %d: %w", i, err)
		}
		if ok {
			admitted++
		}
	}
	return admitted, nil
}

func (b *Builder) admit(t []geo.Point) {
	idx := b.refs.Append(t)
	if b.index == nil {
		return
	}
	for offset, p := range t {
		b.index.Insert(p, idx, offset)
	}
}

// Encoder returns an encoder over the builder's current reference set and
// index. The returned encoder observes a consistent snapshot as long as no
// Consume call runs while an encode is in flight; the builder itself never
// interleaves the two.
func (b *Builder) Encoder() *Encoder {
	return &Encoder{Refs: b.refs, Index: b.index, Params: b.params}
}

// ReferenceSet exposes the set built so far. Freeze the builder (stop
// calling Consume) before handing the set to the encode phase.
func (b *Builder) ReferenceSet() *ReferenceSet {
	return b.refs
}

// Index returns the spatial index, or nil when the spatial filter is off.
func (b *Builder) Index() *PointIndex {
	return b.index
}
