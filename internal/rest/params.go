package rest

import "fmt"

// Bytes-per-unit constants for the compressed-size model. A point is two
// 4-byte fixed-point ints; a reference is an 8-byte subsequence identifier.
// Compression ratios reported by the encoder depend on these values.
const (
	PointBytes = 8
	RefBytes   = 8
)

// Params configures the encoder and the reference set builder.
type Params struct {
	// MaxDTWDistMeters is the error bound ε: a reference subsequence may
	// replace a query subsequence only if their MaxDTW distance is below
	// this many meters. The conversion to the kilometer scale used by the
	// distance function happens once, at the encoder boundary.
	MaxDTWDistMeters int

	// DTWBand is the Sakoe-Chiba half-width for every MaxDTW evaluation.
	// 0 means unrestricted.
	DTWBand int

	// KBest bounds the live-match set during greedy expansion: after each
	// expansion step only the KBest successors with smallest MaxDTW are
	// kept, ties broken by insertion order. 0 keeps all successors. This is
	// a runtime/quality tradeoff, not a correctness knob.
	KBest int

	// SpatialFilter enables the R-tree candidate filter. When disabled the
	// encoder considers every reference trajectory in full.
	SpatialFilter bool

	// SpatialRadiusMeters is the half-width of the envelope queried around
	// the query head when SpatialFilter is on.
	SpatialRadiusMeters int

	// CompressionThreshold is the builder admission bound: a candidate
	// joins the reference set iff its compression ratio against the
	// current set is below this value.
	CompressionThreshold float64

	// IncludeEntireTrajectory controls what the builder admits when a
	// candidate fails to compress: the whole trajectory (true, canonical),
	// or only the raw runs of its encoding as separate reference
	// trajectories (false).
	IncludeEntireTrajectory bool
}

// DefaultParams returns parameters tuned for dense urban GPS corpora.
func DefaultParams() Params {
	return Params{
		MaxDTWDistMeters:        200,
		DTWBand:                 0,
		KBest:                   0,
		SpatialFilter:           true,
		SpatialRadiusMeters:     200,
		CompressionThreshold:    5.0,
		IncludeEntireTrajectory: true,
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if p.MaxDTWDistMeters < 0 {
		return fmt.Errorf("MaxDTWDistMeters must be non-negative, got %d", p.MaxDTWDistMeters)
	}
	if p.DTWBand < 0 {
		return fmt.Errorf("DTWBand must be non-negative, got %d", p.DTWBand)
	}
	if p.KBest < 0 {
		return fmt.Errorf("KBest must be non-negative, got %d", p.KBest)
	}
	if p.SpatialRadiusMeters < 0 {
		return fmt.Errorf("SpatialRadiusMeters must be non-negative, got %d", p.SpatialRadiusMeters)
	}
	if p.CompressionThreshold <= 0 {
		return fmt.Errorf("CompressionThreshold must be positive, got %f", p.CompressionThreshold)
	}
	return nil
}

// epsilonKm converts the meter-scale error bound to the kilometer scale of
// the distance function.
func (p Params) epsilonKm() float64 {
	return float64(p.MaxDTWDistMeters) / 1000.0
}
