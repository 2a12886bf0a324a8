// Package sweep runs grids of compression experiments over one corpus and
// collects their metrics, one run per parameter combination.
package sweep

import (
	"fmt"
	"log"

	"github.com/banshee-data/trajectory.report/internal/experiment"
	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/rest"
)

// Grid enumerates the parameter dimensions to sweep. Empty dimensions fall
// back to the base config's value.
type Grid struct {
	EpsilonsMeters []int     // MaxDTW error bound ε
	Bands          []int     // Sakoe-Chiba half-widths
	Ks             []int     // K-best pruning values
	Thresholds     []float64 // builder admission thresholds
}

// Combos expands the grid against a base parameter set, varying each
// dimension in declaration order.
func (g Grid) Combos(base rest.Params) []rest.Params {
	eps := g.EpsilonsMeters
	if len(eps) == 0 {
		eps = []int{base.MaxDTWDistMeters}
	}
	bands := g.Bands
	if len(bands) == 0 {
		bands = []int{base.DTWBand}
	}
	ks := g.Ks
	if len(ks) == 0 {
		ks = []int{base.KBest}
	}
	thresholds := g.Thresholds
	if len(thresholds) == 0 {
		thresholds = []float64{base.CompressionThreshold}
	}

	var combos []rest.Params
	for _, e := range eps {
		for _, b := range bands {
			for _, k := range ks {
				for _, t := range thresholds {
					p := base
					p.MaxDTWDistMeters = e
					p.DTWBand = b
					p.KBest = k
					p.CompressionThreshold = t
					combos = append(combos, p)
				}
			}
		}
	}
	return combos
}

// Outcome pairs one combination with its run metrics.
type Outcome struct {
	Params  rest.Params
	Metrics *experiment.Metrics
}

// Run executes every combination sequentially in grid order. The engine is
// single-threaded; sweeps trade wall-clock for a quiet machine and exactly
// reproducible run ordering.
func Run(ts [][]geo.Point, base experiment.Config, grid Grid) ([]Outcome, error) {
	combos := grid.Combos(base.Params)
	if len(combos) == 0 {
		return nil, fmt.Errorf("empty sweep grid")
	}

	outcomes := make([]Outcome, 0, len(combos))
	for i, params := range combos {
		cfg := base
		cfg.Params = params
		log.Printf("sweep %d/%d: eps=%dm band=%d k=%d threshold=%.1f",
			i+1, len(combos), params.MaxDTWDistMeters, params.DTWBand, params.KBest, params.CompressionThreshold)

		m, err := experiment.Run(ts, cfg)
		if err != nil {
			return outcomes, fmt.Errorf("combination %d: %w", i, err)
		}
		outcomes = append(outcomes, Outcome{Params: params, Metrics: m})
	}
	return outcomes, nil
}

// Best returns the outcome with the highest average compression ratio.
func Best(outcomes []Outcome) (Outcome, bool) {
	if len(outcomes) == 0 {
		return Outcome{}, false
	}
	best := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.Metrics.AvgCR > best.Metrics.AvgCR {
			best = o
		}
	}
	return best, true
}
