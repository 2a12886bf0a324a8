// Package experiment drives the two-phase compression workload: build a
// reference set from a sample of the corpus, freeze it, then encode the
// whole corpus against it and aggregate the results.
package experiment

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trajectory.report/internal/geo"
	"github.com/banshee-data/trajectory.report/internal/rest"
)

// Config selects how much of the corpus feeds each phase.
type Config struct {
	// N is the number of trajectories to encode. 0 means the whole corpus.
	N int

	// RS is the builder sample size in thousandths of N: rs=100 builds the
	// reference set from the first 10% of the processed trajectories.
	RS int

	// Params are the engine parameters shared by both phases.
	Params rest.Params
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.N < 0 {
		return fmt.Errorf("N must be non-negative, got %d", c.N)
	}
	if c.RS < 0 || c.RS > 1000 {
		return fmt.Errorf("RS must be in [0, 1000] thousandths, got %d", c.RS)
	}
	return c.Params.Validate()
}

// Result is one encoded trajectory's outcome.
type Result struct {
	Seq   int
	Shape rest.Shape
	CR    float64
}

// Metrics summarizes one run.
type Metrics struct {
	RunID      string
	AvgCR      float64 // mean per-trajectory compression ratio
	SetSize    int
	Runtime    time.Duration
	BuildTime  time.Duration
	EncodeTime time.Duration
	Results    []Result
	SetGrowth  []int // reference-set size after each build candidate

	// Refs is the frozen reference set the run encoded against, kept for
	// plotting and inspection.
	Refs *rest.ReferenceSet
}

// Run executes the workload over ts. The build phase consumes the first
// RS/1000 * N trajectories in corpus order; the reference set is then
// frozen and the encode phase covers all N. Both phases are sequential:
// the engine is single-threaded by design.
func Run(ts [][]geo.Point, cfg Config) (*Metrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment config: %w", err)
	}

	n := cfg.N
	if n <= 0 || n > len(ts) {
		n = len(ts)
	}
	ts = ts[:n]
	sample := int(float64(cfg.RS) / 1000.0 * float64(n))
	if sample > n {
		sample = n
	}

	m := &Metrics{RunID: uuid.New().String()}
	begin := time.Now()

	builder, err := rest.NewBuilder(cfg.Params)
	if err != nil {
		return nil, err
	}
	for i, t := range ts[:sample] {
		if _, err := builder.Consume(t); err != nil {
			return nil, fmt.Errorf("build candidate %d: %w", i, err)
		}
		m.SetGrowth = append(m.SetGrowth, builder.ReferenceSet().Len())
	}
	m.BuildTime = time.Since(begin)
	m.SetSize = builder.ReferenceSet().Len()
	m.Refs = builder.ReferenceSet()
	log.Printf("run %s: reference set size %d after %d candidates in %v",
		m.RunID, m.SetSize, sample, m.BuildTime.Round(time.Millisecond))

	// The set is frozen from here on: the encoder observes a consistent
	// snapshot for the whole encode phase.
	enc := builder.Encoder()
	beginEncode := time.Now()

	var crSum float64
	for i, t := range ts {
		encoded, err := enc.Encode(t)
		if err != nil {
			return nil, fmt.Errorf("encode trajectory %d: %w", i, err)
		}
		cr := encoded.Shape.CompressionRatio()
		m.Results = append(m.Results, Result{Seq: i, Shape: encoded.Shape, CR: cr})
		crSum += cr
	}
	m.EncodeTime = time.Since(beginEncode)
	m.Runtime = time.Since(begin)
	if len(m.Results) > 0 {
		m.AvgCR = crSum / float64(len(m.Results))
	}

	log.Printf("run %s: encoded %d trajectories in %v: avg_cr=%.3f set_size=%d",
		m.RunID, len(m.Results), m.EncodeTime.Round(time.Millisecond), m.AvgCR, m.SetSize)
	return m, nil
}
