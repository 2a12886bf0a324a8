// Command sweep runs a grid of compression experiments over one corpus and
// persists every run, printing a ranking by average compression ratio.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/trajectory.report/internal/corpus"
	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/experiment"
	"github.com/banshee-data/trajectory.report/internal/rest"
	"github.com/banshee-data/trajectory.report/internal/sweep"
)

var (
	corpusPath = flag.String("corpus", "porto.csv", "CSV corpus with a polyline column")
	n          = flag.Int("n", 1000, "Number of trajectories to process (0 = all)")
	rs         = flag.Int("rs", 100, "Builder sample size in thousandths of n")

	epsList       = flag.String("max-dtw-dists", "100,200,500", "Comma-separated ε values in meters")
	bandList      = flag.String("dtw-bands", "0", "Comma-separated band half-widths")
	kList         = flag.String("ks", "0", "Comma-separated K-best values")
	thresholdList = flag.String("compression-ratios", "5", "Comma-separated admission thresholds")

	spatialFilter = flag.Bool("spatial-filter", true, "Use the R-tree candidate filter")
	errorPoint    = flag.Int("error-point", 200, "Spatial filter radius in meters")
	dbPath        = flag.String("db", "trajectory_runs.db", "Runs database path (empty = do not persist)")
)

func main() {
	flag.Parse()

	grid, err := parseGrid()
	if err != nil {
		log.Fatalf("Invalid grid: %v", err)
	}

	params := rest.DefaultParams()
	params.SpatialFilter = *spatialFilter
	params.SpatialRadiusMeters = *errorPoint
	base := experiment.Config{N: *n, RS: *rs, Params: params}

	ts, err := corpus.Load(*corpusPath, *n)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	log.Printf("Loaded %d trajectories from %s", len(ts), *corpusPath)

	started := time.Now()
	outcomes, err := sweep.Run(ts, base, grid)
	if err != nil {
		log.Fatalf("Sweep failed after %d runs: %v", len(outcomes), err)
	}

	if *dbPath != "" {
		if err := persistOutcomes(*dbPath, outcomes, started); err != nil {
			log.Fatalf("Failed to persist sweep: %v", err)
		}
	}

	printRanking(outcomes)
}

func parseGrid() (sweep.Grid, error) {
	eps, err := parseInts(*epsList)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("max-dtw-dists: %w", err)
	}
	bands, err := parseInts(*bandList)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("dtw-bands: %w", err)
	}
	ks, err := parseInts(*kList)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("ks: %w", err)
	}
	thresholds, err := parseFloats(*thresholdList)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("compression-ratios: %w", err)
	}
	return sweep.Grid{EpsilonsMeters: eps, Bands: bands, Ks: ks, Thresholds: thresholds}, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func persistOutcomes(path string, outcomes []sweep.Outcome, started time.Time) error {
	runsDB, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer runsDB.Close()

	for _, o := range outcomes {
		paramsJSON, err := json.Marshal(o.Params)
		if err != nil {
			return err
		}
		m := o.Metrics
		if err := runsDB.InsertRun(m.RunID, started, *corpusPath, string(paramsJSON)); err != nil {
			return err
		}
		results := make([]db.TrajectoryResult, len(m.Results))
		for i, r := range m.Results {
			results[i] = db.TrajectoryResult{Seq: r.Seq, Shape: r.Shape, CR: r.CR}
		}
		if err := runsDB.InsertTrajectoryResults(m.RunID, results); err != nil {
			return err
		}
		if err := runsDB.FinishRun(db.Run{
			RunID:        m.RunID,
			Trajectories: len(m.Results),
			SetSize:      m.SetSize,
			AvgCR:        m.AvgCR,
			BuildTime:    m.BuildTime,
			EncodeTime:   m.EncodeTime,
		}, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

func printRanking(outcomes []sweep.Outcome) {
	ranked := append([]sweep.Outcome(nil), outcomes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Metrics.AvgCR > ranked[j].Metrics.AvgCR
	})
	for i, o := range ranked {
		fmt.Printf("%2d. avg_cr=%.3f set_size=%-5d eps=%dm band=%d k=%d threshold=%.1f run=%s\n",
			i+1, o.Metrics.AvgCR, o.Metrics.SetSize,
			o.Params.MaxDTWDistMeters, o.Params.DTWBand, o.Params.KBest,
			o.Params.CompressionThreshold, o.Metrics.RunID)
	}
	if best, ok := sweep.Best(outcomes); ok {
		fmt.Printf("best: run=%s avg_cr=%.3f\n", best.Metrics.RunID, best.Metrics.AvgCR)
	}
}
