// Command trajectory-report compresses a trajectory corpus against a
// reference set built from a sample of it, persists the run, and reports
// the resulting compression statistics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/banshee-data/trajectory.report/internal/config"
	"github.com/banshee-data/trajectory.report/internal/corpus"
	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/experiment"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/rest"
	"github.com/banshee-data/trajectory.report/internal/version"
)

var (
	corpusPath = flag.String("corpus", "porto.csv", "CSV corpus with a polyline column")
	n          = flag.Int("n", 1000, "Number of trajectories to process (0 = all)")
	rs         = flag.Int("rs", 100, "Builder sample size in thousandths of n")

	epsMeters     = flag.Int("max-dtw-dist", 200, "MaxDTW error bound in meters")
	dtwBand       = flag.Int("dtw-band", 0, "Sakoe-Chiba band half-width (0 = unrestricted)")
	kBest         = flag.Int("k", 0, "K-best successor pruning (0 = keep all)")
	spatialFilter = flag.Bool("spatial-filter", true, "Use the R-tree candidate filter")
	errorPoint    = flag.Int("error-point", 200, "Spatial filter radius in meters")
	threshold     = flag.Float64("compression-ratio", 5.0, "Builder admission threshold")
	wholeTraj     = flag.Bool("include-entire-trajectory", true,
		"Admit failing candidates whole instead of splitting out their raw runs")

	showVersion = flag.Bool("version", false, "Print version information and exit")

	configPath = flag.String("config", "", "JSON run config; its values override the flags above")
	dbPath     = flag.String("db", "trajectory_runs.db", "Runs database path (empty = do not persist)")
	reportDir  = flag.String("report-dir", "", "Write an HTML report and reference-set plot here")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("trajectory-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := experiment.Config{
		N:  *n,
		RS: *rs,
		Params: rest.Params{
			MaxDTWDistMeters:        *epsMeters,
			DTWBand:                 *dtwBand,
			KBest:                   *kBest,
			SpatialFilter:           *spatialFilter,
			SpatialRadiusMeters:     *errorPoint,
			CompressionThreshold:    *threshold,
			IncludeEntireTrajectory: *wholeTraj,
		},
	}
	if *configPath != "" {
		rc, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		rc.Apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ts, err := corpus.Load(*corpusPath, cfg.N)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	log.Printf("Loaded %d trajectories from %s", len(ts), *corpusPath)

	started := time.Now()
	metrics, err := experiment.Run(ts, cfg)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	if *dbPath != "" {
		if err := persistRun(*dbPath, *corpusPath, cfg, metrics, started); err != nil {
			log.Fatalf("Failed to persist run: %v", err)
		}
	}
	if *reportDir != "" {
		if err := writeReports(*reportDir, metrics); err != nil {
			log.Fatalf("Failed to write reports: %v", err)
		}
	}

	fmt.Printf("run_id=%s avg_cr=%.3f set_size=%d runtime=%v\n",
		metrics.RunID, metrics.AvgCR, metrics.SetSize, metrics.Runtime.Round(time.Millisecond))
}

func persistRun(path, corpusPath string, cfg experiment.Config, m *experiment.Metrics, started time.Time) error {
	runsDB, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer runsDB.Close()

	paramsJSON, err := json.Marshal(cfg.Params)
	if err != nil {
		return err
	}
	if err := runsDB.InsertRun(m.RunID, started, corpusPath, string(paramsJSON)); err != nil {
		return err
	}

	results := make([]db.TrajectoryResult, len(m.Results))
	for i, r := range m.Results {
		results[i] = db.TrajectoryResult{Seq: r.Seq, Shape: r.Shape, CR: r.CR}
	}
	if err := runsDB.InsertTrajectoryResults(m.RunID, results); err != nil {
		return err
	}

	return runsDB.FinishRun(db.Run{
		RunID:        m.RunID,
		Trajectories: len(m.Results),
		SetSize:      m.SetSize,
		AvgCR:        m.AvgCR,
		BuildTime:    m.BuildTime,
		EncodeTime:   m.EncodeTime,
	}, time.Now())
}

func writeReports(dir string, m *experiment.Metrics) error {
	ratios := make([]float64, len(m.Results))
	for i, r := range m.Results {
		ratios[i] = r.CR
	}
	path, err := report.WriteHTMLFile(dir, report.RunData{
		RunID:     m.RunID,
		Ratios:    ratios,
		SetGrowth: m.SetGrowth,
		MeanCR:    m.AvgCR,
		SetSize:   m.SetSize,
	})
	if err != nil {
		return err
	}
	log.Printf("Wrote report %s", path)

	plotPath := filepath.Join(dir, m.RunID+"-refs.png")
	if err := report.PlotReferenceSet(plotPath, m.Refs); err != nil {
		return err
	}
	log.Printf("Wrote reference plot %s", plotPath)
	return nil
}
