// Package report renders post-run artifacts: an HTML page with compression
// statistics and a PNG overlay of the reference set's spatial coverage.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RunData carries everything the HTML report needs.
type RunData struct {
	RunID     string
	Ratios    []float64 // per-trajectory compression ratios
	SetGrowth []int     // reference-set size after each build candidate
	MeanCR    float64
	SetSize   int
}

// histogramBins is the number of buckets in the ratio histogram.
const histogramBins = 24

// WriteHTML renders the run report to w: a histogram of per-trajectory
// compression ratios and the reference-set growth curve over the build
// phase.
func WriteHTML(w io.Writer, data RunData) error {
	page := components.NewPage()
	page.AddCharts(ratioHistogram(data), growthLine(data))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report for run %s: %w", data.RunID, err)
	}
	return nil
}

// WriteHTMLFile renders the run report to dir/<run-id>.html and returns the
// path.
func WriteHTMLFile(dir string, data RunData) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, data.RunID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteHTML(f, data); err != nil {
		return "", err
	}
	return path, nil
}

func ratioHistogram(data RunData) *charts.Bar {
	labels, counts := binRatios(data.Ratios)

	bars := make([]opts.BarData, len(counts))
	for i, c := range counts {
		bars[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Compression report", Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Compression ratio distribution",
			Subtitle: fmt.Sprintf("run=%s trajectories=%d mean=%.2f", data.RunID, len(data.Ratios), data.MeanCR),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "CR"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "trajectories"}),
	)
	bar.SetXAxis(labels).AddSeries("trajectories", bars)
	return bar
}

func growthLine(data RunData) *charts.Line {
	x := make([]int, len(data.SetGrowth))
	y := make([]opts.LineData, len(data.SetGrowth))
	for i, size := range data.SetGrowth {
		x[i] = i
		y[i] = opts.LineData{Value: size}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Reference set growth",
			Subtitle: fmt.Sprintf("final size=%d", data.SetSize),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "candidates consumed"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "references"}),
	)
	line.SetXAxis(x).AddSeries("set size", y)
	return line
}

// binRatios buckets finite ratios into equal-width bins between the min
// and max observed values.
func binRatios(crs []float64) ([]string, []int) {
	if len(crs) == 0 {
		return nil, nil
	}
	lo, hi := crs[0], crs[0]
	for _, cr := range crs[1:] {
		lo = math.Min(lo, cr)
		hi = math.Max(hi, cr)
	}
	width := (hi - lo) / histogramBins
	if width == 0 {
		return []string{fmt.Sprintf("%.2f", lo)}, []int{len(crs)}
	}

	counts := make([]int, histogramBins)
	for _, cr := range crs {
		b := int((cr - lo) / width)
		if b >= histogramBins {
			b = histogramBins - 1
		}
		counts[b]++
	}
	labels := make([]string, histogramBins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", lo+(float64(i)+0.5)*width)
	}
	return labels, counts
}
