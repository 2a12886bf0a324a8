package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trajectory.report/internal/rest"
)

// palette cycles through a handful of distinguishable line colors.
var palette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

// PlotReferenceSet draws every reference trajectory in the lng/lat plane
// and saves the overlay as a PNG. The picture answers the question the
// admission rule optimizes for: how much of the region's road network the
// set covers.
func PlotReferenceSet(path string, refs *rest.ReferenceSet) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reference set (%d trajectories)", refs.Len())
	p.X.Label.Text = "longitude (deg)"
	p.Y.Label.Text = "latitude (deg)"

	for i := 0; i < refs.Len(); i++ {
		t := refs.Trajectory(i)
		pts := make(plotter.XYs, 0, len(t))
		for _, point := range t {
			pts = append(pts, plotter.XY{X: point.LngDegrees(), Y: point.LatDegrees()})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("trajectory %d: %w", i, err)
		}
		line.Width = vg.Points(1)
		line.LineStyle.Color = palette[i%len(palette)]
		p.Add(line)
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save reference plot: %w", err)
	}
	return nil
}
