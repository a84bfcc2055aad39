package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePNG writes the coverage growth curve to a PNG file.
func SavePNG(summary *Summary, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pair coverage growth (%s)", summary.Technique)
	p.X.Label.Text = "scenario"
	p.Y.Label.Text = "pairs covered"

	pts := make(plotter.XYs, len(summary.Rows))
	for i, rc := range summary.Rows {
		pts[i].X = float64(rc.Row)
		pts[i].Y = float64(rc.Cumulative)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build coverage line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	// Horizontal reference at the full pair universe.
	universe := plotter.XYs{
		{X: 1, Y: float64(summary.PairUniverse)},
		{X: float64(len(summary.Rows)), Y: float64(summary.PairUniverse)},
	}
	ref, err := plotter.NewLine(universe)
	if err != nil {
		return fmt.Errorf("failed to build reference line: %w", err)
	}
	ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ref)

	p.Legend.Add("covered", line)
	p.Legend.Add("universe", ref)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
