package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rtgs.sim/internal/splat"
)

// WritePELoadPlot renders the per-PE cumulative load of a schedule as a PNG
// bar chart, with the makespan lower bound drawn as a horizontal line.
func WritePELoadPlot(w io.Writer, s *splat.Schedule) error {
	if len(s.Loads) == 0 {
		return fmt.Errorf("schedule has no PEs")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("PE load (%s, makespan %d cycles)", s.Policy, s.Makespan)
	p.X.Label.Text = "PE"
	p.Y.Label.Text = "Cycles"

	values := make(plotter.Values, len(s.Loads))
	names := make([]string, len(s.Loads))
	for i, l := range s.Loads {
		values[i] = float64(l)
		names[i] = fmt.Sprintf("%02d", i)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)

	bound := float64(s.LowerBound())
	line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: bound}, {X: float64(len(s.Loads)) - 0.5, Y: bound}})
	if err != nil {
		return fmt.Errorf("failed to create bound line: %w", err)
	}
	line.Color = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("lower bound", line)
	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
