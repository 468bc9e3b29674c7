// Package report formats simulation results. Nothing here computes model
// figures; it only presents values returned by the simulate package.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/banshee-data/rtgs.sim/internal/simulate"
)

// WriteSummary prints the headline figures of a run: area, latency, energy
// and power.
func WriteSummary(w io.Writer, res *simulate.Result) error {
	t := res.Totals
	_, err := fmt.Fprintf(w, "Total area: %.10f mm²\nLatency: %.10f s\nEnergy: %.10f J\nPower: %.2f W\n",
		t.AreaMM2, t.LatencyS, t.EnergyJ(), t.PowerW())
	return err
}

// WriteDetails prints the grid, schedule and model breakdown of the final
// frame.
func WriteDetails(w io.Writer, res *simulate.Result) error {
	f := res.Last()
	if f == nil {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	g := f.Grid
	b := f.Perf.Breakdown
	r := f.Ratios

	rows := []struct {
		name  string
		value string
	}{
		{"run", res.RunID},
		{"frames", fmt.Sprintf("%d", len(res.Frames))},
		{"occupied pixels", fmt.Sprintf("%d", res.OccupiedPixels)},
		{"input gaussians", fmt.Sprintf("%d", res.InputGaussians)},
		{"tiles", fmt.Sprintf("%dx%d", g.TilesX, g.TilesY)},
		{"sum_all_gaussian", fmt.Sprintf("%d", g.SumAllGaussian)},
		{"unsampled gaussians", fmt.Sprintf("%d of %d", g.OccupiedGaussians-g.SumAllGaussian, g.OccupiedGaussians)},
		{"sum raw/avg/group max", fmt.Sprintf("%d / %d / %d", g.SumRawMax, g.SumAvgMax, g.SumGroupMax)},
		{"count_max", fmt.Sprintf("%d", g.CountMax)},
		{"schedule policy", f.Schedule.Policy},
		{"makespan", fmt.Sprintf("%d cycles (lower bound %d)", f.Makespan, f.Schedule.LowerBound())},
		{"PE efficiency", fmt.Sprintf("%.3f", f.Balance.Efficiency)},
		{"rendering latency", fmt.Sprintf("%.10f s (%.1f%%)", b.Latency.RenderingS, 100*r.RenderingLatency)},
		{"preprocess latency", fmt.Sprintf("%.10f s (%.1f%%)", b.Latency.PreprocessS, 100*r.PreprocessLatency)},
		{"compute energy", fmt.Sprintf("%.3f pJ (%.1f%%)", b.Energy.ComputePJ, 100*r.ComputeEnergy)},
		{"memory energy", fmt.Sprintf("%.3f pJ (%.1f%%)", b.Energy.MemoryPJ, 100*r.MemoryEnergy)},
		{"rendering area", fmt.Sprintf("%.6f mm² (%.1f%%)", b.Area.RenderingMM2, 100*r.RenderingArea)},
		{"preprocess area", fmt.Sprintf("%.6f mm² (%.1f%%)", b.Area.PreprocessMM2, 100*r.PreprocessArea)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row.name, row.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}
