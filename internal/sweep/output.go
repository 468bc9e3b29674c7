package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"num_pes", "stride", "group_size", "tile",
	"run_id", "makespan_cycles", "sum_all_gaussian",
	"area_mm2", "latency_s", "energy_j", "power_w", "pe_efficiency", "error",
}

// WriteCSV writes one row per outcome, in sweep order.
func WriteCSV(w io.Writer, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, o := range outcomes {
		row := []string{
			strconv.Itoa(o.NumPEs),
			strconv.Itoa(o.Stride),
			strconv.Itoa(o.GroupSize),
			strconv.Itoa(o.Tile),
			o.RunID,
			strconv.FormatInt(o.Makespan, 10),
			strconv.FormatInt(o.SumAllGaussian, 10),
			formatFloat(o.AreaMM2),
			formatFloat(o.LatencyS),
			formatFloat(o.EnergyPJ * 1e-12),
			formatFloat(o.PowerW),
			formatFloat(o.Efficiency),
			o.Err,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteSummary prints a short human-readable account of a sweep.
func WriteSummary(w io.Writer, res *Result) error {
	s := Summarize(res.Outcomes)
	if _, err := fmt.Fprintf(w, "Sweep %s: %d point(s), %d rejected\n", res.SweepID, s.Points, s.Failed); err != nil {
		return err
	}
	if s.Best == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "Latency: mean %.10f s, stddev %.10f s\nEnergy: mean %.10f J, stddev %.10f J\nBest: %s (%.10f s, %.10f J)\n",
		s.LatencyMean, s.LatencyStdDev, s.EnergyMean*1e-12, s.EnergyStdDev*1e-12,
		s.Best.Point, s.Best.LatencyS, s.Best.EnergyPJ*1e-12)
	return err
}
