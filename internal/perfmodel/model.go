// Package perfmodel is the analytical latency, area and energy model of the
// RTGS accelerator. Every function is pure: the same configuration and
// workload always produce bit-identical results, and no term divides by a
// workload-derived quantity.
//
// Floating point expressions are evaluated in a fixed operand order so that
// results match the published reference figures exactly.
package perfmodel

import (
	"github.com/banshee-data/rtgs.sim/internal/config"
)

// Workload is the per-frame input to the model.
type Workload struct {
	Makespan       int64 `json:"makespan_cycles"`
	Width          int   `json:"width"`
	Height         int   `json:"height"`
	Stride         int   `json:"downsample_stride"`
	TotalGaussians int64 `json:"total_gaussians"` // sum_all_gaussian for the frame
}

// Result is the model output for one frame.
type Result struct {
	LatencyS  float64   `json:"latency_s"`
	AreaMM2   float64   `json:"area_mm2"`
	EnergyPJ  float64   `json:"energy_pj"`
	Breakdown Breakdown `json:"breakdown"`
}

// EnergyJ converts the frame energy to joules.
func (r Result) EnergyJ() float64 {
	return r.EnergyPJ * 1e-12
}

// PowerW is average power over the frame, or 0 for a zero-latency result.
func (r Result) PowerW() float64 {
	if r.LatencyS <= 0 {
		return 0
	}
	return r.EnergyJ() / r.LatencyS
}

// Model evaluates a fixed architecture configuration.
type Model struct {
	cfg config.ArchConfig
}

// New returns a model for cfg. The configuration is copied.
func New(cfg config.ArchConfig) *Model {
	return &Model{cfg: cfg.Clone()}
}

// Evaluate returns latency, area and energy for one frame.
func (m *Model) Evaluate(w Workload) Result {
	lat := m.latency(w)
	area := m.Area()
	energy := m.energy(w)

	return Result{
		LatencyS: lat.RenderingS + lat.PreprocessS,
		AreaMM2:  area.Total,
		EnergyPJ: energy.Total,
		Breakdown: Breakdown{
			Latency: lat,
			Area:    area,
			Energy:  energy,
		},
	}
}

// Baseline evaluates a frame with no Gaussians and no scheduled work. Only
// the fixed pixel, preprocessing and buffer terms remain.
func (m *Model) Baseline(width, height, stride int) Result {
	return m.Evaluate(Workload{Width: width, Height: height, Stride: stride})
}
