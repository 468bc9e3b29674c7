package perfmodel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtgs.sim/internal/config"
)

func defaultModel() *Model {
	return New(config.DefaultArchConfig())
}

func frame(makespan, gaussians int64) Workload {
	return Workload{Makespan: makespan, Width: 1752, Height: 1160, Stride: 4, TotalGaussians: gaussians}
}

// Reference figures published for the default design point.
func TestEvaluate_ReferenceFigures(t *testing.T) {
	testCases := []struct {
		name       string
		workload   Workload
		wantLat    float64
		wantEnergy float64
	}{
		{"empty_frame", frame(0, 0), 9.15655e-05, 27142847.163946003},
		{"loaded_frame", frame(1234, 56789), 0.0001409255, 95483493.008106},
		{"light_frame", frame(7, 100), 9.18455e-05, 27263188.507946003},
		{"single_tile", Workload{Makespan: 5, Width: 16, Height: 16, Stride: 4, TotalGaussians: 24}, 7.589e-05, 23179771.871529996},
	}
	m := defaultModel()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := m.Evaluate(tc.workload)
			assert.Equal(t, tc.wantLat, r.LatencyS)
			assert.Equal(t, tc.wantEnergy, r.EnergyPJ)
			assert.Equal(t, 28.402742416000002, r.AreaMM2)
		})
	}
}

func TestBalancedPipelineCycles(t *testing.T) {
	assert.Equal(t, int64(11830), BalancedPipelineCycles(2364, 5, 5, 5))
	assert.Equal(t, int64(21285), BalancedPipelineCycles(2364, 6, 3, 9))
	assert.Equal(t, int64(16549), BalancedPipelineCycles(2364, 1, 7))
	assert.Equal(t, int64(26004), BalancedPipelineCycles(2364, 11))
	assert.Equal(t, int64(0), BalancedPipelineCycles(2364))
}

func TestLatencyBreakdown(t *testing.T) {
	m := defaultModel()
	assert.Equal(t, int64(2364), m.PreprocessIterations())

	lat := m.Evaluate(frame(0, 0)).Breakdown.Latency
	assert.Equal(t, []int64{11830, 21285, 16549, 26004}, lat.PipelineGroupCycles)
	assert.Equal(t, int64(2+5*2364+26004), lat.PreprocessCycles)
	assert.Equal(t, 7956.75, lat.RenderingCycles)

	loaded := m.Evaluate(frame(10, 0)).Breakdown.Latency
	assert.Equal(t, 7956.75+10*20, loaded.RenderingCycles)
	assert.Equal(t, lat.PreprocessCycles, loaded.PreprocessCycles)
}

func TestEvaluate_Pure(t *testing.T) {
	m := defaultModel()
	w := frame(987, 43210)
	first := m.Evaluate(w)
	second := m.Evaluate(w)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}

	other := New(config.DefaultArchConfig())
	if diff := cmp.Diff(first, other.Evaluate(w)); diff != "" {
		t.Errorf("second model differs (-first +second):\n%s", diff)
	}
}

func TestArea_IndependentOfWorkload(t *testing.T) {
	m := defaultModel()
	want := m.Area()
	for _, w := range []Workload{frame(0, 0), frame(1, 1), frame(1<<20, 1<<30), {Width: 16, Height: 16, Stride: 1}} {
		r := m.Evaluate(w)
		assert.Equal(t, want.Total, r.AreaMM2)
		assert.Equal(t, want, r.Breakdown.Area)
	}
}

func TestArea_ScalesWithLanes(t *testing.T) {
	cfg := config.DefaultArchConfig()
	base := New(cfg).Area()

	cfg.ResourcesPixels *= 2
	doubled := New(cfg).Area()
	assert.InDelta(t, 2*base.RenderingMM2, doubled.RenderingMM2, 1e-12)
	assert.Equal(t, base.PreprocessMM2, doubled.PreprocessMM2)
	assert.Greater(t, doubled.Total, base.Total)
}

func TestBaseline_OnlyFixedTermsRemain(t *testing.T) {
	m := defaultModel()
	base := m.Baseline(1752, 1160, 4)
	assert.Equal(t, m.Evaluate(frame(0, 0)), base)

	perFrame := map[string]bool{
		"rendering_alpha": true, "rendering_color": true, "rendering_loss_2dcolor": true,
		"loss_pixelalpha": true, "pixelalpha_distribution": true,
		"distribution_2dconv_position": true, "adder_color_conv_position": true,
	}
	for _, e := range base.Breakdown.Energy.Computing {
		if perFrame[e.Name] {
			assert.Zero(t, e.PJ, e.Name)
		} else {
			assert.Positive(t, e.PJ, e.Name)
		}
	}
	for _, e := range base.Breakdown.Energy.Memory {
		switch e.Name {
		case "pixel_buffer", "buffer_3d":
			assert.Positive(t, e.PJ, e.Name)
		default:
			assert.Zero(t, e.PJ, e.Name)
		}
	}
}

func TestEnergy_GrowsWithGaussians(t *testing.T) {
	m := defaultModel()
	prev := m.Evaluate(frame(0, 0)).EnergyPJ
	for _, g := range []int64{1, 10, 1000, 100000} {
		cur := m.Evaluate(frame(0, g)).EnergyPJ
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

func TestResult_UnitsAndPower(t *testing.T) {
	r := defaultModel().Evaluate(frame(1234, 56789))
	assert.InDelta(t, 95483493.008106e-12, r.EnergyJ(), 1e-18)
	assert.InDelta(t, r.EnergyJ()/r.LatencyS, r.PowerW(), 1e-12)
	assert.Zero(t, Result{EnergyPJ: 5}.PowerW())
}

func TestRatios(t *testing.T) {
	r := defaultModel().Evaluate(frame(1234, 56789))
	ratios := r.Breakdown.Ratios()
	assert.InDelta(t, 1, ratios.RenderingLatency+ratios.PreprocessLatency, 1e-12)
	assert.InDelta(t, 1, ratios.ComputeEnergy+ratios.MemoryEnergy, 1e-9)
	assert.Greater(t, ratios.RenderingArea, ratios.PreprocessArea)

	require.Equal(t, Ratios{}, Breakdown{}.Ratios())
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := config.DefaultArchConfig()
	m := New(cfg)
	w := Workload{Makespan: 40, Width: 64, Height: 32, Stride: 4, TotalGaussians: 100}
	want := m.Evaluate(w)

	cfg.Cycles.TileStages[0] = 1000
	assert.Equal(t, want, m.Evaluate(w))
	assert.Equal(t, want, New(config.DefaultArchConfig()).Evaluate(w))
}
