// Package simulate wires projection, tiling, scheduling and the performance
// model into simulation runs.
//
// Every frame is computed from scratch and returned as a value; a run sums
// frame latency and energy into Totals without any shared accumulators.
package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rtgs.sim/internal/config"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/perfmodel"
	"github.com/banshee-data/rtgs.sim/internal/splat"
	"github.com/banshee-data/rtgs.sim/internal/timeutil"
)

// Options controls one simulation run.
type Options struct {
	Config config.ArchConfig
	// Frames is the number of frames simulated over the same pixel map.
	// Values below 1 mean a single frame.
	Frames int
	// Workers bounds concurrent tile rows; see splat.TilingParams.
	Workers int
	// Clock stamps the run; nil means the wall clock.
	Clock timeutil.Clock
}

// Frame is the outcome of simulating one frame.
type Frame struct {
	Index    int                `json:"index"`
	Grid     splat.GridSummary  `json:"grid"`
	Tiles    *splat.TileSet     `json:"-"`
	Schedule *splat.Schedule    `json:"-"`
	Balance  splat.Balance      `json:"balance"`
	Makespan int64              `json:"makespan_cycles"`
	Perf     perfmodel.Result   `json:"perf"`
	Workload perfmodel.Workload `json:"workload"`
	Ratios   perfmodel.Ratios   `json:"ratios"`
}

// Totals aggregates a run. Area is a property of the configuration and is
// counted once; latency and energy add up frame by frame.
type Totals struct {
	AreaMM2  float64 `json:"area_mm2"`
	LatencyS float64 `json:"latency_s"`
	EnergyPJ float64 `json:"energy_pj"`
}

// EnergyJ returns the run energy in joules.
func (t Totals) EnergyJ() float64 {
	return t.EnergyPJ * 1e-12
}

// PowerW is run energy over run latency, or 0 when no time elapsed.
func (t Totals) PowerW() float64 {
	if t.LatencyS <= 0 {
		return 0
	}
	return t.EnergyJ() / t.LatencyS
}

// Result is a completed run.
type Result struct {
	RunID          string            `json:"run_id"`
	StartedAt      time.Time         `json:"started_at"`
	Config         config.ArchConfig `json:"config"`
	OccupiedPixels int               `json:"occupied_pixels"`
	InputGaussians int64             `json:"input_gaussians"`
	Frames         []Frame           `json:"frames"`
	Totals         Totals            `json:"totals"`
}

// Last returns the final frame, or nil for an empty result.
func (r *Result) Last() *Frame {
	if len(r.Frames) == 0 {
		return nil
	}
	return &r.Frames[len(r.Frames)-1]
}

// Run simulates opts.Frames frames of the pixel map. The tiling precondition
// (even pairing group, positive tile and stride) is checked before any work.
func Run(ctx context.Context, pixels splat.PixelBucket, opts Options) (*Result, error) {
	cfg := opts.Config
	tiling := splat.TilingParamsFromConfig(cfg.Tiling)
	tiling.Workers = opts.Workers
	if err := tiling.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	frames := opts.Frames
	if frames < 1 {
		frames = 1
	}

	clock := timeutil.OrReal(opts.Clock)
	start := clock.Now()
	model := perfmodel.New(cfg)
	res := &Result{
		RunID:          uuid.New().String(),
		StartedAt:      start.UTC(),
		Config:         cfg.Clone(),
		OccupiedPixels: pixels.OccupiedPixels(),
		InputGaussians: pixels.TotalGaussians(),
		Frames:         make([]Frame, 0, frames),
	}
	res.Totals.AreaMM2 = model.Area().Total

	for i := 0; i < frames; i++ {
		f, err := simulateFrame(ctx, i, pixels, cfg, tiling, model)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		res.Totals.LatencyS += f.Perf.LatencyS
		res.Totals.EnergyPJ += f.Perf.EnergyPJ
		res.Frames = append(res.Frames, *f)
	}

	monitoring.Logf("run %s: %d frame(s), area %.6f mm2, latency %.9f s (simulated in %s)",
		res.RunID, frames, res.Totals.AreaMM2, res.Totals.LatencyS, clock.Since(start))
	return res, nil
}

func simulateFrame(ctx context.Context, index int, pixels splat.PixelBucket, cfg config.ArchConfig, tiling splat.TilingParams, model *perfmodel.Model) (*Frame, error) {
	cm, err := splat.BuildCountMap(pixels, cfg.Frame.Width, cfg.Frame.Height, tiling.TileWidth, tiling.TileHeight)
	if err != nil {
		return nil, err
	}
	tiles, err := splat.ComputeTiles(ctx, cm, tiling)
	if err != nil {
		return nil, err
	}
	sched, err := splat.Distribute(tiles.Workloads(), cfg.NumPEs, cfg.SchedulePolicy)
	if err != nil {
		return nil, err
	}

	w := perfmodel.Workload{
		Makespan:       sched.Makespan,
		Width:          cfg.Frame.Width,
		Height:         cfg.Frame.Height,
		Stride:         tiling.DownsampleStride,
		TotalGaussians: tiles.Summary.SumAllGaussian,
	}
	perf := model.Evaluate(w)

	monitoring.Debugf("frame %d: tiles=%d sum_all_gaussian=%d makespan=%d",
		index, len(tiles.Tiles), tiles.Summary.SumAllGaussian, sched.Makespan)

	return &Frame{
		Index:    index,
		Grid:     tiles.Summary,
		Tiles:    tiles,
		Schedule: sched,
		Balance:  sched.Balance(),
		Makespan: sched.Makespan,
		Perf:     perf,
		Workload: w,
		Ratios:   perf.Breakdown.Ratios(),
	}, nil
}
