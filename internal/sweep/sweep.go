package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rtgs.sim/internal/config"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/simulate"
	"github.com/banshee-data/rtgs.sim/internal/splat"
	"github.com/banshee-data/rtgs.sim/internal/timeutil"
)

// maxCombos bounds the size of a cartesian expansion.
const maxCombos = 10000

// Params lists the values swept per dimension. An empty dimension keeps the
// base configuration's value.
type Params struct {
	PEs     []int
	Strides []int
	Groups  []int
	Tiles   []int
}

// Point is one design point. Tiles are square.
type Point struct {
	NumPEs    int `json:"num_pes"`
	Stride    int `json:"stride"`
	GroupSize int `json:"group_size"`
	Tile      int `json:"tile"`
}

func (p Point) String() string {
	return fmt.Sprintf("pes=%d stride=%d group=%d tile=%d", p.NumPEs, p.Stride, p.GroupSize, p.Tile)
}

// Apply returns a copy of base configured for this point.
func (p Point) Apply(base config.ArchConfig) config.ArchConfig {
	cfg := base.Clone()
	cfg.NumPEs = p.NumPEs
	cfg.Tiling.DownsampleStride = p.Stride
	cfg.Tiling.GroupSize = p.GroupSize
	cfg.Tiling.TileWidth = p.Tile
	cfg.Tiling.TileHeight = p.Tile
	return cfg
}

// Expand generates the cartesian product of the swept values in a fixed
// order: PEs vary slowest, tile size fastest.
func Expand(base config.ArchConfig, p Params) ([]Point, error) {
	dims := [][]int{
		orDefault(p.PEs, base.NumPEs),
		orDefault(p.Strides, base.Tiling.DownsampleStride),
		orDefault(p.Groups, base.Tiling.GroupSize),
		orDefault(p.Tiles, base.Tiling.TileWidth),
	}

	total := int64(1)
	for _, v := range dims {
		total *= int64(len(v))
		if total > maxCombos {
			return nil, fmt.Errorf("parameter combinations would exceed safe limit of %d", maxCombos)
		}
	}

	combos := make([][4]int, total)
	repeat := int64(1)
	for dim := len(dims) - 1; dim >= 0; dim-- {
		values := dims[dim]
		cycle := int64(len(values))
		for i := int64(0); i < total; i++ {
			combos[i][dim] = values[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	points := make([]Point, total)
	for i, c := range combos {
		points[i] = Point{NumPEs: c[0], Stride: c[1], GroupSize: c[2], Tile: c[3]}
	}
	return points, nil
}

func orDefault(values []int, def int) []int {
	if len(values) == 0 {
		return []int{def}
	}
	return values
}

// Options controls a sweep.
type Options struct {
	// SweepID identifies the sweep; a new UUID is used when empty.
	SweepID string
	Frames  int
	Workers int
	// OnRun, if set, is called after every successful point. It is used to
	// persist runs as they complete.
	OnRun func(Point, *simulate.Result)
	// Clock stamps the sweep and its runs; nil means the wall clock.
	Clock timeutil.Clock
}

// Outcome is the result of simulating one point. Err is set, and the
// figures are zero, when the point's configuration was rejected.
type Outcome struct {
	Point
	RunID          string  `json:"run_id,omitempty"`
	Makespan       int64   `json:"makespan_cycles"`
	SumAllGaussian int64   `json:"sum_all_gaussian"`
	AreaMM2        float64 `json:"area_mm2"`
	LatencyS       float64 `json:"latency_s"`
	EnergyPJ       float64 `json:"energy_pj"`
	PowerW         float64 `json:"power_w"`
	Efficiency     float64 `json:"pe_efficiency"`
	Err            string  `json:"error,omitempty"`
}

// OK reports whether the point simulated successfully.
func (o Outcome) OK() bool { return o.Err == "" }

// Result is a completed sweep.
type Result struct {
	SweepID   string    `json:"sweep_id"`
	StartedAt time.Time `json:"started_at"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Run simulates every point over the same pixel map. Points whose
// configuration is rejected are recorded with an error and the sweep
// continues; cancellation and any other failure abort the sweep.
func Run(ctx context.Context, pixels splat.PixelBucket, base config.ArchConfig, points []Point, opts Options) (*Result, error) {
	id := opts.SweepID
	if id == "" {
		id = uuid.New().String()
	}
	res := &Result{
		SweepID:   id,
		StartedAt: timeutil.OrReal(opts.Clock).Now().UTC(),
		Outcomes:  make([]Outcome, 0, len(points)),
	}

	for i, pt := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run, err := simulate.Run(ctx, pixels, simulate.Options{
			Config:  pt.Apply(base),
			Frames:  opts.Frames,
			Workers: opts.Workers,
			Clock:   opts.Clock,
		})
		if err != nil {
			if !rejected(err) {
				return nil, fmt.Errorf("sweep point %d (%s): %w", i, pt, err)
			}
			monitoring.Logf("sweep %s: skipping %s: %v", res.SweepID, pt, err)
			res.Outcomes = append(res.Outcomes, Outcome{Point: pt, Err: err.Error()})
			continue
		}

		last := run.Last()
		res.Outcomes = append(res.Outcomes, Outcome{
			Point:          pt,
			RunID:          run.RunID,
			Makespan:       last.Makespan,
			SumAllGaussian: last.Grid.SumAllGaussian,
			AreaMM2:        run.Totals.AreaMM2,
			LatencyS:       run.Totals.LatencyS,
			EnergyPJ:       run.Totals.EnergyPJ,
			PowerW:         run.Totals.PowerW(),
			Efficiency:     last.Balance.Efficiency,
		})
		monitoring.Debugf("sweep %s: %s makespan=%d latency=%.9f", res.SweepID, pt, last.Makespan, run.Totals.LatencyS)
		if opts.OnRun != nil {
			opts.OnRun(pt, run)
		}
	}

	monitoring.Logf("sweep %s: %d point(s)", res.SweepID, len(points))
	return res, nil
}

func rejected(err error) bool {
	return errors.Is(err, splat.ErrOddGroupSize) ||
		errors.Is(err, splat.ErrInvalidTiling) ||
		errors.Is(err, config.ErrInvalidConfig)
}

// Summary describes the spread of a sweep's successful points.
type Summary struct {
	Points        int      `json:"points"`
	Failed        int      `json:"failed"`
	LatencyMean   float64  `json:"latency_mean_s"`
	LatencyStdDev float64  `json:"latency_stddev_s"`
	EnergyMean    float64  `json:"energy_mean_pj"`
	EnergyStdDev  float64  `json:"energy_stddev_pj"`
	Best          *Outcome `json:"best,omitempty"`
}

// Summarize computes latency and energy statistics. Best is the lowest
// latency point, ties broken by lower energy and then sweep order.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Points: len(outcomes)}
	var latency, energy []float64
	for i := range outcomes {
		o := &outcomes[i]
		if !o.OK() {
			s.Failed++
			continue
		}
		latency = append(latency, o.LatencyS)
		energy = append(energy, o.EnergyPJ)
		if s.Best == nil || o.LatencyS < s.Best.LatencyS ||
			(o.LatencyS == s.Best.LatencyS && o.EnergyPJ < s.Best.EnergyPJ) {
			s.Best = o
		}
	}
	s.LatencyMean, s.LatencyStdDev = meanStdDev(latency)
	s.EnergyMean, s.EnergyStdDev = meanStdDev(energy)
	return s
}

func meanStdDev(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}
