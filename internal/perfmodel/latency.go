package perfmodel

// LatencyBreakdown splits frame latency into the rendering engine and the
// preprocessing pipeline.
type LatencyBreakdown struct {
	RenderingCycles      float64 `json:"rendering_cycles"`
	RenderingS           float64 `json:"rendering_s"`
	PreprocessIterations int64   `json:"preprocess_iterations"`
	PipelineGroupCycles  []int64 `json:"pipeline_group_cycles"`
	PreprocessCycles     int64   `json:"preprocess_cycles"`
	PreprocessS          float64 `json:"preprocess_s"`
}

// BalancedPipelineCycles is the cycle cost of stages running overlapped:
// the slowest stage sets the rate for every iteration and the others add
// their fill and drain once.
func BalancedPipelineCycles(iterations int64, stageCycles ...int) int64 {
	if len(stageCycles) == 0 {
		return 0
	}
	var sum, slowest int64
	for _, c := range stageCycles {
		sum += int64(c)
		if int64(c) > slowest {
			slowest = int64(c)
		}
	}
	return slowest*iterations + sum - slowest
}

// PreprocessIterations is the number of passes the Gaussian lanes make over
// the fixed preprocessing set, counting the partial final pass.
func (m *Model) PreprocessIterations() int64 {
	return m.cfg.FixedGaussians/int64(m.cfg.ResourcesGaussian) + 1
}

func (m *Model) latency(w Workload) LatencyBreakdown {
	c := m.cfg.Cycles
	inv := 1 / (m.cfg.FrequencyMHz * 1e6)

	var tileCycles int64
	for _, sc := range c.TileStages {
		tileCycles += int64(sc)
	}

	var b LatencyBreakdown
	pixelsPerLane := float64(w.Width*w.Height) / float64(w.Stride*w.Stride*m.cfg.ResourcesPixels)
	b.RenderingCycles = float64(int64(c.RenderFill)+w.Makespan*tileCycles) + float64(float64(c.PixelStage)*pixelsPerLane)
	b.RenderingCycles += float64(c.GMUWeight * c.GMUDominate)
	b.RenderingS = b.RenderingCycles * inv

	iters := m.PreprocessIterations()
	b.PreprocessIterations = iters
	b.PipelineGroupCycles = []int64{
		BalancedPipelineCycles(iters, c.Conv2D3D, c.Conv3DR, c.RQ),
		BalancedPipelineCycles(iters, c.Conv2DT, c.TJ, c.J3D),
		BalancedPipelineCycles(iters, c.ColorSH, c.SHPosition),
		BalancedPipelineCycles(iters, c.Position2D3D),
	}
	var slowest int64
	for _, g := range b.PipelineGroupCycles {
		if g > slowest {
			slowest = g
		}
	}
	// camera pose runs serially ahead of the balanced groups
	b.PreprocessCycles = int64(c.Overhead) + int64(c.CameraPose)*iters + slowest
	b.PreprocessS = float64(b.PreprocessCycles) * inv
	return b
}
