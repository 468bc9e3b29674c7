package perfmodel

// Breakdown carries the intermediate terms of one evaluation.
type Breakdown struct {
	Latency LatencyBreakdown `json:"latency"`
	Area    AreaBreakdown    `json:"area"`
	Energy  EnergyBreakdown  `json:"energy"`
}

// Ratios are instrumentation shares in [0, 1].
type Ratios struct {
	RenderingLatency  float64 `json:"rendering_latency"`
	PreprocessLatency float64 `json:"preprocess_latency"`
	ComputeEnergy     float64 `json:"compute_energy"`
	MemoryEnergy      float64 `json:"memory_energy"`
	RenderingArea     float64 `json:"rendering_area"`
	PreprocessArea    float64 `json:"preprocess_area"`
}

func share(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole
}

// Ratios reports how latency, energy and area split across blocks.
func (b Breakdown) Ratios() Ratios {
	lat := b.Latency.RenderingS + b.Latency.PreprocessS
	return Ratios{
		RenderingLatency:  share(b.Latency.RenderingS, lat),
		PreprocessLatency: share(b.Latency.PreprocessS, lat),
		ComputeEnergy:     share(b.Energy.ComputePJ, b.Energy.Total),
		MemoryEnergy:      share(b.Energy.MemoryPJ, b.Energy.Total),
		RenderingArea:     share(b.Area.RenderingMM2, b.Area.Total),
		PreprocessArea:    share(b.Area.PreprocessMM2, b.Area.Total),
	}
}
