package perfmodel

const (
	// Gradient adder tree: two 16-input trees plus eight 1.5-weighted
	// inputs, four instances.
	adderTreeInputs    = 16 + 16 + 8*1.5
	adderTreeInstances = 4
	// Weight-sum unit: 80 adders on each of 16 lanes.
	wsuAdders = 80
	wsuLanes  = 16

	um2PerMM2 = 1e6
	sramWord  = 128 // bytes per SRAM area unit
)

// AreaBreakdown is silicon area in mm^2 per block.
type AreaBreakdown struct {
	MemoryMM2     float64 `json:"memory_mm2"`
	AdderTreeMM2  float64 `json:"adder_tree_mm2"`
	RenderingMM2  float64 `json:"rendering_mm2"`
	PreprocessMM2 float64 `json:"preprocess_mm2"`
	WSUMM2        float64 `json:"wsu_mm2"`
	Total         float64 `json:"total_mm2"`
}

// sramMM2 converts an on-chip buffer size in KB to mm^2.
func (m *Model) sramMM2(kb int) float64 {
	return float64(kb*1024) / sramWord * m.cfg.Area.SRAMPer128B / um2PerMM2
}

// Area returns the accelerator area. It depends only on the configuration.
func (m *Model) Area() AreaBreakdown {
	a := m.cfg.Area
	s := m.cfg.TechScale
	unit := areaUnit(a)

	var b AreaBreakdown
	b.AdderTreeMM2 = float64(adderTreeInputs*a.AddSub*adderTreeInstances/(s*s*um2PerMM2)) + m.sramMM2(a.AdderTreeKB)
	b.MemoryMM2 = m.sramMM2(a.BufferKB)
	b.WSUMM2 = float64(wsuAdders*a.AddSub*wsuLanes/(s*s*um2PerMM2)) + m.sramMM2(a.WSUKB)

	var rendering float64
	for _, st := range renderingAreaStages {
		rendering += st.cost(unit)
	}
	b.RenderingMM2 = rendering * float64(m.cfg.ResourcesPixels) / (um2PerMM2 * s * s)

	var preprocess float64
	for _, st := range preprocessStages {
		preprocess += st.cost(unit)
	}
	b.PreprocessMM2 = preprocess * float64(m.cfg.ResourcesGaussian) / (um2PerMM2 * s * s)

	b.Total = b.MemoryMM2 + b.AdderTreeMM2
	b.Total += b.RenderingMM2
	b.Total += b.PreprocessMM2 + b.WSUMM2
	return b
}
