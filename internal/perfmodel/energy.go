package perfmodel

// Position gradient adder tree: 9 levels of 15 adders, fired once per
// preprocessing pass.
const (
	positionAdderLevels = 9
	positionAdders      = 15
)

// Buffer access multipliers: accesses per Gaussian (or per sampled pixel)
// for each on-chip buffer round trip.
const (
	gscAccesses      = 10 // global scratch, per projected Gaussian
	gscRounds        = 2
	writeAmplify     = 8 // writes are costed at 8x the word energy
	pixelRounds      = 2
	buffer3DAccesses = 14
	stageAccesses    = 8
	stageStages      = 3
)

// Energy is a named energy term in pJ.
type Energy struct {
	Name string  `json:"name"`
	PJ   float64 `json:"pj"`
}

// EnergyBreakdown lists computing and memory traffic terms in evaluation
// order.
type EnergyBreakdown struct {
	Computing []Energy `json:"computing"`
	Memory    []Energy `json:"memory"`
	ComputePJ float64  `json:"compute_pj"`
	MemoryPJ  float64  `json:"memory_pj"`
	Total     float64  `json:"total_pj"`
}

func (m *Model) energy(w Workload) EnergyBreakdown {
	e := m.cfg.Energy
	unit := energyUnit(e)
	perFrame := float64(w.TotalGaussians)
	fixed := float64(m.cfg.FixedGaussians)

	var b EnergyBreakdown
	add := func(st stage, times float64) {
		b.Computing = append(b.Computing, Energy{Name: st.name, PJ: st.cost(unit) * times})
	}
	add(stageRenderA, perFrame)
	add(stageRenderC, perFrame)
	b.Computing = append(b.Computing, Energy{
		Name: stageGetLoss.name,
		PJ:   stageGetLoss.cost(unit) * float64(w.Width) * float64(w.Height) / float64(w.Stride*w.Stride),
	})
	add(stageLoss2D, perFrame)
	add(stageLossPA, perFrame)
	add(stagePADist, perFrame)
	add(stageDist2D, perFrame)
	add(stageAdderCCP, perFrame)
	for _, st := range preprocessStages {
		add(st, fixed)
	}
	b.Computing = append(b.Computing, Energy{
		Name: "position_adder",
		PJ:   positionAdderLevels * float64(positionAdders*e.AddSub) * (fixed / float64(m.cfg.ResourcesGaussian)),
	})
	for _, c := range b.Computing {
		b.ComputePJ += c.PJ
	}

	read := e.SRAMReadPerBit * float64(e.SRAMWordBits)
	write := e.SRAMWritePerBit * float64(e.SRAMWordBits)
	roundTrip := func(accesses int64, readMul, writeMul float64) float64 {
		n := float64(accesses)
		return float64(n*read*readMul) + float64(n*write*writeMul)
	}
	sampled := float64(w.Width*w.Height) / float64(w.Stride*w.Stride)
	b.Memory = []Energy{
		{"gsc", roundTrip(w.TotalGaussians*gscAccesses, gscRounds, gscRounds*writeAmplify)},
		{"pixel_buffer", sampled * pixelRounds * (read + write)},
		{"buffer_2d", roundTrip(w.TotalGaussians*gscAccesses, gscRounds, gscRounds*writeAmplify)},
		{"buffer_3d", roundTrip(m.cfg.FixedGaussians*buffer3DAccesses, 1, writeAmplify)},
		{"reuse_buffer", roundTrip(w.TotalGaussians, 1, writeAmplify)},
		{"stage_buffer", roundTrip(w.TotalGaussians*stageAccesses, 1, 1) * stageStages * writeAmplify},
	}

	b.Total = b.ComputePJ
	for _, mem := range b.Memory {
		b.MemoryPJ += mem.PJ
		b.Total += mem.PJ
	}
	return b
}
