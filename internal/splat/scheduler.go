package splat

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rtgs.sim/internal/config"
)

// ErrNoPEs is returned when scheduling onto fewer than one PE.
var ErrNoPEs = errors.New("num_pes must be at least 1")

// Assignment records one tile placed on a PE.
type Assignment struct {
	Tile   int   `json:"tile"`
	PE     int   `json:"pe"`
	Cycles int64 `json:"cycles"`
	Load   int64 `json:"load"` // PE load after the assignment
}

// Schedule is the outcome of one scheduling pass.
type Schedule struct {
	Policy      string       `json:"policy"`
	Loads       []int64      `json:"loads"`
	Assignments []Assignment `json:"assignments"`
	Makespan    int64        `json:"makespan"`
}

// Distribute assigns workloads to numPEs identical PEs.
//
// With config.PolicyRaster, workloads are consumed in the given order and
// each goes to the least-loaded PE, ties resolved to the lowest PE index.
// config.PolicyLPT first orders workloads by descending size (stable, so
// equal workloads keep raster order) and then applies the same rule.
// Workloads are never split.
func Distribute(workloads []int64, numPEs int, policy string) (*Schedule, error) {
	if numPEs < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoPEs, numPEs)
	}

	order := make([]int, len(workloads))
	for i := range order {
		order[i] = i
	}
	switch policy {
	case config.PolicyRaster, "":
		policy = config.PolicyRaster
	case config.PolicyLPT:
		sort.SliceStable(order, func(a, b int) bool {
			return workloads[order[a]] > workloads[order[b]]
		})
	default:
		return nil, fmt.Errorf("unknown scheduling policy %q", policy)
	}

	s := &Schedule{
		Policy:      policy,
		Loads:       make([]int64, numPEs),
		Assignments: make([]Assignment, 0, len(workloads)),
	}
	for _, tile := range order {
		pe := 0
		for i := 1; i < numPEs; i++ {
			if s.Loads[i] < s.Loads[pe] {
				pe = i
			}
		}
		s.Loads[pe] += workloads[tile]
		s.Assignments = append(s.Assignments, Assignment{
			Tile:   tile,
			PE:     pe,
			Cycles: workloads[tile],
			Load:   s.Loads[pe],
		})
	}
	for _, l := range s.Loads {
		if l > s.Makespan {
			s.Makespan = l
		}
	}
	return s, nil
}

// TotalLoad returns the sum of all PE loads.
func (s *Schedule) TotalLoad() int64 {
	var total int64
	for _, l := range s.Loads {
		total += l
	}
	return total
}

// LowerBound is the perfect-balance makespan ceil(total / num_pes).
func (s *Schedule) LowerBound() int64 {
	n := int64(len(s.Loads))
	return (s.TotalLoad() + n - 1) / n
}

// Balance summarises how evenly work landed on the PEs.
type Balance struct {
	MeanLoad   float64 `json:"mean_load"`
	StdDevLoad float64 `json:"stddev_load"`
	// Efficiency is mean load over makespan; 1 is perfect balance.
	Efficiency float64 `json:"efficiency"`
}

// Balance computes load statistics across PEs.
func (s *Schedule) Balance() Balance {
	loads := make([]float64, len(s.Loads))
	for i, l := range s.Loads {
		loads[i] = float64(l)
	}
	var b Balance
	if len(loads) > 1 {
		b.MeanLoad, b.StdDevLoad = stat.MeanStdDev(loads, nil)
	} else if len(loads) == 1 {
		b.MeanLoad = loads[0]
	}
	if peak := floats.Max(loads); peak > 0 {
		b.Efficiency = floats.Sum(loads) / float64(len(loads)) / peak
	}
	return b
}
