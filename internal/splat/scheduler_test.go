package splat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rtgs.sim/internal/config"
)

func TestDistribute_RasterOrderAndTieBreak(t *testing.T) {
	s, err := Distribute([]int64{5, 3, 3, 1, 4}, 3, config.PolicyRaster)
	require.NoError(t, err)

	want := []Assignment{
		{Tile: 0, PE: 0, Cycles: 5, Load: 5},
		{Tile: 1, PE: 1, Cycles: 3, Load: 3},
		{Tile: 2, PE: 2, Cycles: 3, Load: 3},
		{Tile: 3, PE: 1, Cycles: 1, Load: 4}, // PE 1 and 2 tie at 3, lowest index wins
		{Tile: 4, PE: 2, Cycles: 4, Load: 7},
	}
	if diff := cmp.Diff(want, s.Assignments); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int64{5, 4, 7}, s.Loads)
	assert.Equal(t, int64(7), s.Makespan)
	assert.Equal(t, config.PolicyRaster, s.Policy)
}

func TestDistribute_ZeroWorkloadsStayOnFirstPE(t *testing.T) {
	s, err := Distribute([]int64{0, 0, 0}, 4, "")
	require.NoError(t, err)
	for _, a := range s.Assignments {
		assert.Equal(t, 0, a.PE)
	}
	assert.Equal(t, int64(0), s.Makespan)
	assert.Equal(t, config.PolicyRaster, s.Policy)
}

func TestDistribute_SinglePE(t *testing.T) {
	workloads := []int64{2, 9, 4}
	s, err := Distribute(workloads, 1, config.PolicyRaster)
	require.NoError(t, err)
	assert.Equal(t, int64(15), s.Makespan)
	assert.Equal(t, s.TotalLoad(), s.Makespan)
}

func TestDistribute_Empty(t *testing.T) {
	s, err := Distribute(nil, 16, config.PolicyRaster)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Makespan)
	assert.Len(t, s.Loads, 16)
	assert.Empty(t, s.Assignments)
	assert.Equal(t, Balance{}, s.Balance())
}

func TestDistribute_Errors(t *testing.T) {
	_, err := Distribute([]int64{1}, 0, config.PolicyRaster)
	assert.True(t, errors.Is(err, ErrNoPEs), "err = %v", err)

	_, err = Distribute([]int64{1}, 2, "fastest")
	assert.Error(t, err)
}

func TestDistribute_Bounds(t *testing.T) {
	seed := uint32(7)
	for trial := 0; trial < 50; trial++ {
		n := trial + 1
		workloads := make([]int64, n)
		var sum int64
		for i := range workloads {
			seed = seed*1103515245 + 12345
			workloads[i] = int64(seed>>24) % 40
			sum += workloads[i]
		}
		for _, pes := range []int{1, 2, 3, 16} {
			s, err := Distribute(workloads, pes, config.PolicyRaster)
			require.NoError(t, err)
			lower := (sum + int64(pes) - 1) / int64(pes)
			assert.GreaterOrEqual(t, s.Makespan, lower)
			assert.LessOrEqual(t, s.Makespan, sum)
			assert.Equal(t, lower, s.LowerBound())
			assert.Equal(t, sum, s.TotalLoad())
		}
	}
}

func TestDistribute_Deterministic(t *testing.T) {
	workloads := []int64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4}
	first, err := Distribute(workloads, 4, config.PolicyRaster)
	require.NoError(t, err)
	second, err := Distribute(workloads, 4, config.PolicyRaster)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated schedule differs (-first +second):\n%s", diff)
	}
}

func TestDistribute_LPT(t *testing.T) {
	// raster order gives makespan 7 here; sorting by size first gives 6
	workloads := []int64{1, 1, 1, 3, 3, 3}
	raster, err := Distribute(workloads, 2, config.PolicyRaster)
	require.NoError(t, err)
	lpt, err := Distribute(workloads, 2, config.PolicyLPT)
	require.NoError(t, err)

	assert.Equal(t, int64(7), raster.Makespan)
	assert.Equal(t, int64(6), lpt.Makespan)
	assert.Equal(t, []int{3, 4, 5, 0, 1, 2}, []int{
		lpt.Assignments[0].Tile, lpt.Assignments[1].Tile, lpt.Assignments[2].Tile,
		lpt.Assignments[3].Tile, lpt.Assignments[4].Tile, lpt.Assignments[5].Tile,
	})
}

func TestSchedule_Balance(t *testing.T) {
	s := &Schedule{Loads: []int64{2, 4, 6}, Makespan: 6}
	b := s.Balance()
	assert.InDelta(t, 4.0, b.MeanLoad, 1e-12)
	assert.InDelta(t, 2.0, b.StdDevLoad, 1e-12)
	assert.InDelta(t, 4.0/6.0, b.Efficiency, 1e-12)

	single := (&Schedule{Loads: []int64{5}, Makespan: 5}).Balance()
	assert.Equal(t, Balance{MeanLoad: 5, Efficiency: 1}, single)
}
