package splat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rtgs.sim/internal/config"
)

var (
	// ErrOddGroupSize is returned when the pairing group is odd or below 2.
	ErrOddGroupSize = errors.New("group size must be even")
	// ErrInvalidTiling is returned for non-positive tile sizes or strides.
	ErrInvalidTiling = errors.New("invalid tiling")
)

// TilingParams controls tile extraction and workload estimation.
type TilingParams struct {
	TileWidth        int
	TileHeight       int
	DownsampleStride int
	GroupSize        int
	// Workers bounds the number of tile rows processed concurrently.
	// Zero means runtime.GOMAXPROCS(0); one forces sequential processing.
	Workers int
}

// TilingParamsFromConfig extracts tiling parameters from a config.
func TilingParamsFromConfig(t config.TilingConfig) TilingParams {
	return TilingParams{
		TileWidth:        t.TileWidth,
		TileHeight:       t.TileHeight,
		DownsampleStride: t.DownsampleStride,
		GroupSize:        t.GroupSize,
	}
}

// Validate checks the preconditions that must hold before any tile runs.
func (p TilingParams) Validate() error {
	if p.GroupSize < 2 || p.GroupSize%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrOddGroupSize, p.GroupSize)
	}
	if p.TileWidth < 1 || p.TileHeight < 1 {
		return fmt.Errorf("%w: tile must be at least 1x1, got %dx%d", ErrInvalidTiling, p.TileWidth, p.TileHeight)
	}
	if p.DownsampleStride < 1 {
		return fmt.Errorf("%w: downsample stride must be at least 1, got %d", ErrInvalidTiling, p.DownsampleStride)
	}
	return nil
}

// TileStats holds the workload metrics of one downsampled tile.
type TileStats struct {
	Row      int   `json:"row"`
	Col      int   `json:"col"`
	RawMax   int64 `json:"raw_max"`
	AvgMax   int64 `json:"avg_max"`
	GroupMax int64 `json:"group_max"`
	Sum      int64 `json:"sum"`
	Samples  int   `json:"samples"`
}

// GridSummary aggregates tile statistics.
type GridSummary struct {
	TilesX         int   `json:"tiles_x"`
	TilesY         int   `json:"tiles_y"`
	SumAllGaussian int64 `json:"sum_all_gaussian"`
	SumRawMax      int64 `json:"sum_raw_max"`
	SumAvgMax      int64 `json:"sum_avg_max"`
	SumGroupMax    int64 `json:"sum_group_max"`
	CountMax       int64 `json:"count_max"`

	// OccupiedGaussians is the whole count map before downsampling.
	OccupiedGaussians int64 `json:"occupied_gaussians"`
}

// TileSet is the row-major tile sequence handed to the scheduler.
type TileSet struct {
	Tiles   []TileStats `json:"tiles"`
	Summary GridSummary `json:"summary"`
}

// Workloads returns each tile's group_max in emission order.
func (ts *TileSet) Workloads() []int64 {
	out := make([]int64, len(ts.Tiles))
	for i, t := range ts.Tiles {
		out[i] = t.GroupMax
	}
	return out
}

// ComputeTiles partitions the count map into tiles and computes their
// statistics. Tile rows may be processed concurrently; results are always
// returned in row-major order (tile rows outer, tile columns inner).
func ComputeTiles(ctx context.Context, cm *CountMap, p TilingParams) (*TileSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cm.Width%p.TileWidth != 0 || cm.Height%p.TileHeight != 0 {
		return nil, fmt.Errorf("%w: %dx%d map is not a multiple of %dx%d tiles",
			ErrInvalidTiling, cm.Width, cm.Height, p.TileWidth, p.TileHeight)
	}

	tilesX := cm.Width / p.TileWidth
	tilesY := cm.Height / p.TileHeight
	tiles := make([]TileStats, tilesX*tilesY)

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ty := 0; ty < tilesY; ty++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vals := make([]int64, 0, sampleCount(p))
			for tx := 0; tx < tilesX; tx++ {
				vals = sampleTile(cm, tx*p.TileWidth, ty*p.TileHeight, p, vals[:0])
				tiles[ty*tilesX+tx] = tileStats(ty, tx, vals, p.GroupSize)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ts := &TileSet{Tiles: tiles, Summary: GridSummary{TilesX: tilesX, TilesY: tilesY, OccupiedGaussians: cm.Total()}}
	for _, t := range tiles {
		s := &ts.Summary
		s.SumAllGaussian += t.Sum
		s.SumRawMax += t.RawMax
		s.SumAvgMax += t.AvgMax
		s.SumGroupMax += t.GroupMax
		if t.RawMax > s.CountMax {
			s.CountMax = t.RawMax
		}
	}
	return ts, nil
}

// sampleCount is the number of cells kept per tile after downsampling.
func sampleCount(p TilingParams) int {
	cols := (p.TileWidth + p.DownsampleStride - 1) / p.DownsampleStride
	rows := (p.TileHeight + p.DownsampleStride - 1) / p.DownsampleStride
	return cols * rows
}

// sampleTile appends the strided subset of the tile at (x0, y0) to dst.
// Cells between stride points are discarded, not aggregated.
func sampleTile(cm *CountMap, x0, y0 int, p TilingParams, dst []int64) []int64 {
	for dy := 0; dy < p.TileHeight; dy += p.DownsampleStride {
		for dx := 0; dx < p.TileWidth; dx += p.DownsampleStride {
			dst = append(dst, int64(cm.At(x0+dx, y0+dy)))
		}
	}
	return dst
}

// tileStats computes the statistics of one sampled tile. vals is reordered.
func tileStats(row, col int, vals []int64, group int) TileStats {
	t := TileStats{Row: row, Col: col, Samples: len(vals)}
	if len(vals) == 0 {
		return t
	}
	for _, v := range vals {
		t.Sum += v
		if v > t.RawMax {
			t.RawMax = v
		}
	}
	t.AvgMax = int64(math.Ceil(float64(t.Sum) / float64(len(vals))))

	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	t.GroupMax = groupMaxSorted(vals, group)
	return t
}

// GroupMax computes the balanced workload estimate of a set of samples:
// the lowest group/2 and highest group/2 values are repeatedly peeled off,
// paired positionally and averaged, and the ceiling of each group's mean pair
// average is recorded. The result is the largest recorded value, or 0 when
// fewer than group values are present. Leftover values are ignored.
func GroupMax(vals []int64, group int) (int64, error) {
	if group < 2 || group%2 != 0 {
		return 0, fmt.Errorf("%w: got %d", ErrOddGroupSize, group)
	}
	sorted := append([]int64(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return groupMaxSorted(sorted, group), nil
}

// groupMaxSorted expects vals in ascending order and an even group >= 2.
func groupMaxSorted(vals []int64, group int) int64 {
	half := group / 2
	lo, hi := 0, len(vals)
	var best int64
	found := false
	for hi-lo >= group {
		mins := vals[lo : lo+half]
		maxs := vals[hi-half : hi]
		var pairSum float64
		for i := 0; i < half; i++ {
			pairSum += float64(mins[i]+maxs[i]) / 2
		}
		avg := int64(math.Ceil(pairSum / float64(half)))
		if !found || avg > best {
			best = avg
			found = true
		}
		lo += half
		hi -= half
	}
	return best
}
