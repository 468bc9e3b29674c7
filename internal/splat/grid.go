package splat

import (
	"fmt"
)

// CountMap is the padded per-pixel Gaussian count grid, row-major by v.
// Width and Height are the padded dimensions; cells outside the unpadded
// frame are always zero.
type CountMap struct {
	Width       int
	Height      int
	FrameWidth  int
	FrameHeight int
	Cells       []int32
}

// padTo returns the padding that brings n up to a multiple of tile.
func padTo(n, tile int) int {
	return (tile - n%tile) % tile
}

// BuildCountMap sizes the map to the next tile multiple in each dimension and
// stores the bucket length of each pixel. Pixels outside the padded map are
// an ErrBadPixels; the first such pixel in row-major order is reported.
func BuildCountMap(pixels PixelBucket, width, height, tileW, tileH int) (*CountMap, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: frame must be at least 1x1, got %dx%d", ErrInvalidTiling, width, height)
	}
	if tileW < 1 || tileH < 1 {
		return nil, fmt.Errorf("%w: tile must be at least 1x1, got %dx%d", ErrInvalidTiling, tileW, tileH)
	}

	cm := &CountMap{
		Width:       width + padTo(width, tileW),
		Height:      height + padTo(height, tileH),
		FrameWidth:  width,
		FrameHeight: height,
	}
	cm.Cells = make([]int32, cm.Width*cm.Height)

	for _, p := range pixels.SortedPixels() {
		if p.U < 0 || p.U >= cm.Width || p.V < 0 || p.V >= cm.Height {
			return nil, fmt.Errorf("%w: pixel %s outside %dx%d map", ErrBadPixels, p.Key(), cm.Width, cm.Height)
		}
		cm.Cells[p.V*cm.Width+p.U] = int32(len(pixels[p]))
	}
	return cm, nil
}

// At returns the count at column u, row v.
func (cm *CountMap) At(u, v int) int32 {
	return cm.Cells[v*cm.Width+u]
}

// Total returns the sum of every cell before any downsampling.
func (cm *CountMap) Total() int64 {
	var total int64
	for _, c := range cm.Cells {
		total += int64(c)
	}
	return total
}
