package splat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/rtgs.sim/internal/fsutil"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
)

// ErrBadPixels is wrapped by every simulator-input decoding failure.
var ErrBadPixels = errors.New("malformed simulator input")

// Pixel is an integer pixel coordinate.
type Pixel struct {
	U int
	V int
}

// Key returns the "<u>_<v>" form used by the simulator input format.
func (p Pixel) Key() string {
	return strconv.Itoa(p.U) + "_" + strconv.Itoa(p.V)
}

// ParsePixelKey parses a "<u>_<v>" key.
func ParsePixelKey(key string) (Pixel, error) {
	us, vs, ok := strings.Cut(key, "_")
	if !ok {
		return Pixel{}, fmt.Errorf("%w: pixel key %q is not <u>_<v>", ErrBadPixels, key)
	}
	u, err := strconv.Atoi(us)
	if err != nil {
		return Pixel{}, fmt.Errorf("%w: pixel key %q: %v", ErrBadPixels, key, err)
	}
	v, err := strconv.Atoi(vs)
	if err != nil {
		return Pixel{}, fmt.Errorf("%w: pixel key %q: %v", ErrBadPixels, key, err)
	}
	return Pixel{U: u, V: v}, nil
}

// PixelBucket maps a pixel to the Gaussian indices that land on it, in
// insertion order. Only the length of each list matters downstream.
type PixelBucket map[Pixel][]int

// Add appends a Gaussian index to the pixel's bucket.
func (b PixelBucket) Add(p Pixel, gaussian int) {
	b[p] = append(b[p], gaussian)
}

// TotalGaussians returns the number of indices across all buckets.
func (b PixelBucket) TotalGaussians() int64 {
	var total int64
	for _, idx := range b {
		total += int64(len(idx))
	}
	return total
}

// OccupiedPixels returns the number of pixels holding at least one index.
func (b PixelBucket) OccupiedPixels() int {
	n := 0
	for _, idx := range b {
		if len(idx) > 0 {
			n++
		}
	}
	return n
}

// simulatorInput is the on-disk intermediate format.
type simulatorInput struct {
	Pixels map[string]json.RawMessage `json:"pixels"`
}

// EncodePixels renders the bucket as {"pixels": {"u_v": [...]}} with sorted
// keys and two-space indentation, so identical buckets encode identically.
func EncodePixels(b PixelBucket) ([]byte, error) {
	out := struct {
		Pixels map[string][]int `json:"pixels"`
	}{Pixels: make(map[string][]int, len(b))}
	for p, idx := range b {
		if idx == nil {
			idx = []int{}
		}
		out.Pixels[p.Key()] = idx
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode pixels: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodePixels parses the simulator input format. The "pixels" object is
// required. A value that is not a list contributes zero occupancy and is
// skipped.
func DecodePixels(data []byte) (PixelBucket, error) {
	var doc simulatorInput
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPixels, err)
	}
	if doc.Pixels == nil {
		return nil, fmt.Errorf("%w: missing \"pixels\" object", ErrBadPixels)
	}

	bucket := make(PixelBucket, len(doc.Pixels))
	for key, raw := range doc.Pixels {
		p, err := ParsePixelKey(key)
		if err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			continue
		}
		var idx []int
		if err := json.Unmarshal(trimmed, &idx); err != nil {
			return nil, fmt.Errorf("%w: pixel %q: %v", ErrBadPixels, key, err)
		}
		if len(idx) > 0 {
			bucket[p] = idx
		}
	}
	return bucket, nil
}

// LoadPixels reads a simulator input file. A missing file yields an empty
// bucket, the same as {"pixels": {}}.
func LoadPixels(fsys fsutil.FileSystem, path string) (PixelBucket, error) {
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		monitoring.Logf("simulator input %s not found, using empty pixel map", path)
		return make(PixelBucket), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read simulator input: %w", err)
	}
	return DecodePixels(data)
}

// SavePixels writes the bucket in the simulator input format.
func SavePixels(fsys fsutil.FileSystem, path string, b PixelBucket) error {
	data, err := EncodePixels(b)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(fsys, path); err != nil {
		return fmt.Errorf("failed to write simulator input: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write simulator input: %w", err)
	}
	return nil
}

// SortedPixels returns the occupied pixels in row-major (v, then u) order.
func (b PixelBucket) SortedPixels() []Pixel {
	pixels := make([]Pixel, 0, len(b))
	for p := range b {
		pixels = append(pixels, p)
	}
	sort.Slice(pixels, func(i, j int) bool {
		if pixels[i].V != pixels[j].V {
			return pixels[i].V < pixels[j].V
		}
		return pixels[i].U < pixels[j].U
	})
	return pixels
}
