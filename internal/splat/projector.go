package splat

import (
	"math"

	"github.com/banshee-data/rtgs.sim/internal/config"
)

// ProjectionParams configures the pinhole camera used by Project.
type ProjectionParams struct {
	Width          int
	Height         int
	FOVDegrees     float64
	CameraDistance float64
	Rounding       string // config.RoundNearest or config.RoundTruncate
}

// ProjectionParamsFromConfig extracts the projection camera from a frame config.
func ProjectionParamsFromConfig(f config.FrameConfig) ProjectionParams {
	return ProjectionParams{
		Width:          f.Width,
		Height:         f.Height,
		FOVDegrees:     f.FOVDegrees,
		CameraDistance: f.CameraDistance,
		Rounding:       f.Rounding,
	}
}

// FocalLength returns the focal length in pixels for the horizontal FOV.
// The degree factor π/180 is rounded to float64 before it scales the FOV.
func (p ProjectionParams) FocalLength() float64 {
	deg := math.Pi
	deg /= 180
	fovRad := p.FOVDegrees * deg
	return float64(p.Width) / (2 * math.Tan(fovRad/2))
}

// Project maps each point to a pixel and buckets point indices per pixel.
// Points at or behind the camera plane (z + camera distance <= 0) are
// dropped. Coordinates are clamped into the frame.
func Project(points []Point3D, p ProjectionParams) PixelBucket {
	bucket := make(PixelBucket)
	focal := p.FocalLength()
	halfW := float64(p.Width) / 2
	halfH := float64(p.Height) / 2

	toPixel := math.Round
	if p.Rounding == config.RoundTruncate {
		toPixel = math.Trunc
	}

	for i, pt := range points {
		zProj := pt.Z + p.CameraDistance
		if zProj <= 0 {
			continue
		}
		u := clampPixel(toPixel(pt.X*focal/zProj+halfW), p.Width)
		v := clampPixel(toPixel(pt.Y*focal/zProj+halfH), p.Height)
		bucket.Add(Pixel{U: u, V: v}, i)
	}
	return bucket
}

// clampPixel clamps in float space so out-of-range values never hit an
// implementation-defined float to int conversion.
func clampPixel(x float64, size int) int {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if limit := float64(size - 1); x > limit {
		return size - 1
	}
	return int(x)
}
