package simulate

import (
	"fmt"

	"github.com/banshee-data/rtgs.sim/internal/fsutil"
	"github.com/banshee-data/rtgs.sim/internal/monitoring"
	"github.com/banshee-data/rtgs.sim/internal/splat"
)

// LoadPointCloud reads and decodes a point cloud file. Any read or decode
// failure is fatal for the caller; nothing is returned partially.
func LoadPointCloud(fsys fsutil.FileSystem, path string) ([]splat.Point3D, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read point cloud: %w", err)
	}
	points, err := splat.DecodePointCloud(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// ProjectFile loads a point cloud and projects it into a pixel bucket.
func ProjectFile(fsys fsutil.FileSystem, path string, p splat.ProjectionParams) (splat.PixelBucket, error) {
	points, err := LoadPointCloud(fsys, path)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("loaded %d points from %s", len(points), path)
	return splat.Project(points, p), nil
}

// TransformStats summarises a transform.
type TransformStats struct {
	Points         int   `json:"points"`
	OccupiedPixels int   `json:"occupied_pixels"`
	Gaussians      int64 `json:"gaussians"`
}

// Transform converts a point cloud file into the simulator input format.
func Transform(fsys fsutil.FileSystem, input, output string, p splat.ProjectionParams) (TransformStats, error) {
	points, err := LoadPointCloud(fsys, input)
	if err != nil {
		return TransformStats{}, err
	}
	bucket := splat.Project(points, p)
	if err := splat.SavePixels(fsys, output, bucket); err != nil {
		return TransformStats{}, err
	}
	return TransformStats{
		Points:         len(points),
		OccupiedPixels: bucket.OccupiedPixels(),
		Gaussians:      bucket.TotalGaussians(),
	}, nil
}
