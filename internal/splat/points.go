package splat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPointCloud is wrapped by every point cloud decoding failure.
var ErrBadPointCloud = errors.New("malformed point cloud")

// Point3D is one scene point in world coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// pointRecord keeps coordinates as pointers so missing fields are detectable.
type pointRecord struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type pointCloudFile struct {
	Vertex *[]pointRecord `json:"vertex"`
}

// DecodePointCloud parses a point cloud document of the form
// {"vertex": [{"x": .., "y": .., "z": ..}, ...]}. Extra per-vertex fields are
// ignored. A missing "vertex" field or a record without all three
// coordinates is an ErrBadPointCloud; nothing is returned on error.
func DecodePointCloud(data []byte) ([]Point3D, error) {
	var doc pointCloudFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPointCloud, err)
	}
	if doc.Vertex == nil {
		return nil, fmt.Errorf("%w: missing \"vertex\" field", ErrBadPointCloud)
	}

	records := *doc.Vertex
	points := make([]Point3D, len(records))
	for i, r := range records {
		if r.X == nil || r.Y == nil || r.Z == nil {
			return nil, fmt.Errorf("%w: vertex %d is missing a coordinate", ErrBadPointCloud, i)
		}
		points[i] = Point3D{X: *r.X, Y: *r.Y, Z: *r.Z}
	}
	return points, nil
}
