// Package splat turns a point cloud into accelerator work items.
//
// Responsibilities: perspective projection of 3D points onto pixel buckets,
// the padded per-pixel count map, per-tile workload statistics under the
// strided downsampling policy, and greedy distribution of tile workloads
// across processing elements (PEs).
// Key types: Point3D, PixelBucket, CountMap, TileStats, Schedule.
//
// Everything here is a pure transformation over in-memory data. File IO for
// the simulator intermediate format lives in pixels.go and only touches the
// filesystem through fsutil.FileSystem.
package splat
