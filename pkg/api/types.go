// Package api holds the JSON shapes and header names shared by the voxlab
// server and its clients.
package api

import "github.com/taigrr/voxlab/pkg/volume"

// DimsHeader carries the actual "X,Y,Z" dims of a resampled payload.
const DimsHeader = "X-Volume-Dims"

// Resolution bounds applied by the server to /at/{resolution} requests.
const (
	MinResolution = 16
	MaxResolution = 512
)

// VolumeInfo describes one volume without transferring its samples.
type VolumeInfo struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Dimensions       [3]int     `json:"dimensions"`
	LowResDimensions [3]int     `json:"low_res_dimensions"`
	LowResSize       int64      `json:"low_res_size"`
	FullResSize      int64      `json:"full_res_size"`
	ValueRange       [2]float32 `json:"value_range"`
}

// Dims returns the native dimensions.
func (v VolumeInfo) Dims() volume.Dims {
	return volume.Dims{X: v.Dimensions[0], Y: v.Dimensions[1], Z: v.Dimensions[2]}
}

// LowResDims returns the preview dimensions.
func (v VolumeInfo) LowResDims() volume.Dims {
	return volume.Dims{X: v.LowResDimensions[0], Y: v.LowResDimensions[1], Z: v.LowResDimensions[2]}
}

// Range returns the native value range.
func (v VolumeInfo) Range() volume.ValueRange {
	return volume.ValueRange{Min: v.ValueRange[0], Max: v.ValueRange[1]}
}

// VolumeList is the body of GET /api/volumes.
type VolumeList struct {
	Volumes []VolumeInfo `json:"volumes"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status           string   `json:"status"`
	AvailableSamples []string `json:"available_samples"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}

// ClampResolution bounds a requested resolution to
// [MinResolution, MaxResolution].
func ClampResolution(res int) int {
	return min(max(res, MinResolution), MaxResolution)
}
