package viewer

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Status texts shown over the viewport.
const (
	StatusSelect      = "Select a volume"
	StatusLoading     = "Loading volume..."
	StatusLoadingList = "Loading volumes..."
	StatusNoVolumes   = "Server has no volumes"
	retryHint         = "press R to retry"
)

// Status returns the message to show over the viewport, or "" when the
// volume is rendering normally. Errors take precedence over progress.
func (a *App) Status() string {
	switch {
	case a.listErr != nil:
		return fmt.Sprintf("Failed to load volumes: %v (%s)", a.listErr, retryHint)
	case a.volumeErr != nil:
		return fmt.Sprintf("Failed to load volume: %v (%s)", a.volumeErr, retryHint)
	case a.loadingVolume:
		return StatusLoading
	case a.listLoading:
		return StatusLoadingList
	case a.field != nil:
		return ""
	case len(a.volumes) == 0:
		return StatusNoVolumes
	}
	return StatusSelect
}

// SelectionLines describes the selected volume.
func (a *App) SelectionLines() []string {
	info, ok := a.Selection()
	if !ok {
		return nil
	}
	return []string{
		info.Name,
		fmt.Sprintf("Dimensions: %dx%dx%d", info.Dimensions[0], info.Dimensions[1], info.Dimensions[2]),
		fmt.Sprintf("Value range: %.2f - %.2f", info.ValueRange[0], info.ValueRange[1]),
		fmt.Sprintf("Size: %s", humanize.Bytes(uint64(info.FullResSize))),
	}
}

// HoverLines describes the voxel under the cursor, or nil when nothing
// was hit.
func (a *App) HoverLines() []string {
	h := a.hover
	if !h.Valid {
		return nil
	}
	return []string{
		fmt.Sprintf("Voxel: (%d, %d, %d)", h.Voxel[0], h.Voxel[1], h.Voxel[2]),
		fmt.Sprintf("Value: %.4f", h.Value),
		fmt.Sprintf("Intensity: %.1f%%", h.Normalized*100),
		fmt.Sprintf("Pos: (%.2f, %.2f, %.2f)", h.Position.X, h.Position.Y, h.Position.Z),
	}
}

// SettingsLine summarizes the adjustable render settings.
func (a *App) SettingsLine() string {
	x, y, z := a.Rotation.EulerDegrees()
	axes := "off"
	if a.ShowAxes {
		axes = "on"
	}
	return fmt.Sprintf("rot %.0f° %.0f° %.0f°  quality %.2f  opacity %.2f  axes %s", x, y, z, a.Quality, a.Opacity, axes)
}
