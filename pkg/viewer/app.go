// Package viewer holds the control-loop state of a volume viewer: the volume
// list, the selection and its loading state, the camera and volume rotation,
// and the hover readout. Front-ends feed it input events and call Frame once
// per frame; the render loop reads what Frame publishes from an Exchange.
package viewer

import (
	"fmt"
	"slices"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/client"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/render"
	"github.com/taigrr/voxlab/pkg/volume"
)

// ScrollSensitivity converts one scroll unit into camera distance.
const ScrollSensitivity = 0.01

// Defaults for a fresh viewer.
const (
	DefaultQuality = 0.5
	DefaultOpacity = 1.0
	DefaultFPS     = 60
)

// Source issues background fetches and returns their current results.
// *client.Loader implements it.
type Source interface {
	FetchVolumes() client.RequestID
	FetchVolume(info api.VolumeInfo, res int) client.RequestID
	Poll() []client.Result
}

// Options configure an App.
type Options struct {
	// Resolution is passed to FetchVolume: client.ResolutionFull,
	// client.ResolutionPreview or a target longest axis.
	Resolution int

	// FPS is the rate Frame is called at, used to time inertia and zoom
	// easing. Zero means DefaultFPS.
	FPS int

	// Volume is selected as soon as the list arrives, if present.
	Volume string
}

// App is the viewer state owned by the control loop. It is not safe for
// concurrent use; only the Exchange crosses to the render loop.
type App struct {
	src      Source
	exchange *render.Exchange
	opts     Options

	volumes     []api.VolumeInfo
	listLoading bool
	listErr     error

	selected      string
	loaded        string
	loadingVolume bool
	volumeErr     error

	field *volume.Field // CPU copy for picking
	hover render.HoverInfo

	Camera   *render.Camera
	Rotation render.RotationState
	inertia  Inertia
	zoom     Zoom

	Quality  float64
	Opacity  float64
	ShowAxes bool
}

// NewApp returns an App publishing to x and starts fetching the volume
// list.
func NewApp(src Source, x *render.Exchange, opts Options) *App {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	cam := render.NewCamera()
	a := &App{
		src:      src,
		exchange: x,
		opts:     opts,
		Camera:   cam,
		inertia:  NewInertia(opts.FPS),
		zoom:     NewZoom(opts.FPS, cam.Distance),
		Quality:  DefaultQuality,
		Opacity:  DefaultOpacity,
		ShowAxes: true,
	}
	a.RefreshVolumes()
	return a
}

// RefreshVolumes refetches the volume list, clearing a previous error.
func (a *App) RefreshVolumes() {
	a.listLoading = true
	a.listErr = nil
	a.src.FetchVolumes()
}

// Retry repeats whatever last failed: the list, or the selected volume.
func (a *App) Retry() {
	switch {
	case a.listErr != nil || len(a.volumes) == 0:
		a.RefreshVolumes()
	case a.volumeErr != nil && a.selected != "":
		a.Select(a.selected)
	}
}

// Volumes returns the known volumes in server order.
func (a *App) Volumes() []api.VolumeInfo { return a.volumes }

// Selected returns the selected volume id, which may still be loading.
func (a *App) Selected() string { return a.selected }

// Loaded returns the id of the volume being rendered.
func (a *App) Loaded() string { return a.loaded }

// Loading reports whether a list or volume fetch is outstanding.
func (a *App) Loading() bool { return a.listLoading || a.loadingVolume }

// Err returns the most recent fetch error, or nil.
func (a *App) Err() error {
	if a.listErr != nil {
		return a.listErr
	}
	return a.volumeErr
}

// HasVolume reports whether a volume has been handed to the renderer.
func (a *App) HasVolume() bool { return a.field != nil }

// Field returns the CPU copy of the rendered volume, or nil.
func (a *App) Field() *volume.Field { return a.field }

// HoverInfo returns the last pick result.
func (a *App) HoverInfo() render.HoverInfo { return a.hover }

func (a *App) info(id string) (api.VolumeInfo, bool) {
	i := slices.IndexFunc(a.volumes, func(v api.VolumeInfo) bool { return v.ID == id })
	if i < 0 {
		return api.VolumeInfo{}, false
	}
	return a.volumes[i], true
}

// Selection returns the metadata of the selected volume.
func (a *App) Selection() (api.VolumeInfo, bool) {
	return a.info(a.selected)
}

// Select starts loading volume id. The current volume keeps rendering until
// the new one arrives.
func (a *App) Select(id string) error {
	info, ok := a.info(id)
	if !ok {
		return fmt.Errorf("select %q: unknown volume", id)
	}
	a.selected = id
	a.loadingVolume = true
	a.volumeErr = nil
	a.src.FetchVolume(info, a.opts.Resolution)
	logging.Debugf("selected volume %s (%s)", id, info.Dims())
	return nil
}

// SelectNext moves the selection by delta places, wrapping around.
func (a *App) SelectNext(delta int) error {
	n := len(a.volumes)
	if n == 0 {
		return fmt.Errorf("no volumes to select")
	}
	i := slices.IndexFunc(a.volumes, func(v api.VolumeInfo) bool { return v.ID == a.selected })
	if i < 0 {
		if delta < 0 {
			i = 0
		} else {
			i = -1
		}
	}
	i = ((i+delta)%n + n) % n
	return a.Select(a.volumes[i].ID)
}

// Cycle is SelectNext for key bindings: a failure is logged at debug level
// and otherwise ignored.
func (a *App) Cycle(delta int) {
	if err := a.SelectNext(delta); err != nil {
		logging.Debugf("cycle volumes by %d: %v", delta, err)
	}
}

// Poll applies the fetch results that have arrived.
func (a *App) Poll() {
	for _, r := range a.src.Poll() {
		switch r.Kind {
		case client.KindList:
			a.applyList(r)
		case client.KindVolume:
			a.applyVolume(r)
		}
	}
}

func (a *App) applyList(r client.Result) {
	a.listLoading = false
	if r.Err != nil {
		a.listErr = r.Err
		logging.Warningf("listing volumes: %v", r.Err)
		return
	}
	a.listErr = nil
	a.volumes = r.Volumes
	logging.Infof("server has %d volumes", len(r.Volumes))
	if a.selected == "" && a.opts.Volume != "" {
		if err := a.Select(a.opts.Volume); err != nil {
			a.volumeErr = err
		}
	}
}

func (a *App) applyVolume(r client.Result) {
	a.loadingVolume = false
	if r.Err != nil {
		a.volumeErr = r.Err
		logging.Warningf("loading volume %s: %v", r.VolumeID, r.Err)
		return
	}
	a.volumeErr = nil
	a.field = r.Field
	a.loaded = r.VolumeID
	a.hover = render.HoverInfo{}
	if a.exchange.Offer(r.Field) {
		logging.Debugf("volume %s replaced one the renderer had not applied", r.VolumeID)
	}
	logging.Infof("loaded volume %s (%s)", r.VolumeID, r.Field.Dims)
}

// BeginDrag starts a rotation drag.
func (a *App) BeginDrag() { a.inertia.Grab() }

// Drag rotates the volume by a screen-space drag of (dx, dy) pixels.
func (a *App) Drag(dx, dy float64) {
	a.Rotation.Drag(dx, dy)
	a.inertia.Track(dx, dy)
}

// EndDrag releases the volume, which coasts to a stop.
func (a *App) EndDrag() { a.inertia.Release() }

// ResetRotation returns the volume to the identity orientation.
func (a *App) ResetRotation() {
	a.inertia.Stop()
	a.Rotation.Reset()
}

// SetEulerDegrees replaces the volume rotation.
func (a *App) SetEulerDegrees(x, y, z float64) {
	a.inertia.Stop()
	a.Rotation.SetEulerDegrees(x, y, z)
}

// Scroll zooms by delta scroll units; positive moves closer.
func (a *App) Scroll(delta float64) {
	a.zoom.Scroll(delta * ScrollSensitivity)
}

// Orbit turns the camera around the volume.
func (a *App) Orbit(dYaw, dPitch float64) {
	a.Camera.Rotate(dYaw, dPitch)
}

// ResetCamera restores the default orbit.
func (a *App) ResetCamera() {
	a.Camera.Reset()
	a.zoom.Target = a.Camera.Distance
}

// Hover picks the voxel under the NDC point (x, y). The result is kept for
// HoverInfo and Status.
func (a *App) Hover(ndcX, ndcY float64) render.HoverInfo {
	if a.field == nil {
		a.hover = render.HoverInfo{}
		return a.hover
	}
	p := render.Picker{Field: a.field, Rotation: a.Rotation.Matrix()}
	a.hover = p.PickRay(a.Camera.ScreenRay(ndcX, ndcY))
	return a.hover
}

// ClearHover forgets the last pick, as when the cursor leaves the view.
func (a *App) ClearHover() { a.hover = render.HoverInfo{} }

// AdjustQuality adds d to the quality, clamped to [0,1].
func (a *App) AdjustQuality(d float64) {
	a.Quality = min(max(a.Quality+d, 0), 1)
}

// AdjustOpacity adds d to the opacity, clamped to [0,1].
func (a *App) AdjustOpacity(d float64) {
	a.Opacity = min(max(a.Opacity+d, 0), 1)
}

// ToggleAxes shows or hides the axis gizmo.
func (a *App) ToggleAxes() { a.ShowAxes = !a.ShowAxes }

// Params builds the render snapshot for a viewport of the given aspect
// ratio.
func (a *App) Params(aspect float64) render.RenderParams {
	a.Camera.SetAspectRatio(aspect)
	p := render.RenderParams{
		CameraPosition: a.Camera.Position(),
		ViewProj:       a.Camera.ViewProjectionMatrix(),
		Aspect:         aspect,
		StepSize:       render.StepSizeForQuality(a.Quality),
		ValueRange:     volume.ValueRange{Min: 0, Max: 1},
		Rotation:       a.Rotation.Matrix(),
		Opacity:        a.Opacity,
		ShowAxes:       a.ShowAxes,
		HasVolume:      a.field != nil,
	}
	if a.field != nil {
		p.ValueRange = a.field.Range
	}
	return p
}

// Frame is the once-per-frame entry point: it applies arrived results,
// advances inertia and zoom easing, and publishes the render snapshot.
func (a *App) Frame(aspect float64) render.RenderParams {
	a.Poll()
	a.inertia.Step(&a.Rotation)
	a.zoom.Step(a.Camera)
	p := a.Params(aspect)
	a.exchange.Publish(p)
	return p
}
