package viewer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/taigrr/voxlab/pkg/api"
	"github.com/taigrr/voxlab/pkg/client"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/render"
	"github.com/taigrr/voxlab/pkg/server"
	"github.com/taigrr/voxlab/pkg/store"
	"github.com/taigrr/voxlab/pkg/volume"
)

func init() {
	logging.SetLogMode(logging.SilentMode)
}

type fetch struct {
	kind client.Kind
	id   string
	res  int
}

// fakeSource records requests and delivers whatever the test queues.
type fakeSource struct {
	next    client.RequestID
	fetches []fetch
	queued  []client.Result
}

func (s *fakeSource) FetchVolumes() client.RequestID {
	s.next++
	s.fetches = append(s.fetches, fetch{kind: client.KindList})
	return s.next
}

func (s *fakeSource) FetchVolume(info api.VolumeInfo, res int) client.RequestID {
	s.next++
	s.fetches = append(s.fetches, fetch{kind: client.KindVolume, id: info.ID, res: res})
	return s.next
}

func (s *fakeSource) Poll() []client.Result {
	out := s.queued
	s.queued = nil
	return out
}

func (s *fakeSource) deliver(r client.Result) { s.queued = append(s.queued, r) }

var testInfos = []api.VolumeInfo{
	{ID: "a", Name: "a", Dimensions: [3]int{5, 5, 5}, ValueRange: [2]float32{0, 3}},
	{ID: "b", Name: "b", Dimensions: [3]int{4, 4, 4}, ValueRange: [2]float32{0, 1}},
	{ID: "c", Name: "c", Dimensions: [3]int{2, 2, 2}, ValueRange: [2]float32{0, 1}},
}

func newFakeApp(t *testing.T, opts Options) (*App, *fakeSource, *render.Exchange) {
	t.Helper()
	src := &fakeSource{}
	x := render.NewExchange()
	return NewApp(src, x, opts), src, x
}

func listed(t *testing.T, opts Options) (*App, *fakeSource, *render.Exchange) {
	t.Helper()
	a, src, x := newFakeApp(t, opts)
	src.deliver(client.Result{Kind: client.KindList, Volumes: testInfos})
	a.Poll()
	return a, src, x
}

func TestAppFetchesListOnStart(t *testing.T) {
	a, src, _ := newFakeApp(t, Options{})
	if len(src.fetches) != 1 || src.fetches[0].kind != client.KindList {
		t.Fatalf("fetches = %+v, want one list fetch", src.fetches)
	}
	if got := a.Status(); got != StatusLoadingList {
		t.Errorf("Status() = %q, want %q", got, StatusLoadingList)
	}

	src.deliver(client.Result{Kind: client.KindList, Volumes: testInfos})
	a.Poll()
	if len(a.Volumes()) != 3 || a.Loading() {
		t.Errorf("after list: %d volumes, loading %v", len(a.Volumes()), a.Loading())
	}
	if got := a.Status(); got != StatusSelect {
		t.Errorf("Status() = %q, want %q", got, StatusSelect)
	}
}

func TestAppListErrorAndRetry(t *testing.T) {
	a, src, _ := newFakeApp(t, Options{})
	src.deliver(client.Result{Kind: client.KindList, Err: client.ErrNetwork})
	a.Poll()

	if !errors.Is(a.Err(), client.ErrNetwork) {
		t.Errorf("Err() = %v, want ErrNetwork", a.Err())
	}
	if s := a.Status(); !strings.Contains(s, "retry") {
		t.Errorf("Status() = %q, want a retry hint", s)
	}

	a.Retry()
	if n := len(src.fetches); n != 2 || src.fetches[1].kind != client.KindList {
		t.Fatalf("fetches after Retry = %+v", src.fetches)
	}
	if a.Err() != nil {
		t.Errorf("Err() after Retry = %v, want nil", a.Err())
	}
	src.deliver(client.Result{Kind: client.KindList})
	a.Poll()
	if got := a.Status(); got != StatusNoVolumes {
		t.Errorf("Status() = %q, want %q", got, StatusNoVolumes)
	}
}

func TestAppSelectAndLoad(t *testing.T) {
	a, src, x := listed(t, Options{Resolution: 64})
	if err := a.Select("a"); err != nil {
		t.Fatal(err)
	}
	last := src.fetches[len(src.fetches)-1]
	if last != (fetch{kind: client.KindVolume, id: "a", res: 64}) {
		t.Errorf("fetch = %+v", last)
	}
	if got := a.Status(); got != StatusLoading {
		t.Errorf("Status() = %q, want %q", got, StatusLoading)
	}
	if p := a.Frame(1); p.HasVolume {
		t.Error("HasVolume before the volume arrived")
	}

	f := volume.SingleVoxel(volume.Dims{X: 5, Y: 5, Z: 5}, 2, 2, 2, 3)
	src.deliver(client.Result{Kind: client.KindVolume, VolumeID: "a", Field: f})
	p := a.Frame(1.5)
	if !p.HasVolume || p.ValueRange != f.Range || p.Aspect != 1.5 {
		t.Errorf("params = %+v", p)
	}
	if a.Loaded() != "a" || a.Status() != "" {
		t.Errorf("Loaded() = %q, Status() = %q", a.Loaded(), a.Status())
	}
	if got := x.Snapshot(); got != p {
		t.Error("Frame did not publish its params")
	}
	if got := x.Take(); got != f {
		t.Error("loaded volume not offered to the renderer")
	}
	if lines := a.SelectionLines(); len(lines) == 0 || lines[1] != "Dimensions: 5x5x5" {
		t.Errorf("SelectionLines() = %q", lines)
	}

	if err := a.Select("nope"); err == nil {
		t.Error("Select of an unknown id succeeded")
	}
}

func TestAppVolumeErrorKeepsPrevious(t *testing.T) {
	a, src, _ := listed(t, Options{})
	a.Select("a")
	f := volume.Sphere(volume.Dims{X: 4, Y: 4, Z: 4})
	src.deliver(client.Result{Kind: client.KindVolume, VolumeID: "a", Field: f})
	a.Poll()

	a.Select("b")
	src.deliver(client.Result{Kind: client.KindVolume, VolumeID: "b", Err: client.ErrNetwork})
	a.Poll()

	if a.Field() != f || a.Loaded() != "a" {
		t.Error("failed load replaced the rendered volume")
	}
	if !a.Params(1).HasVolume {
		t.Error("previous volume stopped rendering")
	}
	if s := a.Status(); !strings.Contains(s, "Failed to load volume") || !strings.Contains(s, "retry") {
		t.Errorf("Status() = %q", s)
	}

	n := len(src.fetches)
	a.Retry()
	if len(src.fetches) != n+1 || src.fetches[n].id != "b" {
		t.Errorf("Retry fetched %+v, want volume b again", src.fetches[n:])
	}
}

func TestAppInitialVolume(t *testing.T) {
	tests := []struct {
		name    string
		volume  string
		fetched bool
	}{
		{"present", "b", true},
		{"absent", "zzz", false},
		{"none", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, src, _ := listed(t, Options{Volume: tt.volume})
			last := src.fetches[len(src.fetches)-1]
			if got := last.kind == client.KindVolume; got != tt.fetched {
				t.Fatalf("volume fetched = %v, want %v", got, tt.fetched)
			}
			if tt.fetched && a.Selected() != tt.volume {
				t.Errorf("Selected() = %q", a.Selected())
			}
			if tt.volume == "zzz" && a.Err() == nil {
				t.Error("unknown initial volume reported no error")
			}
		})
	}
}

func TestAppSelectNext(t *testing.T) {
	a, _, _ := listed(t, Options{})
	steps := []struct {
		delta int
		want  string
	}{
		{1, "a"},
		{1, "b"},
		{1, "c"},
		{1, "a"},
		{-1, "c"},
		{-2, "a"},
	}
	for _, s := range steps {
		if err := a.SelectNext(s.delta); err != nil {
			t.Fatal(err)
		}
		if a.Selected() != s.want {
			t.Errorf("SelectNext(%d) selected %q, want %q", s.delta, a.Selected(), s.want)
		}
	}

	empty, _, _ := newFakeApp(t, Options{})
	if err := empty.SelectNext(1); err == nil {
		t.Error("SelectNext with no volumes succeeded")
	}
}

func TestAppCycleLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	logging.SetLogMode(logging.DebugMode)
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		logging.SetLogMode(logging.SilentMode)
	})

	empty, _, _ := newFakeApp(t, Options{})
	empty.Cycle(1)
	if !strings.Contains(buf.String(), "no volumes to select") {
		t.Errorf("log = %q, want the selection error", buf.String())
	}

	buf.Reset()
	a, _, _ := listed(t, Options{})
	a.Cycle(-1)
	if a.Selected() != "c" {
		t.Errorf("Cycle(-1) selected %q, want c", a.Selected())
	}
	if strings.Contains(buf.String(), "cycle volumes") {
		t.Errorf("successful cycle logged %q", buf.String())
	}
}

func TestAppSettings(t *testing.T) {
	a, _, _ := newFakeApp(t, Options{})
	p := a.Params(1)
	if p.StepSize != render.StepSizeForQuality(DefaultQuality) || p.Opacity != 1 || !p.ShowAxes {
		t.Errorf("default params = %+v", p)
	}

	a.AdjustQuality(10)
	a.AdjustOpacity(-0.25)
	a.ToggleAxes()
	p = a.Params(1)
	if math.Abs(p.StepSize-render.MinStepSize) > 1e-12 {
		t.Errorf("StepSize at full quality = %v, want %v", p.StepSize, render.MinStepSize)
	}
	if p.Opacity != 0.75 || p.ShowAxes {
		t.Errorf("Opacity = %v, ShowAxes = %v", p.Opacity, p.ShowAxes)
	}
	a.AdjustOpacity(-5)
	if a.Opacity != 0 {
		t.Errorf("Opacity = %v, want clamped to 0", a.Opacity)
	}
	if !strings.Contains(a.SettingsLine(), "axes off") {
		t.Errorf("SettingsLine() = %q", a.SettingsLine())
	}
}

func TestAppDragAndInertia(t *testing.T) {
	a, _, _ := newFakeApp(t, Options{})
	a.BeginDrag()
	a.Drag(10, 0)
	want := a.Rotation.Quat()

	// Held: frames do not add rotation.
	for range 5 {
		a.Frame(1)
	}
	if a.Rotation.Quat() != want {
		t.Error("rotation changed while the drag was held")
	}

	a.EndDrag()
	a.Frame(1)
	if a.Rotation.Quat() == want {
		t.Error("released drag did not coast")
	}
	for range 600 {
		a.Frame(1)
	}
	settled := a.Rotation.Quat()
	a.Frame(1)
	if a.Rotation.Quat() != settled {
		t.Error("inertia never came to rest")
	}
	if l := settled.Len(); math.Abs(l-1) > 1e-9 {
		t.Errorf("|q| = %v after coasting", l)
	}

	a.BeginDrag()
	a.Drag(5, 5)
	a.EndDrag()
	a.ResetRotation()
	a.Frame(1)
	if a.Rotation.Quat() != math3d.QuatIdentity() {
		t.Error("ResetRotation did not stop the spin")
	}
}

func TestAppScrollEases(t *testing.T) {
	tests := []struct {
		name   string
		scroll float64
		want   float64
	}{
		{"in", 100, 1},
		{"out", -300, 5},
		{"clamped in", 10000, render.MinDistance},
		{"clamped out", -10000, render.MaxDistance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newFakeApp(t, Options{})
			a.Scroll(tt.scroll)
			a.Frame(1)
			if a.Camera.Distance == render.DefaultDistance {
				t.Error("first frame did not move the camera")
			}
			for range 600 {
				a.Frame(1)
			}
			if math.Abs(a.Camera.Distance-tt.want) > 1e-3 {
				t.Errorf("Distance = %v, want %v", a.Camera.Distance, tt.want)
			}
		})
	}
}

func TestAppHover(t *testing.T) {
	a, src, _ := listed(t, Options{})
	if h := a.Hover(0, 0); h.Valid {
		t.Error("hover hit without a volume")
	}

	a.Select("a")
	src.deliver(client.Result{
		Kind:     client.KindVolume,
		VolumeID: "a",
		Field:    volume.SingleVoxel(volume.Dims{X: 5, Y: 5, Z: 5}, 2, 2, 2, 3),
	})
	a.Frame(1)

	h := a.Hover(0, 0)
	if !h.Valid || h.Voxel != [3]int{2, 2, 2} {
		t.Fatalf("Hover(0,0) = %+v, want voxel (2,2,2)", h)
	}
	lines := a.HoverLines()
	if len(lines) != 4 || lines[0] != "Voxel: (2, 2, 2)" || lines[2] != "Intensity: 100.0%" {
		t.Errorf("HoverLines() = %q", lines)
	}

	a.ClearHover()
	if a.HoverLines() != nil {
		t.Error("HoverLines() after ClearHover")
	}
	if h := a.Hover(0.95, 0.95); h.Valid {
		t.Errorf("corner hover = %+v, want a miss", h)
	}
}

func TestAppOrbitAndResetCamera(t *testing.T) {
	a, _, _ := newFakeApp(t, Options{})
	a.Orbit(math.Pi/2, 0)
	if got := a.Params(1).CameraPosition; !got.ApproxEqual(math3d.V3(2, 0, 0), 1e-9) {
		t.Errorf("camera at %v after a quarter orbit", got)
	}
	a.Scroll(100)
	a.ResetCamera()
	for range 10 {
		a.Frame(1)
	}
	if a.Camera.Distance != render.DefaultDistance {
		t.Errorf("Distance = %v after ResetCamera", a.Camera.Distance)
	}
}

// TestAppWithServer drives the App through a real loader and server.
func TestAppWithServer(t *testing.T) {
	dir := t.TempDir()
	fields := map[string]*volume.Field{
		"ball": volume.Sphere(volume.Dims{X: 16, Y: 16, Z: 16}),
	}
	if err := os.WriteFile(filepath.Join(dir, "ball.nc"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	read := func(path string) (*volume.Field, error) {
		return fields[store.VolumeID(path)], nil
	}
	s, err := store.Open(context.Background(), dir, store.Options{PreviewSize: 16, Read: read})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.New(s, server.DefaultConfig().Server))
	defer ts.Close()

	l := client.NewLoader(context.Background(), client.New(ts.URL))
	defer l.Close()
	x := render.NewExchange()
	a := NewApp(l, x, Options{Volume: "ball"})

	deadline := time.Now().Add(5 * time.Second)
	for !a.HasVolume() {
		if time.Now().After(deadline) {
			t.Fatalf("volume never loaded; status %q", a.Status())
		}
		a.Frame(1)
		time.Sleep(5 * time.Millisecond)
	}
	if a.Loaded() != "ball" || a.Field().Dims != fields["ball"].Dims {
		t.Errorf("loaded %q with dims %v", a.Loaded(), a.Field().Dims)
	}
	if _, f := x.Frame(); f == nil {
		t.Error("renderer was not offered the volume")
	}
}
