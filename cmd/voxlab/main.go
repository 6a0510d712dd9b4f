// voxlab - Terminal Volume Viewer
// Browse and ray-march the scalar volumes served by voxlab-server in your
// terminal.
//
// Controls:
//
//	Mouse drag  - Rotate volume
//	Mouse move  - Show the voxel under the cursor
//	Scroll      - Zoom in/out
//	Arrows      - Orbit camera
//	[ / ]       - Lower/raise quality
//	- / =       - Lower/raise opacity
//	A           - Toggle axes
//	N / P       - Next/previous volume
//	r           - Reset rotation
//	c           - Reset camera
//	R           - Retry a failed load
//	?           - Toggle HUD overlay
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/voxlab/pkg/client"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/render"
	"github.com/taigrr/voxlab/pkg/viewer"
)

var (
	serverURL  = flag.String("server", client.DefaultBaseURL, "voxlab-server base URL")
	targetFPS  = flag.Int("fps", 30, "Target FPS")
	volumeID   = flag.String("volume", "", "Volume to open on start")
	resolution = flag.String("resolution", "full", "Volume resolution: full, preview or a longest-axis size")
	exportPath = flag.String("export-occupancy", "", "Write the volume's occupancy grid as GLB to this path and exit")
	snapPath   = flag.String("snapshot", "", "Render the volume to this PNG path and exit")
	snapSize   = flag.String("snapshot-size", "640x480", "Snapshot size as WIDTHxHEIGHT")
	logPath    = flag.String("logfile", "", "Write logs to this file while the viewer runs")
	logLevel   = flag.String("log", "info", "Log level: debug, info, warning, error, critical or silent")
	orbitStep  = flag.Float64("orbit-step", 0.1, "Camera orbit per arrow key press, in radians")
	wheelUnits = flag.Float64("wheel", 25, "Scroll units per wheel notch")
)

// cellPixels approximates the pixel width of one terminal cell, so a drag
// across the terminal rotates about as far as the same drag in a window.
const cellPixels = 8

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "voxlab - Terminal Volume Viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: voxlab [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n%s\n", controlsUsage())
	}
	flag.Parse()

	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(1)
	}
	mode, err := logging.ParseMode(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logging.SetLogMode(mode)
	res, err := client.ParseResolution(*resolution)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*serverURL)
	switch {
	case *exportPath != "":
		err = exportOccupancy(ctx, c, *volumeID, res, *exportPath)
	case *snapPath != "":
		var w, h int
		if _, serr := fmt.Sscanf(*snapSize, "%dx%d", &w, &h); serr != nil || w <= 0 || h <= 0 {
			fmt.Fprintf(os.Stderr, "Error: bad -snapshot-size %q\n", *snapSize)
			os.Exit(2)
		}
		err = snapshot(ctx, c, *volumeID, res, *snapPath, w, h)
	default:
		err = run(ctx, c, viewer.Options{Resolution: res, FPS: *targetFPS, Volume: *volumeID})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// frameRequest asks the render loop to draw what was just published to the
// Exchange at the given terminal size.
type frameRequest struct {
	cols, rows int
}

// screen is the part of *uv.Terminal the render loop drives. Only the
// render goroutine touches it once the loop has started.
type screen interface {
	Erase()
	Resize(width, height int) error
	Draw(d uv.Drawable)
	Display() error
}

// shared is the overlay state the control loop hands to the render loop.
type shared struct {
	ov     atomic.Pointer[overlay]
	marker atomic.Pointer[math3d.Vec3] // world-space hover point
	bounds atomic.Bool                 // outline the volume cube
}

func run(ctx context.Context, c *client.Client, opts viewer.Options) error {
	if opts.FPS <= 0 {
		opts.FPS = viewer.DefaultFPS
	}

	if *logPath != "" {
		lc := logging.LogConfig{Logfile: *logPath}
		lc.SetLogger()
		defer logging.Shutdown()
	} else {
		logging.SetOutput(io.Discard)
	}

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loader := client.NewLoader(ctx, c)
	defer loader.Close()
	exchange := render.NewExchange()
	app := viewer.NewApp(loader, exchange, opts)

	var sh shared
	frames := make(chan frameRequest, 1)
	renderErr := make(chan error, 1)
	go func() {
		renderErr <- renderLoop(term, exchange, &sh, frames, width, height)
	}()
	defer func() {
		close(frames)
		<-renderErr
		logging.Debugf("viewer done: %d volumes superseded before upload, %d stale results dropped",
			exchange.Dropped(), loader.Stale())
	}()

	var (
		showHUD    = true
		mouseDown  bool
		lastX      int
		lastY      int
		hoverX     = -1
		hoverY     = -1
		fbW, fbH   = render.TerminalFramebufferSize(width, height)
		ticker     = time.NewTicker(time.Second / time.Duration(opts.FPS))
		events     = term.Events()
		handleKeys = func(ev uv.KeyPressEvent) bool {
			switch {
			case ev.MatchString("escape", "ctrl+c", "q"):
				return false
			case ev.MatchString("left"):
				app.Orbit(-*orbitStep, 0)
			case ev.MatchString("right"):
				app.Orbit(*orbitStep, 0)
			case ev.MatchString("up"):
				app.Orbit(0, *orbitStep)
			case ev.MatchString("down"):
				app.Orbit(0, -*orbitStep)
			case ev.MatchString("["):
				app.AdjustQuality(-0.1)
			case ev.MatchString("]"):
				app.AdjustQuality(0.1)
			case ev.MatchString("-", "_"):
				app.AdjustOpacity(-0.1)
			case ev.MatchString("=", "+"):
				app.AdjustOpacity(0.1)
			case ev.MatchString("a"):
				app.ToggleAxes()
			case ev.MatchString("n"):
				app.Cycle(1)
			case ev.MatchString("p"):
				app.Cycle(-1)
			case ev.MatchString("r"):
				app.ResetRotation()
			case ev.MatchString("c"):
				app.ResetCamera()
			case ev.MatchString("R", "shift+r"):
				app.Retry()
			case ev.MatchString("?", "shift+/"):
				showHUD = !showHUD
			}
			return true
		}
	)
	defer ticker.Stop()

	hover := func() {
		if hoverX < 0 || !app.HasVolume() {
			app.ClearHover()
			return
		}
		// A cell covers two framebuffer rows; aim at its middle.
		nx, ny := render.ScreenToNDC(float64(hoverX)+0.5, float64(2*hoverY)+1, fbW, fbH)
		app.Hover(nx, ny)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-renderErr:
			// The deferred drain must not block on a loop that already exited.
			renderErr <- err
			return err

		case ev := <-events:
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				// The render loop resizes the screen when the next frame
				// request carries the new size.
				width, height = ev.Width, ev.Height
				fbW, fbH = render.TerminalFramebufferSize(width, height)

			case uv.KeyPressEvent:
				if !handleKeys(ev) {
					return nil
				}

			case uv.MouseClickEvent:
				if ev.Button == uv.MouseLeft {
					mouseDown = true
					lastX, lastY = ev.X, ev.Y
					app.BeginDrag()
				}

			case uv.MouseReleaseEvent:
				if mouseDown {
					mouseDown = false
					app.EndDrag()
				}

			case uv.MouseMotionEvent:
				hoverX, hoverY = ev.X, ev.Y
				if mouseDown {
					dx := float64(ev.X-lastX) * cellPixels
					dy := float64(ev.Y-lastY) * 2 * cellPixels
					app.Drag(dx, dy)
					lastX, lastY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					app.Scroll(*wheelUnits)
				case uv.MouseWheelDown:
					app.Scroll(-*wheelUnits)
				}
			}

		case <-ticker.C:
			p := app.Frame(float64(fbW) / float64(fbH))
			hover()
			publishOverlay(&sh, app, p, fbW, fbH, showHUD)
			select {
			case frames <- frameRequest{cols: width, rows: height}:
			default:
				// The render loop is behind; it will pick up the newest
				// snapshot from the Exchange next time.
			}
		}
	}
}

// publishOverlay snapshots the App's text and hover state for the render
// loop.
func publishOverlay(sh *shared, app *viewer.App, p render.RenderParams, fbW, fbH int, showHUD bool) {
	ov := &overlay{
		title:    app.Loaded(),
		status:   app.Status(),
		isError:  app.Err() != nil,
		info:     app.SelectionLines(),
		hover:    app.HoverLines(),
		settings: app.SettingsLine(),
		showHUD:  showHUD,
	}
	sh.bounds.Store(app.Loading() && !p.HasVolume)

	if h := app.HoverInfo(); h.Valid {
		w := render.VolumeToWorld(h.Position, p.Rotation)
		sh.marker.Store(&w)
		// Label the marker from just right of it.
		if x, y, _, ok := app.Camera.WorldToScreen(w, fbW, fbH); ok {
			ov.hoverAt = image.Pt(int(x)+2, int(y)/2)
			ov.anchored = true
		}
	} else {
		sh.marker.Store(nil)
	}
	sh.ov.Store(ov)
}

// renderLoop owns the engine, its device and the screen for the life of the
// viewer. It draws one frame per request until frames is closed, resizing
// the screen first whenever a request differs from the cols x rows it last
// drew at.
func renderLoop(term screen, x *render.Exchange, sh *shared, frames <-chan frameRequest, cols, rows int) error {
	dev := render.NewSoftDevice(1, 1)
	engine := render.NewEngine()
	if err := engine.Initialize(dev); err != nil {
		return fmt.Errorf("initialize renderer: %w", err)
	}
	defer func() {
		engine.Destroy()
		if n := dev.Live(); n != 0 {
			logging.Warningf("%d device resources outlived the engine", n)
		}
	}()

	hud := NewHUD()
	var drawErr error
	for req := range frames {
		if req.cols != cols || req.rows != rows {
			cols, rows = req.cols, req.rows
			term.Erase()
			if err := term.Resize(cols, rows); err != nil {
				logging.Warningf("resize screen to %dx%d: %v", cols, rows, err)
			}
		}
		w, h := render.TerminalFramebufferSize(req.cols, req.rows)
		dev.Viewport(w, h)
		dev.Clear(render.ColorBackground)

		if err := engine.DrawFrame(x); err != nil {
			// Keep drawing; a bad volume upload leaves the previous one bound.
			if drawErr == nil || err.Error() != drawErr.Error() {
				logging.Errorf("draw frame: %v", err)
			}
			drawErr = err
		} else {
			drawErr = nil
		}

		p := x.Snapshot()
		fb := dev.Framebuffer()
		wire := render.NewWireframe(p.ViewProj, fb)
		if sh.bounds.Load() {
			wire.DrawVolumeBounds(p.Rotation, render.ColorGray)
		}
		if m := sh.marker.Load(); m != nil {
			wire.DrawPoint(*m, 0.06, render.ColorYellow)
		}

		hud.UpdateFPS()
		term.Draw(frame{fb: fb, ov: sh.ov.Load(), fps: hud.fps})
		if err := term.Display(); err != nil {
			// Drain so the control loop never blocks on a dead renderer.
			go func() {
				for range frames {
				}
			}()
			return fmt.Errorf("display: %w", err)
		}
	}
	return nil
}
