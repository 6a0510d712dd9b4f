//go:build gl

// voxlab-gl is the OpenGL front end of the volume viewer. It shows the
// same App as the terminal viewer in a GLFW window and ray-marches on the
// GPU. Build with -tags gl.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/taigrr/voxlab/pkg/client"
	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/render"
	"github.com/taigrr/voxlab/pkg/render/gldevice"
	"github.com/taigrr/voxlab/pkg/viewer"
)

var (
	serverURL  = flag.String("server", client.DefaultBaseURL, "voxlab-server base URL")
	targetFPS  = flag.Int("fps", viewer.DefaultFPS, "Target FPS")
	volumeID   = flag.String("volume", "", "Volume to open on start")
	resolution = flag.String("resolution", "full", "Volume resolution: full, preview or a longest-axis size")
	logLevel   = flag.String("log", "info", "Log level: debug, info, warning, error, critical or silent")
	winWidth   = flag.Int("width", 1024, "Window width")
	winHeight  = flag.Int("height", 768, "Window height")
)

func init() {
	// GL calls must come from the main thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()

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

	opts := viewer.Options{Resolution: res, FPS: *targetFPS, Volume: *volumeID}
	if err := run(ctx, client.New(*serverURL), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, opts viewer.Options) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(*winWidth, *winHeight, "voxlab", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	dev, err := gldevice.New()
	if err != nil {
		return err
	}
	engine := render.NewEngine()
	if err := engine.Initialize(dev); err != nil {
		return fmt.Errorf("initialize renderer: %w", err)
	}
	defer engine.Destroy()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loader := client.NewLoader(ctx, c)
	defer loader.Close()
	exchange := render.NewExchange()
	app := viewer.NewApp(loader, exchange, opts)

	bindInput(window, app, cancel)

	ticker := time.NewTicker(time.Second / time.Duration(max(opts.FPS, 1)))
	defer ticker.Stop()
	title := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		glfw.PollEvents()
		if window.ShouldClose() {
			return nil
		}

		fw, fh := window.GetFramebufferSize()
		if fw == 0 || fh == 0 {
			// minimized
			continue
		}
		app.Frame(float64(fw) / float64(fh))
		dev.Viewport(fw, fh)
		dev.Clear(render.ColorBackground)
		if err := engine.DrawFrame(exchange); err != nil {
			logging.Errorf("draw frame: %v", err)
		}
		window.SwapBuffers()

		if t := windowTitle(app); t != title {
			window.SetTitle(t)
			title = t
		}
	}
}

// windowTitle puts the status, selection and hover readout in the title
// bar, the window having no text overlay of its own.
func windowTitle(app *viewer.App) string {
	parts := []string{"voxlab"}
	if s := app.Status(); s != "" {
		parts = append(parts, s)
	} else if id := app.Loaded(); id != "" {
		parts = append(parts, id)
	}
	parts = append(parts, app.HoverLines()...)
	return strings.Join(parts, " | ")
}

// bindInput routes window events into app.
func bindInput(w *glfw.Window, app *viewer.App, quit func()) {
	var (
		dragging     bool
		lastX, lastY float64
	)
	w.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			dragging = true
			lastX, lastY = w.GetCursorPos()
			app.BeginDrag()
		case glfw.Release:
			dragging = false
			app.EndDrag()
		}
	})
	w.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if dragging {
			app.Drag(x-lastX, y-lastY)
			lastX, lastY = x, y
		}
		width, height := w.GetSize()
		nx, ny := render.ScreenToNDC(x, y, width, height)
		app.Hover(nx, ny)
	})
	w.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if !entered {
			app.ClearHover()
		}
	})
	w.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		// One wheel notch is about 100 scroll units in a browser.
		app.Scroll(yoff * 100)
	})
	w.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		switch key {
		case glfw.KeyEscape:
			quit()
		case glfw.KeyLeft:
			app.Orbit(-0.1, 0)
		case glfw.KeyRight:
			app.Orbit(0.1, 0)
		case glfw.KeyUp:
			app.Orbit(0, 0.1)
		case glfw.KeyDown:
			app.Orbit(0, -0.1)
		case glfw.KeyLeftBracket:
			app.AdjustQuality(-0.1)
		case glfw.KeyRightBracket:
			app.AdjustQuality(0.1)
		case glfw.KeyMinus:
			app.AdjustOpacity(-0.1)
		case glfw.KeyEqual:
			app.AdjustOpacity(0.1)
		case glfw.KeyA:
			app.ToggleAxes()
		case glfw.KeyN:
			app.Cycle(1)
		case glfw.KeyP:
			app.Cycle(-1)
		case glfw.KeyC:
			app.ResetCamera()
		case glfw.KeyR:
			if mods&glfw.ModShift != 0 {
				app.Retry()
			} else {
				app.ResetRotation()
			}
		}
	})
}
