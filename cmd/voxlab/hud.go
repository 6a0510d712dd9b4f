package main

import (
	"fmt"
	"image"
	"strings"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/voxlab/pkg/render"
)

// ANSI styling for overlay text.
const (
	reset    = "\x1b[0m"
	bold     = "\x1b[1m"
	dim      = "\x1b[2m"
	bgBlack  = "\x1b[40m"
	fgWhite  = "\x1b[97m"
	fgGreen  = "\x1b[92m"
	fgYellow = "\x1b[93m"
	fgCyan   = "\x1b[96m"
	fgRed    = "\x1b[91m"
)

// overlay is the text the control loop wants drawn over the next frame.
type overlay struct {
	title    string
	status   string
	isError  bool
	info     []string
	hover    []string
	hoverAt  image.Point // terminal cell of the hover marker label
	anchored bool
	settings string
	showHUD  bool
}

// HUD counts frames and draws the overlay over the framebuffer.
type HUD struct {
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD
func NewHUD() *HUD {
	return &HUD{fpsTime: time.Now()}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// frame is one terminal frame: the framebuffer with the overlay on top.
type frame struct {
	fb  *render.Framebuffer
	ov  *overlay
	fps float64
}

var _ uv.Drawable = frame{}

func text(scr uv.Screen, x, y, width int, s string) {
	if width <= 0 {
		return
	}
	uv.NewStyledString(s).Draw(scr, uv.Rect(x, y, width, 1))
}

// Draw implements uv.Drawable.
func (f frame) Draw(scr uv.Screen, area uv.Rectangle) {
	f.fb.Draw(scr, area)
	ov := f.ov
	if ov == nil {
		return
	}
	w, h := area.Dx(), area.Dy()

	if ov.status != "" {
		color := fgWhite
		if ov.isError {
			color = fgRed
		}
		col := max((w-len(ov.status))/2, 0)
		text(scr, area.Min.X+col, area.Min.Y+h/2, w-col, bgBlack+bold+color+" "+ov.status+" "+reset)
	}

	// The hover readout shows with the HUD off too.
	hx, hy := 1, 1
	if ov.anchored {
		widest := 0
		for _, line := range ov.hover {
			widest = max(widest, len(line)+2)
		}
		hx = min(max(ov.hoverAt.X, 0), max(w-widest, 0))
		hy = min(max(ov.hoverAt.Y, 1), max(h-1-len(ov.hover), 1))
	}
	for i, line := range ov.hover {
		text(scr, area.Min.X+hx, area.Min.Y+hy+i, w-hx, bgBlack+fgYellow+" "+line+" "+reset)
	}

	if !ov.showHUD {
		return
	}
	text(scr, area.Min.X, area.Min.Y, 12, fmt.Sprintf("%s%s %.0f FPS %s", bgBlack, fgGreen, f.fps, reset))
	if ov.title != "" {
		col := max((w-len(ov.title)-2)/2, 12)
		text(scr, area.Min.X+col, area.Min.Y, w-col, bold+bgBlack+fgWhite+" "+ov.title+" "+reset)
	}
	for i, line := range ov.info {
		col := max(w-len(line)-2, 0)
		text(scr, area.Min.X+col, area.Min.Y+1+i, w-col, bgBlack+fgCyan+" "+line+" "+reset)
	}
	text(scr, area.Min.X, area.Max.Y-1, w, bgBlack+fgWhite+" "+ov.settings+" "+reset)
	hint := dim + fgYellow + " ? help " + reset
	text(scr, area.Min.X+max(w-9, 0), area.Max.Y-1, 9, bgBlack+hint)
}

const helpText = `Mouse drag   rotate volume
Wheel        zoom
Arrows       orbit camera
[ / ]        quality down / up
- / =        opacity down / up
a            toggle axes
n / p        next / previous volume
r            reset rotation
c            reset camera
R            retry
?            toggle HUD
Esc          quit`

// controlsUsage indents helpText for -help output.
func controlsUsage() string {
	return "  " + strings.ReplaceAll(helpText, "\n", "\n  ")
}
