package preview

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pointcast/internal/pointing"
)

// KeyEscape is the key code that cancels the run from the preview window.
const KeyEscape = 27

// Window shows annotated frames and watches for ESC. HighGUI must be driven
// from the main OS thread, so Window is only used from the goroutine running
// the acquisition loop.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a preview window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Observe displays frame with the analysis drawn on a copy.
func (w *Window) Observe(frame gocv.Mat, a pointing.Analysis) {
	if frame.Empty() {
		return
	}
	img := frame.Clone()
	defer img.Close()

	Annotate(&img, a)
	w.win.IMShow(img)
}

// Wait pumps the window's event loop for up to d and reports whether the run
// should stop: ESC was pressed, the window was closed, or ctx is done.
func (w *Window) Wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return true
	}

	ms := int(d / time.Millisecond)
	if ms < 1 {
		ms = 1
	}

	if w.win.WaitKey(ms) == KeyEscape {
		return true
	}
	if !w.win.IsOpen() {
		return true
	}
	return ctx.Err() != nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
