package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fit-coach/coach"
)

const (
	keyEsc = 27
	keyQ   = 'q'
)

// Window is the desktop display. It must be used from the goroutine that
// runs the coach loop because the key polling pumps the window events.
type Window struct {
	win *gocv.Window
}

func NewWindow(title string) *Window {
	return &Window{
		win: gocv.NewWindow(title),
	}
}

// Show displays the frame and returns coach.ErrStopped when the user
// presses ESC or q, or closes the window.
func (w *Window) Show(mat gocv.Mat) error {
	w.win.IMShow(mat)
	key := w.win.WaitKey(1)
	if key == keyEsc || key == keyQ || !w.win.IsOpen() {
		return coach.ErrStopped
	}
	return nil
}

func (w *Window) Close() error {
	return w.win.Close()
}
