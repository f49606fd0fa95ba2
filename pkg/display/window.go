package display

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

const keyEscape = 27

// KeyFromCode maps a key code from the window to an event. q, Q and Esc quit.
func KeyFromCode(code int) KeyEvent {
	switch code {
	case 'q', 'Q', keyEscape:
		return KeyQuit
	default:
		return KeyNone
	}
}

// Window is a Surface backed by an OpenCV highgui window.
type Window struct {
	win *gocv.Window
	// Delay is the key poll wait in milliseconds.
	Delay int
}

// NewWindow opens a window with the given title.
func NewWindow(name string) *Window {
	return &Window{win: gocv.NewWindow(name), Delay: 1}
}

// Present shows the frame.
func (w *Window) Present(f telemetry.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return fmt.Errorf("wrap frame: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	return nil
}

// PollKey waits briefly for a key press.
func (w *Window) PollKey() KeyEvent {
	return KeyFromCode(w.win.WaitKey(w.Delay))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
