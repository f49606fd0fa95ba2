package overlay

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// Readout slots, top to bottom. A slot keeps its position when an earlier
// slot is empty.
const (
	SlotAltitude = iota
	SlotLatitude
	SlotLongitude
	SlotAcceleration
	SlotGyroscope
)

var (
	readoutOrigin = image.Pt(20, 20)
	readoutStep   = 20
)

// Readout is one text line of the overlay.
type Readout struct {
	Slot  int
	Label string
	Value float64
}

// Text returns the line as drawn, e.g. "Altitude: 100.0".
func (r Readout) Text() string {
	return r.Label + ": " + FormatValue(r.Value)
}

// Anchor returns the top-left corner of the readout's box.
func (r Readout) Anchor() image.Point {
	return readoutOrigin.Add(image.Pt(0, r.Slot*readoutStep))
}

// FormatValue prints a float the short way but always with a decimal part,
// so 100 prints as "100.0" and 0 as "0.0". Magnitudes outside [1e-4, 1e16)
// use exponent form ("1e+16", "1.5e-05").
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Readouts lists the lines to draw for a snapshot. Fields that were never
// written produce no lines.
func Readouts(snap telemetry.Snapshot) []Readout {
	var out []Readout
	if p := snap.Position; p != nil {
		out = append(out,
			Readout{Slot: SlotAltitude, Label: "Altitude", Value: p.Altitude},
			Readout{Slot: SlotLatitude, Label: "Latitude", Value: p.Latitude},
			Readout{Slot: SlotLongitude, Label: "Longitude", Value: p.Longitude},
		)
	}
	if in := snap.Inertial; in != nil {
		out = append(out,
			Readout{Slot: SlotAcceleration, Label: "Acceleration", Value: in.Acceleration()},
			Readout{Slot: SlotGyroscope, Label: "Gyroscope", Value: in.AngularSpeed()},
		)
	}
	return out
}

// Renderer composes the overlay for one display tick.
type Renderer struct {
	Style   Style
	Compass *Compass

	// Canvas size used until the camera delivers its first frame.
	CanvasWidth  int
	CanvasHeight int
}

// NewRenderer creates a renderer with the default style and compass.
func NewRenderer(canvasWidth, canvasHeight int) *Renderer {
	return &Renderer{
		Style:        DefaultStyle(),
		Compass:      NewCompass(),
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
	}
}

// Render draws the readouts and the compass onto a copy of the snapshot's
// frame and returns the result. The snapshot is not modified.
//
// Without a camera frame the overlay goes on a blank opaque canvas. Without an
// inertial reading the compass shows its labels but no needle.
func (r *Renderer) Render(snap telemetry.Snapshot) (telemetry.Frame, error) {
	var base telemetry.Frame
	if snap.Frame != nil {
		base = snap.Frame.Clone()
	} else {
		base = r.blankCanvas()
	}
	if err := base.Validate(); err != nil {
		return telemetry.Frame{}, fmt.Errorf("overlay: %w", err)
	}

	mat, err := gocv.NewMatFromBytes(base.Height, base.Width, gocv.MatTypeCV8UC4, base.Pix)
	if err != nil {
		return telemetry.Frame{}, fmt.Errorf("overlay: wrap frame: %w", err)
	}
	defer mat.Close()

	r.Draw(&mat, snap)

	return telemetry.Frame{
		Width:  base.Width,
		Height: base.Height,
		Pix:    mat.ToBytes(),
	}, nil
}

// Draw applies the overlay to img in place: readouts first, compass last.
func (r *Renderer) Draw(img *gocv.Mat, snap telemetry.Snapshot) {
	for _, line := range Readouts(snap) {
		DrawBoxedText(img, line.Text(), line.Anchor(), r.Style)
	}

	if snap.Inertial != nil {
		r.Compass.Draw(img, snap.Inertial.Compass, r.Style)
	} else {
		r.Compass.DrawLabels(img, r.Style)
	}
}

func (r *Renderer) blankCanvas() telemetry.Frame {
	f := telemetry.NewFrame(r.CanvasWidth, r.CanvasHeight)
	for i := telemetry.BytesPerPixel - 1; i < len(f.Pix); i += telemetry.BytesPerPixel {
		f.Pix[i] = 255
	}
	return f
}
