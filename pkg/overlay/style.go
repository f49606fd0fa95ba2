// Package overlay draws telemetry readouts and a compass onto camera frames.
//
// Drawing goes through OpenCV (gocv). Frames are BGRA; the colors used here are
// black and white so channel order never matters.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Style is the text appearance shared by every overlay element.
type Style struct {
	Font       gocv.HersheyFont
	Scale      float64
	Thickness  int
	Foreground color.RGBA
	Background color.RGBA
}

var (
	ColorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorBlack = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// DefaultStyle is white Hershey complex text on a black box.
func DefaultStyle() Style {
	return Style{
		Font:       gocv.FontHersheyComplex,
		Scale:      0.5,
		Thickness:  1,
		Foreground: ColorWhite,
		Background: ColorBlack,
	}
}

// TextSize returns the rendered extent of text in pixels.
func (s Style) TextSize(text string) image.Point {
	return gocv.GetTextSize(text, s.Font, s.Scale, s.Thickness)
}

func (s Style) putText(img *gocv.Mat, text string, org image.Point) {
	gocv.PutTextWithParams(img, text, org, s.Font, s.Scale, s.Foreground, s.Thickness, gocv.Line8, false)
}
