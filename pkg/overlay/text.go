package overlay

import (
	"image"

	"gocv.io/x/gocv"
)

// BoxRect returns the background rectangle DrawBoxedText fills for text
// anchored at the top-left point at.
func BoxRect(text string, at image.Point, st Style) image.Rectangle {
	size := st.TextSize(text)
	return image.Rect(at.X, at.Y, at.X+size.X, at.Y+size.Y)
}

// DrawBoxedText fills a box covering the text extent at the given top-left
// corner and writes the text on top of it. Drawing the same text twice gives
// the same pixels as drawing it once.
func DrawBoxedText(img *gocv.Mat, text string, at image.Point, st Style) image.Rectangle {
	box := BoxRect(text, at, st)
	gocv.Rectangle(img, box, st.Background, -1)

	// Baseline sits on the bottom edge of the box.
	baseline := image.Pt(at.X, int(float64(box.Max.Y)+st.Scale-1))
	st.putText(img, text, baseline)
	return box
}
