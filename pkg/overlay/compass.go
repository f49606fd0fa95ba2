package overlay

import (
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// Label is a piece of static text placed at a fixed point.
type Label struct {
	Text string
	At   image.Point
}

// Compass describes where the compass is drawn.
type Compass struct {
	Center image.Point
	// Radius is the needle length.
	Radius int
	// LabelFactor scales Radius to get the distance of the N/E/S/W labels.
	LabelFactor     float64
	NeedleThickness int

	mu       sync.Mutex
	labelKey labelGeometry
	labels   []Label
}

type labelGeometry struct {
	center image.Point
	radius int
	factor float64
}

// NewCompass returns the standard compass in the top-right area of an 800px
// wide frame.
func NewCompass() *Compass {
	return &Compass{
		Center:          image.Pt(700, 100),
		Radius:          50,
		LabelFactor:     1.2,
		NeedleThickness: 2,
	}
}

var cardinals = []struct {
	text   string
	dx, dy float64
}{
	{"N", 0, -1},
	{"E", 1, 0},
	{"S", 0, 1},
	{"W", -1, 0},
}

// Labels returns the four cardinal labels. They are cached until the
// compass geometry changes.
func (c *Compass) Labels() []Label {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelGeometry{center: c.Center, radius: c.Radius, factor: c.LabelFactor}
	if c.labels != nil && key == c.labelKey {
		return c.labels
	}

	dist := c.LabelFactor * float64(c.Radius)
	labels := make([]Label, 0, len(cardinals))
	for _, d := range cardinals {
		labels = append(labels, Label{
			Text: d.text,
			At: image.Pt(
				int(float64(c.Center.X)+dist*d.dx),
				int(float64(c.Center.Y)+dist*d.dy),
			),
		})
	}
	c.labels, c.labelKey = labels, key
	return labels
}

// NeedleEnd returns the needle tip for a heading in radians:
// center + radius*(sin(heading), cos(heading)), in screen coordinates.
func (c *Compass) NeedleEnd(heading float64) image.Point {
	r := float64(c.Radius)
	return image.Pt(
		c.Center.X+int(math.Round(r*math.Sin(heading))),
		c.Center.Y+int(math.Round(r*math.Cos(heading))),
	)
}

// DrawLabels writes the N/E/S/W labels.
func (c *Compass) DrawLabels(img *gocv.Mat, st Style) {
	for _, l := range c.Labels() {
		st.putText(img, l.Text, l.At)
	}
}

// DrawNeedle draws the heading line from the center.
func (c *Compass) DrawNeedle(img *gocv.Mat, heading float64, st Style) {
	gocv.Line(img, c.Center, c.NeedleEnd(heading), st.Foreground, c.NeedleThickness)
}

// Draw draws the labels and the needle.
func (c *Compass) Draw(img *gocv.Mat, heading float64, st Style) {
	c.DrawLabels(img, st)
	c.DrawNeedle(img, heading, st)
}
