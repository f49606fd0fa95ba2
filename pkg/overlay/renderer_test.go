package overlay

import (
	"bytes"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

func filledFrame(w, h int, v byte) telemetry.Frame {
	f := telemetry.NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func pixel(f telemetry.Frame, x, y int) []byte {
	i := (y*f.Width + x) * telemetry.BytesPerPixel
	return f.Pix[i : i+telemetry.BytesPerPixel]
}

func anyPixel(f telemetry.Frame, r image.Rectangle, want byte) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := pixel(f, x, y)
			if p[0] == want && p[1] == want && p[2] == want {
				return true
			}
		}
	}
	return false
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in     float64
		expect string
	}{
		{0, "0.0"},
		{100, "100.0"},
		{1, "1.0"},
		{-2, "-2.0"},
		{49.000123, "49.000123"},
		{1234567, "1234567.0"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{1e21, "1e+21"},
		{0.0001, "0.0001"},
		{1.5e-5, "1.5e-05"},
		{math.Copysign(0, -1), "-0.0"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expect, FormatValue(tc.in))
	}
}

func TestReadouts_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Readouts(telemetry.Snapshot{}))
}

func TestReadouts_PositionAndInertial(t *testing.T) {
	snap := telemetry.Snapshot{
		Position: &telemetry.PositionReading{Altitude: 100.0, Latitude: 1.0, Longitude: 2.0},
		Inertial: &telemetry.InertialReading{
			Accelerometer: telemetry.Vector3D{X: 0, Y: 0, Z: 9.81},
			Gyroscope:     telemetry.Vector3D{},
		},
	}

	var lines []string
	for _, r := range Readouts(snap) {
		lines = append(lines, r.Text())
	}

	assert.Equal(t, []string{
		"Altitude: 100.0",
		"Latitude: 1.0",
		"Longitude: 2.0",
		"Acceleration: 0.0",
		"Gyroscope: 0.0",
	}, lines)
}

func TestReadouts_SlotsKeepPosition(t *testing.T) {
	snap := telemetry.Snapshot{Inertial: &telemetry.InertialReading{}}
	lines := Readouts(snap)

	require.Len(t, lines, 2)
	assert.Equal(t, image.Pt(20, 80), lines[0].Anchor())
	assert.Equal(t, image.Pt(20, 100), lines[1].Anchor())
}

func TestDrawBoxedText_Idempotent(t *testing.T) {
	st := DefaultStyle()
	src := filledFrame(200, 60, 90)
	for i := range src.Pix {
		src.Pix[i] = byte(i * 31)
	}

	draw := func(times int) []byte {
		f := src.Clone()
		mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
		require.NoError(t, err)
		defer mat.Close()
		for i := 0; i < times; i++ {
			DrawBoxedText(&mat, "Latitude: 49.123", image.Pt(20, 20), st)
		}
		return mat.ToBytes()
	}

	once := draw(1)
	twice := draw(2)
	assert.True(t, bytes.Equal(once, twice), "second draw changed pixels")
	assert.False(t, bytes.Equal(once, src.Pix), "draw left frame untouched")
}

func TestDrawBoxedText_BoxCoversTextExtent(t *testing.T) {
	st := DefaultStyle()
	box := BoxRect("Altitude: 100.0", image.Pt(20, 20), st)
	size := st.TextSize("Altitude: 100.0")

	assert.Equal(t, image.Pt(20, 20), box.Min)
	assert.Equal(t, size, box.Size())
}

func TestRender_EmptySnapshotDrawsOnlyCompass(t *testing.T) {
	r := NewRenderer(800, 600)

	out, err := r.Render(telemetry.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 600, out.Height)

	// No readout boxes or text in the readout column.
	assert.False(t, anyPixel(out, image.Rect(0, 0, 300, 140), 255))
	// The N label sits above the compass center.
	assert.True(t, anyPixel(out, image.Rect(695, 25, 720, 45), 255))
	// No needle without a heading.
	assert.Equal(t, []byte{0, 0, 0, 255}, pixel(out, 700, 125))
}

func TestRender_DrawsReadoutsAndNeedle(t *testing.T) {
	r := NewRenderer(800, 600)
	frame := filledFrame(800, 600, 128)
	snap := telemetry.Snapshot{
		Frame:    &frame,
		Position: &telemetry.PositionReading{Altitude: 100, Latitude: 1, Longitude: 2},
		Inertial: &telemetry.InertialReading{Compass: 0},
	}

	out, err := r.Render(snap)
	require.NoError(t, err)

	// The top-right corner of every box is solid background.
	lines := Readouts(snap)
	require.Len(t, lines, 5)
	for _, line := range lines {
		box := BoxRect(line.Text(), line.Anchor(), r.Style)
		assert.Equal(t, []byte{0, 0, 0, 255}, pixel(out, box.Max.X-1, box.Min.Y), line.Text())
	}
	// Heading 0 needle runs straight down from the center.
	assert.Equal(t, byte(255), pixel(out, 700, 125)[0])

	// The snapshot's frame is left alone.
	assert.Equal(t, []byte{128, 128, 128, 128}, pixel(frame, 20, 20))
}

func TestRender_AbsentPositionLeavesSlotsEmpty(t *testing.T) {
	r := NewRenderer(800, 600)
	frame := filledFrame(800, 600, 128)
	snap := telemetry.Snapshot{
		Frame:    &frame,
		Inertial: &telemetry.InertialReading{Compass: math.Pi / 2},
	}

	out, err := r.Render(snap)
	require.NoError(t, err)

	assert.Equal(t, []byte{128, 128, 128, 128}, pixel(out, 20, 20))
	accel := Readouts(snap)[0]
	box := BoxRect(accel.Text(), accel.Anchor(), r.Style)
	assert.Equal(t, image.Pt(20, 80), box.Min)
	assert.Equal(t, []byte{0, 0, 0, 255}, pixel(out, box.Max.X-1, box.Min.Y))
	// Needle points right for a quarter turn.
	assert.Equal(t, byte(255), pixel(out, 725, 100)[0])
}

func TestRender_RejectsInconsistentFrame(t *testing.T) {
	r := NewRenderer(800, 600)
	bad := telemetry.Frame{Width: 10, Height: 10, Pix: make([]byte, 10)}

	_, err := r.Render(telemetry.Snapshot{Frame: &bad})
	assert.Error(t, err)
}
