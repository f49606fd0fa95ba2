// Package telemetry holds the latest known reading of every sensor stream
// attached to the ego vehicle.
//
// Producers replace whole values; readers take a Snapshot. Values handed to the
// state are never modified again, so a snapshot can be shared without copying.
package telemetry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFrame is returned for frames whose size and pixel buffer disagree.
var ErrInvalidFrame = errors.New("invalid frame")

// BytesPerPixel is the channel count of a Frame (B, G, R, A as the simulator
// delivers it).
const BytesPerPixel = 4

// StandardGravity is subtracted from the accelerometer's vertical axis to get
// the vehicle's own acceleration.
const StandardGravity = 9.81

// Gravity is the gravity vector as the accelerometer reports it at rest.
var Gravity = Vector3D{X: 0, Y: 0, Z: StandardGravity}

// Vector3D is a 3-component vector in simulator coordinates.
type Vector3D struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
	Z float64 `json:"z" cbor:"z"`
}

// Sub returns v - o.
func (v Vector3D) Sub(o Vector3D) Vector3D {
	return Vector3D{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Length returns the Euclidean norm.
func (v Vector3D) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Frame is a camera image: Height rows of Width pixels, 4 bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed (transparent black) frame.
func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// FrameBytes returns the pixel buffer length of a width x height frame. It
// reports false for non-positive dimensions or when the length overflows int.
func FrameBytes(width, height int) (int, bool) {
	if width <= 0 || height <= 0 {
		return 0, false
	}
	if width > math.MaxInt/height/BytesPerPixel {
		return 0, false
	}
	return width * height * BytesPerPixel, true
}

// Validate reports whether the pixel buffer matches the dimensions.
func (f Frame) Validate() error {
	want, ok := FrameBytes(f.Width, f.Height)
	if !ok {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if len(f.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrInvalidFrame, f.Width, f.Height, want, len(f.Pix))
	}
	return nil
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// PositionReading is a GNSS fix. Values pass through from the simulator as-is.
type PositionReading struct {
	Altitude  float64 `json:"altitude" cbor:"altitude"`
	Latitude  float64 `json:"latitude" cbor:"latitude"`
	Longitude float64 `json:"longitude" cbor:"longitude"`
}

// InertialReading is one IMU measurement.
type InertialReading struct {
	Accelerometer Vector3D `json:"accelerometer" cbor:"accelerometer"` // m/s^2
	Gyroscope     Vector3D `json:"gyroscope" cbor:"gyroscope"`         // rad/s
	Compass       float64  `json:"compass" cbor:"compass"`             // heading in [0, 2π), 0 = north
}

// Acceleration returns the magnitude of the acceleration with gravity removed.
func (r InertialReading) Acceleration() float64 {
	return r.Accelerometer.Sub(Gravity).Length()
}

// AngularSpeed returns the magnitude of the angular velocity.
func (r InertialReading) AngularSpeed() float64 {
	return r.Gyroscope.Length()
}
