// Package sensor turns raw simulator measurements into telemetry values.
//
// Each producer handles one sensor kind. The simulator calls producers on its
// own goroutines with no ordering between sensors; a producer never lets an
// error or panic escape into the caller.
package sensor

import "github.com/teslashibe/go-simview/pkg/telemetry"

// Kind identifies a sensor type.
type Kind int

const (
	KindCamera Kind = iota
	KindGNSS
	KindIMU
)

// String returns the blueprint-style name of the sensor kind.
func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera.rgb"
	case KindGNSS:
		return "other.gnss"
	case KindIMU:
		return "other.imu"
	default:
		return "unknown"
	}
}

// Measurement is one reading delivered by a simulator sensor.
type Measurement interface {
	Kind() Kind
}

// Image is a raw camera capture: Height rows of Width BGRA pixels.
type Image struct {
	FrameNumber uint64
	Width       int
	Height      int
	RawData     []byte
}

// Kind implements Measurement.
func (*Image) Kind() Kind { return KindCamera }

// GNSSMeasurement is a geolocation fix.
type GNSSMeasurement struct {
	FrameNumber uint64
	Altitude    float64
	Latitude    float64
	Longitude   float64
}

// Kind implements Measurement.
func (*GNSSMeasurement) Kind() Kind { return KindGNSS }

// IMUMeasurement is an inertial reading.
type IMUMeasurement struct {
	FrameNumber   uint64
	Accelerometer telemetry.Vector3D
	Gyroscope     telemetry.Vector3D
	Compass       float64
}

// Kind implements Measurement.
func (*IMUMeasurement) Kind() Kind { return KindIMU }
