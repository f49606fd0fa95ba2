package sensor

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// Producer converts measurements of one kind and writes them to a sink.
type Producer interface {
	Kind() Kind
	Handle(Measurement) error
	Counters() Counters
}

// Counters reports how many measurements a producer accepted and rejected.
type Counters struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
}

type counters struct {
	accepted atomic.Uint64
	rejected atomic.Uint64
}

func (c *counters) Counters() Counters {
	return Counters{Accepted: c.accepted.Load(), Rejected: c.rejected.Load()}
}

// Camera stores camera images as frames.
type Camera struct {
	sink telemetry.Sink
	counters
}

// NewCamera creates a camera producer.
func NewCamera(sink telemetry.Sink) *Camera {
	return &Camera{sink: sink}
}

// Kind implements Producer.
func (c *Camera) Kind() Kind { return KindCamera }

// Handle validates the image and replaces the stored frame with a copy of it.
// A malformed image leaves the previous frame in place.
func (c *Camera) Handle(m Measurement) error {
	img, ok := m.(*Image)
	if !ok {
		return reject(&c.counters, m)
	}
	if img == nil {
		c.rejected.Add(1)
		return ErrNilPayload
	}

	want, ok := telemetry.FrameBytes(img.Width, img.Height)
	if !ok {
		c.rejected.Add(1)
		return fmt.Errorf("%w: invalid size %dx%d", ErrBufferSize, img.Width, img.Height)
	}
	if len(img.RawData) != want {
		c.rejected.Add(1)
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrBufferSize, img.Width, img.Height, want, len(img.RawData))
	}

	// The simulator may reuse its buffer after the callback returns.
	pix := make([]byte, want)
	copy(pix, img.RawData)

	c.sink.UpdateFrame(telemetry.Frame{Width: img.Width, Height: img.Height, Pix: pix})
	c.accepted.Add(1)
	return nil
}

// GNSS stores geolocation fixes as position readings.
type GNSS struct {
	sink telemetry.Sink
	counters
}

// NewGNSS creates a GNSS producer.
func NewGNSS(sink telemetry.Sink) *GNSS {
	return &GNSS{sink: sink}
}

// Kind implements Producer.
func (g *GNSS) Kind() Kind { return KindGNSS }

// Handle replaces the stored position.
func (g *GNSS) Handle(m Measurement) error {
	fix, ok := m.(*GNSSMeasurement)
	if !ok {
		return reject(&g.counters, m)
	}
	if fix == nil {
		g.rejected.Add(1)
		return ErrNilPayload
	}

	g.sink.UpdatePosition(telemetry.PositionReading{
		Altitude:  fix.Altitude,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
	})
	g.accepted.Add(1)
	return nil
}

// IMU stores inertial measurements.
type IMU struct {
	sink telemetry.Sink
	counters
}

// NewIMU creates an IMU producer.
func NewIMU(sink telemetry.Sink) *IMU {
	return &IMU{sink: sink}
}

// Kind implements Producer.
func (u *IMU) Kind() Kind { return KindIMU }

// Handle replaces the stored inertial reading.
func (u *IMU) Handle(m Measurement) error {
	meas, ok := m.(*IMUMeasurement)
	if !ok {
		return reject(&u.counters, m)
	}
	if meas == nil {
		u.rejected.Add(1)
		return ErrNilPayload
	}

	u.sink.UpdateInertial(telemetry.InertialReading{
		Accelerometer: meas.Accelerometer,
		Gyroscope:     meas.Gyroscope,
		Compass:       meas.Compass,
	})
	u.accepted.Add(1)
	return nil
}

func reject(c *counters, m Measurement) error {
	c.rejected.Add(1)
	if m == nil {
		return ErrNilPayload
	}
	return fmt.Errorf("%w: %T", ErrUnexpectedPayload, m)
}

// Listener adapts a producer to a simulator callback.
//
// Errors are logged and dropped. A panic inside the producer is recovered and
// logged the same way, so the calling goroutine keeps running.
func Listener(p Producer, logger *slog.Logger) func(Measurement) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(m Measurement) {
		if err := safeHandle(p, m); err != nil {
			logger.Warn("sensor payload rejected",
				"sensor", p.Kind().String(),
				"error", err,
			)
		}
	}
}

func safeHandle(p Producer, m Measurement) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return p.Handle(m)
}
