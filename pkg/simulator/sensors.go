package simulator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-simview/pkg/sensor"
	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// Default camera resolution, matching the stock RGB camera blueprint.
const (
	DefaultImageWidth  = 800
	DefaultImageHeight = 600
)

// Default sensor periods. Each sensor runs on its own clock.
const (
	DefaultGNSSPeriod = 100 * time.Millisecond
	DefaultIMUPeriod  = 20 * time.Millisecond
)

// Sensor is an actor that streams measurements once someone listens.
type Sensor struct {
	*Actor
	Kind sensor.Kind

	// Period between measurements. Zero means one per world tick interval.
	Period time.Duration

	// Camera resolution; ignored by other kinds.
	ImageWidth  int
	ImageHeight int

	// ctl serializes Listen and Stop so a stream is never started while
	// another call waits for the old one.
	ctl  sync.Mutex
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

var sensorKinds = map[string]sensor.Kind{
	"sensor.camera.rgb": sensor.KindCamera,
	"sensor.other.gnss": sensor.KindGNSS,
	"sensor.other.imu":  sensor.KindIMU,
}

// SpawnSensor spawns a sensor attached to parent.
func (w *World) SpawnSensor(bp Blueprint, t Transform, parent *Actor) (*Sensor, error) {
	kind, ok := sensorKinds[bp.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a sensor", ErrUnknownBlueprint, bp.ID)
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: sensor %s needs a parent", ErrSpawnFailed, bp.ID)
	}

	a, err := w.SpawnActor(bp, t, parent)
	if err != nil {
		return nil, err
	}

	s := &Sensor{Actor: a, Kind: kind}
	switch kind {
	case sensor.KindCamera:
		s.ImageWidth, s.ImageHeight = DefaultImageWidth, DefaultImageHeight
	case sensor.KindGNSS:
		s.Period = DefaultGNSSPeriod
	case sensor.KindIMU:
		s.Period = DefaultIMUPeriod
	}
	return s, nil
}

// Listen starts delivering measurements to cb on the sensor's own goroutine.
// Calling Listen again replaces the callback. Safe for concurrent use; at most
// one stream runs at a time.
func (s *Sensor) Listen(cb func(sensor.Measurement)) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.IsAlive() {
		return fmt.Errorf("%w: sensor %s is destroyed", ErrClosed, s.DisplayID())
	}

	s.halt()

	period := s.Period
	if period <= 0 {
		period = s.world.tickInterval()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stop := make(chan struct{})
	s.stop = stop

	s.wg.Add(1)
	go s.stream(period, stop, cb)
	return nil
}

// IsListening reports whether the sensor is streaming.
func (s *Sensor) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Stop halts the stream and waits for the last callback to return.
func (s *Sensor) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt()
}

// halt closes the current stream and waits for it. Callers hold ctl.
func (s *Sensor) halt() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	s.wg.Wait()
}

// Destroy stops the sensor and removes it from the world.
func (s *Sensor) Destroy() bool {
	s.Stop()
	return s.Actor.Destroy()
}

func (s *Sensor) stream(period time.Duration, stop <-chan struct{}, cb func(sensor.Measurement)) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.world.done:
			return
		case <-ticker.C:
			if !s.IsAlive() || (s.parent != nil && !s.parent.IsAlive()) {
				return
			}
			cb(s.measure())
		}
	}
}

// measure reads the parent vehicle's state and builds a measurement.
func (s *Sensor) measure() sensor.Measurement {
	st := s.world.vehicleStateOf(s.Actor)
	yaw := st.transform.Rotation.Yaw * math.Pi / 180

	switch s.Kind {
	case sensor.KindGNSS:
		lat, lon, alt := s.world.geo.Geolocate(st.transform.Location)
		return &sensor.GNSSMeasurement{
			FrameNumber: st.frame,
			Altitude:    alt,
			Latitude:    lat,
			Longitude:   lon,
		}

	case sensor.KindIMU:
		// Rotate the world-frame acceleration into the vehicle frame.
		ax := st.accel.X*math.Cos(yaw) + st.accel.Y*math.Sin(yaw)
		ay := -st.accel.X*math.Sin(yaw) + st.accel.Y*math.Cos(yaw)
		return &sensor.IMUMeasurement{
			FrameNumber:   st.frame,
			Accelerometer: telemetry.Vector3D{X: ax, Y: ay, Z: st.accel.Z + telemetry.StandardGravity},
			Gyroscope:     telemetry.Vector3D{Z: st.yawRate},
			Compass:       Compass(yaw),
		}

	default:
		return &sensor.Image{
			FrameNumber: st.frame,
			Width:       s.ImageWidth,
			Height:      s.ImageHeight,
			RawData:     synthesizeImage(s.ImageWidth, s.ImageHeight, Compass(yaw), st.frame),
		}
	}
}

// Compass converts a world yaw in radians (0 = +x, east) to a heading in
// [0, 2π) with 0 = north (-y) increasing clockwise.
func Compass(yaw float64) float64 {
	h := math.Mod(yaw+math.Pi/2, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// synthesizeImage paints a BGRA road scene that scrolls with the heading.
func synthesizeImage(width, height int, heading float64, frame uint64) []byte {
	raw := make([]byte, width*height*telemetry.BytesPerPixel)
	horizon := height * 9 / 20
	shift := int(heading / (2 * math.Pi) * float64(width*4))
	dash := int(frame % 20)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * telemetry.BytesPerPixel
			var b, g, r byte
			if y < horizon {
				t := float64(y) / float64(horizon)
				b, g, r = 235, byte(190+40*t), byte(130+80*t)
				if ((x+shift)/60)%5 == 0 && y > horizon-25 {
					b, g, r = 70, 90, 70 // tree line
				}
			} else {
				depth := float64(y-horizon) / float64(height-horizon)
				grey := byte(70 + 50*depth)
				b, g, r = grey, grey, grey
				center := width / 2
				half := int(depth * float64(width) * 0.45)
				if x < center-half || x > center+half {
					b, g, r = 60, byte(110+30*depth), 70 // verge
				} else if abs(x-center) < 3 && ((y+dash)/10)%2 == 0 {
					b, g, r = 240, 240, 240 // lane marking
				}
			}
			raw[i], raw[i+1], raw[i+2], raw[i+3] = b, g, r, 255
		}
	}
	return raw
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
