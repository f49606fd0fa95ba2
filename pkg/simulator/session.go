package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-simview/pkg/sensor"
)

// EgoBlueprint is the vehicle the viewer rides in.
const EgoBlueprint = "vehicle.tesla.model3"

// Sensor mounts relative to the ego vehicle.
var (
	CameraMount = Transform{Location: Location{X: -1.5, Y: 0, Z: 2.5}, Rotation: Rotation{Pitch: -5}}
	GNSSMount   = Transform{}
	IMUMount    = Transform{}
)

// SessionConfig controls what a session spawns.
type SessionConfig struct {
	// Traffic is how many extra autopilot vehicles to try to spawn.
	Traffic int
	// FixedDelta is applied to the world for the session's lifetime.
	FixedDelta time.Duration
}

// DefaultSessionConfig returns ten traffic vehicles at 30 steps per second.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Traffic:    10,
		FixedDelta: time.Second / 30,
	}
}

// Session owns everything spawned for one viewer run: the ego vehicle,
// traffic, and the camera, GNSS and IMU sensors.
type Session struct {
	ID uuid.UUID

	client   *Client
	world    *World
	logger   *slog.Logger
	original Settings

	vehicle *Actor
	traffic int
	sensors map[sensor.Kind]*Sensor

	teardownOnce sync.Once
}

// StartSession configures the world and spawns the ego vehicle, traffic and
// sensors. The ego vehicle failing to spawn is fatal; traffic spawns are
// best effort. On failure everything already spawned is torn down.
func StartSession(ctx context.Context, c *Client, cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := c.World()
	s := &Session{
		ID:       uuid.New(),
		client:   c,
		world:    w,
		logger:   logger,
		original: w.Settings(),
		sensors:  make(map[sensor.Kind]*Sensor),
	}

	settings := s.original
	settings.FixedDelta = cfg.FixedDelta
	w.ApplySettings(settings)

	if err := s.spawn(cfg); err != nil {
		if terr := s.Teardown(); terr != nil {
			logger.Error("teardown after failed setup", "error", terr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Session) spawn(cfg SessionConfig) error {
	lib := s.world.Blueprints()

	bp, ok := lib.Find(EgoBlueprint)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlueprint, EgoBlueprint)
	}
	vehicle, err := s.world.SpawnActor(bp, s.world.RandomSpawnPoint(), nil)
	if err != nil {
		return fmt.Errorf("spawn vehicle: %w", err)
	}
	s.vehicle = vehicle
	s.logger.Info("spawned vehicle", "id", vehicle.DisplayID(), "type", vehicle.TypeID)

	// TODO: replace autopilot with manual control input from the display surface.
	vehicle.SetAutopilot(true)

	vehicles := lib.Filter("vehicle")
	for i := 0; i < cfg.Traffic; i++ {
		bp, err := s.world.RandomBlueprint(vehicles)
		if err != nil {
			break
		}
		if a := s.world.TrySpawnActor(bp, s.world.RandomSpawnPoint(), nil); a != nil {
			a.SetAutopilot(true)
			s.traffic++
		}
	}
	s.logger.Info("spawned traffic", "vehicles", s.traffic, "requested", cfg.Traffic)

	mounts := []struct {
		id    string
		mount Transform
	}{
		{"sensor.camera.rgb", CameraMount},
		{"sensor.other.gnss", GNSSMount},
		{"sensor.other.imu", IMUMount},
	}
	for _, m := range mounts {
		bp, ok := lib.Find(m.id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBlueprint, m.id)
		}
		sens, err := s.world.SpawnSensor(bp, m.mount, vehicle)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", m.id, err)
		}
		s.sensors[sens.Kind] = sens
	}
	return nil
}

// Vehicle returns the ego vehicle.
func (s *Session) Vehicle() *Actor {
	return s.vehicle
}

// TrafficCount returns how many traffic vehicles actually spawned.
func (s *Session) TrafficCount() int {
	return s.traffic
}

// Sensor returns the session's sensor of the given kind.
func (s *Session) Sensor(kind sensor.Kind) (*Sensor, bool) {
	sens, ok := s.sensors[kind]
	return sens, ok
}

// Listen registers the callback for one sensor kind. The callback runs on
// the sensor's goroutine, concurrently with the other sensors.
func (s *Session) Listen(kind sensor.Kind, cb func(sensor.Measurement)) error {
	sens, ok := s.sensors[kind]
	if !ok {
		return fmt.Errorf("simulator: no %s sensor in session", kind)
	}
	return sens.Listen(cb)
}

// WaitForTick blocks until the next simulation step, bounded by the client
// timeout.
func (s *Session) WaitForTick(ctx context.Context) error {
	_, err := s.world.WaitForTick(ctx, s.client.Timeout())
	return err
}

// Teardown stops and destroys the sensors, destroys every vehicle in the
// world and restores the original settings. Only the first call does work.
func (s *Session) Teardown() error {
	s.teardownOnce.Do(func() {
		for _, kind := range []sensor.Kind{sensor.KindIMU, sensor.KindGNSS, sensor.KindCamera} {
			if sens, ok := s.sensors[kind]; ok {
				sens.Destroy()
			}
		}

		vehicles := s.world.Actors().Filter("*vehicle*")
		s.logger.Info("current valid vehicles", "count", len(vehicles))
		for _, v := range vehicles {
			v.Destroy()
		}

		s.world.ApplySettings(s.original)
		s.logger.Info("session torn down", "session", s.ID.String())
	})
	return nil
}
