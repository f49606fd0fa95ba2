package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// variableDelta paces the world when no fixed delta is set.
const variableDelta = 50 * time.Millisecond

// WorldOptions configures a new world.
type WorldOptions struct {
	// Seed makes spawn choices and traffic behavior reproducible.
	Seed uint64
	// SpawnPoints overrides the generated spawn points.
	SpawnPoints []Transform
	// Geo is the map's geographic origin.
	Geo GeoReference
}

// World is a running simulation. Its clock advances on its own goroutine;
// clients observe it through WaitForTick.
type World struct {
	mu          sync.Mutex
	settings    Settings
	blueprints  BlueprintLibrary
	spawnPoints []Transform
	geo         GeoReference
	actors      map[uuid.UUID]*Actor
	occupied    map[int]*Actor
	rng         *rand.Rand
	frame       uint64
	elapsed     time.Duration
	tickCh      chan struct{}

	settingsChanged chan struct{}
	done            chan struct{}
	closeOnce       sync.Once
	wg              sync.WaitGroup
}

// NewWorld creates a world and starts its clock.
func NewWorld(opts WorldOptions) *World {
	points := opts.SpawnPoints
	if len(points) == 0 {
		points = defaultSpawnPoints()
	}

	w := &World{
		blueprints:      DefaultBlueprints(),
		spawnPoints:     points,
		geo:             opts.Geo,
		actors:          make(map[uuid.UUID]*Actor),
		occupied:        make(map[int]*Actor),
		rng:             rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		tickCh:          make(chan struct{}),
		settingsChanged: make(chan struct{}, 1),
		done:            make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()
	return w
}

// defaultSpawnPoints lays out spawn points along a ring road.
func defaultSpawnPoints() []Transform {
	const n = 24
	points := make([]Transform, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / n
		points = append(points, Transform{
			Location: Location{X: 120 * math.Cos(angle), Y: 120 * math.Sin(angle), Z: 0.3},
			Rotation: Rotation{Yaw: angle*180/math.Pi + 90},
		})
	}
	return points
}

// Blueprints returns the blueprint library.
func (w *World) Blueprints() BlueprintLibrary {
	return w.blueprints
}

// SpawnPoints returns the recommended spawn points.
func (w *World) SpawnPoints() []Transform {
	out := make([]Transform, len(w.spawnPoints))
	copy(out, w.spawnPoints)
	return out
}

// RandomSpawnPoint picks one of the spawn points.
func (w *World) RandomSpawnPoint() Transform {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnPoints[w.rng.IntN(len(w.spawnPoints))]
}

// RandomBlueprint picks one blueprint from the list.
func (w *World) RandomBlueprint(from BlueprintLibrary) (Blueprint, error) {
	if len(from) == 0 {
		return Blueprint{}, fmt.Errorf("%w: empty blueprint list", ErrUnknownBlueprint)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return from[w.rng.IntN(len(from))], nil
}

// Settings returns the current world settings.
func (w *World) Settings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

// ApplySettings replaces the world settings and returns the frame at which
// they took effect.
func (w *World) ApplySettings(s Settings) uint64 {
	w.mu.Lock()
	w.settings = s
	frame := w.frame
	w.mu.Unlock()

	select {
	case w.settingsChanged <- struct{}{}:
	default:
	}
	return frame
}

// Frame returns the current simulation frame number.
func (w *World) Frame() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

// Actors returns every live actor.
func (w *World) Actors() ActorList {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(ActorList, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a)
	}
	return out
}

// SpawnActor places a new actor. Without a parent the transform is a world
// transform and must not be occupied by another vehicle; with a parent it is
// relative to the parent.
func (w *World) SpawnActor(bp Blueprint, t Transform, parent *Actor) (*Actor, error) {
	if _, ok := w.blueprints.Find(bp.ID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlueprint, bp.ID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return nil, ErrClosed
	default:
	}

	a := &Actor{
		ID:         uuid.New(),
		TypeID:     bp.ID,
		world:      w,
		parent:     parent,
		transform:  t,
		spawnIndex: -1,
		baseSpeed:  6 + 6*w.rng.Float64(),
		phase:      10 * w.rng.Float64(),
	}

	if parent != nil {
		if !parent.IsAlive() {
			return nil, fmt.Errorf("%w: parent %s is destroyed", ErrSpawnFailed, parent.DisplayID())
		}
	} else if a.IsVehicle() {
		idx := w.spawnIndexLocked(t)
		if idx >= 0 {
			if _, taken := w.occupied[idx]; taken {
				return nil, fmt.Errorf("%w: spawn point %d is occupied", ErrSpawnFailed, idx)
			}
			w.occupied[idx] = a
			a.spawnIndex = idx
		}
	}

	a.alive.Store(true)
	w.actors[a.ID] = a
	return a, nil
}

// TrySpawnActor is SpawnActor that returns nil instead of an error.
func (w *World) TrySpawnActor(bp Blueprint, t Transform, parent *Actor) *Actor {
	a, err := w.SpawnActor(bp, t, parent)
	if err != nil {
		return nil
	}
	return a
}

func (w *World) spawnIndexLocked(t Transform) int {
	for i, p := range w.spawnPoints {
		if p.Location == t.Location {
			return i
		}
	}
	return -1
}

func (w *World) destroy(a *Actor) bool {
	w.mu.Lock()
	if !a.alive.CompareAndSwap(true, false) {
		w.mu.Unlock()
		return false
	}
	delete(w.actors, a.ID)
	if a.spawnIndex >= 0 && w.occupied[a.spawnIndex] == a {
		delete(w.occupied, a.spawnIndex)
	}
	w.mu.Unlock()
	return true
}

// WaitForTick blocks until the next simulation step.
func (w *World) WaitForTick(ctx context.Context, timeout time.Duration) (uint64, error) {
	w.mu.Lock()
	ch := w.tickCh
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return w.Frame(), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-w.done:
		return 0, ErrClosed
	case <-timer.C:
		return 0, fmt.Errorf("%w: no tick within %v", ErrTimeout, timeout)
	}
}

// Close stops the clock. Sensors stop delivering once their actors are
// destroyed or the world is closed.
func (w *World) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}

func (w *World) tickInterval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.settings.FixedDelta > 0 {
		return w.settings.FixedDelta
	}
	return variableDelta
}

func (w *World) run() {
	defer w.wg.Done()

	for {
		delta := w.tickInterval()
		timer := time.NewTimer(delta)

		select {
		case <-w.done:
			timer.Stop()
			return
		case <-w.settingsChanged:
			timer.Stop()
		case <-timer.C:
			w.step(delta)
		}
	}
}

// step advances the simulation by dt and wakes tick waiters.
func (w *World) step(delta time.Duration) {
	dt := delta.Seconds()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.frame++
	w.elapsed += delta

	for _, a := range w.actors {
		if a.autopilot && a.IsVehicle() {
			a.drive(dt)
		}
	}

	close(w.tickCh)
	w.tickCh = make(chan struct{})
}

// drive moves an autopilot vehicle along a gently weaving path.
// Caller holds world.mu.
func (a *Actor) drive(dt float64) {
	a.phase += dt
	a.speed = a.baseSpeed + 2*math.Sin(a.phase/4)
	a.yawRate = 0.15 * math.Sin(a.phase/7)

	yaw := a.transform.Rotation.Yaw*math.Pi/180 + a.yawRate*dt
	vel := telemetry.Vector3D{X: a.speed * math.Cos(yaw), Y: a.speed * math.Sin(yaw)}

	if a.velocity != (telemetry.Vector3D{}) {
		dv := vel.Sub(a.velocity)
		a.accel = telemetry.Vector3D{X: dv.X / dt, Y: dv.Y / dt, Z: dv.Z / dt}
	}
	a.velocity = vel

	a.transform.Location.X += vel.X * dt
	a.transform.Location.Y += vel.Y * dt
	a.transform.Rotation.Yaw = math.Mod(yaw*180/math.Pi+360, 360)
}

// vehicleState is a copy of the kinematics sensors read.
type vehicleState struct {
	frame     uint64
	transform Transform
	accel     telemetry.Vector3D
	yawRate   float64
}

func (w *World) vehicleStateOf(a *Actor) vehicleState {
	w.mu.Lock()
	defer w.mu.Unlock()

	root := a
	for root.parent != nil {
		root = root.parent
	}
	return vehicleState{
		frame:     w.frame,
		transform: a.worldTransformLocked(),
		accel:     root.accel,
		yawRate:   root.yawRate,
	}
}
