package simulator

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// Actor is anything spawned in the world: vehicles and sensors.
type Actor struct {
	ID     uuid.UUID
	TypeID string

	world  *World
	parent *Actor
	alive  atomic.Bool

	// Guarded by world.mu.
	transform  Transform
	spawnIndex int
	autopilot  bool
	speed      float64 // m/s
	baseSpeed  float64
	yawRate    float64 // rad/s
	velocity   telemetry.Vector3D
	accel      telemetry.Vector3D // world frame, without gravity
	phase      float64
}

// IsVehicle reports whether the actor is a vehicle.
func (a *Actor) IsVehicle() bool {
	return strings.HasPrefix(a.TypeID, "vehicle.")
}

// IsAlive reports whether the actor is still in the world.
func (a *Actor) IsAlive() bool {
	return a.alive.Load()
}

// Parent returns the actor this one is attached to, if any.
func (a *Actor) Parent() *Actor {
	return a.parent
}

// DisplayID is the short form of the actor id used in logs.
func (a *Actor) DisplayID() string {
	return a.ID.String()[:8]
}

// SetAutopilot hands the vehicle to the traffic manager.
func (a *Actor) SetAutopilot(on bool) {
	a.world.mu.Lock()
	defer a.world.mu.Unlock()
	a.autopilot = on
	if !on {
		a.speed = 0
		a.yawRate = 0
		a.velocity = telemetry.Vector3D{}
		a.accel = telemetry.Vector3D{}
		return
	}
	if a.speed == 0 {
		yaw := a.transform.Rotation.Yaw * math.Pi / 180
		a.speed = a.baseSpeed + 2*math.Sin(a.phase/4)
		a.velocity = telemetry.Vector3D{X: a.speed * math.Cos(yaw), Y: a.speed * math.Sin(yaw)}
	}
}

// Transform returns the actor's world transform.
func (a *Actor) Transform() Transform {
	a.world.mu.Lock()
	defer a.world.mu.Unlock()
	return a.worldTransformLocked()
}

func (a *Actor) worldTransformLocked() Transform {
	if a.parent == nil {
		return a.transform
	}
	p := a.parent.worldTransformLocked()
	yaw := p.Rotation.Yaw * math.Pi / 180
	l := a.transform.Location
	return Transform{
		Location: Location{
			X: p.Location.X + l.X*math.Cos(yaw) - l.Y*math.Sin(yaw),
			Y: p.Location.Y + l.X*math.Sin(yaw) + l.Y*math.Cos(yaw),
			Z: p.Location.Z + l.Z,
		},
		Rotation: Rotation{
			Pitch: p.Rotation.Pitch + a.transform.Rotation.Pitch,
			Yaw:   p.Rotation.Yaw + a.transform.Rotation.Yaw,
			Roll:  p.Rotation.Roll + a.transform.Rotation.Roll,
		},
	}
}

// Destroy removes the actor from the world. It returns false if the actor was
// already gone.
func (a *Actor) Destroy() bool {
	return a.world.destroy(a)
}

// ActorList is a snapshot of actors in the world.
type ActorList []*Actor

// Filter returns the actors whose type id contains the pattern, ignoring
// asterisks.
func (l ActorList) Filter(pattern string) ActorList {
	needle := strings.Trim(pattern, "*")
	var out ActorList
	for _, a := range l {
		if strings.Contains(a.TypeID, needle) {
			out = append(out, a)
		}
	}
	return out
}
