// Package simulator is an in-process driving simulator used in place of a
// remote simulation server.
//
// It mirrors the parts of a simulator client API the viewer relies on: a
// version handshake, world settings, blueprints and spawn points, actors with
// attached sensors that stream measurements from their own goroutines, and a
// tick notification.
package simulator

import (
	"math"
	"strings"
	"time"
)

// Location is a position in meters.
type Location struct {
	X, Y, Z float64
}

// Rotation is an orientation in degrees.
type Rotation struct {
	Pitch, Yaw, Roll float64
}

// Transform places an actor in the world or relative to its parent.
type Transform struct {
	Location Location
	Rotation Rotation
}

// Settings are the world settings a client can change.
type Settings struct {
	// FixedDelta is the simulated time per step. Zero means variable step.
	FixedDelta      time.Duration
	SynchronousMode bool
}

// GeoReference maps world coordinates to latitude/longitude.
type GeoReference struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

const earthRadius = 6378137.0

// Geolocate converts a world location to latitude, longitude and altitude.
// The world's +x is east and +y is south.
func (g GeoReference) Geolocate(l Location) (lat, lon, alt float64) {
	lat = g.Latitude - (l.Y/earthRadius)*180/math.Pi
	lon = g.Longitude + (l.X/(earthRadius*math.Cos(g.Latitude*math.Pi/180)))*180/math.Pi
	return lat, lon, g.Altitude + l.Z
}

// Blueprint describes a spawnable actor type.
type Blueprint struct {
	ID string
}

// BlueprintLibrary is the set of actor types the world can spawn.
type BlueprintLibrary []Blueprint

// Find returns the blueprint with the exact id.
func (l BlueprintLibrary) Find(id string) (Blueprint, bool) {
	for _, bp := range l {
		if bp.ID == id {
			return bp, true
		}
	}
	return Blueprint{}, false
}

// Filter returns the blueprints whose id contains the pattern. Asterisks in
// the pattern are ignored, so "*vehicle*" and "vehicle" match the same ids.
func (l BlueprintLibrary) Filter(pattern string) BlueprintLibrary {
	needle := strings.Trim(pattern, "*")
	var out BlueprintLibrary
	for _, bp := range l {
		if strings.Contains(bp.ID, needle) {
			out = append(out, bp)
		}
	}
	return out
}

// DefaultBlueprints is the library of the built-in world.
func DefaultBlueprints() BlueprintLibrary {
	return BlueprintLibrary{
		{ID: "vehicle.tesla.model3"},
		{ID: "vehicle.audi.a2"},
		{ID: "vehicle.bmw.grandtourer"},
		{ID: "vehicle.citroen.c3"},
		{ID: "vehicle.lincoln.mkz_2020"},
		{ID: "vehicle.mini.cooper_s"},
		{ID: "vehicle.nissan.micra"},
		{ID: "vehicle.toyota.prius"},
		{ID: "sensor.camera.rgb"},
		{ID: "sensor.other.gnss"},
		{ID: "sensor.other.imu"},
	}
}
