package telemetry

import (
	"sync/atomic"
	"time"
)

// Snapshot is the most recent known value of each field.
//
// A nil field has never been written. Fields are independent: nothing ties the
// Frame to the Position taken at the same instant. The pointed-to values are
// shared with the State and must be treated as read-only.
type Snapshot struct {
	Frame    *Frame
	Position *PositionReading
	Inertial *InertialReading
	Taken    time.Time
}

// Empty reports whether no field has been written yet.
func (s Snapshot) Empty() bool {
	return s.Frame == nil && s.Position == nil && s.Inertial == nil
}

// Stats counts updates per field.
type Stats struct {
	FrameUpdates    uint64 `json:"frame_updates"`
	PositionUpdates uint64 `json:"position_updates"`
	InertialUpdates uint64 `json:"inertial_updates"`
}

// Sink is the write side of the state, used by sensor producers.
type Sink interface {
	UpdateFrame(Frame)
	UpdatePosition(PositionReading)
	UpdateInertial(InertialReading)
}

// Source is the read side of the state, used by the display loop.
type Source interface {
	Snapshot() Snapshot
}

// State is the shared telemetry aggregate.
//
// Every field lives behind its own atomic pointer. Writers publish a fresh
// value and never touch it afterwards; readers load the pointer. A read sees
// either the old value or the new one, never a mix. The zero value is ready to
// use and reports every field absent.
type State struct {
	frame    atomic.Pointer[Frame]
	position atomic.Pointer[PositionReading]
	inertial atomic.Pointer[InertialReading]

	frameUpdates    atomic.Uint64
	positionUpdates atomic.Uint64
	inertialUpdates atomic.Uint64
}

// NewState creates an empty State.
func NewState() *State {
	return &State{}
}

// UpdateFrame replaces the frame. The state takes ownership of f.Pix; the
// caller must not write to it afterwards.
func (s *State) UpdateFrame(f Frame) {
	s.frame.Store(&f)
	s.frameUpdates.Add(1)
}

// UpdatePosition replaces the position reading.
func (s *State) UpdatePosition(p PositionReading) {
	s.position.Store(&p)
	s.positionUpdates.Add(1)
}

// UpdateInertial replaces the inertial reading.
func (s *State) UpdateInertial(r InertialReading) {
	s.inertial.Store(&r)
	s.inertialUpdates.Add(1)
}

// Snapshot returns the current value of every field.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Frame:    s.frame.Load(),
		Position: s.position.Load(),
		Inertial: s.inertial.Load(),
		Taken:    time.Now(),
	}
}

// Stats returns the update counters.
func (s *State) Stats() Stats {
	return Stats{
		FrameUpdates:    s.frameUpdates.Load(),
		PositionUpdates: s.positionUpdates.Load(),
		InertialUpdates: s.inertialUpdates.Load(),
	}
}
