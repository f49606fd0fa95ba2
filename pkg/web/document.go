package web

import (
	"time"

	"github.com/teslashibe/go-simview/pkg/overlay"
	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// FrameInfo describes the latest camera frame without its pixels.
type FrameInfo struct {
	Width  int `json:"width" cbor:"width"`
	Height int `json:"height" cbor:"height"`
}

// InertialInfo is an inertial reading plus the derived readout values.
type InertialInfo struct {
	telemetry.InertialReading
	Acceleration float64 `json:"acceleration" cbor:"acceleration"`
	AngularSpeed float64 `json:"angular_speed" cbor:"angular_speed"`
}

// ReadoutLine is one overlay text line.
type ReadoutLine struct {
	Slot int    `json:"slot" cbor:"slot"`
	Text string `json:"text" cbor:"text"`
}

// Document is the dashboard view of a snapshot. Fields never written by a
// sensor are omitted.
type Document struct {
	Taken    time.Time                  `json:"taken" cbor:"taken"`
	Frame    *FrameInfo                 `json:"frame,omitempty" cbor:"frame,omitempty"`
	Position *telemetry.PositionReading `json:"position,omitempty" cbor:"position,omitempty"`
	Inertial *InertialInfo              `json:"inertial,omitempty" cbor:"inertial,omitempty"`
	Readouts []ReadoutLine              `json:"readouts" cbor:"readouts"`
}

// NewDocument builds the dashboard view of snap.
func NewDocument(snap telemetry.Snapshot) Document {
	doc := Document{
		Taken:    snap.Taken,
		Position: snap.Position,
		Readouts: []ReadoutLine{},
	}
	if f := snap.Frame; f != nil {
		doc.Frame = &FrameInfo{Width: f.Width, Height: f.Height}
	}
	if r := snap.Inertial; r != nil {
		doc.Inertial = &InertialInfo{
			InertialReading: *r,
			Acceleration:    r.Acceleration(),
			AngularSpeed:    r.AngularSpeed(),
		}
	}
	for _, line := range overlay.Readouts(snap) {
		doc.Readouts = append(doc.Readouts, ReadoutLine{Slot: line.Slot, Text: line.Text()})
	}
	return doc
}
