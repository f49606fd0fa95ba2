package web

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-simview/pkg/sensor"
	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// MIMEApplicationCBOR selects the CBOR encoding of /api/telemetry.
const MIMEApplicationCBOR = "application/cbor"

// StatsResponse is the body of /api/stats.
type StatsResponse struct {
	State      telemetry.Stats            `json:"state"`
	Sensors    map[string]sensor.Counters `json:"sensors"`
	Clients    map[string]int             `json:"clients"`
	FramesSent uint64                     `json:"frames_sent"`
}

// handleTelemetry returns the latest snapshot as JSON, or CBOR when asked.
func (s *Server) handleTelemetry(c *fiber.Ctx) error {
	doc := NewDocument(s.source.Snapshot())

	if c.Accepts(fiber.MIMEApplicationJSON, MIMEApplicationCBOR) == MIMEApplicationCBOR {
		data, err := cbor.Marshal(doc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, MIMEApplicationCBOR)
		return c.Send(data)
	}
	return c.JSON(doc)
}

// handleStats returns update and producer counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		State:   s.source.Stats(),
		Sensors: map[string]sensor.Counters{},
		Clients: map[string]int{
			"telemetry": s.telemetryHub.ClientCount(),
			"camera":    s.cameraHub.ClientCount(),
		},
		FramesSent: s.framesSent.Load(),
	}
	if s.counters != nil {
		resp.Sensors = s.counters()
	}
	return c.JSON(resp)
}
