// Package web serves a live telemetry dashboard: JSON/CBOR snapshots over
// HTTP plus websocket streams of readouts and rendered camera frames.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-simview/pkg/hub"
	"github.com/teslashibe/go-simview/pkg/sensor"
	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// DefaultJPEGQuality is used for the camera stream.
const DefaultJPEGQuality = 80

// Telemetry is what the dashboard reads from.
type Telemetry interface {
	telemetry.Source
	Stats() telemetry.Stats
}

// CountersFunc reports producer counters keyed by sensor kind name.
type CountersFunc func() map[string]sensor.Counters

// Config configures a dashboard server.
type Config struct {
	// Addr is the listen address, e.g. ":8181".
	Addr        string
	Telemetry   Telemetry
	Counters    CountersFunc
	JPEGQuality int
	Logger      *slog.Logger
}

// Server is the telemetry dashboard.
type Server struct {
	app    *fiber.App
	addr   string
	source Telemetry

	counters    CountersFunc
	jpegQuality int
	logger      *slog.Logger

	telemetryHub *hub.Hub
	cameraHub    *hub.Hub

	// Latest rendered frame waiting to be encoded. Older frames are replaced.
	pending atomic.Pointer[telemetry.Frame]
	wake    chan struct{}

	framesSent atomic.Uint64

	wg sync.WaitGroup
}

// NewServer creates the dashboard. Call Start to serve it.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Telemetry == nil {
		return nil, errors.New("web: telemetry source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}

	s := &Server{
		addr:         cfg.Addr,
		source:       cfg.Telemetry,
		counters:     cfg.Counters,
		jpegQuality:  cfg.JPEGQuality,
		logger:       cfg.Logger,
		telemetryHub: hub.New("telemetry", cfg.Logger),
		cameraHub:    hub.New("camera", cfg.Logger),
		wake:         make(chan struct{}, 1),
	}

	app := fiber.New(fiber.Config{
		AppName:               "simview dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/telemetry", s.handleTelemetry)
	api.Get("/stats", s.handleStats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and the frame encoder, then serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.wg.Add(3)
	go func() { defer s.wg.Done(); s.telemetryHub.Run(ctx) }()
	go func() { defer s.wg.Done(); s.cameraHub.Run(ctx) }()
	go func() { defer s.wg.Done(); s.encodeLoop(ctx) }()

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "addr", s.addr)
	err := s.app.Listen(s.addr)
	s.wg.Wait()
	return err
}

// StartAsync starts the server in a goroutine and logs a failure.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// HandleFrame is a display frame observer. It publishes the snapshot's
// readouts and queues the frame for JPEG encoding without blocking.
func (s *Server) HandleFrame(snap telemetry.Snapshot, frame telemetry.Frame) {
	if s.telemetryHub.ClientCount() > 0 {
		if err := s.telemetryHub.BroadcastJSON(NewDocument(snap)); err != nil {
			s.logger.Warn("encode telemetry", "error", err)
		}
	}
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	// Observers share the frame read-only.
	s.pending.Store(&frame)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// FramesSent returns the number of JPEG frames broadcast.
func (s *Server) FramesSent() uint64 {
	return s.framesSent.Load()
}

func (s *Server) encodeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		f := s.pending.Swap(nil)
		if f == nil {
			continue
		}
		data, err := EncodeJPEG(*f, s.jpegQuality)
		if err != nil {
			s.logger.Warn("encode camera frame", "error", err)
			continue
		}
		s.cameraHub.BroadcastBinary(data)
		s.framesSent.Add(1)
	}
}

func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	hub.NewClient(s.telemetryHub, c).Run()
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
