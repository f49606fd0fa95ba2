// simview connects to a driving simulator, spawns an ego vehicle with a
// camera, GNSS and IMU, and shows the camera feed with a telemetry overlay
// until q or Esc is pressed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-simview/internal/config"
	"github.com/teslashibe/go-simview/internal/log"
	"github.com/teslashibe/go-simview/pkg/display"
	"github.com/teslashibe/go-simview/pkg/overlay"
	"github.com/teslashibe/go-simview/pkg/sensor"
	"github.com/teslashibe/go-simview/pkg/simulator"
	"github.com/teslashibe/go-simview/pkg/telemetry"
	"github.com/teslashibe/go-simview/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("simview failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := log.Component("simview")

	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.SimTimeout)
	client, err := simulator.Dial(dialCtx, cfg.SimHost, cfg.SimPort)
	cancelDial()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.SimAddress(), err)
	}
	client.SetTimeout(cfg.SimTimeout)
	logger.Info("connected",
		"addr", client.Address(),
		"client_version", client.ClientVersion(),
		"server_version", client.ServerVersion())

	session, err := simulator.StartSession(ctx, client, simulator.SessionConfig{
		Traffic:    cfg.Traffic,
		FixedDelta: cfg.FixedDelta,
	}, log.Component("session"))
	if err != nil {
		client.Close()
		return fmt.Errorf("start session: %w", err)
	}

	state := telemetry.NewState()
	producers := []sensor.Producer{
		sensor.NewCamera(state),
		sensor.NewGNSS(state),
		sensor.NewIMU(state),
	}
	sensorLog := log.Component("sensor")
	for _, p := range producers {
		if err := session.Listen(p.Kind(), sensor.Listener(p, sensorLog)); err != nil {
			session.Teardown()
			client.Close()
			return fmt.Errorf("listen %s: %w", p.Kind(), err)
		}
	}

	var dashboard *web.Server
	if cfg.DashboardPort != "" {
		dashboard, err = web.NewServer(web.Config{
			Addr:      ":" + cfg.DashboardPort,
			Telemetry: state,
			Counters: func() map[string]sensor.Counters {
				out := make(map[string]sensor.Counters, len(producers))
				for _, p := range producers {
					out[p.Kind().String()] = p.Counters()
				}
				return out
			},
			Logger: log.Component("web"),
		})
		if err != nil {
			session.Teardown()
			client.Close()
			return fmt.Errorf("dashboard: %w", err)
		}
	}

	window := display.NewWindow(cfg.WindowName)

	loop, err := display.NewLoop(display.Config{
		Source:   state,
		Renderer: overlay.NewRenderer(cfg.CanvasWidth, cfg.CanvasHeight),
		Ticker:   session,
		Surface:  window,
		Teardown: func() error {
			err := session.Teardown()
			window.Close()
			client.Close()
			return err
		},
		Logger: log.Component("display"),
	})
	if err != nil {
		session.Teardown()
		window.Close()
		client.Close()
		return err
	}

	if dashboard != nil {
		dashCtx, stopDashboard := context.WithCancel(ctx)
		defer stopDashboard()
		loop.OnFrame(dashboard.HandleFrame)
		dashboard.StartAsync(dashCtx)
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		return nil
	}
	return err
}
