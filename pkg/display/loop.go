// Package display runs the render loop: one overlay frame per simulation tick,
// shown on a surface until the user quits.
package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// ErrStopped is returned by Run on a loop that already stopped.
var ErrStopped = errors.New("display: loop stopped")

// State of the display loop.
type State int32

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// KeyEvent is the result of polling the surface for input.
type KeyEvent int

const (
	KeyNone KeyEvent = iota
	KeyQuit
)

// Ticker blocks until the next simulation step.
type Ticker interface {
	WaitForTick(ctx context.Context) error
}

// Surface shows frames and reports quit requests.
type Surface interface {
	Present(telemetry.Frame) error
	PollKey() KeyEvent
}

// Renderer turns a snapshot into a displayable frame.
type Renderer interface {
	Render(telemetry.Snapshot) (telemetry.Frame, error)
}

// FrameObserver receives every presented frame along with the snapshot it was
// rendered from. Observers run on the loop goroutine and must not block.
type FrameObserver func(snap telemetry.Snapshot, frame telemetry.Frame)

// Config wires a Loop to its collaborators.
type Config struct {
	Source   telemetry.Source
	Renderer Renderer
	Ticker   Ticker
	Surface  Surface

	// Teardown runs exactly once when the loop stops, whatever the reason.
	Teardown func() error

	Logger *slog.Logger
}

// Loop is the single consumer of the telemetry state.
type Loop struct {
	cfg    Config
	logger *slog.Logger

	state    atomic.Int32
	ticks    atomic.Uint64
	stopOnce sync.Once
	stopErr  error

	mu        sync.Mutex
	observers []FrameObserver
}

// NewLoop creates a loop in the Running state.
func NewLoop(cfg Config) (*Loop, error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("display: source is required")
	case cfg.Renderer == nil:
		return nil, fmt.Errorf("display: renderer is required")
	case cfg.Ticker == nil:
		return nil, fmt.Errorf("display: ticker is required")
	case cfg.Surface == nil:
		return nil, fmt.Errorf("display: surface is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{cfg: cfg, logger: logger}, nil
}

// OnFrame registers an observer for presented frames.
func (l *Loop) OnFrame(fn FrameObserver) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// State returns the current loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Ticks returns how many frames were presented.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Run renders one frame per tick until the surface reports quit, the context
// ends, or a collaborator fails. A quit returns nil. Teardown always runs
// before Run returns, including when a collaborator panics.
func (l *Loop) Run(ctx context.Context) (err error) {
	if l.State() == Stopped {
		return ErrStopped
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("display: loop panicked: %v", r)
		}
		if terr := l.stop(); terr != nil && err == nil {
			err = terr
		}
	}()

	l.logger.Info("display loop started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.cfg.Ticker.WaitForTick(ctx); err != nil {
			return fmt.Errorf("display: wait for tick: %w", err)
		}

		quit, err := l.step()
		if err != nil {
			return err
		}
		if quit {
			l.logger.Info("quit requested", "ticks", l.Ticks())
			return nil
		}
	}
}

// step renders and presents one frame, then polls for quit.
func (l *Loop) step() (bool, error) {
	snap := l.cfg.Source.Snapshot()

	frame, err := l.cfg.Renderer.Render(snap)
	if err != nil {
		return false, fmt.Errorf("display: render: %w", err)
	}
	if err := l.cfg.Surface.Present(frame); err != nil {
		return false, fmt.Errorf("display: present: %w", err)
	}
	l.ticks.Add(1)

	l.mu.Lock()
	observers := l.observers
	l.mu.Unlock()
	for _, fn := range observers {
		fn(snap, frame)
	}

	return l.cfg.Surface.PollKey() == KeyQuit, nil
}

// stop moves the loop to Stopped and runs teardown once.
func (l *Loop) stop() error {
	l.stopOnce.Do(func() {
		l.state.Store(int32(Stopped))
		if l.cfg.Teardown != nil {
			l.stopErr = l.cfg.Teardown()
			if l.stopErr != nil {
				l.logger.Error("teardown failed", "error", l.stopErr)
			}
		}
		l.logger.Info("display loop stopped", "ticks", l.Ticks())
	})
	return l.stopErr
}
