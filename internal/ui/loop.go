// Package ui binds pointer input to drive commands and paces battery
// polling. It owns no rendering: a Renderer is handed the battery
// estimate and the static arrow geometry each frame and draws them
// however it likes, with no access to command semantics.
package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/seagrayinc/usbcar/internal/battery"
	"github.com/seagrayinc/usbcar/internal/car"
	"github.com/seagrayinc/usbcar/internal/surface"
)

// EventKind discriminates the input events the loop understands.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerUp
	PointerMove
	Quit
)

// Event is one pointer or lifecycle event from the window layer.
// Primary reports the primary button: released for PointerUp, held for
// PointerMove.
type Event struct {
	Kind    EventKind
	X, Y    int
	Primary bool
}

// Frame is what a Renderer gets to draw: the battery estimate and the
// fixed arrow geometry.
type Frame struct {
	Battery   int // estimate, valid only when BatteryOK
	BatteryOK bool
	Arrows    [6]surface.Triangle
}

// Renderer paints one frame.
type Renderer interface {
	Draw(Frame)
}

// Driver is the slice of the controller the loop needs.
// *car.Controller satisfies it.
type Driver interface {
	Move(car.Direction) bool
	BatteryStatus() (car.Status, error)
	Release() error
}

// Loop pacing defaults.
const (
	DefaultFramePeriod = time.Second / 30
	DefaultPollPeriod  = 3 * time.Second
)

// Loop is the single-threaded control loop. All state lives on the
// goroutine running Run; callers that bring their own dispatch may use
// HandleEvent and Poll directly under the same single-caller rule.
type Loop struct {
	Driver   Driver
	Surface  *surface.Surface
	Renderer Renderer

	FramePeriod time.Duration // defaults to 30 Hz
	PollPeriod  time.Duration // defaults to 3 s

	est      battery.Estimator
	lastPoll time.Time
	stopped  bool
}

// HandleEvent applies one input event. It returns false once ev asks
// the loop to quit.
func (l *Loop) HandleEvent(ev Event) bool {
	switch ev.Kind {
	case PointerDown:
		l.moveTo(l.Surface.Lookup(ev.X, ev.Y))
	case PointerUp:
		if ev.Primary {
			l.moveTo(car.Stop)
		}
	case PointerMove:
		// Holding the button and drifting off every arrow stops the
		// car. Drifting back on does not restart it; that takes a new
		// press, like easing off a physical trigger.
		if ev.Primary && !l.stopped && l.Surface.Lookup(ev.X, ev.Y) == car.Stop {
			l.stopped = l.Driver.Move(car.Stop)
		}
	case Quit:
		return false
	}
	return true
}

func (l *Loop) moveTo(d car.Direction) {
	l.stopped = !l.Driver.Move(d)
}

// Poll samples the battery once and folds it into the estimate. A
// transport fault degrades the estimate to unknown; the indicator
// never takes the UI down.
func (l *Loop) Poll() {
	s, err := l.Driver.BatteryStatus()
	if err != nil {
		slog.Warn("battery poll failed", slog.Any("error", err))
		s = car.StatusUnknown
	}
	l.est.Observe(s)
}

// Battery returns the current estimate.
func (l *Loop) Battery() (level int, ok bool) {
	return l.est.Level()
}

// Run drives the loop until ctx is cancelled, events closes, or a Quit
// event arrives. Each frame it drains all pending input, polls the
// battery if the period has elapsed, then renders. The device handle
// is released on every exit path.
func (l *Loop) Run(ctx context.Context, events <-chan Event) error {
	defer func() {
		if err := l.Driver.Release(); err != nil {
			slog.Warn("release failed", slog.Any("error", err))
		}
	}()

	l.Poll()
	l.lastPoll = time.Now()
	l.render()

	frame := time.NewTicker(l.frameEvery())
	defer frame.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-frame.C:
			if !l.drain(events) {
				return nil
			}
			if time.Since(l.lastPoll) >= l.pollEvery() {
				l.Poll()
				l.lastPoll = time.Now()
			}
			l.render()
		}
	}
}

// drain applies every event already queued, without blocking. It
// reports false when the loop should exit.
func (l *Loop) drain(events <-chan Event) bool {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if !l.HandleEvent(ev) {
				return false
			}
		default:
			return true
		}
	}
}

func (l *Loop) render() {
	if l.Renderer == nil {
		return
	}
	level, ok := l.est.Level()
	l.Renderer.Draw(Frame{Battery: level, BatteryOK: ok, Arrows: l.Surface.Arrows()})
}

func (l *Loop) frameEvery() time.Duration {
	if l.FramePeriod > 0 {
		return l.FramePeriod
	}
	return DefaultFramePeriod
}

func (l *Loop) pollEvery() time.Duration {
	if l.PollPeriod > 0 {
		return l.PollPeriod
	}
	return DefaultPollPeriod
}
