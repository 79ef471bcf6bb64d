package ui

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/seagrayinc/usbcar/internal/car"
	"github.com/seagrayinc/usbcar/internal/surface"
	"github.com/seagrayinc/usbcar/internal/usb"
)

func newTestLoop(m *usb.Mock) *Loop {
	return &Loop{
		Driver:  car.OpenWith(m),
		Surface: surface.NewDefault(),
	}
}

func centroid(t surface.Triangle) (int, int) {
	cx := (t[0].X() + t[1].X() + t[2].X()) / 3
	cy := (t[0].Y() + t[1].Y() + t[2].Y()) / 3
	return int(math.Round(cx)), int(math.Round(cy))
}

func TestPressAndReleaseWritesTwice(t *testing.T) {
	m := usb.NewMock()
	l := newTestLoop(m)

	fx, fy := centroid(l.Surface.Arrows()[0]) // forward arrow
	l.HandleEvent(Event{Kind: PointerDown, X: fx, Y: fy})
	l.HandleEvent(Event{Kind: PointerUp, Primary: true})

	if len(m.Writes) != 2 {
		t.Fatalf("%d writes, want 2: %v", len(m.Writes), m.Writes)
	}
	if m.Writes[0][0] != byte(car.Forward) || m.Writes[1][0] != byte(car.Stop) {
		t.Fatalf("writes = %v, want forward then stop", m.Writes)
	}
}

func TestSecondaryReleaseIgnored(t *testing.T) {
	m := usb.NewMock()
	l := newTestLoop(m)
	l.HandleEvent(Event{Kind: PointerUp, Primary: false})
	if len(m.Writes) != 0 {
		t.Fatalf("writes = %v, want none", m.Writes)
	}
}

func TestDriftOffArrowsStopsOnce(t *testing.T) {
	m := usb.NewMock()
	l := newTestLoop(m)

	fx, fy := centroid(l.Surface.Arrows()[0])
	l.HandleEvent(Event{Kind: PointerDown, X: fx, Y: fy})
	// Drag to the dead centre: off every arrow, the car must stop.
	l.HandleEvent(Event{Kind: PointerMove, X: 120, Y: 90, Primary: true})
	// Further drifting, or re-entering an arrow without a new press,
	// sends nothing more.
	l.HandleEvent(Event{Kind: PointerMove, X: 121, Y: 91, Primary: true})
	l.HandleEvent(Event{Kind: PointerMove, X: fx, Y: fy, Primary: true})

	if len(m.Writes) != 2 {
		t.Fatalf("%d writes, want 2: %v", len(m.Writes), m.Writes)
	}
	if m.Writes[1][0] != byte(car.Stop) {
		t.Fatalf("second write = 0x%02x, want stop", m.Writes[1][0])
	}
}

func TestDriftWithoutButtonIgnored(t *testing.T) {
	m := usb.NewMock()
	l := newTestLoop(m)

	fx, fy := centroid(l.Surface.Arrows()[0])
	l.HandleEvent(Event{Kind: PointerDown, X: fx, Y: fy})
	l.HandleEvent(Event{Kind: PointerMove, X: 120, Y: 90, Primary: false})

	if len(m.Writes) != 1 {
		t.Fatalf("%d writes, want 1: %v", len(m.Writes), m.Writes)
	}
}

func TestFailedWriteMeansStopped(t *testing.T) {
	m := usb.NewMock()
	m.WriteN = 0 // device never acknowledges
	l := newTestLoop(m)

	fx, fy := centroid(l.Surface.Arrows()[0])
	l.HandleEvent(Event{Kind: PointerDown, X: fx, Y: fy})
	if !l.stopped {
		t.Fatal("an unacknowledged command must mark the car stopped")
	}
	// Already known stopped: drifting off the arrows sends no stop.
	l.HandleEvent(Event{Kind: PointerMove, X: 120, Y: 90, Primary: true})
	if len(m.Writes) != 1 {
		t.Fatalf("%d writes, want 1: %v", len(m.Writes), m.Writes)
	}
}

func TestQuitStopsDispatch(t *testing.T) {
	l := newTestLoop(usb.NewMock())
	if l.HandleEvent(Event{Kind: Quit}) {
		t.Fatal("Quit must end the loop")
	}
}

func TestPollFeedsEstimator(t *testing.T) {
	m := usb.NewMock()
	m.Reads = [][]byte{{0x05}, {0x05}, nil}
	l := newTestLoop(m)

	l.Poll()
	if level, ok := l.Battery(); !ok || level != 0 {
		t.Fatalf("after first charging sample: %d, %v", level, ok)
	}
	l.Poll()
	if level, ok := l.Battery(); !ok || level != 10 {
		t.Fatalf("after second charging sample: %d, %v", level, ok)
	}
	l.Poll() // timeout: out of range resets the estimate
	if _, ok := l.Battery(); ok {
		t.Fatal("a timed-out poll must reset the estimate")
	}
}

func TestPollDegradesOnTransportError(t *testing.T) {
	m := usb.NewMock()
	m.ReadErr = errors.New("bus fault")
	l := newTestLoop(m)
	l.Poll()
	if _, ok := l.Battery(); ok {
		t.Fatal("a transport fault must degrade the estimate to unknown")
	}
}

type countingRenderer struct {
	frames int
	last   Frame
}

func (r *countingRenderer) Draw(f Frame) {
	r.frames++
	r.last = f
}

func TestRunReleasesOnCancel(t *testing.T) {
	m := usb.NewMock()
	r := &countingRenderer{}
	l := newTestLoop(m)
	l.Renderer = r

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if m.Closed != 1 {
		t.Fatalf("transport closed %d times, want 1", m.Closed)
	}
	if r.frames == 0 {
		t.Fatal("expected at least the initial frame")
	}
}

func TestRunExitsOnQuit(t *testing.T) {
	m := usb.NewMock()
	l := newTestLoop(m)
	l.FramePeriod = time.Millisecond

	events := make(chan Event, 1)
	events <- Event{Kind: Quit}

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background(), events) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on Quit")
	}
	if m.Closed != 1 {
		t.Fatalf("transport closed %d times, want 1", m.Closed)
	}
}
