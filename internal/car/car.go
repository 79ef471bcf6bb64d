// Package car drives the vehicle: direction codes on the wire, the
// command write, battery telemetry decoding and handle release.
package car

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seagrayinc/usbcar/internal/usb"
)

// Fixed identifiers of the vehicle's USB interface.
const (
	VendorID  uint16 = 0x0a81
	ProductID uint16 = 0x0702
)

// ReadTimeout bounds a single telemetry read. Expiry means the vehicle
// drove out of range of the tether.
const ReadTimeout = 250 * time.Millisecond

// Direction is the one-byte motion command. The values are
// bit-distinct, but exactly one of them goes on the wire per command.
type Direction byte

const (
	Stop         Direction = 0x00
	Forward      Direction = 0x01
	Right        Direction = 0x02
	ReverseRight Direction = 0x04
	Reverse      Direction = 0x08
	ReverseLeft  Direction = 0x10
	Left         Direction = 0x20
)

// Directions is the canonical arrow order, clockwise from the top. The
// hit-test surface assigns commands to arrows positionally in this
// order.
var Directions = [6]Direction{Forward, Right, ReverseRight, Reverse, ReverseLeft, Left}

func (d Direction) String() string {
	switch d {
	case Stop:
		return "stop"
	case Forward:
		return "forward"
	case Right:
		return "right"
	case ReverseRight:
		return "reverse-right"
	case Reverse:
		return "reverse"
	case ReverseLeft:
		return "reverse-left"
	case Left:
		return "left"
	}
	return fmt.Sprintf("direction(0x%02x)", byte(d))
}

// Status is one raw battery telemetry sample.
type Status int

const (
	StatusUnknown Status = iota
	StatusCharging
	StatusCharged
	StatusOffline // telemetry read timed out, vehicle out of range
)

func (s Status) String() string {
	switch s {
	case StatusCharging:
		return "charging"
	case StatusCharged:
		return "charged"
	case StatusOffline:
		return "offline"
	}
	return "unknown"
}

// Telemetry bytes reported by the vehicle.
const (
	statusCharging = 0x05
	statusCharged  = 0x85
)

// ParseStatus decodes one telemetry byte.
func ParseStatus(b byte) Status {
	switch b {
	case statusCharging:
		return StatusCharging
	case statusCharged:
		return StatusCharged
	}
	return StatusUnknown
}

// Controller is the sole owner of the vehicle's USB handle.
type Controller struct {
	t        usb.Transport
	released bool
}

// Open claims the vehicle over libusb. It fails with usb.ErrNotFound
// when no vehicle is attached.
func Open() (*Controller, error) {
	t, err := usb.OpenLibUSB(VendorID, ProductID)
	if err != nil {
		return nil, err
	}
	return OpenWith(t), nil
}

// OpenWith wraps an already-open transport.
func OpenWith(t usb.Transport) *Controller {
	return &Controller{t: t}
}

// Move commands the vehicle into direction d. It reports whether the
// device acknowledged exactly the one command byte; on false the
// vehicle must be assumed stopped. Failed writes are not retried.
func (c *Controller) Move(d Direction) bool {
	n, err := c.t.SendReport([]byte{byte(d)})
	if err != nil {
		slog.Debug("command write failed",
			slog.String("direction", d.String()),
			slog.Any("error", err))
		return false
	}
	return n == 1
}

// BatteryStatus samples the telemetry endpoint once. A timed-out read
// is expected and comes back as StatusOffline with a nil error; any
// other transport failure is returned for the caller to judge.
func (c *Controller) BatteryStatus() (Status, error) {
	buf := make([]byte, 1)
	n, err := c.t.ReadStatus(buf, ReadTimeout)
	if err != nil {
		if errors.Is(err, usb.ErrTimeout) {
			return StatusOffline, nil
		}
		return StatusUnknown, fmt.Errorf("battery status: %w", err)
	}
	if n < 1 {
		return StatusUnknown, nil
	}
	return ParseStatus(buf[0]), nil
}

// Release closes the USB handle, restoring a previously bound kernel
// driver. Only the first call does anything.
func (c *Controller) Release() error {
	if c.released {
		return nil
	}
	c.released = true
	return c.t.Close()
}
