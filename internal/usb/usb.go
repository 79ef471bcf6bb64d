// Package usb is the transport boundary to the vehicle: a narrow
// interface over the device's control and telemetry channels, real
// backends on libusb and hidapi, and a scriptable mock for tests.
package usb

import (
	"errors"
	"time"

	karusb "github.com/karalabe/usb"
)

var (
	// ErrNotFound is returned when no attached device matches the
	// requested vendor/product pair.
	ErrNotFound = errors.New("usb: device not found")

	// ErrTimeout reports that a telemetry read exceeded its deadline.
	// It is an expected condition (the vehicle drove out of range of
	// the tether), not a transport fault.
	ErrTimeout = errors.New("usb: read timed out")
)

// Transport is the channel pair the controller drives: SET_REPORT
// control writes out, interrupt reads in. Implementations are used by
// a single caller at a time.
type Transport interface {
	// SendReport issues a host-to-device class SET_REPORT control
	// transfer carrying data and returns the byte count the device
	// acknowledged.
	SendReport(data []byte) (int, error)

	// ReadStatus reads from the telemetry IN endpoint into buf,
	// waiting at most timeout. A deadline expiry is reported as
	// ErrTimeout.
	ReadStatus(buf []byte, timeout time.Duration) (int, error)

	// Close releases the claimed interface and reattaches the kernel
	// driver if one was detached at open. Callers invoke it exactly
	// once.
	Close() error
}

// Info describes an attached USB device.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string
}

// List enumerates every attached USB device.
func List() ([]Info, error) {
	devs, err := karusb.Enumerate(0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path,
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Product:      d.Product,
			Manufacturer: d.Manufacturer,
		})
	}
	return out, nil
}
