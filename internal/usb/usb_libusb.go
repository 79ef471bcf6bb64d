package usb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// statusEndpoint is the interrupt IN endpoint carrying battery
// telemetry.
const statusEndpoint = 0x81

const (
	setReport   = 0x09   // HID class SET_REPORT request
	reportValue = 0x0200 // output report, report ID 0
)

// requestTypeOut is "host-to-device, class, interface" (0x21).
const requestTypeOut = gousb.ControlOut | gousb.ControlClass | gousb.ControlInterface

type libusbTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
}

// OpenLibUSB claims the first device matching vid/pid through libusb:
// kernel driver detached for the lifetime of the handle (restored by
// Close), configuration 1 activated, interface 0 claimed.
func OpenLibUSB(vid, pid uint16) (Transport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open device: %w", err)
	}
	if dev == nil {
		n := 0
		if infos, lerr := List(); lerr == nil {
			n = len(infos)
		}
		ctx.Close()
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X); %d other USB devices attached",
			ErrNotFound, vid, pid, n)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("detach kernel driver: %w", err)
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("set configuration: %w", err)
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	in, err := intf.InEndpoint(statusEndpoint & 0x0f)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("telemetry endpoint: %w", err)
	}

	return &libusbTransport{ctx: ctx, dev: dev, cfg: cfg, intf: intf, in: in}, nil
}

func (t *libusbTransport) SendReport(data []byte) (int, error) {
	return t.dev.Control(requestTypeOut, setReport, reportValue, 0, data)
}

func (t *libusbTransport) ReadStatus(buf []byte, timeout time.Duration) (int, error) {
	rctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := t.in.ReadContext(rctx, buf)
	if err != nil {
		if errors.Is(err, gousb.TransferTimedOut) ||
			errors.Is(err, gousb.TransferCancelled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return n, ErrTimeout
		}
		return n, err
	}
	return n, nil
}

func (t *libusbTransport) Close() error {
	t.intf.Close()
	err := t.cfg.Close()
	// Closing the device handle reattaches the detached kernel driver.
	if derr := t.dev.Close(); err == nil {
		err = derr
	}
	if cerr := t.ctx.Close(); err == nil {
		err = cerr
	}
	return err
}
