package usb

import (
	"fmt"
	"time"

	hidapi "github.com/sstallion/go-hid"
)

type hidTransport struct {
	dev *hidapi.Device
}

// OpenHID opens the first matching device through hidapi. The vehicle
// exposes no interrupt OUT endpoint, so hidapi routes output reports
// through the control channel as SET_REPORT, same as the libusb path.
func OpenHID(vid, pid uint16) (Transport, error) {
	if err := hidapi.Init(); err != nil {
		return nil, fmt.Errorf("hidapi init: %w", err)
	}
	dev, err := hidapi.OpenFirst(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X): %v", ErrNotFound, vid, pid, err)
	}
	return &hidTransport{dev: dev}, nil
}

func (t *hidTransport) SendReport(data []byte) (int, error) {
	// hidapi wants the report ID first; the vehicle uses unnumbered
	// reports, so it is always zero and not counted as payload.
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, 0x00)
	buf = append(buf, data...)
	n, err := t.dev.Write(buf)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		n--
	}
	return n, nil
}

func (t *hidTransport) ReadStatus(buf []byte, timeout time.Duration) (int, error) {
	n, err := t.dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return n, err
	}
	if n == 0 {
		// hidapi reports an expired deadline as a zero-byte read.
		return 0, ErrTimeout
	}
	return n, nil
}

func (t *hidTransport) Close() error {
	err := t.dev.Close()
	if eerr := hidapi.Exit(); err == nil {
		err = eerr
	}
	return err
}
