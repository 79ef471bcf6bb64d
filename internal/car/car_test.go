package car

import (
	"errors"
	"testing"

	"github.com/seagrayinc/usbcar/internal/usb"
)

func TestMoveAckCount(t *testing.T) {
	tests := []struct {
		name string
		ack  int
		err  error
		want bool
	}{
		{"exactly one byte", 1, nil, true},
		{"zero bytes", 0, nil, false},
		{"two bytes", 2, nil, false},
		{"write error", 0, errors.New("pipe stall"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := usb.NewMock()
			m.WriteN = tt.ack
			m.WriteErr = tt.err
			c := OpenWith(m)
			if got := c.Move(Forward); got != tt.want {
				t.Fatalf("Move = %v, want %v", got, tt.want)
			}
			if len(m.Writes) != 1 || len(m.Writes[0]) != 1 || m.Writes[0][0] != byte(Forward) {
				t.Fatalf("unexpected wire payload %v", m.Writes)
			}
		})
	}
}

func TestMoveSendsDirectionByte(t *testing.T) {
	m := usb.NewMock()
	c := OpenWith(m)
	for _, d := range Directions {
		c.Move(d)
	}
	c.Move(Stop)
	want := []byte{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x00}
	if len(m.Writes) != len(want) {
		t.Fatalf("%d writes, want %d", len(m.Writes), len(want))
	}
	for i, w := range want {
		if m.Writes[i][0] != w {
			t.Errorf("write %d = 0x%02x, want 0x%02x", i, m.Writes[i][0], w)
		}
	}
}

func TestBatteryStatusDecoding(t *testing.T) {
	tests := []struct {
		name string
		read []byte // nil simulates a timeout
		want Status
	}{
		{"charging", []byte{0x05}, StatusCharging},
		{"charged", []byte{0x85}, StatusCharged},
		{"unrecognised byte", []byte{0x00}, StatusUnknown},
		{"short read", []byte{}, StatusUnknown},
		{"timeout means out of range", nil, StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := usb.NewMock()
			m.Reads = [][]byte{tt.read}
			c := OpenWith(m)
			got, err := c.BatteryStatus()
			if err != nil {
				t.Fatalf("BatteryStatus: %v", err)
			}
			if got != tt.want {
				t.Fatalf("BatteryStatus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatteryStatusTransportError(t *testing.T) {
	m := usb.NewMock()
	m.ReadErr = errors.New("bus fault")
	c := OpenWith(m)
	got, err := c.BatteryStatus()
	if err == nil {
		t.Fatal("expected a propagated transport error")
	}
	if got != StatusUnknown {
		t.Fatalf("BatteryStatus = %v, want %v", got, StatusUnknown)
	}
}

func TestReleaseReattachesOnce(t *testing.T) {
	m := usb.NewMock()
	m.HadDriver = true
	c := OpenWith(m)
	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if m.Closed != 1 {
		t.Fatalf("transport closed %d times, want 1", m.Closed)
	}
	if m.Reattached != 1 {
		t.Fatalf("kernel driver reattached %d times, want 1", m.Reattached)
	}
}
