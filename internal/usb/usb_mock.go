package usb

import "time"

// Mock is a scriptable Transport for tests. It records every command
// write and serves reads from a scripted queue.
type Mock struct {
	Writes   [][]byte // payload of every SendReport call
	WriteN   int      // acknowledged byte count; -1 acknowledges in full
	WriteErr error

	Reads   [][]byte // consumed front to back; a nil entry simulates a timeout
	ReadErr error

	HadDriver  bool // a kernel driver was detached at open
	Closed     int
	Reattached int
}

// NewMock returns a Mock that acknowledges writes in full and times
// out every read.
func NewMock() *Mock {
	return &Mock{WriteN: -1}
}

func (m *Mock) SendReport(data []byte) (int, error) {
	p := make([]byte, len(data))
	copy(p, data)
	m.Writes = append(m.Writes, p)
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	if m.WriteN < 0 {
		return len(data), nil
	}
	return m.WriteN, nil
}

func (m *Mock) ReadStatus(buf []byte, _ time.Duration) (int, error) {
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	if len(m.Reads) == 0 {
		return 0, ErrTimeout
	}
	next := m.Reads[0]
	m.Reads = m.Reads[1:]
	if next == nil {
		return 0, ErrTimeout
	}
	return copy(buf, next), nil
}

func (m *Mock) Close() error {
	m.Closed++
	if m.HadDriver {
		m.Reattached++
	}
	return nil
}
