package transport

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/hid"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// BLE framing markers, shared with the event parser.
const (
	bleReportID    = proto.BLEReportID
	bleMarkerCmd   = proto.BLEMarkerCommand
	bleMarkerEvent = proto.BLEMarkerEvent
)

// Command responses arrive as interrupt reports mixed in with key events and
// telemetry, so a read has to sift. These bound one ReadFrame call.
const (
	bleReadPoll     = 50 * time.Millisecond
	bleReadDeadline = 500 * time.Millisecond
)

// Bluetooth is the GATT-bridged backend. The HID layer looks the same as USB
// but the semantics differ: writes are plain output reports, and responses
// come back on the interrupt IN stream interleaved with events instead of
// sitting in a feature-report slot.
type Bluetooth struct {
	mu     sync.Mutex
	dev    hid.Device
	desc   DeviceDescriptor
	events *EventReader
}

// NewBluetooth wraps an opened vendor interface. input is the separate
// keyboard input interface carrying wrapped vendor events; nil when absent.
func NewBluetooth(vendor, input hid.Device, desc DeviceDescriptor) *Bluetooth {
	b := &Bluetooth{dev: vendor, desc: desc}
	if input != nil {
		b.events = newEventReader(input, ParseBLEEvent, bleReaderConfig())
	}
	return b
}

func (b *Bluetooth) WriteFrame(cmd byte, payload []byte, kind proto.ChecksumKind) error {
	frame, err := proto.EncodeBLE(cmd, payload, kind)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.dev.Write(frame); err != nil {
		return errors.Wrap(err, "bluetooth: write report")
	}
	return nil
}

// ReadFrame reads until a command response appears or the deadline passes.
// Event frames (0x66 marker) and empty command frames are skipped; they
// belong to the event reader's stream, not to us.
func (b *Bluetooth) ReadFrame() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := make([]byte, proto.BLEReportSize)
	deadline := time.Now().Add(bleReadDeadline)
	for time.Now().Before(deadline) {
		n, err := b.dev.ReadTimeout(buf, bleReadPoll)
		if err != nil {
			return nil, errors.Wrap(err, "bluetooth: read report")
		}
		if n < 3 || buf[0] != bleReportID {
			continue
		}
		if buf[1] != bleMarkerCmd {
			continue
		}
		// Require a command byte or a status marker so that the keepalive
		// frames the firmware emits between responses are not mistaken for
		// answers.
		if buf[2] == 0x00 && (n < 4 || buf[3] != proto.StatusSuccess) {
			continue
		}
		body := make([]byte, n-2)
		copy(body, buf[2:n])
		return body, nil
	}
	return nil, errors.Wrap(ErrTimeout, "bluetooth: no command response")
}

func (b *Bluetooth) Flush() error { return nil }

func (b *Bluetooth) Events() *EventReader { return b.events }

func (b *Bluetooth) Descriptor() DeviceDescriptor { return b.desc }

func (b *Bluetooth) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.dev.Product()
	return err == nil
}

func (b *Bluetooth) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev.Close()
}
