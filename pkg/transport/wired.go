package transport

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/hid"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// Wired is the direct USB backend: one feature-report handle, SET_FEATURE
// writes and GET_FEATURE reads. One request is assumed in flight at a time;
// the handle mutex keeps concurrent raw calls from interleaving.
type Wired struct {
	mu     sync.Mutex
	dev    hid.Device
	desc   DeviceDescriptor
	events *EventReader
}

// NewWired wraps an opened command interface. input may be nil when the
// device's telemetry interface is unavailable.
func NewWired(feature, input hid.Device, desc DeviceDescriptor) *Wired {
	w := &Wired{dev: feature, desc: desc}
	if input != nil {
		w.events = newEventReader(input, ParseUSBEvent, usbReaderConfig("wired"))
	}
	return w
}

func (w *Wired) WriteFrame(cmd byte, payload []byte, kind proto.ChecksumKind) error {
	frame, err := proto.Encode(cmd, payload, kind)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.dev.SendFeature(frame); err != nil {
		return errors.Wrap(err, "wired: send feature report")
	}
	return nil
}

func (w *Wired) ReadFrame() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	buf := make([]byte, proto.ReportSize)
	buf[0] = 0x00
	if _, err := w.dev.GetFeature(buf); err != nil {
		return nil, errors.Wrap(err, "wired: get feature report")
	}
	return buf[1:], nil
}

func (w *Wired) Flush() error { return nil }

func (w *Wired) Events() *EventReader { return w.events }

func (w *Wired) Descriptor() DeviceDescriptor { return w.desc }

func (w *Wired) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.dev.Product()
	return err == nil
}

func (w *Wired) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dev.Close()
}
