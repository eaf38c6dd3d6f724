package transport

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/hid"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// Dongle is the 2.4GHz backend. Raw I/O matches Wired, but the dongle polls
// the keyboard over RF on its own schedule and queues replies independent of
// host request timing: a bare read can return a reply to an earlier or
// unrelated query. Flush sends the no-op that pushes the next buffered reply
// into the readable slot; the polling and caching that make use of it live
// in Client.
type Dongle struct {
	mu     sync.Mutex
	dev    hid.Device
	desc   DeviceDescriptor
	events *EventReader
}

func NewDongle(feature, input hid.Device, desc DeviceDescriptor) *Dongle {
	d := &Dongle{dev: feature, desc: desc}
	if input != nil {
		d.events = newEventReader(input, ParseUSBEvent, usbReaderConfig("dongle"))
	}
	return d
}

func (d *Dongle) WriteFrame(cmd byte, payload []byte, kind proto.ChecksumKind) error {
	frame, err := proto.Encode(cmd, payload, kind)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.SendFeature(frame); err != nil {
		return errors.Wrap(err, "dongle: send feature report")
	}
	return nil
}

func (d *Dongle) ReadFrame() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, proto.ReportSize)
	buf[0] = 0x00
	if _, err := d.dev.GetFeature(buf); err != nil {
		return nil, errors.Wrap(err, "dongle: get feature report")
	}
	return buf[1:], nil
}

func (d *Dongle) Flush() error {
	frame, err := proto.Encode(proto.CmdDongleFlush, nil, proto.ChecksumByte7)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.SendFeature(frame); err != nil {
		return errors.Wrap(err, "dongle: flush")
	}
	return nil
}

// DongleStatus is the dongle's local view of the RF link and the keyboard's
// battery, answered without a round trip to the keyboard.
type DongleStatus struct {
	HasResponse bool
	RFReady     bool
	Battery     byte // 0-100
	Charging    bool
}

// Status queries the dongle's link/battery state (0xF7, handled locally).
func (d *Dongle) Status() (*DongleStatus, error) {
	frame, err := proto.Encode(proto.CmdDongleStatus, nil, proto.ChecksumByte7)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.SendFeature(frame); err != nil {
		return nil, errors.Wrap(err, "dongle: status query")
	}

	buf := make([]byte, proto.ReportSize)
	buf[0] = 0x00
	if _, err := d.dev.GetFeature(buf); err != nil {
		return nil, errors.Wrap(err, "dongle: status read")
	}

	// Response layout after the report ID:
	//   [0] has_response  [1] battery 0-100  [3] charging  [5] rf_ready
	body := buf[1:]
	if body[1] > 100 {
		return nil, errors.Errorf("dongle: invalid battery level %d", body[1])
	}
	return &DongleStatus{
		HasResponse: body[0] != 0,
		Battery:     body[1],
		Charging:    body[3] != 0,
		RFReady:     body[5] != 0,
	}, nil
}

func (d *Dongle) Events() *EventReader { return d.events }

func (d *Dongle) Descriptor() DeviceDescriptor { return d.desc }

func (d *Dongle) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.dev.Product()
	return err == nil
}

func (d *Dongle) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.Close()
}
