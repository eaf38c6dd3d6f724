// Package transport turns three physically different links to MonsGeek/Akko
// keyboards — direct USB, a store-and-forward 2.4GHz dongle, and Bluetooth —
// into one correlated request/response API with live event streaming.
//
//	[Wired / Dongle / Bluetooth / Remote]  ← Backend: raw frame I/O
//	               |
//	           [Client]                    ← retries, echo matching, polling
//	               |
//	        [Discovery / callers]
package transport

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// Kind identifies the link a device is reached over. It is a routing tag
// chosen at discovery time; device identity (model, capabilities) is
// established later by querying through the client.
type Kind int

const (
	KindWired Kind = iota
	KindDongle
	KindBluetooth
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindWired:
		return "wired"
	case KindDongle:
		return "dongle"
	case KindBluetooth:
		return "bluetooth"
	case KindRemote:
		return "remote"
	}
	return "unknown"
}

// Wireless reports whether the link decouples the host from the keyboard.
func (k Kind) Wireless() bool {
	return k == KindDongle || k == KindBluetooth || k == KindRemote
}

// DeviceDescriptor identifies one discovered device. Immutable once
// discovered; owned by the Client for its lifetime.
type DeviceDescriptor struct {
	VendorID  uint16
	ProductID uint16
	Kind      Kind
	Path      string // command interface path, opaque to callers
	Serial    string
	Product   string
	Dongle    bool
}

// Backend is raw, uncorrelated frame I/O over one command interface.
// Correlation, retries, and timeouts live in Client.
type Backend interface {
	// WriteFrame encodes and writes one command frame.
	WriteFrame(cmd byte, payload []byte, kind proto.ChecksumKind) error
	// ReadFrame reads one response body with the report ID (and BLE marker)
	// stripped: byte 0 is the command echo, or undefined for uncorrelated
	// replies. An all-zero body means the readable slot was empty.
	ReadFrame() ([]byte, error)
	// Flush asks the link to promote its next buffered reply into the
	// readable slot. A no-op on every backend except the dongle.
	Flush() error
	// Events returns the device's event reader, or nil when the device has
	// no input interface.
	Events() *EventReader
	Descriptor() DeviceDescriptor
	Connected() bool
	Close() error
}

var (
	// ErrDeviceNotFound reports that discovery matched nothing. Never
	// retried at this layer.
	ErrDeviceNotFound = errors.New("transport: no matching device")
	// ErrTimeout reports a query whose retry budget ran out without a
	// correlated response. The operation as a whole may be retried.
	ErrTimeout = errors.New("transport: timed out waiting for response")
	// ErrUnimplemented reports a deliberate placeholder backend. Stable:
	// the same call always fails the same way.
	ErrUnimplemented = errors.New("transport: not implemented for this transport")
	// ErrClosed reports use of a client after Close.
	ErrClosed = errors.New("transport: client closed")
)

// MismatchError reports a response whose echo byte did not match the
// outstanding query. Recovered inside the poll loop; it surfaces only from
// typed-response validation.
type MismatchError struct {
	Expected byte
	Got      byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("transport: expected echo 0x%02X, got 0x%02X", e.Expected, e.Got)
}
