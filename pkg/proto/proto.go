// Package proto builds and parses the vendor HID frames spoken by
// MonsGeek/Akko keyboards.
//
// Two framing dialects exist. USB (wired and 2.4GHz dongle) carries commands
// in 65-byte feature reports:
//
//	[report_id=0x00][cmd][payload...][checksum]
//
// Bluetooth wraps the same body in a 66-byte report with a marker byte that
// separates command/response traffic (0x55) from asynchronous events (0x66):
//
//	[report_id=0x06][0x55][cmd][payload...][checksum]
//	[report_id=0x06][0x66][type][value...]
//
// The checksum always covers the body starting at the command byte, so the
// BLE marker is excluded from the sum.
package proto

import (
	"github.com/pkg/errors"
)

const (
	// ReportSize is the USB feature report length including the report ID.
	ReportSize = 65
	// InputReportSize is the length of input (event) reports.
	InputReportSize = 64
	// PayloadMax is the usable payload capacity after report ID and command.
	PayloadMax = ReportSize - 2

	// BLEReportID is the vendor report ID used over Bluetooth.
	BLEReportID = 0x06
	// BLEMarkerCommand prefixes command and response frames.
	BLEMarkerCommand = 0x55
	// BLEMarkerEvent prefixes asynchronous event frames.
	BLEMarkerEvent = 0x66
	// BLEReportSize is the Bluetooth report length including report ID and marker.
	BLEReportSize = 66
	// BLEPayloadMax is the Bluetooth payload capacity.
	BLEPayloadMax = BLEReportSize - 3
)

// ErrFraming reports a frame that cannot be parsed: truncated, or carrying
// an unexpected prefix. Specific causes wrap it.
var ErrFraming = errors.New("proto: malformed frame")

// ChecksumKind selects how a frame's checksum is computed and where it lands.
type ChecksumKind int

const (
	// ChecksumNone leaves the frame unsummed (bulk data pages).
	ChecksumNone ChecksumKind = iota
	// ChecksumByte7 sums body bytes 0-6 and stores 255-(sum&0xFF) at body
	// offset 7 (frame offset 8). Used by most commands.
	ChecksumByte7
	// ChecksumByte8 sums body bytes 0-7 and stores the result at body
	// offset 8 (frame offset 9). Used by LED/lighting commands.
	ChecksumByte8
)

// Checksum computes the checksum byte for body, which starts at the command
// byte (the report ID and any BLE marker are already stripped).
func Checksum(body []byte, kind ChecksumKind) byte {
	var n int
	switch kind {
	case ChecksumByte7:
		n = 7
	case ChecksumByte8:
		n = 8
	default:
		return 0
	}
	var sum uint32
	for _, b := range body[:n] {
		sum += uint32(b)
	}
	return byte(255 - (sum & 0xFF))
}

// ApplyChecksum writes the checksum into body in place. Bodies shorter than
// the checksum position are left untouched.
func ApplyChecksum(body []byte, kind ChecksumKind) {
	switch kind {
	case ChecksumByte7:
		if len(body) >= 8 {
			body[7] = Checksum(body, kind)
		}
	case ChecksumByte8:
		if len(body) >= 9 {
			body[8] = Checksum(body, kind)
		}
	}
}

// Encode builds a USB feature report frame for cmd with the given payload.
func Encode(cmd byte, payload []byte, kind ChecksumKind) ([]byte, error) {
	if len(payload) > PayloadMax {
		return nil, errors.Wrapf(ErrFraming, "payload %d exceeds capacity %d", len(payload), PayloadMax)
	}
	buf := make([]byte, ReportSize)
	buf[0] = 0x00
	buf[1] = cmd
	copy(buf[2:], payload)
	ApplyChecksum(buf[1:], kind)
	return buf, nil
}

// EncodeBLE builds a Bluetooth command frame. The checksum covers the body
// starting at cmd; the 0x55 marker is excluded.
func EncodeBLE(cmd byte, payload []byte, kind ChecksumKind) ([]byte, error) {
	if len(payload) > BLEPayloadMax {
		return nil, errors.Wrapf(ErrFraming, "payload %d exceeds capacity %d", len(payload), BLEPayloadMax)
	}
	buf := make([]byte, BLEReportSize)
	buf[0] = BLEReportID
	buf[1] = BLEMarkerCommand
	buf[2] = cmd
	copy(buf[3:], payload)
	ApplyChecksum(buf[2:], kind)
	return buf, nil
}

// Decode strips the report ID from a USB frame and returns the command echo
// and the bytes after it. Checksums are not verified: devices do not reliably
// echo them, so validation is left to callers that need it.
func Decode(frame []byte) (echo byte, payload []byte, err error) {
	if len(frame) < 2 {
		return 0, nil, errors.Wrapf(ErrFraming, "short frame: %d bytes", len(frame))
	}
	return frame[1], frame[2:], nil
}

// DecodeBLE strips the report ID and command marker from a Bluetooth frame.
// Frames carrying the event marker (0x66) are rejected; they belong to the
// event stream, not the command/response exchange.
func DecodeBLE(frame []byte) (echo byte, payload []byte, err error) {
	if len(frame) < 3 {
		return 0, nil, errors.Wrapf(ErrFraming, "short frame: %d bytes", len(frame))
	}
	if frame[0] != BLEReportID {
		return 0, nil, errors.Wrapf(ErrFraming, "unexpected report id 0x%02X", frame[0])
	}
	if frame[1] != BLEMarkerCommand {
		return 0, nil, errors.Wrapf(ErrFraming, "marker 0x%02X is not a command/response frame", frame[1])
	}
	return frame[2], frame[3:], nil
}
