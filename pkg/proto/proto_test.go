package proto

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumKnownVector(t *testing.T) {
	frame, err := Encode(CmdGetUSBVersion, nil, ChecksumByte7)
	require.NoError(t, err)
	require.Len(t, frame, ReportSize)
	require.Equal(t, byte(0x00), frame[0])
	require.Equal(t, byte(0x8F), frame[1])
	require.Equal(t, byte(0x70), frame[8])
}

func TestChecksumComplement(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		payload := make([]byte, rng.Intn(PayloadMax+1))
		rng.Read(payload)
		cmd := byte(rng.Intn(256))

		for _, kind := range []ChecksumKind{ChecksumByte7, ChecksumByte8} {
			frame, err := Encode(cmd, payload, kind)
			require.NoError(t, err)

			body := frame[1:]
			n := 7
			pos := 7
			if kind == ChecksumByte8 {
				n = 8
				pos = 8
			}
			var sum uint32
			for _, b := range body[:n] {
				sum += uint32(b)
			}
			// The checksum is the complement of the summed prefix.
			require.Equal(t, uint32(0xFF), (sum&0xFF)+uint32(body[pos]))
		}
	}
}

func TestChecksumNoneLeavesFrameUnsummed(t *testing.T) {
	frame, err := Encode(0x21, []byte{1, 2, 3}, ChecksumNone)
	require.NoError(t, err)
	require.Equal(t, byte(0x00), frame[8])
	require.Equal(t, byte(0x00), frame[9])
}

func TestEncodeOverflow(t *testing.T) {
	_, err := Encode(0x21, make([]byte, PayloadMax+1), ChecksumByte7)
	require.ErrorIs(t, err, ErrFraming)

	_, err = EncodeBLE(0x21, make([]byte, BLEPayloadMax+1), ChecksumByte7)
	require.ErrorIs(t, err, ErrFraming)
}

func TestDecodeRoundTrip(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	frame, err := Encode(CmdGetProfile, payload, ChecksumByte7)
	require.NoError(t, err)

	echo, body, err := Decode(frame)
	require.NoError(t, err)
	require.Equal(t, CmdGetProfile, echo)
	require.Equal(t, payload, body[:len(payload)])
}

func TestDecodeShortFrame(t *testing.T) {
	_, _, err := Decode([]byte{0x00})
	require.ErrorIs(t, err, ErrFraming)
}

func TestBLERoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02}
	frame, err := EncodeBLE(CmdGetLEDOnOff, payload, ChecksumByte7)
	require.NoError(t, err)
	require.Len(t, frame, BLEReportSize)
	require.Equal(t, byte(BLEReportID), frame[0])
	require.Equal(t, byte(BLEMarkerCommand), frame[1])

	echo, body, err := DecodeBLE(frame)
	require.NoError(t, err)
	require.Equal(t, CmdGetLEDOnOff, echo)
	require.Equal(t, payload, body[:len(payload)])
}

func TestBLEChecksumExcludesMarker(t *testing.T) {
	usb, err := Encode(CmdGetUSBVersion, nil, ChecksumByte7)
	require.NoError(t, err)
	ble, err := EncodeBLE(CmdGetUSBVersion, nil, ChecksumByte7)
	require.NoError(t, err)
	// Same body, same checksum: the 0x55 marker is not summed.
	require.Equal(t, usb[8], ble[9])
}

func TestDecodeBLERejectsEventFrames(t *testing.T) {
	_, _, err := DecodeBLE([]byte{BLEReportID, BLEMarkerEvent, 0x01, 0x02})
	require.ErrorIs(t, err, ErrFraming)

	_, _, err = DecodeBLE([]byte{0x00, BLEMarkerCommand, 0x01})
	require.ErrorIs(t, err, ErrFraming)

	_, _, err = DecodeBLE([]byte{BLEReportID, BLEMarkerCommand})
	require.ErrorIs(t, err, ErrFraming)
}

func TestCommandName(t *testing.T) {
	require.Equal(t, "GET_USB_VERSION", CommandName(CmdGetUSBVersion))
	require.Equal(t, "DONGLE_FLUSH_NOP", CommandName(CmdDongleFlush))
	require.Equal(t, "UNKNOWN", CommandName(0x6F))
}
