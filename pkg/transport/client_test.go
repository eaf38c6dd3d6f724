package transport

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/hid"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// fastFlow keeps test queries quick without changing the cycle shape.
var fastFlow = FlowConfig{
	Attempts:     10,
	InitialWait:  time.Millisecond,
	PollInterval: time.Millisecond,
	Deadline:     500 * time.Millisecond,
	CommandDelay: 0,
}

// usbFrame builds a 65-byte feature report: report ID, echo, then data.
func usbFrame(echo byte, data ...byte) []byte {
	f := make([]byte, proto.ReportSize)
	f[1] = echo
	copy(f[2:], data)
	return f
}

func newWiredClient(dev *hid.MockDevice) *Client {
	backend := NewWired(dev, nil, DeviceDescriptor{Kind: KindWired})
	return NewClientWithConfig(backend, fastFlow)
}

func newDongleClient(dev *hid.MockDevice) *Client {
	backend := NewDongle(dev, nil, DeviceDescriptor{Kind: KindDongle, Dongle: true})
	return NewClientWithConfig(backend, fastFlow)
}

func TestQuerySkipsMismatchedEchoes(t *testing.T) {
	dev := hid.NewMockDevice()
	dev.QueueFeature(usbFrame(proto.CmdGetLEDOnOff, 0x01))
	dev.QueueFeature(usbFrame(proto.CmdGetDebounce, 0x02))
	dev.QueueFeature(usbFrame(proto.CmdGetProfile, 0x03))

	c := newWiredClient(dev)
	defer c.Close()

	body, err := c.Query(proto.CmdGetProfile, nil, proto.ChecksumByte7)
	require.NoError(t, err)
	require.Equal(t, proto.CmdGetProfile, body[0])
	require.Equal(t, byte(0x03), body[1])
}

func TestQueryTimeout(t *testing.T) {
	dev := hid.NewMockDevice()
	c := newWiredClient(dev)
	defer c.Close()

	start := time.Now()
	_, err := c.Query(proto.CmdGetProfile, nil, proto.ChecksumByte7)
	require.ErrorIs(t, err, ErrTimeout)

	// Bounded by attempts times poll interval, with generous slack.
	require.Less(t, time.Since(start), fastFlow.Deadline)
	require.Len(t, dev.Writes(), 1)
}

func TestQueryRawAcceptsAnyEcho(t *testing.T) {
	dev := hid.NewMockDevice()
	dev.QueueFeature(usbFrame(0x42, 0xAB))

	c := newWiredClient(dev)
	defer c.Close()

	body, err := c.QueryRaw(proto.CmdGetRev, nil, proto.ChecksumByte7)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), body[0])
	require.Equal(t, byte(0xAB), body[1])
}

func TestQueryRawSkipsFlushEcho(t *testing.T) {
	dev := hid.NewMockDevice()
	dev.QueueFeature(usbFrame(proto.CmdDongleFlush))
	dev.QueueFeature(usbFrame(0x42, 0x01))

	c := newWiredClient(dev)
	defer c.Close()

	body, err := c.QueryRaw(proto.CmdGetRev, nil, proto.ChecksumByte7)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), body[0])
}

func TestDongleDrainCachesStaleReplies(t *testing.T) {
	dev := hid.NewMockDevice()
	// Three stale replies sit in the dongle's buffer, then the slot
	// empties, then the device answers the GET_PROFILE query.
	stales := []byte{proto.CmdGetLEDOnOff, proto.CmdGetDebounce, proto.CmdGetKbOption}
	for i, echo := range stales {
		dev.QueueFeature(usbFrame(echo, byte(0x10+i)))
	}
	dev.QueueFeature(make([]byte, proto.ReportSize))
	dev.QueueFeature(usbFrame(proto.CmdGetProfile, 0x02))

	c := newDongleClient(dev)
	defer c.Close()

	body, err := c.Query(proto.CmdGetProfile, nil, proto.ChecksumByte7)
	require.NoError(t, err)
	require.Equal(t, byte(0x02), body[1])

	// One flush per stale reply, one for the empty slot that ends the
	// drain, one ahead of the poll read that answered the query.
	writes := dev.Writes()
	var flushes int
	for _, w := range writes {
		if w[1] == proto.CmdDongleFlush {
			flushes++
		}
	}
	require.Equal(t, len(stales)+2, flushes)
	require.LessOrEqual(t, flushes, drainMaxCycles+2)
	// The query frame went out only after the drain hit the empty slot.
	require.Equal(t, proto.CmdGetProfile, writes[len(stales)+1][1])

	// Every stale reply was cached; their queries are answered without
	// touching the device again.
	before := len(writes)
	for i, echo := range stales {
		body, err := c.Query(echo, nil, proto.ChecksumByte7)
		require.NoError(t, err)
		require.Equal(t, byte(0x10+i), body[1])
	}
	require.Len(t, dev.Writes(), before)
}

func TestResponseCacheEviction(t *testing.T) {
	var c responseCache
	for i := 0; i < cacheCapacity+4; i++ {
		c.add([]byte{byte(i)})
	}
	require.Equal(t, cacheCapacity, c.len())

	// The oldest entries were dropped.
	_, ok := c.take(0x00)
	require.False(t, ok)
	body, ok := c.take(byte(cacheCapacity + 3))
	require.True(t, ok)
	require.Equal(t, byte(cacheCapacity+3), body[0])
}

func TestSendDongleFlushes(t *testing.T) {
	dev := hid.NewMockDevice()
	c := newDongleClient(dev)
	defer c.Close()

	require.NoError(t, c.Send(proto.CmdSetProfile, []byte{0x02}, proto.ChecksumByte7))

	writes := dev.Writes()
	require.Len(t, writes, 2)
	require.Equal(t, proto.CmdSetProfile, writes[0][1])
	require.Equal(t, proto.CmdDongleFlush, writes[1][1])
}

func TestSendWiredWritesOnce(t *testing.T) {
	dev := hid.NewMockDevice()
	c := newWiredClient(dev)
	defer c.Close()

	require.NoError(t, c.Send(proto.CmdSetProfile, []byte{0x01}, proto.ChecksumByte7))
	require.Len(t, dev.Writes(), 1)
}

func TestProbe(t *testing.T) {
	dev := hid.NewMockDevice()
	// Body: echo, device ID LE at 1..4, firmware LE at 7..8.
	dev.QueueFeature(usbFrame(proto.CmdGetUSBVersion,
		0x78, 0x56, 0x34, 0x12, 0x00, 0x00, 0x01, 0x02))

	c := newWiredClient(dev)
	defer c.Close()

	info, err := c.Probe()
	require.NoError(t, err)
	require.Equal(t, uint32(0x12345678), info.DeviceID)
	require.Equal(t, uint16(0x0201), info.Firmware)
}

func TestClientClosed(t *testing.T) {
	dev := hid.NewMockDevice()
	c := newWiredClient(dev)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Query(proto.CmdGetProfile, nil, proto.ChecksumByte7)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, c.Send(proto.CmdSetProfile, nil, proto.ChecksumByte7), ErrClosed)
	require.False(t, c.Connected())
}

func TestRemoteUnimplemented(t *testing.T) {
	c := NewClient(NewRemote(DeviceDescriptor{}))
	defer c.Close()

	_, err := c.Query(proto.CmdGetProfile, nil, proto.ChecksumByte7)
	require.ErrorIs(t, err, ErrUnimplemented)
	require.ErrorIs(t, c.Send(proto.CmdSetProfile, nil, proto.ChecksumByte7), ErrUnimplemented)
	require.False(t, c.Connected())
	require.Equal(t, KindRemote, c.Descriptor().Kind)

	ev, err := c.ReadEvent(10 * time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, ev)
}

func TestReadEventDelivers(t *testing.T) {
	cmdDev := hid.NewMockDevice()
	inputDev := hid.NewMockDevice()
	backend := NewWired(cmdDev, inputDev, DeviceDescriptor{Kind: KindWired})
	c := NewClientWithConfig(backend, fastFlow)
	defer c.Close()

	// First call establishes the subscription; events sent before it are
	// not observed.
	ev, err := c.ReadEvent(10 * time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, ev)

	inputDev.Emit([]byte{0x05, 0x01, 0x02})

	ev, err = c.ReadEvent(time.Second)
	require.NoError(t, err)
	require.Equal(t, ProfileChange{Profile: 0x02}, ev)
}

func TestReadEventZeroTimeoutDeliversPending(t *testing.T) {
	cmdDev := hid.NewMockDevice()
	inputDev := hid.NewMockDevice()
	backend := NewWired(cmdDev, inputDev, DeviceDescriptor{Kind: KindWired})
	c := NewClientWithConfig(backend, fastFlow)
	defer c.Close()

	// Establishes the subscription; nothing is pending yet.
	ev, err := c.ReadEvent(0)
	require.NoError(t, err)
	require.Nil(t, ev)

	inputDev.Emit([]byte{0x05, 0x01, 0x02})

	// Once the reader has published the event, a zero-timeout poll must
	// hand it over instead of bailing before looking.
	deadline := time.Now().Add(time.Second)
	for {
		ev, err = c.ReadEvent(0)
		require.NoError(t, err)
		if ev != nil {
			require.Equal(t, ProfileChange{Profile: 0x02}, ev)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("buffered event not observable with a zero timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// slowBackend answers every read with an empty slot after a fixed delay,
// like a Bluetooth link sifting input reports with nothing to show.
type slowBackend struct {
	readDelay time.Duration
	reads     int
}

func (b *slowBackend) WriteFrame(byte, []byte, proto.ChecksumKind) error { return nil }

func (b *slowBackend) ReadFrame() ([]byte, error) {
	b.reads++
	time.Sleep(b.readDelay)
	return make([]byte, proto.ReportSize-1), nil
}

func (b *slowBackend) Flush() error                 { return nil }
func (b *slowBackend) Events() *EventReader         { return nil }
func (b *slowBackend) Descriptor() DeviceDescriptor { return DeviceDescriptor{Kind: KindWired} }
func (b *slowBackend) Connected() bool              { return true }
func (b *slowBackend) Close() error                 { return nil }

func TestQueryDeadlineBoundsSlowReads(t *testing.T) {
	backend := &slowBackend{readDelay: 60 * time.Millisecond}
	c := NewClientWithConfig(backend, FlowConfig{
		Attempts:     10,
		InitialWait:  time.Millisecond,
		PollInterval: time.Millisecond,
		Deadline:     20 * time.Millisecond,
	})
	defer c.Close()

	start := time.Now()
	_, err := c.Query(proto.CmdGetProfile, nil, proto.ChecksumByte7)
	require.ErrorIs(t, err, ErrTimeout)
	// The read straddling the deadline is the last one; the budget is not
	// re-armed for further attempts.
	require.Equal(t, 1, backend.reads)
	require.Less(t, time.Since(start), 2*backend.readDelay)
}

func TestMismatchError(t *testing.T) {
	err := &MismatchError{Expected: 0x84, Got: 0x85}
	require.Equal(t, "transport: expected echo 0x84, got 0x85", err.Error())
	var m *MismatchError
	require.True(t, errors.As(err, &m))
}
