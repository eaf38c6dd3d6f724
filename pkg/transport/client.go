package transport

import (
	"encoding/binary"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/broadcast"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// FlowConfig tunes the write-then-poll cycle for one link. The presets below
// encode measured device behavior; override only for firmware that proves
// slower.
type FlowConfig struct {
	// Attempts is the number of poll reads per query before giving up.
	Attempts int
	// InitialWait runs once between the write and the first poll read.
	InitialWait time.Duration
	// PollInterval runs between subsequent poll reads.
	PollInterval time.Duration
	// Deadline caps the whole query regardless of attempts left.
	Deadline time.Duration
	// CommandDelay is the settle time after a fire-and-forget send.
	CommandDelay time.Duration
}

// Flow presets per link. Wired answers within one poll or two; Bluetooth
// adds GATT latency; the dongle needs many cheap flush+read cycles because
// the RF reply lands whenever the dongle's own polling brings it in.
var (
	WiredFlowConfig = FlowConfig{
		Attempts:     5,
		InitialWait:  100 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		Deadline:     time.Second,
		CommandDelay: 100 * time.Millisecond,
	}
	BluetoothFlowConfig = FlowConfig{
		Attempts:     5,
		InitialWait:  150 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
		Deadline:     1500 * time.Millisecond,
		CommandDelay: 150 * time.Millisecond,
	}
	DongleFlowConfig = FlowConfig{
		Attempts:     20,
		InitialWait:  5 * time.Millisecond,
		PollInterval: time.Millisecond,
		Deadline:     500 * time.Millisecond,
		CommandDelay: 5 * time.Millisecond,
	}
)

// FlowConfigFor returns the preset for a link kind.
func FlowConfigFor(kind Kind) FlowConfig {
	switch kind {
	case KindDongle:
		return DongleFlowConfig
	case KindBluetooth:
		return BluetoothFlowConfig
	default:
		return WiredFlowConfig
	}
}

// Dongle drain bounds: how many stale replies one query is willing to clear
// before writing, and how many the cache retains for later queries.
const (
	drainMaxCycles = 10
	cacheCapacity  = 16
)

// responseCache holds dongle replies that arrived for a different command
// than the one being polled for. FIFO with a hard cap; when full, the oldest
// entry is dropped on the theory that its query has long since timed out.
type responseCache struct {
	entries [][]byte
}

func (c *responseCache) add(body []byte) {
	if len(c.entries) >= cacheCapacity {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, body)
}

func (c *responseCache) take(cmd byte) ([]byte, bool) {
	for i, body := range c.entries {
		if len(body) > 0 && body[0] == cmd {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return body, true
		}
	}
	return nil, false
}

func (c *responseCache) len() int { return len(c.entries) }

// Client layers correlated request/response flow on a Backend: retries, echo
// matching, per-link pacing, and for the dongle the flush/drain/cache dance
// that store-and-forward buffering requires. One query cycle holds the
// client lock from write to matched response, so concurrent callers
// serialize cleanly.
type Client struct {
	mu      sync.Mutex
	backend Backend
	cfg     FlowConfig
	cache   responseCache
	closed  atomic.Bool

	evMu sync.Mutex
	sub  *broadcast.Receiver[TimestampedEvent]
}

// NewClient wraps a backend with the flow preset for its link kind.
func NewClient(backend Backend) *Client {
	return NewClientWithConfig(backend, FlowConfigFor(backend.Descriptor().Kind))
}

func NewClientWithConfig(backend Backend, cfg FlowConfig) *Client {
	return &Client{backend: backend, cfg: cfg}
}

// Send writes a command without waiting for a response, then pauses for the
// link's settle time so back-to-back sends do not overrun the device.
func (c *Client) Send(cmd byte, payload []byte, kind proto.ChecksumKind) error {
	return c.SendWithDelay(cmd, payload, kind, c.cfg.CommandDelay)
}

// SendWithDelay is Send with an explicit settle time, for bulk writes where
// the caller batches and paces on its own.
func (c *Client) SendWithDelay(cmd byte, payload []byte, kind proto.ChecksumKind, delay time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.WriteFrame(cmd, payload, kind); err != nil {
		return err
	}
	// The dongle will not forward the command over RF until nudged.
	if c.backend.Descriptor().Kind == KindDongle {
		if err := c.backend.Flush(); err != nil {
			return err
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

// Query writes a command and polls until a response whose echo byte matches
// arrives. The returned body starts with the echo byte.
func (c *Client) Query(cmd byte, payload []byte, kind proto.ChecksumKind) ([]byte, error) {
	return c.query(cmd, payload, kind, false)
}

// QueryRaw is Query without echo matching: the first non-empty response that
// is not a flush echo wins. For firmware commands whose replies do not echo
// the command byte.
func (c *Client) QueryRaw(cmd byte, payload []byte, kind proto.ChecksumKind) ([]byte, error) {
	return c.query(cmd, payload, kind, true)
}

func (c *Client) query(cmd byte, payload []byte, kind proto.ChecksumKind, raw bool) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	dongle := c.backend.Descriptor().Kind == KindDongle
	if dongle && !raw {
		if body, ok := c.cache.take(cmd); ok {
			slog.Debug("query served from cache", slog.String("cmd", proto.CommandName(cmd)))
			return body, nil
		}
	}
	if dongle {
		c.drainStale()
	}

	if err := c.backend.WriteFrame(cmd, payload, kind); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.cfg.Deadline)
	for attempt := 0; attempt < c.cfg.Attempts; attempt++ {
		if attempt == 0 {
			time.Sleep(c.cfg.InitialWait)
		} else {
			time.Sleep(c.cfg.PollInterval)
		}
		if time.Now().After(deadline) {
			break
		}

		if dongle {
			if err := c.backend.Flush(); err != nil {
				return nil, err
			}
		}
		body, err := c.backend.ReadFrame()
		if err != nil && !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		if err == nil && !allZero(body) && body[0] != proto.CmdDongleFlush {
			if raw || body[0] == cmd {
				return body, nil
			}
			// A reply to somebody else's question. Keep it; its query may
			// come back for it.
			if dongle {
				c.cache.add(body)
			}
			slog.Debug("query echo mismatch",
				slog.String("want", proto.CommandName(cmd)),
				slog.String("got", proto.CommandName(body[0])))
		}
		// A blocking backend read can outlast the budget; re-check so the
		// overshoot is bounded by that one read, not another full cycle.
		if time.Now().After(deadline) {
			break
		}
	}
	return nil, errors.Wrapf(ErrTimeout, "query %s after %d attempts", proto.CommandName(cmd), c.cfg.Attempts)
}

// drainStale clears replies left over from earlier queries so the next poll
// sees only fresh data. Bounded: a chatty dongle cannot stall the query.
func (c *Client) drainStale() {
	for i := 0; i < drainMaxCycles; i++ {
		if err := c.backend.Flush(); err != nil {
			return
		}
		time.Sleep(c.cfg.PollInterval)
		body, err := c.backend.ReadFrame()
		if err != nil || allZero(body) {
			return
		}
		if body[0] == proto.CmdDongleFlush {
			return
		}
		c.cache.add(body)
	}
}

// ProbeInfo is the identity reported by GET_USB_VERSION.
type ProbeInfo struct {
	DeviceID uint32
	Firmware uint16
}

// Probe asks the device for its identity. A successful probe is the
// liveness check discovery uses to rank candidates.
func (c *Client) Probe() (*ProbeInfo, error) {
	resp, err := c.Query(proto.CmdGetUSBVersion, nil, proto.ChecksumByte7)
	if err != nil {
		return nil, err
	}
	if len(resp) < 9 {
		return nil, errors.Wrap(proto.ErrFraming, "probe response truncated")
	}
	return &ProbeInfo{
		DeviceID: binary.LittleEndian.Uint32(resp[1:5]),
		Firmware: binary.LittleEndian.Uint16(resp[7:9]),
	}, nil
}

// SubscribeEvents returns a fresh receiver on the device's event stream.
// ok is false when the device exposes no input interface (Remote, or a
// command-only open).
func (c *Client) SubscribeEvents() (*broadcast.Receiver[TimestampedEvent], bool) {
	r := c.backend.Events()
	if r == nil {
		return nil, false
	}
	return r.Subscribe(), true
}

// ReadEvent returns the next event within timeout, or (nil, nil) when none
// arrived or the device has no event stream. A zero timeout is a
// non-blocking poll that still returns an already-buffered event. Lag is
// absorbed by retrying: a slow caller misses events but never sees an error
// for it.
func (c *Client) ReadEvent(timeout time.Duration) (VendorEvent, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.evMu.Lock()
	if c.sub == nil {
		sub, ok := c.SubscribeEvents()
		if !ok {
			c.evMu.Unlock()
			return nil, nil
		}
		c.sub = sub
	}
	sub := c.sub
	c.evMu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		// Clamp rather than bail: even with no budget left the
		// subscription is polled once, so buffered events stay reachable.
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		ev, err := sub.Recv(remaining)
		var lagged *broadcast.LaggedError
		switch {
		case err == nil:
			return ev.Event, nil
		case errors.As(err, &lagged):
			continue
		case errors.Is(err, broadcast.ErrEmpty):
			return nil, nil
		case errors.Is(err, broadcast.ErrClosed):
			return nil, nil
		default:
			return nil, err
		}
	}
}

// Connected reports whether the device still answers on its handle.
func (c *Client) Connected() bool {
	if c.closed.Load() {
		return false
	}
	return c.backend.Connected()
}

func (c *Client) Descriptor() DeviceDescriptor { return c.backend.Descriptor() }

// Close stops the event reader and releases the device handles. Idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if r := c.backend.Events(); r != nil {
		r.Stop()
	}
	return c.backend.Close()
}
