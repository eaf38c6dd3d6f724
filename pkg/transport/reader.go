package transport

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/broadcast"
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/internal/hid"
)

// eventChannelCapacity bounds the broadcast ring; consumers further behind
// than this are lagged, never blocking the reader.
const eventChannelCapacity = 256

type eventParser func([]byte) VendorEvent

type readerConfig struct {
	name        string
	bufSize     int
	readTimeout time.Duration // how often the loop rechecks the shutdown flag when idle
	errorSleep  time.Duration // backoff after a failed read, so a dead handle does not spin
}

func usbReaderConfig(name string) readerConfig {
	return readerConfig{name: name, bufSize: 64, readTimeout: 5 * time.Millisecond, errorSleep: 100 * time.Millisecond}
}

func bleReaderConfig() readerConfig {
	return readerConfig{name: "bluetooth", bufSize: 66, readTimeout: 10 * time.Millisecond, errorSleep: 100 * time.Millisecond}
}

// EventReader owns a device's input interface. A dedicated goroutine reads
// raw input reports, parses them into vendor events, and republishes them
// with a monotonic elapsed timestamp on a bounded broadcast channel.
type EventReader struct {
	ch       *broadcast.Channel[TimestampedEvent]
	shutdown atomic.Bool
	done     chan struct{}
}

func newEventReader(input hid.Device, parse eventParser, cfg readerConfig) *EventReader {
	r := &EventReader{
		ch:   broadcast.New[TimestampedEvent](eventChannelCapacity),
		done: make(chan struct{}),
	}
	go r.loop(input, parse, cfg)
	return r
}

func (r *EventReader) loop(input hid.Device, parse eventParser, cfg readerConfig) {
	defer close(r.done)
	defer r.ch.Close()
	defer input.Close()

	slog.Debug("event reader started", slog.String("transport", cfg.name))
	start := time.Now()
	buf := make([]byte, cfg.bufSize)

	for !r.shutdown.Load() {
		n, err := input.ReadTimeout(buf, cfg.readTimeout)
		switch {
		case err != nil:
			if r.shutdown.Load() {
				break
			}
			// The handle may recover (e.g. a dongle losing RF briefly).
			slog.Warn("event reader read failed",
				slog.String("transport", cfg.name), slog.Any("error", err))
			time.Sleep(cfg.errorSleep)
		case n > 0:
			elapsed := time.Since(start)
			data := make([]byte, n)
			copy(data, buf[:n])
			r.ch.Send(TimestampedEvent{Event: parse(data), Elapsed: elapsed})
		}
	}

	slog.Debug("event reader exiting", slog.String("transport", cfg.name))
}

// Subscribe returns a fresh receiver on the broadcast channel.
func (r *EventReader) Subscribe() *broadcast.Receiver[TimestampedEvent] {
	return r.ch.Subscribe()
}

// Stop signals the reader goroutine and waits for it to exit. Latency is
// bounded by one read timeout.
func (r *EventReader) Stop() {
	if r.shutdown.Swap(true) {
		return
	}
	<-r.done
}
