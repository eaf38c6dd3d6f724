// Package broadcast implements a bounded multi-consumer fan-out queue.
//
// The producer never blocks: values are written into a fixed-size ring and
// old entries are overwritten once the ring wraps. A receiver that falls
// behind by more than the ring capacity gets a LaggedError telling it how
// many values it missed, then continues from the oldest value still held.
package broadcast

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrEmpty reports that no value arrived within the receive timeout.
	ErrEmpty = errors.New("broadcast: no value available")
	// ErrClosed reports that the channel is closed and drained.
	ErrClosed = errors.New("broadcast: channel closed")
)

// LaggedError reports that a receiver fell behind the producer.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("broadcast: receiver lagged, missed %d values", e.Missed)
}

// Channel is a bounded broadcast queue. The zero value is not usable; use New.
type Channel[T any] struct {
	mu     sync.Mutex
	buf    []T
	next   uint64 // sequence number of the next value to be sent
	closed bool
	wake   chan struct{} // closed and replaced on every Send/Close
}

func New[T any](capacity int) *Channel[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Channel[T]{
		buf:  make([]T, capacity),
		wake: make(chan struct{}),
	}
}

// Send publishes v to all current receivers. It never blocks; the oldest
// unread value is dropped for any receiver more than capacity behind.
func (c *Channel[T]) Send(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.buf[c.next%uint64(len(c.buf))] = v
	c.next++
	close(c.wake)
	c.wake = make(chan struct{})
	c.mu.Unlock()
}

// Close marks the channel closed. Receivers drain buffered values, then get
// ErrClosed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.wake)
		c.wake = make(chan struct{})
	}
	c.mu.Unlock()
}

// Subscribe returns a receiver positioned at the next value to be sent.
// Values sent before Subscribe are not observed.
func (c *Channel[T]) Subscribe() *Receiver[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Receiver[T]{ch: c, seq: c.next}
}

// Receiver is one consumer's cursor into the channel. Not safe for
// concurrent use by multiple goroutines.
type Receiver[T any] struct {
	ch  *Channel[T]
	seq uint64
}

// TryRecv returns the next value without waiting. It returns ErrEmpty when
// caught up, ErrClosed when the channel is closed and drained, or a
// LaggedError after skipping ahead past overwritten values.
func (r *Receiver[T]) TryRecv() (T, error) {
	v, _, err := r.poll()
	return v, err
}

// Recv returns the next value, waiting up to timeout. A zero timeout is a
// non-blocking poll.
func (r *Receiver[T]) Recv(timeout time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, wake, err := r.poll()
		if !errors.Is(err, ErrEmpty) {
			return v, err
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return v, ErrEmpty
		}
		t := time.NewTimer(remain)
		select {
		case <-wake:
			t.Stop()
		case <-t.C:
			var zero T
			return zero, ErrEmpty
		}
	}
}

func (r *Receiver[T]) poll() (T, <-chan struct{}, error) {
	c := r.ch
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	capacity := uint64(len(c.buf))
	if c.next > capacity && r.seq < c.next-capacity {
		missed := (c.next - capacity) - r.seq
		r.seq = c.next - capacity
		return zero, c.wake, &LaggedError{Missed: missed}
	}
	if r.seq < c.next {
		v := c.buf[r.seq%capacity]
		r.seq++
		return v, c.wake, nil
	}
	if c.closed {
		return zero, c.wake, ErrClosed
	}
	return zero, c.wake, ErrEmpty
}
