package broadcast

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestFanOutOrder(t *testing.T) {
	ch := New[int](8)
	a := ch.Subscribe()
	b := ch.Subscribe()

	for i := 0; i < 5; i++ {
		ch.Send(i)
	}

	for _, r := range []*Receiver[int]{a, b} {
		for i := 0; i < 5; i++ {
			v, err := r.TryRecv()
			require.NoError(t, err)
			require.Equal(t, i, v)
		}
		_, err := r.TryRecv()
		require.ErrorIs(t, err, ErrEmpty)
	}
}

func TestSubscribeSkipsHistory(t *testing.T) {
	ch := New[int](8)
	ch.Send(1)
	ch.Send(2)

	r := ch.Subscribe()
	_, err := r.TryRecv()
	require.ErrorIs(t, err, ErrEmpty)

	ch.Send(3)
	v, err := r.TryRecv()
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestLaggedReceiver(t *testing.T) {
	ch := New[int](4)
	r := ch.Subscribe()

	// Overrun the ring by 3.
	for i := 0; i < 7; i++ {
		ch.Send(i)
	}

	_, err := r.TryRecv()
	var lagged *LaggedError
	require.True(t, errors.As(err, &lagged))
	require.Equal(t, uint64(3), lagged.Missed)

	// After the lag the receiver resumes at the oldest retained value.
	for want := 3; want < 7; want++ {
		v, err := r.TryRecv()
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}

func TestSendNeverBlocks(t *testing.T) {
	ch := New[int](2)
	_ = ch.Subscribe() // a subscriber that never reads

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			ch.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer blocked on a slow receiver")
	}
}

func TestRecvWakesOnSend(t *testing.T) {
	ch := New[string](4)
	r := ch.Subscribe()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.Send("hello")
	}()

	v, err := r.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}

func TestRecvTimeout(t *testing.T) {
	ch := New[int](4)
	r := ch.Subscribe()

	start := time.Now()
	_, err := r.Recv(30 * time.Millisecond)
	require.ErrorIs(t, err, ErrEmpty)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestCloseDrainsThenFails(t *testing.T) {
	ch := New[int](4)
	r := ch.Subscribe()

	ch.Send(1)
	ch.Close()

	v, err := r.TryRecv()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	_, err = r.TryRecv()
	require.ErrorIs(t, err, ErrClosed)

	// Send after close is dropped.
	ch.Send(2)
	_, err = r.TryRecv()
	require.ErrorIs(t, err, ErrClosed)
}
