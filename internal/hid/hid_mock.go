package hid

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MockDevice is a scripted in-memory Device for tests. Feature reads pop
// queued responses; input reads block on an internal channel fed by Emit.
type MockDevice struct {
	mu       sync.Mutex
	features [][]byte // queued GET_FEATURE responses, oldest first
	writes   [][]byte // every SET_FEATURE and output-report buffer, in order
	input    chan []byte
	closed   bool
}

func NewMockDevice() *MockDevice {
	return &MockDevice{input: make(chan []byte, 64)}
}

// QueueFeature appends one GET_FEATURE response. An empty queue reads back
// as all zeros, like a device with nothing in its readable slot.
func (m *MockDevice) QueueFeature(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = append(m.features, append([]byte(nil), p...))
}

// Writes returns every buffer written so far.
func (m *MockDevice) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Emit delivers one input report to a pending or future ReadTimeout call.
func (m *MockDevice) Emit(p []byte) {
	m.input <- append([]byte(nil), p...)
}

func (m *MockDevice) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("mock: closed")
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (m *MockDevice) Read(p []byte) (int, error) {
	b, ok := <-m.input
	if !ok {
		return 0, errors.New("mock: closed")
	}
	return copy(p, b), nil
}

func (m *MockDevice) ReadTimeout(p []byte, d time.Duration) (int, error) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case b, ok := <-m.input:
		if !ok {
			return 0, errors.New("mock: closed")
		}
		return copy(p, b), nil
	case <-t.C:
		return 0, nil
	}
}

func (m *MockDevice) SendFeature(p []byte) error {
	_, err := m.Write(p)
	return err
}

func (m *MockDevice) GetFeature(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("mock: closed")
	}
	if len(m.features) == 0 {
		for i := 1; i < len(p); i++ {
			p[i] = 0
		}
		return len(p), nil
	}
	b := m.features[0]
	m.features = m.features[1:]
	return copy(p, b), nil
}

func (m *MockDevice) Product() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", errors.New("mock: closed")
	}
	return "Mock Device", nil
}

func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.input)
	}
	return nil
}
