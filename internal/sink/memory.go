package sink

import (
	"bytes"
	"context"
	"sync"

	"github.com/danmuck/dhcptap/internal/observability"
)

// Memory keeps published payloads in process.
type Memory struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, payload []byte) error {
	err := m.publish(ctx, payload)
	observability.RecordPublish("memory", err)
	return err
}

func (m *Memory) publish(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, bytes.Clone(payload))
	return nil
}

// FailWith makes every later Publish return err; nil clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Payloads returns copies of everything published so far, oldest first.
func (m *Memory) Payloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.payloads))
	for _, p := range m.payloads {
		out = append(out, bytes.Clone(p))
	}
	return out
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
